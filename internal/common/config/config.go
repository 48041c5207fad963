package config

import (
	"os"
	"strconv"
	"strings"
)

// ============================================================
// Configuration
// ============================================================

type Config struct {
	Port         string
	Environment  string
	ReadTimeout  int
	WriteTimeout int
	LogLevel     string
	CORSOrigins  []string

	// Blur service
	DBPath         string
	MigrationsPath string
	AssetsDir      string
	AdminToken     string
	SiteHosts      []string
	GalleryConfig  string

	// Gateway
	BlurURL      string
	ProxyTimeout int
}

// Load загружает конфигурацию из переменных окружения
func Load() *Config {
	return &Config{
		Port:           getEnv("PORT", "3000"),
		Environment:    getEnv("ENV", "development"),
		ReadTimeout:    getEnvAsInt("READ_TIMEOUT", 10),
		WriteTimeout:   getEnvAsInt("WRITE_TIMEOUT", 10),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		CORSOrigins:    getEnvAsList("CORS_ORIGINS"),
		DBPath:         getEnv("BLUR_DB_PATH", "data/db/blur.db"),
		MigrationsPath: getEnv("MIGRATIONS_PATH", "migrations/001_init_blur_zones.sql"),
		AssetsDir:      getEnv("ASSETS_DIR", "public"),
		AdminToken:     os.Getenv("ADMIN_TOKEN"),
		SiteHosts:      getEnvAsList("SITE_HOSTS"),
		GalleryConfig:  os.Getenv("GALLERY_CONFIG"),
		BlurURL:        getEnv("BLUR_URL", "http://localhost:3001"),
		ProxyTimeout:   getEnvAsInt("PROXY_TIMEOUT", 30),
	}
}

func getEnv(key, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvAsList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
