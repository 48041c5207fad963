package middleware

import (
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/logger"
	"github.com/gofiber/fiber/v3/middleware/requestid"
)

// ============================================================
// Logger Middleware
// ============================================================

// RequestID проставляет X-Request-ID, если клиент его не прислал.
func RequestID() fiber.Handler {
	return requestid.New()
}

// Logger пишет строку доступа на запрос. В production формат без цветов и с
// полной датой, чтобы строки нормально собирались агрегатором.
func Logger(env string) fiber.Handler {
	cfg := logger.Config{
		Format:     "[${time}] ${status} - ${latency} ${method} ${path} | rid=${respHeader:X-Request-ID}\n",
		TimeFormat: "15:04:05",
		TimeZone:   "Local",
	}
	if env != "" && env != "development" {
		cfg.Format = "${time} ${status} ${latency} ${method} ${path} ${queryParams} rid=${respHeader:X-Request-ID} ip=${ip}\n"
		cfg.TimeFormat = "2006-01-02T15:04:05Z07:00"
		cfg.TimeZone = "UTC"
		cfg.DisableColors = true
	}
	return logger.New(cfg)
}
