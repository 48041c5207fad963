package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"bodyshop-gallery/internal/blur/handlers"
	"bodyshop-gallery/internal/blur/paths"
	"bodyshop-gallery/internal/blur/repository"
	"bodyshop-gallery/internal/blur/service"
	"bodyshop-gallery/internal/blur/settings"
	"bodyshop-gallery/internal/common/config"
	"bodyshop-gallery/internal/common/health"
	"bodyshop-gallery/internal/common/logging"
	"bodyshop-gallery/internal/common/middleware"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/recover"
)

const (
	sessionIdleLimit = time.Hour
	sweepInterval    = 10 * time.Minute
)

// ============================================================
// Blur Zone Service
// ============================================================

func main() {
	cfg := config.Load()
	if os.Getenv("PORT") == "" {
		cfg.Port = "3001"
	}
	logger := logging.New(cfg.LogLevel, cfg.Environment)

	gallery, err := config.LoadGallery(cfg.GalleryConfig)
	if err != nil {
		log.Fatalf("load gallery config: %v", err)
	}

	db, err := repository.OpenSQLite(cfg.DBPath)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	defer db.Close()

	repo := repository.New(db, logger)
	if err := repo.Init(context.Background(), cfg.MigrationsPath); err != nil {
		log.Fatalf("init db: %v", err)
	}

	normalizer := paths.New(paths.Options{
		SiteHosts:     gallery.Hosts(cfg.SiteHosts...),
		AssetsRoot:    gallery.AssetsRoot,
		GallerySubdir: gallery.GallerySubdir,
		Identifiers:   gallery.Identifiers,
		Logger:        logger,
	})

	initial := settings.Default()
	initial.DefaultBlurAmount = gallery.Editor.DefaultBlurAmount
	initial.DefaultZoneWidth = gallery.Editor.DefaultZoneWidth
	initial.DefaultZoneHeight = gallery.Editor.DefaultZoneHeight
	initial.MinDrawSize = gallery.Editor.MinDrawSize
	initial.OverlaysEnabled = gallery.Editor.OverlaysEnabled
	prefs := settings.NewProvider(initial, logger)

	sessions := service.NewSessions()
	blurHandler := handlers.NewBlurHandler(handlers.Deps{
		Normalizer: normalizer,
		Repo:       repo,
		Storage:    service.NewImageStorage(cfg.AssetsDir),
		Sessions:   sessions,
		Settings:   prefs,
		AdminToken: cfg.AdminToken,
		Logger:     logger,
	})
	if cfg.AdminToken == "" {
		logger.Warn("ADMIN_TOKEN is empty, admin routes are open")
	}

	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.WriteTimeout) * time.Second,
		BodyLimit:    32 * 1024 * 1024,
		AppName:      "Blur Zone Service",
	})

	// ============================================================
	// Global Middleware
	// ============================================================

	app.Use(recover.New())
	app.Use(middleware.RequestID())
	app.Use(middleware.Logger(cfg.Environment))
	app.Use(middleware.CORS(cfg.CORSOrigins))

	// ============================================================
	// Health Check Routes
	// ============================================================

	probes := health.New(map[string]health.Check{"db": db.PingContext})
	probes.Register(app)

	// ============================================================
	// Blur Routes
	// ============================================================

	blurHandler.Register(app.Group("/api/v1/blur"))

	// ============================================================
	// Session Sweeper
	// ============================================================

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		ticker := time.NewTicker(sweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := sessions.CloseIdle(sessionIdleLimit); n > 0 {
					logger.Info("editor sessions expired", "closed", n, "open", sessions.Len())
				}
			}
		}
	}()

	go func() {
		<-ctx.Done()
		if err := app.ShutdownWithTimeout(5 * time.Second); err != nil {
			log.Printf("shutdown: %v", err)
		}
	}()

	// ============================================================
	// Server Start
	// ============================================================

	addr := fmt.Sprintf(":%s", cfg.Port)
	log.Printf("Starting Blur Zone Service on %s (env: %s)", addr, cfg.Environment)
	probes.MarkStarted()

	if err := app.Listen(addr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
