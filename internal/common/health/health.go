package health

import (
	"context"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gofiber/fiber/v3"
)

// ============================================================
// Health Check Handlers
// ============================================================

// Check reports whether a dependency (db, upstream) is usable.
type Check func(ctx context.Context) error

type Probes struct {
	checks  map[string]Check
	started atomic.Bool
	timeout time.Duration
}

func New(checks map[string]Check) *Probes {
	return &Probes{checks: checks, timeout: 2 * time.Second}
}

// MarkStarted переключает startup-пробу после инициализации сервиса.
func (p *Probes) MarkStarted() {
	p.started.Store(true)
}

func (p *Probes) Register(r fiber.Router) {
	r.Get("/health/live", p.Liveness)
	r.Get("/health/ready", p.Readiness)
	r.Get("/health/startup", p.Startup)
}

// Liveness проверяет, что процесс отвечает.
func (p *Probes) Liveness(c fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "alive"})
}

// Readiness прогоняет все проверки зависимостей.
func (p *Probes) Readiness(c fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()

	failed := fiber.Map{}
	for name, check := range p.checks {
		if err := check(ctx); err != nil {
			failed[name] = err.Error()
		}
	}
	if len(failed) > 0 {
		return c.Status(http.StatusServiceUnavailable).JSON(fiber.Map{"status": "not ready", "checks": failed})
	}
	return c.JSON(fiber.Map{"status": "ready"})
}

func (p *Probes) Startup(c fiber.Ctx) error {
	if !p.started.Load() {
		return c.Status(http.StatusServiceUnavailable).JSON(fiber.Map{"status": "starting"})
	}
	return c.JSON(fiber.Map{"status": "started"})
}
