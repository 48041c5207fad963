package handlers

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"bodyshop-gallery/internal/blur/editor"
	"bodyshop-gallery/internal/blur/models"
	"bodyshop-gallery/internal/blur/overlay"
	"bodyshop-gallery/internal/blur/paths"
	"bodyshop-gallery/internal/blur/repository"
	"bodyshop-gallery/internal/blur/service"
	"bodyshop-gallery/internal/blur/settings"
	"bodyshop-gallery/internal/common/logging"

	"github.com/gofiber/fiber/v3"
)

// ============================================================
// Blur Handler
// ============================================================

type BlurHandler struct {
	normalizer *paths.Normalizer
	repo       *repository.Repository
	storage    *service.ImageStorage
	sessions   *service.Sessions
	settings   *settings.Provider
	renderer   *overlay.Renderer
	adminToken string
	logger     *slog.Logger
	now        func() time.Time
}

type Deps struct {
	Normalizer *paths.Normalizer
	Repo       *repository.Repository
	Storage    *service.ImageStorage
	Sessions   *service.Sessions
	Settings   *settings.Provider
	AdminToken string
	Logger     *slog.Logger
}

func NewBlurHandler(d Deps) *BlurHandler {
	logger := logging.OrNop(d.Logger)
	return &BlurHandler{
		normalizer: d.Normalizer,
		repo:       d.Repo,
		storage:    d.Storage,
		sessions:   d.Sessions,
		settings:   d.Settings,
		renderer:   overlay.NewRenderer(d.Normalizer, logger),
		adminToken: d.AdminToken,
		logger:     logger,
		now:        time.Now,
	}
}

// Register вешает маршруты сервиса на router (обычно группа /api/v1/blur).
func (h *BlurHandler) Register(r fiber.Router) {
	r.Get("/normalize", h.Normalize)

	r.Get("/zones", h.GetZones)
	r.Get("/zones/all", h.GetAllZones)
	r.Put("/zones", h.PutZones)
	r.Delete("/zones", h.DeleteZones)
	r.Post("/zones/import", h.ImportZones)
	r.Get("/zones/export", h.ExportZones)

	r.Get("/overlay", h.GetOverlay)
	r.Get("/overlay.svg", h.GetOverlaySVG)

	r.Get("/settings", h.GetSettings)
	r.Put("/settings", h.PutSettings)

	r.Post("/images", h.UploadImage)
	r.Get("/images/info", h.GetImageInfo)
	r.Get("/images/*", h.GetImage)

	r.Post("/editor/sessions", h.OpenSession)
	r.Get("/editor/sessions/:id", h.GetSession)
	r.Delete("/editor/sessions/:id", h.CloseSession)
	r.Post("/editor/sessions/:id/pointer", h.Pointer)
	r.Post("/editor/sessions/:id/zones", h.AddZone)
	r.Delete("/editor/sessions/:id/zones/:zoneId", h.RemoveZone)
	r.Patch("/editor/sessions/:id/zones/:zoneId", h.UpdateZone)
	r.Put("/editor/sessions/:id/surface", h.SetSurface)
	r.Post("/editor/sessions/:id/save", h.SaveSession)
}

// ============================================================
// Normalization & lookup
// ============================================================

// Normalize возвращает канонический ключ для path. item задает контекст
// страницы для голых имен файлов.
func (h *BlurHandler) Normalize(c fiber.Ctx) error {
	key, err := h.normalizer.NormalizeFor(c.Query("path"), c.Query("item"))
	if err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(fiber.Map{"key": key})
}

type zonesResponse struct {
	paths.Resolution
	Zones []models.Zone `json:"zones"`
}

// GetZones ищет зоны для изображения каскадом матчеров. Отсутствие зон не ошибка.
func (h *BlurHandler) GetZones(c fiber.Ctx) error {
	raw := c.Query("image")
	if strings.TrimSpace(raw) == "" {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "image required"})
	}

	store, err := h.repo.LoadAll(context.Background())
	if err != nil {
		return h.internalError(c, "load zones", err)
	}
	res, ok := h.normalizer.ResolveFor(raw, c.Query("item"), store)
	zones := []models.Zone{}
	if ok {
		zones = models.CloneZones(store[res.MatchedKey])
	}
	return c.JSON(zonesResponse{Resolution: res, Zones: zones})
}

func (h *BlurHandler) GetAllZones(c fiber.Ctx) error {
	if !h.authorize(c) {
		return unauthorized(c)
	}
	store, err := h.repo.LoadAll(context.Background())
	if err != nil {
		return h.internalError(c, "load zones", err)
	}
	return c.JSON(store)
}

// PutZones заменяет зоны изображения. Битые записи отбрасываются.
func (h *BlurHandler) PutZones(c fiber.Ctx) error {
	if !h.authorize(c) {
		return unauthorized(c)
	}
	key, err := h.normalizer.NormalizeFor(c.Query("image"), c.Query("item"))
	if err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	if len(c.Body()) == 0 {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "empty body"})
	}
	zones, err := models.DecodeZones(c.Body(), h.now())
	if err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "invalid json"})
	}
	if err := h.repo.SaveZones(context.Background(), key, zones); err != nil {
		return h.internalError(c, "save zones", err)
	}
	return c.JSON(fiber.Map{"key": key, "zones": zones})
}

func (h *BlurHandler) DeleteZones(c fiber.Ctx) error {
	if !h.authorize(c) {
		return unauthorized(c)
	}
	key, err := h.normalizer.NormalizeFor(c.Query("image"), c.Query("item"))
	if err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	if err := h.repo.DeleteZones(context.Background(), key); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.Status(http.StatusNotFound).JSON(fiber.Map{"error": "zones not found"})
		}
		return h.internalError(c, "delete zones", err)
	}
	return c.JSON(fiber.Map{"key": key, "deleted": true})
}

// ImportZones принимает целиком JSON-блоб {key: zones[]}; ключи нормализуются.
func (h *BlurHandler) ImportZones(c fiber.Ctx) error {
	if !h.authorize(c) {
		return unauthorized(c)
	}
	if len(c.Body()) == 0 {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "empty body"})
	}
	n, err := h.repo.ImportBlob(context.Background(), c.Body(), h.normalizer.Normalize)
	if err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "invalid zone blob"})
	}
	return c.JSON(fiber.Map{"imported": n})
}

func (h *BlurHandler) ExportZones(c fiber.Ctx) error {
	if !h.authorize(c) {
		return unauthorized(c)
	}
	data, err := h.repo.ExportBlob(context.Background())
	if err != nil {
		return h.internalError(c, "export zones", err)
	}
	c.Set("Content-Type", "application/json")
	c.Set("Content-Disposition", `attachment; filename="blur-zones.json"`)
	return c.Send(data)
}

// ============================================================
// Overlay
// ============================================================

type overlayRect struct {
	models.DisplayRect
	Style string `json:"style"`
}

type overlayResponse struct {
	paths.Resolution
	Enabled bool          `json:"enabled"`
	Rects   []overlayRect `json:"rects"`
}

func (h *BlurHandler) layout(c fiber.Ctx) (overlay.Overlay, models.Size, bool, error) {
	raw := c.Query("image")
	if strings.TrimSpace(raw) == "" {
		return overlay.Overlay{}, models.Size{}, false, c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "image required"})
	}
	rendered := models.Size{Width: queryFloat(c, "width"), Height: queryFloat(c, "height")}

	store, err := h.repo.LoadAll(context.Background())
	if err != nil {
		return overlay.Overlay{}, rendered, false, h.internalError(c, "load zones", err)
	}
	o := h.renderer.RenderFor(raw, c.Query("item"), store, rendered)
	if !h.settings.Get().OverlaysEnabled {
		o.Rects = []models.DisplayRect{}
	}
	return o, rendered, true, nil
}

// GetOverlay возвращает прямоугольники в процентах для пассивного показа.
func (h *BlurHandler) GetOverlay(c fiber.Ctx) error {
	o, _, ok, err := h.layout(c)
	if !ok {
		return err
	}
	rects := make([]overlayRect, 0, len(o.Rects))
	for _, r := range o.Rects {
		rects = append(rects, overlayRect{DisplayRect: r, Style: r.Style()})
	}
	return c.JSON(overlayResponse{
		Resolution: o.Resolution,
		Enabled:    h.settings.Get().OverlaysEnabled,
		Rects:      rects,
	})
}

func (h *BlurHandler) GetOverlaySVG(c fiber.Ctx) error {
	o, rendered, ok, err := h.layout(c)
	if !ok {
		return err
	}
	svg := overlay.RenderSVG(o.Rects, overlay.SVGOptions{ImageHref: c.Query("href"), Rendered: rendered})
	c.Set("Content-Type", "image/svg+xml")
	return c.SendString(svg)
}

// ============================================================
// Settings
// ============================================================

func (h *BlurHandler) GetSettings(c fiber.Ctx) error {
	return c.JSON(h.settings.Get())
}

// PutSettings применяет частичное обновление; значения вне диапазона зажимаются.
func (h *BlurHandler) PutSettings(c fiber.Ctx) error {
	if !h.authorize(c) {
		return unauthorized(c)
	}
	body := c.Body()
	probe := h.settings.Get()
	if err := json.Unmarshal(body, &probe); err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "invalid json"})
	}
	next := h.settings.Update(func(s *settings.Settings) {
		_ = json.Unmarshal(body, s)
	})
	return c.JSON(next)
}

// ============================================================
// Helpers
// ============================================================

func (h *BlurHandler) authorize(c fiber.Ctx) bool {
	if h.adminToken == "" {
		return true
	}
	auth := c.Get("Authorization")
	if !strings.HasPrefix(auth, "Bearer ") {
		return false
	}
	token := strings.TrimPrefix(auth, "Bearer ")
	return subtle.ConstantTimeCompare([]byte(token), []byte(h.adminToken)) == 1
}

func unauthorized(c fiber.Ctx) error {
	return c.Status(http.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized"})
}

func (h *BlurHandler) internalError(c fiber.Ctx, op string, err error) error {
	h.logger.Error(op, "error", err, "path", c.Path())
	return c.Status(http.StatusInternalServerError).JSON(fiber.Map{"error": op + " failed"})
}

func queryFloat(c fiber.Ctx, key string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(c.Query(key)), 64)
	if err != nil || v < 0 {
		return 0
	}
	return v
}

// newController builds an editor wired to the handler's collaborators.
func (h *BlurHandler) newController() *editor.Controller {
	return editor.New(editor.Options{
		Normalizer: h.normalizer,
		Store:      h.repo,
		Settings:   h.settings,
		Logger:     h.logger,
		Now:        h.now,
	})
}
