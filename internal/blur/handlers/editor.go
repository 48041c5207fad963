package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"bodyshop-gallery/internal/blur/editor"
	"bodyshop-gallery/internal/blur/models"
	"bodyshop-gallery/internal/blur/service"

	"github.com/gofiber/fiber/v3"
)

// ============================================================
// Editor sessions
// ============================================================

type openSessionRequest struct {
	Image         string  `json:"image"`
	Item          string  `json:"item"`
	SurfaceWidth  float64 `json:"surfaceWidth"`
	SurfaceHeight float64 `json:"surfaceHeight"`
}

type pointerRequest struct {
	Type string  `json:"type"`
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
}

type updateZoneRequest struct {
	BlurAmount *int     `json:"blurAmount"`
	Rotation   *float64 `json:"rotation"`
}

type surfaceRequest struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// OpenSession открывает редактор для изображения. Натуральный размер берется
// из хранилища, если файл есть локально.
func (h *BlurHandler) OpenSession(c fiber.Ctx) error {
	if !h.authorize(c) {
		return unauthorized(c)
	}

	var req openSessionRequest
	if err := json.Unmarshal(c.Body(), &req); err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "invalid json"})
	}
	key, err := h.normalizer.NormalizeFor(req.Image, req.Item)
	if err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	ctrl := h.newController()
	if h.storage != nil && h.storage.Exists(key) {
		if size, err := h.storage.NaturalSize(key); err == nil {
			ctrl.SetNaturalSize(size.Width, size.Height)
		} else {
			h.logger.Warn("probe image size", "key", key, "error", err)
		}
	}
	if req.SurfaceWidth > 0 && req.SurfaceHeight > 0 {
		ctrl.SetSurfaceSize(req.SurfaceWidth, req.SurfaceHeight)
	}
	if err := ctrl.LoadFor(context.Background(), req.Image, req.Item); err != nil {
		ctrl.Close()
		return h.internalError(c, "load editor", err)
	}

	id := h.sessions.Issue(ctrl)
	return c.Status(http.StatusCreated).JSON(fiber.Map{"id": id, "editor": ctrl.Snapshot()})
}

func (h *BlurHandler) GetSession(c fiber.Ctx) error {
	if !h.authorize(c) {
		return unauthorized(c)
	}
	return h.withSession(c, func(ctrl *editor.Controller) error {
		return c.JSON(ctrl.Snapshot())
	})
}

func (h *BlurHandler) CloseSession(c fiber.Ctx) error {
	if !h.authorize(c) {
		return unauthorized(c)
	}
	if err := h.sessions.Close(c.Params("id")); err != nil {
		return sessionNotFound(c)
	}
	return c.JSON(fiber.Map{"closed": true})
}

// Pointer прокидывает событие указателя (down, move, up, leave, cancel).
func (h *BlurHandler) Pointer(c fiber.Ctx) error {
	if !h.authorize(c) {
		return unauthorized(c)
	}
	var req pointerRequest
	if err := json.Unmarshal(c.Body(), &req); err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "invalid json"})
	}

	return h.withSession(c, func(ctrl *editor.Controller) error {
		resp := fiber.Map{}
		switch strings.ToLower(req.Type) {
		case "down":
			ctrl.PointerDown(req.X, req.Y)
		case "move":
			resp["changed"] = ctrl.PointerMove(req.X, req.Y)
		case "up":
			if z, ok := ctrl.PointerUp(req.X, req.Y); ok {
				resp["zone"] = z
			}
		case "leave":
			ctrl.PointerLeave()
		case "cancel":
			resp["cancelled"] = ctrl.Cancel()
		default:
			return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "unknown pointer event"})
		}
		resp["editor"] = ctrl.Snapshot()
		return c.JSON(resp)
	})
}

func (h *BlurHandler) AddZone(c fiber.Ctx) error {
	if !h.authorize(c) {
		return unauthorized(c)
	}
	return h.withSession(c, func(ctrl *editor.Controller) error {
		z := ctrl.AddCenteredZone()
		return c.Status(http.StatusCreated).JSON(fiber.Map{"zone": z, "editor": ctrl.Snapshot()})
	})
}

func (h *BlurHandler) RemoveZone(c fiber.Ctx) error {
	if !h.authorize(c) {
		return unauthorized(c)
	}
	return h.withSession(c, func(ctrl *editor.Controller) error {
		if !ctrl.RemoveZone(c.Params("zoneId")) {
			return c.Status(http.StatusNotFound).JSON(fiber.Map{"error": "zone not found"})
		}
		return c.JSON(fiber.Map{"editor": ctrl.Snapshot()})
	})
}

// UpdateZone меняет силу размытия и/или поворот. Значения зажимаются в допустимый диапазон.
func (h *BlurHandler) UpdateZone(c fiber.Ctx) error {
	if !h.authorize(c) {
		return unauthorized(c)
	}
	var req updateZoneRequest
	if err := json.Unmarshal(c.Body(), &req); err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "invalid json"})
	}

	return h.withSession(c, func(ctrl *editor.Controller) error {
		id := c.Params("zoneId")
		found := ctrl.Select(id)
		if found && req.BlurAmount != nil {
			found = ctrl.SetBlurAmount(id, *req.BlurAmount)
		}
		if found && req.Rotation != nil {
			found = ctrl.SetRotation(id, *req.Rotation)
		}
		if !found {
			return c.Status(http.StatusNotFound).JSON(fiber.Map{"error": "zone not found"})
		}
		return c.JSON(fiber.Map{"editor": ctrl.Snapshot()})
	})
}

func (h *BlurHandler) SetSurface(c fiber.Ctx) error {
	if !h.authorize(c) {
		return unauthorized(c)
	}
	var req surfaceRequest
	if err := json.Unmarshal(c.Body(), &req); err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "invalid json"})
	}
	if !(models.Size{Width: req.Width, Height: req.Height}).Known() {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "width and height must be positive"})
	}
	return h.withSession(c, func(ctrl *editor.Controller) error {
		ctrl.SetSurfaceSize(req.Width, req.Height)
		return c.JSON(ctrl.Snapshot())
	})
}

// SaveSession сохраняет зоны в натуральных пикселях под каноническим ключом.
func (h *BlurHandler) SaveSession(c fiber.Ctx) error {
	if !h.authorize(c) {
		return unauthorized(c)
	}
	return h.withSession(c, func(ctrl *editor.Controller) error {
		zones, err := ctrl.Save(context.Background())
		if err != nil {
			return h.internalError(c, "save editor", err)
		}
		if zones == nil {
			zones = []models.Zone{}
		}
		return c.JSON(fiber.Map{"key": ctrl.Key(), "zones": zones})
	})
}

func (h *BlurHandler) withSession(c fiber.Ctx, fn func(*editor.Controller) error) error {
	err := h.sessions.With(c.Params("id"), fn)
	if errors.Is(err, service.ErrSessionNotFound) {
		return sessionNotFound(c)
	}
	return err
}

func sessionNotFound(c fiber.Ctx) error {
	return c.Status(http.StatusNotFound).JSON(fiber.Map{"error": "session not found"})
}
