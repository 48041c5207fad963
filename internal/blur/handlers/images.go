package handlers

import (
	"errors"
	"io"
	"io/fs"
	"net/http"
	"path"
	"strings"

	"bodyshop-gallery/internal/blur/service"

	"github.com/gofiber/fiber/v3"
)

// ============================================================
// Images
// ============================================================

// UploadImage сохраняет изображение галереи. Ключ берется из поля path,
// иначе из имени файла внутри корня ассетов.
func (h *BlurHandler) UploadImage(c fiber.Ctx) error {
	if !h.authorize(c) {
		return unauthorized(c)
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "file required"})
	}

	raw := strings.TrimSpace(c.FormValue("path"))
	if raw == "" {
		raw = h.normalizer.AssetsPrefix() + path.Base(fileHeader.Filename)
	}
	key, err := h.normalizer.NormalizeFor(raw, c.FormValue("item"))
	if err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	f, err := fileHeader.Open()
	if err != nil {
		return h.internalError(c, "open upload", err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return h.internalError(c, "read upload", err)
	}

	if err := h.storage.Save(key, data); err != nil {
		if errors.Is(err, service.ErrInvalidKey) || errors.Is(err, service.ErrUnsupportedImage) {
			return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		}
		return h.internalError(c, "save image", err)
	}

	resp := fiber.Map{"key": key, "size": len(data)}
	if size, err := h.storage.NaturalSize(key); err == nil {
		resp["width"] = size.Width
		resp["height"] = size.Height
	} else {
		h.logger.Warn("probe uploaded image", "key", key, "error", err)
	}
	return c.Status(http.StatusCreated).JSON(resp)
}

// GetImageInfo возвращает натуральный размер изображения.
func (h *BlurHandler) GetImageInfo(c fiber.Ctx) error {
	key, err := h.normalizer.NormalizeFor(c.Query("image"), c.Query("item"))
	if err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	size, err := h.storage.NaturalSize(key)
	switch {
	case errors.Is(err, service.ErrInvalidKey):
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, fs.ErrNotExist):
		return c.Status(http.StatusNotFound).JSON(fiber.Map{"error": "image not found"})
	case err != nil:
		return c.Status(http.StatusUnprocessableEntity).JSON(fiber.Map{"error": "unreadable image"})
	}
	return c.JSON(fiber.Map{"key": key, "width": size.Width, "height": size.Height})
}

func (h *BlurHandler) GetImage(c fiber.Ctx) error {
	key := h.normalizer.AssetsPrefix() + strings.TrimLeft(c.Params("*"), "/")
	target, err := h.storage.Path(key)
	if err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	if !h.storage.Exists(key) {
		return c.Status(http.StatusNotFound).JSON(fiber.Map{"error": "image not found"})
	}
	return c.SendFile(target)
}
