package service

import (
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"bodyshop-gallery/internal/blur/models"
)

var (
	ErrInvalidKey       = errors.New("invalid image key")
	ErrUnsupportedImage = errors.New("unsupported image")
)

var imageExts = []string{"jpg", "jpeg", "png", "gif", "bmp", "tif", "tiff", "webp"}

// IsImageFile reports whether name has a supported image extension.
func IsImageFile(name string) bool {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(name)), ".")
	for _, imgExt := range imageExts {
		if ext == imgExt {
			return true
		}
	}
	return false
}

// ============================================================
// Image Storage
// ============================================================

// ImageStorage отдает и сохраняет изображения галереи по каноническому ключу
// (/images/...) внутри корневой директории.
type ImageStorage struct {
	root string

	mu    sync.Mutex
	sizes map[string]cachedSize
}

type cachedSize struct {
	modTime time.Time
	size    models.Size
}

func NewImageStorage(root string) *ImageStorage {
	return &ImageStorage{root: root, sizes: make(map[string]cachedSize)}
}

func (s *ImageStorage) Root() string {
	return s.root
}

// Path maps a canonical key to a file below the root. URLs, opaque
// resources and keys escaping the root are rejected.
func (s *ImageStorage) Path(key string) (string, error) {
	if !strings.HasPrefix(key, "/") || strings.HasPrefix(key, "//") || strings.Contains(key, "\x00") {
		return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	for _, seg := range strings.Split(key, "/") {
		if seg == ".." {
			return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
		}
	}
	clean := path.Clean(key)
	if clean == "/" {
		return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return filepath.Join(s.root, filepath.FromSlash(clean)), nil
}

func (s *ImageStorage) Save(key string, data []byte) error {
	if !IsImageFile(key) {
		return fmt.Errorf("%w: %s", ErrUnsupportedImage, key)
	}
	target, err := s.Path(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("mkdir image dir: %w", err)
	}
	if err := os.WriteFile(target, data, 0o644); err != nil {
		return fmt.Errorf("write image: %w", err)
	}
	s.mu.Lock()
	delete(s.sizes, target)
	s.mu.Unlock()
	return nil
}

func (s *ImageStorage) Open(key string) (*os.File, error) {
	target, err := s.Path(key)
	if err != nil {
		return nil, err
	}
	return os.Open(target)
}

func (s *ImageStorage) Exists(key string) bool {
	target, err := s.Path(key)
	if err != nil {
		return false
	}
	info, err := os.Stat(target)
	return err == nil && !info.IsDir()
}

// NaturalSize returns the intrinsic size of the stored image. JPEGs are
// decoded with EXIF orientation applied so the size matches what browsers
// report.
func (s *ImageStorage) NaturalSize(key string) (models.Size, error) {
	target, err := s.Path(key)
	if err != nil {
		return models.Size{}, err
	}
	info, err := os.Stat(target)
	if err != nil {
		return models.Size{}, err
	}

	s.mu.Lock()
	cached, ok := s.sizes[target]
	s.mu.Unlock()
	if ok && cached.modTime.Equal(info.ModTime()) {
		return cached.size, nil
	}

	size, err := probeSize(target)
	if err != nil {
		return models.Size{}, err
	}
	s.mu.Lock()
	s.sizes[target] = cachedSize{modTime: info.ModTime(), size: size}
	s.mu.Unlock()
	return size, nil
}

func probeSize(target string) (models.Size, error) {
	ext := strings.ToLower(filepath.Ext(target))
	if ext == ".jpg" || ext == ".jpeg" {
		if img, err := imaging.Open(target, imaging.AutoOrientation(true)); err == nil {
			b := img.Bounds()
			return models.Size{Width: float64(b.Dx()), Height: float64(b.Dy())}, nil
		}
	}

	f, err := os.Open(target)
	if err != nil {
		return models.Size{}, err
	}
	defer f.Close()

	if cfg, _, err := image.DecodeConfig(f); err == nil {
		return models.Size{Width: float64(cfg.Width), Height: float64(cfg.Height)}, nil
	}
	if ext == ".webp" {
		if _, err := f.Seek(0, io.SeekStart); err == nil {
			if cfg, err := webp.DecodeConfig(f); err == nil {
				return models.Size{Width: float64(cfg.Width), Height: float64(cfg.Height)}, nil
			}
		}
	}
	return models.Size{}, fmt.Errorf("%w: %s", ErrUnsupportedImage, filepath.Base(target))
}
