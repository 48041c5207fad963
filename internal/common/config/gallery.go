package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// Gallery describes the site's asset layout and the identifier table used
// for directory inference.
type Gallery struct {
	AssetsRoot    string            `json:"assets_root"`
	GallerySubdir string            `json:"gallery_subdir"`
	SiteHosts     []string          `json:"site_hosts"`
	Identifiers   map[string]string `json:"identifiers"`
	Editor        EditorDefaults    `json:"editor"`
}

// EditorDefaults seeds the editor settings provider.
type EditorDefaults struct {
	DefaultBlurAmount int     `json:"default_blur_amount"`
	DefaultZoneWidth  float64 `json:"default_zone_width"`
	DefaultZoneHeight float64 `json:"default_zone_height"`
	MinDrawSize       float64 `json:"min_draw_size"`
	OverlaysEnabled   bool    `json:"overlays_enabled"`
}

// DefaultGallery returns a configuration with default values
func DefaultGallery() *Gallery {
	return &Gallery{
		AssetsRoot:    "images",
		GallerySubdir: "gallery-page",
		Identifiers:   map[string]string{},
		Editor: EditorDefaults{
			DefaultBlurAmount: 8,
			DefaultZoneWidth:  100,
			DefaultZoneHeight: 50,
			MinDrawSize:       10,
			OverlaysEnabled:   true,
		},
	}
}

// LoadGallery reads a JSON gallery file over the defaults. An empty filename
// returns the defaults.
func LoadGallery(filename string) (*Gallery, error) {
	g := DefaultGallery()
	if filename == "" {
		return g, nil
	}
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read gallery config: %w", err)
	}
	if err := json.Unmarshal(data, g); err != nil {
		return nil, fmt.Errorf("failed to parse gallery config: %w", err)
	}
	if err := g.Validate(); err != nil {
		return nil, err
	}
	return g, nil
}

// Validate checks if the configuration is valid
func (g *Gallery) Validate() error {
	for name, v := range map[string]string{"assets_root": g.AssetsRoot, "gallery_subdir": g.GallerySubdir} {
		v = strings.Trim(v, "/")
		if v == "" || strings.Contains(v, "/") || v == "." || v == ".." {
			return fmt.Errorf("%s must be a single directory name", name)
		}
	}
	for id, dir := range g.Identifiers {
		if strings.TrimSpace(id) == "" || strings.TrimSpace(dir) == "" {
			return fmt.Errorf("identifiers: empty identifier or directory (%q -> %q)", id, dir)
		}
	}
	if g.Editor.DefaultBlurAmount < 2 || g.Editor.DefaultBlurAmount > 20 {
		return fmt.Errorf("editor.default_blur_amount must be between 2 and 20")
	}
	if g.Editor.DefaultZoneWidth <= 0 || g.Editor.DefaultZoneHeight <= 0 {
		return fmt.Errorf("editor default zone size must be positive")
	}
	if g.Editor.MinDrawSize < 0 {
		return fmt.Errorf("editor.min_draw_size must not be negative")
	}
	return nil
}

// Hosts merges the configured site hosts with extra ones, dropping
// duplicates.
func (g *Gallery) Hosts(extra ...string) []string {
	seen := map[string]bool{}
	var out []string
	for _, h := range append(append([]string{}, g.SiteHosts...), extra...) {
		h = strings.ToLower(strings.TrimSpace(h))
		if h == "" || seen[h] {
			continue
		}
		seen[h] = true
		out = append(out, h)
	}
	return out
}
