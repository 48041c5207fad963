package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("PORT", "4100")
	t.Setenv("READ_TIMEOUT", "nope")
	t.Setenv("SITE_HOSTS", " example.com, ,www.example.com ")
	t.Setenv("ADMIN_TOKEN", "secret")

	cfg := Load()
	if cfg.Port != "4100" || cfg.ReadTimeout != 10 || cfg.AdminToken != "secret" {
		t.Errorf("unexpected config %+v", cfg)
	}
	if !reflect.DeepEqual(cfg.SiteHosts, []string{"example.com", "www.example.com"}) {
		t.Errorf("SiteHosts = %q", cfg.SiteHosts)
	}
	if cfg.DBPath != "data/db/blur.db" || cfg.AssetsDir != "public" {
		t.Errorf("defaults not applied: %+v", cfg)
	}
}

func TestLoadGallery(t *testing.T) {
	g, err := LoadGallery("")
	if err != nil || g.AssetsRoot != "images" || g.Editor.DefaultBlurAmount != 8 {
		t.Fatalf("LoadGallery(\"\") = %+v, %v", g, err)
	}

	path := filepath.Join(t.TempDir(), "gallery.json")
	data := `{"site_hosts": ["Example.com"], "identifiers": {"bluealfa": "blue-alfa-repair"}, "editor": {"default_blur_amount": 12, "default_zone_width": 100, "default_zone_height": 50}}`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
	g, err = LoadGallery(path)
	if err != nil {
		t.Fatalf("LoadGallery: %v", err)
	}
	if g.GallerySubdir != "gallery-page" || g.Identifiers["bluealfa"] != "blue-alfa-repair" || g.Editor.DefaultBlurAmount != 12 {
		t.Errorf("gallery = %+v", g)
	}
	if hosts := g.Hosts("example.com", "cdn.example.com"); !reflect.DeepEqual(hosts, []string{"example.com", "cdn.example.com"}) {
		t.Errorf("Hosts = %q", hosts)
	}
}

func TestGalleryValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Gallery)
	}{
		{"nested assets root", func(g *Gallery) { g.AssetsRoot = "a/b" }},
		{"empty subdir", func(g *Gallery) { g.GallerySubdir = "/" }},
		{"empty identifier dir", func(g *Gallery) { g.Identifiers = map[string]string{"x": " "} }},
		{"blur out of range", func(g *Gallery) { g.Editor.DefaultBlurAmount = 50 }},
		{"zero zone", func(g *Gallery) { g.Editor.DefaultZoneWidth = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := DefaultGallery()
			tt.mutate(g)
			if err := g.Validate(); err == nil {
				t.Error("expected a validation error")
			}
		})
	}
	if err := DefaultGallery().Validate(); err != nil {
		t.Errorf("defaults invalid: %v", err)
	}
}
