package config_test

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/mapeditor/mapeditor/internal/config"
	"github.com/mapeditor/mapeditor/internal/engine"
)

func TestLoadMap_Defaults(t *testing.T) {
	m, err := config.LoadMap(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("LoadMap: %v", err)
	}
	if m.Background.Width != 1600 || m.Background.Height != 1200 {
		t.Fatalf("unexpected background size %dx%d", m.Background.Width, m.Background.Height)
	}
	if m.Viewport != engine.DefaultOptions() {
		t.Fatalf("unexpected viewport options %+v", m.Viewport)
	}
}

func TestLoadMap_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "map.yaml")
	data := []byte(`
name: alien-city
background:
  url: /static/city.png
  width: 4096
  height: 4096
tile_size: 512
viewport:
  min_scale: 0.25
  max_scale: 8
  zoom_step: 0.2
`)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}

	m, err := config.LoadMap(path)
	if err != nil {
		t.Fatalf("LoadMap: %v", err)
	}
	if m.Name != "alien-city" || m.Background.URL != "/static/city.png" || m.TileSize != 512 {
		t.Fatalf("unexpected map %+v", m)
	}
	v := m.Viewport
	if v.MinScale != 0.25 || v.MaxScale != 8 || v.ZoomStep != 0.2 {
		t.Fatalf("viewport limits not read: %+v", v)
	}
	if v.DragThreshold != engine.DefaultDragThreshold || v.MarkerSize != engine.DefaultMarkerSize {
		t.Fatalf("missing fields not defaulted: %+v", v)
	}
}

func TestLoadMap_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "map.yaml")
	if err := os.WriteFile(path, []byte("background: [1, 2"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := config.LoadMap(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestLoad_Env(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("ALLOWED_ORIGINS", " http://a.test , ,http://b.test")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != 9090 {
		t.Fatalf("expected port 9090, got %d", cfg.Port)
	}
	origins := cfg.Origins()
	if len(origins) != 2 || origins[0] != "http://a.test" || origins[1] != "http://b.test" {
		t.Fatalf("unexpected origins %q", origins)
	}
	if cfg.SlogLevel() != slog.LevelDebug {
		t.Fatalf("expected debug level, got %v", cfg.SlogLevel())
	}
}
