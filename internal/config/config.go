package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"github.com/mapeditor/mapeditor/internal/engine"
)

type Config struct {
	Port                 int           `envconfig:"PORT" default:"8080"`
	DatabaseURL          string        `envconfig:"DATABASE_URL"`
	ValkeyAddr           string        `envconfig:"VALKEY_ADDR"`
	AssetDir             string        `envconfig:"ASSET_DIR" default:"./data/assets"`
	TileDir              string        `envconfig:"TILE_DIR" default:"./data/tiles"`
	MapConfig            string        `envconfig:"MAP_CONFIG" default:"map.yaml"`
	AllowedOrigins       string        `envconfig:"ALLOWED_ORIGINS" default:"http://localhost:5173,http://localhost:3000"`
	LogLevel             string        `envconfig:"LOG_LEVEL" default:"info"`
	ViewportSaveDebounce time.Duration `envconfig:"VIEWPORT_SAVE_DEBOUNCE" default:"500ms"`
	ViewportTTL          time.Duration `envconfig:"VIEWPORT_TTL" default:"720h"`
	SeedOrganizations    bool          `envconfig:"SEED_ORGANIZATIONS" default:"true"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Origins splits AllowedOrigins into trimmed, non-empty entries.
func (c *Config) Origins() []string {
	var out []string
	for _, o := range strings.Split(c.AllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

// SlogLevel maps LogLevel to a slog level; unknown values mean info.
func (c *Config) SlogLevel() slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return lvl
}

// Map describes the editable map: its background image and the viewport
// limits the editor runs with.
type Map struct {
	Name       string         `yaml:"name" json:"name"`
	Background Background     `yaml:"background" json:"background"`
	TileSize   int            `yaml:"tile_size,omitempty" json:"tileSize"`
	ZoomLimit  int            `yaml:"zoom,omitempty" json:"zoom"`
	Viewport   engine.Options `yaml:"viewport" json:"viewport"`
}

// Background is the static image the map is drawn on. Its pixel size is the
// logical coordinate space.
type Background struct {
	URL    string `yaml:"url" json:"url"`
	Width  int    `yaml:"width" json:"width"`
	Height int    `yaml:"height" json:"height"`
}

const (
	DefaultBackgroundURL    = "/map.png"
	DefaultBackgroundWidth  = 1600
	DefaultBackgroundHeight = 1200
	DefaultTileSize         = 256
	DefaultZoomLimit        = 4
)

// DefaultMap is used when no map file exists.
func DefaultMap() *Map {
	m := &Map{}
	m.applyDefaults()
	return m
}

// LoadMap reads a map definition. A missing file yields DefaultMap.
func LoadMap(path string) (*Map, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		slog.Info("map config not found, using defaults", "path", path)
		return DefaultMap(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read map config: %w", err)
	}

	var m Map
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse map config: %w", err)
	}
	m.applyDefaults()
	return &m, nil
}

func (m *Map) applyDefaults() {
	if m.Name == "" {
		m.Name = "main"
	}
	if m.Background.URL == "" {
		m.Background.URL = DefaultBackgroundURL
	}
	if m.Background.Width <= 0 {
		m.Background.Width = DefaultBackgroundWidth
	}
	if m.Background.Height <= 0 {
		m.Background.Height = DefaultBackgroundHeight
	}
	if m.TileSize <= 0 {
		m.TileSize = DefaultTileSize
	}
	if m.ZoomLimit <= 0 {
		m.ZoomLimit = DefaultZoomLimit
	}
	m.Viewport = m.Viewport.Normalize()
}
