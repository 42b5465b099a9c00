package main

import (
	"context"
	"image/color"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/jessevdk/go-flags"

	"github.com/mapeditor/mapeditor/internal/config"
	"github.com/mapeditor/mapeditor/internal/tiles"
)

type Options struct {
	MapConfig   string `short:"c" long:"config"      env:"MAP_CONFIG"  description:"Map definition file" default:"map.yaml"`
	Input       string `short:"i" long:"input"       description:"Source image path or URL (defaults to the map background)"`
	OutputDir   string `short:"o" long:"output-dir"  env:"TILE_DIR"    description:"Output directory" default:"./data/tiles"`
	TileSize    int    `short:"s" long:"tile-size"   description:"Tile size in pixels (defaults to the map's tile_size)"`
	Format      string `short:"f" long:"format"      description:"Output format: png, webp or jpg" default:"png"`
	PadColor    string `long:"pad-bg"                description:"Padding color RRGGBB (default transparent, black for jpg)"`
	Zoom        int    `short:"z" long:"zoom"        description:"Build a z/x/y pyramid up to this level; -1 cuts a flat x/y grid" default:"-1"`
	Concurrency int    `short:"p" long:"concurrency" env:"CONCURRENCY" description:"Tiles encoded in parallel" default:"20"`
	NoOverwrite bool   `long:"no-overwrite"          description:"Keep existing tiles"`
	LogLevel    string `long:"log-level"             env:"LOG_LEVEL"   description:"Log level" default:"info"`
}

func main() {
	var opts Options
	parser := flags.NewParser(&opts, flags.Default)
	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(opts.LogLevel)); err != nil {
		level = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})))

	m, err := config.LoadMap(opts.MapConfig)
	if err != nil {
		slog.Error("load map config", "error", err)
		os.Exit(1)
	}

	source := opts.Input
	if source == "" {
		source = m.Background.URL
	}
	tileSize := opts.TileSize
	if tileSize <= 0 {
		tileSize = m.TileSize
	}
	format, err := tiles.ParseFormat(opts.Format)
	if err != nil {
		slog.Error("parse format", "error", err)
		os.Exit(1)
	}
	var pad color.Color
	if opts.PadColor != "" {
		c, err := tiles.ParseHexColor(opts.PadColor)
		if err != nil {
			slog.Error("parse pad color", "error", err)
			os.Exit(1)
		}
		pad = c
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client := &http.Client{Timeout: 60 * time.Second}
	img, err := tiles.Load(ctx, client, source)
	if err != nil {
		slog.Error("load source image", "error", err, "source", source)
		os.Exit(1)
	}

	tileOpts := tiles.Options{
		TileSize:    tileSize,
		Format:      format,
		Pad:         pad,
		Overwrite:   !opts.NoOverwrite,
		Concurrency: opts.Concurrency,
	}
	outDir := filepath.Join(opts.OutputDir, m.Name)
	started := time.Now()

	if opts.Zoom < 0 {
		res, err := tiles.Grid(ctx, img, outDir, tileOpts)
		if err != nil {
			slog.Error("cut tiles", "error", err)
			os.Exit(1)
		}
		slog.Info("tiles written",
			"dir", outDir,
			"columns", res.Columns,
			"rows", res.Rows,
			"written", res.Written,
			"skipped", res.Skipped,
			"took", time.Since(started),
		)
		return
	}

	results, err := tiles.Pyramid(ctx, img, outDir, opts.Zoom, tileOpts)
	if err != nil {
		slog.Error("build pyramid", "error", err)
		os.Exit(1)
	}
	for z, res := range results {
		slog.Info("zoom level written", "zoom", z, "columns", res.Columns, "rows", res.Rows, "written", res.Written, "skipped", res.Skipped)
	}
	slog.Info("pyramid written", "dir", outDir, "levels", len(results), "took", time.Since(started))
}
