package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/jessevdk/go-flags"

	"github.com/mapeditor/mapeditor/internal/asset"
	"github.com/mapeditor/mapeditor/internal/document"
	"github.com/mapeditor/mapeditor/internal/store"
)

type Options struct {
	DatabaseURL string `short:"d" long:"database-url" env:"DATABASE_URL" description:"Postgres connection string"`
	Input       string `short:"i" long:"input"        description:"Exported document JSON to rewrite instead of the database"`
	Output      string `short:"o" long:"output"       description:"Where to write the rewritten JSON" default:"document_processed.json"`
	AssetDir    string `short:"a" long:"asset-dir"    env:"ASSET_DIR"    description:"Directory images are written to" default:"./data/assets"`
	Raw         bool   `short:"r" long:"raw"          description:"Keep original image bytes instead of compressing to webp"`
	LogLevel    string `long:"log-level"              env:"LOG_LEVEL"    description:"Log level" default:"info"`
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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	extractor := asset.NewExtractor(asset.NewHandler(opts.AssetDir), opts.Raw)

	if opts.Input != "" {
		if err := rewriteFile(extractor, opts.Input, opts.Output); err != nil {
			slog.Error("rewrite document", "error", err)
			os.Exit(1)
		}
		return
	}

	if opts.DatabaseURL == "" {
		slog.Error("either --input or --database-url is required")
		os.Exit(1)
	}
	db, err := store.NewPostgres(ctx, opts.DatabaseURL)
	if err != nil {
		slog.Error("connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	stats, err := extractor.Records(ctx, db)
	if err != nil {
		slog.Error("extract images", "error", err)
		os.Exit(1)
	}
	slog.Info("images extracted",
		"extracted", stats.Extracted,
		"skipped", stats.Skipped,
		"failed", stats.Failed,
		"dir", opts.AssetDir,
	)
}

// rewriteFile accepts either a whole document or a bare polygon list.
func rewriteFile(e *asset.Extractor, in, out string) error {
	data, err := os.ReadFile(in)
	if err != nil {
		return err
	}

	doc := document.NewEmptyDocument()
	var bare []document.Polygon
	if err := json.Unmarshal(data, &bare); err == nil {
		doc.Polygons = bare
	} else if err := json.Unmarshal(data, doc); err != nil {
		return err
	}

	stats := e.Document(doc)

	var result any = doc
	if bare != nil {
		result = doc.Polygons
	}
	encoded, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(out, encoded, 0644); err != nil {
		return err
	}

	slog.Info("images extracted",
		"extracted", stats.Extracted,
		"skipped", stats.Skipped,
		"failed", stats.Failed,
		"output", out,
	)
	return nil
}
