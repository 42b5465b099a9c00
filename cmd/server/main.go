package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"

	"github.com/mapeditor/mapeditor/internal/asset"
	"github.com/mapeditor/mapeditor/internal/collab"
	"github.com/mapeditor/mapeditor/internal/config"
	"github.com/mapeditor/mapeditor/internal/document"
	"github.com/mapeditor/mapeditor/internal/mapdata"
	"github.com/mapeditor/mapeditor/internal/metrics"
	mw "github.com/mapeditor/mapeditor/internal/middleware"
	"github.com/mapeditor/mapeditor/internal/session"
	"github.com/mapeditor/mapeditor/internal/store"
)

type healthCheck func(ctx context.Context) error

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()})))

	mapCfg, err := config.LoadMap(cfg.MapConfig)
	if err != nil {
		slog.Error("load map config", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	checks := map[string]healthCheck{}

	// Store: Postgres when configured, in-memory otherwise
	var st store.Store
	if cfg.DatabaseURL != "" {
		pg, err := store.NewPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			slog.Error("connect to database", "error", err)
			os.Exit(1)
		}
		if err := pg.Migrate(ctx); err != nil {
			slog.Error("migrate database", "error", err)
			os.Exit(1)
		}
		checks["database"] = func(ctx context.Context) error { return pg.Pool().Ping(ctx) }
		go reportPoolStats(ctx, pg)
		st = pg
	} else {
		slog.Warn("DATABASE_URL not set, using in-memory store")
		st = store.NewMemory()
	}
	defer st.Close()

	if cfg.SeedOrganizations {
		if err := store.SeedOrganizations(ctx, st); err != nil {
			slog.Error("seed organizations", "error", err)
		}
	}

	// Viewport sessions: Valkey when configured
	var sessions session.Store
	if cfg.ValkeyAddr != "" {
		vk, err := session.NewValkey(cfg.ValkeyAddr, cfg.ViewportTTL)
		if err != nil {
			slog.Warn("valkey unavailable, keeping viewports in memory", "error", err)
			sessions = session.NewMemory()
		} else {
			checks["valkey"] = vk.Ping
			sessions = vk
		}
	} else {
		sessions = session.NewMemory()
	}
	defer sessions.Close()
	viewports := session.NewDebouncer(sessions, mapCfg.Viewport, cfg.ViewportSaveDebounce)

	hub := collab.NewHub(collab.DocumentFunc(func(ctx context.Context) (*document.MapDocument, error) {
		return store.LoadDocument(ctx, st)
	}), viewports)
	go hub.Run()

	assetHandler := asset.NewHandler(cfg.AssetDir)
	mapService := mapdata.NewService(st, hub, assetHandler)
	mapHandler := mapdata.NewHandler(mapService)
	wsHandler := collab.NewHandler(hub, mapCfg.Name, cfg.Origins())

	r := mux.NewRouter()

	// Global middleware
	r.Use(mw.Recovery)
	r.Use(mw.Logger)
	r.Use(mw.CORS(cfg.Origins()))
	r.Use(metrics.Middleware)

	started := time.Now()
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{
			"status": "ok",
			"uptime": time.Since(started).Round(time.Second).String(),
		})
	}).Methods("GET")
	r.HandleFunc("/ready", readyHandler(checks)).Methods("GET")
	r.Handle("/metrics", metrics.Handler()).Methods("GET")

	// Asset endpoints
	r.HandleFunc("/assets/upload", assetHandler.Upload).Methods("POST", "OPTIONS")
	r.PathPrefix(asset.URLPrefix).Handler(assetHandler.Serve()).Methods("GET")

	// Background tiles cut by cmd/tiler
	r.PathPrefix("/tiles/").Handler(http.StripPrefix("/tiles/", http.FileServer(http.Dir(cfg.TileDir)))).Methods("GET")

	// REST API
	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/map", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, mapCfg)
	}).Methods("GET")
	mapHandler.Register(api)

	// WebSocket endpoint
	r.Handle("/ws/map", wsHandler)

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down server")

		// Disconnect editors first, then write their last viewports
		hub.Stop()
		viewports.Flush()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		srv.Shutdown(shutdownCtx)
	}()

	slog.Info("server starting", "addr", addr, "map", mapCfg.Name)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}

func readyHandler(checks map[string]healthCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()

		results := make(map[string]string, len(checks))
		status, code := "ready", http.StatusOK
		for name, check := range checks {
			if err := check(ctx); err != nil {
				results[name] = "error: " + err.Error()
				status, code = "not ready", http.StatusServiceUnavailable
				continue
			}
			results[name] = "ok"
		}
		writeJSON(w, code, map[string]any{"status": status, "checks": results})
	}
}

func reportPoolStats(ctx context.Context, pg *store.Postgres) {
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			metrics.UpdateDBPoolMetrics(pg.Pool().Stat())
		case <-ctx.Done():
			return
		}
	}
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
