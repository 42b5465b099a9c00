package asset

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/mapeditor/mapeditor/internal/metrics"
	"github.com/mapeditor/mapeditor/internal/typeid"
)

const maxUploadSize = 10 << 20 // 10MB

// URLPrefix is the path stored images are served under.
const URLPrefix = "/assets/"

// UploadResponse is returned from the upload endpoint.
type UploadResponse struct {
	ID     string `json:"id"`
	URL    string `json:"url"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Type   string `json:"type"`
	Name   string `json:"name,omitempty"`
}

type dataURLRequest struct {
	DataURL string `json:"dataUrl"`
	Name    string `json:"name"`
}

// Handler stores compressed images on disk and serves them back.
type Handler struct {
	dir string
}

// NewHandler creates a new asset handler that stores files in dir.
func NewHandler(dir string) *Handler {
	if err := os.MkdirAll(dir, 0755); err != nil {
		slog.Error("create asset dir", "error", err, "dir", dir)
	}
	return &Handler{dir: dir}
}

// Ingest compresses raw image bytes and writes them as a new asset.
func (h *Handler) Ingest(data []byte, source string) (*UploadResponse, error) {
	out, bounds, err := Compress(data)
	if err != nil {
		return nil, err
	}

	assetID := typeid.NewAssetID()
	filename := assetID + ".webp"
	if err := os.WriteFile(filepath.Join(h.dir, filename), out, 0644); err != nil {
		return nil, fmt.Errorf("write asset: %w", err)
	}
	metrics.ImagesIngested.WithLabelValues(source).Inc()

	return &UploadResponse{
		ID:     assetID,
		URL:    URLPrefix + filename,
		Width:  bounds.Dx(),
		Height: bounds.Dy(),
		Type:   "webp",
	}, nil
}

// StoreDataURL ingests an inline data URL image and returns its asset URL.
func (h *Handler) StoreDataURL(ctx context.Context, dataURL string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	_, data, err := DecodeDataURL(dataURL)
	if err != nil {
		return "", err
	}
	resp, err := h.Ingest(data, "dataurl")
	if err != nil {
		return "", err
	}
	return resp.URL, nil
}

// Upload handles POST /assets/upload: either a multipart form with a "file"
// field or a JSON body {"dataUrl": "..."}.
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)

	var (
		data   []byte
		name   string
		source string
	)
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		var req dataURLRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
			return
		}
		_, decoded, err := DecodeDataURL(req.DataURL)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		data, name, source = decoded, req.Name, "dataurl"
	} else {
		if err := r.ParseMultipartForm(maxUploadSize); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "file too large (max 10MB)"})
			return
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing file field"})
			return
		}
		defer file.Close()

		if data, err = io.ReadAll(file); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "read file"})
			return
		}
		name, source = header.Filename, "upload"
	}

	resp, err := h.Ingest(data, source)
	if err != nil {
		if errors.Is(err, ErrInvalidImage) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		slog.Error("ingest image", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to save file"})
		return
	}
	resp.Name = name

	writeJSON(w, http.StatusOK, resp)
}

// Serve returns an http.Handler that serves stored asset files with caching headers.
func (h *Handler) Serve() http.Handler {
	fs := http.FileServer(http.Dir(h.dir))
	return http.StripPrefix(URLPrefix, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Asset IDs are unique, so files are immutable
		w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
		fs.ServeHTTP(w, r)
	}))
}

// Delete removes an asset file from disk.
func (h *Handler) Delete(assetID string) error {
	for _, ext := range []string{".webp", ".png", ".jpg"} {
		path := filepath.Join(h.dir, assetID+ext)
		if err := os.Remove(path); err == nil {
			return nil
		}
	}
	return fmt.Errorf("asset not found: %s", assetID)
}

// WriteRaw stores already-encoded bytes under name, for migrating images
// that must keep their original encoding.
func (h *Handler) WriteRaw(name string, data []byte) (string, error) {
	if strings.ContainsAny(name, `/\`) {
		return "", fmt.Errorf("invalid asset name %q", name)
	}
	if err := copyFile(filepath.Join(h.dir, name), bytes.NewReader(data)); err != nil {
		return "", fmt.Errorf("write asset: %w", err)
	}
	return URLPrefix + name, nil
}

// copyFile copies src reader to a file at dst path.
func copyFile(dst string, src io.Reader) error {
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()
	_, err = io.Copy(out, src)
	return err
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
