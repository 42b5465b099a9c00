package asset

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mapeditor/mapeditor/internal/document"
)

// ImageRecords is the part of the store that holds image fields.
type ImageRecords interface {
	ListPolygons(ctx context.Context) ([]document.Polygon, error)
	ListPopups(ctx context.Context) ([]document.Popup, error)
	SetPolygonImage(ctx context.Context, id, image string) error
	SetPopupImage(ctx context.Context, id, image string) error
}

// Extractor moves inline base64 images out of records and into asset files.
type Extractor struct {
	handler *Handler
	// Raw keeps the original bytes and encoding instead of compressing.
	Raw bool
}

func NewExtractor(h *Handler, raw bool) *Extractor {
	return &Extractor{handler: h, Raw: raw}
}

// ExtractStats counts what an extraction run did.
type ExtractStats struct {
	Extracted int
	Skipped   int
	Failed    int
}

// IsInline reports whether an image field holds encoded data rather than a
// URL.
func IsInline(image string) bool {
	if image == "" {
		return false
	}
	if strings.HasPrefix(image, "data:") {
		return true
	}
	return !strings.HasPrefix(image, "/") &&
		!strings.HasPrefix(image, "http://") &&
		!strings.HasPrefix(image, "https://")
}

// Image stores one inline image named after its owner and returns the URL
// that replaces it.
func (e *Extractor) Image(ownerID, image string) (string, error) {
	mime, data, err := DecodeDataURL(image)
	if err != nil {
		return "", err
	}
	if e.Raw {
		return e.handler.WriteRaw(ownerID+extensionFor(mime), data)
	}
	resp, err := e.handler.Ingest(data, "migration")
	if err != nil {
		return "", err
	}
	return resp.URL, nil
}

// Records rewrites every inline polygon and popup image in recs. Failures
// are logged and counted; the run continues with the next record.
func (e *Extractor) Records(ctx context.Context, recs ImageRecords) (ExtractStats, error) {
	var stats ExtractStats

	polys, err := recs.ListPolygons(ctx)
	if err != nil {
		return stats, fmt.Errorf("list polygons: %w", err)
	}
	for _, p := range polys {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		e.one(ctx, &stats, "polygon", p.ID, p.Image, recs.SetPolygonImage)
	}

	popups, err := recs.ListPopups(ctx)
	if err != nil {
		return stats, fmt.Errorf("list popups: %w", err)
	}
	for _, p := range popups {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		e.one(ctx, &stats, "popup", p.ID, p.Image, recs.SetPopupImage)
	}
	return stats, nil
}

// Document rewrites inline images in doc in place.
func (e *Extractor) Document(doc *document.MapDocument) ExtractStats {
	var stats ExtractStats
	set := func(field *string) func(context.Context, string, string) error {
		return func(_ context.Context, _ string, url string) error {
			*field = url
			return nil
		}
	}

	for i := range doc.Polygons {
		poly := &doc.Polygons[i]
		e.one(context.Background(), &stats, "polygon", poly.ID, poly.Image, set(&poly.Image))
		for j := range poly.Companies {
			c := &poly.Companies[j]
			e.one(context.Background(), &stats, "popup", c.ID, c.Image, set(&c.Image))
		}
	}
	for i := range doc.Popups {
		p := &doc.Popups[i]
		e.one(context.Background(), &stats, "popup", p.ID, p.Image, set(&p.Image))
	}
	return stats
}

func (e *Extractor) one(ctx context.Context, stats *ExtractStats, kind, id, image string, set func(context.Context, string, string) error) {
	if !IsInline(image) {
		stats.Skipped++
		return
	}
	url, err := e.Image(id, image)
	if err == nil {
		err = set(ctx, id, url)
	}
	if err != nil {
		stats.Failed++
		level := slog.LevelError
		if errors.Is(err, ErrInvalidImage) {
			level = slog.LevelWarn
		}
		slog.Log(ctx, level, "extract image", "error", err, "kind", kind, "id", id)
		return
	}
	stats.Extracted++
	slog.Debug("image extracted", "kind", kind, "id", id, "url", url)
}

func extensionFor(mime string) string {
	switch {
	case strings.HasSuffix(mime, "jpeg"), strings.HasSuffix(mime, "jpg"):
		return ".jpg"
	case strings.HasSuffix(mime, "webp"):
		return ".webp"
	default:
		return ".png"
	}
}
