// Package tiles slices the map background into fixed-size tiles so the
// browser can load only what the viewport shows.
package tiles

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	"image/png"
	"io"
	"log/slog"
	"math"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/chai2010/webp"
	_ "golang.org/x/image/bmp"
	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
	"golang.org/x/sync/errgroup"
)

var ErrInvalidColor = errors.New("color must be RRGGBB or #RRGGBB")

// Format is an output tile encoding.
type Format string

const (
	FormatPNG  Format = "png"
	FormatWebP Format = "webp"
	FormatJPEG Format = "jpg"
)

// ParseFormat accepts png, webp, jpg and jpeg.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "png":
		return FormatPNG, nil
	case "webp":
		return FormatWebP, nil
	case "jpg", "jpeg":
		return FormatJPEG, nil
	}
	return "", fmt.Errorf("unsupported tile format %q", s)
}

type Options struct {
	TileSize int
	Format   Format
	Quality  int
	// Pad fills the uncovered part of edge tiles. Nil means transparent,
	// or black for JPEG.
	Pad         color.Color
	Overwrite   bool
	Concurrency int
}

func (o Options) normalize() Options {
	if o.TileSize <= 0 {
		o.TileSize = 256
	}
	if o.Format == "" {
		o.Format = FormatPNG
	}
	if o.Quality <= 0 || o.Quality > 100 {
		o.Quality = 90
	}
	if o.Pad == nil {
		if o.Format == FormatJPEG {
			o.Pad = color.Black
		} else {
			o.Pad = color.Transparent
		}
	}
	if o.Concurrency <= 0 {
		o.Concurrency = 20
	}
	return o
}

// Coordinate addresses one tile. Z is -1 for a flat grid.
type Coordinate struct {
	Z, X, Y int
}

// Result summarizes a tiling run.
type Result struct {
	Columns, Rows int
	Written       int
	Skipped       int
}

// ParseHexColor parses "RRGGBB" or "#RRGGBB" into an opaque color.
func ParseHexColor(s string) (color.RGBA, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(s) != 6 {
		return color.RGBA{}, ErrInvalidColor
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return color.RGBA{}, ErrInvalidColor
	}
	return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 0xff}, nil
}

// Grid cuts img at native resolution into dir/{x}/{y}.{ext}.
func Grid(ctx context.Context, img image.Image, dir string, opts Options) (Result, error) {
	opts = opts.normalize()
	return cut(ctx, img, dir, -1, opts)
}

// Pyramid writes dir/{z}/{x}/{y}.{ext} for z in 0..maxZoom. Level maxZoom is
// the native resolution and each lower level halves it.
func Pyramid(ctx context.Context, img image.Image, dir string, maxZoom int, opts Options) ([]Result, error) {
	opts = opts.normalize()
	if maxZoom < 0 {
		maxZoom = 0
	}

	b := img.Bounds()
	results := make([]Result, 0, maxZoom+1)
	for z := 0; z <= maxZoom; z++ {
		factor := math.Pow(2, float64(z-maxZoom))
		w := max(1, int(math.Round(float64(b.Dx())*factor)))
		h := max(1, int(math.Round(float64(b.Dy())*factor)))

		level := img
		if z != maxZoom {
			scaled := image.NewRGBA(image.Rect(0, 0, w, h))
			xdraw.CatmullRom.Scale(scaled, scaled.Bounds(), img, b, draw.Over, nil)
			level = scaled
		}

		slog.Debug("processing zoom level", "zoom", z, "width", w, "height", h)
		res, err := cut(ctx, level, filepath.Join(dir, strconv.Itoa(z)), z, opts)
		if err != nil {
			return results, fmt.Errorf("zoom %d: %w", z, err)
		}
		results = append(results, res)
	}
	return results, nil
}

func cut(ctx context.Context, img image.Image, dir string, z int, opts Options) (Result, error) {
	b := img.Bounds()
	res := Result{
		Columns: (b.Dx() + opts.TileSize - 1) / opts.TileSize,
		Rows:    (b.Dy() + opts.TileSize - 1) / opts.TileSize,
	}

	written := make([]bool, res.Columns*res.Rows)
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Concurrency)

	for x := 0; x < res.Columns; x++ {
		if err := os.MkdirAll(filepath.Join(dir, strconv.Itoa(x)), 0755); err != nil {
			return res, fmt.Errorf("create tile dir: %w", err)
		}
		for y := 0; y < res.Rows; y++ {
			coord := Coordinate{Z: z, X: x, Y: y}
			idx := x*res.Rows + y
			g.Go(func() error {
				if err := ctx.Err(); err != nil {
					return err
				}
				ok, err := writeTile(img, dir, coord, opts)
				written[idx] = ok
				return err
			})
		}
	}
	if err := g.Wait(); err != nil {
		return res, err
	}

	for _, ok := range written {
		if ok {
			res.Written++
		} else {
			res.Skipped++
		}
	}
	return res, nil
}

func writeTile(img image.Image, dir string, c Coordinate, opts Options) (bool, error) {
	outPath := filepath.Join(dir, strconv.Itoa(c.X), strconv.Itoa(c.Y)+"."+string(opts.Format))
	if !opts.Overwrite {
		if info, err := os.Stat(outPath); err == nil && info.Size() > 0 {
			return false, nil
		}
	}

	b := img.Bounds()
	src := image.Rect(
		b.Min.X+c.X*opts.TileSize, b.Min.Y+c.Y*opts.TileSize,
		b.Min.X+(c.X+1)*opts.TileSize, b.Min.Y+(c.Y+1)*opts.TileSize,
	).Intersect(b)

	tile := image.NewRGBA(image.Rect(0, 0, opts.TileSize, opts.TileSize))
	draw.Draw(tile, tile.Bounds(), image.NewUniform(opts.Pad), image.Point{}, draw.Src)
	draw.Draw(tile, image.Rect(0, 0, src.Dx(), src.Dy()), img, src.Min, draw.Over)

	f, err := os.Create(outPath)
	if err != nil {
		return false, fmt.Errorf("create tile: %w", err)
	}
	defer f.Close()

	if err := Encode(f, tile, opts.Format, opts.Quality); err != nil {
		return false, fmt.Errorf("encode tile %d/%d: %w", c.X, c.Y, err)
	}
	return true, nil
}

// Encode writes img in format.
func Encode(w io.Writer, img image.Image, format Format, quality int) error {
	switch format {
	case FormatWebP:
		return webp.Encode(w, img, &webp.Options{Lossless: false, Quality: float32(quality)})
	case FormatJPEG:
		return jpeg.Encode(w, img, &jpeg.Options{Quality: quality})
	default:
		return png.Encode(w, img)
	}
}

// Load reads a source image from a local path or an http(s) URL.
func Load(ctx context.Context, client *http.Client, source string) (image.Image, error) {
	var reader io.Reader

	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, source, nil)
		if err != nil {
			return nil, err
		}
		resp, err := client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("download source: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("download failed: %d", resp.StatusCode)
		}
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("download source: %w", err)
		}
		reader = bytes.NewReader(body)
	} else {
		f, err := os.Open(source)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		reader = f
	}

	img, format, err := image.Decode(reader)
	if err != nil {
		return nil, fmt.Errorf("decode failed: %w", err)
	}
	slog.Info("source image decoded", "format", format, "width", img.Bounds().Dx(), "height", img.Bounds().Dy())
	return img, nil
}
