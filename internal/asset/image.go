package asset

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/draw"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"math"
	"regexp"
	"strings"

	"github.com/chai2010/webp"
	_ "golang.org/x/image/bmp"
	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

// CompressionFactor is the linear downscale applied to uploaded images.
const CompressionFactor = 1 / 4.8

// WebPQuality is the lossy quality used for stored images.
const WebPQuality = 70

var ErrInvalidImage = errors.New("invalid image")

var dataURLPattern = regexp.MustCompile(`(?s)^data:(image/[^;]+);base64,(.*)$`)

// DecodeDataURL splits a data URL into its mime type and raw bytes. Bare
// base64 without the data: prefix is accepted as image/png. Whitespace is
// stripped and missing padding repaired.
func DecodeDataURL(s string) (mime string, data []byte, err error) {
	mime, payload := "image/png", s
	if m := dataURLPattern.FindStringSubmatch(s); m != nil {
		mime, payload = m[1], m[2]
	}

	payload = strings.Map(func(r rune) rune {
		switch r {
		case '\n', '\r', ' ', '\t':
			return -1
		}
		return r
	}, payload)
	if payload == "" {
		return "", nil, fmt.Errorf("%w: empty data", ErrInvalidImage)
	}
	if rem := len(payload) % 4; rem != 0 {
		payload += strings.Repeat("=", 4-rem)
	}

	data, err = base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %w", ErrInvalidImage, err)
	}
	return mime, data, nil
}

// Decode reads any registered image format.
func Decode(r io.Reader) (image.Image, string, error) {
	img, format, err := image.Decode(r)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %w", ErrInvalidImage, err)
	}
	return img, format, nil
}

// Downscale resizes src by factor, keeping at least one pixel per side.
// Factors >= 1 return src unchanged.
func Downscale(src image.Image, factor float64) image.Image {
	if factor >= 1 || factor <= 0 {
		return src
	}
	b := src.Bounds()
	w := max(1, int(math.Round(float64(b.Dx())*factor)))
	h := max(1, int(math.Round(float64(b.Dy())*factor)))

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, b, draw.Over, nil)
	return dst
}

// EncodeWebP writes img as lossy webp.
func EncodeWebP(w io.Writer, img image.Image, quality float32) error {
	return webp.Encode(w, img, &webp.Options{Lossless: false, Quality: quality})
}

// Compress decodes raw image bytes, downscales them and re-encodes as webp.
func Compress(data []byte) ([]byte, image.Rectangle, error) {
	img, _, err := Decode(bytes.NewReader(data))
	if err != nil {
		return nil, image.Rectangle{}, err
	}
	small := Downscale(img, CompressionFactor)

	var buf bytes.Buffer
	if err := EncodeWebP(&buf, small, WebPQuality); err != nil {
		return nil, image.Rectangle{}, fmt.Errorf("encode webp: %w", err)
	}
	return buf.Bytes(), small.Bounds(), nil
}
