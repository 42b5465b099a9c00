package asset_test

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mapeditor/mapeditor/internal/asset"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestDecodeDataURL(t *testing.T) {
	mime, data, err := asset.DecodeDataURL("data:image/jpeg;base64,aGVs\nbG8")
	if err != nil {
		t.Fatalf("DecodeDataURL: %v", err)
	}
	if mime != "image/jpeg" || string(data) != "hello" {
		t.Fatalf("got %q %q", mime, data)
	}

	mime, data, err = asset.DecodeDataURL("aGVsbG8=")
	if err != nil || mime != "image/png" || string(data) != "hello" {
		t.Fatalf("bare base64: %q %q %v", mime, data, err)
	}

	if _, _, err := asset.DecodeDataURL("data:image/png;base64,"); !errors.Is(err, asset.ErrInvalidImage) {
		t.Fatalf("expected ErrInvalidImage for empty payload, got %v", err)
	}
	if _, _, err := asset.DecodeDataURL("data:image/png;base64,!!!!"); !errors.Is(err, asset.ErrInvalidImage) {
		t.Fatalf("expected ErrInvalidImage for garbage, got %v", err)
	}
}

func TestDownscale(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 96, 48))
	small := asset.Downscale(img, asset.CompressionFactor)
	if b := small.Bounds(); b.Dx() != 20 || b.Dy() != 10 {
		t.Fatalf("expected 20x10, got %dx%d", b.Dx(), b.Dy())
	}

	tiny := asset.Downscale(image.NewRGBA(image.Rect(0, 0, 2, 2)), asset.CompressionFactor)
	if b := tiny.Bounds(); b.Dx() != 1 || b.Dy() != 1 {
		t.Fatalf("expected 1x1 minimum, got %dx%d", b.Dx(), b.Dy())
	}

	if same := asset.Downscale(img, 1); same != image.Image(img) {
		t.Fatal("factor 1 should return the source")
	}
}

func TestStoreDataURL(t *testing.T) {
	dir := t.TempDir()
	h := asset.NewHandler(dir)

	dataURL := "data:image/png;base64," + base64.StdEncoding.EncodeToString(pngBytes(t, 96, 48))
	url, err := h.StoreDataURL(context.Background(), dataURL)
	if err != nil {
		t.Fatalf("StoreDataURL: %v", err)
	}
	if !strings.HasPrefix(url, "/assets/asset_") || !strings.HasSuffix(url, ".webp") {
		t.Fatalf("unexpected url %q", url)
	}

	data, err := os.ReadFile(filepath.Join(dir, strings.TrimPrefix(url, "/assets/")))
	if err != nil {
		t.Fatalf("stored file: %v", err)
	}
	if len(data) < 12 || string(data[:4]) != "RIFF" || string(data[8:12]) != "WEBP" {
		t.Fatalf("stored file is not webp")
	}
}

func TestUpload_Multipart(t *testing.T) {
	h := asset.NewHandler(t.TempDir())

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", "house.png")
	if err != nil {
		t.Fatal(err)
	}
	fw.Write(pngBytes(t, 480, 240))
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/assets/upload", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	h.Upload(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp asset.UploadResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.Width != 100 || resp.Height != 50 || resp.Type != "webp" || resp.Name != "house.png" {
		t.Fatalf("unexpected response %+v", resp)
	}
}

func TestUpload_InvalidImage(t *testing.T) {
	h := asset.NewHandler(t.TempDir())

	body := `{"dataUrl": "data:image/png;base64,` + base64.StdEncoding.EncodeToString([]byte("not an image")) + `"}`
	req := httptest.NewRequest(http.MethodPost, "/assets/upload", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.Upload(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}
