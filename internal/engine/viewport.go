package engine

import "math"

// LogicalPoint is a position in the untransformed map's own coordinate space.
// Popups and polygon vertices are stored in this space.
type LogicalPoint struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// ScreenPoint is a pixel position relative to the viewport container's top-left corner.
type ScreenPoint struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Viewport is the pan/zoom affine transform applied to the map surface.
type Viewport struct {
	Scale      float64 `json:"scale"`
	TranslateX float64 `json:"translateX"`
	TranslateY float64 `json:"translateY"`
}

// ToScreen maps a logical point through the viewport.
func (v Viewport) ToScreen(p LogicalPoint) ScreenPoint {
	return ScreenPoint{
		X: v.TranslateX + p.X*v.Scale,
		Y: v.TranslateY + p.Y*v.Scale,
	}
}

// ToLogical is the inverse of ToScreen. Scale is never zero for a viewport
// produced by Options.Clamp.
func (v Viewport) ToLogical(p ScreenPoint) LogicalPoint {
	return LogicalPoint{
		X: (p.X - v.TranslateX) / v.Scale,
		Y: (p.Y - v.TranslateY) / v.Scale,
	}
}

// Matrix returns the viewport as a 2D affine matrix: Translate(tx, ty) * Scale(s).
func (v Viewport) Matrix() Matrix2D {
	return Translate(v.TranslateX, v.TranslateY).Multiply(Scale(v.Scale, v.Scale))
}

// ZoomAt returns the viewport scaled to newScale while keeping the logical
// point under the screen point c fixed.
func (v Viewport) ZoomAt(c ScreenPoint, newScale float64) Viewport {
	ratio := newScale / v.Scale
	return Viewport{
		Scale:      newScale,
		TranslateX: c.X - (c.X-v.TranslateX)*ratio,
		TranslateY: c.Y - (c.Y-v.TranslateY)*ratio,
	}
}

// Pan returns the viewport shifted by a screen-space delta.
func (v Viewport) Pan(dx, dy float64) Viewport {
	v.TranslateX += dx
	v.TranslateY += dy
	return v
}

// IsFinite reports whether every component is a finite number.
func (v Viewport) IsFinite() bool {
	return isFinite(v.Scale) && isFinite(v.TranslateX) && isFinite(v.TranslateY)
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

// Options configures the controller. Zero values are replaced by defaults in Normalize.
type Options struct {
	MinScale      float64 `json:"minScale" yaml:"min_scale"`
	MaxScale      float64 `json:"maxScale" yaml:"max_scale"`
	InitialScale  float64 `json:"initialScale" yaml:"initial_scale"`
	ZoomStep      float64 `json:"zoomStep" yaml:"zoom_step"`
	DragThreshold float64 `json:"dragThreshold" yaml:"drag_threshold"`
	MarkerSize    float64 `json:"markerSize" yaml:"marker_size"`
	PointSize     float64 `json:"pointSize" yaml:"point_size"`
	// SaveDebounceMs is the quiet period before a changed viewport is persisted.
	SaveDebounceMs int `json:"saveDebounceMs" yaml:"save_debounce_ms"`
}

const (
	DefaultMinScale       = 0.5
	DefaultMaxScale       = 4.0
	DefaultZoomStep       = 0.12
	DefaultDragThreshold  = 3.0
	DefaultMarkerSize     = 32.0
	DefaultPointSize      = 12.0
	DefaultSaveDebounceMs = 300
)

// DefaultOptions returns the editor's stock viewport limits.
func DefaultOptions() Options {
	return Options{
		MinScale:       DefaultMinScale,
		MaxScale:       DefaultMaxScale,
		InitialScale:   1,
		ZoomStep:       DefaultZoomStep,
		DragThreshold:  DefaultDragThreshold,
		MarkerSize:     DefaultMarkerSize,
		PointSize:      DefaultPointSize,
		SaveDebounceMs: DefaultSaveDebounceMs,
	}
}

// Normalize fills zero or invalid fields so that MinScale is strictly
// positive, MaxScale >= MinScale and the zoom step lies in (0, 1).
func (o Options) Normalize() Options {
	d := DefaultOptions()
	if !isFinite(o.MinScale) || o.MinScale <= 0 {
		o.MinScale = d.MinScale
	}
	if !isFinite(o.MaxScale) || o.MaxScale <= 0 {
		o.MaxScale = d.MaxScale
	}
	if o.MaxScale < o.MinScale {
		o.MaxScale = o.MinScale
	}
	if !isFinite(o.InitialScale) || o.InitialScale <= 0 {
		o.InitialScale = d.InitialScale
	}
	o.InitialScale = clamp(o.InitialScale, o.MinScale, o.MaxScale)
	if !isFinite(o.ZoomStep) || o.ZoomStep <= 0 || o.ZoomStep >= 1 {
		o.ZoomStep = d.ZoomStep
	}
	if !isFinite(o.DragThreshold) || o.DragThreshold <= 0 {
		o.DragThreshold = d.DragThreshold
	}
	if !isFinite(o.MarkerSize) || o.MarkerSize <= 0 {
		o.MarkerSize = d.MarkerSize
	}
	if !isFinite(o.PointSize) || o.PointSize <= 0 {
		o.PointSize = d.PointSize
	}
	if o.SaveDebounceMs <= 0 {
		o.SaveDebounceMs = d.SaveDebounceMs
	}
	return o
}

// Clamp returns v with its scale held inside [MinScale, MaxScale]. Non-finite
// components fall back to the initial viewport.
func (o Options) Clamp(v Viewport) Viewport {
	if !v.IsFinite() || v.Scale <= 0 {
		return o.Initial()
	}
	v.Scale = clamp(v.Scale, o.MinScale, o.MaxScale)
	return v
}

// Initial is the viewport a fresh editor starts with.
func (o Options) Initial() Viewport {
	return Viewport{Scale: o.InitialScale}
}
