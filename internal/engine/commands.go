package engine

import (
	"encoding/json"
	"strconv"
	"strings"
)

// OverlayPosition is the screen placement of one overlay item, as the
// rendering layer should apply it. The renderer treats a batch as the only
// source of truth for overlay placement.
type OverlayPosition struct {
	ID      string        `json:"id"`
	Kind    ItemKind      `json:"kind"`
	Layer   Layer         `json:"layer"`
	Left    float64       `json:"left"`
	Top     float64       `json:"top"`
	Size    float64       `json:"size,omitempty"`   // marker edge length for popups and points
	Path    string        `json:"path,omitempty"`   // closed SVG path for polygons
	Points  []ScreenPoint `json:"points,omitempty"` // polygon vertices, for vertex handles
	Hovered bool          `json:"hovered,omitempty"`
}

// OverlayBatch is one coalesced repositioning pass: the background transform
// and every overlay position computed under the same viewport.
type OverlayBatch struct {
	Seq        uint64            `json:"seq"`
	Viewport   Viewport          `json:"viewport"`
	Background []float64         `json:"background"` // [a, b, c, d, e, f]
	Items      []OverlayPosition `json:"items"`
}

// CompileOverlay builds a batch from the scene graph. Reposition must have
// run for v beforehand. Items come out in paint order.
func CompileOverlay(sg *SceneGraph, v Viewport, markerSize, pointSize float64, seq uint64) OverlayBatch {
	batch := OverlayBatch{
		Seq:        seq,
		Viewport:   v,
		Background: v.Matrix().ToSlice(),
		Items:      make([]OverlayPosition, 0, sg.Len()),
	}

	for _, n := range sg.Ordered() {
		pos := OverlayPosition{
			ID:      n.ID,
			Kind:    n.Kind,
			Layer:   n.Layer,
			Hovered: n.Hovered,
		}
		switch n.Kind {
		case KindPopup:
			pos.Left, pos.Top, pos.Size = n.Bounds.X, n.Bounds.Y, markerSize
		case KindTransientPoint:
			pos.Left, pos.Top, pos.Size = n.Bounds.X, n.Bounds.Y, pointSize
		case KindPolygon:
			pos.Left, pos.Top = n.Bounds.X, n.Bounds.Y
			pos.Points = append([]ScreenPoint(nil), n.Screen...)
			pos.Path = svgPath(n.Screen)
		}
		batch.Items = append(batch.Items, pos)
	}

	return batch
}

// svgPath renders "M x,y L x,y ... Z".
func svgPath(pts []ScreenPoint) string {
	if len(pts) == 0 {
		return ""
	}
	var b strings.Builder
	for i, p := range pts {
		if i == 0 {
			b.WriteByte('M')
		} else {
			b.WriteString(" L")
		}
		b.WriteString(strconv.FormatFloat(p.X, 'f', 2, 64))
		b.WriteByte(',')
		b.WriteString(strconv.FormatFloat(p.Y, 'f', 2, 64))
	}
	b.WriteString(" Z")
	return b.String()
}

// BatchToJSON serializes a batch for the js bridge.
func BatchToJSON(b OverlayBatch) (string, error) {
	data, err := json.Marshal(b)
	if err != nil {
		return "null", err
	}
	return string(data), nil
}
