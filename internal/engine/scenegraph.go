package engine

import (
	"sort"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// ItemKind identifies the variant of a positioned overlay item.
type ItemKind string

const (
	KindPolygon        ItemKind = "polygon"
	KindPopup          ItemKind = "popup"
	KindTransientPoint ItemKind = "point"
)

// Layer is the z-order of an overlay; higher layers are drawn (and hit) on top.
type Layer int

const (
	LayerBackground Layer = iota
	LayerPolygon
	LayerPopup
	LayerTransient
)

// Layer returns the stacking layer for items of this kind.
func (k ItemKind) Layer() Layer {
	switch k {
	case KindPolygon:
		return LayerPolygon
	case KindPopup:
		return LayerPopup
	case KindTransientPoint:
		return LayerTransient
	default:
		return LayerBackground
	}
}

// Valid reports whether k is one of the known kinds.
func (k ItemKind) Valid() bool {
	return k.Layer() != LayerBackground
}

// Item is a positioned item supplied by a collaborator: a popup marker has one
// point, a polygon its vertex ring, a transient editing point one point.
type Item struct {
	ID     string         `json:"id"`
	Kind   ItemKind       `json:"kind"`
	Points []LogicalPoint `json:"points"`
}

type nodeKey struct {
	kind ItemKind
	id   string
}

// OverlayNode is the retained, mutable screen-position record of one item.
// Nodes are created when items are set and only their screen fields are
// rewritten on transform changes.
type OverlayNode struct {
	ID      string
	Kind    ItemKind
	Layer   Layer
	Logical []LogicalPoint

	// Recomputed on every reposition pass.
	Screen []ScreenPoint
	Bounds Rect

	Hovered bool

	ring orb.Ring
}

// SceneGraph is the retained overlay scene: one node per positioned item,
// kept in paint order (layer, then id).
type SceneGraph struct {
	NodesByKey map[nodeKey]*OverlayNode
	order      []*OverlayNode
	orderDirty bool
}

// Rect represents an axis-aligned bounding box.
type Rect struct {
	X      float64
	Y      float64
	Width  float64
	Height float64
}

// NewSceneGraph creates an empty scene graph.
func NewSceneGraph() *SceneGraph {
	return &SceneGraph{
		NodesByKey: make(map[nodeKey]*OverlayNode),
	}
}

// Len returns the number of overlay nodes.
func (sg *SceneGraph) Len() int {
	return len(sg.NodesByKey)
}

// Node looks up a node by kind and id.
func (sg *SceneGraph) Node(kind ItemKind, id string) (*OverlayNode, bool) {
	n, ok := sg.NodesByKey[nodeKey{kind, id}]
	return n, ok
}

// Upsert inserts an item or replaces its logical points in place.
func (sg *SceneGraph) Upsert(it Item) {
	key := nodeKey{it.Kind, it.ID}
	pts := append([]LogicalPoint(nil), it.Points...)
	if n, ok := sg.NodesByKey[key]; ok {
		n.Logical = pts
		return
	}
	sg.NodesByKey[key] = &OverlayNode{
		ID:      it.ID,
		Kind:    it.Kind,
		Layer:   it.Kind.Layer(),
		Logical: pts,
	}
	sg.orderDirty = true
}

// Remove deletes a node. It reports whether the node existed.
func (sg *SceneGraph) Remove(kind ItemKind, id string) bool {
	key := nodeKey{kind, id}
	if _, ok := sg.NodesByKey[key]; !ok {
		return false
	}
	delete(sg.NodesByKey, key)
	sg.orderDirty = true
	return true
}

// ReplaceKind swaps the whole collection of one kind. Nodes whose id survives
// keep their identity.
func (sg *SceneGraph) ReplaceKind(kind ItemKind, items []Item) {
	keep := make(map[string]struct{}, len(items))
	for _, it := range items {
		if it.ID == "" {
			continue
		}
		it.Kind = kind
		keep[it.ID] = struct{}{}
		sg.Upsert(it)
	}
	for key := range sg.NodesByKey {
		if key.kind != kind {
			continue
		}
		if _, ok := keep[key.id]; !ok {
			delete(sg.NodesByKey, key)
			sg.orderDirty = true
		}
	}
}

// Ordered returns the nodes in paint order, back to front.
func (sg *SceneGraph) Ordered() []*OverlayNode {
	if sg.orderDirty || len(sg.order) != len(sg.NodesByKey) {
		sg.order = sg.order[:0]
		for _, n := range sg.NodesByKey {
			sg.order = append(sg.order, n)
		}
		sort.Slice(sg.order, func(i, j int) bool {
			if sg.order[i].Layer != sg.order[j].Layer {
				return sg.order[i].Layer < sg.order[j].Layer
			}
			return sg.order[i].ID < sg.order[j].ID
		})
		sg.orderDirty = false
	}
	return sg.order
}

// Reposition recomputes every node's screen geometry under v in one pass.
// markerSize and pointSize are the on-screen edge lengths of popup and
// transient point markers, which do not scale with the map.
func (sg *SceneGraph) Reposition(v Viewport, markerSize, pointSize float64) {
	for _, n := range sg.Ordered() {
		if cap(n.Screen) < len(n.Logical) {
			n.Screen = make([]ScreenPoint, len(n.Logical))
		}
		n.Screen = n.Screen[:len(n.Logical)]
		for i, p := range n.Logical {
			n.Screen[i] = v.ToScreen(p)
		}

		switch n.Kind {
		case KindPopup:
			n.Bounds = squareAround(n.Screen, markerSize)
		case KindTransientPoint:
			n.Bounds = squareAround(n.Screen, pointSize)
		case KindPolygon:
			n.Bounds = boundsOf(n.Screen)
			n.ring = n.ring[:0]
			for _, s := range n.Screen {
				n.ring = append(n.ring, orb.Point{s.X, s.Y})
			}
			if len(n.ring) > 0 {
				n.ring = append(n.ring, n.ring[0])
			}
		}
	}
}

// SetHover marks the polygon with id as hovered and clears every other
// hover flag. It reports whether anything changed.
func (sg *SceneGraph) SetHover(id string) bool {
	changed := false
	for key, n := range sg.NodesByKey {
		want := key.kind == KindPolygon && key.id == id
		if n.Hovered != want {
			n.Hovered = want
			changed = true
		}
	}
	return changed
}

// Hit identifies the topmost overlay item under a screen point.
type Hit struct {
	ID   string   `json:"id"`
	Kind ItemKind `json:"kind"`
}

// Empty reports whether nothing was hit.
func (h Hit) Empty() bool {
	return h.ID == ""
}

// HitTest returns the topmost node containing p, testing front to back:
// transient points, then popups, then polygon regions.
func (sg *SceneGraph) HitTest(p ScreenPoint) Hit {
	ordered := sg.Ordered()
	for i := len(ordered) - 1; i >= 0; i-- {
		n := ordered[i]
		if n.contains(p) {
			return Hit{ID: n.ID, Kind: n.Kind}
		}
	}
	return Hit{}
}

func (n *OverlayNode) contains(p ScreenPoint) bool {
	if n.Bounds.IsEmpty() || !n.Bounds.Contains(p.X, p.Y) {
		return false
	}
	if n.Kind != KindPolygon {
		return true
	}
	if len(n.ring) < 4 {
		return false
	}
	return planar.PolygonContains(orb.Polygon{n.ring}, orb.Point{p.X, p.Y})
}

func squareAround(pts []ScreenPoint, size float64) Rect {
	if len(pts) == 0 {
		return Rect{}
	}
	return Rect{X: pts[0].X - size/2, Y: pts[0].Y - size/2, Width: size, Height: size}
}

func boundsOf(pts []ScreenPoint) Rect {
	if len(pts) == 0 {
		return Rect{}
	}
	minX, minY := pts[0].X, pts[0].Y
	maxX, maxY := minX, minY
	for _, p := range pts[1:] {
		minX = min(minX, p.X)
		minY = min(minY, p.Y)
		maxX = max(maxX, p.X)
		maxY = max(maxY, p.Y)
	}
	return Rect{X: minX, Y: minY, Width: maxX - minX, Height: maxY - minY}
}

// Contains checks if a point is inside the rect.
func (r Rect) Contains(x, y float64) bool {
	return x >= r.X && x <= r.X+r.Width && y >= r.Y && y <= r.Y+r.Height
}

// IsEmpty checks if the rect has zero or negative area.
func (r Rect) IsEmpty() bool {
	return r.Width <= 0 || r.Height <= 0
}
