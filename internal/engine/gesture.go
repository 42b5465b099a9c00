package engine

import (
	"log/slog"
	"math"
)

// Button is a pointer button as reported by PointerEvent.button.
type Button int

const (
	ButtonPrimary   Button = 0
	ButtonMiddle    Button = 1
	ButtonSecondary Button = 2
)

// DragGestureState lives from pointer-down to pointer-up.
//
//	Idle --down on empty surface--> Dragging(HasMoved=false)
//	Dragging(false) --move beyond threshold--> Dragging(true)
//	Dragging(*) --up anywhere--> Idle
//
// A press on an item does not drag; it is tracked so that its release can
// be reported as an item click, with the same HasMoved guard.
type DragGestureState struct {
	IsDragging        bool
	HasMoved          bool
	LastScreenPointer ScreenPoint

	origin    ScreenPoint
	pointerID int
	pressed   Hit
	active    bool
}

// GestureKind classifies how a pointer-up was interpreted.
type GestureKind string

const (
	GestureNone      GestureKind = "none"
	GestureClick     GestureKind = "click"     // click on empty surface, nothing placed
	GesturePlacement GestureKind = "placement" // logical point delivered to the placement sink
	GesturePan       GestureKind = "pan"
	GestureItemClick GestureKind = "itemClick"
)

// GestureResult describes the outcome of PointerUp.
type GestureResult struct {
	Kind    GestureKind  `json:"kind"`
	Logical LogicalPoint `json:"logical"`
	Hit     Hit          `json:"hit"`
}

// Gesture returns a copy of the in-flight gesture state.
func (c *Controller) Gesture() DragGestureState {
	return c.drag
}

// PointerDown starts a gesture. Only the primary button is handled. A press
// over an item is recorded as an item press; a press over empty surface
// starts a drag. While a gesture is in flight, presses from other pointers
// are ignored.
func (c *Controller) PointerDown(at ScreenPoint, button Button, pointerID int) {
	if c.drag.active || button != ButtonPrimary || !isFinite(at.X) || !isFinite(at.Y) {
		return
	}

	hit := c.HitTest(at)
	c.drag = DragGestureState{
		IsDragging:        hit.Empty(),
		LastScreenPointer: at,
		origin:            at,
		pointerID:         pointerID,
		pressed:           hit,
		active:            true,
	}

	if c.drag.IsDragging && c.capturer != nil {
		if err := c.capturer.SetPointerCapture(pointerID); err != nil {
			slog.Warn("set pointer capture", "error", err, "pointer", pointerID)
		}
	}
}

// PointerMove advances an active gesture, or updates polygon hover when idle.
// Pan is applied only after the pointer has left the threshold circle around
// the press origin; the first applied delta is measured from the origin so
// no movement is lost. Moves from a pointer other than the one that started
// the gesture are ignored.
func (c *Controller) PointerMove(at ScreenPoint, pointerID int) {
	if !isFinite(at.X) || !isFinite(at.Y) {
		return
	}

	if !c.drag.active {
		c.updateHover(at)
		return
	}
	if pointerID != c.drag.pointerID {
		return
	}

	d := &c.drag
	if !d.HasMoved {
		if math.Hypot(at.X-d.origin.X, at.Y-d.origin.Y) > c.opts.DragThreshold {
			d.HasMoved = true
			if d.IsDragging {
				c.commit(c.view.Pan(at.X-d.origin.X, at.Y-d.origin.Y))
			}
		}
	} else if d.IsDragging {
		c.commit(c.view.Pan(at.X-d.LastScreenPointer.X, at.Y-d.LastScreenPointer.Y))
	}
	d.LastScreenPointer = at
}

// PointerUp ends the gesture wherever the pointer is; the host forwards
// window-level pointerup so drags released outside the container finish.
// Only the pointer that started the gesture can end it.
func (c *Controller) PointerUp(at ScreenPoint, pointerID int) GestureResult {
	if !c.drag.active || pointerID != c.drag.pointerID {
		return GestureResult{Kind: GestureNone}
	}
	d := c.drag
	c.drag = DragGestureState{}

	if d.IsDragging && c.capturer != nil {
		if err := c.capturer.ReleasePointerCapture(d.pointerID); err != nil {
			slog.Warn("release pointer capture", "error", err, "pointer", d.pointerID)
		}
	}

	if !isFinite(at.X) || !isFinite(at.Y) {
		at = d.LastScreenPointer
	}

	if d.HasMoved {
		if d.IsDragging {
			return GestureResult{Kind: GesturePan}
		}
		return GestureResult{Kind: GestureNone}
	}

	hit := c.HitTest(at)

	if !d.IsDragging {
		if hit != d.pressed {
			return GestureResult{Kind: GestureNone}
		}
		if c.clickSink != nil {
			c.clickSink.ItemClicked(hit)
		}
		return GestureResult{Kind: GestureItemClick, Hit: hit}
	}

	if !hit.Empty() || !c.placement {
		return GestureResult{Kind: GestureClick, Hit: hit}
	}

	logical := c.view.ToLogical(at)
	if c.placementSink == nil {
		slog.Debug("placement dropped: no sink", "x", logical.X, "y", logical.Y)
		return GestureResult{Kind: GestureClick, Logical: logical}
	}
	c.placementSink.Place(logical)
	return GestureResult{Kind: GesturePlacement, Logical: logical}
}

// CancelGesture abandons an in-flight gesture without emitting anything,
// e.g. on pointercancel.
func (c *Controller) CancelGesture() {
	if c.drag.active && c.drag.IsDragging && c.capturer != nil {
		if err := c.capturer.ReleasePointerCapture(c.drag.pointerID); err != nil {
			slog.Warn("release pointer capture", "error", err, "pointer", c.drag.pointerID)
		}
	}
	c.drag = DragGestureState{}
}

func (c *Controller) updateHover(at ScreenPoint) {
	hit := c.HitTest(at)
	id := ""
	if hit.Kind == KindPolygon {
		id = hit.ID
	}
	if c.scene.SetHover(id) {
		c.pending = true
	}
}
