package engine

import (
	"log/slog"
	"time"
)

// PlacementSink receives logical points produced by click-to-place gestures.
// Collaborators such as the point, polygon-vertex and company-location editors
// register one while they want map clicks.
type PlacementSink interface {
	Place(p LogicalPoint)
}

// PlacementFunc adapts a function to PlacementSink.
type PlacementFunc func(p LogicalPoint)

func (f PlacementFunc) Place(p LogicalPoint) { f(p) }

// ClickSink receives clicks on overlay items (popup markers, polygons,
// transient points) that were not the tail of a drag.
type ClickSink interface {
	ItemClicked(h Hit)
}

// ClickFunc adapts a function to ClickSink.
type ClickFunc func(h Hit)

func (f ClickFunc) ItemClicked(h Hit) { f(h) }

// PointerCapturer is the host's pointer capture API. Either call may fail,
// for example when capture was already released.
type PointerCapturer interface {
	SetPointerCapture(pointerID int) error
	ReleasePointerCapture(pointerID int) error
}

// ViewportStore persists the viewport for session continuity.
type ViewportStore interface {
	Load() (Viewport, bool)
	Save(v Viewport) error
}

// Controller owns the viewport transform and the overlay scene graph. It is
// driven by pointer and wheel events from a single event loop and is not
// safe for concurrent use.
type Controller struct {
	opts Options
	view Viewport

	scene *SceneGraph
	drag  DragGestureState

	placement     bool
	placementSink PlacementSink
	clickSink     ClickSink
	capturer      PointerCapturer

	store      ViewportStore
	unsaved    bool
	lastChange time.Time
	clock      func() time.Time

	// stale: screen geometry must be recomputed before hit testing.
	// pending: a repositioning batch must be emitted on the next Tick.
	stale   bool
	pending bool
	seq     uint64
}

// NewController creates a controller at the initial viewport of opts.
func NewController(opts Options) *Controller {
	opts = opts.Normalize()
	return &Controller{
		opts:    opts,
		view:    opts.Initial(),
		scene:   NewSceneGraph(),
		clock:   time.Now,
		stale:   true,
		pending: true,
	}
}

// --- Collaborator wiring ---

// SetPlacementSink registers the consumer of placement events; nil unregisters.
func (c *Controller) SetPlacementSink(s PlacementSink) {
	c.placementSink = s
}

// SetClickSink registers the consumer of item clicks; nil unregisters.
func (c *Controller) SetClickSink(s ClickSink) {
	c.clickSink = s
}

// SetPointerCapturer installs the host pointer capture API.
func (c *Controller) SetPointerCapturer(pc PointerCapturer) {
	c.capturer = pc
}

// SetViewportStore installs session persistence. Call Restore afterwards to
// load the saved viewport.
func (c *Controller) SetViewportStore(s ViewportStore) {
	c.store = s
}

// SetClock replaces the time source used for save debouncing.
func (c *Controller) SetClock(clock func() time.Time) {
	c.clock = clock
}

// SetPlacementMode turns click-to-place on or off.
func (c *Controller) SetPlacementMode(enabled bool) {
	c.placement = enabled
}

// PlacementMode reports whether click-to-place is active.
func (c *Controller) PlacementMode() bool {
	return c.placement
}

// --- Viewport ---

// Options returns the normalized options.
func (c *Controller) Options() Options {
	return c.opts
}

// Viewport returns the current transform.
func (c *Controller) Viewport() Viewport {
	return c.view
}

// ToScreen maps a logical point under the current viewport.
func (c *Controller) ToScreen(p LogicalPoint) ScreenPoint {
	return c.view.ToScreen(p)
}

// ToLogical maps a container-relative screen point to map coordinates.
func (c *Controller) ToLogical(p ScreenPoint) LogicalPoint {
	return c.view.ToLogical(p)
}

// SetViewport replaces the transform, clamped to the configured limits.
func (c *Controller) SetViewport(v Viewport) {
	c.commit(c.opts.Clamp(v))
}

// Reset returns to the initial viewport.
func (c *Controller) Reset() {
	c.commit(c.opts.Initial())
}

// Restore loads the persisted viewport, if any. It does not mark the
// viewport as unsaved.
func (c *Controller) Restore() bool {
	if c.store == nil {
		return false
	}
	v, ok := c.store.Load()
	if !ok {
		return false
	}
	c.view = c.opts.Clamp(v)
	c.markMoved()
	return true
}

// commit is the single place the viewport changes.
func (c *Controller) commit(v Viewport) {
	if v == c.view {
		return
	}
	c.view = v
	c.markMoved()
	c.unsaved = true
	c.lastChange = c.clock()
}

func (c *Controller) markMoved() {
	c.stale = true
	c.pending = true
}

// --- Wheel / context menu ---

// WheelResult tells the host how to finish the wheel event.
type WheelResult struct {
	// PreventDefault is always true: native page scroll and zoom must be suppressed.
	PreventDefault bool     `json:"preventDefault"`
	Zoomed         bool     `json:"zoomed"`
	Viewport       Viewport `json:"viewport"`
}

// Wheel zooms by one step around the container point at. deltaY < 0 zooms in.
// The logical point under at stays under at.
func (c *Controller) Wheel(at ScreenPoint, deltaY float64) WheelResult {
	res := WheelResult{PreventDefault: true, Viewport: c.view}
	if deltaY == 0 || !isFinite(deltaY) || !isFinite(at.X) || !isFinite(at.Y) {
		return res
	}

	factor := 1 - c.opts.ZoomStep
	if deltaY < 0 {
		factor = 1 + c.opts.ZoomStep
	}
	newScale := clamp(c.view.Scale*factor, c.opts.MinScale, c.opts.MaxScale)
	if newScale == c.view.Scale {
		return res
	}

	c.commit(c.view.ZoomAt(at, newScale))
	res.Zoomed = true
	res.Viewport = c.view
	return res
}

// ContextMenuResult carries the logical anchor for a placement menu.
type ContextMenuResult struct {
	PreventDefault bool         `json:"preventDefault"`
	Logical        LogicalPoint `json:"logical"`
	Screen         ScreenPoint  `json:"screen"`
	Valid          bool         `json:"valid"`
}

// ContextMenu converts a right-click location into the logical point a
// placement menu should act on.
func (c *Controller) ContextMenu(at ScreenPoint) ContextMenuResult {
	res := ContextMenuResult{PreventDefault: true, Screen: at}
	if !isFinite(at.X) || !isFinite(at.Y) {
		return res
	}
	res.Logical = c.view.ToLogical(at)
	res.Valid = true
	return res
}

// --- Positioned items ---

// SetItems replaces every item of one kind.
func (c *Controller) SetItems(kind ItemKind, items []Item) {
	if !kind.Valid() {
		return
	}
	c.scene.ReplaceKind(kind, items)
	c.markMoved()
}

// UpsertItem adds or updates a single item.
func (c *Controller) UpsertItem(it Item) {
	if !it.Kind.Valid() || it.ID == "" {
		return
	}
	c.scene.Upsert(it)
	c.markMoved()
}

// RemoveItem drops a single item.
func (c *Controller) RemoveItem(kind ItemKind, id string) {
	if c.scene.Remove(kind, id) {
		c.markMoved()
	}
}

// Scene exposes the retained scene graph for inspection.
func (c *Controller) Scene() *SceneGraph {
	return c.scene
}

// HitTest returns the topmost item under a container point.
func (c *Controller) HitTest(at ScreenPoint) Hit {
	c.ensurePositions()
	return c.scene.HitTest(at)
}

func (c *Controller) ensurePositions() {
	if !c.stale {
		return
	}
	c.scene.Reposition(c.view, c.opts.MarkerSize, c.opts.PointSize)
	c.stale = false
}

// --- Frame ---

// Tick is called once per animation frame. It returns at most one overlay
// batch, and only when the viewport or the item collection changed since the
// previous batch. It also flushes a debounced viewport save.
func (c *Controller) Tick() (OverlayBatch, bool) {
	c.flushSave()

	if !c.pending {
		return OverlayBatch{}, false
	}
	c.ensurePositions()
	c.pending = false
	c.seq++
	return CompileOverlay(c.scene, c.view, c.opts.MarkerSize, c.opts.PointSize, c.seq), true
}

func (c *Controller) flushSave() {
	if c.store == nil || !c.unsaved {
		return
	}
	debounce := time.Duration(c.opts.SaveDebounceMs) * time.Millisecond
	if c.clock().Sub(c.lastChange) < debounce {
		return
	}
	c.unsaved = false
	if err := c.store.Save(c.view); err != nil {
		slog.Warn("save viewport", "error", err)
	}
}
