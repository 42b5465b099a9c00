package engine_test

import (
	"errors"
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/mapeditor/mapeditor/internal/engine"
)

// ---- Fakes ----

type recordingSink struct {
	placed []engine.LogicalPoint
}

func (s *recordingSink) Place(p engine.LogicalPoint) { s.placed = append(s.placed, p) }

type failingCapturer struct {
	setCalls, releaseCalls int
}

func (f *failingCapturer) SetPointerCapture(int) error {
	f.setCalls++
	return errors.New("capture not allowed")
}

func (f *failingCapturer) ReleasePointerCapture(int) error {
	f.releaseCalls++
	return errors.New("capture already released")
}

type recordingCapturer struct {
	set, released []int
}

func (r *recordingCapturer) SetPointerCapture(id int) error {
	r.set = append(r.set, id)
	return nil
}

func (r *recordingCapturer) ReleasePointerCapture(id int) error {
	r.released = append(r.released, id)
	return nil
}

type memoryViewportStore struct {
	saved  []engine.Viewport
	loaded *engine.Viewport
}

func (m *memoryViewportStore) Load() (engine.Viewport, bool) {
	if m.loaded == nil {
		return engine.Viewport{}, false
	}
	return *m.loaded, true
}

func (m *memoryViewportStore) Save(v engine.Viewport) error {
	m.saved = append(m.saved, v)
	return nil
}

func newController() *engine.Controller {
	return engine.NewController(engine.DefaultOptions())
}

func pt(x, y float64) engine.ScreenPoint { return engine.ScreenPoint{X: x, Y: y} }

// ---- Zoom ----

func TestController_WheelScenarioA(t *testing.T) {
	c := newController()
	at := pt(100, 100)
	before := c.ToLogical(at)

	res := c.Wheel(at, -100)
	if !res.PreventDefault {
		t.Fatal("wheel must always prevent default")
	}
	if !res.Zoomed {
		t.Fatal("expected zoom to be applied")
	}

	v := c.Viewport()
	if !near(v.Scale, 1.12) {
		t.Fatalf("expected scale 1.12, got %v", v.Scale)
	}
	after := c.ToLogical(at)
	if !near(before.X, after.X) || !near(before.Y, after.Y) {
		t.Fatalf("point under cursor moved: %+v -> %+v", before, after)
	}
	p := engine.LogicalPoint{X: 420, Y: 17}
	if rt := c.ToLogical(c.ToScreen(p)); !near(rt.X, p.X) || !near(rt.Y, p.Y) {
		t.Fatalf("round trip failed after zoom: %+v", rt)
	}
}

func TestController_WheelAnchoringProperty(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	c := newController()

	for i := 0; i < 500; i++ {
		at := pt(rng.Float64()*1920, rng.Float64()*1080)
		delta := -100.0
		if rng.Intn(2) == 0 {
			delta = 100
		}
		before := c.ToLogical(at)
		c.Wheel(at, delta)
		after := c.ToLogical(at)
		if !near(before.X, after.X) || !near(before.Y, after.Y) {
			t.Fatalf("step %d: anchor moved %+v -> %+v", i, before, after)
		}
	}
}

func TestController_ScaleStaysClamped(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	c := newController()
	o := c.Options()

	for i := 0; i < 1000; i++ {
		delta := float64(rng.Intn(400) - 200)
		c.Wheel(pt(rng.Float64()*800, rng.Float64()*600), delta)
		s := c.Viewport().Scale
		if s < o.MinScale || s > o.MaxScale {
			t.Fatalf("step %d: scale %v outside [%v, %v]", i, s, o.MinScale, o.MaxScale)
		}
	}
}

func TestController_WheelAtLimitIsNoop(t *testing.T) {
	c := newController()
	for i := 0; i < 50; i++ {
		c.Wheel(pt(10, 10), -1)
	}
	v := c.Viewport()
	res := c.Wheel(pt(500, 500), -1)
	if res.Zoomed {
		t.Fatal("zoom past max scale should not apply")
	}
	if c.Viewport() != v {
		t.Fatalf("viewport changed at limit: %+v -> %+v", v, c.Viewport())
	}
}

func TestController_WheelIgnoresZeroAndNaN(t *testing.T) {
	c := newController()
	v := c.Viewport()

	if res := c.Wheel(pt(10, 10), 0); res.Zoomed || !res.PreventDefault {
		t.Fatalf("unexpected result for zero delta: %+v", res)
	}
	if res := c.Wheel(pt(math.NaN(), 10), -1); res.Zoomed || !res.PreventDefault {
		t.Fatalf("unexpected result for NaN position: %+v", res)
	}
	if c.Viewport() != v {
		t.Fatalf("viewport changed: %+v", c.Viewport())
	}
}

// ---- Pan / gestures ----

func TestController_ScenarioB_ClickPlaces(t *testing.T) {
	c := newController()
	sink := &recordingSink{}
	c.SetPlacementSink(sink)
	c.SetPlacementMode(true)

	c.PointerDown(pt(50, 50), engine.ButtonPrimary, 1)
	res := c.PointerUp(pt(50, 50), 1)

	if res.Kind != engine.GesturePlacement {
		t.Fatalf("expected placement, got %s", res.Kind)
	}
	if len(sink.placed) != 1 {
		t.Fatalf("expected exactly 1 placement, got %d", len(sink.placed))
	}
	want := c.ToLogical(pt(50, 50))
	if sink.placed[0] != want {
		t.Fatalf("expected %+v, got %+v", want, sink.placed[0])
	}
}

func TestController_ScenarioC_DragSuppressesPlacement(t *testing.T) {
	c := newController()
	sink := &recordingSink{}
	c.SetPlacementSink(sink)
	c.SetPlacementMode(true)

	c.PointerDown(pt(50, 50), engine.ButtonPrimary, 1)
	c.PointerMove(pt(60, 65), 1)
	res := c.PointerUp(pt(60, 65), 1)

	if res.Kind != engine.GesturePan {
		t.Fatalf("expected pan, got %s", res.Kind)
	}
	if len(sink.placed) != 0 {
		t.Fatalf("expected no placements, got %d", len(sink.placed))
	}
	v := c.Viewport()
	if v.TranslateX != 10 || v.TranslateY != 15 {
		t.Fatalf("expected translate (10, 15), got (%v, %v)", v.TranslateX, v.TranslateY)
	}
}

func TestController_SubThresholdJitterIsClick(t *testing.T) {
	c := newController()
	sink := &recordingSink{}
	c.SetPlacementSink(sink)

	c.PointerDown(pt(100, 100), engine.ButtonPrimary, 1)
	c.PointerMove(pt(101, 101), 1)
	c.PointerMove(pt(102, 100), 1)
	c.PointerMove(pt(100, 102), 1)
	res := c.PointerUp(pt(101, 100), 1)

	if res.Kind != engine.GestureClick {
		t.Fatalf("expected click with placement mode off, got %s", res.Kind)
	}
	if len(sink.placed) != 0 {
		t.Fatalf("placement mode off must not place, got %d", len(sink.placed))
	}
	if v := c.Viewport(); v.TranslateX != 0 || v.TranslateY != 0 {
		t.Fatalf("sub-threshold movement must not pan, got %+v", v)
	}
}

func TestController_SingleLargeMoveSuppressesClick(t *testing.T) {
	c := newController()
	sink := &recordingSink{}
	c.SetPlacementSink(sink)
	c.SetPlacementMode(true)

	c.PointerDown(pt(100, 100), engine.ButtonPrimary, 1)
	c.PointerMove(pt(140, 100), 1)
	c.PointerMove(pt(100, 100), 1) // back to origin
	res := c.PointerUp(pt(100, 100), 1)

	if res.Kind != engine.GesturePan {
		t.Fatalf("expected pan, got %s", res.Kind)
	}
	if len(sink.placed) != 0 {
		t.Fatal("a drag that returned to its origin must not place")
	}
}

func TestController_PanComposition(t *testing.T) {
	drag := func(c *engine.Controller, from engine.ScreenPoint, dx, dy float64) {
		c.PointerDown(from, engine.ButtonPrimary, 1)
		c.PointerMove(pt(from.X+dx/3, from.Y+dy/3), 1)
		c.PointerMove(pt(from.X+dx, from.Y+dy), 1)
		c.PointerUp(pt(from.X+dx, from.Y+dy), 1)
	}

	two := newController()
	drag(two, pt(200, 200), 37, -12)
	drag(two, pt(300, 150), -8, 54)

	one := newController()
	drag(one, pt(200, 200), 29, 42)

	a, b := two.Viewport(), one.Viewport()
	if !near(a.TranslateX, b.TranslateX) || !near(a.TranslateY, b.TranslateY) {
		t.Fatalf("two pans %+v != one pan %+v", a, b)
	}
}

func TestController_NonPrimaryButtonIgnored(t *testing.T) {
	c := newController()
	c.PointerDown(pt(0, 0), engine.ButtonSecondary, 1)
	c.PointerMove(pt(50, 50), 1)
	if res := c.PointerUp(pt(50, 50), 1); res.Kind != engine.GestureNone {
		t.Fatalf("expected none, got %s", res.Kind)
	}
	if v := c.Viewport(); v.TranslateX != 0 {
		t.Fatalf("secondary button must not pan, got %+v", v)
	}
}

func TestController_PlacementWithoutSinkIsDropped(t *testing.T) {
	c := newController()
	c.SetPlacementMode(true)

	c.PointerDown(pt(5, 5), engine.ButtonPrimary, 1)
	res := c.PointerUp(pt(5, 5), 1)
	if res.Kind != engine.GestureClick {
		t.Fatalf("expected click, got %s", res.Kind)
	}
}

func TestController_CaptureFailureDoesNotBreakDrag(t *testing.T) {
	c := newController()
	fc := &failingCapturer{}
	c.SetPointerCapturer(fc)

	c.PointerDown(pt(0, 0), engine.ButtonPrimary, 9)
	c.PointerMove(pt(20, 0), 9)
	res := c.PointerUp(pt(20, 0), 9)

	if fc.setCalls != 1 || fc.releaseCalls != 1 {
		t.Fatalf("expected one capture and one release, got %d/%d", fc.setCalls, fc.releaseCalls)
	}
	if res.Kind != engine.GesturePan {
		t.Fatalf("expected pan, got %s", res.Kind)
	}
	if c.Gesture().IsDragging {
		t.Fatal("gesture must be idle after pointer-up")
	}
	if v := c.Viewport(); v.TranslateX != 20 {
		t.Fatalf("expected translate 20, got %v", v.TranslateX)
	}
}

func TestController_SecondPointerIsIgnored(t *testing.T) {
	c := newController()
	sink := &recordingSink{}
	c.SetPlacementSink(sink)
	c.SetPlacementMode(true)
	rc := &recordingCapturer{}
	c.SetPointerCapturer(rc)

	c.PointerDown(pt(10, 10), engine.ButtonPrimary, 1)
	c.PointerMove(pt(30, 30), 1)

	// second finger lands, moves and lifts while the first is still down
	c.PointerDown(pt(200, 200), engine.ButtonPrimary, 2)
	c.PointerMove(pt(250, 250), 2)
	if res := c.PointerUp(pt(200, 200), 2); res.Kind != engine.GestureNone {
		t.Fatalf("second pointer must not end the gesture, got %+v", res)
	}
	if len(sink.placed) != 0 {
		t.Fatalf("second pointer placed %v", sink.placed)
	}
	if !c.Gesture().IsDragging {
		t.Fatal("first pointer's drag should still be active")
	}
	if v := c.Viewport(); v.TranslateX != 20 || v.TranslateY != 20 {
		t.Fatalf("second pointer moved the view: %+v", v)
	}

	if res := c.PointerUp(pt(30, 30), 1); res.Kind != engine.GesturePan {
		t.Fatalf("expected pan, got %s", res.Kind)
	}
	if len(sink.placed) != 0 {
		t.Fatal("a pan must not place")
	}
	if len(rc.set) != 1 || rc.set[0] != 1 || len(rc.released) != 1 || rc.released[0] != 1 {
		t.Fatalf("expected capture and release of pointer 1 only, got set=%v released=%v", rc.set, rc.released)
	}
}

func TestController_CancelReleasesRecordedPointer(t *testing.T) {
	c := newController()
	rc := &recordingCapturer{}
	c.SetPointerCapturer(rc)

	c.PointerDown(pt(0, 0), engine.ButtonPrimary, 7)
	c.CancelGesture()
	if len(rc.released) != 1 || rc.released[0] != 7 {
		t.Fatalf("expected release of pointer 7, got %v", rc.released)
	}
	if res := c.PointerUp(pt(0, 0), 7); res.Kind != engine.GestureNone {
		t.Fatalf("expected no gesture after cancel, got %s", res.Kind)
	}
}

func TestController_SetItemsSkipsEmptyIDs(t *testing.T) {
	c := newController()
	c.SetItems(engine.KindPopup, []engine.Item{
		{ID: "", Points: []engine.LogicalPoint{{X: 100, Y: 100}}},
		{ID: "pop", Points: []engine.LogicalPoint{{X: 300, Y: 300}}},
	})
	if n := c.Scene().Len(); n != 1 {
		t.Fatalf("expected 1 node, got %d", n)
	}

	// the press over the dropped item is a plain surface press
	c.PointerDown(pt(100, 100), engine.ButtonPrimary, 1)
	if !c.Gesture().IsDragging {
		t.Fatal("expected a surface drag, not an item press")
	}
	c.PointerUp(pt(100, 100), 1)

	batch, ok := c.Tick()
	if !ok {
		t.Fatal("expected a batch")
	}
	for _, it := range batch.Items {
		if it.ID == "" {
			t.Fatal("empty id painted")
		}
	}
}

func TestController_PointerUpWhenIdle(t *testing.T) {
	c := newController()
	if res := c.PointerUp(pt(1, 1), 1); res.Kind != engine.GestureNone {
		t.Fatalf("expected none, got %s", res.Kind)
	}
}

// ---- Items, hit testing, clicks ----

func square(id string, x0, y0, x1, y1 float64) engine.Item {
	return engine.Item{ID: id, Kind: engine.KindPolygon, Points: []engine.LogicalPoint{
		{X: x0, Y: y0}, {X: x1, Y: y0}, {X: x1, Y: y1}, {X: x0, Y: y1},
	}}
}

func TestController_HitTestZOrder(t *testing.T) {
	c := newController()
	c.SetItems(engine.KindPolygon, []engine.Item{square("poly", 0, 0, 200, 200)})
	c.SetItems(engine.KindPopup, []engine.Item{{ID: "pop", Points: []engine.LogicalPoint{{X: 100, Y: 100}}}})
	c.SetItems(engine.KindTransientPoint, []engine.Item{{ID: "p0", Points: []engine.LogicalPoint{{X: 100, Y: 100}}}})

	if h := c.HitTest(pt(100, 100)); h.Kind != engine.KindTransientPoint || h.ID != "p0" {
		t.Fatalf("expected transient point on top, got %+v", h)
	}

	c.RemoveItem(engine.KindTransientPoint, "p0")
	if h := c.HitTest(pt(100, 100)); h.Kind != engine.KindPopup {
		t.Fatalf("expected popup, got %+v", h)
	}

	if h := c.HitTest(pt(20, 180)); h.Kind != engine.KindPolygon || h.ID != "poly" {
		t.Fatalf("expected polygon, got %+v", h)
	}
	if h := c.HitTest(pt(250, 250)); !h.Empty() {
		t.Fatalf("expected no hit outside polygon, got %+v", h)
	}
}

func TestController_PolygonHitUsesRegionNotBounds(t *testing.T) {
	c := newController()
	// Right triangle: the bounding box corner (190, 10) lies outside.
	c.SetItems(engine.KindPolygon, []engine.Item{{ID: "tri", Points: []engine.LogicalPoint{
		{X: 0, Y: 0}, {X: 0, Y: 200}, {X: 200, Y: 200},
	}}})

	if h := c.HitTest(pt(190, 10)); !h.Empty() {
		t.Fatalf("point outside triangle hit %+v", h)
	}
	if h := c.HitTest(pt(20, 150)); h.ID != "tri" {
		t.Fatalf("point inside triangle missed: %+v", h)
	}
}

func TestController_HitTestFollowsTransform(t *testing.T) {
	c := newController()
	c.SetItems(engine.KindPopup, []engine.Item{{ID: "pop", Points: []engine.LogicalPoint{{X: 100, Y: 100}}}})
	c.SetViewport(engine.Viewport{Scale: 2, TranslateX: 50, TranslateY: 0})

	s := c.ToScreen(engine.LogicalPoint{X: 100, Y: 100})
	if h := c.HitTest(s); h.ID != "pop" {
		t.Fatalf("expected popup at %+v, got %+v", s, h)
	}
	if h := c.HitTest(pt(100, 100)); !h.Empty() {
		t.Fatalf("stale position still hit: %+v", h)
	}
}

func TestController_MarkerClick(t *testing.T) {
	c := newController()
	var clicks []engine.Hit
	c.SetClickSink(engine.ClickFunc(func(h engine.Hit) { clicks = append(clicks, h) }))
	sink := &recordingSink{}
	c.SetPlacementSink(sink)
	c.SetPlacementMode(true)
	c.SetItems(engine.KindPopup, []engine.Item{{ID: "pop", Points: []engine.LogicalPoint{{X: 100, Y: 100}}}})

	c.PointerDown(pt(101, 99), engine.ButtonPrimary, 1)
	res := c.PointerUp(pt(101, 99), 1)

	if res.Kind != engine.GestureItemClick || res.Hit.ID != "pop" {
		t.Fatalf("expected item click on pop, got %+v", res)
	}
	if len(clicks) != 1 {
		t.Fatalf("expected 1 click, got %d", len(clicks))
	}
	if len(sink.placed) != 0 {
		t.Fatal("clicking a marker must not place a point")
	}
	if v := c.Viewport(); v.TranslateX != 0 || v.TranslateY != 0 {
		t.Fatalf("pressing a marker must not pan: %+v", v)
	}
}

func TestController_DragReleasedOverMarkerDoesNotSelect(t *testing.T) {
	c := newController()
	clicks := 0
	c.SetClickSink(engine.ClickFunc(func(engine.Hit) { clicks++ }))
	c.SetItems(engine.KindPopup, []engine.Item{{ID: "pop", Points: []engine.LogicalPoint{{X: 300, Y: 300}}}})

	c.PointerDown(pt(100, 100), engine.ButtonPrimary, 1)
	c.PointerMove(pt(200, 200), 1)
	c.PointerMove(pt(300, 300), 1)
	res := c.PointerUp(pt(300, 300), 1)

	if res.Kind != engine.GesturePan {
		t.Fatalf("expected pan, got %s", res.Kind)
	}
	if clicks != 0 {
		t.Fatalf("expected no clicks, got %d", clicks)
	}
}

func TestController_PressOnMarkerThenMoveIsNotClick(t *testing.T) {
	c := newController()
	clicks := 0
	c.SetClickSink(engine.ClickFunc(func(engine.Hit) { clicks++ }))
	c.SetItems(engine.KindPopup, []engine.Item{{ID: "pop", Points: []engine.LogicalPoint{{X: 100, Y: 100}}}})

	c.PointerDown(pt(100, 100), engine.ButtonPrimary, 1)
	c.PointerMove(pt(110, 100), 1)
	c.PointerMove(pt(100, 100), 1)
	res := c.PointerUp(pt(100, 100), 1)

	if res.Kind != engine.GestureNone || clicks != 0 {
		t.Fatalf("expected no click, got %s with %d clicks", res.Kind, clicks)
	}
}

func TestController_HoverPolygon(t *testing.T) {
	c := newController()
	c.SetItems(engine.KindPolygon, []engine.Item{square("a", 0, 0, 100, 100), square("b", 200, 0, 300, 100)})
	c.Tick()

	c.PointerMove(pt(250, 50), 1)
	batch, ok := c.Tick()
	if !ok {
		t.Fatal("hover change should produce a batch")
	}
	for _, it := range batch.Items {
		if it.Hovered != (it.ID == "b") {
			t.Fatalf("unexpected hover state for %s: %v", it.ID, it.Hovered)
		}
	}

	c.PointerMove(pt(260, 60), 1)
	if _, ok := c.Tick(); ok {
		t.Fatal("unchanged hover must not produce a batch")
	}
}

// ---- Frames ----

func TestController_TickCoalescesBatches(t *testing.T) {
	c := newController()
	c.SetItems(engine.KindPopup, []engine.Item{{ID: "pop", Points: []engine.LogicalPoint{{X: 10, Y: 20}}}})
	c.Tick()

	c.PointerDown(pt(0, 0), engine.ButtonPrimary, 1)
	for i := 1; i <= 30; i++ {
		c.PointerMove(pt(float64(i*5), float64(i*2)), 1)
	}
	c.PointerUp(pt(150, 60), 1)

	batch, ok := c.Tick()
	if !ok {
		t.Fatal("expected a batch after panning")
	}
	if _, again := c.Tick(); again {
		t.Fatal("expected exactly one batch per change burst")
	}

	if len(batch.Items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(batch.Items))
	}
	want := c.ToScreen(engine.LogicalPoint{X: 10, Y: 20})
	size := c.Options().MarkerSize
	got := batch.Items[0]
	if !near(got.Left, want.X-size/2) || !near(got.Top, want.Y-size/2) {
		t.Fatalf("marker at (%v, %v), want centered on %+v", got.Left, got.Top, want)
	}
	if batch.Background[0] != batch.Viewport.Scale || batch.Background[4] != batch.Viewport.TranslateX {
		t.Fatalf("background transform %v does not match viewport %+v", batch.Background, batch.Viewport)
	}
}

func TestController_BatchOrderAndPolygonPath(t *testing.T) {
	c := newController()
	c.SetItems(engine.KindTransientPoint, []engine.Item{{ID: "pt", Points: []engine.LogicalPoint{{X: 1, Y: 1}}}})
	c.SetItems(engine.KindPopup, []engine.Item{{ID: "pop", Points: []engine.LogicalPoint{{X: 1, Y: 1}}}})
	c.SetItems(engine.KindPolygon, []engine.Item{square("sq", 0, 0, 10, 10)})

	batch, ok := c.Tick()
	if !ok {
		t.Fatal("expected a batch")
	}
	kinds := []engine.ItemKind{engine.KindPolygon, engine.KindPopup, engine.KindTransientPoint}
	for i, k := range kinds {
		if batch.Items[i].Kind != k {
			t.Fatalf("item %d: expected %s, got %s", i, k, batch.Items[i].Kind)
		}
	}
	if p := batch.Items[0].Path; p != "M0.00,0.00 L10.00,0.00 L10.00,10.00 L0.00,10.00 Z" {
		t.Fatalf("unexpected path %q", p)
	}
}

func TestController_ItemEditsProduceBatch(t *testing.T) {
	c := newController()
	c.Tick()

	c.UpsertItem(engine.Item{ID: "x", Kind: engine.KindPopup, Points: []engine.LogicalPoint{{X: 5, Y: 5}}})
	if _, ok := c.Tick(); !ok {
		t.Fatal("adding an item should produce a batch")
	}
	c.RemoveItem(engine.KindPopup, "missing")
	if _, ok := c.Tick(); ok {
		t.Fatal("removing an unknown item must not produce a batch")
	}
	c.RemoveItem(engine.KindPopup, "x")
	batch, ok := c.Tick()
	if !ok || len(batch.Items) != 0 {
		t.Fatalf("expected empty batch after removal, got %v %+v", ok, batch.Items)
	}
}

// ---- Context menu ----

func TestController_ContextMenu(t *testing.T) {
	c := newController()
	c.SetViewport(engine.Viewport{Scale: 2, TranslateX: 10, TranslateY: 20})

	res := c.ContextMenu(pt(110, 220))
	if !res.PreventDefault || !res.Valid {
		t.Fatalf("unexpected result %+v", res)
	}
	if res.Logical.X != 50 || res.Logical.Y != 100 {
		t.Fatalf("expected logical (50, 100), got %+v", res.Logical)
	}
}

// ---- Persistence ----

func TestController_SaveIsDebounced(t *testing.T) {
	now := time.Unix(1000, 0)
	c := newController()
	c.SetClock(func() time.Time { return now })
	store := &memoryViewportStore{}
	c.SetViewportStore(store)

	c.Wheel(pt(0, 0), -1)
	now = now.Add(100 * time.Millisecond)
	c.Wheel(pt(0, 0), -1)
	c.Tick()
	if len(store.saved) != 0 {
		t.Fatalf("saved before quiet period: %d", len(store.saved))
	}

	now = now.Add(time.Duration(c.Options().SaveDebounceMs) * time.Millisecond)
	c.Tick()
	if len(store.saved) != 1 {
		t.Fatalf("expected 1 save, got %d", len(store.saved))
	}
	if store.saved[0] != c.Viewport() {
		t.Fatalf("saved %+v, current %+v", store.saved[0], c.Viewport())
	}

	now = now.Add(time.Second)
	c.Tick()
	if len(store.saved) != 1 {
		t.Fatalf("unchanged viewport saved again: %d", len(store.saved))
	}
}

func TestController_RestoreClamps(t *testing.T) {
	c := newController()
	store := &memoryViewportStore{loaded: &engine.Viewport{Scale: 40, TranslateX: -5, TranslateY: 7}}
	c.SetViewportStore(store)

	if !c.Restore() {
		t.Fatal("expected restore to succeed")
	}
	v := c.Viewport()
	if v.Scale != c.Options().MaxScale || v.TranslateX != -5 || v.TranslateY != 7 {
		t.Fatalf("unexpected restored viewport %+v", v)
	}
	c.Tick()
	if len(store.saved) != 0 {
		t.Fatal("restoring must not schedule a save")
	}
}
