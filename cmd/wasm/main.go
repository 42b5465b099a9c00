//go:build js && wasm

package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"syscall/js"

	"github.com/mapeditor/mapeditor/internal/document"
	"github.com/mapeditor/mapeditor/internal/engine"
	"github.com/mapeditor/mapeditor/internal/uistate"
)

const (
	scaleKey     = "map.scale"
	translateKey = "map.translate"
)

var (
	ctrl *engine.Controller
	ui   *uistate.Store

	onPlacement js.Value
	onItemClick js.Value
	onUIChange  js.Value
)

func main() {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, nil)))

	setup(engine.DefaultOptions())

	mapEngine := js.Global().Get("Object").New()

	// --- Setup ---
	mapEngine.Set("configure", js.FuncOf(configure))
	mapEngine.Set("attachElement", js.FuncOf(attachElement))
	mapEngine.Set("onPlacement", js.FuncOf(func(this js.Value, args []js.Value) interface{} {
		onPlacement = callbackArg(args)
		return nil
	}))
	mapEngine.Set("onItemClick", js.FuncOf(func(this js.Value, args []js.Value) interface{} {
		onItemClick = callbackArg(args)
		return nil
	}))
	mapEngine.Set("onUIChange", js.FuncOf(func(this js.Value, args []js.Value) interface{} {
		onUIChange = callbackArg(args)
		return nil
	}))

	// --- Input ---
	mapEngine.Set("pointerDown", js.FuncOf(pointerDown))
	mapEngine.Set("pointerMove", js.FuncOf(pointerMove))
	mapEngine.Set("pointerUp", js.FuncOf(pointerUp))
	mapEngine.Set("cancelGesture", js.FuncOf(func(this js.Value, args []js.Value) interface{} {
		ctrl.CancelGesture()
		return nil
	}))
	mapEngine.Set("wheel", js.FuncOf(wheel))
	mapEngine.Set("contextMenu", js.FuncOf(contextMenu))

	// --- Items ---
	mapEngine.Set("loadDocument", js.FuncOf(loadDocument))
	mapEngine.Set("setItems", js.FuncOf(setItems))
	mapEngine.Set("upsertItem", js.FuncOf(upsertItem))
	mapEngine.Set("removeItem", js.FuncOf(removeItem))

	// --- Viewport ---
	mapEngine.Set("toScreen", js.FuncOf(toScreen))
	mapEngine.Set("toLogical", js.FuncOf(toLogical))
	mapEngine.Set("placementMode", js.FuncOf(func(this js.Value, args []js.Value) interface{} {
		return ctrl.PlacementMode()
	}))
	mapEngine.Set("viewport", js.FuncOf(func(this js.Value, args []js.Value) interface{} {
		return toJSON(ctrl.Viewport())
	}))
	mapEngine.Set("setViewport", js.FuncOf(setViewport))
	mapEngine.Set("reset", js.FuncOf(func(this js.Value, args []js.Value) interface{} {
		ctrl.Reset()
		return nil
	}))
	mapEngine.Set("tick", js.FuncOf(tick))

	// --- UI state ---
	mapEngine.Set("ui", js.FuncOf(uiDispatch))
	mapEngine.Set("uiState", js.FuncOf(func(this js.Value, args []js.Value) interface{} {
		return toJSON(ui.State())
	}))

	js.Global().Set("mapEngine", mapEngine)
	js.Global().Set("mapEngineReady", js.ValueOf(true))

	select {}
}

// setup builds the controller and the UI store around it. The store decides
// when click-to-place is on; placements and item clicks go to the store
// first, then to the page.
func setup(opts engine.Options) {
	ctrl = engine.NewController(opts)
	ctrl.SetViewportStore(localStorageViewport{})
	ctrl.Restore()

	ui = uistate.New(ctrl)
	ui.Subscribe(func(st uistate.State) {
		if onUIChange.Type() == js.TypeFunction {
			onUIChange.Invoke(toJSON(st))
		}
	})

	ctrl.SetPlacementSink(engine.PlacementFunc(func(p engine.LogicalPoint) {
		ui.Place(p)
		if onPlacement.Type() == js.TypeFunction {
			onPlacement.Invoke(p.X, p.Y)
		}
	}))
	ctrl.SetClickSink(engine.ClickFunc(func(h engine.Hit) {
		ui.ItemClicked(h)
		if onItemClick.Type() == js.TypeFunction {
			onItemClick.Invoke(h.ID, string(h.Kind))
		}
	}))
}

// --- Setup Handlers ---

func configure(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return errorResult("missing options JSON")
	}
	opts := engine.DefaultOptions()
	if err := json.Unmarshal([]byte(args[0].String()), &opts); err != nil {
		return errorResult(err.Error())
	}
	setup(opts)
	return okResult()
}

func attachElement(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 || args[0].Type() != js.TypeObject {
		ctrl.SetPointerCapturer(nil)
		return nil
	}
	ctrl.SetPointerCapturer(elementCapturer{el: args[0]})
	return nil
}

// --- Input Handlers ---

func pointerDown(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 {
		return nil
	}
	button, pointerID := engine.ButtonPrimary, 0
	if len(args) > 2 {
		button = engine.Button(args[2].Int())
	}
	if len(args) > 3 {
		pointerID = args[3].Int()
	}
	ctrl.PointerDown(screenArg(args), button, pointerID)
	return nil
}

func pointerMove(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 {
		return nil
	}
	pointerID := 0
	if len(args) > 2 {
		pointerID = args[2].Int()
	}
	ctrl.PointerMove(screenArg(args), pointerID)
	return nil
}

func pointerUp(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 {
		return nil
	}
	pointerID := 0
	if len(args) > 2 {
		pointerID = args[2].Int()
	}
	return toJSON(ctrl.PointerUp(screenArg(args), pointerID))
}

func wheel(this js.Value, args []js.Value) interface{} {
	if len(args) < 3 {
		return nil
	}
	return toJSON(ctrl.Wheel(screenArg(args), args[2].Float()))
}

func contextMenu(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 {
		return nil
	}
	return toJSON(ctrl.ContextMenu(screenArg(args)))
}

// --- Item Handlers ---

func loadDocument(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return errorResult("missing document JSON")
	}
	var doc document.MapDocument
	if err := json.Unmarshal([]byte(args[0].String()), &doc); err != nil {
		return errorResult(err.Error())
	}
	polygons, popups := document.ToEngineItems(&doc)
	ctrl.SetItems(engine.KindPolygon, polygons)
	ctrl.SetItems(engine.KindPopup, popups)
	return okResult()
}

func setItems(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 {
		return errorResult("missing kind or items JSON")
	}
	kind := engine.ItemKind(args[0].String())
	if !kind.Valid() {
		return errorResult(fmt.Sprintf("unknown item kind %q", kind))
	}
	var items []engine.Item
	if err := json.Unmarshal([]byte(args[1].String()), &items); err != nil {
		return errorResult(err.Error())
	}
	ctrl.SetItems(kind, items)
	return okResult()
}

func upsertItem(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return errorResult("missing item JSON")
	}
	var it engine.Item
	if err := json.Unmarshal([]byte(args[0].String()), &it); err != nil {
		return errorResult(err.Error())
	}
	if !it.Kind.Valid() {
		return errorResult(fmt.Sprintf("unknown item kind %q", it.Kind))
	}
	ctrl.UpsertItem(it)
	return okResult()
}

func removeItem(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 {
		return nil
	}
	ctrl.RemoveItem(engine.ItemKind(args[0].String()), args[1].String())
	return nil
}

// --- Viewport Handlers ---

func toScreen(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 {
		return nil
	}
	p := ctrl.ToScreen(engine.LogicalPoint{X: args[0].Float(), Y: args[1].Float()})
	return map[string]interface{}{"x": p.X, "y": p.Y}
}

func toLogical(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 {
		return nil
	}
	p := ctrl.ToLogical(screenArg(args))
	return map[string]interface{}{"x": p.X, "y": p.Y}
}

func setViewport(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return errorResult("missing viewport JSON")
	}
	var v engine.Viewport
	if err := json.Unmarshal([]byte(args[0].String()), &v); err != nil {
		return errorResult(err.Error())
	}
	ctrl.SetViewport(v)
	return okResult()
}

// tick returns the overlay batch JSON, or null when nothing changed.
func tick(this js.Value, args []js.Value) interface{} {
	batch, ok := ctrl.Tick()
	if !ok {
		return js.Null()
	}
	data, err := engine.BatchToJSON(batch)
	if err != nil {
		slog.Error("marshal overlay batch", "error", err)
		return js.Null()
	}
	return data
}

// --- UI state ---

// uiDispatch applies a named UI transition, e.g. ui("startMoving", id).
func uiDispatch(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return errorResult("missing action")
	}
	arg := ""
	if len(args) > 1 && args[1].Type() == js.TypeString {
		arg = args[1].String()
	}

	switch action := args[0].String(); action {
	case "openMenu":
		ui.OpenMenu()
	case "closeMenu":
		ui.CloseMenu()
	case "toggleMenu":
		ui.ToggleMenu()
	case "startMenuLoading":
		ui.StartMenuLoading()
	case "stopMenuLoading":
		ui.StopMenuLoading()
	case "openPolygonModal":
		ui.OpenPolygonModal()
	case "closePolygonModal":
		ui.ClosePolygonModal()
	case "openPolygonEditor":
		ui.OpenPolygonEditor()
	case "undoPolygonPoint":
		ui.UndoPolygonPoint()
	case "openCompanyModal":
		ui.OpenCompanyModal()
	case "closeCompanyModal":
		ui.CloseCompanyModal()
	case "openCompanyEditor":
		ui.OpenCompanyEditor()
	case "openOrganizationModal":
		ui.OpenOrganizationModal()
	case "closeOrganizationModal":
		ui.CloseOrganizationModal(arg)
	case "startMoving":
		ui.StartMoving(arg)
	case "stopMoving":
		ui.StopMoving()
	case "selectPolygonForMoving":
		ui.SelectPolygonForMoving(arg)
	default:
		return errorResult("unknown action " + action)
	}
	return okResult()
}

// --- Host adapters ---

// localStorageViewport keeps the viewport across page reloads.
type localStorageViewport struct{}

func (localStorageViewport) Load() (engine.Viewport, bool) {
	storage := js.Global().Get("localStorage")
	if storage.Type() != js.TypeObject {
		return engine.Viewport{}, false
	}
	rawScale := storage.Call("getItem", scaleKey)
	rawTranslate := storage.Call("getItem", translateKey)
	if rawScale.Type() != js.TypeString || rawTranslate.Type() != js.TypeString {
		return engine.Viewport{}, false
	}

	scale, err := strconv.ParseFloat(rawScale.String(), 64)
	if err != nil {
		return engine.Viewport{}, false
	}
	var t engine.ScreenPoint
	if err := json.Unmarshal([]byte(rawTranslate.String()), &t); err != nil {
		return engine.Viewport{}, false
	}
	return engine.Viewport{Scale: scale, TranslateX: t.X, TranslateY: t.Y}, true
}

func (localStorageViewport) Save(v engine.Viewport) (err error) {
	defer recoverJS(&err)
	storage := js.Global().Get("localStorage")
	if storage.Type() != js.TypeObject {
		return fmt.Errorf("localStorage unavailable")
	}
	translate, err := json.Marshal(engine.ScreenPoint{X: v.TranslateX, Y: v.TranslateY})
	if err != nil {
		return err
	}
	storage.Call("setItem", scaleKey, strconv.FormatFloat(v.Scale, 'f', -1, 64))
	storage.Call("setItem", translateKey, string(translate))
	return nil
}

// elementCapturer forwards pointer capture to the viewport container.
type elementCapturer struct {
	el js.Value
}

func (c elementCapturer) SetPointerCapture(pointerID int) (err error) {
	defer recoverJS(&err)
	c.el.Call("setPointerCapture", pointerID)
	return nil
}

func (c elementCapturer) ReleasePointerCapture(pointerID int) (err error) {
	defer recoverJS(&err)
	c.el.Call("releasePointerCapture", pointerID)
	return nil
}

// recoverJS turns a thrown JS exception into an error.
func recoverJS(err *error) {
	if r := recover(); r != nil {
		*err = fmt.Errorf("js: %v", r)
	}
}

// --- Helpers ---

func screenArg(args []js.Value) engine.ScreenPoint {
	return engine.ScreenPoint{X: args[0].Float(), Y: args[1].Float()}
}

func callbackArg(args []js.Value) js.Value {
	if len(args) < 1 || args[0].Type() != js.TypeFunction {
		return js.Undefined()
	}
	return args[0]
}

func toJSON(v interface{}) interface{} {
	data, err := json.Marshal(v)
	if err != nil {
		return errorResult(err.Error())
	}
	return string(data)
}

func okResult() interface{} {
	return map[string]interface{}{"ok": true}
}

func errorResult(msg string) interface{} {
	return map[string]interface{}{"error": msg}
}
