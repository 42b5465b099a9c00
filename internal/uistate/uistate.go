// Package uistate holds the editor's UI visibility state: the side menu, the
// polygon, company and organization modals and the move-popup flow. A Store
// is created once and passed to whatever needs it. Like the engine it is
// driven from a single event loop and is not safe for concurrent use.
package uistate

import "github.com/mapeditor/mapeditor/internal/engine"

// ModalMode is the visibility of a modal that can hand control back to the
// map to pick points.
type ModalMode string

const (
	ModalHidden  ModalMode = "hidden"
	ModalVisible ModalMode = "visible"
	ModalEdit    ModalMode = "edit" // modal collapsed while the user clicks the map
)

type MenuState struct {
	Open    bool `json:"open"`
	Loading bool `json:"loading"`
}

type PolygonModalState struct {
	Mode   ModalMode             `json:"mode"`
	Points []engine.LogicalPoint `json:"points"`
}

type CompanyModalState struct {
	Mode  ModalMode            `json:"mode"`
	Point *engine.LogicalPoint `json:"point,omitempty"`
}

type OrganizationModalState struct {
	Open bool `json:"open"`
	// CreatedID is the organization created by the last submit, so the modal
	// that opened this one can preselect it.
	CreatedID string `json:"createdId,omitempty"`
}

type MovePopupState struct {
	Selecting bool   `json:"selecting"`
	PopupID   string `json:"popupId,omitempty"`
	PolygonID string `json:"polygonId,omitempty"`
}

// State is a snapshot of the whole UI state.
type State struct {
	Menu              MenuState              `json:"menu"`
	PolygonModal      PolygonModalState      `json:"polygonModal"`
	CompanyModal      CompanyModalState      `json:"companyModal"`
	OrganizationModal OrganizationModalState `json:"organizationModal"`
	MovePopup         MovePopupState         `json:"movePopup"`
}

// PlacementToggler is the part of the viewport engine the store drives:
// click-to-place is on exactly while a modal is in edit mode.
type PlacementToggler interface {
	SetPlacementMode(enabled bool)
	PlacementMode() bool
}

// Listener is called with the new state after every change.
type Listener func(State)

type Store struct {
	state     State
	placement PlacementToggler

	listeners map[int]Listener
	nextID    int
}

var (
	_ engine.PlacementSink = (*Store)(nil)
	_ engine.ClickSink     = (*Store)(nil)
)

// New returns a store with everything closed. placement may be nil.
func New(placement PlacementToggler) *Store {
	return &Store{
		state: State{
			PolygonModal: PolygonModalState{Mode: ModalHidden},
			CompanyModal: CompanyModalState{Mode: ModalHidden},
		},
		placement: placement,
		listeners: make(map[int]Listener),
	}
}

// State returns a copy of the current state.
func (s *Store) State() State {
	st := s.state
	st.PolygonModal.Points = append([]engine.LogicalPoint(nil), s.state.PolygonModal.Points...)
	if p := s.state.CompanyModal.Point; p != nil {
		pt := *p
		st.CompanyModal.Point = &pt
	}
	return st
}

// Subscribe registers l and returns a function that removes it.
func (s *Store) Subscribe(l Listener) (unsubscribe func()) {
	id := s.nextID
	s.nextID++
	s.listeners[id] = l
	return func() { delete(s.listeners, id) }
}

func (s *Store) update(fn func(st *State)) {
	before := s.State()
	fn(&s.state)
	s.syncPlacement()
	if equal(before, s.state) {
		return
	}
	snapshot := s.State()
	for _, l := range s.listeners {
		l(snapshot)
	}
}

// syncPlacement compares against the engine's actual mode, so a toggle made
// behind the store's back is undone by the next update.
func (s *Store) syncPlacement() {
	if s.placement == nil {
		return
	}
	want := s.state.PolygonModal.Mode == ModalEdit || s.state.CompanyModal.Mode == ModalEdit
	if s.placement.PlacementMode() != want {
		s.placement.SetPlacementMode(want)
	}
}

// --- Menu ---

func (s *Store) OpenMenu()         { s.update(func(st *State) { st.Menu.Open = true }) }
func (s *Store) CloseMenu()        { s.update(func(st *State) { st.Menu.Open = false }) }
func (s *Store) ToggleMenu()       { s.update(func(st *State) { st.Menu.Open = !st.Menu.Open }) }
func (s *Store) StartMenuLoading() { s.update(func(st *State) { st.Menu.Loading = true }) }
func (s *Store) StopMenuLoading()  { s.update(func(st *State) { st.Menu.Loading = false }) }

// --- Polygon modal ---

// OpenPolygonModal shows the polygon form. Coming back from edit mode keeps
// the points collected so far.
func (s *Store) OpenPolygonModal() {
	s.update(func(st *State) { st.PolygonModal.Mode = ModalVisible })
}

// ClosePolygonModal hides the form and discards the draft.
func (s *Store) ClosePolygonModal() {
	s.update(func(st *State) {
		st.PolygonModal = PolygonModalState{Mode: ModalHidden}
	})
}

// OpenPolygonEditor collapses the form so map clicks add vertices.
func (s *Store) OpenPolygonEditor() {
	s.update(func(st *State) { st.PolygonModal.Mode = ModalEdit })
}

// UndoPolygonPoint drops the last collected vertex.
func (s *Store) UndoPolygonPoint() {
	s.update(func(st *State) {
		if n := len(st.PolygonModal.Points); n > 0 {
			st.PolygonModal.Points = st.PolygonModal.Points[:n-1]
		}
	})
}

// --- Company modal ---

func (s *Store) OpenCompanyModal() {
	s.update(func(st *State) { st.CompanyModal.Mode = ModalVisible })
}

func (s *Store) CloseCompanyModal() {
	s.update(func(st *State) {
		st.CompanyModal = CompanyModalState{Mode: ModalHidden}
	})
}

// OpenCompanyEditor collapses the company form until the user picks the
// company's location on the map.
func (s *Store) OpenCompanyEditor() {
	s.update(func(st *State) { st.CompanyModal.Mode = ModalEdit })
}

// --- Organization modal ---

func (s *Store) OpenOrganizationModal() {
	s.update(func(st *State) {
		st.OrganizationModal = OrganizationModalState{Open: true}
	})
}

// CloseOrganizationModal closes the modal; createdID is the organization
// just created, or empty when cancelled.
func (s *Store) CloseOrganizationModal(createdID string) {
	s.update(func(st *State) {
		st.OrganizationModal = OrganizationModalState{CreatedID: createdID}
	})
}

// --- Move popup ---

// StartMoving begins choosing a destination polygon for popupID.
func (s *Store) StartMoving(popupID string) {
	s.update(func(st *State) {
		st.MovePopup = MovePopupState{Selecting: true, PopupID: popupID}
	})
}

func (s *Store) StopMoving() {
	s.update(func(st *State) { st.MovePopup = MovePopupState{} })
}

// SelectPolygonForMoving records the destination; empty detaches.
func (s *Store) SelectPolygonForMoving(polygonID string) {
	s.update(func(st *State) { st.MovePopup.PolygonID = polygonID })
}

// --- Engine sinks ---

// Place routes a map click to the modal in edit mode: polygon vertices
// accumulate, a company location is taken and its form reopened.
func (s *Store) Place(p engine.LogicalPoint) {
	switch {
	case s.state.PolygonModal.Mode == ModalEdit:
		s.update(func(st *State) {
			st.PolygonModal.Points = append(st.PolygonModal.Points, p)
		})
	case s.state.CompanyModal.Mode == ModalEdit:
		s.update(func(st *State) {
			pt := p
			st.CompanyModal.Point = &pt
			st.CompanyModal.Mode = ModalVisible
		})
	}
}

// ItemClicked picks the destination polygon while a popup is being moved.
// Other clicks are left to the caller.
func (s *Store) ItemClicked(h engine.Hit) {
	if !s.state.MovePopup.Selecting || h.Kind != engine.KindPolygon {
		return
	}
	s.update(func(st *State) {
		st.MovePopup.PolygonID = h.ID
		st.MovePopup.Selecting = false
	})
}

func equal(a, b State) bool {
	if a.Menu != b.Menu || a.OrganizationModal != b.OrganizationModal || a.MovePopup != b.MovePopup {
		return false
	}
	if a.PolygonModal.Mode != b.PolygonModal.Mode || len(a.PolygonModal.Points) != len(b.PolygonModal.Points) {
		return false
	}
	for i := range a.PolygonModal.Points {
		if a.PolygonModal.Points[i] != b.PolygonModal.Points[i] {
			return false
		}
	}
	if a.CompanyModal.Mode != b.CompanyModal.Mode {
		return false
	}
	ap, bp := a.CompanyModal.Point, b.CompanyModal.Point
	return (ap == nil) == (bp == nil) && (ap == nil || *ap == *bp)
}
