package document

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

var (
	ErrNotFound       = errors.New("not found")
	ErrInvalidPoint   = errors.New("invalid point")
	ErrInvalidPolygon = errors.New("polygon needs at least 3 points")
	ErrMissingField   = errors.New("missing required field")
)

// Point is a position in logical map coordinates (background image pixels).
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Valid reports whether both coordinates are finite.
func (p Point) Valid() bool {
	return !math.IsNaN(p.X) && !math.IsInf(p.X, 0) && !math.IsNaN(p.Y) && !math.IsInf(p.Y, 0)
}

// Organization is a catalog entry a popup refers to.
type Organization struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Type string `json:"type"`
	Icon string `json:"icon"`
}

// Popup is a point of interest marker. It belongs to at most one polygon;
// PolygonID is empty for unattached popups.
type Popup struct {
	ID             string        `json:"id"`
	Position       Point         `json:"position"`
	Image          string        `json:"image"`
	OrganizationID string        `json:"organizationId"`
	Organization   *Organization `json:"organization,omitempty"`
	PolygonID      string        `json:"polygonId,omitempty"`
}

// Polygon is a building footprint. Companies are the popups it owns.
type Polygon struct {
	ID          string  `json:"id"`
	Points      []Point `json:"points"`
	Title       string  `json:"title"`
	HouseNumber string  `json:"houseNumber"`
	Image       string  `json:"image"`
	Companies   []Popup `json:"companies"`
}

// MapDocument is the full editable map: the organization catalog, polygons
// with their companies, and the popups that are not attached to any polygon.
type MapDocument struct {
	Organizations []Organization `json:"organizations"`
	Polygons      []Polygon      `json:"polygons"`
	Popups        []Popup        `json:"popups"`
}

// NewEmptyDocument creates a document with no content.
func NewEmptyDocument() *MapDocument {
	return &MapDocument{
		Organizations: []Organization{},
		Polygons:      []Polygon{},
		Popups:        []Popup{},
	}
}

// ValidateOrganization checks the fields an organization must carry.
func ValidateOrganization(o Organization) error {
	if strings.TrimSpace(o.Name) == "" {
		return fmt.Errorf("%w: name", ErrMissingField)
	}
	if strings.TrimSpace(o.Type) == "" {
		return fmt.Errorf("%w: type", ErrMissingField)
	}
	return nil
}

// ValidatePopup checks position and organization reference.
func ValidatePopup(p Popup) error {
	if !p.Position.Valid() {
		return ErrInvalidPoint
	}
	if p.OrganizationID == "" {
		return fmt.Errorf("%w: organizationId", ErrMissingField)
	}
	return nil
}

// ValidatePolygon checks the vertex ring and title.
func ValidatePolygon(p Polygon) error {
	if len(p.Points) < 3 {
		return ErrInvalidPolygon
	}
	for _, pt := range p.Points {
		if !pt.Valid() {
			return ErrInvalidPoint
		}
	}
	if strings.TrimSpace(p.Title) == "" {
		return fmt.Errorf("%w: title", ErrMissingField)
	}
	return nil
}

// AllPopups returns unattached popups followed by every polygon's companies,
// each tagged with its owning polygon.
func (d *MapDocument) AllPopups() []Popup {
	out := make([]Popup, 0, len(d.Popups))
	out = append(out, d.Popups...)
	for _, poly := range d.Polygons {
		for _, c := range poly.Companies {
			c.PolygonID = poly.ID
			out = append(out, c)
		}
	}
	return out
}

// FindPopup locates a popup wherever it lives.
func (d *MapDocument) FindPopup(id string) (Popup, bool) {
	for _, p := range d.Popups {
		if p.ID == id {
			return p, true
		}
	}
	for _, poly := range d.Polygons {
		for _, c := range poly.Companies {
			if c.ID == id {
				c.PolygonID = poly.ID
				return c, true
			}
		}
	}
	return Popup{}, false
}

// FindPolygon returns the polygon with id.
func (d *MapDocument) FindPolygon(id string) (*Polygon, bool) {
	for i := range d.Polygons {
		if d.Polygons[i].ID == id {
			return &d.Polygons[i], true
		}
	}
	return nil, false
}

// FindOrganization returns the organization with id.
func (d *MapDocument) FindOrganization(id string) (*Organization, bool) {
	for i := range d.Organizations {
		if d.Organizations[i].ID == id {
			return &d.Organizations[i], true
		}
	}
	return nil, false
}

// MovePopup reassigns a popup to polygonID, or detaches it when polygonID is
// empty. The popup is taken out of its current owner and inserted into the
// new one in a single step, so it is never in two places.
func (d *MapDocument) MovePopup(popupID, polygonID string) error {
	var target *Polygon
	if polygonID != "" {
		var ok bool
		if target, ok = d.FindPolygon(polygonID); !ok {
			return fmt.Errorf("polygon %s: %w", polygonID, ErrNotFound)
		}
	}

	popup, ok := d.takePopup(popupID)
	if !ok {
		return fmt.Errorf("popup %s: %w", popupID, ErrNotFound)
	}
	popup.PolygonID = polygonID

	if target == nil {
		d.Popups = append(d.Popups, popup)
		return nil
	}
	target.Companies = append(target.Companies, popup)
	return nil
}

// AddCompany attaches a new popup to a polygon.
func (d *MapDocument) AddCompany(polygonID string, p Popup) error {
	poly, ok := d.FindPolygon(polygonID)
	if !ok {
		return fmt.Errorf("polygon %s: %w", polygonID, ErrNotFound)
	}
	p.PolygonID = polygonID
	poly.Companies = append(poly.Companies, p)
	return nil
}

// RemovePopup deletes a popup from wherever it lives.
func (d *MapDocument) RemovePopup(id string) error {
	if _, ok := d.takePopup(id); !ok {
		return fmt.Errorf("popup %s: %w", id, ErrNotFound)
	}
	return nil
}

// RemovePolygon deletes a polygon together with its companies.
func (d *MapDocument) RemovePolygon(id string) error {
	for i := range d.Polygons {
		if d.Polygons[i].ID == id {
			d.Polygons = append(d.Polygons[:i], d.Polygons[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("polygon %s: %w", id, ErrNotFound)
}

// ResolveOrganizations fills each popup's Organization from the catalog.
func (d *MapDocument) ResolveOrganizations() {
	byID := make(map[string]*Organization, len(d.Organizations))
	for i := range d.Organizations {
		byID[d.Organizations[i].ID] = &d.Organizations[i]
	}
	resolve := func(p *Popup) {
		if o, ok := byID[p.OrganizationID]; ok {
			org := *o
			p.Organization = &org
		}
	}
	for i := range d.Popups {
		resolve(&d.Popups[i])
	}
	for i := range d.Polygons {
		for j := range d.Polygons[i].Companies {
			resolve(&d.Polygons[i].Companies[j])
		}
	}
}

func (d *MapDocument) takePopup(id string) (Popup, bool) {
	for i, p := range d.Popups {
		if p.ID == id {
			d.Popups = append(d.Popups[:i], d.Popups[i+1:]...)
			return p, true
		}
	}
	for i := range d.Polygons {
		companies := d.Polygons[i].Companies
		for j, c := range companies {
			if c.ID == id {
				d.Polygons[i].Companies = append(companies[:j], companies[j+1:]...)
				return c, true
			}
		}
	}
	return Popup{}, false
}
