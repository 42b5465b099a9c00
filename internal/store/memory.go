package store

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/mapeditor/mapeditor/internal/document"
)

// Memory keeps the document in process. Safe for concurrent use.
type Memory struct {
	mu  sync.RWMutex
	doc *document.MapDocument
}

func NewMemory() *Memory {
	return &Memory{doc: document.NewEmptyDocument()}
}

func (m *Memory) Close() {}

func (m *Memory) ListOrganizations(ctx context.Context) ([]document.Organization, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.doc.Organizations), nil
}

func (m *Memory) GetOrganization(ctx context.Context, id string) (*document.Organization, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	o, ok := m.doc.FindOrganization(id)
	if !ok {
		return nil, fmt.Errorf("organization %s: %w", id, ErrNotFound)
	}
	out := *o
	return &out, nil
}

func (m *Memory) CreateOrganization(ctx context.Context, o document.Organization) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.doc.Organizations = append(m.doc.Organizations, o)
	return nil
}

func (m *Memory) UpdateOrganization(ctx context.Context, o document.Organization) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.doc.FindOrganization(o.ID)
	if !ok {
		return fmt.Errorf("organization %s: %w", o.ID, ErrNotFound)
	}
	*existing = o
	return nil
}

func (m *Memory) DeleteOrganization(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	i := slices.IndexFunc(m.doc.Organizations, func(o document.Organization) bool { return o.ID == id })
	if i < 0 {
		return fmt.Errorf("organization %s: %w", id, ErrNotFound)
	}
	m.doc.Organizations = slices.Delete(m.doc.Organizations, i, i+1)
	return nil
}

func (m *Memory) ListPopups(ctx context.Context) ([]document.Popup, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.doc.AllPopups(), nil
}

func (m *Memory) CreatePopup(ctx context.Context, p document.Popup) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p.Organization = nil
	if p.PolygonID != "" {
		return m.doc.AddCompany(p.PolygonID, p)
	}
	m.doc.Popups = append(m.doc.Popups, p)
	return nil
}

func (m *Memory) DeletePopup(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.doc.RemovePopup(id)
}

func (m *Memory) MovePopup(ctx context.Context, popupID, polygonID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.doc.MovePopup(popupID, polygonID)
}

func (m *Memory) SetPopupImage(ctx context.Context, id, image string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.doc.Popups {
		if m.doc.Popups[i].ID == id {
			m.doc.Popups[i].Image = image
			return nil
		}
	}
	for i := range m.doc.Polygons {
		for j := range m.doc.Polygons[i].Companies {
			if m.doc.Polygons[i].Companies[j].ID == id {
				m.doc.Polygons[i].Companies[j].Image = image
				return nil
			}
		}
	}
	return fmt.Errorf("popup %s: %w", id, ErrNotFound)
}

func (m *Memory) ListPolygons(ctx context.Context) ([]document.Polygon, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]document.Polygon, len(m.doc.Polygons))
	for i, p := range m.doc.Polygons {
		out[i] = clonePolygon(p)
	}
	return out, nil
}

func (m *Memory) GetPolygon(ctx context.Context, id string) (*document.Polygon, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.doc.FindPolygon(id)
	if !ok {
		return nil, fmt.Errorf("polygon %s: %w", id, ErrNotFound)
	}
	out := clonePolygon(*p)
	return &out, nil
}

func (m *Memory) CreatePolygon(ctx context.Context, p document.Polygon) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p = clonePolygon(p)
	for i := range p.Companies {
		p.Companies[i].PolygonID = p.ID
	}
	m.doc.Polygons = append(m.doc.Polygons, p)
	return nil
}

func (m *Memory) DeletePolygon(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.doc.RemovePolygon(id)
}

func (m *Memory) SetPolygonImage(ctx context.Context, id, image string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.doc.FindPolygon(id)
	if !ok {
		return fmt.Errorf("polygon %s: %w", id, ErrNotFound)
	}
	p.Image = image
	return nil
}

func clonePolygon(p document.Polygon) document.Polygon {
	p.Points = slices.Clone(p.Points)
	p.Companies = slices.Clone(p.Companies)
	if p.Companies == nil {
		p.Companies = []document.Popup{}
	}
	for i := range p.Companies {
		p.Companies[i].PolygonID = p.ID
	}
	return p
}
