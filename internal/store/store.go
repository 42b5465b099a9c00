// Package store persists the map document: organizations, polygons and
// popups. Postgres backs production; Memory backs tests and local runs
// without a database.
package store

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mapeditor/mapeditor/internal/document"
)

// ErrNotFound is returned when a referenced row does not exist.
var ErrNotFound = document.ErrNotFound

// Store is the persistence backend behind the REST API.
type Store interface {
	ListOrganizations(ctx context.Context) ([]document.Organization, error)
	GetOrganization(ctx context.Context, id string) (*document.Organization, error)
	CreateOrganization(ctx context.Context, o document.Organization) error
	UpdateOrganization(ctx context.Context, o document.Organization) error
	DeleteOrganization(ctx context.Context, id string) error

	// ListPopups returns every popup, companies included, with PolygonID set
	// for attached ones.
	ListPopups(ctx context.Context) ([]document.Popup, error)
	CreatePopup(ctx context.Context, p document.Popup) error
	DeletePopup(ctx context.Context, id string) error
	// MovePopup reassigns a popup to a polygon in one step. An empty
	// polygonID detaches it.
	MovePopup(ctx context.Context, popupID, polygonID string) error
	SetPopupImage(ctx context.Context, id, image string) error

	// ListPolygons returns polygons with their companies.
	ListPolygons(ctx context.Context) ([]document.Polygon, error)
	GetPolygon(ctx context.Context, id string) (*document.Polygon, error)
	CreatePolygon(ctx context.Context, p document.Polygon) error
	DeletePolygon(ctx context.Context, id string) error
	SetPolygonImage(ctx context.Context, id, image string) error

	Close()
}

var (
	_ Store = (*Memory)(nil)
	_ Store = (*Postgres)(nil)
)

// LoadDocument assembles the whole map from a store.
func LoadDocument(ctx context.Context, s Store) (*document.MapDocument, error) {
	orgs, err := s.ListOrganizations(ctx)
	if err != nil {
		return nil, fmt.Errorf("list organizations: %w", err)
	}
	polys, err := s.ListPolygons(ctx)
	if err != nil {
		return nil, fmt.Errorf("list polygons: %w", err)
	}
	popups, err := s.ListPopups(ctx)
	if err != nil {
		return nil, fmt.Errorf("list popups: %w", err)
	}

	doc := document.NewEmptyDocument()
	doc.Organizations = orgs
	doc.Polygons = polys
	for _, p := range popups {
		if p.PolygonID == "" {
			doc.Popups = append(doc.Popups, p)
		}
	}
	doc.ResolveOrganizations()
	return doc, nil
}

// SeedOrganizations fills an empty organization catalog with the built-in
// sample set.
func SeedOrganizations(ctx context.Context, s Store) error {
	existing, err := s.ListOrganizations(ctx)
	if err != nil {
		return fmt.Errorf("list organizations: %w", err)
	}
	if len(existing) > 0 {
		return nil
	}

	orgs := document.SampleOrganizations()
	for _, o := range orgs {
		if err := s.CreateOrganization(ctx, o); err != nil {
			return fmt.Errorf("seed organization %q: %w", o.Name, err)
		}
	}
	slog.Info("seeded organizations", "count", len(orgs))
	return nil
}
