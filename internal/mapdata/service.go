package mapdata

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mapeditor/mapeditor/internal/document"
	"github.com/mapeditor/mapeditor/internal/store"
	"github.com/mapeditor/mapeditor/internal/typeid"
)

var (
	ErrNotFound     = store.ErrNotFound
	ErrInvalidInput = errors.New("invalid input")
)

// Change kinds published after successful mutations.
const (
	ChangeOrganizationCreated = "organization.created"
	ChangeOrganizationUpdated = "organization.updated"
	ChangeOrganizationDeleted = "organization.deleted"
	ChangePopupCreated        = "popup.created"
	ChangePopupDeleted        = "popup.deleted"
	ChangePopupMoved          = "popup.moved"
	ChangePolygonCreated      = "polygon.created"
	ChangePolygonDeleted      = "polygon.deleted"
)

// Publisher fans document changes out to connected editors.
type Publisher interface {
	Publish(kind, entityID string, data any)
}

// ImageStore turns inline data URL images into stored files and returns the
// URL to reference instead.
type ImageStore interface {
	StoreDataURL(ctx context.Context, dataURL string) (string, error)
}

type Service struct {
	store     store.Store
	publisher Publisher
	images    ImageStore
}

// NewService creates the map data service. publisher and images may be nil.
func NewService(s store.Store, publisher Publisher, images ImageStore) *Service {
	return &Service{store: s, publisher: publisher, images: images}
}

type OrganizationInput struct {
	Name string `json:"name"`
	Type string `json:"type"`
	Icon string `json:"icon"`
}

type PopupInput struct {
	Position       document.Point `json:"position"`
	Image          string         `json:"image"`
	OrganizationID string         `json:"organizationId"`
	PolygonID      string         `json:"polygonId,omitempty"`
}

type PolygonInput struct {
	Points      []document.Point `json:"points"`
	Title       string           `json:"title"`
	HouseNumber string           `json:"houseNumber"`
	Image       string           `json:"image"`
	Companies   []PopupInput     `json:"companies"`
}

// --- Organizations ---

func (s *Service) ListOrganizations(ctx context.Context) ([]document.Organization, error) {
	orgs, err := s.store.ListOrganizations(ctx)
	if err != nil {
		return nil, fmt.Errorf("list organizations: %w", err)
	}
	return orgs, nil
}

func (s *Service) GetOrganization(ctx context.Context, id string) (*document.Organization, error) {
	return s.store.GetOrganization(ctx, id)
}

func (s *Service) CreateOrganization(ctx context.Context, in OrganizationInput) (*document.Organization, error) {
	org := organizationFromInput(typeid.NewOrganizationID(), in)
	if err := document.ValidateOrganization(org); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	if err := s.store.CreateOrganization(ctx, org); err != nil {
		return nil, fmt.Errorf("create organization: %w", err)
	}
	s.publish(ChangeOrganizationCreated, org.ID, org)
	return &org, nil
}

func (s *Service) UpdateOrganization(ctx context.Context, id string, in OrganizationInput) (*document.Organization, error) {
	org := organizationFromInput(id, in)
	if err := document.ValidateOrganization(org); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	if err := s.store.UpdateOrganization(ctx, org); err != nil {
		return nil, fmt.Errorf("update organization: %w", err)
	}
	s.publish(ChangeOrganizationUpdated, org.ID, org)
	return &org, nil
}

func (s *Service) DeleteOrganization(ctx context.Context, id string) error {
	if err := s.store.DeleteOrganization(ctx, id); err != nil {
		return fmt.Errorf("delete organization: %w", err)
	}
	s.publish(ChangeOrganizationDeleted, id, nil)
	return nil
}

// organizationFromInput fills a missing icon from the type catalog.
func organizationFromInput(id string, in OrganizationInput) document.Organization {
	org := document.Organization{
		ID:   id,
		Name: strings.TrimSpace(in.Name),
		Type: strings.TrimSpace(in.Type),
		Icon: strings.TrimSpace(in.Icon),
	}
	if org.Icon == "" {
		if t, ok := document.PopupTypes[org.Type]; ok {
			org.Icon = t.Icon
		}
	}
	return org
}

// --- Popups ---

func (s *Service) ListPopups(ctx context.Context) ([]document.Popup, error) {
	doc, err := s.Document(ctx)
	if err != nil {
		return nil, err
	}
	return doc.AllPopups(), nil
}

// CreatePopup creates a popup, attached to in.PolygonID when set.
func (s *Service) CreatePopup(ctx context.Context, in PopupInput) (*document.Popup, error) {
	p, err := s.popupFromInput(ctx, in)
	if err != nil {
		return nil, err
	}
	if p.PolygonID != "" {
		if _, err := s.store.GetPolygon(ctx, p.PolygonID); err != nil {
			return nil, fmt.Errorf("get polygon: %w", err)
		}
	}
	if err := s.store.CreatePopup(ctx, p); err != nil {
		return nil, fmt.Errorf("create popup: %w", err)
	}
	s.publish(ChangePopupCreated, p.ID, p)
	return &p, nil
}

// AddCompany creates a popup owned by polygonID.
func (s *Service) AddCompany(ctx context.Context, polygonID string, in PopupInput) (*document.Popup, error) {
	in.PolygonID = polygonID
	return s.CreatePopup(ctx, in)
}

func (s *Service) DeletePopup(ctx context.Context, id string) error {
	if err := s.store.DeletePopup(ctx, id); err != nil {
		return fmt.Errorf("delete popup: %w", err)
	}
	s.publish(ChangePopupDeleted, id, nil)
	return nil
}

// MovePopup reassigns a popup to polygonID; empty detaches it.
func (s *Service) MovePopup(ctx context.Context, id, polygonID string) error {
	if err := s.store.MovePopup(ctx, id, polygonID); err != nil {
		return fmt.Errorf("move popup: %w", err)
	}
	s.publish(ChangePopupMoved, id, map[string]string{"polygonId": polygonID})
	return nil
}

func (s *Service) popupFromInput(ctx context.Context, in PopupInput) (document.Popup, error) {
	p := document.Popup{
		ID:             typeid.NewPopupID(),
		Position:       in.Position,
		OrganizationID: in.OrganizationID,
		PolygonID:      in.PolygonID,
	}
	if err := document.ValidatePopup(p); err != nil {
		return p, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	org, err := s.store.GetOrganization(ctx, p.OrganizationID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return p, fmt.Errorf("%w: unknown organization %s", ErrInvalidInput, p.OrganizationID)
		}
		return p, fmt.Errorf("get organization: %w", err)
	}
	if p.Image, err = s.storeImage(ctx, in.Image); err != nil {
		return p, err
	}
	p.Organization = org
	return p, nil
}

// --- Polygons ---

func (s *Service) ListPolygons(ctx context.Context) ([]document.Polygon, error) {
	doc, err := s.Document(ctx)
	if err != nil {
		return nil, err
	}
	return doc.Polygons, nil
}

func (s *Service) GetPolygon(ctx context.Context, id string) (*document.Polygon, error) {
	return s.store.GetPolygon(ctx, id)
}

// CreatePolygon creates a polygon together with its initial companies.
func (s *Service) CreatePolygon(ctx context.Context, in PolygonInput) (*document.Polygon, error) {
	poly := document.Polygon{
		ID:          typeid.NewPolygonID(),
		Points:      in.Points,
		Title:       strings.TrimSpace(in.Title),
		HouseNumber: strings.TrimSpace(in.HouseNumber),
		Companies:   []document.Popup{},
	}
	if err := document.ValidatePolygon(poly); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}

	for _, c := range in.Companies {
		c.PolygonID = poly.ID
		p, err := s.popupFromInput(ctx, c)
		if err != nil {
			return nil, err
		}
		poly.Companies = append(poly.Companies, p)
	}

	var err error
	if poly.Image, err = s.storeImage(ctx, in.Image); err != nil {
		return nil, err
	}
	if err := s.store.CreatePolygon(ctx, poly); err != nil {
		return nil, fmt.Errorf("create polygon: %w", err)
	}
	s.publish(ChangePolygonCreated, poly.ID, poly)
	return &poly, nil
}

func (s *Service) DeletePolygon(ctx context.Context, id string) error {
	if err := s.store.DeletePolygon(ctx, id); err != nil {
		return fmt.Errorf("delete polygon: %w", err)
	}
	s.publish(ChangePolygonDeleted, id, nil)
	return nil
}

// Document returns the whole map with organizations resolved.
func (s *Service) Document(ctx context.Context) (*document.MapDocument, error) {
	return store.LoadDocument(ctx, s.store)
}

func (s *Service) storeImage(ctx context.Context, image string) (string, error) {
	if s.images == nil || !strings.HasPrefix(image, "data:") {
		return image, nil
	}
	url, err := s.images.StoreDataURL(ctx, image)
	if err != nil {
		return "", fmt.Errorf("store image: %w", err)
	}
	return url, nil
}

func (s *Service) publish(kind, id string, data any) {
	if s.publisher != nil {
		s.publisher.Publish(kind, id, data)
	}
}
