package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mapeditor/mapeditor/internal/document"
)

const schema = `
CREATE TABLE IF NOT EXISTS organizations (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	type       TEXT NOT NULL,
	icon       TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS polygons (
	id           TEXT PRIMARY KEY,
	title        TEXT NOT NULL,
	house_number TEXT NOT NULL DEFAULT '',
	image        TEXT NOT NULL DEFAULT '',
	points       JSONB NOT NULL,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS popups (
	id              TEXT PRIMARY KEY,
	x               DOUBLE PRECISION NOT NULL,
	y               DOUBLE PRECISION NOT NULL,
	image           TEXT NOT NULL DEFAULT '',
	organization_id TEXT NOT NULL,
	polygon_id      TEXT REFERENCES polygons(id) ON DELETE CASCADE,
	created_at      TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS popups_polygon_id_idx ON popups (polygon_id);
`

// Postgres stores the document in three tables. A popup's owning polygon is
// the nullable popups.polygon_id column, so ownership is a single value.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres connects and verifies the pool.
func NewPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	cfg.MaxConns = 20

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	return &Postgres{pool: pool}, nil
}

// Migrate creates the schema if it does not exist.
func (s *Postgres) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// Pool exposes the connection pool for metrics collection.
func (s *Postgres) Pool() *pgxpool.Pool {
	return s.pool
}

func (s *Postgres) Close() {
	s.pool.Close()
}

// --- Organizations ---

func (s *Postgres) ListOrganizations(ctx context.Context) ([]document.Organization, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, name, type, icon FROM organizations ORDER BY created_at, id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	orgs := []document.Organization{}
	for rows.Next() {
		var o document.Organization
		if err := rows.Scan(&o.ID, &o.Name, &o.Type, &o.Icon); err != nil {
			return nil, err
		}
		orgs = append(orgs, o)
	}
	return orgs, rows.Err()
}

func (s *Postgres) GetOrganization(ctx context.Context, id string) (*document.Organization, error) {
	var o document.Organization
	err := s.pool.QueryRow(ctx, `
		SELECT id, name, type, icon FROM organizations WHERE id = $1
	`, id).Scan(&o.ID, &o.Name, &o.Type, &o.Icon)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("organization %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func (s *Postgres) CreateOrganization(ctx context.Context, o document.Organization) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO organizations (id, name, type, icon) VALUES ($1, $2, $3, $4)
	`, o.ID, o.Name, o.Type, o.Icon)
	return err
}

func (s *Postgres) UpdateOrganization(ctx context.Context, o document.Organization) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE organizations SET name = $2, type = $3, icon = $4 WHERE id = $1
	`, o.ID, o.Name, o.Type, o.Icon)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("organization %s: %w", o.ID, ErrNotFound)
	}
	return nil
}

func (s *Postgres) DeleteOrganization(ctx context.Context, id string) error {
	return s.deleteByID(ctx, "organizations", "organization", id)
}

// --- Popups ---

func (s *Postgres) ListPopups(ctx context.Context) ([]document.Popup, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, x, y, image, organization_id, COALESCE(polygon_id, '')
		FROM popups ORDER BY created_at, id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanPopups(rows)
}

func (s *Postgres) CreatePopup(ctx context.Context, p document.Popup) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO popups (id, x, y, image, organization_id, polygon_id)
		VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''))
	`, p.ID, p.Position.X, p.Position.Y, p.Image, p.OrganizationID, p.PolygonID)
	return err
}

func (s *Postgres) DeletePopup(ctx context.Context, id string) error {
	return s.deleteByID(ctx, "popups", "popup", id)
}

func (s *Postgres) MovePopup(ctx context.Context, popupID, polygonID string) error {
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if polygonID != "" {
			var exists bool
			if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM polygons WHERE id = $1)`, polygonID).Scan(&exists); err != nil {
				return err
			}
			if !exists {
				return fmt.Errorf("polygon %s: %w", polygonID, ErrNotFound)
			}
		}

		tag, err := tx.Exec(ctx, `
			UPDATE popups SET polygon_id = NULLIF($2, '') WHERE id = $1
		`, popupID, polygonID)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("popup %s: %w", popupID, ErrNotFound)
		}
		return nil
	})
}

func (s *Postgres) SetPopupImage(ctx context.Context, id, image string) error {
	return s.setImage(ctx, "popups", "popup", id, image)
}

// --- Polygons ---

func (s *Postgres) ListPolygons(ctx context.Context) ([]document.Polygon, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, title, house_number, image, points FROM polygons ORDER BY created_at, id
	`)
	if err != nil {
		return nil, err
	}
	polys, err := scanPolygons(rows)
	if err != nil {
		return nil, err
	}

	popups, err := s.ListPopups(ctx)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]*document.Polygon, len(polys))
	for i := range polys {
		byID[polys[i].ID] = &polys[i]
	}
	for _, p := range popups {
		if owner, ok := byID[p.PolygonID]; ok {
			owner.Companies = append(owner.Companies, p)
		}
	}
	return polys, nil
}

func (s *Postgres) GetPolygon(ctx context.Context, id string) (*document.Polygon, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, title, house_number, image, points FROM polygons WHERE id = $1
	`, id)
	if err != nil {
		return nil, err
	}
	polys, err := scanPolygons(rows)
	if err != nil {
		return nil, err
	}
	if len(polys) == 0 {
		return nil, fmt.Errorf("polygon %s: %w", id, ErrNotFound)
	}
	poly := &polys[0]

	rows, err = s.pool.Query(ctx, `
		SELECT id, x, y, image, organization_id, COALESCE(polygon_id, '')
		FROM popups WHERE polygon_id = $1 ORDER BY created_at, id
	`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	if poly.Companies, err = scanPopups(rows); err != nil {
		return nil, err
	}
	return poly, nil
}

// CreatePolygon inserts the polygon and any companies it carries in one
// transaction.
func (s *Postgres) CreatePolygon(ctx context.Context, p document.Polygon) error {
	points, err := json.Marshal(p.Points)
	if err != nil {
		return fmt.Errorf("marshal points: %w", err)
	}

	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `
			INSERT INTO polygons (id, title, house_number, image, points)
			VALUES ($1, $2, $3, $4, $5)
		`, p.ID, p.Title, p.HouseNumber, p.Image, points); err != nil {
			return err
		}

		for _, c := range p.Companies {
			if _, err := tx.Exec(ctx, `
				INSERT INTO popups (id, x, y, image, organization_id, polygon_id)
				VALUES ($1, $2, $3, $4, $5, $6)
			`, c.ID, c.Position.X, c.Position.Y, c.Image, c.OrganizationID, p.ID); err != nil {
				return fmt.Errorf("insert company %s: %w", c.ID, err)
			}
		}
		return nil
	})
}

func (s *Postgres) DeletePolygon(ctx context.Context, id string) error {
	return s.deleteByID(ctx, "polygons", "polygon", id)
}

func (s *Postgres) SetPolygonImage(ctx context.Context, id, image string) error {
	return s.setImage(ctx, "polygons", "polygon", id, image)
}

// --- helpers ---

// table is always one of the constant table names above.
func (s *Postgres) deleteByID(ctx context.Context, table, noun, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM `+table+` WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s %s: %w", noun, id, ErrNotFound)
	}
	return nil
}

func (s *Postgres) setImage(ctx context.Context, table, noun, id, image string) error {
	tag, err := s.pool.Exec(ctx, `UPDATE `+table+` SET image = $2 WHERE id = $1`, id, image)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s %s: %w", noun, id, ErrNotFound)
	}
	return nil
}

func scanPopups(rows pgx.Rows) ([]document.Popup, error) {
	popups := []document.Popup{}
	for rows.Next() {
		var p document.Popup
		if err := rows.Scan(&p.ID, &p.Position.X, &p.Position.Y, &p.Image, &p.OrganizationID, &p.PolygonID); err != nil {
			return nil, err
		}
		popups = append(popups, p)
	}
	return popups, rows.Err()
}

func scanPolygons(rows pgx.Rows) ([]document.Polygon, error) {
	defer rows.Close()

	polys := []document.Polygon{}
	for rows.Next() {
		var (
			p      document.Polygon
			points []byte
		)
		if err := rows.Scan(&p.ID, &p.Title, &p.HouseNumber, &p.Image, &points); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(points, &p.Points); err != nil {
			return nil, fmt.Errorf("decode points of polygon %s: %w", p.ID, err)
		}
		p.Companies = []document.Popup{}
		polys = append(polys, p)
	}
	return polys, rows.Err()
}
