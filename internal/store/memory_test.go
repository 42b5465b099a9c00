package store_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/mapeditor/mapeditor/internal/document"
	"github.com/mapeditor/mapeditor/internal/store"
)

func seeded(t *testing.T) *store.Memory {
	t.Helper()
	ctx := context.Background()
	m := store.NewMemory()
	must := func(err error) {
		t.Helper()
		if err != nil {
			t.Fatal(err)
		}
	}
	must(m.CreateOrganization(ctx, document.Organization{ID: "org_1", Name: "Binco", Type: "Clothes"}))
	must(m.CreatePolygon(ctx, document.Polygon{ID: "poly_a", Title: "A", Points: []document.Point{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 1, Y: 1}}}))
	must(m.CreatePolygon(ctx, document.Polygon{ID: "poly_b", Title: "B", Points: []document.Point{{X: 2, Y: 0}, {X: 3, Y: 0}, {X: 3, Y: 1}}}))
	must(m.CreatePopup(ctx, document.Popup{ID: "popup_1", OrganizationID: "org_1"}))
	must(m.CreatePopup(ctx, document.Popup{ID: "popup_2", OrganizationID: "org_1", PolygonID: "poly_a"}))
	return m
}

func TestMemory_LoadDocument(t *testing.T) {
	m := seeded(t)
	doc, err := store.LoadDocument(context.Background(), m)
	if err != nil {
		t.Fatalf("LoadDocument: %v", err)
	}
	if len(doc.Popups) != 1 || doc.Popups[0].ID != "popup_1" {
		t.Fatalf("unexpected unattached popups %+v", doc.Popups)
	}
	if len(doc.Polygons[0].Companies) != 1 {
		t.Fatalf("expected 1 company on poly_a, got %d", len(doc.Polygons[0].Companies))
	}
	if doc.Popups[0].Organization == nil || doc.Popups[0].Organization.Name != "Binco" {
		t.Fatalf("organization not resolved: %+v", doc.Popups[0].Organization)
	}
}

func TestMemory_MovePopup(t *testing.T) {
	ctx := context.Background()
	m := seeded(t)

	if err := m.MovePopup(ctx, "popup_2", "poly_b"); err != nil {
		t.Fatalf("MovePopup: %v", err)
	}
	a, _ := m.GetPolygon(ctx, "poly_a")
	b, _ := m.GetPolygon(ctx, "poly_b")
	if len(a.Companies) != 0 || len(b.Companies) != 1 {
		t.Fatalf("after move: a=%d b=%d", len(a.Companies), len(b.Companies))
	}

	if err := m.MovePopup(ctx, "popup_2", "poly_nope"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMemory_ReadsAreCopies(t *testing.T) {
	ctx := context.Background()
	m := seeded(t)

	p, err := m.GetPolygon(ctx, "poly_a")
	if err != nil {
		t.Fatal(err)
	}
	p.Points[0].X = 99
	p.Companies[0].Image = "mutated"

	again, _ := m.GetPolygon(ctx, "poly_a")
	if again.Points[0].X != 0 || again.Companies[0].Image != "" {
		t.Fatalf("store state leaked through read: %+v", again)
	}
}

func TestMemory_NotFound(t *testing.T) {
	ctx := context.Background()
	m := seeded(t)

	checks := map[string]error{
		"get org":      func() error { _, err := m.GetOrganization(ctx, "x"); return err }(),
		"update org":   m.UpdateOrganization(ctx, document.Organization{ID: "x"}),
		"delete org":   m.DeleteOrganization(ctx, "x"),
		"delete popup": m.DeletePopup(ctx, "x"),
		"popup image":  m.SetPopupImage(ctx, "x", ""),
		"get poly":     func() error { _, err := m.GetPolygon(ctx, "x"); return err }(),
		"delete poly":  m.DeletePolygon(ctx, "x"),
		"poly image":   m.SetPolygonImage(ctx, "x", ""),
	}
	for name, err := range checks {
		if !errors.Is(err, store.ErrNotFound) {
			t.Errorf("%s: expected ErrNotFound, got %v", name, err)
		}
	}
}

func TestMemory_SetImages(t *testing.T) {
	ctx := context.Background()
	m := seeded(t)

	if err := m.SetPopupImage(ctx, "popup_2", "/assets/a.webp"); err != nil {
		t.Fatal(err)
	}
	if err := m.SetPolygonImage(ctx, "poly_a", "/assets/b.webp"); err != nil {
		t.Fatal(err)
	}
	p, _ := m.GetPolygon(ctx, "poly_a")
	if p.Image != "/assets/b.webp" || p.Companies[0].Image != "/assets/a.webp" {
		t.Fatalf("images not updated: %+v", p)
	}
}

func TestSeedOrganizations(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemory()

	if err := store.SeedOrganizations(ctx, m); err != nil {
		t.Fatal(err)
	}
	first, _ := m.ListOrganizations(ctx)
	if len(first) == 0 {
		t.Fatal("expected seeded organizations")
	}
	if err := store.SeedOrganizations(ctx, m); err != nil {
		t.Fatal(err)
	}
	second, _ := m.ListOrganizations(ctx)
	if len(second) != len(first) {
		t.Fatalf("seeding twice changed count %d -> %d", len(first), len(second))
	}
}

func TestMemory_ConcurrentMoves(t *testing.T) {
	ctx := context.Background()
	m := seeded(t)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			target := "poly_a"
			if i%2 == 0 {
				target = "poly_b"
			}
			_ = m.MovePopup(ctx, "popup_1", target)
		}(i)
	}
	wg.Wait()

	popups, _ := m.ListPopups(ctx)
	n := 0
	for _, p := range popups {
		if p.ID == "popup_1" {
			n++
		}
	}
	if n != 1 {
		t.Fatalf("popup_1 present %d times", n)
	}
}
