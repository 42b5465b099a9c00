package session_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/mapeditor/mapeditor/internal/engine"
	"github.com/mapeditor/mapeditor/internal/session"
)

type mockStore struct {
	mu     sync.Mutex
	saves  []engine.Viewport
	saveFn func(userID string, v engine.Viewport) error
}

func (m *mockStore) Load(ctx context.Context, userID string) (engine.Viewport, error) {
	return engine.Viewport{}, session.ErrNotFound
}

func (m *mockStore) Save(ctx context.Context, userID string, v engine.Viewport) error {
	m.mu.Lock()
	m.saves = append(m.saves, v)
	m.mu.Unlock()
	if m.saveFn != nil {
		return m.saveFn(userID, v)
	}
	return nil
}

func (m *mockStore) Close() {}

func (m *mockStore) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.saves)
}

func (m *mockStore) last() engine.Viewport {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves[len(m.saves)-1]
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestMemory_LoadSave(t *testing.T) {
	m := session.NewMemory()
	ctx := context.Background()

	if _, err := m.Load(ctx, "u1"); !errors.Is(err, session.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	want := engine.Viewport{Scale: 2, TranslateX: 10, TranslateY: -5}
	if err := m.Save(ctx, "u1", want); err != nil {
		t.Fatal(err)
	}
	got, err := m.Load(ctx, "u1")
	if err != nil || got != want {
		t.Fatalf("got %+v, %v", got, err)
	}
}

func TestDebouncer_CoalescesRapidSaves(t *testing.T) {
	store := &mockStore{}
	d := session.NewDebouncer(store, engine.DefaultOptions(), 20*time.Millisecond)

	for i := 1; i <= 10; i++ {
		d.Save("u1", engine.Viewport{Scale: 1, TranslateX: float64(i)})
	}

	waitFor(t, func() bool { return store.count() > 0 })
	time.Sleep(40 * time.Millisecond)

	if n := store.count(); n != 1 {
		t.Fatalf("expected 1 write, got %d", n)
	}
	if got := store.last(); got.TranslateX != 10 {
		t.Fatalf("expected last value to win, got %+v", got)
	}
}

func TestDebouncer_ClampsScale(t *testing.T) {
	store := &mockStore{}
	d := session.NewDebouncer(store, engine.DefaultOptions(), time.Hour)

	d.Save("u1", engine.Viewport{Scale: 40})
	d.Flush()

	if got := store.last(); got.Scale != 4 {
		t.Fatalf("expected scale clamped to 4, got %v", got.Scale)
	}
}

func TestDebouncer_LoadPrefersPending(t *testing.T) {
	mem := session.NewMemory()
	ctx := context.Background()
	mem.Save(ctx, "u1", engine.Viewport{Scale: 1})

	d := session.NewDebouncer(mem, engine.DefaultOptions(), time.Hour)
	d.Save("u1", engine.Viewport{Scale: 2})

	got, err := d.Load(ctx, "u1")
	if err != nil || got.Scale != 2 {
		t.Fatalf("expected pending value, got %+v, %v", got, err)
	}

	d.Flush()
	stored, _ := mem.Load(ctx, "u1")
	if stored.Scale != 2 {
		t.Fatalf("flush did not write: %+v", stored)
	}
}

func TestDebouncer_SaveErrorIsSwallowed(t *testing.T) {
	store := &mockStore{saveFn: func(string, engine.Viewport) error {
		return errors.New("connection refused")
	}}
	d := session.NewDebouncer(store, engine.DefaultOptions(), time.Hour)

	d.Save("u1", engine.Viewport{Scale: 1})
	d.Flush()

	if store.count() != 1 {
		t.Fatalf("expected one attempted write, got %d", store.count())
	}
}

func TestDebouncer_SeparateUsers(t *testing.T) {
	store := &mockStore{}
	d := session.NewDebouncer(store, engine.DefaultOptions(), time.Hour)

	d.Save("u1", engine.Viewport{Scale: 1})
	d.Save("u2", engine.Viewport{Scale: 2})
	d.Flush()

	if store.count() != 2 {
		t.Fatalf("expected one write per user, got %d", store.count())
	}
}
