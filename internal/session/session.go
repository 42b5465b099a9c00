// Package session keeps each user's last viewport so a returning editor
// resumes where it left off.
package session

import (
	"context"
	"errors"
	"sync"

	"github.com/mapeditor/mapeditor/internal/engine"
)

var ErrNotFound = errors.New("viewport not found")

// Store persists one viewport per user.
type Store interface {
	Load(ctx context.Context, userID string) (engine.Viewport, error)
	Save(ctx context.Context, userID string, v engine.Viewport) error
	Close()
}

var (
	_ Store = (*Memory)(nil)
	_ Store = (*Valkey)(nil)
)

func key(userID string) string {
	return "viewport:" + userID
}

// Memory is a process-local Store, used when no Valkey address is set.
type Memory struct {
	mu        sync.RWMutex
	viewports map[string]engine.Viewport
}

func NewMemory() *Memory {
	return &Memory{viewports: make(map[string]engine.Viewport)}
}

func (m *Memory) Load(ctx context.Context, userID string) (engine.Viewport, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.viewports[key(userID)]
	if !ok {
		return engine.Viewport{}, ErrNotFound
	}
	return v, nil
}

func (m *Memory) Save(ctx context.Context, userID string, v engine.Viewport) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.viewports[key(userID)] = v
	return nil
}

func (m *Memory) Close() {}
