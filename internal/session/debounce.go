package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/mapeditor/mapeditor/internal/engine"
	"github.com/mapeditor/mapeditor/internal/metrics"
)

const saveTimeout = 5 * time.Second

type pending struct {
	timer    *time.Timer
	viewport engine.Viewport
}

// Debouncer coalesces rapid viewport saves per user. Only the last value
// seen within delay is written.
type Debouncer struct {
	store Store
	opts  engine.Options
	delay time.Duration

	mu      sync.Mutex
	pending map[string]*pending
}

func NewDebouncer(store Store, opts engine.Options, delay time.Duration) *Debouncer {
	return &Debouncer{
		store:   store,
		opts:    opts.Normalize(),
		delay:   delay,
		pending: make(map[string]*pending),
	}
}

// Save schedules v to be written for userID, replacing any value still
// waiting. The viewport is clamped to the configured scale limits.
func (d *Debouncer) Save(userID string, v engine.Viewport) {
	v = d.opts.Clamp(v)

	d.mu.Lock()
	defer d.mu.Unlock()

	if p, ok := d.pending[userID]; ok {
		p.viewport = v
		p.timer.Reset(d.delay)
		return
	}
	p := &pending{viewport: v}
	p.timer = time.AfterFunc(d.delay, func() { d.fire(userID, p) })
	d.pending[userID] = p
}

// Load returns the stored viewport for userID, preferring a value that has
// not been written yet.
func (d *Debouncer) Load(ctx context.Context, userID string) (engine.Viewport, error) {
	d.mu.Lock()
	if p, ok := d.pending[userID]; ok {
		v := p.viewport
		d.mu.Unlock()
		return v, nil
	}
	d.mu.Unlock()

	v, err := d.store.Load(ctx, userID)
	if err != nil {
		return engine.Viewport{}, err
	}
	return d.opts.Clamp(v), nil
}

// Flush writes every pending viewport immediately.
func (d *Debouncer) Flush() {
	d.mu.Lock()
	batch := d.pending
	d.pending = make(map[string]*pending)
	d.mu.Unlock()

	for userID, p := range batch {
		p.timer.Stop()
		d.write(userID, p.viewport)
	}
}

func (d *Debouncer) fire(userID string, p *pending) {
	d.mu.Lock()
	if d.pending[userID] != p {
		// flushed or replaced meanwhile
		d.mu.Unlock()
		return
	}
	delete(d.pending, userID)
	v := p.viewport
	d.mu.Unlock()

	d.write(userID, v)
}

func (d *Debouncer) write(userID string, v engine.Viewport) {
	ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
	defer cancel()

	if err := d.store.Save(ctx, userID, v); err != nil {
		metrics.ViewportSaves.WithLabelValues("error").Inc()
		slog.Warn("save viewport", "error", err, "user", userID)
		return
	}
	metrics.ViewportSaves.WithLabelValues("ok").Inc()
}
