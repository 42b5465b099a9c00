package session

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/valkey-io/valkey-go"

	"github.com/mapeditor/mapeditor/internal/engine"
)

// Valkey stores viewports as JSON values that expire after ttl.
type Valkey struct {
	client valkey.Client
	ttl    time.Duration
}

// NewValkey connects to a Valkey (Redis-compatible) server at addr.
func NewValkey(addr string, ttl time.Duration) (*Valkey, error) {
	client, err := valkey.NewClient(valkey.ClientOption{
		InitAddress: []string{addr},
	})
	if err != nil {
		return nil, fmt.Errorf("valkey connect: %w", err)
	}
	return &Valkey{client: client, ttl: ttl}, nil
}

func (s *Valkey) Load(ctx context.Context, userID string) (engine.Viewport, error) {
	cmd := s.client.Do(ctx, s.client.B().Get().Key(key(userID)).Build())
	if err := cmd.Error(); err != nil {
		if valkey.IsValkeyNil(err) {
			return engine.Viewport{}, ErrNotFound
		}
		return engine.Viewport{}, fmt.Errorf("get viewport: %w", err)
	}
	b, err := cmd.AsBytes()
	if err != nil {
		return engine.Viewport{}, fmt.Errorf("get viewport: %w", err)
	}

	var v engine.Viewport
	if err := json.Unmarshal(b, &v); err != nil {
		return engine.Viewport{}, fmt.Errorf("decode viewport: %w", err)
	}
	return v, nil
}

func (s *Valkey) Save(ctx context.Context, userID string, v engine.Viewport) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode viewport: %w", err)
	}
	cmd := s.client.Do(ctx,
		s.client.B().Set().Key(key(userID)).Value(string(b)).Ex(s.ttl).Build(),
	)
	if err := cmd.Error(); err != nil {
		return fmt.Errorf("set viewport: %w", err)
	}
	return nil
}

// Ping checks the connection, for health reporting.
func (s *Valkey) Ping(ctx context.Context) error {
	return s.client.Do(ctx, s.client.B().Ping().Build()).Error()
}

func (s *Valkey) Close() {
	s.client.Close()
}
