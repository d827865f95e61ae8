package sink

import (
	"codeshare/domain"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

const mirrorChannelPrefix = "codeshare:session:"

// RedisMirror republishes every session event on a redis channel so other
// instances and tools can follow a session. Consume never blocks the
// session mailbox: when the buffer is full the event is dropped.
type RedisMirror struct {
	log    *slog.Logger
	client redis.UniversalClient
	events chan domain.Event
}

func NewRedisMirror(log *slog.Logger, client redis.UniversalClient, bufferSize int) *RedisMirror {
	return &RedisMirror{log: log, client: client, events: make(chan domain.Event, bufferSize)}
}

// MirrorChannel is the redis channel events of a session are published on.
func MirrorChannel(sessionID domain.SessionID) string {
	return mirrorChannelPrefix + string(sessionID)
}

// Buffer exposes the pending events for capacity sampling.
func (m *RedisMirror) Buffer() <-chan domain.Event {
	return m.events
}

func (m *RedisMirror) Consume(_ context.Context, e domain.Event) error {
	if e.Kind == domain.EventError {
		return nil
	}
	select {
	case m.events <- e:
	default:
		m.log.Debug("Redis mirror buffer full, dropping event", "session_id", e.SessionID, "kind", e.Kind)
	}
	return nil
}

func (m *RedisMirror) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case evt := <-m.events:
			if err := m.publish(ctx, evt); err != nil {
				m.log.Warn("Redis mirror publish failed", "session_id", evt.SessionID, "error", err)
			}
		}
	}
}

func (m *RedisMirror) publish(ctx context.Context, evt domain.Event) error {
	bytes, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("encoding event: %w", err)
	}
	return m.client.Publish(ctx, MirrorChannel(evt.SessionID), bytes).Err()
}
