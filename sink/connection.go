package sink

import (
	"codeshare/domain"
	"codeshare/errors"
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// Connection is the per-participant outbound stream of one gateway connection.
// The gateway drains Events until Done is closed.
type Connection struct {
	ID          string
	SessionID   domain.SessionID
	UserID      string
	DisplayName string
	events      chan domain.Event
	done        chan struct{}
	closed      atomic.Bool
	once        sync.Once
}

func NewConnection(sessionID domain.SessionID, userID, displayName string, bufferSize int) *Connection {
	return &Connection{
		ID:          uuid.NewString(),
		SessionID:   sessionID,
		UserID:      userID,
		DisplayName: displayName,
		events:      make(chan domain.Event, bufferSize),
		done:        make(chan struct{}),
	}
}

// Consume is called by the fanout.
// It blocks while the buffer is full, until ctx expires.
func (c *Connection) Consume(ctx context.Context, e domain.Event) error {
	if c.closed.Load() {
		return errors.ErrConnectionClosed
	}
	select {
	case c.events <- e:
		return nil
	case <-c.done:
		return errors.ErrConnectionClosed
	case <-ctx.Done():
		return fmt.Errorf("%w: %s: %v", errors.ErrSinkTimeout, c.ID, ctx.Err())
	}
}

func (c *Connection) Events() <-chan domain.Event {
	return c.events
}

func (c *Connection) Done() <-chan struct{} {
	return c.done
}

// Close marks the connection as gone. It reports whether this call closed it.
func (c *Connection) Close() bool {
	first := c.closed.CompareAndSwap(false, true)
	c.once.Do(func() { close(c.done) })
	return first
}

func (c *Connection) Closed() bool {
	return c.closed.Load()
}
