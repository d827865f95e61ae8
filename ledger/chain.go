package ledger

import (
	"sync"
	"sync/atomic"
	"time"
)

// chain is append-only. Writers serialize on mu and publish a new slice header
// with an atomic store; readers load the header and may read [0, len) without
// locking because published elements are never written again.
type chain struct {
	mu     sync.Mutex
	blocks atomic.Pointer[[]Block]
}

func (c *chain) view() []Block {
	p := c.blocks.Load()
	if p == nil {
		return nil
	}
	return *p
}

func (c *chain) append(userID, action, payload string, at time.Time) Block {
	c.mu.Lock()
	defer c.mu.Unlock()

	current := c.view()
	previous := Genesis
	if n := len(current); n > 0 {
		previous = current[n-1].Hash
	}
	block := Block{
		Index:        len(current),
		Timestamp:    at,
		UserID:       userID,
		Action:       action,
		Payload:      payload,
		PreviousHash: previous,
	}
	block.Hash = Digest(block)

	next := append(current, block)
	c.blocks.Store(&next)
	return block
}
