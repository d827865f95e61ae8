package ledger

import (
	"slices"
	"sync"
	"time"
)

// Ledger holds one chain per session. Chains are created on the first append.
type Ledger struct {
	mu     sync.RWMutex
	chains map[string]*chain
	now    func() time.Time
}

type Option func(*Ledger)

// WithClock replaces the clock used to timestamp blocks.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) { l.now = now }
}

func New(opts ...Option) *Ledger {
	l := &Ledger{
		chains: make(map[string]*chain),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Append links a new block to the tail of the session chain and returns it.
// It never fails and never performs I/O.
func (l *Ledger) Append(sessionID, userID, action, payload string) Block {
	return l.chainFor(sessionID).append(userID, action, payload, l.now().Round(0).UTC())
}

// Chain returns a copy of the session chain in index order.
func (l *Ledger) Chain(sessionID string) []Block {
	return slices.Clone(l.view(sessionID))
}

func (l *Ledger) Len(sessionID string) int {
	return len(l.view(sessionID))
}

// Head returns the last block of the session chain.
func (l *Ledger) Head(sessionID string) (Block, bool) {
	blocks := l.view(sessionID)
	if len(blocks) == 0 {
		return Block{}, false
	}
	return blocks[len(blocks)-1], true
}

// Verify re-checks the whole session chain. A session without blocks is valid.
func (l *Ledger) Verify(sessionID string) Verification {
	return VerifyChain(l.view(sessionID))
}

// Detach removes the session chain from memory and returns its final blocks.
func (l *Ledger) Detach(sessionID string) []Block {
	l.mu.Lock()
	c, ok := l.chains[sessionID]
	delete(l.chains, sessionID)
	l.mu.Unlock()
	if !ok {
		return nil
	}
	return slices.Clone(c.view())
}

func (l *Ledger) Sessions() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	ids := make([]string, 0, len(l.chains))
	for id := range l.chains {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

func (l *Ledger) view(sessionID string) []Block {
	l.mu.RLock()
	c, ok := l.chains[sessionID]
	l.mu.RUnlock()
	if !ok {
		return nil
	}
	return c.view()
}

func (l *Ledger) chainFor(sessionID string) *chain {
	l.mu.RLock()
	c, ok := l.chains[sessionID]
	l.mu.RUnlock()
	if ok {
		return c
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if c, ok = l.chains[sessionID]; !ok {
		c = &chain{}
		l.chains[sessionID] = c
	}
	return c
}
