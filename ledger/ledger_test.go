package ledger

import (
	"codeshare/errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func fixedClock() func() time.Time {
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	return func() time.Time {
		at = at.Add(time.Millisecond)
		return at
	}
}

func TestLedger_Append_Indices_And_Genesis(t *testing.T) {
	req := require.New(t)
	l := New(WithClock(fixedClock()))

	// Given an unseen session has no chain
	req.Equal(0, l.Len("S1"))
	_, ok := l.Head("S1")
	req.False(ok)

	// When five actions are recorded
	for i := 0; i < 5; i++ {
		l.Append("S1", "alice", "edit", fmt.Sprintf("x=%d", i))
	}

	// Then indices are 0..4 and every block links to its predecessor
	chain := l.Chain("S1")
	req.Len(chain, 5)
	req.Equal(Genesis, chain[0].PreviousHash)
	for i, block := range chain {
		req.Equal(i, block.Index)
		req.Equal(Digest(block), block.Hash)
		if i > 0 {
			req.Equal(chain[i-1].Hash, block.PreviousHash)
			req.True(block.Timestamp.After(chain[i-1].Timestamp))
		}
	}
	head, ok := l.Head("S1")
	req.True(ok)
	req.Equal(chain[4], head)
}

func TestLedger_Verify_After_Any_Number_Of_Appends(t *testing.T) {
	req := require.New(t)
	l := New()

	// An empty chain is valid
	req.True(l.Verify("S1").Valid)

	for n := 1; n <= 32; n++ {
		l.Append("S1", "alice", "edit", fmt.Sprintf("content %d", n))
		verification := l.Verify("S1")
		req.True(verification.Valid)
		req.Equal(n, verification.Length)
		req.Equal(-1, verification.FirstInvalid)
		req.NoError(verification.Err())
	}
}

func TestLedger_Verify_Detects_Payload_Mutation(t *testing.T) {
	for _, tampered := range []int{0, 1, 4, 9} {
		t.Run(fmt.Sprintf("block %d", tampered), func(t *testing.T) {
			req := require.New(t)
			l := New()
			for i := 0; i < 10; i++ {
				l.Append("S1", "alice", "edit", fmt.Sprintf("x=%d", i))
			}

			// When a stored payload is rewritten out of band
			stored := *l.chains["S1"].blocks.Load()
			stored[tampered].Payload = "rm -rf /"

			// Then verification fails exactly at the rewritten block
			verification := l.Verify("S1")
			req.False(verification.Valid)
			req.Equal(tampered, verification.FirstInvalid)
			req.Equal("hash mismatch", verification.Reason)
			req.ErrorIs(verification.Err(), errors.ErrTamperDetected)
		})
	}
}

func TestLedger_Verify_Detects_Rehashed_Block(t *testing.T) {
	req := require.New(t)
	l := New()
	for i := 0; i < 4; i++ {
		l.Append("S1", "bob", "language_change", "go")
	}

	// Given an attacker rewrites block 1 and recomputes its own hash
	stored := *l.chains["S1"].blocks.Load()
	stored[1].UserID = "mallory"
	stored[1].Hash = Digest(stored[1])

	// Then the break shows up on the next link
	verification := l.Verify("S1")
	req.False(verification.Valid)
	req.Equal(2, verification.FirstInvalid)
	req.Equal("previous hash mismatch", verification.Reason)
}

func TestVerifyChain_Detects_Removed_Block(t *testing.T) {
	req := require.New(t)
	l := New()
	for i := 0; i < 4; i++ {
		l.Append("S1", "alice", "edit", fmt.Sprint(i))
	}
	chain := l.Chain("S1")

	// When block 2 is dropped from an export
	truncated := append(chain[:2:2], chain[3])

	verification := VerifyChain(truncated)
	req.False(verification.Valid)
	req.Equal(2, verification.FirstInvalid)
}

func TestLedger_Chain_Export_Is_Read_Only(t *testing.T) {
	req := require.New(t)
	l := New()
	l.Append("S1", "alice", "edit", "x=1")

	exported := l.Chain("S1")
	exported[0].Payload = "x=2"

	req.True(l.Verify("S1").Valid)
	req.Equal("x=1", l.Chain("S1")[0].Payload)
}

func TestLedger_Sessions_Are_Independent(t *testing.T) {
	req := require.New(t)
	l := New()
	l.Append("S1", "alice", "edit", "a")
	l.Append("S2", "bob", "edit", "b")
	l.Append("S2", "bob", "edit", "c")

	req.Equal(1, l.Len("S1"))
	req.Equal(2, l.Len("S2"))
	req.Equal(Genesis, l.Chain("S2")[0].PreviousHash)
	req.Equal([]string{"S1", "S2"}, l.Sessions())

	// When S1 is detached its blocks are handed over and S2 is untouched
	detached := l.Detach("S1")
	req.Len(detached, 1)
	req.Equal(0, l.Len("S1"))
	req.Equal(2, l.Len("S2"))
	req.Nil(l.Detach("S1"))
}

func TestLedger_Concurrent_Readers_During_Appends(t *testing.T) {
	req := require.New(t)
	l := New()
	const appends = 500

	var wg sync.WaitGroup
	done := make(chan struct{})
	failures := make(chan string, 16)

	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-done:
					return
				default:
				}
				if v := l.Verify("S1"); !v.Valid {
					failures <- v.Reason
					return
				}
				chain := l.Chain("S1")
				for i, block := range chain {
					if block.Index != i {
						failures <- "index"
						return
					}
				}
			}
		}()
	}

	for i := 0; i < appends; i++ {
		l.Append("S1", "alice", "edit", fmt.Sprint(i))
	}
	close(done)
	wg.Wait()
	close(failures)

	for reason := range failures {
		req.Fail("reader observed an inconsistent chain", reason)
	}
	req.Equal(appends, l.Len("S1"))
}
