package ledger

import (
	"codeshare/errors"
	"fmt"
)

// Verification is the outcome of walking a chain. A mismatch is an expected
// result, not a failure of the verifier.
type Verification struct {
	Valid        bool   `json:"valid"`
	Length       int    `json:"length"`
	FirstInvalid int    `json:"first_invalid"`
	Reason       string `json:"reason,omitempty"`
}

// Err returns nil for a valid chain and an ErrTamperDetected wrapper naming the
// first divergent index otherwise.
func (v Verification) Err() error {
	if v.Valid {
		return nil
	}
	return fmt.Errorf("%w: block %d: %s", errors.ErrTamperDetected, v.FirstInvalid, v.Reason)
}

// VerifyChain checks contiguous indices, the genesis sentinel, every previous
// hash link and every stored self-hash. It stops at the first divergence.
func VerifyChain(blocks []Block) Verification {
	for i, block := range blocks {
		if block.Index != i {
			return invalid(len(blocks), i, fmt.Sprintf("index gap: expected %d got %d", i, block.Index))
		}
		expected := Genesis
		if i > 0 {
			expected = blocks[i-1].Hash
		}
		if block.PreviousHash != expected {
			return invalid(len(blocks), i, "previous hash mismatch")
		}
		if Digest(block) != block.Hash {
			return invalid(len(blocks), i, "hash mismatch")
		}
	}
	return Verification{Valid: true, Length: len(blocks), FirstInvalid: -1}
}

func invalid(length, index int, reason string) Verification {
	return Verification{Valid: false, Length: length, FirstInvalid: index, Reason: reason}
}
