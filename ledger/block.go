// Package ledger is a per-session tamper-evident log. Every block links to its
// predecessor by hash, so editing or removing a stored block breaks the chain
// at that index. It detects tampering; it does not prevent it and it does not
// agree with anyone about anything.
package ledger

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"hash"
	"strconv"
	"time"
)

// Genesis is the previous hash of block 0.
const Genesis = "GENESIS"

// hashDomain separates ledger digests from any other SHA-256 use of the same bytes.
const hashDomain = "codeshare/ledger/block/v1"

// Block is one immutable, hash-linked record of a recorded action.
type Block struct {
	Index        int       `json:"index"`
	Timestamp    time.Time `json:"timestamp"`
	UserID       string    `json:"user_id"`
	Action       string    `json:"action"`
	Payload      string    `json:"payload"`
	PreviousHash string    `json:"previous_hash"`
	Hash         string    `json:"hash"`
}

// Digest computes the self-hash of b over every field except Hash.
// Fields are length-prefixed so no two distinct blocks share an encoding.
func Digest(b Block) string {
	h := sha256.New()
	h.Write([]byte(hashDomain))
	h.Write([]byte{0x00})
	writeField(h, strconv.Itoa(b.Index))
	writeField(h, b.Timestamp.UTC().Format(time.RFC3339Nano))
	writeField(h, b.UserID)
	writeField(h, b.Action)
	writeField(h, b.Payload)
	writeField(h, b.PreviousHash)
	return hex.EncodeToString(h.Sum(nil))
}

func writeField(h hash.Hash, field string) {
	h.Write(binary.BigEndian.AppendUint64(nil, uint64(len(field))))
	h.Write([]byte(field))
}
