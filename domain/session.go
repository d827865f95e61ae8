// Package domain contains the core concepts of a live editing session.
// No runtime, network or storage logic belongs here.
package domain

import (
	"time"

	"codeshare/ledger"
)

type Cursor struct {
	Line   int `json:"line"`
	Column int `json:"column"`
}

// Participant is one connection of one user to one session.
type Participant struct {
	SessionID    SessionID `json:"session_id"`
	UserID       string    `json:"user_id"`
	ConnectionID string    `json:"connection_id"`
	DisplayName  string    `json:"display_name"`
	Role         Role      `json:"role"`
	Cursor       *Cursor   `json:"cursor,omitempty"`
	JoinedAt     time.Time `json:"joined_at"`
}

// Snapshot is everything a newly connected client needs before incremental events.
type Snapshot struct {
	SessionID    SessionID     `json:"session_id"`
	Content      string        `json:"content"`
	Language     string        `json:"language"`
	Locked       bool          `json:"locked"`
	Visibility   Visibility    `json:"visibility"`
	Revision     uint64        `json:"revision"`
	OwnerID      string        `json:"owner_id"`
	CreatedAt    time.Time     `json:"created_at"`
	Roster       []Participant `json:"roster"`
	Self         Participant   `json:"self"`
	Capabilities Capabilities  `json:"capabilities"`
}

// SessionDefaults seed a session that does not exist yet.
type SessionDefaults struct {
	OwnerID    string
	Language   string
	Content    string
	Visibility Visibility
}

type EditResult struct {
	Content  string
	Revision uint64
}

// Archive is what a session leaves behind when it is evicted from memory.
type Archive struct {
	SessionID SessionID
	Content   string
	Language  string
	Revision  uint64
	OwnerID   string
	CreatedAt time.Time
	EvictedAt time.Time
	Chain     []ledger.Block
	Seal      ledger.Seal
}
