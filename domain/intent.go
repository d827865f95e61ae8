package domain

import "time"

type SessionID string

type IntentKind string

const (
	IntentEdit           IntentKind = "edit"
	IntentCursorMove     IntentKind = "cursor_move"
	IntentLanguageChange IntentKind = "language_change"
	IntentLockToggle     IntentKind = "lock_toggle"
	IntentRoleChange     IntentKind = "role_change"
	IntentChat           IntentKind = "chat"
	IntentExecuteRequest IntentKind = "execute_request"
)

var intentKinds = []IntentKind{
	IntentEdit,
	IntentCursorMove,
	IntentLanguageChange,
	IntentLockToggle,
	IntentRoleChange,
	IntentChat,
	IntentExecuteRequest,
}

func (k IntentKind) Valid() bool {
	for _, known := range intentKinds {
		if k == known {
			return true
		}
	}
	return false
}

// Recorded reports whether a successful intent of this kind is appended to the
// session ledger. Cursor moves and chat are never recorded.
func (k IntentKind) Recorded() bool {
	switch k {
	case IntentEdit, IntentLanguageChange, IntentLockToggle, IntentRoleChange, IntentExecuteRequest:
		return true
	}
	return false
}

// Intent is a client request addressed to one session through one connection.
type Intent struct {
	SessionID    SessionID
	UserID       string
	ConnectionID string
	Kind         IntentKind
	Payload      any
	At           time.Time
}

type EditPayload struct {
	Content string `json:"content" validate:"max=4194304"`
}

type CursorPayload struct {
	Line   int `json:"line" validate:"gte=0"`
	Column int `json:"column" validate:"gte=0"`
}

type LanguagePayload struct {
	Language string `json:"language" validate:"required,max=32,printascii"`
}

type LockPayload struct {
	Locked bool `json:"locked"`
}

// RolePayload assigns Role to UserID. Role owner means an ownership transfer
// from the originator to UserID, role none removes UserID from the session.
type RolePayload struct {
	UserID string `json:"user_id" validate:"required,max=128"`
	Role   Role   `json:"role" validate:"required,oneof=owner editor viewer none"`
}

type ChatPayload struct {
	Message string `json:"message" validate:"required,max=2000"`
}

type ExecutePayload struct{}
