package domain

import "time"

type EventKind string

const (
	EventEdit              EventKind = "edit"
	EventCursorMove        EventKind = "cursor_move"
	EventLanguageChange    EventKind = "language_change"
	EventLockToggle        EventKind = "lock_toggle"
	EventRoleChange        EventKind = "role_change"
	EventChat              EventKind = "chat"
	EventExecutionStarted  EventKind = "execution_started"
	EventExecutionResult   EventKind = "execute_result"
	EventParticipantJoined EventKind = "participant_joined"
	EventParticipantLeft   EventKind = "participant_left"
	EventError             EventKind = "error"
)

// Event is the canonical result of a processed intent, delivered to the other
// participants of the session. Error events only ever reach the originator.
type Event struct {
	Kind         EventKind `json:"kind"`
	SessionID    SessionID `json:"session_id"`
	OriginUserID string    `json:"origin_user_id"`
	Payload      any       `json:"payload,omitempty"`
	Revision     uint64    `json:"revision,omitempty"`
	At           time.Time `json:"at"`
}

type EditedPayload struct {
	Content  string `json:"content"`
	Revision uint64 `json:"revision"`
}

type CursorMovedPayload struct {
	ConnectionID string `json:"connection_id"`
	DisplayName  string `json:"display_name"`
	Line         int    `json:"line"`
	Column       int    `json:"column"`
}

type RoleChangedPayload struct {
	UserID        string `json:"user_id"`
	Role          Role   `json:"role"`
	PreviousOwner string `json:"previous_owner,omitempty"`
}

type ChatMessagePayload struct {
	DisplayName string `json:"display_name"`
	Message     string `json:"message"`
}

type PresencePayload struct {
	Participant Participant `json:"participant"`
}

// ErrorPayload carries the authoritative document so a rejected editor can revert.
type ErrorPayload struct {
	Code     string     `json:"code"`
	Message  string     `json:"message"`
	Intent   IntentKind `json:"intent,omitempty"`
	Content  *string    `json:"content,omitempty"`
	Revision uint64     `json:"revision,omitempty"`
}
