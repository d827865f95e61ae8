package gateway

import (
	"bytes"
	"codeshare/domain"
	"codeshare/errors"
	"encoding/json"
	"fmt"
)

// ClientMessage is one intent sent by a websocket client.
type ClientMessage struct {
	Type    domain.IntentKind `json:"type"`
	Payload json.RawMessage   `json:"payload,omitempty"`
}

const (
	FrameSnapshot = "snapshot"
	FrameEvent    = "event"
)

// Frame is what the server writes. The first frame of a connection is the
// snapshot, every later one an event.
type Frame struct {
	Type     string           `json:"type"`
	Snapshot *domain.Snapshot `json:"snapshot,omitempty"`
	Event    *domain.Event    `json:"event,omitempty"`
}

// DecodePayload turns the raw payload of a client message into the typed
// payload of its intent kind. Unknown fields are refused.
func DecodePayload(kind domain.IntentKind, raw json.RawMessage) (any, error) {
	switch kind {
	case domain.IntentEdit:
		return decodeAs[domain.EditPayload](kind, raw)
	case domain.IntentCursorMove:
		return decodeAs[domain.CursorPayload](kind, raw)
	case domain.IntentLanguageChange:
		return decodeAs[domain.LanguagePayload](kind, raw)
	case domain.IntentLockToggle:
		return decodeAs[domain.LockPayload](kind, raw)
	case domain.IntentRoleChange:
		return decodeAs[domain.RolePayload](kind, raw)
	case domain.IntentChat:
		return decodeAs[domain.ChatPayload](kind, raw)
	case domain.IntentExecuteRequest:
		return decodeAs[domain.ExecutePayload](kind, raw)
	default:
		return nil, fmt.Errorf("%w: %q", errors.ErrUnknownIntent, kind)
	}
}

func decodeAs[T any](kind domain.IntentKind, raw json.RawMessage) (any, error) {
	var payload T
	if len(bytes.TrimSpace(raw)) == 0 {
		return payload, nil
	}
	decoder := json.NewDecoder(bytes.NewReader(raw))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&payload); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", errors.ErrInvalidPayload, kind, err)
	}
	return payload, nil
}
