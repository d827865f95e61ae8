package runtime

import (
	"codeshare/domain"
	"codeshare/sink"
	"encoding/json"
	"fmt"
)

type envelopeKind int

const (
	intentEnvelope envelopeKind = iota
	joinEnvelope
	leaveEnvelope
	executionEnvelope
	evictEnvelope
	shutdownEnvelope
)

// envelope is one message of a session mailbox.
type envelope struct {
	kind      envelopeKind
	intent    domain.Intent
	conn      *sink.Connection
	execution executionOutcome
	reply     chan reply
}

type reply struct {
	snapshot domain.Snapshot
	err      error
}

// respond never blocks: reply is buffered and answered at most once.
func (e envelope) respond(rep reply) {
	if e.reply == nil {
		return
	}
	select {
	case e.reply <- rep:
	default:
	}
}

// encodePayload renders a ledger payload as compact JSON.
func encodePayload(payload any) string {
	bytes, err := json.Marshal(payload)
	if err != nil {
		return fmt.Sprintf("%+v", payload)
	}
	return string(bytes)
}
