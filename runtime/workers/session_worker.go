package workers

import (
	"codeshare/domain"
	"context"
	"log/slog"
)

// SessionWorker is the serialization point of one session: it handles the
// messages of its mailbox one at a time, in arrival order. Sessions each get
// their own worker and never wait on each other.
//
// The mailbox outlives the worker: when the supervisor restarts a worker
// after a panic, the next message is picked up where the previous run left.
type SessionWorker[T any] struct {
	log       *slog.Logger
	sessionID domain.SessionID
	inbox     <-chan T
	handle    func(ctx context.Context, msg T) (stop bool)
}

func NewSessionWorker[T any](log *slog.Logger, sessionID domain.SessionID, inbox <-chan T,
	handle func(ctx context.Context, msg T) bool) *SessionWorker[T] {
	return &SessionWorker[T]{log: log, sessionID: sessionID, inbox: inbox, handle: handle}
}

func (w *SessionWorker[T]) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg := <-w.inbox:
			if w.handle(ctx, msg) {
				w.log.Debug("Session mailbox closed", "session_id", w.sessionID)
				return nil
			}
		}
	}
}
