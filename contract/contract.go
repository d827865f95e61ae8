//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"codeshare/domain"
	"context"
	"reflect"
)

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

// Worker doesn't protect itself
// Can be silly, focused
type Worker interface {
	Run(ctx context.Context) error
}

// GetWorkerName uses reflection to retrieve the type name of the worker.
// This is used for logging and supervision purposes during worker initialization
// or lifecycle events, avoiding the need for manual naming in the Worker interface.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

// EventSink receives the events of a session.
// Consume must give up when ctx is done.
type EventSink interface {
	Consume(ctx context.Context, e domain.Event) error
}

// Executor runs a snapshot of the document outside the session mailbox.
type Executor interface {
	Execute(ctx context.Context, sessionID domain.SessionID, content, language string) (domain.ExecutionResult, error)
}

// ArchiveStore keeps what an evicted session leaves behind.
type ArchiveStore interface {
	Store(ctx context.Context, archive domain.Archive) error
}

// Authenticator resolves a bearer token presented by a gateway connection.
type Authenticator interface {
	Authenticate(token string) (domain.Identity, error)
}
