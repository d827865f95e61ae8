package services

import (
	"codeshare/domain"
	"codeshare/errors"
	"codeshare/ledger"
	"codeshare/permission"
	"codeshare/runtime"
	"codeshare/runtime/workers"
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newSessionService(t *testing.T) *SessionService {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	registry := runtime.NewRegistry(log, permission.NewEngine())
	chains := ledger.New()
	relay := runtime.NewRelay(log, runtime.RelayConfig{
		MailboxSize:          8,
		ConnectionBufferSize: 16,
		IdleTimeout:          time.Hour,
		DefaultLanguage:      "python",
	}, registry, chains, workers.NewSupervisor(log, 10*time.Millisecond), workers.NewEventFanout(log, time.Second))
	relay.Start(ctx)
	return NewSessionService(relay, registry, chains)
}

func TestSessionService_Chain_And_Verify(t *testing.T) {
	req := require.New(t)
	svc := newSessionService(t)
	ctx := context.Background()

	// Given a session with two recorded edits
	conn, _, err := svc.Join(ctx, "S1", domain.Identity{UserID: "alice"})
	req.NoError(err)
	req.NoError(svc.Submit(ctx, conn, domain.IntentEdit, domain.EditPayload{Content: "a"}))
	req.NoError(svc.Submit(ctx, conn, domain.IntentEdit, domain.EditPayload{Content: "b"}))

	// When the chain is exported
	chain, err := svc.Chain("S1", "bob")

	// Then it holds both blocks and verifies
	req.NoError(err)
	req.Len(chain, 2)
	verification, err := svc.Verify("S1", "bob")
	req.NoError(err)
	req.Equal(ledger.Verification{Valid: true, Length: 2, FirstInvalid: -1}, verification)
	req.Equal([]domain.SessionID{"S1"}, svc.Sessions())
}

func TestSessionService_Unknown_Session(t *testing.T) {
	req := require.New(t)
	svc := newSessionService(t)

	_, err := svc.Chain("nope", "alice")
	req.ErrorIs(err, errors.ErrUnknownSession)

	_, err = svc.Verify("nope", "alice")
	req.ErrorIs(err, errors.ErrUnknownSession)
}

func TestSessionService_Create_Then_Join(t *testing.T) {
	req := require.New(t)
	svc := newSessionService(t)

	id, err := svc.Create("", "alice", "javascript", "")
	req.NoError(err)
	_, snapshot, err := svc.Join(context.Background(), id, domain.Identity{UserID: "bob", DisplayName: "Bob"})

	req.NoError(err)
	req.Equal("alice", snapshot.OwnerID)
	req.Equal("javascript", snapshot.Language)
	req.Equal("Bob", snapshot.Self.DisplayName)
	req.Equal(domain.Capabilities{}, snapshot.Capabilities)
}

func TestSessionService_Create_Existing_Session(t *testing.T) {
	req := require.New(t)
	svc := newSessionService(t)

	// Given a session created by alice
	_, err := svc.Create("S1", "alice", "go", domain.VisibilityPublic)
	req.NoError(err)

	// When bob claims the same id
	_, err = svc.Create("S1", "bob", "go", domain.VisibilityPublic)

	// Then the claim is refused and alice stays owner
	req.ErrorIs(err, errors.ErrSessionExists)
	_, snapshot, err := svc.Join(context.Background(), "S1", domain.Identity{UserID: "carol"})
	req.NoError(err)
	req.Equal("alice", snapshot.OwnerID)
}

func TestSessionService_Private_Ledger(t *testing.T) {
	req := require.New(t)
	svc := newSessionService(t)
	ctx := context.Background()

	// Given a private session with one edit by its owner
	_, err := svc.Create("S1", "alice", "go", domain.VisibilityPrivate)
	req.NoError(err)
	conn, _, err := svc.Join(ctx, "S1", domain.Identity{UserID: "alice"})
	req.NoError(err)
	req.NoError(svc.Submit(ctx, conn, domain.IntentEdit, domain.EditPayload{Content: "a"}))

	// When a stranger reads the ledger
	_, chainErr := svc.Chain("S1", "mallory")
	_, verifyErr := svc.Verify("S1", "mallory")

	// Then both reads are refused while the owner still reads it
	req.ErrorIs(chainErr, errors.ErrUnauthorized)
	req.ErrorIs(verifyErr, errors.ErrUnauthorized)
	chain, err := svc.Chain("S1", "alice")
	req.NoError(err)
	req.Len(chain, 1)
}
