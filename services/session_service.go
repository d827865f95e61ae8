package services

import (
	"codeshare/domain"
	"codeshare/errors"
	"codeshare/ledger"
	"codeshare/runtime"
	"codeshare/sink"
	"context"
	"fmt"
)

type ISessionService interface {
	Create(sessionID domain.SessionID, ownerID, language string, visibility domain.Visibility) (domain.SessionID, error)
	Join(ctx context.Context, sessionID domain.SessionID, identity domain.Identity) (*sink.Connection, domain.Snapshot, error)
	Submit(ctx context.Context, conn *sink.Connection, kind domain.IntentKind, payload any) error
	Disconnect(ctx context.Context, conn *sink.Connection) error
	DisconnectUser(ctx context.Context, sessionID domain.SessionID, userID string) (int, error)
	Chain(sessionID domain.SessionID, userID string) ([]ledger.Block, error)
	Verify(sessionID domain.SessionID, userID string) (ledger.Verification, error)
	Sessions() []domain.SessionID
}

// SessionService is what the gateway talks to. Intents go through the relay,
// ledger reads are served straight from the published chain.
type SessionService struct {
	relay    *runtime.Relay
	registry *runtime.Registry
	ledger   *ledger.Ledger
}

func NewSessionService(relay *runtime.Relay, registry *runtime.Registry, ledger *ledger.Ledger) *SessionService {
	return &SessionService{relay: relay, registry: registry, ledger: ledger}
}

func (s *SessionService) Create(sessionID domain.SessionID, ownerID, language string, visibility domain.Visibility) (domain.SessionID, error) {
	return s.relay.Create(sessionID, ownerID, language, visibility)
}

func (s *SessionService) Join(ctx context.Context, sessionID domain.SessionID, identity domain.Identity) (*sink.Connection, domain.Snapshot, error) {
	return s.relay.Join(ctx, sessionID, identity)
}

func (s *SessionService) Submit(ctx context.Context, conn *sink.Connection, kind domain.IntentKind, payload any) error {
	return s.relay.Submit(ctx, conn, kind, payload)
}

func (s *SessionService) Disconnect(ctx context.Context, conn *sink.Connection) error {
	return s.relay.Disconnect(ctx, conn)
}

func (s *SessionService) DisconnectUser(ctx context.Context, sessionID domain.SessionID, userID string) (int, error) {
	return s.relay.DisconnectUser(ctx, sessionID, userID)
}

// Chain exports the chain of a resident session.
func (s *SessionService) Chain(sessionID domain.SessionID, userID string) ([]ledger.Block, error) {
	if err := s.canRead(sessionID, userID); err != nil {
		return nil, err
	}
	return s.ledger.Chain(string(sessionID)), nil
}

func (s *SessionService) Verify(sessionID domain.SessionID, userID string) (ledger.Verification, error) {
	if err := s.canRead(sessionID, userID); err != nil {
		return ledger.Verification{}, err
	}
	return s.ledger.Verify(string(sessionID)), nil
}

// canRead lets anyone read a public session and only collaborators a private one.
func (s *SessionService) canRead(sessionID domain.SessionID, userID string) error {
	session, err := s.registry.Get(sessionID)
	if err != nil {
		return err
	}
	if session.Visibility() != domain.VisibilityPrivate {
		return nil
	}
	if _, ok := session.Roles().Role(userID); !ok {
		return fmt.Errorf("%w: %s is not a collaborator of %s", errors.ErrUnauthorized, userID, sessionID)
	}
	return nil
}

func (s *SessionService) Sessions() []domain.SessionID {
	return s.relay.Sessions()
}
