package runtime

import (
	"codeshare/contract"
	"codeshare/domain"
	"codeshare/errors"
	"codeshare/permission"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/samber/lo"
)

// Registry holds the canonical record of every resident session.
// Nothing else mutates session state, and the Registry never writes the ledger.
type Registry struct {
	mu               sync.RWMutex
	log              *slog.Logger
	engine           permission.Engine
	sessions         map[domain.SessionID]*Session
	idleTimeout      time.Duration
	onIdle           func(domain.SessionID)
	maxContentLength int
	now              func() time.Time
}

type RegistryOption func(*Registry)

// WithIdleTimeout calls onIdle once a session has had no participant for d.
func WithIdleTimeout(d time.Duration, onIdle func(domain.SessionID)) RegistryOption {
	return func(r *Registry) {
		r.idleTimeout = d
		r.onIdle = onIdle
	}
}

func WithMaxContentLength(n int) RegistryOption {
	return func(r *Registry) { r.maxContentLength = n }
}

func WithRegistryClock(now func() time.Time) RegistryOption {
	return func(r *Registry) { r.now = now }
}

func NewRegistry(log *slog.Logger, engine permission.Engine, opts ...RegistryOption) *Registry {
	r := &Registry{
		log:      log,
		engine:   engine,
		sessions: make(map[domain.SessionID]*Session),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// SetIdleHandler replaces the eviction callback. It must be called before sessions exist.
func (r *Registry) SetIdleHandler(d time.Duration, onIdle func(domain.SessionID)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.idleTimeout = d
	r.onIdle = onIdle
}

// CreateOrGet is idempotent. A new session is unlocked, starts at revision 0
// and designates defaults.OwnerID, when given, as its owner. It is public
// unless defaults ask for a private one.
func (r *Registry) CreateOrGet(id domain.SessionID, defaults domain.SessionDefaults) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sessions[id]; ok {
		return s
	}

	language := defaults.Language
	if language == "" {
		language = domain.PlainText
	}
	s := newSession(id, language, defaults.Content, defaults.Visibility, r.now().UTC())
	if defaults.OwnerID != "" {
		// the table has no owner yet, so the first admission cannot be refused
		_, _ = r.engine.Admit(s.roles, defaults.OwnerID)
	}
	r.sessions[id] = s
	// A session nobody joins is still evicted
	r.scheduleIdle(s)
	r.log.Debug("Session created", "session_id", id, "owner", defaults.OwnerID,
		"language", language, "visibility", s.Visibility())
	return s
}

func (r *Registry) Get(id domain.SessionID) (*Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", errors.ErrUnknownSession, id)
	}
	return s, nil
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

func (r *Registry) SessionIDs() []domain.SessionID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := lo.Keys(r.sessions)
	slices.Sort(ids)
	return ids
}

// Remove drops the session from memory and returns its final record.
func (r *Registry) Remove(id domain.SessionID) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return nil, false
	}
	delete(r.sessions, id)
	s.mu.Lock()
	if s.idle != nil {
		s.idle.Stop()
		s.idle = nil
	}
	s.mu.Unlock()
	return s, true
}

// Authorize asks the engine whether userID may submit kind in the session right now.
func (r *Registry) Authorize(id domain.SessionID, userID string, kind domain.IntentKind) error {
	s, err := r.Get(id)
	if err != nil {
		return err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return r.engine.Authorize(s.roles, userID, s.locked, kind)
}

// ApplyEdit replaces the whole document. There is no merge: the last edit applied wins.
func (r *Registry) ApplyEdit(id domain.SessionID, userID, content string) (domain.EditResult, error) {
	s, err := r.Get(id)
	if err != nil {
		return domain.EditResult{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := r.engine.Authorize(s.roles, userID, s.locked, domain.IntentEdit); err != nil {
		return domain.EditResult{}, err
	}
	if r.maxContentLength > 0 && len(content) > r.maxContentLength {
		return domain.EditResult{}, fmt.Errorf("%w: %d bytes, limit is %d",
			errors.ErrContentTooLong, len(content), r.maxContentLength)
	}
	s.content = content
	s.revision++
	return domain.EditResult{Content: s.content, Revision: s.revision}, nil
}

func (r *Registry) SetLanguage(id domain.SessionID, userID, language string) error {
	s, err := r.Get(id)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := r.engine.Authorize(s.roles, userID, s.locked, domain.IntentLanguageChange); err != nil {
		return err
	}
	s.language = language
	return nil
}

func (r *Registry) SetLock(id domain.SessionID, userID string, locked bool) error {
	s, err := r.Get(id)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := r.engine.Authorize(s.roles, userID, s.locked, domain.IntentLockToggle); err != nil {
		return err
	}
	s.locked = locked
	return nil
}

func (r *Registry) SetRole(id domain.SessionID, callerID, targetID string, role domain.Role) error {
	s, err := r.Get(id)
	if err != nil {
		return err
	}
	return r.engine.SetRole(s.roles, callerID, targetID, role)
}

// Revoke removes targetID's role. Their open connections are the caller's concern.
func (r *Registry) Revoke(id domain.SessionID, callerID, targetID string) error {
	s, err := r.Get(id)
	if err != nil {
		return err
	}
	return r.engine.Revoke(s.roles, callerID, targetID)
}

// TransferOwnership reports false, leaving every role untouched, unless fromUserID owns the session.
func (r *Registry) TransferOwnership(id domain.SessionID, fromUserID, toUserID string) (bool, error) {
	s, err := r.Get(id)
	if err != nil {
		return false, err
	}
	return r.engine.TransferOwnership(s.roles, fromUserID, toUserID), nil
}

// Join registers the participant and returns everything the client needs to
// render the session. A user seen before keeps their role, a private session
// refuses users without one.
func (r *Registry) Join(id domain.SessionID, participant domain.Participant, sink contract.EventSink) (domain.Snapshot, error) {
	s, err := r.Get(id)
	if err != nil {
		return domain.Snapshot{}, err
	}
	if participant.UserID == "" || participant.ConnectionID == "" {
		return domain.Snapshot{}, fmt.Errorf("%w: participant needs a user and a connection", errors.ErrInvalidPayload)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	participant.SessionID = id
	role, err := r.engine.Admit(s.roles, participant.UserID)
	if err != nil {
		return domain.Snapshot{}, err
	}
	participant.Role = role
	if participant.JoinedAt.IsZero() {
		participant.JoinedAt = r.now().UTC()
	}
	s.members[participant.ConnectionID] = &member{participant: participant, sink: sink}
	if s.idle != nil {
		s.idle.Stop()
		s.idle = nil
	}
	s.idleAt = time.Time{}

	return domain.Snapshot{
		SessionID:    s.id,
		Content:      s.content,
		Language:     s.language,
		Locked:       s.locked,
		Visibility:   s.roles.Visibility(),
		Revision:     s.revision,
		OwnerID:      s.roles.Owner(),
		CreatedAt:    s.createdAt,
		Roster:       s.rosterLocked(),
		Self:         participant,
		Capabilities: r.engine.Capabilities(s.roles, participant.UserID, s.locked),
	}, nil
}

// Leave removes the connection from the roster. When the roster becomes empty
// the session is scheduled for eviction.
func (r *Registry) Leave(id domain.SessionID, connectionID string) (domain.Participant, bool) {
	s, err := r.Get(id)
	if err != nil {
		return domain.Participant{}, false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.members[connectionID]
	if !ok {
		return domain.Participant{}, false
	}
	delete(s.members, connectionID)
	if len(s.members) == 0 {
		r.scheduleIdle(s)
	}
	return s.withRole(m.participant), true
}

// MoveCursor records the last cursor of a connection. The document revision does not change.
func (r *Registry) MoveCursor(id domain.SessionID, connectionID string, cursor domain.Cursor) (domain.Participant, error) {
	s, err := r.Get(id)
	if err != nil {
		return domain.Participant{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.members[connectionID]
	if !ok {
		return domain.Participant{}, fmt.Errorf("%w: connection %s", errors.ErrUnknownParticipant, connectionID)
	}
	m.participant.Cursor = &cursor
	return s.withRole(m.participant), nil
}

func (r *Registry) Participant(id domain.SessionID, connectionID string) (domain.Participant, error) {
	s, err := r.Get(id)
	if err != nil {
		return domain.Participant{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.members[connectionID]
	if !ok {
		return domain.Participant{}, fmt.Errorf("%w: connection %s", errors.ErrUnknownParticipant, connectionID)
	}
	return s.withRole(m.participant), nil
}

// Recipients lists the connected participants and their sinks, leaving out
// exceptConnectionID when it is not empty.
func (r *Registry) Recipients(id domain.SessionID, exceptConnectionID string) []Recipient {
	s, err := r.Get(id)
	if err != nil {
		return nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	recipients := make([]Recipient, 0, len(s.members))
	for connectionID, m := range s.members {
		if connectionID == exceptConnectionID {
			continue
		}
		recipients = append(recipients, Recipient{Participant: s.withRole(m.participant), Sink: m.sink})
	}
	slices.SortFunc(recipients, func(a, b Recipient) int {
		return strings.Compare(a.Participant.ConnectionID, b.Participant.ConnectionID)
	})
	return recipients
}

// Idle reports whether the session has been empty for the whole idle timeout.
// A stale timer that fired before a join and leave is told apart by the deadline.
func (r *Registry) Idle(id domain.SessionID) bool {
	s, err := r.Get(id)
	if err != nil {
		return false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.members) == 0 && !s.idleAt.IsZero() && !time.Now().Before(s.idleAt)
}

func (r *Registry) RosterSize(id domain.SessionID) int {
	s, err := r.Get(id)
	if err != nil {
		return 0
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.members)
}

// rearmIdle restarts the idle timer of a session that is still empty.
func (r *Registry) rearmIdle(id domain.SessionID) {
	s, err := r.Get(id)
	if err != nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.members) == 0 {
		r.scheduleIdle(s)
	}
}

// scheduleIdle must be called with s.mu held or before s is published.
func (r *Registry) scheduleIdle(s *Session) {
	if r.onIdle == nil {
		return
	}
	if s.idle != nil {
		s.idle.Stop()
	}
	id, onIdle := s.id, r.onIdle
	s.idleAt = time.Now().Add(r.idleTimeout)
	s.idle = time.AfterFunc(r.idleTimeout, func() { onIdle(id) })
}
