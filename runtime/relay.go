// Package runtime runs live sessions. The Registry holds the state of every
// resident session and the Relay serializes all intents of one session
// through a single mailbox, then records and fans out the result.
//
// Edits replace the whole document. Concurrent edits are not merged: the
// last edit processed by the mailbox wins and may silently discard another
// participant's concurrent change. Clients stay consistent because every
// accepted edit is broadcast with its revision.
package runtime

import (
	"codeshare/contract"
	"codeshare/domain"
	"codeshare/errors"
	"codeshare/ledger"
	"codeshare/moderation"
	"codeshare/observability"
	"codeshare/runtime/workers"
	"codeshare/sink"
	"context"
	"fmt"
	"log/slog"
	"maps"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
)

type RelayConfig struct {
	MailboxSize          int
	ConnectionBufferSize int
	IdleTimeout          time.Duration
	DefaultLanguage      string
	DefaultVisibility    domain.Visibility
	SeedDefaultCode      bool
	ExecutionTimeout     time.Duration
}

type RelayOption func(*Relay)

func WithExecutor(executor contract.Executor) RelayOption {
	return func(r *Relay) { r.executor = executor }
}

// WithKeyring seals the chain of every evicted session.
func WithKeyring(keyring *ledger.Keyring) RelayOption {
	return func(r *Relay) { r.keyring = keyring }
}

// WithArchiver hands evicted sessions to offer, which must not block.
func WithArchiver(offer func(domain.Archive) bool) RelayOption {
	return func(r *Relay) { r.archive = offer }
}

func WithModerator(moderator *moderation.Moderator) RelayOption {
	return func(r *Relay) { r.moderator = moderator }
}

func WithMetrics(metrics *observability.Metrics) RelayOption {
	return func(r *Relay) { r.metrics = metrics }
}

func WithRelayClock(now func() time.Time) RelayOption {
	return func(r *Relay) { r.now = now }
}

type mailbox struct {
	inbox chan envelope
	done  chan struct{}
	// joins in flight, an eviction never races them
	pending atomic.Int64
}

// Relay is the broadcast relay. Every session gets one mailbox served by a
// supervised SessionWorker. Per intent the worker authorizes, applies to the
// Registry, appends to the ledger when the kind is recorded and fans the
// canonical event out to the other participants.
type Relay struct {
	mu         sync.Mutex
	ctx        context.Context
	cancel     context.CancelFunc
	stopping   bool
	log        *slog.Logger
	cfg        RelayConfig
	registry   *Registry
	ledger     *ledger.Ledger
	supervisor contract.ISupervisor
	fanout     *workers.EventFanout
	executor   contract.Executor
	keyring    *ledger.Keyring
	archive    func(domain.Archive) bool
	moderator  *moderation.Moderator
	metrics    *observability.Metrics
	mailboxes  map[domain.SessionID]*mailbox
	now        func() time.Time
}

func NewRelay(log *slog.Logger, cfg RelayConfig, registry *Registry, ledger *ledger.Ledger,
	supervisor contract.ISupervisor, fanout *workers.EventFanout, opts ...RelayOption) *Relay {
	r := &Relay{
		ctx:        context.Background(),
		log:        log,
		cfg:        cfg,
		registry:   registry,
		ledger:     ledger,
		supervisor: supervisor,
		fanout:     fanout,
		mailboxes:  make(map[domain.SessionID]*mailbox),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	registry.SetIdleHandler(cfg.IdleTimeout, r.scheduleEviction)
	return r
}

// Start sets the context session mailboxes run under. Call it before serving.
func (r *Relay) Start(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ctx, r.cancel = context.WithCancel(ctx)
}

// Stop closes every resident session the way an idle eviction does: each one
// is archived with its sealed chain and its participants are disconnected.
// Then the session workers and the supervised workers stop. Sessions whose
// mailbox does not answer before ctx is done are lost.
func (r *Relay) Stop(ctx context.Context) {
	r.log.Info("Requesting relay shutdown")
	r.mu.Lock()
	r.stopping = true
	mailboxes := maps.Clone(r.mailboxes)
	r.mu.Unlock()

	var wg sync.WaitGroup
	for id, mb := range mailboxes {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := r.request(ctx, mb, envelope{kind: shutdownEnvelope})
			// an unknown session was closed meanwhile, by eviction or by this request
			if err != nil && !errors.Is(err, errors.ErrUnknownSession) {
				r.log.Error("Session not archived on shutdown", "session_id", id, "error", err)
			}
		}()
	}
	wg.Wait()

	r.mu.Lock()
	cancel := r.cancel
	r.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	r.supervisor.Stop()
}

// Create makes a session owned by ownerID. An empty id gets a generated one
// and an empty visibility the configured default. An id already resident is refused.
func (r *Relay) Create(sessionID domain.SessionID, ownerID, language string, visibility domain.Visibility) (domain.SessionID, error) {
	if visibility != "" && !visibility.Valid() {
		return "", fmt.Errorf("%w: unknown visibility %q", errors.ErrInvalidPayload, visibility)
	}
	if sessionID == "" {
		sessionID = domain.SessionID(uuid.NewString())
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.stopping {
		return "", errors.ErrRelayStopped
	}
	if _, ok := r.mailboxes[sessionID]; ok {
		return "", fmt.Errorf("%w: %s", errors.ErrSessionExists, sessionID)
	}
	r.openMailboxLocked(sessionID, r.defaults(ownerID, language, visibility))
	return sessionID, nil
}

// Join binds a new connection of identity to the session, creating the session
// on first sight, and returns the snapshot the client starts from.
func (r *Relay) Join(ctx context.Context, sessionID domain.SessionID, identity domain.Identity) (*sink.Connection, domain.Snapshot, error) {
	if sessionID == "" || identity.UserID == "" {
		return nil, domain.Snapshot{}, fmt.Errorf("%w: session and user are required", errors.ErrInvalidPayload)
	}
	r.mu.Lock()
	if r.stopping {
		r.mu.Unlock()
		return nil, domain.Snapshot{}, errors.ErrRelayStopped
	}
	mb := r.openMailboxLocked(sessionID, r.defaults(identity.UserID, "", ""))
	mb.pending.Add(1)
	r.mu.Unlock()
	defer mb.pending.Add(-1)

	displayName := lo.Ternary(identity.DisplayName == "", identity.UserID, identity.DisplayName)
	conn := sink.NewConnection(sessionID, identity.UserID, displayName, r.cfg.ConnectionBufferSize)
	rep, err := r.request(ctx, mb, envelope{kind: joinEnvelope, conn: conn})
	if err != nil {
		conn.Close()
		if ctx.Err() != nil {
			// the join may have been applied after the caller gave up
			go r.enqueue(mb, envelope{kind: leaveEnvelope, conn: conn})
		}
		return nil, domain.Snapshot{}, err
	}
	return conn, rep.snapshot, nil
}

// Submit queues an intent on the session mailbox and waits until it has been
// processed. Rejections are also sent to the connection as error events.
// Intents of a disconnected connection are ignored.
func (r *Relay) Submit(ctx context.Context, conn *sink.Connection, kind domain.IntentKind, payload any) error {
	if conn.Closed() {
		r.metrics.IntentProcessed(kind, observability.OutcomeIgnored)
		return errors.ErrConnectionClosed
	}
	mb, ok := r.mailbox(conn.SessionID)
	if !ok {
		return fmt.Errorf("%w: %s", errors.ErrUnknownSession, conn.SessionID)
	}
	_, err := r.request(ctx, mb, envelope{
		kind: intentEnvelope,
		conn: conn,
		intent: domain.Intent{
			SessionID:    conn.SessionID,
			UserID:       conn.UserID,
			ConnectionID: conn.ID,
			Kind:         kind,
			Payload:      payload,
			At:           r.now().UTC(),
		},
	})
	return err
}

// Disconnect closes the connection at once, so nothing it still sends is
// processed, then removes it from the roster.
func (r *Relay) Disconnect(ctx context.Context, conn *sink.Connection) error {
	if !conn.Close() {
		return nil
	}
	mb, ok := r.mailbox(conn.SessionID)
	if !ok {
		return nil
	}
	_, err := r.request(ctx, mb, envelope{kind: leaveEnvelope, conn: conn})
	if err != nil && !errors.Is(err, errors.ErrUnknownSession) && !errors.Is(err, errors.ErrRelayStopped) {
		return err
	}
	return nil
}

// DisconnectUser drops every connection userID has in the session.
func (r *Relay) DisconnectUser(ctx context.Context, sessionID domain.SessionID, userID string) (int, error) {
	var dropped int
	for _, recipient := range r.registry.Recipients(sessionID, "") {
		conn, ok := recipient.Sink.(*sink.Connection)
		if !ok || recipient.Participant.UserID != userID {
			continue
		}
		if err := r.Disconnect(ctx, conn); err != nil {
			return dropped, err
		}
		dropped++
	}
	return dropped, nil
}

func (r *Relay) Sessions() []domain.SessionID {
	return r.registry.SessionIDs()
}

// Mailboxes lists the inbox of every resident session for capacity sampling.
func (r *Relay) Mailboxes() []workers.NamedChannel {
	r.mu.Lock()
	defer r.mu.Unlock()
	channels := make([]workers.NamedChannel, 0, len(r.mailboxes))
	for id, mb := range r.mailboxes {
		channels = append(channels, workers.NamedChannel{Name: workers.QueueSessionMailbox, Key: string(id), Channel: mb.inbox})
	}
	return channels
}

func (r *Relay) defaults(ownerID, language string, visibility domain.Visibility) domain.SessionDefaults {
	if language == "" {
		language = r.cfg.DefaultLanguage
	}
	if visibility == "" {
		visibility = r.cfg.DefaultVisibility
	}
	defaults := domain.SessionDefaults{OwnerID: ownerID, Language: language, Visibility: visibility}
	if r.cfg.SeedDefaultCode {
		defaults.Content = domain.StarterCode(language)
	}
	return defaults
}

func (r *Relay) mailbox(id domain.SessionID) (*mailbox, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	mb, ok := r.mailboxes[id]
	return mb, ok
}

func (r *Relay) baseContext() context.Context {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ctx
}

// openMailboxLocked must be called with r.mu held.
func (r *Relay) openMailboxLocked(id domain.SessionID, defaults domain.SessionDefaults) *mailbox {
	if mb, ok := r.mailboxes[id]; ok {
		return mb
	}
	r.registry.CreateOrGet(id, defaults)
	mb := &mailbox{inbox: make(chan envelope, r.cfg.MailboxSize), done: make(chan struct{})}
	r.mailboxes[id] = mb
	r.metrics.SetResidentSessions(len(r.mailboxes))

	worker := workers.NewSessionWorker(r.log, id, mb.inbox, func(ctx context.Context, env envelope) bool {
		return r.handle(ctx, id, mb, env)
	})
	r.supervisor.Start(r.ctx, worker)
	r.log.Info("Session opened", "session_id", id)
	return mb
}

// request enqueues env and waits for its reply. It only ever waits on the
// mailbox of env's own session.
func (r *Relay) request(ctx context.Context, mb *mailbox, env envelope) (reply, error) {
	stopped := r.baseContext().Done()
	env.reply = make(chan reply, 1)
	select {
	case mb.inbox <- env:
	case <-mb.done:
		return reply{}, errors.ErrUnknownSession
	case <-ctx.Done():
		return reply{}, ctx.Err()
	case <-stopped:
		return reply{}, errors.ErrRelayStopped
	}

	select {
	case rep := <-env.reply:
		return rep, rep.err
	case <-mb.done:
		select {
		case rep := <-env.reply:
			return rep, rep.err
		default:
			return reply{}, errors.ErrUnknownSession
		}
	case <-ctx.Done():
		return reply{}, ctx.Err()
	case <-stopped:
		return reply{}, errors.ErrRelayStopped
	}
}

// enqueue posts a message nobody waits for.
func (r *Relay) enqueue(mb *mailbox, env envelope) bool {
	select {
	case mb.inbox <- env:
		return true
	case <-mb.done:
		return false
	case <-r.baseContext().Done():
		return false
	}
}

// handle runs on the session worker, one envelope at a time.
func (r *Relay) handle(ctx context.Context, id domain.SessionID, mb *mailbox, env envelope) (stop bool) {
	defer func() {
		if rec := recover(); rec != nil {
			env.respond(reply{err: fmt.Errorf("%w: %v", errors.ErrWorkerPanic, rec)})
			panic(rec)
		}
	}()

	switch env.kind {
	case joinEnvelope:
		env.respond(r.join(ctx, id, env.conn))
	case leaveEnvelope:
		r.leave(ctx, id, env.conn.ID)
		env.respond(reply{})
	case intentEnvelope:
		env.respond(reply{err: r.process(ctx, id, env.intent, env.conn)})
	case executionEnvelope:
		r.completeExecution(ctx, id, env.execution)
	case evictEnvelope:
		return r.evict(id, mb)
	case shutdownEnvelope:
		r.shutdown(id, mb)
		env.respond(reply{})
		return true
	}
	return false
}

func (r *Relay) join(ctx context.Context, id domain.SessionID, conn *sink.Connection) reply {
	if conn.Closed() {
		return reply{err: errors.ErrConnectionClosed}
	}
	snapshot, err := r.registry.Join(id, domain.Participant{
		UserID:       conn.UserID,
		ConnectionID: conn.ID,
		DisplayName:  conn.DisplayName,
	}, conn)
	if err != nil {
		return reply{err: err}
	}
	r.log.Info("Participant joined", "session_id", id, "user_id", conn.UserID, "role", snapshot.Self.Role)
	r.broadcast(ctx, r.event(id, conn.UserID, domain.EventParticipantJoined,
		domain.PresencePayload{Participant: snapshot.Self}), conn.ID)
	return reply{snapshot: snapshot}
}

func (r *Relay) leave(ctx context.Context, id domain.SessionID, connectionID string) {
	participant, ok := r.registry.Leave(id, connectionID)
	if !ok {
		return
	}
	r.log.Info("Participant left", "session_id", id, "user_id", participant.UserID)
	r.broadcast(ctx, r.event(id, participant.UserID, domain.EventParticipantLeft,
		domain.PresencePayload{Participant: participant}), "")
}

// process authorizes, applies, records and fans out one intent.
func (r *Relay) process(ctx context.Context, id domain.SessionID, intent domain.Intent, conn *sink.Connection) error {
	if conn.Closed() {
		r.metrics.IntentProcessed(intent.Kind, observability.OutcomeIgnored)
		return errors.ErrConnectionClosed
	}
	if err := r.apply(ctx, id, intent, conn); err != nil {
		r.metrics.IntentProcessed(intent.Kind, observability.OutcomeRejected)
		r.log.Debug("Intent rejected",
			"session_id", id, "user_id", intent.UserID, "kind", intent.Kind, "error", err)
		r.reject(ctx, id, intent, conn, err)
		return err
	}
	r.metrics.IntentProcessed(intent.Kind, observability.OutcomeApplied)
	return nil
}

func (r *Relay) apply(ctx context.Context, id domain.SessionID, intent domain.Intent, conn *sink.Connection) error {
	if err := domain.ValidatePayload(intent.Kind, intent.Payload); err != nil {
		return err
	}
	if _, err := r.registry.Participant(id, conn.ID); err != nil {
		return err
	}
	// a transfer is checked by the transfer itself, a non-owner caller is an invariant violation
	if !isTransfer(intent) {
		if err := r.registry.Authorize(id, intent.UserID, intent.Kind); err != nil {
			return err
		}
	}

	var (
		entry any
		evt   domain.Event
	)
	switch p := intent.Payload.(type) {
	case domain.EditPayload:
		res, err := r.registry.ApplyEdit(id, intent.UserID, p.Content)
		if err != nil {
			return err
		}
		entry = p
		evt = r.event(id, intent.UserID, domain.EventEdit, domain.EditedPayload{Content: res.Content, Revision: res.Revision})
		evt.Revision = res.Revision

	case domain.CursorPayload:
		participant, err := r.registry.MoveCursor(id, conn.ID, domain.Cursor{Line: p.Line, Column: p.Column})
		if err != nil {
			return err
		}
		entry = p
		evt = r.event(id, intent.UserID, domain.EventCursorMove, domain.CursorMovedPayload{
			ConnectionID: conn.ID,
			DisplayName:  participant.DisplayName,
			Line:         p.Line,
			Column:       p.Column,
		})

	case domain.LanguagePayload:
		if err := r.registry.SetLanguage(id, intent.UserID, p.Language); err != nil {
			return err
		}
		entry, evt = p, r.event(id, intent.UserID, domain.EventLanguageChange, p)

	case domain.LockPayload:
		if err := r.registry.SetLock(id, intent.UserID, p.Locked); err != nil {
			return err
		}
		entry, evt = p, r.event(id, intent.UserID, domain.EventLockToggle, p)

	case domain.RolePayload:
		changed, err := r.changeRole(id, intent.UserID, p)
		if err != nil {
			return err
		}
		entry, evt = changed, r.event(id, intent.UserID, domain.EventRoleChange, changed)

	case domain.ChatPayload:
		message, words := r.moderator.Censor(p.Message)
		if len(words) > 0 {
			r.log.Debug("Chat message censored", "session_id", id, "user_id", intent.UserID, "words", len(words))
		}
		entry = domain.ChatPayload{Message: message}
		evt = r.event(id, intent.UserID, domain.EventChat, domain.ChatMessagePayload{
			DisplayName: conn.DisplayName,
			Message:     message,
		})

	case domain.ExecutePayload:
		return r.startExecution(ctx, id, intent, conn)

	default:
		return fmt.Errorf("%w: %T", errors.ErrInvalidPayload, p)
	}

	r.record(id, intent.UserID, intent.Kind, entry)
	r.broadcast(ctx, evt, conn.ID)
	if p, ok := intent.Payload.(domain.RolePayload); ok && p.Role == domain.RoleNone {
		r.dropUser(ctx, id, p.UserID)
	}
	return nil
}

func isTransfer(intent domain.Intent) bool {
	p, ok := intent.Payload.(domain.RolePayload)
	return ok && p.Role == domain.RoleOwner
}

// changeRole treats a grant of owner as a transfer from the caller and a
// grant of none as the removal of a collaborator.
func (r *Relay) changeRole(id domain.SessionID, callerID string, p domain.RolePayload) (domain.RoleChangedPayload, error) {
	switch p.Role {
	case domain.RoleOwner:
	case domain.RoleNone:
		if err := r.registry.Revoke(id, callerID, p.UserID); err != nil {
			return domain.RoleChangedPayload{}, err
		}
		r.log.Info("Collaborator removed", "session_id", id, "user_id", p.UserID, "by", callerID)
		return domain.RoleChangedPayload{UserID: p.UserID, Role: domain.RoleNone}, nil
	default:
		if err := r.registry.SetRole(id, callerID, p.UserID, p.Role); err != nil {
			return domain.RoleChangedPayload{}, err
		}
		return domain.RoleChangedPayload{UserID: p.UserID, Role: p.Role}, nil
	}
	ok, err := r.registry.TransferOwnership(id, callerID, p.UserID)
	if err != nil {
		return domain.RoleChangedPayload{}, err
	}
	if !ok {
		return domain.RoleChangedPayload{}, fmt.Errorf("%w: ownership cannot move from %s to %s",
			errors.ErrInvariantViolation, callerID, p.UserID)
	}
	r.log.Info("Ownership transferred", "session_id", id, "from", callerID, "to", p.UserID)
	return domain.RoleChangedPayload{UserID: p.UserID, Role: domain.RoleOwner, PreviousOwner: callerID}, nil
}

// reject tells the originator only. A rejected edit carries the
// authoritative document so the client can revert.
func (r *Relay) reject(ctx context.Context, id domain.SessionID, intent domain.Intent, conn *sink.Connection, cause error) {
	payload := domain.ErrorPayload{
		Code:    errors.Code(cause),
		Message: cause.Error(),
		Intent:  intent.Kind,
	}
	if intent.Kind == domain.IntentEdit {
		if s, err := r.registry.Get(id); err == nil {
			content := s.Content()
			payload.Content = &content
			payload.Revision = s.Revision()
		}
	}
	if err := r.fanout.Deliver(ctx, r.event(id, intent.UserID, domain.EventError, payload), conn); err != nil {
		r.log.Debug("Error event not delivered", "session_id", id, "user_id", intent.UserID, "error", err)
	}
}

// record appends to the ledger only the kinds that are recorded at all.
func (r *Relay) record(id domain.SessionID, userID string, kind domain.IntentKind, payload any) {
	if !kind.Recorded() {
		return
	}
	r.ledger.Append(string(id), userID, string(kind), encodePayload(payload))
	r.metrics.BlockAppended()
}

// broadcast fans evt out to every participant except exceptConnectionID.
// A participant whose delivery fails is disconnected.
func (r *Relay) broadcast(ctx context.Context, evt domain.Event, exceptConnectionID string) {
	recipients := r.registry.Recipients(evt.SessionID, exceptConnectionID)
	sinks := lo.Map(recipients, func(recipient Recipient, _ int) contract.EventSink { return recipient.Sink })
	failed := r.fanout.Fanout(ctx, evt, sinks)
	if len(failed) == 0 {
		return
	}
	for _, recipient := range recipients {
		if !lo.Contains(failed, recipient.Sink) {
			continue
		}
		r.metrics.FanoutFailed()
		r.log.Warn("Dropping unresponsive participant",
			"session_id", evt.SessionID, "user_id", recipient.Participant.UserID)
		if conn, ok := recipient.Sink.(*sink.Connection); ok {
			conn.Close()
		}
		r.leave(ctx, evt.SessionID, recipient.Participant.ConnectionID)
	}
}

// dropUser disconnects every connection of userID from inside the mailbox.
func (r *Relay) dropUser(ctx context.Context, id domain.SessionID, userID string) {
	for _, recipient := range r.registry.Recipients(id, "") {
		if recipient.Participant.UserID != userID {
			continue
		}
		if conn, ok := recipient.Sink.(*sink.Connection); ok {
			conn.Close()
		}
		r.leave(ctx, id, recipient.Participant.ConnectionID)
	}
}

func (r *Relay) event(id domain.SessionID, originUserID string, kind domain.EventKind, payload any) domain.Event {
	return domain.Event{
		Kind:         kind,
		SessionID:    id,
		OriginUserID: originUserID,
		Payload:      payload,
		At:           r.now().UTC(),
	}
}

func (r *Relay) scheduleEviction(id domain.SessionID) {
	mb, ok := r.mailbox(id)
	if !ok {
		return
	}
	r.enqueue(mb, envelope{kind: evictEnvelope})
}

// evict runs on the session worker. It gives up when the session is no longer
// idle. With a join in flight it waits for another idle period, because that
// join may still fail and leave the session empty.
func (r *Relay) evict(id domain.SessionID, mb *mailbox) bool {
	r.mu.Lock()
	if mb.pending.Load() > 0 {
		r.mu.Unlock()
		r.registry.rearmIdle(id)
		r.log.Debug("Eviction postponed, a join is in flight", "session_id", id)
		return false
	}
	if !r.registry.Idle(id) {
		r.mu.Unlock()
		r.log.Debug("Eviction skipped, session is active", "session_id", id)
		return false
	}
	session, chain := r.detachLocked(id)
	r.mu.Unlock()

	r.retire(session, chain, mb)
	r.log.Info("Session evicted", "session_id", id, "blocks", len(chain))
	return true
}

// shutdown runs on the session worker and closes the session whatever its state.
func (r *Relay) shutdown(id domain.SessionID, mb *mailbox) {
	recipients := r.registry.Recipients(id, "")
	r.mu.Lock()
	session, chain := r.detachLocked(id)
	r.mu.Unlock()

	for _, recipient := range recipients {
		if conn, ok := recipient.Sink.(*sink.Connection); ok {
			conn.Close()
		}
	}
	r.retire(session, chain, mb)
	r.log.Info("Session closed on shutdown", "session_id", id, "blocks", len(chain), "participants", len(recipients))
}

// detachLocked must be called with r.mu held. The session, its chain and its
// mailbox disappear together, so a later Join starts afresh.
func (r *Relay) detachLocked(id domain.SessionID) (*Session, []ledger.Block) {
	delete(r.mailboxes, id)
	session, _ := r.registry.Remove(id)
	chain := r.ledger.Detach(string(id))
	r.metrics.SetResidentSessions(len(r.mailboxes))
	return session, chain
}

// retire archives a detached session and answers what is left in its mailbox.
func (r *Relay) retire(session *Session, chain []ledger.Block, mb *mailbox) {
	close(mb.done)
	if session != nil {
		r.archiveSession(session, chain)
	}
	r.drain(mb)
}

func (r *Relay) archiveSession(session *Session, chain []ledger.Block) {
	if r.archive == nil {
		return
	}
	archive := domain.Archive{
		SessionID: session.ID(),
		Content:   session.Content(),
		Language:  session.Language(),
		Revision:  session.Revision(),
		OwnerID:   session.Owner(),
		CreatedAt: session.CreatedAt(),
		EvictedAt: r.now().UTC(),
		Chain:     chain,
	}
	if r.keyring != nil {
		seal, err := r.keyring.Seal(string(session.ID()), chain)
		if err != nil {
			r.log.Error("Sealing ledger failed", "session_id", session.ID(), "error", err)
		}
		archive.Seal = seal
	}
	r.archive(archive)
}

// drain answers whatever is still queued once the mailbox is closed.
func (r *Relay) drain(mb *mailbox) {
	for {
		select {
		case env := <-mb.inbox:
			env.respond(reply{err: errors.ErrUnknownSession})
		default:
			return
		}
	}
}
