package runtime

import (
	"codeshare/domain"
	"codeshare/errors"
	"codeshare/sink"
	"context"
)

type executionOutcome struct {
	requestedBy string
	result      domain.ExecutionResult
}

// startExecution records the request and hands a snapshot of the document to
// the executor outside the mailbox. The result comes back as a mailbox message.
func (r *Relay) startExecution(ctx context.Context, id domain.SessionID, intent domain.Intent, conn *sink.Connection) error {
	if r.executor == nil {
		return errors.ErrExecutionUnavailable
	}
	session, err := r.registry.Get(id)
	if err != nil {
		return err
	}
	started := domain.ExecutionStartedPayload{
		Language:    session.Language(),
		Revision:    session.Revision(),
		RequestedBy: intent.UserID,
	}
	content := session.Content()
	mb, ok := r.mailbox(id)
	if !ok {
		return errors.ErrUnknownSession
	}

	r.record(id, intent.UserID, intent.Kind, started)
	r.broadcast(ctx, r.event(id, intent.UserID, domain.EventExecutionStarted, started), conn.ID)

	go r.execute(mb, id, intent.UserID, content, started.Language)
	return nil
}

func (r *Relay) execute(mb *mailbox, id domain.SessionID, requestedBy, content, language string) {
	ctx := r.baseContext()
	if r.cfg.ExecutionTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.cfg.ExecutionTimeout)
		defer cancel()
	}

	start := r.now()
	result, err := r.executor.Execute(ctx, id, content, language)
	if err != nil {
		result.Error = err.Error()
		if result.ExitStatus == 0 {
			result.ExitStatus = -1
		}
	}
	if result.Duration == 0 {
		result.Duration = r.now().Sub(start)
	}

	if !r.enqueue(mb, envelope{kind: executionEnvelope, execution: executionOutcome{requestedBy: requestedBy, result: result}}) {
		r.log.Debug("Execution result discarded, session is gone", "session_id", id, "user_id", requestedBy)
	}
}

// completeExecution records the result and sends it to everyone, requester included.
func (r *Relay) completeExecution(ctx context.Context, id domain.SessionID, outcome executionOutcome) {
	if _, err := r.registry.Get(id); err != nil {
		return
	}
	r.ledger.Append(string(id), outcome.requestedBy, string(domain.EventExecutionResult), encodePayload(outcome.result))
	r.metrics.BlockAppended()
	r.log.Info("Execution finished", "session_id", id, "user_id", outcome.requestedBy,
		"exit_status", outcome.result.ExitStatus, "duration", outcome.result.Duration)
	r.broadcast(ctx, r.event(id, outcome.requestedBy, domain.EventExecutionResult, outcome.result), "")
}

