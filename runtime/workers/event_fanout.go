package workers

import (
	"codeshare/contract"
	"codeshare/domain"
	"context"
	"log/slog"
	"sync"
	"time"
)

// EventFanout delivers one session event to its recipients and to the
// permanent sinks (mirror, projections).
//
// Every sink gets its own deadline, so a slow participant costs at most
// sinkTimeout and never delays the others. Fanout returns once every
// delivery finished or timed out, which keeps per-recipient order equal to
// mailbox order.
type EventFanout struct {
	log            *slog.Logger
	permanentSinks []contract.EventSink
	sinkTimeout    time.Duration
}

func NewEventFanout(log *slog.Logger, sinkTimeout time.Duration, permanentSinks ...contract.EventSink) *EventFanout {
	return &EventFanout{log: log, sinkTimeout: sinkTimeout, permanentSinks: permanentSinks}
}

// Fanout returns the recipients whose delivery failed.
// Failures of permanent sinks are only logged.
func (f *EventFanout) Fanout(ctx context.Context, evt domain.Event, recipients []contract.EventSink) []contract.EventSink {
	failed := make([]bool, len(recipients))
	var wg sync.WaitGroup

	for i, sink := range recipients {
		wg.Add(1)
		go func(i int, sink contract.EventSink) {
			defer wg.Done()
			if err := f.deliver(ctx, sink, evt); err != nil {
				f.log.Debug("Recipient delivery failed", "session_id", evt.SessionID, "kind", evt.Kind, "error", err)
				failed[i] = true
			}
		}(i, sink)
	}
	for _, sink := range f.permanentSinks {
		wg.Add(1)
		go func(sink contract.EventSink) {
			defer wg.Done()
			if err := f.deliver(ctx, sink, evt); err != nil {
				f.log.Warn("Permanent sink delivery failed", "sink", sink, "kind", evt.Kind, "error", err)
			}
		}(sink)
	}
	wg.Wait()

	var res []contract.EventSink
	for i, sink := range recipients {
		if failed[i] {
			res = append(res, sink)
		}
	}
	return res
}

func (f *EventFanout) deliver(ctx context.Context, sink contract.EventSink, evt domain.Event) error {
	sinkCtx, cancel := context.WithTimeout(ctx, f.sinkTimeout)
	defer cancel()
	return sink.Consume(sinkCtx, evt)
}

// Deliver sends evt to a single sink only, under the same deadline.
func (f *EventFanout) Deliver(ctx context.Context, evt domain.Event, sink contract.EventSink) error {
	return f.deliver(ctx, sink, evt)
}
