package workers

import (
	"codeshare/contract"
	"codeshare/domain"
	"codeshare/observability"
	"context"
	"log/slog"
	"time"
)

const archiveFlushTimeout = 5 * time.Second

// ArchiveWorker writes evicted sessions to the archive store, off the session mailboxes.
type ArchiveWorker struct {
	log      *slog.Logger
	store    contract.ArchiveStore
	archives chan domain.Archive
	metrics  *observability.Metrics
}

func NewArchiveWorker(log *slog.Logger, store contract.ArchiveStore, bufferSize int, metrics *observability.Metrics) *ArchiveWorker {
	return &ArchiveWorker{log: log, store: store, archives: make(chan domain.Archive, bufferSize), metrics: metrics}
}

// Offer never blocks. It reports false when the archive was dropped.
func (w *ArchiveWorker) Offer(archive domain.Archive) bool {
	select {
	case w.archives <- archive:
		return true
	default:
		w.log.Warn("Archive buffer full, dropping session", "session_id", archive.SessionID)
		w.metrics.ArchiveDropped()
		return false
	}
}

func (w *ArchiveWorker) Queue() NamedChannel {
	return NamedChannel{Name: QueueArchive, Channel: w.archives}
}

func (w *ArchiveWorker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			w.flush()
			return nil
		case archive := <-w.archives:
			w.write(ctx, archive)
		}
	}
}

// flush writes what is still buffered when the worker is asked to stop.
func (w *ArchiveWorker) flush() {
	ctx, cancel := context.WithTimeout(context.Background(), archiveFlushTimeout)
	defer cancel()
	for {
		select {
		case archive := <-w.archives:
			w.write(ctx, archive)
		default:
			return
		}
	}
}

func (w *ArchiveWorker) write(ctx context.Context, archive domain.Archive) {
	if err := w.store.Store(ctx, archive); err != nil {
		w.log.Error("Archiving session failed", "session_id", archive.SessionID, "error", err)
		w.metrics.ArchiveDropped()
		return
	}
	w.log.Info("Session archived", "session_id", archive.SessionID, "blocks", len(archive.Chain))
	w.metrics.ArchiveWritten()
}
