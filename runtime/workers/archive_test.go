package workers

import (
	"codeshare/domain"
	"codeshare/mocks"
	"codeshare/observability"
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestArchiveWorker_Stores_Offered_Archives(t *testing.T) {
	req := require.New(t)
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	store := mocks.NewMockArchiveStore(ctrl)

	stored := make(chan domain.SessionID, 2)
	store.EXPECT().Store(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, a domain.Archive) error {
			stored <- a.SessionID
			return nil
		}).Times(2)

	worker := NewArchiveWorker(log, store, 4, observability.NewMetrics(prometheus.NewRegistry()))
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = worker.Run(ctx)
		close(done)
	}()

	// When two sessions are evicted
	req.True(worker.Offer(domain.Archive{SessionID: "S1"}))
	req.True(worker.Offer(domain.Archive{SessionID: "S2"}))

	// Then both reach the store in order
	for _, want := range []domain.SessionID{"S1", "S2"} {
		select {
		case got := <-stored:
			req.Equal(want, got)
		case <-time.After(time.Second):
			req.Fail("archive not stored")
		}
	}
	cancel()
	<-done
}

func TestArchiveWorker_Offer_Drops_When_Full(t *testing.T) {
	req := require.New(t)
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	store := mocks.NewMockArchiveStore(ctrl)

	worker := NewArchiveWorker(log, store, 1, nil)

	req.True(worker.Offer(domain.Archive{SessionID: "S1"}))
	req.False(worker.Offer(domain.Archive{SessionID: "S2"}))
}

func TestArchiveWorker_Flushes_On_Stop(t *testing.T) {
	req := require.New(t)
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	store := mocks.NewMockArchiveStore(ctrl)

	// Given a store failing for the first archive
	gomock.InOrder(
		store.EXPECT().Store(gomock.Any(), gomock.Any()).Return(errors.New("disk full")),
		store.EXPECT().Store(gomock.Any(), gomock.Any()).Return(nil),
	)
	worker := NewArchiveWorker(log, store, 2, nil)
	req.True(worker.Offer(domain.Archive{SessionID: "S1"}))
	req.True(worker.Offer(domain.Archive{SessionID: "S2"}))

	// When the worker starts with an already cancelled context
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// Then buffered archives are still written before it returns
	req.NoError(worker.Run(ctx))
}
