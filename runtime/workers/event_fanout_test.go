package workers

import (
	"codeshare/contract"
	"codeshare/domain"
	"codeshare/mocks"
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestEventFanout_Fanout(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	permanent := mocks.NewMockEventSink(ctrl)
	bob := mocks.NewMockEventSink(ctrl)
	carol := mocks.NewMockEventSink(ctrl)
	evt := domain.Event{Kind: domain.EventEdit, SessionID: "S1", OriginUserID: "alice"}

	// Given every sink accepts the event
	permanent.EXPECT().Consume(gomock.Any(), evt).Return(nil).Times(1)
	bob.EXPECT().Consume(gomock.Any(), evt).Return(nil).Times(1)
	carol.EXPECT().Consume(gomock.Any(), evt).Return(nil).Times(1)

	fanout := NewEventFanout(log, time.Second, permanent)

	// When the event is fanned out
	failed := fanout.Fanout(context.Background(), evt, []contract.EventSink{bob, carol})

	// Then nobody failed
	req.Empty(failed)
}

func TestEventFanout_SinkTimeout(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	slow := mocks.NewMockEventSink(ctrl)
	fast := mocks.NewMockEventSink(ctrl)

	// Given a sink blocking until its deadline
	slow.EXPECT().Consume(gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, _ domain.Event) error {
			<-ctx.Done()
			return ctx.Err()
		}).Times(1)
	fast.EXPECT().Consume(gomock.Any(), gomock.Any()).Return(nil).Times(1)

	fanout := NewEventFanout(log, 20*time.Millisecond)

	start := time.Now()
	failed := fanout.Fanout(context.Background(), domain.Event{Kind: domain.EventChat}, []contract.EventSink{slow, fast})

	// Then only the slow sink is reported and the fanout did not wait forever
	req.Equal([]contract.EventSink{slow}, failed)
	req.Less(time.Since(start), time.Second)
}

func TestEventFanout_Permanent_Sink_Failure_Is_Not_Reported(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	permanent := mocks.NewMockEventSink(ctrl)
	permanent.EXPECT().Consume(gomock.Any(), gomock.Any()).Return(context.DeadlineExceeded).Times(1)

	fanout := NewEventFanout(log, 20*time.Millisecond, permanent)
	req.Empty(fanout.Fanout(context.Background(), domain.Event{}, nil))
}
