package workers

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSessionWorker_Handles_In_Order_Until_Stop(t *testing.T) {
	req := require.New(t)
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	inbox := make(chan int, 8)
	var handled []int

	worker := NewSessionWorker(log, "S1", inbox, func(_ context.Context, msg int) bool {
		handled = append(handled, msg)
		return msg < 0
	})

	for _, msg := range []int{1, 2, 3, -1, 4} {
		inbox <- msg
	}

	// When the worker runs
	req.NoError(worker.Run(context.Background()))

	// Then messages were handled in order up to the stop message
	req.Equal([]int{1, 2, 3, -1}, handled)
	req.Len(inbox, 1)
}

func TestSessionWorker_Stops_With_Context(t *testing.T) {
	req := require.New(t)
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	worker := NewSessionWorker(log, "S1", make(chan int), func(context.Context, int) bool { return false })

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	req.NoError(worker.Run(ctx))
}
