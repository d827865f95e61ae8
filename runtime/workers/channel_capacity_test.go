package workers

import (
	"codeshare/observability"
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestChannelCapacityWorker_Keeps_Fullest_Channel_Per_Queue(t *testing.T) {
	req := require.New(t)
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	// Given two session mailboxes and an archive buffer
	quiet := make(chan int, 4)
	busy := make(chan int, 4)
	busy <- 1
	busy <- 2
	busy <- 3
	archive := make(chan string, 10)
	archive <- "S1"

	worker := NewChannelCapacityWorker(log, func() []NamedChannel {
		return []NamedChannel{
			{Name: QueueSessionMailbox, Key: "S1", Channel: quiet},
			{Name: QueueSessionMailbox, Key: "S2", Channel: busy},
			{Name: QueueArchive, Channel: archive},
			{Name: "bogus", Channel: 42},
		}
	}, time.Hour, 80, nil)

	// When sampling
	fill := worker.Sample()

	// Then the fullest mailbox wins and non channels are skipped
	req.Equal(map[string]float64{QueueSessionMailbox: 75, QueueArchive: 10}, fill)
}

func TestChannelCapacityWorker_Publishes_Gauge(t *testing.T) {
	req := require.New(t)
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	registry := prometheus.NewRegistry()
	metrics := observability.NewMetrics(registry)

	mirror := make(chan int, 2)
	mirror <- 1
	worker := NewChannelCapacityWorker(log, func() []NamedChannel {
		return []NamedChannel{{Name: QueueRedisMirror, Channel: (<-chan int)(mirror)}}
	}, 10*time.Millisecond, 80, metrics)

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Millisecond)
	defer cancel()
	req.NoError(worker.Run(ctx))

	count, err := testutil.GatherAndCount(registry, "codeshare_queue_fill_percent")
	req.NoError(err)
	req.Equal(1, count)
}
