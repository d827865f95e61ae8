package workers

import (
	"codeshare/observability"
	"context"
	"log/slog"
	"reflect"
	"time"
)

const (
	QueueSessionMailbox = "session_mailbox"
	QueueArchive        = "archive"
	QueueRedisMirror    = "redis_mirror"
)

// NamedChannel is a buffered channel sampled by ChannelCapacityWorker.
// Channels sharing a Name are reported together, Key tells them apart in logs.
type NamedChannel struct {
	Name    string
	Key     string
	Channel any
}

// ChannelCapacityWorker periodically samples the length of internal queues.
// Reading len(channel) and cap(channel) is non-blocking, so this won't interfere
// with the goroutines using them. Per queue name the fullest channel is
// published, and every channel above the threshold is logged.
type ChannelCapacityWorker struct {
	log                  *slog.Logger
	channels             func() []NamedChannel
	metricInterval       time.Duration
	lowCapacityThreshold int
	metrics              *observability.Metrics
}

func NewChannelCapacityWorker(log *slog.Logger, channels func() []NamedChannel,
	metricInterval time.Duration, lowCapacityThreshold int, metrics *observability.Metrics) *ChannelCapacityWorker {
	return &ChannelCapacityWorker{
		log:                  log,
		channels:             channels,
		metricInterval:       metricInterval,
		lowCapacityThreshold: lowCapacityThreshold,
		metrics:              metrics,
	}
}

func (w *ChannelCapacityWorker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.metricInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			for name, percent := range w.Sample() {
				w.metrics.SetQueueFill(name, percent)
			}
		}
	}
}

// Sample returns the highest fill percentage seen per queue name.
func (w *ChannelCapacityWorker) Sample() map[string]float64 {
	fill := make(map[string]float64)
	for _, nc := range w.channels() {
		v := reflect.ValueOf(nc.Channel)
		if v.Kind() != reflect.Chan {
			w.log.Error("Provided object is not a channel", "name", nc.Name)
			continue
		}
		percent := 0.0
		if capacity := v.Cap(); capacity > 0 {
			percent = float64(v.Len()) * 100 / float64(capacity)
		}
		if percent >= float64(w.lowCapacityThreshold) {
			w.log.Warn("Queue running low on capacity", "name", nc.Name, "key", nc.Key, "fill_percent", percent)
		}
		if current, ok := fill[nc.Name]; !ok || percent > current {
			fill[nc.Name] = percent
		}
	}
	return fill
}
