package workers

import (
	"codeshare/observability"
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/shirou/gopsutil/process"
)

// TelemetryWorker periodically logs the footprint of the process and the
// number of resident sessions, and publishes the latter as a gauge.
type TelemetryWorker struct {
	log            *slog.Logger
	metricInterval time.Duration
	sessions       func() int
	metrics        *observability.Metrics
}

func NewTelemetryWorker(log *slog.Logger, metricInterval time.Duration,
	sessions func() int, metrics *observability.Metrics) *TelemetryWorker {
	return &TelemetryWorker{log: log, metricInterval: metricInterval, sessions: sessions, metrics: metrics}
}

func (w *TelemetryWorker) Run(ctx context.Context) error {
	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return err
	}
	ticker := time.NewTicker(w.metricInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			resident := w.sessions()
			w.metrics.SetResidentSessions(resident)

			rss, cpu, err := selfStats(p)
			if err != nil {
				w.log.Error("Failed to collect self stats", "err", err)
				continue
			}
			w.log.Info("Telemetry",
				"rss_bytes", rss,
				"cpu_percent", cpu,
				"resident_sessions", resident)
		}
	}
}

func selfStats(p *process.Process) (uint64, float64, error) {
	memInfo, err := p.MemoryInfo()
	if err != nil {
		return 0, 0, err
	}
	cpuPercent, err := p.CPUPercent()
	if err != nil {
		return 0, 0, err
	}
	return memInfo.RSS, cpuPercent, nil
}
