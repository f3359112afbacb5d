package workers

import (
	"context"
	"log/slog"
	"os"
	"time"

	"chat-presence/observability"

	"github.com/shirou/gopsutil/process"
)

// ProcessStatsWorker samples the server process and publishes it as gauges.
type ProcessStatsWorker struct {
	log      *slog.Logger
	metrics  *observability.Metrics
	interval time.Duration
	pid      int32
}

func NewProcessStatsWorker(log *slog.Logger, metrics *observability.Metrics, interval time.Duration) *ProcessStatsWorker {
	return &ProcessStatsWorker{log: log, metrics: metrics, interval: interval, pid: int32(os.Getpid())}
}

func (w *ProcessStatsWorker) Run(ctx context.Context) error {
	p, err := process.NewProcess(w.pid)
	if err != nil {
		return err
	}
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.sample(p)
	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Context done, stopping process stats")
			return nil
		case <-ticker.C:
			w.sample(p)
		}
	}
}

func (w *ProcessStatsWorker) sample(p *process.Process) {
	mem, err := p.MemoryInfo()
	if err != nil {
		w.log.Debug("Unable to read process memory", "error", err)
		return
	}
	cpu, err := p.CPUPercent()
	if err != nil {
		w.log.Debug("Unable to read process cpu usage", "error", err)
		return
	}
	// Not supported everywhere
	fds, err := p.NumFDs()
	if err != nil {
		fds = 0
	}
	w.metrics.SetProcessStats(mem.RSS, cpu, fds)
}
