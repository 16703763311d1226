package workers

import (
	"chat-hub/observability"
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/shirou/gopsutil/process"
)

const defaultSampleInterval = 5 * time.Second

// ProcessStats periodically samples the server's own memory and CPU usage
// and records the result for the stats endpoint.
type ProcessStats struct {
	log      *slog.Logger
	stats    *observability.Stats
	interval time.Duration
}

func NewProcessStats(log *slog.Logger, stats *observability.Stats) *ProcessStats {
	return &ProcessStats{log: log, stats: stats, interval: defaultSampleInterval}
}

func (w *ProcessStats) WithInterval(d time.Duration) *ProcessStats {
	if d > 0 {
		w.interval = d
	}
	return w
}

func (w *ProcessStats) Run(ctx context.Context) error {
	w.log.Info("Starting process stats worker")
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			rss, cpu, err := getSelfStats(p)
			if err != nil {
				w.log.Error("Failed to collect self stats", "err", err)
				continue
			}
			w.stats.RecordProcessSample(rss, cpu)
		}
	}
}

// getSelfStats retrieves memory and CPU usage for the given process.
func getSelfStats(p *process.Process) (uint64, float64, error) {
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
