package worker

import (
	"context"
	"log/slog"
	"time"
)

// Sweeper removes expired entries from an in-process store.
type Sweeper interface {
	Sweep() int
}

// SweepWorker periodically sweeps the in-memory revocation list so that tokens
// revoked long ago do not pile up in a long-running server.
type SweepWorker struct {
	target   Sweeper
	logger   *slog.Logger
	interval time.Duration
}

// NewSweepWorker creates a new sweep worker
func NewSweepWorker(target Sweeper, logger *slog.Logger, interval time.Duration) *SweepWorker {
	if logger == nil {
		logger = slog.Default()
	}
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	return &SweepWorker{target: target, logger: logger, interval: interval}
}

// Start runs until ctx is done
func (w *SweepWorker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.logger.Info("sweep worker started", slog.Duration("interval", w.interval))

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("sweep worker stopped")
			return
		case <-ticker.C:
			w.sweep()
		}
	}
}

func (w *SweepWorker) sweep() {
	if removed := w.target.Sweep(); removed > 0 {
		w.logger.Debug("swept expired revocations", slog.Int("removed", removed))
	}
}
