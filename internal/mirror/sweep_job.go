package mirror

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// SweepJob serializes duplicate sweeps. MergePotentialDuplicates is not safe
// against concurrent re-entry, so every caller (the background ticker and
// the admin endpoint) goes through Run.
type SweepJob struct {
	log      *slog.Logger
	svc      *AdminService
	interval time.Duration

	mu   sync.Mutex
	stop chan struct{}
}

func NewSweepJob(log *slog.Logger, svc *AdminService, interval time.Duration) *SweepJob {
	return &SweepJob{log: log, svc: svc, interval: interval}
}

// Run performs one sweep; concurrent calls queue behind each other.
func (j *SweepJob) Run(ctx context.Context) (string, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.svc.MergePotentialDuplicates(ctx)
}

// Start launches the periodic sweep. Idempotent.
func (j *SweepJob) Start() {
	j.mu.Lock()
	if j.stop != nil {
		j.mu.Unlock()
		return
	}
	stop := make(chan struct{})
	j.stop = stop
	j.mu.Unlock()

	go func() {
		ticker := time.NewTicker(j.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
				if kept, err := j.Run(ctx); err != nil {
					j.log.Warn("duplicate_sweep_failed", "error", err)
				} else if kept != "" {
					j.log.Info("duplicate_sweep_merged", "keep", kept)
				}
				cancel()
			case <-stop:
				return
			}
		}
	}()
}

func (j *SweepJob) Stop() {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.stop != nil {
		close(j.stop)
		j.stop = nil
	}
}
