package service

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// DefaultSweepInterval is how often expired sessions and tokens are
// collected when the caller does not configure an interval.
const DefaultSweepInterval = 5 * time.Minute

// Sweeper periodically removes expired sessions and reset tokens. The core
// itself never self-schedules; the owning process runs a Sweeper (or calls
// SweepExpired directly) as its cleanup policy.
type Sweeper struct {
	svc      *IdentityService
	interval time.Duration
	log      *zap.Logger
}

// NewSweeper constructs a sweeper over the given service. A non-positive
// interval falls back to DefaultSweepInterval.
func NewSweeper(svc *IdentityService, interval time.Duration, log *zap.Logger) *Sweeper {
	if log == nil {
		log = zap.NewNop()
	}
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	return &Sweeper{svc: svc, interval: interval, log: log}
}

// Run sweeps on a ticker until ctx is canceled. Sweep failures are logged
// and retried on the next tick; they never stop the loop.
func (w *Sweeper) Run(ctx context.Context) {
	t := time.NewTicker(w.interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			sessions, tokens, err := w.svc.SweepExpired(ctx)
			if err != nil {
				w.log.Warn("expiry sweep failed", zap.Error(err))
				continue
			}
			if sessions > 0 || tokens > 0 {
				w.log.Info("expiry sweep",
					zap.Int("sessions_removed", sessions),
					zap.Int("tokens_removed", tokens),
				)
			}
		}
	}
}
