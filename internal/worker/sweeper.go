package worker

import (
	"context"
	"log/slog"
	"time"

	"wallet-gateway/internal/config"
)

type SessionExpirer interface {
	ExpireStale(ctx context.Context, limit int) (int64, error)
}

type CallbackRetrier interface {
	RetryUndelivered(ctx context.Context, limit int) (int, error)
}

// Sweeper periodically expires stale pay sessions and re-sends callbacks
// that were never acknowledged.
type Sweeper struct {
	log        *slog.Logger
	sessions   SessionExpirer
	callbacks  CallbackRetrier
	interval   time.Duration
	sweepBatch int
	retryBatch int
}

func NewSweeper(log *slog.Logger, sessions SessionExpirer, callbacks CallbackRetrier, cfg *config.Config) *Sweeper {
	return &Sweeper{
		log:        log,
		sessions:   sessions,
		callbacks:  callbacks,
		interval:   cfg.Worker.SweepInterval,
		sweepBatch: cfg.Worker.SweepBatch,
		retryBatch: cfg.Callback.RetryBatch,
	}
}

func (s *Sweeper) Run(ctx context.Context) error {
	t := time.NewTicker(s.interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info("sweeper stopping")
			return nil
		case <-t.C:
			s.RunOnce(ctx)
		}
	}
}

// RunOnce performs a single expiry sweep and callback retry pass.
func (s *Sweeper) RunOnce(ctx context.Context) {
	expired, err := s.sessions.ExpireStale(ctx, s.sweepBatch)
	if err != nil {
		s.log.Error("sweeper expire error", "err", err)
	}

	delivered, err := s.callbacks.RetryUndelivered(ctx, s.retryBatch)
	if err != nil {
		s.log.Error("sweeper callback retry error", "err", err)
	}

	if expired > 0 || delivered > 0 {
		s.log.Info("sweep finished", "expired", expired, "callbacks_delivered", delivered)
	}
}
