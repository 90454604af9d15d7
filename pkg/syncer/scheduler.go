package syncer

import (
	"context"
	"fmt"
	"time"

	"github.com/adhocore/gronx"

	"tripsync/pkg/logger"
)

// Start launches the background scheduler and returns a cancel func.
// With a cron expression set, passes run on cron ticks; otherwise on
// the configured interval.
func (s *Syncer) Start(ctx context.Context) (context.CancelFunc, error) {
	if s.cron != "" && !gronx.IsValid(s.cron) {
		return nil, fmt.Errorf("invalid sync cron expression: %s", s.cron)
	}
	ctx2, cancel := context.WithCancel(ctx)
	if s.cron != "" {
		go s.runCron(ctx2)
		logger.Info("sync_scheduler_started", "cron", s.cron)
	} else {
		go s.runTicker(ctx2)
		logger.Info("sync_scheduler_started", "interval", s.interval.String())
	}
	return cancel, nil
}

func (s *Syncer) runTicker(ctx context.Context) {
	t := time.NewTicker(s.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			logger.Info("sync_scheduler_stopping")
			return
		case <-t.C:
			s.Run(ctx)
		}
	}
}

// runCron computes the next tick with gronx and sleeps until then,
// which supports full cron syntax without a per-minute poll.
func (s *Syncer) runCron(ctx context.Context) {
	for {
		now := time.Now().UTC()
		next, err := gronx.NextTickAfter(s.cron, now, false)
		if err != nil {
			logger.Error("sync_cron_next_tick_failed", "cron", s.cron, "error", err)
			return
		}
		select {
		case <-ctx.Done():
			logger.Info("sync_scheduler_stopping")
			return
		case <-time.After(next.Sub(now)):
			s.Run(ctx)
		}
	}
}
