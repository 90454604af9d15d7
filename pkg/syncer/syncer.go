// Package syncer drives reconciliation passes across the repositories:
// force-refresh each one, classify the outcome per entity kind, and
// report an aggregate result. Offline is not an error.
package syncer

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"tripsync/pkg/logger"
	"tripsync/pkg/neterr"
	"tripsync/pkg/store"
)

// Status classifies one entity kind's outcome within a pass.
type Status string

const (
	StatusSynced        Status = "synced"
	StatusSyncedOffline Status = "synced-offline"
	StatusFailed        Status = "failed"
)

// ItemStatus is one entity kind's outcome.
type ItemStatus struct {
	Kind   store.Kind
	Status Status
	// Reason holds the failure classification for StatusFailed items.
	Reason string
}

// Result aggregates one reconciliation pass. Success is true when no
// item failed; synced-offline never fails the pass.
type Result struct {
	Success  bool
	Items    []ItemStatus
	Started  time.Time
	Finished time.Time
}

// Target is one participating repository: a kind plus its forced
// refresh. Refresh must surface the raw classification, never degrade
// to cache.
type Target struct {
	Kind    store.Kind
	Refresh func(ctx context.Context) error
}

// Options tunes pass scheduling and the manual-trigger rate limit.
type Options struct {
	Interval time.Duration
	// Cron wins over Interval when set.
	Cron string
	// RPS/Burst bound explicit TriggerNow calls; zero means one per
	// second, burst one.
	RPS   float64
	Burst int
}

// Syncer runs reconciliation passes. One pass per trigger; it never
// retries on its own.
type Syncer struct {
	targets  []Target
	probe    func(ctx context.Context) error
	limiter  *rate.Limiter
	interval time.Duration
	cron     string
}

// New builds a Syncer. probe is the trip repository's forced refresh,
// used for reachability detection.
func New(opts Options, probe func(ctx context.Context) error, targets ...Target) *Syncer {
	rps := opts.RPS
	if rps <= 0 {
		rps = 1
	}
	burst := opts.Burst
	if burst <= 0 {
		burst = 1
	}
	interval := opts.Interval
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &Syncer{
		targets:  targets,
		probe:    probe,
		limiter:  rate.NewLimiter(rate.Limit(rps), burst),
		interval: interval,
		cron:     opts.Cron,
	}
}

// Run executes one reconciliation pass. Independent entity kinds sync
// concurrently; the result keeps target order.
func (s *Syncer) Run(ctx context.Context) Result {
	res := Result{Started: time.Now().UTC(), Items: make([]ItemStatus, len(s.targets))}
	var wg sync.WaitGroup
	for i, t := range s.targets {
		wg.Add(1)
		go func(i int, t Target) {
			defer wg.Done()
			res.Items[i] = s.runOne(ctx, t)
		}(i, t)
	}
	wg.Wait()
	res.Finished = time.Now().UTC()
	res.Success = true
	for _, it := range res.Items {
		itemsTotal.WithLabelValues(string(it.Kind), string(it.Status)).Inc()
		if it.Status == StatusFailed {
			res.Success = false
		}
	}
	if res.Success {
		passesTotal.WithLabelValues("success").Inc()
	} else {
		passesTotal.WithLabelValues("failure").Inc()
	}
	logger.Info("sync_pass_finished", "success", res.Success, "items", len(res.Items))
	return res
}

func (s *Syncer) runOne(ctx context.Context, t Target) ItemStatus {
	err := t.Refresh(ctx)
	switch {
	case err == nil:
		return ItemStatus{Kind: t.Kind, Status: StatusSynced}
	case neterr.Retryable(err):
		// Connection failure: the cache stays authoritative until the
		// network returns. Not counted as an error.
		logger.Debug("sync_offline", "kind", t.Kind)
		return ItemStatus{Kind: t.Kind, Status: StatusSyncedOffline}
	default:
		logger.Warn("sync_failed", "kind", t.Kind, "error", err)
		return ItemStatus{Kind: t.Kind, Status: StatusFailed, Reason: neterr.KindOf(err).String()}
	}
}

// IsOnline probes reachability via the trip repository's forced
// refresh. Only a connection failure counts as offline; any other
// outcome — success included — means the backend was reached.
func (s *Syncer) IsOnline(ctx context.Context) bool {
	return !neterr.Retryable(s.probe(ctx))
}

// TriggerNow runs one pass for an explicit user trigger, subject to the
// rate limit. The second return is false when the trigger was dropped.
func (s *Syncer) TriggerNow(ctx context.Context) (Result, bool) {
	if !s.limiter.Allow() {
		logger.Debug("sync_trigger_rate_limited")
		return Result{}, false
	}
	return s.Run(ctx), true
}
