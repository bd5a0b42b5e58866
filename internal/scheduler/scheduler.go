package scheduler

import (
	"context"
	"time"

	"github.com/elonfeng/sabermetrics/internal/collector"
	"github.com/elonfeng/sabermetrics/internal/history"
	"github.com/elonfeng/sabermetrics/pkg/alert"
	"github.com/elonfeng/sabermetrics/pkg/lineup"
	"github.com/getsentry/sentry-go"
	log "github.com/sirupsen/logrus"
)

// Collector pulls fresh plays into the store.
type Collector interface {
	Collect(ctx context.Context) (collector.Report, error)
}

// Builder computes lineup snapshots.
type Builder interface {
	Build(ctx context.Context, mode lineup.Mode) lineup.Snapshot
}

// Scheduler runs periodic collection and snapshotting.
type Scheduler struct {
	collector   Collector
	builder     Builder
	history     history.Log
	alertMgr    *alert.Manager
	collectInt  time.Duration
	snapshotInt time.Duration
	windowDays  int
}

// New creates a new scheduler. collector and alertMgr may be nil.
func New(
	c Collector,
	b Builder,
	h history.Log,
	alertMgr *alert.Manager,
	collectInt, snapshotInt time.Duration,
	windowDays int,
) *Scheduler {
	if collectInt == 0 {
		collectInt = 15 * time.Minute
	}
	if snapshotInt == 0 {
		snapshotInt = 6 * time.Hour
	}
	return &Scheduler{
		collector:   c,
		builder:     b,
		history:     h,
		alertMgr:    alertMgr,
		collectInt:  collectInt,
		snapshotInt: snapshotInt,
		windowDays:  windowDays,
	}
}

// Run starts the scheduler loop. Blocks until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) error {
	collectTicker := time.NewTicker(s.collectInt)
	snapshotTicker := time.NewTicker(s.snapshotInt)
	defer collectTicker.Stop()
	defer snapshotTicker.Stop()

	log.Info("scheduler: initial collection")
	s.CollectOnce(ctx)
	log.Info("scheduler: initial snapshot")
	s.SnapshotOnce(ctx)

	log.WithFields(log.Fields{
		"collect_every":  s.collectInt.String(),
		"snapshot_every": s.snapshotInt.String(),
	}).Info("scheduler: running")

	for {
		select {
		case <-ctx.Done():
			log.Info("scheduler: stopped")
			return ctx.Err()
		case <-collectTicker.C:
			s.CollectOnce(ctx)
		case <-snapshotTicker.C:
			s.SnapshotOnce(ctx)
		}
	}
}

// CollectOnce runs a single collection round. Failures are logged.
func (s *Scheduler) CollectOnce(ctx context.Context) {
	if s.collector == nil {
		return
	}
	if _, err := s.collector.Collect(ctx); err != nil {
		log.WithError(err).Warn("scheduler: collection failed")
	}
}

// SnapshotOnce builds the current lineup, records it and announces it.
// It returns the built snapshot.
func (s *Scheduler) SnapshotOnce(ctx context.Context) lineup.Snapshot {
	snap := s.builder.Build(ctx, lineup.TrailingWindow{Days: s.windowDays})
	if snap.Empty() {
		log.WithField("mode", snap.Mode).Info("scheduler: empty lineup, nothing to record")
		return snap
	}

	if err := s.history.Append(ctx, snap); err != nil {
		log.WithError(err).Error("scheduler: history append failed")
		sentry.CaptureException(err)
		return snap
	}

	if !s.alertMgr.HasNotifiers() {
		return snap
	}
	if err := s.alertMgr.Broadcast(ctx, alert.FromSnapshot(snap)); err != nil {
		log.WithError(err).Warn("scheduler: announcement failed")
		return snap
	}
	log.WithField("title", snap.Title).Info("scheduler: announced lineup")
	return snap
}
