package collector

import (
	"context"
	"fmt"
	"time"

	"github.com/elonfeng/sabermetrics/internal/store"
	"github.com/elonfeng/sabermetrics/pkg/metrics"
	"github.com/elonfeng/sabermetrics/pkg/source"
	"github.com/getsentry/sentry-go"
	log "github.com/sirupsen/logrus"
)

// Report summarises one collection round.
type Report struct {
	Source   string       `json:"source"`
	Fetched  int          `json:"fetched"`
	Inserted int          `json:"inserted"`
	Before   store.Counts `json:"before"`
	After    store.Counts `json:"after"`
	RunID    string       `json:"run_id"`
	Took     string       `json:"took"`
}

// Collector pulls recent plays from a source into the store.
type Collector struct {
	src   source.Collector
	store store.Store
}

// New creates a collector.
func New(src source.Collector, st store.Store) *Collector {
	return &Collector{src: src, store: st}
}

// Collect runs one round: fetch, ingest, then write a heartbeat run row.
func (c *Collector) Collect(ctx context.Context) (Report, error) {
	span := sentry.StartSpan(ctx, "collector.collect")
	defer span.Finish()
	ctx = span.Context()

	start := time.Now()
	rep := Report{Source: c.src.Name()}
	logger := log.WithField("source", rep.Source)

	before, err := c.store.Counts(ctx)
	if err != nil {
		return rep, c.fail(fmt.Errorf("count before: %w", err))
	}
	rep.Before = before

	batch, err := c.src.RecentPlays(ctx)
	if err != nil {
		return rep, c.fail(fmt.Errorf("fetch recent plays from %s: %w", rep.Source, err))
	}
	rep.Fetched = len(batch.Plays)

	inserted, err := c.store.Ingest(ctx, batch)
	if err != nil {
		return rep, c.fail(fmt.Errorf("ingest plays: %w", err))
	}
	rep.Inserted = inserted
	metrics.AddPlaysIngested(inserted)

	run, err := c.store.RecordRun(ctx, "recent plays from "+rep.Source, inserted)
	if err != nil {
		return rep, c.fail(fmt.Errorf("record heartbeat: %w", err))
	}
	rep.RunID = run.ID

	after, err := c.store.Counts(ctx)
	if err != nil {
		return rep, c.fail(fmt.Errorf("count after: %w", err))
	}
	rep.After = after
	rep.Took = time.Since(start).Round(time.Millisecond).String()

	logger.WithFields(log.Fields{
		"fetched":  rep.Fetched,
		"inserted": rep.Inserted,
		"plays":    after.Plays,
	}).Info("collected recent plays")
	return rep, nil
}

func (c *Collector) fail(err error) error {
	sentry.CaptureException(err)
	return err
}
