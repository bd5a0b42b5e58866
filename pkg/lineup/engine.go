package lineup

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/elonfeng/sabermetrics/pkg/metrics"
	log "github.com/sirupsen/logrus"
)

// LongTermSource supplies a listener's ranked long-term top tracks.
type LongTermSource interface {
	TopTracks(ctx context.Context) ([]TopTrack, error)
}

// WindowSource supplies the play log and catalog from since onwards.
type WindowSource interface {
	PlayLog(ctx context.Context, since time.Time) (PlayLog, error)
}

var errNoSource = errors.New("no source configured for mode")

// Engine builds lineup snapshots.
type Engine struct {
	longTerm  LongTermSource
	window    WindowSource
	images    ImageLookup
	now       func() time.Time
	size      int
	positions []string
}

// Option configures an Engine.
type Option func(*Engine)

// WithImages sets the artwork lookup used while building candidates.
func WithImages(images ImageLookup) Option {
	return func(e *Engine) { e.images = images }
}

// WithClock overrides the engine's notion of now.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithSize sets the number of lineup slots.
func WithSize(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.size = n
		}
	}
}

// NewEngine creates an engine over the given sources. Either source may be
// nil, in which case that mode always yields an empty lineup.
func NewEngine(longTerm LongTermSource, window WindowSource, opts ...Option) *Engine {
	e := &Engine{
		longTerm:  longTerm,
		window:    window,
		now:       time.Now,
		size:      DefaultSize,
		positions: Positions,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Build computes a snapshot for mode. It never fails: upstream errors and
// empty pools produce a snapshot with an empty lineup.
func (e *Engine) Build(ctx context.Context, mode Mode) Snapshot {
	now := e.now().UTC()
	snap := Snapshot{
		Mode:        mode.Tag(),
		Title:       mode.Title(),
		GeneratedAt: now,
		Lineup:      []Entry{},
	}
	logger := log.WithField("mode", mode.Tag())

	pool, err := e.Pool(ctx, mode, now)
	if err != nil {
		logger.WithError(err).Warn("candidate source unavailable")
		metrics.RecordBuild(mode.Tag(), "upstream_error")
		return snap
	}
	metrics.SetCandidates(mode.Tag(), len(pool))
	if len(pool) == 0 {
		logger.Info("no candidates")
		metrics.RecordBuild(mode.Tag(), "empty")
		return snap
	}

	snap.Lineup = Select(pool, e.size, e.positions)
	snap.StarPlayer = Star(snap.Lineup)

	profile, err := TeamProfileOf(pool, snap.Lineup)
	if err != nil {
		logger.WithError(err).Warn("team profile unavailable")
	} else {
		snap.TeamProfile = profile
	}

	logger.WithFields(log.Fields{
		"candidates": len(pool),
		"entries":    len(snap.Lineup),
	}).Debug("lineup built")
	metrics.RecordBuild(mode.Tag(), "ok")
	return snap
}

// Pool builds the scored candidate pool for mode as of now.
func (e *Engine) Pool(ctx context.Context, mode Mode, now time.Time) ([]Candidate, error) {
	switch m := mode.(type) {
	case LongTerm:
		if e.longTerm == nil {
			return nil, errNoSource
		}
		tracks, err := e.longTerm.TopTracks(ctx)
		if err != nil {
			return nil, fmt.Errorf("fetch top tracks: %w", err)
		}
		return BuildLongTerm(ctx, tracks, e.images, now), nil

	case TrailingWindow:
		if e.window == nil {
			return nil, errNoSource
		}
		days := m.WindowDays()
		pl, err := e.window.PlayLog(ctx, now.Add(-time.Duration(days)*day))
		if err != nil {
			return nil, fmt.Errorf("load play log: %w", err)
		}
		return BuildTrailingWindow(ctx, pl, days, e.images, now), nil
	}
	return nil, fmt.Errorf("unknown mode %T", mode)
}
