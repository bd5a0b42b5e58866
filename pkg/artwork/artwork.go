package artwork

import (
	"context"
	"errors"
	"time"

	"github.com/elonfeng/sabermetrics/pkg/metrics"
	log "github.com/sirupsen/logrus"
	gobreaker "github.com/sony/gobreaker/v2"
)

// Fetcher resolves artwork from the streaming service. An empty URL with a
// nil error means the item has no image.
type Fetcher interface {
	AlbumCover(ctx context.Context, trackID string) (string, error)
	ArtistImage(ctx context.Context, artistID string) (string, error)
}

const (
	kindAlbum  = "album"
	kindArtist = "artist"
)

// Options tunes a Lookup.
type Options struct {
	// Failures is the number of consecutive failed fetches that opens the breaker.
	Failures uint32
	// Cooldown is how long the breaker stays open.
	Cooldown time.Duration
	// Timeout bounds a single fetch.
	Timeout time.Duration
}

// Lookup resolves album covers and artist images through a cache, guarding
// the fetcher with a circuit breaker. Every failure degrades to "no image".
type Lookup struct {
	fetcher Fetcher
	cache   Cache
	breaker *gobreaker.CircuitBreaker[string]
	timeout time.Duration
}

// New creates a Lookup. cache may be nil to disable memoisation.
func New(fetcher Fetcher, cache Cache, opts Options) *Lookup {
	if opts.Failures == 0 {
		opts.Failures = 5
	}
	if opts.Cooldown <= 0 {
		opts.Cooldown = time.Minute
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 5 * time.Second
	}

	breaker := gobreaker.NewCircuitBreaker[string](gobreaker.Settings{
		Name:        "artwork",
		MaxRequests: 1,
		Timeout:     opts.Cooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= opts.Failures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.WithFields(log.Fields{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			}).Info("artwork: breaker state change")
		},
	})

	return &Lookup{
		fetcher: fetcher,
		cache:   cache,
		breaker: breaker,
		timeout: opts.Timeout,
	}
}

// AlbumCover implements lineup.ImageLookup.
func (l *Lookup) AlbumCover(ctx context.Context, trackID string) (string, bool) {
	return l.resolve(ctx, kindAlbum, trackID, l.fetcher.AlbumCover)
}

// ArtistImage implements lineup.ImageLookup.
func (l *Lookup) ArtistImage(ctx context.Context, artistID string) (string, bool) {
	return l.resolve(ctx, kindArtist, artistID, l.fetcher.ArtistImage)
}

func (l *Lookup) resolve(ctx context.Context, kind, id string, fetch func(context.Context, string) (string, error)) (string, bool) {
	if id == "" || l.fetcher == nil {
		return "", false
	}

	key := kind + ":" + id
	if l.cache != nil {
		if u, ok := l.cache.Get(key); ok {
			metrics.RecordImageLookup(kind, "hit")
			return u, true
		}
	}

	u, err := l.breaker.Execute(func() (string, error) {
		ctx, cancel := context.WithTimeout(ctx, l.timeout)
		defer cancel()
		return fetch(ctx, id)
	})
	if err != nil {
		if !errors.Is(err, gobreaker.ErrOpenState) && !errors.Is(err, gobreaker.ErrTooManyRequests) {
			log.WithError(err).WithField("key", key).Debug("artwork: lookup failed")
		}
		metrics.RecordImageLookup(kind, "failed")
		return "", false
	}
	if u == "" {
		metrics.RecordImageLookup(kind, "missing")
		return "", false
	}

	if l.cache != nil {
		l.cache.Put(key, u)
	}
	metrics.RecordImageLookup(kind, "fetched")
	return u, true
}

// None is an ImageLookup that never finds artwork.
type None struct{}

func (None) AlbumCover(context.Context, string) (string, bool)  { return "", false }
func (None) ArtistImage(context.Context, string) (string, bool) { return "", false }
