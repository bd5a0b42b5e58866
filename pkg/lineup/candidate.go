package lineup

import (
	"context"
	"math"
	"strings"
	"time"
)

// TopTrack is one ranked entry of a listener's long-term top tracks.
type TopTrack struct {
	ID         string
	Name       string
	Popularity int
	Artists    []ArtistRef
	Album      AlbumRef
}

// ArtistRef is an artist credited on a track.
type ArtistRef struct {
	ID         string
	Name       string
	Popularity int
	Followers  int64
}

// AlbumRef is the album a track belongs to.
type AlbumRef struct {
	ID          string
	Name        string
	ReleaseDate string
	ImageURLs   []string
}

// PlayEvent is one listening event from the play log.
type PlayEvent struct {
	PlayedAt time.Time
	TrackID  string
	Context  string
}

// TrackRow is a catalog track as stored next to the play log.
type TrackRow struct {
	ID         string
	Name       string
	DurationMS int
	Popularity int
	AlbumID    string
	Saved      bool
}

// AlbumRow is a catalog album.
type AlbumRow struct {
	ID          string
	Name        string
	ReleaseDate string
}

// ArtistRow is a catalog artist.
type ArtistRow struct {
	ID         string
	Name       string
	Popularity int
	Followers  int64
}

// TrackArtist links a track to one of its artists. Link order is credit order.
type TrackArtist struct {
	TrackID  string
	ArtistID string
}

// PlayLog is everything the windowed builder reads.
type PlayLog struct {
	Plays        []PlayEvent
	Tracks       []TrackRow
	Albums       []AlbumRow
	Artists      []ArtistRow
	TrackArtists []TrackArtist
}

// ImageLookup resolves artwork for a lineup. Lookups are best effort: a false
// result means no image.
type ImageLookup interface {
	AlbumCover(ctx context.Context, trackID string) (string, bool)
	ArtistImage(ctx context.Context, artistID string) (string, bool)
}

// Candidate is a track under consideration for a lineup, carrying its raw
// attributes, normalized signals and composite score.
type Candidate struct {
	TrackID           string
	TrackName         string
	ArtistDisplayName string
	PrimaryArtistID   string
	Popularity        int

	// ArtistPopularity and ArtistFollowers are NaN when no artist data exists.
	ArtistPopularity float64
	ArtistFollowers  float64

	ReleaseDate time.Time
	Saved       bool

	Plays        int
	PlaysLast7   int
	PlaysPrev7   int
	DistinctDays int
	Contexts     int

	AlbumCoverURL  string
	ArtistImageURL string

	Signals Scores
	Score   float64
}

// Momentum is plays in the last 7 days minus plays in the 7 days before.
func (c Candidate) Momentum() int { return c.PlaysLast7 - c.PlaysPrev7 }

func joinArtistNames(names []string) string {
	return strings.Join(names, ", ")
}

// meanOf averages the given values, NaN when empty.
func meanOf(values []float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	return mean(values)
}

var releaseLayouts = []string{"2006-01-02", "2006-01", "2006", time.RFC3339}

// parseReleaseDate accepts day, month and year precision dates.
func parseReleaseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range releaseLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// daysSince is the whole number of days from t to now, NaN for a zero t.
func daysSince(t, now time.Time) float64 {
	if t.IsZero() {
		return math.NaN()
	}
	return math.Floor(now.Sub(t).Hours() / 24)
}

func boolFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// score applies w to each candidate's signals. Candidates whose signals do
// not fit the table are dropped.
func score(pool []Candidate, w Weights, onErr func(Candidate, error)) []Candidate {
	out := pool[:0]
	for _, c := range pool {
		s, err := w.Apply(c.Signals)
		if err != nil {
			if onErr != nil {
				onErr(c, err)
			}
			continue
		}
		c.Score = s
		out = append(out, c)
	}
	return out
}
