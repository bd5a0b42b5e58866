package lineup

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// ErrNoProfileRows means none of the lineup's tracks were found in the pool.
var ErrNoProfileRows = errors.New("no pool rows for lineup tracks")

// TeamProfile summarises how famous a lineup's artists are.
type TeamProfile struct {
	Label               FameTier `json:"label"`
	AvgArtistPopularity float64  `json:"avg_artist_popularity"`
	AvgArtistFollowers  int64    `json:"avg_artist_followers"`
}

// Snapshot is a complete lineup result. It is also the history log entry.
type Snapshot struct {
	Mode        string       `json:"mode"`
	Title       string       `json:"title"`
	GeneratedAt time.Time    `json:"generated_at"`
	Lineup      []Entry      `json:"lineup"`
	TeamProfile *TeamProfile `json:"team_profile"`
	StarPlayer  *Entry       `json:"star_player"`
}

// Empty reports whether the snapshot has no lineup entries.
func (s Snapshot) Empty() bool { return len(s.Lineup) == 0 }

// Star picks the second entry of a lineup, or the first when there is only
// one. It returns nil for an empty lineup.
func Star(entries []Entry) *Entry {
	var star Entry
	switch {
	case len(entries) >= 2:
		star = entries[1]
	case len(entries) == 1:
		star = entries[0]
	default:
		return nil
	}
	return &star
}

// TeamProfileOf averages the raw artist popularity and followers of the pool
// rows behind entries and classifies the result.
func TeamProfileOf(pool []Candidate, entries []Entry) (*TeamProfile, error) {
	ids := make(map[string]bool, len(entries))
	for _, e := range entries {
		ids[e.TrackID] = true
	}

	var rows int
	var pops, followers []float64
	for _, c := range pool {
		if !ids[c.TrackID] {
			continue
		}
		rows++
		if c.hasArtistStats() {
			pops = append(pops, c.ArtistPopularity)
		}
		if !math.IsNaN(c.ArtistFollowers) {
			followers = append(followers, c.ArtistFollowers)
		}
	}
	if rows == 0 {
		return nil, fmt.Errorf("team profile: %w", ErrNoProfileRows)
	}

	ap := orZero(meanOf(pops))
	af := orZero(meanOf(followers))
	if math.IsInf(ap, 0) || math.IsInf(af, 0) {
		return nil, fmt.Errorf("team profile: non-finite averages (%v, %v)", ap, af)
	}

	return &TeamProfile{
		Label:               ClassifyFame(ap, af),
		AvgArtistPopularity: math.Round(ap*10) / 10,
		AvgArtistFollowers:  int64(af),
	}, nil
}

func orZero(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return v
}
