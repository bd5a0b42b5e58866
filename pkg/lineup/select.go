package lineup

import (
	"math"
	"sort"
)

// DefaultSize is the number of slots in a lineup.
const DefaultSize = 9

// NoPosition marks entries ranked past the last named position.
const NoPosition = "-"

// Positions are assigned in this order, best score first.
var Positions = []string{"CF", "SS", "RF", "1B", "2B", "3B", "C", "LF", "P"}

// Entry is one slot of a lineup.
type Entry struct {
	TrackName         string  `json:"track_name"`
	ArtistDisplayName string  `json:"artist_display_name"`
	Position          string  `json:"position"`
	Score             float64 `json:"score"`
	Popularity        int     `json:"popularity"`
	TrackID           string  `json:"track_id"`
	AlbumCoverURL     *string `json:"album_cover_url"`
	ArtistImageURL    *string `json:"artist_image_url"`
}

// Select ranks pool by score, keeps the best track per primary artist and
// returns up to n entries with positions assigned in order. Ties keep pool
// order. n <= 0 selects DefaultSize entries.
func Select(pool []Candidate, n int, positions []string) []Entry {
	if n <= 0 {
		n = DefaultSize
	}

	ranked := make([]Candidate, len(pool))
	copy(ranked, pool)
	for i := range ranked {
		if math.IsNaN(ranked[i].Score) {
			ranked[i].Score = 0
		}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})

	entries := make([]Entry, 0, n)
	taken := make(map[string]bool)
	for _, c := range ranked {
		if len(entries) == n {
			break
		}
		key := PrimaryArtistKey(c.ArtistDisplayName)
		if taken[key] {
			continue
		}
		taken[key] = true

		pos := NoPosition
		if i := len(entries); i < len(positions) {
			pos = positions[i]
		}
		entries = append(entries, Entry{
			TrackName:         c.TrackName,
			ArtistDisplayName: c.ArtistDisplayName,
			Position:          pos,
			Score:             c.Score,
			Popularity:        c.Popularity,
			TrackID:           c.TrackID,
			AlbumCoverURL:     optional(c.AlbumCoverURL),
			ArtistImageURL:    optional(c.ArtistImageURL),
		})
	}
	return entries
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
