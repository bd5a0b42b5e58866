package lineup

import (
	"context"
	"math"
	"time"

	log "github.com/sirupsen/logrus"
)

// BuildLongTerm turns ranked long-term top tracks into a scored candidate
// pool. Records without an id or without artists are skipped and repeated
// ids keep their first occurrence. images may be nil.
func BuildLongTerm(ctx context.Context, tracks []TopTrack, images ImageLookup, now time.Time) []Candidate {
	seen := make(map[string]bool, len(tracks))
	pool := make([]Candidate, 0, len(tracks))

	for _, t := range tracks {
		if t.ID == "" || len(t.Artists) == 0 {
			log.WithField("track", t.Name).Debug("skipping malformed top track")
			continue
		}
		if seen[t.ID] {
			continue
		}
		seen[t.ID] = true

		names := make([]string, 0, len(t.Artists))
		pops := make([]float64, 0, len(t.Artists))
		followers := make([]float64, 0, len(t.Artists))
		for _, a := range t.Artists {
			names = append(names, a.Name)
			pops = append(pops, float64(a.Popularity))
			followers = append(followers, float64(a.Followers))
		}

		c := Candidate{
			TrackID:           t.ID,
			TrackName:         t.Name,
			ArtistDisplayName: joinArtistNames(names),
			PrimaryArtistID:   t.Artists[0].ID,
			Popularity:        t.Popularity,
			ArtistPopularity:  meanOf(pops),
			ArtistFollowers:   meanOf(followers),
			Saved:             true,
		}
		if rd, ok := parseReleaseDate(t.Album.ReleaseDate); ok {
			c.ReleaseDate = rd
		}
		if len(t.Album.ImageURLs) > 0 {
			c.AlbumCoverURL = t.Album.ImageURLs[0]
		}
		if images != nil && c.PrimaryArtistID != "" {
			if u, ok := images.ArtistImage(ctx, c.PrimaryArtistID); ok {
				c.ArtistImageURL = u
			}
		}
		pool = append(pool, c)
	}

	if len(pool) == 0 {
		return pool
	}

	n := len(pool)
	popularity := make([]float64, n)
	artistPop := make([]float64, n)
	followers := make([]float64, n)
	age := make([]float64, n)
	saved := make([]float64, n)
	for i, c := range pool {
		popularity[i] = float64(c.Popularity)
		artistPop[i] = c.ArtistPopularity
		followers[i] = c.ArtistFollowers
		age[i] = daysSince(c.ReleaseDate, now)
		saved[i] = boolFloat(c.Saved)
	}

	zPop := Normalize(popularity)
	clout := cloutSignal(artistPop, followers)
	recency := recencySignal(age)
	affinity := Normalize(saved)

	for i := range pool {
		pool[i].Signals = Scores{
			SignalPopularity: zPop[i],
			SignalClout:      clout[i],
			SignalRecency:    recency[i],
			SignalAffinity:   affinity[i],
		}
	}

	return score(pool, longTermWeights, func(c Candidate, err error) {
		log.WithError(err).WithField("track_id", c.TrackID).Warn("dropping unscorable candidate")
	})
}

// hasArtistStats reports whether the candidate carries artist popularity.
func (c Candidate) hasArtistStats() bool {
	return !math.IsNaN(c.ArtistPopularity)
}
