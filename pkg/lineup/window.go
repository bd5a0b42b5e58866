package lineup

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"
)

// DefaultWindowDays is the trailing window used when none is given.
const DefaultWindowDays = 30

const day = 24 * time.Hour

type playStats struct {
	plays, last7, prev7 int
	days                map[string]struct{}
	contexts            map[string]struct{}
}

// BuildTrailingWindow scores every catalog track against the plays of the
// last days days. Tracks not played in the window score with zero counts.
// A window without plays yields an empty pool. Tracks whose linked artists
// are all unknown are skipped. images may be nil.
func BuildTrailingWindow(ctx context.Context, pl PlayLog, days int, images ImageLookup, now time.Time) []Candidate {
	if days <= 0 {
		days = DefaultWindowDays
	}
	now = now.UTC()
	windowStart := now.Add(-time.Duration(days) * day)
	weekStart := now.Add(-7 * day)
	prevWeekStart := now.Add(-14 * day)

	stats := make(map[string]*playStats)
	for _, p := range pl.Plays {
		if p.TrackID == "" || p.PlayedAt.Before(windowStart) {
			continue
		}
		st, ok := stats[p.TrackID]
		if !ok {
			st = &playStats{days: map[string]struct{}{}, contexts: map[string]struct{}{}}
			stats[p.TrackID] = st
		}
		at := p.PlayedAt.UTC()
		st.plays++
		switch {
		case !at.Before(weekStart):
			st.last7++
		case !at.Before(prevWeekStart):
			st.prev7++
		}
		st.days[at.Format("2006-01-02")] = struct{}{}
		if p.Context != "" {
			st.contexts[p.Context] = struct{}{}
		}
	}
	if len(stats) == 0 {
		return []Candidate{}
	}

	albums := make(map[string]AlbumRow, len(pl.Albums))
	for _, a := range pl.Albums {
		albums[a.ID] = a
	}
	artists := make(map[string]ArtistRow, len(pl.Artists))
	for _, a := range pl.Artists {
		artists[a.ID] = a
	}
	links := make(map[string][]string)
	for _, l := range pl.TrackArtists {
		links[l.TrackID] = append(links[l.TrackID], l.ArtistID)
	}

	seen := make(map[string]bool, len(pl.Tracks))
	pool := make([]Candidate, 0, len(pl.Tracks))
	for _, t := range pl.Tracks {
		if t.ID == "" || seen[t.ID] {
			continue
		}
		seen[t.ID] = true
		st, played := stats[t.ID]
		if !played {
			st = &playStats{}
		}

		artistIDs := links[t.ID]
		if len(artistIDs) == 0 {
			log.WithField("track_id", t.ID).Debug("skipping track without artists")
			continue
		}

		var names []string
		named := make(map[string]bool)
		var pops, followers []float64
		for _, id := range artistIDs {
			a, ok := artists[id]
			if !ok {
				continue
			}
			if !named[a.Name] {
				named[a.Name] = true
				names = append(names, a.Name)
			}
			pops = append(pops, float64(a.Popularity))
			followers = append(followers, float64(a.Followers))
		}
		if len(names) == 0 {
			log.WithField("track_id", t.ID).Debug("skipping track with unknown artists")
			continue
		}

		c := Candidate{
			TrackID:           t.ID,
			TrackName:         t.Name,
			ArtistDisplayName: joinArtistNames(names),
			PrimaryArtistID:   artistIDs[0],
			Popularity:        t.Popularity,
			ArtistPopularity:  meanOf(pops),
			ArtistFollowers:   meanOf(followers),
			Saved:             t.Saved,
			Plays:             st.plays,
			PlaysLast7:        st.last7,
			PlaysPrev7:        st.prev7,
			DistinctDays:      len(st.days),
			Contexts:          len(st.contexts),
		}
		if al, ok := albums[t.AlbumID]; ok {
			if rd, ok := parseReleaseDate(al.ReleaseDate); ok {
				c.ReleaseDate = rd
			}
		}
		if images != nil {
			if u, ok := images.AlbumCover(ctx, c.TrackID); ok {
				c.AlbumCoverURL = u
			}
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
	plays := make([]float64, n)
	momentum := make([]float64, n)
	popularity := make([]float64, n)
	artistPop := make([]float64, n)
	artistFollowers := make([]float64, n)
	age := make([]float64, n)
	saved := make([]float64, n)
	distinctDays := make([]float64, n)
	contexts := make([]float64, n)
	for i, c := range pool {
		plays[i] = float64(c.Plays)
		momentum[i] = float64(c.Momentum())
		popularity[i] = float64(c.Popularity)
		artistPop[i] = c.ArtistPopularity
		artistFollowers[i] = c.ArtistFollowers
		age[i] = daysSince(c.ReleaseDate, now)
		saved[i] = boolFloat(c.Saved)
		distinctDays[i] = float64(c.DistinctDays)
		contexts[i] = float64(c.Contexts)
	}

	zPlays := Normalize(plays)
	zMomentum := Normalize(momentum)
	zPop := Normalize(popularity)
	clout := cloutSignal(artistPop, artistFollowers)
	recency := recencySignal(age)
	affinity := Normalize(saved)
	diversity := blend(0.5, distinctDays, 0.5, contexts)

	for i := range pool {
		pool[i].Signals = Scores{
			SignalPlays:      zPlays[i],
			SignalMomentum:   zMomentum[i],
			SignalPopularity: zPop[i],
			SignalClout:      clout[i],
			SignalRecency:    recency[i],
			SignalAffinity:   affinity[i],
			SignalDiversity:  diversity[i],
		}
	}

	return score(pool, trailingWindowWeights, func(c Candidate, err error) {
		log.WithError(err).WithField("track_id", c.TrackID).Warn("dropping unscorable candidate")
	})
}
