package source

import (
	"context"
	"errors"
	"time"

	"github.com/elonfeng/sabermetrics/pkg/lineup"
)

// ErrNotAuthorized means no listener token is available yet. Run the login
// flow first.
var ErrNotAuthorized = errors.New("not authorized: complete the login flow first")

// Artist is a catalog artist with its genre tags.
type Artist struct {
	lineup.ArtistRow
	Genres []string
}

// Play is one recently played track with the catalog rows it references.
type Play struct {
	PlayedAt time.Time
	Context  string
	Track    lineup.TrackRow
	Album    lineup.AlbumRow
	Artists  []Artist
}

// Batch is the result of one collection round. Saved holds the library
// flag for every track touched by the batch.
type Batch struct {
	Plays []Play
	Saved map[string]bool
}

// TrackIDs returns the distinct track ids in play order.
func (b Batch) TrackIDs() []string {
	seen := make(map[string]bool, len(b.Plays))
	var ids []string
	for _, p := range b.Plays {
		if p.Track.ID == "" || seen[p.Track.ID] {
			continue
		}
		seen[p.Track.ID] = true
		ids = append(ids, p.Track.ID)
	}
	return ids
}

// Collector is implemented by services that report a listener's recent plays.
type Collector interface {
	Name() string
	RecentPlays(ctx context.Context) (Batch, error)
}
