package source

import (
	"github.com/elonfeng/sabermetrics/pkg/lineup"
	"github.com/zmb3/spotify/v2"
)

// batchSize is the most ids the Web API accepts per lookup.
const batchSize = 50

func imageURLs(images []spotify.Image) []string {
	urls := make([]string, 0, len(images))
	for _, img := range images {
		if img.URL != "" {
			urls = append(urls, img.URL)
		}
	}
	return urls
}

func firstImage(images []spotify.Image) string {
	if urls := imageURLs(images); len(urls) > 0 {
		return urls[0]
	}
	return ""
}

func artistRef(sa spotify.SimpleArtist, full map[spotify.ID]*spotify.FullArtist) lineup.ArtistRef {
	ref := lineup.ArtistRef{ID: string(sa.ID), Name: sa.Name}
	if fa, ok := full[sa.ID]; ok && fa != nil {
		ref.Popularity = int(fa.Popularity)
		ref.Followers = int64(fa.Followers.Count)
	}
	return ref
}

func topTrack(t spotify.FullTrack, full map[spotify.ID]*spotify.FullArtist) lineup.TopTrack {
	artists := make([]lineup.ArtistRef, 0, len(t.Artists))
	for _, a := range t.Artists {
		artists = append(artists, artistRef(a, full))
	}
	return lineup.TopTrack{
		ID:         string(t.ID),
		Name:       t.Name,
		Popularity: int(t.Popularity),
		Artists:    artists,
		Album: lineup.AlbumRef{
			ID:          string(t.Album.ID),
			Name:        t.Album.Name,
			ReleaseDate: t.Album.ReleaseDate,
			ImageURLs:   imageURLs(t.Album.Images),
		},
	}
}

func play(item spotify.RecentlyPlayedItem, t *spotify.FullTrack, full map[spotify.ID]*spotify.FullArtist) Play {
	p := Play{
		PlayedAt: item.PlayedAt.UTC(),
		Context:  item.PlaybackContext.Type,
		Track: lineup.TrackRow{
			ID:   string(item.Track.ID),
			Name: item.Track.Name,
		},
	}

	simple := item.Track.Artists
	if t != nil {
		simple = t.Artists
		p.Track.Name = t.Name
		p.Track.DurationMS = int(t.Duration)
		p.Track.Popularity = int(t.Popularity)
		p.Track.AlbumID = string(t.Album.ID)
		p.Album = lineup.AlbumRow{
			ID:          string(t.Album.ID),
			Name:        t.Album.Name,
			ReleaseDate: t.Album.ReleaseDate,
		}
	}

	for _, sa := range simple {
		a := Artist{ArtistRow: lineup.ArtistRow{ID: string(sa.ID), Name: sa.Name}}
		if fa, ok := full[sa.ID]; ok && fa != nil {
			a.Popularity = int(fa.Popularity)
			a.Followers = int64(fa.Followers.Count)
			a.Genres = fa.Genres
		}
		p.Artists = append(p.Artists, a)
	}
	return p
}

func chunk(ids []spotify.ID, size int) [][]spotify.ID {
	var out [][]spotify.ID
	for len(ids) > 0 {
		n := min(size, len(ids))
		out = append(out, ids[:n])
		ids = ids[n:]
	}
	return out
}

func uniqueArtistIDs(tracks []spotify.FullTrack) []spotify.ID {
	seen := make(map[spotify.ID]bool)
	var ids []spotify.ID
	for _, t := range tracks {
		for _, a := range t.Artists {
			if a.ID == "" || seen[a.ID] {
				continue
			}
			seen[a.ID] = true
			ids = append(ids, a.ID)
		}
	}
	return ids
}
