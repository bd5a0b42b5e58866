package lineup

import (
	"context"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

type mapImages struct {
	covers  map[string]string
	artists map[string]string
}

func (m mapImages) AlbumCover(_ context.Context, trackID string) (string, bool) {
	u, ok := m.covers[trackID]
	return u, ok
}

func (m mapImages) ArtistImage(_ context.Context, artistID string) (string, bool) {
	u, ok := m.artists[artistID]
	return u, ok
}

var testNow = time.Date(2024, 6, 30, 12, 0, 0, 0, time.UTC)

func TestBuildLongTerm(t *testing.T) {
	Convey("Given long-term top tracks", t, func() {
		tracks := []TopTrack{
			{
				ID: "t1", Name: "Hit", Popularity: 90,
				Artists: []ArtistRef{{ID: "a1", Name: "Alpha", Popularity: 80, Followers: 1_000_000}},
				Album:   AlbumRef{Name: "New", ReleaseDate: "2023-05-01", ImageURLs: []string{"cover-large", "cover-small"}},
			},
			{
				ID: "t2", Name: "Deep Cut", Popularity: 40,
				Artists: []ArtistRef{
					{ID: "a2", Name: "Beta", Popularity: 30, Followers: 1000},
					{ID: "a3", Name: "Gamma", Popularity: 50, Followers: 3000},
				},
				Album: AlbumRef{Name: "Old", ReleaseDate: "1999"},
			},
			{Name: "No ID", Artists: []ArtistRef{{ID: "a4", Name: "Delta"}}},
			{ID: "t4", Name: "No Artists"},
			{ID: "t1", Name: "Hit (again)", Popularity: 1, Artists: []ArtistRef{{ID: "a9", Name: "Other"}}},
		}
		images := mapImages{artists: map[string]string{"a1": "alpha.jpg"}}

		pool := BuildLongTerm(context.Background(), tracks, images, testNow)

		Convey("Then malformed and repeated records are skipped", func() {
			So(pool, ShouldHaveLength, 2)
			So(pool[0].TrackName, ShouldEqual, "Hit")
			So(pool[1].TrackID, ShouldEqual, "t2")
		})

		Convey("Then artist attributes are averaged over credits", func() {
			So(pool[1].ArtistDisplayName, ShouldEqual, "Beta, Gamma")
			So(pool[1].ArtistPopularity, ShouldEqual, 40.0)
			So(pool[1].ArtistFollowers, ShouldEqual, 2000.0)
			So(pool[1].PrimaryArtistID, ShouldEqual, "a2")
		})

		Convey("Then artwork is attached where available", func() {
			So(pool[0].AlbumCoverURL, ShouldEqual, "cover-large")
			So(pool[0].ArtistImageURL, ShouldEqual, "alpha.jpg")
			So(pool[1].AlbumCoverURL, ShouldBeEmpty)
			So(pool[1].ArtistImageURL, ShouldBeEmpty)
		})

		Convey("Then every track counts as saved", func() {
			So(pool[0].Saved, ShouldBeTrue)
			So(pool[0].Signals[SignalAffinity], ShouldEqual, 0.0)
		})

		Convey("Then the signals match the long-term weights", func() {
			for _, c := range pool {
				So(len(c.Signals), ShouldEqual, len(LongTermWeights()))
				for sig := range LongTermWeights() {
					So(c.Signals, ShouldContainKey, sig)
				}
			}
		})

		Convey("Then the popular, recent, famous track scores higher", func() {
			So(pool[0].Score, ShouldBeGreaterThan, pool[1].Score)
		})
	})

	Convey("Given no usable tracks", t, func() {
		pool := BuildLongTerm(context.Background(), []TopTrack{{Name: "x"}}, nil, testNow)
		Convey("Then the pool is empty", func() {
			So(pool, ShouldBeEmpty)
		})
	})
}
