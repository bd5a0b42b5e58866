package lineup

import (
	"context"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

func hoursAgo(h int) time.Time {
	return testNow.Add(-time.Duration(h) * time.Hour)
}

func testPlayLog() PlayLog {
	var plays []PlayEvent
	contexts := []string{"playlist", "album"}
	for d := 0; d < 5; d++ {
		for k := 1; k <= 2; k++ {
			plays = append(plays, PlayEvent{
				PlayedAt: hoursAgo(d*24 + k),
				TrackID:  "t1",
				Context:  contexts[k-1],
			})
		}
	}
	plays = append(plays,
		PlayEvent{PlayedAt: hoursAgo(10*24 + 1), TrackID: "t2", Context: "artist"},
		PlayEvent{PlayedAt: hoursAgo(10*24 + 2), TrackID: "t2"},
		PlayEvent{PlayedAt: hoursAgo(20 * 24), TrackID: "t3"},
		PlayEvent{PlayedAt: hoursAgo(24), TrackID: "t4"},
		PlayEvent{PlayedAt: hoursAgo(40 * 24), TrackID: "t6"},
		PlayEvent{PlayedAt: hoursAgo(3), TrackID: "ghost"},
	)

	track := func(id string) TrackRow {
		return TrackRow{ID: id, Name: "Song " + id, Popularity: 50, AlbumID: "al1"}
	}
	return PlayLog{
		Plays:  plays,
		Tracks: []TrackRow{track("t1"), track("t2"), track("t3"), track("t4"), track("t5"), track("t6")},
		Albums: []AlbumRow{{ID: "al1", Name: "Album", ReleaseDate: "2020-01-01"}},
		Artists: []ArtistRow{
			{ID: "a1", Name: "Alpha", Popularity: 60, Followers: 1000},
			{ID: "a2", Name: "Beta", Popularity: 60, Followers: 1000},
			{ID: "a3", Name: "Gamma", Popularity: 60, Followers: 1000},
		},
		TrackArtists: []TrackArtist{
			{TrackID: "t1", ArtistID: "a1"},
			{TrackID: "t2", ArtistID: "a2"},
			{TrackID: "t3", ArtistID: "a3"},
			{TrackID: "t5", ArtistID: "a1"},
			{TrackID: "t6", ArtistID: "a1"},
		},
	}
}

func TestBuildTrailingWindow(t *testing.T) {
	Convey("Given a play log over the last six weeks", t, func() {
		images := mapImages{
			covers:  map[string]string{"t1": "t1.jpg"},
			artists: map[string]string{"a2": "beta.jpg"},
		}

		Convey("When building a 30-day window", func() {
			pool := BuildTrailingWindow(context.Background(), testPlayLog(), 30, images, testNow)

			Convey("Then every catalog track with artists is a candidate", func() {
				So(pool, ShouldHaveLength, 5)
				So(pool[0].TrackID, ShouldEqual, "t1")
				So(pool[1].TrackID, ShouldEqual, "t2")
				So(pool[2].TrackID, ShouldEqual, "t3")
				So(pool[3].TrackID, ShouldEqual, "t5")
				So(pool[4].TrackID, ShouldEqual, "t6")
			})

			Convey("Then tracks without plays in the window have zero counts", func() {
				for _, c := range pool[3:] {
					So(c.Plays, ShouldEqual, 0)
					So(c.PlaysLast7, ShouldEqual, 0)
					So(c.PlaysPrev7, ShouldEqual, 0)
					So(c.DistinctDays, ShouldEqual, 0)
					So(c.Contexts, ShouldEqual, 0)
					So(c.ArtistDisplayName, ShouldEqual, "Alpha")
				}
			})

			Convey("Then play statistics are counted per track", func() {
				t1 := pool[0]
				So(t1.Plays, ShouldEqual, 10)
				So(t1.PlaysLast7, ShouldEqual, 10)
				So(t1.PlaysPrev7, ShouldEqual, 0)
				So(t1.Momentum(), ShouldEqual, 10)
				So(t1.DistinctDays, ShouldEqual, 5)
				So(t1.Contexts, ShouldEqual, 2)

				t2 := pool[1]
				So(t2.Plays, ShouldEqual, 2)
				So(t2.PlaysPrev7, ShouldEqual, 2)
				So(t2.Momentum(), ShouldEqual, -2)
				So(t2.Contexts, ShouldEqual, 1)
				So(t2.DistinctDays, ShouldEqual, 1)
			})

			Convey("Then artwork is looked up per track and primary artist", func() {
				So(pool[0].AlbumCoverURL, ShouldEqual, "t1.jpg")
				So(pool[1].ArtistImageURL, ShouldEqual, "beta.jpg")
				So(pool[2].AlbumCoverURL, ShouldBeEmpty)
			})

			Convey("Then heavy recent listening ranks first", func() {
				So(pool[0].Score, ShouldBeGreaterThan, pool[1].Score)
				So(pool[1].Score, ShouldBeGreaterThan, pool[2].Score)
				So(pool[2].Score, ShouldBeGreaterThan, pool[3].Score)
				So(pool[3].Score, ShouldAlmostEqual, pool[4].Score, 1e-12)
			})

			Convey("Then the signals match the window weights", func() {
				So(len(pool[0].Signals), ShouldEqual, len(TrailingWindowWeights()))
			})
		})

		Convey("When building a 7-day window", func() {
			pool := BuildTrailingWindow(context.Background(), testPlayLog(), 7, nil, testNow)

			Convey("Then older plays stop counting", func() {
				So(pool, ShouldHaveLength, 5)
				So(pool[0].TrackID, ShouldEqual, "t1")
				So(pool[0].Plays, ShouldEqual, 10)
				for _, c := range pool[1:] {
					So(c.Plays, ShouldEqual, 0)
					So(c.Score, ShouldBeLessThan, pool[0].Score)
				}
			})
		})

		Convey("When the window is not positive", func() {
			pool := BuildTrailingWindow(context.Background(), testPlayLog(), 0, nil, testNow)
			Convey("Then thirty days are used", func() {
				So(pool, ShouldHaveLength, 5)
				So(pool[1].Plays, ShouldEqual, 2)
			})
		})

		Convey("When no play falls inside the window", func() {
			pool := BuildTrailingWindow(context.Background(), testPlayLog(), 30, nil, testNow.AddDate(1, 0, 0))
			Convey("Then the pool is empty despite the catalog", func() {
				So(pool, ShouldNotBeNil)
				So(pool, ShouldBeEmpty)
			})
		})

		Convey("When linked artists are missing from the catalog", func() {
			pl := testPlayLog()
			pl.Tracks = append(pl.Tracks,
				TrackRow{ID: "x1", Name: "Lost One", Popularity: 50, AlbumID: "al1"},
				TrackRow{ID: "x2", Name: "Lost Two", Popularity: 50, AlbumID: "al1"},
			)
			pl.TrackArtists = append(pl.TrackArtists,
				TrackArtist{TrackID: "x1", ArtistID: "gone"},
				TrackArtist{TrackID: "x2", ArtistID: "gone"},
			)
			pl.Plays = append(pl.Plays,
				PlayEvent{PlayedAt: hoursAgo(2), TrackID: "x1"},
				PlayEvent{PlayedAt: hoursAgo(2), TrackID: "x2"},
			)
			pool := BuildTrailingWindow(context.Background(), pl, 30, nil, testNow)

			Convey("Then those tracks are skipped", func() {
				So(pool, ShouldHaveLength, 5)
				for _, c := range pool {
					So(c.TrackID, ShouldNotStartWith, "x")
					So(c.ArtistDisplayName, ShouldNotBeEmpty)
				}
			})
		})
	})

	Convey("Given an empty play log", t, func() {
		pool := BuildTrailingWindow(context.Background(), PlayLog{}, 30, nil, testNow)
		Convey("Then the pool is empty", func() {
			So(pool, ShouldNotBeNil)
			So(pool, ShouldBeEmpty)
		})
	})
}
