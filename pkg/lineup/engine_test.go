package lineup

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

type stubTopTracks struct {
	tracks []TopTrack
	err    error
}

func (s stubTopTracks) TopTracks(context.Context) ([]TopTrack, error) {
	return s.tracks, s.err
}

type stubPlayLog struct {
	log   PlayLog
	err   error
	since *time.Time
}

func (s stubPlayLog) PlayLog(_ context.Context, since time.Time) (PlayLog, error) {
	if s.since != nil {
		*s.since = since
	}
	return s.log, s.err
}

func rankedTopTracks(n int) []TopTrack {
	tracks := make([]TopTrack, n)
	for i := range tracks {
		tracks[i] = TopTrack{
			ID:         fmt.Sprintf("t%d", i),
			Name:       fmt.Sprintf("Track %d", i),
			Popularity: 90 - i*5,
			Artists: []ArtistRef{{
				ID:         fmt.Sprintf("a%d", i),
				Name:       fmt.Sprintf("Artist %d", i),
				Popularity: 50,
				Followers:  1000,
			}},
			Album: AlbumRef{ReleaseDate: "2020-01-01"},
		}
	}
	return tracks
}

func TestEngineBuild(t *testing.T) {
	clock := WithClock(func() time.Time { return testNow })

	Convey("Given an engine over long-term top tracks", t, func() {
		engine := NewEngine(stubTopTracks{tracks: rankedTopTracks(10)}, nil, clock)
		snap := engine.Build(context.Background(), LongTerm{})

		Convey("Then the snapshot is labelled for the mode", func() {
			So(snap.Mode, ShouldEqual, TagAllTime)
			So(snap.Title, ShouldEqual, "ALL-TIME (Spotify Long-Term)")
			So(snap.GeneratedAt.Equal(testNow), ShouldBeTrue)
		})

		Convey("Then nine ranked entries fill the positions", func() {
			So(snap.Lineup, ShouldHaveLength, 9)
			for i, e := range snap.Lineup {
				So(e.TrackID, ShouldEqual, fmt.Sprintf("t%d", i))
				So(e.Position, ShouldEqual, Positions[i])
			}
		})

		Convey("Then the star is the second entry", func() {
			So(snap.StarPlayer, ShouldNotBeNil)
			So(*snap.StarPlayer, ShouldResemble, snap.Lineup[1])
		})

		Convey("Then the team profile uses raw artist averages", func() {
			So(snap.TeamProfile, ShouldNotBeNil)
			So(snap.TeamProfile.AvgArtistPopularity, ShouldEqual, 50.0)
			So(snap.TeamProfile.AvgArtistFollowers, ShouldEqual, int64(1000))
			So(snap.TeamProfile.Label, ShouldEqual, ClassifyFame(50, 1000))
		})
	})

	Convey("Given a single candidate", t, func() {
		engine := NewEngine(stubTopTracks{tracks: rankedTopTracks(1)}, nil, clock)
		snap := engine.Build(context.Background(), LongTerm{})

		Convey("Then the only entry is the star", func() {
			So(snap.Lineup, ShouldHaveLength, 1)
			So(snap.StarPlayer.TrackID, ShouldEqual, "t0")
		})
	})

	Convey("Given a failing upstream", t, func() {
		engine := NewEngine(stubTopTracks{err: errors.New("503")}, stubPlayLog{err: errors.New("locked")}, clock)

		for _, mode := range []Mode{LongTerm{}, TrailingWindow{Days: 14}} {
			snap := engine.Build(context.Background(), mode)

			Convey("Then "+mode.Tag()+" degrades to an empty snapshot", func() {
				So(snap.Lineup, ShouldNotBeNil)
				So(snap.Lineup, ShouldBeEmpty)
				So(snap.TeamProfile, ShouldBeNil)
				So(snap.StarPlayer, ShouldBeNil)
				So(snap.Empty(), ShouldBeTrue)
			})
		}
	})

	Convey("Given an engine without sources", t, func() {
		snap := NewEngine(nil, nil, clock).Build(context.Background(), TrailingWindow{})
		Convey("Then the snapshot is empty but titled", func() {
			So(snap.Empty(), ShouldBeTrue)
			So(snap.Title, ShouldEqual, "CURRENT (30-Day Trend)")
		})
	})

	Convey("Given an engine over a play log", t, func() {
		var since time.Time
		engine := NewEngine(nil, stubPlayLog{log: testPlayLog(), since: &since}, clock, WithSize(2))
		snap := engine.Build(context.Background(), TrailingWindow{Days: 30})

		Convey("Then the play log is read from the window start", func() {
			So(since.Equal(testNow.Add(-30*24*time.Hour)), ShouldBeTrue)
		})

		Convey("Then the lineup honours the configured size", func() {
			So(snap.Mode, ShouldEqual, TagCurrent)
			So(snap.Lineup, ShouldHaveLength, 2)
			So(snap.Lineup[0].TrackID, ShouldEqual, "t1")
			So(snap.StarPlayer.TrackID, ShouldEqual, "t2")
		})
	})
}

func TestParseMode(t *testing.T) {
	Convey("Given mode tags", t, func() {
		So(ParseMode("current", 14), ShouldResemble, TrailingWindow{Days: 14})
		So(ParseMode(" CURRENT ", 0).Title(), ShouldEqual, "CURRENT (30-Day Trend)")
		So(ParseMode("alltime", 14), ShouldResemble, LongTerm{})
		So(ParseMode("whatever", 14), ShouldResemble, LongTerm{})
	})
}

func TestTeamProfileOf(t *testing.T) {
	Convey("Given pool rows behind a lineup", t, func() {
		pool := []Candidate{
			{TrackID: "a", ArtistPopularity: 55.5, ArtistFollowers: 1000.9},
			{TrackID: "b", ArtistPopularity: 60, ArtistFollowers: 2000},
			{TrackID: "c", ArtistPopularity: 99, ArtistFollowers: 9e9},
		}
		entries := []Entry{{TrackID: "a"}, {TrackID: "b"}}

		Convey("When profiling", func() {
			p, err := TeamProfileOf(pool, entries)
			Convey("Then popularity is rounded and followers truncated", func() {
				So(err, ShouldBeNil)
				So(p.AvgArtistPopularity, ShouldEqual, 57.8)
				So(p.AvgArtistFollowers, ShouldEqual, int64(1500))
			})
		})

		Convey("When no lineup track is in the pool", func() {
			_, err := TeamProfileOf(pool, []Entry{{TrackID: "zzz"}})
			Convey("Then it fails", func() {
				So(errors.Is(err, ErrNoProfileRows), ShouldBeTrue)
			})
		})
	})
}
