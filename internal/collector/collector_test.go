package collector

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/elonfeng/sabermetrics/internal/store"
	"github.com/elonfeng/sabermetrics/pkg/lineup"
	"github.com/elonfeng/sabermetrics/pkg/source"
	. "github.com/smartystreets/goconvey/convey"
)

type fakeSource struct {
	batch source.Batch
	err   error
}

func (f *fakeSource) Name() string { return "fake" }

func (f *fakeSource) RecentPlays(context.Context) (source.Batch, error) {
	return f.batch, f.err
}

func TestCollect(t *testing.T) {
	Convey("Given a collector over a fresh store", t, func() {
		st, err := store.New(filepath.Join(t.TempDir(), "plays.db"))
		So(err, ShouldBeNil)
		defer st.Close()

		at := time.Date(2024, 6, 30, 9, 0, 0, 0, time.UTC)
		src := &fakeSource{batch: source.Batch{
			Plays: []source.Play{{
				PlayedAt: at,
				Track:    lineup.TrackRow{ID: "t1", Name: "One", AlbumID: "al1"},
				Album:    lineup.AlbumRow{ID: "al1", Name: "Album"},
				Artists:  []source.Artist{{ArtistRow: lineup.ArtistRow{ID: "a1", Name: "Artist"}}},
			}},
			Saved: map[string]bool{"t1": true},
		}}
		c := New(src, st)
		ctx := context.Background()

		Convey("When it collects twice", func() {
			first, err := c.Collect(ctx)
			So(err, ShouldBeNil)
			second, err := c.Collect(ctx)
			So(err, ShouldBeNil)

			Convey("Then only the first round inserts and both leave a heartbeat", func() {
				So(first.Fetched, ShouldEqual, 1)
				So(first.Inserted, ShouldEqual, 1)
				So(first.Before.Plays, ShouldEqual, 0)
				So(first.After.Plays, ShouldEqual, 1)
				So(first.RunID, ShouldNotBeEmpty)

				So(second.Inserted, ShouldEqual, 0)
				So(second.After.Runs, ShouldEqual, 2)
				So(second.After.LatestPlay, ShouldNotBeNil)
				So(second.After.LatestPlay.Equal(at), ShouldBeTrue)
			})
		})

		Convey("When the source fails", func() {
			src.err = source.ErrNotAuthorized
			_, err := c.Collect(ctx)

			Convey("Then the error is returned and no heartbeat is written", func() {
				So(errors.Is(err, source.ErrNotAuthorized), ShouldBeTrue)
				counts, err := st.Counts(ctx)
				So(err, ShouldBeNil)
				So(counts.Runs, ShouldEqual, 0)
			})
		})
	})
}
