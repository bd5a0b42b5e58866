package artwork

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

type fakeFetcher struct {
	mu      sync.Mutex
	calls   int
	covers  map[string]string
	artists map[string]string
	err     error
}

func (f *fakeFetcher) AlbumCover(_ context.Context, id string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.covers[id], nil
}

func (f *fakeFetcher) ArtistImage(_ context.Context, id string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.artists[id], nil
}

func TestLookup(t *testing.T) {
	Convey("Given an artwork lookup with a memory cache", t, func() {
		cache, err := NewMemoryCache(100)
		So(err, ShouldBeNil)
		defer cache.Close()

		fetcher := &fakeFetcher{
			covers:  map[string]string{"t1": "cover.jpg"},
			artists: map[string]string{"a1": "artist.jpg"},
		}
		lookup := New(fetcher, cache, Options{Failures: 2, Cooldown: time.Hour})
		ctx := context.Background()

		Convey("When the same cover is requested twice", func() {
			u1, ok1 := lookup.AlbumCover(ctx, "t1")
			u2, ok2 := lookup.AlbumCover(ctx, "t1")

			Convey("Then the fetcher is called once", func() {
				So(ok1, ShouldBeTrue)
				So(ok2, ShouldBeTrue)
				So(u1, ShouldEqual, "cover.jpg")
				So(u2, ShouldEqual, "cover.jpg")
				So(fetcher.calls, ShouldEqual, 1)
			})
		})

		Convey("When album and artist share an id", func() {
			fetcher.covers["x"] = "x-cover.jpg"
			fetcher.artists["x"] = "x-artist.jpg"
			cover, _ := lookup.AlbumCover(ctx, "x")
			artist, _ := lookup.ArtistImage(ctx, "x")

			Convey("Then they are cached separately", func() {
				So(cover, ShouldEqual, "x-cover.jpg")
				So(artist, ShouldEqual, "x-artist.jpg")
			})
		})

		Convey("When an item has no image", func() {
			_, ok := lookup.ArtistImage(ctx, "nobody")
			_, again := lookup.ArtistImage(ctx, "nobody")

			Convey("Then nothing is cached and no image is reported", func() {
				So(ok, ShouldBeFalse)
				So(again, ShouldBeFalse)
				So(fetcher.calls, ShouldEqual, 2)
			})
		})

		Convey("When the id is empty", func() {
			_, ok := lookup.AlbumCover(ctx, "")
			Convey("Then no fetch happens", func() {
				So(ok, ShouldBeFalse)
				So(fetcher.calls, ShouldEqual, 0)
			})
		})

		Convey("When the service keeps failing", func() {
			fetcher.err = errors.New("502 bad gateway")
			for i := 0; i < 5; i++ {
				_, ok := lookup.AlbumCover(ctx, "t1")
				So(ok, ShouldBeFalse)
			}

			Convey("Then the breaker stops calling it", func() {
				So(fetcher.calls, ShouldEqual, 2)
			})
		})
	})

	Convey("Given the no-op lookup", t, func() {
		_, ok := None{}.AlbumCover(context.Background(), "t1")
		So(ok, ShouldBeFalse)
	})
}
