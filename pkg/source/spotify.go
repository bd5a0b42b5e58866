package source

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/elonfeng/sabermetrics/pkg/lineup"
	sentry "github.com/getsentry/sentry-go"
	log "github.com/sirupsen/logrus"
	"github.com/zmb3/spotify/v2"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"golang.org/x/oauth2"
)

// DefaultScopes are the permissions the lineup needs.
var DefaultScopes = []string{
	spotifyauth.ScopeUserReadRecentlyPlayed,
	spotifyauth.ScopeUserTopRead,
	spotifyauth.ScopeUserLibraryRead,
}

// SpotifyOptions configures the Spotify client.
type SpotifyOptions struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	TokenPath    string
	Scopes       []string
	TopLimit     int
}

// Spotify reads a listener's top tracks, recent plays and artwork through
// the Spotify Web API using a persisted authorization-code token.
type Spotify struct {
	auth     *spotifyauth.Authenticator
	tokens   *TokenFile
	topLimit int

	mu     sync.Mutex
	client *spotify.Client
	last   *oauth2.Token
}

// NewSpotify creates a Spotify source. No network calls are made until a
// method needs the API.
func NewSpotify(opts SpotifyOptions) *Spotify {
	scopes := opts.Scopes
	if len(scopes) == 0 {
		scopes = DefaultScopes
	}
	limit := opts.TopLimit
	if limit <= 0 || limit > batchSize {
		limit = batchSize
	}
	return &Spotify{
		auth: spotifyauth.New(
			spotifyauth.WithClientID(opts.ClientID),
			spotifyauth.WithClientSecret(opts.ClientSecret),
			spotifyauth.WithRedirectURL(opts.RedirectURL),
			spotifyauth.WithScopes(scopes...),
		),
		tokens:   NewTokenFile(opts.TokenPath),
		topLimit: limit,
	}
}

func (s *Spotify) Name() string { return "spotify" }

// AuthURL is where the listener grants access. state is echoed to the callback.
func (s *Spotify) AuthURL(state string) string {
	return s.auth.AuthURL(state)
}

// Exchange completes the authorization-code flow from the callback request
// and persists the token.
func (s *Spotify) Exchange(ctx context.Context, state string, r *http.Request) error {
	tok, err := s.auth.Token(ctx, state, r)
	if err != nil {
		return fmt.Errorf("exchange authorization code: %w", err)
	}
	if err := s.tokens.Save(tok); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.client = spotify.New(s.auth.Client(context.Background(), tok), spotify.WithRetry(true))
	s.last = tok
	return nil
}

// Authorized reports whether a token is available.
func (s *Spotify) Authorized() bool {
	_, err := s.api()
	return err == nil
}

func (s *Spotify) api() (*spotify.Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.client != nil {
		return s.client, nil
	}

	tok, err := s.tokens.Load()
	if err != nil {
		return nil, err
	}
	s.client = spotify.New(s.auth.Client(context.Background(), tok), spotify.WithRetry(true))
	s.last = tok
	return s.client, nil
}

// persistToken saves the token again after the transport refreshed it.
func (s *Spotify) persistToken(c *spotify.Client) {
	tok, err := c.Token()
	if err != nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.last != nil && s.last.AccessToken == tok.AccessToken {
		return
	}
	if err := s.tokens.Save(tok); err != nil {
		log.WithError(err).Warn("spotify: could not persist refreshed token")
		return
	}
	s.last = tok
}

// TopTracks returns the listener's long-term top tracks, enriched with full
// artist popularity and follower counts.
func (s *Spotify) TopTracks(ctx context.Context) ([]lineup.TopTrack, error) {
	span := sentry.StartSpan(ctx, "spotify.top_tracks")
	defer span.Finish()

	c, err := s.api()
	if err != nil {
		span.Status = sentry.SpanStatusUnauthenticated
		return nil, err
	}
	defer s.persistToken(c)

	page, err := c.CurrentUsersTopTracks(span.Context(),
		spotify.Limit(s.topLimit),
		spotify.Timerange(spotify.LongTermRange),
	)
	if err != nil {
		span.Status = sentry.SpanStatusInternalError
		return nil, fmt.Errorf("fetch top tracks: %w", err)
	}

	full := s.fullArtists(span.Context(), c, uniqueArtistIDs(page.Tracks))

	tracks := make([]lineup.TopTrack, 0, len(page.Tracks))
	for _, t := range page.Tracks {
		tracks = append(tracks, topTrack(t, full))
	}

	log.WithField("tracks", len(tracks)).Debug("spotify: fetched long-term top tracks")
	span.Status = sentry.SpanStatusOK
	return tracks, nil
}

// RecentPlays returns up to 50 recently played tracks with their catalog
// metadata and library flags.
func (s *Spotify) RecentPlays(ctx context.Context) (Batch, error) {
	span := sentry.StartSpan(ctx, "spotify.recent_plays")
	defer span.Finish()

	c, err := s.api()
	if err != nil {
		span.Status = sentry.SpanStatusUnauthenticated
		return Batch{}, err
	}
	defer s.persistToken(c)
	ctx = span.Context()

	items, err := c.PlayerRecentlyPlayedOpt(ctx, &spotify.RecentlyPlayedOptions{Limit: batchSize})
	if err != nil {
		span.Status = sentry.SpanStatusInternalError
		return Batch{}, fmt.Errorf("fetch recently played: %w", err)
	}

	var ids []spotify.ID
	seen := make(map[spotify.ID]bool)
	for _, it := range items {
		if it.Track.ID == "" || seen[it.Track.ID] {
			continue
		}
		seen[it.Track.ID] = true
		ids = append(ids, it.Track.ID)
	}

	tracks := make(map[spotify.ID]*spotify.FullTrack, len(ids))
	var fullTracks []spotify.FullTrack
	for _, group := range chunk(ids, batchSize) {
		got, err := c.GetTracks(ctx, group)
		if err != nil {
			log.WithError(err).Warn("spotify: track lookup failed, storing plays without details")
			break
		}
		for _, t := range got {
			if t == nil {
				continue
			}
			tracks[t.ID] = t
			fullTracks = append(fullTracks, *t)
		}
	}
	full := s.fullArtists(ctx, c, uniqueArtistIDs(fullTracks))

	batch := Batch{Saved: make(map[string]bool, len(ids))}
	for _, it := range items {
		if it.Track.ID == "" {
			continue
		}
		batch.Plays = append(batch.Plays, play(it, tracks[it.Track.ID], full))
	}

	for _, group := range chunk(ids, batchSize) {
		flags, err := c.UserHasTracks(ctx, group...)
		if err != nil {
			log.WithError(err).Warn("spotify: saved-track lookup failed")
			break
		}
		for i, saved := range flags {
			if i < len(group) {
				batch.Saved[string(group[i])] = saved
			}
		}
	}

	span.Status = sentry.SpanStatusOK
	return batch, nil
}

// AlbumCover returns the first album image of a track, "" when it has none.
func (s *Spotify) AlbumCover(ctx context.Context, trackID string) (string, error) {
	c, err := s.api()
	if err != nil {
		return "", err
	}
	t, err := c.GetTrack(ctx, spotify.ID(trackID))
	if err != nil {
		return "", fmt.Errorf("get track %s: %w", trackID, err)
	}
	return firstImage(t.Album.Images), nil
}

// ArtistImage returns the first image of an artist, "" when it has none.
func (s *Spotify) ArtistImage(ctx context.Context, artistID string) (string, error) {
	c, err := s.api()
	if err != nil {
		return "", err
	}
	a, err := c.GetArtist(ctx, spotify.ID(artistID))
	if err != nil {
		return "", fmt.Errorf("get artist %s: %w", artistID, err)
	}
	return firstImage(a.Images), nil
}

// fullArtists looks up artists in batches. Failures leave artists without
// popularity and followers.
func (s *Spotify) fullArtists(ctx context.Context, c *spotify.Client, ids []spotify.ID) map[spotify.ID]*spotify.FullArtist {
	full := make(map[spotify.ID]*spotify.FullArtist, len(ids))
	for _, group := range chunk(ids, batchSize) {
		artists, err := c.GetArtists(ctx, group...)
		if err != nil {
			log.WithError(err).Warn("spotify: artist lookup failed")
			sentry.CaptureException(err)
			return full
		}
		for _, a := range artists {
			if a != nil {
				full[a.ID] = a
			}
		}
	}
	return full
}
