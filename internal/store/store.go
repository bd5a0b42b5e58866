package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/elonfeng/sabermetrics/pkg/lineup"
	"github.com/elonfeng/sabermetrics/pkg/source"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	log "github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"
)

// timeLayout keeps stored timestamps fixed-width UTC so they sort as text.
const timeLayout = "2006-01-02T15:04:05.000Z"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}

// Counts are row counts per table plus the newest play.
type Counts struct {
	Plays        int        `db:"plays" json:"plays"`
	Tracks       int        `db:"tracks" json:"tracks"`
	Albums       int        `db:"albums" json:"albums"`
	Artists      int        `db:"artists" json:"artists"`
	TrackArtists int        `db:"track_artists" json:"track_artists"`
	Runs         int        `db:"runs" json:"runs"`
	LatestPlay   *time.Time `db:"-" json:"latest_play"`
}

// Run is a collector heartbeat.
type Run struct {
	ID       string    `json:"id"`
	RanAt    time.Time `json:"ran_at"`
	Note     string    `json:"note"`
	Inserted int       `json:"inserted"`
}

// Store is the persistence interface for the play log and its catalog.
type Store interface {
	// Ingest writes a collected batch and returns the number of new plays.
	Ingest(ctx context.Context, batch source.Batch) (int, error)
	RecordRun(ctx context.Context, note string, inserted int) (Run, error)
	Counts(ctx context.Context) (Counts, error)
	// PlayLog returns plays at or after since with the catalog rows they reference.
	PlayLog(ctx context.Context, since time.Time) (lineup.PlayLog, error)
	Close() error
}

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sqlx.DB
}

// New opens a SQLite database and runs migrations.
func New(path string) (*SQLiteStore, error) {
	db, err := sqlx.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Ingest(ctx context.Context, batch source.Batch) (int, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin ingest: %w", err)
	}
	defer tx.Rollback()

	inserted := 0
	for _, p := range batch.Plays {
		if p.Track.ID == "" {
			continue
		}
		if err := upsertCatalog(ctx, tx, p); err != nil {
			return 0, err
		}

		res, err := tx.ExecContext(ctx, `
			INSERT OR IGNORE INTO plays (played_at, track_id, context)
			VALUES (?, ?, ?)
		`, formatTime(p.PlayedAt), p.Track.ID, nullString(p.Context))
		if err != nil {
			return 0, fmt.Errorf("insert play %s: %w", p.Track.ID, err)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			inserted++
		}
	}

	for id, saved := range batch.Saved {
		if _, err := tx.ExecContext(ctx, "UPDATE tracks SET is_saved = ? WHERE id = ?", saved, id); err != nil {
			return 0, fmt.Errorf("mark saved %s: %w", id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit ingest: %w", err)
	}
	return inserted, nil
}

func upsertCatalog(ctx context.Context, tx *sqlx.Tx, p source.Play) error {
	if p.Album.ID != "" {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO albums (id, name, release_date)
			VALUES (?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				name = excluded.name,
				release_date = COALESCE(excluded.release_date, albums.release_date)
		`, p.Album.ID, p.Album.Name, nullString(p.Album.ReleaseDate))
		if err != nil {
			return fmt.Errorf("upsert album %s: %w", p.Album.ID, err)
		}
	}

	_, err := tx.ExecContext(ctx, `
		INSERT INTO tracks (id, name, duration_ms, popularity, album_id)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			duration_ms = COALESCE(NULLIF(excluded.duration_ms, 0), tracks.duration_ms),
			popularity = COALESCE(NULLIF(excluded.popularity, 0), tracks.popularity),
			album_id = COALESCE(NULLIF(excluded.album_id, ''), tracks.album_id)
	`, p.Track.ID, p.Track.Name, p.Track.DurationMS, p.Track.Popularity, p.Track.AlbumID)
	if err != nil {
		return fmt.Errorf("upsert track %s: %w", p.Track.ID, err)
	}

	for i, a := range p.Artists {
		if a.ID == "" {
			continue
		}
		genres := a.Genres
		if genres == nil {
			genres = []string{}
		}
		genresJSON, _ := json.Marshal(genres)

		_, err := tx.ExecContext(ctx, `
			INSERT INTO artists (id, name, popularity, followers, genres)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				name = excluded.name,
				popularity = COALESCE(NULLIF(excluded.popularity, 0), artists.popularity),
				followers = COALESCE(NULLIF(excluded.followers, 0), artists.followers),
				genres = CASE WHEN excluded.genres = '[]' THEN artists.genres ELSE excluded.genres END
		`, a.ID, a.Name, a.Popularity, a.Followers, string(genresJSON))
		if err != nil {
			return fmt.Errorf("upsert artist %s: %w", a.ID, err)
		}

		_, err = tx.ExecContext(ctx, `
			INSERT OR IGNORE INTO track_artists (track_id, artist_id, position)
			VALUES (?, ?, ?)
		`, p.Track.ID, a.ID, i)
		if err != nil {
			return fmt.Errorf("link track %s to artist %s: %w", p.Track.ID, a.ID, err)
		}
	}
	return nil
}

func (s *SQLiteStore) RecordRun(ctx context.Context, note string, inserted int) (Run, error) {
	run := Run{
		ID:       uuid.NewString(),
		RanAt:    time.Now().UTC(),
		Note:     note,
		Inserted: inserted,
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (id, ran_at, note, inserted)
		VALUES (?, ?, ?, ?)
	`, run.ID, formatTime(run.RanAt), run.Note, run.Inserted)
	if err != nil {
		return Run{}, fmt.Errorf("record run: %w", err)
	}
	return run, nil
}

func (s *SQLiteStore) Counts(ctx context.Context) (Counts, error) {
	var row struct {
		Counts
		LatestPlay sql.NullString `db:"latest_play"`
	}
	err := s.db.GetContext(ctx, &row, `
		SELECT
			(SELECT COUNT(*) FROM plays) AS plays,
			(SELECT COUNT(*) FROM tracks) AS tracks,
			(SELECT COUNT(*) FROM albums) AS albums,
			(SELECT COUNT(*) FROM artists) AS artists,
			(SELECT COUNT(*) FROM track_artists) AS track_artists,
			(SELECT COUNT(*) FROM runs) AS runs,
			(SELECT MAX(played_at) FROM plays) AS latest_play
	`)
	if err != nil {
		return Counts{}, fmt.Errorf("count rows: %w", err)
	}

	counts := row.Counts
	if row.LatestPlay.Valid {
		if t, err := parseTime(row.LatestPlay.String); err == nil {
			counts.LatestPlay = &t
		}
	}
	return counts, nil
}

type playRow struct {
	PlayedAt string         `db:"played_at"`
	TrackID  string         `db:"track_id"`
	Context  sql.NullString `db:"context"`
}

type trackRow struct {
	ID         string `db:"id"`
	Name       string `db:"name"`
	DurationMS int    `db:"duration_ms"`
	Popularity int    `db:"popularity"`
	AlbumID    string `db:"album_id"`
	Saved      bool   `db:"is_saved"`
}

type albumRow struct {
	ID          string         `db:"id"`
	Name        string         `db:"name"`
	ReleaseDate sql.NullString `db:"release_date"`
}

type artistRow struct {
	ID         string `db:"id"`
	Name       string `db:"name"`
	Popularity int    `db:"popularity"`
	Followers  int64  `db:"followers"`
}

type linkRow struct {
	TrackID  string `db:"track_id"`
	ArtistID string `db:"artist_id"`
}

// PlayLog returns plays at or after since with the whole catalog. Tracks
// without a play in the window stay in the catalog so they score with zero
// counts; a window without plays returns no catalog at all.
func (s *SQLiteStore) PlayLog(ctx context.Context, since time.Time) (lineup.PlayLog, error) {
	var out lineup.PlayLog

	var plays []playRow
	if err := s.db.SelectContext(ctx, &plays,
		"SELECT played_at, track_id, context FROM plays WHERE played_at >= ? ORDER BY played_at", formatTime(since)); err != nil {
		return out, fmt.Errorf("list plays: %w", err)
	}
	for _, p := range plays {
		at, err := parseTime(p.PlayedAt)
		if err != nil {
			log.WithField("played_at", p.PlayedAt).Warn("store: skipping play with bad timestamp")
			continue
		}
		out.Plays = append(out.Plays, lineup.PlayEvent{PlayedAt: at, TrackID: p.TrackID, Context: p.Context.String})
	}
	if len(out.Plays) == 0 {
		return out, nil
	}

	var tracks []trackRow
	if err := s.db.SelectContext(ctx, &tracks,
		"SELECT id, name, duration_ms, popularity, album_id, is_saved FROM tracks ORDER BY rowid"); err != nil {
		return out, fmt.Errorf("list tracks: %w", err)
	}
	for _, t := range tracks {
		out.Tracks = append(out.Tracks, lineup.TrackRow(t))
	}

	var albums []albumRow
	if err := s.db.SelectContext(ctx, &albums,
		"SELECT id, name, release_date FROM albums ORDER BY rowid"); err != nil {
		return out, fmt.Errorf("list albums: %w", err)
	}
	for _, a := range albums {
		out.Albums = append(out.Albums, lineup.AlbumRow{ID: a.ID, Name: a.Name, ReleaseDate: a.ReleaseDate.String})
	}

	var links []linkRow
	if err := s.db.SelectContext(ctx, &links,
		"SELECT track_id, artist_id FROM track_artists ORDER BY track_id, position"); err != nil {
		return out, fmt.Errorf("list track artists: %w", err)
	}
	for _, l := range links {
		out.TrackArtists = append(out.TrackArtists, lineup.TrackArtist(l))
	}

	var artists []artistRow
	if err := s.db.SelectContext(ctx, &artists,
		"SELECT id, name, popularity, followers FROM artists ORDER BY rowid"); err != nil {
		return out, fmt.Errorf("list artists: %w", err)
	}
	for _, a := range artists {
		out.Artists = append(out.Artists, lineup.ArtistRow(a))
	}

	return out, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
