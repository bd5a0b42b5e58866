package store

const schema = `
CREATE TABLE IF NOT EXISTS plays (
    played_at  TEXT NOT NULL,
    track_id   TEXT NOT NULL,
    context    TEXT,
    PRIMARY KEY (played_at, track_id)
);

CREATE INDEX IF NOT EXISTS idx_plays_track ON plays(track_id);
CREATE INDEX IF NOT EXISTS idx_plays_played_at ON plays(played_at);

CREATE TABLE IF NOT EXISTS tracks (
    id           TEXT PRIMARY KEY,
    name         TEXT NOT NULL DEFAULT '',
    duration_ms  INTEGER NOT NULL DEFAULT 0,
    popularity   INTEGER NOT NULL DEFAULT 0,
    album_id     TEXT NOT NULL DEFAULT '',
    is_saved     BOOLEAN NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS albums (
    id            TEXT PRIMARY KEY,
    name          TEXT NOT NULL DEFAULT '',
    release_date  TEXT
);

CREATE TABLE IF NOT EXISTS artists (
    id          TEXT PRIMARY KEY,
    name        TEXT NOT NULL DEFAULT '',
    popularity  INTEGER NOT NULL DEFAULT 0,
    followers   INTEGER NOT NULL DEFAULT 0,
    genres      TEXT NOT NULL DEFAULT '[]'
);

CREATE TABLE IF NOT EXISTS track_artists (
    track_id   TEXT NOT NULL,
    artist_id  TEXT NOT NULL,
    position   INTEGER NOT NULL DEFAULT 0,
    PRIMARY KEY (track_id, artist_id)
);

CREATE TABLE IF NOT EXISTS runs (
    id        TEXT PRIMARY KEY,
    ran_at    TEXT NOT NULL,
    note      TEXT NOT NULL DEFAULT '',
    inserted  INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_runs_ran_at ON runs(ran_at);
`
