package history

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/elonfeng/sabermetrics/pkg/lineup"
	"github.com/elonfeng/sabermetrics/pkg/metrics"
	"github.com/goccy/go-json"
	log "github.com/sirupsen/logrus"
)

// Log is an append-only record of built snapshots.
type Log interface {
	// Append records snap. Snapshots with an empty lineup are ignored.
	Append(ctx context.Context, snap lineup.Snapshot) error
	// Read returns every recorded snapshot in append order. A missing or
	// unreadable log reads as empty.
	Read(ctx context.Context) []lineup.Snapshot
}

// FileLog keeps the history as a JSON array in a single file.
type FileLog struct {
	path string
	mu   sync.Mutex
}

// NewFileLog creates a log backed by path. The file is created on first append.
func NewFileLog(path string) *FileLog {
	return &FileLog{path: path}
}

// Path returns the backing file.
func (l *FileLog) Path() string { return l.path }

func (l *FileLog) Append(ctx context.Context, snap lineup.Snapshot) error {
	if snap.Empty() {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	entries, err := l.load()
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			l.setAside(err)
		}
		entries = nil
	}
	entries = append(entries, snap)

	if err := l.write(entries); err != nil {
		return err
	}
	metrics.RecordHistoryAppend()
	log.WithFields(log.Fields{"mode": snap.Mode, "entries": len(entries)}).Debug("history: appended snapshot")
	return nil
}

func (l *FileLog) Read(ctx context.Context) []lineup.Snapshot {
	l.mu.Lock()
	defer l.mu.Unlock()

	entries, err := l.load()
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			log.WithError(err).WithField("path", l.path).Warn("history: unreadable, returning empty")
		}
		return []lineup.Snapshot{}
	}
	return entries
}

func (l *FileLog) load() ([]lineup.Snapshot, error) {
	data, err := os.ReadFile(l.path)
	if err != nil {
		return nil, err
	}
	entries := []lineup.Snapshot{}
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("decode history %s: %w", l.path, err)
	}
	if entries == nil {
		entries = []lineup.Snapshot{}
	}
	return entries, nil
}

// setAside moves an undecodable log out of the way so the next write starts fresh.
func (l *FileLog) setAside(cause error) {
	aside := l.path + ".corrupt"
	logger := log.WithError(cause).WithField("path", l.path)
	if err := os.Rename(l.path, aside); err != nil {
		logger.WithField("rename_error", err.Error()).Warn("history: corrupt log, overwriting")
		return
	}
	logger.WithField("moved_to", aside).Warn("history: corrupt log set aside")
}

func (l *FileLog) write(entries []lineup.Snapshot) error {
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("encode history: %w", err)
	}

	dir := filepath.Dir(l.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create history dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(l.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp history: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write history: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync history: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close history: %w", err)
	}
	if err := os.Rename(tmp.Name(), l.path); err != nil {
		return fmt.Errorf("replace history: %w", err)
	}
	return nil
}
