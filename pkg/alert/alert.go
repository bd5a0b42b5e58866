package alert

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/elonfeng/sabermetrics/pkg/lineup"
	"github.com/goccy/go-json"
	log "github.com/sirupsen/logrus"
)

// Notification is a lineup card sent to announcement destinations.
type Notification struct {
	Title       string              `json:"title"`
	Mode        string              `json:"mode"`
	GeneratedAt time.Time           `json:"generated_at"`
	Body        string              `json:"body"`
	Lineup      []lineup.Entry      `json:"lineup"`
	Star        *lineup.Entry       `json:"star_player"`
	Profile     *lineup.TeamProfile `json:"team_profile"`
}

// FromSnapshot builds the card for a snapshot.
func FromSnapshot(s lineup.Snapshot) *Notification {
	n := &Notification{
		Title:       s.Title,
		Mode:        s.Mode,
		GeneratedAt: s.GeneratedAt,
		Lineup:      s.Lineup,
		Star:        s.StarPlayer,
		Profile:     s.TeamProfile,
	}
	if n.Lineup == nil {
		n.Lineup = []lineup.Entry{}
	}

	body := fmt.Sprintf("%d-track lineup", len(s.Lineup))
	if s.StarPlayer != nil {
		body += fmt.Sprintf(" | Star: %s by %s", s.StarPlayer.TrackName, s.StarPlayer.ArtistDisplayName)
	}
	if s.TeamProfile != nil {
		body += fmt.Sprintf(" | Team: %s (avg popularity %.1f, avg followers %d)",
			s.TeamProfile.Label, s.TeamProfile.AvgArtistPopularity, s.TeamProfile.AvgArtistFollowers)
	}
	n.Body = body
	return n
}

// Lines renders up to limit lineup slots, one per line.
func (n *Notification) Lines(limit int) []string {
	if limit <= 0 || limit > len(n.Lineup) {
		limit = len(n.Lineup)
	}
	lines := make([]string, 0, limit)
	for _, e := range n.Lineup[:limit] {
		lines = append(lines, fmt.Sprintf("%-2s %s by %s (%.2f)", e.Position, e.TrackName, e.ArtistDisplayName, e.Score))
	}
	return lines
}

// Notifier delivers announcements to a specific destination.
type Notifier interface {
	Name() string
	Send(ctx context.Context, n *Notification) error
}

// Manager broadcasts notifications to all registered notifiers.
type Manager struct {
	notifiers []Notifier
}

// NewManager creates a new alert manager.
func NewManager(notifiers ...Notifier) *Manager {
	return &Manager{notifiers: notifiers}
}

// HasNotifiers returns true if at least one notifier is configured.
func (m *Manager) HasNotifiers() bool {
	return m != nil && len(m.notifiers) > 0
}

// Broadcast sends a notification to all registered notifiers.
func (m *Manager) Broadcast(ctx context.Context, n *Notification) error {
	if m == nil {
		return nil
	}
	var errs []error
	for _, notifier := range m.notifiers {
		if err := notifier.Send(ctx, n); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", notifier.Name(), err))
			continue
		}
		log.WithFields(log.Fields{"notifier": notifier.Name(), "mode": n.Mode}).Debug("alert: sent")
	}
	return errors.Join(errs...)
}

func newClient() *http.Client {
	return &http.Client{Timeout: 10 * time.Second}
}

// postJSON sends payload and requires a 2xx reply. headers may be nil.
func postJSON(ctx context.Context, client *http.Client, url string, payload any, headers map[string]string) error {
	body, ok := payload.([]byte)
	if !ok {
		var err error
		body, err = json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal payload: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("status %d", resp.StatusCode)
	}
	return nil
}
