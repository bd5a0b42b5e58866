package alert

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Discord sends notifications via Discord webhook.
type Discord struct {
	client     *http.Client
	webhookURL string
}

// NewDiscord creates a new Discord notifier.
func NewDiscord(webhookURL string) *Discord {
	return &Discord{client: newClient(), webhookURL: webhookURL}
}

func (d *Discord) Name() string { return "discord" }

func (d *Discord) Send(ctx context.Context, n *Notification) error {
	at := n.GeneratedAt
	if at.IsZero() {
		at = time.Now()
	}
	embed := map[string]any{
		"title":       "⚾ " + n.Title,
		"description": n.Body + "\n\n" + strings.Join(n.Lines(0), "\n"),
		"color":       0x1DB954,
		"timestamp":   at.UTC().Format(time.RFC3339),
	}
	if n.Star != nil && n.Star.ArtistImageURL != nil {
		embed["thumbnail"] = map[string]any{"url": *n.Star.ArtistImageURL}
	}

	if err := postJSON(ctx, d.client, d.webhookURL, map[string]any{"embeds": []map[string]any{embed}}, nil); err != nil {
		return fmt.Errorf("discord webhook: %w", err)
	}
	return nil
}
