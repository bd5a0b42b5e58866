package alert

import (
	"context"
	"fmt"
	"net/http"
	"strings"
)

// Slack sends notifications via Slack incoming webhook.
type Slack struct {
	client     *http.Client
	webhookURL string
}

// NewSlack creates a new Slack notifier.
func NewSlack(webhookURL string) *Slack {
	return &Slack{client: newClient(), webhookURL: webhookURL}
}

func (s *Slack) Name() string { return "slack" }

func (s *Slack) Send(ctx context.Context, n *Notification) error {
	blocks := []map[string]any{
		{
			"type": "header",
			"text": map[string]any{"type": "plain_text", "text": "⚾ " + n.Title},
		},
		{
			"type": "section",
			"text": map[string]any{"type": "mrkdwn", "text": n.Body},
		},
	}
	if lines := n.Lines(0); len(lines) > 0 {
		blocks = append(blocks, map[string]any{
			"type": "section",
			"text": map[string]any{"type": "mrkdwn", "text": "```" + strings.Join(lines, "\n") + "```"},
		})
	}
	if n.Star != nil && n.Star.AlbumCoverURL != nil {
		blocks = append(blocks, map[string]any{
			"type":      "image",
			"image_url": *n.Star.AlbumCoverURL,
			"alt_text":  n.Star.TrackName,
		})
	}

	if err := postJSON(ctx, s.client, s.webhookURL, map[string]any{"blocks": blocks}, nil); err != nil {
		return fmt.Errorf("slack webhook: %w", err)
	}
	return nil
}
