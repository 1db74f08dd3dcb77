package notify

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"loggedin/internal/types"
)

// Discord rejects message content longer than this
const discordMaxContent = 2000

// DiscordSink posts a digest of the alerts to a Discord webhook
type DiscordSink struct {
	webhook string
	client  *http.Client
	now     func() time.Time
}

func NewDiscordSink(webhook string) *DiscordSink {
	return &DiscordSink{
		webhook: webhook,
		client:  &http.Client{Timeout: 5 * time.Second},
		now:     time.Now,
	}
}

func (d *DiscordSink) Name() string { return "discord" }

func (d *DiscordSink) Send(ctx context.Context, alerts []types.Alert) error {
	type discordMsg struct {
		Content string `json:"content"`
	}

	var b strings.Builder
	fmt.Fprintf(&b, "**[%s] LoggedIn: %d alert(s)**\n", d.now().Format("15:04:05"), len(alerts))
	for _, a := range alerts {
		line := fmt.Sprintf("- **%s** %s\n", strings.ToUpper(string(a.Risk)), a.Summary())
		if b.Len()+len(line) > discordMaxContent-4 {
			b.WriteString("...\n")
			break
		}
		b.WriteString(line)
	}

	body, err := json.Marshal(discordMsg{Content: b.String()})
	if err != nil {
		return fmt.Errorf("failed to marshal discord message: %w", err)
	}
	return postJSON(ctx, d.client, d.webhook, body, nil)
}

func postJSON(ctx context.Context, client *http.Client, url string, body []byte, headers map[string]string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("unexpected status: %s", resp.Status)
	}
	return nil
}
