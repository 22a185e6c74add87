package notifier

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Discord posts reports to a Discord channel webhook, mentioning everyone.
type Discord struct {
	WebhookURL string
	Mention    string
	Client     *http.Client
}

func NewDiscord(webhookURL string) *Discord {
	return &Discord{
		WebhookURL: webhookURL,
		Mention:    "@everyone",
		Client:     &http.Client{Timeout: 10 * time.Second},
	}
}

func (d *Discord) SendText(ctx context.Context, text string) error {
	if d.WebhookURL == "" {
		return fmt.Errorf("discord webhook url is not configured")
	}
	content := text
	if d.Mention != "" {
		content = d.Mention + " " + text
	}
	form := url.Values{"content": {content}}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.WebhookURL, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := d.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("discord status=%d", resp.StatusCode)
	}
	return nil
}
