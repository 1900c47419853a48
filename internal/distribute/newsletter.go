package distribute

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"
)

const brevoAPIBase = "https://api.brevo.com/v3"

// NewsletterChannel creates scheduled email campaigns through the Brevo API.
// Campaigns are queued for the provider's send window, so delivery is never
// immediate.
type NewsletterChannel struct {
	enabled bool
	apiKey  string
	listID  int
	baseURL string
	client  *http.Client
	now     func() time.Time
}

// NewNewsletter creates the newsletter channel. The API key is read from the
// named environment variable.
func NewNewsletter(enabled bool, apiKeyEnv string, listID int) *NewsletterChannel {
	return &NewsletterChannel{
		enabled: enabled,
		apiKey:  os.Getenv(apiKeyEnv),
		listID:  listID,
		baseURL: brevoAPIBase,
		client:  &http.Client{},
		now:     time.Now,
	}
}

func (c *NewsletterChannel) Name() string { return "newsletter" }

func (c *NewsletterChannel) Enabled() bool { return c.enabled }

func (c *NewsletterChannel) Post(ctx context.Context, p Post) (bool, error) {
	if c.apiKey == "" {
		return false, fmt.Errorf("%w: missing api key", ErrNotConfigured)
	}

	scheduledAt := c.now().Add(15 * time.Minute).UTC().Format(time.RFC3339)
	payload, err := json.Marshal(map[string]any{
		"name":        "story-" + p.StoryKey,
		"subject":     p.Title,
		"htmlContent": newsletterHTML(p),
		"sender": map[string]string{
			"name":  "Global Travel Report",
			"email": "editorial@globaltravelreport.com",
		},
		"recipients":  map[string]any{"listIds": []int{c.listID}},
		"scheduledAt": scheduledAt,
	})
	if err != nil {
		return false, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/emailCampaigns",
		bytes.NewReader(payload))
	if err != nil {
		return false, err
	}
	req.Header.Set("api-key", c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return false, fmt.Errorf("newsletter campaign: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return false, fmt.Errorf("newsletter campaign: status %d: %s", resp.StatusCode, string(body))
	}
	// the campaign is scheduled, not sent
	return false, nil
}
