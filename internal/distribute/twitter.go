package distribute

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
)

const twitterAPIBase = "https://api.twitter.com/2"

// TwitterChannel posts tweets through the v2 API.
type TwitterChannel struct {
	enabled     bool
	bearerToken string
	baseURL     string
	client      *http.Client
}

// NewTwitter creates the Twitter channel. The bearer token is read from the
// named environment variable.
func NewTwitter(enabled bool, bearerTokenEnv string) *TwitterChannel {
	return &TwitterChannel{
		enabled:     enabled,
		bearerToken: os.Getenv(bearerTokenEnv),
		baseURL:     twitterAPIBase,
		client:      &http.Client{},
	}
}

func (c *TwitterChannel) Name() string { return "twitter" }

func (c *TwitterChannel) Enabled() bool { return c.enabled }

func (c *TwitterChannel) Post(ctx context.Context, p Post) (bool, error) {
	if c.bearerToken == "" {
		return false, fmt.Errorf("%w: missing bearer token", ErrNotConfigured)
	}

	payload, err := json.Marshal(map[string]string{"text": tweetText(p)})
	if err != nil {
		return false, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/tweets",
		bytes.NewReader(payload))
	if err != nil {
		return false, err
	}
	req.Header.Set("Authorization", "Bearer "+c.bearerToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return false, fmt.Errorf("twitter post: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return false, fmt.Errorf("twitter post: status %d: %s", resp.StatusCode, string(body))
	}
	return true, nil
}
