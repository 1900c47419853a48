package distribute

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
)

const facebookAPIBase = "https://graph.facebook.com/v19.0"

// ErrNotConfigured is returned by channels that are enabled but missing
// credentials.
var ErrNotConfigured = errors.New("channel not configured")

// FacebookChannel posts page feed entries through the Graph API.
type FacebookChannel struct {
	enabled     bool
	accessToken string
	pageID      string
	baseURL     string
	client      *http.Client
}

// NewFacebook creates the Facebook channel. Credentials are read from the
// named environment variables.
func NewFacebook(enabled bool, accessTokenEnv, pageIDEnv string) *FacebookChannel {
	return &FacebookChannel{
		enabled:     enabled,
		accessToken: os.Getenv(accessTokenEnv),
		pageID:      os.Getenv(pageIDEnv),
		baseURL:     facebookAPIBase,
		client:      &http.Client{},
	}
}

func (c *FacebookChannel) Name() string { return "facebook" }

func (c *FacebookChannel) Enabled() bool { return c.enabled }

func (c *FacebookChannel) Post(ctx context.Context, p Post) (bool, error) {
	if c.accessToken == "" || c.pageID == "" {
		return false, fmt.Errorf("%w: missing access token or page id", ErrNotConfigured)
	}

	form := url.Values{}
	form.Set("message", baseContent(p)+"\n\n"+strings.Join(p.Hashtags, " "))
	form.Set("link", p.URL)
	form.Set("access_token", c.accessToken)

	endpoint := fmt.Sprintf("%s/%s/feed", c.baseURL, c.pageID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint,
		strings.NewReader(form.Encode()))
	if err != nil {
		return false, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.client.Do(req)
	if err != nil {
		return false, fmt.Errorf("facebook post: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return false, fmt.Errorf("facebook post: status %d: %s", resp.StatusCode, string(body))
	}
	return true, nil
}
