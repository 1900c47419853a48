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

const linkedinAPIBase = "https://api.linkedin.com/v2"

// LinkedInChannel posts organization updates through the UGC API.
type LinkedInChannel struct {
	enabled     bool
	accessToken string
	orgID       string
	baseURL     string
	client      *http.Client
}

// NewLinkedIn creates the LinkedIn channel. Credentials are read from the
// named environment variables.
func NewLinkedIn(enabled bool, accessTokenEnv, orgIDEnv string) *LinkedInChannel {
	return &LinkedInChannel{
		enabled:     enabled,
		accessToken: os.Getenv(accessTokenEnv),
		orgID:       os.Getenv(orgIDEnv),
		baseURL:     linkedinAPIBase,
		client:      &http.Client{},
	}
}

func (c *LinkedInChannel) Name() string { return "linkedin" }

func (c *LinkedInChannel) Enabled() bool { return c.enabled }

func (c *LinkedInChannel) Post(ctx context.Context, p Post) (bool, error) {
	if c.accessToken == "" || c.orgID == "" {
		return false, fmt.Errorf("%w: missing access token or organization id", ErrNotConfigured)
	}

	payload, err := json.Marshal(map[string]any{
		"author":         "urn:li:organization:" + c.orgID,
		"lifecycleState": "PUBLISHED",
		"specificContent": map[string]any{
			"com.linkedin.ugc.ShareContent": map[string]any{
				"shareCommentary":    map[string]string{"text": linkedinText(p)},
				"shareMediaCategory": "ARTICLE",
				"media": []map[string]any{{
					"status":      "READY",
					"originalUrl": p.URL,
					"title":       map[string]string{"text": p.Title},
				}},
			},
		},
		"visibility": map[string]string{
			"com.linkedin.ugc.MemberNetworkVisibility": "PUBLIC",
		},
	})
	if err != nil {
		return false, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/ugcPosts",
		bytes.NewReader(payload))
	if err != nil {
		return false, err
	}
	req.Header.Set("Authorization", "Bearer "+c.accessToken)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Restli-Protocol-Version", "2.0.0")

	resp, err := c.client.Do(req)
	if err != nil {
		return false, fmt.Errorf("linkedin post: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return false, fmt.Errorf("linkedin post: status %d: %s", resp.StatusCode, string(body))
	}
	return true, nil
}
