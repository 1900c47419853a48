package image

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/globaltravelreport/contentbot/internal/retry"
)

const unsplashBaseURL = "https://api.unsplash.com"

// UnsplashClient is the Unsplash implementation of the Searcher boundary.
type UnsplashClient struct {
	accessKey string
	baseURL   string
	client    *http.Client
}

// NewUnsplashClient creates a client reading the access key from the given
// environment variable. An empty key yields an unconfigured client; the
// matcher falls back to the generic image in that case.
func NewUnsplashClient(accessKeyEnv string) *UnsplashClient {
	return &UnsplashClient{
		accessKey: os.Getenv(accessKeyEnv),
		baseURL:   unsplashBaseURL,
		client:    &http.Client{Timeout: 15 * time.Second},
	}
}

// IsConfigured checks if the access key is set.
func (u *UnsplashClient) IsConfigured() bool {
	return u.accessKey != ""
}

// Search queries the Unsplash search API, retrying transient failures.
func (u *UnsplashClient) Search(ctx context.Context, query, orientation string, limit int) ([]Candidate, error) {
	if u.accessKey == "" {
		return nil, fmt.Errorf("unsplash access key not configured")
	}

	params := url.Values{}
	params.Set("query", query)
	params.Set("per_page", strconv.Itoa(limit))
	if orientation != "" {
		params.Set("orientation", orientation)
	}
	endpoint := u.baseURL + "/search/photos?" + params.Encode()

	var candidates []Candidate
	err := retry.Do(ctx, retry.DefaultConfig(), func() error {
		req, err := http.NewRequestWithContext(ctx, "GET", endpoint, nil)
		if err != nil {
			return err
		}
		req.Header.Set("Authorization", "Client-ID "+u.accessKey)
		req.Header.Set("Accept-Version", "v1")

		resp, err := u.client.Do(req)
		if err != nil {
			return fmt.Errorf("unsplash API error: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			body, _ := io.ReadAll(resp.Body)
			return fmt.Errorf("unsplash API returned status %d: %s", resp.StatusCode, string(body))
		}

		var result struct {
			Results []struct {
				AltDescription string `json:"alt_description"`
				URLs           struct {
					Regular string `json:"regular"`
				} `json:"urls"`
				User struct {
					Name  string `json:"name"`
					Links struct {
						HTML string `json:"html"`
					} `json:"links"`
				} `json:"user"`
			} `json:"results"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
			return fmt.Errorf("decoding unsplash response: %w", err)
		}

		candidates = candidates[:0]
		for _, r := range result.Results {
			candidates = append(candidates, Candidate{
				URL:             r.URLs.Regular,
				Alt:             r.AltDescription,
				AttributionName: r.User.Name,
				AttributionURL:  r.User.Links.HTML,
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return candidates, nil
}
