package feed

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"

	readability "github.com/go-shiori/go-readability"

	"github.com/globaltravelreport/contentbot/internal/story"
)

const minExtractedChars = 100

// enrichBody fetches the article page and extracts readable text when the
// feed entry body is too thin to score. Any failure leaves the body as-is.
func (f *Fetcher) enrichBody(ctx context.Context, raw *story.RawItem) {
	text, err := f.fetchArticleText(ctx, raw.SourceURL)
	if err != nil {
		f.log.Debugw("body enrichment failed", "url", raw.SourceURL, "error", err)
		return
	}
	if len(text) > len(raw.Body) {
		raw.Body = text
	}
}

func (f *Fetcher) fetchArticleText(ctx context.Context, articleURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, articleURL, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", "contentbot/1.0 (travel news pipeline)")

	resp, err := f.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return "", &httpError{code: resp.StatusCode}
	}

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}

	parsedURL, _ := url.Parse(articleURL)
	article, err := readability.FromReader(strings.NewReader(string(bodyBytes)), parsedURL)
	if err != nil {
		return "", err
	}

	text := strings.TrimSpace(article.TextContent)
	if len(text) < minExtractedChars {
		return "", errThinContent
	}
	return text, nil
}

var errThinContent = errors.New("extracted content too short")

type httpError struct {
	code int
}

func (e *httpError) Error() string {
	return http.StatusText(e.code)
}
