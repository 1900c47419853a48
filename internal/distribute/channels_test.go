package distribute

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTwitterPost(t *testing.T) {
	var gotAuth string
	var gotBody map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		body, _ := io.ReadAll(r.Body)
		json.Unmarshal(body, &gotBody)
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	t.Setenv("TEST_TWITTER_TOKEN", "tok-123")
	ch := NewTwitter(true, "TEST_TWITTER_TOKEN")
	ch.baseURL = srv.URL

	immediate, err := ch.Post(context.Background(), Post{
		StoryKey: "feed-1",
		Title:    "Item",
		Excerpt:  "Short.",
		URL:      "https://globaltravelreport.com/stories/item",
	})

	require.NoError(t, err)
	assert.True(t, immediate)
	assert.Equal(t, "Bearer tok-123", gotAuth)
	assert.Contains(t, gotBody["text"], "https://globaltravelreport.com/stories/item")
}

func TestTwitterMissingToken(t *testing.T) {
	t.Setenv("TEST_TWITTER_TOKEN", "")
	ch := NewTwitter(true, "TEST_TWITTER_TOKEN")

	_, err := ch.Post(context.Background(), Post{})
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestTwitterAPIFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		io.WriteString(w, `{"detail":"not allowed"}`)
	}))
	defer srv.Close()

	t.Setenv("TEST_TWITTER_TOKEN", "tok-123")
	ch := NewTwitter(true, "TEST_TWITTER_TOKEN")
	ch.baseURL = srv.URL

	_, err := ch.Post(context.Background(), Post{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 403")
}

func TestFacebookPost(t *testing.T) {
	var gotPath, gotMessage, gotToken string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		r.ParseForm()
		gotMessage = r.PostForm.Get("message")
		gotToken = r.PostForm.Get("access_token")
		io.WriteString(w, `{"id":"123_456"}`)
	}))
	defer srv.Close()

	t.Setenv("TEST_FB_TOKEN", "fb-tok")
	t.Setenv("TEST_FB_PAGE", "page42")
	ch := NewFacebook(true, "TEST_FB_TOKEN", "TEST_FB_PAGE")
	ch.baseURL = srv.URL

	immediate, err := ch.Post(context.Background(), Post{
		Title:   "Kyoto in Autumn",
		Excerpt: "Maple season.",
		URL:     "https://globaltravelreport.com/stories/kyoto",
	})

	require.NoError(t, err)
	assert.True(t, immediate)
	assert.Equal(t, "/page42/feed", gotPath)
	assert.Contains(t, gotMessage, "Kyoto in Autumn")
	assert.Equal(t, "fb-tok", gotToken)
}

func TestLinkedInPost(t *testing.T) {
	var gotPayload map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		json.Unmarshal(body, &gotPayload)
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	t.Setenv("TEST_LI_TOKEN", "li-tok")
	t.Setenv("TEST_LI_ORG", "987")
	ch := NewLinkedIn(true, "TEST_LI_TOKEN", "TEST_LI_ORG")
	ch.baseURL = srv.URL

	immediate, err := ch.Post(context.Background(), Post{Title: "Item", URL: "https://x/y"})

	require.NoError(t, err)
	assert.True(t, immediate)
	assert.Equal(t, "urn:li:organization:987", gotPayload["author"])
}

func TestNewsletterPostIsScheduled(t *testing.T) {
	var gotPayload map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "brevo-key", r.Header.Get("api-key"))
		body, _ := io.ReadAll(r.Body)
		json.Unmarshal(body, &gotPayload)
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	t.Setenv("TEST_BREVO_KEY", "brevo-key")
	ch := NewNewsletter(true, "TEST_BREVO_KEY", 7)
	ch.baseURL = srv.URL

	immediate, err := ch.Post(context.Background(), Post{
		StoryKey: "feed-n",
		Title:    "Weekly Travel Digest",
		BodyHTML: "<p>content</p>",
	})

	require.NoError(t, err)
	assert.False(t, immediate, "campaigns are scheduled, never immediate")
	assert.Equal(t, "Weekly Travel Digest", gotPayload["subject"])
	assert.NotEmpty(t, gotPayload["scheduledAt"])
}
