package distribute

import (
	"bytes"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/yuin/goldmark"

	"github.com/globaltravelreport/contentbot/internal/story"
)

// DefaultMaxHashtags caps the hashtag set appended to social posts.
const DefaultMaxHashtags = 5

const tweetBudget = 280

// BuildPost derives the shared distribution payload from a published story.
func BuildPost(s story.Story, siteBaseURL string, maxHashtags int) Post {
	if maxHashtags <= 0 {
		maxHashtags = DefaultMaxHashtags
	}

	var html bytes.Buffer
	if err := goldmark.Convert([]byte(s.Body), &html); err != nil {
		// fall back to the raw text; channels that need HTML still get content
		html.Reset()
		html.WriteString(s.Body)
	}

	return Post{
		StoryKey: s.IdentityKey,
		Title:    s.Title,
		Excerpt:  s.Excerpt,
		URL:      strings.TrimRight(siteBaseURL, "/") + "/stories/" + s.Slug,
		ImageURL: s.Image.URL,
		Hashtags: hashtags(s, maxHashtags),
		BodyHTML: html.String(),
	}
}

// hashtags builds the tag set from category, country, and story tags,
// deduplicated and capped.
func hashtags(s story.Story, max int) []string {
	var out []string
	seen := make(map[string]bool)

	add := func(raw string) {
		tag := hashtagToken(raw)
		if tag == "" || seen[tag] {
			return
		}
		seen[tag] = true
		out = append(out, "#"+tag)
	}

	add(s.Category)
	if s.Country != "Global" {
		add(s.Country)
	}
	for _, t := range s.Tags {
		add(t)
	}

	if len(out) > max {
		out = out[:max]
	}
	return out
}

func hashtagToken(raw string) string {
	var b strings.Builder
	for _, r := range raw {
		if r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// baseContent is the shared teaser used by every social channel.
func baseContent(p Post) string {
	return fmt.Sprintf("Discover the latest in travel: %s. %s", p.Title, p.Excerpt)
}

// tweetText fits the teaser, link, and hashtags into the tweet budget,
// trimming the teaser first and dropping trailing hashtags if needed.
func tweetText(p Post) string {
	tags := strings.Join(p.Hashtags, " ")
	suffix := "\n" + p.URL
	if tags != "" {
		suffix += "\n" + tags
	}

	content := baseContent(p)
	for len(content)+len(suffix) > tweetBudget && len(p.Hashtags) > 0 {
		p.Hashtags = p.Hashtags[:len(p.Hashtags)-1]
		tags = strings.Join(p.Hashtags, " ")
		suffix = "\n" + p.URL
		if tags != "" {
			suffix += "\n" + tags
		}
	}
	if over := len(content) + len(suffix) - tweetBudget; over > 0 {
		keep := len(content) - over - 3
		if keep < 0 {
			keep = 0
		}
		for keep > 0 && !utf8.RuneStart(content[keep]) {
			keep--
		}
		content = strings.TrimSpace(content[:keep]) + "..."
	}
	return content + suffix
}

// linkedinText frames the story for a professional audience.
func linkedinText(p Post) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n\n%s\n\nRead the full story: %s", p.Title, p.Excerpt, p.URL)
	if len(p.Hashtags) > 0 {
		b.WriteString("\n\n" + strings.Join(p.Hashtags, " "))
	}
	return b.String()
}

// newsletterHTML wraps the rendered story for an email campaign.
func newsletterHTML(p Post) string {
	var b strings.Builder
	b.WriteString("<h1>" + p.Title + "</h1>\n")
	if p.ImageURL != "" {
		fmt.Fprintf(&b, `<img src=%q alt=%q style="max-width:100%%"/>`+"\n", p.ImageURL, p.Title)
	}
	b.WriteString(p.BodyHTML)
	fmt.Fprintf(&b, `<p><a href=%q>Read on the site</a></p>`, p.URL)
	return b.String()
}
