// Package distribute fans published stories out to social and newsletter
// channels.
package distribute

import "context"

// Post is the channel-independent payload built from a published story.
type Post struct {
	StoryKey string
	Title    string
	Excerpt  string
	URL      string // canonical site URL for the story
	ImageURL string
	Hashtags []string
	BodyHTML string // rendered story body, used by the newsletter
}

// Channel posts a story to one outlet. Post reports whether delivery was
// immediate (a scheduled campaign returns false) and any dispatch error.
type Channel interface {
	Name() string
	Enabled() bool
	Post(ctx context.Context, p Post) (immediate bool, err error)
}
