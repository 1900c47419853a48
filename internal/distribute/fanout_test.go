package distribute

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/globaltravelreport/contentbot/internal/logging"
)

type fakeChannel struct {
	name      string
	enabled   bool
	immediate bool
	err       error
	delay     time.Duration
}

func (c *fakeChannel) Name() string  { return c.name }
func (c *fakeChannel) Enabled() bool { return c.enabled }

func (c *fakeChannel) Post(ctx context.Context, _ Post) (bool, error) {
	if c.delay > 0 {
		select {
		case <-time.After(c.delay):
		case <-ctx.Done():
			return false, ctx.Err()
		}
	}
	return c.immediate, c.err
}

func TestDistributePartialFailure(t *testing.T) {
	channels := []Channel{
		&fakeChannel{name: "facebook", enabled: true, immediate: true},
		&fakeChannel{name: "twitter", enabled: true, immediate: true},
		&fakeChannel{name: "newsletter", enabled: true, err: errors.New("missing api key")},
	}
	f := NewFanout(channels, time.Second, logging.Nop())

	records := f.Distribute(context.Background(), Post{StoryKey: "feed-1"})

	require.Len(t, records, 3, "one record per enabled channel")

	byChannel := make(map[string]int)
	successes := 0
	for _, r := range records {
		byChannel[r.Channel]++
		assert.Equal(t, "feed-1", r.StoryKey)
		assert.False(t, r.PostedAt.IsZero())
		if r.Success {
			successes++
		} else {
			assert.Contains(t, r.Error, "missing api key")
		}
	}
	assert.Equal(t, 2, successes)
	assert.Equal(t, map[string]int{"facebook": 1, "twitter": 1, "newsletter": 1}, byChannel)
}

func TestDistributeSkipsDisabledChannels(t *testing.T) {
	channels := []Channel{
		&fakeChannel{name: "twitter", enabled: true, immediate: true},
		&fakeChannel{name: "linkedin", enabled: false},
	}
	f := NewFanout(channels, time.Second, logging.Nop())

	records := f.Distribute(context.Background(), Post{StoryKey: "feed-2"})

	require.Len(t, records, 1)
	assert.Equal(t, "twitter", records[0].Channel)
}

func TestDistributeNoChannels(t *testing.T) {
	f := NewFanout(nil, time.Second, logging.Nop())
	assert.Empty(t, f.Distribute(context.Background(), Post{StoryKey: "feed-3"}))
}

func TestDistributeSlowChannelTimesOutAlone(t *testing.T) {
	channels := []Channel{
		&fakeChannel{name: "twitter", enabled: true, immediate: true},
		&fakeChannel{name: "facebook", enabled: true, delay: 500 * time.Millisecond},
	}
	f := NewFanout(channels, 50*time.Millisecond, logging.Nop())

	records := f.Distribute(context.Background(), Post{StoryKey: "feed-4"})

	require.Len(t, records, 2)
	for _, r := range records {
		switch r.Channel {
		case "twitter":
			assert.True(t, r.Success, "fast channel must not be cancelled by its sibling")
		case "facebook":
			assert.False(t, r.Success)
			assert.Contains(t, r.Error, "context deadline exceeded")
		}
	}
}

func TestDistributeRecordsImmediacy(t *testing.T) {
	channels := []Channel{
		&fakeChannel{name: "twitter", enabled: true, immediate: true},
		&fakeChannel{name: "newsletter", enabled: true, immediate: false},
	}
	f := NewFanout(channels, time.Second, logging.Nop())

	records := f.Distribute(context.Background(), Post{StoryKey: "feed-5"})

	require.Len(t, records, 2)
	for _, r := range records {
		if r.Channel == "newsletter" {
			assert.False(t, r.Immediate, "scheduled campaigns are not immediate")
		} else {
			assert.True(t, r.Immediate)
		}
	}
}
