package distribute

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/globaltravelreport/contentbot/internal/story"
)

// DefaultTimeout bounds each channel's dispatch independently.
const DefaultTimeout = 15 * time.Second

// Fanout dispatches one post to every enabled channel concurrently.
type Fanout struct {
	channels []Channel
	timeout  time.Duration
	log      *zap.SugaredLogger
	now      func() time.Time
}

// NewFanout creates a fanout over the given channels. Disabled channels are
// skipped at dispatch time.
func NewFanout(channels []Channel, timeout time.Duration, log *zap.SugaredLogger) *Fanout {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Fanout{channels: channels, timeout: timeout, log: log, now: time.Now}
}

// Distribute posts to all enabled channels and waits for every one to
// settle. Each enabled channel yields exactly one record; one channel's
// failure never cancels its siblings.
func (f *Fanout) Distribute(ctx context.Context, p Post) []story.DistributionRecord {
	var enabled []Channel
	for _, ch := range f.channels {
		if ch.Enabled() {
			enabled = append(enabled, ch)
		}
	}
	if len(enabled) == 0 {
		return nil
	}

	records := make([]story.DistributionRecord, len(enabled))
	var wg sync.WaitGroup
	for i, ch := range enabled {
		wg.Add(1)
		go func(i int, ch Channel) {
			defer wg.Done()

			chCtx, cancel := context.WithTimeout(ctx, f.timeout)
			defer cancel()

			immediate, err := ch.Post(chCtx, p)
			record := story.DistributionRecord{
				StoryKey:  p.StoryKey,
				Channel:   ch.Name(),
				Success:   err == nil,
				Immediate: immediate,
				PostedAt:  f.now(),
			}
			if err != nil {
				record.Error = err.Error()
				f.log.Warnw("channel dispatch failed",
					"channel", ch.Name(), "story", p.StoryKey, "error", err)
			} else {
				f.log.Infow("channel dispatch succeeded",
					"channel", ch.Name(), "story", p.StoryKey, "immediate", immediate)
			}
			records[i] = record
		}(i, ch)
	}
	wg.Wait()

	return records
}
