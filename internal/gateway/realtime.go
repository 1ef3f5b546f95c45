package gateway

import (
	"context"
	"time"

	"github.com/MuganziJames/Umoja-AI/internal/logger"
	"github.com/MuganziJames/Umoja-AI/internal/stories"
)

// Change is a remote record change notification. Delivery is
// best-effort: ordering and duplication depend on polling timing.
type Change struct {
	Type  string // "INSERT", "UPDATE" or "DELETE"
	Story stories.Story
}

// Subscription is a handle on a running story subscription.
type Subscription struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// Unsubscribe stops the subscription and waits for its loop to exit.
func (s *Subscription) Unsubscribe() {
	s.cancel()
	<-s.done
}

// SubscribeStories invokes onChange whenever the published story set
// changes, observed by interval polling.
func (c *Client) SubscribeStories(ctx context.Context, interval time.Duration, onChange func(Change)) (*Subscription, error) {
	if _, err := c.ensureReady(); err != nil {
		return nil, err
	}
	if interval <= 0 {
		interval = 5 * time.Second
	}

	ctx, cancel := context.WithCancel(ctx)
	sub := &Subscription{cancel: cancel, done: make(chan struct{})}

	go func() {
		defer close(sub.done)

		known := c.snapshot(ctx, nil, nil)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				known = c.snapshot(ctx, known, onChange)
			}
		}
	}()

	return sub, nil
}

// snapshot queries the published stories and diffs them against the
// previous state, reporting changes through onChange when given.
func (c *Client) snapshot(ctx context.Context, prev map[string]stories.Story, onChange func(Change)) map[string]stories.Story {
	result := c.Stories(ctx, stories.Filter{})
	if !result.Success {
		logger.Warn("subscription poll failed", map[string]any{
			"error": result.ErrorMessage(),
		})
		return prev
	}

	current := make(map[string]stories.Story, len(result.Stories))
	for _, s := range result.Stories {
		current[s.ID] = s
	}

	if prev == nil || onChange == nil {
		return current
	}

	for id, s := range current {
		old, ok := prev[id]
		switch {
		case !ok:
			onChange(Change{Type: "INSERT", Story: s})
		case old.UpdatedAt != s.UpdatedAt:
			onChange(Change{Type: "UPDATE", Story: s})
		}
	}
	for id, s := range prev {
		if _, ok := current[id]; !ok {
			onChange(Change{Type: "DELETE", Story: s})
		}
	}
	return current
}
