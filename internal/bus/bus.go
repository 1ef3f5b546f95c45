// Package bus is the in-process broadcast channel components use to
// observe auth changes. Delivery is fire-and-forget: no ordering is
// guaranteed across subscribers, and slow subscribers miss events
// rather than block the publisher.
package bus

import (
	"sync"

	"github.com/MuganziJames/Umoja-AI/internal/auth"
)

const (
	TopicAuthStateChanged = "authStateChanged"
	TopicUserSignedIn     = "userSignedIn"
)

type Event struct {
	Topic string
	User  *auth.User // nil when signed out
}

type Bus struct {
	mu   sync.RWMutex
	subs []*subscription
}

type subscription struct {
	topics map[string]bool
	ch     chan Event
}

func New() *Bus {
	return &Bus{}
}

// Subscribe returns a channel receiving events for the given topics
// (all topics when none are named) and a function removing the
// subscription. The channel is buffered; events published while it is
// full are dropped for that subscriber. After unsubscribing, no further
// events are delivered; the channel is left open.
func (b *Bus) Subscribe(topics ...string) (<-chan Event, func()) {
	sub := &subscription{ch: make(chan Event, 8)}
	if len(topics) > 0 {
		sub.topics = make(map[string]bool, len(topics))
		for _, t := range topics {
			sub.topics[t] = true
		}
	}

	b.mu.Lock()
	b.subs = append(b.subs, sub)
	b.mu.Unlock()

	unsubscribe := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		for i, s := range b.subs {
			if s == sub {
				b.subs = append(b.subs[:i], b.subs[i+1:]...)
				return
			}
		}
	}
	return sub.ch, unsubscribe
}

// Publish broadcasts the event to matching subscribers without blocking.
func (b *Bus) Publish(ev Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, sub := range b.subs {
		if sub.topics != nil && !sub.topics[ev.Topic] {
			continue
		}
		select {
		case sub.ch <- ev:
		default:
		}
	}
}
