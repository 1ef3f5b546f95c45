// Package nav keeps a navigation view in sync with authentication
// state, independently of the per-page guard.
package nav

import (
	"context"
	"sync"
	"time"

	"github.com/MuganziJames/Umoja-AI/internal/auth"
	"github.com/MuganziJames/Umoja-AI/internal/bus"
	"github.com/MuganziJames/Umoja-AI/internal/logger"
	"github.com/MuganziJames/Umoja-AI/internal/ready"
)

// View is the derived navigation state: either a sign-in affordance or
// a profile affordance for the current identity.
type View struct {
	SignedIn    bool
	DisplayName string
	Initials    string
}

// ViewFor materializes the navigation state for an identity (nil means
// signed out).
func ViewFor(user *auth.User) View {
	if user == nil {
		return View{}
	}
	name := auth.DisplayName(user)
	return View{
		SignedIn:    true,
		DisplayName: name,
		Initials:    auth.Initials(name),
	}
}

// ResyncInterval is how often the synchronizer re-checks auth state
// while the page is visible.
const ResyncInterval = 3 * time.Second

// Identity is the slice of the data gateway the synchronizer reads.
type Identity interface {
	Ready() bool
	CurrentUser(ctx context.Context) (*auth.User, error)
}

type Synchronizer struct {
	db     Identity
	events *bus.Bus
	render func(View)

	interval     time.Duration
	waitAttempts int
	waitInterval time.Duration

	mu      sync.Mutex
	visible bool
}

func NewSynchronizer(db Identity, events *bus.Bus, render func(View)) *Synchronizer {
	return &Synchronizer{
		db:           db,
		events:       events,
		render:       render,
		interval:     ResyncInterval,
		waitAttempts: ready.DefaultAttempts,
		waitInterval: ready.DefaultInterval,
		visible:      true,
	}
}

// SetVisible records page visibility. Becoming visible triggers an
// immediate re-sync on the next loop pass; while hidden the periodic
// check pauses.
func (s *Synchronizer) SetVisible(visible bool) {
	s.mu.Lock()
	s.visible = visible
	s.mu.Unlock()
}

func (s *Synchronizer) isVisible() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.visible
}

// Run drives the synchronizer until the context ends: an initial
// readiness wait and sync, then re-syncs on broadcast events and on a
// periodic tick while visible. On readiness failure it falls back to a
// signed-out view.
func (s *Synchronizer) Run(ctx context.Context) {
	events, unsubscribe := s.events.Subscribe(bus.TopicAuthStateChanged, bus.TopicUserSignedIn)
	defer unsubscribe()

	if err := ready.Wait(ctx, "remote data gateway", s.waitAttempts, s.waitInterval, s.db.Ready); err != nil {
		logger.Error("navigation initialization failed", map[string]any{
			"error": err.Error(),
		})
		s.render(View{})
		if ctx.Err() != nil {
			return
		}
	} else {
		s.Sync(ctx)
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-events:
			// Render straight from the event payload; the full sync
			// path would re-publish and loop.
			s.render(ViewFor(ev.User))
		case <-ticker.C:
			if s.isVisible() {
				s.Sync(ctx)
			}
		}
	}
}

// Sync queries the current identity, renders, and broadcasts the
// observed state for other components.
func (s *Synchronizer) Sync(ctx context.Context) {
	user, err := s.db.CurrentUser(ctx)
	if err != nil {
		s.render(View{})
		return
	}

	s.render(ViewFor(user))
	s.events.Publish(bus.Event{Topic: bus.TopicAuthStateChanged, User: user})
}
