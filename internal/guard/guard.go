// Package guard makes the per-page-load authentication decision:
// redirect, or stay and render the authenticated navigation.
package guard

import (
	"context"

	"github.com/MuganziJames/Umoja-AI/internal/authflow"
	"github.com/MuganziJames/Umoja-AI/internal/bus"
	"github.com/MuganziJames/Umoja-AI/internal/gateway"
	"github.com/MuganziJames/Umoja-AI/internal/kv"
	"github.com/MuganziJames/Umoja-AI/internal/logger"
	"github.com/MuganziJames/Umoja-AI/internal/nav"
	"github.com/MuganziJames/Umoja-AI/internal/ready"
	"github.com/MuganziJames/Umoja-AI/internal/session"
)

// State is the guard's terminal state for one page load.
type State int

const (
	StateUnknown State = iota
	// StateRedirecting: the page load ends in a navigation elsewhere.
	StateRedirecting
	// StateAuthenticated: a signed-in user stays on a protected page.
	StateAuthenticated
	// StateUnauthenticatedOnAuthPage: an anonymous user stays on the
	// sign-in page.
	StateUnauthenticatedOnAuthPage
)

// Decision is the evaluated outcome: where to go, or what to render.
type Decision struct {
	State      State
	RedirectTo string
	Nav        nav.View
}

// Remote is the slice of the data gateway the guard needs: readiness
// for the page-load wait, and sign-out on logout.
type Remote interface {
	Ready() bool
	SignOut(ctx context.Context) gateway.Result
}

type Guard struct {
	sessions *session.Manager
	db       Remote
	store    kv.Store
	events   *bus.Bus

	homePath string
	authPath string

	waitAttempts int
}

type Options struct {
	HomePath string
	AuthPath string
	// WaitAttempts caps the readiness poll; zero means the default
	// budget.
	WaitAttempts int
}

func New(sessions *session.Manager, db Remote, store kv.Store, events *bus.Bus, opts Options) *Guard {
	return &Guard{
		sessions:     sessions,
		db:           db,
		store:        store,
		events:       events,
		homePath:     opts.HomePath,
		authPath:     opts.AuthPath,
		waitAttempts: opts.WaitAttempts,
	}
}

// Evaluate runs the page-load transition exactly once. Readiness
// failures fail open toward unauthenticated UI; the page never stays in
// an indeterminate authenticated-looking state.
func (g *Guard) Evaluate(ctx context.Context, currentPath string, isAuthPage bool) Decision {
	authenticated := false

	err := ready.Wait(ctx, "remote data gateway", g.waitAttempts, 0, g.db.Ready)
	if err != nil {
		logger.Error("auth guard readiness wait failed", map[string]any{
			"error": err.Error(),
		})
	} else {
		authenticated = g.sessions.IsAuthenticated()
	}

	if !authenticated && !isAuthPage {
		// Remember where the user was headed, then force sign-in.
		if err := g.store.Set(authflow.ReturnPathKey, currentPath); err != nil {
			logger.Warn("failed to record return path", map[string]any{
				"error": err.Error(),
			})
		}
		return Decision{State: StateRedirecting, RedirectTo: g.authPath}
	}

	if authenticated && isAuthPage {
		return Decision{State: StateRedirecting, RedirectTo: g.homePath}
	}

	if !authenticated {
		return Decision{State: StateUnauthenticatedOnAuthPage}
	}

	return Decision{
		State: StateAuthenticated,
		Nav:   nav.ViewFor(g.sessions.CurrentUser()),
	}
}

// Logout clears the session after confirmation. The remote sign-out is
// best-effort: its failure never blocks the local clear or the
// navigation home.
func (g *Guard) Logout(ctx context.Context, confirm func() bool) (redirectTo string, ok bool) {
	if confirm != nil && !confirm() {
		return "", false
	}

	if result := g.db.SignOut(ctx); !result.Success {
		logger.Warn("remote sign out failed, clearing local session anyway", map[string]any{
			"error": result.ErrorMessage(),
		})
	}

	g.sessions.Logout()
	g.events.Publish(bus.Event{Topic: bus.TopicAuthStateChanged, User: nil})

	return g.homePath, true
}
