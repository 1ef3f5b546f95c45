// Package app wires every service together. All construction happens
// here, explicitly: no package-level singletons, no implicit load-order
// coupling between components.
package app

import (
	"context"
	"time"

	"github.com/MuganziJames/Umoja-AI/internal/ai"
	"github.com/MuganziJames/Umoja-AI/internal/authflow"
	"github.com/MuganziJames/Umoja-AI/internal/bus"
	"github.com/MuganziJames/Umoja-AI/internal/chat"
	"github.com/MuganziJames/Umoja-AI/internal/config"
	"github.com/MuganziJames/Umoja-AI/internal/gateway"
	"github.com/MuganziJames/Umoja-AI/internal/guard"
	"github.com/MuganziJames/Umoja-AI/internal/kv"
	"github.com/MuganziJames/Umoja-AI/internal/logger"
	"github.com/MuganziJames/Umoja-AI/internal/nav"
	"github.com/MuganziJames/Umoja-AI/internal/ready"
	"github.com/MuganziJames/Umoja-AI/internal/session"
	"github.com/MuganziJames/Umoja-AI/internal/stories"
)

type App struct {
	Config   config.Config
	Cache    kv.Store
	Sessions *session.Manager
	Activity *session.ActivityMonitor
	Events   *bus.Bus
	Backend  *config.Loader
	DB       *gateway.Client
	AI       *ai.Client
	Stories  *stories.Service
	Flow     *authflow.Flow
	Guard    *guard.Guard

	// GatewayReady resolves once the backend configuration has loaded
	// and the gateway has bound to it.
	GatewayReady *ready.Signal

	cleanup []func() error
}

func New(ctx context.Context, cfg config.Config) (*App, error) {
	a := &App{
		Config:       cfg,
		Events:       bus.New(),
		GatewayReady: ready.NewSignal(),
	}

	cache, err := setupCache(cfg)
	if err != nil {
		return nil, err
	}
	a.Cache = cache.store
	if cache.close != nil {
		a.cleanup = append(a.cleanup, cache.close)
	}

	a.Sessions = session.NewManager(a.Cache)
	a.Activity = session.NewActivityMonitor(a.Sessions)

	a.Backend = config.NewLoader(cfg.BackendConfigPath)
	a.DB = gateway.New(a.Backend, a.Cache)

	// Bind the gateway as soon as the provisioning file shows up.
	go func() {
		if err := a.Backend.Watch(ctx); err != nil {
			logger.Warn("backend config watch ended", map[string]any{
				"error": err.Error(),
			})
			return
		}
		if a.DB.Initialize() {
			a.GatewayReady.Resolve()
		}
	}()

	a.AI = ai.New(
		cfg.OpenRouterAPIKey,
		cfg.OpenRouterBaseURL,
		cfg.OpenRouterModel,
		cfg.OpenRouterBackupModel,
	)

	a.Stories = stories.NewService(
		storyGateway{db: a.DB},
		a.AI,
		"pending_review",
	)

	a.Flow = authflow.New(a.DB, a.Sessions, a.Events, a.Cache, cfg.HomePath, cfg.SignInSuccessDelay)

	a.Guard = guard.New(a.Sessions, a.DB, a.Cache, a.Events, guard.Options{
		HomePath: cfg.HomePath,
		AuthPath: cfg.AuthPath,
	})

	return a, nil
}

// NewChat starts a fresh support conversation.
func (a *App) NewChat() *chat.Session {
	return chat.NewSession(a.AI, a.DB)
}

// NewNav builds a navigation synchronizer rendering through the given
// callback.
func (a *App) NewNav(render func(nav.View)) *nav.Synchronizer {
	return nav.NewSynchronizer(a.DB, a.Events, render)
}

// WaitForGateway blocks until the gateway is bound or the budget runs
// out.
func (a *App) WaitForGateway(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return a.GatewayReady.Await(ctx)
}

func (a *App) Close() error {
	var first error
	for _, fn := range a.cleanup {
		if err := fn(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
