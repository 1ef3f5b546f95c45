package app

import (
	"context"

	"github.com/MuganziJames/Umoja-AI/internal/auth"
	"github.com/MuganziJames/Umoja-AI/internal/config"
	"github.com/MuganziJames/Umoja-AI/internal/gateway"
	"github.com/MuganziJames/Umoja-AI/internal/kv"
	"github.com/MuganziJames/Umoja-AI/internal/logger"
	"github.com/MuganziJames/Umoja-AI/internal/stories"
)

type cacheSetup struct {
	store kv.Store
	close func() error
}

// setupCache picks the durable cache backend: Redis when an address is
// configured, a Bolt file when a path is, in-memory otherwise.
func setupCache(cfg config.Config) (cacheSetup, error) {
	if cfg.RedisAddr != "" {
		store, err := kv.NewRedis(cfg.RedisAddr, cfg.RedisPassword)
		if err != nil {
			return cacheSetup{}, err
		}
		logger.Info("redis cache ready", map[string]any{"addr": cfg.RedisAddr})
		return cacheSetup{store: store, close: store.Close}, nil
	}

	if cfg.CachePath != "" {
		store, err := kv.OpenBolt(cfg.CachePath)
		if err != nil {
			return cacheSetup{}, err
		}
		logger.Info("cache ready", map[string]any{"path": cfg.CachePath})
		return cacheSetup{store: store, close: store.Close}, nil
	}

	return cacheSetup{store: kv.NewMemory()}, nil
}

// storyGateway adapts the gateway's result shapes to the narrow
// interface the submit pipeline consumes.
type storyGateway struct {
	db *gateway.Client
}

func (g storyGateway) CurrentUser(ctx context.Context) (*auth.User, error) {
	return g.db.CurrentUser(ctx)
}

func (g storyGateway) InsertStory(ctx context.Context, story stories.Story) (*stories.Story, error) {
	result := g.db.InsertStory(ctx, story)
	if !result.Success {
		return nil, result.Err
	}
	return result.Story, nil
}
