package config

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/MuganziJames/Umoja-AI/internal/logger"
)

// Backend describes the remote data service. It arrives out of band, in
// a provisioning file dropped by deployment tooling, at a
// nondeterministic time after startup.
type Backend struct {
	URL     string `json:"url"`
	AnonKey string `json:"anon_key"`

	Tables Tables      `json:"tables"`
	Status StoryStatus `json:"status"`
}

type Tables struct {
	Stories           string `json:"stories"`
	UserProfiles      string `json:"user_profiles"`
	Categories        string `json:"categories"`
	StoryAnalytics    string `json:"story_analytics"`
	ChatConversations string `json:"chat_conversations"`
}

type StoryStatus struct {
	Draft    string `json:"draft"`
	Pending  string `json:"pending"`
	Approved string `json:"approved"`
	Rejected string `json:"rejected"`
	Archived string `json:"archived"`
}

func defaultTables() Tables {
	return Tables{
		Stories:           "stories",
		UserProfiles:      "user_profiles",
		Categories:        "categories",
		StoryAnalytics:    "story_analytics",
		ChatConversations: "chat_conversations",
	}
}

func defaultStatus() StoryStatus {
	return StoryStatus{
		Draft:    "draft",
		Pending:  "pending_review",
		Approved: "approved",
		Rejected: "rejected",
		Archived: "archived",
	}
}

// Loader tracks the appearance of the provisioning file. It transitions
// not-configured to configured at most once and never reverts.
type Loader struct {
	path string

	mu      sync.RWMutex
	backend *Backend
}

func NewLoader(path string) *Loader {
	return &Loader{path: path}
}

// TryLoad attempts a single read of the provisioning file. Returns true
// once a backend is bound, from this call or an earlier one.
func (l *Loader) TryLoad() bool {
	if l.Ready() {
		return true
	}

	data, err := os.ReadFile(l.path)
	if err != nil {
		return false
	}

	backend := Backend{
		Tables: defaultTables(),
		Status: defaultStatus(),
	}
	if err := json.Unmarshal(data, &backend); err != nil {
		logger.Warn("malformed backend config, waiting for rewrite", map[string]any{
			"path":  l.path,
			"error": err.Error(),
		})
		return false
	}
	if backend.URL == "" {
		return false
	}

	l.mu.Lock()
	if l.backend == nil {
		l.backend = &backend
		logger.Info("backend configuration loaded", map[string]any{
			"url": backend.URL,
		})
	}
	l.mu.Unlock()
	return true
}

// Ready reports whether a backend has been bound.
func (l *Loader) Ready() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.backend != nil
}

// Backend returns the bound backend, or nil before configuration.
func (l *Loader) Backend() *Backend {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.backend
}

// Watch loads once the provisioning file appears or changes, using a
// filesystem watcher on the parent directory. It returns once the
// backend is bound or the context ends.
func (l *Loader) Watch(ctx context.Context) error {
	if l.TryLoad() {
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("config: failed to create watcher: %w", err)
	}
	defer watcher.Close()

	dir := filepath.Dir(l.path)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("config: failed to watch %s: %w", dir, err)
	}

	// The file may have landed between TryLoad and Add.
	if l.TryLoad() {
		return nil
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-watcher.Events:
			if !ok {
				return fmt.Errorf("config: watcher closed")
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			if filepath.Clean(ev.Name) != filepath.Clean(l.path) {
				continue
			}
			if l.TryLoad() {
				return nil
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return fmt.Errorf("config: watcher closed")
			}
			logger.Warn("config watcher error", map[string]any{
				"error": err.Error(),
			})
		}
	}
}
