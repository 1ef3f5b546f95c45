package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeBackendFile(t *testing.T, path, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
}

func TestLoaderBeforeFileExists(t *testing.T) {
	loader := NewLoader(filepath.Join(t.TempDir(), "umoja-backend.json"))

	assert.False(t, loader.TryLoad())
	assert.False(t, loader.Ready())
	assert.Nil(t, loader.Backend())
}

func TestLoaderBindsOnce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "umoja-backend.json")
	writeBackendFile(t, path, `{"url":"https://abc.supabase.co","anon_key":"anon-123"}`)

	loader := NewLoader(path)
	require.True(t, loader.TryLoad())
	require.True(t, loader.Ready())

	backend := loader.Backend()
	require.NotNil(t, backend)
	assert.Equal(t, "https://abc.supabase.co", backend.URL)
	assert.Equal(t, "anon-123", backend.AnonKey)

	// Defaults fill the optional sections.
	assert.Equal(t, "stories", backend.Tables.Stories)
	assert.Equal(t, "pending_review", backend.Status.Pending)
	assert.Equal(t, "approved", backend.Status.Approved)

	// A rewrite after binding does not replace the bound backend.
	writeBackendFile(t, path, `{"url":"https://other.supabase.co","anon_key":"anon-999"}`)
	require.True(t, loader.TryLoad())
	assert.Equal(t, "https://abc.supabase.co", loader.Backend().URL)
}

func TestLoaderRejectsIncompleteFile(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"malformed json", `{not json`},
		{"missing url", `{"anon_key":"anon-123"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "umoja-backend.json")
			writeBackendFile(t, path, tt.body)

			loader := NewLoader(path)
			assert.False(t, loader.TryLoad())
			assert.False(t, loader.Ready())
		})
	}
}

func TestLoaderOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "umoja-backend.json")
	writeBackendFile(t, path, `{
		"url": "https://abc.supabase.co",
		"anon_key": "anon-123",
		"tables": {"stories": "published_stories"},
		"status": {"pending": "in_review"}
	}`)

	loader := NewLoader(path)
	require.True(t, loader.TryLoad())

	backend := loader.Backend()
	assert.Equal(t, "published_stories", backend.Tables.Stories)
	assert.Equal(t, "in_review", backend.Status.Pending)
	// Unset fields keep their defaults.
	assert.Equal(t, "user_profiles", backend.Tables.UserProfiles)
	assert.Equal(t, "approved", backend.Status.Approved)
}

func TestWatchSeesFileAppearLater(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "umoja-backend.json")
	loader := NewLoader(path)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- loader.Watch(ctx) }()

	// Let the watcher attach before the file lands.
	time.Sleep(50 * time.Millisecond)
	writeBackendFile(t, path, `{"url":"https://abc.supabase.co","anon_key":"anon-123"}`)

	require.NoError(t, <-done)
	assert.True(t, loader.Ready())
	assert.Equal(t, "https://abc.supabase.co", loader.Backend().URL)
}

func TestWatchReturnsImmediatelyWhenBound(t *testing.T) {
	path := filepath.Join(t.TempDir(), "umoja-backend.json")
	writeBackendFile(t, path, `{"url":"https://abc.supabase.co","anon_key":"anon-123"}`)

	loader := NewLoader(path)
	require.NoError(t, loader.Watch(context.Background()))
}

func TestWatchCancelled(t *testing.T) {
	loader := NewLoader(filepath.Join(t.TempDir(), "umoja-backend.json"))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	assert.ErrorIs(t, loader.Watch(ctx), context.DeadlineExceeded)
}
