package gateway

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MuganziJames/Umoja-AI/internal/auth"
	"github.com/MuganziJames/Umoja-AI/internal/config"
	"github.com/MuganziJames/Umoja-AI/internal/kv"
	"github.com/MuganziJames/Umoja-AI/internal/stories"
)

const (
	testPassword    = "correct-horse-battery"
	testAccessToken = "access-token-1"
	testAnonKey     = "anon-key-1"
)

// fakeBackend emulates the remote auth, records and storage endpoints.
type fakeBackend struct {
	srv *httptest.Server

	mu       sync.Mutex
	requests int
	user     auth.User
	stories  []stories.Story

	patches   int
	deletes   int
	lastQuery url.Values
}

func newFakeBackend(t *testing.T) *fakeBackend {
	t.Helper()
	gin.SetMode(gin.TestMode)

	b := &fakeBackend{
		user: auth.User{
			ID:           "user-1",
			Email:        "amina@example.com",
			UserMetadata: map[string]any{"name": "Amina Okafor"},
		},
	}

	r := gin.New()
	r.Use(func(c *gin.Context) {
		b.mu.Lock()
		b.requests++
		b.mu.Unlock()
	})

	r.POST("/auth/v1/token", b.handleToken)
	r.GET("/auth/v1/user", b.handleUser)
	r.POST("/auth/v1/logout", func(c *gin.Context) { c.Status(http.StatusNoContent) })
	r.POST("/auth/v1/recover", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{}) })

	r.GET("/rest/v1/stories", b.handleStoriesGet)
	r.POST("/rest/v1/stories", b.handleStoriesInsert)
	r.PATCH("/rest/v1/stories", b.handleStoriesPatch)
	r.DELETE("/rest/v1/stories", b.handleStoriesDelete)
	r.POST("/rest/v1/story_analytics", func(c *gin.Context) { c.Status(http.StatusCreated) })
	r.POST("/rest/v1/chat_conversations", func(c *gin.Context) { c.Status(http.StatusCreated) })

	r.POST("/storage/v1/object/:bucket/:object", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"Key": c.Param("bucket") + "/" + c.Param("object")})
	})

	b.srv = httptest.NewServer(r)
	t.Cleanup(b.srv.Close)
	return b
}

func (b *fakeBackend) handleToken(c *gin.Context) {
	if c.Query("grant_type") != "password" {
		c.JSON(http.StatusBadRequest, gin.H{"error_description": "unsupported grant type"})
		return
	}
	var creds struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&creds); err != nil || creds.Password != testPassword {
		c.JSON(http.StatusBadRequest, gin.H{"error_description": "Invalid login credentials"})
		return
	}

	b.mu.Lock()
	user := b.user
	b.mu.Unlock()
	user.Email = creds.Email

	c.JSON(http.StatusOK, gin.H{
		"access_token":  testAccessToken,
		"refresh_token": "refresh-token-1",
		"expires_in":    3600,
		"user":          user,
	})
}

func (b *fakeBackend) handleUser(c *gin.Context) {
	if c.GetHeader("Authorization") != "Bearer "+testAccessToken {
		c.JSON(http.StatusUnauthorized, gin.H{"msg": "invalid token"})
		return
	}
	b.mu.Lock()
	user := b.user
	b.mu.Unlock()
	c.JSON(http.StatusOK, user)
}

func (b *fakeBackend) handleStoriesGet(c *gin.Context) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.lastQuery = c.Request.URL.Query()

	if c.Query("select") == "user_id" {
		id := strings.TrimPrefix(c.Query("id"), "eq.")
		rows := []gin.H{}
		for _, s := range b.stories {
			if s.ID == id {
				rows = append(rows, gin.H{"user_id": s.UserID})
			}
		}
		c.JSON(http.StatusOK, rows)
		return
	}

	matched := []stories.Story{}
	status := strings.TrimPrefix(c.Query("status"), "eq.")
	category := strings.TrimPrefix(c.Query("category"), "eq.")
	id := strings.TrimPrefix(c.Query("id"), "eq.")
	userID := strings.TrimPrefix(c.Query("user_id"), "eq.")
	for _, s := range b.stories {
		if status != "" && s.Status != status {
			continue
		}
		if category != "" && s.Category != category {
			continue
		}
		if id != "" && s.ID != id {
			continue
		}
		if userID != "" && s.UserID != userID {
			continue
		}
		matched = append(matched, s)
	}
	if limit := c.Query("limit"); limit != "" {
		if n, err := strconv.Atoi(limit); err == nil && n < len(matched) {
			matched = matched[:n]
		}
	}
	c.JSON(http.StatusOK, matched)
}

func (b *fakeBackend) handleStoriesInsert(c *gin.Context) {
	var incoming []stories.Story
	if err := c.ShouldBindJSON(&incoming); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "bad insert payload"})
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	for i := range incoming {
		if incoming[i].ID == "" {
			incoming[i].ID = "story-" + strconv.Itoa(len(b.stories)+1)
		}
		b.stories = append(b.stories, incoming[i])
	}
	if c.GetHeader("Prefer") == "return=representation" {
		c.JSON(http.StatusCreated, incoming)
		return
	}
	c.Status(http.StatusCreated)
}

func (b *fakeBackend) handleStoriesPatch(c *gin.Context) {
	var changes map[string]any
	if err := c.ShouldBindJSON(&changes); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "bad patch payload"})
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.patches++

	id := strings.TrimPrefix(c.Query("id"), "eq.")
	updated := []stories.Story{}
	for i := range b.stories {
		if b.stories[i].ID != id {
			continue
		}
		if title, ok := changes["title"].(string); ok {
			b.stories[i].Title = title
		}
		if at, ok := changes["updated_at"].(string); ok {
			b.stories[i].UpdatedAt = at
		}
		updated = append(updated, b.stories[i])
	}
	c.JSON(http.StatusOK, updated)
}

func (b *fakeBackend) handleStoriesDelete(c *gin.Context) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.deletes++

	id := strings.TrimPrefix(c.Query("id"), "eq.")
	kept := b.stories[:0]
	for _, s := range b.stories {
		if s.ID != id {
			kept = append(kept, s)
		}
	}
	b.stories = kept
	c.Status(http.StatusNoContent)
}

func (b *fakeBackend) requestCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.requests
}

func (b *fakeBackend) seed(list ...stories.Story) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.stories = append(b.stories, list...)
}

func boundLoader(t *testing.T, backendURL string) *config.Loader {
	t.Helper()
	path := filepath.Join(t.TempDir(), "umoja-backend.json")
	body := `{"url":"` + backendURL + `","anon_key":"` + testAnonKey + `"}`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	loader := config.NewLoader(path)
	require.True(t, loader.TryLoad())
	return loader
}

func newTestClient(t *testing.T, b *fakeBackend) *Client {
	t.Helper()
	c := New(boundLoader(t, b.srv.URL), kv.NewMemory())
	require.True(t, c.Initialize())
	return c
}

func signIn(t *testing.T, c *Client) {
	t.Helper()
	res := c.SignIn(context.Background(), "amina@example.com", testPassword)
	require.True(t, res.Success, res.ErrorMessage())
}

func TestOperationsFailClosedBeforeConfig(t *testing.T) {
	b := newFakeBackend(t)
	loader := config.NewLoader(filepath.Join(t.TempDir(), "never-arrives.json"))
	c := New(loader, kv.NewMemory())

	assert.False(t, c.Initialize())
	assert.False(t, c.Ready())

	ctx := context.Background()

	res := c.SignIn(ctx, "amina@example.com", testPassword)
	assert.False(t, res.Success)
	assert.ErrorIs(t, res.Err, ErrNotInitialized)

	assert.ErrorIs(t, c.SignUp(ctx, "a@b.c", "pw", nil).Err, ErrNotInitialized)
	assert.ErrorIs(t, c.SignOut(ctx).Err, ErrNotInitialized)
	assert.ErrorIs(t, c.Stories(ctx, stories.Filter{}).Err, ErrNotInitialized)
	assert.ErrorIs(t, c.InsertStory(ctx, stories.Story{}).Err, ErrNotInitialized)
	assert.ErrorIs(t, c.UploadFile(ctx, "a.jpg", nil, "").Err, ErrNotInitialized)

	_, err := c.CurrentUser(ctx)
	assert.ErrorIs(t, err, ErrNotInitialized)

	_, err = c.OAuthURL("google", "")
	assert.ErrorIs(t, err, ErrNotInitialized)

	_, err = c.SubscribeStories(ctx, time.Millisecond, nil)
	assert.ErrorIs(t, err, ErrNotInitialized)

	// Fail-closed means fail without touching the network.
	assert.Zero(t, b.requestCount())
}

func TestSignInSuccess(t *testing.T) {
	b := newFakeBackend(t)
	c := newTestClient(t, b)

	res := c.SignIn(context.Background(), "amina@example.com", testPassword)
	require.True(t, res.Success)
	require.NotNil(t, res.User)
	assert.Equal(t, "user-1", res.User.ID)
	assert.Equal(t, "amina@example.com", res.User.Email)

	// Token is held; identity lookups are now authenticated.
	user, err := c.CurrentUser(context.Background())
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.Equal(t, "user-1", user.ID)
}

func TestSignInBadCredentials(t *testing.T) {
	b := newFakeBackend(t)
	c := newTestClient(t, b)

	res := c.SignIn(context.Background(), "amina@example.com", "wrong")
	assert.False(t, res.Success)
	assert.Contains(t, res.ErrorMessage(), "Invalid login credentials")
	assert.Nil(t, res.User)
}

func TestCurrentUserAnonymous(t *testing.T) {
	b := newFakeBackend(t)
	c := newTestClient(t, b)

	before := b.requestCount()
	user, err := c.CurrentUser(context.Background())
	require.NoError(t, err)
	assert.Nil(t, user)
	// No token, no remote lookup.
	assert.Equal(t, before, b.requestCount())
}

func TestSignOutClearsToken(t *testing.T) {
	b := newFakeBackend(t)
	c := newTestClient(t, b)
	signIn(t, c)

	res := c.SignOut(context.Background())
	assert.True(t, res.Success)

	user, err := c.CurrentUser(context.Background())
	require.NoError(t, err)
	assert.Nil(t, user)
}

func TestStoriesQuery(t *testing.T) {
	b := newFakeBackend(t)
	b.seed(
		stories.Story{ID: "s1", Title: "First", Status: "approved", Category: "mental-health"},
		stories.Story{ID: "s2", Title: "Second", Status: "approved", Category: "community"},
		stories.Story{ID: "s3", Title: "Hidden", Status: "pending_review", Category: "community"},
	)
	c := newTestClient(t, b)

	res := c.Stories(context.Background(), stories.Filter{})
	require.True(t, res.Success)
	assert.Len(t, res.Stories, 2)

	res = c.Stories(context.Background(), stories.Filter{Category: "community", Limit: 5})
	require.True(t, res.Success)
	require.Len(t, res.Stories, 1)
	assert.Equal(t, "s2", res.Stories[0].ID)

	// The query asks the backend for approved, newest first.
	b.mu.Lock()
	q := b.lastQuery
	b.mu.Unlock()
	assert.Equal(t, "eq.approved", q.Get("status"))
	assert.Equal(t, "created_at.desc", q.Get("order"))
	assert.Equal(t, "eq.community", q.Get("category"))
	assert.Equal(t, "5", q.Get("limit"))
}

func TestInsertStoryReturnsRecord(t *testing.T) {
	b := newFakeBackend(t)
	c := newTestClient(t, b)

	res := c.InsertStory(context.Background(), stories.Story{
		Title:   "A New Voice",
		Content: "My story.",
		Status:  "pending_review",
	})
	require.True(t, res.Success, res.ErrorMessage())
	require.NotNil(t, res.Story)
	assert.NotEmpty(t, res.Story.ID)
	assert.Equal(t, "A New Voice", res.Story.Title)
}

func TestUpdateStoryRequiresOwnership(t *testing.T) {
	b := newFakeBackend(t)
	b.seed(stories.Story{ID: "s1", Title: "Someone else's", Status: "approved", UserID: "other-user"})
	c := newTestClient(t, b)
	signIn(t, c)

	res := c.UpdateStory(context.Background(), "s1", map[string]any{"title": "Hijacked"})
	assert.False(t, res.Success)
	assert.ErrorIs(t, res.Err, ErrUnauthorized)

	// The record was never touched.
	b.mu.Lock()
	patches, title := b.patches, b.stories[0].Title
	b.mu.Unlock()
	assert.Zero(t, patches)
	assert.Equal(t, "Someone else's", title)
}

func TestUpdateStoryOwned(t *testing.T) {
	b := newFakeBackend(t)
	b.seed(stories.Story{ID: "s1", Title: "Mine", Status: "approved", UserID: "user-1"})
	c := newTestClient(t, b)
	signIn(t, c)

	changes := map[string]any{"title": "Mine, revised"}
	res := c.UpdateStory(context.Background(), "s1", changes)
	require.True(t, res.Success, res.ErrorMessage())
	require.NotNil(t, res.Story)
	assert.Equal(t, "Mine, revised", res.Story.Title)
	assert.NotEmpty(t, res.Story.UpdatedAt)

	// The caller's map is not augmented with the timestamp.
	assert.NotContains(t, changes, "updated_at")
	assert.Len(t, changes, 1)
}

func TestDeleteStoryRequiresAuthentication(t *testing.T) {
	b := newFakeBackend(t)
	b.seed(stories.Story{ID: "s1", Status: "approved", UserID: "user-1"})
	c := newTestClient(t, b)

	res := c.DeleteStory(context.Background(), "s1")
	assert.False(t, res.Success)
	assert.ErrorIs(t, res.Err, ErrNotAuthenticated)

	b.mu.Lock()
	deletes := b.deletes
	b.mu.Unlock()
	assert.Zero(t, deletes)
}

func TestDeleteStoryOwned(t *testing.T) {
	b := newFakeBackend(t)
	b.seed(stories.Story{ID: "s1", Status: "approved", UserID: "user-1"})
	c := newTestClient(t, b)
	signIn(t, c)

	res := c.DeleteStory(context.Background(), "s1")
	require.True(t, res.Success, res.ErrorMessage())

	list := c.Stories(context.Background(), stories.Filter{})
	require.True(t, list.Success)
	assert.Empty(t, list.Stories)
}

func TestDraftLocalForAnonymous(t *testing.T) {
	b := newFakeBackend(t)
	c := newTestClient(t, b)

	saved := c.SaveDraft(context.Background(), stories.Story{Title: "Draft", Content: "wip"})
	require.True(t, saved.Success, saved.ErrorMessage())
	assert.Equal(t, "local", saved.Location)

	loaded := c.Draft(context.Background())
	require.True(t, loaded.Success, loaded.ErrorMessage())
	assert.Equal(t, "local", loaded.Location)
	assert.Equal(t, "Draft", loaded.Draft.Title)
}

func TestDraftRemoteForAuthenticated(t *testing.T) {
	b := newFakeBackend(t)
	c := newTestClient(t, b)
	signIn(t, c)

	saved := c.SaveDraft(context.Background(), stories.Story{Title: "Draft", Content: "wip"})
	require.True(t, saved.Success, saved.ErrorMessage())
	assert.Equal(t, "database", saved.Location)
	assert.Equal(t, "user-1", saved.Draft.UserID)
	assert.Equal(t, "draft", saved.Draft.Status)

	// Saving again updates the same row instead of inserting a second.
	again := c.SaveDraft(context.Background(), stories.Story{Title: "Draft v2", Content: "wip"})
	require.True(t, again.Success, again.ErrorMessage())

	b.mu.Lock()
	count := 0
	for _, s := range b.stories {
		if s.Status == "draft" {
			count++
		}
	}
	b.mu.Unlock()
	assert.Equal(t, 1, count)
}

func TestUploadFile(t *testing.T) {
	b := newFakeBackend(t)
	c := newTestClient(t, b)

	res := c.UploadFile(context.Background(), "cover photo.jpg", []byte("bytes"), "")
	require.True(t, res.Success, res.ErrorMessage())
	assert.True(t, strings.HasSuffix(res.FileName, ".jpg"))
	assert.Equal(t, b.srv.URL+"/storage/v1/object/public/story-images/"+res.FileName, res.PublicURL)
}

func TestOAuthURL(t *testing.T) {
	b := newFakeBackend(t)
	c := newTestClient(t, b)

	got, err := c.OAuthURL("google", "https://app.example.com/auth")
	require.NoError(t, err)
	assert.Contains(t, got, b.srv.URL+"/auth/v1/authorize?")
	assert.Contains(t, got, "provider=google")
	assert.Contains(t, got, "redirect_to=")
}

func TestSaveConversationRequiresAuthentication(t *testing.T) {
	b := newFakeBackend(t)
	c := newTestClient(t, b)

	res := c.SaveConversation(context.Background(), []map[string]string{{"role": "user", "content": "hi"}})
	assert.False(t, res.Success)
	assert.ErrorIs(t, res.Err, ErrNotAuthenticated)
}

func TestSubscribeStoriesSeesInsert(t *testing.T) {
	b := newFakeBackend(t)
	c := newTestClient(t, b)

	var mu sync.Mutex
	var changes []Change
	sub, err := c.SubscribeStories(context.Background(), 20*time.Millisecond, func(ch Change) {
		mu.Lock()
		changes = append(changes, ch)
		mu.Unlock()
	})
	require.NoError(t, err)
	defer sub.Unsubscribe()

	// Let the subscription take its baseline snapshot, then publish.
	time.Sleep(50 * time.Millisecond)
	b.seed(stories.Story{ID: "s-new", Title: "Fresh", Status: "approved"})

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(changes) > 0
	}, 2*time.Second, 10*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, "INSERT", changes[0].Type)
	assert.Equal(t, "s-new", changes[0].Story.ID)
}
