package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/google/uuid"

	"github.com/MuganziJames/Umoja-AI/internal/logger"
	"github.com/MuganziJames/Umoja-AI/internal/stories"
)

const localDraftKey = "story_draft"

// InsertStory creates a story record. Callers are expected to have run
// the submit pipeline first; this is the raw insert.
func (c *Client) InsertStory(ctx context.Context, story stories.Story) StoryResult {
	backend, err := c.ensureReady()
	if err != nil {
		return StoryResult{Result: failure(err)}
	}

	var inserted []stories.Story
	endpoint := c.tableURL(backend.Tables.Stories, nil)
	if err := c.doInsert(ctx, endpoint, []stories.Story{story}, &inserted); err != nil {
		logger.Error("story insert failed", map[string]any{"error": err.Error()})
		return StoryResult{Result: failure(err)}
	}
	if len(inserted) == 0 {
		return StoryResult{Result: failure(fmt.Errorf("gateway: insert returned no record"))}
	}
	return StoryResult{Result: succeeded(), Story: &inserted[0]}
}

// Stories returns published stories, newest first, optionally narrowed
// by category and capped.
func (c *Client) Stories(ctx context.Context, filter stories.Filter) StoriesResult {
	backend, err := c.ensureReady()
	if err != nil {
		return StoriesResult{Result: failure(err)}
	}

	q := url.Values{}
	q.Set("select", "*")
	q.Set("status", "eq."+backend.Status.Approved)
	q.Set("order", "created_at.desc")
	if filter.Category != "" {
		q.Set("category", "eq."+filter.Category)
	}
	if filter.Limit > 0 {
		q.Set("limit", strconv.Itoa(filter.Limit))
	}

	var list []stories.Story
	if err := c.doJSON(ctx, http.MethodGet, c.tableURL(backend.Tables.Stories, q), nil, &list); err != nil {
		logger.Error("stories query failed", map[string]any{"error": err.Error()})
		return StoriesResult{Result: failure(err)}
	}
	return StoriesResult{Result: succeeded(), Stories: list}
}

// StoryByID fetches one published story and records the view.
func (c *Client) StoryByID(ctx context.Context, id string) StoryResult {
	backend, err := c.ensureReady()
	if err != nil {
		return StoryResult{Result: failure(err)}
	}

	q := url.Values{}
	q.Set("select", "*")
	q.Set("id", "eq."+id)
	q.Set("limit", "1")

	var list []stories.Story
	if err := c.doJSON(ctx, http.MethodGet, c.tableURL(backend.Tables.Stories, q), nil, &list); err != nil {
		return StoryResult{Result: failure(err)}
	}
	if len(list) == 0 {
		return StoryResult{Result: failure(fmt.Errorf("gateway: story %s not found", id))}
	}

	c.TrackStoryView(ctx, id)
	return StoryResult{Result: succeeded(), Story: &list[0]}
}

// SearchStories matches the term against title, content and author of
// published stories.
func (c *Client) SearchStories(ctx context.Context, term string) StoriesResult {
	backend, err := c.ensureReady()
	if err != nil {
		return StoriesResult{Result: failure(err)}
	}

	pattern := "*" + term + "*"
	q := url.Values{}
	q.Set("select", "*")
	q.Set("status", "eq."+backend.Status.Approved)
	q.Set("order", "created_at.desc")
	q.Set("or", fmt.Sprintf("(title.ilike.%s,content.ilike.%s,author_name.ilike.%s)", pattern, pattern, pattern))

	var list []stories.Story
	if err := c.doJSON(ctx, http.MethodGet, c.tableURL(backend.Tables.Stories, q), nil, &list); err != nil {
		return StoriesResult{Result: failure(err)}
	}
	return StoriesResult{Result: succeeded(), Stories: list}
}

// UserStories returns every story belonging to the given user, any
// status, newest first.
func (c *Client) UserStories(ctx context.Context, userID string) StoriesResult {
	backend, err := c.ensureReady()
	if err != nil {
		return StoriesResult{Result: failure(err)}
	}

	q := url.Values{}
	q.Set("select", "*")
	q.Set("user_id", "eq."+userID)
	q.Set("order", "created_at.desc")

	var list []stories.Story
	if err := c.doJSON(ctx, http.MethodGet, c.tableURL(backend.Tables.Stories, q), nil, &list); err != nil {
		return StoriesResult{Result: failure(err)}
	}
	return StoriesResult{Result: succeeded(), Stories: list}
}

// UpdateStory applies changes to a story the current identity owns.
// Ownership is always re-validated before the mutation; there is no
// bypass.
func (c *Client) UpdateStory(ctx context.Context, id string, changes map[string]any) StoryResult {
	backend, err := c.ensureReady()
	if err != nil {
		return StoryResult{Result: failure(err)}
	}

	if err := c.verifyOwnership(ctx, id); err != nil {
		return StoryResult{Result: failure(err)}
	}

	// Augment a copy; the caller's map stays untouched.
	patch := make(map[string]any, len(changes)+1)
	for k, v := range changes {
		patch[k] = v
	}
	patch["updated_at"] = stories.Timestamp(c.now())

	q := url.Values{}
	q.Set("id", "eq."+id)

	var updated []stories.Story
	endpoint := c.tableURL(backend.Tables.Stories, q)
	if err := c.doMutation(ctx, http.MethodPatch, endpoint, patch, &updated); err != nil {
		logger.Error("story update failed", map[string]any{"id": id, "error": err.Error()})
		return StoryResult{Result: failure(err)}
	}
	if len(updated) == 0 {
		return StoryResult{Result: failure(fmt.Errorf("gateway: story %s not found", id))}
	}
	return StoryResult{Result: succeeded(), Story: &updated[0]}
}

// DeleteStory removes a story the current identity owns.
func (c *Client) DeleteStory(ctx context.Context, id string) Result {
	backend, err := c.ensureReady()
	if err != nil {
		return failure(err)
	}

	if err := c.verifyOwnership(ctx, id); err != nil {
		return failure(err)
	}

	q := url.Values{}
	q.Set("id", "eq."+id)
	if err := c.doJSON(ctx, http.MethodDelete, c.tableURL(backend.Tables.Stories, q), nil, nil); err != nil {
		logger.Error("story delete failed", map[string]any{"id": id, "error": err.Error()})
		return failure(err)
	}
	return succeeded()
}

// verifyOwnership fetches the record's owning identity and compares it
// to the caller's. Mismatch leaves the record untouched.
func (c *Client) verifyOwnership(ctx context.Context, storyID string) error {
	user, err := c.CurrentUser(ctx)
	if err != nil {
		return err
	}
	if user == nil {
		return ErrNotAuthenticated
	}

	backend, err := c.ensureReady()
	if err != nil {
		return err
	}

	q := url.Values{}
	q.Set("select", "user_id")
	q.Set("id", "eq."+storyID)
	q.Set("limit", "1")

	var rows []struct {
		UserID string `json:"user_id"`
	}
	if err := c.doJSON(ctx, http.MethodGet, c.tableURL(backend.Tables.Stories, q), nil, &rows); err != nil {
		return err
	}
	if len(rows) == 0 {
		return fmt.Errorf("gateway: story %s not found", storyID)
	}
	if rows[0].UserID != user.ID {
		return ErrUnauthorized
	}
	return nil
}

// SaveDraft persists a draft: a remote row for authenticated users, a
// local cache entry otherwise.
func (c *Client) SaveDraft(ctx context.Context, draft stories.Story) DraftResult {
	backend, err := c.ensureReady()
	if err != nil {
		return DraftResult{Result: failure(err)}
	}

	user, err := c.CurrentUser(ctx)
	if err != nil {
		return DraftResult{Result: failure(err)}
	}

	if user == nil {
		data, err := json.Marshal(draft)
		if err != nil {
			return DraftResult{Result: failure(err)}
		}
		if err := c.local.Set(localDraftKey, string(data)); err != nil {
			return DraftResult{Result: failure(err)}
		}
		return DraftResult{Result: succeeded(), Draft: &draft, Location: "local"}
	}

	draft.UserID = user.ID
	draft.Status = backend.Status.Draft
	draft.UpdatedAt = stories.Timestamp(c.now())

	existing, err := c.findDraftID(ctx, user.ID)
	if err != nil {
		return DraftResult{Result: failure(err)}
	}

	var saved []stories.Story
	if existing != "" {
		q := url.Values{}
		q.Set("id", "eq."+existing)
		err = c.doMutation(ctx, http.MethodPatch, c.tableURL(backend.Tables.Stories, q), draft, &saved)
	} else {
		err = c.doInsert(ctx, c.tableURL(backend.Tables.Stories, nil), []stories.Story{draft}, &saved)
	}
	if err != nil {
		logger.Error("draft save failed", map[string]any{"error": err.Error()})
		return DraftResult{Result: failure(err)}
	}
	if len(saved) == 0 {
		return DraftResult{Result: failure(fmt.Errorf("gateway: draft save returned no record"))}
	}
	return DraftResult{Result: succeeded(), Draft: &saved[0], Location: "database"}
}

// Draft loads the pending draft from wherever SaveDraft put it.
func (c *Client) Draft(ctx context.Context) DraftResult {
	backend, err := c.ensureReady()
	if err != nil {
		return DraftResult{Result: failure(err)}
	}

	user, err := c.CurrentUser(ctx)
	if err != nil {
		return DraftResult{Result: failure(err)}
	}

	if user == nil {
		raw, err := c.local.Get(localDraftKey)
		if err != nil || raw == "" {
			return DraftResult{Result: failure(fmt.Errorf("gateway: no draft"))}
		}
		var draft stories.Story
		if err := json.Unmarshal([]byte(raw), &draft); err != nil {
			_ = c.local.Delete(localDraftKey)
			return DraftResult{Result: failure(fmt.Errorf("gateway: no draft"))}
		}
		return DraftResult{Result: succeeded(), Draft: &draft, Location: "local"}
	}

	q := url.Values{}
	q.Set("select", "*")
	q.Set("user_id", "eq."+user.ID)
	q.Set("status", "eq."+backend.Status.Draft)
	q.Set("limit", "1")

	var list []stories.Story
	if err := c.doJSON(ctx, http.MethodGet, c.tableURL(backend.Tables.Stories, q), nil, &list); err != nil {
		return DraftResult{Result: failure(err)}
	}
	if len(list) == 0 {
		return DraftResult{Result: failure(fmt.Errorf("gateway: no draft"))}
	}
	return DraftResult{Result: succeeded(), Draft: &list[0], Location: "database"}
}

// TrackStoryView records a view event. Best-effort: failures are logged,
// never surfaced.
func (c *Client) TrackStoryView(ctx context.Context, storyID string) {
	backend, err := c.ensureReady()
	if err != nil {
		return
	}

	event := map[string]any{
		"id":         uuid.NewString(),
		"story_id":   storyID,
		"event_type": "view",
		"timestamp":  stories.Timestamp(c.now()),
	}
	endpoint := c.tableURL(backend.Tables.StoryAnalytics, nil)
	if err := c.doJSON(ctx, http.MethodPost, endpoint, []map[string]any{event}, nil); err != nil {
		logger.Warn("analytics tracking failed", map[string]any{
			"story_id": storyID,
			"error":    err.Error(),
		})
	}
}

// SaveConversation persists a support-chat transcript for the current
// user.
func (c *Client) SaveConversation(ctx context.Context, transcript any) Result {
	backend, err := c.ensureReady()
	if err != nil {
		return failure(err)
	}

	user, err := c.CurrentUser(ctx)
	if err != nil {
		return failure(err)
	}
	if user == nil {
		return failure(ErrNotAuthenticated)
	}

	record := map[string]any{
		"id":         uuid.NewString(),
		"user_id":    user.ID,
		"messages":   transcript,
		"created_at": stories.Timestamp(c.now()),
	}
	endpoint := c.tableURL(backend.Tables.ChatConversations, nil)
	if err := c.doJSON(ctx, http.MethodPost, endpoint, []map[string]any{record}, nil); err != nil {
		return failure(err)
	}
	return succeeded()
}

func (c *Client) findDraftID(ctx context.Context, userID string) (string, error) {
	backend, err := c.ensureReady()
	if err != nil {
		return "", err
	}

	q := url.Values{}
	q.Set("select", "id")
	q.Set("user_id", "eq."+userID)
	q.Set("status", "eq."+backend.Status.Draft)
	q.Set("limit", "1")

	var rows []struct {
		ID string `json:"id"`
	}
	if err := c.doJSON(ctx, http.MethodGet, c.tableURL(backend.Tables.Stories, q), nil, &rows); err != nil {
		return "", err
	}
	if len(rows) == 0 {
		return "", nil
	}
	return rows[0].ID, nil
}

func (c *Client) tableURL(table string, q url.Values) string {
	c.mu.RLock()
	base := c.backend.URL
	c.mu.RUnlock()

	endpoint := base + "/rest/v1/" + table
	if len(q) > 0 {
		endpoint += "?" + q.Encode()
	}
	return endpoint
}

func (c *Client) doInsert(ctx context.Context, endpoint string, body, out any) error {
	return c.doRepresented(ctx, http.MethodPost, endpoint, body, out)
}

func (c *Client) doMutation(ctx context.Context, method, endpoint string, body, out any) error {
	return c.doRepresented(ctx, method, endpoint, body, out)
}
