package stories

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MuganziJames/Umoja-AI/internal/auth"
)

type fakeGateway struct {
	user      *auth.User
	userErr   error
	inserted  []Story
	insertErr error
}

func (f *fakeGateway) CurrentUser(ctx context.Context) (*auth.User, error) {
	return f.user, f.userErr
}

func (f *fakeGateway) InsertStory(ctx context.Context, story Story) (*Story, error) {
	if f.insertErr != nil {
		return nil, f.insertErr
	}
	story.ID = "story-1"
	f.inserted = append(f.inserted, story)
	return &story, nil
}

type fakeAnalyzer struct {
	moderation  ModerationResult
	moderateErr error
	category    string
	sentiment   string
	summary     string

	categorizeCalls int
}

func (f *fakeAnalyzer) Moderate(ctx context.Context, text string) (ModerationResult, error) {
	return f.moderation, f.moderateErr
}

func (f *fakeAnalyzer) Categorize(ctx context.Context, title, content string) string {
	f.categorizeCalls++
	return f.category
}

func (f *fakeAnalyzer) Sentiment(ctx context.Context, text string) string { return f.sentiment }
func (f *fakeAnalyzer) Summarize(ctx context.Context, content string) string {
	return f.summary
}

func signedInGateway() *fakeGateway {
	return &fakeGateway{user: &auth.User{ID: "user-1", Email: "amina@example.com"}}
}

func happyAnalyzer() *fakeAnalyzer {
	return &fakeAnalyzer{
		category:  CategoryMentalHealth,
		sentiment: "positive",
		summary:   "A short summary.",
	}
}

func TestSubmitRequiresAuthentication(t *testing.T) {
	db := &fakeGateway{}
	svc := NewService(db, happyAnalyzer(), "pending_review")

	res := svc.Submit(context.Background(), SubmitInput{Title: "T", Content: "C"})
	assert.False(t, res.Success)
	require.Error(t, res.Err)
	assert.Contains(t, res.Err.Error(), "authenticated")
	assert.Empty(t, db.inserted)
}

func TestSubmitFullPipeline(t *testing.T) {
	db := signedInGateway()
	analyzer := happyAnalyzer()
	svc := NewService(db, analyzer, "pending_review")

	res := svc.Submit(context.Background(), SubmitInput{
		Title:      "  My Story <b>bold</b>  ",
		Content:    "What happened to me.",
		AuthorName: "Amina",
		ImageURL:   "https://cdn.example.com/cover.jpg",
	})
	require.True(t, res.Success, "submit failed: %v", res.Err)
	require.NotNil(t, res.Story)

	assert.Equal(t, "My Story bold", res.Story.Title)
	assert.Equal(t, "pending_review", res.Story.Status)
	assert.Equal(t, CategoryMentalHealth, res.Story.Category)
	assert.Equal(t, "A short summary.", res.Story.Summary)
	assert.Equal(t, "positive", res.Story.Sentiment)
	assert.Equal(t, "user-1", res.Story.UserID)
	assert.Equal(t, "amina@example.com", res.Story.AuthorEmail)
	assert.NotEmpty(t, res.Story.CreatedAt)
}

func TestSubmitModerationVeto(t *testing.T) {
	db := signedInGateway()
	analyzer := happyAnalyzer()
	analyzer.moderation = ModerationResult{
		Flagged: true,
		Reason:  "harmful language",
	}
	svc := NewService(db, analyzer, "pending_review")

	res := svc.Submit(context.Background(), SubmitInput{Title: "T", Content: "C"})
	assert.False(t, res.Success)
	assert.ErrorIs(t, res.Err, ErrModerationFlagged)
	require.NotNil(t, res.Moderation)
	assert.Equal(t, "harmful language", res.Moderation.Reason)
	assert.Empty(t, db.inserted)
}

func TestSubmitModerationErrorDegrades(t *testing.T) {
	db := signedInGateway()
	analyzer := happyAnalyzer()
	analyzer.moderateErr = errors.New("model unavailable")
	svc := NewService(db, analyzer, "pending_review")

	res := svc.Submit(context.Background(), SubmitInput{Title: "T", Content: "C"})
	assert.True(t, res.Success, "moderation outage must not block submission")
	assert.Len(t, db.inserted, 1)
}

func TestSubmitCategorizesOnlyWhenGeneral(t *testing.T) {
	t.Run("explicit category kept", func(t *testing.T) {
		analyzer := happyAnalyzer()
		svc := NewService(signedInGateway(), analyzer, "pending_review")

		res := svc.Submit(context.Background(), SubmitInput{
			Title: "T", Content: "C", Category: CategorySocialJustice,
		})
		require.True(t, res.Success)
		assert.Equal(t, CategorySocialJustice, res.Story.Category)
		assert.Zero(t, analyzer.categorizeCalls)
	})

	t.Run("empty category auto-assigned", func(t *testing.T) {
		analyzer := happyAnalyzer()
		svc := NewService(signedInGateway(), analyzer, "pending_review")

		res := svc.Submit(context.Background(), SubmitInput{Title: "T", Content: "C"})
		require.True(t, res.Success)
		assert.Equal(t, CategoryMentalHealth, res.Story.Category)
		assert.Equal(t, 1, analyzer.categorizeCalls)
	})
}

func TestSubmitInsertFailure(t *testing.T) {
	db := signedInGateway()
	db.insertErr = errors.New("connection reset")
	svc := NewService(db, happyAnalyzer(), "pending_review")

	res := svc.Submit(context.Background(), SubmitInput{Title: "T", Content: "C"})
	assert.False(t, res.Success)
	assert.EqualError(t, res.Err, "connection reset")
}

func TestSanitizeText(t *testing.T) {
	tests := []struct {
		name   string
		in     string
		maxLen int
		want   string
	}{
		{"strips tags", "<script>alert(1)</script>hello", 0, "alert(1)hello"},
		{"strips control chars", "he\x00llo\x1f", 0, "hello"},
		{"trims whitespace", "  padded  ", 0, "padded"},
		{"caps length", "abcdefgh", 5, "abcde"},
		{"keeps short text", "short", 100, "short"},
		{"cap lands mid-rune", "héllo", 2, "h"},
		{"cap on rune boundary", "héllo", 3, "hé"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SanitizeText(tt.in, tt.maxLen))
		})
	}
}
