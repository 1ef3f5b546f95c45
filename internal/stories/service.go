package stories

import (
	"context"
	"errors"
	"time"

	"github.com/MuganziJames/Umoja-AI/internal/auth"
	"github.com/MuganziJames/Umoja-AI/internal/logger"
)

// ErrModerationFlagged: the submission was rejected by content
// moderation. The ModerationResult accompanies it in SubmitResult.
var ErrModerationFlagged = errors.New("stories: content flagged by moderation system, please review and modify your story")

// ModerationResult is the content-moderation verdict on a submission.
type ModerationResult struct {
	Flagged    bool     `json:"flagged"`
	Categories []string `json:"categories"`
	Reason     string   `json:"reason"`
}

// Gateway is the slice of the remote data gateway the submit pipeline
// needs.
type Gateway interface {
	CurrentUser(ctx context.Context) (*auth.User, error)
	InsertStory(ctx context.Context, story Story) (*Story, error)
}

// Analyzer is the slice of the AI client the pipeline needs. Every
// method degrades internally; only Moderate can veto a submission.
type Analyzer interface {
	Moderate(ctx context.Context, text string) (ModerationResult, error)
	Categorize(ctx context.Context, title, content string) string
	Sentiment(ctx context.Context, text string) string
	Summarize(ctx context.Context, content string) string
}

type SubmitInput struct {
	Title       string
	Content     string
	Category    string
	AuthorName  string
	IsAnonymous bool
	ImageURL    string
}

type SubmitResult struct {
	Success    bool
	Story      *Story
	Err        error
	Moderation *ModerationResult
}

type Service struct {
	db      Gateway
	ai      Analyzer
	pending string
	now     func() time.Time
}

func NewService(db Gateway, analyzer Analyzer, pendingStatus string) *Service {
	return &Service{
		db:      db,
		ai:      analyzer,
		pending: pendingStatus,
		now:     time.Now,
	}
}

// Submit runs the full submission pipeline: sanitize, moderate,
// auto-categorize, summarize, analyze sentiment, insert as pending.
// Each AI step other than a definite moderation flag degrades
// gracefully rather than blocking the submission.
func (s *Service) Submit(ctx context.Context, in SubmitInput) SubmitResult {
	user, err := s.db.CurrentUser(ctx)
	if err != nil {
		return SubmitResult{Err: err}
	}
	if user == nil {
		return SubmitResult{Err: errors.New("stories: user must be authenticated to submit stories")}
	}

	title := SanitizeText(in.Title, maxTitleLen)
	content := SanitizeText(in.Content, maxContentLen)
	category := in.Category
	if category == "" {
		category = CategoryGeneral
	}

	moderation, err := s.ai.Moderate(ctx, content)
	if err != nil {
		logger.Warn("content moderation failed, proceeding without it", map[string]any{
			"error": err.Error(),
		})
	} else if moderation.Flagged {
		return SubmitResult{Err: ErrModerationFlagged, Moderation: &moderation}
	}

	if category == CategoryGeneral {
		category = s.ai.Categorize(ctx, title, content)
	}

	summary := s.ai.Summarize(ctx, content)
	sentiment := s.ai.Sentiment(ctx, content)

	record := Story{
		Title:       title,
		Content:     content,
		AuthorName:  in.AuthorName,
		AuthorEmail: user.Email,
		Category:    category,
		Status:      s.pending,
		Summary:     summary,
		Sentiment:   sentiment,
		ImageURL:    in.ImageURL,
		UserID:      user.ID,
		IsAnonymous: in.IsAnonymous,
		CreatedAt:   Timestamp(s.now()),
		UpdatedAt:   Timestamp(s.now()),
	}

	inserted, err := s.db.InsertStory(ctx, record)
	if err != nil {
		return SubmitResult{Err: err}
	}
	return SubmitResult{Success: true, Story: inserted}
}
