package gateway

import (
	"errors"

	"github.com/MuganziJames/Umoja-AI/internal/auth"
	"github.com/MuganziJames/Umoja-AI/internal/stories"
)

var (
	// ErrNotInitialized: the backend configuration has not loaded yet.
	// Recoverable only by the caller's own readiness wait.
	ErrNotInitialized = errors.New("gateway: not initialized, backend configuration has not loaded")

	// ErrNotAuthenticated: the operation requires a signed-in identity.
	ErrNotAuthenticated = errors.New("gateway: user must be authenticated")

	// ErrUnauthorized: the identity does not own the record it tried to
	// mutate. The record is left untouched.
	ErrUnauthorized = errors.New("gateway: you can only modify your own stories")
)

// Result is the uniform outcome shape every gateway operation resolves
// to. Remote failures become values here; callers inspect Success
// rather than catching.
type Result struct {
	Success bool
	Err     error
}

// ErrorMessage returns the failure text, or "" on success.
func (r Result) ErrorMessage() string {
	if r.Err != nil {
		return r.Err.Error()
	}
	return ""
}

func failure(err error) Result {
	return Result{Err: err}
}

func succeeded() Result {
	return Result{Success: true}
}

type AuthResult struct {
	Result
	User *auth.User
}

type StoryResult struct {
	Result
	Story *stories.Story
}

type StoriesResult struct {
	Result
	Stories []stories.Story
}

type DraftResult struct {
	Result
	Draft *stories.Story
	// Location is "local" or "database", depending on where the draft
	// ended up.
	Location string
}

type UploadResult struct {
	Result
	FileName  string
	PublicURL string
}
