// Package authflow orchestrates sign-in and sign-up: local validation,
// the remote call, the session write, and the sign-in broadcast.
package authflow

import (
	"context"
	"strings"
	"time"

	"github.com/MuganziJames/Umoja-AI/internal/bus"
	"github.com/MuganziJames/Umoja-AI/internal/gateway"
	"github.com/MuganziJames/Umoja-AI/internal/kv"
	"github.com/MuganziJames/Umoja-AI/internal/logger"
	"github.com/MuganziJames/Umoja-AI/internal/session"
)

// ReturnPathKey is the ephemeral cache entry recording where to send
// the user after a forced sign-in. The guard writes it; the flow
// consumes it.
const ReturnPathKey = "umoja_redirect_after_login"

// Authenticator is the slice of the remote data gateway the flow calls.
type Authenticator interface {
	SignIn(ctx context.Context, email, password string) gateway.AuthResult
	SignUp(ctx context.Context, email, password string, meta map[string]any) gateway.AuthResult
	ResetPassword(ctx context.Context, email string) gateway.Result
}

type Flow struct {
	db       Authenticator
	sessions *session.Manager
	events   *bus.Bus
	store    kv.Store

	homePath     string
	successDelay time.Duration
}

func New(db Authenticator, sessions *session.Manager, events *bus.Bus, store kv.Store, homePath string, successDelay time.Duration) *Flow {
	return &Flow{
		db:           db,
		sessions:     sessions,
		events:       events,
		store:        store,
		homePath:     homePath,
		successDelay: successDelay,
	}
}

// Outcome is the terminal state of one sign-in or sign-up attempt.
// Remote failures are terminal; the user must resubmit.
type Outcome struct {
	Success bool
	Message string
	// Fields carries field-scoped validation failures. Non-empty means
	// no remote call was made.
	Fields ValidationErrors
	// RedirectTo is where to navigate after a successful sign-in.
	RedirectTo string
}

// SignIn validates locally, authenticates remotely, writes the session
// and broadcasts the sign-in. The redirect target honors a pending
// return path before defaulting to home.
func (f *Flow) SignIn(ctx context.Context, email, password string, rememberMe bool) Outcome {
	email = strings.TrimSpace(email)

	if errs := validateSignIn(email, password); len(errs) > 0 {
		return Outcome{Fields: errs}
	}

	result := f.db.SignIn(ctx, email, password)
	if !result.Success {
		msg := result.ErrorMessage()
		if msg == "" {
			msg = "Sign in failed"
		}
		return Outcome{Message: msg}
	}

	f.sessions.SetSession(result.User, rememberMe)
	f.events.Publish(bus.Event{Topic: bus.TopicUserSignedIn, User: result.User})

	redirect := f.consumeReturnPath()
	if redirect == "" {
		redirect = f.homePath
	}

	// Brief pause so the success indication can be perceived before
	// navigation.
	if f.successDelay > 0 {
		select {
		case <-ctx.Done():
		case <-time.After(f.successDelay):
		}
	}

	return Outcome{
		Success:    true,
		Message:    "Welcome back! Redirecting...",
		RedirectTo: redirect,
	}
}

// SignUp validates locally and registers remotely. No session is
// established; the account needs email verification first.
func (f *Flow) SignUp(ctx context.Context, fullName, email, password, confirmPassword string) Outcome {
	fullName = strings.TrimSpace(fullName)
	email = strings.TrimSpace(email)

	if errs := validateSignUp(fullName, email, password, confirmPassword); len(errs) > 0 {
		return Outcome{Fields: errs}
	}

	result := f.db.SignUp(ctx, email, password, map[string]any{
		"full_name": fullName,
	})
	if !result.Success {
		msg := result.ErrorMessage()
		if msg == "" {
			msg = "Account creation failed"
		}
		return Outcome{Message: msg}
	}

	return Outcome{
		Success: true,
		Message: "Account created successfully! Please check your email to verify your account.",
	}
}

// RequestPasswordReset asks the backend for a reset email.
func (f *Flow) RequestPasswordReset(ctx context.Context, email string) Outcome {
	email = strings.TrimSpace(email)
	if email == "" || !emailPattern.MatchString(email) {
		return Outcome{Fields: ValidationErrors{{Field: "email", Message: "Please enter a valid email address"}}}
	}

	result := f.db.ResetPassword(ctx, email)
	if !result.Success {
		return Outcome{Message: "Failed to send password reset email"}
	}
	return Outcome{Success: true, Message: "Password reset email sent"}
}

func (f *Flow) consumeReturnPath() string {
	path, err := f.store.Get(ReturnPathKey)
	if err != nil {
		logger.Warn("return path read failed", map[string]any{"error": err.Error()})
		return ""
	}
	if path != "" {
		_ = f.store.Delete(ReturnPathKey)
	}
	return path
}
