// Package chat is the AI support conversation: history, crisis
// flagging, and transcript persistence.
package chat

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/MuganziJames/Umoja-AI/internal/ai"
	"github.com/MuganziJames/Umoja-AI/internal/gateway"
	"github.com/MuganziJames/Umoja-AI/internal/logger"
)

const maxMessageLen = 500

var (
	ErrEmptyMessage   = errors.New("chat: message is empty")
	ErrMessageTooLong = errors.New("chat: message exceeds 500 characters")
)

type Message struct {
	Role    string    `json:"role"` // "user" or "assistant"
	Content string    `json:"content"`
	At      time.Time `json:"at"`
}

type Reply struct {
	Message  string
	IsCrisis bool
}

// Transcripts is the slice of the data gateway that stores finished
// conversations.
type Transcripts interface {
	SaveConversation(ctx context.Context, transcript any) gateway.Result
}

type Session struct {
	ai      *ai.Client
	db      Transcripts
	history []Message
}

func NewSession(aiClient *ai.Client, db Transcripts) *Session {
	return &Session{ai: aiClient, db: db}
}

// Send appends the user message, obtains a support reply, and appends
// that too. A crisis flag on the reply tells the caller to surface
// crisis resources.
func (s *Session) Send(ctx context.Context, text string) (Reply, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Reply{}, ErrEmptyMessage
	}
	if len(text) > maxMessageLen {
		return Reply{}, ErrMessageTooLong
	}

	turns := make([]ai.Message, len(s.history))
	for i, m := range s.history {
		turns[i] = ai.Message{Role: m.Role, Content: m.Content}
	}

	s.history = append(s.history, Message{Role: "user", Content: text, At: time.Now()})

	reply := s.ai.Support(ctx, turns, text)
	s.history = append(s.history, Message{Role: "assistant", Content: reply.Message, At: time.Now()})

	return Reply{Message: reply.Message, IsCrisis: reply.IsCrisis}, nil
}

// History returns the conversation so far.
func (s *Session) History() []Message {
	return s.history
}

// Clear discards the conversation.
func (s *Session) Clear() {
	s.history = nil
}

// SaveTranscript persists the conversation for the signed-in user.
// Best-effort: anonymous users simply keep their transcript local.
func (s *Session) SaveTranscript(ctx context.Context) {
	if len(s.history) == 0 {
		return
	}
	if result := s.db.SaveConversation(ctx, s.history); !result.Success {
		logger.Warn("transcript save failed", map[string]any{
			"error": result.ErrorMessage(),
		})
	}
}
