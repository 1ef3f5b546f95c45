package ai

import (
	"context"
	"strings"
	"time"
)

const supportSystemPrompt = `You are Umoja AI, a compassionate and understanding AI counselor for the Voices of Change platform. Your role is to:

1. Provide emotional support and validation
2. Listen actively and respond with empathy
3. Ask thoughtful, caring questions
4. Help users process their feelings
5. Be culturally sensitive and inclusive
6. Recognize when someone needs professional help

Key principles:
- Always be supportive and non-judgmental
- Validate emotions and experiences
- Focus on mental health, social justice, and personal empowerment
- If someone mentions self-harm, suicide, or crisis - provide immediate resources
- Encourage healthy coping strategies
- Remember this is a safe space for vulnerable sharing

Crisis Resources to share when needed:
- National Suicide Prevention Lifeline: 988
- Crisis Text Line: Text HOME to 741741
- International Association for Suicide Prevention: https://www.iasp.info/resources/Crisis_Centres/

Respond in a warm, understanding tone as if talking to a friend who needs support.`

var crisisKeywords = []string{
	"suicide",
	"kill myself",
	"end it all",
	"want to die",
	"self-harm",
	"hurt myself",
}

type SupportReply struct {
	Success   bool
	Message   string
	IsCrisis  bool
	Timestamp time.Time
}

// Support generates an empathetic chat reply using the last ten turns
// of history for context. Crisis keywords in the user message are
// flagged regardless of the model's reply.
func (c *Client) Support(ctx context.Context, history []Message, userMessage string) SupportReply {
	isCrisis := detectCrisis(userMessage)

	if !c.Enabled() {
		return SupportReply{
			Message:  "AI chat support is currently unavailable. Please try again later.",
			IsCrisis: isCrisis,
		}
	}

	messages := []Message{{Role: "system", Content: supportSystemPrompt}}
	if len(history) > 10 {
		history = history[len(history)-10:]
	}
	messages = append(messages, history...)
	messages = append(messages, Message{Role: "user", Content: userMessage})

	reply, err := c.complete(ctx, messages, Options{
		MaxTokens:   300,
		Temperature: 0.8,
	})
	if err != nil {
		return SupportReply{
			Message:  "I'm having trouble responding right now. Your feelings are valid, and I'm here when you're ready to try again.",
			IsCrisis: isCrisis,
		}
	}

	return SupportReply{
		Success:   true,
		Message:   reply,
		IsCrisis:  isCrisis,
		Timestamp: time.Now(),
	}
}

func detectCrisis(message string) bool {
	lower := strings.ToLower(message)
	for _, keyword := range crisisKeywords {
		if strings.Contains(lower, keyword) {
			return true
		}
	}
	return false
}
