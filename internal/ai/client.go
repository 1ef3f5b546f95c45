// Package ai is the LLM gateway client: completion calls with a backup
// model fallback, a client-side rate limit, and degraded keyword-based
// behavior when no API key is configured.
package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/MuganziJames/Umoja-AI/internal/logger"
)

// ErrRateLimited: the client-side request budget is exhausted for the
// current window.
var ErrRateLimited = errors.New("ai: rate limit exceeded, please wait before making more requests")

// ErrDisabled: no API key is configured; callers should use the
// degraded fallbacks instead of surfacing this.
var ErrDisabled = errors.New("ai: features disabled, no API key configured")

// aiRequestsPerMinute caps outbound completion calls.
const aiRequestsPerMinute = 10

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type Options struct {
	Model       string
	MaxTokens   int
	Temperature float64
}

type Client struct {
	apiKey  string
	baseURL string
	primary string
	backup  string
	http    *http.Client
	limiter *rate.Limiter
}

func New(apiKey, baseURL, primaryModel, backupModel string) *Client {
	return &Client{
		apiKey:  apiKey,
		baseURL: baseURL,
		primary: primaryModel,
		backup:  backupModel,
		http:    &http.Client{Timeout: 30 * time.Second},
		limiter: rate.NewLimiter(rate.Every(time.Minute/aiRequestsPerMinute), aiRequestsPerMinute),
	}
}

// Enabled reports whether live completion calls can be made.
func (c *Client) Enabled() bool {
	return c.apiKey != ""
}

// complete sends one chat-completion request. The primary model is
// tried first; on failure the backup model gets one attempt.
func (c *Client) complete(ctx context.Context, messages []Message, opts Options) (string, error) {
	if !c.Enabled() {
		return "", ErrDisabled
	}
	if !c.limiter.Allow() {
		return "", ErrRateLimited
	}

	model := opts.Model
	if model == "" {
		model = c.primary
	}

	reply, err := c.call(ctx, model, messages, opts)
	if err != nil && model == c.primary && c.backup != "" {
		logger.Warn("primary model failed, trying backup", map[string]any{
			"model":  model,
			"backup": c.backup,
			"error":  err.Error(),
		})
		reply, err = c.call(ctx, c.backup, messages, opts)
	}
	return reply, err
}

func (c *Client) call(ctx context.Context, model string, messages []Message, opts Options) (string, error) {
	maxTokens := opts.MaxTokens
	if maxTokens == 0 {
		maxTokens = 200
	}
	temperature := opts.Temperature
	if temperature == 0 {
		temperature = 0.7
	}

	payload := map[string]any{
		"model":       model,
		"messages":    messages,
		"max_tokens":  maxTokens,
		"temperature": temperature,
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("ai: failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("ai: failed to build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Title", "Umoja AI - Voices of Change")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("ai: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return "", fmt.Errorf("ai: api error %d: %s", resp.StatusCode, body)
	}

	var parsed struct {
		Choices []struct {
			Message Message `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("ai: failed to decode response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("ai: empty completion")
	}
	return strings.TrimSpace(parsed.Choices[0].Message.Content), nil
}
