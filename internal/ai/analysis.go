package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/MuganziJames/Umoja-AI/internal/logger"
	"github.com/MuganziJames/Umoja-AI/internal/stories"
)

var harmfulPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(hate|violence|threat|kill|die|suicide)\b`),
	regexp.MustCompile(`(?i)\b(f\*\*k|sh\*t|damn|hell)\b`),
}

// Moderate checks text for harmful content. Without an API key it falls
// back to keyword filtering.
func (c *Client) Moderate(ctx context.Context, text string) (stories.ModerationResult, error) {
	if !c.Enabled() {
		return keywordModeration(text), nil
	}

	prompt := fmt.Sprintf(`Analyze this text for harmful content. Respond with JSON format: {"flagged": true/false, "reason": "explanation if flagged", "categories": ["category1", "category2"]}

Text to analyze: %q`, text)

	reply, err := c.complete(ctx, []Message{{Role: "user", Content: prompt}}, Options{
		MaxTokens:   100,
		Temperature: 0.1,
	})
	if err != nil {
		return stories.ModerationResult{}, err
	}

	var result stories.ModerationResult
	if err := json.Unmarshal([]byte(extractJSON(reply)), &result); err != nil {
		logger.Warn("unparsable moderation reply, using keyword filter", map[string]any{
			"error": err.Error(),
		})
		return keywordModeration(text), nil
	}
	return result, nil
}

func keywordModeration(text string) stories.ModerationResult {
	for _, pattern := range harmfulPatterns {
		if pattern.MatchString(text) {
			return stories.ModerationResult{
				Flagged:    true,
				Categories: []string{"potential-harmful-content"},
				Reason:     "Content contains potentially harmful language",
			}
		}
	}
	return stories.ModerationResult{}
}

// Categorize assigns one category from the platform's closed set.
// Without an API key it falls back to keyword rules; an out-of-set
// reply resolves to community.
func (c *Client) Categorize(ctx context.Context, title, content string) string {
	if !c.Enabled() {
		return keywordCategory(title, content)
	}

	prompt := fmt.Sprintf(`Analyze this story and categorize it into ONE of these categories:
- mental-health: Stories about mental health struggles, recovery, awareness
- gender-issues: Stories about gender equality, discrimination, identity
- social-justice: Stories about inequality, activism, community action
- community: Stories about community building, local initiatives, helping others

Title: %s
Content: %s

Return ONLY the category name (mental-health, gender-issues, social-justice, or community).`,
		title, truncate(content, 500))

	reply, err := c.complete(ctx, []Message{{Role: "user", Content: prompt}}, Options{
		MaxTokens:   10,
		Temperature: 0.1,
	})
	if err != nil {
		logger.Warn("categorization failed, using keyword fallback", map[string]any{
			"error": err.Error(),
		})
		return keywordCategory(title, content)
	}

	category := strings.ToLower(strings.TrimSpace(reply))
	for _, valid := range stories.ValidCategories {
		if category == valid {
			return category
		}
	}
	return stories.CategoryCommunity
}

func keywordCategory(title, content string) string {
	text := strings.ToLower(title + " " + content)

	contains := func(words ...string) bool {
		for _, w := range words {
			if strings.Contains(text, w) {
				return true
			}
		}
		return false
	}

	if contains("mental", "depression", "anxiety", "therapy", "counseling", "wellbeing") {
		return stories.CategoryMentalHealth
	}
	if contains("gender", "women", "equality", "discrimination", "feminist", "sexism") {
		return stories.CategoryGenderIssues
	}
	if contains("justice", "rights", "activism", "protest", "inequality", "fairness") {
		return stories.CategorySocialJustice
	}
	return stories.CategoryCommunity
}

// Sentiment classifies the overall tone of the text, defaulting to
// neutral on any failure.
func (c *Client) Sentiment(ctx context.Context, text string) string {
	if !c.Enabled() {
		return "neutral"
	}

	prompt := fmt.Sprintf(`Analyze the sentiment of this text. Respond with JSON format: {"sentiment": "positive/negative/neutral", "confidence": 0.0-1.0, "reasoning": "brief explanation"}

Text: %q`, truncate(text, 500))

	reply, err := c.complete(ctx, []Message{{Role: "user", Content: prompt}}, Options{
		MaxTokens:   80,
		Temperature: 0.1,
	})
	if err != nil {
		return "neutral"
	}

	var parsed struct {
		Sentiment string `json:"sentiment"`
	}
	if err := json.Unmarshal([]byte(extractJSON(reply)), &parsed); err != nil {
		return "neutral"
	}
	switch parsed.Sentiment {
	case "positive", "negative", "neutral":
		return parsed.Sentiment
	}
	return "neutral"
}

// Summarize produces a 1-2 sentence summary. The fallback is a content
// prefix.
func (c *Client) Summarize(ctx context.Context, content string) string {
	if c.Enabled() {
		prompt := fmt.Sprintf(`Create a brief, compelling summary (1-2 sentences) for this personal story.
Make it engaging but respectful of the personal nature of the content.

Story: %s...

Summary:`, truncate(content, 800))

		reply, err := c.complete(ctx, []Message{{Role: "user", Content: prompt}}, Options{
			MaxTokens:   60,
			Temperature: 0.7,
		})
		if err == nil && reply != "" {
			return reply
		}
		logger.Warn("summary generation failed, using prefix", map[string]any{})
	}

	return truncate(content, 200) + "..."
}

// WritingSuggestions reviews a story draft and returns 2-3 constructive
// suggestions.
func (c *Client) WritingSuggestions(ctx context.Context, text string) (string, error) {
	prompt := fmt.Sprintf(`Review this personal story for a social impact blog and provide helpful writing suggestions.
Focus on:
1. Clarity and readability
2. Emotional impact
3. Structure and flow
4. Sensitivity (this is a personal story that may contain difficult topics)

Story: %s

Provide 2-3 brief, constructive suggestions in a supportive tone.`, text)

	return c.complete(ctx, []Message{{Role: "user", Content: prompt}}, Options{
		MaxTokens:   250,
		Temperature: 0.7,
	})
}

// SimilarStories ranks the pool by keyword overlap with the given story
// and returns the top three. Runs locally; no completion call.
func (c *Client) SimilarStories(story stories.Story, pool []stories.Story) []stories.Story {
	base := extractKeywords(story.Title + " " + story.Content)

	type scored struct {
		story stories.Story
		score float64
	}
	var ranked []scored
	for _, other := range pool {
		if other.ID == story.ID {
			continue
		}
		score := jaccard(base, extractKeywords(other.Title+" "+other.Content))
		if score > 0.1 {
			ranked = append(ranked, scored{story: other, score: score})
		}
	}

	sort.Slice(ranked, func(i, j int) bool { return ranked[i].score > ranked[j].score })
	if len(ranked) > 3 {
		ranked = ranked[:3]
	}

	result := make([]stories.Story, len(ranked))
	for i, r := range ranked {
		result[i] = r.story
	}
	return result
}

var stopWords = map[string]bool{
	"the": true, "a": true, "an": true, "and": true, "or": true, "but": true,
	"in": true, "on": true, "at": true, "to": true, "for": true, "of": true,
	"with": true, "by": true, "is": true, "was": true, "are": true,
	"were": true, "be": true, "been": true, "have": true, "has": true,
	"had": true, "do": true, "does": true, "did": true, "will": true,
	"would": true, "could": true, "should": true, "can": true, "may": true,
	"might": true, "must": true, "shall": true,
}

var nonWord = regexp.MustCompile(`[^\w\s]`)

func extractKeywords(text string) map[string]bool {
	text = nonWord.ReplaceAllString(strings.ToLower(text), "")
	words := make(map[string]bool)
	for _, w := range strings.Fields(text) {
		if len(w) > 2 && !stopWords[w] {
			words[w] = true
		}
	}
	return words
}

func jaccard(a, b map[string]bool) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}
	intersection := 0
	for w := range a {
		if b[w] {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	return float64(intersection) / float64(union)
}

// extractJSON pulls the first JSON object out of a completion reply,
// tolerating surrounding prose.
func extractJSON(reply string) string {
	start := strings.Index(reply, "{")
	end := strings.LastIndex(reply, "}")
	if start >= 0 && end > start {
		return reply[start : end+1]
	}
	return reply
}

// truncate caps s at n bytes without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
