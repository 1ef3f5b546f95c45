package stories

import (
	"regexp"
	"strings"
	"time"
	"unicode/utf8"
)

// Story categories the platform publishes under.
const (
	CategoryMentalHealth  = "mental-health"
	CategoryGenderIssues  = "gender-issues"
	CategorySocialJustice = "social-justice"
	CategoryCommunity     = "community"
	CategoryGeneral       = "general"
)

// ValidCategories is the closed set auto-categorization may choose from.
var ValidCategories = []string{
	CategoryMentalHealth,
	CategoryGenderIssues,
	CategorySocialJustice,
	CategoryCommunity,
}

// Story is a record in the remote stories table.
type Story struct {
	ID          string `json:"id,omitempty"`
	Title       string `json:"title"`
	Content     string `json:"content"`
	AuthorName  string `json:"author_name,omitempty"`
	AuthorEmail string `json:"author_email,omitempty"`
	Category    string `json:"category,omitempty"`
	Status      string `json:"status,omitempty"`
	Summary     string `json:"summary,omitempty"`
	Sentiment   string `json:"sentiment_data,omitempty"`
	ImageURL    string `json:"image_url,omitempty"`
	UserID      string `json:"user_id,omitempty"`
	IsAnonymous bool   `json:"is_anonymous,omitempty"`
	CreatedAt   string `json:"created_at,omitempty"`
	UpdatedAt   string `json:"updated_at,omitempty"`
}

// Filter narrows a published-stories query.
type Filter struct {
	Category string
	Limit    int
}

const (
	maxTitleLen   = 200
	maxContentLen = 10000
)

var (
	tagPattern     = regexp.MustCompile(`<[^>]*>`)
	controlPattern = regexp.MustCompile(`[\x00-\x08\x0b\x0c\x0e-\x1f\x7f]`)
)

// SanitizeText strips markup and control characters from user input and
// caps its length.
func SanitizeText(text string, maxLen int) string {
	text = tagPattern.ReplaceAllString(text, "")
	text = controlPattern.ReplaceAllString(text, "")
	text = strings.TrimSpace(text)

	if maxLen > 0 && len(text) > maxLen {
		// Cut on a rune boundary, never mid-character.
		for maxLen > 0 && !utf8.RuneStart(text[maxLen]) {
			maxLen--
		}
		text = text[:maxLen]
	}
	return text
}

// Timestamp renders an instant the way the records API expects.
func Timestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
