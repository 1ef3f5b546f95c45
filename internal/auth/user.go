package auth

import "strings"

// User is the identity record returned by the remote auth service.
// It contains facts only, no decisions.
type User struct {
	ID           string         `json:"id"`
	Email        string         `json:"email"`
	UserMetadata map[string]any `json:"user_metadata,omitempty"`
	CreatedAt    string         `json:"created_at,omitempty"`
}

// DisplayName derives a human-facing name from whatever the identity
// carries: metadata name, then first name, then the email local part,
// then a generic fallback.
func DisplayName(u *User) string {
	if u == nil {
		return "Profile"
	}

	if name, ok := u.UserMetadata["name"].(string); ok && name != "" {
		return name
	}
	if name, ok := u.UserMetadata["full_name"].(string); ok && name != "" {
		return name
	}
	if first, ok := u.UserMetadata["firstName"].(string); ok && first != "" {
		return first
	}
	if at := strings.Index(u.Email, "@"); at > 0 {
		return u.Email[:at]
	}
	return "Profile"
}

// Initials returns up to two uppercase initials for the given name.
func Initials(name string) string {
	initials := make([]rune, 0, 2)
	for _, p := range strings.Fields(name) {
		initials = append(initials, []rune(p)[0])
		if len(initials) == 2 {
			break
		}
	}
	return strings.ToUpper(string(initials))
}
