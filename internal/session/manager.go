package session

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/MuganziJames/Umoja-AI/internal/auth"
	"github.com/MuganziJames/Umoja-AI/internal/kv"
	"github.com/MuganziJames/Umoja-AI/internal/logger"
)

const (
	sessionKey  = "umoja_session"
	activityKey = "umoja_last_activity"
	rememberKey = "umoja_remember_me"

	// Idle timeouts. Remember-me selects the longer policy.
	DefaultTimeout  = 24 * time.Hour
	RememberTimeout = 48 * time.Hour

	expiringSoonWindow = time.Hour
)

// Session is the client's cached belief about the current authenticated
// identity.
type Session struct {
	User       *auth.User `json:"user"`
	LoginTime  time.Time  `json:"login_time"`
	RememberMe bool       `json:"remember_me"`
}

// Manager owns the persisted session record. No other component writes
// the underlying keys directly.
type Manager struct {
	store kv.Store
	now   func() time.Time
}

func NewManager(store kv.Store) *Manager {
	return &Manager{store: store, now: time.Now}
}

// SetSession establishes a new session, overwriting any prior one.
func (m *Manager) SetSession(user *auth.User, rememberMe bool) {
	sess := Session{
		User:       user,
		LoginTime:  m.now(),
		RememberMe: rememberMe,
	}

	data, err := json.Marshal(sess)
	if err != nil {
		logger.Error("failed to serialize session", map[string]any{
			"error": err.Error(),
		})
		return
	}

	m.set(sessionKey, string(data))
	m.set(rememberKey, strconv.FormatBool(rememberMe))
	m.UpdateActivity()
}

// UpdateActivity records the current instant as the last observed user
// activity. Callers are responsible for throttling.
func (m *Manager) UpdateActivity() {
	m.set(activityKey, strconv.FormatInt(m.now().UnixMilli(), 10))
}

// GetSession returns the current session if one exists and has not
// idled out. Expiry is lazy: it is evaluated here, on read, and an
// expired or malformed record is purged. A valid read refreshes the
// activity timestamp.
func (m *Manager) GetSession() *Session {
	raw, err := m.store.Get(sessionKey)
	if err != nil || raw == "" {
		return nil
	}

	lastActivity, ok := m.lastActivity()
	if !ok {
		m.clear()
		return nil
	}

	var sess Session
	if err := json.Unmarshal([]byte(raw), &sess); err != nil {
		// Self-heal: malformed persisted data is purged.
		logger.Warn("malformed session record, clearing", map[string]any{
			"error": err.Error(),
		})
		m.clear()
		return nil
	}

	if m.now().Sub(lastActivity) > m.timeout() {
		m.clear()
		return nil
	}

	m.UpdateActivity()
	return &sess
}

// IsAuthenticated reports whether a valid session exists.
func (m *Manager) IsAuthenticated() bool {
	return m.GetSession() != nil
}

// CurrentUser returns the user of a valid session, or nil.
func (m *Manager) CurrentUser() *auth.User {
	sess := m.GetSession()
	if sess == nil {
		return nil
	}
	return sess.User
}

// Logout deletes the persisted session. Idempotent.
func (m *Manager) Logout() {
	m.clear()
}

// RemainingTime returns the non-negative duration until expiry under the
// current policy. It does not mutate state.
func (m *Manager) RemainingTime() time.Duration {
	lastActivity, ok := m.lastActivity()
	if !ok {
		return 0
	}

	remaining := m.timeout() - m.now().Sub(lastActivity)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// ExpiringSoon reports whether the session expires within the next hour.
func (m *Manager) ExpiringSoon() bool {
	remaining := m.RemainingTime()
	return remaining > 0 && remaining < expiringSoonWindow
}

func (m *Manager) timeout() time.Duration {
	remember, _ := m.store.Get(rememberKey)
	if remember == "true" {
		return RememberTimeout
	}
	return DefaultTimeout
}

func (m *Manager) lastActivity() (time.Time, bool) {
	raw, err := m.store.Get(activityKey)
	if err != nil || raw == "" {
		return time.Time{}, false
	}

	millis, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return time.Time{}, false
	}
	return time.UnixMilli(millis), true
}

func (m *Manager) set(key, value string) {
	if err := m.store.Set(key, value); err != nil {
		logger.Error("session store write failed", map[string]any{
			"key":   key,
			"error": err.Error(),
		})
	}
}

func (m *Manager) clear() {
	_ = m.store.Delete(sessionKey)
	_ = m.store.Delete(activityKey)
	_ = m.store.Delete(rememberKey)
}
