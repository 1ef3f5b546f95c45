// Package gateway is the single point of access to the remote
// authentication, record and file storage service. It fails closed
// before the backend configuration arrives and normalizes every remote
// outcome into a Success/Error result shape.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"golang.org/x/oauth2"

	"github.com/MuganziJames/Umoja-AI/internal/auth"
	"github.com/MuganziJames/Umoja-AI/internal/config"
	"github.com/MuganziJames/Umoja-AI/internal/kv"
	"github.com/MuganziJames/Umoja-AI/internal/logger"
)

type Client struct {
	loader *config.Loader
	local  kv.Store
	http   *http.Client
	now    func() time.Time

	mu      sync.RWMutex
	backend *config.Backend
	token   *oauth2.Token
	user    *auth.User
}

func New(loader *config.Loader, local kv.Store) *Client {
	return &Client{
		loader: loader,
		local:  local,
		http:   &http.Client{Timeout: 15 * time.Second},
		now:    time.Now,
	}
}

// Initialize attempts to bind to the loaded backend configuration.
// Returns whether the gateway is now ready; it never errors.
func (c *Client) Initialize() bool {
	backend := c.loader.Backend()
	if backend == nil {
		return false
	}

	c.mu.Lock()
	if c.backend == nil {
		c.backend = backend
		logger.Info("gateway initialized", map[string]any{
			"url": backend.URL,
		})
	}
	c.mu.Unlock()
	return true
}

// Ready reports whether the gateway is bound to a backend.
func (c *Client) Ready() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.backend != nil
}

// ensureReady is the guard clause every operation runs first. While it
// fails, no network call is attempted.
func (c *Client) ensureReady() (*config.Backend, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.backend == nil {
		return nil, ErrNotInitialized
	}
	return c.backend, nil
}

// SignUp registers a new account. The backend sends a verification
// email; no session exists until the user signs in.
func (c *Client) SignUp(ctx context.Context, email, password string, meta map[string]any) AuthResult {
	backend, err := c.ensureReady()
	if err != nil {
		return AuthResult{Result: failure(err)}
	}

	body := map[string]any{
		"email":    email,
		"password": password,
		"data":     meta,
	}

	var resp struct {
		ID    string     `json:"id"`
		Email string     `json:"email"`
		User  *auth.User `json:"user"`
	}
	if err := c.doJSON(ctx, http.MethodPost, backend.URL+"/auth/v1/signup", body, &resp); err != nil {
		logger.Error("sign up failed", map[string]any{"error": err.Error()})
		return AuthResult{Result: failure(err)}
	}

	user := resp.User
	if user == nil {
		user = &auth.User{ID: resp.ID, Email: resp.Email, UserMetadata: meta}
	}
	return AuthResult{Result: succeeded(), User: user}
}

// SignIn exchanges credentials for a token via the password grant.
func (c *Client) SignIn(ctx context.Context, email, password string) AuthResult {
	backend, err := c.ensureReady()
	if err != nil {
		return AuthResult{Result: failure(err)}
	}

	body := map[string]any{
		"email":    email,
		"password": password,
	}

	var resp struct {
		AccessToken  string     `json:"access_token"`
		RefreshToken string     `json:"refresh_token"`
		ExpiresIn    int        `json:"expires_in"`
		User         *auth.User `json:"user"`
	}
	endpoint := backend.URL + "/auth/v1/token?grant_type=password"
	if err := c.doJSON(ctx, http.MethodPost, endpoint, body, &resp); err != nil {
		logger.Error("sign in failed", map[string]any{"error": err.Error()})
		return AuthResult{Result: failure(err)}
	}

	token := &oauth2.Token{
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
		TokenType:    "Bearer",
		Expiry:       c.now().Add(time.Duration(resp.ExpiresIn) * time.Second),
	}

	c.mu.Lock()
	c.token = token
	c.user = resp.User
	c.mu.Unlock()

	return AuthResult{Result: succeeded(), User: resp.User}
}

// SignOut revokes the remote session. The local token is cleared even
// when revocation fails.
func (c *Client) SignOut(ctx context.Context) Result {
	backend, err := c.ensureReady()
	if err != nil {
		return failure(err)
	}

	err = c.doJSON(ctx, http.MethodPost, backend.URL+"/auth/v1/logout", nil, nil)

	c.mu.Lock()
	c.token = nil
	c.user = nil
	c.mu.Unlock()

	if err != nil {
		logger.Error("sign out failed", map[string]any{"error": err.Error()})
		return failure(err)
	}
	return succeeded()
}

// CurrentUser returns the authenticated identity, or nil when nobody is
// signed in. Remote lookup errors resolve to nil rather than
// propagating.
func (c *Client) CurrentUser(ctx context.Context) (*auth.User, error) {
	backend, err := c.ensureReady()
	if err != nil {
		return nil, err
	}

	c.mu.RLock()
	token := c.token
	c.mu.RUnlock()
	if token == nil {
		return nil, nil
	}

	var user auth.User
	if err := c.doJSON(ctx, http.MethodGet, backend.URL+"/auth/v1/user", nil, &user); err != nil {
		logger.Warn("current user lookup failed", map[string]any{
			"error": err.Error(),
		})
		return nil, nil
	}

	c.mu.Lock()
	c.user = &user
	c.mu.Unlock()
	return &user, nil
}

// ResetPassword asks the backend to send a password reset email.
func (c *Client) ResetPassword(ctx context.Context, email string) Result {
	backend, err := c.ensureReady()
	if err != nil {
		return failure(err)
	}

	body := map[string]any{"email": email}
	if err := c.doJSON(ctx, http.MethodPost, backend.URL+"/auth/v1/recover", body, nil); err != nil {
		return failure(err)
	}
	return succeeded()
}

// OAuthURL builds the authorize URL for a provider-hosted sign-in. The
// exchange itself happens on the backend.
func (c *Client) OAuthURL(provider, redirectTo string) (string, error) {
	backend, err := c.ensureReady()
	if err != nil {
		return "", err
	}

	q := url.Values{}
	q.Set("provider", provider)
	if redirectTo != "" {
		q.Set("redirect_to", redirectTo)
	}
	return backend.URL + "/auth/v1/authorize?" + q.Encode(), nil
}

// remoteError is a failure reported by the backend, normalized from its
// various response shapes.
type remoteError struct {
	Status  int
	Message string
}

func (e *remoteError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("remote service error (status %d)", e.Status)
}

// doRepresented is doJSON with the record-mutation header asking the
// backend to echo the resulting rows.
func (c *Client) doRepresented(ctx context.Context, method, endpoint string, body, out any) error {
	return c.do(ctx, method, endpoint, body, out, map[string]string{
		"Prefer": "return=representation",
	})
}

// doJSON performs one authenticated request against the backend and
// decodes the response into out (when non-nil).
func (c *Client) doJSON(ctx context.Context, method, endpoint string, body, out any) error {
	return c.do(ctx, method, endpoint, body, out, nil)
}

func (c *Client) do(ctx context.Context, method, endpoint string, body, out any, extra map[string]string) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("gateway: failed to encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("gateway: failed to build request: %w", err)
	}
	c.setHeaders(req)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range extra {
		req.Header.Set(k, v)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("gateway: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return decodeRemoteError(resp)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("gateway: failed to decode response: %w", err)
	}
	return nil
}

func (c *Client) setHeaders(req *http.Request) {
	c.mu.RLock()
	backend := c.backend
	token := c.token
	c.mu.RUnlock()

	if backend != nil {
		req.Header.Set("apikey", backend.AnonKey)
		if token != nil {
			req.Header.Set("Authorization", "Bearer "+token.AccessToken)
		} else {
			req.Header.Set("Authorization", "Bearer "+backend.AnonKey)
		}
	}
}

func decodeRemoteError(resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	var payload struct {
		Message          string `json:"message"`
		Msg              string `json:"msg"`
		ErrorDescription string `json:"error_description"`
		ErrorText        string `json:"error"`
	}
	_ = json.Unmarshal(data, &payload)

	msg := payload.Message
	for _, candidate := range []string{payload.Msg, payload.ErrorDescription, payload.ErrorText} {
		if msg == "" {
			msg = candidate
		}
	}
	return &remoteError{Status: resp.StatusCode, Message: msg}
}
