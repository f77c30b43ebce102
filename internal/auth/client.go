// Package auth is the HTTP gateway to the chat server's auth and history
// endpoints. It owns the cookie jar that carries the server session and
// keeps the session store in step with it.
package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/nfrund/chatroom/internal/domain"
)

const defaultTimeout = 10 * time.Second

type requestKind int

const (
	// credentialRequest is a login or signup: a 4xx means the server
	// rejected what the user typed.
	credentialRequest requestKind = iota
	// sessionRequest needs the server session: a 401 ends the local one.
	sessionRequest
	// bestEffortRequest failures are reported but change nothing locally.
	bestEffortRequest
)

// SessionStore is the persistence the gateway reads and writes.
type SessionStore interface {
	Current() (*domain.Identity, error)
	Save(id *domain.Identity) error
	Clear() error
}

// Client performs the auth, presence and history requests.
type Client struct {
	baseURL *url.URL
	http    *http.Client
	jar     http.CookieJar
	store   SessionStore
	timeout time.Duration
	now     func() time.Time
	logger  *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout bounds every request.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithTransport replaces the HTTP round tripper, e.g. for tests.
func WithTransport(rt http.RoundTripper) Option {
	return func(c *Client) {
		c.http.Transport = rt
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithClock overrides the clock used for login times.
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		if now != nil {
			c.now = now
		}
	}
}

// New creates a gateway for the server at baseURL. Cookies of a stored
// identity are restored into the jar so requests stay authenticated across
// runs.
func New(baseURL string, store SessionStore, opts ...Option) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse server url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("server url %q must be absolute", baseURL)
	}
	u.Path = "/"

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}

	c := &Client{
		baseURL: u,
		http:    &http.Client{Jar: jar},
		jar:     jar,
		store:   store,
		timeout: defaultTimeout,
		now:     time.Now,
		logger:  slog.Default().With("component", "auth"),
	}
	for _, opt := range opts {
		opt(c)
	}

	id, err := store.Current()
	if err != nil {
		return nil, err
	}
	if id != nil && id.Token != "" {
		cookies, err := http.ParseCookie(id.Token)
		if err != nil {
			c.logger.Warn("Ignoring unparsable session token", "error", err)
		} else {
			jar.SetCookies(u, cookies)
		}
	}
	return c, nil
}

type credentials struct {
	Username string `json:"username" validate:"required,username"`
	Email    string `json:"email,omitempty" validate:"omitempty,email"`
	Password string `json:"password" validate:"required"`
}

// Login authenticates and stores the resulting identity.
func (c *Client) Login(ctx context.Context, username, password string) (*domain.Identity, error) {
	req := credentials{Username: username, Password: password}
	if err := domain.Validator().Struct(req); err != nil {
		return nil, &domain.AuthError{Message: "a valid username and a password are required"}
	}

	var user domain.User
	if err := c.do(ctx, http.MethodPost, "/auth/login", nil, req, &user, credentialRequest); err != nil {
		return nil, err
	}
	if user.Username == "" {
		user.Username = username
	}

	id := &domain.Identity{
		Username:  user.Username,
		Token:     c.token(),
		LoginTime: c.now().UTC(),
		Profile:   user.Profile(),
	}
	if err := c.store.Save(id); err != nil {
		return nil, err
	}
	c.logger.Info("Logged in", "username", id.Username)
	return id.Clone(), nil
}

// Signup registers a new account. It does not log in.
func (c *Client) Signup(ctx context.Context, username, email, password string) (*domain.User, error) {
	req := credentials{Username: username, Email: email, Password: password}
	if email == "" {
		return nil, &domain.AuthError{Message: "email is required"}
	}
	if err := domain.Validator().Struct(req); err != nil {
		return nil, &domain.AuthError{Message: fmt.Sprintf("invalid signup: %v", err)}
	}

	var user domain.User
	if err := c.do(ctx, http.MethodPost, "/auth/signup", nil, req, &user, credentialRequest); err != nil {
		return nil, err
	}
	return &user, nil
}

// Logout ends the server session on a best-effort basis and always clears
// the local one. The returned error is the remote failure, if any; the
// local session is gone either way.
func (c *Client) Logout(ctx context.Context) error {
	remoteErr := c.do(ctx, http.MethodPost, "/auth/logout", nil, nil, nil, bestEffortRequest)
	if remoteErr != nil {
		c.logger.Error("Logout failed", "error", remoteErr)
	}
	if err := c.clearSession(); err != nil {
		return err
	}
	return remoteErr
}

// CurrentUser returns the locally stored identity, nil when logged out.
func (c *Client) CurrentUser() (*domain.Identity, error) {
	return c.store.Current()
}

// IsAuthenticated reports whether an identity is stored.
func (c *Client) IsAuthenticated() bool {
	id, err := c.store.Current()
	return err == nil && id != nil
}

// FetchCurrentUser asks the server who the session belongs to and
// refreshes the stored profile.
func (c *Client) FetchCurrentUser(ctx context.Context) (*domain.User, error) {
	var user domain.User
	if err := c.do(ctx, http.MethodGet, "/auth/getcurrentuser", nil, nil, &user, sessionRequest); err != nil {
		return nil, err
	}

	id, err := c.store.Current()
	if err != nil {
		return nil, err
	}
	if id != nil {
		id.Profile = user.Profile()
		if err := c.store.Save(id); err != nil {
			return nil, err
		}
	}
	return &user, nil
}

// OnlineUsers returns the sorted usernames the server reports online.
func (c *Client) OnlineUsers(ctx context.Context) ([]string, error) {
	var online map[string]json.RawMessage
	if err := c.do(ctx, http.MethodGet, "/auth/getonlineusers", nil, nil, &online, sessionRequest); err != nil {
		return nil, err
	}

	users := make([]string, 0, len(online))
	for name := range online {
		users = append(users, name)
	}
	sort.Strings(users)
	return users, nil
}

// PrivateHistory returns the private messages exchanged between two users,
// in the order the server returns them.
func (c *Client) PrivateHistory(ctx context.Context, userA, userB string) ([]domain.PrivateMessage, error) {
	if userA == "" || userB == "" {
		return nil, domain.ErrNoRecipient
	}

	query := url.Values{}
	query.Set("user1", userA)
	query.Set("user2", userB)

	var history []domain.PrivateMessage
	if err := c.do(ctx, http.MethodGet, "/api/messages/private", query, nil, &history, sessionRequest); err != nil {
		return nil, err
	}
	return history, nil
}

// token serializes the jar's cookies for the server as a Cookie header value.
func (c *Client) token() string {
	cookies := c.jar.Cookies(c.baseURL)
	parts := make([]string, 0, len(cookies))
	for _, ck := range cookies {
		parts = append(parts, (&http.Cookie{Name: ck.Name, Value: ck.Value}).String())
	}
	return strings.Join(parts, "; ")
}

func (c *Client) clearSession() error {
	expired := c.jar.Cookies(c.baseURL)
	for _, ck := range expired {
		ck.MaxAge = -1
		ck.Path = "/"
	}
	c.jar.SetCookies(c.baseURL, expired)
	return c.store.Clear()
}

// do sends one JSON request and decodes a JSON response into out. A 401 on
// a session request ends the local session.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any, kind requestKind) error {
	op := method + " " + path

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode %s: %w", op, err)
		}
		reader = bytes.NewReader(data)
	}

	u := c.baseURL.ResolveReference(&url.URL{Path: path})
	if query != nil {
		u.RawQuery = query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return fmt.Errorf("build %s: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Error("Request made, but no response received", "op", op, "error", err)
		return &domain.NetworkError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return &domain.NetworkError{Op: op, Err: err}
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if out == nil || len(bytes.TrimSpace(payload)) == 0 {
			return nil
		}
		if err := json.Unmarshal(payload, out); err != nil {
			return fmt.Errorf("decode %s: %w", op, err)
		}
		return nil
	}

	return c.statusError(op, resp.StatusCode, payload, kind)
}

func (c *Client) statusError(op string, status int, payload []byte, kind requestKind) error {
	switch {
	case kind == sessionRequest && status == http.StatusUnauthorized:
		c.logger.Warn("Session rejected by server, logging out", "op", op)
		if err := c.clearSession(); err != nil {
			c.logger.Error("Failed to clear session", "error", err)
		}
		return domain.ErrSessionExpired

	case kind == credentialRequest && status >= 400 && status < 500 && status != http.StatusNotFound:
		return &domain.AuthError{StatusCode: status, Message: serverMessage(payload, status)}
	}

	reason := http.StatusText(status)
	switch status {
	case http.StatusForbidden:
		reason = "access forbidden"
	case http.StatusNotFound:
		reason = "not found"
	case http.StatusInternalServerError:
		reason = "internal server error"
	}
	c.logger.Error("Request failed", "op", op, "status", status, "reason", reason)
	return &domain.HTTPError{Op: op, StatusCode: status, Reason: reason}
}

// serverMessage extracts a human readable message from an error body.
func serverMessage(payload []byte, status int) string {
	var body struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(payload, &body); err == nil {
		if body.Message != "" {
			return body.Message
		}
		if body.Error != "" {
			return body.Error
		}
	}
	if text := strings.TrimSpace(string(payload)); text != "" && !strings.HasPrefix(text, "{") {
		return text
	}
	if status == http.StatusUnauthorized {
		return "login failed, please check your credentials"
	}
	return http.StatusText(status)
}
