package auth_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/sessions"
	echosession "github.com/labstack/echo-contrib/session"
	"github.com/labstack/echo/v4"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nfrund/chatroom/internal/auth"
	"github.com/nfrund/chatroom/internal/domain"
	"github.com/nfrund/chatroom/internal/session"
)

const (
	testSessionSecret = "a-very-secret-key-for-testing"
	sessionName       = "chat-session"
)

// fakeServer mimics the chat server's auth endpoints with cookie sessions.
type fakeServer struct {
	mu           sync.Mutex
	revoked      bool
	onlineStatus int
	logouts      int
	historyQuery string
}

func newFakeServer(t *testing.T) (*fakeServer, *httptest.Server) {
	t.Helper()
	fs := &fakeServer{onlineStatus: http.StatusOK}

	e := echo.New()
	cookieStore := sessions.NewCookieStore([]byte(testSessionSecret))
	cookieStore.Options = &sessions.Options{Path: "/", HttpOnly: true}
	e.Use(echosession.Middleware(cookieStore))

	e.POST("/auth/login", func(c echo.Context) error {
		var req struct {
			Username string `json:"username"`
			Password string `json:"password"`
		}
		if err := c.Bind(&req); err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"message": "bad request"})
		}
		if req.Password != "secret" {
			return c.JSON(http.StatusUnauthorized, map[string]string{"message": "Bad credentials"})
		}
		sess, _ := echosession.Get(sessionName, c)
		sess.Values["username"] = req.Username
		if err := sess.Save(c.Request(), c.Response()); err != nil {
			return err
		}
		return c.JSON(http.StatusOK, map[string]any{
			"username": req.Username,
			"email":    req.Username + "@example.com",
			"role":     "USER",
		})
	})

	e.POST("/auth/signup", func(c echo.Context) error {
		var req struct {
			Username string `json:"username"`
			Email    string `json:"email"`
			Password string `json:"password"`
		}
		if err := c.Bind(&req); err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"message": "bad request"})
		}
		if req.Username == "taken" {
			return c.JSON(http.StatusConflict, map[string]string{"message": "Username is already taken"})
		}
		return c.JSON(http.StatusCreated, map[string]any{"username": req.Username, "email": req.Email})
	})

	e.POST("/auth/logout", func(c echo.Context) error {
		fs.mu.Lock()
		fs.logouts++
		fs.mu.Unlock()
		sess, _ := echosession.Get(sessionName, c)
		sess.Options.MaxAge = -1
		_ = sess.Save(c.Request(), c.Response())
		return c.NoContent(http.StatusOK)
	})

	requireUser := func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			fs.mu.Lock()
			revoked := fs.revoked
			fs.mu.Unlock()
			sess, _ := echosession.Get(sessionName, c)
			username, _ := sess.Values["username"].(string)
			if revoked || username == "" {
				return c.JSON(http.StatusUnauthorized, map[string]string{"message": "Unauthorized"})
			}
			c.Set("username", username)
			return next(c)
		}
	}

	e.GET("/auth/getcurrentuser", func(c echo.Context) error {
		username := c.Get("username").(string)
		return c.JSON(http.StatusOK, map[string]any{"username": username, "email": "new-" + username + "@example.com", "status": "ONLINE"})
	}, requireUser)

	e.GET("/auth/getonlineusers", func(c echo.Context) error {
		fs.mu.Lock()
		status := fs.onlineStatus
		fs.mu.Unlock()
		if status != http.StatusOK {
			return c.NoContent(status)
		}
		return c.JSON(http.StatusOK, map[string]any{
			"carol": map[string]string{"status": "ONLINE"},
			"alice": map[string]string{"status": "ONLINE"},
			"bob":   map[string]string{"status": "ONLINE"},
		})
	}, requireUser)

	e.GET("/api/messages/private", func(c echo.Context) error {
		fs.mu.Lock()
		fs.historyQuery = c.Request().URL.RawQuery
		fs.mu.Unlock()
		return c.JSON(http.StatusOK, []map[string]any{
			{"id": 1, "sender": c.QueryParam("user1"), "recipient": c.QueryParam("user2"), "content": "first", "timestamp": "2024-03-01T10:00:00"},
			{"id": 2, "sender": c.QueryParam("user2"), "recipient": c.QueryParam("user1"), "content": "second"},
		})
	}, requireUser)

	srv := httptest.NewServer(e)
	t.Cleanup(srv.Close)
	return fs, srv
}

func newClient(t *testing.T, baseURL string, store *session.Store) *auth.Client {
	t.Helper()
	fixed := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	c, err := auth.New(baseURL, store, auth.WithTimeout(2*time.Second), auth.WithClock(func() time.Time { return fixed }))
	require.NoError(t, err)
	return c
}

func TestLogin_StoresIdentity(t *testing.T) {
	_, srv := newFakeServer(t)
	store := session.NewStore(afero.NewMemMapFs(), "/cfg")
	client := newClient(t, srv.URL, store)

	assert.False(t, client.IsAuthenticated())

	id, err := client.Login(context.Background(), "alice", "secret")
	require.NoError(t, err)
	assert.Equal(t, "alice", id.Username)
	assert.Contains(t, id.Token, sessionName+"=")
	assert.Equal(t, time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC), id.LoginTime)
	assert.Equal(t, "alice@example.com", id.Profile["email"])
	assert.Equal(t, "USER", id.Profile["role"])

	assert.True(t, client.IsAuthenticated())
	stored, err := client.CurrentUser()
	require.NoError(t, err)
	assert.Equal(t, id.Token, stored.Token)
}

func TestLogin_BadCredentials(t *testing.T) {
	_, srv := newFakeServer(t)
	store := session.NewStore(afero.NewMemMapFs(), "/cfg")
	client := newClient(t, srv.URL, store)

	_, err := client.Login(context.Background(), "alice", "wrong")
	require.Error(t, err)

	var authErr *domain.AuthError
	require.True(t, errors.As(err, &authErr))
	assert.Equal(t, "Bad credentials", authErr.Message)
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
	assert.False(t, client.IsAuthenticated())

	_, err = client.Login(context.Background(), "", "secret")
	assert.True(t, errors.As(err, &authErr))
}

func TestSignup(t *testing.T) {
	_, srv := newFakeServer(t)
	client := newClient(t, srv.URL, session.NewStore(afero.NewMemMapFs(), "/cfg"))

	user, err := client.Signup(context.Background(), "dave", "dave@example.com", "pw")
	require.NoError(t, err)
	assert.Equal(t, "dave", user.Username)
	assert.False(t, client.IsAuthenticated(), "signup does not log in")

	_, err = client.Signup(context.Background(), "taken", "t@example.com", "pw")
	var authErr *domain.AuthError
	require.True(t, errors.As(err, &authErr))
	assert.Equal(t, http.StatusConflict, authErr.StatusCode)
	assert.Equal(t, "Username is already taken", authErr.Message)

	_, err = client.Signup(context.Background(), "erin", "not-an-email", "pw")
	assert.True(t, errors.As(err, &authErr))
}

func TestSessionSurvivesRestart(t *testing.T) {
	_, srv := newFakeServer(t)
	fs := afero.NewMemMapFs()

	first := newClient(t, srv.URL, session.NewStore(fs, "/cfg"))
	_, err := first.Login(context.Background(), "alice", "secret")
	require.NoError(t, err)

	// A new process restores the cookies from the stored token.
	second := newClient(t, srv.URL, session.NewStore(fs, "/cfg"))
	user, err := second.FetchCurrentUser(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Username)

	id, err := second.CurrentUser()
	require.NoError(t, err)
	assert.Equal(t, "new-alice@example.com", id.Profile["email"], "profile refreshed")
	assert.Equal(t, "ONLINE", id.Profile["status"])
}

func TestOnlineUsersSorted(t *testing.T) {
	_, srv := newFakeServer(t)
	client := newClient(t, srv.URL, session.NewStore(afero.NewMemMapFs(), "/cfg"))
	_, err := client.Login(context.Background(), "alice", "secret")
	require.NoError(t, err)

	users, err := client.OnlineUsers(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"alice", "bob", "carol"}, users)
}

func TestPrivateHistory(t *testing.T) {
	server, srv := newFakeServer(t)
	client := newClient(t, srv.URL, session.NewStore(afero.NewMemMapFs(), "/cfg"))
	_, err := client.Login(context.Background(), "alice", "secret")
	require.NoError(t, err)

	history, err := client.PrivateHistory(context.Background(), "alice", "bob & co")
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "first", history[0].Content)
	assert.Equal(t, "bob & co", history[0].Recipient)
	assert.Equal(t, "second", history[1].Content)
	assert.True(t, history[1].Timestamp.IsZero())

	server.mu.Lock()
	assert.Equal(t, "user1=alice&user2=bob+%26+co", server.historyQuery)
	server.mu.Unlock()

	_, err = client.PrivateHistory(context.Background(), "alice", "")
	assert.ErrorIs(t, err, domain.ErrNoRecipient)
}

func TestUnauthorizedClearsSession(t *testing.T) {
	server, srv := newFakeServer(t)
	store := session.NewStore(afero.NewMemMapFs(), "/cfg")
	client := newClient(t, srv.URL, store)
	_, err := client.Login(context.Background(), "alice", "secret")
	require.NoError(t, err)

	server.mu.Lock()
	server.revoked = true
	server.mu.Unlock()

	_, err = client.OnlineUsers(context.Background())
	assert.ErrorIs(t, err, domain.ErrSessionExpired)
	assert.False(t, client.IsAuthenticated())

	id, err := store.Current()
	require.NoError(t, err)
	assert.Nil(t, id)
}

func TestHTTPErrors(t *testing.T) {
	server, srv := newFakeServer(t)
	client := newClient(t, srv.URL, session.NewStore(afero.NewMemMapFs(), "/cfg"))
	_, err := client.Login(context.Background(), "alice", "secret")
	require.NoError(t, err)

	for _, tc := range []struct {
		status int
		reason string
	}{
		{http.StatusForbidden, "access forbidden"},
		{http.StatusNotFound, "not found"},
		{http.StatusInternalServerError, "internal server error"},
		{http.StatusBadGateway, "Bad Gateway"},
	} {
		server.mu.Lock()
		server.onlineStatus = tc.status
		server.mu.Unlock()

		_, err := client.OnlineUsers(context.Background())
		var httpErr *domain.HTTPError
		require.True(t, errors.As(err, &httpErr), "status %d", tc.status)
		assert.Equal(t, tc.status, httpErr.StatusCode)
		assert.Equal(t, tc.reason, httpErr.Reason)
		assert.True(t, client.IsAuthenticated(), "only a 401 ends the session")
	}
}

func TestNetworkError(t *testing.T) {
	_, srv := newFakeServer(t)
	url := srv.URL
	srv.Close()

	client := newClient(t, url, session.NewStore(afero.NewMemMapFs(), "/cfg"))
	_, err := client.Login(context.Background(), "alice", "secret")

	var netErr *domain.NetworkError
	require.True(t, errors.As(err, &netErr))
	assert.Equal(t, "POST /auth/login", netErr.Op)
}

func TestLogout_AlwaysClearsLocalSession(t *testing.T) {
	server, srv := newFakeServer(t)
	fs := afero.NewMemMapFs()
	client := newClient(t, srv.URL, session.NewStore(fs, "/cfg"))
	_, err := client.Login(context.Background(), "alice", "secret")
	require.NoError(t, err)

	require.NoError(t, client.Logout(context.Background()))
	assert.False(t, client.IsAuthenticated())
	server.mu.Lock()
	assert.Equal(t, 1, server.logouts)
	server.mu.Unlock()

	_, err = client.FetchCurrentUser(context.Background())
	assert.ErrorIs(t, err, domain.ErrSessionExpired, "cookies were dropped with the session")

	// Remote failure still clears the local session.
	_, err = client.Login(context.Background(), "alice", "secret")
	require.NoError(t, err)
	srv.Close()
	err = client.Logout(context.Background())
	var netErr *domain.NetworkError
	assert.True(t, errors.As(err, &netErr))
	assert.False(t, client.IsAuthenticated())
}

func TestNew_RejectsRelativeURL(t *testing.T) {
	_, err := auth.New("localhost:8080", session.NewStore(afero.NewMemMapFs(), "/cfg"))
	assert.Error(t, err)
}
