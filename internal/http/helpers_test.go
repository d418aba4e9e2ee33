package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"inkwell/internal/config"
	"inkwell/internal/http/handlers"
	applog "inkwell/internal/log"
	"inkwell/internal/repos"
)

type testApp struct {
	app  *fiber.App
	db   *sqlx.DB
	deps *handlers.Deps
}

func newTestApp(t *testing.T, tweak ...func(*config.Config)) *testApp {
	t.Helper()
	cfg := config.Test()
	for _, fn := range tweak {
		fn(&cfg)
	}
	db, err := repos.OpenDB(cfg.DBDSN)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	deps := handlers.NewDeps(db, cfg)
	return &testApp{app: handlers.NewApp(cfg, deps), db: db, deps: deps}
}

func (a *testApp) do(t *testing.T, req *http.Request) *http.Response {
	t.Helper()
	resp, err := a.app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

// api sends a JSON request, with a bearer token when one is given, and decodes the JSON reply.
func (a *testApp) api(t *testing.T, method, path, token string, body any) (int, map[string]any) {
	t.Helper()
	var rd io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, rd)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp := a.do(t, req)
	defer resp.Body.Close()
	raw, _ := io.ReadAll(resp.Body)
	out := map[string]any{}
	if len(raw) > 0 && raw[0] == '{' {
		require.NoError(t, json.Unmarshal(raw, &out), string(raw))
	}
	return resp.StatusCode, out
}

func (a *testApp) token(t *testing.T, username string) string {
	t.Helper()
	status, body := a.api(t, "POST", "/api/v1/login", "", map[string]string{"username": username, "password": "Passw0rd!"})
	require.Equal(t, http.StatusOK, status, body)
	tok, _ := body["access_token"].(string)
	require.NotEmpty(t, tok)
	return tok
}

// session signs username in and returns the sid cookie value.
func (a *testApp) session(t *testing.T, username string) string {
	t.Helper()
	sid := "sid-" + username
	_, err := a.deps.Auth.Login(context.Background(), sid, username, "Passw0rd!")
	require.NoError(t, err)
	return sid
}

// csrf fetches a fresh token the way a browser would, from the cookie set on a GET page.
func (a *testApp) csrf(t *testing.T) string {
	t.Helper()
	resp := a.do(t, httptest.NewRequest("GET", "/login", nil))
	tok := cookie(resp, "csrf_")
	require.NotEmpty(t, tok, "csrf cookie missing")
	return tok
}

// form posts a browser form carrying the csrf token and, if sid is set, the session cookie.
func (a *testApp) form(t *testing.T, path, sid, csrf string, vals url.Values) *http.Response {
	t.Helper()
	if vals == nil {
		vals = url.Values{}
	}
	vals.Set("csrf", csrf)
	req := httptest.NewRequest("POST", path, strings.NewReader(vals.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.AddCookie(&http.Cookie{Name: "csrf_", Value: csrf})
	if sid != "" {
		req.AddCookie(&http.Cookie{Name: "sid", Value: sid})
	}
	return a.do(t, req)
}

func (a *testApp) bookID(t *testing.T, title string) int64 {
	t.Helper()
	var id int64
	require.NoError(t, a.db.Get(&id, a.db.Rebind(`SELECT id FROM books WHERE title = ?`), title))
	return id
}

func cookie(resp *http.Response, name string) string {
	for _, c := range resp.Cookies() {
		if c.Name == name {
			return c.Value
		}
	}
	return ""
}

type logEntry struct {
	Kind   string         `json:"kind"`
	Action string         `json:"action"`
	UserID int64          `json:"user_id"`
	Fields map[string]any `json:"fields"`
}

type lockedBuf struct {
	mu sync.Mutex
	b  bytes.Buffer
}

func (l *lockedBuf) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.b.Write(p)
}

// captureLogs runs fn with the process logger redirected and returns the JSON entries it wrote.
func captureLogs(t *testing.T, fn func()) []logEntry {
	t.Helper()
	buf := &lockedBuf{}
	prev := applog.SetOutput(buf)
	defer applog.SetOutput(prev)

	fn()

	var entries []logEntry
	for _, line := range strings.Split(strings.TrimSpace(buf.b.String()), "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "{") {
			continue
		}
		var e logEntry
		if err := json.Unmarshal([]byte(line), &e); err == nil {
			entries = append(entries, e)
		}
	}
	return entries
}

func findAction(entries []logEntry, action string) (logEntry, bool) {
	for _, e := range entries {
		if e.Action == action {
			return e, true
		}
	}
	return logEntry{}, false
}
