package httpx

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/findash/findash/internal/adapters/backend"
	domainauth "github.com/findash/findash/internal/domain/auth"
	"github.com/findash/findash/internal/domain/finance"
	fakes "github.com/findash/findash/internal/mocks/auth"
	"github.com/findash/findash/internal/service"
	"github.com/findash/findash/internal/testutil/backendtest"
	"github.com/stretchr/testify/require"
)

const (
	testCSRF     = "test-csrf-token"
	testPassword = "pw"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// stubSessions is a SessionManager with scripted results.
type stubSessions struct {
	mu        sync.Mutex
	observers []service.SessionObserver

	restoreUser  *domainauth.User
	restoreOK    bool
	restoreBlock chan struct{}

	loginUser *domainauth.User
	loginErr  error
	logouts   int
}

func (s *stubSessions) Subscribe(fn service.SessionObserver) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observers = append(s.observers, fn)
}

func (s *stubSessions) emit(ctx context.Context, ev service.SessionEvent) {
	s.mu.Lock()
	obs := append([]service.SessionObserver(nil), s.observers...)
	s.mu.Unlock()
	for _, fn := range obs {
		fn(ctx, ev)
	}
}

func (s *stubSessions) Restore(_ context.Context) (*domainauth.User, bool) {
	if s.restoreBlock != nil {
		<-s.restoreBlock
	}
	return s.restoreUser, s.restoreOK
}

func (s *stubSessions) Login(ctx context.Context, _, _ string) (*service.LoginResult, error) {
	if s.loginErr != nil {
		return nil, s.loginErr
	}
	s.emit(ctx, service.SessionEvent{Kind: service.SessionLoggedIn, User: s.loginUser})
	return &service.LoginResult{User: *s.loginUser}, nil
}

func (s *stubSessions) Logout(ctx context.Context) {
	s.mu.Lock()
	s.logouts++
	s.mu.Unlock()
	s.emit(ctx, service.SessionEvent{Kind: service.SessionLoggedOut})
}

func userWith(role string, perms ...string) *domainauth.User {
	if perms == nil {
		perms = []string{}
	}
	return &domainauth.User{ID: 7, Name: "alice", Email: "alice@example.com", Role: role, Permissions: perms}
}

// testApp is the full router wired to an in-process backend.
type testApp struct {
	handler  http.Handler
	backend  *backendtest.Server
	store    *fakes.MemoryUserStore
	sessions *service.SessionService
	shell    *Shell
}

type accountFixture struct {
	role  string
	perms []string
}

func newTestApp(t *testing.T, acct accountFixture) *testApp {
	t.Helper()
	srv := backendtest.New(t)
	login, err := json.Marshal(map[string]any{"user_id": 7, "role": acct.role, "permissions": acct.perms})
	require.NoError(t, err)
	srv.AddAccount("alice@example.com", backendtest.Account{
		Password: testPassword,
		Login:    login,
		Profile:  json.RawMessage(`{"id":7,"email":"alice@example.com","first_name":"","username":""}`),
	})

	client, err := backend.New(backend.Options{BaseURL: srv.URL, Logger: discardLogger()})
	require.NoError(t, err)
	store := fakes.NewMemoryUserStore()
	svc := service.NewSessionService(service.SessionServiceOptions{Backend: client, Store: store, Logger: discardLogger()})
	client.OnSessionExpired(svc.ForceLogout)

	shell := NewShell(ShellOptions{Sessions: svc, Logger: discardLogger(), CheckWait: time.Second})
	shell.Init(context.Background())

	catalog, err := finance.Sample()
	require.NoError(t, err)

	h, err := NewRouter(RouterServices{
		Sessions:   svc,
		Shell:      shell,
		Finance:    catalog,
		TemplateFS: os.DirFS(TemplatePathFromTest),
		StaticFS:   os.DirFS("../../frontend/static"),
		Logger:     discardLogger(),
	})
	require.NoError(t, err)
	return &testApp{handler: h, backend: srv, store: store, sessions: svc, shell: shell}
}

func (a *testApp) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, req)
	return rec
}

func (a *testApp) get(path string, htmx bool) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if htmx {
		req.Header.Set("Hx-Request", "true")
	}
	return a.do(req)
}

// postForm sends a form with a matching CSRF cookie and field.
func (a *testApp) postForm(path string, form url.Values, htmx bool) *httptest.ResponseRecorder {
	if form == nil {
		form = url.Values{}
	}
	form.Set(DefaultCSRFCookieName, testCSRF)
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.AddCookie(&http.Cookie{Name: DefaultCSRFCookieName, Value: testCSRF})
	if htmx {
		req.Header.Set("Hx-Request", "true")
	}
	return a.do(req)
}

func (a *testApp) login(t *testing.T) {
	t.Helper()
	rec := a.postForm(LoginPath, url.Values{"email": {"alice@example.com"}, "password": {testPassword}}, false)
	require.Equal(t, http.StatusSeeOther, rec.Code, rec.Body.String())
}

// decodeToast reads the showToast payload from the Hx-Trigger header.
func decodeToast(t *testing.T, h http.Header) Toast {
	t.Helper()
	var payload map[string]Toast
	require.NoError(t, json.Unmarshal([]byte(h.Get("Hx-Trigger")), &payload))
	toast, ok := payload["showToast"]
	require.True(t, ok, "showToast event missing")
	return toast
}
