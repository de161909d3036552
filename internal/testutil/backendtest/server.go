// Package backendtest runs an in-process finance backend for tests. It issues
// opaque session cookies, rotates them on refresh and can be told to expire
// sessions or reject refreshes.
package backendtest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"

	"github.com/google/uuid"
)

// Cookie names issued by the server.
const (
	AccessCookie  = "access_token"
	RefreshCookie = "refresh_token"
)

// Account is a user the server accepts.
type Account struct {
	Password string
	// Login is the JSON body returned by a successful login.
	Login json.RawMessage
	// Profile is the JSON body returned by /api/users/me/.
	Profile json.RawMessage
}

// Server is a fake finance backend.
type Server struct {
	*httptest.Server

	mu            sync.Mutex
	accounts      map[string]Account
	access        map[string]string // access token -> email
	refresh       map[string]string // refresh token -> email
	refreshFails  bool
	rejectMe      int // remaining /me requests answered 401 regardless of cookies
	hits          map[string]int
	requestIDs    map[string][]string
}

// New starts a server; it is closed when the test ends.
func New(t interface{ Cleanup(func()) }) *Server {
	s := &Server{
		accounts:   map[string]Account{},
		access:     map[string]string{},
		refresh:    map[string]string{},
		hits:       map[string]int{},
		requestIDs: map[string][]string{},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/auth/login/", s.handleLogin)
	mux.HandleFunc("POST /api/auth/logout/", s.handleLogout)
	mux.HandleFunc("POST /api/auth/refresh/", s.handleRefresh)
	mux.HandleFunc("GET /api/users/me/", s.handleMe)

	s.Server = httptest.NewServer(s.track(mux))
	t.Cleanup(s.Close)
	return s
}

// AddAccount registers a user.
func (s *Server) AddAccount(email string, a Account) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts[email] = a
}

// ExpireAccess invalidates every access token; refresh tokens stay valid.
func (s *Server) ExpireAccess() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.access = map[string]string{}
}

// FailRefresh makes every refresh attempt answer 401.
func (s *Server) FailRefresh(fail bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refreshFails = fail
}

// RejectMe makes the next n profile requests answer 401 even with a valid cookie.
func (s *Server) RejectMe(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rejectMe = n
}

// Hits returns how many requests reached path.
func (s *Server) Hits(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits[path]
}

// RequestIDs returns the X-Request-ID values seen on path, in arrival order.
func (s *Server) RequestIDs(path string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.requestIDs[path]...)
}

// Sessions returns the number of live access tokens.
func (s *Server) Sessions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.access)
}

func (s *Server) track(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.hits[r.URL.Path]++
		s.requestIDs[r.URL.Path] = append(s.requestIDs[r.URL.Path], r.Header.Get("X-Request-ID"))
		s.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "Malformed request"})
		return
	}

	s.mu.Lock()
	acct, ok := s.accounts[body.Email]
	if !ok || acct.Password != body.Password {
		s.mu.Unlock()
		writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "No active account found with the given credentials"})
		return
	}
	accessToken, refreshToken := uuid.NewString(), uuid.NewString()
	s.access[accessToken] = body.Email
	s.refresh[refreshToken] = body.Email
	s.mu.Unlock()

	setCookie(w, AccessCookie, accessToken)
	setCookie(w, RefreshCookie, refreshToken)
	writeRaw(w, http.StatusOK, acct.Login)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	if c, err := r.Cookie(AccessCookie); err == nil {
		delete(s.access, c.Value)
	}
	if c, err := r.Cookie(RefreshCookie); err == nil {
		delete(s.refresh, c.Value)
	}
	s.mu.Unlock()

	clearCookie(w, AccessCookie)
	clearCookie(w, RefreshCookie)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, err := r.Cookie(RefreshCookie)
	if err != nil || s.refreshFails {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Token is invalid or expired"})
		return
	}
	email, ok := s.refresh[c.Value]
	if !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Token is invalid or expired"})
		return
	}

	accessToken := uuid.NewString()
	s.access[accessToken] = email
	setCookie(w, AccessCookie, accessToken)
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	if s.rejectMe > 0 {
		s.rejectMe--
		s.mu.Unlock()
		writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Authentication credentials were not provided."})
		return
	}

	var email string
	if c, err := r.Cookie(AccessCookie); err == nil {
		email = s.access[c.Value]
	}
	acct, ok := s.accounts[email]
	s.mu.Unlock()

	if email == "" || !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Authentication credentials were not provided."})
		return
	}
	writeRaw(w, http.StatusOK, acct.Profile)
}

func setCookie(w http.ResponseWriter, name, value string) {
	http.SetCookie(w, &http.Cookie{Name: name, Value: value, Path: "/", HttpOnly: true})
}

func clearCookie(w http.ResponseWriter, name string) {
	http.SetCookie(w, &http.Cookie{Name: name, Value: "", Path: "/", MaxAge: -1, HttpOnly: true})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeRaw(w http.ResponseWriter, status int, body json.RawMessage) {
	if len(body) == 0 {
		body = json.RawMessage(`{}`)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}
