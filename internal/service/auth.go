package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	domainauth "github.com/findash/findash/internal/domain/auth"
	apperrors "github.com/findash/findash/internal/errors"
	"github.com/findash/findash/internal/ports"
)

// recordCleanupTimeout bounds local record deletion once it is detached from the
// caller's context.
const recordCleanupTimeout = 5 * time.Second

// SessionEventKind identifies a change in the local session.
type SessionEventKind string

const (
	SessionLoggedIn  SessionEventKind = "logged_in"
	SessionLoggedOut SessionEventKind = "logged_out"
	SessionExpired   SessionEventKind = "expired"
)

// SessionEvent is delivered to observers after the user record changes.
type SessionEvent struct {
	Kind SessionEventKind
	// User is set for SessionLoggedIn.
	User *domainauth.User
}

// SessionObserver is notified of session changes. It must not call back into the
// service synchronously with a store-mutating method.
type SessionObserver func(ctx context.Context, ev SessionEvent)

// SessionServiceOptions groups dependencies for SessionService.
type SessionServiceOptions struct {
	Backend ports.BackendClient
	Store   ports.UserStore
	Logger  *slog.Logger
}

// SessionService owns the signed-in user: it logs in and out against the backend
// and is the only writer of the persisted user record.
type SessionService struct {
	backend ports.BackendClient
	store   ports.UserStore
	logger  *slog.Logger

	// mu serialises record reads and writes.
	mu sync.Mutex

	obsMu     sync.RWMutex
	observers []SessionObserver
}

// LoginResult contains the result of a successful login.
type LoginResult struct {
	User domainauth.User
}

// NewSessionService constructs a new SessionService.
func NewSessionService(opts SessionServiceOptions) *SessionService {
	return &SessionService{
		backend: opts.Backend,
		store:   opts.Store,
		logger:  opts.Logger,
	}
}

func (s *SessionService) log() *slog.Logger {
	if s.logger != nil {
		return s.logger
	}
	return slog.Default()
}

// Subscribe registers an observer for session events.
func (s *SessionService) Subscribe(fn SessionObserver) {
	if fn == nil {
		return
	}
	s.obsMu.Lock()
	defer s.obsMu.Unlock()
	s.observers = append(s.observers, fn)
}

func (s *SessionService) notify(ctx context.Context, ev SessionEvent) {
	s.obsMu.RLock()
	observers := append([]SessionObserver(nil), s.observers...)
	s.obsMu.RUnlock()
	for _, fn := range observers {
		fn(ctx, ev)
	}
}

// Login authenticates against the backend, fetches the profile and persists the
// derived user. Backend errors propagate unchanged.
func (s *SessionService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, apperrors.Validation("Email is required")
	}
	if password == "" {
		return nil, apperrors.Validation("Password is required")
	}

	loginResp, err := s.backend.Login(ctx, email, password)
	if err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}

	profile, err := s.backend.CurrentUser(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch profile: %w", err)
	}

	user := domainauth.NewUser(profile, loginResp, email)
	if err := s.save(ctx, user); err != nil {
		// The record is only a startup hint; the backend session is already live.
		s.log().WarnContext(ctx, "persist user record failed", "error", err)
	}

	s.log().InfoContext(ctx, "user logged in", "user_id", user.ID, "role", user.Role)
	s.log().DebugContext(ctx, "login details", "email", user.Email, "permissions", user.Permissions)
	snapshot := user.Clone()
	s.notify(ctx, SessionEvent{Kind: SessionLoggedIn, User: &snapshot})

	return &LoginResult{User: user}, nil
}

// Logout ends the remote session on a best-effort basis and always removes the
// local record.
func (s *SessionService) Logout(ctx context.Context) {
	s.backend.Logout(ctx)
	s.clear(ctx)
	s.log().InfoContext(ctx, "user logged out")
	s.notify(ctx, SessionEvent{Kind: SessionLoggedOut})
}

// ForceLogout clears the local record without contacting the backend. It runs when
// the backend client gives up on a session and is safe to call repeatedly.
func (s *SessionService) ForceLogout(ctx context.Context) {
	s.clear(ctx)
	s.log().InfoContext(ctx, "session expired, local user cleared")
	s.notify(ctx, SessionEvent{Kind: SessionExpired})
}

// CurrentUser returns the persisted user. A missing or unreadable record yields
// (nil, false); a corrupt one is also removed.
func (s *SessionService) CurrentUser(ctx context.Context) (*domainauth.User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := s.store.Load(ctx)
	if err != nil && !apperrors.IsCorruptState(err) {
		if !apperrors.IsNotFound(err) {
			s.log().WarnContext(ctx, "load user record failed", "error", err)
		}
		return nil, false
	}

	var user *domainauth.User
	if err == nil {
		user, err = decodeUser(raw)
	}
	if err != nil {
		s.log().WarnContext(ctx, "discarding cached user record", "error", err)
		cctx, cancel := cleanupContext(ctx)
		defer cancel()
		if delErr := s.store.Delete(cctx); delErr != nil {
			s.log().WarnContext(ctx, "delete corrupt user record failed", "error", delErr)
		}
		return nil, false
	}
	return user, true
}

// IsAuthenticated asks the backend for the profile; any failure counts as not authenticated.
func (s *SessionService) IsAuthenticated(ctx context.Context) bool {
	if _, err := s.backend.CurrentUser(ctx); err != nil {
		s.log().DebugContext(ctx, "authentication check failed", "error", err)
		return false
	}
	return true
}

// Profile fetches the signed-in user's profile from the backend without touching
// the local record.
func (s *SessionService) Profile(ctx context.Context) (*domainauth.User, error) {
	p, err := s.backend.CurrentUser(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch profile: %w", err)
	}
	user := domainauth.NewUser(p, domainauth.LoginResponse{}, "")
	return &user, nil
}

// Restore is the startup check: a cached user is kept only if the backend still
// accepts the session; otherwise the record is cleared. A check cut short by ctx
// leaves the record in place.
func (s *SessionService) Restore(ctx context.Context) (*domainauth.User, bool) {
	user, ok := s.CurrentUser(ctx)
	if !ok {
		return nil, false
	}
	if !s.IsAuthenticated(ctx) {
		if ctx.Err() != nil {
			s.log().InfoContext(ctx, "session check interrupted, keeping cached user", "user_id", user.ID)
			return nil, false
		}
		s.clear(ctx)
		s.log().InfoContext(ctx, "cached session no longer valid", "user_id", user.ID)
		return nil, false
	}
	return user, true
}

func (s *SessionService) save(ctx context.Context, user domainauth.User) error {
	data, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("encode user record: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.store.Save(ctx, data); err != nil {
		return fmt.Errorf("save user record: %w", err)
	}
	return nil
}

// clear removes the record even when ctx is already done.
func (s *SessionService) clear(ctx context.Context) {
	cctx, cancel := cleanupContext(ctx)
	defer cancel()
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.store.Delete(cctx); err != nil {
		s.log().WarnContext(ctx, "delete user record failed", "error", err)
	}
}

func cleanupContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), recordCleanupTimeout)
}

func decodeUser(raw []byte) (*domainauth.User, error) {
	var u domainauth.User
	if err := json.Unmarshal(raw, &u); err != nil {
		return nil, apperrors.CorruptState(err)
	}
	if err := u.Validate(); err != nil {
		return nil, apperrors.CorruptState(err)
	}
	if u.Permissions == nil {
		u.Permissions = []string{}
	}
	if u.Role == "" {
		u.Role = domainauth.DefaultRole
	}
	return &u, nil
}
