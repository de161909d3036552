package httpx

import (
	"context"
	"log/slog"
	"sync"
	"time"

	domainauth "github.com/findash/findash/internal/domain/auth"
	"github.com/findash/findash/internal/service"
)

// AuthState is the shell's view of the signed-in session.
type AuthState string

const (
	StateCheckingAuth  AuthState = "checking"
	StateAuthenticated AuthState = "authenticated"
	StateAnonymous     AuthState = "anonymous"
)

// DefaultCheckWait bounds how long a request waits for the startup check before
// the checking view is rendered instead.
const DefaultCheckWait = 2 * time.Second

// SessionManager is the subset of the session service the shell and handlers use.
type SessionManager interface {
	Login(ctx context.Context, email, password string) (*service.LoginResult, error)
	Logout(ctx context.Context)
	Restore(ctx context.Context) (*domainauth.User, bool)
	Subscribe(fn service.SessionObserver)
}

var _ SessionManager = (*service.SessionService)(nil)

// Shell tracks which top-level view the dashboard shows. It starts in
// StateCheckingAuth and leaves it once Init has re-validated the cached user.
type Shell struct {
	svc       SessionManager
	logger    *slog.Logger
	checkWait time.Duration

	mu    sync.RWMutex
	state AuthState
	user  *domainauth.User

	once  sync.Once
	ready chan struct{}
}

// ShellOptions groups dependencies for NewShell.
type ShellOptions struct {
	Sessions  SessionManager
	Logger    *slog.Logger
	CheckWait time.Duration
}

// NewShell constructs a shell and subscribes it to session events.
func NewShell(opts ShellOptions) *Shell {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	wait := opts.CheckWait
	if wait <= 0 {
		wait = DefaultCheckWait
	}
	s := &Shell{
		svc:       opts.Sessions,
		logger:    logger,
		checkWait: wait,
		state:     StateCheckingAuth,
		ready:     make(chan struct{}),
	}
	s.svc.Subscribe(s.onSessionEvent)
	return s
}

// Init runs the startup check once. Later calls return immediately.
func (s *Shell) Init(ctx context.Context) {
	s.once.Do(func() {
		defer close(s.ready)
		user, ok := s.svc.Restore(ctx)

		s.mu.Lock()
		defer s.mu.Unlock()
		// A login that completed during the check wins over a stale result.
		if s.state != StateCheckingAuth {
			return
		}
		if ok {
			s.setAuthenticated(user)
			s.logger.InfoContext(ctx, "restored session", "user_id", user.ID, "role", user.Role)
			return
		}
		s.setAnonymous()
		s.logger.InfoContext(ctx, "no active session")
	})
}

// Ready is closed once the startup check has finished.
func (s *Shell) Ready() <-chan struct{} { return s.ready }

// Snapshot returns the current state and a copy of the user, if any.
func (s *Shell) Snapshot() (AuthState, *domainauth.User) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return s.state, nil
	}
	cp := s.user.Clone()
	return s.state, &cp
}

// Await waits for the startup check, bounded by ctx and the configured wait,
// and returns the resulting snapshot. It reports StateCheckingAuth if the check
// is still running.
func (s *Shell) Await(ctx context.Context) (AuthState, *domainauth.User) {
	timer := time.NewTimer(s.checkWait)
	defer timer.Stop()
	select {
	case <-s.ready:
	case <-timer.C:
	case <-ctx.Done():
	}
	return s.Snapshot()
}

func (s *Shell) onSessionEvent(ctx context.Context, ev service.SessionEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch ev.Kind {
	case service.SessionLoggedIn:
		s.setAuthenticated(ev.User)
	case service.SessionLoggedOut, service.SessionExpired:
		if s.state == StateAuthenticated {
			s.logger.InfoContext(ctx, "shell signed out", "reason", string(ev.Kind))
		}
		s.setAnonymous()
	}
}

func (s *Shell) setAuthenticated(user *domainauth.User) {
	if user == nil {
		s.setAnonymous()
		return
	}
	cp := user.Clone()
	s.state = StateAuthenticated
	s.user = &cp
}

func (s *Shell) setAnonymous() {
	s.state = StateAnonymous
	s.user = nil
}
