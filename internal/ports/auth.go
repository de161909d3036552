// Package ports defines interfaces (hexagonal ports) for session-related behavior.
// Implementations live in internal/adapters; orchestration in internal/service.
package ports

import (
	"context"

	domainauth "github.com/findash/findash/internal/domain/auth"
)

// BackendClient performs authenticated calls against the finance backend.
// Session credentials are carried by the implementation and never exposed.
type BackendClient interface {
	// Login posts credentials; an auth failure is returned as an InvalidCredentials error.
	Login(ctx context.Context, email, password string) (domainauth.LoginResponse, error)

	// Logout asks the backend to end the session. Failures are absorbed.
	Logout(ctx context.Context)

	// Refresh asks the backend to rotate the session credential.
	Refresh(ctx context.Context) error

	// CurrentUser fetches the raw profile of the signed-in user.
	CurrentUser(ctx context.Context) (domainauth.Profile, error)
}

// UserStore persists the single named user record.
type UserStore interface {
	// Load returns the raw record, or a NotFound error when none is stored.
	Load(ctx context.Context) ([]byte, error)
	Save(ctx context.Context, data []byte) error
	Delete(ctx context.Context) error
}
