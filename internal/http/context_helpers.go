package httpx

import (
	"context"

	domainauth "github.com/findash/findash/internal/domain/auth"
)

// userKey is an unexported context key type to avoid collisions across packages.
type userKey struct{}

// SetUserInContext returns a child context that carries a copy of the given user.
// If user is nil, the original ctx is returned unchanged.
func SetUserInContext(ctx context.Context, user *domainauth.User) context.Context {
	if user == nil {
		return ctx
	}
	cp := user.Clone()
	return context.WithValue(ctx, userKey{}, &cp)
}

// GetUserFromContext returns the signed-in user and whether one is present.
func GetUserFromContext(ctx context.Context) (*domainauth.User, bool) {
	if u, ok := ctx.Value(userKey{}).(*domainauth.User); ok && u != nil {
		return u, true
	}
	return nil, false
}
