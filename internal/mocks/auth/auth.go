// Package auth contains simple hand-written test doubles for the session ports.
// These are lightweight and suitable for unit tests without codegen.
package auth

import (
	"context"
	"encoding/json"
	"sync"

	domainauth "github.com/findash/findash/internal/domain/auth"
	apperrors "github.com/findash/findash/internal/errors"
	"github.com/findash/findash/internal/ports"
)

// Ensure compile-time conformance to ports.
var (
	_ ports.BackendClient = (*FakeBackend)(nil)
	_ ports.UserStore     = (*MemoryUserStore)(nil)
)

// FakeBackend simulates the finance backend with deterministic defaults.
// Set the Func fields to override individual calls.
type FakeBackend struct {
	LoginFunc       func(ctx context.Context, email, password string) (domainauth.LoginResponse, error)
	RefreshFunc     func(ctx context.Context) error
	CurrentUserFunc func(ctx context.Context) (domainauth.Profile, error)

	// DefaultProfile is returned by CurrentUser when no func is set.
	DefaultProfile domainauth.Profile

	mu           sync.Mutex
	logoutCalls  int
	refreshCalls int
	profileCalls int
}

// NewFakeBackend creates a FakeBackend whose profile carries every permission.
func NewFakeBackend() *FakeBackend {
	return &FakeBackend{
		DefaultProfile: domainauth.Profile{
			ID:        1,
			Email:     "mock.user@example.com",
			FirstName: "Mock",
			LastName:  "User",
			Role:      json.RawMessage(`"Admin"`),
			Permissions: []string{
				domainauth.PermViewBudget,
				domainauth.PermViewIncome,
				domainauth.PermViewExpenses,
			},
		},
	}
}

func (f *FakeBackend) Login(ctx context.Context, email, password string) (domainauth.LoginResponse, error) {
	if f.LoginFunc != nil {
		return f.LoginFunc(ctx, email, password)
	}
	if password == "" {
		return domainauth.LoginResponse{}, apperrors.InvalidCredentials("")
	}
	return domainauth.LoginResponse{
		UserID:      f.DefaultProfile.ID,
		Role:        f.DefaultProfile.Role,
		Permissions: f.DefaultProfile.Permissions,
	}, nil
}

func (f *FakeBackend) Logout(_ context.Context) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.logoutCalls++
}

func (f *FakeBackend) Refresh(ctx context.Context) error {
	f.mu.Lock()
	f.refreshCalls++
	f.mu.Unlock()
	if f.RefreshFunc != nil {
		return f.RefreshFunc(ctx)
	}
	return nil
}

func (f *FakeBackend) CurrentUser(ctx context.Context) (domainauth.Profile, error) {
	f.mu.Lock()
	f.profileCalls++
	f.mu.Unlock()
	if f.CurrentUserFunc != nil {
		return f.CurrentUserFunc(ctx)
	}
	return f.DefaultProfile, nil
}

// LogoutCalls returns how many times Logout was invoked.
func (f *FakeBackend) LogoutCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.logoutCalls
}

// RefreshCalls returns how many times Refresh was invoked.
func (f *FakeBackend) RefreshCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.refreshCalls
}

// ProfileCalls returns how many times CurrentUser was invoked.
func (f *FakeBackend) ProfileCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.profileCalls
}

// MemoryUserStore is an in-memory user record store for unit tests.
type MemoryUserStore struct {
	mu      sync.Mutex
	data    []byte
	present bool
	deletes int
}

// NewMemoryUserStore creates an empty store.
func NewMemoryUserStore() *MemoryUserStore {
	return &MemoryUserStore{}
}

// Put seeds the store with a raw record, valid or not.
func (m *MemoryUserStore) Put(data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = append([]byte(nil), data...)
	m.present = true
}

// PutUser seeds the store with a serialized user.
func (m *MemoryUserStore) PutUser(u domainauth.User) {
	b, err := json.Marshal(u)
	if err != nil {
		panic(err)
	}
	m.Put(b)
}

func (m *MemoryUserStore) Load(_ context.Context) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.present {
		return nil, apperrors.NotFound("user record not found")
	}
	return append([]byte(nil), m.data...), nil
}

func (m *MemoryUserStore) Save(_ context.Context, data []byte) error {
	m.Put(data)
	return nil
}

func (m *MemoryUserStore) Delete(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = nil
	m.present = false
	m.deletes++
	return nil
}

// Present reports whether a record is stored.
func (m *MemoryUserStore) Present() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.present
}

// Deletes returns how many times Delete was invoked.
func (m *MemoryUserStore) Deletes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.deletes
}
