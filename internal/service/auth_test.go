package service

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/findash/findash/internal/adapters/backend"
	"github.com/findash/findash/internal/adapters/filestore"
	domainauth "github.com/findash/findash/internal/domain/auth"
	apperrors "github.com/findash/findash/internal/errors"
	"github.com/findash/findash/internal/mocks"
	fakes "github.com/findash/findash/internal/mocks/auth"
	"github.com/findash/findash/internal/testutil/backendtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

// eventLog collects observer notifications.
type eventLog struct {
	mu     sync.Mutex
	events []SessionEvent
}

func (l *eventLog) observe(_ context.Context, ev SessionEvent) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, ev)
}

func (l *eventLog) kinds() []SessionEventKind {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]SessionEventKind, len(l.events))
	for i, ev := range l.events {
		out[i] = ev.Kind
	}
	return out
}

func aliceLogin() domainauth.LoginResponse {
	return domainauth.LoginResponse{
		UserID:      7,
		Role:        json.RawMessage(`"Manager"`),
		Permissions: []string{domainauth.PermViewBudget},
	}
}

func aliceProfile() domainauth.Profile {
	return domainauth.Profile{ID: 7, Email: "alice@example.com"}
}

func TestSessionService_LoginPersistsDerivedUser(t *testing.T) {
	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)

	client := mocks.NewMockBackendClient(ctrl)
	store := fakes.NewMemoryUserStore()
	svc := NewSessionService(SessionServiceOptions{Backend: client, Store: store})

	var events eventLog
	svc.Subscribe(events.observe)

	ctx := context.Background()
	gomock.InOrder(
		client.EXPECT().Login(gomock.Any(), "alice@example.com", "pw").Return(aliceLogin(), nil),
		client.EXPECT().CurrentUser(gomock.Any()).Return(aliceProfile(), nil),
	)

	res, err := svc.Login(ctx, " alice@example.com ", "pw")
	require.NoError(t, err)

	want := domainauth.User{
		ID:          7,
		Name:        "alice",
		Email:       "alice@example.com",
		Role:        "Manager",
		Permissions: []string{"view_budget"},
	}
	assert.Equal(t, want, res.User)

	cached, ok := svc.CurrentUser(ctx)
	require.True(t, ok)
	assert.Equal(t, want, *cached)
	assert.Equal(t, []SessionEventKind{SessionLoggedIn}, events.kinds())
}

func TestSessionService_LoginValidation(t *testing.T) {
	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)

	// No backend calls are expected.
	svc := NewSessionService(SessionServiceOptions{
		Backend: mocks.NewMockBackendClient(ctrl),
		Store:   mocks.NewMockUserStore(ctrl),
	})

	_, err := svc.Login(context.Background(), "  ", "pw")
	assert.True(t, apperrors.IsValidation(err))

	_, err = svc.Login(context.Background(), "alice@example.com", "")
	assert.True(t, apperrors.IsValidation(err))
}

func TestSessionService_LoginErrorsPropagate(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(c *mocks.MockBackendClient)
		checkFn func(error) bool
	}{
		{
			name: "invalid credentials",
			setup: func(c *mocks.MockBackendClient) {
				c.EXPECT().Login(gomock.Any(), gomock.Any(), gomock.Any()).
					Return(domainauth.LoginResponse{}, apperrors.InvalidCredentials("Wrong password"))
			},
			checkFn: apperrors.IsInvalidCredentials,
		},
		{
			name: "profile fetch fails",
			setup: func(c *mocks.MockBackendClient) {
				c.EXPECT().Login(gomock.Any(), gomock.Any(), gomock.Any()).Return(aliceLogin(), nil)
				c.EXPECT().CurrentUser(gomock.Any()).Return(domainauth.Profile{}, apperrors.Upstream(500, ""))
			},
			checkFn: apperrors.IsUpstream,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			t.Cleanup(ctrl.Finish)

			client := mocks.NewMockBackendClient(ctrl)
			store := mocks.NewMockUserStore(ctrl) // Save must not be called
			tt.setup(client)

			svc := NewSessionService(SessionServiceOptions{Backend: client, Store: store})
			_, err := svc.Login(context.Background(), "alice@example.com", "pw")
			require.Error(t, err)
			assert.True(t, tt.checkFn(err))
		})
	}
}

func TestSessionService_LoginSurvivesStoreFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)

	client := mocks.NewMockBackendClient(ctrl)
	store := mocks.NewMockUserStore(ctrl)
	client.EXPECT().Login(gomock.Any(), gomock.Any(), gomock.Any()).Return(aliceLogin(), nil)
	client.EXPECT().CurrentUser(gomock.Any()).Return(aliceProfile(), nil)
	store.EXPECT().Save(gomock.Any(), gomock.Any()).Return(errors.New("disk full"))

	svc := NewSessionService(SessionServiceOptions{Backend: client, Store: store})
	res, err := svc.Login(context.Background(), "alice@example.com", "pw")
	require.NoError(t, err)
	assert.Equal(t, "alice", res.User.Name)
}

func TestSessionService_LogoutAlwaysClears(t *testing.T) {
	backendFake := fakes.NewFakeBackend()
	store := fakes.NewMemoryUserStore()
	store.PutUser(domainauth.User{ID: 1, Email: "a@example.com", Role: "User", Permissions: []string{}})

	svc := NewSessionService(SessionServiceOptions{Backend: backendFake, Store: store})
	var events eventLog
	svc.Subscribe(events.observe)

	svc.Logout(context.Background())

	assert.Equal(t, 1, backendFake.LogoutCalls())
	assert.False(t, store.Present())
	_, ok := svc.CurrentUser(context.Background())
	assert.False(t, ok)
	assert.Equal(t, []SessionEventKind{SessionLoggedOut}, events.kinds())
}

func TestSessionService_LogoutClearsOnNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	baseURL := srv.URL
	srv.Close()

	client, err := backend.New(backend.Options{BaseURL: baseURL})
	require.NoError(t, err)

	store := fakes.NewMemoryUserStore()
	store.PutUser(domainauth.User{ID: 1, Email: "a@example.com", Role: "User", Permissions: []string{}})

	svc := NewSessionService(SessionServiceOptions{Backend: client, Store: store})
	svc.Logout(context.Background())

	_, ok := svc.CurrentUser(context.Background())
	assert.False(t, ok)
}

func TestSessionService_LogoutStoreErrorIsAbsorbed(t *testing.T) {
	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)

	client := mocks.NewMockBackendClient(ctrl)
	store := mocks.NewMockUserStore(ctrl)
	client.EXPECT().Logout(gomock.Any())
	store.EXPECT().Delete(gomock.Any()).Return(errors.New("permission denied"))

	svc := NewSessionService(SessionServiceOptions{Backend: client, Store: store})
	assert.NotPanics(t, func() { svc.Logout(context.Background()) })
}

func TestSessionService_LogoutClearsAfterDeadline(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST "+backend.LogoutPath, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(300 * time.Millisecond):
		}
		w.WriteHeader(http.StatusOK)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	client, err := backend.New(backend.Options{BaseURL: srv.URL})
	require.NoError(t, err)
	store, err := filestore.NewUserStore(t.TempDir(), "user")
	require.NoError(t, err)
	require.NoError(t, store.Save(context.Background(), []byte(`{"id":1,"email":"a@example.com","role":"User","permissions":[]}`)))

	svc := NewSessionService(SessionServiceOptions{Backend: client, Store: store})
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	svc.Logout(ctx)

	require.Error(t, ctx.Err())
	_, err = os.Stat(store.Path())
	assert.True(t, os.IsNotExist(err))
	_, ok := svc.CurrentUser(context.Background())
	assert.False(t, ok)
}

func TestSessionService_ForceLogoutWithCancelledContext(t *testing.T) {
	store, err := filestore.NewUserStore(t.TempDir(), "user")
	require.NoError(t, err)
	require.NoError(t, store.Save(context.Background(), []byte(`{"id":1,"email":"a@example.com","role":"User","permissions":[]}`)))

	svc := NewSessionService(SessionServiceOptions{Backend: fakes.NewFakeBackend(), Store: store})
	var events eventLog
	svc.Subscribe(events.observe)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	svc.ForceLogout(ctx)

	_, err = os.Stat(store.Path())
	assert.True(t, os.IsNotExist(err))
	assert.Equal(t, []SessionEventKind{SessionExpired}, events.kinds())
}

func TestSessionService_CurrentUser(t *testing.T) {
	tests := []struct {
		name        string
		seed        []byte
		wantOK      bool
		wantPresent bool
	}{
		{name: "absent", seed: nil, wantOK: false, wantPresent: false},
		{name: "corrupt json", seed: []byte(`{"id":1,"email":`), wantOK: false, wantPresent: false},
		{name: "missing email", seed: []byte(`{"id":1,"role":"Admin"}`), wantOK: false, wantPresent: false},
		{name: "valid", seed: []byte(`{"id":1,"name":"a","email":"a@example.com","role":"Admin","permissions":["view_income"]}`), wantOK: true, wantPresent: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := fakes.NewMemoryUserStore()
			if tt.seed != nil {
				store.Put(tt.seed)
			}
			svc := NewSessionService(SessionServiceOptions{Backend: fakes.NewFakeBackend(), Store: store})

			u, ok := svc.CurrentUser(context.Background())
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantPresent, store.Present())
			if tt.wantOK {
				require.NotNil(t, u)
				assert.True(t, u.HasPermission(domainauth.PermViewIncome))
			} else {
				assert.Nil(t, u)
			}
		})
	}
}

func TestSessionService_CurrentUserDiscardsUnreadableRecord(t *testing.T) {
	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)

	store := mocks.NewMockUserStore(ctrl)
	store.EXPECT().Load(gomock.Any()).Return(nil, apperrors.CorruptState(errors.New("open sealed record")))
	store.EXPECT().Delete(gomock.Any()).Return(nil)

	svc := NewSessionService(SessionServiceOptions{Backend: fakes.NewFakeBackend(), Store: store})
	u, ok := svc.CurrentUser(context.Background())
	assert.False(t, ok)
	assert.Nil(t, u)
}

func TestSessionService_CurrentUserKeepsRecordOnReadError(t *testing.T) {
	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)

	store := mocks.NewMockUserStore(ctrl)
	store.EXPECT().Load(gomock.Any()).Return(nil, errors.New("connection refused"))

	svc := NewSessionService(SessionServiceOptions{Backend: fakes.NewFakeBackend(), Store: store})
	_, ok := svc.CurrentUser(context.Background())
	assert.False(t, ok)
}

func TestSessionService_CorruptFileRecord(t *testing.T) {
	dir := t.TempDir()
	store, err := filestore.NewUserStore(dir, "user")
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(store.Path(), []byte("not json"), 0o600))

	svc := NewSessionService(SessionServiceOptions{Backend: fakes.NewFakeBackend(), Store: store})
	_, ok := svc.CurrentUser(context.Background())
	assert.False(t, ok)

	_, err = os.Stat(store.Path())
	assert.True(t, os.IsNotExist(err))
}

func TestSessionService_CurrentUserDefaultsMissingFields(t *testing.T) {
	store := fakes.NewMemoryUserStore()
	store.Put([]byte(`{"id":3,"name":"bob","email":"bob@example.com"}`))
	svc := NewSessionService(SessionServiceOptions{Backend: fakes.NewFakeBackend(), Store: store})

	u, ok := svc.CurrentUser(context.Background())
	require.True(t, ok)
	assert.Equal(t, domainauth.DefaultRole, u.Role)
	assert.NotNil(t, u.Permissions)
	assert.Empty(t, u.Permissions)
}

func TestSessionService_IsAuthenticated(t *testing.T) {
	fake := fakes.NewFakeBackend()
	svc := NewSessionService(SessionServiceOptions{Backend: fake, Store: fakes.NewMemoryUserStore()})
	assert.True(t, svc.IsAuthenticated(context.Background()))

	fake.CurrentUserFunc = func(context.Context) (domainauth.Profile, error) {
		return domainauth.Profile{}, apperrors.Network(errors.New("refused"))
	}
	assert.False(t, svc.IsAuthenticated(context.Background()))
}

func TestSessionService_Profile(t *testing.T) {
	fake := fakes.NewFakeBackend()
	store := fakes.NewMemoryUserStore()
	svc := NewSessionService(SessionServiceOptions{Backend: fake, Store: store})

	u, err := svc.Profile(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Mock", u.Name)
	assert.Equal(t, domainauth.RoleAdmin, u.Role)
	assert.False(t, store.Present(), "profile lookups never persist")
}

func TestSessionService_Restore(t *testing.T) {
	cached := domainauth.User{ID: 1, Name: "Mock", Email: "mock.user@example.com", Role: "Admin", Permissions: []string{}}

	t.Run("valid session is kept", func(t *testing.T) {
		store := fakes.NewMemoryUserStore()
		store.PutUser(cached)
		svc := NewSessionService(SessionServiceOptions{Backend: fakes.NewFakeBackend(), Store: store})

		u, ok := svc.Restore(context.Background())
		require.True(t, ok)
		assert.Equal(t, cached, *u)
		assert.True(t, store.Present())
	})

	t.Run("rejected session is cleared", func(t *testing.T) {
		fake := fakes.NewFakeBackend()
		fake.CurrentUserFunc = func(context.Context) (domainauth.Profile, error) {
			return domainauth.Profile{}, apperrors.SessionExpired(nil)
		}
		store := fakes.NewMemoryUserStore()
		store.PutUser(cached)
		svc := NewSessionService(SessionServiceOptions{Backend: fake, Store: store})

		u, ok := svc.Restore(context.Background())
		assert.False(t, ok)
		assert.Nil(t, u)
		assert.False(t, store.Present())
	})

	t.Run("interrupted check keeps the record", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		fake := fakes.NewFakeBackend()
		fake.CurrentUserFunc = func(ctx context.Context) (domainauth.Profile, error) {
			cancel()
			return domainauth.Profile{}, apperrors.Network(ctx.Err())
		}
		store := fakes.NewMemoryUserStore()
		store.PutUser(cached)
		svc := NewSessionService(SessionServiceOptions{Backend: fake, Store: store})

		u, ok := svc.Restore(ctx)
		assert.False(t, ok)
		assert.Nil(t, u)
		assert.True(t, store.Present())
		assert.Equal(t, 0, store.Deletes())
	})

	t.Run("no cached user skips the check", func(t *testing.T) {
		fake := fakes.NewFakeBackend()
		svc := NewSessionService(SessionServiceOptions{Backend: fake, Store: fakes.NewMemoryUserStore()})

		_, ok := svc.Restore(context.Background())
		assert.False(t, ok)
		assert.Equal(t, 0, fake.ProfileCalls())
	})
}

func TestSessionService_ForceLogoutIsIdempotent(t *testing.T) {
	fake := fakes.NewFakeBackend()
	store := fakes.NewMemoryUserStore()
	store.PutUser(domainauth.User{ID: 1, Email: "a@example.com", Role: "User", Permissions: []string{}})
	svc := NewSessionService(SessionServiceOptions{Backend: fake, Store: store})

	svc.ForceLogout(context.Background())
	svc.ForceLogout(context.Background())

	assert.False(t, store.Present())
	assert.Equal(t, 0, fake.LogoutCalls(), "forced logout never calls the backend")
}

// The end-to-end scenario: login against a cookie backend, then a failed refresh
// forces a logout, repeatedly and without loops.
func TestSessionService_EndToEndWithBackend(t *testing.T) {
	srv := backendtest.New(t)
	srv.AddAccount("alice@example.com", backendtest.Account{
		Password: "pw",
		Login:    json.RawMessage(`{"user_id":7,"role":"Manager","permissions":["view_budget"]}`),
		Profile:  json.RawMessage(`{"id":7,"email":"alice@example.com","first_name":"","username":""}`),
	})

	client, err := backend.New(backend.Options{BaseURL: srv.URL})
	require.NoError(t, err)
	store := fakes.NewMemoryUserStore()
	svc := NewSessionService(SessionServiceOptions{Backend: client, Store: store})
	client.OnSessionExpired(svc.ForceLogout)

	var events eventLog
	svc.Subscribe(events.observe)

	ctx := context.Background()
	res, err := svc.Login(ctx, "alice@example.com", "pw")
	require.NoError(t, err)
	assert.Equal(t, "alice", res.User.Name)
	assert.Equal(t, "Manager", res.User.Role)
	assert.Equal(t, []string{"view_budget"}, res.User.Permissions)

	// Silent refresh keeps the session alive.
	srv.ExpireAccess()
	assert.True(t, svc.IsAuthenticated(ctx))
	assert.Equal(t, 1, srv.Hits(backend.RefreshPath))
	assert.True(t, store.Present())

	// A failing refresh clears the local user exactly once per attempt.
	srv.ExpireAccess()
	srv.FailRefresh(true)
	for range 2 {
		assert.False(t, svc.IsAuthenticated(ctx))
		_, ok := svc.CurrentUser(ctx)
		assert.False(t, ok)
	}
	assert.Equal(t, 3, srv.Hits(backend.RefreshPath))
	assert.Equal(t, []SessionEventKind{SessionLoggedIn, SessionExpired, SessionExpired}, events.kinds())

	// Wrong password surfaces the backend message.
	_, err = svc.Login(ctx, "alice@example.com", "nope")
	require.Error(t, err)
	assert.Equal(t, "No active account found with the given credentials", apperrors.UserMessage(err))
}
