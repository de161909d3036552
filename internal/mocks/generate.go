// Package mocks provides mock implementations for testing the dashboard session layer.
//
// This package uses go.uber.org/mock (gomock) to generate type-safe mocks for the port interfaces.
// The mocks are generated using go:generate directives and provide a fluent API for setting up test expectations.
//
// To regenerate mocks after interface changes, run:
//
//	go generate ./internal/mocks
//
// Usage in tests:
//
//	ctrl := gomock.NewController(t)
//	defer ctrl.Finish()
//	backend := mocks.NewMockBackendClient(ctrl)
//	backend.EXPECT().Refresh(gomock.Any()).Return(nil)
package mocks

// Generate mock for BackendClient interface from internal/ports package.
// This creates MockBackendClient with methods for all BackendClient interface methods:
// Login, Logout, Refresh, CurrentUser
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=backend_client_mock.go github.com/findash/findash/internal/ports BackendClient

// Generate mock for UserStore interface from internal/ports package.
// This creates MockUserStore with methods for all UserStore interface methods:
// Load, Save, Delete
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=user_store_mock.go github.com/findash/findash/internal/ports UserStore
