// Package auth contains domain-level types for the dashboard user and its session.
// It is pure and free of framework/adapter concerns.
package auth

import (
	"encoding/json"
	"errors"
	"strings"
)

// Role labels understood by the dashboard. The backend may send any label;
// these are the ones the pages act on.
const (
	RoleAdmin   = "Admin"
	RoleManager = "Manager"
	RoleUser    = "User"

	// DefaultRole is used when no usable role value exists in a backend payload.
	DefaultRole = RoleUser
)

// Permission tokens gating navigation items.
const (
	PermViewBudget   = "view_budget"
	PermViewIncome   = "view_income"
	PermViewExpenses = "view_expenses"
)

// User is the locally cached profile of the signed-in user.
// It is also the exact shape of the persisted session record.
type User struct {
	ID             int64    `json:"id"`
	Name           string   `json:"name"`
	Email          string   `json:"email"`
	FirstName      string   `json:"first_name,omitempty"`
	LastName       string   `json:"last_name,omitempty"`
	Username       string   `json:"username,omitempty"`
	Role           string   `json:"role"`
	Permissions    []string `json:"permissions"`
	CompanyName    string   `json:"company_name,omitempty"`
	DepartmentName string   `json:"department_name,omitempty"`
}

var errEmailRequired = errors.New("user email is required")

// Validate reports whether the record is usable as a session user.
func (u User) Validate() error {
	if strings.TrimSpace(u.Email) == "" {
		return errEmailRequired
	}
	return nil
}

// HasPermission reports whether the user carries the capability token.
func (u User) HasPermission(perm string) bool {
	for _, p := range u.Permissions {
		if p == perm {
			return true
		}
	}
	return false
}

// Clone returns a deep copy so callers can hold a snapshot without sharing the slice.
func (u User) Clone() User {
	cp := u
	cp.Permissions = append([]string{}, u.Permissions...)
	return cp
}

// LoginResponse is the body returned by the backend login endpoint.
type LoginResponse struct {
	UserID      int64           `json:"user_id"`
	Role        json.RawMessage `json:"role"`
	Permissions []string        `json:"permissions"`
}

// Profile is the raw current-user payload. Role may be a string, an object with
// a name field, or an array of either, so it is kept undecoded.
type Profile struct {
	ID             int64           `json:"id"`
	Email          string          `json:"email"`
	FirstName      string          `json:"first_name"`
	LastName       string          `json:"last_name"`
	Username       string          `json:"username"`
	Role           json.RawMessage `json:"role"`
	Permissions    []string        `json:"permissions"`
	CompanyName    string          `json:"company_name"`
	DepartmentName string          `json:"department_name"`
}
