package auth

import (
	"encoding/json"
	"strings"
)

// DeriveRole returns the single role label carried by the first payload that has a
// usable value. Within one payload the order is: object with a name field, plain
// string, then the first element of an array (object with name, then string).
// Empty names and strings are not usable. DefaultRole is returned otherwise.
func DeriveRole(raws ...json.RawMessage) string {
	for _, raw := range raws {
		if role, ok := roleFromRaw(raw); ok {
			return role
		}
	}
	return DefaultRole
}

func roleFromRaw(raw json.RawMessage) (string, bool) {
	if len(raw) == 0 {
		return "", false
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return "", false
	}
	if role, ok := roleFromValue(v); ok {
		return role, true
	}
	if arr, ok := v.([]any); ok && len(arr) > 0 {
		return roleFromValue(arr[0])
	}
	return "", false
}

func roleFromValue(v any) (string, bool) {
	switch t := v.(type) {
	case map[string]any:
		if name, ok := t["name"].(string); ok && strings.TrimSpace(name) != "" {
			return name, true
		}
	case string:
		if strings.TrimSpace(t) != "" {
			return t, true
		}
	}
	return "", false
}

// DisplayName prefers the first name, then the username, then the local part of the email.
func DisplayName(firstName, username, email string) string {
	if firstName != "" {
		return firstName
	}
	if username != "" {
		return username
	}
	local, _, _ := strings.Cut(email, "@")
	return local
}

// NewUser converts backend payloads into the local User shape.
//
// The profile is authoritative; the login response fills in the id, role and
// permissions when the profile omits them. loginEmail is the address the user typed
// and backs both the display name and a missing profile email.
func NewUser(p Profile, login LoginResponse, loginEmail string) User {
	id := p.ID
	if id == 0 {
		id = login.UserID
	}
	email := p.Email
	if email == "" {
		email = loginEmail
	}
	nameEmail := loginEmail
	if nameEmail == "" {
		nameEmail = email
	}

	perms := p.Permissions
	if perms == nil {
		perms = login.Permissions
	}

	return User{
		ID:             id,
		Name:           DisplayName(p.FirstName, p.Username, nameEmail),
		Email:          email,
		FirstName:      p.FirstName,
		LastName:       p.LastName,
		Username:       p.Username,
		Role:           DeriveRole(p.Role, login.Role),
		Permissions:    append([]string{}, perms...),
		CompanyName:    p.CompanyName,
		DepartmentName: p.DepartmentName,
	}
}
