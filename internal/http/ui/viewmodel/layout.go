// Package viewmodel defines the data shapes shared by every rendered page.
package viewmodel

// User is the signed-in user as shown in the sidebar.
type User struct {
	Name     string
	Email    string
	Role     string
	Initials string
}

// NavItem is one sidebar link.
type NavItem struct {
	Label  string
	Path   string
	Active bool
}

// Layout captures shared chrome metadata (titles, navigation state, auth flags).
type Layout struct {
	Title           string
	PageTitle       string
	CurrentPage     string
	CSRFToken       string
	IsAuthenticated bool
	User            *User
	Nav             []NavItem
	// ErrorMessage replaces the page content when set.
	ErrorMessage string
	// Refresh, when positive, asks the browser to reload after that many seconds.
	Refresh int
}

// LayoutData lets page structs that embed Layout satisfy LayoutProvider.
func (l *Layout) LayoutData() *Layout { return l }

// LayoutProvider exposes layout metadata for renderer utilities.
type LayoutProvider interface {
	LayoutData() *Layout
}
