package auth

// Page identifies a dashboard section.
type Page string

const (
	PageDashboard Page = "dashboard"
	PageIncome    Page = "income"
	PageBudget    Page = "budget"
	PageExpenses  Page = "expenses"
)

// NavItem is one sidebar entry and the permission that reveals it.
type NavItem struct {
	Page       Page
	Label      string
	Path       string
	Permission string
}

//nolint:gochecknoglobals // static read-only navigation table
var navItems = []NavItem{
	{Page: PageDashboard, Label: "Dashboard", Path: "/", Permission: PermViewBudget},
	{Page: PageIncome, Label: "Income", Path: "/income", Permission: PermViewIncome},
	{Page: PageBudget, Label: "Budget", Path: "/budget", Permission: PermViewBudget},
	{Page: PageExpenses, Label: "Expenses", Path: "/expenses", Permission: PermViewExpenses},
}

// Navigation returns the sidebar entries visible to the user, in display order.
func Navigation(u User) []NavItem {
	out := make([]NavItem, 0, len(navItems))
	for _, item := range navItems {
		if u.HasPermission(item.Permission) {
			out = append(out, item)
		}
	}
	return out
}

// CanView reports whether the page's navigation entry is visible to the user.
func CanView(u User, page Page) bool {
	for _, item := range navItems {
		if item.Page == page {
			return u.HasPermission(item.Permission)
		}
	}
	return false
}

// CanManageIncome reports whether income rows may be added or edited.
func CanManageIncome(u User) bool { return u.Role == RoleAdmin }

// CanManageBudget reports whether budgets may be added or edited.
func CanManageBudget(u User) bool { return u.Role == RoleAdmin || u.Role == RoleManager }

// CanEditExpenses reports whether existing expenses may be edited or deleted.
// Adding an expense is open to every signed-in user.
func CanEditExpenses(u User) bool { return u.Role == RoleAdmin || u.Role == RoleManager }

// FeatureAccess is the role matrix for the finance sections, independent of
// permission tokens.
func FeatureAccess(role string, page Page) bool {
	switch role {
	case RoleAdmin:
		return true
	case RoleManager:
		return page == PageIncome || page == PageBudget || page == PageExpenses
	case RoleUser:
		return page == PageBudget || page == PageExpenses
	default:
		return false
	}
}

// AccessibleFeatures lists the finance sections the role matrix grants.
func AccessibleFeatures(role string) []Page {
	var out []Page
	for _, p := range []Page{PageIncome, PageBudget, PageExpenses} {
		if FeatureAccess(role, p) {
			out = append(out, p)
		}
	}
	return out
}

// Label returns the display name of the page.
func (p Page) Label() string {
	for _, item := range navItems {
		if item.Page == p {
			return item.Label
		}
	}
	return string(p)
}
