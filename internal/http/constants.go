package httpx

import domainauth "github.com/findash/findash/internal/domain/auth"

// Route paths.
const (
	HomePath       = "/"
	LoginPath      = "/login"
	LogoutPath     = "/logout"
	AuthStatusPath = "/auth/status"
	IncomePath     = "/income"
	BudgetPath     = "/budget"
	ExpensesPath   = "/expenses"
)

// CurrentPage identifiers used by templates. The finance pages reuse the
// domain page names.
const (
	PageLogin     = "login"
	PageChecking  = "checking"
	PageForbidden = "forbidden"
	PageNotFound  = "not-found"
	PageDashboard = string(domainauth.PageDashboard)
	PageIncome    = string(domainauth.PageIncome)
	PageBudget    = string(domainauth.PageBudget)
	PageExpenses  = string(domainauth.PageExpenses)
)

// AppTitle is the header shown on every page.
const AppTitle = "Finance Management System"

// Template paths used for loading templates in tests and production.
const (
	TemplatePathFromRoot = "frontend/templates"
	TemplatePathFromTest = "../../frontend/templates"
)

// Max form field lengths.
const (
	maxEmailLen = 254
)
