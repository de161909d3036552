package httpx

import (
	"context"
	"fmt"
	"net/http"

	domainauth "github.com/findash/findash/internal/domain/auth"
	"github.com/findash/findash/internal/domain/finance"
	"github.com/findash/findash/internal/http/ui/viewmodel"
)

// featureAccess is one row of the role summary on the dashboard.
type featureAccess struct {
	Label   string
	Path    string
	Allowed bool
	// Visible is true when the sidebar links to the section.
	Visible bool
}

type dashboardData struct {
	viewmodel.Layout
	Headline   finance.Headline
	Features   []featureAccess
	Totals     financeTotals
	OverBudget []finance.Budget
}

// financeTotals are computed from the records, unlike the fixed headline.
type financeTotals struct {
	Income    int64
	Budget    int64
	Spent     int64
	Remaining int64
	Expenses  int64
}

// records is one consistent read of every finance list.
type records struct {
	Incomes  []finance.Income
	Budgets  []finance.Budget
	Expenses []finance.Expense
}

// loadRecords reads the three finance lists in order, stopping at the first error.
func loadRecords(ctx context.Context, src finance.Source) (records, error) {
	var (
		out records
		err error
	)
	if out.Incomes, err = src.Incomes(ctx); err != nil {
		return records{}, fmt.Errorf("load incomes: %w", err)
	}
	if out.Budgets, err = src.Budgets(ctx); err != nil {
		return records{}, fmt.Errorf("load budgets: %w", err)
	}
	if out.Expenses, err = src.Expenses(ctx); err != nil {
		return records{}, fmt.Errorf("load expenses: %w", err)
	}
	return out, nil
}

// Home serves "/": the dashboard for a signed-in user, the login view otherwise.
func (h *UIHandlers) Home(w http.ResponseWriter, r *http.Request) {
	state, user := h.Shell.Await(r.Context())
	switch state {
	case StateCheckingAuth:
		h.Checking(w, r)
	case StateAnonymous:
		h.renderLogin(w, r, http.StatusOK, loginForm{})
	default:
		h.Dashboard(w, r.WithContext(SetUserInContext(r.Context(), user)))
	}
}

// Dashboard renders the overview. It is the landing view for every signed-in
// user, whether or not the Dashboard link is in their sidebar.
func (h *UIHandlers) Dashboard(w http.ResponseWriter, r *http.Request) {
	user := h.requestUser(r)
	h.Page(w, r, PageSpec{
		Meta: PageMeta{Title: "Dashboard", CurrentPage: PageDashboard},
		Fetch: func(ctx context.Context, layout viewmodel.Layout) (viewmodel.LayoutProvider, error) {
			recs, err := loadRecords(ctx, h.Finance)
			if err != nil {
				return nil, err
			}
			amount, spent, remaining := finance.BudgetTotals(recs.Budgets)
			data := &dashboardData{
				Layout:   layout,
				Headline: h.Finance.Headline(),
				Features: roleSummary(user),
				Totals: financeTotals{
					Income:    finance.TotalIncome(recs.Incomes),
					Budget:    amount,
					Spent:     spent,
					Remaining: remaining,
					Expenses:  finance.TotalExpenses(recs.Expenses),
				},
			}
			for _, b := range recs.Budgets {
				if b.OverBudget() {
					data.OverBudget = append(data.OverBudget, b)
				}
			}
			return data, nil
		},
	})
}

// roleSummary lists the finance sections with the role matrix verdict and
// whether the user's permissions expose them.
func roleSummary(user domainauth.User) []featureAccess {
	sections := []struct {
		page domainauth.Page
		path string
	}{
		{domainauth.PageIncome, IncomePath},
		{domainauth.PageBudget, BudgetPath},
		{domainauth.PageExpenses, ExpensesPath},
	}
	out := make([]featureAccess, len(sections))
	for i, s := range sections {
		out[i] = featureAccess{
			Label:   s.page.Label(),
			Path:    s.path,
			Allowed: domainauth.FeatureAccess(user.Role, s.page),
			Visible: domainauth.CanView(user, s.page),
		}
	}
	return out
}
