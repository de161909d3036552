package httpx

import (
	"context"
	"fmt"
	"net/http"

	domainauth "github.com/findash/findash/internal/domain/auth"
	"github.com/findash/findash/internal/domain/finance"
	"github.com/findash/findash/internal/http/ui/viewmodel"
)

type incomeData struct {
	viewmodel.Layout
	Incomes   []finance.Income
	Total     int64
	CanManage bool
}

type budgetData struct {
	viewmodel.Layout
	Budgets   []finance.Budget
	Amount    int64
	Spent     int64
	Remaining int64
	CanManage bool
}

type expensesData struct {
	viewmodel.Layout
	Expenses   []finance.Expense
	Total      int64
	ByCategory []finance.CategoryTotal
	// Adding is open to every signed-in user; editing is not.
	CanEdit bool
}

// Income renders the income table. Add and delete controls need the Admin role.
func (h *UIHandlers) Income(w http.ResponseWriter, r *http.Request) {
	user := h.requestUser(r)
	h.Page(w, r, PageSpec{
		Meta: PageMeta{Title: "Income", CurrentPage: PageIncome},
		Fetch: func(ctx context.Context, layout viewmodel.Layout) (viewmodel.LayoutProvider, error) {
			incomes, err := h.Finance.Incomes(ctx)
			if err != nil {
				return nil, fmt.Errorf("load incomes: %w", err)
			}
			return &incomeData{
				Layout:    layout,
				Incomes:   incomes,
				Total:     finance.TotalIncome(incomes),
				CanManage: domainauth.CanManageIncome(user),
			}, nil
		},
	})
}

// Budget renders budget cards with progress bars.
func (h *UIHandlers) Budget(w http.ResponseWriter, r *http.Request) {
	user := h.requestUser(r)
	h.Page(w, r, PageSpec{
		Meta: PageMeta{Title: "Budget", CurrentPage: PageBudget},
		Fetch: func(ctx context.Context, layout viewmodel.Layout) (viewmodel.LayoutProvider, error) {
			budgets, err := h.Finance.Budgets(ctx)
			if err != nil {
				return nil, fmt.Errorf("load budgets: %w", err)
			}
			amount, spent, remaining := finance.BudgetTotals(budgets)
			return &budgetData{
				Layout:    layout,
				Budgets:   budgets,
				Amount:    amount,
				Spent:     spent,
				Remaining: remaining,
				CanManage: domainauth.CanManageBudget(user),
			}, nil
		},
	})
}

// Expenses renders the expense list and the per-category summary.
func (h *UIHandlers) Expenses(w http.ResponseWriter, r *http.Request) {
	user := h.requestUser(r)
	h.Page(w, r, PageSpec{
		Meta: PageMeta{Title: "Expenses", CurrentPage: PageExpenses},
		Fetch: func(ctx context.Context, layout viewmodel.Layout) (viewmodel.LayoutProvider, error) {
			expenses, err := h.Finance.Expenses(ctx)
			if err != nil {
				return nil, fmt.Errorf("load expenses: %w", err)
			}
			return &expensesData{
				Layout:     layout,
				Expenses:   expenses,
				Total:      finance.TotalExpenses(expenses),
				ByCategory: finance.ByCategory(expenses, h.Finance.ExpenseCategories()),
				CanEdit:    domainauth.CanEditExpenses(user),
			}, nil
		},
	})
}

// requestUser returns the user placed in the context by RequireUser.
func (h *UIHandlers) requestUser(r *http.Request) domainauth.User {
	if u, ok := GetUserFromContext(r.Context()); ok {
		return *u
	}
	return domainauth.User{}
}
