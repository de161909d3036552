// Package finance holds the income, budget and expense records rendered by the
// dashboard pages, and the totals derived from them.
package finance

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed sample.yaml
var sampleYAML []byte

// Income is one income entry. Amounts are whole dollars.
type Income struct {
	ID       int    `yaml:"id"`
	Source   string `yaml:"source"`
	Amount   int64  `yaml:"amount"`
	Date     string `yaml:"date"`
	Category string `yaml:"category"`
}

// Budget is a spending limit for one category.
type Budget struct {
	ID       int    `yaml:"id"`
	Category string `yaml:"category"`
	Amount   int64  `yaml:"amount"`
	Spent    int64  `yaml:"spent"`
}

// Remaining is the unspent part of the budget; negative when overspent.
func (b Budget) Remaining() int64 { return b.Amount - b.Spent }

// OverBudget reports whether spending exceeds the limit.
func (b Budget) OverBudget() bool { return b.Spent > b.Amount }

// PercentUsed is spent/amount as a percentage, capped at 100.
func (b Budget) PercentUsed() float64 {
	if b.Amount <= 0 {
		if b.Spent > 0 {
			return 100
		}
		return 0
	}
	pct := float64(b.Spent) / float64(b.Amount) * 100
	return min(pct, 100)
}

// Expense is one recorded expense.
type Expense struct {
	ID          int    `yaml:"id"`
	Description string `yaml:"description"`
	Amount      int64  `yaml:"amount"`
	Date        string `yaml:"date"`
	Category    string `yaml:"category"`
}

// Headline holds the fixed figures on the dashboard overview cards.
type Headline struct {
	Income   int64 `yaml:"income"`
	Budget   int64 `yaml:"budget"`
	Expenses int64 `yaml:"expenses"`
}

// CategoryTotal is the expense sum for one category.
type CategoryTotal struct {
	Category string
	Total    int64
}

// Source supplies finance records. Catalog is the static implementation.
type Source interface {
	Incomes(ctx context.Context) ([]Income, error)
	Budgets(ctx context.Context) ([]Budget, error)
	Expenses(ctx context.Context) ([]Expense, error)
}

// Catalog is an immutable set of sample records.
type Catalog struct {
	headline   Headline
	incomes    []Income
	budgets    []Budget
	expenses   []Expense
	categories []string
}

var _ Source = (*Catalog)(nil)

type catalogFile struct {
	Headline          Headline  `yaml:"headline"`
	Incomes           []Income  `yaml:"incomes"`
	Budgets           []Budget  `yaml:"budgets"`
	Expenses          []Expense `yaml:"expenses"`
	ExpenseCategories []string  `yaml:"expense_categories"`
}

// Sample returns the embedded sample catalog.
func Sample() (*Catalog, error) {
	return Parse(sampleYAML)
}

// Parse decodes a catalog document.
func Parse(data []byte) (*Catalog, error) {
	var f catalogFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decode finance catalog: %w", err)
	}
	if err := f.validate(); err != nil {
		return nil, err
	}
	return &Catalog{
		headline:   f.Headline,
		incomes:    f.Incomes,
		budgets:    f.Budgets,
		expenses:   f.Expenses,
		categories: f.ExpenseCategories,
	}, nil
}

func (f catalogFile) validate() error {
	var errs []error
	for _, in := range f.Incomes {
		if in.Amount < 0 {
			errs = append(errs, fmt.Errorf("income %d: negative amount", in.ID))
		}
	}
	for _, b := range f.Budgets {
		if strings.TrimSpace(b.Category) == "" {
			errs = append(errs, fmt.Errorf("budget %d: category is required", b.ID))
		}
		if b.Amount < 0 || b.Spent < 0 {
			errs = append(errs, fmt.Errorf("budget %d: negative amount", b.ID))
		}
	}
	for _, e := range f.Expenses {
		if e.Amount < 0 {
			errs = append(errs, fmt.Errorf("expense %d: negative amount", e.ID))
		}
	}
	return errors.Join(errs...)
}

// Headline returns the overview card figures.
func (c *Catalog) Headline() Headline { return c.headline }

// Incomes returns a copy of the income entries.
func (c *Catalog) Incomes(_ context.Context) ([]Income, error) {
	return append([]Income(nil), c.incomes...), nil
}

// Budgets returns a copy of the budgets.
func (c *Catalog) Budgets(_ context.Context) ([]Budget, error) {
	return append([]Budget(nil), c.budgets...), nil
}

// Expenses returns a copy of the expenses.
func (c *Catalog) Expenses(_ context.Context) ([]Expense, error) {
	return append([]Expense(nil), c.expenses...), nil
}

// ExpenseCategories returns the categories shown in the expense summary.
func (c *Catalog) ExpenseCategories() []string {
	return append([]string(nil), c.categories...)
}

// TotalIncome sums income amounts.
func TotalIncome(incomes []Income) int64 {
	var sum int64
	for _, in := range incomes {
		sum += in.Amount
	}
	return sum
}

// BudgetTotals returns the summed limit, spending and remainder.
func BudgetTotals(budgets []Budget) (amount, spent, remaining int64) {
	for _, b := range budgets {
		amount += b.Amount
		spent += b.Spent
	}
	return amount, spent, amount - spent
}

// TotalExpenses sums expense amounts.
func TotalExpenses(expenses []Expense) int64 {
	var sum int64
	for _, e := range expenses {
		sum += e.Amount
	}
	return sum
}

// ByCategory sums expenses per category in the order given. Categories with no
// expenses are reported with a zero total; expenses outside the list are ignored.
func ByCategory(expenses []Expense, categories []string) []CategoryTotal {
	sums := make(map[string]int64, len(categories))
	for _, e := range expenses {
		sums[e.Category] += e.Amount
	}
	out := make([]CategoryTotal, len(categories))
	for i, c := range categories {
		out[i] = CategoryTotal{Category: c, Total: sums[c]}
	}
	return out
}

// FormatUSD renders whole dollars with thousands separators, e.g. "$5,000".
func FormatUSD(amount int64) string {
	sign := ""
	if amount < 0 {
		sign = "-"
		amount = -amount
	}
	digits := strconv.FormatInt(amount, 10)
	var b strings.Builder
	for i, r := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	return sign + "$" + b.String()
}
