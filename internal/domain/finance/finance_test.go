package finance

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSampleCatalog(t *testing.T) {
	c, err := Sample()
	require.NoError(t, err)
	ctx := context.Background()

	incomes, err := c.Incomes(ctx)
	require.NoError(t, err)
	require.Len(t, incomes, 2)
	assert.Equal(t, "Salary", incomes[0].Source)
	assert.Equal(t, "Side Hustle", incomes[1].Category)
	assert.Equal(t, int64(6500), TotalIncome(incomes))

	budgets, err := c.Budgets(ctx)
	require.NoError(t, err)
	amount, spent, remaining := BudgetTotals(budgets)
	assert.Equal(t, int64(850), amount)
	assert.Equal(t, int64(570), spent)
	assert.Equal(t, int64(280), remaining)
	assert.Equal(t, int64(150), budgets[0].Remaining())
	assert.Equal(t, int64(80), budgets[1].Remaining())
	assert.Equal(t, int64(50), budgets[2].Remaining())

	expenses, err := c.Expenses(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(195), TotalExpenses(expenses))

	assert.Equal(t, Headline{Income: 5000, Budget: 3500, Expenses: 2800}, c.Headline())
	assert.Equal(t, []string{"Food", "Transport", "Entertainment", "Shopping"}, c.ExpenseCategories())
}

func TestCatalogReturnsCopies(t *testing.T) {
	c, err := Sample()
	require.NoError(t, err)

	budgets, _ := c.Budgets(context.Background())
	budgets[0].Spent = 9999

	again, _ := c.Budgets(context.Background())
	assert.Equal(t, int64(350), again[0].Spent)
}

func TestBudgetDerivations(t *testing.T) {
	tests := []struct {
		name    string
		budget  Budget
		pct     float64
		over    bool
		remains int64
	}{
		{name: "partial", budget: Budget{Amount: 500, Spent: 350}, pct: 70, remains: 150},
		{name: "exact", budget: Budget{Amount: 200, Spent: 200}, pct: 100, remains: 0},
		{name: "overspent is capped", budget: Budget{Amount: 100, Spent: 150}, pct: 100, over: true, remains: -50},
		{name: "zero limit", budget: Budget{Amount: 0, Spent: 0}, pct: 0},
		{name: "zero limit with spending", budget: Budget{Amount: 0, Spent: 10}, pct: 100, over: true, remains: -10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.pct, tt.budget.PercentUsed(), 0.0001)
			assert.Equal(t, tt.over, tt.budget.OverBudget())
			assert.Equal(t, tt.remains, tt.budget.Remaining())
		})
	}
}

func TestByCategory(t *testing.T) {
	c, err := Sample()
	require.NoError(t, err)
	expenses, _ := c.Expenses(context.Background())

	got := ByCategory(expenses, c.ExpenseCategories())
	assert.Equal(t, []CategoryTotal{
		{Category: "Food", Total: 120},
		{Category: "Transport", Total: 60},
		{Category: "Entertainment", Total: 15},
		{Category: "Shopping", Total: 0},
	}, got)
}

func TestParseRejectsInvalid(t *testing.T) {
	_, err := Parse([]byte("budgets: [{id: 1, category: '', amount: -1}]"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "category is required")
	assert.Contains(t, err.Error(), "negative amount")

	_, err = Parse([]byte("incomes: {not: a list}"))
	require.Error(t, err)
}

func TestFormatUSD(t *testing.T) {
	tests := map[int64]string{
		0:       "$0",
		15:      "$15",
		999:     "$999",
		1000:    "$1,000",
		5000:    "$5,000",
		1234567: "$1,234,567",
		-2800:   "-$2,800",
	}
	for in, want := range tests {
		assert.Equal(t, want, FormatUSD(in), "FormatUSD(%d)", in)
	}
}
