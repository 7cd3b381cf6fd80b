// Package core holds the client-side copies of server-owned records and
// the small amount of presentational math done locally. Aggregation is
// computed by the remote API; nothing here derives totals from raw data.
package core

import "github.com/shopspring/decimal"

type (
	// CategoryExpense is one slice of the per-category breakdown.
	// The wire name comes from the API's ORM-style aggregation key.
	CategoryExpense struct {
		Name  string          `json:"category__name"`
		Total decimal.Decimal `json:"total"`
	}

	// Summary holds the server-computed aggregates for one (month, year).
	Summary struct {
		TotalIncome      decimal.Decimal   `json:"total_income"`
		TotalExpense     decimal.Decimal   `json:"total_expense"`
		Balance          decimal.Decimal   `json:"balance"`
		Budget           decimal.Decimal   `json:"budget"`
		BudgetRemaining  decimal.Decimal   `json:"budget_remaining"`
		CategoryExpenses []CategoryExpense `json:"category_expenses"`
	}
)

var oneHundred = decimal.NewFromInt(100)

// UsagePercent is spent/budget*100 rounded to one decimal place.
// A zero budget yields exactly 0 rather than a division artifact.
func (s Summary) UsagePercent() decimal.Decimal {
	if s.Budget.IsZero() {
		return decimal.Zero
	}
	return s.TotalExpense.Div(s.Budget).Mul(oneHundred).Round(1)
}

// Overspent reports whether spend has exceeded the budget.
// The warning banner is shown exactly when this is true.
func (s Summary) Overspent() bool {
	return s.BudgetRemaining.IsNegative()
}

// Overage is the absolute amount by which the budget was exceeded.
func (s Summary) Overage() decimal.Decimal {
	return s.BudgetRemaining.Abs()
}

// ChartRemaining is budget minus spend clamped to zero, used only for
// bar rendering. The displayed remaining figure is never clamped.
func (s Summary) ChartRemaining() decimal.Decimal {
	rem := s.Budget.Sub(s.TotalExpense)
	if rem.IsNegative() {
		return decimal.Zero
	}
	return rem
}

// BarWidth converts value to a rounded percentage of max for template
// bar rendering. Very small non-zero values get a 2% floor so the bar
// stays visible; results never exceed 100.
func BarWidth(value, max decimal.Decimal) int {
	if !max.IsPositive() || !value.IsPositive() {
		return 0
	}
	w := int(value.Div(max).Mul(oneHundred).Round(0).IntPart())
	if w < 2 {
		w = 2
	}
	if w > 100 {
		w = 100
	}
	return w
}
