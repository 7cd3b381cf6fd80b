package core

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestSummary_UsagePercent(t *testing.T) {
	tests := []struct {
		name    string
		expense string
		budget  string
		want    string
	}{
		{"under budget", "3000", "6000", "50"},
		{"over budget", "7000", "6000", "116.7"},
		{"exactly spent", "6000", "6000", "100"},
		{"zero budget yields zero, not NaN", "7000", "0", "0"},
		{"nothing spent", "0", "6000", "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := Summary{TotalExpense: dec(tt.expense), Budget: dec(tt.budget)}
			assert.True(t, s.UsagePercent().Equal(dec(tt.want)),
				"got %s want %s", s.UsagePercent(), tt.want)
		})
	}
}

func TestSummary_OverspendFlags(t *testing.T) {
	over := Summary{Budget: dec("6000"), TotalExpense: dec("7000"), BudgetRemaining: dec("-1000")}
	assert.True(t, over.Overspent())
	assert.Equal(t, "1000", over.Overage().String())
	// Chart bar is clamped even though the displayed figure stays -1000.
	assert.True(t, over.ChartRemaining().IsZero())

	under := Summary{Budget: dec("6000"), TotalExpense: dec("2500"), BudgetRemaining: dec("3500")}
	assert.False(t, under.Overspent())
	assert.Equal(t, "3500", under.ChartRemaining().String())

	exact := Summary{Budget: dec("6000"), TotalExpense: dec("6000"), BudgetRemaining: decimal.Zero}
	assert.False(t, exact.Overspent())
}

func TestBarWidth(t *testing.T) {
	max := dec("200")

	assert.Equal(t, 50, BarWidth(dec("100"), max))
	assert.Equal(t, 100, BarWidth(dec("200"), max))
	// Tiny values keep a visible floor.
	assert.Equal(t, 2, BarWidth(dec("1"), max))
	// Values above max are capped rather than overflowing the row.
	assert.Equal(t, 100, BarWidth(dec("400"), max))
	assert.Equal(t, 0, BarWidth(decimal.Zero, max))
	assert.Equal(t, 0, BarWidth(dec("100"), decimal.Zero))
}
