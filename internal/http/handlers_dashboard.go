package http

import (
	"log/slog"
	"net/http"

	"github.com/shopspring/decimal"

	"tally/internal/api"
	"tally/internal/core"
)

type statCard struct {
	Label    string
	Value    string
	Negative bool
}

type chartRow struct {
	Label  string
	Amount string
	Width  int
	Class  string
}

type summaryView struct {
	Year          int
	Month         int
	MonthName     string
	Months        []monthOption
	Years         []yearOption
	Stats         []statCard
	CategoryRows  []chartRow
	HasCategories bool
	CompareRows   []chartRow
	Error         string
}

type dashboardView struct {
	Username string
	Active   string
	Summary  summaryView
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	year, month := parseYearMonth(r)

	view, unauthorized := s.loadSummaryView(r, year, month)
	if unauthorized {
		s.expireSession(w, r)
		return
	}

	s.render(w, r, "dashboard.html", dashboardView{
		Username: sess.User.Username,
		Active:   "dashboard",
		Summary:  view,
	})
}

func (s *Server) handleSummaryPartial(w http.ResponseWriter, r *http.Request) {
	year, month := parseYearMonth(r)

	view, unauthorized := s.loadSummaryView(r, year, month)
	if unauthorized {
		s.expireSession(w, r)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	s.render(w, r, "summary.html", view)
}

// loadSummaryView fetches the period summary and projects it into view
// state. The second return is true when the API rejected the token.
func (s *Server) loadSummaryView(r *http.Request, year, month int) (summaryView, bool) {
	sess := sessionFrom(r)
	view := summaryView{
		Year:      year,
		Month:     month,
		MonthName: monthName(month),
		Months:    monthOptions(month),
		Years:     yearOptions(year),
	}

	summary, err := s.client.Summary(r.Context(), sess.Token, year, month)
	if err != nil {
		if api.IsUnauthorized(err) {
			return view, true
		}
		slog.ErrorContext(r.Context(), "Summary fetch failed", "error", err, "year", year, "month", month)
		view.Error = api.ErrorMessage(err, "Error loading dashboard")
		return view, false
	}

	view.Stats = []statCard{
		{Label: "Total Income", Value: formatAmount(summary.TotalIncome)},
		{Label: "Total Expenses", Value: formatAmount(summary.TotalExpense)},
		{Label: "Balance", Value: formatAmount(summary.Balance), Negative: summary.Balance.IsNegative()},
		{Label: "Budget Remaining", Value: formatAmount(summary.BudgetRemaining), Negative: summary.BudgetRemaining.IsNegative()},
	}

	view.CategoryRows = categoryRows(summary.CategoryExpenses)
	view.HasCategories = len(view.CategoryRows) > 0
	view.CompareRows = compareRows(summary)

	return view, false
}

// categoryRows projects the per-category breakdown into bars scaled
// against the largest category.
func categoryRows(expenses []core.CategoryExpense) []chartRow {
	var max decimal.Decimal
	for _, e := range expenses {
		if e.Total.GreaterThan(max) {
			max = e.Total
		}
	}

	rows := make([]chartRow, 0, len(expenses))
	for _, e := range expenses {
		rows = append(rows, chartRow{
			Label:  e.Name,
			Amount: formatAmount(e.Total),
			Width:  core.BarWidth(e.Total, max),
		})
	}
	return rows
}

// compareRows is the grouped income/expense/budget comparison.
func compareRows(summary core.Summary) []chartRow {
	max := summary.TotalIncome
	if summary.TotalExpense.GreaterThan(max) {
		max = summary.TotalExpense
	}
	if summary.Budget.GreaterThan(max) {
		max = summary.Budget
	}

	return []chartRow{
		{Label: "Income", Amount: formatAmount(summary.TotalIncome), Width: core.BarWidth(summary.TotalIncome, max), Class: "income"},
		{Label: "Expense", Amount: formatAmount(summary.TotalExpense), Width: core.BarWidth(summary.TotalExpense, max), Class: "expense"},
		{Label: "Budget", Amount: formatAmount(summary.Budget), Width: core.BarWidth(summary.Budget, max), Class: "budget"},
	}
}
