package http

import (
	"log/slog"
	"net/http"

	"github.com/shopspring/decimal"

	"tally/internal/api"
	"tally/internal/core"
)

type budgetHistoryRow struct {
	MonthName string
	Year      int
	Amount    string
	Current   bool
}

type budgetOverviewView struct {
	Year              int
	Month             int
	MonthName         string
	HasBudget         bool
	Budget            string
	Spent             string
	Remaining         string
	RemainingNegative bool
	Usage             string
	Overspent         bool
	Overage           string
	Bars              []chartRow
	History           []budgetHistoryRow
	Success           string
	Error             string
}

type budgetsPageView struct {
	Username string
	Active   string
	Year     int
	Month    int
	Months   []monthOption
	Years    []yearOption
	Amount   string
	Overview budgetOverviewView
}

func (s *Server) handleBudgetsPage(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	year, month := parseYearMonth(r)

	overview, unauthorized := s.loadBudgetOverview(r, year, month)
	if unauthorized {
		s.expireSession(w, r)
		return
	}

	s.render(w, r, "budgets.html", budgetsPageView{
		Username: sess.User.Username,
		Active:   "budgets",
		Year:     year,
		Month:    month,
		Months:   monthOptions(month),
		Years:    yearOptions(year),
		Amount:   overview.Budget,
		Overview: overview,
	})
}

func (s *Server) handleBudgetOverview(w http.ResponseWriter, r *http.Request) {
	year, month := parseYearMonth(r)

	overview, unauthorized := s.loadBudgetOverview(r, year, month)
	if unauthorized {
		s.expireSession(w, r)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	s.render(w, r, "budget_overview.html", overview)
}

// handleSubmitBudget updates the budget when one already exists for the
// exact (month, year) pair, otherwise creates one. The decision is made
// here from the fetched list; the API has no upsert endpoint.
func (s *Server) handleSubmitBudget(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	year, month := parseYearMonth(r)

	draft := core.BudgetDraft{Month: month, Year: year}
	if amount, err := decimal.NewFromString(r.FormValue("amount")); err == nil {
		draft.Amount = amount
	}

	if err := draft.Validate(); err != nil {
		overview, unauthorized := s.loadBudgetOverview(r, year, month)
		if unauthorized {
			s.expireSession(w, r)
			return
		}
		overview.Error = err.Error()
		s.render(w, r, "budget_overview.html", overview)
		return
	}

	budgets, err := s.client.ListBudgets(r.Context(), sess.Token)
	if err != nil {
		if api.IsUnauthorized(err) {
			s.expireSession(w, r)
			return
		}
		slog.ErrorContext(r.Context(), "Budget fetch failed", "error", err)
		overview, _ := s.loadBudgetOverview(r, year, month)
		overview.Error = api.ErrorMessage(err, "Error saving budget")
		s.render(w, r, "budget_overview.html", overview)
		return
	}

	var success string
	if existing := core.FindBudget(budgets, month, year); existing != nil {
		_, err = s.client.UpdateBudget(r.Context(), sess.Token, existing.ID, draft)
		success = "Budget updated successfully!"
	} else {
		_, err = s.client.CreateBudget(r.Context(), sess.Token, draft)
		success = "Budget created successfully!"
	}
	if err != nil {
		if api.IsUnauthorized(err) {
			s.expireSession(w, r)
			return
		}
		slog.ErrorContext(r.Context(), "Budget save failed", "error", err, "month", month, "year", year)
		overview, _ := s.loadBudgetOverview(r, year, month)
		overview.Error = api.ErrorMessage(err, "Error saving budget")
		s.render(w, r, "budget_overview.html", overview)
		return
	}

	// Re-fetch so the overview reflects the saved state.
	overview, unauthorized := s.loadBudgetOverview(r, year, month)
	if unauthorized {
		s.expireSession(w, r)
		return
	}
	overview.Success = success
	s.render(w, r, "budget_overview.html", overview)
}

// loadBudgetOverview fetches the period summary and the budget list and
// projects both for the overview partial. The second return is true when
// the API rejected the token.
func (s *Server) loadBudgetOverview(r *http.Request, year, month int) (budgetOverviewView, bool) {
	sess := sessionFrom(r)
	view := budgetOverviewView{
		Year:      year,
		Month:     month,
		MonthName: monthName(month),
	}

	summary, err := s.client.Summary(r.Context(), sess.Token, year, month)
	if err != nil {
		if api.IsUnauthorized(err) {
			return view, true
		}
		slog.ErrorContext(r.Context(), "Summary fetch failed", "error", err, "year", year, "month", month)
		view.Error = api.ErrorMessage(err, "Error loading budget")
		return view, false
	}

	budgets, err := s.client.ListBudgets(r.Context(), sess.Token)
	if err != nil {
		if api.IsUnauthorized(err) {
			return view, true
		}
		slog.ErrorContext(r.Context(), "Budget fetch failed", "error", err)
		view.Error = api.ErrorMessage(err, "Error loading budget")
		return view, false
	}

	view.HasBudget = core.FindBudget(budgets, month, year) != nil
	view.Budget = formatAmount(summary.Budget)
	view.Spent = formatAmount(summary.TotalExpense)
	view.Remaining = formatAmount(summary.BudgetRemaining)
	view.RemainingNegative = summary.BudgetRemaining.IsNegative()
	view.Usage = summary.UsagePercent().String()
	view.Overspent = summary.Overspent()
	view.Overage = formatAmount(summary.Overage())
	view.Bars = budgetBars(summary)

	// History is rendered in the order the API returned it.
	for _, b := range budgets {
		view.History = append(view.History, budgetHistoryRow{
			MonthName: monthName(b.Month),
			Year:      b.Year,
			Amount:    formatAmount(b.Amount),
			Current:   b.Month == month && b.Year == year,
		})
	}

	return view, false
}

// budgetBars compares budget, spend, and remaining. The remaining bar is
// clamped at zero for rendering; the displayed figure is not.
func budgetBars(summary core.Summary) []chartRow {
	remaining := summary.ChartRemaining()

	max := summary.Budget
	if summary.TotalExpense.GreaterThan(max) {
		max = summary.TotalExpense
	}

	return []chartRow{
		{Label: "Budget", Amount: formatAmount(summary.Budget), Width: core.BarWidth(summary.Budget, max), Class: "budget"},
		{Label: "Spent", Amount: formatAmount(summary.TotalExpense), Width: core.BarWidth(summary.TotalExpense, max), Class: "expense"},
		{Label: "Remaining", Amount: formatAmount(remaining), Width: core.BarWidth(remaining, max), Class: "income"},
	}
}
