package http

import (
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/shopspring/decimal"

	"tally/internal/api"
	"tally/internal/core"
)

type categoryFieldView struct {
	Type       core.TransactionType
	Categories []core.Category
	Selected   int64
	Error      string
}

type transactionFormView struct {
	Editing     bool
	ID          int64
	Type        core.TransactionType
	Amount      string
	Date        string
	Description string
	Field       categoryFieldView
	Error       string
	Success     string
}

type transactionRow struct {
	ID          int64
	Date        string
	Type        core.TransactionType
	Category    string
	Amount      string
	Description string
	IsIncome    bool
	// Prebuilt so templates never assemble query strings themselves.
	EditURL   template.URL
	DeleteURL template.URL
}

type transactionTableView struct {
	Rows       []transactionRow
	Page       int
	TotalPages int
	HasPrev    bool
	HasNext    bool
	PrevURL    template.URL
	NextURL    template.URL
	Error      string
}

type transactionsPageView struct {
	Username   string
	Active     string
	Form       transactionFormView
	Categories []core.Category
	Filter     api.TransactionFilter
	Table      transactionTableView
}

// parseFilter reads the six optional filter fields from the query.
func parseFilter(q url.Values) api.TransactionFilter {
	return api.TransactionFilter{
		Category:  q.Get("category"),
		StartDate: q.Get("start_date"),
		EndDate:   q.Get("end_date"),
		MinAmount: q.Get("min_amount"),
		MaxAmount: q.Get("max_amount"),
		Type:      q.Get("type"),
	}
}

func parsePage(q url.Values) int {
	page, err := strconv.Atoi(q.Get("page"))
	if err != nil || page < 1 {
		return 1
	}
	return page
}

// tableURL builds a path carrying the active filters plus a page number,
// so pagination and deletes stay inside the filtered view.
func tableURL(path string, filter api.TransactionFilter, page int) template.URL {
	q := filter.Values()
	q.Set("page", strconv.Itoa(page))
	return template.URL(path + "?" + q.Encode())
}

// editURL carries the row snapshot into the edit overlay.
func editURL(tx core.Transaction) template.URL {
	q := url.Values{}
	q.Set("type", string(tx.Type))
	q.Set("category", strconv.FormatInt(tx.Category, 10))
	q.Set("amount", tx.Amount.String())
	q.Set("date", tx.Date.String())
	q.Set("description", tx.Description)
	return template.URL(fmt.Sprintf("/transactions/%d/edit?%s", tx.ID, q.Encode()))
}

func (s *Server) handleTransactionsPage(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	filter := parseFilter(r.URL.Query())
	page := parsePage(r.URL.Query())

	cats, err := s.client.ListCategories(r.Context(), sess.Token)
	if err != nil {
		if api.IsUnauthorized(err) {
			s.expireSession(w, r)
			return
		}
		slog.ErrorContext(r.Context(), "Category fetch failed", "error", err)
	}

	table, unauthorized := s.loadTransactionTable(r, filter, page)
	if unauthorized {
		s.expireSession(w, r)
		return
	}

	s.render(w, r, "transactions.html", transactionsPageView{
		Username:   sess.User.Username,
		Active:     "transactions",
		Form:       s.defaultFormView(cats),
		Categories: cats,
		Filter:     filter,
		Table:      table,
	})
}

func (s *Server) defaultFormView(cats []core.Category) transactionFormView {
	return transactionFormView{
		Type: core.Expense,
		Date: core.Today().String(),
		Field: categoryFieldView{
			Type:       core.Expense,
			Categories: core.FilterCategories(cats, core.Expense),
		},
	}
}

func (s *Server) handleTransactionTable(w http.ResponseWriter, r *http.Request) {
	filter := parseFilter(r.URL.Query())
	page := parsePage(r.URL.Query())

	table, unauthorized := s.loadTransactionTable(r, filter, page)
	if unauthorized {
		s.expireSession(w, r)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	s.render(w, r, "transaction_table.html", table)
}

// loadTransactionTable fetches one page and projects it for the template.
// The returned bool is true when the API rejected the token.
func (s *Server) loadTransactionTable(r *http.Request, filter api.TransactionFilter, page int) (transactionTableView, bool) {
	sess := sessionFrom(r)

	result, err := s.client.ListTransactions(r.Context(), sess.Token, filter, page)
	if err != nil {
		if api.IsUnauthorized(err) {
			return transactionTableView{}, true
		}
		slog.ErrorContext(r.Context(), "Transaction fetch failed", "error", err, "page", page)
		return transactionTableView{
			Page:       page,
			TotalPages: 1,
			Error:      api.ErrorMessage(err, "Error loading transactions"),
		}, false
	}

	totalPages := result.TotalPages()
	if page > totalPages {
		page = totalPages
	}

	view := transactionTableView{
		Page:       page,
		TotalPages: totalPages,
		HasPrev:    page > 1,
		HasNext:    page < totalPages,
		PrevURL:    tableURL("/ui/transactions", filter, page-1),
		NextURL:    tableURL("/ui/transactions", filter, page+1),
	}

	for _, tx := range result.Results {
		view.Rows = append(view.Rows, transactionRow{
			ID:          tx.ID,
			Date:        tx.Date.String(),
			Type:        tx.Type,
			Category:    tx.CategoryName,
			Amount:      formatAmount(tx.Amount),
			Description: tx.Description,
			IsIncome:    tx.Type == core.Income,
			EditURL:     editURL(tx),
			DeleteURL:   tableURL(fmt.Sprintf("/transactions/%d/delete", tx.ID), filter, page),
		})
	}

	return view, false
}

// parseDraft reads the transaction form into a draft, sanitizing text
// inputs. Unparseable numbers and dates come back zero-valued and fail
// draft validation.
func parseDraft(r *http.Request) core.TransactionDraft {
	draft := core.TransactionDraft{
		Type:        core.TransactionType(r.FormValue("type")),
		Description: sanitizeInput(r.FormValue("description")),
	}
	if id, err := strconv.ParseInt(r.FormValue("category"), 10, 64); err == nil {
		draft.Category = id
	}
	if amount, err := decimal.NewFromString(r.FormValue("amount")); err == nil {
		draft.Amount = amount
	}
	if date, err := core.ParseDate(r.FormValue("date")); err == nil {
		draft.Date = date
	}
	return draft
}

// formViewFromDraft rebuilds the form view preserving user input, so a
// failed submit never loses what was typed.
func (s *Server) formViewFromDraft(r *http.Request, draft core.TransactionDraft, editing bool, id int64) transactionFormView {
	sess := sessionFrom(r)
	cats, err := s.client.ListCategories(r.Context(), sess.Token)
	if err != nil {
		slog.ErrorContext(r.Context(), "Category fetch failed", "error", err)
	}

	formType := draft.Type
	if !formType.Valid() {
		formType = core.Expense
	}

	return transactionFormView{
		Editing:     editing,
		ID:          id,
		Type:        formType,
		Amount:      r.FormValue("amount"),
		Date:        r.FormValue("date"),
		Description: draft.Description,
		Field: categoryFieldView{
			Type:       formType,
			Categories: core.FilterCategories(cats, formType),
			Selected:   draft.Category,
		},
	}
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	draft := parseDraft(r)
	if err := draft.Validate(); err != nil {
		view := s.formViewFromDraft(r, draft, false, 0)
		view.Error = err.Error()
		s.render(w, r, "transaction_form.html", view)
		return
	}

	if _, err := s.client.CreateTransaction(r.Context(), sess.Token, draft); err != nil {
		if api.IsUnauthorized(err) {
			s.expireSession(w, r)
			return
		}
		slog.ErrorContext(r.Context(), "Transaction create failed", "error", err)
		view := s.formViewFromDraft(r, draft, false, 0)
		view.Error = api.ErrorMessage(err, "Error saving transaction")
		s.render(w, r, "transaction_form.html", view)
		return
	}

	// Reset to defaults and let the list re-fetch itself.
	cats, err := s.client.ListCategories(r.Context(), sess.Token)
	if err != nil {
		slog.ErrorContext(r.Context(), "Category fetch failed", "error", err)
	}
	view := s.defaultFormView(cats)
	view.Success = "Transaction added successfully!"
	w.Header().Set("HX-Trigger", "transactions-changed")
	s.render(w, r, "transaction_form.html", view)
}

// handleEditTransactionForm renders the edit overlay pre-populated from
// the list snapshot the edit button carried along.
func (s *Server) handleEditTransactionForm(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		http.Error(w, "invalid transaction id", http.StatusBadRequest)
		return
	}

	cats, err := s.client.ListCategories(r.Context(), sess.Token)
	if err != nil {
		if api.IsUnauthorized(err) {
			s.expireSession(w, r)
			return
		}
		slog.ErrorContext(r.Context(), "Category fetch failed", "error", err)
	}

	q := r.URL.Query()
	formType := core.TransactionType(q.Get("type"))
	if !formType.Valid() {
		formType = core.Expense
	}
	selected, _ := strconv.ParseInt(q.Get("category"), 10, 64)

	s.render(w, r, "transaction_modal.html", transactionFormView{
		Editing:     true,
		ID:          id,
		Type:        formType,
		Amount:      q.Get("amount"),
		Date:        q.Get("date"),
		Description: q.Get("description"),
		Field: categoryFieldView{
			Type:       formType,
			Categories: core.FilterCategories(cats, formType),
			Selected:   selected,
		},
	})
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		http.Error(w, "invalid transaction id", http.StatusBadRequest)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	draft := parseDraft(r)
	if err := draft.Validate(); err != nil {
		view := s.formViewFromDraft(r, draft, true, id)
		view.Error = err.Error()
		s.render(w, r, "transaction_form.html", view)
		return
	}

	if _, err := s.client.UpdateTransaction(r.Context(), sess.Token, id, draft); err != nil {
		if api.IsUnauthorized(err) {
			s.expireSession(w, r)
			return
		}
		slog.ErrorContext(r.Context(), "Transaction update failed", "error", err, "id", id)
		view := s.formViewFromDraft(r, draft, true, id)
		view.Error = api.ErrorMessage(err, "Error saving transaction")
		s.render(w, r, "transaction_form.html", view)
		return
	}

	view := s.formViewFromDraft(r, draft, true, id)
	view.Success = "Transaction updated successfully!"
	w.Header().Set("HX-Trigger", "transactions-changed")
	s.render(w, r, "transaction_form.html", view)
}

// handleDeleteTransaction deletes then re-fetches the current page; the
// response replaces the table so no local splicing happens.
func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		http.Error(w, "invalid transaction id", http.StatusBadRequest)
		return
	}

	filter := parseFilter(r.URL.Query())
	page := parsePage(r.URL.Query())

	if err := s.client.DeleteTransaction(r.Context(), sess.Token, id); err != nil {
		if api.IsUnauthorized(err) {
			s.expireSession(w, r)
			return
		}
		slog.ErrorContext(r.Context(), "Transaction delete failed", "error", err, "id", id)
		table, _ := s.loadTransactionTable(r, filter, page)
		table.Error = api.ErrorMessage(err, "Error deleting transaction")
		s.render(w, r, "transaction_table.html", table)
		return
	}

	table, unauthorized := s.loadTransactionTable(r, filter, page)
	if unauthorized {
		s.expireSession(w, r)
		return
	}
	s.render(w, r, "transaction_table.html", table)
}

// handleCategoryOptions re-renders the category select scoped to a type
// with nothing selected: switching type always clears the chosen category.
func (s *Server) handleCategoryOptions(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)

	formType := core.TransactionType(r.URL.Query().Get("type"))
	if !formType.Valid() {
		formType = core.Expense
	}

	cats, err := s.client.ListCategories(r.Context(), sess.Token)
	if err != nil {
		if api.IsUnauthorized(err) {
			s.expireSession(w, r)
			return
		}
		slog.ErrorContext(r.Context(), "Category fetch failed", "error", err)
	}

	s.render(w, r, "category_field.html", categoryFieldView{
		Type:       formType,
		Categories: core.FilterCategories(cats, formType),
	})
}

// handleCreateCategory creates a category scoped to the form's current
// type and returns the refreshed select so the user can pick it.
func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	name := sanitizeInput(r.FormValue("name"))
	formType := core.TransactionType(r.FormValue("type"))
	if !formType.Valid() {
		formType = core.Expense
	}

	view := categoryFieldView{Type: formType}

	if name == "" {
		cats, _ := s.client.ListCategories(r.Context(), sess.Token)
		view.Categories = core.FilterCategories(cats, formType)
		view.Error = "Category name is required"
		s.render(w, r, "category_field.html", view)
		return
	}

	if _, err := s.client.CreateCategory(r.Context(), sess.Token, name, formType); err != nil {
		if api.IsUnauthorized(err) {
			s.expireSession(w, r)
			return
		}
		slog.ErrorContext(r.Context(), "Category create failed", "error", err, "name", name)
		view.Error = api.ErrorMessage(err, "Error adding category")
	}

	cats, err := s.client.ListCategories(r.Context(), sess.Token)
	if err != nil {
		slog.ErrorContext(r.Context(), "Category fetch failed", "error", err)
	}
	view.Categories = core.FilterCategories(cats, formType)
	s.render(w, r, "category_field.html", view)
}
