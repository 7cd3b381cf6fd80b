package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"tally/internal/core"
)

// PageSize is the fixed page size the API paginates transactions with.
const PageSize = 10

// Credentials is the result of a successful login or registration.
type Credentials struct {
	Token string    `json:"token"`
	User  core.User `json:"user"`
}

// RegisterRequest mirrors the registration payload; Password2 is the
// confirmation field the server re-checks.
type RegisterRequest struct {
	Username  string `json:"username"`
	Email     string `json:"email,omitempty"`
	Password  string `json:"password"`
	Password2 string `json:"password2"`
}

// TransactionFilter holds the six optional list filters exactly as the UI
// controls yield them. Empty fields are omitted from the query entirely,
// never sent as empty strings.
type TransactionFilter struct {
	Category  string
	StartDate string
	EndDate   string
	MinAmount string
	MaxAmount string
	Type      string
}

// Values encodes the non-empty filter fields.
func (f TransactionFilter) Values() url.Values {
	q := url.Values{}
	set := func(key, val string) {
		if v := strings.TrimSpace(val); v != "" {
			q.Set(key, v)
		}
	}
	set("category", f.Category)
	set("start_date", f.StartDate)
	set("end_date", f.EndDate)
	set("min_amount", f.MinAmount)
	set("max_amount", f.MaxAmount)
	set("type", f.Type)
	return q
}

// IsZero reports whether no filter field is set.
func (f TransactionFilter) IsZero() bool {
	return len(f.Values()) == 0
}

// TransactionPage is one page of results plus the server's total count.
type TransactionPage struct {
	Results []core.Transaction `json:"results"`
	Count   int                `json:"count"`
}

// TotalPages derives the page count from the server-reported total,
// rounded up. A result of at least 1 keeps pagination rendering sane.
func (p TransactionPage) TotalPages() int {
	pages := (p.Count + PageSize - 1) / PageSize
	if pages < 1 {
		return 1
	}
	return pages
}

func (c *Client) Login(ctx context.Context, username, password string) (Credentials, error) {
	body := map[string]string{"username": username, "password": password}
	var creds Credentials
	if err := c.do(ctx, "", http.MethodPost, "/login/", nil, body, &creds); err != nil {
		return Credentials{}, err
	}
	return creds, nil
}

func (c *Client) Register(ctx context.Context, req RegisterRequest) (Credentials, error) {
	var creds Credentials
	if err := c.do(ctx, "", http.MethodPost, "/register/", nil, req, &creds); err != nil {
		return Credentials{}, err
	}
	return creds, nil
}

// Logout notifies the server; the response body is ignored. Callers treat
// failure as non-fatal since the local session is cleared regardless.
func (c *Client) Logout(ctx context.Context, token string) error {
	return c.do(ctx, token, http.MethodPost, "/logout/", nil, nil, nil)
}

func (c *Client) ListCategories(ctx context.Context, token string) ([]core.Category, error) {
	raw, err := c.roundTrip(ctx, token, http.MethodGet, "/categories/", nil, nil)
	if err != nil {
		return nil, err
	}
	return decodeList[core.Category](raw)
}

func (c *Client) CreateCategory(ctx context.Context, token, name string, t core.TransactionType) (core.Category, error) {
	body := map[string]string{"name": name, "type": string(t)}
	var cat core.Category
	if err := c.do(ctx, token, http.MethodPost, "/categories/", nil, body, &cat); err != nil {
		return core.Category{}, err
	}
	return cat, nil
}

func (c *Client) ListTransactions(ctx context.Context, token string, filter TransactionFilter, page int) (TransactionPage, error) {
	q := filter.Values()
	if page > 0 {
		q.Set("page", strconv.Itoa(page))
	}
	var result TransactionPage
	if err := c.do(ctx, token, http.MethodGet, "/transactions/", q, nil, &result); err != nil {
		return TransactionPage{}, err
	}
	return result, nil
}

func (c *Client) CreateTransaction(ctx context.Context, token string, draft core.TransactionDraft) (core.Transaction, error) {
	var tx core.Transaction
	if err := c.do(ctx, token, http.MethodPost, "/transactions/", nil, draft, &tx); err != nil {
		return core.Transaction{}, err
	}
	return tx, nil
}

func (c *Client) UpdateTransaction(ctx context.Context, token string, id int64, draft core.TransactionDraft) (core.Transaction, error) {
	var tx core.Transaction
	path := fmt.Sprintf("/transactions/%d/", id)
	if err := c.do(ctx, token, http.MethodPut, path, nil, draft, &tx); err != nil {
		return core.Transaction{}, err
	}
	return tx, nil
}

func (c *Client) DeleteTransaction(ctx context.Context, token string, id int64) error {
	path := fmt.Sprintf("/transactions/%d/", id)
	return c.do(ctx, token, http.MethodDelete, path, nil, nil, nil)
}

func (c *Client) ListBudgets(ctx context.Context, token string) ([]core.Budget, error) {
	raw, err := c.roundTrip(ctx, token, http.MethodGet, "/budgets/", nil, nil)
	if err != nil {
		return nil, err
	}
	return decodeList[core.Budget](raw)
}

func (c *Client) CreateBudget(ctx context.Context, token string, draft core.BudgetDraft) (core.Budget, error) {
	var b core.Budget
	if err := c.do(ctx, token, http.MethodPost, "/budgets/", nil, draft, &b); err != nil {
		return core.Budget{}, err
	}
	return b, nil
}

func (c *Client) UpdateBudget(ctx context.Context, token string, id int64, draft core.BudgetDraft) (core.Budget, error) {
	var b core.Budget
	path := fmt.Sprintf("/budgets/%d/", id)
	if err := c.do(ctx, token, http.MethodPut, path, nil, draft, &b); err != nil {
		return core.Budget{}, err
	}
	return b, nil
}

// Summary fetches the server-computed aggregates for one period.
func (c *Client) Summary(ctx context.Context, token string, year, month int) (core.Summary, error) {
	q := url.Values{}
	q.Set("month", strconv.Itoa(month))
	q.Set("year", strconv.Itoa(year))
	var s core.Summary
	if err := c.do(ctx, token, http.MethodGet, "/dashboard/", q, nil, &s); err != nil {
		return core.Summary{}, err
	}
	return s, nil
}
