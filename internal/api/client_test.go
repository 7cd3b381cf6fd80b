package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tally/internal/core"
)

func newTestClient(handler http.HandlerFunc) (*Client, *httptest.Server) {
	srv := httptest.NewServer(handler)
	return New(srv.URL), srv
}

func TestLogin(t *testing.T) {
	client, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/login/", r.URL.Path)
		assert.Empty(t, r.Header.Get("Authorization"))

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "alice", body["username"])
		assert.Equal(t, "secret1", body["password"])

		json.NewEncoder(w).Encode(map[string]any{
			"token": "tok123",
			"user":  map[string]any{"id": 7, "username": "alice"},
		})
	})
	defer srv.Close()

	creds, err := client.Login(context.Background(), "alice", "secret1")
	require.NoError(t, err)
	assert.Equal(t, "tok123", creds.Token)
	assert.Equal(t, "alice", creds.User.Username)
}

func TestLogin_ServerErrorMessage(t *testing.T) {
	client, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]string{"error": "Invalid credentials"})
	})
	defer srv.Close()

	_, err := client.Login(context.Background(), "alice", "wrong")
	require.Error(t, err)

	var apiErr *Error
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Equal(t, "Invalid credentials", apiErr.Message)
	assert.Equal(t, "Invalid credentials", ErrorMessage(err, "Login failed. Please try again."))
}

func TestErrorMessage_FallbackWhenNoPayload(t *testing.T) {
	client, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	defer srv.Close()

	_, err := client.Login(context.Background(), "alice", "pw")
	require.Error(t, err)
	assert.Equal(t, "Login failed. Please try again.", ErrorMessage(err, "Login failed. Please try again."))
}

func TestIsUnauthorized(t *testing.T) {
	assert.True(t, IsUnauthorized(&Error{StatusCode: http.StatusUnauthorized}))
	assert.True(t, IsUnauthorized(&Error{StatusCode: http.StatusForbidden}))
	assert.False(t, IsUnauthorized(&Error{StatusCode: http.StatusBadRequest}))
	assert.False(t, IsUnauthorized(errors.New("network down")))
}

func TestTransactionFilter_OmitsEmptyFields(t *testing.T) {
	tests := []struct {
		name   string
		filter TransactionFilter
		want   map[string]string
	}{
		{"all empty", TransactionFilter{}, map[string]string{}},
		{
			"partial",
			TransactionFilter{Type: "expense", MinAmount: "10"},
			map[string]string{"type": "expense", "min_amount": "10"},
		},
		{
			"full",
			TransactionFilter{
				Category:  "3",
				StartDate: "2024-05-01",
				EndDate:   "2024-05-31",
				MinAmount: "1",
				MaxAmount: "100",
				Type:      "income",
			},
			map[string]string{
				"category":   "3",
				"start_date": "2024-05-01",
				"end_date":   "2024-05-31",
				"min_amount": "1",
				"max_amount": "100",
				"type":       "income",
			},
		},
		{"whitespace counts as empty", TransactionFilter{Category: "  "}, map[string]string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := tt.filter.Values()
			assert.Len(t, q, len(tt.want))
			for k, v := range tt.want {
				assert.Equal(t, v, q.Get(k))
			}
		})
	}
}

func TestListTransactions(t *testing.T) {
	client, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/transactions/", r.URL.Path)
		assert.Equal(t, "Token tok123", r.Header.Get("Authorization"))

		q := r.URL.Query()
		assert.Equal(t, "2", q.Get("page"))
		assert.Equal(t, "expense", q.Get("type"))
		// Empty filter fields must not appear at all.
		_, hasCategory := q["category"]
		assert.False(t, hasCategory)

		json.NewEncoder(w).Encode(map[string]any{
			"count": 23,
			"results": []map[string]any{
				{"id": 1, "type": "expense", "category": 3, "category_name": "Food",
					"amount": "12.50", "description": "lunch", "date": "2024-05-09"},
			},
		})
	})
	defer srv.Close()

	page, err := client.ListTransactions(context.Background(), "tok123",
		TransactionFilter{Type: "expense"}, 2)
	require.NoError(t, err)
	assert.Equal(t, 23, page.Count)
	assert.Equal(t, 3, page.TotalPages())
	require.Len(t, page.Results, 1)
	assert.Equal(t, "Food", page.Results[0].CategoryName)
	assert.True(t, page.Results[0].Amount.Equal(decimal.RequireFromString("12.50")))
}

func TestTransactionPage_TotalPages(t *testing.T) {
	assert.Equal(t, 1, TransactionPage{Count: 0}.TotalPages())
	assert.Equal(t, 1, TransactionPage{Count: 10}.TotalPages())
	assert.Equal(t, 2, TransactionPage{Count: 11}.TotalPages())
	assert.Equal(t, 3, TransactionPage{Count: 30}.TotalPages())
}

func TestListCategories_BareArrayAndEnvelope(t *testing.T) {
	bodies := []string{
		`[{"id":1,"name":"Food","type":"expense"}]`,
		`{"results":[{"id":1,"name":"Food","type":"expense"}]}`,
	}
	for _, body := range bodies {
		payload := body
		client, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(payload))
		})

		cats, err := client.ListCategories(context.Background(), "tok")
		srv.Close()
		require.NoError(t, err)
		require.Len(t, cats, 1)
		assert.Equal(t, "Food", cats[0].Name)
		assert.Equal(t, core.Expense, cats[0].Type)
	}
}

func TestCreateBudget_Payload(t *testing.T) {
	client, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/budgets/", r.URL.Path)

		var body struct {
			Month  int             `json:"month"`
			Year   int             `json:"year"`
			Amount decimal.Decimal `json:"amount"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, 5, body.Month)
		assert.Equal(t, 2024, body.Year)
		assert.True(t, body.Amount.Equal(decimal.NewFromInt(20000)))

		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]any{
			"id": 9, "month": 5, "year": 2024, "amount": "20000.00",
			"created_at": "2024-05-01T10:00:00Z",
		})
	})
	defer srv.Close()

	b, err := client.CreateBudget(context.Background(), "tok", core.BudgetDraft{
		Month: 5, Year: 2024, Amount: decimal.NewFromInt(20000),
	})
	require.NoError(t, err)
	assert.Equal(t, int64(9), b.ID)
}

func TestUpdateBudget_PathIncludesID(t *testing.T) {
	client, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/budgets/9/", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]any{"id": 9, "month": 5, "year": 2024, "amount": "500"})
	})
	defer srv.Close()

	_, err := client.UpdateBudget(context.Background(), "tok", 9, core.BudgetDraft{
		Month: 5, Year: 2024, Amount: decimal.NewFromInt(500),
	})
	require.NoError(t, err)
}

func TestDeleteTransaction(t *testing.T) {
	client, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "/transactions/4/", r.URL.Path)
		w.WriteHeader(http.StatusNoContent)
	})
	defer srv.Close()

	require.NoError(t, client.DeleteTransaction(context.Background(), "tok", 4))
}

func TestSummary(t *testing.T) {
	client, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/dashboard/", r.URL.Path)
		assert.Equal(t, "5", r.URL.Query().Get("month"))
		assert.Equal(t, "2024", r.URL.Query().Get("year"))

		json.NewEncoder(w).Encode(map[string]any{
			"total_income":     5000,
			"total_expense":    7000,
			"balance":          -2000,
			"budget":           6000,
			"budget_remaining": -1000,
			"category_expenses": []map[string]any{
				{"category__name": "Food", "total": 4000},
				{"category__name": "Rent", "total": 3000},
			},
		})
	})
	defer srv.Close()

	s, err := client.Summary(context.Background(), "tok", 2024, 5)
	require.NoError(t, err)
	assert.True(t, s.Balance.Equal(decimal.NewFromInt(-2000)))
	assert.True(t, s.Overspent())
	assert.Equal(t, "1000", s.Overage().String())
	assert.Equal(t, "116.7", s.UsagePercent().String())
	require.Len(t, s.CategoryExpenses, 2)
	assert.Equal(t, "Food", s.CategoryExpenses[0].Name)
}

func TestLogout_SendsToken(t *testing.T) {
	client, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/logout/", r.URL.Path)
		assert.Equal(t, "Token tok123", r.Header.Get("Authorization"))
		w.WriteHeader(http.StatusOK)
	})
	defer srv.Close()

	require.NoError(t, client.Logout(context.Background(), "tok123"))
}
