package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"onetouch/internal/core"
	"onetouch/internal/ledger"
	applog "onetouch/internal/log"
	"onetouch/internal/remote/memory"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type nopCache struct{}

func (nopCache) Load(ctx context.Context) []core.Transaction { return nil }

func (nopCache) Snapshot(ctx context.Context, txns []core.Transaction) error { return nil }

func newTestServer(t *testing.T, seed []core.Transaction) (*Server, *ledger.Store) {
	t.Helper()
	rem := memory.New()
	rem.Seed(seed)
	store := ledger.New(rem, nopCache{}, applog.New(slog.LevelError, "http-test"))
	require.NoError(t, store.Initialize(context.Background()))

	srv := NewServer(":0", store, prometheus.NewRegistry(), applog.New(slog.LevelError, "http-test"))
	t.Cleanup(func() { srv.rateLimiter.stop() })
	return srv, store
}

func doRequest(srv *Server, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rec := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, req)
	return rec
}

func marchSeed() []core.Transaction {
	return []core.Transaction{
		{ID: "e1", Type: core.Expense, Amount: decimal.RequireFromString("250.50"), Category: "Food", Date: core.NewDate(2024, 3, 15), CreatedAt: time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)},
		{ID: "e2", Type: core.Expense, Amount: decimal.RequireFromString("49.50"), Category: "Travel", Date: core.NewDate(2024, 3, 20), CreatedAt: time.Date(2024, 3, 20, 12, 0, 0, 0, time.UTC)},
		{ID: "i1", Type: core.Income, Amount: decimal.RequireFromString("1000"), Category: "Salary", Date: core.NewDate(2024, 3, 1), CreatedAt: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)},
		{ID: "other", Type: core.Expense, Amount: decimal.RequireFromString("999"), Category: "Rent", Date: core.NewDate(2024, 2, 29), CreatedAt: time.Date(2024, 2, 29, 12, 0, 0, 0, time.UTC)},
	}
}

func TestListTransactions(t *testing.T) {
	srv, _ := newTestServer(t, marchSeed())

	rec := doRequest(srv, http.MethodGet, "/api/transactions", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Transactions []core.Transaction `json:"transactions"`
		Loading      bool               `json:"loading"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.Loading)
	require.Len(t, resp.Transactions, 4)
	assert.Equal(t, "e2", resp.Transactions[0].ID, "newest date first")
}

func TestListTransactionsByType(t *testing.T) {
	srv, _ := newTestServer(t, marchSeed())

	rec := doRequest(srv, http.MethodGet, "/api/transactions?type=income", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Transactions []core.Transaction `json:"transactions"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Transactions, 1)
	assert.Equal(t, core.Income, resp.Transactions[0].Type)

	rec = doRequest(srv, http.MethodGet, "/api/transactions?type=transfer", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateTransaction(t *testing.T) {
	srv, store := newTestServer(t, nil)

	rec := doRequest(srv, http.MethodPost, "/api/transactions",
		`{"type":"expense","amount":250.50,"category":"Food","date":"2024-03-15","notes":"lunch"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	var txn core.Transaction
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &txn))
	assert.NotEmpty(t, txn.ID)
	assert.True(t, txn.Amount.Equal(decimal.RequireFromString("250.50")))
	assert.Equal(t, "Food", txn.Category)
	assert.Equal(t, "2024-03-15", txn.Date.String())

	store.Wait()
	assert.Len(t, store.Transactions(), 1)
}

func TestCreateTransactionDefaults(t *testing.T) {
	srv, store := newTestServer(t, nil)

	rec := doRequest(srv, http.MethodPost, "/api/transactions",
		`{"amount":10,"date":"2024-03-15"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	var txn core.Transaction
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &txn))
	assert.Equal(t, core.Expense, txn.Type)
	assert.Equal(t, core.DefaultCategory(core.Expense), txn.Category)
	store.Wait()
}

func TestCreateTransactionRejections(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	tests := []struct {
		name string
		body string
		want int
	}{
		{"malformed json", `{nope`, http.StatusBadRequest},
		{"missing amount", `{"date":"2024-03-15"}`, http.StatusUnprocessableEntity},
		{"missing date", `{"amount":10}`, http.StatusUnprocessableEntity},
		{"bad type", `{"type":"transfer","amount":10,"date":"2024-03-15"}`, http.StatusUnprocessableEntity},
		{"bad date", `{"amount":10,"date":"15/03/2024"}`, http.StatusUnprocessableEntity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doRequest(srv, http.MethodPost, "/api/transactions", tt.body)
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestDeleteTransaction(t *testing.T) {
	srv, store := newTestServer(t, marchSeed())

	rec := doRequest(srv, http.MethodDelete, "/api/transactions/e1", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	store.Wait()
	assert.Len(t, store.Transactions(), 3)

	// Deleting something that is not there answers the same way.
	rec = doRequest(srv, http.MethodDelete, "/api/transactions/ghost", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	store.Wait()
	assert.Len(t, store.Transactions(), 3)
}

func TestCategories(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	rec := doRequest(srv, http.MethodGet, "/api/categories", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Expense []string `json:"expense"`
		Income  []string `json:"income"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, core.ExpenseCategories, resp.Expense)
	assert.Equal(t, core.IncomeCategories, resp.Income)

	rec = doRequest(srv, http.MethodGet, "/api/categories?type=income", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var single struct {
		Categories []string `json:"categories"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &single))
	assert.Equal(t, core.IncomeCategories, single.Categories)
}

func TestDashboard(t *testing.T) {
	srv, _ := newTestServer(t, marchSeed())

	rec := doRequest(srv, http.MethodGet, "/api/dashboard?year=2024&month=3", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Year             int                   `json:"year"`
		Month            int                   `json:"month"`
		TotalExpenses    decimal.Decimal       `json:"total_expenses"`
		TotalIncome      decimal.Decimal       `json:"total_income"`
		ByCategory       []core.CategoryAmount `json:"by_category"`
		TopCategory      string                `json:"top_category"`
		TransactionCount int                   `json:"transaction_count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	assert.Equal(t, 2024, resp.Year)
	assert.Equal(t, 3, resp.Month)
	assert.True(t, resp.TotalExpenses.Equal(decimal.RequireFromString("300")), "February must stay outside the window, got %s", resp.TotalExpenses)
	assert.True(t, resp.TotalIncome.Equal(decimal.RequireFromString("1000")))
	assert.Equal(t, "Food", resp.TopCategory)
	assert.Equal(t, 3, resp.TransactionCount)
	assert.Len(t, resp.ByCategory, len(core.ExpenseCategories), "every canonical category appears, zero-filled")
}

func TestDashboardRejectsBadMonth(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	rec := doRequest(srv, http.MethodGet, "/api/dashboard?month=13", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(srv, http.MethodGet, "/api/dashboard?year=abc", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestProfitLoss(t *testing.T) {
	srv, _ := newTestServer(t, marchSeed())

	rec := doRequest(srv, http.MethodGet, "/api/profitloss?year=2024&month=3", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Income        decimal.Decimal `json:"income"`
		Expense       decimal.Decimal `json:"expense"`
		Profit        decimal.Decimal `json:"profit"`
		MarginPercent decimal.Decimal `json:"margin_percent"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	assert.True(t, resp.Income.Equal(decimal.RequireFromString("1000")))
	assert.True(t, resp.Expense.Equal(decimal.RequireFromString("300")))
	assert.True(t, resp.Profit.Equal(decimal.RequireFromString("700")))
	assert.True(t, resp.MarginPercent.Equal(decimal.RequireFromString("70")), "margin = %s", resp.MarginPercent)
}

func TestHealthAndReadiness(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	rec := doRequest(srv, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(srv, http.MethodGet, "/readyz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestReadinessWhileLoading(t *testing.T) {
	store := ledger.New(memory.New(), nopCache{}, applog.New(slog.LevelError, "http-test"))
	srv := NewServer(":0", store, nil, applog.New(slog.LevelError, "http-test"))
	t.Cleanup(func() { srv.rateLimiter.stop() })

	rec := doRequest(srv, http.MethodGet, "/readyz", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	rec := doRequest(srv, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestSecurityHeaders(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	rec := doRequest(srv, http.MethodGet, "/api/transactions", "")
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
}
