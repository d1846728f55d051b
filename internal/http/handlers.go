package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"onetouch/internal/core"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// transactionRequest is the POST body. Validation stops at presence and type
// membership; amounts and dates are accepted as sent.
type transactionRequest struct {
	Type     string          `json:"type" validate:"omitempty,oneof=expense income"`
	Amount   decimal.Decimal `json:"amount" validate:"required"`
	Category string          `json:"category"`
	Date     string          `json:"date" validate:"required"`
	Notes    string          `json:"notes"`
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	var txns []core.Transaction
	switch strings.TrimSpace(r.URL.Query().Get("type")) {
	case "":
		txns = s.store.Transactions()
	case string(core.Expense):
		txns = s.store.Expenses()
	case string(core.Income):
		txns = s.store.Incomes()
	default:
		writeError(w, http.StatusBadRequest, "unknown transaction type")
		return
	}
	if txns == nil {
		txns = []core.Transaction{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"transactions": txns,
		"loading":      s.store.Loading(),
	})
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req transactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, validationMessage(err))
		return
	}

	date, err := core.ParseDate(req.Date)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "date must be YYYY-MM-DD")
		return
	}

	txn, err := s.store.Add(r.Context(), core.Draft{
		Type:     core.TransactionType(req.Type),
		Amount:   req.Amount,
		Category: req.Category,
		Date:     date,
		Notes:    req.Notes,
	})
	if err != nil {
		s.logger.Warn("Rejected transaction", "error", err)
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, txn)
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing id")
		return
	}
	// Unknown ids are indistinguishable from already-deleted ones, so both
	// answer 204.
	s.store.Remove(r.Context(), id)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	switch strings.TrimSpace(r.URL.Query().Get("type")) {
	case "":
		writeJSON(w, http.StatusOK, map[string]any{
			"expense": core.CategoriesFor(core.Expense),
			"income":  core.CategoriesFor(core.Income),
		})
	case string(core.Expense):
		writeJSON(w, http.StatusOK, map[string]any{"categories": core.CategoriesFor(core.Expense)})
	case string(core.Income):
		writeJSON(w, http.StatusOK, map[string]any{"categories": core.CategoriesFor(core.Income)})
	default:
		writeError(w, http.StatusBadRequest, "unknown transaction type")
	}
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	ref, err := monthParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	window := core.MonthlyWindow(s.store.Transactions(), ref)
	breakdown := core.CategoryBreakdown(window, core.ExpenseCategories)

	writeJSON(w, http.StatusOK, map[string]any{
		"year":              ref.Year(),
		"month":             int(ref.Month()),
		"total_expenses":    core.SumByType(window, core.Expense),
		"total_income":      core.SumByType(window, core.Income),
		"by_category":       breakdown,
		"top_category":      core.TopCategory(breakdown),
		"transaction_count": len(window),
	})
}

func (s *Server) handleProfitLoss(w http.ResponseWriter, r *http.Request) {
	ref, err := monthParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	summary := core.ProfitLoss(core.MonthlyWindow(s.store.Transactions(), ref))

	writeJSON(w, http.StatusOK, map[string]any{
		"year":           ref.Year(),
		"month":          int(ref.Month()),
		"income":         summary.Income,
		"expense":        summary.Expense,
		"profit":         summary.Profit,
		"margin_percent": summary.MarginPercent,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.started).String(),
	})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.store.Loading() {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "loading"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// monthParam resolves the ?year=&month= pair, defaulting to the current month.
func monthParam(r *http.Request) (time.Time, error) {
	now := time.Now()
	year, month := now.Year(), int(now.Month())

	if v := strings.TrimSpace(r.URL.Query().Get("year")); v != "" {
		y, err := strconv.Atoi(v)
		if err != nil {
			return time.Time{}, errors.New("year must be a number")
		}
		year = y
	}
	if v := strings.TrimSpace(r.URL.Query().Get("month")); v != "" {
		m, err := strconv.Atoi(v)
		if err != nil || m < 1 || m > 12 {
			return time.Time{}, errors.New("month must be between 1 and 12")
		}
		month = m
	}
	return time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC), nil
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		f := verrs[0]
		switch f.Tag() {
		case "required":
			return "missing " + strings.ToLower(f.Field())
		case "oneof":
			return "type must be expense or income"
		}
	}
	return "invalid request"
}
