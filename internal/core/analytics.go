package core

import (
	"time"

	"github.com/shopspring/decimal"
)

// Analytics over a transaction collection. Everything here is pure: same
// inputs, same outputs, no mutation of the collection passed in.

// CategoryAmount is one entry of an ordered category breakdown.
type CategoryAmount struct {
	Category string          `json:"category"`
	Amount   decimal.Decimal `json:"amount"`
}

// Breakdown is an ordered category->amount mapping. Order is canonical-list
// order followed by first-encountered order for categories outside the list.
type Breakdown []CategoryAmount

// ProfitLossSummary aggregates one window's income against its expenses.
// MarginPercent is profit as a percentage of income, rounded to one decimal
// place, and defined as zero when there is no income.
type ProfitLossSummary struct {
	Income        decimal.Decimal `json:"income"`
	Expense       decimal.Decimal `json:"expense"`
	Profit        decimal.Decimal `json:"profit"`
	MarginPercent decimal.Decimal `json:"margin_percent"`
}

// MonthlyWindow filters to transactions dated within the calendar month
// containing ref, both boundary days inclusive.
func MonthlyWindow(txns []Transaction, ref time.Time) []Transaction {
	out := make([]Transaction, 0, len(txns))
	for _, t := range txns {
		if t.Date.SameMonth(ref) {
			out = append(out, t)
		}
	}
	return out
}

// SumByType sums the amounts of transactions matching the given type.
func SumByType(txns []Transaction, typ TransactionType) decimal.Decimal {
	sum := decimal.Zero
	for _, t := range txns {
		if t.Type == typ {
			sum = sum.Add(t.Amount)
		}
	}
	return sum
}

// CategoryBreakdown accumulates expense amounts per category. Every category
// in categories appears, zero-valued if unmatched; categories present in the
// data but missing from the list are still accumulated under their own key.
func CategoryBreakdown(txns []Transaction, categories []string) Breakdown {
	index := make(map[string]int, len(categories))
	out := make(Breakdown, 0, len(categories))
	for _, c := range categories {
		index[c] = len(out)
		out = append(out, CategoryAmount{Category: c, Amount: decimal.Zero})
	}
	for _, t := range txns {
		if t.Type != Expense {
			continue
		}
		i, ok := index[t.Category]
		if !ok {
			i = len(out)
			index[t.Category] = i
			out = append(out, CategoryAmount{Category: t.Category, Amount: decimal.Zero})
		}
		out[i].Amount = out[i].Amount.Add(t.Amount)
	}
	return out
}

// TopCategory returns the category with the largest positive total, or "none"
// when nothing was spent. Ties keep the earlier entry.
func TopCategory(b Breakdown) string {
	top := "none"
	max := decimal.Zero
	for _, e := range b {
		if e.Amount.GreaterThan(max) {
			max = e.Amount
			top = e.Category
		}
	}
	return top
}

// ProfitLoss computes the income/expense totals, net profit, and margin for
// the given transactions.
func ProfitLoss(txns []Transaction) ProfitLossSummary {
	income := SumByType(txns, Income)
	expense := SumByType(txns, Expense)
	profit := income.Sub(expense)

	margin := decimal.Zero
	if income.IsPositive() {
		margin = profit.Div(income).Mul(decimal.NewFromInt(100)).Round(1)
	}
	return ProfitLossSummary{
		Income:        income,
		Expense:       expense,
		Profit:        profit,
		MarginPercent: margin,
	}
}
