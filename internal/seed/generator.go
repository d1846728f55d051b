// Package seed fills the memory backend with plausible transactions for local
// development.
package seed

import (
	"time"

	"onetouch/internal/core"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/shopspring/decimal"
)

// Drafts generates count random transaction drafts dated within the last six
// months. Roughly four out of five are expenses, mirroring real usage. Pass
// the same seed to reproduce a run.
func Drafts(count int, seed uint64) []core.Draft {
	faker := gofakeit.New(seed)
	now := time.Now()
	start := now.AddDate(0, -6, 0)

	out := make([]core.Draft, 0, count)
	for i := 0; i < count; i++ {
		typ := core.Expense
		maxAmount := 300.0
		if faker.Number(1, 5) == 1 {
			typ = core.Income
			maxAmount = 3000.0
		}

		date := faker.DateRange(start, now)
		draft := core.Draft{
			Type:     typ,
			Amount:   decimal.NewFromFloat(faker.Price(1, maxAmount)),
			Category: faker.RandomString(core.CategoriesFor(typ)),
			Date:     core.NewDate(date.Year(), int(date.Month()), date.Day()),
		}
		if faker.Bool() {
			draft.Notes = faker.Sentence(4)
		}
		out = append(out, draft)
	}
	return out
}

// Transactions materializes generated drafts into full records.
func Transactions(count int, seed uint64) []core.Transaction {
	drafts := Drafts(count, seed)
	out := make([]core.Transaction, 0, len(drafts))
	for _, d := range drafts {
		out = append(out, core.NewTransaction(d, time.Now()))
	}
	return out
}
