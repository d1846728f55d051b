package core

import (
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	Expense TransactionType = "expense"
	Income  TransactionType = "income"
)

type (
	TransactionType string

	// Date is a calendar date without a time component. It marshals as
	// "2006-01-02", which is the wire format of the remote store's date column.
	Date struct {
		time.Time
	}

	// Transaction is the sole entity of the system. Records are immutable after
	// creation; the only lifecycle operations are add and delete. Field names in
	// the JSON tags are the remote-store contract and must stay verbatim.
	Transaction struct {
		ID        string          `json:"id"`
		Type      TransactionType `json:"type"`
		Amount    decimal.Decimal `json:"amount"`
		Category  string          `json:"category"`
		Date      Date            `json:"date"`
		Notes     string          `json:"notes,omitempty"`
		CreatedAt time.Time       `json:"created_at"`
	}

	// Draft carries the user-supplied fields of a transaction before the store
	// assigns identity and creation time.
	Draft struct {
		Type     TransactionType `json:"type"`
		Amount   decimal.Decimal `json:"amount"`
		Category string          `json:"category"`
		Date     Date            `json:"date"`
		Notes    string          `json:"notes"`
	}
)

var (
	ErrMissingAmount = errors.New("missing amount")
	ErrMissingDate   = errors.New("missing date")
	ErrInvalidType   = errors.New("invalid transaction type")
)

const dateLayout = "2006-01-02"

// NewDate creates a Date from year, month, day in UTC.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses a "2006-01-02" calendar date.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, err
	}
	return Date{Time: t}, nil
}

func (d Date) String() string {
	return d.Format(dateLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.Format(dateLayout) + `"`), nil
}

func (d *Date) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		d.Time = time.Time{}
		return nil
	}
	// Accept both bare dates and full timestamps; the remote column is a date
	// but older snapshots carried RFC3339 strings.
	if t, err := time.Parse(dateLayout, s); err == nil {
		d.Time = t
		return nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return err
	}
	d.Time = t
	return nil
}

// SameMonth reports whether d falls in the calendar month containing ref.
func (d Date) SameMonth(ref time.Time) bool {
	return d.Year() == ref.Year() && d.Month() == ref.Month()
}

func (t TransactionType) IsValid() bool {
	switch t {
	case Expense, Income:
		return true
	default:
		return false
	}
}

// Validate checks presence only. Field-level validation beyond presence is
// deliberately absent: the UI layer owns it, and the store accepts whatever
// the caller sends.
func (d Draft) Validate() error {
	if d.Amount.IsZero() {
		return ErrMissingAmount
	}
	if d.Date.IsZero() {
		return ErrMissingDate
	}
	if d.Type != "" && !d.Type.IsValid() {
		return ErrInvalidType
	}
	return nil
}

// NewTransaction materializes a draft: fills the type and category defaults,
// assigns a client-side id and the creation timestamp.
func NewTransaction(d Draft, now time.Time) Transaction {
	typ := d.Type
	if typ == "" {
		typ = Expense
	}
	category := d.Category
	if category == "" {
		category = DefaultCategory(typ)
	}
	return Transaction{
		ID:        uuid.NewString(),
		Type:      typ,
		Amount:    d.Amount,
		Category:  category,
		Date:      d.Date,
		Notes:     strings.TrimSpace(d.Notes),
		CreatedAt: now.UTC(),
	}
}

// SortForDisplay orders a collection date-descending with created_at-descending
// as the tie-break, the ordering every list view expects. Analytics never
// depends on it.
func SortForDisplay(txns []Transaction) {
	sort.SliceStable(txns, func(i, j int) bool {
		if !txns[i].Date.Equal(txns[j].Date.Time) {
			return txns[i].Date.After(txns[j].Date.Time)
		}
		return txns[i].CreatedAt.After(txns[j].CreatedAt)
	})
}
