// Package postgres implements the remote store against a Postgres
// transactions table, the same schema the hosted backend serves.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"onetouch/internal/core"
	"onetouch/internal/remote"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/shopspring/decimal"
)

const (
	selectAllQuery = `SELECT id, type, amount, category, date, notes, created_at
FROM transactions
ORDER BY date DESC, created_at DESC`

	insertQuery = `INSERT INTO transactions (id, type, amount, category, date, notes, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)`

	deleteQuery = `DELETE FROM transactions WHERE id = $1`
)

type Store struct {
	db *sql.DB
}

var _ remote.Store = (*Store)(nil)

// Open connects to the remote database and verifies reachability.
func Open(databaseURL string) (*Store, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &Store{db: db}, nil
}

// NewWithDB wraps an existing connection, used by tests.
func NewWithDB(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *Store) LoadAll(ctx context.Context) ([]core.Transaction, error) {
	rows, err := s.db.QueryContext(ctx, selectAllQuery)
	if err != nil {
		return nil, remote.Unavailable(fmt.Errorf("select transactions: %w", err))
	}
	defer rows.Close()

	var out []core.Transaction
	for rows.Next() {
		var (
			txn    core.Transaction
			amount decimal.Decimal
			date   time.Time
			notes  sql.NullString
		)
		if err := rows.Scan(&txn.ID, &txn.Type, &amount, &txn.Category, &date, &notes, &txn.CreatedAt); err != nil {
			return nil, remote.Unavailable(fmt.Errorf("scan transaction: %w", err))
		}
		txn.Amount = amount
		txn.Date = core.Date{Time: date}
		txn.Notes = notes.String
		out = append(out, txn)
	}
	if err := rows.Err(); err != nil {
		return nil, remote.Unavailable(fmt.Errorf("iterate transactions: %w", err))
	}
	return out, nil
}

func (s *Store) Insert(ctx context.Context, txn core.Transaction) error {
	notes := sql.NullString{String: txn.Notes, Valid: txn.Notes != ""}
	_, err := s.db.ExecContext(ctx, insertQuery,
		txn.ID, string(txn.Type), txn.Amount, txn.Category, txn.Date.Time, notes, txn.CreatedAt)
	if err != nil {
		return remote.Unavailable(fmt.Errorf("insert transaction %s: %w", txn.ID, err))
	}
	return nil
}

func (s *Store) Remove(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, deleteQuery, id); err != nil {
		return remote.Unavailable(fmt.Errorf("delete transaction %s: %w", id, err))
	}
	return nil
}
