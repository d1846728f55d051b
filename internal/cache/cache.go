// Package cache holds the on-device fallback snapshot: a single named slot in
// a local SQLite database containing the JSON-serialized collection. The slot
// mirrors the last-known in-memory state and is only read when the remote
// store is unreachable at startup.
package cache

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"onetouch/internal/core"
	applog "onetouch/internal/log"

	_ "modernc.org/sqlite"
)

// slotName matches the key the original client kept in device storage.
const slotName = "onetouch_transactions"

type Cache struct {
	db     *sql.DB
	logger *applog.Logger
}

// Open creates (if needed) and opens the snapshot database at dbPath.
func Open(dbPath string, logger *applog.Logger) (*Cache, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create cache directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open cache database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping cache database: %w", err)
	}
	if err := runMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate cache database: %w", err)
	}
	return &Cache{db: db, logger: logger}, nil
}

func (c *Cache) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

// Load reads the last-synced snapshot. Absent or malformed content is treated
// as an empty collection, never as an error: the fallback path must not be
// able to fail startup.
func (c *Cache) Load(ctx context.Context) []core.Transaction {
	var payload string
	err := c.db.QueryRowContext(ctx,
		`SELECT payload FROM snapshots WHERE slot = ?`, slotName).Scan(&payload)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil
	case err != nil:
		c.logger.Warn("Snapshot read failed, treating as empty", "error", err)
		return nil
	}

	var txns []core.Transaction
	if err := json.Unmarshal([]byte(payload), &txns); err != nil {
		c.logger.Warn("Snapshot payload malformed, treating as empty", "error", err)
		return nil
	}
	return txns
}

// Snapshot overwrites the slot with the given collection. Called after every
// successful in-memory mutation, independent of remote success.
func (c *Cache) Snapshot(ctx context.Context, txns []core.Transaction) error {
	if txns == nil {
		txns = []core.Transaction{}
	}
	payload, err := json.Marshal(txns)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	_, err = c.db.ExecContext(ctx,
		`INSERT INTO snapshots (slot, payload, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(slot) DO UPDATE SET payload = excluded.payload, updated_at = excluded.updated_at`,
		slotName, string(payload), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	return nil
}
