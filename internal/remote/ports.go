// Package remote defines the port to the durable network-backed store that
// mirrors the in-memory collection. The in-memory collection is the source of
// truth during a session; implementations here are downstream mirrors.
package remote

import (
	"context"
	"errors"
	"fmt"

	"onetouch/internal/core"
)

// ErrRemoteUnavailable is the uniform failure for every remote operation:
// network errors, backend errors, and timeouts all collapse into it. Callers
// only ever branch on reachable/unreachable.
var ErrRemoteUnavailable = errors.New("remote store unavailable")

// Store is the outbound port to the remote transaction table.
type Store interface {
	// LoadAll fetches every record ordered by date descending.
	LoadAll(ctx context.Context) ([]core.Transaction, error)

	// Insert persists one record.
	Insert(ctx context.Context, txn core.Transaction) error

	// Remove deletes one record by id. Unknown ids are not an error.
	Remove(ctx context.Context, id string) error
}

// Unavailable wraps err so it matches ErrRemoteUnavailable while keeping the
// cause inspectable.
func Unavailable(err error) error {
	return fmt.Errorf("%w: %w", ErrRemoteUnavailable, err)
}
