// Package ledger holds the in-memory transaction store, the single source of
// truth all reads and analytics run against. Mutations apply optimistically:
// memory first, then the local snapshot, then the remote store on a background
// goroutine whose failure never rolls anything back.
package ledger

import (
	"context"
	"sync"
	"time"

	"onetouch/internal/core"
	applog "onetouch/internal/log"
	"onetouch/internal/metrics"
	"onetouch/internal/remote"
)

// remoteTimeout bounds each background persistence attempt.
const remoteTimeout = 10 * time.Second

// SnapshotCache is the local fallback slot. *cache.Cache satisfies it.
type SnapshotCache interface {
	Load(ctx context.Context) []core.Transaction
	Snapshot(ctx context.Context, txns []core.Transaction) error
}

// RetryPublisher hands failed remote operations to a queue for later replay.
// Optional: without one, failed operations are only logged.
type RetryPublisher interface {
	PublishInsertRetry(ctx context.Context, txn core.Transaction) error
	PublishRemoveRetry(ctx context.Context, id string) error
}

type Store struct {
	remote  remote.Store
	cache   SnapshotCache
	retry   RetryPublisher
	metrics *metrics.Recorder
	logger  *applog.Logger

	mu           sync.Mutex
	transactions []core.Transaction
	loading      bool

	pending sync.WaitGroup
}

// Option configures optional collaborators of a Store.
type Option func(*Store)

func WithRetryPublisher(p RetryPublisher) Option {
	return func(s *Store) { s.retry = p }
}

func WithMetrics(r *metrics.Recorder) Option {
	return func(s *Store) { s.metrics = r }
}

func New(remoteStore remote.Store, snapshotCache SnapshotCache, logger *applog.Logger, opts ...Option) *Store {
	s := &Store{
		remote:  remoteStore,
		cache:   snapshotCache,
		logger:  logger,
		loading: true,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Initialize hydrates the store from the remote backend, falling back to the
// local snapshot when the remote is unreachable. The fallback path cannot
// fail: a missing or malformed snapshot yields an empty collection.
func (s *Store) Initialize(ctx context.Context) error {
	txns, err := s.remote.LoadAll(ctx)
	s.recordRemoteOp("load_all", err)
	if err != nil {
		s.logger.Warn("Remote load failed, using local snapshot", "error", err)
		txns = s.cache.Load(ctx)
	}
	core.SortForDisplay(txns)

	s.mu.Lock()
	s.transactions = txns
	s.loading = false
	s.mu.Unlock()

	s.logger.Info("Store initialized", "transactions", len(txns), "fromSnapshot", err != nil)
	return nil
}

// Loading reports whether Initialize has completed.
func (s *Store) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

// Add materializes the draft, applies it in memory and returns the new record
// immediately. Remote persistence happens in the background; its failure does
// not undo the local mutation.
func (s *Store) Add(ctx context.Context, d core.Draft) (core.Transaction, error) {
	if err := d.Validate(); err != nil {
		return core.Transaction{}, err
	}
	txn := core.NewTransaction(d, time.Now())

	s.mu.Lock()
	s.transactions = append([]core.Transaction{txn}, s.transactions...)
	s.snapshotLocked(ctx)
	s.mu.Unlock()
	s.recordMutation("add")

	s.pending.Add(1)
	go func() {
		defer s.pending.Done()
		opCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), remoteTimeout)
		defer cancel()

		err := s.remote.Insert(opCtx, txn)
		s.recordRemoteOp("insert", err)
		if err != nil {
			s.logger.Error("Remote insert failed, keeping local record", "id", txn.ID, "error", err)
			s.publishInsertRetry(opCtx, txn)
		}
	}()

	return txn, nil
}

// Remove deletes the record with the given id. An unknown id is a no-op and
// triggers no remote call.
func (s *Store) Remove(ctx context.Context, id string) {
	s.mu.Lock()
	idx := -1
	for i := range s.transactions {
		if s.transactions[i].ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		s.mu.Unlock()
		return
	}
	s.transactions = append(s.transactions[:idx:idx], s.transactions[idx+1:]...)
	s.snapshotLocked(ctx)
	s.mu.Unlock()
	s.recordMutation("remove")

	s.pending.Add(1)
	go func() {
		defer s.pending.Done()
		opCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), remoteTimeout)
		defer cancel()

		err := s.remote.Remove(opCtx, id)
		s.recordRemoteOp("remove", err)
		if err != nil {
			s.logger.Error("Remote delete failed, keeping local state", "id", id, "error", err)
			s.publishRemoveRetry(opCtx, id)
		}
	}()
}

// Transactions returns a copy of the full collection in display order.
func (s *Store) Transactions() []core.Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Transaction, len(s.transactions))
	copy(out, s.transactions)
	return out
}

// Expenses returns a copy of the expense subset, preserving display order.
func (s *Store) Expenses() []core.Transaction {
	return s.filtered(core.Expense)
}

// Incomes returns a copy of the income subset, preserving display order.
func (s *Store) Incomes() []core.Transaction {
	return s.filtered(core.Income)
}

func (s *Store) filtered(typ core.TransactionType) []core.Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Transaction
	for _, txn := range s.transactions {
		if txn.Type == typ {
			out = append(out, txn)
		}
	}
	return out
}

// Wait blocks until all background persistence attempts have finished.
func (s *Store) Wait() {
	s.pending.Wait()
}

// snapshotLocked persists the current collection to the local slot. Callers
// must hold s.mu; keeping the write inside the critical section keeps
// snapshots in mutation order.
func (s *Store) snapshotLocked(ctx context.Context) {
	snapshot := make([]core.Transaction, len(s.transactions))
	copy(snapshot, s.transactions)
	if err := s.cache.Snapshot(ctx, snapshot); err != nil {
		s.logger.Warn("Snapshot write failed", "error", err)
		if s.metrics != nil {
			s.metrics.SnapshotFailure()
		}
	}
}

func (s *Store) publishInsertRetry(ctx context.Context, txn core.Transaction) {
	if s.retry == nil {
		return
	}
	if err := s.retry.PublishInsertRetry(ctx, txn); err != nil {
		s.logger.Error("Failed to queue insert for retry", "id", txn.ID, "error", err)
		return
	}
	if s.metrics != nil {
		s.metrics.RetryPublished()
	}
}

func (s *Store) publishRemoveRetry(ctx context.Context, id string) {
	if s.retry == nil {
		return
	}
	if err := s.retry.PublishRemoveRetry(ctx, id); err != nil {
		s.logger.Error("Failed to queue delete for retry", "id", id, "error", err)
		return
	}
	if s.metrics != nil {
		s.metrics.RetryPublished()
	}
}

func (s *Store) recordRemoteOp(op string, err error) {
	if s.metrics != nil {
		s.metrics.RemoteOp(op, err)
	}
}

func (s *Store) recordMutation(op string) {
	if s.metrics != nil {
		s.metrics.Mutation(op)
	}
}
