// Package memory provides an in-process remote store for development and
// tests. It keeps the same contract as the network backends, including
// injectable failure and latency so optimistic-update behavior can be
// exercised without a real network.
package memory

import (
	"context"
	"sync"
	"time"

	"onetouch/internal/core"
	"onetouch/internal/remote"
)

type Store struct {
	mu    sync.Mutex
	items []core.Transaction
	err   error
	delay time.Duration
}

var _ remote.Store = (*Store)(nil)

func New() *Store {
	return &Store{}
}

// Seed replaces the stored collection, for dev startup and test fixtures.
func (s *Store) Seed(txns []core.Transaction) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = append([]core.Transaction(nil), txns...)
}

// SetError makes every subsequent operation fail with ErrRemoteUnavailable.
// Pass nil to recover.
func (s *Store) SetError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

// SetDelay adds artificial latency before each operation completes.
func (s *Store) SetDelay(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delay = d
}

func (s *Store) LoadAll(ctx context.Context) ([]core.Transaction, error) {
	if err := s.simulate(ctx); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := append([]core.Transaction(nil), s.items...)
	core.SortForDisplay(out)
	return out, nil
}

func (s *Store) Insert(ctx context.Context, txn core.Transaction) error {
	if err := s.simulate(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = append(s.items, txn)
	return nil
}

func (s *Store) Remove(ctx context.Context, id string) error {
	if err := s.simulate(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, t := range s.items {
		if t.ID == id {
			s.items = append(s.items[:i], s.items[i+1:]...)
			break
		}
	}
	return nil
}

// Inserted returns a copy of the stored collection in insertion order.
func (s *Store) Inserted() []core.Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.Transaction(nil), s.items...)
}

func (s *Store) simulate(ctx context.Context) error {
	s.mu.Lock()
	err, delay := s.err, s.delay
	s.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return remote.Unavailable(ctx.Err())
		}
	}
	if err != nil {
		return remote.Unavailable(err)
	}
	return nil
}
