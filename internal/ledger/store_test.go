package ledger

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"onetouch/internal/core"
	applog "onetouch/internal/log"
	"onetouch/internal/remote"
	"onetouch/internal/remote/memory"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeCache records snapshots in memory so tests can assert on persistence
// without touching SQLite.
type fakeCache struct {
	mu        sync.Mutex
	snapshots [][]core.Transaction
	loadWith  []core.Transaction
	err       error
}

func (f *fakeCache) Load(ctx context.Context) []core.Transaction {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]core.Transaction(nil), f.loadWith...)
}

func (f *fakeCache) Snapshot(ctx context.Context, txns []core.Transaction) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.snapshots = append(f.snapshots, append([]core.Transaction(nil), txns...))
	return nil
}

func (f *fakeCache) last() []core.Transaction {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.snapshots) == 0 {
		return nil
	}
	return f.snapshots[len(f.snapshots)-1]
}

type fakePublisher struct {
	mu      sync.Mutex
	inserts []core.Transaction
	removes []string
}

func (f *fakePublisher) PublishInsertRetry(ctx context.Context, txn core.Transaction) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inserts = append(f.inserts, txn)
	return nil
}

func (f *fakePublisher) PublishRemoveRetry(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.removes = append(f.removes, id)
	return nil
}

func testLogger() *applog.Logger {
	return applog.New(slog.LevelError, "ledger-test")
}

func draft(typ core.TransactionType, amount string, year, month, day int) core.Draft {
	return core.Draft{
		Type:   typ,
		Amount: decimal.RequireFromString(amount),
		Date:   core.NewDate(year, month, day),
	}
}

func TestInitializeFromRemote(t *testing.T) {
	rem := memory.New()
	rem.Seed([]core.Transaction{
		{ID: "old", Type: core.Expense, Amount: decimal.NewFromInt(5), Date: core.NewDate(2024, 3, 1), CreatedAt: time.Now()},
		{ID: "new", Type: core.Expense, Amount: decimal.NewFromInt(7), Date: core.NewDate(2024, 3, 10), CreatedAt: time.Now()},
	})
	s := New(rem, &fakeCache{}, testLogger())

	require.True(t, s.Loading())
	require.NoError(t, s.Initialize(context.Background()))
	assert.False(t, s.Loading())

	got := s.Transactions()
	require.Len(t, got, 2)
	assert.Equal(t, "new", got[0].ID)
	assert.Equal(t, "old", got[1].ID)
}

func TestInitializeFallsBackToSnapshot(t *testing.T) {
	rem := memory.New()
	rem.SetError(errors.New("connection refused"))
	cached := []core.Transaction{
		{ID: "cached", Type: core.Income, Amount: decimal.NewFromInt(100), Date: core.NewDate(2024, 2, 1)},
	}
	s := New(rem, &fakeCache{loadWith: cached}, testLogger())

	require.NoError(t, s.Initialize(context.Background()))
	got := s.Transactions()
	require.Len(t, got, 1)
	assert.Equal(t, "cached", got[0].ID)
}

func TestInitializeEmptyWhenNothingAnywhere(t *testing.T) {
	rem := memory.New()
	rem.SetError(errors.New("connection refused"))
	s := New(rem, &fakeCache{}, testLogger())

	require.NoError(t, s.Initialize(context.Background()))
	assert.Empty(t, s.Transactions())
}

func TestAddIsVisibleBeforeRemoteCompletes(t *testing.T) {
	rem := memory.New()
	s := New(rem, &fakeCache{}, testLogger())
	require.NoError(t, s.Initialize(context.Background()))
	rem.SetDelay(200 * time.Millisecond)

	start := time.Now()
	txn, err := s.Add(context.Background(), draft(core.Expense, "250.50", 2024, 3, 15))
	require.NoError(t, err)
	assert.Less(t, time.Since(start), 100*time.Millisecond, "Add must not wait for the remote")

	got := s.Transactions()
	require.Len(t, got, 1)
	assert.Equal(t, txn.ID, got[0].ID)

	s.Wait()
	inserted := rem.Inserted()
	require.Len(t, inserted, 1)
	assert.Equal(t, txn.ID, inserted[0].ID)
}

func TestAddSurvivesRemoteFailure(t *testing.T) {
	rem := memory.New()
	s := New(rem, &fakeCache{}, testLogger())
	require.NoError(t, s.Initialize(context.Background()))
	rem.SetError(errors.New("boom"))

	txn, err := s.Add(context.Background(), draft(core.Expense, "10", 2024, 3, 15))
	require.NoError(t, err)
	s.Wait()

	got := s.Transactions()
	require.Len(t, got, 1)
	assert.Equal(t, txn.ID, got[0].ID)
	assert.Empty(t, rem.Inserted())
}

func TestAddFillsDefaults(t *testing.T) {
	rem := memory.New()
	s := New(rem, &fakeCache{}, testLogger())
	require.NoError(t, s.Initialize(context.Background()))

	txn, err := s.Add(context.Background(), core.Draft{
		Amount: decimal.NewFromInt(42),
		Date:   core.NewDate(2024, 3, 15),
	})
	require.NoError(t, err)
	s.Wait()

	assert.Equal(t, core.Expense, txn.Type)
	assert.Equal(t, core.DefaultCategory(core.Expense), txn.Category)
	assert.NotEmpty(t, txn.ID)
	assert.False(t, txn.CreatedAt.IsZero())
}

func TestAddRejectsMissingFields(t *testing.T) {
	s := New(memory.New(), &fakeCache{}, testLogger())
	require.NoError(t, s.Initialize(context.Background()))

	_, err := s.Add(context.Background(), core.Draft{Date: core.NewDate(2024, 3, 15)})
	assert.ErrorIs(t, err, core.ErrMissingAmount)

	_, err = s.Add(context.Background(), core.Draft{Amount: decimal.NewFromInt(1)})
	assert.ErrorIs(t, err, core.ErrMissingDate)

	_, err = s.Add(context.Background(), core.Draft{
		Type:   "transfer",
		Amount: decimal.NewFromInt(1),
		Date:   core.NewDate(2024, 3, 15),
	})
	assert.ErrorIs(t, err, core.ErrInvalidType)
	assert.Empty(t, s.Transactions())
}

func TestRemoveDeletesLocallyAndRemotely(t *testing.T) {
	rem := memory.New()
	s := New(rem, &fakeCache{}, testLogger())
	require.NoError(t, s.Initialize(context.Background()))

	txn, err := s.Add(context.Background(), draft(core.Expense, "10", 2024, 3, 15))
	require.NoError(t, err)
	s.Wait()

	s.Remove(context.Background(), txn.ID)
	s.Wait()

	assert.Empty(t, s.Transactions())
	assert.Empty(t, rem.Inserted())
}

func TestRemoveUnknownIDIsNoOp(t *testing.T) {
	rem := memory.New()
	cache := &fakeCache{}
	s := New(rem, cache, testLogger())
	require.NoError(t, s.Initialize(context.Background()))

	_, err := s.Add(context.Background(), draft(core.Expense, "10", 2024, 3, 15))
	require.NoError(t, err)
	s.Wait()
	snapshotsBefore := len(cache.snapshots)

	s.Remove(context.Background(), "no-such-id")
	s.Wait()

	assert.Len(t, s.Transactions(), 1)
	assert.Len(t, cache.snapshots, snapshotsBefore, "unknown id must not snapshot")
}

func TestSnapshotTracksEveryMutation(t *testing.T) {
	cache := &fakeCache{}
	s := New(memory.New(), cache, testLogger())
	require.NoError(t, s.Initialize(context.Background()))

	txn, err := s.Add(context.Background(), draft(core.Income, "1000", 2024, 3, 1))
	require.NoError(t, err)
	require.Len(t, cache.last(), 1)

	s.Remove(context.Background(), txn.ID)
	assert.Empty(t, cache.last())
	assert.Len(t, cache.snapshots, 2)
	s.Wait()
}

func TestSnapshotFailureDoesNotBlockMutation(t *testing.T) {
	cache := &fakeCache{err: errors.New("disk full")}
	s := New(memory.New(), cache, testLogger())
	require.NoError(t, s.Initialize(context.Background()))

	_, err := s.Add(context.Background(), draft(core.Expense, "10", 2024, 3, 15))
	require.NoError(t, err)
	assert.Len(t, s.Transactions(), 1)
	s.Wait()
}

func TestFailedOperationsGoToRetryQueue(t *testing.T) {
	rem := memory.New()
	pub := &fakePublisher{}
	s := New(rem, &fakeCache{}, testLogger(), WithRetryPublisher(pub))
	require.NoError(t, s.Initialize(context.Background()))

	txn, err := s.Add(context.Background(), draft(core.Expense, "10", 2024, 3, 15))
	require.NoError(t, err)
	s.Wait()

	rem.SetError(errors.New("boom"))
	_, err = s.Add(context.Background(), draft(core.Expense, "20", 2024, 3, 16))
	require.NoError(t, err)
	s.Remove(context.Background(), txn.ID)
	s.Wait()

	pub.mu.Lock()
	defer pub.mu.Unlock()
	require.Len(t, pub.inserts, 1)
	assert.True(t, pub.inserts[0].Amount.Equal(decimal.NewFromInt(20)))
	assert.Equal(t, []string{txn.ID}, pub.removes)
}

func TestExpensesAndIncomesFilter(t *testing.T) {
	s := New(memory.New(), &fakeCache{}, testLogger())
	require.NoError(t, s.Initialize(context.Background()))

	_, err := s.Add(context.Background(), draft(core.Expense, "10", 2024, 3, 15))
	require.NoError(t, err)
	_, err = s.Add(context.Background(), draft(core.Income, "1000", 2024, 3, 1))
	require.NoError(t, err)
	s.Wait()

	expenses := s.Expenses()
	require.Len(t, expenses, 1)
	assert.Equal(t, core.Expense, expenses[0].Type)

	incomes := s.Incomes()
	require.Len(t, incomes, 1)
	assert.Equal(t, core.Income, incomes[0].Type)
}

func TestReadsReturnCopies(t *testing.T) {
	s := New(memory.New(), &fakeCache{}, testLogger())
	require.NoError(t, s.Initialize(context.Background()))

	_, err := s.Add(context.Background(), draft(core.Expense, "10", 2024, 3, 15))
	require.NoError(t, err)
	s.Wait()

	got := s.Transactions()
	got[0].ID = "mutated"
	assert.NotEqual(t, "mutated", s.Transactions()[0].ID)
}

func TestConcurrentMutations(t *testing.T) {
	s := New(memory.New(), &fakeCache{}, testLogger())
	require.NoError(t, s.Initialize(context.Background()))

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Add(context.Background(), draft(core.Expense, "1", 2024, 3, 15))
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	s.Wait()

	assert.Len(t, s.Transactions(), 20)
}

func TestRemoteErrorIsTagged(t *testing.T) {
	rem := memory.New()
	rem.SetError(errors.New("boom"))
	_, err := rem.LoadAll(context.Background())
	assert.ErrorIs(t, err, remote.ErrRemoteUnavailable)
}
