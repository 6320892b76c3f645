package ledger

import (
	"context"
	"sync"
	"time"

	"github.com/burzuercher/group-meal-planner-sub000/internal/models"
)

// MemoryLedger is a mutex-guarded in-process ledger for tests and
// standalone runs. It enforces the same cap semantics as RedisLedger.
type MemoryLedger struct {
	mu       sync.Mutex
	snapshot models.LedgerSnapshot
}

// NewMemoryLedger creates an in-memory ledger with zero counters
func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{}
}

// SetSpent pre-loads the counters, for tests that need a ledger near
// or at the cap.
func (l *MemoryLedger) SetSpent(units int64, spentUSD float64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.snapshot.UnitsGenerated = units
	l.snapshot.TotalSpentUSD = spentUSD
	l.snapshot.LastUpdated = time.Now().UTC()
}

// HasHeadroom reports whether one more unit fits under the cap
func (l *MemoryLedger) HasHeadroom(ctx context.Context) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.snapshot.TotalSpentUSD+UnitCostUSD <= SpendCapUSD
}

// TryReserve atomically charges one unit if the cap allows it
func (l *MemoryLedger) TryReserve(ctx context.Context) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.snapshot.TotalSpentUSD+UnitCostUSD > SpendCapUSD {
		return false
	}

	l.snapshot.UnitsGenerated++
	l.snapshot.TotalSpentUSD += UnitCostUSD
	l.snapshot.LastUpdated = time.Now().UTC()
	return true
}

// Snapshot returns a copy of the current counters
func (l *MemoryLedger) Snapshot(ctx context.Context) (*models.LedgerSnapshot, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	snapshot := l.snapshot
	return &snapshot, nil
}
