// Package ledger tracks global illustration spend and enforces the fixed
// spend cap.
//
// The ledger is a process-wide singleton pair of counters: units generated
// and total dollars spent. Both are monotonically non-decreasing and are
// never reset at runtime. Hot counters live in Redis so admission checks
// and charges are single round trips; a durable copy is synced to a
// Postgres singleton row in the background and read back once at startup.
//
// Race condition prevention: TryReserve executes as one Lua script in
// Redis, so the cap comparison and the counter increments are a single
// atomic read-modify-write. There is no window in which two callers can
// both observe headroom and both commit past the cap. If Redis is
// unavailable the ledger fails closed: nothing is granted and nothing is
// charged.
package ledger

import (
	"context"

	"github.com/burzuercher/group-meal-planner-sub000/internal/models"
)

// Fixed pricing. Not runtime-negotiable: changing either constant is a
// deploy, not a config edit.
const (
	// UnitCostUSD is the cost of one generated illustration.
	UnitCostUSD = 0.04

	// SpendCapUSD is the global lifetime spend cap across all groups.
	SpendCapUSD = 10.00
)

// Service is the spend ledger contract. Constructed once at startup and
// injected everywhere; tests substitute the in-memory implementation.
type Service interface {
	// HasHeadroom reports whether one more unit fits under the cap.
	// Read-only admission check; fails closed when the store is
	// unreachable.
	HasHeadroom(ctx context.Context) bool

	// TryReserve atomically charges one unit if and only if the
	// projected total stays within the cap. Rejection leaves the
	// counters untouched. Fails closed when the store is unreachable.
	TryReserve(ctx context.Context) bool

	// Snapshot returns the current counters.
	Snapshot(ctx context.Context) (*models.LedgerSnapshot, error)
}
