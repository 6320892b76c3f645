package models

import "time"

// LedgerSnapshot is a point-in-time read of the global spend ledger.
// Counters are monotonically non-decreasing and are never reset at
// runtime; TotalSpentUSD == UnitsGenerated * unit cost under correct
// atomic updates.
type LedgerSnapshot struct {
	UnitsGenerated int64     `db:"units_generated" json:"units_generated"`
	TotalSpentUSD  float64   `db:"total_spent_usd" json:"total_spent_usd"`
	LastUpdated    time.Time `db:"last_updated" json:"last_updated"`
}
