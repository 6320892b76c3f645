package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/burzuercher/group-meal-planner-sub000/internal/models"
)

// LedgerRepository persists the global spend ledger singleton row. The
// hot counters live in Redis; this row is the durable copy, written
// asynchronously by the ledger's sync worker and read once at startup.
type LedgerRepository struct {
	db *DB
}

// NewLedgerRepository creates a new spend ledger repository
func NewLedgerRepository(db *DB) *LedgerRepository {
	return &LedgerRepository{db: db}
}

// Load reads the durable ledger row. A missing row is a fresh install
// and reads as zero counters.
func (r *LedgerRepository) Load(ctx context.Context) (*models.LedgerSnapshot, error) {
	var snapshot models.LedgerSnapshot
	query := `
		SELECT units_generated, total_spent_usd, last_updated
		FROM spend_ledger
		WHERE singleton
	`

	err := r.db.conn.GetContext(ctx, &snapshot, query)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return &models.LedgerSnapshot{}, nil
		}
		return nil, fmt.Errorf("failed to load spend ledger: %w", err)
	}

	return &snapshot, nil
}

// Save upserts the singleton row. Counters are monotonic, so the row is
// only advanced, never rolled back, even if syncs land out of order.
func (r *LedgerRepository) Save(ctx context.Context, snapshot *models.LedgerSnapshot) error {
	query := `
		INSERT INTO spend_ledger (singleton, units_generated, total_spent_usd, last_updated)
		VALUES (TRUE, $1, $2, $3)
		ON CONFLICT (singleton) DO UPDATE SET
			units_generated = GREATEST(spend_ledger.units_generated, EXCLUDED.units_generated),
			total_spent_usd = GREATEST(spend_ledger.total_spent_usd, EXCLUDED.total_spent_usd),
			last_updated = GREATEST(spend_ledger.last_updated, EXCLUDED.last_updated)
	`

	_, err := r.db.conn.ExecContext(ctx, query,
		snapshot.UnitsGenerated, snapshot.TotalSpentUSD, snapshot.LastUpdated,
	)
	if err != nil {
		return fmt.Errorf("failed to save spend ledger: %w", err)
	}

	return nil
}
