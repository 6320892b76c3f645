package ledger

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/burzuercher/group-meal-planner-sub000/internal/models"
	"github.com/burzuercher/group-meal-planner-sub000/internal/storage"
	"github.com/burzuercher/group-meal-planner-sub000/internal/utils"
)

const ledgerKey = "ledger:spend"

// tryReserveScript checks the cap and commits both counters in one atomic
// step. Returns 1 when granted, 0 when the projected spend would exceed
// the cap.
var tryReserveScript = redis.NewScript(`
	local units = tonumber(redis.call('HGET', KEYS[1], 'units_generated') or '0')
	local spent = tonumber(redis.call('HGET', KEYS[1], 'total_spent_usd') or '0')
	local cost = tonumber(ARGV[1])
	local cap = tonumber(ARGV[2])

	if spent + cost > cap then
		return 0
	end

	redis.call('HSET', KEYS[1],
		'units_generated', units + 1,
		'total_spent_usd', spent + cost,
		'last_updated', ARGV[3])
	return 1
`)

// RedisLedger keeps the hot counters in Redis and syncs them to Postgres.
type RedisLedger struct {
	redis    *redis.Client
	repo     *storage.LedgerRepository
	syncFreq time.Duration
	logger   *utils.Logger
	done     chan struct{}
}

// NewRedisLedger creates the ledger, seeds the Redis counters from the
// durable Postgres row, and starts the background sync worker. A nil
// repository disables durability (used by tests).
func NewRedisLedger(ctx context.Context, redisClient *redis.Client, repo *storage.LedgerRepository, syncFrequency time.Duration) (*RedisLedger, error) {
	l := &RedisLedger{
		redis:    redisClient,
		repo:     repo,
		syncFreq: syncFrequency,
		logger:   utils.NewLogger("spend-ledger"),
		done:     make(chan struct{}),
	}

	if repo != nil {
		if err := l.seed(ctx); err != nil {
			return nil, err
		}
		go l.syncWorker()
	}

	return l, nil
}

// seed copies the durable counters into Redis if Redis has none yet.
// HSETNX keeps a concurrent replica's seed from clobbering live counters.
func (l *RedisLedger) seed(ctx context.Context) error {
	snapshot, err := l.repo.Load(ctx)
	if err != nil {
		return err
	}

	pipe := l.redis.Pipeline()
	pipe.HSetNX(ctx, ledgerKey, "units_generated", snapshot.UnitsGenerated)
	pipe.HSetNX(ctx, ledgerKey, "total_spent_usd", snapshot.TotalSpentUSD)
	pipe.HSetNX(ctx, ledgerKey, "last_updated", snapshot.LastUpdated.UTC().Format(time.RFC3339Nano))
	_, err = pipe.Exec(ctx)
	return err
}

// HasHeadroom reports whether one more unit fits under the cap. Any
// Redis error reads as no headroom.
func (l *RedisLedger) HasHeadroom(ctx context.Context) bool {
	spent, err := l.redis.HGet(ctx, ledgerKey, "total_spent_usd").Float64()
	if err != nil && err != redis.Nil {
		l.logger.Warn("Ledger read failed, failing closed", "error", err)
		return false
	}

	return spent+UnitCostUSD <= SpendCapUSD
}

// TryReserve atomically charges one unit if the cap allows it.
func (l *RedisLedger) TryReserve(ctx context.Context) bool {
	now := time.Now().UTC().Format(time.RFC3339Nano)

	granted, err := tryReserveScript.Run(ctx, l.redis, []string{ledgerKey},
		UnitCostUSD, SpendCapUSD, now,
	).Int()
	if err != nil {
		l.logger.Warn("Ledger reserve failed, failing closed", "error", err)
		return false
	}

	return granted == 1
}

// Snapshot returns the current counters.
func (l *RedisLedger) Snapshot(ctx context.Context) (*models.LedgerSnapshot, error) {
	fields, err := l.redis.HGetAll(ctx, ledgerKey).Result()
	if err != nil {
		return nil, err
	}

	snapshot := &models.LedgerSnapshot{}
	if v, ok := fields["units_generated"]; ok {
		snapshot.UnitsGenerated, _ = strconv.ParseInt(v, 10, 64)
	}
	if v, ok := fields["total_spent_usd"]; ok {
		snapshot.TotalSpentUSD, _ = strconv.ParseFloat(v, 64)
	}
	if v, ok := fields["last_updated"]; ok {
		snapshot.LastUpdated, _ = time.Parse(time.RFC3339Nano, v)
	}

	return snapshot, nil
}

// syncWorker periodically writes the Redis counters to Postgres.
func (l *RedisLedger) syncWorker() {
	ticker := time.NewTicker(l.syncFreq)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			if err := l.syncToDatabase(ctx); err != nil {
				l.logger.Error("Failed to sync ledger to database", "error", err)
			}
			cancel()
		case <-l.done:
			return
		}
	}
}

func (l *RedisLedger) syncToDatabase(ctx context.Context) error {
	snapshot, err := l.Snapshot(ctx)
	if err != nil {
		return err
	}
	if snapshot.LastUpdated.IsZero() {
		snapshot.LastUpdated = time.Now().UTC()
	}
	return l.repo.Save(ctx, snapshot)
}

// Shutdown stops the sync worker and performs a final sync.
func (l *RedisLedger) Shutdown(ctx context.Context) error {
	close(l.done)
	if l.repo == nil {
		return nil
	}
	return l.syncToDatabase(ctx)
}
