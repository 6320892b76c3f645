package httpapi

import (
	"context"
	"fmt"
	"net/http"

	"github.com/burzuercher/group-meal-planner-sub000/internal/assets"
	"github.com/burzuercher/group-meal-planner-sub000/internal/config"
	"github.com/burzuercher/group-meal-planner-sub000/internal/genclient"
	"github.com/burzuercher/group-meal-planner-sub000/internal/imagecache"
	"github.com/burzuercher/group-meal-planner-sub000/internal/ledger"
	"github.com/burzuercher/group-meal-planner-sub000/internal/pipeline"
	"github.com/burzuercher/group-meal-planner-sub000/internal/storage"
	"github.com/burzuercher/group-meal-planner-sub000/internal/utils"
)

// Dependencies aggregates the long-lived services the server owns, so
// main can shut them down in order.
type Dependencies struct {
	DB       *storage.DB
	Redis    *storage.RedisClient
	Ledger   *ledger.RedisLedger
	Pipeline *pipeline.Pipeline
}

// NewRouter creates an HTTP router with all dependencies wired up
func NewRouter(cfg *config.Config) (*http.ServeMux, *Dependencies, error) {
	db, err := storage.NewDB(storage.DBConfig{
		DSN:             cfg.Database.URL,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		ConnMaxIdleTime: cfg.Database.ConnMaxIdleTime,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	if err := db.Migrate(context.Background()); err != nil {
		return nil, nil, err
	}

	redisClient, err := storage.NewRedisClient(storage.RedisConfig{
		Address:      cfg.Redis.Address,
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		PoolSize:     cfg.Redis.PoolSize,
		MinIdleConns: cfg.Redis.MinIdleConns,
		DialTimeout:  cfg.Redis.DialTimeout,
		ReadTimeout:  cfg.Redis.ReadTimeout,
		WriteTimeout: cfg.Redis.WriteTimeout,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize Redis: %w", err)
	}

	menuRepo := db.NewMenuRepository()
	cacheStore := imagecache.NewPostgresStore(db.NewImageCacheRepository())

	// The ledger is constructed once here and injected everywhere; it is
	// the only shared mutable state in the subsystem.
	spendLedger, err := ledger.NewRedisLedger(
		context.Background(),
		redisClient.Client(),
		db.NewLedgerRepository(),
		cfg.Ledger.SyncInterval,
	)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize spend ledger: %w", err)
	}

	assetStore, err := assets.NewS3Store(context.Background(), cfg.Assets.S3Bucket, cfg.Assets.S3Region)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize asset store: %w", err)
	}

	generator := genclient.NewGeminiClient(cfg.Generation.APIKey)
	if cfg.Generation.APIKey == "" {
		utils.NewLogger("router").Warn("GEMINI_API_KEY not set, menus will resolve without illustrations")
	}

	illustrations := pipeline.New(
		cacheStore,
		spendLedger,
		generator,
		assetStore,
		menuRepo,
		pipeline.WithTaskTimeout(cfg.Pipeline.TaskTimeout),
	)

	menuHandler := NewMenuHandler(menuRepo, illustrations)
	ledgerHandler := NewLedgerHandler(spendLedger)

	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/menus", menuHandler.Create)
	mux.HandleFunc("GET /v1/menus/{id}", menuHandler.Get)
	mux.HandleFunc("GET /v1/groups/{id}/menus", menuHandler.ListByGroup)
	mux.HandleFunc("GET /v1/ledger", ledgerHandler.Status)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := db.Health(r.Context()); err != nil {
			utils.RespondWithError(w, http.StatusServiceUnavailable, err.Error())
			return
		}
		utils.RespondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	deps := &Dependencies{
		DB:       db,
		Redis:    redisClient,
		Ledger:   spendLedger,
		Pipeline: illustrations,
	}

	return mux, deps, nil
}
