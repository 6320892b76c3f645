// Package pipeline orchestrates illustration generation for a menu: cache
// lookup, budget admission, external generation, asset upload, ledger
// charge, and cache insert, resolved as a single detached task per menu.
//
// Ordering is strict: the ledger is charged only after a successful
// generation and upload, so failed attempts never consume budget, and the
// charge lands before the cache insert. A cache insert that fails after
// the charge is an accepted inconsistency: the spend stays committed and
// only a future cache hit is forfeited. Do not reorder these steps
// without revisiting that tradeoff.
//
// The triggering caller never waits on a task and no error propagates
// back to it. The only externally observable outcome is the owning menu's
// terminal update: generating flips to false exactly once, with image_url
// set only when the run produced an image. Readers poll the menu for
// that; an optional observer callback fires on resolution for readers
// that can subscribe.
package pipeline

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/burzuercher/group-meal-planner-sub000/internal/assets"
	"github.com/burzuercher/group-meal-planner-sub000/internal/genclient"
	"github.com/burzuercher/group-meal-planner-sub000/internal/imagecache"
	"github.com/burzuercher/group-meal-planner-sub000/internal/ledger"
	"github.com/burzuercher/group-meal-planner-sub000/internal/normalize"
	"github.com/burzuercher/group-meal-planner-sub000/internal/utils"
)

// State identifies a task's position in the pipeline state machine.
type State string

const (
	StateCacheCheck  State = "cache_check"
	StateBudgetCheck State = "budget_check"
	StateGenerating  State = "generating"
	StateUploading   State = "uploading"
	StateCharging    State = "charging"
	StateCacheInsert State = "cache_insert"
	StateResolved    State = "resolved"
)

// EntityStore writes a menu's terminal illustration state.
type EntityStore interface {
	ResolveImage(ctx context.Context, id uuid.UUID, imageURL *string) error
}

// Resolution describes a task's terminal outcome, delivered to the
// optional observer after the owning menu has been updated.
type Resolution struct {
	MenuID    uuid.UUID
	ImageURL  *string
	FromCache bool
	FailedAt  State // StateResolved when the run succeeded
}

const (
	// defaultTaskTimeout bounds a detached task so a hung external call
	// cannot leave a menu stuck with generating=true forever.
	defaultTaskTimeout = 2 * time.Minute

	// resolveTimeout bounds the terminal entity update, which runs on a
	// fresh context because the task context may already be expired.
	resolveTimeout = 10 * time.Second
)

// Pipeline coordinates one illustration run per triggered menu.
type Pipeline struct {
	cache     imagecache.Store
	ledger    ledger.Service
	generator genclient.Generator
	assets    assets.Store
	menus     EntityStore
	timeout   time.Duration
	onResolve func(Resolution)
	logger    *utils.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithTaskTimeout overrides the per-task deadline.
func WithTaskTimeout(d time.Duration) Option {
	return func(p *Pipeline) { p.timeout = d }
}

// WithObserver registers a callback invoked after each task resolves.
// Polling the menu remains the compatible fallback for readers that
// cannot subscribe.
func WithObserver(fn func(Resolution)) Option {
	return func(p *Pipeline) { p.onResolve = fn }
}

// New creates a Pipeline with the given collaborators.
func New(cache imagecache.Store, lgr ledger.Service, generator genclient.Generator, assetStore assets.Store, menus EntityStore, opts ...Option) *Pipeline {
	p := &Pipeline{
		cache:     cache,
		ledger:    lgr,
		generator: generator,
		assets:    assetStore,
		menus:     menus,
		timeout:   defaultTaskTimeout,
		logger:    utils.NewLogger("illustration-pipeline"),
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// Launch starts a detached illustration task for a menu. The caller
// returns immediately; the task's outcome is observed through the menu's
// generating flag or the registered observer.
func (p *Pipeline) Launch(menuID uuid.UUID, title string) {
	go p.execute(menuID, title)
}

type outcome struct {
	imageURL  *string
	fromCache bool
	failedAt  State
}

// execute runs one task to its terminal resolution. The menu update is
// forced even when the deadline expires mid-run.
func (p *Pipeline) execute(menuID uuid.UUID, title string) {
	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()

	done := make(chan outcome, 1)
	go func() {
		done <- p.run(ctx, menuID, title)
	}()

	select {
	case out := <-done:
		p.resolve(menuID, out)
	case <-ctx.Done():
		p.logger.Warn("Task deadline expired, forcing terminal update", "menu_id", menuID)
		p.resolve(menuID, outcome{failedAt: StateGenerating})
	}
}

// run walks the state machine for one menu and returns its outcome.
func (p *Pipeline) run(ctx context.Context, menuID uuid.UUID, title string) outcome {
	key := normalize.Title(title)

	// An empty key is non-cacheable: the run still generates, but skips
	// both cache states and derives its storage path from the menu ID.
	cacheable := key != ""

	if cacheable {
		if url, ok := p.cache.Lookup(ctx, key); ok {
			p.logger.Debug("Cache hit", "menu_id", menuID, "key", key)
			return outcome{imageURL: &url, fromCache: true, failedAt: StateResolved}
		}
	}

	if !p.ledger.HasHeadroom(ctx) {
		p.logger.Info("Budget admission rejected", "menu_id", menuID, "key", key)
		return outcome{failedAt: StateBudgetCheck}
	}

	img, err := p.generator.Generate(ctx, genclient.BuildPrompt(title))
	if err != nil {
		p.logGenerationFailure(menuID, err)
		return outcome{failedAt: StateGenerating}
	}

	filenameKey := normalize.Filename(key)
	if !cacheable {
		filenameKey = "menu-" + menuID.String()
	}

	url, err := p.assets.Store(ctx, filenameKey, img.Payload, img.MimeType)
	if err != nil {
		p.logger.Error("Asset upload failed", "menu_id", menuID, "error", err)
		return outcome{failedAt: StateUploading}
	}

	// Charge strictly after the upload succeeded and before the cache
	// insert. A task that loses the last unit of headroom to a
	// concurrent run during its generation keeps its image uncharged;
	// the cap itself is never exceeded.
	if !p.ledger.TryReserve(ctx) {
		p.logger.Warn("Headroom consumed during generation, resolving uncharged", "menu_id", menuID, "key", key)
	}

	if cacheable {
		if err := p.cache.Insert(ctx, key, url); err != nil {
			// Spend is already committed; only a future hit is lost.
			p.logger.Warn("Cache insert failed after charge", "key", key, "error", err)
		}
	}

	return outcome{imageURL: &url, failedAt: StateResolved}
}

// resolve writes the terminal menu state exactly once and notifies the
// observer. It uses a fresh context so an expired task deadline cannot
// block the update.
func (p *Pipeline) resolve(menuID uuid.UUID, out outcome) {
	ctx, cancel := context.WithTimeout(context.Background(), resolveTimeout)
	defer cancel()

	if err := p.menus.ResolveImage(ctx, menuID, out.imageURL); err != nil {
		p.logger.Error("Failed to write terminal menu state", "menu_id", menuID, "error", err)
	}

	if p.onResolve != nil {
		p.onResolve(Resolution{
			MenuID:    menuID,
			ImageURL:  out.imageURL,
			FromCache: out.fromCache,
			FailedAt:  out.failedAt,
		})
	}
}

func (p *Pipeline) logGenerationFailure(menuID uuid.UUID, err error) {
	var svcErr *genclient.ExternalServiceError
	switch {
	case errors.Is(err, genclient.ErrMissingAPIKey):
		p.logger.Error("Generation skipped, no API key configured", "menu_id", menuID)
	case errors.As(err, &svcErr):
		p.logger.Error("Generation service error", "menu_id", menuID, "status", svcErr.Status)
	case errors.Is(err, genclient.ErrMalformedResponse):
		p.logger.Error("Generation returned no image", "menu_id", menuID)
	default:
		p.logger.Error("Generation failed", "menu_id", menuID, "error", err)
	}
}
