package pipeline

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/burzuercher/group-meal-planner-sub000/internal/assets"
	"github.com/burzuercher/group-meal-planner-sub000/internal/genclient"
	"github.com/burzuercher/group-meal-planner-sub000/internal/imagecache"
	"github.com/burzuercher/group-meal-planner-sub000/internal/ledger"
)

// fakeGenerator returns a fixed image, a fixed error, or hangs until the
// task context expires.
type fakeGenerator struct {
	mu    sync.Mutex
	calls int
	err   error
	hang  bool
}

func (g *fakeGenerator) Generate(ctx context.Context, prompt string) (*genclient.Image, error) {
	g.mu.Lock()
	g.calls++
	g.mu.Unlock()

	if g.hang {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if g.err != nil {
		return nil, g.err
	}
	return &genclient.Image{Payload: []byte{0x89, 0x50, 0x4E, 0x47}, MimeType: "image/png"}, nil
}

func (g *fakeGenerator) callCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls
}

// failingAssets rejects every upload.
type failingAssets struct{}

func (failingAssets) Store(ctx context.Context, key string, payload []byte, mimeType string) (string, error) {
	return "", &assets.StorageError{Key: key, Err: errors.New("bucket unavailable")}
}

// failingInsertCache misses on lookup and fails every insert.
type failingInsertCache struct{}

func (failingInsertCache) Lookup(ctx context.Context, key string) (string, bool) { return "", false }
func (failingInsertCache) Insert(ctx context.Context, key, url string) error {
	return errors.New("cache write refused")
}

// fakeMenuStore records terminal updates and enforces flip-once.
type fakeMenuStore struct {
	mu       sync.Mutex
	resolved map[uuid.UUID][]*string
}

func newFakeMenuStore() *fakeMenuStore {
	return &fakeMenuStore{resolved: make(map[uuid.UUID][]*string)}
}

func (s *fakeMenuStore) ResolveImage(ctx context.Context, id uuid.UUID, imageURL *string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resolved[id] = append(s.resolved[id], imageURL)
	return nil
}

func (s *fakeMenuStore) resolutionsFor(id uuid.UUID) []*string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.resolved[id]
}

func newTestPipeline(gen genclient.Generator, opts ...Option) (*Pipeline, *imagecache.MemoryStore, *ledger.MemoryLedger, *assets.MemoryStore, *fakeMenuStore) {
	cache := imagecache.NewMemoryStore()
	lgr := ledger.NewMemoryLedger()
	assetStore := assets.NewMemoryStore()
	menus := newFakeMenuStore()
	p := New(cache, lgr, gen, assetStore, menus, opts...)
	return p, cache, lgr, assetStore, menus
}

func TestPipeline_EndToEnd(t *testing.T) {
	gen := &fakeGenerator{}
	p, cache, lgr, assetStore, menus := newTestPipeline(gen)

	menuID := uuid.New()
	p.execute(menuID, "Thanksgiving Dinner")

	// Menu resolved exactly once, with the deterministic image URL.
	resolutions := menus.resolutionsFor(menuID)
	require.Len(t, resolutions, 1)
	require.NotNil(t, resolutions[0])
	assert.Equal(t, "https://assets.example.com/images/thanksgiving-dinner.png", *resolutions[0])

	// Payload landed at the deterministic object key.
	_, ok := assetStore.Object("images/thanksgiving-dinner.png")
	assert.True(t, ok)

	// Ledger charged one unit.
	snapshot, err := lgr.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), snapshot.UnitsGenerated)
	assert.InDelta(t, ledger.UnitCostUSD, snapshot.TotalSpentUSD, 1e-9)

	// Cache entry inserted under the normalized key.
	url, ok := cache.Lookup(context.Background(), "thanksgiving dinner")
	require.True(t, ok)
	assert.Equal(t, *resolutions[0], url)

	assert.Equal(t, 1, gen.callCount())
}

func TestPipeline_SecondRequestHitsCache(t *testing.T) {
	gen := &fakeGenerator{}
	p, _, lgr, _, menus := newTestPipeline(gen)

	first := uuid.New()
	second := uuid.New()

	// Two titles that normalize to the same key.
	p.execute(first, "Matt's Smoked Ribs!")
	p.execute(second, "matts smoked ribs")

	assert.Equal(t, 1, gen.callCount(), "generator invoked once across both requests")

	snapshot, err := lgr.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), snapshot.UnitsGenerated, "ledger charged once across both requests")

	firstRes := menus.resolutionsFor(first)
	secondRes := menus.resolutionsFor(second)
	require.Len(t, firstRes, 1)
	require.Len(t, secondRes, 1)
	require.NotNil(t, firstRes[0])
	require.NotNil(t, secondRes[0])
	assert.Equal(t, *firstRes[0], *secondRes[0], "both menus share the cached image")
}

func TestPipeline_BudgetRejected(t *testing.T) {
	gen := &fakeGenerator{}
	p, _, lgr, _, menus := newTestPipeline(gen)

	// Headroom smaller than one unit.
	lgr.SetSpent(100, ledger.SpendCapUSD-ledger.UnitCostUSD/2)

	menuID := uuid.New()
	p.execute(menuID, "Beef Stew")

	assert.Equal(t, 0, gen.callCount(), "generator never called after rejection")

	resolutions := menus.resolutionsFor(menuID)
	require.Len(t, resolutions, 1)
	assert.Nil(t, resolutions[0], "menu resolves without an image")

	snapshot, err := lgr.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(100), snapshot.UnitsGenerated, "rejection leaves the ledger unchanged")
}

func TestPipeline_GenerationFailureNotCharged(t *testing.T) {
	gen := &fakeGenerator{err: &genclient.ExternalServiceError{Status: 500, Body: "upstream down"}}
	p, cache, lgr, _, menus := newTestPipeline(gen)

	menuID := uuid.New()
	p.execute(menuID, "Beef Stew")

	resolutions := menus.resolutionsFor(menuID)
	require.Len(t, resolutions, 1, "generating flips to false exactly once")
	assert.Nil(t, resolutions[0])

	snapshot, err := lgr.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(0), snapshot.UnitsGenerated, "no charge for a failed generation")
	assert.Zero(t, snapshot.TotalSpentUSD)

	_, ok := cache.Lookup(context.Background(), "beef stew")
	assert.False(t, ok, "failed run leaves no cache entry")
}

func TestPipeline_MissingAPIKeyNotCharged(t *testing.T) {
	gen := &fakeGenerator{err: genclient.ErrMissingAPIKey}
	p, _, lgr, _, menus := newTestPipeline(gen)

	menuID := uuid.New()
	p.execute(menuID, "Beef Stew")

	resolutions := menus.resolutionsFor(menuID)
	require.Len(t, resolutions, 1)
	assert.Nil(t, resolutions[0])

	snapshot, err := lgr.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Zero(t, snapshot.UnitsGenerated)
}

func TestPipeline_UploadFailureNotCharged(t *testing.T) {
	gen := &fakeGenerator{}
	cache := imagecache.NewMemoryStore()
	lgr := ledger.NewMemoryLedger()
	menus := newFakeMenuStore()
	p := New(cache, lgr, gen, failingAssets{}, menus)

	menuID := uuid.New()
	p.execute(menuID, "Beef Stew")

	resolutions := menus.resolutionsFor(menuID)
	require.Len(t, resolutions, 1)
	assert.Nil(t, resolutions[0])

	snapshot, err := lgr.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Zero(t, snapshot.UnitsGenerated, "upload failure aborts before any charge")
}

func TestPipeline_CacheInsertFailureKeepsChargeAndImage(t *testing.T) {
	gen := &fakeGenerator{}
	lgr := ledger.NewMemoryLedger()
	menus := newFakeMenuStore()
	p := New(failingInsertCache{}, lgr, gen, assets.NewMemoryStore(), menus)

	menuID := uuid.New()
	p.execute(menuID, "Beef Stew")

	resolutions := menus.resolutionsFor(menuID)
	require.Len(t, resolutions, 1)
	require.NotNil(t, resolutions[0], "insert failure does not fail the run")

	snapshot, err := lgr.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), snapshot.UnitsGenerated, "charge stays committed")
}

func TestPipeline_EmptyKeyIsNonCacheable(t *testing.T) {
	gen := &fakeGenerator{}
	p, cache, lgr, _, menus := newTestPipeline(gen)

	menuID := uuid.New()
	p.execute(menuID, "?!#$")

	resolutions := menus.resolutionsFor(menuID)
	require.Len(t, resolutions, 1)
	require.NotNil(t, resolutions[0])
	assert.Contains(t, *resolutions[0], "menu-"+menuID.String(), "storage path falls back to the menu ID")

	assert.Equal(t, 0, cache.Len(), "nothing cached under an empty key")

	snapshot, err := lgr.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), snapshot.UnitsGenerated)
}

func TestPipeline_DeadlineForcesTerminalUpdate(t *testing.T) {
	gen := &fakeGenerator{hang: true}
	cache := imagecache.NewMemoryStore()
	lgr := ledger.NewMemoryLedger()
	menus := newFakeMenuStore()
	p := New(cache, lgr, gen, assets.NewMemoryStore(), menus, WithTaskTimeout(50*time.Millisecond))

	menuID := uuid.New()
	start := time.Now()
	p.execute(menuID, "Beef Stew")
	assert.Less(t, time.Since(start), 5*time.Second)

	resolutions := menus.resolutionsFor(menuID)
	require.Len(t, resolutions, 1, "expired task still writes the terminal state")
	assert.Nil(t, resolutions[0])

	snapshot, err := lgr.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Zero(t, snapshot.UnitsGenerated)
}

func TestPipeline_LaunchIsDetached(t *testing.T) {
	gen := &fakeGenerator{}
	resolved := make(chan Resolution, 1)
	cache := imagecache.NewMemoryStore()
	lgr := ledger.NewMemoryLedger()
	menus := newFakeMenuStore()
	p := New(cache, lgr, gen, assets.NewMemoryStore(), menus,
		WithObserver(func(r Resolution) { resolved <- r }))

	menuID := uuid.New()
	p.Launch(menuID, "Thanksgiving Dinner")

	select {
	case r := <-resolved:
		assert.Equal(t, menuID, r.MenuID)
		require.NotNil(t, r.ImageURL)
		assert.False(t, r.FromCache)
		assert.Equal(t, StateResolved, r.FailedAt)
	case <-time.After(5 * time.Second):
		t.Fatal("detached task did not resolve")
	}
}
