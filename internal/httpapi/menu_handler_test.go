package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/burzuercher/group-meal-planner-sub000/internal/ledger"
	"github.com/burzuercher/group-meal-planner-sub000/internal/models"
	"github.com/burzuercher/group-meal-planner-sub000/internal/storage"
)

type fakeMenuStore struct {
	mu    sync.Mutex
	menus map[uuid.UUID]*models.Menu
}

func newFakeMenuStore() *fakeMenuStore {
	return &fakeMenuStore{menus: make(map[uuid.UUID]*models.Menu)}
}

func (s *fakeMenuStore) Create(ctx context.Context, menu *models.Menu) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.menus[menu.ID] = menu
	return nil
}

func (s *fakeMenuStore) GetByID(ctx context.Context, id uuid.UUID) (*models.Menu, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	menu, ok := s.menus[id]
	if !ok {
		return nil, storage.ErrMenuNotFound
	}
	return menu, nil
}

func (s *fakeMenuStore) ListByGroup(ctx context.Context, groupID uuid.UUID) ([]models.Menu, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Menu
	for _, m := range s.menus {
		if m.GroupID == groupID {
			out = append(out, *m)
		}
	}
	return out, nil
}

type fakeLauncher struct {
	mu       sync.Mutex
	launched []string
}

func (l *fakeLauncher) Launch(menuID uuid.UUID, title string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.launched = append(l.launched, title)
}

func (l *fakeLauncher) count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.launched)
}

func newTestMux(menus MenuStore, launcher Launcher, svc ledger.Service) *http.ServeMux {
	menuHandler := NewMenuHandler(menus, launcher)
	ledgerHandler := NewLedgerHandler(svc)

	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/menus", menuHandler.Create)
	mux.HandleFunc("GET /v1/menus/{id}", menuHandler.Get)
	mux.HandleFunc("GET /v1/groups/{id}/menus", menuHandler.ListByGroup)
	mux.HandleFunc("GET /v1/ledger", ledgerHandler.Status)
	return mux
}

func TestMenuHandler_Create(t *testing.T) {
	store := newFakeMenuStore()
	launcher := &fakeLauncher{}
	mux := newTestMux(store, launcher, ledger.NewMemoryLedger())

	body, _ := json.Marshal(map[string]string{
		"group_id":  uuid.NewString(),
		"title":     "Thanksgiving Dinner",
		"meal_date": "2026-11-26",
	})

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest("POST", "/v1/menus", bytes.NewReader(body)))

	require.Equal(t, http.StatusAccepted, rec.Code)

	var created models.Menu
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.True(t, created.Generating, "menu starts with generating=true")
	assert.Nil(t, created.ImageURL)
	assert.Equal(t, 1, launcher.count(), "illustration task launched")

	stored, err := store.GetByID(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Thanksgiving Dinner", stored.Title)
}

func TestMenuHandler_Create_Validation(t *testing.T) {
	testCases := []struct {
		name string
		body map[string]string
	}{
		{
			name: "missing title",
			body: map[string]string{"group_id": uuid.NewString(), "meal_date": "2026-11-26"},
		},
		{
			name: "missing group",
			body: map[string]string{"title": "Stew", "meal_date": "2026-11-26"},
		},
		{
			name: "bad date",
			body: map[string]string{"group_id": uuid.NewString(), "title": "Stew", "meal_date": "tomorrow"},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			store := newFakeMenuStore()
			launcher := &fakeLauncher{}
			mux := newTestMux(store, launcher, ledger.NewMemoryLedger())

			body, _ := json.Marshal(tc.body)
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest("POST", "/v1/menus", bytes.NewReader(body)))

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, 0, launcher.count(), "no task launched for a rejected request")
		})
	}
}

func TestMenuHandler_Get(t *testing.T) {
	store := newFakeMenuStore()
	mux := newTestMux(store, &fakeLauncher{}, ledger.NewMemoryLedger())

	menu := &models.Menu{ID: uuid.New(), GroupID: uuid.New(), Title: "Stew", Generating: true}
	require.NoError(t, store.Create(context.Background(), menu))

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest("GET", "/v1/menus/"+menu.ID.String(), nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var got models.Menu
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, menu.ID, got.ID)
	assert.True(t, got.Generating)
}

func TestMenuHandler_Get_NotFound(t *testing.T) {
	mux := newTestMux(newFakeMenuStore(), &fakeLauncher{}, ledger.NewMemoryLedger())

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest("GET", "/v1/menus/"+uuid.NewString(), nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestLedgerHandler_Status(t *testing.T) {
	lgr := ledger.NewMemoryLedger()
	lgr.SetSpent(3, 3*ledger.UnitCostUSD)
	mux := newTestMux(newFakeMenuStore(), &fakeLauncher{}, lgr)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest("GET", "/v1/ledger", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var status ledgerStatusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.Equal(t, int64(3), status.UnitsGenerated)
	assert.InDelta(t, 3*ledger.UnitCostUSD, status.TotalSpentUSD, 1e-9)
	assert.InDelta(t, ledger.SpendCapUSD, status.SpendCapUSD, 1e-9)
}
