package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/burzuercher/group-meal-planner-sub000/internal/ledger"
	"github.com/burzuercher/group-meal-planner-sub000/internal/models"
	"github.com/burzuercher/group-meal-planner-sub000/internal/storage"
	"github.com/burzuercher/group-meal-planner-sub000/internal/utils"
)

// MenuStore is the menu persistence surface the HTTP layer needs.
type MenuStore interface {
	Create(ctx context.Context, menu *models.Menu) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Menu, error)
	ListByGroup(ctx context.Context, groupID uuid.UUID) ([]models.Menu, error)
}

// Launcher starts a detached illustration task for a menu.
type Launcher interface {
	Launch(menuID uuid.UUID, title string)
}

// MenuHandler serves menu creation and the polling read endpoints.
type MenuHandler struct {
	menus    MenuStore
	pipeline Launcher
	logger   *utils.Logger
}

// NewMenuHandler creates a menu handler
func NewMenuHandler(menus MenuStore, pipeline Launcher) *MenuHandler {
	return &MenuHandler{
		menus:    menus,
		pipeline: pipeline,
		logger:   utils.NewLogger("menu-handler"),
	}
}

type createMenuRequest struct {
	GroupID  uuid.UUID `json:"group_id"`
	Title    string    `json:"title"`
	MealDate string    `json:"meal_date"` // YYYY-MM-DD
}

// Create handles POST /v1/menus. The menu is stored with generating=true
// and the illustration task is launched detached; the response returns
// immediately and clients poll the menu until generating flips false.
func (h *MenuHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createMenuRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Title == "" {
		utils.RespondWithError(w, http.StatusBadRequest, "title is required")
		return
	}
	if req.GroupID == uuid.Nil {
		utils.RespondWithError(w, http.StatusBadRequest, "group_id is required")
		return
	}

	mealDate, err := time.Parse("2006-01-02", req.MealDate)
	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "meal_date must be YYYY-MM-DD")
		return
	}

	menu := &models.Menu{
		ID:         uuid.New(),
		GroupID:    req.GroupID,
		Title:      req.Title,
		MealDate:   mealDate,
		Generating: true,
	}

	if err := h.menus.Create(r.Context(), menu); err != nil {
		h.logger.Error("Failed to create menu", "error", err)
		utils.RespondWithError(w, http.StatusInternalServerError, "failed to create menu")
		return
	}

	h.pipeline.Launch(menu.ID, menu.Title)

	utils.RespondWithJSON(w, http.StatusAccepted, menu)
}

// Get handles GET /v1/menus/{id}, the polling endpoint.
func (h *MenuHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "invalid menu id")
		return
	}

	menu, err := h.menus.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrMenuNotFound) {
			utils.RespondWithError(w, http.StatusNotFound, "menu not found")
			return
		}
		h.logger.Error("Failed to get menu", "menu_id", id, "error", err)
		utils.RespondWithError(w, http.StatusInternalServerError, "failed to get menu")
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, menu)
}

// ListByGroup handles GET /v1/groups/{id}/menus.
func (h *MenuHandler) ListByGroup(w http.ResponseWriter, r *http.Request) {
	groupID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "invalid group id")
		return
	}

	menus, err := h.menus.ListByGroup(r.Context(), groupID)
	if err != nil {
		h.logger.Error("Failed to list menus", "group_id", groupID, "error", err)
		utils.RespondWithError(w, http.StatusInternalServerError, "failed to list menus")
		return
	}

	if menus == nil {
		menus = []models.Menu{}
	}
	utils.RespondWithJSON(w, http.StatusOK, menus)
}

// LedgerHandler serves the spend ledger status endpoint.
type LedgerHandler struct {
	ledger ledger.Service
	logger *utils.Logger
}

// NewLedgerHandler creates a ledger handler
func NewLedgerHandler(svc ledger.Service) *LedgerHandler {
	return &LedgerHandler{
		ledger: svc,
		logger: utils.NewLogger("ledger-handler"),
	}
}

type ledgerStatusResponse struct {
	UnitsGenerated int64   `json:"units_generated"`
	TotalSpentUSD  float64 `json:"total_spent_usd"`
	UnitCostUSD    float64 `json:"unit_cost_usd"`
	SpendCapUSD    float64 `json:"spend_cap_usd"`
}

// Status handles GET /v1/ledger.
func (h *LedgerHandler) Status(w http.ResponseWriter, r *http.Request) {
	snapshot, err := h.ledger.Snapshot(r.Context())
	if err != nil {
		h.logger.Error("Failed to read ledger", "error", err)
		utils.RespondWithError(w, http.StatusServiceUnavailable, "ledger unavailable")
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, ledgerStatusResponse{
		UnitsGenerated: snapshot.UnitsGenerated,
		TotalSpentUSD:  snapshot.TotalSpentUSD,
		UnitCostUSD:    ledger.UnitCostUSD,
		SpendCapUSD:    ledger.SpendCapUSD,
	})
}
