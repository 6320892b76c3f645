package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/burzuercher/group-meal-planner-sub000/internal/models"
)

// MenuRepository handles menu database operations
type MenuRepository struct {
	db *DB
}

// NewMenuRepository creates a new menu repository
func NewMenuRepository(db *DB) *MenuRepository {
	return &MenuRepository{db: db}
}

// Create inserts a new menu. The caller decides the initial Generating
// value; menus that trigger an illustration run start with it set true.
func (r *MenuRepository) Create(ctx context.Context, menu *models.Menu) error {
	query := `
		INSERT INTO menus (id, group_id, title, meal_date, generating, image_url, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
	`

	_, err := r.db.conn.ExecContext(ctx, query,
		menu.ID, menu.GroupID, menu.Title, menu.MealDate, menu.Generating, menu.ImageURL,
	)
	if err != nil {
		return fmt.Errorf("failed to create menu: %w", err)
	}

	return nil
}

// GetByID retrieves a menu by ID
func (r *MenuRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Menu, error) {
	var menu models.Menu
	query := `
		SELECT id, group_id, title, meal_date, generating, image_url, created_at, updated_at
		FROM menus
		WHERE id = $1
	`

	err := r.db.conn.GetContext(ctx, &menu, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMenuNotFound
		}
		return nil, fmt.Errorf("failed to get menu: %w", err)
	}

	return &menu, nil
}

// ListByGroup retrieves all menus for a group, newest meal first
func (r *MenuRepository) ListByGroup(ctx context.Context, groupID uuid.UUID) ([]models.Menu, error) {
	var menus []models.Menu
	query := `
		SELECT id, group_id, title, meal_date, generating, image_url, created_at, updated_at
		FROM menus
		WHERE group_id = $1
		ORDER BY meal_date DESC
	`

	err := r.db.conn.SelectContext(ctx, &menus, query, groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to list menus: %w", err)
	}

	return menus, nil
}

// ResolveImage writes a menu's terminal illustration state: generating is
// set false and image_url to the resolved value (nil when the run produced
// no image). The WHERE clause keeps the update idempotent against a second
// resolution attempt so generating can never revert to true.
func (r *MenuRepository) ResolveImage(ctx context.Context, id uuid.UUID, imageURL *string) error {
	query := `
		UPDATE menus
		SET generating = FALSE, image_url = $2, updated_at = NOW()
		WHERE id = $1 AND generating = TRUE
	`

	result, err := r.db.conn.ExecContext(ctx, query, id, imageURL)
	if err != nil {
		return fmt.Errorf("failed to resolve menu image: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to resolve menu image: %w", err)
	}
	if rows == 0 {
		// Either the menu is gone or it already resolved.
		if _, getErr := r.GetByID(ctx, id); getErr != nil {
			return getErr
		}
	}

	return nil
}
