package models

import (
	"time"

	"github.com/google/uuid"
)

// Menu represents a planned meal for a group. It is the owning entity of
// an illustration pipeline run: Generating starts true at creation and is
// flipped to false exactly once when the run resolves, with ImageURL set
// only if the run produced an image.
type Menu struct {
	ID         uuid.UUID `db:"id" json:"id"`
	GroupID    uuid.UUID `db:"group_id" json:"group_id"`
	Title      string    `db:"title" json:"title"`
	MealDate   time.Time `db:"meal_date" json:"meal_date"`
	Generating bool      `db:"generating" json:"generating"`
	ImageURL   *string   `db:"image_url" json:"image_url"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}
