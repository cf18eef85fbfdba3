package model

import (
	"time"

	"github.com/google/uuid"
)

// Patient is referenced, not owned, by appointments: deleting a patient
// keeps historical appointments for audit.
type Patient struct {
	ID        uuid.UUID  `db:"id" json:"id"`
	UserID    uuid.UUID  `db:"user_id" json:"user_id"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt time.Time  `db:"updated_at" json:"updated_at"`
	DeletedAt *time.Time `db:"deleted_at" json:"deleted_at,omitempty"`
}
