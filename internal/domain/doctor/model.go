package doctor

import (
	"time"

	"github.com/google/uuid"
)

// Doctor maps to the doctors table. Name, Email and SpecialtyName come from
// the joined user and specialty rows.
type Doctor struct {
	ID            uuid.UUID `db:"id" json:"id"`
	UserID        uuid.UUID `db:"user_id" json:"user_id"`
	CRM           string    `db:"crm" json:"crm"`
	SpecialtyID   uuid.UUID `db:"specialty_id" json:"specialty_id"`
	IsActive      bool      `db:"is_active" json:"is_active"`
	Name          *string   `json:"name,omitempty"`
	Email         *string   `json:"email,omitempty"`
	SpecialtyName *string   `json:"specialty_name,omitempty"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}

type CreateRequest struct {
	UserID      uuid.UUID `json:"user_id" validate:"required"`
	CRM         string    `json:"crm" validate:"required,crm"`
	SpecialtyID uuid.UUID `json:"specialty_id" validate:"required"`
	IsActive    *bool     `json:"is_active"`
}

type UpdateRequest struct {
	CRM         *string    `json:"crm" validate:"omitempty,crm"`
	SpecialtyID *uuid.UUID `json:"specialty_id"`
	IsActive    *bool      `json:"is_active"`
}
