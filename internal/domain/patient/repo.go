package patient

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var (
	ErrNotFound           = errors.New("patient not found")
	ErrUserAlreadyPatient = errors.New("user already has a patient profile")
	ErrUserNotFound       = errors.New("user not found")
	ErrUserNotPatient     = errors.New("user must have the patient role")
	ErrBirthDate          = errors.New("birth_date must be in the past")
	ErrForbidden          = errors.New("patients may only change their own record")
	ErrInUse              = errors.New("patient has appointments or medical records")
)

type Repository interface {
	Create(ctx context.Context, p *Patient) error
	GetByID(ctx context.Context, id uuid.UUID) (*Patient, error)
	GetByUserID(ctx context.Context, userID uuid.UUID) (*Patient, error)
	Update(ctx context.Context, p *Patient) error
	Delete(ctx context.Context, id uuid.UUID) error
	Search(ctx context.Context, params map[string]string, limit, offset int) ([]*Patient, int, error)
}

// UserDirectory returns the role of a user account, or "" when the account
// does not exist.
type UserDirectory interface {
	UserRole(ctx context.Context, id uuid.UUID) (string, error)
}
