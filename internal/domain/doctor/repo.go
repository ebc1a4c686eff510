package doctor

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var (
	ErrNotFound          = errors.New("doctor not found")
	ErrDuplicateCRM      = errors.New("a doctor with this CRM already exists")
	ErrUserAlreadyDoctor = errors.New("user already has a doctor profile")
	ErrUserNotFound      = errors.New("user not found")
	ErrUserNotDoctor     = errors.New("user must have the doctor role")
	ErrSpecialtyNotFound = errors.New("specialty not found")
	ErrInUse             = errors.New("doctor has appointments or medical records")
)

type Repository interface {
	Create(ctx context.Context, d *Doctor) error
	GetByID(ctx context.Context, id uuid.UUID) (*Doctor, error)
	GetByUserID(ctx context.Context, userID uuid.UUID) (*Doctor, error)
	Update(ctx context.Context, d *Doctor) error
	Delete(ctx context.Context, id uuid.UUID) error
	Search(ctx context.Context, params map[string]string, limit, offset int) ([]*Doctor, int, error)
}

// SpecialtyDirectory confirms a specialty exists.
type SpecialtyDirectory interface {
	Exists(ctx context.Context, id uuid.UUID) (bool, error)
}

// UserDirectory returns the role of a user account, or "" when the account
// does not exist.
type UserDirectory interface {
	UserRole(ctx context.Context, id uuid.UUID) (string, error)
}
