package user

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var (
	ErrNotFound            = errors.New("user not found")
	ErrDuplicateEmail      = errors.New("email already registered")
	ErrDuplicateCPF        = errors.New("cpf already registered")
	ErrInUse               = errors.New("user is referenced by a doctor or patient profile")
	ErrInvalidCredentials  = errors.New("invalid email or password")
	ErrInactive            = errors.New("account is inactive")
	ErrInvalidRefreshToken = errors.New("invalid refresh token")
	ErrWrongPassword       = errors.New("current password is incorrect")
	ErrAdminSignup         = errors.New("administrator accounts are created by administrators")
	ErrForbidden           = errors.New("not allowed to access this user")
	ErrSelfDeactivation    = errors.New("administrators cannot deactivate or delete themselves")
)

type Repository interface {
	Create(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	Update(ctx context.Context, u *User) error
	UpdatePassword(ctx context.Context, id uuid.UUID, hash string) error
	Delete(ctx context.Context, id uuid.UUID) error
	Search(ctx context.Context, params map[string]string, limit, offset int) ([]*User, int, error)
}
