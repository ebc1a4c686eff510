package specialty

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var (
	ErrNotFound      = errors.New("specialty not found")
	ErrDuplicateName = errors.New("a specialty with this name already exists")
	ErrInUse         = errors.New("specialty is referenced by doctors")
)

type Repository interface {
	Create(ctx context.Context, s *Specialty) error
	GetByID(ctx context.Context, id uuid.UUID) (*Specialty, error)
	Update(ctx context.Context, s *Specialty) error
	Delete(ctx context.Context, id uuid.UUID) error
	// CountDoctors returns how many doctors reference the specialty.
	CountDoctors(ctx context.Context, id uuid.UUID) (int, error)
	Search(ctx context.Context, params map[string]string, limit, offset int) ([]*Specialty, int, error)
}
