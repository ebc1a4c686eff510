package specialty

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) Create(ctx context.Context, req *CreateRequest) (*Specialty, error) {
	sp := &Specialty{
		Name:        strings.TrimSpace(req.Name),
		Description: req.Description,
		IsActive:    true,
	}
	if req.IsActive != nil {
		sp.IsActive = *req.IsActive
	}
	if err := s.repo.Create(ctx, sp); err != nil {
		return nil, err
	}
	log.Ctx(ctx).Info().Str("specialty_id", sp.ID.String()).Str("name", sp.Name).Msg("specialty created")
	return sp, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Specialty, error) {
	return s.repo.GetByID(ctx, id)
}

// Exists reports whether id names a specialty. It backs doctor validation.
func (s *Service) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	_, err := s.repo.GetByID(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}

func (s *Service) Update(ctx context.Context, id uuid.UUID, req *UpdateRequest) (*Specialty, error) {
	sp, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Name != nil {
		sp.Name = strings.TrimSpace(*req.Name)
	}
	if req.Description != nil {
		sp.Description = req.Description
	}
	if req.IsActive != nil {
		sp.IsActive = *req.IsActive
	}
	if err := s.repo.Update(ctx, sp); err != nil {
		return nil, err
	}
	return sp, nil
}

// Delete refuses to remove a specialty that doctors still reference.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := s.repo.GetByID(ctx, id); err != nil {
		return err
	}
	n, err := s.repo.CountDoctors(ctx, id)
	if err != nil {
		return err
	}
	if n > 0 {
		return ErrInUse
	}
	return s.repo.Delete(ctx, id)
}

func (s *Service) Search(ctx context.Context, params map[string]string, limit, offset int) ([]*Specialty, int, error) {
	return s.repo.Search(ctx, params, limit, offset)
}
