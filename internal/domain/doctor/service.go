package doctor

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/hospitall/hospitall/internal/platform/auth"
)

type Service struct {
	repo        Repository
	specialties SpecialtyDirectory
	users       UserDirectory
}

func NewService(repo Repository, specialties SpecialtyDirectory, users UserDirectory) *Service {
	return &Service{repo: repo, specialties: specialties, users: users}
}

// Create links a doctor-role user to a specialty under a unique CRM.
func (s *Service) Create(ctx context.Context, req *CreateRequest) (*Doctor, error) {
	if err := s.checkUser(ctx, req.UserID); err != nil {
		return nil, err
	}
	if err := s.checkSpecialty(ctx, req.SpecialtyID); err != nil {
		return nil, err
	}
	if _, err := s.repo.GetByUserID(ctx, req.UserID); err == nil {
		return nil, ErrUserAlreadyDoctor
	} else if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	d := &Doctor{
		UserID:      req.UserID,
		CRM:         strings.TrimSpace(req.CRM),
		SpecialtyID: req.SpecialtyID,
		IsActive:    true,
	}
	if req.IsActive != nil {
		d.IsActive = *req.IsActive
	}
	if err := s.repo.Create(ctx, d); err != nil {
		return nil, err
	}
	log.Ctx(ctx).Info().Str("doctor_id", d.ID.String()).Str("crm", d.CRM).Msg("doctor registered")
	return d, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Doctor, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) GetByUserID(ctx context.Context, userID uuid.UUID) (*Doctor, error) {
	return s.repo.GetByUserID(ctx, userID)
}

func (s *Service) Update(ctx context.Context, id uuid.UUID, req *UpdateRequest) (*Doctor, error) {
	d, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.CRM != nil {
		d.CRM = strings.TrimSpace(*req.CRM)
	}
	if req.SpecialtyID != nil && *req.SpecialtyID != d.SpecialtyID {
		if err := s.checkSpecialty(ctx, *req.SpecialtyID); err != nil {
			return nil, err
		}
		d.SpecialtyID = *req.SpecialtyID
		d.SpecialtyName = nil
	}
	if req.IsActive != nil {
		d.IsActive = *req.IsActive
	}
	if err := s.repo.Update(ctx, d); err != nil {
		return nil, err
	}
	return d, nil
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.repo.Delete(ctx, id)
}

func (s *Service) Search(ctx context.Context, params map[string]string, limit, offset int) ([]*Doctor, int, error) {
	return s.repo.Search(ctx, params, limit, offset)
}

// ListBySpecialty returns the doctors of one specialty.
func (s *Service) ListBySpecialty(ctx context.Context, specialtyID uuid.UUID, params map[string]string, limit, offset int) ([]*Doctor, int, error) {
	if err := s.checkSpecialty(ctx, specialtyID); err != nil {
		return nil, 0, err
	}
	if params == nil {
		params = map[string]string{}
	}
	params["specialty_id"] = specialtyID.String()
	return s.repo.Search(ctx, params, limit, offset)
}

// DoctorActive reports the active flag of a doctor, or ErrNotFound.
func (s *Service) DoctorActive(ctx context.Context, id uuid.UUID) (bool, error) {
	d, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return false, err
	}
	return d.IsActive, nil
}

func (s *Service) checkUser(ctx context.Context, userID uuid.UUID) error {
	role, err := s.users.UserRole(ctx, userID)
	if err != nil {
		return err
	}
	switch role {
	case "":
		return ErrUserNotFound
	case auth.RoleDoctor:
		return nil
	}
	return ErrUserNotDoctor
}

func (s *Service) checkSpecialty(ctx context.Context, id uuid.UUID) error {
	ok, err := s.specialties.Exists(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return ErrSpecialtyNotFound
	}
	return nil
}
