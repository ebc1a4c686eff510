package patient

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/hospitall/hospitall/internal/platform/auth"
	"github.com/hospitall/hospitall/pkg/dates"
)

type Service struct {
	repo  Repository
	users UserDirectory
	now   func() time.Time
}

func NewService(repo Repository, users UserDirectory) *Service {
	return &Service{repo: repo, users: users, now: time.Now}
}

// Create attaches a patient profile to a patient-role user.
func (s *Service) Create(ctx context.Context, req *CreateRequest) (*Patient, error) {
	if err := s.checkUser(ctx, req.UserID); err != nil {
		return nil, err
	}
	if err := s.checkBirthDate(req.BirthDate); err != nil {
		return nil, err
	}
	if _, err := s.repo.GetByUserID(ctx, req.UserID); err == nil {
		return nil, ErrUserAlreadyPatient
	} else if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	p := &Patient{
		UserID:           req.UserID,
		BirthDate:        req.BirthDate,
		Address:          strings.TrimSpace(req.Address),
		EmergencyContact: strings.TrimSpace(req.EmergencyContact),
		BloodType:        req.BloodType,
		Allergies:        req.Allergies,
		MedicalHistory:   req.MedicalHistory,
		IsActive:         true,
	}
	if req.IsActive != nil {
		p.IsActive = *req.IsActive
	}
	if err := s.repo.Create(ctx, p); err != nil {
		return nil, err
	}
	log.Ctx(ctx).Info().Str("patient_id", p.ID.String()).Msg("patient registered")
	return s.withAge(p), nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Patient, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.withAge(p), nil
}

// Update applies a partial change. Callers with the patient role may only
// change the record linked to their own account.
func (s *Service) Update(ctx context.Context, id uuid.UUID, req *UpdateRequest) (*Patient, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if auth.RoleFromContext(ctx) == auth.RolePatient {
		caller, ok := auth.UserUUIDFromContext(ctx)
		if !ok || caller != p.UserID {
			return nil, ErrForbidden
		}
		// Patients cannot reactivate or deactivate themselves.
		req.IsActive = nil
	}

	if req.BirthDate != nil {
		if err := s.checkBirthDate(*req.BirthDate); err != nil {
			return nil, err
		}
		p.BirthDate = *req.BirthDate
	}
	if req.Address != nil {
		p.Address = strings.TrimSpace(*req.Address)
	}
	if req.EmergencyContact != nil {
		p.EmergencyContact = strings.TrimSpace(*req.EmergencyContact)
	}
	if req.BloodType != nil {
		p.BloodType = req.BloodType
	}
	if req.Allergies != nil {
		p.Allergies = req.Allergies
	}
	if req.MedicalHistory != nil {
		p.MedicalHistory = req.MedicalHistory
	}
	if req.IsActive != nil {
		p.IsActive = *req.IsActive
	}
	if err := s.repo.Update(ctx, p); err != nil {
		return nil, err
	}
	return s.withAge(p), nil
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.repo.Delete(ctx, id)
}

func (s *Service) Search(ctx context.Context, params map[string]string, limit, offset int) ([]*Patient, int, error) {
	items, total, err := s.repo.Search(ctx, params, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	for _, p := range items {
		s.withAge(p)
	}
	return items, total, nil
}

// PatientUserID returns the user account that owns a patient record.
func (s *Service) PatientUserID(ctx context.Context, patientID uuid.UUID) (uuid.UUID, error) {
	p, err := s.repo.GetByID(ctx, patientID)
	if err != nil {
		return uuid.Nil, err
	}
	return p.UserID, nil
}

// PatientIDForUser returns the patient record of a user account.
func (s *Service) PatientIDForUser(ctx context.Context, userID uuid.UUID) (uuid.UUID, error) {
	p, err := s.repo.GetByUserID(ctx, userID)
	if err != nil {
		return uuid.Nil, err
	}
	return p.ID, nil
}

func (s *Service) withAge(p *Patient) *Patient {
	p.Age = p.AgeOn(s.now())
	return p
}

func (s *Service) checkBirthDate(d dates.Date) error {
	if !d.Before(dates.Of(s.now())) {
		return ErrBirthDate
	}
	return nil
}

func (s *Service) checkUser(ctx context.Context, userID uuid.UUID) error {
	role, err := s.users.UserRole(ctx, userID)
	if err != nil {
		return err
	}
	switch role {
	case "":
		return ErrUserNotFound
	case auth.RolePatient:
		return nil
	}
	return ErrUserNotPatient
}
