package medicalrecord

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
	repo         Repository
	patients     PatientDirectory
	doctors      DoctorDirectory
	appointments AppointmentDirectory
	now          func() time.Time
}

func NewService(repo Repository, patients PatientDirectory, doctors DoctorDirectory, appointments AppointmentDirectory) *Service {
	return &Service{
		repo:         repo,
		patients:     patients,
		doctors:      doctors,
		appointments: appointments,
		now:          time.Now,
	}
}

func (s *Service) Create(ctx context.Context, req *CreateRequest) (*MedicalRecord, error) {
	if _, err := s.patients.PatientUserID(ctx, req.PatientID); err != nil {
		return nil, err
	}
	ok, err := s.doctors.DoctorExists(ctx, req.DoctorID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrDoctorNotFound
	}
	if req.AppointmentID != nil {
		doctorID, patientID, err := s.appointments.AppointmentParties(ctx, *req.AppointmentID)
		if err != nil {
			return nil, err
		}
		if doctorID != req.DoctorID || patientID != req.PatientID {
			return nil, ErrAppointmentMismatch
		}
	}
	if err := s.checkFollowUp(req.FollowUpDate); err != nil {
		return nil, err
	}

	m := &MedicalRecord{
		PatientID:     req.PatientID,
		DoctorID:      req.DoctorID,
		AppointmentID: req.AppointmentID,
		Diagnosis:     strings.TrimSpace(req.Diagnosis),
		Treatment:     req.Treatment,
		Medications:   req.Medications,
		Observations:  req.Observations,
		VitalSigns:    req.VitalSigns,
		ExamResults:   req.ExamResults,
		FollowUpDate:  req.FollowUpDate,
	}
	if err := s.repo.Create(ctx, m); err != nil {
		return nil, err
	}
	log.Ctx(ctx).Info().
		Str("medical_record_id", m.ID.String()).
		Str("patient_id", m.PatientID.String()).
		Str("doctor_id", m.DoctorID.String()).
		Bool("follow_up", m.NeedsFollowUp(s.now())).
		Msg("medical record created")
	return m, nil
}

// Get returns a record. Patients only see records about themselves.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*MedicalRecord, error) {
	m, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.authorizeRead(ctx, m.PatientID); err != nil {
		return nil, err
	}
	return m, nil
}

func (s *Service) Update(ctx context.Context, id uuid.UUID, req *UpdateRequest) (*MedicalRecord, error) {
	m, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Diagnosis != nil {
		m.Diagnosis = strings.TrimSpace(*req.Diagnosis)
	}
	if req.Treatment != nil {
		m.Treatment = req.Treatment
	}
	if req.Medications != nil {
		m.Medications = req.Medications
	}
	if req.Observations != nil {
		m.Observations = req.Observations
	}
	if req.VitalSigns != nil {
		m.VitalSigns = req.VitalSigns
	}
	if req.ExamResults != nil {
		m.ExamResults = req.ExamResults
	}
	if req.FollowUpDate != nil {
		if err := s.checkFollowUp(req.FollowUpDate); err != nil {
			return nil, err
		}
		m.FollowUpDate = req.FollowUpDate
	}
	if err := s.repo.Update(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.repo.Delete(ctx, id)
}

func (s *Service) Search(ctx context.Context, params map[string]string, limit, offset int) ([]*MedicalRecord, int, error) {
	return s.repo.Search(ctx, params, limit, offset)
}

// ListByPatient returns the records of one patient, newest first.
func (s *Service) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*MedicalRecord, int, error) {
	if _, err := s.patients.PatientUserID(ctx, patientID); err != nil {
		return nil, 0, err
	}
	if err := s.authorizeRead(ctx, patientID); err != nil {
		return nil, 0, err
	}
	return s.repo.Search(ctx, map[string]string{"patient_id": patientID.String()}, limit, offset)
}

func (s *Service) authorizeRead(ctx context.Context, patientID uuid.UUID) error {
	if auth.RoleFromContext(ctx) != auth.RolePatient {
		return nil
	}
	caller, ok := auth.UserUUIDFromContext(ctx)
	if !ok {
		return ErrForbidden
	}
	own, err := s.patients.PatientIDForUser(ctx, caller)
	if errors.Is(err, ErrPatientNotFound) {
		return ErrForbidden
	}
	if err != nil {
		return err
	}
	if own != patientID {
		return ErrForbidden
	}
	return nil
}

func (s *Service) checkFollowUp(d *dates.Date) error {
	if d != nil && !d.After(dates.Of(s.now())) {
		return ErrFollowUpDate
	}
	return nil
}
