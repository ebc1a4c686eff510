package medicalrecord

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var (
	ErrNotFound            = errors.New("medical record not found")
	ErrPatientNotFound     = errors.New("patient not found")
	ErrDoctorNotFound      = errors.New("doctor not found")
	ErrAppointmentNotFound = errors.New("appointment not found")
	ErrAppointmentMismatch = errors.New("appointment belongs to another patient or doctor")
	ErrFollowUpDate        = errors.New("follow_up_date must be in the future")
	ErrForbidden           = errors.New("patients may only read their own medical records")
)

type Repository interface {
	Create(ctx context.Context, r *MedicalRecord) error
	GetByID(ctx context.Context, id uuid.UUID) (*MedicalRecord, error)
	Update(ctx context.Context, r *MedicalRecord) error
	Delete(ctx context.Context, id uuid.UUID) error
	Search(ctx context.Context, params map[string]string, limit, offset int) ([]*MedicalRecord, int, error)
}

// PatientDirectory resolves patient records and their owning accounts.
// Both lookups return ErrPatientNotFound when nothing matches.
type PatientDirectory interface {
	PatientUserID(ctx context.Context, patientID uuid.UUID) (uuid.UUID, error)
	PatientIDForUser(ctx context.Context, userID uuid.UUID) (uuid.UUID, error)
}

// DoctorDirectory confirms a doctor exists.
type DoctorDirectory interface {
	DoctorExists(ctx context.Context, id uuid.UUID) (bool, error)
}

// AppointmentDirectory returns the doctor and patient of an appointment, or
// ErrAppointmentNotFound.
type AppointmentDirectory interface {
	AppointmentParties(ctx context.Context, id uuid.UUID) (doctorID, patientID uuid.UUID, err error)
}
