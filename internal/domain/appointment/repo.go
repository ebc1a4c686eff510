package appointment

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, a *Appointment) error
	GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error)
	Update(ctx context.Context, a *Appointment) error
	Delete(ctx context.Context, id uuid.UUID) error
	// ListActiveByDoctor returns the doctor's non-cancelled appointments
	// ordered by start. excluding skips one id (uuid.Nil skips none). A zero
	// from or to leaves that side of the start range open.
	ListActiveByDoctor(ctx context.Context, doctorID, excluding uuid.UUID, from, to time.Time) ([]*Appointment, error)
	Search(ctx context.Context, params map[string]string, limit, offset int) ([]*Appointment, int, error)
}

// DoctorDirectory is the view of doctors the scheduling service needs.
type DoctorDirectory interface {
	// DoctorActive returns ErrDoctorNotFound for an unknown id.
	DoctorActive(ctx context.Context, doctorID uuid.UUID) (bool, error)
}

// PatientDirectory resolves the user account behind a patient record.
type PatientDirectory interface {
	// PatientUserID returns ErrPatientNotFound for an unknown id.
	PatientUserID(ctx context.Context, patientID uuid.UUID) (uuid.UUID, error)
	// PatientIDForUser returns ErrPatientNotFound when the user has no
	// patient record.
	PatientIDForUser(ctx context.Context, userID uuid.UUID) (uuid.UUID, error)
}
