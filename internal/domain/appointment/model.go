package appointment

import (
	"time"

	"github.com/google/uuid"
)

const (
	StatusScheduled = "scheduled"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
	StatusNoShow    = "no_show"
)

const (
	MinDurationMinutes     = 15
	MaxDurationMinutes     = 240
	DefaultDurationMinutes = 30
	MaxNotesLength         = 1000
)

// Appointment maps to the appointments table. DoctorName, SpecialtyName and
// PatientName are filled by read queries only.
type Appointment struct {
	ID              uuid.UUID `db:"id" json:"id"`
	DoctorID        uuid.UUID `db:"doctor_id" json:"doctor_id"`
	PatientID       uuid.UUID `db:"patient_id" json:"patient_id"`
	AppointmentDate time.Time `db:"appointment_date" json:"appointment_date"`
	DurationMinutes int       `db:"duration_minutes" json:"duration_minutes"`
	Status          string    `db:"status" json:"status"`
	Notes           *string   `db:"notes" json:"notes,omitempty"`
	DoctorName      *string   `json:"doctor_name,omitempty"`
	SpecialtyName   *string   `json:"specialty_name,omitempty"`
	PatientName     *string   `json:"patient_name,omitempty"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time `db:"updated_at" json:"updated_at"`
}

// Slot is a free start instant returned by the slot enumerator.
type Slot struct {
	Time      time.Time `json:"time"`
	Formatted string    `json:"formatted"`
}

// CreateRequest is the body of POST /appointments and POST /appointments/validate.
type CreateRequest struct {
	DoctorID        uuid.UUID `json:"doctor_id" validate:"required"`
	PatientID       uuid.UUID `json:"patient_id" validate:"required"`
	AppointmentDate time.Time `json:"appointment_date" validate:"required"`
	DurationMinutes int       `json:"duration_minutes" validate:"omitempty,min=15,max=240"`
	Notes           *string   `json:"notes" validate:"omitempty,max=1000"`
}

// UpdateRequest carries the mutable fields; nil leaves a field unchanged.
type UpdateRequest struct {
	AppointmentDate *time.Time `json:"appointment_date"`
	DurationMinutes *int       `json:"duration_minutes" validate:"omitempty,min=15,max=240"`
	Status          *string    `json:"status" validate:"omitempty,oneof=scheduled completed cancelled no_show"`
	Notes           *string    `json:"notes" validate:"omitempty,max=1000"`
}

// ValidateRequest is the input of the conflict detector dry run.
type ValidateRequest struct {
	DoctorID        uuid.UUID  `json:"doctor_id" validate:"required"`
	AppointmentDate time.Time  `json:"appointment_date" validate:"required"`
	DurationMinutes int        `json:"duration_minutes"`
	ExcludingID     *uuid.UUID `json:"excluding_id"`
}

// ValidStatus reports whether s is one of the appointment statuses.
func ValidStatus(s string) bool {
	switch s {
	case StatusScheduled, StatusCompleted, StatusCancelled, StatusNoShow:
		return true
	}
	return false
}
