package appointment

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var (
	ErrNotFound        = errors.New("appointment not found")
	ErrInvalidInput    = errors.New("invalid appointment input")
	ErrDoctorNotFound  = errors.New("doctor not found")
	ErrDoctorInactive  = errors.New("doctor is not active")
	ErrPatientNotFound = errors.New("patient not found")
	ErrCannotCancel    = errors.New("appointment can only be cancelled while scheduled and more than 2 hours ahead")
	ErrForbidden       = errors.New("not allowed to access this appointment")
)

// ConflictError reports an overlap with an existing non-cancelled booking of
// the same doctor.
type ConflictError struct {
	ExistingID uuid.UUID
}

func (e *ConflictError) Error() string {
	if e.ExistingID == uuid.Nil {
		return "doctor already has an appointment at this time"
	}
	return fmt.Sprintf("doctor already has an appointment at this time (%s)", e.ExistingID)
}

// PolicyViolationError reports a start instant outside business hours.
type PolicyViolationError struct {
	Reason string
}

func (e *PolicyViolationError) Error() string { return e.Reason }

// invalidf wraps ErrInvalidInput with a field-level message.
func invalidf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

// TransitionError reports a status change the lifecycle does not allow.
type TransitionError struct {
	From, To string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot change status from %s to %s", e.From, e.To)
}

func (e *TransitionError) Unwrap() error { return ErrInvalidInput }
