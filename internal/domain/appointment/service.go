package appointment

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/hospitall/hospitall/internal/platform/auth"
	"github.com/hospitall/hospitall/internal/platform/telemetry"
)

const tracerName = "github.com/hospitall/hospitall/internal/domain/appointment"

// Recorder receives scheduling metrics. *telemetry.Collector implements it.
type Recorder interface {
	SchedulingDecision(outcome string)
	AppointmentWritten(status string)
	SlotQuery(free int)
}

type nopRecorder struct{}

func (nopRecorder) SchedulingDecision(string) {}
func (nopRecorder) AppointmentWritten(string) {}
func (nopRecorder) SlotQuery(int) {}

type Option func(*Service)

func WithRecorder(r Recorder) Option {
	return func(s *Service) {
		if r != nil {
			s.metrics = r
		}
	}
}

// WithClock overrides the time source used for "now" comparisons.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

type Service struct {
	repo     Repository
	locker   DoctorLocker
	doctors  DoctorDirectory
	patients PatientDirectory
	loc      *time.Location
	metrics  Recorder
	tracer   trace.Tracer
	now      func() time.Time
}

// NewService builds the scheduling service. loc is the clinic time zone in
// which business hours and slot windows are read.
func NewService(repo Repository, locker DoctorLocker, doctors DoctorDirectory, patients PatientDirectory, loc *time.Location, opts ...Option) *Service {
	if loc == nil {
		loc = time.UTC
	}
	s := &Service{
		repo:     repo,
		locker:   locker,
		doctors:  doctors,
		patients: patients,
		loc:      loc,
		metrics:  nopRecorder{},
		tracer:   otel.Tracer(tracerName),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Location is the clinic time zone.
func (s *Service) Location() *time.Location { return s.loc }

// -- Conflict detector --

// ValidateProposedAppointment checks a proposed booking against the duration
// range, the future-start rule, business hours and the doctor's existing
// non-cancelled appointments. It returns nil, ErrInvalidInput (wrapped),
// *PolicyViolationError or *ConflictError. excluding names the appointment
// being rescheduled and may be uuid.Nil.
func (s *Service) ValidateProposedAppointment(ctx context.Context, doctorID uuid.UUID, start time.Time, durationMinutes int, excluding uuid.UUID) error {
	ctx, span := s.tracer.Start(ctx, "appointment.ValidateProposedAppointment", trace.WithAttributes(
		attribute.String("doctor.id", doctorID.String()),
		attribute.String("appointment.start", start.UTC().Format(time.RFC3339)),
		attribute.Int("appointment.duration_minutes", durationMinutes),
	))
	defer span.End()

	err := s.detect(ctx, doctorID, start, durationMinutes, excluding)

	outcome := outcomeOf(err)
	span.SetAttributes(attribute.String("scheduling.outcome", outcome))
	if outcome == "" {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	s.metrics.SchedulingDecision(outcome)

	logger := log.Ctx(ctx)
	switch outcome {
	case telemetry.OutcomeOK:
		logger.Debug().Str("doctor_id", doctorID.String()).Time("start", start).Msg("proposed appointment accepted")
	default:
		logger.Info().Err(err).Str("doctor_id", doctorID.String()).Time("start", start).
			Str("outcome", outcome).Msg("proposed appointment rejected")
	}
	return err
}

func (s *Service) detect(ctx context.Context, doctorID uuid.UUID, start time.Time, durationMinutes int, excluding uuid.UUID) error {
	if err := ValidateDuration(durationMinutes); err != nil {
		return err
	}
	if err := ValidateStart(start, s.now()); err != nil {
		return err
	}
	if err := CheckBusinessHours(start, s.loc); err != nil {
		return err
	}

	// No booking longer than MaxDurationMinutes exists, so anything starting
	// earlier than that cannot reach the proposed start.
	from := start.Add(-MaxDurationMinutes * time.Minute)
	to := start.Add(time.Duration(durationMinutes) * time.Minute)
	existing, err := s.repo.ListActiveByDoctor(ctx, doctorID, excluding, from, to)
	if err != nil {
		return err
	}
	if hit := FindConflict(existing, start, durationMinutes, excluding); hit != nil {
		return &ConflictError{ExistingID: hit.ID}
	}
	return nil
}

func outcomeOf(err error) string {
	var conflict *ConflictError
	var policy *PolicyViolationError
	switch {
	case err == nil:
		return telemetry.OutcomeOK
	case errors.As(err, &conflict):
		return telemetry.OutcomeConflict
	case errors.As(err, &policy):
		return telemetry.OutcomePolicyViolation
	case errors.Is(err, ErrInvalidInput):
		return telemetry.OutcomeInvalidInput
	}
	return ""
}

// -- Slot enumerator --

// ListAvailableSlots returns the free 30-minute starts of date (YYYY-MM-DD)
// between 08:00 and 18:00 clinic time for doctorID.
func (s *Service) ListAvailableSlots(ctx context.Context, doctorID uuid.UUID, date string) ([]Slot, error) {
	ctx, span := s.tracer.Start(ctx, "appointment.ListAvailableSlots", trace.WithAttributes(
		attribute.String("doctor.id", doctorID.String()),
		attribute.String("slots.date", date),
	))
	defer span.End()

	day, err := ParseSlotDate(date, s.loc)
	if err != nil {
		return nil, err
	}
	from, to := SlotWindow(day)
	bookings, err := s.repo.ListActiveByDoctor(ctx, doctorID, uuid.Nil, from, to)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	slots := AvailableSlots(day, bookings)
	span.SetAttributes(attribute.Int("slots.free", len(slots)))
	s.metrics.SlotQuery(len(slots))
	return slots, nil
}

// -- Writes --

func (s *Service) Create(ctx context.Context, req *CreateRequest) (*Appointment, error) {
	ctx, span := s.tracer.Start(ctx, "appointment.Create")
	defer span.End()

	if req.DurationMinutes == 0 {
		req.DurationMinutes = DefaultDurationMinutes
	}
	if err := validateNotes(req.Notes); err != nil {
		return nil, err
	}
	if err := s.checkDoctor(ctx, req.DoctorID); err != nil {
		return nil, err
	}
	if err := s.checkPatient(ctx, req.PatientID); err != nil {
		return nil, err
	}

	a := &Appointment{
		DoctorID:        req.DoctorID,
		PatientID:       req.PatientID,
		AppointmentDate: req.AppointmentDate,
		DurationMinutes: req.DurationMinutes,
		Status:          StatusScheduled,
		Notes:           req.Notes,
	}
	err := s.locker.WithDoctorLock(ctx, a.DoctorID, func(ctx context.Context) error {
		if err := s.ValidateProposedAppointment(ctx, a.DoctorID, a.AppointmentDate, a.DurationMinutes, uuid.Nil); err != nil {
			return err
		}
		return s.repo.Create(ctx, a)
	})
	if err != nil {
		return nil, err
	}

	span.SetAttributes(attribute.String("appointment.id", a.ID.String()))
	s.metrics.AppointmentWritten(a.Status)
	log.Ctx(ctx).Info().Str("appointment_id", a.ID.String()).Str("doctor_id", a.DoctorID.String()).
		Time("start", a.AppointmentDate).Msg("appointment booked")
	return a, nil
}

// Update applies req to the appointment. The conflict detector runs again
// when the interval moves and the resulting status still occupies time.
// Cancelling through an update obeys the same lead time as Cancel.
func (s *Service) Update(ctx context.Context, id uuid.UUID, req *UpdateRequest) (*Appointment, error) {
	ctx, span := s.tracer.Start(ctx, "appointment.Update", trace.WithAttributes(
		attribute.String("appointment.id", id.String()),
	))
	defer span.End()

	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.checkPatient(ctx, current.PatientID); err != nil {
		return nil, err
	}
	if err := validateNotes(req.Notes); err != nil {
		return nil, err
	}

	var updated *Appointment
	err = s.locker.WithDoctorLock(ctx, current.DoctorID, func(ctx context.Context) error {
		a, err := s.repo.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if req.Status != nil && *req.Status == StatusCancelled && a.Status != StatusCancelled && !CanBeCancelled(a, s.now()) {
			return ErrCannotCancel
		}
		moved, err := applyUpdate(a, req)
		if err != nil {
			return err
		}
		if moved && OccupiesTime(a.Status) {
			if err := s.ValidateProposedAppointment(ctx, a.DoctorID, a.AppointmentDate, a.DurationMinutes, a.ID); err != nil {
				return err
			}
		}
		if err := s.repo.Update(ctx, a); err != nil {
			return err
		}
		updated = a
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.AppointmentWritten(updated.Status)
	log.Ctx(ctx).Info().Str("appointment_id", id.String()).Str("status", updated.Status).Msg("appointment updated")
	return updated, nil
}

// applyUpdate copies the set fields of req onto a and reports whether the
// booked interval changed.
func applyUpdate(a *Appointment, req *UpdateRequest) (bool, error) {
	moved := false
	if req.AppointmentDate != nil && !req.AppointmentDate.Equal(a.AppointmentDate) {
		a.AppointmentDate = *req.AppointmentDate
		moved = true
	}
	if req.DurationMinutes != nil && *req.DurationMinutes != a.DurationMinutes {
		if err := ValidateDuration(*req.DurationMinutes); err != nil {
			return false, err
		}
		a.DurationMinutes = *req.DurationMinutes
		moved = true
	}
	if req.Status != nil {
		if !ValidStatus(*req.Status) {
			return false, invalidf("unknown status %q", *req.Status)
		}
		if !CanTransition(a.Status, *req.Status) {
			return false, &TransitionError{From: a.Status, To: *req.Status}
		}
		a.Status = *req.Status
	}
	if req.Notes != nil {
		a.Notes = req.Notes
	}
	return moved, nil
}

// Cancel marks a scheduled appointment cancelled when CanBeCancelled allows it.
// The row is re-read under the doctor's lock so a concurrent update is
// never overwritten and a terminal status is never reopened.
func (s *Service) Cancel(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.checkPatient(ctx, current.PatientID); err != nil {
		return nil, err
	}

	var cancelled *Appointment
	err = s.locker.WithDoctorLock(ctx, current.DoctorID, func(ctx context.Context) error {
		a, err := s.repo.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if !CanBeCancelled(a, s.now()) {
			return ErrCannotCancel
		}
		a.Status = StatusCancelled
		if err := s.repo.Update(ctx, a); err != nil {
			return err
		}
		cancelled = a
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.metrics.AppointmentWritten(cancelled.Status)
	log.Ctx(ctx).Info().Str("appointment_id", id.String()).Msg("appointment cancelled")
	return cancelled, nil
}

// Delete removes the row without any lifecycle checks.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	log.Ctx(ctx).Info().Str("appointment_id", id.String()).Msg("appointment deleted")
	return nil
}

// -- Reads --

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	a, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.checkPatient(ctx, a.PatientID); err != nil {
		return nil, err
	}
	return a, nil
}

// Search lists appointments ordered by start. Patients only ever see their
// own appointments regardless of the patient_id filter.
func (s *Service) Search(ctx context.Context, params map[string]string, limit, offset int) ([]*Appointment, int, error) {
	if params == nil {
		params = map[string]string{}
	}
	if auth.RoleFromContext(ctx) == auth.RolePatient {
		own, err := s.callerPatientID(ctx)
		if err != nil {
			if errors.Is(err, ErrPatientNotFound) {
				return []*Appointment{}, 0, nil
			}
			return nil, 0, err
		}
		if p, ok := params["patient_id"]; ok && p != own.String() {
			return []*Appointment{}, 0, nil
		}
		params["patient_id"] = own.String()
	}
	return s.repo.Search(ctx, params, limit, offset)
}

func (s *Service) ListByDoctor(ctx context.Context, doctorID uuid.UUID, params map[string]string, limit, offset int) ([]*Appointment, int, error) {
	if _, err := s.doctors.DoctorActive(ctx, doctorID); err != nil {
		return nil, 0, err
	}
	if params == nil {
		params = map[string]string{}
	}
	params["doctor_id"] = doctorID.String()
	return s.Search(ctx, params, limit, offset)
}

func (s *Service) ListByPatient(ctx context.Context, patientID uuid.UUID, params map[string]string, limit, offset int) ([]*Appointment, int, error) {
	if err := s.checkPatient(ctx, patientID); err != nil {
		return nil, 0, err
	}
	if params == nil {
		params = map[string]string{}
	}
	params["patient_id"] = patientID.String()
	return s.repo.Search(ctx, params, limit, offset)
}

// -- Collaborators --

func (s *Service) checkDoctor(ctx context.Context, doctorID uuid.UUID) error {
	active, err := s.doctors.DoctorActive(ctx, doctorID)
	if err != nil {
		return err
	}
	if !active {
		return ErrDoctorInactive
	}
	return nil
}

// checkPatient verifies the patient exists and, for callers with the patient
// role, that the record belongs to them.
func (s *Service) checkPatient(ctx context.Context, patientID uuid.UUID) error {
	owner, err := s.patients.PatientUserID(ctx, patientID)
	if err != nil {
		return err
	}
	if auth.RoleFromContext(ctx) != auth.RolePatient {
		return nil
	}
	caller, ok := auth.UserUUIDFromContext(ctx)
	if !ok || caller != owner {
		return ErrForbidden
	}
	return nil
}

func (s *Service) callerPatientID(ctx context.Context) (uuid.UUID, error) {
	caller, ok := auth.UserUUIDFromContext(ctx)
	if !ok {
		return uuid.Nil, ErrForbidden
	}
	return s.patients.PatientIDForUser(ctx, caller)
}

func validateNotes(notes *string) error {
	if notes != nil && len([]rune(*notes)) > MaxNotesLength {
		return invalidf("notes must be at most %d characters", MaxNotesLength)
	}
	return nil
}
