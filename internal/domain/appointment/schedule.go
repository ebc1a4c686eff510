package appointment

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

const (
	// SlotInterval separates consecutive candidate slot starts.
	SlotInterval = 30 * time.Minute
	// SlotWindowStart and SlotWindowEnd bound candidate slots in local hours.
	// They are not the business-hours policy.
	SlotWindowStart = 8
	SlotWindowEnd   = 18

	// CancellationLeadTime is how far ahead a booking must be to be cancelled.
	CancellationLeadTime = 2 * time.Hour

	weekdayOpen    = 7
	weekdayClose   = 18
	saturdayOpen   = 7
	saturdayClose  = 12
	slotDateLayout = "2006-01-02"
)

// EndTime returns start + duration for a.
func EndTime(a *Appointment) time.Time {
	return a.AppointmentDate.Add(time.Duration(a.DurationMinutes) * time.Minute)
}

// Overlaps is the half-open interval test: [aStart, aEnd) and [bStart, bEnd)
// share at least one instant. Touching intervals do not overlap.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && aEnd.After(bStart)
}

// FindConflict returns the first booking in existing that overlaps the
// proposed interval, skipping cancelled rows and the row with id excluding.
func FindConflict(existing []*Appointment, start time.Time, durationMinutes int, excluding uuid.UUID) *Appointment {
	end := start.Add(time.Duration(durationMinutes) * time.Minute)
	for _, a := range existing {
		if a.Status == StatusCancelled {
			continue
		}
		if excluding != uuid.Nil && a.ID == excluding {
			continue
		}
		if Overlaps(start, end, a.AppointmentDate, EndTime(a)) {
			return a
		}
	}
	return nil
}

// ValidateDuration enforces the [15, 240] minute range.
func ValidateDuration(minutes int) error {
	if minutes < MinDurationMinutes || minutes > MaxDurationMinutes {
		return invalidf("duration_minutes must be between %d and %d, got %d",
			MinDurationMinutes, MaxDurationMinutes, minutes)
	}
	return nil
}

// ValidateStart rejects start instants that are not strictly after now.
func ValidateStart(start, now time.Time) error {
	if start.IsZero() {
		return invalidf("appointment_date is required")
	}
	if !start.After(now) {
		return invalidf("appointment_date must be in the future")
	}
	return nil
}

// CheckBusinessHours applies the opening hours to the start instant only,
// read in loc. Monday to Friday 07:00-18:00, Saturday 07:00-12:00, closed on
// Sunday.
func CheckBusinessHours(start time.Time, loc *time.Location) error {
	local := start.In(loc)
	hour := local.Hour()

	switch local.Weekday() {
	case time.Sunday:
		return &PolicyViolationError{Reason: "appointments cannot be scheduled on Sundays"}
	case time.Saturday:
		if hour < saturdayOpen || hour >= saturdayClose {
			return &PolicyViolationError{Reason: fmt.Sprintf(
				"saturday appointments must start between %02d:00 and %02d:00", saturdayOpen, saturdayClose)}
		}
	default:
		if hour < weekdayOpen || hour >= weekdayClose {
			return &PolicyViolationError{Reason: fmt.Sprintf(
				"weekday appointments must start between %02d:00 and %02d:00", weekdayOpen, weekdayClose)}
		}
	}
	return nil
}

// ParseSlotDate reads a YYYY-MM-DD calendar date as midnight in loc.
func ParseSlotDate(s string, loc *time.Location) (time.Time, error) {
	day, err := time.ParseInLocation(slotDateLayout, s, loc)
	if err != nil {
		return time.Time{}, invalidf("date must be formatted as YYYY-MM-DD")
	}
	return day, nil
}

// SlotWindow returns the [08:00, 18:00) local window of day.
func SlotWindow(day time.Time) (time.Time, time.Time) {
	y, m, d := day.Date()
	loc := day.Location()
	return time.Date(y, m, d, SlotWindowStart, 0, 0, 0, loc),
		time.Date(y, m, d, SlotWindowEnd, 0, 0, 0, loc)
}

// AvailableSlots lists the candidate starts of day's slot window that no
// booking occupies. A candidate t is occupied when a non-cancelled booking
// satisfies start <= t < end.
func AvailableSlots(day time.Time, bookings []*Appointment) []Slot {
	from, to := SlotWindow(day)
	slots := make([]Slot, 0, int(to.Sub(from)/SlotInterval))

	for t := from; t.Before(to); t = t.Add(SlotInterval) {
		if occupied(t, bookings) {
			continue
		}
		slots = append(slots, Slot{Time: t, Formatted: t.Format("15:04")})
	}
	return slots
}

func occupied(t time.Time, bookings []*Appointment) bool {
	for _, b := range bookings {
		if b.Status == StatusCancelled {
			continue
		}
		if !t.Before(b.AppointmentDate) && t.Before(EndTime(b)) {
			return true
		}
	}
	return false
}

// CanBeCancelled reports whether a is scheduled and starts more than
// CancellationLeadTime after now.
func CanBeCancelled(a *Appointment, now time.Time) bool {
	return a.Status == StatusScheduled && a.AppointmentDate.Sub(now) > CancellationLeadTime
}

// IsPast reports whether a started before now.
func IsPast(a *Appointment, now time.Time) bool {
	return a.AppointmentDate.Before(now)
}

// CanTransition reports whether status may move from one value to another.
// Scheduled may become any status; completed, cancelled and no_show are
// terminal.
func CanTransition(from, to string) bool {
	if from == to {
		return true
	}
	return from == StatusScheduled && ValidStatus(to)
}

// OccupiesTime reports whether a booking with status blocks its interval.
func OccupiesTime(status string) bool {
	return status != StatusCancelled
}
