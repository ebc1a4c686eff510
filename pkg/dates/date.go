// Package dates holds a calendar-date type for JSON bodies and DATE columns.
package dates

import (
	"encoding/json"
	"fmt"
	"time"
)

// Layout is the wire format of a Date.
const Layout = "2006-01-02"

// Date is a calendar day encoded as "YYYY-MM-DD" in JSON. The embedded time
// is midnight UTC.
type Date struct {
	time.Time
}

// Of truncates t to its calendar day in t's location.
func Of(t time.Time) Date {
	y, m, d := t.Date()
	return Date{time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}
}

// Parse accepts "YYYY-MM-DD" and, for lenient clients, RFC 3339 instants.
func Parse(s string) (Date, error) {
	if t, err := time.Parse(Layout, s); err == nil {
		return Date{t}, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return Date{}, fmt.Errorf("date %q must be formatted as YYYY-MM-DD", s)
	}
	return Of(t), nil
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(Layout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.Format(Layout))
}

func (d *Date) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*d = Date{}
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("date must be a string: %w", err)
	}
	if s == "" {
		*d = Date{}
		return nil
	}
	parsed, err := Parse(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Before reports whether d is an earlier calendar day than other.
func (d Date) Before(other Date) bool { return d.Time.Before(other.Time) }

// After reports whether d is a later calendar day than other.
func (d Date) After(other Date) bool { return d.Time.After(other.Time) }

// YearsSince counts full years from d to today, as used for ages.
func (d Date) YearsSince(today Date) int {
	years := today.Year() - d.Year()
	if today.Month() < d.Month() || (today.Month() == d.Month() && today.Day() < d.Day()) {
		years--
	}
	return years
}

// Ptr converts a nullable DATE scan target.
func Ptr(t *time.Time) *Date {
	if t == nil {
		return nil
	}
	d := Of(*t)
	return &d
}

// TimePtr is the inverse of Ptr for query arguments.
func TimePtr(d *Date) *time.Time {
	if d == nil {
		return nil
	}
	return &d.Time
}
