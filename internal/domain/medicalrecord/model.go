package medicalrecord

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hospitall/hospitall/pkg/dates"
)

// VitalSigns is stored as a JSONB object. Every reading is optional.
type VitalSigns struct {
	BloodPressure    *string  `json:"blood_pressure,omitempty" validate:"omitempty,max=20"`
	HeartRate        *int     `json:"heart_rate,omitempty" validate:"omitempty,min=0,max=300"`
	Temperature      *float64 `json:"temperature,omitempty" validate:"omitempty,min=25,max=45"`
	Weight           *float64 `json:"weight,omitempty" validate:"omitempty,min=0,max=500"`
	Height           *float64 `json:"height,omitempty" validate:"omitempty,min=0,max=300"`
	RespiratoryRate  *int     `json:"respiratory_rate,omitempty" validate:"omitempty,min=0,max=100"`
	OxygenSaturation *int     `json:"oxygen_saturation,omitempty" validate:"omitempty,min=0,max=100"`
}

// MedicalRecord maps to the medical_records table. PatientName and
// DoctorName come from joins and are never written.
type MedicalRecord struct {
	ID            uuid.UUID   `db:"id" json:"id"`
	PatientID     uuid.UUID   `db:"patient_id" json:"patient_id"`
	DoctorID      uuid.UUID   `db:"doctor_id" json:"doctor_id"`
	AppointmentID *uuid.UUID  `db:"appointment_id" json:"appointment_id,omitempty"`
	Diagnosis     string      `db:"diagnosis" json:"diagnosis"`
	Treatment     *string     `db:"treatment" json:"treatment,omitempty"`
	Medications   *string     `db:"medications" json:"medications,omitempty"`
	Observations  *string     `db:"observations" json:"observations,omitempty"`
	VitalSigns    *VitalSigns `db:"vital_signs" json:"vital_signs,omitempty"`
	ExamResults   *string     `db:"exam_results" json:"exam_results,omitempty"`
	FollowUpDate  *dates.Date `db:"follow_up_date" json:"follow_up_date,omitempty"`
	PatientName   *string     `json:"patient_name,omitempty"`
	DoctorName    *string     `json:"doctor_name,omitempty"`
	CreatedAt     time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time   `db:"updated_at" json:"updated_at"`
}

// NeedsFollowUp reports whether a follow-up visit is still ahead.
func (r *MedicalRecord) NeedsFollowUp(now time.Time) bool {
	if r.FollowUpDate == nil {
		return false
	}
	return r.FollowUpDate.After(dates.Of(now))
}

// Summary renders diagnosis, treatment and medications on separate lines.
func (r *MedicalRecord) Summary() string {
	var b strings.Builder
	b.WriteString("Diagnosis: ")
	b.WriteString(r.Diagnosis)
	if r.Treatment != nil && *r.Treatment != "" {
		b.WriteString("\nTreatment: ")
		b.WriteString(*r.Treatment)
	}
	if r.Medications != nil && *r.Medications != "" {
		b.WriteString("\nMedications: ")
		b.WriteString(*r.Medications)
	}
	return b.String()
}

type CreateRequest struct {
	PatientID     uuid.UUID   `json:"patient_id" validate:"required"`
	DoctorID      uuid.UUID   `json:"doctor_id" validate:"required"`
	AppointmentID *uuid.UUID  `json:"appointment_id"`
	Diagnosis     string      `json:"diagnosis" validate:"required,min=5,max=2000"`
	Treatment     *string     `json:"treatment" validate:"omitempty,max=2000"`
	Medications   *string     `json:"medications" validate:"omitempty,max=1000"`
	Observations  *string     `json:"observations" validate:"omitempty,max=2000"`
	VitalSigns    *VitalSigns `json:"vital_signs" validate:"omitempty"`
	ExamResults   *string     `json:"exam_results" validate:"omitempty,max=3000"`
	FollowUpDate  *dates.Date `json:"follow_up_date"`
}

type UpdateRequest struct {
	Diagnosis    *string     `json:"diagnosis" validate:"omitempty,min=5,max=2000"`
	Treatment    *string     `json:"treatment" validate:"omitempty,max=2000"`
	Medications  *string     `json:"medications" validate:"omitempty,max=1000"`
	Observations *string     `json:"observations" validate:"omitempty,max=2000"`
	VitalSigns   *VitalSigns `json:"vital_signs" validate:"omitempty"`
	ExamResults  *string     `json:"exam_results" validate:"omitempty,max=3000"`
	FollowUpDate *dates.Date `json:"follow_up_date"`
}
