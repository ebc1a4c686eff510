package patient

import (
	"time"

	"github.com/google/uuid"

	"github.com/hospitall/hospitall/pkg/dates"
)

// BloodTypes lists the accepted ABO/Rh groups.
var BloodTypes = []string{"A+", "A-", "B+", "B-", "AB+", "AB-", "O+", "O-"}

// Patient maps to the patients table. Name and Email come from the joined
// user row.
type Patient struct {
	ID               uuid.UUID  `db:"id" json:"id"`
	UserID           uuid.UUID  `db:"user_id" json:"user_id"`
	BirthDate        dates.Date `db:"birth_date" json:"birth_date"`
	Address          string     `db:"address" json:"address"`
	EmergencyContact string     `db:"emergency_contact" json:"emergency_contact"`
	BloodType        *string    `db:"blood_type" json:"blood_type,omitempty"`
	Allergies        *string    `db:"allergies" json:"allergies,omitempty"`
	MedicalHistory   *string    `db:"medical_history" json:"medical_history,omitempty"`
	IsActive         bool       `db:"is_active" json:"is_active"`
	Name             *string    `json:"name,omitempty"`
	Email            *string    `json:"email,omitempty"`
	Age              int        `json:"age"`
	CreatedAt        time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time  `db:"updated_at" json:"updated_at"`
}

// AgeOn returns the patient's age in full years on the given day.
func (p *Patient) AgeOn(today time.Time) int {
	if p.BirthDate.IsZero() {
		return 0
	}
	return p.BirthDate.YearsSince(dates.Of(today))
}

type CreateRequest struct {
	UserID           uuid.UUID  `json:"user_id" validate:"required"`
	BirthDate        dates.Date `json:"birth_date" validate:"required"`
	Address          string     `json:"address" validate:"required,min=10,max=500"`
	EmergencyContact string     `json:"emergency_contact" validate:"required,min=5,max=100"`
	BloodType        *string    `json:"blood_type" validate:"omitempty,oneof=A+ A- B+ B- AB+ AB- O+ O-"`
	Allergies        *string    `json:"allergies" validate:"omitempty,max=1000"`
	MedicalHistory   *string    `json:"medical_history" validate:"omitempty,max=2000"`
	IsActive         *bool      `json:"is_active"`
}

type UpdateRequest struct {
	BirthDate        *dates.Date `json:"birth_date"`
	Address          *string     `json:"address" validate:"omitempty,min=10,max=500"`
	EmergencyContact *string     `json:"emergency_contact" validate:"omitempty,min=5,max=100"`
	BloodType        *string     `json:"blood_type" validate:"omitempty,oneof=A+ A- B+ B- AB+ AB- O+ O-"`
	Allergies        *string     `json:"allergies" validate:"omitempty,max=1000"`
	MedicalHistory   *string     `json:"medical_history" validate:"omitempty,max=2000"`
	IsActive         *bool       `json:"is_active"`
}

func ValidBloodType(v string) bool {
	for _, bt := range BloodTypes {
		if bt == v {
			return true
		}
	}
	return false
}
