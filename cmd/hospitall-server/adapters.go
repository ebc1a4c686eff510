package main

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/hospitall/hospitall/internal/domain/appointment"
	"github.com/hospitall/hospitall/internal/domain/doctor"
	"github.com/hospitall/hospitall/internal/domain/medicalrecord"
	"github.com/hospitall/hospitall/internal/domain/patient"
)

// Domain packages declare the narrow lookups they need; these adapters
// satisfy them from the owning services and translate not-found errors.

type doctorLookup interface {
	DoctorActive(ctx context.Context, id uuid.UUID) (bool, error)
}

type patientLookup interface {
	PatientUserID(ctx context.Context, patientID uuid.UUID) (uuid.UUID, error)
	PatientIDForUser(ctx context.Context, userID uuid.UUID) (uuid.UUID, error)
}

type appointmentLookup interface {
	GetByID(ctx context.Context, id uuid.UUID) (*appointment.Appointment, error)
}

// schedulingDoctors implements appointment.DoctorDirectory.
type schedulingDoctors struct{ doctors doctorLookup }

func (d schedulingDoctors) DoctorActive(ctx context.Context, id uuid.UUID) (bool, error) {
	active, err := d.doctors.DoctorActive(ctx, id)
	if errors.Is(err, doctor.ErrNotFound) {
		return false, appointment.ErrDoctorNotFound
	}
	return active, err
}

// schedulingPatients implements appointment.PatientDirectory.
type schedulingPatients struct{ patients patientLookup }

func (p schedulingPatients) PatientUserID(ctx context.Context, patientID uuid.UUID) (uuid.UUID, error) {
	id, err := p.patients.PatientUserID(ctx, patientID)
	return id, translatePatientErr(err, appointment.ErrPatientNotFound)
}

func (p schedulingPatients) PatientIDForUser(ctx context.Context, userID uuid.UUID) (uuid.UUID, error) {
	id, err := p.patients.PatientIDForUser(ctx, userID)
	return id, translatePatientErr(err, appointment.ErrPatientNotFound)
}

// recordPatients implements medicalrecord.PatientDirectory.
type recordPatients struct{ patients patientLookup }

func (p recordPatients) PatientUserID(ctx context.Context, patientID uuid.UUID) (uuid.UUID, error) {
	id, err := p.patients.PatientUserID(ctx, patientID)
	return id, translatePatientErr(err, medicalrecord.ErrPatientNotFound)
}

func (p recordPatients) PatientIDForUser(ctx context.Context, userID uuid.UUID) (uuid.UUID, error) {
	id, err := p.patients.PatientIDForUser(ctx, userID)
	return id, translatePatientErr(err, medicalrecord.ErrPatientNotFound)
}

func translatePatientErr(err, notFound error) error {
	if errors.Is(err, patient.ErrNotFound) {
		return notFound
	}
	return err
}

// recordDoctors implements medicalrecord.DoctorDirectory. Inactive doctors
// still exist: historical records may reference them.
type recordDoctors struct{ doctors doctorLookup }

func (d recordDoctors) DoctorExists(ctx context.Context, id uuid.UUID) (bool, error) {
	_, err := d.doctors.DoctorActive(ctx, id)
	if errors.Is(err, doctor.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// recordAppointments implements medicalrecord.AppointmentDirectory. It reads
// the repository directly since record authors are staff, not the booking
// patient.
type recordAppointments struct{ appointments appointmentLookup }

func (a recordAppointments) AppointmentParties(ctx context.Context, id uuid.UUID) (uuid.UUID, uuid.UUID, error) {
	appt, err := a.appointments.GetByID(ctx, id)
	if errors.Is(err, appointment.ErrNotFound) {
		return uuid.Nil, uuid.Nil, medicalrecord.ErrAppointmentNotFound
	}
	if err != nil {
		return uuid.Nil, uuid.Nil, err
	}
	return appt.DoctorID, appt.PatientID, nil
}
