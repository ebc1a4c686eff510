package appointment

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hospitall/hospitall/internal/platform/db"
)

// noOverlapConstraint is the exclusion constraint backing the conflict rule.
const noOverlapConstraint = "appointments_no_overlap"

type appointmentRepoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository { return &appointmentRepoPG{pool: pool} }

func (r *appointmentRepoPG) conn(ctx context.Context) db.Queryable {
	return db.Conn(ctx, r.pool)
}

const apptCols = `a.id, a.doctor_id, a.patient_id, a.appointment_date, a.duration_minutes,
	a.status, a.notes, du.name, s.name, pu.name, a.created_at, a.updated_at`

const apptFrom = ` FROM appointments a
	LEFT JOIN doctors d ON d.id = a.doctor_id
	LEFT JOIN users du ON du.id = d.user_id
	LEFT JOIN specialties s ON s.id = d.specialty_id
	LEFT JOIN patients p ON p.id = a.patient_id
	LEFT JOIN users pu ON pu.id = p.user_id`

func (r *appointmentRepoPG) scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	err := row.Scan(&a.ID, &a.DoctorID, &a.PatientID, &a.AppointmentDate, &a.DurationMinutes,
		&a.Status, &a.Notes, &a.DoctorName, &a.SpecialtyName, &a.PatientName, &a.CreatedAt, &a.UpdatedAt)
	return &a, err
}

func (r *appointmentRepoPG) Create(ctx context.Context, a *Appointment) error {
	a.ID = uuid.New()
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO appointments (id, doctor_id, patient_id, appointment_date, duration_minutes,
			ends_at, status, notes)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		RETURNING created_at, updated_at`,
		a.ID, a.DoctorID, a.PatientID, a.AppointmentDate, a.DurationMinutes,
		EndTime(a), a.Status, a.Notes).Scan(&a.CreatedAt, &a.UpdatedAt)
	return mapWriteErr(err)
}

func (r *appointmentRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	a, err := r.scanAppointment(r.conn(ctx).QueryRow(ctx, `SELECT `+apptCols+apptFrom+` WHERE a.id = $1`, id))
	if db.IsNoRows(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return a, nil
}

func (r *appointmentRepoPG) Update(ctx context.Context, a *Appointment) error {
	err := r.conn(ctx).QueryRow(ctx, `
		UPDATE appointments SET appointment_date=$2, duration_minutes=$3, ends_at=$4,
			status=$5, notes=$6, updated_at=NOW()
		WHERE id = $1
		RETURNING updated_at`,
		a.ID, a.AppointmentDate, a.DurationMinutes, EndTime(a), a.Status, a.Notes).Scan(&a.UpdatedAt)
	if db.IsNoRows(err) {
		return ErrNotFound
	}
	return mapWriteErr(err)
}

func (r *appointmentRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM appointments WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *appointmentRepoPG) ListActiveByDoctor(ctx context.Context, doctorID, excluding uuid.UUID, from, to time.Time) ([]*Appointment, error) {
	query := `SELECT ` + apptCols + apptFrom + ` WHERE a.doctor_id = $1 AND a.status <> 'cancelled'`
	args := []interface{}{doctorID}
	idx := 2

	if excluding != uuid.Nil {
		query += fmt.Sprintf(` AND a.id <> $%d`, idx)
		args = append(args, excluding)
		idx++
	}
	if !from.IsZero() {
		query += fmt.Sprintf(` AND a.appointment_date >= $%d`, idx)
		args = append(args, from)
		idx++
	}
	if !to.IsZero() {
		query += fmt.Sprintf(` AND a.appointment_date < $%d`, idx)
		args = append(args, to)
	}
	query += ` ORDER BY a.appointment_date ASC`

	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*Appointment
	for rows.Next() {
		a, err := r.scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, a)
	}
	return items, rows.Err()
}

func (r *appointmentRepoPG) Search(ctx context.Context, params map[string]string, limit, offset int) ([]*Appointment, int, error) {
	where := ` WHERE 1=1`
	var args []interface{}
	idx := 1

	if p, ok := params["status"]; ok {
		where += fmt.Sprintf(` AND a.status = $%d`, idx)
		args = append(args, p)
		idx++
	}
	if p, ok := params["doctor_id"]; ok {
		where += fmt.Sprintf(` AND a.doctor_id = $%d`, idx)
		args = append(args, p)
		idx++
	}
	if p, ok := params["patient_id"]; ok {
		where += fmt.Sprintf(` AND a.patient_id = $%d`, idx)
		args = append(args, p)
		idx++
	}
	if p, ok := params["from"]; ok {
		where += fmt.Sprintf(` AND a.appointment_date >= $%d`, idx)
		args = append(args, p)
		idx++
	}
	if p, ok := params["to"]; ok {
		where += fmt.Sprintf(` AND a.appointment_date < $%d`, idx)
		args = append(args, p)
		idx++
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM appointments a`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + apptCols + apptFrom + where +
		fmt.Sprintf(` ORDER BY a.appointment_date ASC LIMIT $%d OFFSET $%d`, idx, idx+1)
	args = append(args, limit, offset)

	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Appointment
	for rows.Next() {
		a, err := r.scanAppointment(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, a)
	}
	return items, total, rows.Err()
}

// mapWriteErr translates constraint failures into domain errors. An
// exclusion violation means a concurrent writer slipped past the advisory
// lock; the existing id is unknown at this point.
func mapWriteErr(err error) error {
	switch {
	case err == nil:
		return nil
	case db.IsExclusionViolation(err, noOverlapConstraint):
		return &ConflictError{}
	case db.IsForeignKeyViolation(err):
		return invalidf("doctor_id or patient_id does not reference an existing record")
	}
	return err
}

// DoctorLocker serializes scheduling writes per doctor.
type DoctorLocker interface {
	// WithDoctorLock runs fn in one transaction holding the doctor's lock.
	WithDoctorLock(ctx context.Context, doctorID uuid.UUID, fn func(ctx context.Context) error) error
}

type doctorLockerPG struct{ pool *pgxpool.Pool }

func NewDoctorLockerPG(pool *pgxpool.Pool) DoctorLocker { return &doctorLockerPG{pool: pool} }

func (l *doctorLockerPG) WithDoctorLock(ctx context.Context, doctorID uuid.UUID, fn func(ctx context.Context) error) error {
	return db.RunInTx(ctx, l.pool, func(ctx context.Context) error {
		if err := db.AdvisoryXactLock(ctx, DoctorLockKey(doctorID)); err != nil {
			return err
		}
		return fn(ctx)
	})
}

// DoctorLockKey names the advisory lock guarding a doctor's calendar.
func DoctorLockKey(doctorID uuid.UUID) string {
	return "appointment:doctor:" + doctorID.String()
}
