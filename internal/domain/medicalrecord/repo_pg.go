package medicalrecord

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hospitall/hospitall/internal/platform/db"
	"github.com/hospitall/hospitall/pkg/dates"
)

type recordRepoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository { return &recordRepoPG{pool: pool} }

func (r *recordRepoPG) conn(ctx context.Context) db.Queryable {
	return db.Conn(ctx, r.pool)
}

const recordCols = `m.id, m.patient_id, m.doctor_id, m.appointment_id, m.diagnosis,
	m.treatment, m.medications, m.observations, m.vital_signs, m.exam_results,
	m.follow_up_date, pu.name, du.name, m.created_at, m.updated_at`

const recordFrom = ` FROM medical_records m
	LEFT JOIN patients p ON p.id = m.patient_id
	LEFT JOIN users pu ON pu.id = p.user_id
	LEFT JOIN doctors d ON d.id = m.doctor_id
	LEFT JOIN users du ON du.id = d.user_id`

func (r *recordRepoPG) scanRecord(row pgx.Row) (*MedicalRecord, error) {
	var (
		m        MedicalRecord
		vitals   []byte
		followUp *time.Time
	)
	err := row.Scan(&m.ID, &m.PatientID, &m.DoctorID, &m.AppointmentID, &m.Diagnosis,
		&m.Treatment, &m.Medications, &m.Observations, &vitals, &m.ExamResults,
		&followUp, &m.PatientName, &m.DoctorName, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if len(vitals) > 0 {
		m.VitalSigns = &VitalSigns{}
		if err := json.Unmarshal(vitals, m.VitalSigns); err != nil {
			return nil, fmt.Errorf("decode vital_signs: %w", err)
		}
	}
	m.FollowUpDate = dates.Ptr(followUp)
	return &m, nil
}

func encodeVitals(v *VitalSigns) ([]byte, error) {
	if v == nil {
		return nil, nil
	}
	return json.Marshal(v)
}

func (r *recordRepoPG) Create(ctx context.Context, m *MedicalRecord) error {
	vitals, err := encodeVitals(m.VitalSigns)
	if err != nil {
		return err
	}
	m.ID = uuid.New()
	err = r.conn(ctx).QueryRow(ctx, `
		INSERT INTO medical_records (id, patient_id, doctor_id, appointment_id, diagnosis,
			treatment, medications, observations, vital_signs, exam_results, follow_up_date)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
		RETURNING created_at, updated_at`,
		m.ID, m.PatientID, m.DoctorID, m.AppointmentID, m.Diagnosis,
		m.Treatment, m.Medications, m.Observations, vitals, m.ExamResults,
		dates.TimePtr(m.FollowUpDate)).Scan(&m.CreatedAt, &m.UpdatedAt)
	if db.IsForeignKeyViolation(err) {
		return ErrPatientNotFound
	}
	return err
}

func (r *recordRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*MedicalRecord, error) {
	m, err := r.scanRecord(r.conn(ctx).QueryRow(ctx, `SELECT `+recordCols+recordFrom+` WHERE m.id = $1`, id))
	if db.IsNoRows(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return m, nil
}

func (r *recordRepoPG) Update(ctx context.Context, m *MedicalRecord) error {
	vitals, err := encodeVitals(m.VitalSigns)
	if err != nil {
		return err
	}
	err = r.conn(ctx).QueryRow(ctx, `
		UPDATE medical_records SET diagnosis=$2, treatment=$3, medications=$4, observations=$5,
			vital_signs=$6, exam_results=$7, follow_up_date=$8, updated_at=NOW()
		WHERE id = $1
		RETURNING updated_at`,
		m.ID, m.Diagnosis, m.Treatment, m.Medications, m.Observations,
		vitals, m.ExamResults, dates.TimePtr(m.FollowUpDate)).Scan(&m.UpdatedAt)
	if db.IsNoRows(err) {
		return ErrNotFound
	}
	return err
}

func (r *recordRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM medical_records WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *recordRepoPG) Search(ctx context.Context, params map[string]string, limit, offset int) ([]*MedicalRecord, int, error) {
	where := ` WHERE 1=1`
	var args []interface{}
	idx := 1

	if p, ok := params["patient_id"]; ok {
		where += fmt.Sprintf(` AND m.patient_id = $%d`, idx)
		args = append(args, p)
		idx++
	}
	if p, ok := params["doctor_id"]; ok {
		where += fmt.Sprintf(` AND m.doctor_id = $%d`, idx)
		args = append(args, p)
		idx++
	}
	if p, ok := params["appointment_id"]; ok {
		where += fmt.Sprintf(` AND m.appointment_id = $%d`, idx)
		args = append(args, p)
		idx++
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM medical_records m`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + recordCols + recordFrom + where +
		fmt.Sprintf(` ORDER BY m.created_at DESC LIMIT $%d OFFSET $%d`, idx, idx+1)
	args = append(args, limit, offset)

	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*MedicalRecord
	for rows.Next() {
		m, err := r.scanRecord(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, m)
	}
	return items, total, rows.Err()
}
