package patient

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hospitall/hospitall/internal/platform/db"
)

type patientRepoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository { return &patientRepoPG{pool: pool} }

func (r *patientRepoPG) conn(ctx context.Context) db.Queryable {
	return db.Conn(ctx, r.pool)
}

const patientCols = `p.id, p.user_id, p.birth_date, p.address, p.emergency_contact,
	p.blood_type, p.allergies, p.medical_history, p.is_active,
	u.name, u.email, p.created_at, p.updated_at`

const patientFrom = ` FROM patients p LEFT JOIN users u ON u.id = p.user_id`

func (r *patientRepoPG) scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient
	err := row.Scan(&p.ID, &p.UserID, &p.BirthDate.Time, &p.Address, &p.EmergencyContact,
		&p.BloodType, &p.Allergies, &p.MedicalHistory, &p.IsActive,
		&p.Name, &p.Email, &p.CreatedAt, &p.UpdatedAt)
	return &p, err
}

func (r *patientRepoPG) Create(ctx context.Context, p *Patient) error {
	p.ID = uuid.New()
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO patients (id, user_id, birth_date, address, emergency_contact,
			blood_type, allergies, medical_history, is_active)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		RETURNING created_at, updated_at`,
		p.ID, p.UserID, p.BirthDate.Time, p.Address, p.EmergencyContact,
		p.BloodType, p.Allergies, p.MedicalHistory, p.IsActive).Scan(&p.CreatedAt, &p.UpdatedAt)
	return mapWriteErr(err)
}

func (r *patientRepoPG) getOne(ctx context.Context, where string, arg interface{}) (*Patient, error) {
	p, err := r.scanPatient(r.conn(ctx).QueryRow(ctx, `SELECT `+patientCols+patientFrom+` WHERE `+where, arg))
	if db.IsNoRows(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (r *patientRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Patient, error) {
	return r.getOne(ctx, `p.id = $1`, id)
}

func (r *patientRepoPG) GetByUserID(ctx context.Context, userID uuid.UUID) (*Patient, error) {
	return r.getOne(ctx, `p.user_id = $1`, userID)
}

func (r *patientRepoPG) Update(ctx context.Context, p *Patient) error {
	err := r.conn(ctx).QueryRow(ctx, `
		UPDATE patients SET birth_date=$2, address=$3, emergency_contact=$4,
			blood_type=$5, allergies=$6, medical_history=$7, is_active=$8, updated_at=NOW()
		WHERE id = $1
		RETURNING updated_at`,
		p.ID, p.BirthDate.Time, p.Address, p.EmergencyContact,
		p.BloodType, p.Allergies, p.MedicalHistory, p.IsActive).Scan(&p.UpdatedAt)
	if db.IsNoRows(err) {
		return ErrNotFound
	}
	return mapWriteErr(err)
}

func (r *patientRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM patients WHERE id = $1`, id)
	if db.IsForeignKeyViolation(err) {
		return ErrInUse
	}
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *patientRepoPG) Search(ctx context.Context, params map[string]string, limit, offset int) ([]*Patient, int, error) {
	where := ` WHERE 1=1`
	var args []interface{}
	idx := 1

	if p, ok := params["active"]; ok {
		where += fmt.Sprintf(` AND p.is_active = $%d`, idx)
		args = append(args, p == "true")
		idx++
	}
	if p, ok := params["blood_type"]; ok {
		where += fmt.Sprintf(` AND p.blood_type = $%d`, idx)
		args = append(args, p)
		idx++
	}
	if p, ok := params["search"]; ok {
		where += fmt.Sprintf(` AND (u.name ILIKE $%d OR u.email ILIKE $%d OR u.cpf ILIKE $%d)`, idx, idx, idx)
		args = append(args, "%"+p+"%")
		idx++
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*)`+patientFrom+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + patientCols + patientFrom + where +
		fmt.Sprintf(` ORDER BY u.name ASC LIMIT $%d OFFSET $%d`, idx, idx+1)
	args = append(args, limit, offset)

	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Patient
	for rows.Next() {
		p, err := r.scanPatient(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, p)
	}
	return items, total, rows.Err()
}

func mapWriteErr(err error) error {
	switch {
	case err == nil:
		return nil
	case db.IsUniqueViolation(err, "patients_user_id_key"):
		return ErrUserAlreadyPatient
	case db.IsForeignKeyViolation(err):
		return ErrUserNotFound
	}
	return err
}
