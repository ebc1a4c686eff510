package doctor

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hospitall/hospitall/internal/platform/db"
)

type doctorRepoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository { return &doctorRepoPG{pool: pool} }

func (r *doctorRepoPG) conn(ctx context.Context) db.Queryable {
	return db.Conn(ctx, r.pool)
}

const doctorCols = `d.id, d.user_id, d.crm, d.specialty_id, d.is_active,
	u.name, u.email, s.name, d.created_at, d.updated_at`

const doctorFrom = ` FROM doctors d
	LEFT JOIN users u ON u.id = d.user_id
	LEFT JOIN specialties s ON s.id = d.specialty_id`

func (r *doctorRepoPG) scanDoctor(row pgx.Row) (*Doctor, error) {
	var d Doctor
	err := row.Scan(&d.ID, &d.UserID, &d.CRM, &d.SpecialtyID, &d.IsActive,
		&d.Name, &d.Email, &d.SpecialtyName, &d.CreatedAt, &d.UpdatedAt)
	return &d, err
}

func (r *doctorRepoPG) Create(ctx context.Context, d *Doctor) error {
	d.ID = uuid.New()
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO doctors (id, user_id, crm, specialty_id, is_active)
		VALUES ($1,$2,$3,$4,$5)
		RETURNING created_at, updated_at`,
		d.ID, d.UserID, d.CRM, d.SpecialtyID, d.IsActive).Scan(&d.CreatedAt, &d.UpdatedAt)
	return mapWriteErr(err)
}

func (r *doctorRepoPG) getOne(ctx context.Context, where string, arg interface{}) (*Doctor, error) {
	d, err := r.scanDoctor(r.conn(ctx).QueryRow(ctx, `SELECT `+doctorCols+doctorFrom+` WHERE `+where, arg))
	if db.IsNoRows(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return d, nil
}

func (r *doctorRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Doctor, error) {
	return r.getOne(ctx, `d.id = $1`, id)
}

func (r *doctorRepoPG) GetByUserID(ctx context.Context, userID uuid.UUID) (*Doctor, error) {
	return r.getOne(ctx, `d.user_id = $1`, userID)
}

func (r *doctorRepoPG) Update(ctx context.Context, d *Doctor) error {
	err := r.conn(ctx).QueryRow(ctx, `
		UPDATE doctors SET crm=$2, specialty_id=$3, is_active=$4, updated_at=NOW()
		WHERE id = $1
		RETURNING updated_at`,
		d.ID, d.CRM, d.SpecialtyID, d.IsActive).Scan(&d.UpdatedAt)
	if db.IsNoRows(err) {
		return ErrNotFound
	}
	return mapWriteErr(err)
}

func (r *doctorRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM doctors WHERE id = $1`, id)
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

func (r *doctorRepoPG) Search(ctx context.Context, params map[string]string, limit, offset int) ([]*Doctor, int, error) {
	where := ` WHERE 1=1`
	var args []interface{}
	idx := 1

	if p, ok := params["specialty_id"]; ok {
		where += fmt.Sprintf(` AND d.specialty_id = $%d`, idx)
		args = append(args, p)
		idx++
	}
	if p, ok := params["active"]; ok {
		where += fmt.Sprintf(` AND d.is_active = $%d`, idx)
		args = append(args, p == "true")
		idx++
	}
	if p, ok := params["search"]; ok {
		where += fmt.Sprintf(` AND (u.name ILIKE $%d OR d.crm ILIKE $%d)`, idx, idx)
		args = append(args, "%"+p+"%")
		idx++
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*)`+doctorFrom+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + doctorCols + doctorFrom + where +
		fmt.Sprintf(` ORDER BY u.name ASC LIMIT $%d OFFSET $%d`, idx, idx+1)
	args = append(args, limit, offset)

	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Doctor
	for rows.Next() {
		d, err := r.scanDoctor(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, d)
	}
	return items, total, rows.Err()
}

func mapWriteErr(err error) error {
	switch {
	case err == nil:
		return nil
	case db.IsUniqueViolation(err, "doctors_crm_key"):
		return ErrDuplicateCRM
	case db.IsUniqueViolation(err, "doctors_user_id_key"):
		return ErrUserAlreadyDoctor
	case db.IsForeignKeyViolation(err):
		return ErrSpecialtyNotFound
	}
	return err
}
