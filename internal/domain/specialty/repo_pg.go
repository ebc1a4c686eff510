package specialty

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hospitall/hospitall/internal/platform/db"
)

type specialtyRepoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository { return &specialtyRepoPG{pool: pool} }

func (r *specialtyRepoPG) conn(ctx context.Context) db.Queryable {
	return db.Conn(ctx, r.pool)
}

const specCols = `s.id, s.name, s.description, s.is_active,
	(SELECT COUNT(*)::int FROM doctors d WHERE d.specialty_id = s.id), s.created_at, s.updated_at`

func (r *specialtyRepoPG) scanSpecialty(row pgx.Row) (*Specialty, error) {
	var s Specialty
	var count int
	err := row.Scan(&s.ID, &s.Name, &s.Description, &s.IsActive, &count, &s.CreatedAt, &s.UpdatedAt)
	s.DoctorCount = &count
	return &s, err
}

func (r *specialtyRepoPG) Create(ctx context.Context, s *Specialty) error {
	s.ID = uuid.New()
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO specialties (id, name, description, is_active)
		VALUES ($1,$2,$3,$4)
		RETURNING created_at, updated_at`,
		s.ID, s.Name, s.Description, s.IsActive).Scan(&s.CreatedAt, &s.UpdatedAt)
	return mapWriteErr(err)
}

func (r *specialtyRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Specialty, error) {
	s, err := r.scanSpecialty(r.conn(ctx).QueryRow(ctx, `SELECT `+specCols+` FROM specialties s WHERE s.id = $1`, id))
	if db.IsNoRows(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (r *specialtyRepoPG) Update(ctx context.Context, s *Specialty) error {
	err := r.conn(ctx).QueryRow(ctx, `
		UPDATE specialties SET name=$2, description=$3, is_active=$4, updated_at=NOW()
		WHERE id = $1
		RETURNING updated_at`,
		s.ID, s.Name, s.Description, s.IsActive).Scan(&s.UpdatedAt)
	if db.IsNoRows(err) {
		return ErrNotFound
	}
	return mapWriteErr(err)
}

func (r *specialtyRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM specialties WHERE id = $1`, id)
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

func (r *specialtyRepoPG) CountDoctors(ctx context.Context, id uuid.UUID) (int, error) {
	var n int
	err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM doctors WHERE specialty_id = $1`, id).Scan(&n)
	return n, err
}

func (r *specialtyRepoPG) Search(ctx context.Context, params map[string]string, limit, offset int) ([]*Specialty, int, error) {
	where := ` WHERE 1=1`
	var args []interface{}
	idx := 1

	if p, ok := params["active"]; ok {
		where += fmt.Sprintf(` AND s.is_active = $%d`, idx)
		args = append(args, p == "true")
		idx++
	}
	if p, ok := params["search"]; ok {
		where += fmt.Sprintf(` AND s.name ILIKE $%d`, idx)
		args = append(args, "%"+p+"%")
		idx++
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM specialties s`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + specCols + ` FROM specialties s` + where +
		fmt.Sprintf(` ORDER BY s.name ASC LIMIT $%d OFFSET $%d`, idx, idx+1)
	args = append(args, limit, offset)

	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Specialty
	for rows.Next() {
		s, err := r.scanSpecialty(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, s)
	}
	return items, total, rows.Err()
}

func mapWriteErr(err error) error {
	if db.IsUniqueViolation(err, "specialties_name_key") {
		return ErrDuplicateName
	}
	return err
}
