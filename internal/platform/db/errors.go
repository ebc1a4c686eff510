package db

import (
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Postgres SQLSTATE codes the repositories translate into domain errors.
const (
	CodeUniqueViolation     = "23505"
	CodeForeignKeyViolation = "23503"
	CodeExclusionViolation  = "23P01"
)

// IsNoRows reports whether err is pgx's empty-result error.
func IsNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

func pgCode(err error) (string, string) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code, pgErr.ConstraintName
	}
	return "", ""
}

// IsUniqueViolation reports a unique constraint failure. When constraint is
// non-empty only that constraint matches.
func IsUniqueViolation(err error, constraint string) bool {
	return matches(err, CodeUniqueViolation, constraint)
}

func IsForeignKeyViolation(err error) bool {
	return matches(err, CodeForeignKeyViolation, "")
}

func IsExclusionViolation(err error, constraint string) bool {
	return matches(err, CodeExclusionViolation, constraint)
}

func matches(err error, code, constraint string) bool {
	got, name := pgCode(err)
	if got != code {
		return false
	}
	return constraint == "" || constraint == name
}
