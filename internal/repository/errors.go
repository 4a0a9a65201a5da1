package repository

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

const pgUniqueViolation = "23505"

// ErrImageLimit is returned when appending images would exceed the cap.
var ErrImageLimit = errors.New("location image limit reached")

// DuplicateKeyError reports a unique constraint violation on Field.
type DuplicateKeyError struct {
	Constraint string
	Field      string
	Err        error
}

func (e *DuplicateKeyError) Error() string {
	return fmt.Sprintf("duplicate %s (constraint %s)", e.Field, e.Constraint)
}

func (e *DuplicateKeyError) Unwrap() error { return e.Err }

var constraintFields = map[string]string{
	"uq_users_email":      "email",
	"uq_locations_name":   "name",
	"uq_departments_name": "name",
}

// translateError converts driver-level unique violations into
// *DuplicateKeyError and passes everything else through.
func translateError(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		field, ok := constraintFields[pgErr.ConstraintName]
		if !ok {
			field = pgErr.ColumnName
		}
		return &DuplicateKeyError{Constraint: pgErr.ConstraintName, Field: field, Err: err}
	}
	return err
}

// IsDuplicateKey reports whether err is a unique violation and returns it.
func IsDuplicateKey(err error) (*DuplicateKeyError, bool) {
	var dup *DuplicateKeyError
	if errors.As(err, &dup) {
		return dup, true
	}
	return nil, false
}

// escapeLike escapes LIKE wildcards so user input matches literally.
func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
