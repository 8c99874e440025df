package store

import (
	"errors"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// ErrDuplicateCode means a generated short code collided; callers
	// retry generation rather than surfacing this to the user.
	ErrDuplicateCode = errors.New("short code already exists")

	// ErrDuplicateAlias means a user-chosen alias is taken; this one is
	// surfaced so the caller can pick another.
	ErrDuplicateAlias = errors.New("custom alias already exists")

	ErrLinkNotFound = errors.New("link not found")

	ErrDuplicateUsername = errors.New("username already exists")
	ErrDuplicateEmail    = errors.New("email already exists")
	ErrUserNotFound      = errors.New("user not found")
)

// mapUniqueViolation translates a Postgres unique violation into the
// matching sentinel error based on the constraint name, so callers can
// tell a retryable code collision from a user-visible alias conflict.
func mapUniqueViolation(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != pgerrcode.UniqueViolation {
		return err
	}

	switch pgErr.ConstraintName {
	case "urls_short_code_key":
		return ErrDuplicateCode
	case "urls_custom_alias_key":
		return ErrDuplicateAlias
	case "users_username_key":
		return ErrDuplicateUsername
	case "users_email_key":
		return ErrDuplicateEmail
	}
	return err
}
