package store

import (
	"errors"
	"testing"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestMapUniqueViolation(t *testing.T) {
	tests := []struct {
		name       string
		constraint string
		want       error
	}{
		{"Short code", "urls_short_code_key", ErrDuplicateCode},
		{"Custom alias", "urls_custom_alias_key", ErrDuplicateAlias},
		{"Username", "users_username_key", ErrDuplicateUsername},
		{"Email", "users_email_key", ErrDuplicateEmail},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := &pgconn.PgError{
				Code:           pgerrcode.UniqueViolation,
				ConstraintName: tt.constraint,
			}
			assert.ErrorIs(t, mapUniqueViolation(err), tt.want)
		})
	}
}

func TestMapUniqueViolation_PassesThroughOtherErrors(t *testing.T) {
	plain := errors.New("connection reset")
	assert.Equal(t, plain, mapUniqueViolation(plain))

	otherPg := &pgconn.PgError{Code: pgerrcode.SerializationFailure}
	assert.Equal(t, error(otherPg), mapUniqueViolation(otherPg))

	unknownConstraint := &pgconn.PgError{
		Code:           pgerrcode.UniqueViolation,
		ConstraintName: "some_other_key",
	}
	assert.Equal(t, error(unknownConstraint), mapUniqueViolation(unknownConstraint))
}
