// internal/repository/errors_test.go
package repository

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func TestTranslateError(t *testing.T) {
	other := errors.New("connection reset")

	tests := []struct {
		name string
		in   error
		want error
	}{
		{"nil", nil, nil},
		{"record not found", gorm.ErrRecordNotFound, ErrNotFound},
		{"wrapped not found", fmt.Errorf("query: %w", gorm.ErrRecordNotFound), ErrNotFound},
		{"slug index", &pgconn.PgError{Code: "23505", ConstraintName: "idx_products_slug"}, ErrDuplicateSlug},
		{"code index", &pgconn.PgError{Code: "23505", ConstraintName: "idx_products_code"}, ErrDuplicateCode},
		{"session index", &pgconn.PgError{Code: "23505", ConstraintName: "idx_orders_gateway_session_id"}, ErrDuplicateSession},
		{"reference index", &pgconn.PgError{Code: "23505", ConstraintName: "idx_orders_reference"}, ErrDuplicateReference},
		{"other", other, other},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, translateError(tt.in))
		})
	}
}

func TestTranslateErrorKeepsUnknownConstraint(t *testing.T) {
	pgErr := &pgconn.PgError{Code: "23505", ConstraintName: "idx_something_else"}
	assert.Same(t, pgErr, translateError(pgErr))

	check := &pgconn.PgError{Code: "23514", ConstraintName: "chk_products_stock_non_negative"}
	assert.Same(t, check, translateError(check))
}

func TestEscapeLike(t *testing.T) {
	assert.Equal(t, `50\%\_off\\`, escapeLike(`50%_off\`))
	assert.Equal(t, "filtro", escapeLike("filtro"))
}
