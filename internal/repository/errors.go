// internal/repository/errors.go
package repository

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

const pgUniqueViolation = "23505"

// translateError maps driver errors onto the package sentinels.
func translateError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		constraint := pgErr.ConstraintName
		switch {
		case strings.Contains(constraint, "slug"):
			return ErrDuplicateSlug
		case strings.Contains(constraint, "code"):
			return ErrDuplicateCode
		case strings.Contains(constraint, "gateway_session"):
			return ErrDuplicateSession
		case strings.Contains(constraint, "reference"):
			return ErrDuplicateReference
		}
	}

	return err
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`).Replace(s)
}
