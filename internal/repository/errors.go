package repository

import (
	"errors"
	"fmt"

	"github.com/Domenick1991/flightbooking/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
	pgCheckViolation      = "23514"
	pgStringTooLong       = "22001"

	seatsRangeConstraint = "flights_seats_range"
)

// translateError maps driver errors onto domain error kinds. entity names the
// record in the resulting message.
func translateError(err error, entity string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) || errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%w: %s", domain.ErrNotFound, entity)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return fmt.Errorf("%w: %s (%s)", domain.ErrDuplicate, entity, pgErr.ConstraintName)
		case pgForeignKeyViolation:
			return fmt.Errorf("%w: %s (%s)", domain.ErrInUse, entity, pgErr.ConstraintName)
		case pgCheckViolation:
			if pgErr.ConstraintName == seatsRangeConstraint {
				return fmt.Errorf("%w: %s", domain.ErrCapacity, entity)
			}
			return fmt.Errorf("%w: %s (%s)", domain.ErrValidation, entity, pgErr.ConstraintName)
		case pgStringTooLong:
			return fmt.Errorf("%w: %s: %s", domain.ErrValidation, entity, pgErr.Message)
		}
	}
	return fmt.Errorf("%s: %w", entity, err)
}

func isInUse(err error) bool {
	return errors.Is(err, domain.ErrInUse)
}
