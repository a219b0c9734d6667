package postgres

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/ogurasousui/guard-shifts/internal/core/shift"
)

const (
	foreignKeyViolationCode = "23503"
	checkViolationCode      = "23514"
	invalidTextCode         = "22P02"
)

func translateShiftPgError(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}

	switch pgErr.Code {
	case foreignKeyViolationCode:
		switch {
		case strings.Contains(pgErr.ConstraintName, "operator"):
			return fmt.Errorf("%w: %s", shift.ErrOperatorNotFound, pgErr.ConstraintName)
		case strings.Contains(pgErr.ConstraintName, "shop"):
			return fmt.Errorf("%w: %s", shift.ErrShopNotFound, pgErr.ConstraintName)
		default:
			return fmt.Errorf("%w: %s", shift.ErrShiftNotFound, pgErr.ConstraintName)
		}
	case checkViolationCode:
		switch {
		case strings.Contains(pgErr.ConstraintName, "coordinates"):
			return fmt.Errorf("%w: %s", shift.ErrInvalidCoordinates, pgErr.ConstraintName)
		case strings.Contains(pgErr.ConstraintName, "status"):
			return fmt.Errorf("%w: %s", shift.ErrInvalidState, pgErr.ConstraintName)
		}
	case invalidTextCode:
		return fmt.Errorf("%w: %s", shift.ErrInvalidID, pgErr.Message)
	}
	return err
}
