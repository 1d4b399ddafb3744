package repository

import (
	"context"
	"errors"

	"linkup-backend/internal/apperr"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
	pgCheckViolation      = "23514"
)

// storeError classifies a pgx error raised while performing op
func storeError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return apperr.Wrap(apperr.KindNotFound, err, op+": not found")
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return apperr.Wrap(apperr.KindConflict, err, op+": already exists")
		case pgForeignKeyViolation:
			return apperr.Wrap(apperr.KindNotFound, err, op+": referenced user not found")
		case pgCheckViolation:
			return apperr.Wrap(apperr.KindInvalidArgument, err, op+": constraint violated")
		}
	}

	if pgconn.Timeout(err) || pgconn.SafeToRetry(err) ||
		errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return apperr.Wrap(apperr.KindTransient, err, "failed to "+op)
	}
	return apperr.Wrap(apperr.KindInternal, err, "failed to "+op)
}
