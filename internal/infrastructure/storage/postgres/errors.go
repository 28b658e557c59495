package postgres

import (
	"context"
	"errors"
	"net"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"taskhub/internal/core/apperror"
)

// PostgreSQL SQLSTATE codes this layer cares about.
const (
	sqlstateUniqueViolation     = "23505"
	sqlstateForeignKeyViolation = "23503"
	sqlstateConnClassPrefix     = "08" // connection exception class
)

// translateError maps low-level pgx errors onto the apperror taxonomy:
// missing rows to NOT_FOUND, uniqueness violations to DUPLICATE_ENTRY,
// connectivity failures to BACKEND_UNAVAILABLE. Anything else is wrapped
// as internal.
func translateError(err error, entityName string, key any) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, pgx.ErrNoRows) {
		return apperror.NewNotFound(entityName, key)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case pgErr.Code == sqlstateUniqueViolation:
			return apperror.NewDuplicate(entityName, pgErr.ConstraintName, "").
				WithCause(err)
		case pgErr.Code == sqlstateForeignKeyViolation:
			return apperror.NewConflict("referenced record does not exist").
				WithDetail("entity", entityName).
				WithDetail("constraint", pgErr.ConstraintName).
				WithCause(err)
		case len(pgErr.Code) >= 2 && pgErr.Code[:2] == sqlstateConnClassPrefix:
			return apperror.NewUnavailable("postgres", err)
		}
	}

	if isConnectivityError(err) {
		return apperror.NewUnavailable("postgres", err)
	}

	return apperror.NewInternal(err).WithDetail("entity", entityName)
}

// isConnectivityError detects transport-level failures that mean the store
// itself is unreachable, as opposed to a query-level problem.
func isConnectivityError(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var connErr *pgconn.ConnectError
	return errors.As(err, &connErr)
}
