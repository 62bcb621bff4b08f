package repository

import (
	"errors"

	"wordchain/internal/apperr"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const uniqueViolation = "23505"

// translate maps driver errors onto the shared error kinds: no rows becomes
// NotFound, a unique violation becomes Conflict. Anything else passes
// through untouched.
func translate(err error, notFoundMsg, conflictMsg string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return apperr.Wrap(apperr.KindNotFound, notFoundMsg, err)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return apperr.Wrap(apperr.KindConflict, conflictMsg, err)
	}
	return err
}
