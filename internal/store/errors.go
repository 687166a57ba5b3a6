package store

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const (
	pgUndefinedColumn = "42703"
	pgUndefinedTable  = "42P01"
)

func mapNotFound(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return mapSchemaError(err)
}

func mapSchemaError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUndefinedColumn, pgUndefinedTable:
			return fmt.Errorf("%w: %s", ErrSchemaOutdated, pgErr.Message)
		}
	}
	return err
}
