package repository

import (
	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5/pgconn"
)

const pgUniqueViolation = "23505"

// 一意制約違反か
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}
