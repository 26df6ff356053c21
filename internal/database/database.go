package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/georgemunganga/tillcore/internal/tillerr"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// Connect opens a PostgreSQL connection pool and verifies it.
func Connect(ctx context.Context, dsn string) (*sqlx.DB, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	db.SetMaxOpenConns(8)
	db.SetConnMaxIdleTime(5 * time.Minute)
	return db, nil
}

// Queryer is satisfied by both *sqlx.DB and *sqlx.Tx so repository
// helpers can run inside or outside a transaction.
type Queryer interface {
	sqlx.ExtContext
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
}

// WithTx runs fn in a database transaction, committing if fn returns nil.
// Errors are passed through Classify.
func WithTx(ctx context.Context, db *sqlx.DB, fn func(tx *sqlx.Tx) error) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return Classify(err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return Classify(err)
	}
	return Classify(tx.Commit())
}

// Classify converts driver errors into till errors. Integrity constraint
// violations (SQLSTATE class 23) are raised by the schema's constraints
// and triggers when another terminal got there first.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	if tillerr.KindOf(err) != "" {
		return err
	}
	if errors.Is(err, sql.ErrNoRows) {
		return &tillerr.Error{Kind: tillerr.KindState, Message: "not found", Err: err}
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code.Class() == "23" {
		return tillerr.Concurrent("the database refused the change; someone else did it first, reload", err)
	}
	return err
}

// IsIntegrityViolation reports whether err came from a constraint or
// trigger in SQLSTATE class 23.
func IsIntegrityViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code.Class() == "23"
}

// IsUniqueViolation reports whether err is a unique_violation (23505).
func IsUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

// ExpectOne turns a conditional update that matched no row into a
// concurrency error: the condition held when the caller read the row but
// another terminal has changed it since.
func ExpectOne(res sql.Result, format string, args ...interface{}) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n != 1 {
		return tillerr.Concurrent(fmt.Sprintf(format, args...), nil)
	}
	return nil
}
