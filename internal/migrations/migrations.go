package migrations

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/jmoiron/sqlx"
)

//go:embed schema.sql
var schemaSQL string

// Schema returns the full DDL, including triggers and reference data.
func Schema() string { return schemaSQL }

// Run creates the database schema required by the till. Every statement is
// idempotent so Run is safe to call at each start-up.
func Run(ctx context.Context, db *sqlx.DB) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	// Serialise concurrent start-ups of several terminals.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(7362)`); err != nil {
		return fmt.Errorf("lock schema: %w", err)
	}
	if _, err := tx.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	return tx.Commit()
}
