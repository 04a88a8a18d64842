package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

type TxFunc func(tx *sql.Tx) error

// WithTransaction runs fn inside a transaction, committing on success and
// rolling back on error or panic.
func (db *DB) WithTransaction(ctx context.Context, fn TxFunc) (err error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if r := recover(); r != nil {
			_ = tx.Rollback()
			panic(r)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return errors.Join(err, fmt.Errorf("rollback failed: %w", rbErr))
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// TableExists looks the table up in the current search path.
func (db *DB) TableExists(ctx context.Context, tableName string) (bool, error) {
	var regclass sql.NullString
	if err := db.QueryRowContext(ctx, `SELECT to_regclass($1)::text`, tableName).Scan(&regclass); err != nil {
		return false, fmt.Errorf("failed to look up table %s: %w", tableName, err)
	}
	return regclass.Valid, nil
}
