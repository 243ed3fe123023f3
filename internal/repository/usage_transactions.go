package repository

import (
	"context"
	"database/sql"

	storeerrors "tvagent/internal/infrastructure/errors"
)

// WithTransaction runs fn against a repository clone bound to a single
// transaction. The transaction commits when fn returns nil and rolls back
// otherwise. Transient begin/commit failures are retried.
func (r *SQLiteRepository) WithTransaction(ctx context.Context, fn func(txRepo UsageRepository) error) error {
	const op = "WithTransaction"

	// Nested call: already inside a transaction, just reuse it.
	if r.tx != nil {
		return fn(r)
	}

	return storeerrors.WithRetry(ctx, r.retryConfig, func() error {
		tx, err := r.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
		if err != nil {
			return storeerrors.WrapDatabaseError(op, err)
		}

		txRepo := &SQLiteRepository{
			db:          r.db,
			tx:          tx,
			retryConfig: r.retryConfig,
			logger:      r.logger,
		}

		if err := fn(txRepo); err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				r.logger.Error("transaction rollback failed", "error", rbErr)
			}
			return err
		}

		if err := tx.Commit(); err != nil {
			return storeerrors.WrapDatabaseError(op, err)
		}
		return nil
	})
}
