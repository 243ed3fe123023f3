package repository

import (
	"context"
	"time"

	storeerrors "tvagent/internal/infrastructure/errors"
	"tvagent/internal/types"
)

// PurgeOlderThan deletes every record strictly older than cutoff's calendar
// day and returns the number of rows removed. Running it twice with the same
// cutoff deletes nothing the second time.
func (r *SQLiteRepository) PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	const op = "PurgeOlderThan"
	cutoffKey := types.DateKey(cutoff)

	var deleted int64
	err := storeerrors.WithRetry(ctx, r.retryConfig, func() error {
		result, err := r.conn().ExecContext(ctx,
			"DELETE FROM app_usage WHERE date < ?", cutoffKey)
		if err != nil {
			return storeerrors.WrapDatabaseErrorWithContext(op, err, map[string]string{
				"cutoff": cutoffKey,
			})
		}
		deleted, _ = result.RowsAffected()
		return nil
	})
	if err != nil {
		return 0, err
	}

	if deleted > 0 {
		r.logger.Info("purged stale usage records", "cutoff", cutoffKey, "deleted", deleted)
	}
	return deleted, nil
}
