package repository

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	storeerrors "tvagent/internal/infrastructure/errors"
	"tvagent/internal/types"
)

// PendingUpload returns every record for the given day that has not been
// uploaded yet, ordered by package name for stable batches.
func (r *SQLiteRepository) PendingUpload(ctx context.Context, date time.Time) ([]types.UsageRecord, error) {
	const op = "PendingUpload"

	query := fmt.Sprintf(
		"SELECT %s FROM app_usage WHERE date = ? AND uploaded = 0 ORDER BY package_name ASC",
		usageColumns)
	rows, err := r.conn().QueryContext(ctx, query, types.DateKey(date))
	if err != nil {
		return nil, storeerrors.WrapDatabaseError(op, err)
	}

	records, err := collectUsageRecords(rows)
	if err != nil {
		return nil, storeerrors.WrapDatabaseError(op, err)
	}
	return records, nil
}

// MarkUploaded flags exactly the named packages as uploaded for the given
// day. Rows for other packages or other dates are untouched. The whole set
// is marked in a single transaction.
func (r *SQLiteRepository) MarkUploaded(ctx context.Context, date time.Time, packageNames []string) error {
	const op = "MarkUploaded"
	if len(packageNames) == 0 {
		return nil
	}

	dateKey := types.DateKey(date)
	now := time.Now().UnixMilli()

	placeholders := strings.Repeat("?,", len(packageNames))
	placeholders = placeholders[:len(placeholders)-1]

	args := make([]interface{}, 0, len(packageNames)+2)
	args = append(args, now, dateKey)
	for _, pkg := range packageNames {
		args = append(args, pkg)
	}

	return r.WithTransaction(ctx, func(txRepo UsageRepository) error {
		tr := txRepo.(*SQLiteRepository)
		query := fmt.Sprintf(
			"UPDATE app_usage SET uploaded = 1, last_sync = ? WHERE date = ? AND package_name IN (%s)",
			placeholders)
		result, err := tr.conn().ExecContext(ctx, query, args...)
		if err != nil {
			return storeerrors.WrapDatabaseErrorWithContext(op, err, map[string]string{
				"date":     dateKey,
				"packages": strconv.Itoa(len(packageNames)),
			})
		}

		if affected, err := result.RowsAffected(); err == nil && affected < int64(len(packageNames)) {
			r.logger.Warn("marked fewer rows than requested",
				"date", dateKey, "requested", len(packageNames), "marked", affected)
		}
		return nil
	})
}
