package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	storeerrors "tvagent/internal/infrastructure/errors"
	"tvagent/internal/types"
)

const upsertUsageSQL = `
	INSERT INTO app_usage (
		package_name, app_name, usage_minutes, weekly_usage_minutes,
		monthly_usage_minutes, daily_limit, category_id, last_used,
		total_launch_count, date, uploaded, last_sync
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 0, ?)
	ON CONFLICT(package_name, date) DO UPDATE SET
		app_name = excluded.app_name,
		usage_minutes = excluded.usage_minutes,
		weekly_usage_minutes = excluded.weekly_usage_minutes,
		monthly_usage_minutes = excluded.monthly_usage_minutes,
		daily_limit = excluded.daily_limit,
		category_id = excluded.category_id,
		last_used = MAX(app_usage.last_used, excluded.last_used),
		total_launch_count = excluded.total_launch_count,
		uploaded = 0,
		last_sync = excluded.last_sync`

// Upsert inserts or replaces the usage record keyed by (package, date).
// Any write resets the uploaded flag so the next sync picks the row up.
func (r *SQLiteRepository) Upsert(ctx context.Context, record types.UsageRecord) error {
	const op = "Upsert"
	if err := validateRecord(op, &record); err != nil {
		return err
	}

	return storeerrors.WithRetry(ctx, r.retryConfig, func() error {
		_, err := r.conn().ExecContext(ctx, upsertUsageSQL,
			record.PackageName,
			record.AppName,
			record.UsageMinutes,
			record.WeeklyUsageMinutes,
			record.MonthlyUsageMinutes,
			record.DailyLimit,
			record.CategoryID,
			record.LastUsed,
			record.TotalLaunchCount,
			record.Date,
			time.Now().UnixMilli(),
		)
		if err != nil {
			return storeerrors.WrapDatabaseErrorWithContext(op, err, map[string]string{
				"package": record.PackageName,
				"date":    record.Date,
			})
		}
		return nil
	})
}

// UpsertBatch writes every record inside a single transaction. Either all
// records land or none do.
func (r *SQLiteRepository) UpsertBatch(ctx context.Context, records []types.UsageRecord) error {
	const op = "UpsertBatch"
	if len(records) == 0 {
		return nil
	}

	for i := range records {
		if err := validateRecord(op, &records[i]); err != nil {
			return err
		}
	}

	err := r.WithTransaction(ctx, func(txRepo UsageRepository) error {
		tr := txRepo.(*SQLiteRepository)
		now := time.Now().UnixMilli()
		for _, record := range records {
			_, err := tr.conn().ExecContext(ctx, upsertUsageSQL,
				record.PackageName,
				record.AppName,
				record.UsageMinutes,
				record.WeeklyUsageMinutes,
				record.MonthlyUsageMinutes,
				record.DailyLimit,
				record.CategoryID,
				record.LastUsed,
				record.TotalLaunchCount,
				record.Date,
				now,
			)
			if err != nil {
				return storeerrors.WrapDatabaseErrorWithContext(op, err, map[string]string{
					"package": record.PackageName,
					"date":    record.Date,
				})
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	r.logger.Debug("batch upsert complete", "records", len(records))
	return nil
}

// GetForDate fetches the record keyed by (packageName, date).
func (r *SQLiteRepository) GetForDate(ctx context.Context, packageName string, date time.Time) (types.UsageRecord, error) {
	const op = "GetForDate"
	dateKey := types.DateKey(date)

	query := fmt.Sprintf("SELECT %s FROM app_usage WHERE package_name = ? AND date = ?", usageColumns)
	rec, err := scanUsageRecord(r.conn().QueryRowContext(ctx, query, packageName, dateKey))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.UsageRecord{}, storeerrors.HandleNotFound(op, "usage record",
				fmt.Sprintf("%s@%s", packageName, dateKey))
		}
		return types.UsageRecord{}, storeerrors.WrapDatabaseError(op, err)
	}
	return rec, nil
}
