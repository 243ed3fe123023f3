package repository

import (
	"context"
	"fmt"
	"time"

	storeerrors "tvagent/internal/infrastructure/errors"
	"tvagent/internal/types"
)

// QueryByDate returns every record for the given day, busiest apps first.
func (r *SQLiteRepository) QueryByDate(ctx context.Context, date time.Time) ([]types.UsageRecord, error) {
	const op = "QueryByDate"

	query := fmt.Sprintf(
		"SELECT %s FROM app_usage WHERE date = ? ORDER BY usage_minutes DESC, package_name ASC",
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

// QueryDateRange returns records with from <= date <= to, ordered by date
// then package name. The bounds are inclusive.
func (r *SQLiteRepository) QueryDateRange(ctx context.Context, from, to time.Time) ([]types.UsageRecord, error) {
	const op = "QueryDateRange"

	fromKey, toKey := types.DateKey(from), types.DateKey(to)
	if fromKey > toKey {
		return nil, storeerrors.HandleValidationError(op, "range", fromKey+".."+toKey, "from must not be after to")
	}

	query := fmt.Sprintf(
		"SELECT %s FROM app_usage WHERE date >= ? AND date <= ? ORDER BY date ASC, package_name ASC",
		usageColumns)
	rows, err := r.conn().QueryContext(ctx, query, fromKey, toKey)
	if err != nil {
		return nil, storeerrors.WrapDatabaseError(op, err)
	}

	records, err := collectUsageRecords(rows)
	if err != nil {
		return nil, storeerrors.WrapDatabaseError(op, err)
	}
	return records, nil
}

// TopByWeeklyUsage returns up to limit records for the given day ordered by
// weekly usage, heaviest first.
func (r *SQLiteRepository) TopByWeeklyUsage(ctx context.Context, date time.Time, limit int) ([]types.UsageRecord, error) {
	const op = "TopByWeeklyUsage"
	if limit <= 0 {
		return nil, storeerrors.HandleValidationError(op, "limit", fmt.Sprintf("%d", limit), "limit must be positive")
	}

	query := fmt.Sprintf(
		"SELECT %s FROM app_usage WHERE date = ? ORDER BY weekly_usage_minutes DESC, package_name ASC LIMIT ?",
		usageColumns)
	rows, err := r.conn().QueryContext(ctx, query, types.DateKey(date), limit)
	if err != nil {
		return nil, storeerrors.WrapDatabaseError(op, err)
	}

	records, err := collectUsageRecords(rows)
	if err != nil {
		return nil, storeerrors.WrapDatabaseError(op, err)
	}
	return records, nil
}

// SumUsageForDate totals usage_minutes across all packages for one day.
func (r *SQLiteRepository) SumUsageForDate(ctx context.Context, date time.Time) (int64, error) {
	const op = "SumUsageForDate"

	var total int64
	err := r.conn().QueryRowContext(ctx,
		"SELECT COALESCE(SUM(usage_minutes), 0) FROM app_usage WHERE date = ?",
		types.DateKey(date)).Scan(&total)
	if err != nil {
		return 0, storeerrors.WrapDatabaseError(op, err)
	}
	return total, nil
}

// SumWeeklyUsage totals weekly_usage_minutes across all packages for one day.
func (r *SQLiteRepository) SumWeeklyUsage(ctx context.Context, date time.Time) (int64, error) {
	const op = "SumWeeklyUsage"

	var total int64
	err := r.conn().QueryRowContext(ctx,
		"SELECT COALESCE(SUM(weekly_usage_minutes), 0) FROM app_usage WHERE date = ?",
		types.DateKey(date)).Scan(&total)
	if err != nil {
		return 0, storeerrors.WrapDatabaseError(op, err)
	}
	return total, nil
}
