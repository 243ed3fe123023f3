package repository

import (
	"context"
	"database/sql"
	"time"

	"tvagent/internal/database"
	storeerrors "tvagent/internal/infrastructure/errors"
	"tvagent/internal/infrastructure/logging"
	"tvagent/internal/types"
)

// dbConn is the subset of database/sql shared by *sql.DB and *sql.Tx,
// letting every query run either directly or inside a transaction.
type dbConn interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// SQLiteRepository implements the UsageRepository interface using SQLite
type SQLiteRepository struct {
	db          *sql.DB
	tx          *sql.Tx // non-nil when operating inside WithTransaction
	retryConfig *storeerrors.RetryConfig
	logger      logging.Logger
}

var _ UsageRepository = (*SQLiteRepository)(nil)

// NewSQLiteRepository creates a new SQLite repository instance
func NewSQLiteRepository(dbService database.Service, logger logging.Logger) *SQLiteRepository {
	return NewSQLiteRepositoryWithConfig(dbService, nil, logger)
}

// NewSQLiteRepositoryWithConfig creates a new SQLite repository instance with
// a custom retry configuration
func NewSQLiteRepositoryWithConfig(dbService database.Service, retryConfig *storeerrors.RetryConfig, logger logging.Logger) *SQLiteRepository {
	if retryConfig == nil {
		retryConfig = storeerrors.DefaultRetryConfig()
	}
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}

	return &SQLiteRepository{
		db:          dbService.DB(),
		retryConfig: retryConfig,
		logger:      logger,
	}
}

// conn returns the active transaction when present, the pooled connection
// otherwise.
func (r *SQLiteRepository) conn() dbConn {
	if r.tx != nil {
		return r.tx
	}
	return r.db
}

func (r *SQLiteRepository) classifyError(err error) storeerrors.ErrorCode {
	return storeerrors.ClassifyError(err)
}

// usageColumns is the canonical column list for app_usage scans.
const usageColumns = `package_name, app_name, usage_minutes, weekly_usage_minutes,
	monthly_usage_minutes, daily_limit, category_id, last_used,
	total_launch_count, date, uploaded, last_sync`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanUsageRecord(row rowScanner) (types.UsageRecord, error) {
	var rec types.UsageRecord
	var uploaded int
	err := row.Scan(
		&rec.PackageName,
		&rec.AppName,
		&rec.UsageMinutes,
		&rec.WeeklyUsageMinutes,
		&rec.MonthlyUsageMinutes,
		&rec.DailyLimit,
		&rec.CategoryID,
		&rec.LastUsed,
		&rec.TotalLaunchCount,
		&rec.Date,
		&uploaded,
		&rec.LastSync,
	)
	rec.Uploaded = uploaded != 0
	return rec, err
}

func collectUsageRecords(rows *sql.Rows) ([]types.UsageRecord, error) {
	defer rows.Close()

	var records []types.UsageRecord
	for rows.Next() {
		rec, err := scanUsageRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// validateRecord checks record fields before any write.
func validateRecord(op string, rec *types.UsageRecord) error {
	if rec.PackageName == "" {
		return storeerrors.HandleValidationError(op, "packageName", rec.PackageName, "package name cannot be empty")
	}
	if _, err := time.Parse(types.DateLayout, rec.Date); err != nil {
		return storeerrors.HandleValidationError(op, "date", rec.Date, "date must be YYYY-MM-DD")
	}
	if rec.UsageMinutes < 0 || rec.WeeklyUsageMinutes < 0 || rec.MonthlyUsageMinutes < 0 {
		return storeerrors.HandleValidationError(op, "minutes", rec.Date, "usage minutes cannot be negative")
	}
	if rec.DailyLimit < 0 {
		return storeerrors.HandleValidationError(op, "dailyLimit", rec.Date, "daily limit cannot be negative")
	}
	return nil
}
