package repository

import (
	"context"
	"time"

	"tvagent/internal/types"
)

// UsageRepository defines the interface for usage data persistence operations.
// The store is the sole mutator of usage records and categories; all other
// components read or request mutation through it.
type UsageRepository interface {
	// Keyed record operations; identity is (packageName, date)
	Upsert(ctx context.Context, record types.UsageRecord) error
	// UpsertBatch is atomic: either every record in the batch is written or
	// none is, to avoid partial-day inconsistency.
	UpsertBatch(ctx context.Context, records []types.UsageRecord) error
	GetForDate(ctx context.Context, packageName string, date time.Time) (types.UsageRecord, error)

	// Query operations
	QueryByDate(ctx context.Context, date time.Time) ([]types.UsageRecord, error)
	QueryDateRange(ctx context.Context, from, to time.Time) ([]types.UsageRecord, error)
	TopByWeeklyUsage(ctx context.Context, date time.Time, limit int) ([]types.UsageRecord, error)

	// Aggregate projections; 0 when no rows
	SumUsageForDate(ctx context.Context, date time.Time) (int64, error)
	SumWeeklyUsage(ctx context.Context, date time.Time) (int64, error)

	// Upload-state tracking
	PendingUpload(ctx context.Context, date time.Time) ([]types.UsageRecord, error)
	// MarkUploaded flips the uploaded flag for exactly the given
	// (packageName, date) set and must not affect rows for other dates.
	MarkUploaded(ctx context.Context, date time.Time, packageNames []string) error

	// Retention; irreversible, idempotent. Returns the number of rows
	// deleted.
	PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error)

	// Categories are additive: no update or delete
	InsertCategory(ctx context.Context, name string) (int64, error)
	ListCategories(ctx context.Context) ([]types.Category, error)
	GetCategory(ctx context.Context, id int64) (types.Category, error)

	// Transaction support
	WithTransaction(ctx context.Context, fn func(repo UsageRepository) error) error
}
