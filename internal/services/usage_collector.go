package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	storeerrors "tvagent/internal/infrastructure/errors"
	"tvagent/internal/infrastructure/logging"
	"tvagent/internal/platform"
	"tvagent/internal/repository"
	"tvagent/internal/types"
)

// Collector samples the host usage facility and persists per-app records
// for the current day. One collection cycle is one atomic batch write: a
// failed host query or store write leaves the day's rows untouched.
type Collector struct {
	source   platform.UsageSource
	registry platform.PackageRegistry
	repo     repository.UsageRepository
	logger   logging.Logger
}

// NewCollector creates a usage collector.
func NewCollector(source platform.UsageSource, registry platform.PackageRegistry, repo repository.UsageRepository, logger logging.Logger) *Collector {
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}
	return &Collector{
		source:   source,
		registry: registry,
		repo:     repo,
		logger:   logger,
	}
}

// Collect runs one sampling cycle at the given time: query the daily and
// weekly windows, filter to relevant apps, merge stored limit and category
// assignments, and upsert the batch.
func (c *Collector) Collect(ctx context.Context, now time.Time) error {
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	weekStart := now.AddDate(0, 0, -7)

	dailyStats, err := c.source.QueryForegroundStats(ctx, dayStart, now)
	if err != nil {
		return fmt.Errorf("querying daily usage window: %w", err)
	}
	weeklyStats, err := c.source.QueryForegroundStats(ctx, weekStart, now)
	if err != nil {
		return fmt.Errorf("querying weekly usage window: %w", err)
	}

	weeklyMinutes := make(map[string]int64, len(weeklyStats))
	for _, stat := range weeklyStats {
		weeklyMinutes[stat.PackageName] = int64(stat.ForegroundTime / time.Minute)
	}

	var records []types.UsageRecord
	for _, stat := range dailyStats {
		if stat.ForegroundTime <= 0 {
			continue
		}

		desc, err := c.registry.Resolve(stat.PackageName)
		if err != nil {
			// Uninstalled between measurement and resolution.
			if errors.Is(err, platform.ErrPackageNotFound) {
				continue
			}
			return fmt.Errorf("resolving package %s: %w", stat.PackageName, err)
		}
		if !IsRelevantApp(desc) {
			continue
		}

		record := types.UsageRecord{
			PackageName:        stat.PackageName,
			AppName:            desc.DisplayName,
			UsageMinutes:       int64(stat.ForegroundTime / time.Minute),
			WeeklyUsageMinutes: weeklyMinutes[stat.PackageName],
			DailyLimit:         DefaultDailyLimit(stat.PackageName),
			CategoryID:         CategoryForApp(stat.PackageName),
			LastUsed:           stat.LastUsed.UnixMilli(),
			TotalLaunchCount:   stat.LaunchCount,
			Date:               types.DateKey(dayStart),
		}

		// An existing row's limit and category are administrative state:
		// they carry forward over the defaults.
		existing, err := c.repo.GetForDate(ctx, stat.PackageName, dayStart)
		switch {
		case err == nil:
			record.DailyLimit = existing.DailyLimit
			record.CategoryID = existing.CategoryID
		case storeerrors.IsNotFound(err):
		default:
			return fmt.Errorf("loading existing record for %s: %w", stat.PackageName, err)
		}

		records = append(records, record)
	}

	if len(records) == 0 {
		c.logger.Debug("no relevant usage to record")
		return nil
	}

	if err := c.repo.UpsertBatch(ctx, records); err != nil {
		return fmt.Errorf("storing usage batch: %w", err)
	}

	c.logger.Info("usage collection complete", "apps", len(records), "date", types.DateKey(dayStart))
	return nil
}

// Run adapts Collect to the scheduler's task shape. Store and host errors
// are transient from the scheduler's point of view.
func (c *Collector) Run(ctx context.Context, attempt int) types.Outcome {
	if err := c.Collect(ctx, time.Now()); err != nil {
		if errors.Is(err, platform.ErrUsageUnavailable) {
			return types.PermanentFailure("usage statistics unavailable on this host", err)
		}
		return types.Retry("usage collection failed", err)
	}
	return types.Success("usage collection complete")
}
