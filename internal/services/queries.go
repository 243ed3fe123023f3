package services

import (
	"context"
	"fmt"
	"time"

	"tvagent/internal/credentials"
	"tvagent/internal/infrastructure/logging"
	"tvagent/internal/platform"
	"tvagent/internal/repository"
	"tvagent/internal/types"
)

// Queries serves read-side views over the usage store for a presentation
// layer. When the store has nothing for a day and the device is not yet
// paired, a clearly-flagged sample summary is served instead so the UI has
// something to show during onboarding.
type Queries struct {
	repo     repository.UsageRepository
	creds    *credentials.Store
	sample   platform.UsageSource
	registry platform.PackageRegistry
	logger   logging.Logger
}

// NewQueries creates the read-side service. sample and registry may be nil
// to disable the onboarding fallback.
func NewQueries(repo repository.UsageRepository, creds *credentials.Store, sample platform.UsageSource, registry platform.PackageRegistry, logger logging.Logger) *Queries {
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}
	return &Queries{
		repo:     repo,
		creds:    creds,
		sample:   sample,
		registry: registry,
		logger:   logger,
	}
}

// DailySummary returns the day's apps and total, busiest first.
func (q *Queries) DailySummary(ctx context.Context, date time.Time) (types.DailySummary, error) {
	records, err := q.repo.QueryByDate(ctx, date)
	if err != nil {
		return types.DailySummary{}, fmt.Errorf("querying daily usage: %w", err)
	}

	if len(records) == 0 && q.sample != nil && !q.creds.IsValid() {
		return q.sampleSummary(ctx, date)
	}

	var total int64
	for _, rec := range records {
		total += rec.UsageMinutes
	}
	return types.DailySummary{
		Date:         types.DateKey(date),
		TotalMinutes: total,
		Apps:         records,
	}, nil
}

// TopApps returns up to limit apps for the day ranked by weekly usage.
func (q *Queries) TopApps(ctx context.Context, date time.Time, limit int) ([]types.UsageRecord, error) {
	return q.repo.TopByWeeklyUsage(ctx, date, limit)
}

// History returns all records between from and to inclusive.
func (q *Queries) History(ctx context.Context, from, to time.Time) ([]types.UsageRecord, error) {
	return q.repo.QueryDateRange(ctx, from, to)
}

// sampleSummary builds a demo summary from the sample source.
func (q *Queries) sampleSummary(ctx context.Context, date time.Time) (types.DailySummary, error) {
	dayStart := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, date.Location())
	stats, err := q.sample.QueryForegroundStats(ctx, dayStart, dayStart.Add(24*time.Hour))
	if err != nil {
		return types.DailySummary{}, fmt.Errorf("building sample summary: %w", err)
	}

	summary := types.DailySummary{
		Date:   types.DateKey(date),
		Sample: true,
	}
	for _, stat := range stats {
		displayName := stat.PackageName
		if q.registry != nil {
			if desc, err := q.registry.Resolve(stat.PackageName); err == nil {
				displayName = desc.DisplayName
			}
		}

		minutes := int64(stat.ForegroundTime / time.Minute)
		summary.TotalMinutes += minutes
		summary.Apps = append(summary.Apps, types.UsageRecord{
			PackageName:      stat.PackageName,
			AppName:          displayName,
			UsageMinutes:     minutes,
			DailyLimit:       DefaultDailyLimit(stat.PackageName),
			CategoryID:       CategoryForApp(stat.PackageName),
			LastUsed:         stat.LastUsed.UnixMilli(),
			TotalLaunchCount: stat.LaunchCount,
			Date:             types.DateKey(date),
		})
	}

	q.logger.Debug("serving sample summary", "date", summary.Date, "apps", len(summary.Apps))
	return summary, nil
}
