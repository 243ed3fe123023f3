package types

import "time"

// DateLayout is the canonical calendar-date format used in the usage record
// key and in the wire protocol.
const DateLayout = "2006-01-02"

// DateKey normalizes a timestamp to its calendar-date key in the timestamp's
// own location.
func DateKey(t time.Time) string {
	return t.Format(DateLayout)
}

// UsageRecord holds one application's usage figures for one calendar date.
// The (PackageName, Date) pair is the record identity; at most one record
// exists per pair.
type UsageRecord struct {
	PackageName         string `json:"packageName"`
	AppName             string `json:"appName"`
	UsageMinutes        int64  `json:"usageMinutes"`
	WeeklyUsageMinutes  int64  `json:"weeklyUsageMinutes"`
	MonthlyUsageMinutes int64  `json:"monthlyUsageMinutes"` // reserved, not yet populated
	DailyLimit          int64  `json:"dailyLimit"`          // minutes, 0 = unlimited
	CategoryID          int64  `json:"categoryId"`          // 0 = uncategorized
	LastUsed            int64  `json:"lastUsed"`            // epoch millis
	TotalLaunchCount    int64  `json:"totalLaunchCount"`
	Date                string `json:"date"` // YYYY-MM-DD
	Uploaded            bool   `json:"uploaded"`
	LastSync            int64  `json:"lastSync"` // epoch millis, 0 = never synced
}

// Category is an additive app category; IDs are assigned on insert and never
// reused.
type Category struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// DailySummary aggregates one day's usage for presentation callers.
type DailySummary struct {
	Date         string        `json:"date"`
	TotalMinutes int64         `json:"totalMinutes"`
	Apps         []UsageRecord `json:"apps"`
	Sample       bool          `json:"sample"` // backed by sample data, not live telemetry
}
