package platform

import (
	"context"
	"time"
)

// sampleApp seeds the sample usage source with one app's synthetic
// activity.
type sampleApp struct {
	pkg         string
	display     string
	dailyShare  time.Duration // foreground time per day window
	weeklyShare time.Duration // foreground time per week window
	launches    int64
	lastUsedAgo time.Duration
}

var sampleApps = []sampleApp{
	{"com.netflix.mediaclient", "Netflix", 135 * time.Minute, 850 * time.Minute, 12, 0},
	{"com.google.android.youtube.tv", "YouTube", 65 * time.Minute, 420 * time.Minute, 9, time.Hour},
	{"com.amazon.avod.thirdpartyclient", "Prime Video", 45 * time.Minute, 280 * time.Minute, 4, 2 * time.Hour},
	{"com.spotify.tv.android", "Spotify", 25 * time.Minute, 180 * time.Minute, 6, 3 * time.Hour},
	{"com.disney.disneyplus", "Disney+", 30 * time.Minute, 200 * time.Minute, 3, 4 * time.Hour},
}

// SampleUsageSource serves synthetic usage data for hosts without a real
// usage facility. Windows of a day or less get the daily figures, longer
// windows the weekly ones, so collectors querying both windows see
// coherent numbers.
type SampleUsageSource struct{}

var _ UsageSource = (*SampleUsageSource)(nil)

func NewSampleUsageSource() *SampleUsageSource {
	return &SampleUsageSource{}
}

func (s *SampleUsageSource) QueryForegroundStats(ctx context.Context, start, end time.Time) ([]ForegroundStat, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	window := end.Sub(start)
	stats := make([]ForegroundStat, 0, len(sampleApps))
	for _, app := range sampleApps {
		share := app.dailyShare
		if window > 25*time.Hour {
			share = app.weeklyShare
		}
		stats = append(stats, ForegroundStat{
			PackageName:    app.pkg,
			ForegroundTime: share,
			LastUsed:       end.Add(-app.lastUsedAgo),
			LaunchCount:    app.launches,
		})
	}
	return stats, nil
}

// SampleRegistry resolves the sample packages; everything else is
// not found.
type SampleRegistry struct{}

var _ PackageRegistry = (*SampleRegistry)(nil)

func NewSampleRegistry() *SampleRegistry {
	return &SampleRegistry{}
}

func (r *SampleRegistry) Resolve(pkg string) (AppDescriptor, error) {
	for _, app := range sampleApps {
		if app.pkg == pkg {
			return AppDescriptor{
				PackageName: pkg,
				DisplayName: app.display,
				System:      false,
				Launchable:  true,
			}, nil
		}
	}
	return AppDescriptor{}, ErrPackageNotFound
}
