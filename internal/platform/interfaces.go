// Package platform abstracts the host facilities the agent depends on:
// the usage statistics source, the installed-package registry, network
// connectivity, and power state. Production wiring supplies host-specific
// implementations; sample implementations keep the agent functional on
// hosts without a usage facility.
package platform

import (
	"context"
	"errors"
	"time"
)

// ErrPackageNotFound is returned by PackageRegistry.Resolve for packages
// the host no longer knows about.
var ErrPackageNotFound = errors.New("platform: package not found")

// ErrUsageUnavailable is returned by UsageSource implementations when the
// host cannot provide usage statistics, typically because the agent lacks
// the required permission.
var ErrUsageUnavailable = errors.New("platform: usage statistics unavailable")

// ForegroundStat is one app's cumulative foreground activity inside a
// query window.
type ForegroundStat struct {
	PackageName    string
	ForegroundTime time.Duration
	LastUsed       time.Time
	LaunchCount    int64
}

// UsageSource provides cumulative per-app foreground totals for an
// arbitrary time window.
type UsageSource interface {
	QueryForegroundStats(ctx context.Context, start, end time.Time) ([]ForegroundStat, error)
}

// AppDescriptor describes an installed package.
type AppDescriptor struct {
	PackageName string
	DisplayName string
	System      bool
	Launchable  bool
}

// PackageRegistry resolves package names to app metadata.
type PackageRegistry interface {
	// Resolve returns the descriptor for pkg, or ErrPackageNotFound.
	Resolve(pkg string) (AppDescriptor, error)
}

// ConnectivityChecker reports whether the device currently has network
// access.
type ConnectivityChecker interface {
	Online(ctx context.Context) bool
}

// PowerStatus reports the device power state used by scheduling
// constraints.
type PowerStatus interface {
	BatteryLow() bool
}
