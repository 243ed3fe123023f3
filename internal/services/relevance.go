package services

import (
	"strings"

	"tvagent/internal/platform"
)

// entertainmentPackages are substrings that mark a package as an
// entertainment app. Entertainment apps are tracked even when the host
// flags them as system apps, which TV vendors commonly do.
var entertainmentPackages = []string{
	"netflix", "youtube", "prime", "disney", "hulu", "hbo",
}

// IsEntertainmentApp reports whether the package name matches a known
// entertainment service.
func IsEntertainmentApp(packageName string) bool {
	lower := strings.ToLower(packageName)
	for _, name := range entertainmentPackages {
		if strings.Contains(lower, name) {
			return true
		}
	}
	return false
}

// IsRelevantApp decides whether an app's usage is worth recording. The
// filter is deliberately permissive: launchable apps, entertainment apps,
// and all non-system apps pass.
func IsRelevantApp(desc platform.AppDescriptor) bool {
	return desc.Launchable || IsEntertainmentApp(desc.PackageName) || !desc.System
}

// DefaultDailyLimit returns the starting daily limit in minutes for a
// package with no stored limit. Heavy streaming services get a larger
// allowance.
func DefaultDailyLimit(packageName string) int64 {
	lower := strings.ToLower(packageName)
	if strings.Contains(lower, "netflix") || strings.Contains(lower, "youtube") {
		return 180
	}
	return 120
}

// Category IDs seeded by the migrations.
const (
	CategoryEntertainment int64 = 1
	CategoryGames         int64 = 2
	CategoryOther         int64 = 3
)

// CategoryForApp assigns a default category for a package with no stored
// category.
func CategoryForApp(packageName string) int64 {
	lower := strings.ToLower(packageName)
	switch {
	case strings.Contains(lower, "netflix"), strings.Contains(lower, "youtube"),
		strings.Contains(lower, "prime"), strings.Contains(lower, "disney"):
		return CategoryEntertainment
	case strings.Contains(lower, "game"):
		return CategoryGames
	default:
		return CategoryOther
	}
}
