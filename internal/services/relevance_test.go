package services

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"tvagent/internal/platform"
)

func TestIsRelevantApp(t *testing.T) {
	tests := []struct {
		name string
		desc platform.AppDescriptor
		want bool
	}{
		{
			name: "launchable user app",
			desc: platform.AppDescriptor{PackageName: "com.some.app", Launchable: true},
			want: true,
		},
		{
			name: "non-launchable user app",
			desc: platform.AppDescriptor{PackageName: "com.some.daemon"},
			want: true,
		},
		{
			name: "non-launchable system app",
			desc: platform.AppDescriptor{PackageName: "com.vendor.telemetry", System: true},
			want: false,
		},
		{
			name: "system entertainment app",
			desc: platform.AppDescriptor{PackageName: "com.netflix.ninja", System: true},
			want: true,
		},
		{
			name: "system hbo app case insensitive",
			desc: platform.AppDescriptor{PackageName: "com.HBO.max", System: true},
			want: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsRelevantApp(tt.desc))
		})
	}
}

func TestDefaultDailyLimit(t *testing.T) {
	assert.EqualValues(t, 180, DefaultDailyLimit("com.netflix.mediaclient"))
	assert.EqualValues(t, 180, DefaultDailyLimit("com.google.android.youtube.tv"))
	assert.EqualValues(t, 120, DefaultDailyLimit("com.hulu.plus"))
	assert.EqualValues(t, 120, DefaultDailyLimit("com.fun.game"))
}

func TestCategoryForApp(t *testing.T) {
	assert.Equal(t, CategoryEntertainment, CategoryForApp("com.netflix.mediaclient"))
	assert.Equal(t, CategoryEntertainment, CategoryForApp("com.disney.disneyplus"))
	assert.Equal(t, CategoryGames, CategoryForApp("com.fun.game"))
	assert.Equal(t, CategoryOther, CategoryForApp("com.spotify.tv.android"))

	// Entertainment match wins over the game rule for streaming packages.
	assert.Equal(t, CategoryEntertainment, CategoryForApp("com.youtube.game"))
}
