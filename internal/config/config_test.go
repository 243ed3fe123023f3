package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tvagent.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	conf, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:8080", conf.Server.BaseURL)
	assert.Equal(t, 30, conf.Storage.RetentionDays)
	assert.Equal(t, 15*time.Minute, conf.Schedule.SampleInterval)
	assert.Equal(t, 5*time.Minute, conf.Schedule.PollInterval)
	assert.Equal(t, "info", conf.Logger.Level)
}

func TestLoadFromFile(t *testing.T) {
	path := writeConfigFile(t, `
server:
  baseUrl: https://usage.example.com
device:
  name: living-room-tv
  model: Bravia X90
  osVersion: "11"
storage:
  dataDir: /tmp/tvagent
  retentionDays: 14
schedule:
  sampleInterval: 10m
  uploadInterval: 30m
  pollInterval: 2m
logger:
  level: debug
`)

	conf, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "https://usage.example.com", conf.Server.BaseURL)
	assert.Equal(t, "living-room-tv", conf.Device.Name)
	assert.Equal(t, 14, conf.Storage.RetentionDays)
	assert.Equal(t, 10*time.Minute, conf.Schedule.SampleInterval)
	assert.Equal(t, 30*time.Minute, conf.Schedule.UploadInterval)
	assert.Equal(t, 2*time.Minute, conf.Schedule.PollInterval)
	assert.Equal(t, "debug", conf.Logger.Level)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("TVAGENT_SERVER_URL", "https://env.example.com")
	t.Setenv("TVAGENT_LOG_LEVEL", "warn")

	conf, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "https://env.example.com", conf.Server.BaseURL)
	assert.Equal(t, "warn", conf.Logger.Level)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestValidatorRejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty base url", func(c *Config) { c.Server.BaseURL = "" }},
		{"malformed base url", func(c *Config) { c.Server.BaseURL = "not a url" }},
		{"empty data dir", func(c *Config) { c.Storage.DataDir = "" }},
		{"zero retention", func(c *Config) { c.Storage.RetentionDays = 0 }},
		{"excessive retention", func(c *Config) { c.Storage.RetentionDays = 1000 }},
		{"zero poll interval", func(c *Config) { c.Schedule.PollInterval = 0 }},
		{"unknown log level", func(c *Config) { c.Logger.Level = "loud" }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			conf := Default()
			tc.mutate(conf)
			assert.Error(t, NewValidator(conf).Validate())
		})
	}
}

func TestValidatorAcceptsDefaults(t *testing.T) {
	assert.NoError(t, NewValidator(Default()).Validate())
}
