// Package config loads and validates the agent configuration from a YAML
// file with environment variable overrides.
package config

import (
	"time"
)

// ServerConfig locates the usage monitoring server.
type ServerConfig struct {
	BaseURL string `mapstructure:"baseUrl" validate:"required|fullUrl"`
}

// DeviceConfig describes this device to the server at registration.
type DeviceConfig struct {
	// Name is the human-readable device name. Empty means a generated
	// name is used.
	Name      string `mapstructure:"name"`
	Model     string `mapstructure:"model" validate:"required"`
	OSVersion string `mapstructure:"osVersion" validate:"required"`
}

// StorageConfig places the agent's on-disk state.
type StorageConfig struct {
	// DataDir holds the database, the secure store and the device key.
	DataDir       string `mapstructure:"dataDir" validate:"required|unixPath"`
	RetentionDays int    `mapstructure:"retentionDays" validate:"required|min:1|max:365"`
}

// ScheduleConfig sets the background work cadence.
type ScheduleConfig struct {
	SampleInterval time.Duration `mapstructure:"sampleInterval" validate:"required|min:1"`
	UploadInterval time.Duration `mapstructure:"uploadInterval" validate:"required|min:1"`
	PollInterval   time.Duration `mapstructure:"pollInterval" validate:"required|min:1"`
}

// LoggerConfig controls log output.
type LoggerConfig struct {
	Level string `mapstructure:"level" validate:"required|in:trace,debug,info,warn,error"`
}

// Config is the full agent configuration.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Device   DeviceConfig   `mapstructure:"device"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Schedule ScheduleConfig `mapstructure:"schedule"`
	Logger   LoggerConfig   `mapstructure:"logger"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Server: ServerConfig{BaseURL: "http://localhost:8080"},
		Device: DeviceConfig{
			Model:     "Generic TV",
			OSVersion: "unknown",
		},
		Storage: StorageConfig{
			DataDir:       "/var/lib/tvagent",
			RetentionDays: 30,
		},
		Schedule: ScheduleConfig{
			SampleInterval: 15 * time.Minute,
			UploadInterval: 15 * time.Minute,
			PollInterval:   5 * time.Minute,
		},
		Logger: LoggerConfig{Level: "info"},
	}
}
