package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// envBindings maps config keys to their environment overrides. Every key a
// deployment may want to flip without editing the file gets an entry here.
var envBindings = map[string]string{
	"server.baseUrl":          "TVAGENT_SERVER_URL",
	"device.name":             "TVAGENT_DEVICE_NAME",
	"device.model":            "TVAGENT_DEVICE_MODEL",
	"device.osVersion":        "TVAGENT_OS_VERSION",
	"storage.dataDir":         "TVAGENT_DATA_DIR",
	"storage.retentionDays":   "TVAGENT_RETENTION_DAYS",
	"schedule.sampleInterval": "TVAGENT_SAMPLE_INTERVAL",
	"schedule.uploadInterval": "TVAGENT_UPLOAD_INTERVAL",
	"schedule.pollInterval":   "TVAGENT_POLL_INTERVAL",
	"logger.level":            "TVAGENT_LOG_LEVEL",
}

// Load reads the configuration from the given path, applying defaults and
// TVAGENT_* environment overrides. An empty path loads defaults and
// environment only.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	applyDefaults(v)

	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("binding %s: %w", env, err)
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	conf := &Config{}
	if err := v.Unmarshal(conf); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	if err := NewValidator(conf).Validate(); err != nil {
		return nil, err
	}
	return conf, nil
}

func applyDefaults(v *viper.Viper) {
	def := Default()
	v.SetDefault("server.baseUrl", def.Server.BaseURL)
	v.SetDefault("device.name", def.Device.Name)
	v.SetDefault("device.model", def.Device.Model)
	v.SetDefault("device.osVersion", def.Device.OSVersion)
	v.SetDefault("storage.dataDir", def.Storage.DataDir)
	v.SetDefault("storage.retentionDays", def.Storage.RetentionDays)
	v.SetDefault("schedule.sampleInterval", def.Schedule.SampleInterval)
	v.SetDefault("schedule.uploadInterval", def.Schedule.UploadInterval)
	v.SetDefault("schedule.pollInterval", def.Schedule.PollInterval)
	v.SetDefault("logger.level", strings.ToLower(def.Logger.Level))
}
