// Package config assembles the runner's configuration from the
// environment. Misconfiguration is never fatal: a job on the cluster
// should run and produce artifacts even when the reporting side is
// unconfigured, so missing identity values degrade to placeholders
// with a warning.
package config

import (
	"context"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/google/uuid"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/compmat-es/scrunner/internal/observability"
)

// Placeholder project id used when PROJECT_ID is unset. The backend
// rejects updates for it, which is the intended no-op behaviour for
// local runs.
const UnassignedProjectID = "unassigned"

// Config is the runner's resolved configuration.
type Config struct {
	ProjectID  string `mapstructure:"project_id"`
	Token      string `mapstructure:"token"`
	BackendURL string `mapstructure:"backend_url"`

	PollInterval time.Duration `mapstructure:"poll_interval"`
	GracePeriod  time.Duration `mapstructure:"grace_period"`

	LogLevel    string `mapstructure:"log_level"`
	LogFile     string `mapstructure:"log_file"`
	MetricsAddr string `mapstructure:"metrics_addr"`

	// GeneratedToken records that Token was not supplied and holds a
	// generated placeholder.
	GeneratedToken bool `mapstructure:"-"`
}

// Load resolves configuration from the environment. PROJECT_ID and
// TOKEN are read bare (the established cluster contract); everything
// else is prefixed SCRUNNER_.
func Load(ctx context.Context) (*Config, error) {
	_ = ctx

	v := viper.New()
	v.SetEnvPrefix("SCRUNNER")
	v.AutomaticEnv()

	// Identity values predate the prefix convention.
	_ = v.BindEnv("project_id", "PROJECT_ID")
	_ = v.BindEnv("token", "TOKEN")

	v.SetDefault("backend_url", "https://back.compmat.es")
	v.SetDefault("poll_interval", "10s")
	v.SetDefault("grace_period", "2s")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_file", "runner.log")
	v.SetDefault("metrics_addr", "")

	var cfg Config
	decodeHook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))
	if err := v.Unmarshal(&cfg, decodeHook); err != nil {
		return nil, err
	}

	log := observability.Logger.Named("config")
	if cfg.ProjectID == "" {
		cfg.ProjectID = UnassignedProjectID
		log.Warn("PROJECT_ID not set, status updates will target the placeholder project",
			zap.String("project_id", cfg.ProjectID))
	}
	if cfg.Token == "" {
		cfg.Token = uuid.New().String()
		cfg.GeneratedToken = true
		log.Warn("TOKEN not set, generated a placeholder token; the backend will reject updates")
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 10 * time.Second
	}
	if cfg.GracePeriod <= 0 {
		cfg.GracePeriod = 2 * time.Second
	}

	return &cfg, nil
}
