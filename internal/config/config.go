package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

type Config struct {
	Environment string
	Host        string
	Port        int

	// logging
	LogLevel      string `toml:"log_level"`
	LogsPath      string `toml:"logs_path"`
	LogToStdout   bool   `toml:"log_to_stdout"`
	SentryEnabled bool   `toml:"sentry_enabled"`

	// postgres
	PostgresHost   string `toml:"postgres_host"`
	PostgresPort   string `toml:"postgres_port"`
	PostgresDBName string `toml:"postgres_db_name"`
	PostgresUser   string `toml:"postgres_user"`

	// redis
	RedisHost string `toml:"redis_host"`
	RedisPort string `toml:"redis_port"`

	// metrics
	PrometheusMetricsHost string `toml:"prometheus_metrics_host"`
	PrometheusMetricsPort string `toml:"prometheus_metrics_port"`

	// images: drive is used when a folder name is set, disk otherwise
	ImagesRootPath       string `toml:"images_root_path"`
	ImagesBaseURL        string `toml:"images_base_url"`
	ImagesDriveFolder    string `toml:"images_drive_folder"`
	WriteRateLimitPerMin int    `toml:"write_rate_limit_per_min"`
	// browser origins allowed to call the api
	AllowedOrigins []string `toml:"allowed_origins"`

	// client
	RemoteBaseURL       string       `toml:"remote_base_url"`
	RemoteTimeout       Duration     `toml:"remote_timeout"`
	FeedRefreshInterval Duration     `toml:"feed_refresh_interval"`
	FeedCacheSizeMB     int          `toml:"feed_cache_size_mb"`
	SyncMode            string       `toml:"sync_mode"`
	Outbox              OutboxConfig `toml:"outbox"`
	WorkoutSessionTTL   Duration     `toml:"workout_session_ttl"`
}

type OutboxConfig struct {
	InitialInterval Duration `toml:"initial_interval"`
	MaxInterval     Duration `toml:"max_interval"`
	MaxRetries      uint64   `toml:"max_retries"`
}

// Duration reads values like "30s" or "500ms" from TOML.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

type Toml struct {
	Development *Config
	Production  *Config
}

func (t *Toml) Get(env string) (*Config, error) {
	switch strings.ToLower(env) {
	case "dev", "development":
		return t.Development, nil
	case "prod", "production":
		return t.Production, nil
	default:
		return nil, fmt.Errorf("unknown env: %s", env)
	}
}

func Load(env string, path string) (*Config, error) {
	var tomlConfig Toml
	if _, err := toml.DecodeFile(path, &tomlConfig); err != nil {
		return nil, fmt.Errorf("decode config file [%s]: %w", path, err)
	}

	cfg, err := tomlConfig.Get(env)
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		return nil, errors.New("no config section for env: " + env)
	}

	cfg.Environment = env

	return cfg, nil
}
