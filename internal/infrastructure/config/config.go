package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App       AppConfig
	HTTP      HTTPConfig
	Database  DatabaseConfig
	Log       LogConfig
	Async     AsyncConfig
	Backup    BackupConfig
	Settings  SettingsConfig
	Cache     CacheConfig
	Telemetry TelemetryConfig
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name     string
	Env      string
	Locale   string // BCP 47 tag used when no user setting exists
	TimeZone string // IANA zone for date bucketing, empty for local
}

// HTTPConfig holds HTTP server settings
type HTTPConfig struct {
	Port             string
	ReadTimeout      time.Duration
	WriteTimeout     time.Duration
	IdleTimeout      time.Duration
	CORSAllowOrigins []string
}

// DatabaseConfig holds SQLite settings
type DatabaseConfig struct {
	Path          string // file path, or ":memory:"
	BusyTimeout   time.Duration
	LogLevel      string // silent, error, warn, info
	SlowThreshold time.Duration
	AutoMigrate   bool
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level      string
	Format     string
	Output     string
	MaxSize    int
	MaxBackups int
	MaxAge     int
}

// AsyncConfig holds the worker pool and debounce settings
type AsyncConfig struct {
	PoolSize       int
	SearchDebounce time.Duration
}

// BackupConfig holds the local backup job settings
type BackupConfig struct {
	Enabled       bool
	Dir           string
	Schedule      string // cron spec
	RetentionDays int
}

// SettingsConfig holds the user settings store location
type SettingsConfig struct {
	Path string
}

// CacheConfig holds the idempotency cache settings
type CacheConfig struct {
	RedisEnabled   bool
	RedisHost      string
	RedisPort      int
	RedisPassword  string
	RedisDB        int
	IdempotencyTTL time.Duration
}

// TelemetryConfig holds OpenTelemetry settings
type TelemetryConfig struct {
	Enabled           bool
	CollectorEndpoint string
	SamplingRatio     float64
	ServiceName       string
	Insecure          bool
	DBTraceEnabled    bool
	LogsEnabled       bool
	MetricsInterval   time.Duration
	ProfilingEnabled  bool
	ProfilerAddress   string
}

// Load reads config.toml from the working directory (when present) and
// LEDGER_* environment variables
func Load() (*Config, error) {
	return LoadFrom("")
}

// LoadFrom reads the given config file, or searches the default locations
// when path is empty. A missing file is not an error.
func LoadFrom(path string) (*Config, error) {
	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("toml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
	}

	if err := v.ReadInConfig(); err != nil {
		// Only an absent file in the search paths is tolerated
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	v.SetEnvPrefix("LEDGER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		App: AppConfig{
			Name:     v.GetString("app.name"),
			Env:      v.GetString("app.env"),
			Locale:   v.GetString("app.locale"),
			TimeZone: v.GetString("app.time_zone"),
		},
		HTTP: HTTPConfig{
			Port:             v.GetString("http.port"),
			ReadTimeout:      v.GetDuration("http.read_timeout"),
			WriteTimeout:     v.GetDuration("http.write_timeout"),
			IdleTimeout:      v.GetDuration("http.idle_timeout"),
			CORSAllowOrigins: v.GetStringSlice("http.cors_allow_origins"),
		},
		Database: DatabaseConfig{
			Path:          v.GetString("database.path"),
			BusyTimeout:   v.GetDuration("database.busy_timeout"),
			LogLevel:      v.GetString("database.log_level"),
			SlowThreshold: v.GetDuration("database.slow_threshold"),
			AutoMigrate:   v.GetBool("database.auto_migrate"),
		},
		Log: LogConfig{
			Level:      v.GetString("log.level"),
			Format:     v.GetString("log.format"),
			Output:     v.GetString("log.output"),
			MaxSize:    v.GetInt("log.max_size"),
			MaxBackups: v.GetInt("log.max_backups"),
			MaxAge:     v.GetInt("log.max_age"),
		},
		Async: AsyncConfig{
			PoolSize:       v.GetInt("async.pool_size"),
			SearchDebounce: v.GetDuration("async.search_debounce"),
		},
		Backup: BackupConfig{
			Enabled:       v.GetBool("backup.enabled"),
			Dir:           v.GetString("backup.dir"),
			Schedule:      v.GetString("backup.schedule"),
			RetentionDays: v.GetInt("backup.retention_days"),
		},
		Settings: SettingsConfig{
			Path: v.GetString("settings.path"),
		},
		Cache: CacheConfig{
			RedisEnabled:   v.GetBool("cache.redis_enabled"),
			RedisHost:      v.GetString("cache.redis_host"),
			RedisPort:      v.GetInt("cache.redis_port"),
			RedisPassword:  v.GetString("cache.redis_password"),
			RedisDB:        v.GetInt("cache.redis_db"),
			IdempotencyTTL: v.GetDuration("cache.idempotency_ttl"),
		},
		Telemetry: TelemetryConfig{
			Enabled:           v.GetBool("telemetry.enabled"),
			CollectorEndpoint: v.GetString("telemetry.collector_endpoint"),
			SamplingRatio:     v.GetFloat64("telemetry.sampling_ratio"),
			ServiceName:       v.GetString("telemetry.service_name"),
			Insecure:          v.GetBool("telemetry.insecure"),
			DBTraceEnabled:    v.GetBool("telemetry.db_trace_enabled"),
			LogsEnabled:       v.GetBool("telemetry.logs_enabled"),
			MetricsInterval:   v.GetDuration("telemetry.metrics_interval"),
			ProfilingEnabled:  v.GetBool("telemetry.profiling_enabled"),
			ProfilerAddress:   v.GetString("telemetry.profiler_address"),
		},
	}
	if !v.IsSet("database.auto_migrate") {
		cfg.Database.AutoMigrate = true
	}
	if !v.IsSet("telemetry.sampling_ratio") {
		cfg.Telemetry.SamplingRatio = 1.0
	}

	applyDefaults(cfg)
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyDefaults fills empty values
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "ledger"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.App.Locale == "" {
		cfg.App.Locale = "en-US"
	}

	if cfg.HTTP.Port == "" {
		cfg.HTTP.Port = "8080"
	}
	if cfg.HTTP.ReadTimeout == 0 {
		cfg.HTTP.ReadTimeout = 15 * time.Second
	}
	if cfg.HTTP.WriteTimeout == 0 {
		cfg.HTTP.WriteTimeout = 15 * time.Second
	}
	if cfg.HTTP.IdleTimeout == 0 {
		cfg.HTTP.IdleTimeout = 60 * time.Second
	}

	if cfg.Database.Path == "" {
		cfg.Database.Path = "data/ledger.db"
	}
	if cfg.Database.BusyTimeout == 0 {
		cfg.Database.BusyTimeout = 5 * time.Second
	}
	if cfg.Database.LogLevel == "" {
		cfg.Database.LogLevel = "warn"
	}
	if cfg.Database.SlowThreshold == 0 {
		cfg.Database.SlowThreshold = 200 * time.Millisecond
	}

	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
		if cfg.App.Env == "production" {
			cfg.Log.Format = "json"
		}
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = "stdout"
	}

	if cfg.Async.PoolSize == 0 {
		cfg.Async.PoolSize = 8
	}
	if cfg.Async.SearchDebounce == 0 {
		cfg.Async.SearchDebounce = 300 * time.Millisecond
	}

	if cfg.Backup.Dir == "" {
		cfg.Backup.Dir = "data/backup"
	}
	if cfg.Backup.Schedule == "" {
		cfg.Backup.Schedule = "0 3 * * *"
	}
	if cfg.Backup.RetentionDays == 0 {
		cfg.Backup.RetentionDays = 30
	}

	if cfg.Settings.Path == "" {
		cfg.Settings.Path = "data/settings.db"
	}

	if cfg.Cache.RedisHost == "" {
		cfg.Cache.RedisHost = "localhost"
	}
	if cfg.Cache.RedisPort == 0 {
		cfg.Cache.RedisPort = 6379
	}
	if cfg.Cache.IdempotencyTTL == 0 {
		cfg.Cache.IdempotencyTTL = 24 * time.Hour
	}

	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = "ledger-backend"
	}
	if cfg.Telemetry.CollectorEndpoint == "" {
		cfg.Telemetry.CollectorEndpoint = "localhost:4317"
	}
	if cfg.Telemetry.MetricsInterval == 0 {
		cfg.Telemetry.MetricsInterval = 60 * time.Second
	}
}

// validate checks for invalid combinations
func (c *Config) validate() error {
	if c.Async.PoolSize < 1 {
		return fmt.Errorf("async.pool_size must be positive, got %d", c.Async.PoolSize)
	}
	if c.Async.SearchDebounce < 0 {
		return fmt.Errorf("async.search_debounce cannot be negative")
	}
	if c.Backup.RetentionDays < 1 {
		return fmt.Errorf("backup.retention_days must be positive, got %d", c.Backup.RetentionDays)
	}
	if c.Backup.Enabled {
		if _, err := cron.ParseStandard(c.Backup.Schedule); err != nil {
			return fmt.Errorf("backup.schedule is not a valid cron spec: %w", err)
		}
	}
	if c.App.TimeZone != "" {
		if _, err := time.LoadLocation(c.App.TimeZone); err != nil {
			return fmt.Errorf("app.time_zone: %w", err)
		}
	}
	if c.Telemetry.SamplingRatio < 0.0 || c.Telemetry.SamplingRatio > 1.0 {
		return fmt.Errorf("telemetry.sampling_ratio must be between 0.0 and 1.0, got %f", c.Telemetry.SamplingRatio)
	}
	if c.Telemetry.ProfilingEnabled && c.Telemetry.ProfilerAddress == "" {
		return fmt.Errorf("telemetry.profiler_address is required when profiling is enabled")
	}
	if c.App.Env == "production" {
		for _, origin := range c.HTTP.CORSAllowOrigins {
			if origin == "*" {
				return fmt.Errorf("http.cors_allow_origins cannot be '*' in production")
			}
		}
	}
	return nil
}

// Location returns the configured time zone, or time.Local
func (a AppConfig) Location() *time.Location {
	if a.TimeZone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(a.TimeZone)
	if err != nil {
		return time.Local
	}
	return loc
}

// DSN returns the sqlite connection string with foreign keys enforced
func (d DatabaseConfig) DSN() string {
	if d.Path == ":memory:" {
		return "file::memory:?_foreign_keys=on"
	}
	return fmt.Sprintf("file:%s?_foreign_keys=on&_busy_timeout=%d&_journal_mode=WAL",
		d.Path, d.BusyTimeout.Milliseconds())
}

// IsInMemory reports whether the database lives only in memory
func (d DatabaseConfig) IsInMemory() bool {
	return d.Path == ":memory:"
}
