package app

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
	"github.com/vk/streamgrid/internal/tracing"
)

// ConfigName is the base name of the settings file looked up in the working
// directory when no explicit file is given.
const ConfigName = "streamgrid"

// EnvPrefix prefixes environment overrides, e.g. STREAMGRID_LOG_LEVEL.
const EnvPrefix = "STREAMGRID"

// Config holds the application settings.
type Config struct {
	Log             LogConfig      `mapstructure:"log"`
	Tracing         tracing.Config `mapstructure:"tracing"`
	Journal         JournalConfig  `mapstructure:"journal"`
	Progress        ProgressConfig `mapstructure:"progress"`
	Cache           CacheConfig    `mapstructure:"cache"`
	Workers         int            `mapstructure:"workers"`
	HealthcheckPort int            `mapstructure:"healthcheck_port"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	// Visits logs every node visit at debug level, not only executions.
	Visits bool `mapstructure:"visits"`
}

type JournalConfig struct {
	// Path of the SQLite journal. Empty disables the journal.
	Path string `mapstructure:"path"`
}

type ProgressConfig struct {
	SocketIOURL        string        `mapstructure:"socketio_url"`
	Namespace          string        `mapstructure:"namespace"`
	InsecureSkipVerify bool          `mapstructure:"insecure_skip_verify"`
	ConnectTimeout     time.Duration `mapstructure:"connect_timeout"`
}

type CacheConfig struct {
	// OutputTTL expires outputs nobody read for this long. Zero keeps them.
	OutputTTL       time.Duration `mapstructure:"output_ttl"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
}

// DefaultConfig returns the settings used when nothing is configured.
func DefaultConfig() Config {
	return Config{
		Log:      LogConfig{Level: "info", Format: "text"},
		Tracing:  tracing.DefaultConfig(),
		Progress: ProgressConfig{Namespace: "/", ConnectTimeout: 15 * time.Second},
		Cache:    CacheConfig{CleanupInterval: time.Minute},
		Workers:  4,
	}
}

// SetDefaults registers every default with v so that environment variables
// and files can override nested keys.
func SetDefaults(v *viper.Viper) {
	d := DefaultConfig()
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
	v.SetDefault("log.visits", d.Log.Visits)
	v.SetDefault("tracing.exporter", d.Tracing.Exporter)
	v.SetDefault("tracing.path", d.Tracing.Path)
	v.SetDefault("tracing.endpoint", d.Tracing.Endpoint)
	v.SetDefault("tracing.sample_rate", d.Tracing.SampleRate)
	v.SetDefault("journal.path", d.Journal.Path)
	v.SetDefault("progress.socketio_url", d.Progress.SocketIOURL)
	v.SetDefault("progress.namespace", d.Progress.Namespace)
	v.SetDefault("progress.insecure_skip_verify", d.Progress.InsecureSkipVerify)
	v.SetDefault("progress.connect_timeout", d.Progress.ConnectTimeout)
	v.SetDefault("cache.output_ttl", d.Cache.OutputTTL)
	v.SetDefault("cache.cleanup_interval", d.Cache.CleanupInterval)
	v.SetDefault("workers", d.Workers)
	v.SetDefault("healthcheck_port", d.HealthcheckPort)
}

// LoadConfig reads settings into a Config. An explicit file must exist;
// otherwise streamgrid.yaml in the working directory is used when present.
func LoadConfig(v *viper.Viper, file string) (Config, error) {
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName(ConfigName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decoding config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the settings that cannot be corrected silently.
func (c Config) Validate() error {
	var errs []error
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("invalid log.level %q: must be 'debug', 'info', 'warn', or 'error'", c.Log.Level))
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("invalid log.format %q: must be 'text' or 'json'", c.Log.Format))
	}
	if c.Workers < 1 {
		errs = append(errs, fmt.Errorf("invalid workers %d: must be at least 1", c.Workers))
	}
	if err := c.Tracing.Validate(); err != nil {
		errs = append(errs, err)
	}
	if c.HealthcheckPort < 0 || c.HealthcheckPort > 65535 {
		errs = append(errs, fmt.Errorf("invalid healthcheck_port %d", c.HealthcheckPort))
	}
	if c.Cache.OutputTTL < 0 {
		errs = append(errs, fmt.Errorf("invalid cache.output_ttl %s", c.Cache.OutputTTL))
	}
	return errors.Join(errs...)
}
