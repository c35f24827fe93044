package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for a single download run.
type Config struct {
	// Input
	SymbolsFile string `mapstructure:"symbols_file"`
	Days        int    `mapstructure:"days"`

	// Concurrency and retry
	MaxWorkers    int     `mapstructure:"max_workers"`
	RetryCount    int     `mapstructure:"retry_count"`
	RetryBackoff  float64 `mapstructure:"retry_backoff"`
	RetryFactor   float64 `mapstructure:"retry_factor"`
	RetryMaxDelay float64 `mapstructure:"retry_max_delay"`
	RetryJitter   float64 `mapstructure:"retry_jitter"`

	// Validation
	MinRows int `mapstructure:"min_rows"`

	// Provider
	ProviderBaseURL   string  `mapstructure:"provider_base_url"`
	SymbolSuffix      string  `mapstructure:"symbol_suffix"`
	RequestTimeout    float64 `mapstructure:"request_timeout"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`

	// Output
	OutputPath   string `mapstructure:"output_path"`
	OutputDir    string `mapstructure:"output_dir"`
	OutputPrefix string `mapstructure:"output_prefix"`
	PruneStale   bool   `mapstructure:"prune_stale"`
	MetricsFile  string `mapstructure:"metrics_file"`

	LogLevel string `mapstructure:"log_level"`
}

// keys lists every recognized option; each binds to its upper-cased environment variable.
var keys = []string{
	"symbols_file",
	"days",
	"max_workers",
	"retry_count",
	"retry_backoff",
	"retry_factor",
	"retry_max_delay",
	"retry_jitter",
	"min_rows",
	"provider_base_url",
	"symbol_suffix",
	"request_timeout",
	"requests_per_second",
	"output_path",
	"output_dir",
	"output_prefix",
	"prune_stale",
	"metrics_file",
	"log_level",
}

// Load reads configuration from environment variables and an optional config file.
// Environment variables take precedence over config file values.
//
// The config file is CONFIG_FILE when set, otherwise config.yaml in the working
// directory or $HOME/.pricefetch. A missing default config file is not an error.
func Load() (*Config, error) {
	v := viper.New()

	v.SetDefault("symbols_file", "EQUITY_L.csv")
	v.SetDefault("days", 365)
	v.SetDefault("max_workers", 10)
	v.SetDefault("retry_count", 3)
	v.SetDefault("retry_backoff", 1.5)
	v.SetDefault("retry_factor", 2.0)
	v.SetDefault("retry_max_delay", 30.0)
	v.SetDefault("retry_jitter", 0.0)
	v.SetDefault("min_rows", 10)
	v.SetDefault("provider_base_url", "https://query1.finance.yahoo.com/v8/finance/chart")
	v.SetDefault("symbol_suffix", ".NS")
	v.SetDefault("request_timeout", 20.0)
	v.SetDefault("requests_per_second", 0.0)
	v.SetDefault("output_path", "")
	v.SetDefault("output_dir", ".")
	v.SetDefault("output_prefix", "nse_data")
	v.SetDefault("prune_stale", true)
	v.SetDefault("metrics_file", "")
	v.SetDefault("log_level", "info")

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			if _, statErr := os.Stat(path); statErr != nil {
				return nil, NewMissingFileError(path, statErr)
			}
			return nil, NewMalformedInputError("failed to read config file", err)
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.pricefetch")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, NewMalformedInputError("failed to read config file", err)
			}
		}
	}

	for _, key := range keys {
		v.BindEnv(key, strings.ToUpper(key))
	}

	config := &Config{}
	if err := v.Unmarshal(config); err != nil {
		return nil, NewMalformedInputError("failed to unmarshal config", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate checks ranges of all numeric options and reports every offending key at once.
func (c *Config) Validate() error {
	var invalid []string
	if c.SymbolsFile == "" {
		invalid = append(invalid, "SYMBOLS_FILE")
	}
	if c.Days < 1 {
		invalid = append(invalid, "DAYS")
	}
	if c.MaxWorkers < 1 {
		invalid = append(invalid, "MAX_WORKERS")
	}
	if c.RetryCount < 1 {
		invalid = append(invalid, "RETRY_COUNT")
	}
	if c.RetryBackoff < 0 {
		invalid = append(invalid, "RETRY_BACKOFF")
	}
	if c.RetryFactor < 1 {
		invalid = append(invalid, "RETRY_FACTOR")
	}
	if c.RetryMaxDelay < 0 {
		invalid = append(invalid, "RETRY_MAX_DELAY")
	}
	if c.RetryJitter < 0 || c.RetryJitter >= 1 {
		invalid = append(invalid, "RETRY_JITTER")
	}
	if c.MinRows < 1 {
		invalid = append(invalid, "MIN_ROWS")
	}
	if c.ProviderBaseURL == "" {
		invalid = append(invalid, "PROVIDER_BASE_URL")
	}
	if c.RequestTimeout <= 0 {
		invalid = append(invalid, "REQUEST_TIMEOUT")
	}
	if c.RequestsPerSecond < 0 {
		invalid = append(invalid, "REQUESTS_PER_SECOND")
	}
	if c.OutputPath == "" && c.OutputPrefix == "" {
		invalid = append(invalid, "OUTPUT_PREFIX")
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		invalid = append(invalid, "LOG_LEVEL")
	}

	if len(invalid) > 0 {
		return NewMalformedInputError(
			fmt.Sprintf("invalid configuration: %s", strings.Join(invalid, ", ")), nil)
	}
	return nil
}

// BackoffBase returns RETRY_BACKOFF as a duration.
func (c *Config) BackoffBase() time.Duration {
	return seconds(c.RetryBackoff)
}

// BackoffMax returns RETRY_MAX_DELAY as a duration.
func (c *Config) BackoffMax() time.Duration {
	return seconds(c.RetryMaxDelay)
}

// Timeout returns REQUEST_TIMEOUT as a duration.
func (c *Config) Timeout() time.Duration {
	return seconds(c.RequestTimeout)
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

// ParseLevel maps LOG_LEVEL to a slog level.
func ParseLevel(level string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", level)
	}
}
