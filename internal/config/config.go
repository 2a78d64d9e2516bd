package config

import (
	"unicode/utf8"

	"github.com/caarlos0/env/v11"
	"github.com/pkg/errors"
)

// Config holds the runtime configuration for a throughput run.
// Values are sourced from environment variables (optionally loaded
// from a .env file first), with defaults matching the one-shot
// render: read request_log.csv, write throughput_plot.png.
type Config struct {
	InputPath  string `env:"APP_INPUT_PATH" envDefault:"request_log.csv"`
	OutputPath string `env:"APP_OUTPUT_PATH" envDefault:"throughput_plot.png"`

	// SkipHeaderRows is the number of leading rows dropped unconditionally
	// before any row is parsed as a request record.
	SkipHeaderRows int    `env:"APP_SKIP_HEADER_ROWS" envDefault:"1"`
	Delimiter      string `env:"APP_DELIMITER" envDefault:","`

	ChartWidthInches  float64 `env:"APP_CHART_WIDTH_IN" envDefault:"10"`
	ChartHeightInches float64 `env:"APP_CHART_HEIGHT_IN" envDefault:"5"`

	// MetricsPath, when set, receives the metrics of the last run in
	// Prometheus text format (node_exporter textfile collector layout).
	MetricsPath string `env:"APP_METRICS_PATH"`

	LogLevel  string `env:"APP_LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"APP_LOG_FORMAT" envDefault:"text"`

	// ListenAddr switches to serve mode when non-empty.
	ListenAddr string `env:"APP_LISTEN_ADDR"`

	DatabaseURL string `env:"APP_DATABASE_URL"`

	// RetentionDays is how long persisted runs are kept before the
	// retention worker deletes them.
	RetentionDays int `env:"APP_RETENTION_DAYS" envDefault:"30"`

	AdminUser     string `env:"APP_ADMIN_USER" envDefault:"admin"`
	AdminPassword string `env:"APP_ADMIN_PASSWORD"`
}

// Load reads configuration from environment variables and validates it.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, errors.Wrap(err, "parse environment")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration for values the pipeline cannot run with.
func (c *Config) Validate() error {
	if c.InputPath == "" {
		return errors.New("APP_INPUT_PATH must not be empty")
	}
	if c.OutputPath == "" {
		return errors.New("APP_OUTPUT_PATH must not be empty")
	}
	if c.SkipHeaderRows < 0 {
		return errors.Errorf("APP_SKIP_HEADER_ROWS must be non-negative, got %d", c.SkipHeaderRows)
	}
	if utf8.RuneCountInString(c.Delimiter) != 1 {
		return errors.Errorf("APP_DELIMITER must be a single character, got %q", c.Delimiter)
	}
	switch c.Comma() {
	case '"', '\r', '\n', utf8.RuneError:
		return errors.Errorf("APP_DELIMITER %q is not a valid field separator", c.Delimiter)
	}
	if c.ChartWidthInches <= 0 || c.ChartHeightInches <= 0 {
		return errors.Errorf("chart dimensions must be positive, got %gx%g", c.ChartWidthInches, c.ChartHeightInches)
	}
	if c.RetentionDays <= 0 {
		return errors.Errorf("APP_RETENTION_DAYS must be positive, got %d", c.RetentionDays)
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return errors.Errorf("APP_LOG_FORMAT must be text or json, got %q", c.LogFormat)
	}
	return nil
}

// Comma returns the field separator as a rune.
func (c *Config) Comma() rune {
	r, _ := utf8.DecodeRuneInString(c.Delimiter)
	return r
}

// Serve reports whether the HTTP server should be started.
func (c *Config) Serve() bool {
	return c.ListenAddr != ""
}
