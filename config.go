package peek

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Operating modes for the inspector.
const (
	// ModeSummary emits one-line summaries with optional short previews.
	ModeSummary = "summary"

	// ModeFull emits full header blocks and body dumps for every event.
	ModeFull = "full"
)

// DefaultPreviewThreshold is the body size below which summary mode
// shows an inline preview of text responses.
const DefaultPreviewThreshold = 1000

// DefaultPreviewChars is the number of decoded characters shown in an
// inline preview.
const DefaultPreviewChars = 100

// Config represents the complete inspector configuration. It is
// validated once at startup; the inspector never re-reads it per event.
type Config struct {
	// Mode selects summary or full output. See ModeSummary, ModeFull.
	Mode string `mapstructure:"mode"`

	// PreviewThresholdBytes is the maximum body size for which summary
	// mode shows an inline text preview.
	PreviewThresholdBytes int `mapstructure:"preview_threshold_bytes"`

	// HexMaxBytes caps the bytes shown in a hex dump.
	HexMaxBytes int `mapstructure:"hex_max_bytes"`

	// TextMaxBytes caps the bytes shown in a text render.
	TextMaxBytes int `mapstructure:"text_max_bytes"`

	// BinaryPrefixes are Content-Type prefixes always treated as binary.
	// Empty means DefaultBinaryPrefixes.
	BinaryPrefixes []string `mapstructure:"binary_prefixes"`

	// ControlCharRatio is the fraction of control characters above which
	// a UTF-8 body is still classified as binary. Must be in (0, 1].
	ControlCharRatio float64 `mapstructure:"control_char_ratio"`

	// DecodeContentEncodings enables transparent decoding of gzip,
	// deflate, zstd and brotli bodies before inspection.
	DecodeContentEncodings bool `mapstructure:"decode_content_encodings"`

	// Logging configures the diagnostic logger.
	Logging LoggingConfig `mapstructure:"logging"`

	// Admin configures the read-only admin endpoints.
	Admin AdminConfig `mapstructure:"admin"`

	// Metrics configures Prometheus metrics collection.
	Metrics MetricsConfig `mapstructure:"metrics"`
}

// LoggingConfig contains diagnostic logging settings.
type LoggingConfig struct {
	// Level is the log level: debug, info, warn, error
	Level string `mapstructure:"level"`

	// Format is the log format: text, json
	Format string `mapstructure:"format"`

	// Output is where to write logs: stdout, stderr, or file path
	Output string `mapstructure:"output"`
}

// AdminConfig contains admin API settings.
type AdminConfig struct {
	// Enabled determines if the admin endpoints are served.
	Enabled bool `mapstructure:"enabled"`

	// Addr is the address the admin server listens on.
	Addr string `mapstructure:"addr"`

	// PathPrefix is the URL prefix for admin routes.
	PathPrefix string `mapstructure:"path_prefix"`
}

// MetricsConfig contains metrics settings.
type MetricsConfig struct {
	// Enabled determines if Prometheus metrics are collected.
	Enabled bool `mapstructure:"enabled"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Mode:                  ModeSummary,
		PreviewThresholdBytes: DefaultPreviewThreshold,
		HexMaxBytes:           DefaultHexMaxBytes,
		TextMaxBytes:          DefaultTextMaxBytes,
		ControlCharRatio:      DefaultControlCharRatio,
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stderr",
		},
		Admin: AdminConfig{
			Enabled:    false,
			Addr:       ":9090",
			PathPrefix: "/api/v1",
		},
		Metrics: MetricsConfig{
			Enabled: false,
		},
	}
}

// Validate checks the configuration for errors that must be fatal at
// startup: unknown mode, non-positive byte limits, an out-of-range
// control character ratio, or a malformed prefix set.
func (c *Config) Validate() error {
	switch c.Mode {
	case ModeSummary, ModeFull:
	default:
		return fmt.Errorf("unknown mode %q (want %q or %q)", c.Mode, ModeSummary, ModeFull)
	}

	if c.PreviewThresholdBytes < 0 {
		return fmt.Errorf("preview_threshold_bytes must be >= 0, got %d", c.PreviewThresholdBytes)
	}
	if c.HexMaxBytes <= 0 {
		return fmt.Errorf("hex_max_bytes must be > 0, got %d", c.HexMaxBytes)
	}
	if c.TextMaxBytes <= 0 {
		return fmt.Errorf("text_max_bytes must be > 0, got %d", c.TextMaxBytes)
	}
	if c.ControlCharRatio <= 0 || c.ControlCharRatio > 1 {
		return fmt.Errorf("control_char_ratio must be in (0, 1], got %g", c.ControlCharRatio)
	}

	for _, p := range c.BinaryPrefixes {
		if strings.TrimSpace(p) == "" {
			return fmt.Errorf("binary_prefixes contains an empty prefix")
		}
		if strings.ContainsAny(p, " \t") {
			return fmt.Errorf("binary prefix %q contains whitespace", p)
		}
	}

	return nil
}

// LoadConfig loads configuration from file, environment, and defaults.
// It searches for config files in the following order:
// 1. Explicit path (if provided)
// 2. ./peek.yaml, ./peek.yml, ./peek.json, ./peek.toml
// 3. $HOME/.peek/config.yaml
// 4. /etc/peek/config.yaml
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigName("peek")
	v.SetConfigType("yaml")

	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.peek")
	v.AddConfigPath("/etc/peek")

	v.SetEnvPrefix("PEEK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config: %w", err)
		}
		// Config file not found is OK - use defaults
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

// LoadConfigFromReader loads configuration from raw config data.
// Useful for testing or embedded configs.
func LoadConfigFromReader(configType string, data []byte) (*Config, error) {
	v := viper.New()

	setDefaults(v)
	v.SetConfigType(configType)

	if err := v.ReadConfig(strings.NewReader(string(data))); err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	defaults := DefaultConfig()

	v.SetDefault("mode", defaults.Mode)
	v.SetDefault("preview_threshold_bytes", defaults.PreviewThresholdBytes)
	v.SetDefault("hex_max_bytes", defaults.HexMaxBytes)
	v.SetDefault("text_max_bytes", defaults.TextMaxBytes)
	v.SetDefault("control_char_ratio", defaults.ControlCharRatio)
	v.SetDefault("decode_content_encodings", defaults.DecodeContentEncodings)

	v.SetDefault("logging.level", defaults.Logging.Level)
	v.SetDefault("logging.format", defaults.Logging.Format)
	v.SetDefault("logging.output", defaults.Logging.Output)

	v.SetDefault("admin.enabled", defaults.Admin.Enabled)
	v.SetDefault("admin.addr", defaults.Admin.Addr)
	v.SetDefault("admin.path_prefix", defaults.Admin.PathPrefix)

	v.SetDefault("metrics.enabled", defaults.Metrics.Enabled)
}

// WriteExampleConfig writes an example configuration file.
func WriteExampleConfig(path string) error {
	example := `# peek - HTTP traffic inspector configuration
# See https://github.com/acmacalister/peek for documentation

# Output mode: "summary" for one-line summaries with short previews,
# "full" for complete header blocks and body dumps.
mode: "summary"

# Summary mode shows an inline preview for text response bodies
# smaller than this many bytes.
preview_threshold_bytes: 1000

# Maximum bytes shown in a hex dump.
hex_max_bytes: 512

# Maximum bytes shown in a text render.
text_max_bytes: 2048

# Fraction of control characters above which a UTF-8 body is still
# treated as binary.
control_char_ratio: 0.1

# Decode gzip/deflate/zstd/brotli bodies before inspection.
decode_content_encodings: true

# Content-Type prefixes always treated as binary. Omit to use the
# built-in default set.
# binary_prefixes:
#   - "image/"
#   - "video/"
#   - "application/octet-stream"

logging:
  # Log level: debug, info, warn, error
  level: "info"

  # Log format: text, json
  format: "text"

  # Output: stdout, stderr, or file path
  output: "stderr"

admin:
  # Serve read-only status endpoints.
  enabled: false
  addr: ":9090"
  path_prefix: "/api/v1"

metrics:
  # Collect Prometheus metrics (served at /metrics on the admin server).
  enabled: false
`

	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create directory: %w", err)
		}
	}

	return os.WriteFile(path, []byte(example), 0644)
}
