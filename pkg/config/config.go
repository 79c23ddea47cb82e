// Package config loads the server configuration from YAML files and
// environment variables.
//
// Resolution order: explicit --config path, then ./rapidserver.yaml, then
// $XDG_CONFIG_HOME/rapidserver/rapidserver.yaml, then /etc/rapidserver.
// Environment variables use the RAPID_ prefix with underscores for nesting,
// e.g. RAPID_LISTEN_ADDRESS or RAPID_DATABASE_TYPE.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/BinaryCat17/RapidServer/pkg/controlplane/store"
)

const (
	// EnvPrefix is the prefix for configuration environment variables.
	EnvPrefix = "RAPID"

	configName = "rapidserver"
)

// LoggingConfig controls the process-wide logger.
type LoggingConfig struct {
	Level  string `mapstructure:"level" yaml:"level" validate:"omitempty,oneof=debug info warn error"`
	Format string `mapstructure:"format" yaml:"format" validate:"omitempty,oneof=text json"`
	// Output is "stdout", "stderr", or a file path.
	Output string `mapstructure:"output" yaml:"output"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
}

// Config is the root server configuration.
type Config struct {
	// ListenAddress is the host:port the HTTP/WebSocket listener binds to.
	ListenAddress string `mapstructure:"listen_address" yaml:"listen_address" validate:"required,hostname_port"`

	// PublicRoot is the directory the UI assets are served from.
	PublicRoot string `mapstructure:"public_root" yaml:"public_root" validate:"required"`

	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`

	Database store.Config  `mapstructure:"database" yaml:"database"`
	Logging  LoggingConfig `mapstructure:"logging" yaml:"logging"`
	Metrics  MetricsConfig `mapstructure:"metrics" yaml:"metrics"`
}

// Default returns the built-in configuration.
func Default() *Config {
	cfg := &Config{
		ListenAddress:   "0.0.0.0:8080",
		PublicRoot:      "public",
		ShutdownTimeout: 10 * time.Second,
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stdout",
		},
		Metrics: MetricsConfig{Enabled: true},
	}
	cfg.Database.ApplyDefaults()
	return cfg
}

// Load reads the configuration. An empty path searches the standard
// locations; a missing file there falls back to defaults, while an explicit
// path that cannot be read is an error.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(configName)
		v.AddConfigPath(".")
		if configDir := userConfigDir(); configDir != "" {
			v.AddConfigPath(filepath.Join(configDir, "rapidserver"))
		}
		v.AddConfigPath("/etc/rapidserver")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := Default()
	v.SetDefault("listen_address", defaults.ListenAddress)
	v.SetDefault("public_root", defaults.PublicRoot)
	v.SetDefault("shutdown_timeout", defaults.ShutdownTimeout)
	v.SetDefault("database.type", string(defaults.Database.Type))
	v.SetDefault("database.sqlite.path", defaults.Database.SQLite.Path)
	v.SetDefault("logging.level", defaults.Logging.Level)
	v.SetDefault("logging.format", defaults.Logging.Format)
	v.SetDefault("logging.output", defaults.Logging.Output)
	v.SetDefault("metrics.enabled", defaults.Metrics.Enabled)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.Database.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if err := c.Database.Validate(); err != nil {
		return fmt.Errorf("invalid database configuration: %w", err)
	}
	return nil
}

const sampleConfig = `# RapidServer configuration.
listen_address: 0.0.0.0:8080
public_root: public
shutdown_timeout: 10s

database:
  type: sqlite
  sqlite:
    path: %s
  # postgres:
  #   host: localhost
  #   port: 5432
  #   database: rapidserver
  #   user: rapidserver
  #   password: ""
  #   ssl_mode: disable

logging:
  level: info
  format: text
  output: stdout

metrics:
  enabled: true
`

// WriteSample writes a sample configuration file populated with defaults.
func WriteSample(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	data := fmt.Sprintf(sampleConfig, Default().Database.SQLite.Path)
	return os.WriteFile(path, []byte(data), 0644)
}

// Dump renders the configuration as YAML, for `config show`.
func (c *Config) Dump() (string, error) {
	data, err := yaml.Marshal(c)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func userConfigDir() string {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config")
}
