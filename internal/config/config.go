// File: internal/config/config.go
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of every environment variable the CLI reads.
const EnvPrefix = "CALM"

// AllowedHostsEnv lists the hosts the URL loader may fetch from, comma separated.
const AllowedHostsEnv = "CALM_ALLOWED_HOSTS"

// Interface defines the contract for accessing application configuration.
type Interface interface {
	Logger() LoggerConfig
	Network() NetworkConfig
	Loader() LoaderConfig
	Database() DatabaseConfig
	Validation() ValidationConfig
}

// Config holds the entire application configuration.
type Config struct {
	LoggerCfg     LoggerConfig     `mapstructure:"logger" yaml:"logger"`
	NetworkCfg    NetworkConfig    `mapstructure:"network" yaml:"network"`
	LoaderCfg     LoaderConfig     `mapstructure:"loader" yaml:"loader"`
	DatabaseCfg   DatabaseConfig   `mapstructure:"database" yaml:"database"`
	ValidationCfg ValidationConfig `mapstructure:"validation" yaml:"validation"`
}

func (c *Config) Logger() LoggerConfig         { return c.LoggerCfg }
func (c *Config) Network() NetworkConfig       { return c.NetworkCfg }
func (c *Config) Loader() LoaderConfig         { return c.LoaderCfg }
func (c *Config) Database() DatabaseConfig     { return c.DatabaseCfg }
func (c *Config) Validation() ValidationConfig { return c.ValidationCfg }

// LoggerConfig holds all the configuration for the logger.
type LoggerConfig struct {
	Level       string      `mapstructure:"level" yaml:"level"`
	Format      string      `mapstructure:"format" yaml:"format"`
	AddSource   bool        `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string      `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string      `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int         `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int         `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int         `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool        `mapstructure:"compress" yaml:"compress"`
	Colors      ColorConfig `mapstructure:"colors" yaml:"colors"`
}

// ColorConfig defines the color names for different log levels.
type ColorConfig struct {
	Debug  string `mapstructure:"debug" yaml:"debug"`
	Info   string `mapstructure:"info" yaml:"info"`
	Warn   string `mapstructure:"warn" yaml:"warn"`
	Error  string `mapstructure:"error" yaml:"error"`
	DPanic string `mapstructure:"dpanic" yaml:"dpanic"`
	Panic  string `mapstructure:"panic" yaml:"panic"`
	Fatal  string `mapstructure:"fatal" yaml:"fatal"`
}

// NetworkConfig tunes the HTTP client shared by the URL and hub loaders.
type NetworkConfig struct {
	Timeout           time.Duration `mapstructure:"timeout" yaml:"timeout"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second" yaml:"requests_per_second"`
	Burst             int           `mapstructure:"burst" yaml:"burst"`
	MaxRetries        uint64        `mapstructure:"max_retries" yaml:"max_retries"`
	InitialBackoff    time.Duration `mapstructure:"initial_backoff" yaml:"initial_backoff"`
	IgnoreTLSErrors   bool          `mapstructure:"ignore_tls_errors" yaml:"ignore_tls_errors"`
}

// HubConfig points at a CALM hub.
type HubConfig struct {
	URL         string        `mapstructure:"url" yaml:"url"`
	Wrapper     string        `mapstructure:"wrapper" yaml:"wrapper"`
	WrapperArgs []string      `mapstructure:"wrapper_args" yaml:"wrapper_args"`
	Timeout     time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

// LoaderConfig selects and configures the document loader strategies.
type LoaderConfig struct {
	SchemaDirs     []string  `mapstructure:"schema_dirs" yaml:"schema_dirs"`
	URLMappingFile string    `mapstructure:"url_mapping_file" yaml:"url_mapping_file"`
	BaseDir        string    `mapstructure:"base_dir" yaml:"base_dir"`
	BundleManifest string    `mapstructure:"bundle_manifest" yaml:"bundle_manifest"`
	AllowedHosts   []string  `mapstructure:"allowed_hosts" yaml:"allowed_hosts"`
	Hub            HubConfig `mapstructure:"hub" yaml:"hub"`
}

// DatabaseConfig holds the database connection details.
type DatabaseConfig struct {
	URL   string `mapstructure:"url" yaml:"url"`
	Table string `mapstructure:"table" yaml:"table"`
}

// ValidationConfig controls how validation outcomes are judged.
type ValidationConfig struct {
	FailOnWarnings bool `mapstructure:"fail_on_warnings" yaml:"fail_on_warnings"`
}

// NewDefaultConfig creates a new configuration struct populated with default values.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// SetDefaults initializes default values for various configuration parameters.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "calm")
	v.SetDefault("logger.log_file", "")
	v.SetDefault("logger.max_size", 100)
	v.SetDefault("logger.max_backups", 5)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", true)
	v.SetDefault("logger.colors.debug", "cyan")
	v.SetDefault("logger.colors.info", "green")
	v.SetDefault("logger.colors.warn", "yellow")
	v.SetDefault("logger.colors.error", "red")
	v.SetDefault("logger.colors.dpanic", "magenta")
	v.SetDefault("logger.colors.panic", "magenta")
	v.SetDefault("logger.colors.fatal", "magenta")

	// -- Network --
	v.SetDefault("network.timeout", "30s")
	v.SetDefault("network.requests_per_second", 10.0)
	v.SetDefault("network.burst", 5)
	v.SetDefault("network.max_retries", 3)
	v.SetDefault("network.initial_backoff", "250ms")
	v.SetDefault("network.ignore_tls_errors", false)

	// -- Loader --
	v.SetDefault("loader.schema_dirs", []string{})
	v.SetDefault("loader.allowed_hosts", []string{})
	v.SetDefault("loader.hub.timeout", "30s")

	// -- Database --
	v.SetDefault("database.table", "calm_documents")

	// -- Validation --
	v.SetDefault("validation.fail_on_warnings", false)
}

// NewConfigFromViper creates a new configuration instance from a viper object.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config

	_ = v.BindEnv("loader.allowed_hosts", AllowedHostsEnv)
	_ = v.BindEnv("database.url", "CALM_DATABASE_URL")

	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	// An env value arrives as one comma separated string.
	cfg.LoaderCfg.AllowedHosts = splitList(cfg.LoaderCfg.AllowedHosts)

	if err := cfg.expandPaths(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

func splitList(items []string) []string {
	out := []string{}
	for _, item := range items {
		for _, part := range strings.Split(item, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// expandPaths resolves a leading ~ in every configured path.
func (c *Config) expandPaths() error {
	expand := func(p *string) error {
		if *p == "" {
			return nil
		}
		expanded, err := homedir.Expand(*p)
		if err != nil {
			return fmt.Errorf("expanding %q: %w", *p, err)
		}
		*p = expanded
		return nil
	}

	for i := range c.LoaderCfg.SchemaDirs {
		if err := expand(&c.LoaderCfg.SchemaDirs[i]); err != nil {
			return err
		}
	}
	for _, p := range []*string{
		&c.LoaderCfg.URLMappingFile,
		&c.LoaderCfg.BaseDir,
		&c.LoaderCfg.BundleManifest,
		&c.LoaderCfg.Hub.Wrapper,
		&c.LoggerCfg.LogFile,
	} {
		if err := expand(p); err != nil {
			return err
		}
	}
	return nil
}

// Validate checks the configuration for required fields and sane values.
func (c *Config) Validate() error {
	switch c.LoggerCfg.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logger.format must be \"console\" or \"json\", got %q", c.LoggerCfg.Format)
	}
	if c.NetworkCfg.Timeout <= 0 {
		return fmt.Errorf("network.timeout must be a positive duration")
	}
	if c.NetworkCfg.RequestsPerSecond < 0 {
		return fmt.Errorf("network.requests_per_second must not be negative")
	}
	if c.NetworkCfg.RequestsPerSecond > 0 && c.NetworkCfg.Burst <= 0 {
		return fmt.Errorf("network.burst must be a positive integer when rate limiting is enabled")
	}
	if err := c.LoaderCfg.Hub.Validate(); err != nil {
		return fmt.Errorf("loader.hub configuration invalid: %w", err)
	}
	return nil
}

// Validate checks the hub settings.
func (h *HubConfig) Validate() error {
	if h.Wrapper != "" && h.URL == "" {
		return fmt.Errorf("url is required when a wrapper is configured")
	}
	if h.URL != "" && h.Timeout <= 0 {
		return fmt.Errorf("timeout must be a positive duration")
	}
	return nil
}
