package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	defaultPort      = "8000"
	defaultPublicDir = "public"
	defaultViewsDir  = "views"
	defaultExitDelay = 3 * time.Second
	defaultLogLevel  = "info"
)

// Config aggregates runtime configuration resolved from multiple sources.
// Precedence: CLI flags > Environment variables > YAML config > Defaults
type Config struct {
	Service              ServiceConfig `yaml:"-"`
	Port                 string        `yaml:"port"`
	PublicDir            string        `yaml:"public_dir"`
	ViewsDir             string        `yaml:"views_dir"`
	FaviconPath          string        `yaml:"favicon_path"`
	ExitDelay            time.Duration `yaml:"exit_delay"`
	ShutdownTimeout      time.Duration `yaml:"shutdown_timeout"`
	ReadHeaderTimeout    time.Duration `yaml:"read_header_timeout"`
	WriteTimeout         time.Duration `yaml:"write_timeout"`
	IdleTimeout          time.Duration `yaml:"idle_timeout"`
	EnableRequestLogging bool          `yaml:"enable_request_logging"`
	RateLimitRPS         float64       `yaml:"-"`
	RateLimitBurst       int           `yaml:"-"`
	LogLevel             string        `yaml:"log_level"`
}

// yamlConfig represents the YAML configuration file structure.
type yamlConfig struct {
	Port                 string        `yaml:"port"`
	PublicDir            string        `yaml:"public_dir"`
	ViewsDir             string        `yaml:"views_dir"`
	FaviconPath          string        `yaml:"favicon_path"`
	ExitDelay            string        `yaml:"exit_delay"`
	ShutdownTimeout      string        `yaml:"shutdown_timeout"`
	ReadHeaderTimeout    string        `yaml:"read_header_timeout"`
	WriteTimeout         string        `yaml:"write_timeout"`
	IdleTimeout          string        `yaml:"idle_timeout"`
	EnableRequestLogging *bool         `yaml:"enable_request_logging"`
	RateLimit            yamlRateLimit `yaml:"rate_limit"`
	LogLevel             string        `yaml:"log_level"`
}

// yamlRateLimit represents the rate limit section in YAML.
type yamlRateLimit struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

// CLIOverrides holds command-line flag overrides.
type CLIOverrides struct {
	ConfigFile     string
	Port           *string
	PublicDir      *string
	ViewsDir       *string
	ExitDelay      *time.Duration
	LogLevel       *string
	RateLimitRPS   *float64
	RateLimitBurst *int
}

// Load extracts configuration from multiple sources with precedence:
// CLI flags > Environment variables > YAML config > Defaults
func Load(overrides *CLIOverrides) (Config, error) {
	cfg := defaultConfig()

	if overrides != nil && overrides.ConfigFile != "" {
		yamlCfg, err := loadFromFile(overrides.ConfigFile)
		if err != nil {
			return Config{}, fmt.Errorf("load YAML config: %w", err)
		}
		if err := applyYAMLConfig(&cfg, yamlCfg); err != nil {
			return Config{}, fmt.Errorf("apply YAML config: %w", err)
		}
	}

	cfg.Service = ServiceFromEnv()
	applyEnvConfig(&cfg)

	if overrides != nil {
		applyCLIOverrides(&cfg, overrides)
	}

	if cfg.FaviconPath == "" {
		cfg.FaviconPath = filepath.Join(cfg.PublicDir, "favicon.png")
	}

	if err := validateConfig(cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// defaultConfig returns a Config with default values.
func defaultConfig() Config {
	return Config{
		Service:              ResolveService(nil),
		Port:                 defaultPort,
		PublicDir:            defaultPublicDir,
		ViewsDir:             defaultViewsDir,
		ExitDelay:            defaultExitDelay,
		ReadHeaderTimeout:    5 * time.Second,
		WriteTimeout:         15 * time.Second,
		IdleTimeout:          60 * time.Second,
		EnableRequestLogging: true,
		LogLevel:             defaultLogLevel,
	}
}

// loadFromFile loads configuration from a YAML file.
func loadFromFile(path string) (*yamlConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}

	var yamlCfg yamlConfig
	if err := yaml.Unmarshal(data, &yamlCfg); err != nil {
		return nil, fmt.Errorf("parse YAML: %w", err)
	}

	return &yamlCfg, nil
}

// applyYAMLConfig applies YAML configuration to the Config struct.
func applyYAMLConfig(cfg *Config, yamlCfg *yamlConfig) error {
	if yamlCfg.Port != "" {
		cfg.Port = yamlCfg.Port
	}
	if yamlCfg.PublicDir != "" {
		cfg.PublicDir = yamlCfg.PublicDir
	}
	if yamlCfg.ViewsDir != "" {
		cfg.ViewsDir = yamlCfg.ViewsDir
	}
	if yamlCfg.FaviconPath != "" {
		cfg.FaviconPath = yamlCfg.FaviconPath
	}
	if yamlCfg.LogLevel != "" {
		cfg.LogLevel = yamlCfg.LogLevel
	}

	durations := []struct {
		key   string
		raw   string
		field *time.Duration
	}{
		{"exit_delay", yamlCfg.ExitDelay, &cfg.ExitDelay},
		{"shutdown_timeout", yamlCfg.ShutdownTimeout, &cfg.ShutdownTimeout},
		{"read_header_timeout", yamlCfg.ReadHeaderTimeout, &cfg.ReadHeaderTimeout},
		{"write_timeout", yamlCfg.WriteTimeout, &cfg.WriteTimeout},
		{"idle_timeout", yamlCfg.IdleTimeout, &cfg.IdleTimeout},
	}
	for _, d := range durations {
		if d.raw == "" {
			continue
		}
		parsed, err := time.ParseDuration(d.raw)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", d.key, d.raw, err)
		}
		*d.field = parsed
	}

	if yamlCfg.EnableRequestLogging != nil {
		cfg.EnableRequestLogging = *yamlCfg.EnableRequestLogging
	}

	if yamlCfg.RateLimit.RPS > 0 {
		cfg.RateLimitRPS = yamlCfg.RateLimit.RPS
	}
	if yamlCfg.RateLimit.Burst > 0 {
		cfg.RateLimitBurst = yamlCfg.RateLimit.Burst
	}

	return nil
}

// applyEnvConfig applies environment variable configuration.
func applyEnvConfig(cfg *Config) {
	get := func(key string) string {
		return strings.TrimSpace(os.Getenv(key))
	}

	if port := get("PORT"); port != "" {
		cfg.Port = port
	}
	if dir := get("PUBLIC_DIR"); dir != "" {
		cfg.PublicDir = dir
	}
	if dir := get("VIEWS_DIR"); dir != "" {
		cfg.ViewsDir = dir
	}
	if path := get("FAVICON_PATH"); path != "" {
		cfg.FaviconPath = path
	}
	if level := get("LOG_LEVEL"); level != "" {
		cfg.LogLevel = level
	}

	if rps := get("RATE_LIMIT_RPS"); rps != "" {
		if value, err := strconv.ParseFloat(rps, 64); err == nil && value >= 0 {
			cfg.RateLimitRPS = value
		}
	}

	if burst := get("RATE_LIMIT_BURST"); burst != "" {
		if value, err := strconv.Atoi(burst); err == nil && value >= 0 {
			cfg.RateLimitBurst = value
		}
	}
}

// applyCLIOverrides applies command-line flag overrides.
func applyCLIOverrides(cfg *Config, overrides *CLIOverrides) {
	if overrides.Port != nil && *overrides.Port != "" {
		cfg.Port = *overrides.Port
	}
	if overrides.PublicDir != nil && *overrides.PublicDir != "" {
		cfg.PublicDir = *overrides.PublicDir
	}
	if overrides.ViewsDir != nil && *overrides.ViewsDir != "" {
		cfg.ViewsDir = *overrides.ViewsDir
	}
	if overrides.ExitDelay != nil && *overrides.ExitDelay >= 0 {
		cfg.ExitDelay = *overrides.ExitDelay
	}
	if overrides.LogLevel != nil && *overrides.LogLevel != "" {
		cfg.LogLevel = *overrides.LogLevel
	}
	if overrides.RateLimitRPS != nil && *overrides.RateLimitRPS >= 0 {
		cfg.RateLimitRPS = *overrides.RateLimitRPS
	}
	if overrides.RateLimitBurst != nil && *overrides.RateLimitBurst >= 0 {
		cfg.RateLimitBurst = *overrides.RateLimitBurst
	}
}

// validateConfig validates the final configuration.
func validateConfig(cfg Config) error {
	port := cfg.Port[strings.LastIndex(cfg.Port, ":")+1:]
	if n, err := strconv.Atoi(port); err != nil || n < 0 || n > 65535 {
		return fmt.Errorf("invalid port %q", cfg.Port)
	}
	if cfg.ExitDelay < 0 {
		return fmt.Errorf("exit delay must be >= 0")
	}
	if cfg.ShutdownTimeout < 0 {
		return fmt.Errorf("shutdown timeout must be >= 0")
	}
	if cfg.RateLimitRPS < 0 {
		return fmt.Errorf("RATE_LIMIT_RPS must be >= 0")
	}
	if cfg.RateLimitBurst < 0 {
		return fmt.Errorf("RATE_LIMIT_BURST must be >= 0")
	}
	return nil
}

// Addr returns the listen address derived from Port.
func (c Config) Addr() string {
	if strings.Contains(c.Port, ":") {
		return c.Port
	}
	return ":" + c.Port
}
