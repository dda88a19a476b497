// Package config loads and validates crashkit configuration from
// files, environment variables and CLI flags.
package config

import (
	"fmt"
	"strings"
)

// Config holds all application configuration.
type Config struct {
	Log    LogConfig    `mapstructure:"log"`
	Crash  CrashConfig  `mapstructure:"crash"`
	Server ServerConfig `mapstructure:"server"`
}

// LogConfig configures logging behavior.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// CrashConfig configures the fatal-error handler registry and report
// persistence. Enabled mirrors the registry's bookkeeping toggle: when
// false, handler registration is accepted and ignored.
type CrashConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	Dir         string `mapstructure:"dir"`
	MaxReports  int    `mapstructure:"max_reports"`
	IncludeEnv  bool   `mapstructure:"include_env"`
	IncludeHost bool   `mapstructure:"include_host"`
	StackBufKB  int    `mapstructure:"stack_buf_kb"`
}

// ServerConfig configures the debug/report HTTP server.
type ServerConfig struct {
	Host        string   `mapstructure:"host"`
	Port        int      `mapstructure:"port"`
	EnableCORS  bool     `mapstructure:"enable_cors"`
	CORSOrigins []string `mapstructure:"cors_origins"`
}

var (
	validLevels  = []string{"debug", "info", "warn", "error"}
	validFormats = []string{"auto", "text", "json"}
)

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	if !contains(validLevels, c.Log.Level) {
		return fmt.Errorf("log.level must be one of %s, got %q",
			strings.Join(validLevels, ", "), c.Log.Level)
	}
	if !contains(validFormats, c.Log.Format) {
		return fmt.Errorf("log.format must be one of %s, got %q",
			strings.Join(validFormats, ", "), c.Log.Format)
	}
	if c.Crash.MaxReports <= 0 {
		return fmt.Errorf("crash.max_reports must be positive, got %d", c.Crash.MaxReports)
	}
	if c.Crash.StackBufKB < 0 {
		return fmt.Errorf("crash.stack_buf_kb must not be negative, got %d", c.Crash.StackBufKB)
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be in 1..65535, got %d", c.Server.Port)
	}
	return nil
}

func contains(values []string, v string) bool {
	for _, candidate := range values {
		if candidate == v {
			return true
		}
	}
	return false
}
