package server

import (
	"fmt"
	"time"
)

// Config holds server configuration.
type Config struct {
	// Server settings
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`

	// API settings
	PathPrefix string `mapstructure:"path_prefix"`

	// CORS settings
	CORSEnabled bool     `mapstructure:"cors_enabled"`
	CORSOrigins []string `mapstructure:"cors_origins"`

	// Authentication settings. When enabled, writes require the API key;
	// reads stay public.
	AuthEnabled bool   `mapstructure:"auth_enabled"`
	AuthHeader  string `mapstructure:"auth_header"`
	APIKey      string `mapstructure:"api_key"`

	// Requests per minute per IP (0 to disable)
	RateLimit int `mapstructure:"rate_limit"`

	// HTTP timeouts
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`

	// Features
	MetricsEnabled bool   `mapstructure:"metrics_enabled"`
	ExportTitle    string `mapstructure:"export_title"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Host:           "localhost",
		Port:           8080,
		PathPrefix:     "/api/v1",
		CORSEnabled:    false,
		CORSOrigins:    []string{},
		AuthEnabled:    false,
		AuthHeader:     "X-API-Key",
		RateLimit:      100,
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   30 * time.Second,
		IdleTimeout:    120 * time.Second,
		MetricsEnabled: true,
	}
}

// Addr returns the host:port listen address.
func (c Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
