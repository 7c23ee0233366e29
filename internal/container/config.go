// Package container provides dependency injection and lifecycle management
// for the travel report service following Clean Architecture principles.
package container

import (
	"fmt"
	"time"
)

// Config holds all configuration for the Container.
// It aggregates configurations for all subsystems.
type Config struct {
	// Database configuration
	Database DatabaseConfig

	// Storage configuration for uploaded files
	Storage StorageConfig

	// Auth configuration for bearer tokens
	Auth AuthConfig

	// Mail configuration for participant notifications
	Mail MailConfig

	// Dashboard cache configuration
	Dashboard DashboardConfig

	// Location evaluates calendar windows on the dashboard
	Location *time.Location

	// Server configuration
	Server ServerConfig

	// Worker configuration
	Worker WorkerConfig
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	// Path to SQLite database file
	Path string

	// MaxOpenConns is the maximum number of open connections
	MaxOpenConns int

	// MaxIdleConns is the maximum number of idle connections
	MaxIdleConns int

	// ConnMaxLifetime is the maximum connection lifetime
	ConnMaxLifetime time.Duration
}

// StorageConfig holds file storage settings.
type StorageConfig struct {
	// BaseDir is the root of stored uploads
	BaseDir string

	// PublicURL prefixes stored paths in file URLs
	PublicURL string
}

// AuthConfig holds bearer token settings.
type AuthConfig struct {
	JWTSecret string
	Issuer    string
	TokenTTL  time.Duration
}

// MailConfig holds SMTP settings. An empty Host disables delivery.
type MailConfig struct {
	Host          string
	Port          int
	Username      string
	Password      string
	From          string
	StartTLS      bool
	SkipTLSVerify bool
	Timeout       time.Duration
}

// DashboardConfig holds dashboard cache settings.
type DashboardConfig struct {
	CacheTTL  time.Duration
	CacheSize int
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host to bind to
	Host string

	// Port to listen on
	Port int

	// ReadTimeout for HTTP server
	ReadTimeout time.Duration

	// WriteTimeout for HTTP server
	WriteTimeout time.Duration

	// Mode is the gin mode
	Mode string
}

// WorkerConfig holds background worker settings.
type WorkerConfig struct {
	// StatusInterval between report status reconciliations; 0 disables
	StatusInterval time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Path:         "data/travel_report.db",
			MaxOpenConns: 1,
			MaxIdleConns: 1,
		},
		Storage: StorageConfig{
			BaseDir:   "uploads",
			PublicURL: "/api/files",
		},
		Auth: AuthConfig{
			Issuer:   "travel-report",
			TokenTTL: 12 * time.Hour,
		},
		Mail: MailConfig{
			Port:     587,
			StartTLS: true,
			Timeout:  10 * time.Second,
		},
		Dashboard: DashboardConfig{
			CacheTTL:  5 * time.Minute,
			CacheSize: 256,
		},
		Location: time.UTC,
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         8080,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
			Mode:         "release",
		},
		Worker: WorkerConfig{
			StatusInterval: time.Hour,
		},
	}
}

// Validate checks that required configuration values are present.
func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}

	if c.Storage.BaseDir == "" {
		return fmt.Errorf("storage.base_dir is required")
	}

	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret is required")
	}

	if c.Dashboard.CacheSize <= 0 {
		return fmt.Errorf("dashboard.cache_size must be positive")
	}

	return nil
}
