package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/spf13/viper"
	"github.com/subosito/gotenv"
)

// Config holds all application configuration
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Mail      MailConfig      `mapstructure:"mail"`
	Dashboard DashboardConfig `mapstructure:"dashboard"`
	App       AppConfig       `mapstructure:"app"`
	Workers   WorkersConfig   `mapstructure:"workers"`
	Logger    LoggerConfig    `mapstructure:"logger"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	Mode         string        `mapstructure:"mode"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Path            string        `mapstructure:"path"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// StorageConfig holds uploaded-file storage configuration
type StorageConfig struct {
	BaseDir   string `mapstructure:"base_dir"`
	PublicURL string `mapstructure:"public_url"`
}

// AuthConfig holds bearer token configuration
type AuthConfig struct {
	JWTSecret string        `mapstructure:"jwt_secret"`
	Issuer    string        `mapstructure:"issuer"`
	TokenTTL  time.Duration `mapstructure:"token_ttl"`
}

// MailConfig holds SMTP configuration. An empty host disables delivery.
type MailConfig struct {
	Host          string        `mapstructure:"host"`
	Port          int           `mapstructure:"port"`
	Username      string        `mapstructure:"username"`
	Password      string        `mapstructure:"password"`
	From          string        `mapstructure:"from"`
	StartTLS      bool          `mapstructure:"start_tls"`
	SkipTLSVerify bool          `mapstructure:"skip_tls_verify"`
	Timeout       time.Duration `mapstructure:"timeout"`
}

// DashboardConfig holds dashboard cache configuration
type DashboardConfig struct {
	CacheTTL  time.Duration `mapstructure:"cache_ttl"`
	CacheSize int           `mapstructure:"cache_size"`
}

// AppConfig holds settings that shape domain behavior
type AppConfig struct {
	// Timezone evaluates "this month" and "this year" dashboard windows
	Timezone string `mapstructure:"timezone"`
}

// WorkersConfig holds background worker configuration
type WorkersConfig struct {
	// StatusInterval is how often report statuses are re-derived; 0 disables it
	StatusInterval time.Duration `mapstructure:"status_interval"`
}

// LoggerConfig holds logger configuration
type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	OutputPath string `mapstructure:"output_path"`
	Format     string `mapstructure:"format"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

// Load loads configuration from file and environment variables. A .env
// file next to the working directory is read first when present; values
// already set in the environment win.
func Load(configPath string) (*Config, error) {
	if err := gotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	bindEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("server.mode", "release")

	v.SetDefault("database.path", "data/travel_report.db")
	v.SetDefault("database.max_open_conns", 1)
	v.SetDefault("database.max_idle_conns", 1)
	v.SetDefault("database.conn_max_lifetime", 0)

	v.SetDefault("storage.base_dir", "uploads")
	v.SetDefault("storage.public_url", "/api/files")

	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.issuer", "travel-report")
	v.SetDefault("auth.token_ttl", 12*time.Hour)

	v.SetDefault("mail.host", "")
	v.SetDefault("mail.port", 587)
	v.SetDefault("mail.username", "")
	v.SetDefault("mail.password", "")
	v.SetDefault("mail.from", "")
	v.SetDefault("mail.start_tls", true)
	v.SetDefault("mail.skip_tls_verify", false)
	v.SetDefault("mail.timeout", 10*time.Second)

	v.SetDefault("dashboard.cache_ttl", 5*time.Minute)
	v.SetDefault("dashboard.cache_size", 256)

	v.SetDefault("app.timezone", "Asia/Jakarta")

	v.SetDefault("workers.status_interval", time.Hour)

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.output_path", "stdout")
	v.SetDefault("logger.format", "json")
	v.SetDefault("logger.max_size_mb", 100)
	v.SetDefault("logger.max_backups", 7)
	v.SetDefault("logger.max_age_days", 30)
	v.SetDefault("logger.compress", false)
}

// bindEnvVars binds environment variables to configuration
func bindEnvVars(v *viper.Viper) {
	// Sensitive credentials from environment
	_ = v.BindEnv("auth.jwt_secret", "JWT_SECRET", "AUTH_JWT_SECRET")
	_ = v.BindEnv("mail.username", "SMTP_USERNAME", "MAIL_USERNAME")
	_ = v.BindEnv("mail.password", "SMTP_PASSWORD", "MAIL_PASSWORD")
	_ = v.BindEnv("database.path", "DATABASE_PATH")
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535")
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}
	if c.Storage.BaseDir == "" {
		return fmt.Errorf("storage.base_dir is required")
	}
	if len(c.Auth.JWTSecret) < 32 {
		return fmt.Errorf("auth.jwt_secret must be at least 32 characters")
	}
	if c.Auth.TokenTTL <= 0 {
		return fmt.Errorf("auth.token_ttl must be positive")
	}
	if c.Mail.Host != "" && c.Mail.From == "" {
		return fmt.Errorf("mail.from is required when mail.host is set")
	}
	if c.Dashboard.CacheSize <= 0 {
		return fmt.Errorf("dashboard.cache_size must be positive")
	}
	if c.Dashboard.CacheTTL <= 0 {
		return fmt.Errorf("dashboard.cache_ttl must be positive")
	}
	if c.Workers.StatusInterval < 0 {
		return fmt.Errorf("workers.status_interval must not be negative")
	}
	if _, err := time.LoadLocation(c.App.Timezone); err != nil {
		return fmt.Errorf("app.timezone %q is not a known time zone: %w", c.App.Timezone, err)
	}
	return nil
}

// Location returns the configured time zone. Call after Validate.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.App.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
