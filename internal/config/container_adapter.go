package config

import (
	"github.com/garyjia/travel-report/internal/container"
)

// ToContainerConfig converts the application Config to a container.Config.
// This provides a bridge between the file-based config loaded by viper
// and the container's configuration structure.
func (c *Config) ToContainerConfig() *container.Config {
	return &container.Config{
		Database: container.DatabaseConfig{
			Path:            c.Database.Path,
			MaxOpenConns:    c.Database.MaxOpenConns,
			MaxIdleConns:    c.Database.MaxIdleConns,
			ConnMaxLifetime: c.Database.ConnMaxLifetime,
		},
		Storage: container.StorageConfig{
			BaseDir:   c.Storage.BaseDir,
			PublicURL: c.Storage.PublicURL,
		},
		Auth: container.AuthConfig{
			JWTSecret: c.Auth.JWTSecret,
			Issuer:    c.Auth.Issuer,
			TokenTTL:  c.Auth.TokenTTL,
		},
		Mail: container.MailConfig{
			Host:          c.Mail.Host,
			Port:          c.Mail.Port,
			Username:      c.Mail.Username,
			Password:      c.Mail.Password,
			From:          c.Mail.From,
			StartTLS:      c.Mail.StartTLS,
			SkipTLSVerify: c.Mail.SkipTLSVerify,
			Timeout:       c.Mail.Timeout,
		},
		Dashboard: container.DashboardConfig{
			CacheTTL:  c.Dashboard.CacheTTL,
			CacheSize: c.Dashboard.CacheSize,
		},
		Location: c.Location(),
		Worker: container.WorkerConfig{
			StatusInterval: c.Workers.StatusInterval,
		},
		Server: container.ServerConfig{
			Host:         c.Server.Host,
			Port:         c.Server.Port,
			ReadTimeout:  c.Server.ReadTimeout,
			WriteTimeout: c.Server.WriteTimeout,
			Mode:         c.Server.Mode,
		},
	}
}
