package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestLoad_FileAndDefaults(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9090
auth:
  jwt_secret: "`+testSecret+`"
dashboard:
  cache_ttl: 90s
app:
  timezone: Asia/Makassar
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 30*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 1, cfg.Database.MaxOpenConns)
	assert.Equal(t, "/api/files", cfg.Storage.PublicURL)
	assert.Equal(t, 12*time.Hour, cfg.Auth.TokenTTL)
	assert.Equal(t, 90*time.Second, cfg.Dashboard.CacheTTL)
	assert.Equal(t, 256, cfg.Dashboard.CacheSize)
	assert.Equal(t, "Asia/Makassar", cfg.Location().String())
	assert.Empty(t, cfg.Mail.Host)
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9090
`)
	t.Setenv("JWT_SECRET", testSecret)
	t.Setenv("SERVER_PORT", "7070")
	t.Setenv("MAIL_HOST", "smtp.example.go.id")
	t.Setenv("MAIL_FROM", "noreply@example.go.id")
	t.Setenv("SMTP_PASSWORD", "hunter2")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, testSecret, cfg.Auth.JWTSecret)
	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, "smtp.example.go.id", cfg.Mail.Host)
	assert.Equal(t, "noreply@example.go.id", cfg.Mail.From)
	assert.Equal(t, "hunter2", cfg.Mail.Password)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Server:    ServerConfig{Port: 8080},
			Database:  DatabaseConfig{Path: "data/app.db"},
			Storage:   StorageConfig{BaseDir: "uploads"},
			Auth:      AuthConfig{JWTSecret: testSecret, TokenTTL: time.Hour},
			Dashboard: DashboardConfig{CacheTTL: time.Minute, CacheSize: 10},
			App:       AppConfig{Timezone: "Asia/Jakarta"},
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"valid", func(c *Config) {}, ""},
		{"short secret", func(c *Config) { c.Auth.JWTSecret = "short" }, "auth.jwt_secret"},
		{"bad port", func(c *Config) { c.Server.Port = 70000 }, "server.port"},
		{"mail without sender", func(c *Config) { c.Mail.Host = "smtp.example.go.id" }, "mail.from"},
		{"unknown zone", func(c *Config) { c.App.Timezone = "Mars/Olympus" }, "app.timezone"},
		{"empty cache", func(c *Config) { c.Dashboard.CacheSize = 0 }, "dashboard.cache_size"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
