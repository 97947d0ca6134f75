package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

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
database:
  path: /tmp/erp.db
auth:
  jwt_secret: file-secret
redis:
  addr: localhost:6379
workflow:
  pending_page_size: 25
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "0.0.0.0:9090", cfg.Server.Address())
	assert.Equal(t, 30*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, "/tmp/erp.db", cfg.Database.Path)
	assert.Equal(t, "file-secret", cfg.Auth.JWTSecret)
	assert.Equal(t, "erp", cfg.Auth.Issuer)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, 5*time.Minute, cfg.Redis.BadgeTTL)
	assert.Equal(t, 25, cfg.Workflow.PendingPageSize)
	assert.Equal(t, 15*time.Minute, cfg.Workflow.ReminderInterval)
	assert.Equal(t, 24*time.Hour, cfg.Workflow.ReminderStaleAfter)
	assert.Equal(t, "json", cfg.Logger.Format)
}

func TestLoad_EnvOverrides(t *testing.T) {
	path := writeConfig(t, `
auth:
  jwt_secret: file-secret
`)
	t.Setenv("JWT_SECRET", "env-secret")
	t.Setenv("LARK_APP_ID", "cli_a")
	t.Setenv("LARK_APP_SECRET", "s3cret")
	t.Setenv("WORKFLOW_PENDING_PAGE_SIZE", "15")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "env-secret", cfg.Auth.JWTSecret)
	assert.Equal(t, "cli_a", cfg.Lark.AppID)
	assert.Equal(t, 15, cfg.Workflow.PendingPageSize)
}

func TestLoad_Errors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
		assert.Error(t, err)
	})

	t.Run("missing jwt secret", func(t *testing.T) {
		_, err := Load(writeConfig(t, "server:\n  port: 8080\n"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "jwt_secret")
	})
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Server:   ServerConfig{Port: 8080},
			Database: DatabaseConfig{Path: "data/x.db"},
			Auth:     AuthConfig{JWTSecret: "k"},
			Workflow: WorkflowConfig{PendingPageSize: 10},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid", func(*Config) {}, false},
		{"no database path", func(c *Config) { c.Database.Path = "" }, true},
		{"zero page size", func(c *Config) { c.Workflow.PendingPageSize = 0 }, true},
		{"negative reminder interval", func(c *Config) { c.Workflow.ReminderInterval = -time.Minute }, true},
		{"reminders off", func(c *Config) { c.Workflow.ReminderInterval = 0 }, false},
		{"bad port", func(c *Config) { c.Server.Port = 0 }, true},
		{"lark id without secret", func(c *Config) { c.Lark.AppID = "cli" }, true},
		{"lark pair", func(c *Config) { c.Lark = LarkConfig{AppID: "cli", AppSecret: "s"} }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestToContainerConfig(t *testing.T) {
	cfg := &Config{
		Database: DatabaseConfig{Path: "a.db", MaxOpenConns: 3},
		Redis:    RedisConfig{Addr: "r:6379", BadgeTTL: time.Minute},
		Lark:     LarkConfig{AppID: "cli", AppSecret: "s"},
		Workflow: WorkflowConfig{PendingPageSize: 7, ReminderInterval: time.Hour, ReminderStaleAfter: 2 * time.Hour},
	}

	cc := cfg.ToContainerConfig()
	assert.Equal(t, "a.db", cc.Database.Path)
	assert.Equal(t, 3, cc.Database.MaxOpenConns)
	assert.Equal(t, "r:6379", cc.Redis.Addr)
	assert.Equal(t, time.Minute, cc.Redis.BadgeTTL)
	assert.Equal(t, "cli", cc.Lark.AppID)
	assert.Equal(t, 7, cc.Workflow.PendingPageSize)
	assert.Equal(t, time.Hour, cc.Workflow.ReminderInterval)
	assert.Equal(t, 2*time.Hour, cc.Workflow.ReminderStaleAfter)
}
