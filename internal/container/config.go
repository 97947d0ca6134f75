// Package container provides dependency injection and lifecycle management
// for the requisition service.
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

	// Redis badge cache configuration
	Redis RedisConfig

	// Lark API configuration
	Lark LarkConfig

	// Workflow configuration
	Workflow WorkflowConfig
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

// RedisConfig holds redis settings. An empty Addr disables the cache.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	PoolSize int
	BadgeTTL time.Duration
}

// Enabled reports whether a redis address is configured
func (r RedisConfig) Enabled() bool {
	return r.Addr != ""
}

// LarkConfig holds Lark API settings. Empty credentials disable delivery.
type LarkConfig struct {
	// AppID is the Lark application ID
	AppID string

	// AppSecret is the Lark application secret
	AppSecret string
}

// WorkflowConfig holds approval workflow settings.
type WorkflowConfig struct {
	// PendingPageSize caps the pending list shown to an approver
	PendingPageSize int

	// ReminderInterval is how often stale approvals are scanned; zero disables reminders
	ReminderInterval time.Duration

	// ReminderStaleAfter is how long a stage may wait before approvers are reminded
	ReminderStaleAfter time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Path:            "data/requisitions.db",
			MaxOpenConns:    10,
			MaxIdleConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Redis: RedisConfig{
			PoolSize: 10,
			BadgeTTL: 5 * time.Minute,
		},
		Workflow: WorkflowConfig{
			PendingPageSize:    10,
			ReminderInterval:   15 * time.Minute,
			ReminderStaleAfter: 24 * time.Hour,
		},
	}
}

// Validate checks that required configuration values are present.
func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}
	if c.Workflow.PendingPageSize <= 0 {
		return fmt.Errorf("workflow.pending_page_size must be positive")
	}
	return nil
}
