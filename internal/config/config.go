package config

import (
	"time"

	"github.com/spf13/viper"
)

type (
	Config struct {
		HTTP
		Database
		Upload
		Audit
		Global
		Maintenance
		Tasks
	}

	HTTP struct {
		Port int32
		Host string
	}
	Database struct {
		Driver string // "sqlite" or "postgres"
		DSN    string // file path for sqlite, connection string for postgres
	}
	Upload struct {
		Dir string // Directory for uploaded exam PDFs
	}
	Audit struct {
		Dir           string // Directory for archived import payloads
		RetentionDays int    // Days to keep audit events (default: 30)
	}
	Global struct {
		ShutdownTimeoutInSeconds int
	}
	Maintenance struct {
		Enabled  bool
		Schedule string // Cron format: "0 3 * * *" = daily at 03:00
	}
	Tasks struct {
		Enabled           bool
		Workers           int
		MaxRetries        int
		RetryDelay        time.Duration
		TaskTimeout       time.Duration
		ReleaseAfter      time.Duration
		CleanupInterval   time.Duration
		RetentionDuration time.Duration
	}
)

func NewConfig() *Config {
	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("port", 8188)
	v.SetDefault("host", "0.0.0.0")
	v.SetDefault("shutdown_timeout_in_seconds", 2)
	v.SetDefault("database_driver", "sqlite")
	v.SetDefault("database_dsn", DefaultDatabasePath)
	v.SetDefault("upload_dir", "./uploads")
	v.SetDefault("audit_dir", "./audit")
	v.SetDefault("audit_retention_days", 30)

	// Maintenance defaults
	v.SetDefault("maintenance_enabled", false)
	v.SetDefault("maintenance_schedule", "0 3 * * *") // Daily at 03:00

	// Task queue defaults
	v.SetDefault("tasks_enabled", true)
	v.SetDefault("task_workers", 2)
	v.SetDefault("task_max_retries", 3)
	v.SetDefault("task_retry_delay", "1m")
	v.SetDefault("task_timeout", "5m")
	v.SetDefault("task_release_after", "15m")
	v.SetDefault("task_cleanup_interval", "1h")
	v.SetDefault("task_retention_duration", "24h")

	return &Config{
		HTTP: HTTP{
			Port: v.GetInt32("PORT"),
			Host: v.GetString("HOST"),
		},
		Database: Database{
			Driver: v.GetString("DATABASE_DRIVER"),
			DSN:    v.GetString("DATABASE_DSN"),
		},
		Upload: Upload{
			Dir: v.GetString("UPLOAD_DIR"),
		},
		Audit: Audit{
			Dir:           v.GetString("AUDIT_DIR"),
			RetentionDays: v.GetInt("AUDIT_RETENTION_DAYS"),
		},
		Global: Global{
			ShutdownTimeoutInSeconds: v.GetInt("SHUTDOWN_TIMEOUT_IN_SECONDS"),
		},
		Maintenance: Maintenance{
			Enabled:  v.GetBool("MAINTENANCE_ENABLED"),
			Schedule: v.GetString("MAINTENANCE_SCHEDULE"),
		},
		Tasks: Tasks{
			Enabled:           v.GetBool("TASKS_ENABLED"),
			Workers:           v.GetInt("TASK_WORKERS"),
			MaxRetries:        v.GetInt("TASK_MAX_RETRIES"),
			RetryDelay:        v.GetDuration("TASK_RETRY_DELAY"),
			TaskTimeout:       v.GetDuration("TASK_TIMEOUT"),
			ReleaseAfter:      v.GetDuration("TASK_RELEASE_AFTER"),
			CleanupInterval:   v.GetDuration("TASK_CLEANUP_INTERVAL"),
			RetentionDuration: v.GetDuration("TASK_RETENTION_DURATION"),
		},
	}
}
