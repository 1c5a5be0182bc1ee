package config

import (
	"errors"
	"io/fs"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type AuthMode string

const (
	AuthModeNone  AuthMode = "none"  // Every request acts as the default user, guards pass
	AuthModeLocal AuthMode = "local" // Local user database with sessions (default)
)

type (
	Config struct {
		HTTP
		Global
		Log
		Database
		UI
		Auth
		Catalog
		Tasks
		Audit
		Scheduler
		Metadata
		Demo
	}

	HTTP struct {
		Port int32
		Host string
	}
	Global struct {
		ShutdownTimeoutInSeconds int
	}
	Log struct {
		Level      string // debug, info, warn, error
		Production bool   // JSON output when true, console otherwise
	}
	Database struct {
		Path string
	}
	UI struct {
		TemplatesPath string
		StaticPath    string
	}
	Auth struct {
		Mode            AuthMode
		SessionSecret   string
		SessionLifetime time.Duration
		TokenExpiry     time.Duration
		BcryptCost      int
		SecureCookies   bool // Set to false for local dev without HTTPS

		// Rate limiting configuration
		MaxLoginAttempts int           // Max failed attempts before lockout (default: 5)
		RateLimitWindow  time.Duration // Time window for counting attempts (default: 15m)
		LockoutDuration  time.Duration // How long to lock out (default: 30m)
	}
	Catalog struct {
		PageSize        int
		RenewalProposal time.Duration // Offset from today pre-filled in the renewal form
		RenewalMaxAhead time.Duration // Latest accepted renewal date, relative to today
		LoanPeriod      time.Duration // Default due date offset when lending a copy

		// EditRequiresPermission gates author/book create, update and delete
		// behind catalog.can_edit.
		EditRequiresPermission bool
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
	Audit struct {
		RetentionDays int // Days to keep audit events (default: 30)
	}
	Scheduler struct {
		Enabled              bool
		OverdueSchedule      string // Cron format: "0 7 * * *" = daily at 07:00
		AuditCleanupSchedule string // Cron format: "30 3 * * *" = daily at 03:30
	}
	Metadata struct {
		Enabled        bool
		OpenLibraryURL string

		CoversEnabled bool
		CoversURL     string
		CoverCacheDir string
	}
	Demo struct {
		Enabled bool // Block every write operation
	}
)

// loadDotEnv reads a .env file from the working directory if one exists.
// Values already present in the environment win.
func loadDotEnv() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Printf("WARNING: could not load .env file: %v", err)
	}
}

func NewConfig() *Config {
	loadDotEnv()

	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("port", 8188)
	v.SetDefault("host", "0.0.0.0")
	v.SetDefault("shutdown_timeout_in_seconds", 2)
	v.SetDefault("log_level", "info")
	v.SetDefault("log_production", false)
	v.SetDefault("database_path", DefaultDatabasePath)
	v.SetDefault("templates_path", "./templates")
	v.SetDefault("static_path", "./static")

	// Catalog defaults
	v.SetDefault("catalog_page_size", DefaultPageSize)
	v.SetDefault("catalog_renewal_proposal", DefaultRenewalProposal.String())
	v.SetDefault("catalog_renewal_max_ahead", DefaultRenewalMaxAhead.String())
	v.SetDefault("catalog_loan_period", DefaultLoanPeriod.String())
	v.SetDefault("catalog_edit_requires_permission", true)

	// Auth defaults
	v.SetDefault("auth_mode", "local")
	v.SetDefault("auth_session_secret", "")       // Auto-generated if empty
	v.SetDefault("auth_session_lifetime", "24h")  // 24 hours
	v.SetDefault("auth_token_expiry", "720h")     // 30 days
	v.SetDefault("auth_bcrypt_cost", 12)          // bcrypt cost factor
	v.SetDefault("auth_secure_cookies", true)     // HTTPS-only cookies
	v.SetDefault("auth_max_login_attempts", 5)    // Max failed attempts
	v.SetDefault("auth_rate_limit_window", "15m") // Window for counting attempts
	v.SetDefault("auth_lockout_duration", "30m")  // Lockout duration

	// Task queue defaults
	v.SetDefault("tasks_enabled", true)
	v.SetDefault("task_workers", 2)
	v.SetDefault("task_max_retries", 3)
	v.SetDefault("task_retry_delay", "1m")
	v.SetDefault("task_timeout", "5m")
	v.SetDefault("task_release_after", "15m")
	v.SetDefault("task_cleanup_interval", "1h")
	v.SetDefault("task_retention_duration", "24h")

	v.SetDefault("audit_retention_days", 30)

	v.SetDefault("scheduler_enabled", true)
	v.SetDefault("scheduler_overdue_schedule", "0 7 * * *")
	v.SetDefault("scheduler_audit_cleanup_schedule", "30 3 * * *")

	v.SetDefault("metadata_enabled", true)
	v.SetDefault("metadata_openlibrary_url", "https://openlibrary.org")
	v.SetDefault("covers_enabled", true)
	v.SetDefault("covers_url", "https://covers.openlibrary.org")
	v.SetDefault("cover_cache_dir", "./data/covers")

	v.SetDefault("demo_mode", false)

	return &Config{
		HTTP: HTTP{
			Port: v.GetInt32("PORT"),
			Host: v.GetString("HOST"),
		},
		Global: Global{
			ShutdownTimeoutInSeconds: v.GetInt("SHUTDOWN_TIMEOUT_IN_SECONDS"),
		},
		Log: Log{
			Level:      v.GetString("LOG_LEVEL"),
			Production: v.GetBool("LOG_PRODUCTION"),
		},
		Database: Database{
			Path: v.GetString("DATABASE_PATH"),
		},
		UI: UI{
			TemplatesPath: v.GetString("TEMPLATES_PATH"),
			StaticPath:    v.GetString("STATIC_PATH"),
		},
		Auth: Auth{
			Mode:             AuthMode(v.GetString("AUTH_MODE")),
			SessionSecret:    v.GetString("AUTH_SESSION_SECRET"),
			SessionLifetime:  v.GetDuration("AUTH_SESSION_LIFETIME"),
			TokenExpiry:      v.GetDuration("AUTH_TOKEN_EXPIRY"),
			BcryptCost:       v.GetInt("AUTH_BCRYPT_COST"),
			SecureCookies:    v.GetBool("AUTH_SECURE_COOKIES"),
			MaxLoginAttempts: v.GetInt("AUTH_MAX_LOGIN_ATTEMPTS"),
			RateLimitWindow:  v.GetDuration("AUTH_RATE_LIMIT_WINDOW"),
			LockoutDuration:  v.GetDuration("AUTH_LOCKOUT_DURATION"),
		},
		Catalog: Catalog{
			PageSize:               v.GetInt("CATALOG_PAGE_SIZE"),
			RenewalProposal:        v.GetDuration("CATALOG_RENEWAL_PROPOSAL"),
			RenewalMaxAhead:        v.GetDuration("CATALOG_RENEWAL_MAX_AHEAD"),
			LoanPeriod:             v.GetDuration("CATALOG_LOAN_PERIOD"),
			EditRequiresPermission: v.GetBool("CATALOG_EDIT_REQUIRES_PERMISSION"),
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
		Audit: Audit{
			RetentionDays: v.GetInt("AUDIT_RETENTION_DAYS"),
		},
		Scheduler: Scheduler{
			Enabled:              v.GetBool("SCHEDULER_ENABLED"),
			OverdueSchedule:      v.GetString("SCHEDULER_OVERDUE_SCHEDULE"),
			AuditCleanupSchedule: v.GetString("SCHEDULER_AUDIT_CLEANUP_SCHEDULE"),
		},
		Metadata: Metadata{
			Enabled:        v.GetBool("METADATA_ENABLED"),
			OpenLibraryURL: v.GetString("METADATA_OPENLIBRARY_URL"),
			CoversEnabled:  v.GetBool("COVERS_ENABLED"),
			CoversURL:      v.GetString("COVERS_URL"),
			CoverCacheDir:  v.GetString("COVER_CACHE_DIR"),
		},
		Demo: Demo{
			Enabled: v.GetBool("DEMO_MODE"),
		},
	}
}
