package http

import (
	"go.uber.org/zap"

	"github.com/mrlokans/locallibrary/internal/auth"
	"github.com/mrlokans/locallibrary/internal/clock"
	"github.com/mrlokans/locallibrary/internal/config"
	"github.com/mrlokans/locallibrary/internal/database"
	"github.com/mrlokans/locallibrary/internal/demo"
)

// RouterConfig contains all dependencies and configuration needed
// to create the HTTP router.
type RouterConfig struct {
	// Storage
	Database  *database.Database
	Authors   AuthorStore
	Books     BookStore
	Genres    GenreLister
	Instances InstanceStore
	Users     UserFinder
	Stats     StatsReader

	// Authentication
	AuthService    *auth.Service
	AuthMiddleware *auth.Middleware
	SessionManager *auth.SessionManager
	RateLimiter    *auth.RateLimiter
	CSRFSecret     []byte
	SecureCookies  bool

	Auditor        Auditor
	AuditLog       AuditLog
	DemoMiddleware *demo.Middleware

	// Task queue, nil when background work is disabled
	Tasks TaskQueue
	// Cover images, nil when disabled
	Covers CoverSource

	Catalog config.Catalog
	Clock   clock.Clocker
	Logger  *zap.Logger

	// UI paths
	TemplatesPath string
	StaticPath    string

	// Application info
	Version string
}
