package auth

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/locallibrary/internal/config"
	"github.com/mrlokans/locallibrary/internal/entities"
)

// Context keys for user data
const (
	ContextKeyUser     = "auth_user"
	ContextKeyUserID   = "auth_user_id"
	ContextKeyUsername = "auth_username"
	ContextKeyRole     = "auth_role"
	ContextKeyAuthType = "auth_type" // "session", "bearer", or "none"
)

// AuthType indicates how the user was authenticated
type AuthType string

const (
	AuthTypeAnonymous AuthType = "anonymous"
	AuthTypeNone      AuthType = "none"
	AuthTypeSession   AuthType = "session"
	AuthTypeBearer    AuthType = "bearer"
)

// DefaultUserID is used when authentication is disabled
const DefaultUserID = uint(0)

// LoginURL is where anonymous browsers are sent by the guards.
const LoginURL = "/accounts/login/"

// defaultUser acts for every request when authentication is disabled.
var defaultUser = entities.User{
	ID:       DefaultUserID,
	Username: "librarian",
	Role:     entities.UserRoleAdmin,
}

// Middleware identifies the caller and guards routes.
type Middleware struct {
	service        *Service
	sessionManager *SessionManager
	config         config.Auth
	forbiddenPage  gin.HandlerFunc
}

// NewMiddleware creates a new authentication middleware.
func NewMiddleware(service *Service, sessionManager *SessionManager, cfg config.Auth) *Middleware {
	return &Middleware{
		service:        service,
		sessionManager: sessionManager,
		config:         cfg,
	}
}

// OnForbidden sets the page rendered for browsers refused by RequirePermission
// or RequireRole. The middleware aborts the chain after it runs.
func (m *Middleware) OnForbidden(page gin.HandlerFunc) {
	m.forbiddenPage = page
}

// Handler identifies the caller, by bearer token first and then by session,
// and stores it in the context. It never rejects a request: pages decide
// through RequireAuth and RequirePermission whether a caller may proceed.
func (m *Middleware) Handler() gin.HandlerFunc {
	if m.config.Mode == config.AuthModeNone {
		return func(c *gin.Context) {
			user := defaultUser
			m.setUserContext(c, &user, AuthTypeNone)
			c.Next()
		}
	}

	return func(c *gin.Context) {
		if user := m.tryBearerAuth(c); user != nil {
			m.setUserContext(c, user, AuthTypeBearer)
		} else if user := m.trySessionAuth(c); user != nil {
			m.setUserContext(c, user, AuthTypeSession)
		} else {
			c.Set(ContextKeyAuthType, AuthTypeAnonymous)
		}
		c.Next()
	}
}

func (m *Middleware) tryBearerAuth(c *gin.Context) *entities.User {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return nil
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return nil
	}

	user, err := m.service.ValidateToken(c.Request.Context(), strings.TrimSpace(parts[1]))
	if err != nil {
		return nil
	}
	return user
}

func (m *Middleware) trySessionAuth(c *gin.Context) *entities.User {
	if m.sessionManager == nil {
		return nil
	}

	userID := m.sessionManager.GetUserID(c.Request)
	if userID == 0 {
		return nil
	}

	user, err := m.service.GetUserByID(c.Request.Context(), userID)
	if err != nil {
		// stale session of a deleted user
		return nil
	}
	return user
}

func (m *Middleware) setUserContext(c *gin.Context, user *entities.User, authType AuthType) {
	c.Set(ContextKeyUser, user)
	c.Set(ContextKeyUserID, user.ID)
	c.Set(ContextKeyUsername, user.Username)
	c.Set(ContextKeyRole, user.Role)
	c.Set(ContextKeyAuthType, authType)
}

// isAPIRequest determines if this is an API request vs web browser request.
func isAPIRequest(c *gin.Context) bool {
	if strings.HasPrefix(c.Request.URL.Path, "/api/") {
		return true
	}
	if strings.Contains(c.GetHeader("Accept"), "application/json") {
		return true
	}
	return c.GetHeader("Authorization") != ""
}

// LoginRedirect builds the login URL that returns to the current page.
func LoginRedirect(c *gin.Context) string {
	return LoginURL + "?next=" + url.QueryEscape(c.Request.URL.RequestURI())
}

func (m *Middleware) denyAnonymous(c *gin.Context) {
	if isAPIRequest(c) {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
			"error": "authentication required",
		})
		return
	}
	c.Redirect(http.StatusFound, LoginRedirect(c))
	c.Abort()
}

func (m *Middleware) denyForbidden(c *gin.Context) {
	if isAPIRequest(c) {
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
			"error": "insufficient permissions",
		})
		return
	}
	if m.forbiddenPage != nil {
		m.forbiddenPage(c)
		c.Abort()
		return
	}
	c.Data(http.StatusForbidden, "text/html; charset=utf-8", []byte("<h1>403 Forbidden</h1>"))
	c.Abort()
}

// RequireAuth rejects anonymous callers: browsers are redirected to the
// login page, API clients get 401.
func (m *Middleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !IsAuthenticated(c) {
			m.denyAnonymous(c)
			return
		}
		c.Next()
	}
}

// RequirePermission requires an authenticated caller holding every listed
// permission. Anonymous callers are treated as in RequireAuth, authenticated
// callers lacking a permission get 403.
func (m *Middleware) RequirePermission(codenames ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !IsAuthenticated(c) {
			m.denyAnonymous(c)
			return
		}
		for _, codename := range codenames {
			if !HasPermission(c, codename) {
				m.denyForbidden(c)
				return
			}
		}
		c.Next()
	}
}

// RequireRole returns a middleware that requires one of the given roles.
func (m *Middleware) RequireRole(roles ...entities.UserRole) gin.HandlerFunc {
	roleSet := make(map[entities.UserRole]bool, len(roles))
	for _, r := range roles {
		roleSet[r] = true
	}

	return func(c *gin.Context) {
		if !IsAuthenticated(c) {
			m.denyAnonymous(c)
			return
		}
		if GetAuthType(c) != AuthTypeNone && !roleSet[GetUserRole(c)] {
			m.denyForbidden(c)
			return
		}
		c.Next()
	}
}

// GetUser returns the authenticated user, or nil for anonymous callers.
func GetUser(c *gin.Context) *entities.User {
	if v, exists := c.Get(ContextKeyUser); exists {
		if user, ok := v.(*entities.User); ok {
			return user
		}
	}
	return nil
}

// GetUserID retrieves the authenticated user's ID from the context.
// Returns DefaultUserID (0) if not authenticated or auth is disabled.
func GetUserID(c *gin.Context) uint {
	if id, exists := c.Get(ContextKeyUserID); exists {
		if userID, ok := id.(uint); ok {
			return userID
		}
	}
	return DefaultUserID
}

func GetUsername(c *gin.Context) string {
	return c.GetString(ContextKeyUsername)
}

func GetUserRole(c *gin.Context) entities.UserRole {
	if r, exists := c.Get(ContextKeyRole); exists {
		if role, ok := r.(entities.UserRole); ok {
			return role
		}
	}
	return ""
}

// GetAuthType retrieves the authentication method used.
func GetAuthType(c *gin.Context) AuthType {
	if t, exists := c.Get(ContextKeyAuthType); exists {
		if authType, ok := t.(AuthType); ok {
			return authType
		}
	}
	return AuthTypeAnonymous
}

// IsAuthenticated returns true if the request acts as some user.
func IsAuthenticated(c *gin.Context) bool {
	return GetUser(c) != nil
}

// HasPermission reports whether the caller holds the permission.
func HasPermission(c *gin.Context, codename string) bool {
	user := GetUser(c)
	if user == nil {
		return false
	}
	return GetAuthType(c) == AuthTypeNone || user.HasPermission(codename)
}
