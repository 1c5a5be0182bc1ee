package auth

import (
	"errors"
	"net/http"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mrlokans/locallibrary/internal/entities"
)

// setupMutex serializes setup requests so that two concurrent submissions
// cannot both pass the HasUsers check.
var setupMutex sync.Mutex

// Routes served by AuthController.
const (
	LogoutURL = "/accounts/logout/"
	SetupURL  = "/accounts/setup/"
)

// isLocalPath validates that a redirect path is local to prevent open redirect attacks.
func isLocalPath(path string) bool {
	switch {
	case path == "":
		return false
	case !strings.HasPrefix(path, "/"):
		return false
	case strings.HasPrefix(path, "//"):
		// protocol-relative URL
		return false
	case strings.Contains(path, "://"), strings.Contains(path, "\\"):
		return false
	}
	return true
}

// sanitizeRedirectPath returns a safe redirect path, defaulting to "/" if invalid.
func sanitizeRedirectPath(path string) string {
	if isLocalPath(path) {
		return path
	}
	return "/"
}

// LoginSuccessHook is called after a successful login, for auditing.
type LoginSuccessHook func(c *gin.Context, user *entities.User)

// AuthController handles login, logout and initial setup pages.
// Pages are rendered through the router's HTML templates "login" and "setup".
type AuthController struct {
	service        *Service
	sessionManager *SessionManager
	rateLimiter    *RateLimiter
	logger         *zap.Logger
	onLogin        LoginSuccessHook
}

func NewAuthController(service *Service, sessionManager *SessionManager, rateLimiter *RateLimiter, logger *zap.Logger) *AuthController {
	return &AuthController{
		service:        service,
		sessionManager: sessionManager,
		rateLimiter:    rateLimiter,
		logger:         logger,
	}
}

// OnLogin registers a hook run after every successful login.
func (ac *AuthController) OnLogin(hook LoginSuccessHook) {
	ac.onLogin = hook
}

// RegisterRoutes registers authentication routes on the router.
func (ac *AuthController) RegisterRoutes(router gin.IRoutes) {
	router.GET(LoginURL, ac.LoginPage)
	router.POST(LoginURL, ac.Login)
	router.POST(LogoutURL, ac.Logout)
	router.GET(LogoutURL, ac.Logout)
	router.GET(SetupURL, ac.SetupPage)
	router.POST(SetupURL, ac.Setup)
}

func (ac *AuthController) LoginPage(c *gin.Context) {
	next := sanitizeRedirectPath(c.Query("next"))

	if IsAuthenticated(c) {
		c.Redirect(http.StatusFound, next)
		return
	}

	hasUsers, err := ac.service.HasUsers(c.Request.Context())
	if err == nil && !hasUsers {
		c.Redirect(http.StatusFound, SetupURL)
		return
	}

	ac.render(c, http.StatusOK, "login", gin.H{
		"Next":  next,
		"Error": c.Query("error"),
	})
}

// Login handles the login form submission.
func (ac *AuthController) Login(c *gin.Context) {
	username := strings.TrimSpace(c.PostForm("username"))
	password := c.PostForm("password")
	next := sanitizeRedirectPath(c.PostForm("next"))
	clientIP := c.ClientIP()

	if allowed, retryAfter := ac.rateLimiter.Allow(clientIP, username); !allowed {
		c.Header("Retry-After", retryAfter.String())
		ac.render(c, http.StatusTooManyRequests, "login", gin.H{
			"Next":     next,
			"Username": username,
			"Error":    "Too many login attempts. Please try again later.",
		})
		return
	}

	user, err := ac.service.Authenticate(c.Request.Context(), username, password)
	if err != nil {
		ac.rateLimiter.RecordFailure(clientIP, username)

		errorMsg := "Please enter a correct username and password."
		if errors.Is(err, ErrAccountLocked) {
			errorMsg = "Account is locked. Please try again later."
		} else if !errors.Is(err, ErrUserNotFound) && !errors.Is(err, ErrInvalidPassword) {
			ac.logger.Error("login failed", zap.String("username", username), zap.Error(err))
		}

		ac.render(c, http.StatusOK, "login", gin.H{
			"Next":     next,
			"Username": username,
			"Error":    errorMsg,
		})
		return
	}

	ac.rateLimiter.RecordSuccess(clientIP, username)

	if err := ac.sessionManager.CreateSession(c.Request, user); err != nil {
		ac.logger.Error("failed to create session", zap.Uint("user.id", user.ID), zap.Error(err))
		ac.render(c, http.StatusOK, "login", gin.H{
			"Next":     next,
			"Username": username,
			"Error":    "Failed to create session",
		})
		return
	}
	if ac.onLogin != nil {
		ac.onLogin(c, user)
	}

	c.Redirect(http.StatusFound, next)
}

// Logout destroys the session and shows the logged-out page.
func (ac *AuthController) Logout(c *gin.Context) {
	if err := ac.sessionManager.DestroySession(c.Request); err != nil {
		ac.logger.Warn("failed to destroy session", zap.Error(err))
	}
	ac.render(c, http.StatusOK, "logged_out", gin.H{})
}

// SetupPage renders the initial admin setup form.
func (ac *AuthController) SetupPage(c *gin.Context) {
	hasUsers, err := ac.service.HasUsers(c.Request.Context())
	if err != nil {
		ac.render(c, http.StatusOK, "setup", gin.H{
			"Error": "Database error. Please try again.",
		})
		return
	}
	if hasUsers {
		c.Redirect(http.StatusFound, LoginURL)
		return
	}

	ac.render(c, http.StatusOK, "setup", gin.H{
		"Error": c.Query("error"),
	})
}

// Setup creates the first admin user and logs them in.
func (ac *AuthController) Setup(c *gin.Context) {
	setupMutex.Lock()
	defer setupMutex.Unlock()

	ctx := c.Request.Context()
	hasUsers, err := ac.service.HasUsers(ctx)
	if err != nil {
		ac.render(c, http.StatusOK, "setup", gin.H{
			"Error": "Database error. Please try again.",
		})
		return
	}
	if hasUsers {
		c.Redirect(http.StatusFound, LoginURL)
		return
	}

	username := strings.TrimSpace(c.PostForm("username"))
	email := strings.TrimSpace(c.PostForm("email"))
	password := c.PostForm("password")

	renderErr := func(msg string) {
		ac.render(c, http.StatusOK, "setup", gin.H{
			"Username": username,
			"Email":    email,
			"Error":    msg,
		})
	}

	if password != c.PostForm("confirm_password") {
		renderErr("Passwords do not match")
		return
	}

	user, err := ac.service.CreateUser(ctx, username, email, password, entities.UserRoleAdmin)
	if err != nil {
		switch {
		case errors.Is(err, ErrUserExists):
			// another request won the race
			c.Redirect(http.StatusFound, LoginURL)
		case errors.Is(err, ErrPasswordTooShort), errors.Is(err, ErrPasswordTooLong),
			errors.Is(err, ErrUsernameRequired), errors.Is(err, ErrUsernameInvalid),
			errors.Is(err, ErrEmailRequired), errors.Is(err, ErrEmailInvalid),
			errors.Is(err, ErrPasswordRequired):
			renderErr(capitalize(err.Error()))
		default:
			ac.logger.Error("failed to create admin user", zap.Error(err))
			renderErr("Failed to create user")
		}
		return
	}

	if err := ac.sessionManager.CreateSession(c.Request, user); err != nil {
		ac.logger.Warn("failed to create session after setup", zap.Error(err))
	}
	c.Redirect(http.StatusFound, "/")
}

func (ac *AuthController) render(c *gin.Context, status int, name string, data gin.H) {
	data["Title"] = titles[name]
	data["CSRFField"] = CSRFTokenField(c)
	c.HTML(status, name, data)
}

var titles = map[string]string{
	"login":      "Log in",
	"logged_out": "Logged out",
	"setup":      "Initial setup",
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// APITokenController handles API token management endpoints.
type APITokenController struct {
	service *Service
}

func NewAPITokenController(service *Service) *APITokenController {
	return &APITokenController{service: service}
}

// GenerateToken creates a new API token for the authenticated user.
func (tc *APITokenController) GenerateToken(c *gin.Context) {
	if GetAuthType(c) == AuthTypeNone {
		c.JSON(http.StatusBadRequest, gin.H{"error": "authentication is disabled"})
		return
	}

	token, err := tc.service.GenerateToken(c.Request.Context(), GetUserID(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to generate token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token":   token,
		"message": "Store this token securely - it will not be shown again",
	})
}

// RevokeToken revokes the API token for the authenticated user.
func (tc *APITokenController) RevokeToken(c *gin.Context) {
	if GetAuthType(c) == AuthTypeNone {
		c.JSON(http.StatusBadRequest, gin.H{"error": "authentication is disabled"})
		return
	}

	if err := tc.service.RevokeToken(c.Request.Context(), GetUserID(c)); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to revoke token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "token revoked"})
}
