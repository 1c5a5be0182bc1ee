// Package demo runs the catalog read-only for public demonstrations.
package demo

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	// ContextKeyDemoMode is set on every request so templates can show a banner.
	ContextKeyDemoMode = "demo_mode"

	BlockedMessage = "This action is disabled in demo mode"
)

// allowedPrefixes may be posted to even in demo mode so visitors can sign in
// and out.
var allowedPrefixes = []string{
	"/accounts/login/",
	"/accounts/logout/",
}

// Middleware rejects every request that could change the catalog.
type Middleware struct {
	enabled bool
}

func NewMiddleware(enabled bool) *Middleware {
	return &Middleware{enabled: enabled}
}

func (m *Middleware) IsEnabled() bool {
	return m.enabled
}

// Handler marks the request with the demo flag and, when enabled, answers
// any non-safe method with 403.
func (m *Middleware) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(ContextKeyDemoMode, m.enabled)
		if !m.enabled || isSafeMethod(c.Request.Method) || isAllowedPath(c.Request.URL.Path) {
			c.Next()
			return
		}
		respondBlocked(c)
	}
}

func isSafeMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return true
	}
	return false
}

func isAllowedPath(path string) bool {
	for _, prefix := range allowedPrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

func respondBlocked(c *gin.Context) {
	if strings.HasPrefix(c.Request.URL.Path, "/api/") || strings.Contains(c.GetHeader("Accept"), "application/json") {
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
			"error":     BlockedMessage,
			"demo_mode": true,
		})
		return
	}
	c.String(http.StatusForbidden, BlockedMessage)
	c.Abort()
}

// IsDemo reports whether the request is served in demo mode.
func IsDemo(c *gin.Context) bool {
	return c.GetBool(ContextKeyDemoMode)
}
