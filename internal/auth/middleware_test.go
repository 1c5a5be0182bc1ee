package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/locallibrary/internal/config"
	"github.com/mrlokans/locallibrary/internal/entities"
)

func newGuardedRouter(t *testing.T, env *testEnv, cfg config.Auth) (*gin.Engine, *SessionManager) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	sqlDB, err := env.db.DB.DB()
	require.NoError(t, err)
	sm, err := NewSessionManager(sqlDB, cfg)
	require.NoError(t, err)

	mw := NewMiddleware(env.service, sm, cfg)
	ok := func(c *gin.Context) { c.String(http.StatusOK, "hello %s", GetUsername(c)) }

	router := gin.New()
	router.Use(sm.SessionLoadSave(), mw.Handler())
	router.GET("/public", ok)
	router.GET("/catalog/mybooks/", mw.RequireAuth(), ok)
	router.GET("/catalog/borrowed/", mw.RequirePermission(entities.PermCanMarkReturned), ok)
	router.GET("/api/loans", mw.RequirePermission(entities.PermCanMarkReturned), ok)
	router.GET("/admin", mw.RequireRole(entities.UserRoleAdmin), ok)
	router.POST("/test-login/:username", func(c *gin.Context) {
		user, err := env.repo.GetUserByUsername(c.Request.Context(), c.Param("username"))
		require.NoError(t, err)
		require.NoError(t, sm.CreateSession(c.Request, user))
		c.Status(http.StatusNoContent)
	})
	return router, sm
}

func bearerToken(t *testing.T, env *testEnv, user *entities.User) string {
	t.Helper()
	token, err := env.service.GenerateToken(context.Background(), user.ID)
	require.NoError(t, err)
	return "Bearer " + token
}

func doRequest(router *gin.Engine, method, path string, header http.Header) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	for k, v := range header {
		req.Header[k] = v
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestMiddleware_Anonymous(t *testing.T) {
	env := setupTestService(t)
	router, _ := newGuardedRouter(t, env, testAuthConfig())

	t.Run("public page passes", func(t *testing.T) {
		w := doRequest(router, http.MethodGet, "/public", nil)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("login required redirects with next", func(t *testing.T) {
		w := doRequest(router, http.MethodGet, "/catalog/mybooks/?page=2", nil)
		assert.Equal(t, http.StatusFound, w.Code)
		assert.Equal(t, "/accounts/login/?next=%2Fcatalog%2Fmybooks%2F%3Fpage%3D2", w.Header().Get("Location"))
	})

	t.Run("permission required redirects to login", func(t *testing.T) {
		w := doRequest(router, http.MethodGet, "/catalog/borrowed/", nil)
		assert.Equal(t, http.StatusFound, w.Code)
		assert.Contains(t, w.Header().Get("Location"), LoginURL)
	})

	t.Run("api gets 401", func(t *testing.T) {
		w := doRequest(router, http.MethodGet, "/api/loans", nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Contains(t, w.Body.String(), "authentication required")
	})

	t.Run("invalid bearer stays anonymous", func(t *testing.T) {
		w := doRequest(router, http.MethodGet, "/api/loans", http.Header{"Authorization": {"Bearer bogus"}})
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestMiddleware_Permissions(t *testing.T) {
	env := setupTestService(t)
	router, _ := newGuardedRouter(t, env, testAuthConfig())

	member := env.createUser(t, "member", entities.UserRoleMember)
	librarian := env.createUser(t, "librarian", entities.UserRoleLibrarian)
	admin := env.createUser(t, "admin", entities.UserRoleAdmin)

	t.Run("member is refused staff list", func(t *testing.T) {
		w := doRequest(router, http.MethodGet, "/catalog/borrowed/", http.Header{"Authorization": {bearerToken(t, env, member)}})
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("member passes login guard", func(t *testing.T) {
		w := doRequest(router, http.MethodGet, "/catalog/mybooks/", http.Header{"Authorization": {bearerToken(t, env, member)}})
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "hello member", w.Body.String())
	})

	t.Run("librarian role implies permission", func(t *testing.T) {
		w := doRequest(router, http.MethodGet, "/api/loans", http.Header{"Authorization": {bearerToken(t, env, librarian)}})
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("librarian is not admin", func(t *testing.T) {
		w := doRequest(router, http.MethodGet, "/admin", http.Header{"Authorization": {bearerToken(t, env, librarian)}})
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("admin holds every permission", func(t *testing.T) {
		w := doRequest(router, http.MethodGet, "/catalog/borrowed/", http.Header{"Authorization": {bearerToken(t, env, admin)}})
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("explicit grant", func(t *testing.T) {
		require.NoError(t, env.service.GrantPermission(context.Background(), member.ID, entities.PermCanMarkReturned))
		w := doRequest(router, http.MethodGet, "/catalog/borrowed/", http.Header{"Authorization": {bearerToken(t, env, member)}})
		assert.Equal(t, http.StatusOK, w.Code)
	})
}

func TestMiddleware_SessionLogin(t *testing.T) {
	env := setupTestService(t)
	router, _ := newGuardedRouter(t, env, testAuthConfig())
	env.createUser(t, "alice", entities.UserRoleMember)

	w := doRequest(router, http.MethodPost, "/test-login/alice", nil)
	require.Equal(t, http.StatusNoContent, w.Code)
	cookie := sessionCookie(t, w)

	w = doRequest(router, http.MethodGet, "/catalog/mybooks/", http.Header{"Cookie": {cookie.String()}})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "hello alice", w.Body.String())
}

func TestMiddleware_AuthModeNone(t *testing.T) {
	env := setupTestService(t)
	cfg := testAuthConfig()
	cfg.Mode = config.AuthModeNone
	router, _ := newGuardedRouter(t, env, cfg)

	for _, path := range []string{"/catalog/mybooks/", "/catalog/borrowed/", "/api/loans", "/admin"} {
		w := doRequest(router, http.MethodGet, path, nil)
		assert.Equal(t, http.StatusOK, w.Code, path)
	}
}

func TestIsAPIRequest(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name   string
		path   string
		header http.Header
		want   bool
	}{
		{"api prefix", "/api/books", nil, true},
		{"json accept", "/catalog/books/", http.Header{"Accept": {"application/json"}}, true},
		{"authorization header", "/catalog/books/", http.Header{"Authorization": {"Bearer x"}}, true},
		{"browser", "/catalog/books/", http.Header{"Accept": {"text/html"}}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := gin.CreateTestContext(httptest.NewRecorder())
			c.Request = httptest.NewRequest(http.MethodGet, tt.path, nil)
			for k, v := range tt.header {
				c.Request.Header[k] = v
			}
			assert.Equal(t, tt.want, isAPIRequest(c))
		})
	}
}

func TestMiddleware_ForbiddenPage(t *testing.T) {
	env := setupTestService(t)
	cfg := testAuthConfig()
	sqlDB, err := env.db.DB.DB()
	require.NoError(t, err)
	sm, err := NewSessionManager(sqlDB, cfg)
	require.NoError(t, err)
	env.createUser(t, "alice", entities.UserRoleMember)

	mw := NewMiddleware(env.service, sm, cfg)
	mw.OnForbidden(func(c *gin.Context) {
		c.String(http.StatusForbidden, "no entry for %s", GetUsername(c))
	})
	reached := false
	router := gin.New()
	router.Use(sm.SessionLoadSave(), mw.Handler())
	router.GET("/admin", mw.RequireRole(entities.UserRoleAdmin), func(c *gin.Context) { reached = true })
	router.POST("/test-login/:username", func(c *gin.Context) {
		user, err := env.repo.GetUserByUsername(c.Request.Context(), c.Param("username"))
		require.NoError(t, err)
		require.NoError(t, sm.CreateSession(c.Request, user))
		c.Status(http.StatusNoContent)
	})

	w := doRequest(router, http.MethodPost, "/test-login/alice", nil)
	require.Equal(t, http.StatusNoContent, w.Code)
	cookie := sessionCookie(t, w)

	w = doRequest(router, http.MethodGet, "/admin", http.Header{"Cookie": {cookie.String()}})
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "no entry for alice", w.Body.String())
	assert.False(t, reached)

	w = doRequest(router, http.MethodGet, "/admin", http.Header{
		"Cookie": {cookie.String()},
		"Accept": {"application/json"},
	})
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.JSONEq(t, `{"error":"insufficient permissions"}`, w.Body.String())
}
