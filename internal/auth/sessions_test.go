package auth

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sessionCookie(t *testing.T, w *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range w.Result().Cookies() {
		if c.Name == SessionCookieName {
			return c
		}
	}
	t.Fatalf("response has no %s cookie", SessionCookieName)
	return nil
}

func newVisitRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	env := setupTestService(t)

	sqlDB, err := env.db.DB.DB()
	require.NoError(t, err)
	sm, err := NewSessionManager(sqlDB, testAuthConfig())
	require.NoError(t, err)

	router := gin.New()
	router.Use(sm.SessionLoadSave())
	router.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, strconv.Itoa(sm.CountVisit(c.Request)))
	})
	router.GET("/peek", func(c *gin.Context) {
		c.String(http.StatusOK, strconv.Itoa(sm.NumVisits(c.Request)))
	})
	return router
}

func TestSessionManager_CountVisit(t *testing.T) {
	router := newVisitRouter(t)

	w := doRequest(router, http.MethodGet, "/", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "0", w.Body.String())
	assert.Contains(t, w.Header().Values("Vary"), "Cookie")
	cookie := sessionCookie(t, w)
	assert.True(t, cookie.HttpOnly)

	for want := 1; want <= 3; want++ {
		w = doRequest(router, http.MethodGet, "/", http.Header{"Cookie": {cookie.String()}})
		assert.Equal(t, strconv.Itoa(want), w.Body.String())
	}

	w = doRequest(router, http.MethodGet, "/peek", http.Header{"Cookie": {cookie.String()}})
	assert.Equal(t, "4", w.Body.String())
}

func TestSessionManager_CountVisit_SeparateSessions(t *testing.T) {
	router := newVisitRouter(t)

	first := sessionCookie(t, doRequest(router, http.MethodGet, "/", nil))
	doRequest(router, http.MethodGet, "/", http.Header{"Cookie": {first.String()}})

	w := doRequest(router, http.MethodGet, "/", nil)
	assert.Equal(t, "0", w.Body.String())
}
