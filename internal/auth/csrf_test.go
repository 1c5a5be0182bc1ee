package auth

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"regexp"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/locallibrary/internal/entities"
)

var csrfValue = regexp.MustCompile(`value="([^"]+)"`)

func newCSRFRouter(t *testing.T, env *testEnv) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.Use(CSRFMiddleware([]byte("0123456789abcdef0123456789abcdef"), false, env.service))
	router.GET("/form", func(c *gin.Context) {
		c.String(http.StatusOK, string(CSRFTokenField(c)))
	})
	handled := func(c *gin.Context) { c.String(http.StatusOK, "handled") }
	router.POST("/form", handled)
	router.POST("/api/loans/x/renew", handled)
	return router
}

func TestCSRFMiddleware(t *testing.T) {
	env := setupTestService(t)
	router := newCSRFRouter(t, env)

	w := doRequest(router, http.MethodGet, "/form", nil)
	require.Equal(t, http.StatusOK, w.Code)
	match := csrfValue.FindStringSubmatch(w.Body.String())
	require.Len(t, match, 2)
	assert.Contains(t, w.Body.String(), `name="`+CSRFFieldName+`"`)
	cookies := w.Result().Cookies()
	require.NotEmpty(t, cookies)

	t.Run("post without token is refused", func(t *testing.T) {
		w := postForm(router, "/form", url.Values{}, cookies[0])
		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.NotContains(t, w.Body.String(), "handled")
	})

	t.Run("post with token passes", func(t *testing.T) {
		w := postForm(router, "/form", url.Values{CSRFFieldName: {match[1]}}, cookies[0])
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "handled", w.Body.String())
	})

	t.Run("api without bearer gets json error", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/loans/x/renew", strings.NewReader("{}"))
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Contains(t, w.Body.String(), "CSRF token invalid")
	})

	t.Run("valid bearer is exempt", func(t *testing.T) {
		user := env.createUser(t, "apiclient", entities.UserRoleLibrarian)
		req := httptest.NewRequest(http.MethodPost, "/api/loans/x/renew", strings.NewReader("{}"))
		req.Header.Set("Authorization", bearerToken(t, env, user))
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
	})
}

func TestCSRFTokenField_Disabled(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	assert.Empty(t, CSRFTokenField(c))
}
