package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/locallibrary/internal/clock"
	"github.com/mrlokans/locallibrary/internal/database/dbtest"
)

func serveHealth(controller *HealthController) *httptest.ResponseRecorder {
	router := gin.New()
	router.GET("/health", controller.Status)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/health", nil)
	router.ServeHTTP(w, req)
	return w
}

func TestHealthController_Status(t *testing.T) {
	t.Run("returns healthy when database is connected", func(t *testing.T) {
		controller := NewHealthController(dbtest.Open(t), clock.Fixed{At: testNow}, "1.0.0")

		w := serveHealth(controller)

		assert.Equal(t, http.StatusOK, w.Code)
		var response HealthResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.Equal(t, "healthy", response.Status)
		assert.Equal(t, "1.0.0", response.Version)
		assert.Equal(t, "2026-03-10T15:04:05Z", response.Time)
		assert.Equal(t, "ok", response.Checks["database"])
	})

	t.Run("returns unhealthy when database is closed", func(t *testing.T) {
		db := dbtest.Open(t)
		require.NoError(t, db.Close())
		controller := NewHealthController(db, clock.Fixed{At: testNow}, "")

		w := serveHealth(controller)

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		var response HealthResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.Equal(t, "unhealthy", response.Status)
		assert.Contains(t, response.Checks["database"], "error")
	})

	t.Run("reports a missing database", func(t *testing.T) {
		controller := NewHealthController(nil, clock.Fixed{At: testNow}, "")

		w := serveHealth(controller)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "not configured")
	})
}

func TestPing(t *testing.T) {
	env := newTestEnv(t)

	w := env.get("/ping", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"message": "pong"}`, w.Body.String())
}
