package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parkandgreet/booking-backend/internal/services"
)

func sessionRouter() (*gin.Engine, *uuid.UUID) {
	gin.SetMode(gin.TestMode)

	var captured uuid.UUID
	router := gin.New()
	router.Use(SessionMiddleware())
	router.GET("/probe", func(c *gin.Context) {
		id, ok := GetSessionID(c)
		if !ok {
			c.Status(http.StatusInternalServerError)
			return
		}
		captured = id
		c.Status(http.StatusOK)
	})
	return router, &captured
}

func TestSessionMiddleware(t *testing.T) {
	t.Run("Missing Header Mints A Session", func(t *testing.T) {
		router, captured := sessionRouter()

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/probe", nil)
		router.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)
		assert.NotEqual(t, uuid.Nil, *captured)
		assert.Equal(t, captured.String(), w.Header().Get(services.SessionHeader),
			"the minted id is echoed so the client can keep it")
	})

	t.Run("Existing Session Is Reused", func(t *testing.T) {
		router, captured := sessionRouter()
		existing := uuid.New()

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/probe", nil)
		req.Header.Set(services.SessionHeader, existing.String())
		router.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, existing, *captured)
	})

	t.Run("Malformed Header Is Rejected", func(t *testing.T) {
		router, _ := sessionRouter()

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/probe", nil)
		req.Header.Set(services.SessionHeader, "not-a-uuid")
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}
