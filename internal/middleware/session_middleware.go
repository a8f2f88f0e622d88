package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/parkandgreet/booking-backend/internal/services"
)

const sessionContextKey = "wizard_session_id"

// SessionMiddleware resolves the wizard session id for a request.
//
// The client carries its session in the X-Wizard-Session header. A request
// without one gets a fresh id minted and echoed back in the response header,
// so the very first call of a new visitor bootstraps the session. A header
// that is present but not a UUID is rejected.
func SessionMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader(services.SessionHeader)

		var sessionID uuid.UUID
		if header == "" {
			sessionID = uuid.New()
		} else {
			parsed, err := uuid.Parse(header)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{
					"status":  "error",
					"message": "Invalid session identifier",
				})
				c.Abort()
				return
			}
			sessionID = parsed
		}

		c.Header(services.SessionHeader, sessionID.String())
		c.Set(sessionContextKey, sessionID)
		c.Next()
	}
}

// GetSessionID returns the session id resolved by SessionMiddleware.
func GetSessionID(c *gin.Context) (uuid.UUID, bool) {
	value, exists := c.Get(sessionContextKey)
	if !exists {
		return uuid.Nil, false
	}
	sessionID, ok := value.(uuid.UUID)
	return sessionID, ok
}
