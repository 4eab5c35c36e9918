package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	VisitorIDKey    = "visitor_id"
	VisitorHeader   = "X-Visitor-ID"
	VisitorCookie   = "visitor_id"
	visitorMaxAge   = 365 * 24 * 60 * 60
	maxVisitorIDLen = 64
)

// Visitor identifies the browser behind a request. The id comes from the
// X-Visitor-ID header, then the visitor_id cookie; a request with neither
// gets a fresh uuid, returned in both.
func Visitor(secureCookie bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		visitorID := c.GetHeader(VisitorHeader)
		if visitorID == "" {
			if cookie, err := c.Cookie(VisitorCookie); err == nil {
				visitorID = cookie
			}
		}

		if visitorID == "" || len(visitorID) > maxVisitorIDLen {
			visitorID = uuid.NewString()
			c.SetSameSite(http.SameSiteLaxMode)
			c.SetCookie(VisitorCookie, visitorID, visitorMaxAge, "/", "", secureCookie, true)
			GetLoggerFromContext(c).Debug("Assigned visitor id", map[string]interface{}{
				"visitor_id": visitorID,
			})
		}

		c.Set(VisitorIDKey, visitorID)
		c.Header(VisitorHeader, visitorID)
		c.Next()
	}
}

// GetVisitorID returns the visitor id set by Visitor.
func GetVisitorID(c *gin.Context) string {
	return c.GetString(VisitorIDKey)
}
