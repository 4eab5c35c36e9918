package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupVisitorTest() *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(LoggingMiddleware(), Visitor(false))
	router.GET("/visitor", func(c *gin.Context) {
		c.String(http.StatusOK, GetVisitorID(c))
	})
	return router
}

func TestVisitor_AssignsNewID(t *testing.T) {
	router := setupVisitorTest()

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/visitor", nil))

	visitorID := w.Body.String()
	_, err := uuid.Parse(visitorID)
	require.NoError(t, err)
	assert.Equal(t, visitorID, w.Header().Get(VisitorHeader))
	assert.Contains(t, w.Header().Get("Set-Cookie"), VisitorCookie+"="+visitorID)
	assert.NotEmpty(t, w.Header().Get(RequestIDHeader))
}

func TestVisitor_HeaderWinsOverCookie(t *testing.T) {
	router := setupVisitorTest()

	req := httptest.NewRequest(http.MethodGet, "/visitor", nil)
	req.Header.Set(VisitorHeader, "from-header")
	req.AddCookie(&http.Cookie{Name: VisitorCookie, Value: "from-cookie"})
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, "from-header", w.Body.String())
	assert.Empty(t, w.Header().Get("Set-Cookie"))
}

func TestVisitor_ReadsCookie(t *testing.T) {
	router := setupVisitorTest()

	req := httptest.NewRequest(http.MethodGet, "/visitor", nil)
	req.AddCookie(&http.Cookie{Name: VisitorCookie, Value: "from-cookie"})
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, "from-cookie", w.Body.String())
}

func TestVisitor_ReplacesOversizedID(t *testing.T) {
	router := setupVisitorTest()

	req := httptest.NewRequest(http.MethodGet, "/visitor", nil)
	req.Header.Set(VisitorHeader, strings.Repeat("x", 200))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	_, err := uuid.Parse(w.Body.String())
	assert.NoError(t, err)
}

func TestLoggingMiddleware_KeepsUpstreamRequestID(t *testing.T) {
	router := setupVisitorTest()

	req := httptest.NewRequest(http.MethodGet, "/visitor", nil)
	req.Header.Set(RequestIDHeader, "req-123")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, "req-123", w.Header().Get(RequestIDHeader))
}
