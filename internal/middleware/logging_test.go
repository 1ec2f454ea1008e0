package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/therealutkarshpriyadarshi/yt2mp3/internal/logging"
)

func TestRequestIDAndLogger(t *testing.T) {
	gin.SetMode(gin.TestMode)

	var buf bytes.Buffer
	logger := logging.NewWithWriter(logging.Config{Level: "info", Format: "json"}, &buf)

	router := gin.New()
	router.Use(RequestID(), Logger(logger))
	router.GET("/", func(c *gin.Context) {
		assert.NotEmpty(t, GetRequestID(c))
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	id := w.Header().Get(RequestIDHeader)
	assert.NotEmpty(t, id)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "HTTP request", entry["message"])
	assert.Equal(t, "GET", entry["method"])
	assert.Equal(t, float64(http.StatusOK), entry["status_code"])
	assert.Equal(t, id, entry["request_id"])
}

func TestRequestIDReusesIncomingHeader(t *testing.T) {
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.Use(RequestID())
	router.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, GetRequestID(c))
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set(RequestIDHeader, "upstream-id")
	router.ServeHTTP(w, req)

	assert.Equal(t, "upstream-id", w.Body.String())
	assert.Equal(t, "upstream-id", w.Header().Get(RequestIDHeader))
}
