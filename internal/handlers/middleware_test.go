package handlers

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mintbay-api/internal/auth"
)

func TestNewRequestLogCapturesCaller(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/listings?page=2", strings.NewReader(`{"quantity":1}`))
	c.Request.Header.Set(auth.HeaderWalletAddress, testBuyer.Hex())
	c.Set("request_id", "req-123")

	entry := newRequestLog(c, []byte(`{"quantity":1}`))

	assert.Equal(t, http.MethodPost, entry.Method)
	assert.Equal(t, "/listings", entry.Path)
	assert.Equal(t, "page=2", entry.Query)
	assert.Equal(t, "req-123", entry.RequestID)
	assert.Equal(t, testBuyer.Hex(), entry.Caller)
	assert.Equal(t, `{"quantity":1}`, entry.Body)
}

func TestLogRequestPreservesBody(t *testing.T) {
	gin.SetMode(gin.TestMode)

	var seen string
	router := gin.New()
	router.Use(LogRequest())
	router.POST("/echo", func(c *gin.Context) {
		body, err := io.ReadAll(c.Request.Body)
		require.NoError(t, err)
		seen = string(body)
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodPost, "/echo", strings.NewReader(`{"quantity":3}`))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, `{"quantity":3}`, seen, "middleware must restore the body for handlers")
}
