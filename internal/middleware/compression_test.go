package middleware

import (
	"compress/gzip"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCompressionRouter(body string) (*gin.Engine, *CompressionMiddleware) {
	gin.SetMode(gin.TestMode)

	cm := NewCompressionMiddleware(DefaultCompressionConfig())
	router := gin.New()
	router.Use(cm.Handler())
	router.GET("/payload", func(c *gin.Context) {
		c.Data(http.StatusOK, "application/json", []byte(body))
	})
	return router, cm
}

func TestCompressionLargeResponse(t *testing.T) {
	body := `{"reasons":["` + strings.Repeat("suspicious keyword ", 200) + `"]}`
	router, cm := newCompressionRouter(body)

	req := httptest.NewRequest(http.MethodGet, "/payload", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, "gzip", w.Header().Get("Content-Encoding"))
	assert.Less(t, w.Body.Len(), len(body))

	gz, err := gzip.NewReader(w.Body)
	require.NoError(t, err)
	decoded, err := io.ReadAll(gz)
	require.NoError(t, err)
	assert.Equal(t, body, string(decoded))

	stats := cm.Stats()
	assert.Equal(t, int64(1), stats["compressed_requests"])
}

func TestCompressionSkipsSmallResponse(t *testing.T) {
	body := `{"status":"ok"}`
	router, _ := newCompressionRouter(body)

	req := httptest.NewRequest(http.MethodGet, "/payload", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Empty(t, w.Header().Get("Content-Encoding"))
	assert.Equal(t, body, w.Body.String())
}

func TestCompressionSkipsWithoutAcceptEncoding(t *testing.T) {
	body := strings.Repeat("x", 4096)
	router, cm := newCompressionRouter(body)

	req := httptest.NewRequest(http.MethodGet, "/payload", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Empty(t, w.Header().Get("Content-Encoding"))
	assert.Equal(t, body, w.Body.String())
	assert.Equal(t, int64(0), cm.Stats()["compressed_requests"])
}
