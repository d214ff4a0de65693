package middleware

import (
	"compress/gzip"
	"io"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/gin-gonic/gin"
)

// CompressionConfig holds configuration for response compression
type CompressionConfig struct {
	MinSize          int // minimum response size to compress, in bytes
	CompressionLevel int // gzip level 1-9
}

// DefaultCompressionConfig returns the default compression configuration
func DefaultCompressionConfig() CompressionConfig {
	return CompressionConfig{
		MinSize:          1024,
		CompressionLevel: 6,
	}
}

// CompressionMiddleware provides gzip compression for JSON responses.
// Reports with long reason lists compress well; small health and stats
// payloads pass through untouched.
type CompressionMiddleware struct {
	config CompressionConfig
	pool   sync.Pool

	totalRequests      int64
	compressedRequests int64
}

// NewCompressionMiddleware creates a new compression middleware
func NewCompressionMiddleware(config CompressionConfig) *CompressionMiddleware {
	cm := &CompressionMiddleware{config: config}
	cm.pool = sync.Pool{
		New: func() interface{} {
			gz, _ := gzip.NewWriterLevel(io.Discard, config.CompressionLevel)
			return gz
		},
	}
	return cm
}

// Handler returns the Gin middleware
func (cm *CompressionMiddleware) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		atomic.AddInt64(&cm.totalRequests, 1)

		if !strings.Contains(c.GetHeader("Accept-Encoding"), "gzip") {
			c.Next()
			return
		}

		gw := &gzipBufferWriter{
			ResponseWriter: c.Writer,
			minSize:        cm.config.MinSize,
			middleware:     cm,
		}
		c.Writer = gw
		c.Next()
		gw.finish()
	}
}

// Stats returns request and compression counters
func (cm *CompressionMiddleware) Stats() map[string]interface{} {
	total := atomic.LoadInt64(&cm.totalRequests)
	compressed := atomic.LoadInt64(&cm.compressedRequests)

	ratio := 0.0
	if total > 0 {
		ratio = float64(compressed) / float64(total)
	}

	return map[string]interface{}{
		"total_requests":      total,
		"compressed_requests": compressed,
		"compressed_ratio":    ratio,
	}
}

// gzipBufferWriter buffers the response body until it is clear whether the
// payload crosses the compression threshold. Bodies below MinSize are sent
// as-is; anything larger is gzipped in one pass on finish.
type gzipBufferWriter struct {
	gin.ResponseWriter
	minSize    int
	middleware *CompressionMiddleware
	buf        []byte
}

func (w *gzipBufferWriter) Write(data []byte) (int, error) {
	w.buf = append(w.buf, data...)
	return len(data), nil
}

func (w *gzipBufferWriter) WriteString(s string) (int, error) {
	w.buf = append(w.buf, s...)
	return len(s), nil
}

// Size reports the buffered body size so downstream middleware sees the
// eventual payload, not what has hit the wire.
func (w *gzipBufferWriter) Size() int {
	return len(w.buf)
}

func (w *gzipBufferWriter) Written() bool {
	return len(w.buf) > 0 || w.ResponseWriter.Written()
}

func (w *gzipBufferWriter) finish() {
	if len(w.buf) < w.minSize {
		w.Header().Set("Content-Length", strconv.Itoa(len(w.buf)))
		_, _ = w.ResponseWriter.Write(w.buf)
		return
	}

	atomic.AddInt64(&w.middleware.compressedRequests, 1)

	w.Header().Del("Content-Length")
	w.Header().Set("Content-Encoding", "gzip")
	w.Header().Set("Vary", "Accept-Encoding")

	gz := w.middleware.pool.Get().(*gzip.Writer)
	gz.Reset(w.ResponseWriter)
	_, _ = gz.Write(w.buf)
	_ = gz.Close()
	w.middleware.pool.Put(gz)
}
