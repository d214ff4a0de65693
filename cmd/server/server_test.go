package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phishmeter/phishmeter/internal/analyzer"
	"github.com/phishmeter/phishmeter/internal/cache"
	"github.com/phishmeter/phishmeter/internal/config"
	"github.com/phishmeter/phishmeter/internal/database"
	"github.com/phishmeter/phishmeter/internal/middleware"
	"github.com/phishmeter/phishmeter/internal/mlscore"
	"github.com/phishmeter/phishmeter/internal/monitoring"
	"github.com/phishmeter/phishmeter/internal/ratelimit"
	"github.com/phishmeter/phishmeter/internal/security"
)

func newTestApplication(t *testing.T) *application {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := config.Defaults()
	cfg.DataDir = t.TempDir()
	cfg.RequestTimeout = 3 * time.Second
	cfg.TLSTimeout = 2 * time.Second
	cfg.DNSTimeout = 2 * time.Second
	cfg.WhoisTimeout = 2 * time.Second

	db, err := database.NewDB(cfg.DataDir)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	history := database.NewHistoryService(database.NewRepository(db))
	t.Cleanup(func() { history.Close() })

	mlScorer := mlscore.NewScorer(cfg.DataDir + "/missing-model.onnx")
	appMetrics := monitoring.NewMetrics()

	redisClient, err := ratelimit.NewRedisClient("", "", 0)
	require.NoError(t, err)

	limiterConfig := ratelimit.DefaultConfig()
	limiterConfig.IPLimitPerMin = 1000

	return &application{
		cfg:         cfg,
		db:          db,
		history:     history,
		mlScorer:    mlScorer,
		analyzer:    analyzer.New(cfg, mlScorer, nil),
		metrics:     appMetrics,
		logger:      monitoring.NewLogger(),
		redisClient: redisClient,
		limiter:     ratelimit.NewRateLimiter(redisClient, limiterConfig, appMetrics),
		cache:       cache.NewCache(time.Minute),
		compression: middleware.NewCompressionMiddleware(middleware.DefaultCompressionConfig()),
		security:    security.NewSecurityMiddleware(security.DefaultSecurityConfig()),
	}
}

func postAnalyze(router *gin.Engine, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/analyze", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestAnalyzeRejectsMissingURL(t *testing.T) {
	router := newTestApplication(t).router()

	w := postAnalyze(router, `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "VALIDATION_ERROR")

	w = postAnalyze(router, `not json`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAnalyzeRejectsDangerousScheme(t *testing.T) {
	router := newTestApplication(t).router()

	w := postAnalyze(router, `{"url":"javascript:alert(1)"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "validation")
}

func TestAnalyzeReturnsReport(t *testing.T) {
	page := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte("<html><body><p>plain docs page</p></body></html>"))
	}))
	defer page.Close()

	router := newTestApplication(t).router()

	w := postAnalyze(router, `{"url":"`+page.URL+`/guide"}`)
	require.Equal(t, http.StatusOK, w.Code)

	var report analyzer.Report
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &report))
	assert.NotEmpty(t, report.RequestID)
	assert.NotEmpty(t, report.Heuristic.Risk)
	assert.False(t, report.ML.Available)
	assert.True(t, report.Features.DNSResolves)
}

func TestAnalyzeCachesByURL(t *testing.T) {
	page := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte("<html><body>ok</body></html>"))
	}))
	defer page.Close()

	router := newTestApplication(t).router()

	first := postAnalyze(router, `{"url":"`+page.URL+`"}`)
	require.Equal(t, http.StatusOK, first.Code)

	// Same URL with different body formatting hits the cache
	second := postAnalyze(router, `{ "url" : "`+page.URL+`" }`)
	require.Equal(t, http.StatusOK, second.Code)

	var firstReport, secondReport analyzer.Report
	require.NoError(t, json.Unmarshal(first.Body.Bytes(), &firstReport))
	require.NoError(t, json.Unmarshal(second.Body.Bytes(), &secondReport))
	assert.Equal(t, firstReport.RequestID, secondReport.RequestID)
}

func TestAnalyzeRejectsUnsupportedContentType(t *testing.T) {
	router := newTestApplication(t).router()

	req := httptest.NewRequest(http.MethodPost, "/analyze", bytes.NewReader([]byte{0x1, 0x2}))
	req.Header.Set("Content-Type", "application/octet-stream")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnsupportedMediaType, w.Code)
}

func TestHealthEndpoint(t *testing.T) {
	router := newTestApplication(t).router()

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, false, body["ml"])
	assert.Equal(t, false, body["redis"])
}

func TestMetricsEndpoint(t *testing.T) {
	router := newTestApplication(t).router()

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "analyses_total")
	assert.Contains(t, w.Body.String(), "compression")
}

func TestHistoryRecentEndpoint(t *testing.T) {
	router := newTestApplication(t).router()

	req := httptest.NewRequest(http.MethodGet, "/history/recent?limit=5", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, float64(0), body["count"])
}

func TestSecurityHeadersOnResponses(t *testing.T) {
	router := newTestApplication(t).router()

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
}

func TestIntQuery(t *testing.T) {
	gin.SetMode(gin.TestMode)

	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, "/history/recent?limit=25", nil)
	assert.Equal(t, 25, intQuery(c, "limit", 50))

	c, _ = gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, "/history/recent?limit=bogus", nil)
	assert.Equal(t, 50, intQuery(c, "limit", 50))

	c, _ = gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, "/history/recent", nil)
	assert.Equal(t, 50, intQuery(c, "limit", 50))
}
