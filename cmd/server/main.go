package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/phishmeter/phishmeter/internal/analyzer"
	"github.com/phishmeter/phishmeter/internal/cache"
	"github.com/phishmeter/phishmeter/internal/config"
	"github.com/phishmeter/phishmeter/internal/database"
	"github.com/phishmeter/phishmeter/internal/errors"
	"github.com/phishmeter/phishmeter/internal/middleware"
	"github.com/phishmeter/phishmeter/internal/mlscore"
	"github.com/phishmeter/phishmeter/internal/monitoring"
	"github.com/phishmeter/phishmeter/internal/ratelimit"
	"github.com/phishmeter/phishmeter/internal/security"
)

const historyRetentionDays = 90

// application bundles the wired components behind the HTTP surface
type application struct {
	cfg         config.Settings
	db          *database.DB
	history     *database.HistoryService
	mlScorer    *mlscore.Scorer
	analyzer    *analyzer.Analyzer
	metrics     *monitoring.Metrics
	logger      *monitoring.Logger
	redisClient *ratelimit.RedisClient
	limiter     *ratelimit.RateLimiter
	cache       *cache.Cache
	compression *middleware.CompressionMiddleware
	security    *security.SecurityMiddleware
}

func main() {
	// Structured logging setup
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg := config.Load()

	db, err := database.NewDB(cfg.DataDir)
	if err != nil {
		slog.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	history := database.NewHistoryService(database.NewRepository(db))

	// ML scorer degrades to unavailable when model or runtime is missing
	mlScorer := mlscore.NewScorer(cfg.ModelPath)

	appMetrics := monitoring.NewMetrics()

	// Redis-backed rate limiting with in-memory fallback
	redisClient, err := ratelimit.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword, 0)
	if err != nil {
		slog.Warn("Redis unavailable, rate limiting falls back to in-memory", "error", err)
	}

	limiterConfig := ratelimit.DefaultConfig()
	limiterConfig.IPLimitPerMin = cfg.RateLimitPerMin

	app := &application{
		cfg:         cfg,
		db:          db,
		history:     history,
		mlScorer:    mlScorer,
		analyzer:    analyzer.New(cfg, mlScorer, logger).WithProbeRecorder(appMetrics),
		metrics:     appMetrics,
		logger:      monitoring.NewLogger(),
		redisClient: redisClient,
		limiter:     ratelimit.NewRateLimiter(redisClient, limiterConfig, appMetrics),
		cache:       cache.NewCache(cfg.CacheTTL),
		compression: middleware.NewCompressionMiddleware(middleware.DefaultCompressionConfig()),
		security:    security.NewSecurityMiddleware(security.DefaultSecurityConfig()),
	}

	// Retention pass daily, and once at startup
	retentionDone := make(chan struct{})
	go func() {
		history.PruneExpired(historyRetentionDays)

		ticker := time.NewTicker(24 * time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				history.PruneExpired(historyRetentionDays)
			case <-retentionDone:
				return
			}
		}
	}()

	// Start server with graceful shutdown
	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: app.router(),
	}

	go func() {
		slog.Info("Starting server", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	slog.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
	}

	close(retentionDone)
	mlScorer.Close()
	errors.SafeClose(history, "history service")
	if redisClient != nil {
		errors.SafeClose(redisClient, "redis client")
	}

	slog.Info("Server exited")
}

func (app *application) router() *gin.Engine {
	r := gin.New()

	r.Use(monitoring.MonitoringMiddleware(app.metrics, app.logger))
	r.Use(errors.ErrorHandler())
	r.Use(errors.RecoveryHandler())
	r.Use(cors.New(cors.Config{
		AllowOrigins:  security.DefaultSecurityConfig().AllowedOrigins,
		AllowMethods:  []string{"GET", "POST", "DELETE"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept"},
		ExposeHeaders: []string{"X-RateLimit-Limit", "X-RateLimit-Remaining", "Retry-After"},
		MaxAge:        12 * time.Hour,
	}))
	r.Use(security.SecurityHeadersMiddleware())
	r.Use(app.security.RequestTimeout)
	r.Use(app.security.ValidateContentType)
	r.Use(app.limiter.IPRateLimitMiddleware())
	r.Use(app.compression.Handler())
	r.Use(app.cache.Middleware(app.metrics))

	r.POST("/analyze", app.handleAnalyze)
	r.GET("/health", app.handleHealth)
	r.GET("/metrics", app.handleMetrics)
	r.GET("/cache/stats", app.handleCacheStats)
	r.GET("/history/recent", app.handleHistoryRecent)
	r.GET("/history/host/:host", app.handleHistoryByHost)
	r.GET("/history/risk-counts", app.handleRiskCounts)
	r.GET("/ratelimit/status", app.limiter.HandleRateLimitStatus())
	r.DELETE("/ratelimit/reset/:ip", app.limiter.HandleRateLimitReset())

	return r
}

func (app *application) handleAnalyze(c *gin.Context) {
	var req struct {
		URL string `json:"url" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(errors.NewValidationError("request body must be JSON with a url field"))
		return
	}

	if err := app.security.ValidateURL(req.URL); err != nil {
		c.Error(errors.NewValidationError(err.Error()))
		return
	}

	start := time.Now()
	report := app.analyzer.Analyze(c.Request.Context(), req.URL)

	app.metrics.RecordAnalysis(string(report.Heuristic.Risk))
	if report.ML.Available {
		app.metrics.IncrementMLEvaluation()
	}
	if report.Features.DomainAgeDays > 0 {
		app.metrics.IncrementWhoisLookup()
	}
	app.logger.AnalysisLogger(
		report.Features.Host,
		string(report.Heuristic.Risk),
		report.Heuristic.Score,
		time.Since(start),
		false,
	)

	app.history.Record(report)

	c.JSON(http.StatusOK, report)
}

func (app *application) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"version":   "1.0.0",
		"ml":        app.mlScorer.Available(),
		"redis":     app.redisClient != nil && app.redisClient.IsEnabled(),
		"database":  app.db.GetPoolStats(),
	})
}

func (app *application) handleMetrics(c *gin.Context) {
	stats := app.metrics.GetStats()
	stats["compression"] = app.compression.Stats()
	c.JSON(http.StatusOK, stats)
}

func (app *application) handleCacheStats(c *gin.Context) {
	c.JSON(http.StatusOK, app.cache.Stats())
}

func (app *application) handleHistoryRecent(c *gin.Context) {
	records, err := app.history.Recent(intQuery(c, "limit", 50))
	if err != nil {
		c.Error(errors.NewStorageError("failed to load recent analyses", err))
		return
	}

	c.JSON(http.StatusOK, gin.H{"analyses": records, "count": len(records)})
}

func (app *application) handleHistoryByHost(c *gin.Context) {
	records, err := app.history.ByHost(c.Param("host"), intQuery(c, "limit", 50))
	if err != nil {
		c.Error(errors.NewStorageError("failed to load host analyses", err))
		return
	}

	c.JSON(http.StatusOK, gin.H{"analyses": records, "count": len(records)})
}

func (app *application) handleRiskCounts(c *gin.Context) {
	counts, err := app.history.RiskCounts()
	if err != nil {
		c.Error(errors.NewStorageError("failed to count analyses", err))
		return
	}

	c.JSON(http.StatusOK, gin.H{"counts": counts})
}

func intQuery(c *gin.Context, name string, defaultValue int) int {
	raw := c.Query(name)
	if raw == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return defaultValue
	}
	return n
}
