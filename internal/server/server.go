package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"media-saver/internal/convert"
	"media-saver/internal/httpx"
	"media-saver/internal/monitor"
	"media-saver/internal/parser"
	"media-saver/internal/ratelimit"
	"media-saver/internal/webdav"
	"media-saver/pkg/models"
)

// Server represents the API server
type Server struct {
	config       *models.Config
	store        models.HistoryStore
	orchestrator *convert.Orchestrator
	uploader     *webdav.Uploader
	monitor      *monitor.Monitor
	rateLimitMgr *ratelimit.Manager
	httpServer   *http.Server
	logger       zerolog.Logger
}

// NewServer creates a new API server
func NewServer(cfg *models.Config, store models.HistoryStore) *Server {
	// Shared HTTP client for parser and WebDAV traffic
	httpCfg := httpx.Config{}
	if cfg.Proxy.Enabled && cfg.Proxy.Host != "" {
		httpCfg.ProxyURL = fmt.Sprintf("%s://%s:%d", cfg.Proxy.Type, cfg.Proxy.Host, cfg.Proxy.Port)
	}
	httpClient := httpx.New(httpCfg)

	parserClient := parser.New(httpClient)
	if cfg.Convert.ParseTimeout > 0 {
		parserClient.SetTimeout(time.Duration(cfg.Convert.ParseTimeout) * time.Second)
	}

	uploader := webdav.NewUploader(httpClient)
	if cfg.Convert.DownloadTimeout > 0 {
		uploader.SetDownloadTimeout(time.Duration(cfg.Convert.DownloadTimeout) * time.Second)
	}

	orchestrator := convert.New(parserClient, uploader, store)
	if cfg.Convert.TaskDelay > 0 {
		orchestrator.SetTaskDelay(time.Duration(cfg.Convert.TaskDelay) * time.Second)
	}
	orchestrator.SetFolderPath(cfg.Convert.FolderPath)

	// Create monitor and feed it transfer telemetry from the uploader
	mon := monitor.NewMonitor()
	mon.Start()
	uploader.SetMetrics(mon)

	// Set Gin mode
	if cfg.Log.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	// Create rate limit manager
	rateLimitConfig := &ratelimit.Config{
		Enabled:           cfg.RateLimit.Enabled,
		RequestsPerSecond: int(cfg.RateLimit.RequestsPerSecond),
		Burst:             cfg.RateLimit.Burst,
		MaxConcurrent:     cfg.RateLimit.MaxConcurrent,
		WhitelistedIPs:    cfg.RateLimit.WhitelistedIPs,
	}
	rateLimitMgr := ratelimit.NewManager(rateLimitConfig)

	return &Server{
		config:       cfg,
		store:        store,
		orchestrator: orchestrator,
		uploader:     uploader,
		monitor:      mon,
		rateLimitMgr: rateLimitMgr,
		logger:       zerolog.New(os.Stdout).With().Timestamp().Str("component", "server").Logger(),
	}
}

// Router builds the HTTP router with all middleware and routes
func (s *Server) Router() *gin.Engine {
	router := gin.New()

	// Add middleware
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(s.corsMiddleware())

	// Setup routes
	s.setupRoutes(router)

	return router
}

// Start starts the API server
func (s *Server) Start() error {
	router := s.Router()

	// Create HTTP server
	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port),
		Handler:      router,
		ReadTimeout:  time.Duration(s.config.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(s.config.Server.WriteTimeout) * time.Second,
	}

	// Start server
	go func() {
		s.logger.Info().Str("address", s.httpServer.Addr).Msg("Starting API server")
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Fatal().Err(err).Msg("Error starting server")
		}
	}()

	return nil
}

// Stop stops the API server
func (s *Server) Stop() error {
	s.logger.Info().Msg("Stopping API server...")

	// Create context with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Stop monitor
	s.monitor.Stop()

	// Shutdown HTTP server
	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.logger.Error().Err(err).Msg("Error shutting down server")
		return err
	}

	s.logger.Info().Msg("API server stopped")
	return nil
}

// setupRoutes sets up the API routes
func (s *Server) setupRoutes(router *gin.Engine) {
	// Apply rate limiting to all API routes
	api := router.Group("/api")
	api.Use(s.rateLimitMgr.Middleware())

	// Health check
	router.GET("/health", s.healthCheck)

	// Metrics endpoint
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API v1 routes
	v1 := api.Group("/v1")
	{
		// Conversion routes - stricter rate limiting, these fan out to
		// parser APIs and WebDAV servers
		conversions := v1.Group("")
		{
			convertLimiter := ratelimit.NewRateLimiter()
			conversions.Use(convertLimiter.Middleware(2, 5))

			conversions.POST("/parse", s.parsePreview)
			conversions.POST("/convert", s.convertSingle)
			conversions.POST("/batches", s.convertBatch)
		}

		// History routes - moderate rate limiting
		history := v1.Group("")
		{
			historyLimiter := ratelimit.NewRateLimiter()
			history.Use(historyLimiter.Middleware(10, 20))

			history.GET("/tasks", s.listTasks)
			history.GET("/tasks/:id", s.getTask)
			history.GET("/batches", s.listBatches)
			history.GET("/batches/:id", s.getBatch)
			history.GET("/stats", s.getStats)
			history.GET("/stats/system", s.getSystemStats)
		}

		// Configuration and connectivity routes
		configGroup := v1.Group("")
		{
			configLimiter := ratelimit.NewRateLimiter()
			configGroup.Use(configLimiter.Middleware(5, 10))

			configGroup.GET("/parsers", s.listParsers)
			configGroup.GET("/webdav", s.listWebDAV)
			configGroup.POST("/webdav/test", s.testWebDAV)
		}
	}
}

// Health check handler
func (s *Server) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"timestamp": time.Now().Unix(),
		"version":   "1.0.0",
	})
}

// resolveParser picks the requested parser config, falling back to the
// default one
func (s *Server) resolveParser(key string) (models.ParserConfig, error) {
	if key != "" {
		if p, ok := s.config.FindParser(key); ok {
			return p, nil
		}
		return models.ParserConfig{}, fmt.Errorf("parser %q not configured", key)
	}
	if p, ok := s.config.DefaultParser(); ok {
		return p, nil
	}
	return models.ParserConfig{}, fmt.Errorf("no parser API configured")
}

// resolveWebDAV picks the requested WebDAV config, falling back to the
// default one
func (s *Server) resolveWebDAV(key string) (models.WebDAVConfig, error) {
	if key != "" {
		if w, ok := s.config.FindWebDAV(key); ok {
			return w, nil
		}
		return models.WebDAVConfig{}, fmt.Errorf("WebDAV server %q not configured", key)
	}
	if w, ok := s.config.DefaultWebDAV(); ok {
		return w, nil
	}
	return models.WebDAVConfig{}, fmt.Errorf("no WebDAV server configured")
}

// Parse preview handler: parses a share link without uploading
func (s *Server) parsePreview(c *gin.Context) {
	var req struct {
		URL    string `json:"url" binding:"required"`
		Parser string `json:"parser"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	parserCfg, err := s.resolveParser(req.Parser)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	start := time.Now()
	info, raw, err := s.orchestrator.Preview(c.Request.Context(), req.URL, parserCfg)
	s.monitor.RecordParseRequest(parserCfg.Name, time.Since(start))

	if err != nil {
		s.monitor.RecordParseError(parserCfg.Name, errorType(err))
		response := gin.H{"success": false, "error": err.Error()}
		if raw != nil {
			response["raw"] = raw
		}
		c.JSON(http.StatusOK, response)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"info":    info,
		"raw":     raw,
	})
}

// Convert single handler: runs one conversion synchronously
func (s *Server) convertSingle(c *gin.Context) {
	var req struct {
		URL    string `json:"url" binding:"required"`
		Parser string `json:"parser"`
		WebDAV string `json:"webdav"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	parserCfg, err := s.resolveParser(req.Parser)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	webdavCfg, err := s.resolveWebDAV(req.WebDAV)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	task := s.orchestrator.NewTask(req.URL)
	start := time.Now()
	s.monitor.RecordConversionStart(string(models.MediaTypeVideo))

	task = s.orchestrator.ConvertSingle(c.Request.Context(), task, parserCfg, webdavCfg, nil)

	mediaType := string(models.MediaTypeVideo)
	if task.ParsedInfo != nil {
		mediaType = string(task.ParsedInfo.MediaType)
	}
	if task.Status == models.StatusSuccess {
		s.monitor.RecordConversionSuccess(mediaType, time.Since(start))
	} else {
		s.monitor.RecordConversionFailure(mediaType, "conversion", time.Since(start))
	}

	c.JSON(http.StatusOK, task)
}

// Convert batch handler: starts a batch in the background and returns
// its ID for polling
func (s *Server) convertBatch(c *gin.Context) {
	var req struct {
		Name   string   `json:"name"`
		URLs   []string `json:"urls"`
		Text   string   `json:"text"`
		Parser string   `json:"parser"`
		WebDAV string   `json:"webdav"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	urls := req.URLs
	if len(urls) == 0 && req.Text != "" {
		urls = convert.ParseShareURLs(req.Text)
	}
	if len(urls) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no valid URLs provided"})
		return
	}

	parserCfg, err := s.resolveParser(req.Parser)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	webdavCfg, err := s.resolveWebDAV(req.WebDAV)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	batch := s.orchestrator.NewBatch(req.Name, urls)
	if err := s.saveBatch(batch); err != nil {
		s.logger.Warn().Err(err).Msg("Failed to persist new batch")
	}

	s.monitor.UpdateBatchQueueSize(len(urls))

	go func() {
		defer s.monitor.UpdateBatchQueueSize(0)
		s.orchestrator.ConvertBatch(context.Background(), batch, parserCfg, webdavCfg, nil)
	}()

	c.JSON(http.StatusAccepted, gin.H{
		"batch_id":    batch.ID,
		"total_tasks": batch.TotalTasks,
	})
}

func (s *Server) saveBatch(batch *models.BatchTask) error {
	if s.store == nil {
		return nil
	}
	return s.store.SaveBatch(batch)
}

// List tasks handler
func (s *Server) listTasks(c *gin.Context) {
	// Parse query parameters
	filter := models.TaskFilter{
		Limit: 50,
	}

	if status := c.Query("status"); status != "" {
		st := models.TaskStatus(status)
		filter.Status = &st
	}

	if batchID := c.Query("batch_id"); batchID != "" {
		filter.BatchID = &batchID
	}

	if limit := c.Query("limit"); limit != "" {
		if l, err := strconv.Atoi(limit); err == nil {
			filter.Limit = l
		}
	}

	if offset := c.Query("offset"); offset != "" {
		if o, err := strconv.Atoi(offset); err == nil {
			filter.Offset = o
		}
	}

	tasks, err := s.store.ListTasks(filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"tasks":  tasks,
		"total":  len(tasks),
		"limit":  filter.Limit,
		"offset": filter.Offset,
	})
}

// Get task handler
func (s *Server) getTask(c *gin.Context) {
	id := c.Param("id")

	task, err := s.store.GetTask(id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	if task == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Task not found"})
		return
	}

	c.JSON(http.StatusOK, task)
}

// List batches handler
func (s *Server) listBatches(c *gin.Context) {
	limit := 20
	if l := c.Query("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil {
			limit = parsed
		}
	}

	batches, err := s.store.ListBatches(limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"batches": batches,
		"total":   len(batches),
	})
}

// Get batch handler
func (s *Server) getBatch(c *gin.Context) {
	id := c.Param("id")

	batch, err := s.store.GetBatch(id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	if batch == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Batch not found"})
		return
	}

	c.JSON(http.StatusOK, batch)
}

// Get stats handler
func (s *Server) getStats(c *gin.Context) {
	stats, err := s.store.GetStats()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, stats)
}

// Get system stats handler
func (s *Server) getSystemStats(c *gin.Context) {
	stats := s.monitor.HealthCheck()
	c.JSON(http.StatusOK, stats)
}

// List parsers handler. API keys are never exposed.
func (s *Server) listParsers(c *gin.Context) {
	parsers := make([]gin.H, 0, len(s.config.Parsers))
	for _, p := range s.config.Parsers {
		parsers = append(parsers, gin.H{
			"id":             p.ID,
			"name":           p.Name,
			"api_url":        p.APIURL,
			"is_default":     p.IsDefault,
			"request_method": p.Method(),
		})
	}

	c.JSON(http.StatusOK, gin.H{"parsers": parsers})
}

// List WebDAV servers handler. Passwords are never exposed.
func (s *Server) listWebDAV(c *gin.Context) {
	servers := make([]gin.H, 0, len(s.config.WebDAV))
	for _, w := range s.config.WebDAV {
		servers = append(servers, gin.H{
			"id":         w.ID,
			"name":       w.Name,
			"url":        w.URL,
			"username":   w.Username,
			"base_path":  w.BasePath,
			"is_default": w.IsDefault,
		})
	}

	c.JSON(http.StatusOK, gin.H{"webdav": servers})
}

// Test WebDAV handler: verifies connectivity and credentials. Accepts
// either a configured server reference or inline settings.
func (s *Server) testWebDAV(c *gin.Context) {
	var req struct {
		WebDAV   string `json:"webdav"`
		URL      string `json:"url"`
		Username string `json:"username"`
		Password string `json:"password"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var cfg models.WebDAVConfig
	if req.URL != "" {
		cfg = models.WebDAVConfig{URL: req.URL, Username: req.Username, Password: req.Password}
	} else {
		resolved, err := s.resolveWebDAV(req.WebDAV)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		cfg = resolved
	}

	if err := s.uploader.Test(c.Request.Context(), cfg); err != nil {
		c.JSON(http.StatusOK, gin.H{"success": false, "error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "message": "WebDAV connection successful"})
}

// errorType buckets an error for metric labels
func errorType(err error) string {
	switch {
	case models.IsInputError(err):
		return "input"
	case models.IsGatewayError(err):
		return "gateway"
	case models.IsNormalizationError(err):
		return "normalization"
	case models.IsUploadError(err):
		return "upload"
	default:
		return "other"
	}
}

// CORS middleware
func (s *Server) corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// Run runs the server with signal handling
func (s *Server) Run() error {
	// Start server
	if err := s.Start(); err != nil {
		return err
	}

	// Set up signal handling
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// Wait for signal
	<-sigChan

	// Stop server
	return s.Stop()
}
