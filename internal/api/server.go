// Package api exposes the reconciliation pipeline over HTTP.
//
// Routes:
//
//	GET  /health                   liveness probe
//	POST /api/format-statement/    multipart upload, field "files"
//	GET  /api/tracking             tracking ledger entries
package api

import (
	"net/http"
	"sync"
	"time"

	"contra-reconciliation-service/internal/pipeline"
	"contra-reconciliation-service/internal/tracking"
	"contra-reconciliation-service/pkg/logger"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// DefaultMaxUploadBytes caps the size of an upload request.
const DefaultMaxUploadBytes = 64 << 20

// Config holds the HTTP server settings.
type Config struct {
	AllowOrigins   []string `json:"allow_origins"`
	MaxUploadBytes int64    `json:"max_upload_bytes"`
	// ProcessedDir is reported back to clients as the location of the
	// written workbooks.
	ProcessedDir string `json:"processed_dir"`
}

// DefaultConfig returns the settings used by the web front end in
// development.
func DefaultConfig() *Config {
	return &Config{
		AllowOrigins:   []string{"http://localhost:3000", "http://localhost:5173"},
		MaxUploadBytes: DefaultMaxUploadBytes,
		ProcessedDir:   "Matched_Statemants",
	}
}

// Server handles uploads.
type Server struct {
	runner *pipeline.Runner
	ledger *tracking.Ledger
	config *Config
	logger logger.Logger

	// runs are serialized; the batch service is not safe for concurrent use.
	mu sync.Mutex
}

// NewServer creates a server. ledger may be nil, in which case the tracking
// route reports the ledger as disabled.
func NewServer(runner *pipeline.Runner, ledger *tracking.Ledger, config *Config) *Server {
	if config == nil {
		config = DefaultConfig()
	}
	if config.MaxUploadBytes <= 0 {
		config.MaxUploadBytes = DefaultMaxUploadBytes
	}
	return &Server{
		runner: runner,
		ledger: ledger,
		config: config,
		logger: logger.GetGlobalLogger().WithComponent("api"),
	}
}

// WithLogger replaces the server's logger.
func (s *Server) WithLogger(log logger.Logger) *Server {
	s.logger = log.WithComponent("api")
	return s
}

// Router builds the gin engine.
func (s *Server) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(s.requestLogger())
	router.MaxMultipartMemory = s.config.MaxUploadBytes

	router.Use(cors.New(cors.Config{
		AllowOrigins:     s.allowOrigins(),
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})

	api := router.Group("/api")
	{
		api.POST("/format-statement", s.formatStatement)
		api.POST("/format-statement/", s.formatStatement)
		api.GET("/tracking", s.trackingEntries)
	}

	return router
}

// allowOrigins falls back to the development origins when none are
// configured; cors rejects an empty list.
func (s *Server) allowOrigins() []string {
	if len(s.config.AllowOrigins) == 0 {
		return DefaultConfig().AllowOrigins
	}
	return s.config.AllowOrigins
}

// requestLogger logs each request through the structured logger instead of
// gin's default writer. Health checks are skipped.
func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		if c.Request.URL.Path == "/health" {
			return
		}
		s.logger.WithFields(logger.Fields{
			"method":   c.Request.Method,
			"path":     c.Request.URL.Path,
			"status":   c.Writer.Status(),
			"duration": time.Since(start).String(),
		}).Info("Handled request")
	}
}
