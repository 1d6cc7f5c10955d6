// Package api exposes the keyword search over HTTP.
package api

import (
	"context"
	"io"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/ExclusiveAccount/ctfoutu/pkg/models"
	"github.com/ExclusiveAccount/ctfoutu/pkg/pipeline"
)

// SearchRecord summarizes one search served by the API
type SearchRecord struct {
	Timestamp time.Time `json:"timestamp"`
	Keyword   string    `json:"keyword"`
	CVEs      int       `json:"cves"`
	Exploits  int       `json:"exploits"`
}

// SearchResponse is returned by /api/search
type SearchResponse struct {
	Keyword  string            `json:"keyword"`
	CVEs     []models.CVE      `json:"cves"`
	Exploits []models.Exploit  `json:"exploits"`
	Errors   map[string]string `json:"errors,omitempty"`
}

// ServerConfig contains configuration for the API server
type ServerConfig struct {
	Host        string
	Port        string
	EnableCORS  bool
	HistorySize int
}

// Server serves CVE and exploit searches as JSON
type Server struct {
	router   *gin.Engine
	logger   *logrus.Logger
	config   ServerConfig
	cves     pipeline.CVELookup
	exploits pipeline.ExploitSearcher
	history  []SearchRecord
	mu       sync.RWMutex
}

// NewServer creates a new API server
func NewServer(config ServerConfig, cves pipeline.CVELookup, exploits pipeline.ExploitSearcher, logger *logrus.Logger) *Server {
	if logger == nil {
		logger = logrus.New()
		logger.SetOutput(io.Discard)
	}

	if config.Host == "" {
		config.Host = "127.0.0.1"
	}
	if config.Port == "" {
		config.Port = "8080"
	}
	if config.HistorySize <= 0 {
		config.HistorySize = 20
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(logger))

	s := &Server{
		router:   router,
		logger:   logger,
		config:   config,
		cves:     cves,
		exploits: exploits,
		history:  make([]SearchRecord, 0, config.HistorySize),
	}

	s.setupRoutes()

	return s
}

// setupRoutes configures the API routes
func (s *Server) setupRoutes() {
	if s.config.EnableCORS {
		s.router.Use(func(c *gin.Context) {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
			c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Accept, Origin, Cache-Control, X-Requested-With")
			c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")

			if c.Request.Method == http.MethodOptions {
				c.AbortWithStatus(http.StatusNoContent)
				return
			}

			c.Next()
		})
	}

	s.router.GET("/health", s.handleHealth)

	api := s.router.Group("/api")
	{
		api.GET("/cves", s.handleCVEs)
		api.GET("/exploits", s.handleExploits)
		api.GET("/search", s.handleSearch)
		api.GET("/history", s.handleHistory)
	}
}

// Handler returns the HTTP handler of the server
func (s *Server) Handler() http.Handler {
	return s.router
}

// Addr returns the listen address
func (s *Server) Addr() string {
	return net.JoinHostPort(s.config.Host, s.config.Port)
}

// Start serves until ctx is cancelled
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.Addr(),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Infof("API listening on http://%s", s.Addr())
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		s.logger.Info("Shutting down API server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

// History returns the most recent searches, oldest first
func (s *Server) History() []SearchRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]SearchRecord, len(s.history))
	copy(out, s.history)
	return out
}

func (s *Server) record(keyword string, cves, exploits int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.history = append(s.history, SearchRecord{
		Timestamp: time.Now(),
		Keyword:   keyword,
		CVEs:      cves,
		Exploits:  exploits,
	})

	if len(s.history) > s.config.HistorySize {
		s.history = s.history[len(s.history)-s.config.HistorySize:]
	}
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleCVEs(c *gin.Context) {
	keyword, ok := keywordParam(c)
	if !ok {
		return
	}

	rows, err := s.cves.Lookup(c.Request.Context(), keyword, nil)
	if err != nil {
		s.logger.Errorf("CVE lookup for %q failed: %v", keyword, err)
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	if rows == nil {
		rows = []models.CVE{}
	}

	s.record(keyword, len(rows), 0)
	c.JSON(http.StatusOK, rows)
}

func (s *Server) handleExploits(c *gin.Context) {
	keyword, ok := keywordParam(c)
	if !ok {
		return
	}

	rows, err := s.exploits.Search(c.Request.Context(), keyword, nil)
	if err != nil {
		s.logger.Errorf("Exploit search for %q failed: %v", keyword, err)
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	if rows == nil {
		rows = []models.Exploit{}
	}

	s.record(keyword, 0, len(rows))
	c.JSON(http.StatusOK, rows)
}

func (s *Server) handleSearch(c *gin.Context) {
	keyword, ok := keywordParam(c)
	if !ok {
		return
	}

	resp := SearchResponse{
		Keyword:  keyword,
		CVEs:     []models.CVE{},
		Exploits: []models.Exploit{},
	}
	errs := map[string]string{}

	if rows, err := s.cves.Lookup(c.Request.Context(), keyword, nil); err != nil {
		s.logger.Errorf("CVE lookup for %q failed: %v", keyword, err)
		errs["cves"] = err.Error()
	} else if rows != nil {
		resp.CVEs = rows
	}

	if rows, err := s.exploits.Search(c.Request.Context(), keyword, nil); err != nil {
		s.logger.Errorf("Exploit search for %q failed: %v", keyword, err)
		errs["exploits"] = err.Error()
	} else if rows != nil {
		resp.Exploits = rows
	}

	if len(errs) > 0 {
		resp.Errors = errs
	}

	s.record(keyword, len(resp.CVEs), len(resp.Exploits))
	c.JSON(http.StatusOK, resp)
}

func (s *Server) handleHistory(c *gin.Context) {
	c.JSON(http.StatusOK, s.History())
}

// keywordParam reads the q parameter, answering 400 when it is blank
func keywordParam(c *gin.Context) (string, bool) {
	keyword := strings.TrimSpace(c.Query("q"))
	if keyword == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing query parameter q"})
		return "", false
	}
	return keyword, true
}

func requestLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.WithFields(logrus.Fields{
			"method":   c.Request.Method,
			"path":     c.Request.URL.Path,
			"status":   c.Writer.Status(),
			"duration": time.Since(start),
		}).Debug("API request")
	}
}
