package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"gocoherence/adapters/stats/stages"
	"gocoherence/app"
	"gocoherence/internal"
	"gocoherence/ports"
)

// Deps wires the server to the application layer
type Deps struct {
	Service  *app.CoherenceService
	Store    ports.ReportStorePort
	Exporter ports.ReportExporterPort // optional
	Sources  SourceFactory            // optional; POST /api/reports is disabled without it
	Options  stages.Options
	Hub      *SSEHub // optional
	Logger   *internal.Logger
}

// Server exposes analysis reports over HTTP
type Server struct {
	router  *gin.Engine
	handler *ReportHandler
	logger  *internal.Logger
}

// NewServer builds the router. ginMode is one of gin's debug, release or test modes.
func NewServer(deps Deps, ginMode string) *Server {
	if ginMode != "" {
		gin.SetMode(ginMode)
	}
	logger := deps.Logger
	if logger == nil {
		logger = internal.DefaultLogger
	}
	logger = logger.With("api")

	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(logger))

	s := &Server{
		router: router,
		handler: &ReportHandler{
			service:  deps.Service,
			store:    deps.Store,
			exporter: deps.Exporter,
			sources:  deps.Sources,
			options:  deps.Options,
			hub:      deps.Hub,
			logger:   logger,
		},
		logger: logger,
	}
	s.setupRoutes(deps)
	return s
}

func (s *Server) setupRoutes(deps Deps) {
	h := s.handler
	s.router.GET("/healthz", h.Health)

	api := s.router.Group("/api")
	api.GET("/reports", h.ListReports)
	if deps.Sources != nil && deps.Service != nil {
		api.POST("/reports", h.CreateReport)
	}
	reports := api.Group("/reports/:id")
	reports.GET("", h.GetReport)
	reports.GET("/netvar", h.GetNetVar)
	reports.GET("/correlation", h.GetCorrelation)
	reports.GET("/coherence", h.GetCoherence)
	reports.GET("/scores", h.GetScores)
	reports.GET("/walks", h.GetWalks)
	reports.GET("/markdown", h.GetMarkdown)
	reports.GET("/xlsx", h.GetWorkbook)
	api.GET("/compare", h.Compare)
	if deps.Hub != nil {
		api.GET("/events", deps.Hub.HandleSSE)
	}
}

// Handler returns the router for use with httptest or a custom server
func (s *Server) Handler() http.Handler { return s.router }

// ListenAndServe serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening on %s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.logger.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	}
}

func requestLogger(logger *internal.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("%s %s %d %.2fms", c.Request.Method, c.Request.URL.Path, c.Writer.Status(),
			float64(time.Since(start).Nanoseconds())/1e6)
	}
}
