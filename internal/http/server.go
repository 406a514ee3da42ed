// Package http exposes the check-in flow, the log collection and the
// dashboard over a loopback JSON API.
package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/imxin/internal/flow"
	"github.com/fyrsmithlabs/imxin/internal/insight"
	"github.com/fyrsmithlabs/imxin/internal/logging"
	"github.com/fyrsmithlabs/imxin/internal/ruler"
	"github.com/fyrsmithlabs/imxin/internal/scrub"
	"github.com/fyrsmithlabs/imxin/internal/storage"
)

// LogStore is the read side and the two permitted edits of the log collection.
type LogStore interface {
	GetLogs(ctx context.Context) []ruler.LogEntry
	DeleteLog(ctx context.Context, ts string) error
	UpdateExpression(ctx context.Context, ts, text string) (ruler.LogEntry, error)
}

// Analyzer produces advisory insights. *insight.Client implements it.
type Analyzer interface {
	Analyze(ctx context.Context, entry ruler.LogEntry, history []ruler.LogEntry) insight.Result
}

// Config holds HTTP server configuration.
type Config struct {
	Host string
	Port int
	// Location buckets dashboard days. Defaults to time.Local.
	Location *time.Location
	// Gatherer backs /metrics. Defaults to prometheus.DefaultGatherer.
	Gatherer prometheus.Gatherer
	// Now defaults to time.Now.
	Now func() time.Time
	// Version is reported by /health.
	Version string
}

// Deps are the services the server exposes.
type Deps struct {
	Flow     *flow.Controller
	Logs     LogStore
	Insight  Analyzer
	Scrubber scrub.Scrubber
	Logger   *logging.Logger
}

// Server provides HTTP endpoints for imxin.
type Server struct {
	echo     *echo.Echo
	flow     *flow.Controller
	logs     LogStore
	insight  Analyzer
	scrubber scrub.Scrubber
	logger   *logging.Logger
	config   *Config
}

// NewServer creates a new HTTP server.
func NewServer(deps Deps, cfg *Config) (*Server, error) {
	if deps.Flow == nil {
		return nil, errors.New("flow controller is required")
	}
	if deps.Logs == nil {
		return nil, errors.New("log store is required")
	}
	if deps.Logger == nil {
		return nil, errors.New("logger is required for request tracking and debugging")
	}
	if deps.Scrubber == nil {
		deps.Scrubber = scrub.Nop{}
	}
	if cfg == nil {
		cfg = &Config{Host: "127.0.0.1", Port: 9470}
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if cfg.Gatherer == nil {
		cfg.Gatherer = prometheus.DefaultGatherer
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	logger := deps.Logger.Named("http")

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = errorHandler(logger)

	e.Use(middleware.Recover())
	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{Generator: uuid.NewString}))
	e.Use(NewHTTPMetrics(logger).MetricsMiddleware())
	// Errors are rendered here, so the metrics middleware sees final statuses.
	e.Use(requestLogger(logger))

	s := &Server{
		echo:     e,
		flow:     deps.Flow,
		logs:     deps.Logs,
		insight:  deps.Insight,
		scrubber: deps.Scrubber,
		logger:   logger,
		config:   cfg,
	}
	s.registerRoutes()
	return s, nil
}

// requestLogger logs one line per request and puts the request id on the
// request context.
func requestLogger(logger *logging.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			rid := c.Response().Header().Get(echo.HeaderXRequestID)
			ctx := logging.WithRequestID(c.Request().Context(), rid)
			c.SetRequest(c.Request().WithContext(ctx))

			err := next(c)
			if err != nil {
				c.Error(err)
			}

			logger.Info(ctx, "http request",
				zap.String("method", c.Request().Method),
				zap.String("path", c.Path()),
				zap.Int("status", c.Response().Status),
				zap.Duration("duration", time.Since(start)),
			)
			return nil
		}
	}
}

func (s *Server) registerRoutes() {
	s.echo.GET("/health", s.handleHealth)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(s.config.Gatherer, promhttp.HandlerOpts{})))

	v1 := s.echo.Group("/api/v1")

	f := v1.Group("/flow")
	f.GET("", s.handleFlowState)
	f.POST("/resume", s.handleResume)
	f.POST("/restart", s.handleRestart)
	f.POST("/quadrants", s.handleQuadrants)
	f.POST("/intensity", s.handleIntensity)
	f.POST("/full-flow", s.handleFullFlow)
	f.POST("/mood", s.handleMood)
	f.POST("/body-scan", s.handleBodyScan)
	f.POST("/body-scan/skip", s.handleSkipBodyScan)
	f.POST("/emotions", s.handleEmotions)
	f.POST("/labeling", s.handleLabeling)
	f.POST("/understanding", s.handleUnderstanding)
	f.POST("/expressing", s.handleExpressing)
	f.POST("/regulating", s.handleRegulating)
	f.POST("/post-mood", s.handlePostMood)
	f.POST("/neuro-check", s.handleNeuroCheck)
	f.POST("/back", s.handleBack)
	f.POST("/reset", s.handleReset)
	f.POST("/upgrade", s.handleUpgrade)

	c := v1.Group("/catalog")
	c.GET("/emotions", s.handleCatalogEmotions)
	c.GET("/needs", s.handleCatalogNeeds)
	c.GET("/strategies", s.handleCatalogStrategies)
	c.GET("/body", s.handleCatalogBody)
	c.GET("/moods", s.handleCatalogMoods)
	c.GET("/prompts", s.handleCatalogPrompts)

	l := v1.Group("/logs")
	l.GET("", s.handleListLogs)
	l.GET("/export", s.handleExport)
	l.DELETE("/:timestamp", s.handleDeleteLog)
	l.PATCH("/:timestamp/expression", s.handleEditExpression)

	v1.GET("/dashboard", s.handleDashboard)
	v1.POST("/insight", s.handleInsight)
	v1.GET("/insight/summary", s.handleInsightSummary)
	v1.POST("/scrub", s.handleScrub)
}

// HealthResponse is the response body for GET /health.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{Status: "ok", Version: s.config.Version})
}

// ErrorResponse is the body of every non-2xx reply.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// statusFor maps domain errors onto HTTP statuses.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, flow.ErrInvalidTransition):
		return http.StatusConflict, "invalid_transition"
	case errors.Is(err, flow.ErrResumePending):
		return http.StatusConflict, "resume_pending"
	case errors.Is(err, flow.ErrMissingPayload):
		return http.StatusBadRequest, "missing_payload"
	case errors.Is(err, flow.ErrUnknownSelection):
		return http.StatusBadRequest, "unknown_selection"
	case errors.Is(err, storage.ErrLogNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, flow.ErrClosed):
		return http.StatusServiceUnavailable, "closed"
	}
	return http.StatusInternalServerError, "internal"
}

func errorHandler(logger *logging.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}
		ctx := c.Request().Context()

		var he *echo.HTTPError
		if errors.As(err, &he) {
			msg := http.StatusText(he.Code)
			if m, ok := he.Message.(string); ok {
				msg = m
			}
			_ = c.JSON(he.Code, ErrorResponse{Error: msg})
			return
		}

		status, code := statusFor(err)
		if status == http.StatusInternalServerError {
			logger.Error(ctx, "request failed", zap.Error(err))
		} else {
			logger.Debug(ctx, "request rejected", zap.String("code", code), zap.Error(err))
		}
		_ = c.JSON(status, ErrorResponse{Error: err.Error(), Code: code})
	}
}

func bindJSON(c echo.Context, v interface{}) error {
	if err := c.Bind(v); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	return nil
}

// Handler returns the underlying http.Handler.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.logger.Info(context.Background(), "starting http server", zap.String("addr", addr))
	return s.echo.Start(addr)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info(ctx, "shutting down http server")
	return s.echo.Shutdown(ctx)
}
