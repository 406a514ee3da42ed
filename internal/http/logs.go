package http

import (
	"net/http"
	"net/url"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/imxin/internal/export"
	"github.com/fyrsmithlabs/imxin/internal/insight"
	"github.com/fyrsmithlabs/imxin/internal/logging"
	"github.com/fyrsmithlabs/imxin/internal/resilience"
	"github.com/fyrsmithlabs/imxin/internal/ruler"
	"github.com/fyrsmithlabs/imxin/internal/storage"
)

// LogsResponse is the response body for GET /api/v1/logs.
type LogsResponse struct {
	Logs  []ruler.LogEntry `json:"logs"`
	Count int              `json:"count"`
}

// EditExpressionRequest replaces an entry's expression text.
type EditExpressionRequest struct {
	Expression string `json:"expression"`
}

// InsightRequest selects the entry to reflect on. An empty timestamp means
// the newest entry.
type InsightRequest struct {
	Timestamp string `json:"timestamp"`
}

// SummaryResponse is the response body for GET /api/v1/insight/summary.
type SummaryResponse struct {
	Summary string `json:"summary"`
}

// ScrubRequest is the request body for POST /api/v1/scrub.
type ScrubRequest struct {
	Content string `json:"content"`
}

// ScrubResponse is the response body for POST /api/v1/scrub.
type ScrubResponse struct {
	Content       string         `json:"content"`
	FindingsCount int            `json:"findings_count"`
	ByRule        map[string]int `json:"by_rule,omitempty"`
}

func timestampParam(c echo.Context) (string, error) {
	ts, err := url.PathUnescape(c.Param("timestamp"))
	if err != nil || ts == "" {
		return "", echo.NewHTTPError(http.StatusBadRequest, "invalid timestamp")
	}
	return ts, nil
}

func (s *Server) handleListLogs(c echo.Context) error {
	logs := s.logs.GetLogs(c.Request().Context())
	return c.JSON(http.StatusOK, LogsResponse{Logs: logs, Count: len(logs)})
}

func (s *Server) handleDeleteLog(c echo.Context) error {
	ts, err := timestampParam(c)
	if err != nil {
		return err
	}
	if err := s.logs.DeleteLog(c.Request().Context(), ts); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) handleEditExpression(c echo.Context) error {
	ts, err := timestampParam(c)
	if err != nil {
		return err
	}
	var req EditExpressionRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	entry, err := s.logs.UpdateExpression(c.Request().Context(), ts, req.Expression)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, entry)
}

func (s *Server) handleExport(c echo.Context) error {
	format, err := export.ParseFormat(c.QueryParam("format"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	logs := s.logs.GetLogs(c.Request().Context())
	data, err := export.Render(format, logs)
	if err != nil {
		return err
	}
	c.Response().Header().Set(echo.HeaderContentDisposition,
		`attachment; filename="`+format.Filename(s.config.Now().In(s.config.Location))+`"`)
	return c.Blob(http.StatusOK, format.ContentType(), data)
}

func (s *Server) handleDashboard(c echo.Context) error {
	logs := s.logs.GetLogs(c.Request().Context())
	return c.JSON(http.StatusOK, resilience.BuildDashboard(logs, s.config.Now(), s.config.Location))
}

func (s *Server) handleInsight(c echo.Context) error {
	var req InsightRequest
	if c.Request().ContentLength > 0 {
		if err := bindJSON(c, &req); err != nil {
			return err
		}
	}
	ctx := c.Request().Context()
	logs := s.logs.GetLogs(ctx)

	var entry *ruler.LogEntry
	for i := range logs {
		if req.Timestamp == "" || logs[i].Timestamp == req.Timestamp {
			entry = &logs[i]
			break
		}
	}
	if entry == nil {
		if req.Timestamp == "" {
			return echo.NewHTTPError(http.StatusNotFound, "no log entries yet")
		}
		return storage.ErrLogNotFound
	}

	if s.insight == nil {
		primary, _ := entry.PrimaryEmotion()
		return c.JSON(http.StatusOK, insight.Result{
			Insight:  insight.Fallback(primary.Quadrant),
			Fallback: true,
			Reason:   "not_configured",
		})
	}

	res := s.insight.Analyze(ctx, *entry, logs)
	s.logger.Debug(ctx, "insight served",
		zap.String("timestamp", entry.Timestamp), zap.Bool("fallback", res.Fallback))
	return c.JSON(http.StatusOK, res)
}

func (s *Server) handleInsightSummary(c echo.Context) error {
	logs := s.logs.GetLogs(c.Request().Context())
	return c.JSON(http.StatusOK, SummaryResponse{Summary: insight.SummarizeHistory(len(logs))})
}

func (s *Server) handleScrub(c echo.Context) error {
	var req ScrubRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	if req.Content == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "content field is required")
	}

	res := s.scrubber.Scrub(req.Content)
	ctx := c.Request().Context()
	s.logger.Debug(ctx, "scrubbed content",
		zap.Int("findings", res.Count()), logging.TextLen("content", req.Content))

	return c.JSON(http.StatusOK, ScrubResponse{
		Content:       res.Scrubbed,
		FindingsCount: res.Count(),
		ByRule:        res.ByRule,
	})
}
