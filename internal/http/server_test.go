package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/imxin/internal/catalog"
	"github.com/fyrsmithlabs/imxin/internal/export"
	"github.com/fyrsmithlabs/imxin/internal/flow"
	"github.com/fyrsmithlabs/imxin/internal/insight"
	"github.com/fyrsmithlabs/imxin/internal/logging"
	"github.com/fyrsmithlabs/imxin/internal/resilience"
	"github.com/fyrsmithlabs/imxin/internal/ruler"
	"github.com/fyrsmithlabs/imxin/internal/scrub"
	"github.com/fyrsmithlabs/imxin/internal/storage"
)

var testNow = time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)

const firstTimestamp = "2024-06-01T09:00:00.000Z"

type testServer struct {
	*Server
	repo *storage.Repository
	ctrl *flow.Controller
	log  *logging.TestLogger
}

func setupTestServer(t *testing.T, analyzer Analyzer) *testServer {
	t.Helper()
	ctx := context.Background()
	tl := logging.NewTestLogger()
	reg := prometheus.NewRegistry()

	repo := storage.NewRepository(storage.NewMemory(), tl.Logger, storage.NewMetrics(reg))
	ctrl, err := flow.New(ctx, repo, flow.Config{
		CenteringDelay: time.Millisecond,
		Now:            func() time.Time { return testNow },
		Logger:         tl.Logger,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = ctrl.Close() })

	sc, err := scrub.New(nil)
	require.NoError(t, err)

	srv, err := NewServer(Deps{
		Flow:     ctrl,
		Logs:     repo,
		Insight:  analyzer,
		Scrubber: sc,
		Logger:   tl.Logger,
	}, &Config{
		Host:     "127.0.0.1",
		Port:     9470,
		Location: time.UTC,
		Gatherer: reg,
		Now:      func() time.Time { return testNow },
		Version:  "test",
	})
	require.NoError(t, err)
	return &testServer{Server: srv, repo: repo, ctrl: ctrl, log: tl}
}

func (s *testServer) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

// quickCheckIn drives a quick check-in through the API and returns the
// committed entry.
func (s *testServer) quickCheckIn(t *testing.T) ruler.LogEntry {
	t.Helper()
	rec := s.do(t, http.MethodPost, "/api/v1/flow/quadrants", QuadrantsRequest{Quadrants: []catalog.Quadrant{catalog.QuadrantRed}})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = s.do(t, http.MethodPost, "/api/v1/flow/mood", MoodRequest{Intensity: 8})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, ruler.StepCentering, decode[flow.State](t, rec).Step())

	require.Eventually(t, func() bool {
		return s.ctrl.State().Step() == ruler.StepBodyScan
	}, time.Second, 5*time.Millisecond)

	rec = s.do(t, http.MethodPost, "/api/v1/flow/body-scan/skip", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.True(t, decode[flow.State](t, rec).CanGoBack)

	rec = s.do(t, http.MethodPost, "/api/v1/flow/labeling", EmotionsRequest{EmotionIDs: []string{"anxious"}})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	st := decode[flow.State](t, rec)
	assert.Equal(t, ruler.StepSummary, st.Step())
	require.NotNil(t, st.LastEntry)
	return *st.LastEntry
}

func TestNewServer(t *testing.T) {
	tl := logging.NewTestLogger()
	repo := storage.NewRepository(storage.NewMemory(), tl.Logger, nil)
	ctrl, err := flow.New(context.Background(), repo, flow.Config{Logger: tl.Logger})
	require.NoError(t, err)
	defer ctrl.Close()

	t.Run("uses defaults when config is nil", func(t *testing.T) {
		srv, err := NewServer(Deps{Flow: ctrl, Logs: repo, Logger: tl.Logger}, nil)
		require.NoError(t, err)
		assert.Equal(t, "127.0.0.1", srv.config.Host)
		assert.Equal(t, 9470, srv.config.Port)
		assert.Equal(t, time.Local, srv.config.Location)
		assert.IsType(t, scrub.Nop{}, srv.scrubber)
	})

	t.Run("requires dependencies", func(t *testing.T) {
		_, err := NewServer(Deps{Logs: repo, Logger: tl.Logger}, nil)
		assert.ErrorContains(t, err, "flow controller")

		_, err = NewServer(Deps{Flow: ctrl, Logger: tl.Logger}, nil)
		assert.ErrorContains(t, err, "log store")

		_, err = NewServer(Deps{Flow: ctrl, Logs: repo}, nil)
		assert.ErrorContains(t, err, "logger is required")
	})
}

func TestHandleHealth(t *testing.T) {
	s := setupTestServer(t, nil)
	rec := s.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, HealthResponse{Status: "ok", Version: "test"}, decode[HealthResponse](t, rec))
	assert.NotEmpty(t, rec.Header().Get(echo.HeaderXRequestID))
}

func TestFlow_QuickCheckIn(t *testing.T) {
	s := setupTestServer(t, nil)
	entry := s.quickCheckIn(t)

	assert.Equal(t, firstTimestamp, entry.Timestamp)
	assert.Equal(t, 8, entry.Intensity)
	assert.False(t, entry.IsFullFlow)

	rec := s.do(t, http.MethodGet, "/api/v1/flow", nil)
	st := decode[flow.State](t, rec)
	assert.True(t, st.CanUpgrade)
	assert.False(t, st.CanGoBack)
	assert.Contains(t, rec.Body.String(), `"can_go_back":false`)

	rec = s.do(t, http.MethodPost, "/api/v1/flow/reset", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, ruler.StepRecognizing, decode[flow.State](t, rec).Step())
}

func TestFlow_Errors(t *testing.T) {
	s := setupTestServer(t, nil)

	t.Run("invalid transition is a conflict", func(t *testing.T) {
		rec := s.do(t, http.MethodPost, "/api/v1/flow/labeling", EmotionsRequest{EmotionIDs: []string{"anxious"}})
		assert.Equal(t, http.StatusConflict, rec.Code)
		assert.Equal(t, "invalid_transition", decode[ErrorResponse](t, rec).Code)
	})

	t.Run("unknown quadrant is a bad request", func(t *testing.T) {
		rec := s.do(t, http.MethodPost, "/api/v1/flow/quadrants", map[string]interface{}{"quadrants": []string{"purple"}})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("malformed body", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/flow/intensity", strings.NewReader("{"))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
		rec := httptest.NewRecorder()
		s.Handler().ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "invalid request body", decode[ErrorResponse](t, rec).Error)
	})
}

func TestCatalog(t *testing.T) {
	s := setupTestServer(t, nil)

	rec := s.do(t, http.MethodGet, "/api/v1/catalog/emotions", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[CatalogEmotionsResponse](t, rec).Emotions, catalog.EmotionCatalogSize)

	rec = s.do(t, http.MethodGet, "/api/v1/catalog/emotions?quadrant=green", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	for _, e := range decode[CatalogEmotionsResponse](t, rec).Emotions {
		assert.Equal(t, catalog.QuadrantGreen, e.Quadrant)
	}

	rec = s.do(t, http.MethodGet, "/api/v1/catalog/strategies?quadrant=blue", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	strategies := decode[map[string]map[catalog.Quadrant][]catalog.Strategy](t, rec)["strategies"]
	assert.Len(t, strategies, 1)
	assert.Equal(t, catalog.StrategiesFor(catalog.QuadrantBlue), strategies[catalog.QuadrantBlue])

	rec = s.do(t, http.MethodGet, "/api/v1/catalog/emotions?quadrant=purple", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	for _, path := range []string{"needs", "body", "moods", "prompts"} {
		rec = s.do(t, http.MethodGet, "/api/v1/catalog/"+path, nil)
		assert.Equal(t, http.StatusOK, rec.Code, path)
	}
}

func TestLogs_EditExportDelete(t *testing.T) {
	s := setupTestServer(t, nil)
	entry := s.quickCheckIn(t)

	rec := s.do(t, http.MethodGet, "/api/v1/logs", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[LogsResponse](t, rec)
	assert.Equal(t, 1, list.Count)

	path := "/api/v1/logs/" + entry.Timestamp
	rec = s.do(t, http.MethodPatch, path+"/expression", EditExpressionRequest{Expression: "想起了考試"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	edited := decode[ruler.LogEntry](t, rec)
	require.NotNil(t, edited.Expressing)
	assert.Equal(t, "想起了考試", edited.Expressing.Expression)
	s.log.AssertNoJournalText(t, "想起了考試")

	rec = s.do(t, http.MethodGet, "/api/v1/logs/export?format=csv", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, export.FormatCSV.ContentType(), rec.Header().Get(echo.HeaderContentType))
	assert.Contains(t, rec.Header().Get(echo.HeaderContentDisposition), "imxin-logs-2024-06-01.csv")
	assert.Contains(t, rec.Body.String(), "想起了考試")

	rec = s.do(t, http.MethodGet, "/api/v1/logs/export?format=xml", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodDelete, path, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, s.repo.GetLogs(context.Background()))

	rec = s.do(t, http.MethodDelete, path, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "not_found", decode[ErrorResponse](t, rec).Code)

	rec = s.do(t, http.MethodPatch, path+"/expression", EditExpressionRequest{Expression: "x"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDashboard(t *testing.T) {
	s := setupTestServer(t, nil)
	s.quickCheckIn(t)

	rec := s.do(t, http.MethodGet, "/api/v1/dashboard", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	d := decode[resilience.Dashboard](t, rec)
	assert.Equal(t, 1, d.TotalLogs)
	assert.Equal(t, resilience.BaseScore, d.OverallScore)
	assert.Len(t, d.Heatmap, resilience.HeatmapDays)
	require.Len(t, d.Daily, 1)
	assert.Equal(t, "2024-06-01", d.Daily[0].Date)
}

type stubAnalyzer struct {
	entry   ruler.LogEntry
	history int
}

func (a *stubAnalyzer) Analyze(_ context.Context, entry ruler.LogEntry, history []ruler.LogEntry) insight.Result {
	a.entry = entry
	a.history = len(history)
	return insight.Result{Insight: insight.Insight{Summary: "很好"}}
}

func TestInsight(t *testing.T) {
	t.Run("no entries", func(t *testing.T) {
		s := setupTestServer(t, nil)
		rec := s.do(t, http.MethodPost, "/api/v1/insight", nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("fallback without analyzer", func(t *testing.T) {
		s := setupTestServer(t, nil)
		s.quickCheckIn(t)
		rec := s.do(t, http.MethodPost, "/api/v1/insight", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		res := decode[insight.Result](t, rec)
		assert.True(t, res.Fallback)
		assert.Equal(t, "not_configured", res.Reason)
		assert.Equal(t, insight.Fallback(catalog.QuadrantRed), res.Insight)
	})

	t.Run("analyzer gets the requested entry", func(t *testing.T) {
		a := &stubAnalyzer{}
		s := setupTestServer(t, a)
		entry := s.quickCheckIn(t)

		rec := s.do(t, http.MethodPost, "/api/v1/insight", InsightRequest{Timestamp: entry.Timestamp})
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "很好", decode[insight.Result](t, rec).Insight.Summary)
		assert.Equal(t, entry.Timestamp, a.entry.Timestamp)
		assert.Equal(t, 1, a.history)

		rec = s.do(t, http.MethodPost, "/api/v1/insight", InsightRequest{Timestamp: "2000-01-01T00:00:00.000Z"})
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("summary", func(t *testing.T) {
		s := setupTestServer(t, nil)
		rec := s.do(t, http.MethodGet, "/api/v1/insight/summary", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, insight.EmptyHistorySummary, decode[SummaryResponse](t, rec).Summary)
	})
}

func TestHandleScrub(t *testing.T) {
	s := setupTestServer(t, nil)

	t.Run("scrubs personal data", func(t *testing.T) {
		content := "請寄到 amy@example.com"
		rec := s.do(t, http.MethodPost, "/api/v1/scrub", ScrubRequest{Content: content})
		require.Equal(t, http.StatusOK, rec.Code)
		resp := decode[ScrubResponse](t, rec)
		assert.NotContains(t, resp.Content, "amy@example.com")
		assert.Contains(t, resp.Content, scrub.DefaultReplacement)
		assert.Equal(t, 1, resp.FindingsCount)
		s.log.AssertNoJournalText(t, content)
	})

	t.Run("clean content", func(t *testing.T) {
		rec := s.do(t, http.MethodPost, "/api/v1/scrub", ScrubRequest{Content: "今天天氣很好"})
		require.Equal(t, http.StatusOK, rec.Code)
		resp := decode[ScrubResponse](t, rec)
		assert.Equal(t, "今天天氣很好", resp.Content)
		assert.Zero(t, resp.FindingsCount)
	})

	t.Run("empty content", func(t *testing.T) {
		rec := s.do(t, http.MethodPost, "/api/v1/scrub", ScrubRequest{})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestMetricsEndpoint(t *testing.T) {
	s := setupTestServer(t, nil)
	s.quickCheckIn(t)

	rec := s.do(t, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "imxin_storage_logs_stored 1")
}
