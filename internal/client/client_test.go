package client

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/imxin/internal/catalog"
	"github.com/fyrsmithlabs/imxin/internal/flow"
	imxhttp "github.com/fyrsmithlabs/imxin/internal/http"
	"github.com/fyrsmithlabs/imxin/internal/logging"
	"github.com/fyrsmithlabs/imxin/internal/ruler"
	"github.com/fyrsmithlabs/imxin/internal/storage"
)

var clock = time.Date(2024, 6, 3, 21, 30, 0, 0, time.UTC)

func seededServer(t *testing.T) (*Client, *storage.Repository) {
	t.Helper()
	ctx := context.Background()
	logger := logging.NewNop()
	repo := storage.NewRepository(storage.NewMemory(), logger, nil)

	calm, _ := catalog.EmotionByID("calm")
	require.NoError(t, repo.SaveLog(ctx, ruler.LogEntry{
		Emotions:   []catalog.Emotion{calm},
		Intensity:  3,
		Expressing: &ruler.Expressing{Expression: "散步", Mode: ruler.ModeText},
		Timestamp:  "2024-06-03T20:00:00.000Z",
	}))

	ctrl, err := flow.New(ctx, repo, flow.Config{Logger: logger})
	require.NoError(t, err)
	t.Cleanup(func() { _ = ctrl.Close() })

	srv, err := imxhttp.NewServer(imxhttp.Deps{Flow: ctrl, Logs: repo, Logger: logger}, &imxhttp.Config{
		Location: time.UTC,
		Now:      func() time.Time { return clock },
		Version:  "v-test",
	})
	require.NoError(t, err)

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return New(ts.URL+"/", time.Second), repo
}

func TestClient_RoundTrips(t *testing.T) {
	ctx := context.Background()
	c, repo := seededServer(t)

	h, err := c.Health(ctx)
	require.NoError(t, err)
	assert.Equal(t, "v-test", h.Version)

	st, err := c.FlowState(ctx)
	require.NoError(t, err)
	assert.Equal(t, ruler.StepRecognizing, st.Step())

	logs, err := c.Logs(ctx)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	ts := logs[0].Timestamp

	e, err := c.EditExpression(ctx, ts, "散步之後好多了")
	require.NoError(t, err)
	assert.Equal(t, "散步之後好多了", e.Expressing.Expression)

	var buf bytes.Buffer
	name, err := c.Export(ctx, "json", &buf)
	require.NoError(t, err)
	assert.Equal(t, "imxin-logs-2024-06-03.json", name)
	assert.Contains(t, buf.String(), "散步之後好多了")

	d, err := c.Dashboard(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, d.TotalLogs)

	res, err := c.Insight(ctx, "")
	require.NoError(t, err)
	assert.True(t, res.Fallback)

	summary, err := c.Summary(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, summary)

	scrubbed, err := c.Scrub(ctx, "hello")
	require.NoError(t, err)
	assert.Equal(t, "hello", scrubbed.Content)

	require.NoError(t, c.DeleteLog(ctx, ts))
	assert.Empty(t, repo.GetLogs(ctx))
}

func TestClient_StatusError(t *testing.T) {
	ctx := context.Background()
	c, _ := seededServer(t)

	err := c.DeleteLog(ctx, "2000-01-01T00:00:00.000Z")
	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusNotFound, se.Status)
	assert.Equal(t, "not_found", se.Code)

	_, err = c.Export(ctx, "xml", &bytes.Buffer{})
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusBadRequest, se.Status)
}

func TestClient_Unreachable(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	url := ts.URL
	ts.Close()

	_, err := New(url, 100*time.Millisecond).Health(context.Background())
	assert.ErrorContains(t, err, "failed to send request")
}

func TestNew_Defaults(t *testing.T) {
	c := New("", 0)
	assert.Equal(t, DefaultURL, c.BaseURL())
	assert.Equal(t, 30*time.Second, c.http.Timeout)
}
