package insight

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/imxin/internal/catalog"
	"github.com/fyrsmithlabs/imxin/internal/config"
	"github.com/fyrsmithlabs/imxin/internal/logging"
	"github.com/fyrsmithlabs/imxin/internal/ruler"
	"github.com/fyrsmithlabs/imxin/internal/scrub"
)

const journal = "我好累，請寄信到 amy@example.com"

func sampleEntry() ruler.LogEntry {
	anxious, _ := catalog.EmotionByID("anxious")
	need := "rest"
	return ruler.LogEntry{
		Emotions:      []catalog.Emotion{anxious},
		Intensity:     7,
		Understanding: &ruler.Understanding{What: "工作", Who: "同事", Where: "辦公室", Trigger: "被催進度", Need: &need},
		Expressing:    &ruler.Expressing{Expression: journal, Mode: ruler.ModeText},
		Regulating:    &ruler.Regulating{SelectedStrategies: []string{"深呼吸"}},
		PostMood:      catalog.MoodSomewhatCalm,
		Timestamp:     "2024-06-02T09:00:00.000Z",
		IsFullFlow:    true,
	}
}

func history(n int) []ruler.LogEntry {
	calm, _ := catalog.EmotionByID("calm")
	out := []ruler.LogEntry{sampleEntry()}
	for i := 0; i < n; i++ {
		out = append(out, ruler.LogEntry{
			Emotions:   []catalog.Emotion{calm},
			Intensity:  i + 1,
			Timestamp:  time.Date(2024, 6, 1, i, 0, 0, 0, time.UTC).Format(ruler.TimestampLayout),
			Expressing: &ruler.Expressing{Expression: "secret diary"},
		})
	}
	return out
}

func testConfig(url string) config.InsightConfig {
	cfg := config.Default().Insight
	cfg.Enabled = true
	cfg.URL = url
	cfg.APIKey = "sk-test"
	cfg.RateLimit = 100
	cfg.Timeout = 2 * time.Second
	return cfg
}

func chatReply(content string) string {
	b, _ := json.Marshal(map[string]interface{}{
		"choices": []map[string]interface{}{
			{"message": map[string]string{"role": "assistant", "content": content}},
		},
	})
	return string(b)
}

func newClient(t *testing.T, url string, opts ...Option) (*Client, *logging.TestLogger) {
	t.Helper()
	s, err := scrub.New(nil)
	require.NoError(t, err)
	tl := logging.NewTestLogger()
	return NewClient(testConfig(url), s, tl.Logger, opts...), tl
}

func TestAnalyze_Success(t *testing.T) {
	var got chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(chatReply("```json\n{\"summary\":\"你做得很好\",\"underlyingPatterns\":[\"疲憊\"],\"suggestedAction\":\"休息\",\"empatheticQuote\":\"q\"}\n```")))
	}))
	defer srv.Close()

	c, tl := newClient(t, srv.URL, WithPhysicalSource(SimulatedSource{}))
	res := c.Analyze(context.Background(), sampleEntry(), history(5))

	assert.False(t, res.Fallback)
	assert.Equal(t, "你做得很好", res.Insight.Summary)
	assert.Equal(t, []string{"疲憊"}, res.Insight.UnderlyingPatterns)
	assert.Contains(t, res.Correlation, "睡眠不足")

	require.Len(t, got.Messages, 2)
	assert.Equal(t, "system", got.Messages[0].Role)
	assert.Equal(t, "gpt-4o", got.Model)

	var p userPrompt
	require.NoError(t, json.Unmarshal([]byte(got.Messages[1].Content), &p))
	assert.Equal(t, "red", p.CurrentMood.Quadrant)
	assert.Equal(t, "焦慮的", p.CurrentMood.Name)
	assert.Equal(t, 7, p.CurrentMood.Intensity)
	assert.NotContains(t, p.UserNote, "amy@example.com", "journal text is scrubbed")
	assert.Contains(t, p.UserNote, scrub.DefaultReplacement)
	assert.Len(t, p.RecentHistory, 3, "history is capped and skips the current entry")
	assert.Len(t, p.SimilarMoments, 2, "older entries are offered as similar moments")
	assert.Equal(t, "rest", p.Understanding.Need)
	assert.Equal(t, []string{"深呼吸"}, p.Strategies)
	assert.NotContains(t, got.Messages[1].Content, "secret diary")

	tl.AssertNoJournalText(t, journal)
}

func TestAnalyze_Fallbacks(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		reason  string
	}{
		{"server error", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}, "unavailable"},
		{"not json", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("<html>"))
		}, "unavailable"},
		{"no choices", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"choices":[]}`))
		}, "unavailable"},
		{"prose reply", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(chatReply("I cannot help with that.")))
		}, "unavailable"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			c, _ := newClient(t, srv.URL)
			res := c.Analyze(context.Background(), sampleEntry(), nil)
			assert.True(t, res.Fallback)
			assert.Equal(t, tt.reason, res.Reason)
			assert.Equal(t, Fallback(catalog.QuadrantRed), res.Insight)
		})
	}
}

func TestAnalyze_NotConfigured(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer srv.Close()

	cfg := testConfig(srv.URL)
	cfg.APIKey = ""
	c := NewClient(cfg, nil, nil)
	assert.False(t, c.Available())

	calm, _ := catalog.EmotionByID("calm")
	res := c.Analyze(context.Background(), ruler.LogEntry{Emotions: []catalog.Emotion{calm}}, nil)
	assert.True(t, res.Fallback)
	assert.Equal(t, "not_configured", res.Reason)
	assert.Equal(t, Fallback(""), res.Insight, "green has no dedicated text")
	assert.Zero(t, calls.Load())
}

func TestAnalyze_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	c, _ := newClient(t, srv.URL)
	res := c.Analyze(ctx, sampleEntry(), nil)
	assert.True(t, res.Fallback)
	assert.Equal(t, "timeout", res.Reason)
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

func TestAnalyze_WithHTTPClient(t *testing.T) {
	var hosts []string
	hc := &http.Client{Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
		hosts = append(hosts, r.URL.Host)
		return &http.Response{
			StatusCode: http.StatusOK,
			Header:     http.Header{"Content-Type": []string{"application/json"}},
			Body:       io.NopCloser(strings.NewReader(chatReply(`{"summary":"經由自訂傳輸"}`))),
			Request:    r,
		}, nil
	})}

	c, _ := newClient(t, "http://insight.invalid/v1/chat/completions", WithHTTPClient(hc))
	res := c.Analyze(context.Background(), sampleEntry(), nil)
	assert.False(t, res.Fallback)
	assert.Equal(t, "經由自訂傳輸", res.Insight.Summary)
	assert.Equal(t, []string{"insight.invalid"}, hosts)
}

type failingSource struct{}

func (failingSource) DailyStats(context.Context) (PhysicalData, error) {
	return PhysicalData{}, errors.New("no wearable")
}

func TestAnalyze_PhysicalFailureIgnored(t *testing.T) {
	c := NewClient(config.InsightConfig{}, nil, nil, WithPhysicalSource(failingSource{}))
	res := c.Analyze(context.Background(), sampleEntry(), nil)
	assert.True(t, res.Fallback)
	assert.Empty(t, res.Correlation)
}

func TestParseInsight(t *testing.T) {
	in, err := ParseInsight(`{"summary":"a","underlyingPatterns":["b"],}`)
	require.NoError(t, err, "trailing comma is repaired")
	assert.Equal(t, "a", in.Summary)

	in, err = ParseInsight("```\n{\"summary\":\"fenced\"}\n```")
	require.NoError(t, err)
	assert.Equal(t, "fenced", in.Summary)

	_, err = ParseInsight(`{"suggestedAction":"x"}`)
	assert.Error(t, err)

	_, err = ParseInsight("   ")
	assert.Error(t, err)
}

func TestCorrelate(t *testing.T) {
	assert.Contains(t, Correlate(PhysicalData{SleepHours: 5, Steps: 100}), "睡眠")
	assert.Contains(t, Correlate(PhysicalData{SleepHours: 8, Steps: 100}), "體力活動")
	assert.Empty(t, Correlate(PhysicalData{SleepHours: 8, Steps: 8000}))
}

func TestSimulatedSource(t *testing.T) {
	d, err := SimulatedSource{}.DailyStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 5.5, d.SleepHours)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = SimulatedSource{Delay: time.Hour}.DailyStats(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSummarizeHistory(t *testing.T) {
	assert.Equal(t, EmptyHistorySummary, SummarizeHistory(0))
	assert.NotEqual(t, EmptyHistorySummary, SummarizeHistory(3))
}

func TestFallbackIsCopied(t *testing.T) {
	a := Fallback(catalog.QuadrantRed)
	a.UnderlyingPatterns[0] = "changed"
	assert.NotEqual(t, "changed", Fallback(catalog.QuadrantRed).UnderlyingPatterns[0])
}
