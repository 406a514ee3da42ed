package insight

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/kaptinlin/jsonrepair"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/fyrsmithlabs/imxin/internal/catalog"
	"github.com/fyrsmithlabs/imxin/internal/config"
	"github.com/fyrsmithlabs/imxin/internal/logging"
	"github.com/fyrsmithlabs/imxin/internal/ruler"
	"github.com/fyrsmithlabs/imxin/internal/scrub"
)

// maxResponseBytes bounds how much of a reply is read.
const maxResponseBytes = 1 << 20

var errNotConfigured = errors.New("insight service not configured")

// Client calls the chat-completions endpoint.
type Client struct {
	cfg        config.InsightConfig
	httpClient *http.Client
	limiter    *rate.Limiter
	scrubber   scrub.Scrubber
	physical   PhysicalSource
	logger     *logging.Logger
}

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithPhysicalSource sets where physical context comes from. Without one no
// physical data is sent.
func WithPhysicalSource(p PhysicalSource) Option {
	return func(c *Client) { c.physical = p }
}

// NewClient builds a client. scrubber and logger may be nil.
func NewClient(cfg config.InsightConfig, scrubber scrub.Scrubber, logger *logging.Logger, opts ...Option) *Client {
	if scrubber == nil {
		scrubber = scrub.Nop{}
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	limit := rate.Limit(cfg.RateLimit)
	if cfg.RateLimit <= 0 {
		limit = rate.Inf
	}
	c := &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		limiter:    rate.NewLimiter(limit, 1),
		scrubber:   scrubber,
		logger:     logger.Named("insight"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Available reports whether requests will be attempted at all.
func (c *Client) Available() bool {
	return c.cfg.Enabled && c.cfg.URL != "" && c.cfg.APIKey.IsSet()
}

// Analyze reflects on entry in the light of history (newest first). It
// always returns a usable Result.
func (c *Client) Analyze(ctx context.Context, entry ruler.LogEntry, history []ruler.LogEntry) Result {
	quadrant := catalog.Quadrant("")
	if primary, ok := entry.PrimaryEmotion(); ok {
		quadrant = primary.Quadrant
	}

	var physical *PhysicalData
	res := Result{}
	if c.physical != nil {
		if d, err := c.physical.DailyStats(ctx); err != nil {
			c.logger.Debug(ctx, "physical data unavailable", zap.Error(err))
		} else {
			physical = &d
			res.Correlation = Correlate(d)
		}
	}

	in, err := c.request(ctx, entry, history, physical)
	if err != nil {
		c.logger.Warn(ctx, "insight fell back to static text",
			zap.String("quadrant", string(quadrant)), zap.Error(err))
		res.Insight = Fallback(quadrant)
		res.Fallback = true
		res.Reason = reason(err)
		return res
	}
	res.Insight = in
	return res
}

func reason(err error) string {
	switch {
	case errors.Is(err, errNotConfigured):
		return "not_configured"
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return "timeout"
	default:
		return "unavailable"
	}
}

func (c *Client) request(ctx context.Context, entry ruler.LogEntry, history []ruler.LogEntry, physical *PhysicalData) (Insight, error) {
	if !c.Available() {
		return Insight{}, errNotConfigured
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return Insight{}, fmt.Errorf("rate limiter error: %w", err)
	}

	userPrompt, err := json.Marshal(c.buildPrompt(ctx, entry, history, physical))
	if err != nil {
		return Insight{}, fmt.Errorf("failed to marshal prompt: %w", err)
	}
	body, err := json.Marshal(chatRequest{
		Model:       c.cfg.Model,
		Temperature: c.cfg.Temperature,
		Messages: []chatMessage{
			{Role: "system", Content: CoachSystemPrompt},
			{Role: "user", Content: string(userPrompt)},
		},
	})
	if err != nil {
		return Insight{}, fmt.Errorf("failed to marshal request: %w", err)
	}

	if c.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.Timeout)
		defer cancel()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.URL, bytes.NewReader(body))
	if err != nil {
		return Insight{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey.Value())

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Insight{}, fmt.Errorf("API request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return Insight{}, fmt.Errorf("failed to read response: %w", err)
	}
	c.logger.Debug(ctx, "insight response",
		zap.Int("status", resp.StatusCode), zap.Duration("duration", time.Since(start)), zap.Int("bytes", len(raw)))

	if resp.StatusCode != http.StatusOK {
		return Insight{}, fmt.Errorf("API error (%d)", resp.StatusCode)
	}

	var cr chatResponse
	if err := json.Unmarshal(raw, &cr); err != nil {
		return Insight{}, fmt.Errorf("failed to parse response: %w", err)
	}
	if len(cr.Choices) == 0 {
		return Insight{}, errors.New("empty response from API")
	}
	return ParseInsight(cr.Choices[0].Message.Content)
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// ParseInsight decodes model output. Markdown code fences are stripped and
// near-JSON is repaired before giving up. A reply without a summary is
// rejected.
func ParseInsight(content string) (Insight, error) {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	content = strings.TrimSpace(content)
	if content == "" {
		return Insight{}, errors.New("empty insight content")
	}

	var in Insight
	if err := json.Unmarshal([]byte(content), &in); err != nil {
		repaired, rerr := jsonrepair.JSONRepair(content)
		if rerr != nil {
			return Insight{}, fmt.Errorf("failed to parse insight: %w", err)
		}
		if err := json.Unmarshal([]byte(repaired), &in); err != nil {
			return Insight{}, fmt.Errorf("failed to parse repaired insight: %w", err)
		}
	}
	if strings.TrimSpace(in.Summary) == "" {
		return Insight{}, errors.New("insight has no summary")
	}
	return in, nil
}
