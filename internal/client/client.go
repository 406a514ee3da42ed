// Package client talks to a running imxind over its loopback JSON API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/fyrsmithlabs/imxin/internal/flow"
	imxhttp "github.com/fyrsmithlabs/imxin/internal/http"
	"github.com/fyrsmithlabs/imxin/internal/insight"
	"github.com/fyrsmithlabs/imxin/internal/resilience"
	"github.com/fyrsmithlabs/imxin/internal/ruler"
)

// DefaultURL is where imxind listens unless configured otherwise.
const DefaultURL = "http://127.0.0.1:9470"

const maxBody = 8 << 20

// Client is a thin JSON client for the imxind API.
type Client struct {
	baseURL string
	http    *http.Client
}

// New creates a client for baseURL. A zero timeout means 30s.
func New(baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultURL
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// BaseURL returns the server URL.
func (c *Client) BaseURL() string { return c.baseURL }

// StatusError is a non-2xx reply.
type StatusError struct {
	Status  int
	Message string
	Code    string
}

func (e *StatusError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("server returned status %d (%s): %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("server returned status %d: %s", e.Status, e.Message)
}

func (c *Client) request(ctx context.Context, method, path string, body interface{}) (*http.Response, error) {
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		r = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, r)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request to %s: %w", c.baseURL+path, err)
	}
	if resp.StatusCode >= 300 {
		defer resp.Body.Close()
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxBody))
		se := &StatusError{Status: resp.StatusCode, Message: strings.TrimSpace(string(raw))}
		var er imxhttp.ErrorResponse
		if json.Unmarshal(raw, &er) == nil && er.Error != "" {
			se.Message, se.Code = er.Error, er.Code
		}
		return nil, se
	}
	return resp, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	resp, err := c.request(ctx, method, path, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBody)).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// Health checks the daemon.
func (c *Client) Health(ctx context.Context) (imxhttp.HealthResponse, error) {
	var out imxhttp.HealthResponse
	err := c.do(ctx, http.MethodGet, "/health", nil, &out)
	return out, err
}

// FlowState returns the current check-in state.
func (c *Client) FlowState(ctx context.Context) (flow.State, error) {
	var out flow.State
	err := c.do(ctx, http.MethodGet, "/api/v1/flow", nil, &out)
	return out, err
}

// Logs returns every entry, newest first.
func (c *Client) Logs(ctx context.Context) ([]ruler.LogEntry, error) {
	var out imxhttp.LogsResponse
	if err := c.do(ctx, http.MethodGet, "/api/v1/logs", nil, &out); err != nil {
		return nil, err
	}
	return out.Logs, nil
}

// DeleteLog removes the entry with timestamp ts.
func (c *Client) DeleteLog(ctx context.Context, ts string) error {
	return c.do(ctx, http.MethodDelete, "/api/v1/logs/"+url.PathEscape(ts), nil, nil)
}

// EditExpression replaces the expression text of the entry with timestamp ts.
func (c *Client) EditExpression(ctx context.Context, ts, text string) (ruler.LogEntry, error) {
	var out ruler.LogEntry
	err := c.do(ctx, http.MethodPatch, "/api/v1/logs/"+url.PathEscape(ts)+"/expression",
		imxhttp.EditExpressionRequest{Expression: text}, &out)
	return out, err
}

// Export streams the rendered log file to w and returns the server's filename.
func (c *Client) Export(ctx context.Context, format string, w io.Writer) (string, error) {
	resp, err := c.request(ctx, http.MethodGet, "/api/v1/logs/export?format="+url.QueryEscape(format), nil)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if _, err := io.Copy(w, resp.Body); err != nil {
		return "", fmt.Errorf("failed to read export: %w", err)
	}
	name := ""
	if _, v, ok := strings.Cut(resp.Header.Get("Content-Disposition"), "filename="); ok {
		name = strings.Trim(v, `"`)
	}
	return name, nil
}

// Dashboard returns the resilience views.
func (c *Client) Dashboard(ctx context.Context) (resilience.Dashboard, error) {
	var out resilience.Dashboard
	err := c.do(ctx, http.MethodGet, "/api/v1/dashboard", nil, &out)
	return out, err
}

// Insight asks for reflection on the entry with timestamp ts, or the newest
// entry when ts is empty.
func (c *Client) Insight(ctx context.Context, ts string) (insight.Result, error) {
	var out insight.Result
	err := c.do(ctx, http.MethodPost, "/api/v1/insight", imxhttp.InsightRequest{Timestamp: ts}, &out)
	return out, err
}

// Summary returns the history summary line.
func (c *Client) Summary(ctx context.Context) (string, error) {
	var out imxhttp.SummaryResponse
	err := c.do(ctx, http.MethodGet, "/api/v1/insight/summary", nil, &out)
	return out.Summary, err
}

// Scrub redacts personal data from content.
func (c *Client) Scrub(ctx context.Context, content string) (imxhttp.ScrubResponse, error) {
	var out imxhttp.ScrubResponse
	err := c.do(ctx, http.MethodPost, "/api/v1/scrub", imxhttp.ScrubRequest{Content: content}, &out)
	return out, err
}
