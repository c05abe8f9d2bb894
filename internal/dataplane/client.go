// Package dataplane implements the REST client for the on-box dataplane
// agent -- the process wrapping bf_switchd that programs the traffic
// generator, reads the ASIC counters, and persists collected statistics.
package dataplane

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/dantte-lp/gop4tg/internal/bench"
	"github.com/dantte-lp/gop4tg/internal/config"
	"github.com/dantte-lp/gop4tg/internal/tgen"
)

// Agent endpoint paths.
const (
	pathTrafficGen = "/api/trafficgen"
	pathStatistics = "/api/statistics"
	pathPorts      = "/api/ports"
	pathSaveStats  = "/api/statistics/save"
)

// ErrAgentStatus indicates the agent answered with a non-2xx status.
var ErrAgentStatus = errors.New("dataplane agent returned error status")

// Client talks to the dataplane agent over HTTP.
//
// Statistics and port reads go through a retrying client: they are
// idempotent and a transient agent hiccup must not kill a benchmark step.
// Traffic-gen start/stop uses a plain client -- retrying a start mid-run
// would restart the stream set and corrupt the counters.
type Client struct {
	baseURL string
	retry   *retryablehttp.Client
	plain   *http.Client
	logger  *slog.Logger
}

// Interface compliance with the benchmark engine contracts.
var (
	_ bench.Generator   = (*Client)(nil)
	_ bench.StatsSource = (*Client)(nil)
	_ bench.PortSource  = (*Client)(nil)
	_ bench.StatsSink   = (*Client)(nil)
)

// New creates a dataplane agent client from configuration.
func New(cfg config.DataplaneConfig, logger *slog.Logger) *Client {
	componentLogger := logger.With(slog.String("component", "dataplane.client"))

	retry := retryablehttp.NewClient()
	retry.RetryMax = cfg.RetryMax
	retry.HTTPClient.Timeout = cfg.RequestTimeout
	retry.Logger = leveledLogger{componentLogger}

	return &Client{
		baseURL: "http://" + cfg.Addr,
		retry:   retry,
		plain:   &http.Client{Timeout: cfg.RequestTimeout},
		logger:  componentLogger,
	}
}

// -------------------------------------------------------------------------
// Traffic-Gen Primitive
// -------------------------------------------------------------------------

// startRequest is the agent's traffic-gen arm-and-start body.
type startRequest struct {
	TrafficGen *tgen.TrafficGenData `json:"traffic_gen"`
	Iteration  int                  `json:"iteration"`
	Duration   float64              `json:"duration"`
}

// Start arms the agent with the payload, starts the stream set, holds it for
// the given duration, and stops it. The run terminates early when the abort
// receiver fires (returning bench.ErrAborted) or the context is cancelled;
// in both cases the generator is stopped before returning.
func (c *Client) Start(ctx context.Context, payload *tgen.TrafficGenData, iteration int, duration time.Duration, abort <-chan struct{}) error {
	req := startRequest{
		TrafficGen: payload,
		Iteration:  iteration,
		Duration:   duration.Seconds(),
	}

	if err := c.postJSON(ctx, pathTrafficGen, req); err != nil {
		return fmt.Errorf("start traffic generation: %w", err)
	}

	c.logger.Debug("traffic generation started",
		slog.Int("iteration", iteration),
		slog.Duration("duration", duration),
	)

	timer := time.NewTimer(duration)
	defer timer.Stop()

	select {
	case <-timer.C:
	case <-abort:
		_ = c.stop(ctx)
		return fmt.Errorf("run cancelled after abort signal: %w", bench.ErrAborted)
	case <-ctx.Done():
		_ = c.stop(ctx)
		return fmt.Errorf("run cancelled: %w", ctx.Err())
	}

	if err := c.stop(ctx); err != nil {
		return fmt.Errorf("stop traffic generation: %w", err)
	}

	return nil
}

// stop halts the running stream set. Uses a detached context so a stop after
// cancellation still reaches the agent.
func (c *Client) stop(ctx context.Context) error {
	stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.plain.Timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(stopCtx, http.MethodDelete, c.baseURL+pathTrafficGen, nil)
	if err != nil {
		return fmt.Errorf("build stop request: %w", err)
	}

	resp, err := c.plain.Do(httpReq)
	if err != nil {
		c.logger.Warn("failed to stop traffic generation",
			slog.String("error", err.Error()),
		)
		return err
	}
	defer drainAndClose(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("stop: status %d: %w", resp.StatusCode, ErrAgentStatus)
	}

	return nil
}

// -------------------------------------------------------------------------
// Statistics Accessor & Port Manager
// -------------------------------------------------------------------------

// Statistics reads a point-in-time snapshot of the ASIC counters.
func (c *Client) Statistics(ctx context.Context) (*tgen.Statistics, error) {
	stats := &tgen.Statistics{}
	if err := c.getJSON(ctx, pathStatistics, stats); err != nil {
		return nil, fmt.Errorf("fetch statistics: %w", err)
	}
	return stats, nil
}

// Ports reports the configured front-panel ports.
func (c *Client) Ports(ctx context.Context) ([]tgen.Port, error) {
	var ports []tgen.Port
	if err := c.getJSON(ctx, pathPorts, &ports); err != nil {
		return nil, fmt.Errorf("fetch ports: %w", err)
	}
	return ports, nil
}

// -------------------------------------------------------------------------
// Statistics Sink
// -------------------------------------------------------------------------

// saveRequest tags a statistics save with the test type.
type saveRequest struct {
	Test int `json:"test"`
}

// SaveStatistics asks the agent to persist the statistics collected during
// the current sub-test, tagged with the test type.
func (c *Client) SaveStatistics(ctx context.Context, testID int) error {
	body, err := json.Marshal(saveRequest{Test: testID})
	if err != nil {
		return fmt.Errorf("marshal save request: %w", err)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+pathSaveStats, body)
	if err != nil {
		return fmt.Errorf("build save request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.retry.Do(req)
	if err != nil {
		return fmt.Errorf("save statistics: %w", err)
	}
	defer drainAndClose(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("save statistics: status %d: %w", resp.StatusCode, ErrAgentStatus)
	}

	return nil
}

// -------------------------------------------------------------------------
// HTTP plumbing
// -------------------------------------------------------------------------

// postJSON POSTs a JSON body through the non-retrying client.
func (c *Client) postJSON(ctx context.Context, path string, body any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.plain.Do(httpReq)
	if err != nil {
		return err
	}
	defer drainAndClose(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%s: status %d: %w", path, resp.StatusCode, ErrAgentStatus)
	}

	return nil
}

// getJSON GETs and decodes a JSON body through the retrying client.
func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	resp, err := c.retry.Do(req)
	if err != nil {
		return err
	}
	defer drainAndClose(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%s: status %d: %w", path, resp.StatusCode, ErrAgentStatus)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}

	return nil
}

// drainAndClose drains the body so the connection can be reused.
func drainAndClose(body io.ReadCloser) {
	_, _ = io.Copy(io.Discard, body)
	_ = body.Close()
}

// leveledLogger adapts slog to retryablehttp's LeveledLogger interface.
type leveledLogger struct {
	logger *slog.Logger
}

func (l leveledLogger) Error(msg string, keysAndValues ...any) {
	l.logger.Error(msg, keysAndValues...)
}

func (l leveledLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Info(msg, keysAndValues...)
}

func (l leveledLogger) Debug(msg string, keysAndValues ...any) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l leveledLogger) Warn(msg string, keysAndValues ...any) {
	l.logger.Warn(msg, keysAndValues...)
}
