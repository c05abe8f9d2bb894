package server_test

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dantte-lp/gop4tg/internal/server"
	"github.com/dantte-lp/gop4tg/internal/tgen"
)

// fakeBench is a scriptable Benchmarks implementation.
type fakeBench struct {
	throughput map[uint32]float64
	latency    map[uint32]float64
	frameLoss  map[uint32]map[uint32]float64
	reset      float64
	err        error

	results tgen.TestResult

	lastPayload  *tgen.TrafficGenData
	resetCalls   int
	collectCalls int
	abortCalls   int
}

func (f *fakeBench) Throughput(_ context.Context, p *tgen.TrafficGenData) (map[uint32]float64, error) {
	f.lastPayload = p
	return f.throughput, f.err
}

func (f *fakeBench) Latency(_ context.Context, p *tgen.TrafficGenData) (map[uint32]float64, error) {
	f.lastPayload = p
	return f.latency, f.err
}

func (f *fakeBench) FrameLossRate(_ context.Context, p *tgen.TrafficGenData) (map[uint32]map[uint32]float64, error) {
	f.lastPayload = p
	return f.frameLoss, f.err
}

func (f *fakeBench) Reset(_ context.Context, p *tgen.TrafficGenData) (float64, error) {
	f.lastPayload = p
	return f.reset, f.err
}

func (f *fakeBench) Results() tgen.TestResult  { return f.results }
func (f *fakeBench) ResetResults()             { f.resetCalls++ }
func (f *fakeBench) ResetCollectedStatistics() { f.collectCalls++ }
func (f *fakeBench) AbortCurrentTest()         { f.abortCalls++ }

func newTestServer(t *testing.T, fb *fakeBench) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(server.New(fb, slog.Default()))
	t.Cleanup(srv.Close)
	return srv
}

const payloadBody = `{"streams":[{"frame_size":64,"traffic_rate":10}]}`

func postJSON(t *testing.T, url, body string) *http.Response {
	t.Helper()

	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()

	var out T
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return out
}

// TestThroughputEndpoint verifies the happy path renders the result map.
func TestThroughputEndpoint(t *testing.T) {
	t.Parallel()

	fb := &fakeBench{throughput: map[uint32]float64{64: 30.5, 1518: 98.2}}
	srv := newTestServer(t, fb)

	resp := postJSON(t, srv.URL+"/api/rfc/throughput", payloadBody)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	got := decode[map[uint32]float64](t, resp)
	if got[64] != 30.5 || got[1518] != 98.2 {
		t.Errorf("body = %v", got)
	}

	if fb.lastPayload == nil || len(fb.lastPayload.Streams) != 1 {
		t.Errorf("payload not forwarded: %+v", fb.lastPayload)
	}
}

// TestBenchmarkFailureReturns500 verifies the {error} envelope.
func TestBenchmarkFailureReturns500(t *testing.T) {
	t.Parallel()

	fb := &fakeBench{err: errors.New("pipe 0 unresponsive")}
	srv := newTestServer(t, fb)

	for _, path := range []string{
		"/api/rfc/throughput",
		"/api/rfc/latency",
		"/api/rfc/frame_loss",
		"/api/rfc/reset",
	} {
		resp := postJSON(t, srv.URL+path, payloadBody)
		if resp.StatusCode != http.StatusInternalServerError {
			t.Errorf("%s status = %d, want 500", path, resp.StatusCode)
		}

		body := decode[map[string]string](t, resp)
		if !strings.Contains(body["error"], "pipe 0 unresponsive") {
			t.Errorf("%s error body = %v", path, body)
		}
	}
}

// TestMalformedPayloadReturns500 verifies a bad body is rejected with the
// {error} envelope.
func TestMalformedPayloadReturns500(t *testing.T) {
	t.Parallel()

	fb := &fakeBench{}
	srv := newTestServer(t, fb)

	resp := postJSON(t, srv.URL+"/api/rfc/throughput", "{not json")
	if resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", resp.StatusCode)
	}

	body := decode[map[string]string](t, resp)
	if body["error"] == "" {
		t.Error("error body missing")
	}
}

// TestResetEndpointRendersScalar verifies the reset endpoint returns the
// recovery seconds.
func TestResetEndpointRendersScalar(t *testing.T) {
	t.Parallel()

	fb := &fakeBench{reset: 8.0}
	srv := newTestServer(t, fb)

	resp := postJSON(t, srv.URL+"/api/rfc/reset", payloadBody)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	if got := decode[float64](t, resp); got != 8.0 {
		t.Errorf("body = %v, want 8.0", got)
	}
}

// TestResultsEndpoint verifies the snapshot is rendered as-is.
func TestResultsEndpoint(t *testing.T) {
	t.Parallel()

	fb := &fakeBench{results: tgen.TestResult{
		Throughput:  map[uint32]float64{64: 30.5},
		Running:     true,
		CurrentTest: "Throughput - 64 Bytes",
	}}
	srv := newTestServer(t, fb)

	resp, err := http.Get(srv.URL + "/api/rfc/results")
	if err != nil {
		t.Fatalf("GET results: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	got := decode[tgen.TestResult](t, resp)
	if !got.Running || got.CurrentTest != "Throughput - 64 Bytes" || got.Throughput[64] != 30.5 {
		t.Errorf("body = %+v", got)
	}
}

// TestClearResultsEndpoint verifies DELETE resets the record and the
// collected statistics.
func TestClearResultsEndpoint(t *testing.T) {
	t.Parallel()

	fb := &fakeBench{}
	srv := newTestServer(t, fb)

	req, err := http.NewRequest(http.MethodDelete, srv.URL+"/api/rfc/results", nil)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("DELETE results: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if fb.resetCalls != 1 || fb.collectCalls != 1 {
		t.Errorf("reset calls = %d, collected resets = %d, want 1/1", fb.resetCalls, fb.collectCalls)
	}
}

// TestAbortEndpoint verifies POST /abort publishes the abort.
func TestAbortEndpoint(t *testing.T) {
	t.Parallel()

	fb := &fakeBench{}
	srv := newTestServer(t, fb)

	resp := postJSON(t, srv.URL+"/api/rfc/abort", "")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if fb.abortCalls != 1 {
		t.Errorf("abort calls = %d, want 1", fb.abortCalls)
	}
}

// TestOnlineEndpoint verifies the status body.
func TestOnlineEndpoint(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, &fakeBench{})

	resp, err := http.Get(srv.URL + "/api/online")
	if err != nil {
		t.Fatalf("GET online: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	got := decode[map[string]string](t, resp)
	if got["status"] != "online" {
		t.Errorf("body = %v", got)
	}
}

// TestMethodNotAllowed verifies the router rejects wrong methods.
func TestMethodNotAllowed(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, &fakeBench{})

	resp, err := http.Get(srv.URL + "/api/rfc/throughput")
	if err != nil {
		t.Fatalf("GET throughput: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", resp.StatusCode)
	}
}
