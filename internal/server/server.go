// Package server implements the REST API of the gop4tg daemon.
//
// The server is a thin adapter between HTTP/JSON and the benchmark engine:
// each handler decodes a TrafficGenData body, delegates to the Manager, and
// renders the result map. All failures map to 500 with an {error} body, per
// the appliance API contract.
package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/dantte-lp/gop4tg/internal/tgen"
	appversion "github.com/dantte-lp/gop4tg/internal/version"
)

// Benchmarks is the engine surface the API exposes.
type Benchmarks interface {
	Throughput(ctx context.Context, payload *tgen.TrafficGenData) (map[uint32]float64, error)
	Latency(ctx context.Context, payload *tgen.TrafficGenData) (map[uint32]float64, error)
	FrameLossRate(ctx context.Context, payload *tgen.TrafficGenData) (map[uint32]map[uint32]float64, error)
	Reset(ctx context.Context, payload *tgen.TrafficGenData) (float64, error)
	Results() tgen.TestResult
	ResetResults()
	ResetCollectedStatistics()
	AbortCurrentTest()
}

// Server handles the REST API requests.
type Server struct {
	bench  Benchmarks
	logger *slog.Logger
}

// errorBody is the JSON error envelope of every failure response.
type errorBody struct {
	Error string `json:"error"`
}

// onlineBody is the response of the online endpoint.
type onlineBody struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

// New creates the API router.
func New(b Benchmarks, logger *slog.Logger) http.Handler {
	s := &Server{
		bench:  b,
		logger: logger.With(slog.String("component", "server")),
	}

	r := mux.NewRouter()
	r.HandleFunc("/api/online", s.handleOnline).Methods(http.MethodGet)
	r.HandleFunc("/api/rfc/throughput", s.handleThroughput).Methods(http.MethodPost)
	r.HandleFunc("/api/rfc/latency", s.handleLatency).Methods(http.MethodPost)
	r.HandleFunc("/api/rfc/frame_loss", s.handleFrameLoss).Methods(http.MethodPost)
	r.HandleFunc("/api/rfc/reset", s.handleReset).Methods(http.MethodPost)
	r.HandleFunc("/api/rfc/results", s.handleResults).Methods(http.MethodGet)
	r.HandleFunc("/api/rfc/results", s.handleClearResults).Methods(http.MethodDelete)
	r.HandleFunc("/api/rfc/abort", s.handleAbort).Methods(http.MethodPost)

	return r
}

// -------------------------------------------------------------------------
// Benchmark Endpoints
// -------------------------------------------------------------------------

func (s *Server) handleThroughput(w http.ResponseWriter, r *http.Request) {
	payload, ok := s.decodePayload(w, r)
	if !ok {
		return
	}

	s.logger.InfoContext(r.Context(), "throughput test requested")

	results, err := s.bench.Throughput(r.Context(), payload)
	if err != nil {
		s.writeError(w, r, "throughput test failed", err)
		return
	}

	s.writeJSON(w, r, results)
}

func (s *Server) handleLatency(w http.ResponseWriter, r *http.Request) {
	payload, ok := s.decodePayload(w, r)
	if !ok {
		return
	}

	s.logger.InfoContext(r.Context(), "latency test requested")

	results, err := s.bench.Latency(r.Context(), payload)
	if err != nil {
		s.writeError(w, r, "latency test failed", err)
		return
	}

	s.writeJSON(w, r, results)
}

func (s *Server) handleFrameLoss(w http.ResponseWriter, r *http.Request) {
	payload, ok := s.decodePayload(w, r)
	if !ok {
		return
	}

	s.logger.InfoContext(r.Context(), "frame loss rate test requested")

	results, err := s.bench.FrameLossRate(r.Context(), payload)
	if err != nil {
		s.writeError(w, r, "frame loss rate test failed", err)
		return
	}

	s.writeJSON(w, r, results)
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	payload, ok := s.decodePayload(w, r)
	if !ok {
		return
	}

	s.logger.InfoContext(r.Context(), "reset test requested")

	recovery, err := s.bench.Reset(r.Context(), payload)
	if err != nil {
		s.writeError(w, r, "reset test failed", err)
		return
	}

	s.writeJSON(w, r, recovery)
}

// -------------------------------------------------------------------------
// Result & Control Endpoints
// -------------------------------------------------------------------------

func (s *Server) handleResults(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, r, s.bench.Results())
}

func (s *Server) handleClearResults(w http.ResponseWriter, r *http.Request) {
	s.bench.ResetResults()
	s.bench.ResetCollectedStatistics()

	s.logger.InfoContext(r.Context(), "benchmark results cleared")

	s.writeJSON(w, r, s.bench.Results())
}

func (s *Server) handleAbort(w http.ResponseWriter, r *http.Request) {
	s.bench.AbortCurrentTest()

	s.logger.InfoContext(r.Context(), "abort requested")

	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleOnline(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, r, onlineBody{
		Status:  "online",
		Version: appversion.Version,
	})
}

// -------------------------------------------------------------------------
// Encoding Helpers
// -------------------------------------------------------------------------

// decodePayload reads a TrafficGenData body. On failure it writes the error
// response and returns ok=false.
func (s *Server) decodePayload(w http.ResponseWriter, r *http.Request) (*tgen.TrafficGenData, bool) {
	payload := &tgen.TrafficGenData{}
	if err := json.NewDecoder(r.Body).Decode(payload); err != nil {
		s.writeError(w, r, "decode payload", err)
		return nil, false
	}
	return payload, true
}

func (s *Server) writeJSON(w http.ResponseWriter, r *http.Request, body any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.ErrorContext(r.Context(), "failed to encode response",
			slog.String("error", err.Error()),
		)
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	s.logger.ErrorContext(r.Context(), msg,
		slog.String("error", err.Error()),
	)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusInternalServerError)
	if encErr := json.NewEncoder(w).Encode(errorBody{Error: msg + ": " + err.Error()}); encErr != nil {
		s.logger.ErrorContext(r.Context(), "failed to encode error response",
			slog.String("error", encErr.Error()),
		)
	}
}
