package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"i4.energy/across/uat/at"
	"i4.energy/across/uat/uat"
)

const (
	defaultCapacity = 1024
	maxCapacity     = 64 * 1024
)

// Engine is the part of *uat.Engine served over HTTP and MQTT.
type Engine interface {
	Config() uat.Config
	Send(ctx context.Context, cmd string) error
	SendReceive(ctx context.Context, cmd, expected string, out []byte) (uat.Capture, error)
	Stats() uat.Stats
}

// CommandRequest asks for a command to be sent. With Expect set it becomes
// an exchange that waits for a line starting with Expect.
type CommandRequest struct {
	Command   string `json:"command"`
	Expect    string `json:"expect,omitempty"`
	TimeoutMS int    `json:"timeout_ms,omitempty"`
	Capacity  int    `json:"capacity,omitempty"`
}

// ExchangeResponse carries the lines captured during an exchange.
type ExchangeResponse struct {
	Lines     []string `json:"lines"`
	Truncated bool     `json:"truncated"`
	// Failed is set when the last line is a final result code other than OK.
	Failed bool `json:"failed"`
}

// exchange runs req as a synchronous exchange on engine.
func exchange(ctx context.Context, engine Engine, req CommandRequest) (ExchangeResponse, error) {
	if req.Command == "" {
		return ExchangeResponse{}, fmt.Errorf("%w: 'command' is required", uat.ErrInvalidArg)
	}
	expect := req.Expect
	if expect == "" {
		expect = at.OK
	}
	capacity := req.Capacity
	if capacity == 0 {
		capacity = defaultCapacity
	}
	if capacity < 0 || capacity > maxCapacity {
		return ExchangeResponse{}, fmt.Errorf("%w: capacity must be within 1..%d", uat.ErrInvalidArg, maxCapacity)
	}
	if req.TimeoutMS > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(req.TimeoutMS)*time.Millisecond)
		defer cancel()
	}

	out := make([]byte, capacity)
	capture, err := engine.SendReceive(ctx, req.Command, expect, out)
	lines := at.Lines(out[:capture.N], engine.Config().Terminator)
	resp := ExchangeResponse{
		Lines:     lines,
		Truncated: capture.Truncated,
	}
	if len(lines) > 0 {
		resp.Failed = at.IsError(lines[len(lines)-1])
	}
	if resp.Lines == nil {
		resp.Lines = []string{}
	}
	return resp, err
}

// statusFor maps engine errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, uat.ErrInvalidArg):
		return http.StatusBadRequest
	case errors.Is(err, uat.ErrBusy):
		return http.StatusConflict
	case errors.Is(err, uat.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, uat.ErrSendFail):
		return http.StatusBadGateway
	case errors.Is(err, uat.ErrClosed):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Server handles incoming HTTP requests for interacting with the
// configured engine instance
type Server struct {
	Logger *slog.Logger
	Engine Engine
}

// ServeHTTP implements the http.Handler interface for the Server struct
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /command", s.handleCommand)
	mux.HandleFunc("POST /exchange", s.handleExchange)
	mux.HandleFunc("GET /stats", s.handleStats)
	mux.ServeHTTP(w, r)
}

func (s *Server) sendError(w http.ResponseWriter, message string, statusCode int) {
	if message == "" {
		w.WriteHeader(statusCode)
		return
	}

	type ErrorResponse struct {
		Message string `json:"message"`
	}
	resp := ErrorResponse{Message: message}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(resp)
}

func (s *Server) sendJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

// handleCommand sends a command without waiting for a response
func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request) {
	var req CommandRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.sendError(w, err.Error(), http.StatusBadRequest)
		return
	}

	if req.Command == "" {
		s.sendError(w, "'command' field is required", http.StatusBadRequest)
		return
	}

	if err := s.Engine.Send(r.Context(), req.Command); err != nil {
		s.Logger.Error("Failed to send command", "error", err, "command", req.Command)
		s.sendError(w, err.Error(), statusFor(err))
		return
	}

	s.Logger.Info("Command sent", "command", req.Command)
	w.WriteHeader(http.StatusAccepted)
}

// handleExchange sends a command and returns the captured response lines
func (s *Server) handleExchange(w http.ResponseWriter, r *http.Request) {
	var req CommandRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.sendError(w, err.Error(), http.StatusBadRequest)
		return
	}

	resp, err := exchange(r.Context(), s.Engine, req)
	if err != nil {
		s.Logger.Warn("Exchange failed", "error", err, "command", req.Command, "lines", len(resp.Lines))
		// Lines captured before the failure are returned with the error.
		type ErrorResponse struct {
			Message string `json:"message"`
			ExchangeResponse
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(statusFor(err))
		json.NewEncoder(w).Encode(ErrorResponse{Message: err.Error(), ExchangeResponse: resp})
		return
	}

	s.Logger.Info("Exchange completed", "command", req.Command, "lines", len(resp.Lines), "truncated", resp.Truncated)
	s.sendJSON(w, resp)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	s.sendJSON(w, s.Engine.Stats())
}
