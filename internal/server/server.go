// Package server exposes the coordinator's operations over a JSON HTTP API.
package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mmynk/splitpay/internal/auth"
	"github.com/mmynk/splitpay/internal/engine"
	"github.com/mmynk/splitpay/internal/middleware"
	"github.com/mmynk/splitpay/internal/storage"
)

// Server wires the coordinator, authentication and metrics into an
// http.Handler.
type Server struct {
	coord   *engine.Coordinator
	clients *auth.ClientAuthenticator
	jwt     *auth.JWTManager
}

// New creates a Server.
func New(coord *engine.Coordinator, clients *auth.ClientAuthenticator, jwt *auth.JWTManager) *Server {
	return &Server{coord: coord, clients: clients, jwt: jwt}
}

// Handler builds the route table. Mutating endpoints require a bearer token;
// reads, health and metrics do not.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /v1/token", s.handleToken)
	mux.Handle("POST /v1/splits", middleware.RequireAuth(s.jwt, http.HandlerFunc(s.handleCreateSplit)))
	mux.HandleFunc("GET /v1/splits/{id}", s.handleGetSplit)
	mux.HandleFunc("GET /v1/splits/{id}/required/{participant}", s.handleRequiredAmount)
	mux.HandleFunc("GET /v1/splits/{id}/digest", s.handleDigest)
	mux.Handle("POST /v1/splits/{id}/settle", middleware.RequireAuth(s.jwt, http.HandlerFunc(s.handleSettle)))
	mux.HandleFunc("GET /v1/splits/{id}/events", s.handleEvents)

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.Handle("GET /metrics", promhttp.Handler())

	return mux
}

// writeJSON encodes v as the response body.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

// errorResponse is the body of every failed request.
type errorResponse struct {
	Error string `json:"error"`
}

// writeError maps a domain error to its HTTP status and writes it out. Every
// rejection carries its discrete reason; nothing is swallowed.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusUnprocessableEntity
	switch {
	case errors.Is(err, storage.ErrSplitNotFound):
		status = http.StatusNotFound
	case errors.Is(err, engine.ErrAlreadySettled),
		errors.Is(err, engine.ErrAlreadyApproved),
		errors.Is(err, engine.ErrBusy):
		status = http.StatusConflict
	case errors.Is(err, auth.ErrInvalidCredentials):
		status = http.StatusUnauthorized
	}
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

// badRequest reports a malformed request body or parameter.
func badRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, errorResponse{Error: msg})
}
