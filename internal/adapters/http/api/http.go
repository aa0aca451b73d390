// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/okian/simuq/internal/domain/model"
	"github.com/okian/simuq/internal/domain/simulation"
)

// maxRequestBytes caps the size of a job request body.
const maxRequestBytes = 1 << 20

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	JobDependencies
	ModelDependencies
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler *HealthHandler
	statsHandler  *StatsHandler
	jobsHandler   *JobsHandler
	modelsHandler *ModelsHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider) *Server {
	return &Server{
		healthHandler: NewHealthHandler(),
		statsHandler:  NewStatsHandler(statsProvider),
		jobsHandler:   NewJobsHandler(deps),
		modelsHandler: NewModelsHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	if mux == nil {
		panic("mux is nil")
	}

	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/jobs", CORSMiddleware(MetricsMiddleware(s.jobsHandler.HandleSubmit, "jobs")))
	mux.HandleFunc("/jobs/", CORSMiddleware(MetricsMiddleware(s.jobsHandler.HandleLookup, "job")))
	mux.HandleFunc("/models", CORSMiddleware(MetricsMiddleware(s.modelsHandler.HandleListModels, "models")))
}

// ackEnvelope is the ingress acknowledgement returned by POST /jobs.
type ackEnvelope struct {
	StatusCode int       `json:"statusCode"`
	Body       model.Ack `json:"body"`
}

type modelsResponse struct {
	Models []simulation.Description `json:"models"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}
