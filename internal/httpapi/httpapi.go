// Package httpapi wires the external HTTP surface of spec §6: market data,
// orchestrator and results endpoints over go-chi/chi, plus /health and
// /metrics. Error taxonomy from internal/apperr maps to status codes per
// spec §7.
package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/twg-quant/riskbatch/internal/apperr"
	"github.com/twg-quant/riskbatch/internal/orchestrator"
	"github.com/twg-quant/riskbatch/internal/store"
)

// Server bundles the dependencies every handler group needs.
type Server struct {
	store        *store.Store
	orchestrator *orchestrator.Orchestrator
	log          zerolog.Logger
}

// New constructs a Server and its chi router.
func New(s *store.Store, o *orchestrator.Orchestrator, log zerolog.Logger) http.Handler {
	srv := &Server{store: s, orchestrator: o, log: log.With().Str("component", "httpapi").Logger()}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(srv.logRequests)

	r.Get("/health", srv.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/marketdata/snapshots", srv.handlePutMarketSnapshot)
		r.Get("/marketdata/snapshots/{id}", srv.handleGetMarketSnapshot)

		r.Post("/positions/snapshot", srv.handlePostPositionsSnapshot)

		r.Post("/runs", srv.handleCreateRun)
		r.Get("/runs/{run_id}", srv.handleGetRun)

		r.Get("/results/{run_id}/summary", srv.handleResultsSummary)
		r.Get("/results/{run_id}/cube", srv.handleResultsCube)
		r.Get("/results/{run_id}/positions/{position_id}", srv.handleResultsByPosition)
		r.Get("/results/{run_id}/errors", srv.handleResultsErrors)
	})

	return r
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.log.Debug().Str("method", r.Method).Str("path", r.URL.Path).Msg("request")
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Ping(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{"ok": false, "store": "down"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "store": "up"})
}

// writeJSON writes v as a JSON response body with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps an apperr.Error (or a generic error) to an HTTP status
// per spec §7, and writes a `{"error": "..."}` body.
func writeError(w http.ResponseWriter, err error) {
	if appErr, ok := apperr.As(err); ok {
		writeJSON(w, appErr.Kind.HTTPStatus(), map[string]any{"error": appErr.Error()})
		return
	}
	writeJSON(w, http.StatusInternalServerError, map[string]any{"error": err.Error()})
}

func decodeBody(r *http.Request, v any) error {
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return apperr.InvalidInput("malformed request body: " + err.Error())
	}
	return nil
}
