package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/twg-quant/riskbatch/internal/domain"
)

func (s *Server) handleCreateRun(w http.ResponseWriter, r *http.Request) {
	var req domain.RunRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}

	status, err := s.orchestrator.CreateRun(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "run_id")
	status, err := s.orchestrator.GetRun(r.Context(), runID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}
