package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

func (s *Server) handleResultsSummary(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "run_id")
	scenarioID := r.URL.Query().Get("scenario_id")

	rows, pvSum, err := s.store.Summary(r.Context(), runID, scenarioID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"run_id": runID, "rows": rows, "pv_sum": pvSum})
}

func (s *Server) handleResultsCube(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "run_id")
	measure := r.URL.Query().Get("measure")
	groupBy := r.URL.Query().Get("by")
	scenarioID := r.URL.Query().Get("scenario_id")

	cube, err := s.store.Cube(r.Context(), runID, measure, groupBy, scenarioID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cube)
}

// handleResultsByPosition is the supplemented audit endpoint of SPEC_FULL
// §4.6.1: every result row for one position across all scenarios in a run.
func (s *Server) handleResultsByPosition(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "run_id")
	positionID := chi.URLParam(r, "position_id")

	results, err := s.store.PositionResults(r.Context(), runID, positionID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, results)
}

// handleResultsErrors is the supplemented audit endpoint of SPEC_FULL
// §4.6.1: the DEAD tasks for a run, surfacing last_error/attempts to
// operators.
func (s *Server) handleResultsErrors(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "run_id")

	tasks, err := s.store.DeadTasksForRun(r.Context(), runID)
	if err != nil {
		writeError(w, err)
		return
	}

	type deadTask struct {
		TaskID      uint   `json:"task_id"`
		ProductType string `json:"product_type"`
		HashBucket  int    `json:"hash_bucket"`
		Attempts    int    `json:"attempts"`
		LastError   string `json:"last_error"`
	}
	out := make([]deadTask, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, deadTask{TaskID: t.ID, ProductType: t.ProductType, HashBucket: t.HashBucket, Attempts: t.Attempts, LastError: t.LastError})
	}
	writeJSON(w, http.StatusOK, out)
}
