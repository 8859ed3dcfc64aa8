package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/twg-quant/riskbatch/internal/apperr"
	"github.com/twg-quant/riskbatch/internal/domain"
)

type putMarketSnapshotRequest struct {
	SnapshotID string                          `json:"snapshot_id"`
	Payload    domain.MarketSnapshotPayload     `json:"payload"`
}

func (s *Server) handlePutMarketSnapshot(w http.ResponseWriter, r *http.Request) {
	var req putMarketSnapshotRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.SnapshotID == "" {
		writeError(w, apperr.InvalidInput("snapshot_id is required"))
		return
	}

	hash, err := s.store.PutMarketSnapshot(r.Context(), req.SnapshotID, req.Payload)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"snapshot_id": req.SnapshotID, "payload_hash": hash})
}

func (s *Server) handleGetMarketSnapshot(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	payload, err := s.store.GetMarketSnapshot(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, payload)
}

type postPositionsSnapshotRequest struct {
	Positions []domain.Position `json:"positions"`
}

func (s *Server) handlePostPositionsSnapshot(w http.ResponseWriter, r *http.Request) {
	var req postPositionsSnapshotRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if len(req.Positions) == 0 {
		writeError(w, apperr.InvalidInput("positions must be a non-empty list"))
		return
	}

	id, hash, err := s.store.CreatePositionSnapshot(r.Context(), req.Positions)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"position_snapshot_id": id, "payload_hash": hash})
}
