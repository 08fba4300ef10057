package http

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/venturelink/deal-service/internal/application"
	"github.com/venturelink/deal-service/internal/contracts"
)

func (h *Handler) openDispute(w http.ResponseWriter, r *http.Request) {
	actor := actorFromContext(r.Context())
	var req contracts.OpenDisputeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", err.Error(), requestIDFromContext(r.Context()))
		return
	}
	dispute, err := h.service.OpenDispute(r.Context(), actor, chi.URLParam(r, "milestone_id"), application.OpenDisputeInput{
		Reason:   strings.TrimSpace(req.Reason),
		Evidence: mapEvidenceInputs(req.Evidence),
	})
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusCreated, "", dispute)
}

func (h *Handler) getDispute(w http.ResponseWriter, r *http.Request) {
	actor := actorFromContext(r.Context())
	dispute, err := h.service.GetDispute(r.Context(), actor, chi.URLParam(r, "dispute_id"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, "", dispute)
}

func (h *Handler) startDisputeReview(w http.ResponseWriter, r *http.Request) {
	actor := actorFromContext(r.Context())
	dispute, err := h.service.StartDisputeReview(r.Context(), actor, chi.URLParam(r, "dispute_id"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, "", dispute)
}

func (h *Handler) resolveDispute(w http.ResponseWriter, r *http.Request) {
	actor := actorFromContext(r.Context())
	var req contracts.ResolveDisputeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", err.Error(), requestIDFromContext(r.Context()))
		return
	}
	dispute, err := h.service.ResolveDispute(r.Context(), actor, chi.URLParam(r, "dispute_id"), application.ResolveDisputeInput{
		Outcome: strings.TrimSpace(req.Outcome),
		Notes:   strings.TrimSpace(req.Notes),
	})
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, "", dispute)
}

func mapEvidenceInputs(in []contracts.EvidenceFile) []application.EvidenceFileInput {
	out := make([]application.EvidenceFileInput, 0, len(in))
	for _, item := range in {
		out = append(out, application.EvidenceFileInput{
			Filename: strings.TrimSpace(item.Filename),
			FileURL:  strings.TrimSpace(item.FileURL),
		})
	}
	return out
}
