package http

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/venturelink/deal-service/internal/application"
	"github.com/venturelink/deal-service/internal/contracts"
)

func (h *Handler) getMilestone(w http.ResponseWriter, r *http.Request) {
	actor := actorFromContext(r.Context())
	detail, err := h.service.GetMilestone(r.Context(), actor, chi.URLParam(r, "milestone_id"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, "", detail)
}

func (h *Handler) fundMilestone(w http.ResponseWriter, r *http.Request) {
	actor := actorFromContext(r.Context())
	detail, err := h.service.FundMilestone(r.Context(), actor, chi.URLParam(r, "milestone_id"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, "", detail)
}

func (h *Handler) attachDeliverable(w http.ResponseWriter, r *http.Request) {
	actor := actorFromContext(r.Context())
	var req contracts.AttachDeliverableRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", err.Error(), requestIDFromContext(r.Context()))
		return
	}
	milestone, err := h.service.AttachDeliverable(r.Context(), actor, chi.URLParam(r, "milestone_id"), application.AttachDeliverableInput{
		Name:    strings.TrimSpace(req.Name),
		FileURL: strings.TrimSpace(req.FileURL),
	})
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusCreated, "", milestone)
}

func (h *Handler) approveMilestone(w http.ResponseWriter, r *http.Request) {
	actor := actorFromContext(r.Context())
	detail, err := h.service.ApproveMilestone(r.Context(), actor, chi.URLParam(r, "milestone_id"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, "", detail)
}

func (h *Handler) rejectMilestone(w http.ResponseWriter, r *http.Request) {
	actor := actorFromContext(r.Context())
	var req contracts.RejectMilestoneRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", err.Error(), requestIDFromContext(r.Context()))
		return
	}
	milestone, err := h.service.RejectMilestone(r.Context(), actor, chi.URLParam(r, "milestone_id"), application.RejectMilestoneInput{
		Notes: strings.TrimSpace(req.Notes),
	})
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, "", milestone)
}
