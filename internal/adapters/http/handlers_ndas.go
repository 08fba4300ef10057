package http

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/venturelink/deal-service/internal/application"
	"github.com/venturelink/deal-service/internal/contracts"
)

func (h *Handler) setNDARequirement(w http.ResponseWriter, r *http.Request) {
	actor := actorFromContext(r.Context())
	var req contracts.SetNDARequirementRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", err.Error(), requestIDFromContext(r.Context()))
		return
	}
	setting, err := h.service.SetNDARequirement(r.Context(), actor, application.SetNDARequirementInput{
		SubjectID:   chi.URLParam(r, "subject_id"),
		NDARequired: req.NDARequired,
	})
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, "", setting)
}

func (h *Handler) requestAccess(w http.ResponseWriter, r *http.Request) {
	actor := actorFromContext(r.Context())
	var req contracts.AccessRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", err.Error(), requestIDFromContext(r.Context()))
		return
	}
	decision, err := h.service.RequestAccess(r.Context(), actor, application.AccessRequestInput{
		SubjectID: chi.URLParam(r, "subject_id"),
		Action:    strings.TrimSpace(req.Action),
		TargetID:  strings.TrimSpace(req.TargetID),
	})
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	status := http.StatusOK
	if decision.NDAChallenge {
		// 202: the intent is parked pending the agreement step
		status = http.StatusAccepted
	}
	writeSuccess(w, status, "", decision)
}

func (h *Handler) acceptNDA(w http.ResponseWriter, r *http.Request) {
	actor := actorFromContext(r.Context())
	var req contracts.AcceptNDARequest
	// body is optional; the document url is informational
	_ = json.NewDecoder(r.Body).Decode(&req)
	result, err := h.service.AcceptNDA(r.Context(), actor, chi.URLParam(r, "subject_id"), strings.TrimSpace(req.DocumentURL))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusCreated, "", result)
}

func (h *Handler) declineNDA(w http.ResponseWriter, r *http.Request) {
	actor := actorFromContext(r.Context())
	if err := h.service.DeclineNDA(r.Context(), actor, chi.URLParam(r, "subject_id")); err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, "declined", nil)
}
