package http

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/venturelink/deal-service/internal/application"
	"github.com/venturelink/deal-service/internal/contracts"
)

func (h *Handler) createInvitation(w http.ResponseWriter, r *http.Request) {
	actor := actorFromContext(r.Context())
	var req contracts.CreateInvitationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", err.Error(), requestIDFromContext(r.Context()))
		return
	}
	invitation, err := h.service.CreateInvitation(r.Context(), actor, application.CreateInvitationInput{
		PerformerID: strings.TrimSpace(req.PerformerID),
		Title:       strings.TrimSpace(req.Title),
		Message:     strings.TrimSpace(req.Message),
		NDARequired: req.NDARequired,
	})
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusCreated, "", invitation)
}

func (h *Handler) listInvitations(w http.ResponseWriter, r *http.Request) {
	actor := actorFromContext(r.Context())
	rows, err := h.service.ListInvitations(r.Context(), actor, queryLimit(r))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, "", rows)
}

func (h *Handler) acceptInvitation(w http.ResponseWriter, r *http.Request) {
	actor := actorFromContext(r.Context())
	result, err := h.service.AcceptInvitation(r.Context(), actor, chi.URLParam(r, "invitation_id"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, "", result)
}

func (h *Handler) declineInvitation(w http.ResponseWriter, r *http.Request) {
	actor := actorFromContext(r.Context())
	invitation, err := h.service.DeclineInvitation(r.Context(), actor, chi.URLParam(r, "invitation_id"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, "", invitation)
}
