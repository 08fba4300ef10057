package http

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/venturelink/deal-service/internal/application"
	"github.com/venturelink/deal-service/internal/contracts"
)

func (h *Handler) createProposal(w http.ResponseWriter, r *http.Request) {
	actor := actorFromContext(r.Context())
	var req contracts.CreateProposalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", err.Error(), requestIDFromContext(r.Context()))
		return
	}
	detail, err := h.service.CreateProposal(r.Context(), actor, application.CreateProposalInput{
		RequesterID:  strings.TrimSpace(req.RequesterID),
		InvitationID: strings.TrimSpace(req.InvitationID),
		Title:        strings.TrimSpace(req.Title),
		TotalAmount:  req.TotalAmount,
		Milestones:   mapMilestoneInputs(req.Milestones),
	})
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusCreated, "", detail)
}

func (h *Handler) reviseProposal(w http.ResponseWriter, r *http.Request) {
	actor := actorFromContext(r.Context())
	var req contracts.ReviseProposalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", err.Error(), requestIDFromContext(r.Context()))
		return
	}
	detail, err := h.service.ReviseProposal(r.Context(), actor, chi.URLParam(r, "proposal_id"), application.ReviseProposalInput{
		Title:       strings.TrimSpace(req.Title),
		TotalAmount: req.TotalAmount,
		Milestones:  mapMilestoneInputs(req.Milestones),
	})
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, "", detail)
}

func (h *Handler) submitProposal(w http.ResponseWriter, r *http.Request) {
	actor := actorFromContext(r.Context())
	detail, err := h.service.SubmitProposal(r.Context(), actor, chi.URLParam(r, "proposal_id"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, "", detail)
}

func (h *Handler) counterProposal(w http.ResponseWriter, r *http.Request) {
	actor := actorFromContext(r.Context())
	var req contracts.CounterProposalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", err.Error(), requestIDFromContext(r.Context()))
		return
	}
	proposal, err := h.service.CounterProposal(r.Context(), actor, chi.URLParam(r, "proposal_id"), application.CounterProposalInput{
		Notes: strings.TrimSpace(req.Notes),
	})
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, "", proposal)
}

func (h *Handler) acceptProposal(w http.ResponseWriter, r *http.Request) {
	actor := actorFromContext(r.Context())
	result, err := h.service.AcceptProposal(r.Context(), actor, chi.URLParam(r, "proposal_id"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusCreated, "", result)
}

func (h *Handler) declineProposal(w http.ResponseWriter, r *http.Request) {
	actor := actorFromContext(r.Context())
	proposal, err := h.service.DeclineProposal(r.Context(), actor, chi.URLParam(r, "proposal_id"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, "", proposal)
}

func (h *Handler) getProposal(w http.ResponseWriter, r *http.Request) {
	actor := actorFromContext(r.Context())
	detail, err := h.service.GetProposal(r.Context(), actor, chi.URLParam(r, "proposal_id"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, "", detail)
}

func (h *Handler) listProposals(w http.ResponseWriter, r *http.Request) {
	actor := actorFromContext(r.Context())
	proposals, err := h.service.ListProposals(r.Context(), actor, queryLimit(r))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, "", proposals)
}

func mapMilestoneInputs(in []contracts.MilestoneRequest) []application.MilestoneInput {
	out := make([]application.MilestoneInput, 0, len(in))
	for _, item := range in {
		out = append(out, application.MilestoneInput{
			Title:       strings.TrimSpace(item.Title),
			Description: strings.TrimSpace(item.Description),
			DueAt:       item.DueAt,
			Price:       item.Price,
		})
	}
	return out
}

func queryLimit(r *http.Request) int {
	raw := strings.TrimSpace(r.URL.Query().Get("limit"))
	if raw == "" {
		return 0
	}
	limit, err := strconv.Atoi(raw)
	if err != nil {
		return 0
	}
	return limit
}
