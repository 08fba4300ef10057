package http

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
)

func (h *Handler) getContract(w http.ResponseWriter, r *http.Request) {
	actor := actorFromContext(r.Context())
	detail, err := h.service.GetContract(r.Context(), actor, chi.URLParam(r, "contract_id"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, "", detail)
}

func (h *Handler) listContracts(w http.ResponseWriter, r *http.Request) {
	actor := actorFromContext(r.Context())
	rows, err := h.service.ListContracts(r.Context(), actor, queryLimit(r))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, "", rows)
}

func (h *Handler) cancelContract(w http.ResponseWriter, r *http.Request) {
	actor := actorFromContext(r.Context())
	var req struct {
		Reason string `json:"reason"`
	}
	// body is optional for cancel
	_ = json.NewDecoder(r.Body).Decode(&req)
	contract, err := h.service.CancelContract(r.Context(), actor, chi.URLParam(r, "contract_id"), strings.TrimSpace(req.Reason))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, "", contract)
}

func (h *Handler) contractFeed(w http.ResponseWriter, r *http.Request) {
	actor := actorFromContext(r.Context())
	rows, err := h.service.ContractFeed(r.Context(), actor, chi.URLParam(r, "contract_id"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, "", rows)
}

func (h *Handler) listPayouts(w http.ResponseWriter, r *http.Request) {
	actor := actorFromContext(r.Context())
	rows, err := h.service.ListPayouts(r.Context(), actor, chi.URLParam(r, "contract_id"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, "", rows)
}
