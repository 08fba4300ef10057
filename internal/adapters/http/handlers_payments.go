package http

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/venturelink/deal-service/internal/application"
	"github.com/venturelink/deal-service/internal/contracts"
)

// confirmPayment is the settlement webhook from the payment rail. Paid is
// the only terminal payout status and only the rail may assert it.
func (h *Handler) confirmPayment(w http.ResponseWriter, r *http.Request) {
	var req contracts.PaymentConfirmationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", err.Error(), requestIDFromContext(r.Context()))
		return
	}
	payout, err := h.service.ConfirmPayoutPaid(r.Context(), application.PaymentConfirmationInput{
		PayoutID:    strings.TrimSpace(req.PayoutID),
		ReferenceID: strings.TrimSpace(req.ReferenceID),
	})
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, "", payout)
}
