package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/venturelink/deal-service/internal/contracts"
	"github.com/venturelink/deal-service/internal/domain"
)

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeSuccess(w http.ResponseWriter, status int, message string, data interface{}) {
	writeJSON(w, status, contracts.SuccessResponse{
		Status:  "success",
		Message: message,
		Data:    data,
	})
}

func writeError(w http.ResponseWriter, status int, code, message, requestID string) {
	writeJSON(w, status, contracts.ErrorResponse{
		Status: "error",
		Error: contracts.ErrorPayload{
			Code:      code,
			Message:   message,
			RequestID: requestID,
		},
	})
}

// writeDomainError renders a service-layer failure. Validation errors keep
// their full violation list in the details so the client can surface every
// offending field at once.
func writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	requestID := requestIDFromContext(r.Context())
	if ve, ok := domain.AsValidationError(err); ok {
		writeJSON(w, http.StatusBadRequest, contracts.ErrorResponse{
			Status: "error",
			Error: contracts.ErrorPayload{
				Code:      "validation_error",
				Message:   ve.Error(),
				RequestID: requestID,
				Details:   ve.Violations,
			},
		})
		return
	}
	status, code := mapDomainError(err)
	writeError(w, status, code, err.Error(), requestID)
}

func mapDomainError(err error) (status int, code string) {
	switch {
	case err == nil:
		return http.StatusOK, ""
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized, "unauthorized"
	case errors.Is(err, domain.ErrPermissionDenied):
		return http.StatusForbidden, "forbidden"
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, domain.ErrIdempotencyRequired):
		return http.StatusBadRequest, "idempotency_key_required"
	case errors.Is(err, domain.ErrInvalidTransition):
		return http.StatusConflict, "invalid_transition"
	case errors.Is(err, domain.ErrPreconditionFailed):
		return http.StatusConflict, "precondition_failed"
	case errors.Is(err, domain.ErrIdempotencyConflict), errors.Is(err, domain.ErrConflict):
		return http.StatusConflict, "conflict"
	case errors.Is(err, domain.ErrNDARequired):
		return http.StatusForbidden, "nda_required"
	case errors.Is(err, domain.ErrInvalidInput):
		return http.StatusBadRequest, "invalid_input"
	case errors.Is(err, domain.ErrExternalDependency):
		return http.StatusBadGateway, "external_dependency"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}
