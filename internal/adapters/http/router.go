package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/venturelink/deal-service/internal/application"
	"github.com/venturelink/deal-service/internal/ports"
)

type Handler struct {
	service  *application.Service
	verifier ports.TokenVerifier
}

// NewHandler constructs the HTTP adapter. A nil verifier enables the
// raw-bearer fallback used for local runs and tests.
func NewHandler(service *application.Service, verifier ports.TokenVerifier) *Handler {
	return &Handler{service: service, verifier: verifier}
}

func NewRouter(handler *Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(recoverMiddleware)
	r.Use(loggingMiddleware)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) { writeSuccess(w, http.StatusOK, "ok", nil) })
	r.Get("/readyz", func(w http.ResponseWriter, _ *http.Request) { writeSuccess(w, http.StatusOK, "ready", nil) })

	r.Route("/api/v1", func(r chi.Router) {
		// Payment rail webhook; authenticated at the gateway, not here.
		r.Post("/internal/payments/confirm", handler.confirmPayment)

		r.Group(func(r chi.Router) {
			r.Use(handler.authMiddleware)

			r.Post("/proposals", handler.createProposal)
			r.Get("/proposals", handler.listProposals)
			r.Get("/proposals/{proposal_id}", handler.getProposal)
			r.Put("/proposals/{proposal_id}", handler.reviseProposal)
			r.Post("/proposals/{proposal_id}/submit", handler.submitProposal)
			r.Post("/proposals/{proposal_id}/counter", handler.counterProposal)
			r.Post("/proposals/{proposal_id}/accept", handler.acceptProposal)
			r.Post("/proposals/{proposal_id}/decline", handler.declineProposal)

			r.Get("/milestones/{milestone_id}", handler.getMilestone)
			r.Post("/milestones/{milestone_id}/fund", handler.fundMilestone)
			r.Post("/milestones/{milestone_id}/deliverables", handler.attachDeliverable)
			r.Post("/milestones/{milestone_id}/approve", handler.approveMilestone)
			r.Post("/milestones/{milestone_id}/reject", handler.rejectMilestone)
			r.Post("/milestones/{milestone_id}/disputes", handler.openDispute)

			r.Get("/disputes/{dispute_id}", handler.getDispute)
			r.Post("/disputes/{dispute_id}/review", handler.startDisputeReview)
			r.Post("/disputes/{dispute_id}/resolve", handler.resolveDispute)

			r.Get("/contracts", handler.listContracts)
			r.Get("/contracts/{contract_id}", handler.getContract)
			r.Post("/contracts/{contract_id}/cancel", handler.cancelContract)
			r.Get("/contracts/{contract_id}/feed", handler.contractFeed)
			r.Get("/contracts/{contract_id}/payouts", handler.listPayouts)

			r.Post("/invitations", handler.createInvitation)
			r.Get("/invitations", handler.listInvitations)
			r.Post("/invitations/{invitation_id}/accept", handler.acceptInvitation)
			r.Post("/invitations/{invitation_id}/decline", handler.declineInvitation)

			r.Put("/subjects/{subject_id}/nda", handler.setNDARequirement)
			r.Post("/subjects/{subject_id}/access", handler.requestAccess)
			r.Post("/subjects/{subject_id}/nda/accept", handler.acceptNDA)
			r.Post("/subjects/{subject_id}/nda/decline", handler.declineNDA)
		})
	})
	return r
}
