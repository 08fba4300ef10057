package contracts

import "time"

type MilestoneRequest struct {
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	DueAt       time.Time `json:"due_at"`
	Price       float64   `json:"price"`
}

type CreateProposalRequest struct {
	RequesterID  string             `json:"requester_id"`
	InvitationID string             `json:"invitation_id,omitempty"`
	Title        string             `json:"title"`
	TotalAmount  float64            `json:"total_amount"`
	Milestones   []MilestoneRequest `json:"milestones"`
}

type ReviseProposalRequest struct {
	Title       string             `json:"title"`
	TotalAmount float64            `json:"total_amount"`
	Milestones  []MilestoneRequest `json:"milestones"`
}

type CounterProposalRequest struct {
	Notes string `json:"notes"`
}

type AttachDeliverableRequest struct {
	Name    string `json:"name"`
	FileURL string `json:"file_url"`
}

type RejectMilestoneRequest struct {
	Notes string `json:"notes"`
}

type EvidenceFile struct {
	Filename string `json:"filename"`
	FileURL  string `json:"file_url"`
}

type OpenDisputeRequest struct {
	Reason   string         `json:"reason"`
	Evidence []EvidenceFile `json:"evidence,omitempty"`
}

type ResolveDisputeRequest struct {
	Outcome string `json:"outcome"`
	Notes   string `json:"notes,omitempty"`
}

type CreateInvitationRequest struct {
	PerformerID string `json:"performer_id"`
	Title       string `json:"title"`
	Message     string `json:"message,omitempty"`
	NDARequired bool   `json:"nda_required"`
}

type SetNDARequirementRequest struct {
	NDARequired bool `json:"nda_required"`
}

type AccessRequest struct {
	Action   string `json:"action"`
	TargetID string `json:"target_id,omitempty"`
}

type AcceptNDARequest struct {
	DocumentURL string `json:"document_url,omitempty"`
}

type PaymentConfirmationRequest struct {
	PayoutID    string `json:"payout_id"`
	ReferenceID string `json:"reference_id"`
}

type SuccessResponse struct {
	Status  string      `json:"status"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

type ErrorResponse struct {
	Status string       `json:"status"`
	Error  ErrorPayload `json:"error"`
}

type ErrorPayload struct {
	Code      string      `json:"code"`
	Message   string      `json:"message"`
	RequestID string      `json:"request_id,omitempty"`
	Details   interface{} `json:"details,omitempty"`
}
