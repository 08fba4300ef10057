package ports

import (
	"context"
	"time"

	"github.com/venturelink/deal-service/internal/domain"
)

// Repositories follow a compare-and-set store discipline: every status
// write takes the expected prior status as precondition and fails with
// domain.ErrPreconditionFailed when the stored row has moved on. Callers
// never overwrite a concurrent transition silently.

type ProposalRepository interface {
	Create(ctx context.Context, row domain.Proposal) error
	GetByID(ctx context.Context, proposalID string) (domain.Proposal, error)
	UpdateWithPrecondition(ctx context.Context, row domain.Proposal, expected domain.ProposalStatus) error
	ListByParty(ctx context.Context, subjectID string, limit int) ([]domain.Proposal, error)
}

type MilestoneRepository interface {
	CreateMany(ctx context.Context, rows []domain.Milestone) error
	GetByID(ctx context.Context, milestoneID string) (domain.Milestone, error)
	ListByProposalID(ctx context.Context, proposalID string) ([]domain.Milestone, error)
	ListByContractID(ctx context.Context, contractID string) ([]domain.Milestone, error)
	ReplaceForProposal(ctx context.Context, proposalID string, rows []domain.Milestone) error
	UpdateWithPrecondition(ctx context.Context, row domain.Milestone, expected domain.MilestoneStatus) error
}

// ContractRepository creation is idempotent keyed by proposal id: a second
// create for the same proposal returns the existing row with created=false.
type ContractRepository interface {
	CreateIdempotent(ctx context.Context, row domain.Contract, snapshot []domain.Milestone) (domain.Contract, bool, error)
	GetByID(ctx context.Context, contractID string) (domain.Contract, error)
	GetByProposalID(ctx context.Context, proposalID string) (domain.Contract, error)
	UpdateWithPrecondition(ctx context.Context, row domain.Contract, expected domain.ContractStatus) error
	ListByParty(ctx context.Context, subjectID string, limit int) ([]domain.Contract, error)
}

type PayoutRepository interface {
	Create(ctx context.Context, row domain.Payout) error
	GetByID(ctx context.Context, payoutID string) (domain.Payout, error)
	GetByMilestoneID(ctx context.Context, milestoneID string) (domain.Payout, error)
	UpdateWithPrecondition(ctx context.Context, row domain.Payout, expected domain.PayoutStatus) error
	ListByContractID(ctx context.Context, contractID string) ([]domain.Payout, error)
}

type DisputeRepository interface {
	Create(ctx context.Context, row domain.Dispute) error
	GetByID(ctx context.Context, disputeID string) (domain.Dispute, error)
	GetOpenByMilestoneID(ctx context.Context, milestoneID string) (domain.Dispute, error)
	UpdateWithPrecondition(ctx context.Context, row domain.Dispute, expected domain.DisputeStatus) error
	ListByContractID(ctx context.Context, contractID string) ([]domain.Dispute, error)
}

type InvitationRepository interface {
	Create(ctx context.Context, row domain.Invitation) error
	GetByID(ctx context.Context, invitationID string) (domain.Invitation, error)
	UpdateWithPrecondition(ctx context.Context, row domain.Invitation, expected domain.InvitationStatus) error
	ListByPerformer(ctx context.Context, performerID string, limit int) ([]domain.Invitation, error)
}

type NDASettingRepository interface {
	Upsert(ctx context.Context, row domain.NDASetting) error
	Get(ctx context.Context, subjectID string) (domain.NDASetting, error)
}

// NDARecordRepository stores accepted agreements. Create must be the only
// writer; a decline writes nothing.
type NDARecordRepository interface {
	Create(ctx context.Context, row domain.NDARecord) error
	Get(ctx context.Context, subjectID, viewerID string) (domain.NDARecord, error)
}

type HistoryRepository interface {
	Append(ctx context.Context, row domain.StateTransition) error
	ListByContractID(ctx context.Context, contractID string, limit int) ([]domain.StateTransition, error)
}

// IdempotencyRecord tracks a previously accepted mutating request.
type IdempotencyRecord struct {
	Key          string
	RequestHash  string
	Status       string
	ResponseCode int
	ResponseBody []byte
	ExpiresAt    time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// IdempotencyRepository enforces idempotent mutation semantics.
type IdempotencyRepository interface {
	Get(ctx context.Context, key string) (*IdempotencyRecord, error)
	Reserve(ctx context.Context, key, requestHash string, expiresAt time.Time) error
	Complete(ctx context.Context, key string, responseCode int, responseBody []byte, at time.Time) error
	// Release frees a pending reservation whose operation wrote nothing,
	// so the caller may retry under the same key. Completed records are
	// never released.
	Release(ctx context.Context, key string) error
}

// OutboxEvent is the write-side event payload prior to storage.
type OutboxEvent struct {
	EventID      string
	EventType    string
	PartitionKey string
	Payload      []byte
	OccurredAt   time.Time
}

// OutboxRecord represents durable outbox state, including retry/error metadata.
type OutboxRecord struct {
	OutboxID       string
	EventType      string
	PartitionKey   string
	Payload        []byte
	RetryCount     int
	LastError      *string
	CreatedAt      time.Time
	PublishedAt    *time.Time
	LastErrorAt    *time.Time
	ClaimToken     *string
	ClaimUntil     *time.Time
	DeadLetteredAt *time.Time
}

// OutboxRepository controls the publish-retry workflow for domain events.
type OutboxRepository interface {
	Enqueue(ctx context.Context, event OutboxEvent) error
	ClaimUnpublished(ctx context.Context, limit int, claimToken string, claimUntil time.Time) ([]OutboxRecord, error)
	MarkPublished(ctx context.Context, outboxID string, claimToken string, at time.Time) error
	MarkFailed(ctx context.Context, outboxID string, claimToken string, reason string, at time.Time, maxRetries int) error
}
