package application

import (
	"time"

	"github.com/venturelink/deal-service/internal/ports"
)

type Config struct {
	ServiceName           string
	DefaultCurrency       string
	IdempotencyTTL        time.Duration
	IntentTTL             time.Duration
	SubmitRateThreshold   int
	SubmitRateWindow      time.Duration
	HistoryFeedLimit      int
}

// Actor is the authenticated caller as resolved by the HTTP middleware.
type Actor struct {
	SubjectID      string
	Role           string
	RequestID      string
	IdempotencyKey string
}

type MilestoneInput struct {
	Title       string
	Description string
	DueAt       time.Time
	Price       float64
}

type CreateProposalInput struct {
	RequesterID  string
	InvitationID string
	Title        string
	TotalAmount  float64
	Milestones   []MilestoneInput
}

type ReviseProposalInput struct {
	Title       string
	TotalAmount float64
	Milestones  []MilestoneInput
}

type CounterProposalInput struct {
	Notes string
}

type AttachDeliverableInput struct {
	Name    string
	FileURL string
}

type RejectMilestoneInput struct {
	Notes string
}

type OpenDisputeInput struct {
	Reason   string
	Evidence []EvidenceFileInput
}

type EvidenceFileInput struct {
	Filename string
	FileURL  string
}

type ResolveDisputeInput struct {
	Outcome string
	Notes   string
}

type CreateInvitationInput struct {
	PerformerID string
	Title       string
	Message     string
	NDARequired bool
}

type SetNDARequirementInput struct {
	SubjectID   string
	NDARequired bool
}

type AccessRequestInput struct {
	SubjectID string
	Action    string
	TargetID  string
}

type PaymentConfirmationInput struct {
	PayoutID    string
	ReferenceID string
}

type Service struct {
	cfg Config

	proposals   ports.ProposalRepository
	milestones  ports.MilestoneRepository
	contracts   ports.ContractRepository
	payouts     ports.PayoutRepository
	disputes    ports.DisputeRepository
	invitations ports.InvitationRepository
	ndaSettings ports.NDASettingRepository
	ndaRecords  ports.NDARecordRepository
	history     ports.HistoryRepository
	idempotency ports.IdempotencyRepository
	outbox      ports.OutboxRepository

	payments ports.PaymentClient
	intents  ports.IntentStore
	limiter  ports.RateLimiter

	nowFn func() time.Time
}

type Dependencies struct {
	Config Config

	Proposals   ports.ProposalRepository
	Milestones  ports.MilestoneRepository
	Contracts   ports.ContractRepository
	Payouts     ports.PayoutRepository
	Disputes    ports.DisputeRepository
	Invitations ports.InvitationRepository
	NDASettings ports.NDASettingRepository
	NDARecords  ports.NDARecordRepository
	History     ports.HistoryRepository
	Idempotency ports.IdempotencyRepository
	Outbox      ports.OutboxRepository

	Payments ports.PaymentClient
	Intents  ports.IntentStore
	Limiter  ports.RateLimiter
}

func NewService(deps Dependencies) *Service {
	cfg := deps.Config
	if cfg.ServiceName == "" {
		cfg.ServiceName = "Deal-Service"
	}
	if cfg.DefaultCurrency == "" {
		cfg.DefaultCurrency = "USD"
	}
	if cfg.IdempotencyTTL <= 0 {
		cfg.IdempotencyTTL = 7 * 24 * time.Hour
	}
	if cfg.IntentTTL <= 0 {
		cfg.IntentTTL = 30 * time.Minute
	}
	if cfg.SubmitRateThreshold <= 0 {
		cfg.SubmitRateThreshold = 20
	}
	if cfg.SubmitRateWindow <= 0 {
		cfg.SubmitRateWindow = time.Minute
	}
	if cfg.HistoryFeedLimit <= 0 {
		cfg.HistoryFeedLimit = 200
	}
	return &Service{
		cfg:         cfg,
		proposals:   deps.Proposals,
		milestones:  deps.Milestones,
		contracts:   deps.Contracts,
		payouts:     deps.Payouts,
		disputes:    deps.Disputes,
		invitations: deps.Invitations,
		ndaSettings: deps.NDASettings,
		ndaRecords:  deps.NDARecords,
		history:     deps.History,
		idempotency: deps.Idempotency,
		outbox:      deps.Outbox,
		payments:    deps.Payments,
		intents:     deps.Intents,
		limiter:     deps.Limiter,
		nowFn:       func() time.Time { return time.Now().UTC() },
	}
}
