package postgres

import (
	"github.com/venturelink/deal-service/internal/ports"
	"gorm.io/gorm"
)

type Repositories struct {
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
}

func NewRepositories(db *gorm.DB) Repositories {
	return Repositories{
		Proposals:   &proposalRepository{db: db},
		Milestones:  &milestoneRepository{db: db},
		Contracts:   &contractRepository{db: db},
		Payouts:     &payoutRepository{db: db},
		Disputes:    &disputeRepository{db: db},
		Invitations: &invitationRepository{db: db},
		NDASettings: &ndaSettingRepository{db: db},
		NDARecords:  &ndaRecordRepository{db: db},
		History:     &historyRepository{db: db},
		Idempotency: &idempotencyRepository{db: db},
		Outbox:      &outboxRepository{db: db},
	}
}
