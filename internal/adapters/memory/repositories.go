// Package memory provides mutex-guarded map implementations of the
// repository ports. They back unit tests and local runs without Postgres
// while keeping the same precondition semantics as the SQL adapters.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/venturelink/deal-service/internal/domain"
	"github.com/venturelink/deal-service/internal/ports"
)

type Repositories struct {
	Proposals   *ProposalRepository
	Milestones  *MilestoneRepository
	Contracts   *ContractRepository
	Payouts     *PayoutRepository
	Disputes    *DisputeRepository
	Invitations *InvitationRepository
	NDASettings *NDASettingRepository
	NDARecords  *NDARecordRepository
	History     *HistoryRepository
	Idempotency *IdempotencyRepository
	Outbox      *OutboxRepository
}

func NewRepositories() *Repositories {
	repos := &Repositories{
		Proposals:   &ProposalRepository{records: map[string]domain.Proposal{}},
		Milestones:  &MilestoneRepository{records: map[string]domain.Milestone{}},
		Contracts:   &ContractRepository{records: map[string]domain.Contract{}, byProposal: map[string]string{}},
		Payouts:     &PayoutRepository{records: map[string]domain.Payout{}, byMilestone: map[string]string{}},
		Disputes:    &DisputeRepository{records: map[string]domain.Dispute{}},
		Invitations: &InvitationRepository{records: map[string]domain.Invitation{}},
		NDASettings: &NDASettingRepository{records: map[string]domain.NDASetting{}},
		NDARecords:  &NDARecordRepository{records: map[string]domain.NDARecord{}},
		History:     &HistoryRepository{},
		Idempotency: &IdempotencyRepository{records: map[string]ports.IdempotencyRecord{}},
		Outbox:      &OutboxRepository{records: map[string]ports.OutboxRecord{}},
	}
	repos.Contracts.milestones = repos.Milestones
	return repos
}

type ProposalRepository struct {
	mu      sync.RWMutex
	records map[string]domain.Proposal
	order   []string
}

func (r *ProposalRepository) Create(_ context.Context, row domain.Proposal) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.records[row.ProposalID]; ok {
		return domain.ErrConflict
	}
	r.records[row.ProposalID] = row
	r.order = append(r.order, row.ProposalID)
	return nil
}

func (r *ProposalRepository) GetByID(_ context.Context, proposalID string) (domain.Proposal, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	row, ok := r.records[proposalID]
	if !ok {
		return domain.Proposal{}, domain.ErrNotFound
	}
	return row, nil
}

func (r *ProposalRepository) UpdateWithPrecondition(_ context.Context, row domain.Proposal, expected domain.ProposalStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	current, ok := r.records[row.ProposalID]
	if !ok {
		return domain.ErrNotFound
	}
	if current.Status != expected {
		return domain.ErrPreconditionFailed
	}
	r.records[row.ProposalID] = row
	return nil
}

func (r *ProposalRepository) ListByParty(_ context.Context, subjectID string, limit int) ([]domain.Proposal, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.Proposal, 0)
	for i := len(r.order) - 1; i >= 0 && len(out) < limit; i-- {
		row := r.records[r.order[i]]
		if row.RequesterID == subjectID || row.PerformerID == subjectID {
			out = append(out, row)
		}
	}
	return out, nil
}

type MilestoneRepository struct {
	mu      sync.RWMutex
	records map[string]domain.Milestone
}

func (r *MilestoneRepository) CreateMany(_ context.Context, rows []domain.Milestone) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, row := range rows {
		if _, ok := r.records[row.MilestoneID]; ok {
			return domain.ErrConflict
		}
	}
	for _, row := range rows {
		r.records[row.MilestoneID] = row
	}
	return nil
}

func (r *MilestoneRepository) GetByID(_ context.Context, milestoneID string) (domain.Milestone, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	row, ok := r.records[milestoneID]
	if !ok {
		return domain.Milestone{}, domain.ErrNotFound
	}
	return row, nil
}

func (r *MilestoneRepository) ListByProposalID(_ context.Context, proposalID string) ([]domain.Milestone, error) {
	return r.listWhere(func(m domain.Milestone) bool { return m.ProposalID == proposalID })
}

func (r *MilestoneRepository) ListByContractID(_ context.Context, contractID string) ([]domain.Milestone, error) {
	return r.listWhere(func(m domain.Milestone) bool { return m.ContractID == contractID })
}

func (r *MilestoneRepository) listWhere(keep func(domain.Milestone) bool) ([]domain.Milestone, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.Milestone, 0)
	for _, row := range r.records {
		if keep(row) {
			out = append(out, row)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Position != out[j].Position {
			return out[i].Position < out[j].Position
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (r *MilestoneRepository) ReplaceForProposal(_ context.Context, proposalID string, rows []domain.Milestone) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, row := range r.records {
		if row.ProposalID == proposalID && row.ContractID == "" {
			delete(r.records, id)
		}
	}
	for _, row := range rows {
		r.records[row.MilestoneID] = row
	}
	return nil
}

func (r *MilestoneRepository) UpdateWithPrecondition(_ context.Context, row domain.Milestone, expected domain.MilestoneStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	current, ok := r.records[row.MilestoneID]
	if !ok {
		return domain.ErrNotFound
	}
	if current.Status != expected {
		return domain.ErrPreconditionFailed
	}
	r.records[row.MilestoneID] = row
	return nil
}

type ContractRepository struct {
	mu         sync.RWMutex
	records    map[string]domain.Contract
	byProposal map[string]string
	order      []string
	milestones *MilestoneRepository
}

func (r *ContractRepository) CreateIdempotent(ctx context.Context, row domain.Contract, snapshot []domain.Milestone) (domain.Contract, bool, error) {
	r.mu.Lock()
	if existingID, ok := r.byProposal[row.ProposalID]; ok {
		existing := r.records[existingID]
		r.mu.Unlock()
		return existing, false, nil
	}
	r.records[row.ContractID] = row
	r.byProposal[row.ProposalID] = row.ContractID
	r.order = append(r.order, row.ContractID)
	r.mu.Unlock()

	if r.milestones != nil && len(snapshot) > 0 {
		if err := r.milestones.CreateMany(ctx, snapshot); err != nil {
			return domain.Contract{}, false, err
		}
	}
	return row, true, nil
}

func (r *ContractRepository) GetByID(_ context.Context, contractID string) (domain.Contract, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	row, ok := r.records[contractID]
	if !ok {
		return domain.Contract{}, domain.ErrNotFound
	}
	return row, nil
}

func (r *ContractRepository) GetByProposalID(_ context.Context, proposalID string) (domain.Contract, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	contractID, ok := r.byProposal[proposalID]
	if !ok {
		return domain.Contract{}, domain.ErrNotFound
	}
	return r.records[contractID], nil
}

func (r *ContractRepository) UpdateWithPrecondition(_ context.Context, row domain.Contract, expected domain.ContractStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	current, ok := r.records[row.ContractID]
	if !ok {
		return domain.ErrNotFound
	}
	if current.Status != expected {
		return domain.ErrPreconditionFailed
	}
	r.records[row.ContractID] = row
	return nil
}

func (r *ContractRepository) ListByParty(_ context.Context, subjectID string, limit int) ([]domain.Contract, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.Contract, 0)
	for i := len(r.order) - 1; i >= 0 && len(out) < limit; i-- {
		row := r.records[r.order[i]]
		if row.RequesterID == subjectID || row.PerformerID == subjectID {
			out = append(out, row)
		}
	}
	return out, nil
}

type PayoutRepository struct {
	mu          sync.RWMutex
	records     map[string]domain.Payout
	byMilestone map[string]string
}

func (r *PayoutRepository) Create(_ context.Context, row domain.Payout) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.records[row.PayoutID]; ok {
		return domain.ErrConflict
	}
	if _, ok := r.byMilestone[row.MilestoneID]; ok {
		return domain.ErrConflict
	}
	r.records[row.PayoutID] = row
	r.byMilestone[row.MilestoneID] = row.PayoutID
	return nil
}

func (r *PayoutRepository) GetByID(_ context.Context, payoutID string) (domain.Payout, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	row, ok := r.records[payoutID]
	if !ok {
		return domain.Payout{}, domain.ErrNotFound
	}
	return row, nil
}

func (r *PayoutRepository) GetByMilestoneID(_ context.Context, milestoneID string) (domain.Payout, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	payoutID, ok := r.byMilestone[milestoneID]
	if !ok {
		return domain.Payout{}, domain.ErrNotFound
	}
	return r.records[payoutID], nil
}

func (r *PayoutRepository) UpdateWithPrecondition(_ context.Context, row domain.Payout, expected domain.PayoutStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	current, ok := r.records[row.PayoutID]
	if !ok {
		return domain.ErrNotFound
	}
	if current.Status != expected {
		return domain.ErrPreconditionFailed
	}
	r.records[row.PayoutID] = row
	return nil
}

func (r *PayoutRepository) ListByContractID(_ context.Context, contractID string) ([]domain.Payout, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.Payout, 0)
	for _, row := range r.records {
		if row.ContractID == contractID {
			out = append(out, row)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

type DisputeRepository struct {
	mu      sync.RWMutex
	records map[string]domain.Dispute
	order   []string
}

func (r *DisputeRepository) Create(_ context.Context, row domain.Dispute) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.records[row.DisputeID]; ok {
		return domain.ErrConflict
	}
	for _, existing := range r.records {
		if existing.MilestoneID == row.MilestoneID && existing.Status != domain.DisputeStatusResolved {
			return domain.ErrConflict
		}
	}
	r.records[row.DisputeID] = row
	r.order = append(r.order, row.DisputeID)
	return nil
}

func (r *DisputeRepository) GetByID(_ context.Context, disputeID string) (domain.Dispute, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	row, ok := r.records[disputeID]
	if !ok {
		return domain.Dispute{}, domain.ErrNotFound
	}
	return row, nil
}

func (r *DisputeRepository) GetOpenByMilestoneID(_ context.Context, milestoneID string) (domain.Dispute, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, row := range r.records {
		if row.MilestoneID == milestoneID && row.Status != domain.DisputeStatusResolved {
			return row, nil
		}
	}
	return domain.Dispute{}, domain.ErrNotFound
}

func (r *DisputeRepository) UpdateWithPrecondition(_ context.Context, row domain.Dispute, expected domain.DisputeStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	current, ok := r.records[row.DisputeID]
	if !ok {
		return domain.ErrNotFound
	}
	if current.Status != expected {
		return domain.ErrPreconditionFailed
	}
	r.records[row.DisputeID] = row
	return nil
}

func (r *DisputeRepository) ListByContractID(_ context.Context, contractID string) ([]domain.Dispute, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.Dispute, 0)
	for i := len(r.order) - 1; i >= 0; i-- {
		row := r.records[r.order[i]]
		if row.ContractID == contractID {
			out = append(out, row)
		}
	}
	return out, nil
}

type InvitationRepository struct {
	mu      sync.RWMutex
	records map[string]domain.Invitation
	order   []string
}

func (r *InvitationRepository) Create(_ context.Context, row domain.Invitation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.records[row.InvitationID]; ok {
		return domain.ErrConflict
	}
	r.records[row.InvitationID] = row
	r.order = append(r.order, row.InvitationID)
	return nil
}

func (r *InvitationRepository) GetByID(_ context.Context, invitationID string) (domain.Invitation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	row, ok := r.records[invitationID]
	if !ok {
		return domain.Invitation{}, domain.ErrNotFound
	}
	return row, nil
}

func (r *InvitationRepository) UpdateWithPrecondition(_ context.Context, row domain.Invitation, expected domain.InvitationStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	current, ok := r.records[row.InvitationID]
	if !ok {
		return domain.ErrNotFound
	}
	if current.Status != expected {
		return domain.ErrPreconditionFailed
	}
	r.records[row.InvitationID] = row
	return nil
}

func (r *InvitationRepository) ListByPerformer(_ context.Context, performerID string, limit int) ([]domain.Invitation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.Invitation, 0)
	for i := len(r.order) - 1; i >= 0 && len(out) < limit; i-- {
		row := r.records[r.order[i]]
		if row.PerformerID == performerID {
			out = append(out, row)
		}
	}
	return out, nil
}

type NDASettingRepository struct {
	mu      sync.RWMutex
	records map[string]domain.NDASetting
}

func (r *NDASettingRepository) Upsert(_ context.Context, row domain.NDASetting) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records[row.SubjectID] = row
	return nil
}

func (r *NDASettingRepository) Get(_ context.Context, subjectID string) (domain.NDASetting, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	row, ok := r.records[subjectID]
	if !ok {
		return domain.NDASetting{}, domain.ErrNotFound
	}
	return row, nil
}

type NDARecordRepository struct {
	mu      sync.RWMutex
	records map[string]domain.NDARecord
}

func ndaRecordKey(subjectID, viewerID string) string { return subjectID + "|" + viewerID }

func (r *NDARecordRepository) Create(_ context.Context, row domain.NDARecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := ndaRecordKey(row.SubjectID, row.ViewerID)
	if _, ok := r.records[key]; ok {
		return domain.ErrConflict
	}
	r.records[key] = row
	return nil
}

func (r *NDARecordRepository) Get(_ context.Context, subjectID, viewerID string) (domain.NDARecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	row, ok := r.records[ndaRecordKey(subjectID, viewerID)]
	if !ok {
		return domain.NDARecord{}, domain.ErrNotFound
	}
	return row, nil
}

type HistoryRepository struct {
	mu   sync.RWMutex
	rows []domain.StateTransition
}

func (r *HistoryRepository) Append(_ context.Context, row domain.StateTransition) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows = append(r.rows, row)
	return nil
}

func (r *HistoryRepository) ListByContractID(_ context.Context, contractID string, limit int) ([]domain.StateTransition, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.StateTransition, 0)
	for _, row := range r.rows {
		if row.ContractID == contractID {
			out = append(out, row)
		}
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}

type IdempotencyRepository struct {
	mu      sync.Mutex
	records map[string]ports.IdempotencyRecord
}

func (r *IdempotencyRepository) Get(_ context.Context, key string) (*ports.IdempotencyRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[key]
	if !ok {
		return nil, nil
	}
	out := rec
	return &out, nil
}

func (r *IdempotencyRepository) Reserve(_ context.Context, key, requestHash string, expiresAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.records[key]; ok {
		return domain.ErrConflict
	}
	now := time.Now().UTC()
	r.records[key] = ports.IdempotencyRecord{
		Key:         key,
		RequestHash: requestHash,
		Status:      "PENDING",
		ExpiresAt:   expiresAt,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	return nil
}

func (r *IdempotencyRepository) Complete(_ context.Context, key string, responseCode int, responseBody []byte, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[key]
	if !ok {
		return domain.ErrNotFound
	}
	rec.Status = "COMPLETED"
	rec.ResponseCode = responseCode
	rec.ResponseBody = responseBody
	rec.UpdatedAt = at
	r.records[key] = rec
	return nil
}

func (r *IdempotencyRepository) Release(_ context.Context, key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[key]
	if !ok || rec.Status != "PENDING" {
		return nil
	}
	delete(r.records, key)
	return nil
}

type OutboxRepository struct {
	mu      sync.Mutex
	records map[string]ports.OutboxRecord
	order   []string
}

func (r *OutboxRepository) Enqueue(_ context.Context, event ports.OutboxEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.records[event.EventID]; ok {
		return domain.ErrConflict
	}
	r.records[event.EventID] = ports.OutboxRecord{
		OutboxID:     event.EventID,
		EventType:    event.EventType,
		PartitionKey: event.PartitionKey,
		Payload:      event.Payload,
		CreatedAt:    event.OccurredAt,
	}
	r.order = append(r.order, event.EventID)
	return nil
}

func (r *OutboxRepository) ClaimUnpublished(_ context.Context, limit int, claimToken string, claimUntil time.Time) ([]ports.OutboxRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now().UTC()
	out := make([]ports.OutboxRecord, 0, limit)
	for _, id := range r.order {
		if len(out) >= limit {
			break
		}
		rec := r.records[id]
		if rec.PublishedAt != nil || rec.DeadLetteredAt != nil {
			continue
		}
		if rec.ClaimUntil != nil && rec.ClaimUntil.After(now) {
			continue
		}
		token := claimToken
		until := claimUntil
		rec.ClaimToken = &token
		rec.ClaimUntil = &until
		r.records[id] = rec
		out = append(out, rec)
	}
	return out, nil
}

func (r *OutboxRepository) MarkPublished(_ context.Context, outboxID string, claimToken string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[outboxID]
	if !ok || rec.ClaimToken == nil || *rec.ClaimToken != claimToken {
		return domain.ErrNotFound
	}
	published := at
	rec.PublishedAt = &published
	rec.ClaimToken = nil
	rec.ClaimUntil = nil
	r.records[outboxID] = rec
	return nil
}

func (r *OutboxRepository) MarkFailed(_ context.Context, outboxID string, claimToken string, reason string, at time.Time, maxRetries int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[outboxID]
	if !ok || rec.ClaimToken == nil || *rec.ClaimToken != claimToken {
		return domain.ErrNotFound
	}
	rec.RetryCount++
	msg := reason
	errAt := at
	rec.LastError = &msg
	rec.LastErrorAt = &errAt
	rec.ClaimToken = nil
	rec.ClaimUntil = nil
	if maxRetries > 0 && rec.RetryCount >= maxRetries {
		dead := at
		rec.DeadLetteredAt = &dead
	}
	r.records[outboxID] = rec
	return nil
}

// Unpublished reports how many records still await publication.
func (r *OutboxRepository) Unpublished() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for _, rec := range r.records {
		if rec.PublishedAt == nil && rec.DeadLetteredAt == nil {
			count++
		}
	}
	return count
}
