package postgres

import "time"

type proposalModel struct {
	ProposalID   string     `gorm:"column:proposal_id;primaryKey"`
	RequesterID  string     `gorm:"column:requester_id"`
	PerformerID  string     `gorm:"column:performer_id"`
	InvitationID *string    `gorm:"column:invitation_id"`
	Title        string     `gorm:"column:title"`
	TotalAmount  float64    `gorm:"column:total_amount"`
	Status       string     `gorm:"column:status"`
	CounterNotes string     `gorm:"column:counter_notes"`
	CreatedAt    time.Time  `gorm:"column:created_at"`
	UpdatedAt    time.Time  `gorm:"column:updated_at"`
	SentAt       *time.Time `gorm:"column:sent_at"`
	DecidedAt    *time.Time `gorm:"column:decided_at"`
}

func (proposalModel) TableName() string { return "proposals" }

type milestoneModel struct {
	MilestoneID  string    `gorm:"column:milestone_id;primaryKey"`
	ProposalID   *string   `gorm:"column:proposal_id"`
	ContractID   *string   `gorm:"column:contract_id"`
	Title        string    `gorm:"column:title"`
	Description  string    `gorm:"column:description"`
	DueAt        time.Time `gorm:"column:due_at"`
	Price        float64   `gorm:"column:price"`
	Status       string    `gorm:"column:status"`
	Deliverables string    `gorm:"column:deliverables;type:jsonb"`
	ReviewNotes  string    `gorm:"column:review_notes"`
	Position     int       `gorm:"column:position"`
	CreatedAt    time.Time `gorm:"column:created_at"`
	UpdatedAt    time.Time `gorm:"column:updated_at"`
}

func (milestoneModel) TableName() string { return "milestones" }

type contractModel struct {
	ContractID  string     `gorm:"column:contract_id;primaryKey"`
	ProposalID  string     `gorm:"column:proposal_id"`
	RequesterID string     `gorm:"column:requester_id"`
	PerformerID string     `gorm:"column:performer_id"`
	Title       string     `gorm:"column:title"`
	TotalAmount float64    `gorm:"column:total_amount"`
	Status      string     `gorm:"column:status"`
	CreatedAt   time.Time  `gorm:"column:created_at"`
	UpdatedAt   time.Time  `gorm:"column:updated_at"`
	CompletedAt *time.Time `gorm:"column:completed_at"`
	CancelledAt *time.Time `gorm:"column:cancelled_at"`
}

func (contractModel) TableName() string { return "contracts" }

type payoutModel struct {
	PayoutID    string     `gorm:"column:payout_id;primaryKey"`
	ContractID  string     `gorm:"column:contract_id"`
	MilestoneID string     `gorm:"column:milestone_id"`
	Amount      float64    `gorm:"column:amount"`
	Currency    string     `gorm:"column:currency"`
	Status      string     `gorm:"column:status"`
	ReferenceID string     `gorm:"column:reference_id"`
	CreatedAt   time.Time  `gorm:"column:created_at"`
	UpdatedAt   time.Time  `gorm:"column:updated_at"`
	PendingAt   *time.Time `gorm:"column:pending_at"`
	PaidAt      *time.Time `gorm:"column:paid_at"`
}

func (payoutModel) TableName() string { return "payouts" }

type disputeModel struct {
	DisputeID       string     `gorm:"column:dispute_id;primaryKey"`
	ContractID      string     `gorm:"column:contract_id"`
	MilestoneID     string     `gorm:"column:milestone_id"`
	OpenedByID      string     `gorm:"column:opened_by_id"`
	Reason          string     `gorm:"column:reason"`
	Evidence        string     `gorm:"column:evidence;type:jsonb"`
	Status          string     `gorm:"column:status"`
	Outcome         string     `gorm:"column:outcome"`
	ResolutionNotes string     `gorm:"column:resolution_notes"`
	ResolvedByID    string     `gorm:"column:resolved_by_id"`
	CreatedAt       time.Time  `gorm:"column:created_at"`
	UpdatedAt       time.Time  `gorm:"column:updated_at"`
	ResolvedAt      *time.Time `gorm:"column:resolved_at"`
}

func (disputeModel) TableName() string { return "disputes" }

type invitationModel struct {
	InvitationID string     `gorm:"column:invitation_id;primaryKey"`
	RequesterID  string     `gorm:"column:requester_id"`
	PerformerID  string     `gorm:"column:performer_id"`
	Title        string     `gorm:"column:title"`
	Message      string     `gorm:"column:message"`
	NDARequired  bool       `gorm:"column:nda_required"`
	Status       string     `gorm:"column:status"`
	CreatedAt    time.Time  `gorm:"column:created_at"`
	UpdatedAt    time.Time  `gorm:"column:updated_at"`
	DecidedAt    *time.Time `gorm:"column:decided_at"`
}

func (invitationModel) TableName() string { return "invitations" }

type ndaSettingModel struct {
	SubjectID   string    `gorm:"column:subject_id;primaryKey"`
	OwnerID     string    `gorm:"column:owner_id"`
	NDARequired bool      `gorm:"column:nda_required"`
	UpdatedAt   time.Time `gorm:"column:updated_at"`
}

func (ndaSettingModel) TableName() string { return "nda_settings" }

type ndaRecordModel struct {
	NDARecordID string    `gorm:"column:nda_record_id;primaryKey"`
	SubjectID   string    `gorm:"column:subject_id"`
	ViewerID    string    `gorm:"column:viewer_id"`
	DocumentURL string    `gorm:"column:document_url"`
	AcceptedAt  time.Time `gorm:"column:accepted_at"`
}

func (ndaRecordModel) TableName() string { return "nda_records" }

type stateTransitionModel struct {
	TransitionID string    `gorm:"column:transition_id;primaryKey"`
	EntityType   string    `gorm:"column:entity_type"`
	EntityID     string    `gorm:"column:entity_id"`
	ContractID   string    `gorm:"column:contract_id"`
	FromStatus   string    `gorm:"column:from_status"`
	ToStatus     string    `gorm:"column:to_status"`
	ActorID      string    `gorm:"column:actor_id"`
	Reason       string    `gorm:"column:reason"`
	Amount       float64   `gorm:"column:amount"`
	Message      string    `gorm:"column:message"`
	OccurredAt   time.Time `gorm:"column:occurred_at"`
}

func (stateTransitionModel) TableName() string { return "state_transitions" }

type dealOutboxModel struct {
	OutboxID       string     `gorm:"column:outbox_id;primaryKey"`
	EventType      string     `gorm:"column:event_type"`
	PartitionKey   string     `gorm:"column:partition_key"`
	Payload        string     `gorm:"column:payload;type:jsonb"`
	CreatedAt      time.Time  `gorm:"column:created_at"`
	PublishedAt    *time.Time `gorm:"column:published_at"`
	RetryCount     int        `gorm:"column:retry_count"`
	LastError      *string    `gorm:"column:last_error"`
	LastErrorAt    *time.Time `gorm:"column:last_error_at"`
	ClaimToken     *string    `gorm:"column:claim_token"`
	ClaimUntil     *time.Time `gorm:"column:claim_until"`
	DeadLetteredAt *time.Time `gorm:"column:dead_lettered_at"`
}

func (dealOutboxModel) TableName() string { return "deal_outbox" }

type dealIdempotencyModel struct {
	IdempotencyKey string    `gorm:"column:idempotency_key;primaryKey"`
	RequestHash    string    `gorm:"column:request_hash"`
	Status         string    `gorm:"column:status"`
	ResponseCode   int       `gorm:"column:response_code"`
	ResponseBody   *string   `gorm:"column:response_body;type:jsonb"`
	ExpiresAt      time.Time `gorm:"column:expires_at"`
	CreatedAt      time.Time `gorm:"column:created_at"`
	UpdatedAt      time.Time `gorm:"column:updated_at"`
}

func (dealIdempotencyModel) TableName() string { return "deal_idempotency" }
