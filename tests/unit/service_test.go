package unit

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/venturelink/deal-service/internal/adapters/memory"
	"github.com/venturelink/deal-service/internal/application"
	"github.com/venturelink/deal-service/internal/domain"
)

type fixture struct {
	service  *application.Service
	repos    *memory.Repositories
	payments *memory.PaymentClient
	intents  *memory.IntentStore
}

func newFixture() *fixture {
	repos := memory.NewRepositories()
	payments := memory.NewPaymentClient()
	intents := memory.NewIntentStore()
	svc := application.NewService(application.Dependencies{
		Config: application.Config{
			DefaultCurrency:     "USD",
			IdempotencyTTL:      time.Hour,
			IntentTTL:           30 * time.Minute,
			SubmitRateThreshold: 100,
			SubmitRateWindow:    time.Minute,
			HistoryFeedLimit:    200,
		},
		Proposals:   repos.Proposals,
		Milestones:  repos.Milestones,
		Contracts:   repos.Contracts,
		Payouts:     repos.Payouts,
		Disputes:    repos.Disputes,
		Invitations: repos.Invitations,
		NDASettings: repos.NDASettings,
		NDARecords:  repos.NDARecords,
		History:     repos.History,
		Idempotency: repos.Idempotency,
		Outbox:      repos.Outbox,
		Payments:    payments,
		Intents:     intents,
		Limiter:     memory.NewRateLimiter(),
	})
	return &fixture{service: svc, repos: repos, payments: payments, intents: intents}
}

func requester(key string) application.Actor {
	return application.Actor{SubjectID: "req-1", Role: "member", IdempotencyKey: key}
}

func performer(key string) application.Actor {
	return application.Actor{SubjectID: "perf-1", Role: "member", IdempotencyKey: key}
}

func arbitrator() application.Actor {
	return application.Actor{SubjectID: "arb-1", Role: "arbitrator"}
}

func nextKey() string {
	return "idem-" + uuid.NewString()
}

func twoMilestones(due time.Time) []application.MilestoneInput {
	return []application.MilestoneInput{
		{Title: "Design", Description: "wireframes", DueAt: due, Price: 400},
		{Title: "Build", Description: "implementation", DueAt: due.Add(7 * 24 * time.Hour), Price: 600},
	}
}

// draftAndSubmit creates a two-milestone draft as the performer and submits it.
func draftAndSubmit(t *testing.T, f *fixture) application.ProposalDetail {
	t.Helper()
	ctx := context.Background()
	due := time.Now().UTC().Add(14 * 24 * time.Hour)
	detail, err := f.service.CreateProposal(ctx, performer(nextKey()), application.CreateProposalInput{
		RequesterID: "req-1",
		Title:       "Landing page",
		TotalAmount: 1000,
		Milestones:  twoMilestones(due),
	})
	if err != nil {
		t.Fatalf("create proposal failed: %v", err)
	}
	submitted, err := f.service.SubmitProposal(ctx, performer(""), detail.Proposal.ProposalID)
	if err != nil {
		t.Fatalf("submit proposal failed: %v", err)
	}
	return submitted
}

// acceptToContract runs draft -> submit -> accept and returns the contract
// with its milestone snapshot.
func acceptToContract(t *testing.T, f *fixture) application.AcceptProposalResult {
	t.Helper()
	submitted := draftAndSubmit(t, f)
	result, err := f.service.AcceptProposal(context.Background(), requester(""), submitted.Proposal.ProposalID)
	if err != nil {
		t.Fatalf("accept proposal failed: %v", err)
	}
	return result
}

func TestProposalLifecycleToContract(t *testing.T) {
	t.Parallel()

	f := newFixture()
	result := acceptToContract(t, f)

	if result.Contract.Status != domain.ContractStatusActive {
		t.Fatalf("expected active contract, got %s", result.Contract.Status)
	}
	if result.Proposal.Status != domain.ProposalStatusAccepted {
		t.Fatalf("expected accepted proposal, got %s", result.Proposal.Status)
	}
	if len(result.Milestones) != 2 {
		t.Fatalf("expected 2 snapshot milestones, got %d", len(result.Milestones))
	}
	for _, m := range result.Milestones {
		if m.ContractID != result.Contract.ContractID {
			t.Fatalf("snapshot milestone not attached to contract")
		}
		if m.Status != domain.MilestoneStatusNotFunded {
			t.Fatalf("expected not_funded snapshot, got %s", m.Status)
		}
	}
	if got := domain.MilestoneSum(result.Milestones); got != result.Contract.TotalAmount {
		t.Fatalf("milestone sum %.2f does not match contract total %.2f", got, result.Contract.TotalAmount)
	}
}

func TestCreateProposalRequiresIdempotencyKey(t *testing.T) {
	t.Parallel()

	f := newFixture()
	_, err := f.service.CreateProposal(context.Background(), performer(""), application.CreateProposalInput{
		RequesterID: "req-1",
		Title:       "No key",
		TotalAmount: 100,
	})
	if !errors.Is(err, domain.ErrIdempotencyRequired) {
		t.Fatalf("expected idempotency key requirement, got %v", err)
	}
}

func TestCreateProposalReplaySameKeyReturnsFirstResult(t *testing.T) {
	t.Parallel()

	f := newFixture()
	ctx := context.Background()
	due := time.Now().UTC().Add(24 * time.Hour)
	input := application.CreateProposalInput{
		RequesterID: "req-1",
		Title:       "Replay me",
		TotalAmount: 400,
		Milestones:  []application.MilestoneInput{{Title: "Only", DueAt: due, Price: 400}},
	}
	key := nextKey()
	first, err := f.service.CreateProposal(ctx, performer(key), input)
	if err != nil {
		t.Fatalf("first create failed: %v", err)
	}
	second, err := f.service.CreateProposal(ctx, performer(key), input)
	if err != nil {
		t.Fatalf("replayed create failed: %v", err)
	}
	if first.Proposal.ProposalID != second.Proposal.ProposalID {
		t.Fatalf("replay created a second proposal")
	}
}

func TestSubmitValidationAggregatesViolations(t *testing.T) {
	t.Parallel()

	f := newFixture()
	ctx := context.Background()
	past := time.Now().UTC().Add(-72 * time.Hour)
	detail, err := f.service.CreateProposal(ctx, performer(nextKey()), application.CreateProposalInput{
		RequesterID: "req-1",
		Title:       "",
		TotalAmount: 600,
		Milestones: []application.MilestoneInput{
			{Title: "", DueAt: past, Price: 500},
			{Title: "Fine", DueAt: time.Now().UTC().Add(24 * time.Hour), Price: 100},
		},
	})
	if err != nil {
		t.Fatalf("create proposal failed: %v", err)
	}

	_, err = f.service.SubmitProposal(ctx, performer(""), detail.Proposal.ProposalID)
	ve, ok := domain.AsValidationError(err)
	if !ok {
		t.Fatalf("expected aggregated validation error, got %v", err)
	}
	// Empty proposal title, empty milestone title, and the past due date must
	// all be reported in the same response.
	if len(ve.Violations) < 3 {
		t.Fatalf("expected at least 3 violations, got %d: %v", len(ve.Violations), ve.Violations)
	}
}

func TestCreateProposalRejectsTotalMismatch(t *testing.T) {
	t.Parallel()

	f := newFixture()
	ctx := context.Background()
	due := time.Now().UTC().Add(24 * time.Hour)

	_, err := f.service.CreateProposal(ctx, performer(nextKey()), application.CreateProposalInput{
		RequesterID: "req-1",
		Title:       "Total off",
		TotalAmount: 1000,
		Milestones: []application.MilestoneInput{
			{Title: "Only", DueAt: due, Price: 300},
		},
	})
	ve, ok := domain.AsValidationError(err)
	if !ok {
		t.Fatalf("expected validation error on mismatched total, got %v", err)
	}
	if len(ve.Violations) != 1 || ve.Violations[0].Field != "total_amount" {
		t.Fatalf("expected a total_amount violation, got %v", ve.Violations)
	}

	// Drafts without milestones are exempt; invitations seed those.
	if _, err := f.service.CreateProposal(ctx, performer(nextKey()), application.CreateProposalInput{
		RequesterID: "req-1",
		Title:       "Empty draft",
		TotalAmount: 1000,
	}); err != nil {
		t.Fatalf("milestone-free draft rejected: %v", err)
	}
}

func TestReviseProposalRejectsTotalMismatch(t *testing.T) {
	t.Parallel()

	f := newFixture()
	ctx := context.Background()
	due := time.Now().UTC().Add(24 * time.Hour)
	detail, err := f.service.CreateProposal(ctx, performer(nextKey()), application.CreateProposalInput{
		RequesterID: "req-1",
		Title:       "Sound draft",
		TotalAmount: 300,
		Milestones:  []application.MilestoneInput{{Title: "Only", DueAt: due, Price: 300}},
	})
	if err != nil {
		t.Fatalf("create proposal failed: %v", err)
	}

	_, err = f.service.ReviseProposal(ctx, performer(""), detail.Proposal.ProposalID, application.ReviseProposalInput{
		TotalAmount: 900,
		Milestones:  []application.MilestoneInput{{Title: "Only", DueAt: due, Price: 300}},
	})
	if _, ok := domain.AsValidationError(err); !ok {
		t.Fatalf("expected validation error on revised mismatch, got %v", err)
	}

	// The stored draft keeps its consistent amounts.
	current, err := f.service.GetProposal(ctx, performer(""), detail.Proposal.ProposalID)
	if err != nil {
		t.Fatalf("get proposal failed: %v", err)
	}
	if current.Proposal.TotalAmount != 300 || domain.MilestoneSum(current.Milestones) != 300 {
		t.Fatalf("rejected revision mutated the draft: total=%.2f sum=%.2f",
			current.Proposal.TotalAmount, domain.MilestoneSum(current.Milestones))
	}
}

func TestSubmitByRequesterDenied(t *testing.T) {
	t.Parallel()

	f := newFixture()
	ctx := context.Background()
	due := time.Now().UTC().Add(24 * time.Hour)
	detail, err := f.service.CreateProposal(ctx, performer(nextKey()), application.CreateProposalInput{
		RequesterID: "req-1",
		Title:       "Not yours",
		TotalAmount: 100,
		Milestones:  []application.MilestoneInput{{Title: "Only", DueAt: due, Price: 100}},
	})
	if err != nil {
		t.Fatalf("create proposal failed: %v", err)
	}
	if _, err := f.service.SubmitProposal(ctx, requester(""), detail.Proposal.ProposalID); !errors.Is(err, domain.ErrPermissionDenied) {
		t.Fatalf("expected permission denied for requester submit, got %v", err)
	}
}

func TestCounterReviseResubmit(t *testing.T) {
	t.Parallel()

	f := newFixture()
	ctx := context.Background()
	submitted := draftAndSubmit(t, f)

	if _, err := f.service.CounterProposal(ctx, requester(""), submitted.Proposal.ProposalID, application.CounterProposalInput{}); err == nil {
		t.Fatalf("expected counter without notes to fail")
	}
	countered, err := f.service.CounterProposal(ctx, requester(""), submitted.Proposal.ProposalID, application.CounterProposalInput{Notes: "split the build phase"})
	if err != nil {
		t.Fatalf("counter failed: %v", err)
	}
	if countered.Status != domain.ProposalStatusCountered {
		t.Fatalf("expected countered, got %s", countered.Status)
	}

	due := time.Now().UTC().Add(10 * 24 * time.Hour)
	revised, err := f.service.ReviseProposal(ctx, performer(""), countered.ProposalID, application.ReviseProposalInput{
		TotalAmount: 1200,
		Milestones: []application.MilestoneInput{
			{Title: "Design", DueAt: due, Price: 400},
			{Title: "Build A", DueAt: due.Add(24 * time.Hour), Price: 400},
			{Title: "Build B", DueAt: due.Add(48 * time.Hour), Price: 400},
		},
	})
	if err != nil {
		t.Fatalf("revise failed: %v", err)
	}
	if len(revised.Milestones) != 3 {
		t.Fatalf("expected 3 milestones after revision, got %d", len(revised.Milestones))
	}
	if _, err := f.service.SubmitProposal(ctx, performer(""), revised.Proposal.ProposalID); err != nil {
		t.Fatalf("resubmit after counter failed: %v", err)
	}
}

func TestAcceptTwiceReturnsSameContract(t *testing.T) {
	t.Parallel()

	f := newFixture()
	ctx := context.Background()
	first := acceptToContract(t, f)

	second, err := f.service.AcceptProposal(ctx, requester(""), first.Proposal.ProposalID)
	if err != nil {
		t.Fatalf("repeated accept failed: %v", err)
	}
	if second.Contract.ContractID != first.Contract.ContractID {
		t.Fatalf("repeated accept spawned a second contract")
	}
}

func TestConcurrentAcceptsSpawnOneContract(t *testing.T) {
	t.Parallel()

	f := newFixture()
	ctx := context.Background()
	submitted := draftAndSubmit(t, f)

	const accepts = 8
	results := make([]application.AcceptProposalResult, accepts)
	errs := make([]error, accepts)
	var wg sync.WaitGroup
	for i := 0; i < accepts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = f.service.AcceptProposal(ctx, requester(""), submitted.Proposal.ProposalID)
		}(i)
	}
	wg.Wait()

	contractIDs := map[string]bool{}
	for i := 0; i < accepts; i++ {
		if errs[i] != nil {
			continue
		}
		contractIDs[results[i].Contract.ContractID] = true
	}
	if len(contractIDs) != 1 {
		t.Fatalf("expected exactly one contract across concurrent accepts, got %d", len(contractIDs))
	}
}

func TestDeclineProposalIsTerminal(t *testing.T) {
	t.Parallel()

	f := newFixture()
	ctx := context.Background()
	submitted := draftAndSubmit(t, f)

	declined, err := f.service.DeclineProposal(ctx, requester(""), submitted.Proposal.ProposalID)
	if err != nil {
		t.Fatalf("decline failed: %v", err)
	}
	if declined.Status != domain.ProposalStatusDeclined {
		t.Fatalf("expected declined, got %s", declined.Status)
	}
	if _, err := f.service.AcceptProposal(ctx, requester(""), declined.ProposalID); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("expected invalid transition after decline, got %v", err)
	}
}

func TestMilestoneFullLifecycle(t *testing.T) {
	t.Parallel()

	f := newFixture()
	ctx := context.Background()
	result := acceptToContract(t, f)

	for _, m := range result.Milestones {
		funded, err := f.service.FundMilestone(ctx, requester(nextKey()), m.MilestoneID)
		if err != nil {
			t.Fatalf("fund failed: %v", err)
		}
		if funded.Milestone.Status != domain.MilestoneStatusHeld {
			t.Fatalf("expected held after fund, got %s", funded.Milestone.Status)
		}
		if funded.Payout == nil || funded.Payout.Status != domain.PayoutStatusHeld {
			t.Fatalf("expected held payout after fund")
		}

		inReview, err := f.service.AttachDeliverable(ctx, performer(""), m.MilestoneID, application.AttachDeliverableInput{
			Name:    "final.zip",
			FileURL: "https://files.example.com/final.zip",
		})
		if err != nil {
			t.Fatalf("attach deliverable failed: %v", err)
		}
		if inReview.Status != domain.MilestoneStatusInReview {
			t.Fatalf("expected in_review after deliverable, got %s", inReview.Status)
		}

		released, err := f.service.ApproveMilestone(ctx, requester(""), m.MilestoneID)
		if err != nil {
			t.Fatalf("approve failed: %v", err)
		}
		if released.Milestone.Status != domain.MilestoneStatusReleased {
			t.Fatalf("expected released, got %s", released.Milestone.Status)
		}
		if released.Payout == nil || released.Payout.Status != domain.PayoutStatusPending {
			t.Fatalf("expected pending payout after approve")
		}

		paid, err := f.service.ConfirmPayoutPaid(ctx, application.PaymentConfirmationInput{
			PayoutID:    released.Payout.PayoutID,
			ReferenceID: "xfer-" + m.MilestoneID,
		})
		if err != nil {
			t.Fatalf("confirm paid failed: %v", err)
		}
		if paid.Status != domain.PayoutStatusPaid {
			t.Fatalf("expected paid payout, got %s", paid.Status)
		}
	}

	contract, err := f.repos.Contracts.GetByID(ctx, result.Contract.ContractID)
	if err != nil {
		t.Fatalf("load contract failed: %v", err)
	}
	if contract.Status != domain.ContractStatusCompleted {
		t.Fatalf("expected completed contract after all releases, got %s", contract.Status)
	}
	if contract.CompletedAt == nil {
		t.Fatalf("expected completed_at to be set")
	}
}

func TestApproveSkippingReviewRejected(t *testing.T) {
	t.Parallel()

	f := newFixture()
	ctx := context.Background()
	result := acceptToContract(t, f)
	m := result.Milestones[0]

	// Approval of an unfunded milestone must fail.
	if _, err := f.service.ApproveMilestone(ctx, requester(""), m.MilestoneID); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("expected invalid transition before funding, got %v", err)
	}

	if _, err := f.service.FundMilestone(ctx, requester(nextKey()), m.MilestoneID); err != nil {
		t.Fatalf("fund failed: %v", err)
	}
	// Held but nothing delivered: still not approvable.
	if _, err := f.service.ApproveMilestone(ctx, requester(""), m.MilestoneID); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("expected invalid transition while held, got %v", err)
	}
}

func TestFundByPerformerDenied(t *testing.T) {
	t.Parallel()

	f := newFixture()
	ctx := context.Background()
	result := acceptToContract(t, f)

	_, err := f.service.FundMilestone(ctx, performer(nextKey()), result.Milestones[0].MilestoneID)
	if !errors.Is(err, domain.ErrPermissionDenied) {
		t.Fatalf("expected permission denied for performer fund, got %v", err)
	}
}

func TestFundFailsClosedWhenRailUnavailable(t *testing.T) {
	t.Parallel()

	f := newFixture()
	ctx := context.Background()
	result := acceptToContract(t, f)
	m := result.Milestones[0]

	f.payments.FailNext(1)
	if _, err := f.service.FundMilestone(ctx, requester(nextKey()), m.MilestoneID); !errors.Is(err, domain.ErrExternalDependency) {
		t.Fatalf("expected external dependency failure, got %v", err)
	}

	current, err := f.repos.Milestones.GetByID(ctx, m.MilestoneID)
	if err != nil {
		t.Fatalf("load milestone failed: %v", err)
	}
	if current.Status != domain.MilestoneStatusNotFunded {
		t.Fatalf("milestone advanced despite rail failure: %s", current.Status)
	}
	if _, err := f.repos.Payouts.GetByMilestoneID(ctx, m.MilestoneID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("payout written despite rail failure")
	}
}

func TestFundRetrySameKeyAfterRailFailure(t *testing.T) {
	t.Parallel()

	f := newFixture()
	ctx := context.Background()
	result := acceptToContract(t, f)
	m := result.Milestones[0]

	key := nextKey()
	f.payments.FailNext(1)
	if _, err := f.service.FundMilestone(ctx, requester(key), m.MilestoneID); !errors.Is(err, domain.ErrExternalDependency) {
		t.Fatalf("expected external dependency failure, got %v", err)
	}

	// The failed attempt wrote nothing, so its reservation is gone and the
	// same key funds the milestone once the rail recovers.
	funded, err := f.service.FundMilestone(ctx, requester(key), m.MilestoneID)
	if err != nil {
		t.Fatalf("retry with same key failed: %v", err)
	}
	if funded.Milestone.Status != domain.MilestoneStatusHeld {
		t.Fatalf("expected held after retry, got %s", funded.Milestone.Status)
	}
}

func TestRejectRequiresNotesAndKeepsDeliverables(t *testing.T) {
	t.Parallel()

	f := newFixture()
	ctx := context.Background()
	result := acceptToContract(t, f)
	m := result.Milestones[0]

	if _, err := f.service.FundMilestone(ctx, requester(nextKey()), m.MilestoneID); err != nil {
		t.Fatalf("fund failed: %v", err)
	}
	if _, err := f.service.AttachDeliverable(ctx, performer(""), m.MilestoneID, application.AttachDeliverableInput{Name: "v1.zip", FileURL: "https://files.example.com/v1.zip"}); err != nil {
		t.Fatalf("attach deliverable failed: %v", err)
	}

	if _, err := f.service.RejectMilestone(ctx, requester(""), m.MilestoneID, application.RejectMilestoneInput{}); err == nil {
		t.Fatalf("expected rejection without notes to fail")
	}

	rejected, err := f.service.RejectMilestone(ctx, requester(""), m.MilestoneID, application.RejectMilestoneInput{Notes: "missing the mobile layout"})
	if err != nil {
		t.Fatalf("reject failed: %v", err)
	}
	if rejected.Status != domain.MilestoneStatusHeld {
		t.Fatalf("expected held after reject, got %s", rejected.Status)
	}
	if len(rejected.Deliverables) != 1 {
		t.Fatalf("deliverable list must survive rejection")
	}

	// Resubmission appends rather than replaces.
	resubmitted, err := f.service.AttachDeliverable(ctx, performer(""), m.MilestoneID, application.AttachDeliverableInput{Name: "v2.zip", FileURL: "https://files.example.com/v2.zip"})
	if err != nil {
		t.Fatalf("resubmit failed: %v", err)
	}
	if len(resubmitted.Deliverables) != 2 {
		t.Fatalf("expected 2 deliverables after resubmit, got %d", len(resubmitted.Deliverables))
	}
	if resubmitted.Status != domain.MilestoneStatusInReview {
		t.Fatalf("expected in_review after resubmit, got %s", resubmitted.Status)
	}
}

func TestConcurrentApprovalsExactlyOneWins(t *testing.T) {
	t.Parallel()

	f := newFixture()
	ctx := context.Background()
	result := acceptToContract(t, f)
	m := result.Milestones[0]

	if _, err := f.service.FundMilestone(ctx, requester(nextKey()), m.MilestoneID); err != nil {
		t.Fatalf("fund failed: %v", err)
	}
	if _, err := f.service.AttachDeliverable(ctx, performer(""), m.MilestoneID, application.AttachDeliverableInput{Name: "v1.zip", FileURL: "https://files.example.com/v1.zip"}); err != nil {
		t.Fatalf("attach deliverable failed: %v", err)
	}

	const attempts = 6
	errs := make([]error, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.service.ApproveMilestone(ctx, requester(""), m.MilestoneID)
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		if !errors.Is(err, domain.ErrPreconditionFailed) && !errors.Is(err, domain.ErrInvalidTransition) {
			t.Fatalf("unexpected loser error: %v", err)
		}
	}
	if succeeded != 1 {
		t.Fatalf("expected exactly one winning approval, got %d", succeeded)
	}

	payout, err := f.repos.Payouts.GetByMilestoneID(ctx, m.MilestoneID)
	if err != nil {
		t.Fatalf("load payout failed: %v", err)
	}
	if payout.Status != domain.PayoutStatusPending {
		t.Fatalf("expected single pending payout, got %s", payout.Status)
	}
}

func TestCancelContractBlocksAfterCompletion(t *testing.T) {
	t.Parallel()

	f := newFixture()
	ctx := context.Background()
	result := acceptToContract(t, f)

	cancelled, err := f.service.CancelContract(ctx, requester(""), result.Contract.ContractID, "scope changed")
	if err != nil {
		t.Fatalf("cancel failed: %v", err)
	}
	if cancelled.Status != domain.ContractStatusCancelled {
		t.Fatalf("expected cancelled, got %s", cancelled.Status)
	}
	if _, err := f.service.CancelContract(ctx, requester(""), result.Contract.ContractID, "again"); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("expected invalid transition on double cancel, got %v", err)
	}
}

func TestContractFeedRecordsLifecycle(t *testing.T) {
	t.Parallel()

	f := newFixture()
	ctx := context.Background()
	result := acceptToContract(t, f)
	m := result.Milestones[0]

	if _, err := f.service.FundMilestone(ctx, requester(nextKey()), m.MilestoneID); err != nil {
		t.Fatalf("fund failed: %v", err)
	}

	feed, err := f.service.ContractFeed(ctx, performer(""), result.Contract.ContractID)
	if err != nil {
		t.Fatalf("feed failed: %v", err)
	}
	if len(feed) == 0 {
		t.Fatalf("expected feed entries after funding")
	}
	sawFunded := false
	for _, row := range feed {
		if row.ToStatus == string(domain.MilestoneStatusHeld) && row.EntityID == m.MilestoneID {
			sawFunded = true
			if row.Message == "" {
				t.Fatalf("feed entry missing human message")
			}
		}
	}
	if !sawFunded {
		t.Fatalf("expected funded transition in feed")
	}
}

func TestDuplicatePaidConfirmationIsNoOp(t *testing.T) {
	t.Parallel()

	f := newFixture()
	ctx := context.Background()
	result := acceptToContract(t, f)
	m := result.Milestones[0]

	if _, err := f.service.FundMilestone(ctx, requester(nextKey()), m.MilestoneID); err != nil {
		t.Fatalf("fund failed: %v", err)
	}
	if _, err := f.service.AttachDeliverable(ctx, performer(""), m.MilestoneID, application.AttachDeliverableInput{Name: "v1.zip", FileURL: "https://files.example.com/v1.zip"}); err != nil {
		t.Fatalf("attach deliverable failed: %v", err)
	}
	released, err := f.service.ApproveMilestone(ctx, requester(""), m.MilestoneID)
	if err != nil {
		t.Fatalf("approve failed: %v", err)
	}

	first, err := f.service.ConfirmPayoutPaid(ctx, application.PaymentConfirmationInput{PayoutID: released.Payout.PayoutID, ReferenceID: "xfer-1"})
	if err != nil {
		t.Fatalf("confirm failed: %v", err)
	}
	second, err := f.service.ConfirmPayoutPaid(ctx, application.PaymentConfirmationInput{PayoutID: released.Payout.PayoutID, ReferenceID: "xfer-1"})
	if err != nil {
		t.Fatalf("duplicate confirm failed: %v", err)
	}
	if first.PaidAt == nil || second.PaidAt == nil || !first.PaidAt.Equal(*second.PaidAt) {
		t.Fatalf("duplicate confirmation changed paid_at")
	}
}

func TestPaidConfirmationRequiresPendingPayout(t *testing.T) {
	t.Parallel()

	f := newFixture()
	ctx := context.Background()
	result := acceptToContract(t, f)
	m := result.Milestones[0]

	funded, err := f.service.FundMilestone(ctx, requester(nextKey()), m.MilestoneID)
	if err != nil {
		t.Fatalf("fund failed: %v", err)
	}
	// Held payout: the rail has no business settling it yet.
	if _, err := f.service.ConfirmPayoutPaid(ctx, application.PaymentConfirmationInput{PayoutID: funded.Payout.PayoutID}); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("expected invalid transition for held payout, got %v", err)
	}
}
