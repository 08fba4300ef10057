package unit

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/venturelink/deal-service/internal/adapters/events"
	"github.com/venturelink/deal-service/internal/adapters/memory"
	"github.com/venturelink/deal-service/internal/ports"
)

func seedOutbox(t *testing.T, outbox *memory.OutboxRepository, eventType, partitionKey string) {
	t.Helper()
	err := outbox.Enqueue(context.Background(), ports.OutboxEvent{
		EventID:      uuid.NewString(),
		EventType:    eventType,
		PartitionKey: partitionKey,
		Payload:      []byte(`{"entity_id":"m-1"}`),
		OccurredAt:   time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("enqueue failed: %v", err)
	}
}

func TestOutboxWorkerPublishesBatch(t *testing.T) {
	t.Parallel()

	outbox := memory.NewRepositories().Outbox
	publisher := memory.NewCapturePublisher()
	worker := events.NewOutboxWorker(slog.Default(), outbox, publisher, time.Second, 100, 30*time.Second, 5)

	seedOutbox(t, outbox, "milestone.funded", "c-1")
	seedOutbox(t, outbox, "milestone.submitted", "c-1")

	published, err := worker.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("run once failed: %v", err)
	}
	if published != 2 {
		t.Fatalf("expected 2 published, got %d", published)
	}
	if outbox.Unpublished() != 0 {
		t.Fatalf("expected drained outbox, got %d unpublished", outbox.Unpublished())
	}

	delivered := publisher.Events()
	if len(delivered) != 2 {
		t.Fatalf("expected 2 delivered events, got %d", len(delivered))
	}
	for _, ev := range delivered {
		if ev.PartitionKey != "c-1" {
			t.Fatalf("expected contract partition key, got %q", ev.PartitionKey)
		}
	}
}

func TestOutboxWorkerRetriesUntilBrokerRecovers(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	outbox := memory.NewRepositories().Outbox
	publisher := memory.NewCapturePublisher()
	worker := events.NewOutboxWorker(slog.Default(), outbox, publisher, time.Second, 100, 30*time.Second, 5)

	seedOutbox(t, outbox, "payout.pending", "c-2")
	publisher.FailNext(1)

	published, err := worker.RunOnce(ctx)
	if err != nil {
		t.Fatalf("run once failed: %v", err)
	}
	if published != 0 {
		t.Fatalf("expected no publish while broker is down, got %d", published)
	}
	if outbox.Unpublished() != 1 {
		t.Fatalf("failed record must stay queued for retry")
	}

	published, err = worker.RunOnce(ctx)
	if err != nil {
		t.Fatalf("retry pass failed: %v", err)
	}
	if published != 1 {
		t.Fatalf("expected retry to publish, got %d", published)
	}
	if outbox.Unpublished() != 0 {
		t.Fatalf("expected drained outbox after retry")
	}
}

func TestOutboxWorkerDeadLettersAfterMaxRetries(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	outbox := memory.NewRepositories().Outbox
	publisher := memory.NewCapturePublisher()
	const maxRetries = 3
	worker := events.NewOutboxWorker(slog.Default(), outbox, publisher, time.Second, 100, 30*time.Second, maxRetries)

	seedOutbox(t, outbox, "dispute.opened", "c-3")
	publisher.FailNext(maxRetries + 2)

	for i := 0; i < maxRetries; i++ {
		if _, err := worker.RunOnce(ctx); err != nil {
			t.Fatalf("pass %d failed: %v", i, err)
		}
	}

	// Dead-lettered rows are out of the claimable set for good.
	if outbox.Unpublished() != 0 {
		t.Fatalf("expected dead-lettered record to leave the queue, got %d", outbox.Unpublished())
	}
	if published, err := worker.RunOnce(ctx); err != nil || published != 0 {
		t.Fatalf("dead-lettered record must not be retried, got published=%d err=%v", published, err)
	}
	if len(publisher.Events()) != 0 {
		t.Fatalf("nothing should have been delivered")
	}
}

func TestOutboxServiceOperationsFlowThroughWorker(t *testing.T) {
	t.Parallel()

	f := newFixture()
	ctx := context.Background()
	result := acceptToContract(t, f)
	if _, err := f.service.FundMilestone(ctx, requester(nextKey()), result.Milestones[0].MilestoneID); err != nil {
		t.Fatalf("fund failed: %v", err)
	}

	publisher := memory.NewCapturePublisher()
	worker := events.NewOutboxWorker(slog.Default(), f.repos.Outbox, publisher, time.Second, 100, 30*time.Second, 5)
	if _, err := worker.RunOnce(ctx); err != nil {
		t.Fatalf("run once failed: %v", err)
	}

	types := map[string]string{}
	for _, ev := range publisher.Events() {
		types[ev.EventType] = ev.PartitionKey
	}
	if _, ok := types["proposal.sent"]; !ok {
		t.Fatalf("expected proposal.sent in feed, got %v", types)
	}
	if key, ok := types["contract.created"]; !ok || key != result.Contract.ContractID {
		t.Fatalf("expected contract.created keyed by contract, got %v", types)
	}
	if key, ok := types["milestone.funded"]; !ok || key != result.Contract.ContractID {
		t.Fatalf("expected milestone.funded keyed by contract, got %v", types)
	}
}
