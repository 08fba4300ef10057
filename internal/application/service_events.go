package application

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/venturelink/deal-service/internal/domain"
	"github.com/venturelink/deal-service/internal/ports"
)

// enqueueTransition writes the event payload for the notification layer to
// the transactional outbox. The payload carries actor, action, amount, and
// timestamp plus the rendered chat-thread message; delivery happens in the
// outbox worker, never inline.
func (s *Service) enqueueTransition(ctx context.Context, eventType string, ev domain.TransitionEvent) error {
	if s.outbox == nil {
		return nil
	}
	if !domain.IsCanonicalEmittedEvent(eventType) {
		return fmt.Errorf("refusing to enqueue unknown event type %q", eventType)
	}
	if ev.Message == "" {
		ev.Message = domain.HumanMessage(eventType, ev.EntityID, ev.Amount)
	}
	payload, err := json.Marshal(map[string]any{
		"event_type":  eventType,
		"event_class": domain.CanonicalEventClass(eventType),
		"actor_id":    ev.ActorID,
		"action":      ev.Action,
		"entity_type": ev.EntityType,
		"entity_id":   ev.EntityID,
		"contract_id": ev.ContractID,
		"from_status": ev.FromStatus,
		"to_status":   ev.ToStatus,
		"amount":      ev.Amount,
		"message":     ev.Message,
		"occurred_at": ev.OccurredAt,
	})
	if err != nil {
		return err
	}
	partitionKey := ev.ContractID
	if partitionKey == "" {
		partitionKey = ev.EntityID
	}
	return s.outbox.Enqueue(ctx, ports.OutboxEvent{
		EventID:      uuid.NewString(),
		EventType:    eventType,
		PartitionKey: partitionKey,
		Payload:      payload,
		OccurredAt:   ev.OccurredAt,
	})
}

// recordTransition appends the audit row backing the activity feed.
// Best-effort: a history failure must not roll back the transition itself.
func (s *Service) recordTransition(ctx context.Context, row domain.StateTransition) {
	if s.history == nil {
		return
	}
	row.TransitionID = uuid.NewString()
	if err := s.history.Append(ctx, row); err != nil {
		slog.Default().WarnContext(ctx, "state history append failed",
			"module", "application",
			"layer", "application",
			"operation", "record_transition",
			"outcome", "failure",
			"entity_type", row.EntityType,
			"entity_id", row.EntityID,
			"error", err,
		)
	}
}
