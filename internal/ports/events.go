package ports

import "context"

// EventPublisher delivers drained outbox records to the broker.
type EventPublisher interface {
	Publish(ctx context.Context, eventType string, payload []byte, partitionKey string) error
}
