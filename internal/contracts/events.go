package contracts

import (
	"encoding/json"
	"time"
)

// EventEnvelope is the broker wire format shared with downstream consumers.
// Data carries the outbox payload verbatim; consumers dispatch on EventType
// and use EventClass to decide whether a chat-thread message is warranted.
type EventEnvelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	EventClass    string          `json:"event_class,omitempty"`
	OccurredAt    time.Time       `json:"occurred_at"`
	PartitionKey  string          `json:"partition_key"`
	SourceService string          `json:"source_service"`
	SchemaVersion string          `json:"schema_version"`
	Data          json.RawMessage `json:"data"`
}
