package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"github.com/venturelink/deal-service/internal/contracts"
	"github.com/venturelink/deal-service/internal/domain"
)

const envelopeSchemaVersion = "1.0"

type KafkaPublisher struct {
	writer       *kafka.Writer
	topicByEvent map[string]string
	defaultTopic string
	source       string
}

func NewKafkaPublisher(brokers []string, defaultTopic string, topicByEvent map[string]string, source string) (*KafkaPublisher, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("kafka publisher requires at least one broker")
	}
	if defaultTopic == "" {
		return nil, fmt.Errorf("kafka publisher requires a default topic")
	}
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			RequiredAcks: kafka.RequireAll,
			Balancer:     &kafka.Hash{},
		},
		topicByEvent: topicByEvent,
		defaultTopic: defaultTopic,
		source:       source,
	}, nil
}

// Publish wraps the outbox payload in the shared envelope and writes it to
// the event's topic. The hash balancer keys on the partition key, so every
// event of one contract lands on the same partition in order.
func (p *KafkaPublisher) Publish(ctx context.Context, eventType string, payload []byte, partitionKey string) error {
	topic := p.defaultTopic
	if mapped, ok := p.topicByEvent[eventType]; ok && mapped != "" {
		topic = mapped
	}
	now := time.Now().UTC()
	envelope, err := json.Marshal(contracts.EventEnvelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		EventClass:    domain.CanonicalEventClass(eventType),
		OccurredAt:    now,
		PartitionKey:  partitionKey,
		SourceService: p.source,
		SchemaVersion: envelopeSchemaVersion,
		Data:          payload,
	})
	if err != nil {
		return err
	}
	return p.writer.WriteMessages(ctx, kafka.Message{
		Topic: topic,
		Key:   []byte(partitionKey),
		Value: envelope,
		Time:  now,
	})
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
