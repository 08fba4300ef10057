package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/venturelink/deal-service/internal/domain"
	"github.com/venturelink/deal-service/internal/ports"
)

// IntentStore keeps parked intents in a map with per-entry expiry. It
// mirrors the Redis store's take-once semantics.
type IntentStore struct {
	mu      sync.Mutex
	entries map[string]parkedEntry
}

type parkedEntry struct {
	intent    domain.ParkedIntent
	expiresAt time.Time
}

func NewIntentStore() *IntentStore {
	return &IntentStore{entries: map[string]parkedEntry{}}
}

func intentKey(subjectID, viewerID string) string { return subjectID + "|" + viewerID }

func (s *IntentStore) Park(_ context.Context, intent domain.ParkedIntent, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[intentKey(intent.SubjectID, intent.ViewerID)] = parkedEntry{
		intent:    intent,
		expiresAt: time.Now().UTC().Add(ttl),
	}
	return nil
}

func (s *IntentStore) Take(_ context.Context, subjectID, viewerID string) (domain.ParkedIntent, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := intentKey(subjectID, viewerID)
	entry, ok := s.entries[key]
	if !ok {
		return domain.ParkedIntent{}, false, nil
	}
	delete(s.entries, key)
	if time.Now().UTC().After(entry.expiresAt) {
		return domain.ParkedIntent{}, false, nil
	}
	return entry.intent, true, nil
}

func (s *IntentStore) Drop(_ context.Context, subjectID, viewerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, intentKey(subjectID, viewerID))
	return nil
}

// RateLimiter is a fixed-window counter over a map.
type RateLimiter struct {
	mu      sync.Mutex
	windows map[string]rateWindow
}

type rateWindow struct {
	count   int64
	resetAt time.Time
}

func NewRateLimiter() *RateLimiter {
	return &RateLimiter{windows: map[string]rateWindow{}}
}

func (l *RateLimiter) Increment(_ context.Context, key string, window time.Duration) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := time.Now().UTC()
	w, ok := l.windows[key]
	if !ok || now.After(w.resetAt) {
		w = rateWindow{resetAt: now.Add(window)}
	}
	w.count++
	l.windows[key] = w
	return w.count, nil
}

// PublishedEvent is one delivery captured by CapturePublisher.
type PublishedEvent struct {
	EventType    string
	PartitionKey string
	Payload      []byte
}

// CapturePublisher records publishes for assertions and can be told to
// fail to exercise outbox retry paths.
type CapturePublisher struct {
	mu       sync.Mutex
	events   []PublishedEvent
	failNext int
}

func NewCapturePublisher() *CapturePublisher {
	return &CapturePublisher{}
}

func (p *CapturePublisher) Publish(_ context.Context, eventType string, payload []byte, partitionKey string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failNext > 0 {
		p.failNext--
		return fmt.Errorf("broker unavailable")
	}
	p.events = append(p.events, PublishedEvent{
		EventType:    eventType,
		PartitionKey: partitionKey,
		Payload:      append([]byte(nil), payload...),
	})
	return nil
}

// FailNext makes the next n publishes return an error.
func (p *CapturePublisher) FailNext(n int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failNext = n
}

func (p *CapturePublisher) Events() []PublishedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]PublishedEvent, len(p.events))
	copy(out, p.events)
	return out
}

// PaymentClient simulates the escrow rail. Holds confirm immediately
// unless FailNext was armed.
type PaymentClient struct {
	mu       sync.Mutex
	holds    []ports.HoldFundsRequest
	failNext int
}

func NewPaymentClient() *PaymentClient {
	return &PaymentClient{}
}

func (c *PaymentClient) HoldFunds(_ context.Context, req ports.HoldFundsRequest) (ports.HoldFundsResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failNext > 0 {
		c.failNext--
		return ports.HoldFundsResult{}, fmt.Errorf("%w: payment rail rejected hold", domain.ErrExternalDependency)
	}
	c.holds = append(c.holds, req)
	return ports.HoldFundsResult{ReferenceID: "hold-" + uuid.NewString(), Confirmed: true}, nil
}

func (c *PaymentClient) FailNext(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failNext = n
}

func (c *PaymentClient) Holds() []ports.HoldFundsRequest {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]ports.HoldFundsRequest, len(c.holds))
	copy(out, c.holds)
	return out
}
