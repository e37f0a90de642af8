// Package publisher ships audit events to Kafka so downstream consumers
// (SIEM, retention pipelines) can subscribe without touching the database.
package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"

	audit "serenyx/pkg/platform/audit"
)

// Kafka implements audit.Store by producing one JSON record per event.
// It sits behind the audit worker, never on the request path.
type Kafka struct {
	client *kgo.Client
	topic  string
}

// NewKafka connects to the given brokers. The topic must already exist.
func NewKafka(brokers []string, topic string) (*Kafka, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.ProducerBatchCompression(kgo.SnappyCompression()),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}
	return &Kafka{client: client, topic: topic}, nil
}

// payload is the wire shape published to Kafka. Field names are stable for
// consumers.
type payload struct {
	Category  string         `json:"category"`
	Timestamp string         `json:"timestamp"`
	ActorID   string         `json:"actor_id,omitempty"`
	Action    string         `json:"action"`
	Resource  string         `json:"resource"`
	Outcome   string         `json:"outcome"`
	RequestID string         `json:"request_id,omitempty"`
	ClientIP  string         `json:"client_ip,omitempty"`
	Device    string         `json:"device,omitempty"`
	Details   map[string]any `json:"details,omitempty"`
}

// Append produces the event synchronously; the worker already runs off the
// request path, so waiting for the broker ack here is acceptable.
func (k *Kafka) Append(ctx context.Context, event audit.Event) error {
	value, err := json.Marshal(payload{
		Category:  string(event.Category),
		Timestamp: event.Timestamp.Format(time.RFC3339Nano),
		ActorID:   event.ActorID,
		Action:    string(event.Action),
		Resource:  event.Resource,
		Outcome:   string(event.Outcome),
		RequestID: event.RequestID,
		ClientIP:  event.ClientIP,
		Device:    event.Device,
		Details:   event.Details,
	})
	if err != nil {
		return fmt.Errorf("marshal audit payload: %w", err)
	}

	record := &kgo.Record{
		Topic: k.topic,
		Key:   []byte(event.ActorID),
		Value: value,
	}
	if err := k.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("produce audit event: %w", err)
	}
	return nil
}

// Close flushes outstanding records and releases the client.
func (k *Kafka) Close() {
	k.client.Close()
}
