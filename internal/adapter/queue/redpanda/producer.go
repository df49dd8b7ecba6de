// Package redpanda publishes session lifecycle events to a Redpanda/Kafka topic.
// Events are keyed by session id so each session's events stay ordered within a partition.
package redpanda

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"
	"github.com/twmb/franz-go/plugin/kotel"
	"go.opentelemetry.io/otel"

	"github.com/fairyhunter13/ai-interview-coach/internal/domain"
)

// DefaultTopic receives session events when no topic is configured.
const DefaultTopic = "session-events"

// Producer publishes domain.SessionEvent records.
type Producer struct {
	client  *kgo.Client
	topic   string
	timeout time.Duration
}

var _ domain.EventPublisher = (*Producer)(nil)

// NewProducer connects to brokers and makes sure topic exists. Produce calls are idempotent
// on the broker side and each publish waits at most five seconds for acknowledgement.
func NewProducer(ctx context.Context, brokers []string, topic string) (*Producer, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("op=redpanda.NewProducer: no seed brokers provided")
	}
	if topic == "" {
		topic = DefaultTopic
	}
	kotelService := kotel.NewKotel(kotel.WithTracer(kotel.NewTracer(
		kotel.TracerProvider(otel.GetTracerProvider()),
	)))
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
		kgo.RequiredAcks(kgo.AllISRAcks()),
		kgo.ProducerLinger(5*time.Millisecond),
		kgo.RecordRetries(3),
		kgo.DialTimeout(10*time.Second),
		kgo.WithHooks(kotelService.Hooks()...),
	)
	if err != nil {
		return nil, fmt.Errorf("op=redpanda.NewProducer: %w", err)
	}
	if err := ensureTopic(ctx, client, topic, 3, 1); err != nil {
		// the topic may be managed externally; producing will surface real problems
		slog.Warn("could not ensure events topic", slog.String("topic", topic), slog.Any("error", err))
	}
	slog.Info("session event producer ready", slog.Any("brokers", brokers), slog.String("topic", topic))
	return &Producer{client: client, topic: topic, timeout: 5 * time.Second}, nil
}

// newRecord encodes ev as JSON keyed by session id with the event type as a header.
func newRecord(topic string, ev domain.SessionEvent) (*kgo.Record, error) {
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}
	b, err := json.Marshal(ev)
	if err != nil {
		return nil, err
	}
	return &kgo.Record{
		Topic:     topic,
		Key:       []byte(ev.SessionID),
		Value:     b,
		Timestamp: ev.At,
		Headers: []kgo.RecordHeader{
			{Key: "event_type", Value: []byte(ev.Type)},
			{Key: "session_kind", Value: []byte(ev.SessionKind)},
		},
	}, nil
}

// Publish produces ev synchronously.
func (p *Producer) Publish(ctx context.Context, ev domain.SessionEvent) error {
	rec, err := newRecord(p.topic, ev)
	if err != nil {
		return fmt.Errorf("op=redpanda.publish: %w", err)
	}
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	if err := p.client.ProduceSync(ctx, rec).FirstErr(); err != nil {
		return fmt.Errorf("op=redpanda.publish: %w", err)
	}
	return nil
}

// Ping checks broker connectivity.
func (p *Producer) Ping(ctx context.Context) error {
	return p.client.Ping(ctx)
}

// Close flushes buffered records and closes the client.
func (p *Producer) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()
	err := p.client.Flush(ctx)
	p.client.Close()
	return err
}

// NoopPublisher drops every event; used when no brokers are configured.
type NoopPublisher struct{}

// Publish implements domain.EventPublisher.
func (NoopPublisher) Publish(context.Context, domain.SessionEvent) error { return nil }
