// Package events publishes chat audit events to Kafka.
//
// Events are an operational byproduct of a dispatch, so publishing is fire
// and forget: the chat reply never waits on, or fails because of, the broker.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/twmb/franz-go/pkg/kgo"

	"github.com/haziqlabs/haziq-ai/internal/domain"
)

// TopicChatEvents is the Kafka topic carrying one record per dispatch.
const TopicChatEvents = "chat-events"

// Producer wraps a Kafka producer and implements domain.EventSink.
type Producer struct {
	client *kgo.Client
}

// NewProducer constructs a Producer and ensures the topic exists. An empty
// broker list is a configuration error; callers that run without Kafka
// should use NewNopSink instead.
func NewProducer(brokers []string) (*Producer, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("no seed brokers provided")
	}
	slog.Info("creating chat-events producer", slog.Any("brokers", brokers))

	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.RequestRetries(10),
		kgo.ProducerBatchMaxBytes(1000000),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka client: %w", err)
	}

	if err := createTopicIfNotExists(context.Background(), client, TopicChatEvents, 1, 1); err != nil {
		slog.Warn("failed to create topic, it may already exist",
			slog.String("topic", TopicChatEvents), slog.Any("error", err))
	}
	return &Producer{client: client}, nil
}

// Publish emits one chat event. Delivery is asynchronous; broker errors are
// logged, never surfaced to the chat path.
func (p *Producer) Publish(ctx domain.Context, e domain.ChatEvent) error {
	b, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("op=events.marshal: %w", err)
	}
	record := &kgo.Record{
		Topic: TopicChatEvents,
		// Session id keys the record so one conversation stays ordered
		// within a partition.
		Key:   []byte(e.SessionID),
		Value: b,
		Headers: []kgo.RecordHeader{
			{Key: "student_id", Value: []byte(e.StudentID)},
			{Key: "provider", Value: []byte(e.Provider)},
		},
	}
	p.client.Produce(ctx, record, func(_ *kgo.Record, err error) {
		if err != nil {
			slog.Error("chat event delivery failed",
				slog.String("session_id", e.SessionID), slog.Any("error", err))
		}
	})
	return nil
}

// Close flushes pending records and closes the client.
func (p *Producer) Close() error {
	if p.client != nil {
		if err := p.client.Flush(context.Background()); err != nil {
			slog.Warn("chat event flush on close failed", slog.Any("error", err))
		}
		p.client.Close()
	}
	return nil
}

// NopSink discards events. Used when KAFKA_BROKERS is unset.
type NopSink struct{}

func NewNopSink() NopSink { return NopSink{} }

func (NopSink) Publish(domain.Context, domain.ChatEvent) error { return nil }
