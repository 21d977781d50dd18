package models

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
)

// Topic names used as keys of EventPublisher.KafkaWriters.
const (
	TopicRaw     = "raw"
	TopicFailed  = "failed"
	TopicReplies = "replies"
)

// KafkaWriter is the subset of *kafka.Writer the publisher needs.
type KafkaWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// EventPublisher fans webhook traffic out to Kafka for auditing and replay.
// A nil publisher, or one without a writer for a topic, drops messages silently.
type EventPublisher struct {
	Logger       *slog.Logger
	KafkaWriters map[string]KafkaWriter
	mu           sync.RWMutex
}

func NewEventPublisher(logger *slog.Logger, kafkaWriters map[string]KafkaWriter) *EventPublisher {
	return &EventPublisher{
		Logger:       logger,
		KafkaWriters: kafkaWriters,
	}
}

// PublishRaw writes the undecoded webhook body, keyed by a fresh uuid.
func (ep *EventPublisher) PublishRaw(ctx context.Context, body []byte) error {
	if ep == nil {
		return nil
	}
	return ep.write(ctx, TopicRaw, uuid.New().String(), body)
}

// PublishFailure records an event that could not be processed.
func (ep *EventPublisher) PublishFailure(ctx context.Context, failed FailedEvent) error {
	if ep == nil {
		return nil
	}
	return ep.SendMessageToKafka(ctx, failed, TopicFailed, failed.ID)
}

// PublishReply records a reply that was delivered to LINE.
func (ep *EventPublisher) PublishReply(ctx context.Context, record HaikuRecord) error {
	if ep == nil {
		return nil
	}
	return ep.SendMessageToKafka(ctx, record, TopicReplies, record.ContentID)
}

// SendMessageToKafka marshals the given payload and writes it to the writer registered for topicName.
func (ep *EventPublisher) SendMessageToKafka(ctx context.Context, payload interface{}, topicName string, kafkaKey string) error {
	const function = "SendMessageToKafka"

	jsonMsg, err := json.Marshal(payload)
	if err != nil {
		ep.Logger.Error("Error marshaling message", "function", function, "error", err)
		return err
	}
	return ep.write(ctx, topicName, kafkaKey, jsonMsg)
}

func (ep *EventPublisher) write(ctx context.Context, topicName, kafkaKey string, value []byte) error {
	const function = "write"
	ep.mu.RLock()
	defer ep.mu.RUnlock()

	writer := ep.KafkaWriters[topicName]
	if writer == nil {
		ep.Logger.Debug("Kafka writer topic not initialized", "function", function, "Topic", topicName)
		return nil
	}

	err := writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(kafkaKey),
		Value: value,
	})
	if err != nil {
		ep.Logger.Error("Error sending message to Kafka", "function", function, "error", err, "Topic", topicName)
		return err
	}

	ep.Logger.Debug(fmt.Sprintf("Message sent to [%s] Topic", topicName))
	return nil
}

// Close closes all Kafka writers
func (ep *EventPublisher) Close() error {
	if ep == nil {
		return nil
	}
	ep.mu.Lock()
	defer ep.mu.Unlock()

	var firstErr error

	for key, writer := range ep.KafkaWriters {
		if writer != nil {
			if err := writer.Close(); err != nil {
				// capture the first error, but keep closing others
				if firstErr == nil {
					firstErr = fmt.Errorf("error closing writer [%s]: %w", key, err)
				}
			}
		}
	}

	return firstErr
}
