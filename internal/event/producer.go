// Package event publishes user lifecycle events to Kafka.
package event

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sheetalMehta7/chillTube-backend/pkg/kafka"
	"github.com/sheetalMehta7/chillTube-backend/pkg/logger"
)

const (
	TopicUserRegistered      = "user.registered"
	TopicUserPasswordChanged = "user.password_changed"

	aggregateType = "user"
	source        = "chilltube-users"
)

// UserRegisteredData is the payload for user.registered events.
type UserRegisteredData struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

// UserPasswordChangedData is the payload for user.password_changed events.
type UserPasswordChangedData struct {
	UserID string `json:"user_id"`
}

// Publisher emits user lifecycle events. Callers treat publish failures as
// non-fatal; the user-facing operation has already committed.
type Publisher interface {
	UserRegistered(ctx context.Context, data UserRegisteredData) error
	UserPasswordChanged(ctx context.Context, data UserPasswordChangedData) error
}

// KafkaPublisher publishes events through the shared Kafka producer.
type KafkaPublisher struct {
	producer *kafka.Producer
	logger   *slog.Logger
}

// NewKafkaPublisher creates a publisher backed by the given producer.
func NewKafkaPublisher(producer *kafka.Producer, log *slog.Logger) *KafkaPublisher {
	return &KafkaPublisher{producer: producer, logger: log}
}

func (p *KafkaPublisher) UserRegistered(ctx context.Context, data UserRegisteredData) error {
	return p.publish(ctx, TopicUserRegistered, data.UserID, data)
}

func (p *KafkaPublisher) UserPasswordChanged(ctx context.Context, data UserPasswordChangedData) error {
	return p.publish(ctx, TopicUserPasswordChanged, data.UserID, data)
}

func (p *KafkaPublisher) publish(ctx context.Context, topic, userID string, data any) error {
	evt, err := kafka.NewEvent(topic, userID, aggregateType, source, data)
	if err != nil {
		return fmt.Errorf("build %s event: %w", topic, err)
	}

	if cid := logger.CorrelationIDFromContext(ctx); cid != "" {
		evt.WithCorrelationID(cid)
	}

	if err := p.producer.Publish(ctx, topic, evt); err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	return nil
}

// NoopPublisher discards events. Used when Kafka is disabled and in tests.
type NoopPublisher struct{}

func (NoopPublisher) UserRegistered(context.Context, UserRegisteredData) error { return nil }
func (NoopPublisher) UserPasswordChanged(context.Context, UserPasswordChangedData) error {
	return nil
}
