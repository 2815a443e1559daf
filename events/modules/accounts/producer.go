package accounts

import (
	"context"
	"encoding/json"
	"time"

	"github.com/echolearn/echolearn-backend/model"
	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// MessageWriter is the part of *kafka.Writer the producer needs
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer sends account events to Kafka
type Producer struct {
	Writer MessageWriter
	logger *zap.Logger
	now    func() time.Time
}

// NewProducer wraps a writer, normally one built by internal/kafka
func NewProducer(w MessageWriter, logger *zap.Logger) *Producer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Producer{Writer: w, logger: logger, now: time.Now}
}

// Publish sends one event about u. Messages are keyed by user id so the
// events of one account stay ordered within a partition.
func (p *Producer) Publish(ctx context.Context, eventType EventType, u *model.User, actor string) error {
	event := AccountEvent{
		EventType:     eventType,
		EventID:       uuid.New().String(),
		EventTime:     p.now().UTC(),
		SchemaVersion: SchemaVersion,
		Account: AccountRef{
			ID:          u.ID,
			Email:       u.Email,
			Role:        u.Role,
			IsActive:    u.IsActive,
			LockedUntil: u.LockedUntil,
		},
		Actor: actor,
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	// write only what DecodeAccountEvent accepts
	if _, err := DecodeAccountEvent(payload); err != nil {
		return err
	}

	p.logger.Debug("Publishing account event", zap.String("event_type", string(eventType)), zap.String("user_id", u.ID))
	return p.Writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(u.ID),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(eventType)},
		},
	})
}

// Close flushes and closes the writer
func (p *Producer) Close() error {
	return p.Writer.Close()
}
