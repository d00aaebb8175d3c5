package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
)

const (
	TypeReturnRequested     = "return_requested"
	TypeReturnStatusChanged = "return_status_changed"
	TypeReturnCancelled     = "return_cancelled"
	TypeReplacementShipped  = "replacement_shipped"
)

type ReturnEvent struct {
	Type       string    `json:"type"`
	ReturnID   uuid.UUID `json:"return_id"`
	RMACode    string    `json:"rma_code"`
	OrderID    uuid.UUID `json:"order_id"`
	UserID     uuid.UUID `json:"user_id"`
	Status     string    `json:"status"`
	OccurredAt time.Time `json:"occurred_at"`
}

type Publisher interface {
	PublishReturnEvent(ctx context.Context, event ReturnEvent) error
	Close() error
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type KafkaPublisher struct {
	writer messageWriter
}

func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Topic:                  topic,
			Balancer:               &kafka.Hash{},
			RequiredAcks:           kafka.RequireOne,
			AllowAutoTopicCreation: true,
		},
	}
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// PublishReturnEvent keys messages by return id so one return's events stay ordered.
func (p *KafkaPublisher) PublishReturnEvent(ctx context.Context, event ReturnEvent) error {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(event.ReturnID.String()),
		Value: value,
		Headers: []kafka.Header{
			{Key: "type", Value: []byte(event.Type)},
		},
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("write message: %w", err)
	}
	return nil
}

type Nop struct{}

func (Nop) PublishReturnEvent(context.Context, ReturnEvent) error { return nil }
func (Nop) Close() error                                         { return nil }
