package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
)

type TradeExecuted struct {
	TransactionID string          `json:"transaction_id"`
	UserID        string          `json:"user_id"`
	FromCurrency  string          `json:"from_currency"`
	ToCurrency    string          `json:"to_currency"`
	FromAmount    decimal.Decimal `json:"from_amount"`
	ToAmount      decimal.Decimal `json:"to_amount"`
	Fee           decimal.Decimal `json:"fee"`
	Rate          decimal.Decimal `json:"exchange_rate"`
	ExecutedAt    time.Time       `json:"executed_at"`
}

type Publisher interface {
	PublishTrade(ctx context.Context, event TradeExecuted) error
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
			WriteTimeout:           5 * time.Second,
		},
	}
}

// PublishTrade writes the event keyed by user id, so one user's trades stay
// ordered within a partition.
func (k *KafkaPublisher) PublishTrade(ctx context.Context, event TradeExecuted) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	if err := k.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.UserID),
		Value: payload,
		Time:  event.ExecutedAt,
	}); err != nil {
		return fmt.Errorf("publish trade %s: %w", event.TransactionID, err)
	}
	return nil
}

func (k *KafkaPublisher) Close() error {
	return k.writer.Close()
}

type NopPublisher struct{}

func (NopPublisher) PublishTrade(context.Context, TradeExecuted) error {
	return nil
}

func (NopPublisher) Close() error {
	return nil
}

// NewPublisher returns a Kafka publisher, or a no-op one when no brokers are configured.
func NewPublisher(brokers []string, topic string) Publisher {
	if len(brokers) == 0 {
		return NopPublisher{}
	}
	return NewKafkaPublisher(brokers, topic)
}
