package services

import (
	"context"
	"strconv"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/segmentio/kafka-go"
)

// Booking event types
const (
	EventBookingConfirmed = "booking.confirmed"
	EventBookingCancelled = "booking.cancelled"
)

// BookingEvent is published after a booking changes state
type BookingEvent struct {
	Type        string    `json:"type"`
	BookingID   uint      `json:"booking_id"`
	UserID      uint      `json:"user_id"`
	ActivityID  uint      `json:"activity_id"`
	CreditsUsed int       `json:"credits_used"`
	OccurredAt  time.Time `json:"occurred_at"`
}

// BookingPublisher delivers booking events to downstream consumers
type BookingPublisher interface {
	Publish(ctx context.Context, event BookingEvent) error
	Close() error
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaBookingPublisher writes booking events to a Kafka topic, keyed by
// activity so events of one activity stay ordered
type KafkaBookingPublisher struct {
	writer messageWriter
}

// NewKafkaBookingPublisher creates a synchronous writer for topic
func NewKafkaBookingPublisher(brokers []string, topic string) *KafkaBookingPublisher {
	return &KafkaBookingPublisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
			Async:        false,
		},
	}
}

// Publish encodes the event as JSON and writes it
func (p *KafkaBookingPublisher) Publish(ctx context.Context, event BookingEvent) error {
	payload, err := jsoniter.ConfigCompatibleWithStandardLibrary.Marshal(event)
	if err != nil {
		return err
	}

	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(strconv.FormatUint(uint64(event.ActivityID), 10)),
		Value: payload,
		Time:  event.OccurredAt,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.Type)},
		},
	})
}

// Close flushes and releases the writer
func (p *KafkaBookingPublisher) Close() error {
	return p.writer.Close()
}

// NoopBookingPublisher drops every event; used when no brokers are configured
type NoopBookingPublisher struct{}

func (NoopBookingPublisher) Publish(context.Context, BookingEvent) error { return nil }

func (NoopBookingPublisher) Close() error { return nil }
