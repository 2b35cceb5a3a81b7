// Package events publishes booking lifecycle events. Delivery is best
// effort: a mutation that committed must never fail because the event bus
// is down.
package events

import (
	"context"
	"time"

	"github.com/sirsanndy/room-booking-sub001/pkg/kafka"
	"github.com/sirsanndy/room-booking-sub001/pkg/logger"
	"github.com/sirsanndy/room-booking-sub001/pkg/model"

	"github.com/google/uuid"
)

const (
	TypeCreated   = "booking.created"
	TypeUpdated   = "booking.updated"
	TypeCancelled = "booking.cancelled"
)

// BookingEvent is the payload published for every booking mutation. The
// booking snapshot carries the post-mutation state, including the new
// version.
type BookingEvent struct {
	EventID    string        `json:"event_id"`
	Type       string        `json:"type"`
	OccurredAt time.Time     `json:"occurred_at"`
	Booking    model.Booking `json:"booking"`
}

type Publisher interface {
	Publish(ctx context.Context, eventType string, booking *model.Booking)
}

// NopPublisher drops events. Wired when Kafka is disabled.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, string, *model.Booking) {}

// KafkaPublisher emits events keyed by room ID, so all events for one room
// land on one partition and per-room ordering holds.
type KafkaPublisher struct {
	producer *kafka.Producer
	log      *logger.Logger
}

func NewKafkaPublisher(producer *kafka.Producer, log *logger.Logger) *KafkaPublisher {
	return &KafkaPublisher{
		producer: producer,
		log:      log,
	}
}

func (p *KafkaPublisher) Publish(ctx context.Context, eventType string, booking *model.Booking) {
	event := BookingEvent{
		EventID:    uuid.New().String(),
		Type:       eventType,
		OccurredAt: time.Now().UTC(),
		Booking:    *booking,
	}

	msg := kafka.NewMessage().
		WithKey(booking.RoomID).
		WithValue(event).
		WithEventID(event.EventID).
		WithEventType(eventType).
		WithSource("room-booking").
		Build()

	if err := p.producer.Publish(ctx, msg); err != nil {
		p.log.Warn("Failed to publish booking event",
			"event_type", eventType,
			"booking_id", booking.ID,
			"error", err,
		)
	}
}
