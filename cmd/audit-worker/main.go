package main

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirsanndy/room-booking-sub001/internal/booking/events"
	"github.com/sirsanndy/room-booking-sub001/pkg/config"
	"github.com/sirsanndy/room-booking-sub001/pkg/kafka"
	kafka_config "github.com/sirsanndy/room-booking-sub001/pkg/kafka/config"
	kafka_middleware "github.com/sirsanndy/room-booking-sub001/pkg/kafka/middleware"
	"github.com/sirsanndy/room-booking-sub001/pkg/logger"
)

const (
	WorkerName    = "audit-worker"
	ConsumerGroup = "booking-audit"
)

// The audit worker tails the booking events topic and turns every event
// into one structured log line. It keeps no state of its own, so replaying
// the topic from the earliest offset rebuilds the full audit trail.
func main() {
	cfg := config.Load(WorkerName)

	consumer, err := kafka.NewConsumer(
		kafka_config.Load(),
		cfg.KafkaBookingTopic,
		ConsumerGroup,
		cfg.KafkaDLQTopic,
		auditRecord(cfg.Log),
	)
	if err != nil {
		cfg.Log.Fatal("Failed to create Kafka consumer", "error", err)
	}
	consumer.Use(kafka_middleware.LoggingConsumerMiddleware(cfg.Log))
	consumer.Use(kafka_middleware.MetricsConsumerMiddleware())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg.Log.Info("Audit worker started",
		"topic", cfg.KafkaBookingTopic,
		"group_id", ConsumerGroup,
	)

	if err := consumer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		cfg.Log.Error("Consumer stopped", "error", err)
	}

	if err := consumer.Close(); err != nil {
		cfg.Log.Error("Failed to close Kafka consumer", "error", err)
	}

	stats := kafka_middleware.GetMetrics().Snapshot()
	cfg.Log.Info("Audit worker stopped",
		"consumed", stats.MessagesConsumed,
		"failed", stats.MessagesConsumedFailed,
	)
}

// auditRecord writes one line per booking event. A payload that does not
// decode is a permanent failure and goes to the DLQ instead of being
// retried.
func auditRecord(log *logger.Logger) kafka.MessageHandler {
	return func(_ context.Context, msg kafka.Message) error {
		var event events.BookingEvent
		if err := json.Unmarshal(msg.Value, &event); err != nil {
			return kafka.NewPermanentError("deserialization failed", err).
				WithDetail("topic", msg.Topic).
				WithDetail("offset", msg.Offset)
		}

		booking := event.Booking
		log.Info("Booking audit record",
			"event_id", event.EventID,
			"event_type", event.Type,
			"occurred_at", event.OccurredAt.Format(time.RFC3339),
			"booking_id", booking.ID,
			"room_id", booking.RoomID,
			"owner_id", booking.OwnerID,
			"status", booking.Status,
			"start_time", booking.StartTime.Format(time.RFC3339),
			"end_time", booking.EndTime.Format(time.RFC3339),
			"version", booking.Version,
			"partition", msg.Partition,
			"offset", msg.Offset,
		)
		return nil
	}
}
