package kafka_middleware

import (
	"context"
	"time"

	"github.com/sirsanndy/room-booking-sub001/pkg/kafka"
	"github.com/sirsanndy/room-booking-sub001/pkg/logger"
)

// LoggingProducerMiddleware logs every publish at debug level and failures
// at warn level.
func LoggingProducerMiddleware(log *logger.Logger) kafka.ProducerMiddleware {
	return func(ctx context.Context, msg kafka.Message, next func(ctx context.Context, msg kafka.Message) error) error {
		start := time.Now()
		err := next(ctx, msg)
		duration := time.Since(start)

		if err != nil {
			log.Warn("Kafka publish failed",
				"topic", msg.Topic,
				"key", msg.Key,
				"event_id", msg.GetEventID(),
				"duration", duration,
				"error", err,
			)
			return err
		}

		log.Debug("Kafka message published",
			"topic", msg.Topic,
			"key", msg.Key,
			"event_id", msg.GetEventID(),
			"duration", duration,
		)
		return nil
	}
}

// LoggingConsumerMiddleware logs every handled message at debug level and
// failures at warn level. The handler decides what is worth an info line,
// so this middleware stays quiet in normal operation.
func LoggingConsumerMiddleware(log *logger.Logger) kafka.ConsumerMiddleware {
	return func(ctx context.Context, msg kafka.Message, next kafka.MessageHandler) error {
		start := time.Now()
		err := next(ctx, msg)
		duration := time.Since(start)

		if err != nil {
			log.Warn("Kafka message handling failed",
				"topic", msg.Topic,
				"partition", msg.Partition,
				"offset", msg.Offset,
				"key", msg.Key,
				"event_id", msg.GetEventID(),
				"retry_count", msg.GetRetryCount(),
				"duration", duration,
				"error", err,
			)
			return err
		}

		log.Debug("Kafka message handled",
			"topic", msg.Topic,
			"partition", msg.Partition,
			"offset", msg.Offset,
			"key", msg.Key,
			"event_id", msg.GetEventID(),
			"duration", duration,
		)
		return nil
	}
}
