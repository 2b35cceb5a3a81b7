package main

import (
	"github.com/sirsanndy/room-booking-sub001/internal/booking/events"
	bookinghandler "github.com/sirsanndy/room-booking-sub001/internal/booking/handler"
	bookingrepository "github.com/sirsanndy/room-booking-sub001/internal/booking/repository"
	bookingservice "github.com/sirsanndy/room-booking-sub001/internal/booking/service"
	"github.com/sirsanndy/room-booking-sub001/internal/booking/validator"
	holidayhandler "github.com/sirsanndy/room-booking-sub001/internal/holiday/handler"
	holidayrepository "github.com/sirsanndy/room-booking-sub001/internal/holiday/repository"
	holidayservice "github.com/sirsanndy/room-booking-sub001/internal/holiday/service"
	roomhandler "github.com/sirsanndy/room-booking-sub001/internal/room/handler"
	roomrepository "github.com/sirsanndy/room-booking-sub001/internal/room/repository"
	roomservice "github.com/sirsanndy/room-booking-sub001/internal/room/service"
	"github.com/sirsanndy/room-booking-sub001/pkg/app"
	"github.com/sirsanndy/room-booking-sub001/pkg/cache"
	"github.com/sirsanndy/room-booking-sub001/pkg/config"
	"github.com/sirsanndy/room-booking-sub001/pkg/kafka"
	kafka_config "github.com/sirsanndy/room-booking-sub001/pkg/kafka/config"
	kafka_middleware "github.com/sirsanndy/room-booking-sub001/pkg/kafka/middleware"
	"github.com/sirsanndy/room-booking-sub001/pkg/logger"
	"github.com/sirsanndy/room-booking-sub001/pkg/throttle"
)

const ServiceName = "booking"

func main() {
	cfg := config.Load(ServiceName)
	cfg.SetMongo()
	cfg.SetRedis()
	defer cfg.GracefulShutdown()

	cfg.Log.Info("Starting booking service")

	serverApp := app.NewApplication()
	limiter := initLimiter(cfg, serverApp)
	publisher := initPublisher(cfg, serverApp)
	bookingService, roomService, holidayService := initServices(cfg, limiter, publisher)

	serverApp.SetApp(
		cfg,
		bookinghandler.NewHealthHandler(cfg.Client.Mongo.Client, cfg.Client.Redis.Client, cfg.Log),
		bookinghandler.NewBookingHandler(bookingService, cfg.Log),
		roomhandler.NewRoomHandler(roomService, bookingService, cfg.Log),
		holidayhandler.NewHolidayHandler(holidayService, cfg.Log),
	)
	serverApp.Run()
}

func initServices(cfg *config.Config, limiter *throttle.Limiter, publisher events.Publisher) (bookingservice.BookingService, roomservice.RoomService, holidayservice.HolidayService) {
	sharedCache := cache.New(cfg.Client.Redis.Client, cfg.Log)

	roomRepo := roomrepository.NewMongoRoomRepository(cfg)
	roomService := roomservice.NewRoomService(roomRepo, sharedCache, cfg)

	holidayRepo := holidayrepository.NewMongoHolidayRepository(cfg)
	holidayService := holidayservice.NewHolidayService(holidayRepo, sharedCache, cfg)

	// The booking service checks holidays against the repository, not the
	// cached holiday service, so a stale cache entry can never admit a
	// booking on a day that was just declared a holiday.
	bookingService := bookingservice.NewBookingService(
		bookingrepository.NewMongoBookingRepository(cfg),
		bookingrepository.NewSlotLockRepository(cfg),
		roomService,
		holidayRepo,
		validator.NewBookingValidator(cfg.Log),
		sharedCache,
		limiter,
		publisher,
		cfg,
	)

	cfg.Log.Info("Booking service initialized", "database", cfg.MongoDatabaseName)
	return bookingService, roomService, holidayService
}

func initLimiter(cfg *config.Config, serverApp *app.Application) *throttle.Limiter {
	var store throttle.Store
	switch cfg.ThrottleStore {
	case config.ThrottleStoreRedis:
		store = throttle.NewRedisStore(cfg.Client.Redis.Client, cfg.ThrottleCapacity, cfg.ThrottleRefillInterval)
	default:
		memStore := throttle.NewMemoryStore(cfg.ThrottleCapacity, cfg.ThrottleRefillInterval)
		serverApp.OnStop(memStore)
		store = memStore
	}

	cfg.Log.Info("Write throttle initialized",
		"store", cfg.ThrottleStore,
		"capacity", cfg.ThrottleCapacity,
		"refill_interval", cfg.ThrottleRefillInterval,
	)
	return throttle.NewLimiter(store, cfg.Log)
}

func initPublisher(cfg *config.Config, serverApp *app.Application) events.Publisher {
	if !cfg.KafkaEnabled {
		cfg.Log.Info("Kafka disabled, booking events will not be published")
		return events.NopPublisher{}
	}

	producer, err := kafka.NewProducer(kafka_config.Load(), cfg.KafkaBookingTopic, cfg.KafkaDLQTopic)
	if err != nil {
		cfg.Log.Fatal("Failed to create Kafka producer", "error", err)
	}
	producer.Use(kafka_middleware.MetricsProducerMiddleware())

	serverApp.OnStop(producerStopper{producer: producer, log: cfg.Log})
	cfg.Log.Info("Kafka publisher initialized", "topic", cfg.KafkaBookingTopic)
	return events.NewKafkaPublisher(producer, cfg.Log)
}

// producerStopper adapts the Kafka producer to the application stopper
// contract, which has no error return.
type producerStopper struct {
	producer *kafka.Producer
	log      *logger.Logger
}

func (s producerStopper) Stop() {
	if err := s.producer.Close(); err != nil {
		s.log.Error("Failed to close Kafka producer", "error", err)
	}

	stats := kafka_middleware.GetMetrics().Snapshot()
	s.log.Info("Kafka producer closed",
		"published", stats.MessagesPublished,
		"failed", stats.MessagesPublishedFailed,
	)
}
