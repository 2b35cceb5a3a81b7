package config

const (
	EnvMongoURI          = "MONGO_URI"
	EnvMongoDatabaseName = "MONGO_DATABASE_NAME"
	EnvMongoConnTimeout  = "MONGO_CONN_TIMEOUT"

	EnvRedisAddr     = "REDIS_ADDR"
	EnvRedisPassword = "REDIS_PASSWORD"
	EnvRedisDB       = "REDIS_DB"

	EnvPort     = "PORT"
	EnvLogLevel = "LOG_LEVEL"

	EnvRequestTimeout = "REQUEST_TIMEOUT"
	EnvIdempotencyTTL = "IDEMPOTENCY_TTL"
	EnvMaxRequestSize = "MAX_REQUEST_SIZE"

	EnvReadTimeout     = "READ_TIMEOUT"
	EnvWriteTimeout    = "WRITE_TIMEOUT"
	EnvIdleTimeout     = "IDLE_TIMEOUT"
	EnvShutdownTimeout = "SHUTDOWN_TIMEOUT"

	EnvThrottleCapacity       = "THROTTLE_CAPACITY"
	EnvThrottleRefillInterval = "THROTTLE_REFILL_INTERVAL"
	EnvThrottleStore          = "THROTTLE_STORE"

	EnvLockTTL           = "SLOT_LOCK_TTL"
	EnvLockWaitTimeout   = "SLOT_LOCK_WAIT_TIMEOUT"
	EnvLockRetryInterval = "SLOT_LOCK_RETRY_INTERVAL"

	EnvBookingTimezone    = "BOOKING_TIMEZONE"
	EnvMinBookingDuration = "MIN_BOOKING_DURATION"
	EnvMaxBookingDuration = "MAX_BOOKING_DURATION"
	EnvDailyBookingLimit  = "DAILY_BOOKING_LIMIT"
	EnvOpeningTime        = "OPENING_TIME"
	EnvClosingTime        = "CLOSING_TIME"
	EnvWorkingDays        = "WORKING_DAYS"

	EnvCacheRoomsTTL        = "CACHE_ROOMS_TTL"
	EnvCacheHolidaysTTL     = "CACHE_HOLIDAYS_TTL"
	EnvCacheUserBookingsTTL = "CACHE_USER_BOOKINGS_TTL"
	EnvCacheScheduleTTL     = "CACHE_SCHEDULE_TTL"
	EnvCacheUpcomingTTL     = "CACHE_UPCOMING_TTL"
	EnvCacheDashboardTTL    = "CACHE_DASHBOARD_TTL"

	EnvKafkaEnabled      = "KAFKA_ENABLED"
	EnvKafkaBookingTopic = "KAFKA_BOOKING_TOPIC"
	EnvKafkaDLQTopic     = "KAFKA_BOOKING_DLQ_TOPIC"
)
