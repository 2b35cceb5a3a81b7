package config

import "time"

const (
	DefaultMongoURI          = "mongodb://localhost:27017"
	DefaultMongoDatabaseName = "roombooking"
	DefaultMongoConnTimeout  = 10 * time.Second

	DefaultRedisAddr = "localhost:6379"
	DefaultRedisDB   = 0

	DefaultPort     = "8080"
	DefaultLogLevel = "info"

	DefaultRequestTimeout = 30 * time.Second
	DefaultIdempotencyTTL = 24 * time.Hour
	DefaultMaxRequestSize = 1 * 1024 * 1024 // 1MB

	DefaultReadTimeout     = 15 * time.Second
	DefaultWriteTimeout    = 15 * time.Second
	DefaultIdleTimeout     = 60 * time.Second
	DefaultShutdownTimeout = 30 * time.Second

	ThrottleStoreMemory = "memory"
	ThrottleStoreRedis  = "redis"

	// 10 requests, refilling one token every 6 seconds.
	DefaultThrottleCapacity       = 10
	DefaultThrottleRefillInterval = 6 * time.Second
	DefaultThrottleStore          = ThrottleStoreMemory

	DefaultLockTTL           = 10 * time.Second
	DefaultLockWaitTimeout   = 5 * time.Second
	DefaultLockRetryInterval = 50 * time.Millisecond

	DefaultBookingTimezone    = "UTC"
	DefaultMinBookingDuration = 30 * time.Minute
	DefaultMaxBookingDuration = 8 * time.Hour
	DefaultDailyBookingLimit  = 9 * time.Hour
	DefaultOpeningTime        = "07:00"
	DefaultClosingTime        = "22:00"

	DefaultCacheRoomsTTL        = 1 * time.Hour
	DefaultCacheHolidaysTTL     = 6 * time.Hour
	DefaultCacheUserBookingsTTL = 5 * time.Minute
	DefaultCacheScheduleTTL     = 5 * time.Minute
	DefaultCacheUpcomingTTL     = 1 * time.Minute
	DefaultCacheDashboardTTL    = 1 * time.Minute

	DefaultKafkaEnabled      = false
	DefaultKafkaBookingTopic = "booking-events"
	DefaultKafkaDLQTopic     = "booking-events-dlq"

	DefaultPaginationLimit = 100
)

var DefaultWorkingDays = []Weekday{Monday, Tuesday, Wednesday, Thursday, Friday}
