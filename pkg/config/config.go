package config

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/sirsanndy/room-booking-sub001/pkg/client"
	"github.com/sirsanndy/room-booking-sub001/pkg/logger"
)

type Weekday string

const (
	Monday    Weekday = "Monday"
	Tuesday   Weekday = "Tuesday"
	Wednesday Weekday = "Wednesday"
	Thursday  Weekday = "Thursday"
	Friday    Weekday = "Friday"
	Saturday  Weekday = "Saturday"
	Sunday    Weekday = "Sunday"
)

type Config struct {
	MongoURI          string
	MongoDatabaseName string
	MongoConnTimeout  time.Duration

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	Port string

	RequestTimeout time.Duration
	IdempotencyTTL time.Duration
	MaxRequestSize int

	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	ThrottleCapacity       int
	ThrottleRefillInterval time.Duration
	ThrottleStore          string

	LockTTL           time.Duration
	LockWaitTimeout   time.Duration
	LockRetryInterval time.Duration

	// Booking policy. All calendar rules (weekday, holiday, business hours,
	// same day) are evaluated in BookingTimezone, resolved into Location.
	BookingTimezone string
	MinDuration     time.Duration
	MaxDuration     time.Duration
	DailyLimit      time.Duration
	OpeningTime     string
	ClosingTime     string
	WorkingDays     []Weekday
	Location        *time.Location

	CacheRoomsTTL        time.Duration
	CacheHolidaysTTL     time.Duration
	CacheUserBookingsTTL time.Duration
	CacheScheduleTTL     time.Duration
	CacheUpcomingTTL     time.Duration
	CacheDashboardTTL    time.Duration

	KafkaEnabled      bool
	KafkaBookingTopic string
	KafkaDLQTopic     string

	Log    *logger.Logger
	Client *client.Client
}

func Load(serviceName string) *Config {
	cfg := &Config{
		MongoURI:          getEnvStr(EnvMongoURI, DefaultMongoURI),
		MongoDatabaseName: getEnvStr(EnvMongoDatabaseName, DefaultMongoDatabaseName),
		MongoConnTimeout:  getEnvDuration(EnvMongoConnTimeout, DefaultMongoConnTimeout),

		RedisAddr:     getEnvStr(EnvRedisAddr, DefaultRedisAddr),
		RedisPassword: getEnvStr(EnvRedisPassword, ""),
		RedisDB:       getEnvNum(EnvRedisDB, DefaultRedisDB),

		Port: getEnvStr(EnvPort, DefaultPort),

		RequestTimeout: getEnvDuration(EnvRequestTimeout, DefaultRequestTimeout),
		IdempotencyTTL: getEnvDuration(EnvIdempotencyTTL, DefaultIdempotencyTTL),
		MaxRequestSize: getEnvNum(EnvMaxRequestSize, DefaultMaxRequestSize),

		ReadTimeout:     getEnvDuration(EnvReadTimeout, DefaultReadTimeout),
		WriteTimeout:    getEnvDuration(EnvWriteTimeout, DefaultWriteTimeout),
		IdleTimeout:     getEnvDuration(EnvIdleTimeout, DefaultIdleTimeout),
		ShutdownTimeout: getEnvDuration(EnvShutdownTimeout, DefaultShutdownTimeout),

		ThrottleCapacity:       getEnvNum(EnvThrottleCapacity, DefaultThrottleCapacity),
		ThrottleRefillInterval: getEnvDuration(EnvThrottleRefillInterval, DefaultThrottleRefillInterval),
		ThrottleStore:          getEnvStr(EnvThrottleStore, DefaultThrottleStore),

		LockTTL:           getEnvDuration(EnvLockTTL, DefaultLockTTL),
		LockWaitTimeout:   getEnvDuration(EnvLockWaitTimeout, DefaultLockWaitTimeout),
		LockRetryInterval: getEnvDuration(EnvLockRetryInterval, DefaultLockRetryInterval),

		BookingTimezone: getEnvStr(EnvBookingTimezone, DefaultBookingTimezone),
		MinDuration:     getEnvDuration(EnvMinBookingDuration, DefaultMinBookingDuration),
		MaxDuration:     getEnvDuration(EnvMaxBookingDuration, DefaultMaxBookingDuration),
		DailyLimit:      getEnvDuration(EnvDailyBookingLimit, DefaultDailyBookingLimit),
		OpeningTime:     getEnvStr(EnvOpeningTime, DefaultOpeningTime),
		ClosingTime:     getEnvStr(EnvClosingTime, DefaultClosingTime),
		WorkingDays:     getEnvWeekdays(EnvWorkingDays, DefaultWorkingDays),

		CacheRoomsTTL:        getEnvDuration(EnvCacheRoomsTTL, DefaultCacheRoomsTTL),
		CacheHolidaysTTL:     getEnvDuration(EnvCacheHolidaysTTL, DefaultCacheHolidaysTTL),
		CacheUserBookingsTTL: getEnvDuration(EnvCacheUserBookingsTTL, DefaultCacheUserBookingsTTL),
		CacheScheduleTTL:     getEnvDuration(EnvCacheScheduleTTL, DefaultCacheScheduleTTL),
		CacheUpcomingTTL:     getEnvDuration(EnvCacheUpcomingTTL, DefaultCacheUpcomingTTL),
		CacheDashboardTTL:    getEnvDuration(EnvCacheDashboardTTL, DefaultCacheDashboardTTL),

		KafkaEnabled:      getEnvBool(EnvKafkaEnabled, DefaultKafkaEnabled),
		KafkaBookingTopic: getEnvStr(EnvKafkaBookingTopic, DefaultKafkaBookingTopic),
		KafkaDLQTopic:     getEnvStr(EnvKafkaDLQTopic, DefaultKafkaDLQTopic),

		Log: logger.New(logger.Config{
			Level:     getEnvStr(EnvLogLevel, DefaultLogLevel),
			Format:    logger.JSON,
			AddSource: true,
			Service:   serviceName,
		}),
		Client: client.NewClient(),
	}

	err := cfg.Validate()
	if err != nil {
		cfg.Log.Fatal(err.Error())
	}
	cfg.LogConfiguration()
	return cfg
}

func (cfg *Config) SetMongo() {
	cfg.Client.SetMongo(cfg.Log, cfg.MongoURI, cfg.MongoConnTimeout)
}

func (cfg *Config) SetRedis() {
	cfg.Client.SetRedis(cfg.Log, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
}

func (cfg *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(cfg.Port); err != nil || port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("Port must be between 1 and 65535, got: %s", cfg.Port))
	}

	if cfg.MongoURI == "" {
		errors = append(errors, "MongoURI cannot be empty")
	} else if len(cfg.MongoURI) < 10 || !regexp.MustCompile(`^mongodb(\+srv)?://`).MatchString(cfg.MongoURI) {
		errors = append(errors, fmt.Sprintf("MongoURI must start with 'mongodb://' or 'mongodb+srv://', got: %s", cfg.MongoURI))
	}

	if cfg.MongoDatabaseName == "" {
		errors = append(errors, "MongoDatabaseName cannot be empty")
	}

	if cfg.MongoConnTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("MongoConnTimeout must be positive, got: %s", cfg.MongoConnTimeout))
	}

	if cfg.RedisAddr == "" {
		errors = append(errors, "RedisAddr cannot be empty")
	}

	if cfg.RequestTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("RequestTimeout must be positive, got: %s", cfg.RequestTimeout))
	}
	if cfg.IdempotencyTTL <= 0 {
		errors = append(errors, fmt.Sprintf("IdempotencyTTL must be positive, got: %s", cfg.IdempotencyTTL))
	}
	if cfg.MaxRequestSize <= 0 {
		errors = append(errors, fmt.Sprintf("MaxRequestSize must be positive, got: %d", cfg.MaxRequestSize))
	}
	if cfg.ReadTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("ReadTimeout must be positive, got: %s", cfg.ReadTimeout))
	}
	if cfg.WriteTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("WriteTimeout must be positive, got: %s", cfg.WriteTimeout))
	}
	if cfg.IdleTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("IdleTimeout must be positive, got: %s", cfg.IdleTimeout))
	}
	if cfg.ShutdownTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("ShutdownTimeout must be positive, got: %s", cfg.ShutdownTimeout))
	}

	if cfg.ThrottleCapacity <= 0 {
		errors = append(errors, fmt.Sprintf("ThrottleCapacity must be positive, got: %d", cfg.ThrottleCapacity))
	}
	if cfg.ThrottleRefillInterval <= 0 {
		errors = append(errors, fmt.Sprintf("ThrottleRefillInterval must be positive, got: %s", cfg.ThrottleRefillInterval))
	}
	if cfg.ThrottleStore != ThrottleStoreMemory && cfg.ThrottleStore != ThrottleStoreRedis {
		errors = append(errors, fmt.Sprintf("ThrottleStore must be %q or %q, got: %s", ThrottleStoreMemory, ThrottleStoreRedis, cfg.ThrottleStore))
	}

	if cfg.LockTTL <= 0 {
		errors = append(errors, fmt.Sprintf("LockTTL must be positive, got: %s", cfg.LockTTL))
	}
	if cfg.LockWaitTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("LockWaitTimeout must be positive, got: %s", cfg.LockWaitTimeout))
	}
	if cfg.LockRetryInterval <= 0 || cfg.LockRetryInterval >= cfg.LockWaitTimeout {
		errors = append(errors, fmt.Sprintf("LockRetryInterval must be positive and shorter than LockWaitTimeout, got: %s", cfg.LockRetryInterval))
	}

	loc, err := time.LoadLocation(cfg.BookingTimezone)
	if err != nil {
		errors = append(errors, fmt.Sprintf("BookingTimezone is not a valid IANA zone, got: %s", cfg.BookingTimezone))
	} else {
		cfg.Location = loc
	}

	if cfg.MinDuration <= 0 {
		errors = append(errors, fmt.Sprintf("MinDuration must be positive, got: %s", cfg.MinDuration))
	}
	if cfg.MaxDuration < cfg.MinDuration {
		errors = append(errors, fmt.Sprintf("MaxDuration (%s) must be >= MinDuration (%s)", cfg.MaxDuration, cfg.MinDuration))
	}
	if cfg.DailyLimit < cfg.MaxDuration {
		errors = append(errors, fmt.Sprintf("DailyLimit (%s) must be >= MaxDuration (%s)", cfg.DailyLimit, cfg.MaxDuration))
	}

	timeRegex := regexp.MustCompile(`^([01][0-9]|2[0-3]):[0-5][0-9]$`)
	if !timeRegex.MatchString(cfg.OpeningTime) {
		errors = append(errors, fmt.Sprintf("OpeningTime must be in HH:MM format (00:00-23:59), got: %s", cfg.OpeningTime))
	}
	if !timeRegex.MatchString(cfg.ClosingTime) {
		errors = append(errors, fmt.Sprintf("ClosingTime must be in HH:MM format (00:00-23:59), got: %s", cfg.ClosingTime))
	}
	if timeRegex.MatchString(cfg.OpeningTime) && timeRegex.MatchString(cfg.ClosingTime) &&
		MinutesFromClock(cfg.OpeningTime) >= MinutesFromClock(cfg.ClosingTime) {
		errors = append(errors, fmt.Sprintf("OpeningTime (%s) must be before ClosingTime (%s)", cfg.OpeningTime, cfg.ClosingTime))
	}

	if len(cfg.WorkingDays) == 0 {
		errors = append(errors, "WorkingDays cannot be empty")
	}
	for _, day := range cfg.WorkingDays {
		if !validWeekday(day) {
			errors = append(errors, fmt.Sprintf("WorkingDays contains an unknown day: %s", day))
		}
	}

	for name, ttl := range map[string]time.Duration{
		"CacheRoomsTTL":        cfg.CacheRoomsTTL,
		"CacheHolidaysTTL":     cfg.CacheHolidaysTTL,
		"CacheUserBookingsTTL": cfg.CacheUserBookingsTTL,
		"CacheScheduleTTL":     cfg.CacheScheduleTTL,
		"CacheUpcomingTTL":     cfg.CacheUpcomingTTL,
		"CacheDashboardTTL":    cfg.CacheDashboardTTL,
	} {
		if ttl <= 0 {
			errors = append(errors, fmt.Sprintf("%s must be positive, got: %s", name, ttl))
		}
	}

	if cfg.KafkaEnabled {
		if cfg.KafkaBookingTopic == "" {
			errors = append(errors, "KafkaBookingTopic cannot be empty when Kafka is enabled")
		}
		if cfg.KafkaDLQTopic == "" {
			errors = append(errors, "KafkaDLQTopic cannot be empty when Kafka is enabled")
		}
	}

	if len(errors) > 0 {
		errMsg := "Configuration validation failed:\n"
		for i, err := range errors {
			errMsg += fmt.Sprintf("  %d. %s\n", i+1, err)
		}
		return fmt.Errorf("%s", errMsg)
	}

	return nil
}

func (cfg *Config) LogConfiguration() {
	cfg.Log.Info("Configuration loaded successfully",
		"mongo_uri", redactMongoURI(cfg.MongoURI),
		"mongo_database", cfg.MongoDatabaseName,
		"mongo_conn_timeout", cfg.MongoConnTimeout,
		"redis_addr", cfg.RedisAddr,
		"redis_db", cfg.RedisDB,
		"port", cfg.Port,
		"request_timeout", cfg.RequestTimeout,
		"idempotency_ttl", cfg.IdempotencyTTL,
		"max_request_size", cfg.MaxRequestSize,
		"read_timeout", cfg.ReadTimeout,
		"write_timeout", cfg.WriteTimeout,
		"idle_timeout", cfg.IdleTimeout,
		"shutdown_timeout", cfg.ShutdownTimeout,
		"throttle_capacity", cfg.ThrottleCapacity,
		"throttle_refill_interval", cfg.ThrottleRefillInterval,
		"throttle_store", cfg.ThrottleStore,
		"lock_ttl", cfg.LockTTL,
		"lock_wait_timeout", cfg.LockWaitTimeout,
		"lock_retry_interval", cfg.LockRetryInterval,
		"booking_timezone", cfg.BookingTimezone,
		"min_duration", cfg.MinDuration,
		"max_duration", cfg.MaxDuration,
		"daily_limit", cfg.DailyLimit,
		"opening_time", cfg.OpeningTime,
		"closing_time", cfg.ClosingTime,
		"working_days", cfg.WorkingDays,
		"kafka_enabled", cfg.KafkaEnabled,
	)
}

// IsWorkingDay reports whether d is one of the configured bookable weekdays.
func (cfg *Config) IsWorkingDay(d time.Weekday) bool {
	for _, day := range cfg.WorkingDays {
		if string(day) == d.String() {
			return true
		}
	}
	return false
}

func validWeekday(day Weekday) bool {
	switch day {
	case Monday, Tuesday, Wednesday, Thursday, Friday, Saturday, Sunday:
		return true
	}
	return false
}

// MinutesFromClock converts an HH:MM string to minutes after midnight.
// Callers must validate the format first; malformed input returns 0.
func MinutesFromClock(s string) int {
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 {
		return 0
	}
	h, _ := strconv.Atoi(parts[0])
	m, _ := strconv.Atoi(parts[1])
	return h*60 + m
}

func redactMongoURI(uri string) string {
	credentialRegex := regexp.MustCompile(`(mongodb(\+srv)?://)[^:]+:[^@]+@`)
	return credentialRegex.ReplaceAllString(uri, "${1}***:***@")
}

func getEnvStr(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvNum(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvWeekdays(key string, fallback []Weekday) []Weekday {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	var days []Weekday
	for _, part := range strings.Split(value, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			days = append(days, Weekday(part))
		}
	}
	if len(days) == 0 {
		return fallback
	}
	return days
}

func (cfg *Config) GracefulShutdown() {
	cfg.Client.GracefulShutdown()
}

func NormalizePaginationLimit(limit int) int {
	if limit <= 0 {
		limit = 10
	} else if limit > DefaultPaginationLimit {
		limit = DefaultPaginationLimit
	}
	return limit
}

func NormalizeOffset(offset int64) int64 {
	return max(0, offset)
}
