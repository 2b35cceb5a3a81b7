package client

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/sirsanndy/room-booking-sub001/pkg/logger"
)

type RedisClient struct {
	Client *redis.Client
	log    *logger.Logger
}

func NewRedisClient(log *logger.Logger, addr, password string, db int) *RedisClient {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		log.Fatal("Failed to ping Redis",
			"error", err,
			"addr", addr,
		)
	}

	log.Info("Successfully connected to Redis")
	return &RedisClient{Client: client, log: log}
}

func (r *RedisClient) Close() {
	if err := r.Client.Close(); err != nil {
		r.log.Error("Failed to close Redis connection", "error", err)
		return
	}
	r.log.Info("Redis connection closed")
}
