package client

import (
	"time"

	"github.com/sirsanndy/room-booking-sub001/pkg/logger"
)

// Client bundles the outbound connections a service needs. Fields are nil
// until the matching Set method runs, so binaries only pay for what they use.
type Client struct {
	Mongo *MongoClient
	Redis *RedisClient
}

func NewClient() *Client {
	return &Client{}
}

func (c *Client) SetMongo(log *logger.Logger, mongoURI string, mongoConnTimeout time.Duration) {
	c.Mongo = NewMongoClient(log, mongoURI, mongoConnTimeout)
}

func (c *Client) SetRedis(log *logger.Logger, addr, password string, db int) {
	c.Redis = NewRedisClient(log, addr, password, db)
}

func (c *Client) GracefulShutdown() {
	if c.Mongo != nil {
		c.Mongo.Close()
	}
	if c.Redis != nil {
		c.Redis.Close()
	}
}
