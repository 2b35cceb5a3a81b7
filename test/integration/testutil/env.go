package testutil

import (
	"context"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
)

const (
	DefaultMongoURI     = "mongodb://localhost:27017"
	DefaultDatabaseName = "roombooking"
	DefaultRedisAddr    = "localhost:6379"

	healthCheckTimeout = 30 * time.Second
)

// TestEnv describes the externally running stack the integration suite
// talks to. The suite skips itself unless TEST_SERVER_URL is set, so a
// plain `go test ./...` run never needs live infrastructure.
type TestEnv struct {
	MongoURI     string
	DatabaseName string
	RedisAddr    string
	ServerURL    string
}

func NewTestEnv(t *testing.T) *TestEnv {
	t.Helper()

	serverURL := os.Getenv("TEST_SERVER_URL")
	if serverURL == "" {
		t.Skip("set TEST_SERVER_URL to run integration tests against a live server")
	}

	return &TestEnv{
		MongoURI:     getEnv("TEST_MONGO_URI", DefaultMongoURI),
		DatabaseName: getEnv("TEST_DB_NAME", DefaultDatabaseName),
		RedisAddr:    getEnv("TEST_REDIS_ADDR", DefaultRedisAddr),
		ServerURL:    serverURL,
	}
}

// Setup clears the state shared with the server under test and waits for
// it to report healthy. The Mongo database and the Redis cache must be the
// same instances the server is wired to.
func (e *TestEnv) Setup(t *testing.T) *MongoHelper {
	t.Helper()

	mongo := NewMongoHelper(t, e.MongoURI, e.DatabaseName)
	mongo.CleanDatabase(t)
	e.flushCache(t)
	e.waitForHealthy(t)

	return mongo
}

func (e *TestEnv) Cleanup(t *testing.T, mongo *MongoHelper) {
	t.Helper()

	if mongo != nil {
		mongo.CleanDatabase(t)
		mongo.Close(t)
	}
}

// flushCache drops cached reads left behind by earlier runs. Without it a
// rooms or holidays listing can be served from a previous database state.
func (e *TestEnv) flushCache(t *testing.T) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	rdb := redis.NewClient(&redis.Options{Addr: e.RedisAddr})
	defer rdb.Close()

	if err := rdb.FlushDB(ctx).Err(); err != nil {
		t.Fatalf("failed to flush redis at %s: %v", e.RedisAddr, err)
	}
}

func (e *TestEnv) waitForHealthy(t *testing.T) {
	t.Helper()

	deadline := time.Now().Add(healthCheckTimeout)
	httpClient := &http.Client{Timeout: 2 * time.Second}

	for time.Now().Before(deadline) {
		resp, err := httpClient.Get(e.ServerURL + "/health")
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return
			}
		}
		time.Sleep(500 * time.Millisecond)
	}

	t.Fatalf("server at %s did not become healthy within %v", e.ServerURL, healthCheckTimeout)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
