package server

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-redis/redis/v8"

	vibio "github.com/vibewatch/vibewatch/pkg/io"
)

const (
	latestKey = "vibewatch:latest"
	resultTTL = 5 * time.Minute
)

// RedisSink caches the latest scoring result in Redis so sibling services
// can poll it without holding a stream subscription.
type RedisSink struct {
	client *redis.Client
	ctx    context.Context
}

// NewRedisSink connects to Redis and verifies the connection.
func NewRedisSink(addr string) (*RedisSink, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:       addr,
		MaxRetries: 3,
	})

	ctx := context.Background()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, err
	}
	return &RedisSink{client: rdb, ctx: ctx}, nil
}

// Write stores the result under the latest-result key.
func (s *RedisSink) Write(result vibio.Result) error {
	data, err := json.Marshal(result)
	if err != nil {
		return err
	}
	return s.client.Set(s.ctx, latestKey, data, resultTTL).Err()
}

// Close releases the connection pool.
func (s *RedisSink) Close() error {
	return s.client.Close()
}
