package notify

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStreamNotifier appends events to a capped Redis stream.
type RedisStreamNotifier struct {
	client *redis.Client
	stream string
	maxLen int64
}

// NewRedisStreamNotifier builds a notifier writing to stream.
func NewRedisStreamNotifier(addr, password, stream string, maxLen int64) (*RedisStreamNotifier, error) {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return nil, errors.New("redis addr required")
	}
	stream = strings.TrimSpace(stream)
	if stream == "" {
		return nil, errors.New("event stream required")
	}
	if maxLen <= 0 {
		maxLen = 10000
	}
	return &RedisStreamNotifier{
		client: redis.NewClient(&redis.Options{Addr: addr, Password: password}),
		stream: stream,
		maxLen: maxLen,
	}, nil
}

// Publish appends the event to the stream.
func (n *RedisStreamNotifier) Publish(ctx context.Context, event Event) error {
	body, err := encode(event)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	return n.client.XAdd(ctx, &redis.XAddArgs{
		Stream: n.stream,
		MaxLen: n.maxLen,
		Approx: true,
		Values: map[string]any{
			"type":    event.Type,
			"post_id": event.PostID,
			"payload": string(body),
		},
	}).Err()
}

// Close releases the Redis client.
func (n *RedisStreamNotifier) Close() error {
	return n.client.Close()
}
