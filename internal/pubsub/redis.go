package pubsub

import (
	"context"
	"fmt"
	"sync"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// RedisBroker is a Broker backed by Redis PUBLISH / PSUBSCRIBE
type RedisBroker struct {
	client  *goredis.Client
	bufSize int
}

// NewRedisBroker connects to Redis and verifies the connection
func NewRedisBroker(cfg Config) (*RedisBroker, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	bufSize := cfg.BufferSize
	if bufSize <= 0 {
		bufSize = 256
	}
	return &RedisBroker{client: client, bufSize: bufSize}, nil
}

// Publish publishes payload on channel
func (r *RedisBroker) Publish(ctx context.Context, channel, payload string) error {
	return r.client.Publish(ctx, channel, payload).Err()
}

// PSubscribe subscribes to the given patterns.
// It returns once Redis has confirmed the subscription.
func (r *RedisBroker) PSubscribe(ctx context.Context, patterns ...string) (<-chan *Message, func(), error) {
	ps := r.client.PSubscribe(ctx, patterns...)
	if _, err := ps.Receive(ctx); err != nil {
		ps.Close()
		return nil, nil, fmt.Errorf("failed to subscribe: %w", err)
	}

	ch := make(chan *Message, r.bufSize)
	go func() {
		defer close(ch)
		for msg := range ps.Channel() {
			select {
			case ch <- &Message{Channel: msg.Channel, Pattern: msg.Pattern, Payload: msg.Payload}:
			default:
				// Same as the local broker: a full buffer drops the message
			}
		}
	}()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			_ = ps.Close()
		})
	}
	return ch, cancel, nil
}

// Close closes the Redis client
func (r *RedisBroker) Close() error {
	return r.client.Close()
}
