// Package pubsub provides channel publish and pattern subscribe over Redis or in-process.
package pubsub

import (
	"context"
)

// Message is a received pub/sub message
type Message struct {
	Channel string
	Pattern string
	Payload string
}

// Broker publishes messages to channels and delivers them to pattern subscribers.
// Patterns use glob syntax where '*' matches any run of characters.
type Broker interface {
	Publish(ctx context.Context, channel, payload string) error
	// PSubscribe returns a message channel and a cancel func that releases the subscription
	// and closes the channel.
	PSubscribe(ctx context.Context, patterns ...string) (<-chan *Message, func(), error)
	Close() error
}

// Config holds broker settings
type Config struct {
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	BufferSize    int
}

// New returns a Redis broker if RedisAddr is set, otherwise an in-process broker
func New(cfg Config) (Broker, error) {
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 256
	}
	if cfg.RedisAddr != "" {
		return NewRedisBroker(cfg)
	}
	return NewLocalBroker(cfg.BufferSize), nil
}
