package pubsub

import (
	"context"
	"regexp"
	"strings"
	"sync"
)

type localSubscriber struct {
	patterns []*regexp.Regexp
	raw      []string
	ch       chan *Message
	once     sync.Once
}

// LocalBroker is an in-process fan-out broker
type LocalBroker struct {
	mu          sync.RWMutex
	subscribers map[*localSubscriber]struct{}
	bufSize     int
}

// NewLocalBroker creates a LocalBroker with the given per-subscriber buffer size
func NewLocalBroker(bufSize int) *LocalBroker {
	if bufSize <= 0 {
		bufSize = 256
	}
	return &LocalBroker{
		subscribers: make(map[*localSubscriber]struct{}),
		bufSize:     bufSize,
	}
}

// compileGlob turns a glob with '*' wildcards into an anchored regexp
func compileGlob(pattern string) *regexp.Regexp {
	parts := strings.Split(pattern, "*")
	for i, p := range parts {
		parts[i] = regexp.QuoteMeta(p)
	}
	return regexp.MustCompile("^" + strings.Join(parts, ".*") + "$")
}

// Publish sends a message to every subscriber whose pattern matches channel.
// Slow subscribers with a full buffer miss the message.
func (b *LocalBroker) Publish(_ context.Context, channel, payload string) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for s := range b.subscribers {
		for i, re := range s.patterns {
			if !re.MatchString(channel) {
				continue
			}
			select {
			case s.ch <- &Message{Channel: channel, Pattern: s.raw[i], Payload: payload}:
			default:
			}
			break
		}
	}
	return nil
}

// PSubscribe subscribes to the given patterns
func (b *LocalBroker) PSubscribe(_ context.Context, patterns ...string) (<-chan *Message, func(), error) {
	s := &localSubscriber{
		raw: patterns,
		ch:  make(chan *Message, b.bufSize),
	}
	for _, p := range patterns {
		s.patterns = append(s.patterns, compileGlob(p))
	}

	b.mu.Lock()
	b.subscribers[s] = struct{}{}
	b.mu.Unlock()

	cancel := func() {
		s.once.Do(func() {
			b.mu.Lock()
			delete(b.subscribers, s)
			b.mu.Unlock()
			close(s.ch)
		})
	}
	return s.ch, cancel, nil
}

// Close drops all subscribers
func (b *LocalBroker) Close() error {
	b.mu.Lock()
	subs := make([]*localSubscriber, 0, len(b.subscribers))
	for s := range b.subscribers {
		subs = append(subs, s)
	}
	b.mu.Unlock()

	for _, s := range subs {
		s.once.Do(func() {
			b.mu.Lock()
			delete(b.subscribers, s)
			b.mu.Unlock()
			close(s.ch)
		})
	}
	return nil
}
