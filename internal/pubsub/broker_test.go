package pubsub

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func receive(t *testing.T, ch <-chan *Message) *Message {
	t.Helper()
	select {
	case msg, ok := <-ch:
		require.True(t, ok, "channel closed")
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for message")
		return nil
	}
}

func assertNoMessage(t *testing.T, ch <-chan *Message) {
	t.Helper()
	select {
	case msg := <-ch:
		t.Fatalf("unexpected message on %s", msg.Channel)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestLocalBroker_PatternDelivery(t *testing.T) {
	b := NewLocalBroker(8)
	ctx := context.Background()

	ch, cancel, err := b.PSubscribe(ctx, "friends:u1:*", "friends:*:u1")
	require.NoError(t, err)
	defer cancel()

	require.NoError(t, b.Publish(ctx, "friends:a:u1", "first"))
	msg := receive(t, ch)
	assert.Equal(t, "friends:a:u1", msg.Channel)
	assert.Equal(t, "friends:*:u1", msg.Pattern)
	assert.Equal(t, "first", msg.Payload)

	require.NoError(t, b.Publish(ctx, "friends:u1:z", "second"))
	assert.Equal(t, "second", receive(t, ch).Payload)

	require.NoError(t, b.Publish(ctx, "friends:a:b", "other"))
	assertNoMessage(t, ch)
}

func TestLocalBroker_MatchesOncePerSubscriber(t *testing.T) {
	b := NewLocalBroker(8)
	ctx := context.Background()

	ch, cancel, err := b.PSubscribe(ctx, "x:*", "*:y")
	require.NoError(t, err)
	defer cancel()

	require.NoError(t, b.Publish(ctx, "x:y", "both"))
	receive(t, ch)
	assertNoMessage(t, ch)
}

func TestLocalBroker_CancelClosesChannel(t *testing.T) {
	b := NewLocalBroker(8)
	ctx := context.Background()

	ch, cancel, err := b.PSubscribe(ctx, "friends:*")
	require.NoError(t, err)
	cancel()
	cancel()

	_, ok := <-ch
	assert.False(t, ok)
	require.NoError(t, b.Publish(ctx, "friends:a:b", "after cancel"))
}

func TestLocalBroker_GlobQuotesMeta(t *testing.T) {
	re := compileGlob("friends:a.b:*")
	assert.True(t, re.MatchString("friends:a.b:c"))
	assert.False(t, re.MatchString("friends:aXb:c"))
}

func TestNew_DefaultsToLocal(t *testing.T) {
	b, err := New(Config{})
	require.NoError(t, err)
	defer b.Close()
	assert.IsType(t, &LocalBroker{}, b)
}

func TestRedisBroker(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	b, err := NewRedisBroker(Config{RedisAddr: addr})
	require.NoError(t, err)
	defer b.Close()
	ctx := context.Background()

	ch, cancel, err := b.PSubscribe(ctx, "linkup-test:u1:*")
	require.NoError(t, err)
	defer cancel()

	require.NoError(t, b.Publish(ctx, "linkup-test:u1:u2", "hello"))
	msg := receive(t, ch)
	assert.Equal(t, "linkup-test:u1:u2", msg.Channel)
	assert.Equal(t, "hello", msg.Payload)
}
