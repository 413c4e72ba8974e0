package notifications

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testEventuallyTimeout = time.Second
	testPollInterval      = 10 * time.Millisecond
)

func newTestRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return rdb
}

func receive(t *testing.T, c *Client) Event {
	t.Helper()
	select {
	case msg := <-c.Send:
		var ev Event
		require.NoError(t, json.Unmarshal(msg, &ev))
		return ev
	case <-time.After(testEventuallyTimeout):
		t.Fatal("timed out waiting for feed message")
		return Event{}
	}
}

func TestNotifier_NilRedisIsNoop(t *testing.T) {
	t.Parallel()
	n := NewNotifier(nil)
	assert.False(t, n.Enabled())
	assert.NoError(t, n.PublishFeed(context.Background(), "x"))
	assert.NoError(t, n.StartFeedSubscriber(context.Background(), func(string) {}))
}

func TestHub_RegisterLimits(t *testing.T) {
	t.Parallel()
	hub := NewHub()

	for i := 0; i < maxConnsPerUser; i++ {
		_, err := hub.Register(7, nil)
		require.NoError(t, err)
	}
	_, err := hub.Register(7, nil)
	assert.ErrorIs(t, err, ErrUserLimit)

	anon, err := hub.Register(0, nil)
	require.NoError(t, err)
	assert.Equal(t, maxConnsPerUser+1, hub.Count())

	hub.UnregisterClient(anon)
	hub.UnregisterClient(anon)
	assert.Equal(t, maxConnsPerUser, hub.Count())

	require.NoError(t, hub.Shutdown(context.Background()))
	assert.Zero(t, hub.Count())
	_, err = hub.Register(1, nil)
	assert.ErrorIs(t, err, ErrHubShutdown)
}

func TestClient_TrySendDropsWhenFull(t *testing.T) {
	t.Parallel()
	hub := NewHub()
	c, err := hub.Register(1, nil)
	require.NoError(t, err)

	for i := 0; i < sendBuffer; i++ {
		require.True(t, c.TrySend([]byte("m")))
	}
	assert.False(t, c.TrySend([]byte("overflow")))

	hub.UnregisterClient(c)
	assert.False(t, c.TrySend([]byte("after close")))
}

func TestFeed_LocalDeliveryWithoutRedis(t *testing.T) {
	t.Parallel()
	hub := NewHub()
	c, err := hub.Register(0, nil)
	require.NoError(t, err)

	feed := NewFeed(NewNotifier(nil), hub)
	feed.Publish(context.Background(), "design.created", map[string]string{"id": "abc"})

	ev := receive(t, c)
	assert.Equal(t, "design.created", ev.Type)
	assert.Equal(t, map[string]interface{}{"id": "abc"}, ev.Payload)
	assert.False(t, ev.At.IsZero())
}

func TestFeed_FanOutThroughRedis(t *testing.T) {
	rdb := newTestRedis(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Two instances share one Redis; each has its own hub.
	hubA, hubB := NewHub(), NewHub()
	require.NoError(t, hubA.StartWiring(ctx, NewNotifier(rdb)))
	require.NoError(t, hubB.StartWiring(ctx, NewNotifier(rdb)))

	clientA, err := hubA.Register(1, nil)
	require.NoError(t, err)
	clientB, err := hubB.Register(2, nil)
	require.NoError(t, err)

	NewFeed(NewNotifier(rdb), hubA).Publish(ctx, "post.created", map[string]int{"id": 3})

	assert.Equal(t, "post.created", receive(t, clientA).Type)
	assert.Equal(t, "post.created", receive(t, clientB).Type)

	// Delivered once per instance, not once via Redis and again locally.
	assert.Never(t, func() bool { return len(clientA.Send) > 0 }, 10*testPollInterval, testPollInterval)
}

func TestNotifier_SubscriberStopsOnCancel(t *testing.T) {
	rdb := newTestRedis(t)
	n := NewNotifier(rdb)
	ctx, cancel := context.WithCancel(context.Background())

	payloads := make(chan string, 4)
	require.NoError(t, n.StartFeedSubscriber(ctx, func(p string) { payloads <- p }))

	require.NoError(t, n.PublishFeed(context.Background(), "before"))
	assert.Eventually(t, func() bool { return len(payloads) == 1 }, testEventuallyTimeout, testPollInterval)

	cancel()
	time.Sleep(2 * testPollInterval)
	<-payloads

	require.NoError(t, n.PublishFeed(context.Background(), "after"))
	assert.Never(t, func() bool { return len(payloads) > 0 }, 10*testPollInterval, testPollInterval)
}
