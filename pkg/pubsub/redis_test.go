package pubsub

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newTestRedisPubSub(t *testing.T, bufferSize int) (*RedisPubSub, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	ps := NewRedisPubSubFromClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}), bufferSize)
	t.Cleanup(func() { _ = ps.Close() })
	return ps, mr
}

func nextEvent(t *testing.T, events <-chan *Event) *Event {
	t.Helper()
	select {
	case ev, ok := <-events:
		require.True(t, ok, "event channel closed")
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("no event received")
		return nil
	}
}

func TestRedisPubSub_PatternDeliversInOrder(t *testing.T) {
	req := require.New(t)
	ps, _ := newTestRedisPubSub(t, 1)
	ctx := context.Background()

	events, err := ps.SubscribePattern(ctx, PatternRoomEvents)
	req.NoError(err)

	// More events than the buffer holds: the reader blocks instead of dropping.
	const n = 20
	for i := 0; i < n; i++ {
		payload := []byte(fmt.Sprintf(`{"seq":%d}`, i))
		req.NoError(ps.Publish(ctx, RoomEventsChannel("7"), NewEvent("message", "7", "node-a", payload)))
	}

	for i := 0; i < n; i++ {
		ev := nextEvent(t, events)
		req.Equal("7", ev.RoomID)
		req.Equal("node-a", ev.Origin)
		req.JSONEq(fmt.Sprintf(`{"seq":%d}`, i), string(ev.Payload))
	}
}

func TestRedisPubSub_RoomIDFromChannel(t *testing.T) {
	req := require.New(t)
	ps, mr := newTestRedisPubSub(t, 4)

	events, err := ps.SubscribePattern(context.Background(), PatternRoomEvents)
	req.NoError(err)

	mr.Publish(RoomEventsChannel("3"), "not json")
	mr.Publish(RoomEventsChannel("3"), `{"type":"leave","payload":{}}`)

	ev := nextEvent(t, events)
	req.Equal("leave", ev.Type)
	req.Equal("3", ev.RoomID)
}

func TestRedisPubSub_ResubscribeReplacesPrevious(t *testing.T) {
	req := require.New(t)
	ps, _ := newTestRedisPubSub(t, 4)
	ctx := context.Background()

	first, err := ps.SubscribePattern(ctx, PatternRoomEvents)
	req.NoError(err)
	second, err := ps.SubscribePattern(ctx, PatternRoomEvents)
	req.NoError(err)

	select {
	case _, ok := <-first:
		req.False(ok)
	case <-time.After(2 * time.Second):
		t.Fatal("replaced subscription was not closed")
	}

	req.NoError(ps.Publish(ctx, RoomEventsChannel("9"), NewEvent("pong", "9", "", []byte(`{}`))))
	req.Equal("9", nextEvent(t, second).RoomID)
}

func TestRedisPubSub_ContextCancelClosesChannel(t *testing.T) {
	ps, _ := newTestRedisPubSub(t, 4)
	ctx, cancel := context.WithCancel(context.Background())

	events, err := ps.SubscribePattern(ctx, PatternRoomEvents)
	require.NoError(t, err)
	cancel()

	select {
	case _, ok := <-events:
		require.False(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("channel not closed after cancel")
	}
}

func TestNewRedisPubSub_Unreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, err := NewRedisPubSub(RedisConfig{Address: addr}, 4)
	require.Error(t, err)
}
