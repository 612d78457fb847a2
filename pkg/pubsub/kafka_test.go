package pubsub

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

type fakeConsumer struct {
	events             chan kafka.Event
	polling            atomic.Bool
	closed             atomic.Bool
	closedWhilePolling atomic.Bool
}

func newFakeConsumer() *fakeConsumer {
	return &fakeConsumer{events: make(chan kafka.Event, 8)}
}

func (f *fakeConsumer) Poll(int) kafka.Event {
	f.polling.Store(true)
	defer f.polling.Store(false)

	select {
	case ev := <-f.events:
		return ev
	case <-time.After(20 * time.Millisecond):
		return nil
	}
}

func (f *fakeConsumer) Close() error {
	if f.polling.Load() {
		f.closedWhilePolling.Store(true)
	}
	f.closed.Store(true)
	return nil
}

func startConsume(t *testing.T, c *fakeConsumer, buffer int) (*kafkaSubscription, <-chan *Event) {
	t.Helper()
	k := &KafkaPubSub{logger: zerolog.Nop()}

	ctx, cancel := context.WithCancel(context.Background())
	sub := &kafkaSubscription{consumer: c, cancel: cancel, done: make(chan struct{})}
	eventCh := make(chan *Event, buffer)
	go k.consumeMessages(ctx, c, eventCh, sub.done)
	return sub, eventCh
}

func TestKafkaConsume_RoomIDFromKey(t *testing.T) {
	req := require.New(t)
	c := newFakeConsumer()
	sub, events := startConsume(t, c, 4)
	defer func() { _ = sub.stop() }()

	topic := "chat-events"
	c.events <- &kafka.Message{TopicPartition: kafka.TopicPartition{Topic: &topic}, Key: []byte("42"), Value: []byte("not json")}
	c.events <- &kafka.Message{
		TopicPartition: kafka.TopicPartition{Topic: &topic},
		Key:            []byte("42"),
		Value:          []byte(`{"type":"message","payload":{"content":"hi"}}`),
	}

	select {
	case ev := <-events:
		req.Equal("message", ev.Type)
		req.Equal("42", ev.RoomID)
		req.JSONEq(`{"content":"hi"}`, string(ev.Payload))
	case <-time.After(2 * time.Second):
		t.Fatal("event not delivered")
	}
}

func TestKafkaSubscriptionStop_ClosesConsumerAfterPollReturns(t *testing.T) {
	req := require.New(t)
	c := newFakeConsumer()
	sub, events := startConsume(t, c, 1)

	time.Sleep(50 * time.Millisecond)
	req.NoError(sub.stop())

	req.True(c.closed.Load())
	req.False(c.closedWhilePolling.Load())

	_, ok := <-events
	req.False(ok)
}

func TestKafkaSubscriptionStop_UnblocksFullBuffer(t *testing.T) {
	c := newFakeConsumer()
	sub, _ := startConsume(t, c, 1)

	for i := 0; i < 3; i++ {
		c.events <- &kafka.Message{Key: []byte("1"), Value: []byte(`{"type":"message","room_id":"1"}`)}
	}
	time.Sleep(50 * time.Millisecond)

	stopped := make(chan error, 1)
	go func() { stopped <- sub.stop() }()
	select {
	case err := <-stopped:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("stop blocked on a full event channel")
	}
}

type fakeWatermarks map[int32]int64

func (f fakeWatermarks) QueryWatermarkOffsets(_ string, partition int32, _ int) (int64, int64, error) {
	high, ok := f[partition]
	if !ok {
		return 0, 0, errors.New("unknown partition")
	}
	return 0, high, nil
}

func TestStartAtHighWatermark(t *testing.T) {
	req := require.New(t)
	topic := "chat-events"
	parts := []kafka.TopicPartition{
		{Topic: &topic, Partition: 0, Offset: kafka.OffsetInvalid},
		{Topic: &topic, Partition: 1, Offset: kafka.OffsetInvalid},
	}

	got, err := startAtHighWatermark(fakeWatermarks{0: 17, 1: 3}, parts)
	req.NoError(err)
	req.Equal(kafka.Offset(17), got[0].Offset)
	req.Equal(kafka.Offset(3), got[1].Offset)
	req.Equal(int32(1), got[1].Partition)

	_, err = startAtHighWatermark(fakeWatermarks{0: 17}, parts)
	req.Error(err)

	_, err = startAtHighWatermark(fakeWatermarks{}, []kafka.TopicPartition{{Partition: 0}})
	req.Error(err)
}
