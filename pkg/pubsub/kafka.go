package pubsub

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	pkglog "github.com/fitlink/chat-broker/pkg/log"
)

// channelToTopicAndKey maps a room channel onto a Kafka topic and key.
//
//	"chat:room:42:events" → topic: "chat-events", key: "42"
func channelToTopicAndKey(channel string) (topic, key string, err error) {
	prefix, roomID, suffix, err := parseChannel(channel)
	if err != nil {
		return "", "", err
	}
	return prefix + "-" + strings.ReplaceAll(suffix, "_", "-"), roomID, nil
}

// patternToTopic maps a subscribe pattern onto its topic.
//
//	"chat:room:*:events" → "chat-events"
func patternToTopic(pattern string) (string, error) {
	topic, _, err := channelToTopicAndKey(strings.ReplaceAll(pattern, "*", "any"))
	return topic, err
}

// pollConsumer is the part of *kafka.Consumer the consume loop uses.
type pollConsumer interface {
	Poll(timeoutMs int) kafka.Event
	Close() error
}

type watermarkQuerier interface {
	QueryWatermarkOffsets(topic string, partition int32, timeoutMs int) (low, high int64, err error)
}

type kafkaSubscription struct {
	consumer pollConsumer
	cancel   context.CancelFunc
	done     chan struct{}
}

// stop ends the consume loop and closes the consumer once Poll has returned.
func (s *kafkaSubscription) stop() error {
	s.cancel()
	<-s.done
	return s.consumer.Close()
}

// KafkaPubSub implements PubSub on Kafka. The room id is the message key so
// a room's events stay on one partition and keep their order.
type KafkaPubSub struct {
	producer      *kafka.Producer
	subscriptions map[string]*kafkaSubscription
	config        KafkaConfig
	instanceID    string
	bufferSize    int
	logger        zerolog.Logger
	mu            sync.Mutex
	doneCh        chan struct{}
}

// NewKafkaPubSub creates the producer and ensures the room topic exists.
func NewKafkaPubSub(cfg KafkaConfig, bufferSize int) (*KafkaPubSub, error) {
	p, err := kafka.NewProducer(&kafka.ConfigMap{
		"bootstrap.servers": cfg.Brokers,
		"acks":              "1",
		"linger.ms":         5,
		"compression.type":  "snappy",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka producer: %w", err)
	}
	if bufferSize <= 0 {
		bufferSize = 256
	}

	k := &KafkaPubSub{
		producer:      p,
		subscriptions: make(map[string]*kafkaSubscription),
		config:        cfg,
		instanceID:    uuid.NewString(),
		bufferSize:    bufferSize,
		logger:        pkglog.L().With().Str("component", "kafka_pubsub").Logger(),
		doneCh:        make(chan struct{}),
	}

	go k.deliveryReportHandler()

	if err := k.ensureTopics(); err != nil {
		k.logger.Warn().Err(err).Msg("failed to ensure kafka topics (may already exist)")
	}

	return k, nil
}

func (k *KafkaPubSub) ensureTopics() error {
	admin, err := kafka.NewAdminClientFromProducer(k.producer)
	if err != nil {
		return fmt.Errorf("failed to create admin client: %w", err)
	}
	defer admin.Close()

	partitions := k.config.Partitions
	if partitions <= 0 {
		partitions = 4
	}

	topic, err := patternToTopic(PatternRoomEvents)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	results, err := admin.CreateTopics(ctx, []kafka.TopicSpecification{{
		Topic:             topic,
		NumPartitions:     partitions,
		ReplicationFactor: 1,
	}})
	if err != nil {
		return fmt.Errorf("failed to create topics: %w", err)
	}

	for _, r := range results {
		if r.Error.Code() != kafka.ErrNoError && r.Error.Code() != kafka.ErrTopicAlreadyExists {
			k.logger.Warn().Str("topic", r.Topic).Str("error", r.Error.String()).Msg("failed to create topic")
		}
	}
	return nil
}

func (k *KafkaPubSub) deliveryReportHandler() {
	for e := range k.producer.Events() {
		if ev, ok := e.(*kafka.Message); ok && ev.TopicPartition.Error != nil {
			k.logger.Error().Err(ev.TopicPartition.Error).Msg("delivery failed")
		}
	}
	close(k.doneCh)
}

// Publish produces the event to the channel's topic keyed by room id.
func (k *KafkaPubSub) Publish(_ context.Context, channel string, event *Event) error {
	topic, key, err := channelToTopicAndKey(channel)
	if err != nil {
		return fmt.Errorf("failed to parse channel: %w", err)
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	err = k.producer.Produce(&kafka.Message{
		TopicPartition: kafka.TopicPartition{Topic: &topic, Partition: kafka.PartitionAny},
		Key:            []byte(key),
		Value:          data,
	}, nil)
	if err != nil {
		return fmt.Errorf("failed to produce message: %w", err)
	}
	return nil
}

// SubscribePattern consumes every room on the pattern's topic. It returns
// once partitions are assigned, so events published afterwards are delivered.
func (k *KafkaPubSub) SubscribePattern(ctx context.Context, pattern string) (<-chan *Event, error) {
	topic, err := patternToTopic(pattern)
	if err != nil {
		return nil, fmt.Errorf("failed to parse pattern: %w", err)
	}

	k.mu.Lock()
	if existing, ok := k.subscriptions[pattern]; ok {
		delete(k.subscriptions, pattern)
		if err := existing.stop(); err != nil {
			k.logger.Warn().Err(err).Str("pattern", pattern).Msg("failed to close replaced consumer")
		}
	}
	sub, eventCh, assigned, err := k.subscribeToTopic(ctx, pattern, topic)
	if err != nil {
		k.mu.Unlock()
		return nil, err
	}
	k.subscriptions[pattern] = sub
	k.mu.Unlock()

	timeout := k.config.AssignTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-assigned:
		return eventCh, nil
	case <-sub.done:
		err = fmt.Errorf("consumer for %s stopped before partition assignment", topic)
	case <-ctx.Done():
		err = ctx.Err()
	case <-timer.C:
		err = fmt.Errorf("timed out waiting for partitions of %s", topic)
	}

	k.mu.Lock()
	if k.subscriptions[pattern] == sub {
		delete(k.subscriptions, pattern)
	}
	k.mu.Unlock()
	_ = sub.stop()
	return nil, err
}

// subscribeToTopic gives every instance its own consumer group: each node
// must see every room event, not a share of them. The group is new on every
// start, so assigned partitions are pinned to their high watermark instead
// of relying on auto.offset.reset.
func (k *KafkaPubSub) subscribeToTopic(ctx context.Context, subKey, topic string) (*kafkaSubscription, <-chan *Event, <-chan struct{}, error) {
	groupID := k.config.GroupID
	if groupID == "" {
		groupID = "chat-broker"
	}
	groupID = fmt.Sprintf("%s-%s-%s", groupID, k.instanceID, sanitizeGroupID(subKey))

	c, err := kafka.NewConsumer(&kafka.ConfigMap{
		"bootstrap.servers":  k.config.Brokers,
		"group.id":           groupID,
		"auto.offset.reset":  "latest",
		"enable.auto.commit": false,
	})
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to create kafka consumer: %w", err)
	}

	assigned := make(chan struct{})
	var once sync.Once
	rebalance := func(c *kafka.Consumer, ev kafka.Event) error {
		switch e := ev.(type) {
		case kafka.AssignedPartitions:
			parts, err := startAtHighWatermark(c, e.Partitions)
			if err != nil {
				k.logger.Error().Err(err).Str("topic", topic).Msg("failed to resolve partition offsets")
				return err
			}
			if err := c.Assign(parts); err != nil {
				return err
			}
			once.Do(func() { close(assigned) })
		case kafka.RevokedPartitions:
			return c.Unassign()
		}
		return nil
	}

	if err := c.SubscribeTopics([]string{topic}, rebalance); err != nil {
		_ = c.Close()
		return nil, nil, nil, fmt.Errorf("failed to subscribe to topic %s: %w", topic, err)
	}

	subCtx, cancel := context.WithCancel(ctx)
	sub := &kafkaSubscription{consumer: c, cancel: cancel, done: make(chan struct{})}
	eventCh := make(chan *Event, k.bufferSize)

	go k.consumeMessages(subCtx, c, eventCh, sub.done)
	return sub, eventCh, assigned, nil
}

// startAtHighWatermark sets each partition's offset to its current end.
func startAtHighWatermark(q watermarkQuerier, parts []kafka.TopicPartition) ([]kafka.TopicPartition, error) {
	out := make([]kafka.TopicPartition, len(parts))
	for i, p := range parts {
		if p.Topic == nil {
			return nil, fmt.Errorf("partition %d has no topic", p.Partition)
		}
		_, high, err := q.QueryWatermarkOffsets(*p.Topic, p.Partition, 5000)
		if err != nil {
			return nil, fmt.Errorf("query watermarks for %s[%d]: %w", *p.Topic, p.Partition, err)
		}
		p.Offset = kafka.Offset(high)
		out[i] = p
	}
	return out, nil
}

// consumeMessages polls until ctx ends. Rebalance callbacks run inside Poll.
func (k *KafkaPubSub) consumeMessages(ctx context.Context, c pollConsumer, eventCh chan<- *Event, done chan<- struct{}) {
	defer close(done)
	defer close(eventCh)

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		switch e := c.Poll(500).(type) {
		case nil:
		case *kafka.Message:
			var event Event
			if err := json.Unmarshal(e.Value, &event); err != nil {
				k.logger.Warn().Err(err).Msg("dropping undecodable event")
				continue
			}
			if event.RoomID == "" {
				event.RoomID = string(e.Key)
			}

			select {
			case eventCh <- &event:
			case <-ctx.Done():
				return
			}
		case kafka.Error:
			k.logger.Error().Err(e).Int("code", int(e.Code())).Bool("fatal", e.IsFatal()).Msg("consumer error")
			if e.IsFatal() {
				return
			}
		}
	}
}

// Close stops every consumer, then flushes and closes the producer.
func (k *KafkaPubSub) Close() error {
	k.mu.Lock()
	defer k.mu.Unlock()

	for key, sub := range k.subscriptions {
		if err := sub.stop(); err != nil {
			k.logger.Warn().Err(err).Str("pattern", key).Msg("failed to close consumer")
		}
		delete(k.subscriptions, key)
	}

	k.producer.Flush(5000)
	k.producer.Close()
	<-k.doneCh
	return nil
}

var groupIDRegexp = regexp.MustCompile(`[^a-zA-Z0-9._-]`)

func sanitizeGroupID(s string) string {
	return groupIDRegexp.ReplaceAllString(s, "-")
}
