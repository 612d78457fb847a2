package pubsub

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"

	pkglog "github.com/fitlink/chat-broker/pkg/log"
)

// RedisPubSub implements PubSub on Redis PUBLISH/SUBSCRIBE.
type RedisPubSub struct {
	client        *redis.Client
	subscriptions map[string]*redis.PubSub
	bufferSize    int
	mu            sync.Mutex
}

// NewRedisPubSub dials Redis and verifies the connection.
func NewRedisPubSub(cfg RedisConfig, bufferSize int) (*RedisPubSub, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Address,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	if err := client.Ping(context.Background()).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return NewRedisPubSubFromClient(client, bufferSize), nil
}

// NewRedisPubSubFromClient wraps an existing client. The client is closed
// by Close.
func NewRedisPubSubFromClient(client *redis.Client, bufferSize int) *RedisPubSub {
	if bufferSize <= 0 {
		bufferSize = 256
	}
	return &RedisPubSub{
		client:        client,
		subscriptions: make(map[string]*redis.PubSub),
		bufferSize:    bufferSize,
	}
}

// Publish publishes an event to the channel.
func (r *RedisPubSub) Publish(ctx context.Context, channel string, event *Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	return r.client.Publish(ctx, channel, data).Err()
}

// SubscribePattern subscribes to every channel matching pattern.
func (r *RedisPubSub) SubscribePattern(ctx context.Context, pattern string) (<-chan *Event, error) {
	return r.subscribe(ctx, pattern, r.client.PSubscribe(ctx, pattern))
}

func (r *RedisPubSub) subscribe(ctx context.Context, key string, ps *redis.PubSub) (<-chan *Event, error) {
	// Wait for the subscription confirmation so publishes issued after
	// SubscribePattern returns are not missed.
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, fmt.Errorf("failed to subscribe to %s: %w", key, err)
	}

	r.mu.Lock()
	if existing, ok := r.subscriptions[key]; ok {
		_ = existing.Close()
	}
	r.subscriptions[key] = ps
	r.mu.Unlock()

	eventCh := make(chan *Event, r.bufferSize)
	go r.processMessages(ctx, ps, eventCh)
	return eventCh, nil
}

// Close closes all subscriptions and the Redis client.
func (r *RedisPubSub) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for key, ps := range r.subscriptions {
		_ = ps.Close()
		delete(r.subscriptions, key)
	}
	return r.client.Close()
}

// processMessages decodes Redis messages in arrival order. A full event
// channel blocks rather than drops so per-room ordering survives.
func (r *RedisPubSub) processMessages(ctx context.Context, ps *redis.PubSub, eventCh chan<- *Event) {
	defer close(eventCh)
	logger := pkglog.L().With().Str("component", "redis_pubsub").Logger()

	ch := ps.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}

			var event Event
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				logger.Warn().Err(err).Str("channel", msg.Channel).Msg("dropping undecodable event")
				continue
			}
			if event.RoomID == "" {
				if roomID, err := RoomIDFromChannel(msg.Channel); err == nil {
					event.RoomID = roomID
				}
			}

			select {
			case eventCh <- &event:
			case <-ctx.Done():
				return
			}
		}
	}
}
