package cache

//go:generate mockgen -source=interface.go -destination=mocks/mock_cache.go -package=mocks

import (
	"context"
	"errors"
	"time"

	"github.com/fitlink/chat-broker/internal/domain"
)

var ErrCacheMiss = errors.New("cache miss")

// RoomCache caches room lookups made when clients connect.
type RoomCache interface {
	Get(ctx context.Context, key string) (*domain.Room, error)
	Set(ctx context.Context, key string, room *domain.Room, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	BuildKeyByID(roomID domain.ID) string
	Close() error
}

// NopRoomCache always misses. It is used when caching is disabled.
type NopRoomCache struct{}

func (NopRoomCache) Get(context.Context, string) (*domain.Room, error) { return nil, ErrCacheMiss }
func (NopRoomCache) Set(context.Context, string, *domain.Room, time.Duration) error {
	return nil
}
func (NopRoomCache) Delete(context.Context, ...string) error { return nil }
func (NopRoomCache) BuildKeyByID(roomID domain.ID) string    { return roomID.String() }
func (NopRoomCache) Close() error                            { return nil }
