package pubsub

import (
	"fmt"
	"time"
)

const (
	DriverLocal = "local"
	DriverRedis = "redis"
	DriverKafka = "kafka"
)

// KafkaConfig holds Kafka-specific configuration.
type KafkaConfig struct {
	Brokers    string `mapstructure:"brokers"`
	GroupID    string `mapstructure:"group_id"`
	Partitions int    `mapstructure:"partitions"`
	// AssignTimeout bounds how long SubscribePattern waits for partitions.
	AssignTimeout time.Duration `mapstructure:"assign_timeout"`
}

// RedisConfig holds Redis-specific configuration.
type RedisConfig struct {
	Address      string        `mapstructure:"address"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db"`
	PoolSize     int           `mapstructure:"pool_size"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// Config selects and configures the bus.
type Config struct {
	Driver     string      `mapstructure:"driver" validate:"oneof=local redis kafka"`
	BufferSize int         `mapstructure:"buffer_size"`
	Redis      RedisConfig `mapstructure:"redis"`
	Kafka      KafkaConfig `mapstructure:"kafka"`
}

// DefaultConfig returns the single-node configuration.
func DefaultConfig() Config {
	return Config{
		Driver:     DriverLocal,
		BufferSize: 256,
		Redis: RedisConfig{
			Address:      "localhost:6379",
			PoolSize:     10,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		},
		Kafka: KafkaConfig{
			Brokers:    "localhost:9092",
			GroupID:       "chat-broker",
			Partitions:    4,
			AssignTimeout: 30 * time.Second,
		},
	}
}

// NewPubSub creates the bus for a networked driver. The local driver has no
// bus and is rejected here; callers use the in-process registry instead.
func NewPubSub(cfg Config) (PubSub, error) {
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 256
	}
	switch cfg.Driver {
	case DriverKafka:
		return NewKafkaPubSub(cfg.Kafka, cfg.BufferSize)
	case DriverRedis:
		return NewRedisPubSub(cfg.Redis, cfg.BufferSize)
	default:
		return nil, fmt.Errorf("pubsub driver %q has no bus", cfg.Driver)
	}
}
