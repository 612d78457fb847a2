package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"

	pkgconfig "github.com/fitlink/chat-broker/pkg/config"
	"github.com/fitlink/chat-broker/pkg/database"
	pkglog "github.com/fitlink/chat-broker/pkg/log"
	"github.com/fitlink/chat-broker/pkg/pubsub"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	WebSocket WebSocketConfig `mapstructure:"websocket"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Database  database.Config `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Broadcast pubsub.Config   `mapstructure:"broadcast"`
	Log       pkglog.Config   `mapstructure:"log"`
}

type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port" validate:"min=1,max=65535"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	// AllowedOrigins restricts the WebSocket Origin header. Empty allows all.
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

type WebSocketConfig struct {
	PingInterval    time.Duration `mapstructure:"ping_interval" validate:"gt=0"`
	PongWait        time.Duration `mapstructure:"pong_wait" validate:"gt=0"`
	WriteWait       time.Duration `mapstructure:"write_wait" validate:"gt=0"`
	MaxMessageSize  int64         `mapstructure:"max_message_size" validate:"gt=0"`
	SendBuffer      int           `mapstructure:"send_buffer" validate:"gt=0"`
	ReadBufferSize  int           `mapstructure:"read_buffer_size"`
	WriteBufferSize int           `mapstructure:"write_buffer_size"`
}

type AuthConfig struct {
	Secret         string        `mapstructure:"secret" validate:"required"`
	Issuer         string        `mapstructure:"issuer"`
	AccessTokenTTL time.Duration `mapstructure:"access_token_ttl" validate:"gt=0"`
	Leeway         time.Duration `mapstructure:"leeway"`
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// CacheConfig controls the Redis cache-aside for room lookups on connect.
type CacheConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	Prefix  string        `mapstructure:"prefix"`
	TTL     time.Duration `mapstructure:"ttl"`
}

// Load reads config/config.yaml (or the file in path), .env and the
// environment, then validates the result.
func Load(path string) (*Config, error) {
	v, err := pkgconfig.Load(pkgconfig.Options{
		Path:   path,
		Name:   "config",
		DotEnv: []string{".env"},
	})
	if err != nil {
		return nil, err
	}

	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.shutdown_timeout", "10s")
	v.SetDefault("websocket.ping_interval", "30s")
	v.SetDefault("websocket.pong_wait", "60s")
	v.SetDefault("websocket.write_wait", "10s")
	v.SetDefault("websocket.max_message_size", 65536)
	v.SetDefault("websocket.send_buffer", 256)
	v.SetDefault("websocket.read_buffer_size", 1024)
	v.SetDefault("websocket.write_buffer_size", 1024)
	v.SetDefault("auth.issuer", "")
	v.SetDefault("auth.access_token_ttl", "15m")
	v.SetDefault("auth.leeway", "5s")
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.file_path", "chat.db")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.log_level", "warn")
	v.SetDefault("database.auto_migrate", false)
	v.SetDefault("redis.address", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("cache.enabled", false)
	v.SetDefault("cache.prefix", "chat:room")
	v.SetDefault("cache.ttl", "5m")
	v.SetDefault("broadcast.driver", pubsub.DriverLocal)
	v.SetDefault("broadcast.buffer_size", 256)
	v.SetDefault("broadcast.kafka.brokers", "localhost:9092")
	v.SetDefault("broadcast.kafka.group_id", "chat-broker")
	v.SetDefault("broadcast.kafka.partitions", 4)
	v.SetDefault("broadcast.kafka.assign_timeout", "30s")
	v.SetDefault("broadcast.redis.pool_size", 10)
	v.SetDefault("broadcast.redis.read_timeout", "3s")
	v.SetDefault("broadcast.redis.write_timeout", "3s")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)
	v.SetDefault("log.service_name", "chat-broker")

	_ = v.BindEnv("server.port", "PORT")
	_ = v.BindEnv("auth.secret", "JWT_SECRET")
	_ = v.BindEnv("auth.issuer", "JWT_ISSUER")
	_ = v.BindEnv("database.driver", "DATABASE_DRIVER")
	_ = v.BindEnv("database.host", "DATABASE_HOST")
	_ = v.BindEnv("database.port", "DATABASE_PORT")
	_ = v.BindEnv("database.user", "DATABASE_USER")
	_ = v.BindEnv("database.password", "DATABASE_PASSWORD")
	_ = v.BindEnv("database.dbname", "DATABASE_NAME")
	_ = v.BindEnv("database.file_path", "DATABASE_FILE_PATH")
	_ = v.BindEnv("redis.address", "REDIS_ADDRESS")
	_ = v.BindEnv("redis.password", "REDIS_PASSWORD")
	_ = v.BindEnv("broadcast.driver", "BROADCAST_DRIVER")
	_ = v.BindEnv("broadcast.kafka.brokers", "KAFKA_BROKERS")
	_ = v.BindEnv("log.level", "LOG_LEVEL")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	// The bus shares the cache's Redis unless configured separately.
	if cfg.Broadcast.Redis.Address == "" {
		cfg.Broadcast.Redis.Address = cfg.Redis.Address
		cfg.Broadcast.Redis.Password = cfg.Redis.Password
		cfg.Broadcast.Redis.DB = cfg.Redis.DB
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

var validate = validator.New()

// Validate checks field constraints and cross-field rules.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if c.WebSocket.PingInterval >= c.WebSocket.PongWait {
		return errors.New("invalid config: websocket.ping_interval must be shorter than websocket.pong_wait")
	}
	return nil
}
