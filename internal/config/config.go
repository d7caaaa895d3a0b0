package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Server   ServerConfig
	Cache    CacheConfig
	Bundle   BundleConfig
	FFprobe  FFprobeConfig
	MinIO    MinIOConfig
	RabbitMQ RabbitMQConfig
	Redis    RedisConfig
	Memory   MemoryConfig
}

type ServerConfig struct {
	Port            int           `envconfig:"PLAYERD_PORT" default:"8080"`
	ReadTimeout     time.Duration `envconfig:"PLAYERD_READ_TIMEOUT" default:"10s"`
	WriteTimeout    time.Duration `envconfig:"PLAYERD_WRITE_TIMEOUT" default:"60s"`
	ShutdownTimeout time.Duration `envconfig:"PLAYERD_SHUTDOWN_TIMEOUT" default:"10s"`
	LogLevel        string        `envconfig:"PLAYERD_LOG_LEVEL" default:"info"`
}

type CacheConfig struct {
	LoaderConcurrency  int64         `envconfig:"PLAYERD_LOADER_CONCURRENCY" default:"4"`
	PreloadConcurrency int64         `envconfig:"PLAYERD_PRELOAD_CONCURRENCY" default:"2"`
	CreateTimeout      time.Duration `envconfig:"PLAYERD_CREATE_TIMEOUT" default:"30s"`
	// Preload lists keys warmed at startup with high priority.
	Preload []string `envconfig:"PLAYERD_PRELOAD"`
}

type BundleConfig struct {
	Dir   string `envconfig:"BUNDLE_DIR" default:"./assets"`
	Watch bool   `envconfig:"BUNDLE_WATCH" default:"true"`
}

type FFprobeConfig struct {
	Path    string        `envconfig:"FFPROBE_PATH" default:"ffprobe"`
	Timeout time.Duration `envconfig:"FFPROBE_TIMEOUT" default:"10s"`
}

// MinIOConfig configures the optional remote asset source. Disabled when Endpoint is empty.
type MinIOConfig struct {
	Endpoint       string        `envconfig:"MINIO_ENDPOINT"`
	PublicEndpoint string        `envconfig:"MINIO_PUBLIC_ENDPOINT"`
	AccessKey      string        `envconfig:"MINIO_ACCESS_KEY" default:"minioadmin"`
	SecretKey      string        `envconfig:"MINIO_SECRET_KEY" default:"minioadmin"`
	Bucket         string        `envconfig:"MINIO_BUCKET" default:"videos"`
	Prefix         string        `envconfig:"MINIO_PREFIX" default:"loops/"`
	UseSSL         bool          `envconfig:"MINIO_USE_SSL" default:"false"`
	URLExpiry      time.Duration `envconfig:"MINIO_URL_EXPIRY" default:"1h"`
}

func (c MinIOConfig) Enabled() bool {
	return c.Endpoint != ""
}

// RabbitMQConfig configures the optional cache command consumer. Disabled when Host is empty.
type RabbitMQConfig struct {
	Host     string `envconfig:"RABBITMQ_HOST"`
	Port     int    `envconfig:"RABBITMQ_PORT" default:"5672"`
	User     string `envconfig:"RABBITMQ_USER" default:"loopvideo"`
	Password string `envconfig:"RABBITMQ_PASSWORD" default:"loopvideo"`
	VHost    string `envconfig:"RABBITMQ_VHOST" default:"/"`
	Queue    string `envconfig:"RABBITMQ_QUEUE" default:"player_cache_commands"`
}

func (c RabbitMQConfig) Enabled() bool {
	return c.Host != ""
}

func (c RabbitMQConfig) URL() string {
	return fmt.Sprintf(
		"amqp://%s:%s@%s:%d%s",
		c.User, c.Password, c.Host, c.Port, c.VHost,
	)
}

// RedisConfig configures the optional lifecycle channel. Disabled when Host is empty.
type RedisConfig struct {
	Host     string `envconfig:"REDIS_HOST"`
	Port     int    `envconfig:"REDIS_PORT" default:"6379"`
	Password string `envconfig:"REDIS_PASSWORD"`
	DB       int    `envconfig:"REDIS_DB" default:"0"`
	Channel  string `envconfig:"REDIS_LIFECYCLE_CHANNEL" default:"loopvideo:lifecycle"`
}

func (c RedisConfig) Enabled() bool {
	return c.Host != ""
}

func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

type MemoryConfig struct {
	Enabled           bool          `envconfig:"MEMORY_MONITOR" default:"true"`
	Interval          time.Duration `envconfig:"MEMORY_INTERVAL" default:"5s"`
	PressurePercent   float64       `envconfig:"MEMORY_PRESSURE_PERCENT" default:"90"`
	HysteresisPercent float64       `envconfig:"MEMORY_HYSTERESIS_PERCENT" default:"5"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if cfg.Cache.LoaderConcurrency <= 0 {
		return nil, fmt.Errorf("PLAYERD_LOADER_CONCURRENCY must be positive, got %d", cfg.Cache.LoaderConcurrency)
	}
	if cfg.Memory.PressurePercent <= 0 || cfg.Memory.PressurePercent > 100 {
		return nil, fmt.Errorf("MEMORY_PRESSURE_PERCENT must be in (0, 100], got %v", cfg.Memory.PressurePercent)
	}
	return &cfg, nil
}
