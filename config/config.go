// Package config holds the worker settings, read from the environment and
// optionally seeded from a YAML file. Every field carries a default so a
// bare `crucible work` against a local stack starts without any setup.
package config

import (
	"fmt"

	"github.com/ilyakaznacheev/cleanenv"
)

// Messaging backend selectors.
const (
	BackendKafka = "kafka"
	BackendRedis = "redis"
)

// Settings is the full worker configuration.
type Settings struct {
	WorkerName string `yaml:"worker_name" env:"WORKER_NAME" env-default:"cast-iron-worker"`

	Database  Database  `yaml:"database"`
	Kafka     Kafka     `yaml:"kafka"`
	Minio     Minio     `yaml:"minio"`
	Messaging Messaging `yaml:"messaging"`
}

// Database holds the connection settings handed to child processes. The
// worker never connects itself; handlers decide what to do with them.
type Database struct {
	Host     string `yaml:"host" env:"DATABASE_HOST" env-default:"localhost"`
	Password string `yaml:"password" env:"DATABASE_PASSWORD" env-default:"12345678"`
	Port     int    `yaml:"port" env:"DATABASE_PORT" env-default:"5432"`
	Table    string `yaml:"table" env:"DATABASE_TABLE" env-default:"castiron"`
	User     string `yaml:"user" env:"DATABASE_USER" env-default:"castiron"`
}

// Kafka holds broker and topic settings. MinioTopic carries inbound bucket
// notifications; PizzaTrackerTopic carries outbound job lifecycle messages.
// StoreTopic is reserved for the downstream database sink.
type Kafka struct {
	Broker            string `yaml:"broker" env:"KAFKA_BROKER" env-default:"localhost:9092"`
	MinioTopic        string `yaml:"minio_topic" env:"KAFKA_MINIO_TOPIC" env-default:"minio"`
	StoreTopic        string `yaml:"store_topic" env:"KAFKA_STORE_TOPIC" env-default:"postgres"`
	PizzaTrackerTopic string `yaml:"pizza_tracker_topic" env:"KAFKA_PIZZA_TRACKER_TOPIC" env-default:"pizza-tracker"`
	StartOffset       string `yaml:"start_offset" env:"KAFKA_START_OFFSET" env-default:"latest"`
}

// Minio holds the object store connection and the watched bucket.
type Minio struct {
	ETLBucket       string `yaml:"etl_bucket" env:"MINIO_ETL_BUCKET" env-default:"etl"`
	Host            string `yaml:"host" env:"MINIO_HOST" env-default:"localhost:9000"`
	AccessKey       string `yaml:"access_key" env:"MINIO_ACCESS_KEY" env-default:"castiron"`
	SecretKey       string `yaml:"secret_key" env:"MINIO_SECRET_KEY" env-default:"castiron"`
	Secure          bool   `yaml:"secure" env:"MINIO_SECURE" env-default:"false"`
	NotificationARN string `yaml:"notification_arn" env:"MINIO_NOTIFICATION_ARN" env-default:"arn:minio:sqs::docker:kafka"`
}

// Messaging selects the outbound lifecycle message backend. Kafka is the
// default; redis publishes the same JSON payloads to a pub/sub channel.
type Messaging struct {
	Backend      string `yaml:"backend" env:"MESSAGING_BACKEND" env-default:"kafka"`
	RedisURL     string `yaml:"redis_url" env:"REDIS_URL" env-default:"redis://localhost:6379"`
	RedisChannel string `yaml:"redis_channel" env:"REDIS_CHANNEL" env-default:"pizza-tracker"`
}

// Load reads settings from the environment, seeded from the YAML file at
// path when one is given.
func Load(path string) (*Settings, error) {
	var s Settings

	if path != "" {
		if err := cleanenv.ReadConfig(path, &s); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		return &s, nil
	}

	if err := cleanenv.ReadEnv(&s); err != nil {
		return nil, fmt.Errorf("read env: %w", err)
	}
	return &s, nil
}
