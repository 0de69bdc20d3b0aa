package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// DefaultRedisChannel is the default pub/sub channel name.
const DefaultRedisChannel = "pizza-tracker"

// DefaultRedisTimeout is the default per-publish timeout.
const DefaultRedisTimeout = 5 * time.Second

// DefaultRedisRetries is the default number of retry attempts.
const DefaultRedisRetries = 3

// RedisConfig configures the Redis lifecycle message producer.
type RedisConfig struct {
	// URL is the Redis connection URL (required).
	// Format: redis://[:password@]host:port[/db]
	URL string
	// Channel is the pub/sub channel name (default: pizza-tracker).
	Channel string
	// Timeout is the per-publish timeout (default 5s).
	Timeout time.Duration
	// Retries is the number of retry attempts on failure (default 0).
	Retries int
}

// RedisProducer publishes lifecycle messages via Redis PUBLISH. Messages
// carry the same JSON schema as the Kafka producer, so downstream
// consumers can follow a job from either backend.
type RedisProducer struct {
	config RedisConfig
	client *goredis.Client
}

// NewRedisProducer creates a Redis producer from the given config.
// Returns an error if the URL is empty or invalid.
func NewRedisProducer(cfg RedisConfig) (*RedisProducer, error) {
	if cfg.URL == "" {
		return nil, errors.New("redis producer requires a URL")
	}

	opts, err := goredis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("redis producer: invalid URL: %w", err)
	}

	if cfg.Channel == "" {
		cfg.Channel = DefaultRedisChannel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultRedisTimeout
	}
	if cfg.Retries < 0 {
		return nil, fmt.Errorf("retries must be >= 0, got %d", cfg.Retries)
	}

	return &RedisProducer{
		config: cfg,
		client: goredis.NewClient(opts),
	}, nil
}

// publish sends the payload as a JSON PUBLISH to the configured channel.
// Retries with exponential backoff on failures.
func (p *RedisProducer) publish(ctx context.Context, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("redis: marshal message: %w", err)
	}

	var lastErr error
	// attempts = 1 initial + retries
	attempts := 1 + p.config.Retries

	for i := range attempts {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("redis: context canceled: %w", err)
		}

		// Exponential backoff before retries (not before first attempt)
		if i > 0 {
			backoff := time.Duration(1<<uint(i-1)) * 500 * time.Millisecond
			select {
			case <-ctx.Done():
				return fmt.Errorf("redis: context canceled during backoff: %w", ctx.Err())
			case <-time.After(backoff):
			}
		}

		publishCtx, cancel := context.WithTimeout(ctx, p.config.Timeout)
		lastErr = p.client.Publish(publishCtx, p.config.Channel, body).Err()
		cancel()

		if lastErr == nil {
			return nil
		}
	}

	return fmt.Errorf("redis: failed after %d attempts: %w", attempts, lastErr)
}

// JobCreated announces a claimed data file.
func (p *RedisProducer) JobCreated(ctx context.Context, jobID, filename, handler string) error {
	return p.publish(ctx, NewJobCreated(jobID, filename, handler))
}

// JobTask reports the task a job is currently working on.
func (p *RedisProducer) JobTask(ctx context.Context, jobID, task string) error {
	return p.publish(ctx, NewTaskUpdate(jobID, task))
}

// JobProgress reports completion in [0, 1].
func (p *RedisProducer) JobProgress(ctx context.Context, jobID string, progress float64) error {
	return p.publish(ctx, NewProgressUpdate(jobID, progress))
}

// JobCommitted reports the number of records committed so far.
func (p *RedisProducer) JobCommitted(ctx context.Context, jobID string, committed int64) error {
	return p.publish(ctx, NewCommittedUpdate(jobID, committed))
}

// JobStatus reports the terminal status.
func (p *RedisProducer) JobStatus(ctx context.Context, jobID, status string) error {
	return p.publish(ctx, NewStatusUpdate(jobID, status))
}

// Close releases producer resources.
func (p *RedisProducer) Close() error {
	return p.client.Close()
}

// Verify RedisProducer implements the producer interface.
var _ Producer = (*RedisProducer)(nil)
