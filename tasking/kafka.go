package tasking

import (
	"context"
	"errors"
	"fmt"

	"github.com/twmb/franz-go/pkg/kgo"

	"github.com/cast-iron/crucible/log"
)

// consumer abstracts the kafka client methods used by KafkaSink for testing.
type consumer interface {
	PollFetches(ctx context.Context) kgo.Fetches
	MarkCommitRecords(rs ...*kgo.Record)
	CommitMarkedOffsets(ctx context.Context) error
	Close()
}

// KafkaConfig holds Kafka task sink configuration.
type KafkaConfig struct {
	// Brokers is the list of seed brokers (required).
	Brokers []string
	// Topic is the notification topic to consume (required).
	Topic string
	// Group is the consumer group name (required).
	Group string
	// StartOffset is "earliest" or "latest" (default: "latest").
	StartOffset string
}

// KafkaSink consumes task payloads from a Kafka topic.
type KafkaSink struct {
	client consumer
	topic  string
	logger *log.Logger
}

var _ Sink = (*KafkaSink)(nil)

// NewKafkaSink creates a Kafka task sink from the given config.
func NewKafkaSink(cfg KafkaConfig, logger *log.Logger) (*KafkaSink, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("kafka sink requires brokers")
	}
	if cfg.Topic == "" {
		return nil, errors.New("kafka sink requires a topic")
	}
	if cfg.Group == "" {
		return nil, errors.New("kafka sink requires a consumer group")
	}
	if logger == nil {
		return nil, errors.New("kafka sink requires a logger")
	}

	offset := kgo.NewOffset().AtEnd()
	if cfg.StartOffset == "earliest" {
		offset = kgo.NewOffset().AtStart()
	}

	client, err := kgo.NewClient(
		kgo.SeedBrokers(cfg.Brokers...),
		kgo.ConsumerGroup(cfg.Group),
		kgo.ConsumeTopics(cfg.Topic),
		kgo.ConsumeResetOffset(offset),
		kgo.DisableAutoCommit(),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka client: %w", err)
	}

	return &KafkaSink{
		client: client,
		topic:  cfg.Topic,
		logger: logger,
	}, nil
}

// Start begins consuming task payloads. Blocks until ctx is canceled.
func (s *KafkaSink) Start(ctx context.Context, handler Handler) error {
	s.logger.Info("starting task sink", map[string]any{"topic": s.topic})

	for {
		fetches := s.client.PollFetches(ctx)

		if errs := fetches.Errors(); len(errs) > 0 {
			for _, err := range errs {
				s.logger.Error("fetch error", map[string]any{
					"topic":     err.Topic,
					"partition": err.Partition,
					"error":     err.Err.Error(),
				})
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			continue
		}

		fetches.EachRecord(func(record *kgo.Record) {
			if err := handler(ctx, record.Value); err != nil {
				s.logger.Error("handler error", map[string]any{
					"topic":  record.Topic,
					"offset": record.Offset,
					"error":  err.Error(),
				})
				return
			}

			// Commit offset after successful handler execution (at-least-once)
			s.client.MarkCommitRecords(record)
			if err := s.client.CommitMarkedOffsets(ctx); err != nil {
				s.logger.Error("commit error", map[string]any{
					"topic":  record.Topic,
					"offset": record.Offset,
					"error":  err.Error(),
				})
			}
		})

		// Check for cancellation after processing the batch, ensuring
		// all records from the last fetch are fully drained before exit.
		if ctx.Err() != nil {
			s.logger.Info("task sink drained", map[string]any{"topic": s.topic})
			return ctx.Err()
		}
	}
}

// Close performs graceful shutdown of the Kafka client.
func (s *KafkaSink) Close() error {
	s.client.Close()
	return nil
}
