package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/twmb/franz-go/pkg/kgo"
)

// kafkaClient is the narrow kgo surface the producer uses, split out so
// tests can substitute a fake.
type kafkaClient interface {
	ProduceSync(ctx context.Context, rs ...*kgo.Record) kgo.ProduceResults
	Close()
}

// KafkaConfig configures the Kafka lifecycle message producer.
type KafkaConfig struct {
	// Brokers is the list of seed brokers (required).
	Brokers []string
	// Topic is the lifecycle message topic (required).
	Topic string
}

// KafkaProducer publishes lifecycle messages to a Kafka topic as JSON.
type KafkaProducer struct {
	client kafkaClient
	topic  string
}

var _ Producer = (*KafkaProducer)(nil)

// NewKafkaProducer creates a Kafka producer from the given config.
func NewKafkaProducer(cfg KafkaConfig) (*KafkaProducer, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("kafka producer requires brokers")
	}
	if cfg.Topic == "" {
		return nil, errors.New("kafka producer requires a topic")
	}

	client, err := kgo.NewClient(kgo.SeedBrokers(cfg.Brokers...))
	if err != nil {
		return nil, fmt.Errorf("kafka client: %w", err)
	}

	return &KafkaProducer{client: client, topic: cfg.Topic}, nil
}

// send marshals the payload and produces it synchronously.
func (p *KafkaProducer) send(ctx context.Context, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("kafka: marshal message: %w", err)
	}

	record := &kgo.Record{Topic: p.topic, Value: body}
	if err := p.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("kafka: produce: %w", err)
	}
	return nil
}

// JobCreated announces a claimed data file.
func (p *KafkaProducer) JobCreated(ctx context.Context, jobID, filename, handler string) error {
	return p.send(ctx, NewJobCreated(jobID, filename, handler))
}

// JobTask reports the task a job is currently working on.
func (p *KafkaProducer) JobTask(ctx context.Context, jobID, task string) error {
	return p.send(ctx, NewTaskUpdate(jobID, task))
}

// JobProgress reports completion in [0, 1].
func (p *KafkaProducer) JobProgress(ctx context.Context, jobID string, progress float64) error {
	return p.send(ctx, NewProgressUpdate(jobID, progress))
}

// JobCommitted reports the number of records committed so far.
func (p *KafkaProducer) JobCommitted(ctx context.Context, jobID string, committed int64) error {
	return p.send(ctx, NewCommittedUpdate(jobID, committed))
}

// JobStatus reports the terminal status.
func (p *KafkaProducer) JobStatus(ctx context.Context, jobID, status string) error {
	return p.send(ctx, NewStatusUpdate(jobID, status))
}

// Close flushes and releases the client.
func (p *KafkaProducer) Close() error {
	p.client.Close()
	return nil
}
