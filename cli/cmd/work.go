package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/cast-iron/crucible/config"
	"github.com/cast-iron/crucible/handler"
	"github.com/cast-iron/crucible/log"
	"github.com/cast-iron/crucible/messaging"
	"github.com/cast-iron/crucible/metrics"
	"github.com/cast-iron/crucible/objectstore"
	"github.com/cast-iron/crucible/tasking"
	"github.com/cast-iron/crucible/worker"
)

// Exit codes for the work command.
const (
	exitSuccess         = 0
	exitConfigError     = 1
	exitDependencyError = 2
)

// WorkCommand returns the work command, the worker daemon entrypoint.
func WorkCommand() *cli.Command {
	return &cli.Command{
		Name:   "work",
		Usage:  "Run the worker: watch the bucket and pipeline matching files",
		Flags:  []cli.Flag{ConfigFlag},
		Action: workAction,
	}
}

func workAction(c *cli.Context) error {
	settings, err := config.Load(c.String("config"))
	if err != nil {
		return cli.Exit(fmt.Sprintf("load settings: %v", err), exitConfigError)
	}

	logger := log.NewLogger(settings.WorkerName)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("shutdown signal received", nil)
		cancel()
	}()

	store, err := objectstore.NewS3Store(ctx, objectstore.S3Config{
		Endpoint:        settings.Minio.Host,
		AccessKey:       settings.Minio.AccessKey,
		SecretKey:       settings.Minio.SecretKey,
		Secure:          settings.Minio.Secure,
		Bucket:          settings.Minio.ETLBucket,
		NotificationARN: settings.Minio.NotificationARN,
	}, logger)
	if err != nil {
		return cli.Exit(fmt.Sprintf("object store: %v", err), exitDependencyError)
	}

	producer, err := buildProducer(settings)
	if err != nil {
		return cli.Exit(fmt.Sprintf("message producer: %v", err), exitDependencyError)
	}
	defer func() { _ = producer.Close() }()

	sink, err := tasking.NewKafkaSink(tasking.KafkaConfig{
		Brokers:     []string{settings.Kafka.Broker},
		Topic:       settings.Kafka.MinioTopic,
		Group:       settings.WorkerName,
		StartOffset: settings.Kafka.StartOffset,
	}, logger)
	if err != nil {
		return cli.Exit(fmt.Sprintf("task sink: %v", err), exitDependencyError)
	}
	defer func() { _ = sink.Close() }()

	collector := metrics.NewCollector(settings.WorkerName, settings.Minio.ETLBucket, settings.Messaging.Backend)

	ep, err := worker.New(worker.Config{
		Store:     store,
		Producer:  producer,
		Handlers:  handler.Defaults(),
		Logger:    logger,
		Collector: collector,
		Bucket:    settings.Minio.ETLBucket,
		Database: worker.Database{
			Host:     settings.Database.Host,
			Password: settings.Database.Password,
			Port:     settings.Database.Port,
			Table:    settings.Database.Table,
			User:     settings.Database.User,
		},
	})
	if err != nil {
		return cli.Exit(fmt.Sprintf("worker: %v", err), exitDependencyError)
	}

	if err := ep.Bootstrap(ctx); err != nil {
		return cli.Exit(fmt.Sprintf("bootstrap: %v", err), exitDependencyError)
	}

	logger.Info("worker started", map[string]any{
		"bucket":  settings.Minio.ETLBucket,
		"topic":   settings.Kafka.MinioTopic,
		"backend": settings.Messaging.Backend,
	})

	err = sink.Start(ctx, ep.Process)

	snap := collector.Snapshot()
	logger.Info("worker stopped", map[string]any{
		"events_received":    snap.EventsReceived,
		"events_discarded":   snap.EventsDiscarded,
		"configs_registered": snap.ConfigsRegistered,
		"jobs_started":       snap.JobsStarted,
		"jobs_succeeded":     snap.JobsSucceeded,
		"jobs_failed":        snap.JobsFailed,
		"messages_published": snap.MessagesPublished,
		"messages_failed":    snap.MessagesFailed,
	})

	if err != nil && !errors.Is(err, context.Canceled) {
		return cli.Exit(fmt.Sprintf("task sink: %v", err), exitDependencyError)
	}
	return nil
}

// buildProducer selects the outbound lifecycle message backend.
func buildProducer(settings *config.Settings) (messaging.Producer, error) {
	switch settings.Messaging.Backend {
	case config.BackendKafka:
		return messaging.NewKafkaProducer(messaging.KafkaConfig{
			Brokers: []string{settings.Kafka.Broker},
			Topic:   settings.Kafka.PizzaTrackerTopic,
		})
	case config.BackendRedis:
		return messaging.NewRedisProducer(messaging.RedisConfig{
			URL:     settings.Messaging.RedisURL,
			Channel: settings.Messaging.RedisChannel,
			Retries: messaging.DefaultRedisRetries,
		})
	default:
		return nil, fmt.Errorf("unknown messaging backend %q (must be kafka or redis)", settings.Messaging.Backend)
	}
}
