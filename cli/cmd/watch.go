package cmd

import (
	"context"
	"errors"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	goredis "github.com/redis/go-redis/v9"
	"github.com/twmb/franz-go/pkg/kgo"
	"github.com/urfave/cli/v2"

	"github.com/cast-iron/crucible/cli/tui"
	"github.com/cast-iron/crucible/config"
)

// WatchCommand returns the watch command: a live, read-only board of the
// job lifecycle messages the worker publishes. It follows whichever
// messaging backend the settings select and starts at the stream's tail.
func WatchCommand() *cli.Command {
	return &cli.Command{
		Name:   "watch",
		Usage:  "Follow job lifecycle messages in a live board",
		Flags:  []cli.Flag{ConfigFlag},
		Action: watchAction,
	}
}

func watchAction(c *cli.Context) error {
	settings, err := config.Load(c.String("config"))
	if err != nil {
		return cli.Exit(fmt.Sprintf("load settings: %v", err), exitConfigError)
	}

	source := settings.Kafka.PizzaTrackerTopic + " (kafka)"
	if settings.Messaging.Backend == config.BackendRedis {
		source = settings.Messaging.RedisChannel + " (redis)"
	}

	p := tea.NewProgram(tui.NewWatchModel(source), tea.WithAltScreen())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errCh := make(chan error, 1)
	go func() { errCh <- follow(ctx, settings, p) }()

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("tui: %w", err)
	}
	cancel()

	if err := <-errCh; err != nil && !errors.Is(err, context.Canceled) {
		return cli.Exit(fmt.Sprintf("follow %s: %v", source, err), exitDependencyError)
	}
	return nil
}

// follow streams lifecycle payloads into the board until ctx is canceled.
func follow(ctx context.Context, settings *config.Settings, p *tea.Program) error {
	if settings.Messaging.Backend == config.BackendRedis {
		return followRedis(ctx, settings, p)
	}
	return followKafka(ctx, settings, p)
}

func followKafka(ctx context.Context, settings *config.Settings, p *tea.Program) error {
	// No consumer group: every watcher sees the whole stream, and offsets
	// are never committed.
	client, err := kgo.NewClient(
		kgo.SeedBrokers(settings.Kafka.Broker),
		kgo.ConsumeTopics(settings.Kafka.PizzaTrackerTopic),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtEnd()),
	)
	if err != nil {
		return fmt.Errorf("kafka client: %w", err)
	}
	defer client.Close()

	for {
		fetches := client.PollFetches(ctx)
		if err := ctx.Err(); err != nil {
			return err
		}

		fetches.EachRecord(func(record *kgo.Record) {
			if msg, ok := tui.ParseJobMessage(record.Value); ok {
				p.Send(msg)
			}
		})
	}
}

func followRedis(ctx context.Context, settings *config.Settings, p *tea.Program) error {
	opts, err := goredis.ParseURL(settings.Messaging.RedisURL)
	if err != nil {
		return fmt.Errorf("redis url: %w", err)
	}
	client := goredis.NewClient(opts)
	defer func() { _ = client.Close() }()

	sub := client.Subscribe(ctx, settings.Messaging.RedisChannel)
	defer func() { _ = sub.Close() }()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			if parsed, ok := tui.ParseJobMessage([]byte(msg.Payload)); ok {
				p.Send(parsed)
			}
		}
	}
}
