package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/thermae/internal/shared/infrastructure/eventbus"
	"github.com/felixgeelhaar/thermae/internal/shared/infrastructure/kv"
)

var (
	workerQueue         string
	workerPurgeInterval time.Duration
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Consume domain events from RabbitMQ and send notifications",
	Long: `Consume member and order events from RabbitMQ and deliver the
welcome and receipt texts. While running, expired session rows are purged
from the database store.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		app := GetApp()
		if app == nil || app.Config == nil {
			return fmt.Errorf("app not initialized")
		}
		if app.Config.RabbitMQURL == "" {
			return fmt.Errorf("RABBITMQ_URL is required for the worker")
		}

		registry := eventbus.NewRegistry(logger)
		for _, h := range app.Handlers {
			registry.Register(h)
		}

		consumer, err := eventbus.NewRabbitMQConsumer(eventbus.RabbitMQConsumerConfig{
			URL:       app.Config.RabbitMQURL,
			QueueName: workerQueue,
			Logger:    logger,
		}, registry)
		if err != nil {
			return err
		}
		defer consumer.Close()

		ctx := cmd.Context()
		if app.SQLKV != nil && workerPurgeInterval > 0 {
			go purgeExpiredSessions(ctx, app.SQLKV, workerPurgeInterval)
		}

		logger.Info("worker started", "queue", workerQueue, "event_types", registry.EventTypes())
		if err := consumer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		logger.Info("worker stopped")
		return nil
	},
}

// purgeExpiredSessions removes expired session rows every interval until
// ctx is cancelled.
func purgeExpiredSessions(ctx context.Context, store *kv.SQLStore, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			deleted, err := store.PurgeExpired(ctx)
			if err != nil {
				logger.Error("session purge failed", "error", err)
				continue
			}
			if deleted > 0 {
				logger.Info("session purge completed", "deleted", deleted)
			}
		}
	}
}

func init() {
	workerCmd.Flags().StringVar(&workerQueue, "queue", eventbus.DefaultQueueName, "queue to consume from")
	workerCmd.Flags().DurationVar(&workerPurgeInterval, "purge-interval", time.Hour, "how often to purge expired sessions (0 disables)")
	rootCmd.AddCommand(workerCmd)
}
