package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/phambaophuc/product-studio/internal/services/queue"
	"github.com/spf13/cobra"
)

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Tail run events published by the server",
	Long: `Print run events published to RabbitMQ (RABBITMQ_URL and
RABBITMQ_QUEUE) as one JSON object per line until interrupted.

By default only events published after start are shown and the shared
queue is left untouched. With --drain the backlog of the shared queue is
consumed instead; drained events are gone for every other consumer.`,
	Args: cobra.NoArgs,
	RunE: runEvents,
}

var drainEvents bool

func init() {
	eventsCmd.Flags().BoolVar(&drainEvents, "drain", false, "consume and remove events from the shared queue")
}

func runEvents(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger, err := newLogger()
	if err != nil {
		return err
	}
	defer logger.Sync()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.RabbitMQ.URL == "" {
		return fmt.Errorf("RABBITMQ_URL is not set")
	}

	queueService, err := queue.NewQueueService(cfg.RabbitMQ.URL, cfg.RabbitMQ.Queue, logger)
	if err != nil {
		return err
	}
	defer queueService.Close()

	start := queueService.StartTail
	if drainEvents {
		start = queueService.StartConsumer
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	done, err := start(ctx, "studio-"+uuid.NewString(), func(_ context.Context, msg queue.RunEventMessage) error {
		return enc.Encode(msg)
	})
	if err != nil {
		return err
	}

	<-done
	return nil
}
