package queue

import (
	"fmt"
	"time"

	"github.com/phambaophuc/product-studio/internal/models"
	"github.com/phambaophuc/product-studio/internal/services/orchestrator"
	"github.com/streadway/amqp"
	"go.uber.org/zap"
)

func (q *QueueService) PublishEvent(sessionID string, event models.Event) error {
	body, err := encodeMessage(RunEventMessage{SessionID: sessionID, Event: event})
	if err != nil {
		return err
	}

	timestamp := event.Time
	if timestamp.IsZero() {
		timestamp = time.Now()
	}

	err = q.channel.Publish(
		q.queueName, // exchange
		"",          // routing key, ignored by fanout
		false,       // mandatory
		false,       // immediate
		amqp.Publishing{
			ContentType:   "application/json",
			Body:          body,
			DeliveryMode:  amqp.Persistent,
			Timestamp:     timestamp,
			Type:          string(event.Type),
			CorrelationId: event.RunID,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish run event: %w", err)
	}

	q.logger.Debug("Run event published",
		zap.String("session_id", sessionID),
		zap.String("type", string(event.Type)),
		zap.String("run_id", event.RunID))
	return nil
}

// Observer publishes every event of a session's orchestrator. Publish
// failures are logged and never reach the run.
func (q *QueueService) Observer(sessionID string) orchestrator.Observer {
	return orchestrator.ObserverFunc(func(event models.Event) {
		if err := q.PublishEvent(sessionID, event); err != nil {
			q.logger.Warn("Failed to publish run event",
				zap.String("session_id", sessionID),
				zap.String("type", string(event.Type)),
				zap.Error(err))
		}
	})
}
