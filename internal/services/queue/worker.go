package queue

import (
	"context"
	"fmt"

	"github.com/streadway/amqp"
	"go.uber.org/zap"
)

// Handler processes one consumed run event.
type Handler func(ctx context.Context, msg RunEventMessage) error

// StartConsumer delivers events from the shared durable queue to handle
// until ctx is done or the channel closes. Consumers of the shared queue
// compete: each event reaches one of them and is removed once handled.
// The returned channel is closed when consumption stops.
func (q *QueueService) StartConsumer(ctx context.Context, consumer string, handle Handler) (<-chan struct{}, error) {
	return q.consume(ctx, q.queueName, consumer, false, handle)
}

// StartTail delivers every event published from now on to handle without
// touching the shared queue. The private queue is deleted when the
// channel closes.
func (q *QueueService) StartTail(ctx context.Context, consumer string, handle Handler) (<-chan struct{}, error) {
	tail, err := q.channel.QueueDeclare(
		"",    // name, assigned by the broker
		false, // durable
		true,  // delete when unused
		true,  // exclusive
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		return nil, fmt.Errorf("failed to declare tail queue: %w", err)
	}

	if err := q.channel.QueueBind(tail.Name, "", q.queueName, false, nil); err != nil {
		return nil, fmt.Errorf("failed to bind tail queue: %w", err)
	}

	return q.consume(ctx, tail.Name, consumer, true, handle)
}

func (q *QueueService) consume(ctx context.Context, queueName, consumer string, exclusive bool, handle Handler) (<-chan struct{}, error) {
	msgs, err := q.channel.Consume(
		queueName, // queue
		consumer,  // consumer
		false,     // auto-ack
		exclusive, // exclusive
		false,     // no-local
		false,     // no-wait
		nil,       // args
	)
	if err != nil {
		return nil, fmt.Errorf("failed to register consumer: %w", err)
	}

	q.logger.Info("Consumer started", zap.String("consumer", consumer), zap.String("queue", queueName))

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			select {
			case <-ctx.Done():
				q.logger.Info("Consumer stopping", zap.String("consumer", consumer))
				return
			case msg, ok := <-msgs:
				if !ok {
					q.logger.Warn("Message channel closed", zap.String("consumer", consumer))
					return
				}
				q.processMessage(ctx, msg, handle)
			}
		}
	}()

	return done, nil
}

func (q *QueueService) processMessage(ctx context.Context, msg amqp.Delivery, handle Handler) {
	event, err := decodeMessage(msg.Body)
	if err != nil {
		q.logger.Error("Failed to decode run event", zap.Error(err))
		msg.Nack(false, false) // Don't requeue malformed messages
		return
	}

	if err := handle(ctx, event); err != nil {
		q.logger.Error("Run event handler failed",
			zap.String("session_id", event.SessionID),
			zap.String("type", string(event.Event.Type)),
			zap.Error(err))
		msg.Nack(false, true)
		return
	}

	if err := msg.Ack(false); err != nil {
		q.logger.Error("Failed to ack message",
			zap.String("session_id", event.SessionID),
			zap.Error(err))
	}
}
