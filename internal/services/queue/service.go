package queue

import (
	"fmt"

	"github.com/streadway/amqp"
	"go.uber.org/zap"
)

const DefaultQueueName = "studio_run_events"

// channel is the subset of *amqp.Channel the service uses.
type channel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	QueueBind(name, key, exchange string, noWait bool, args amqp.Table) error
	QueueInspect(name string) (amqp.Queue, error)
	Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error)
	Publish(exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// QueueService publishes orchestrator run events to RabbitMQ and consumes
// them back.
//
// Events go to a fanout exchange named after the queue. A durable queue of
// the same name is bound to it and keeps events for StartConsumer; every
// StartTail gets its own exclusive queue on the same exchange.
type QueueService struct {
	conn      *amqp.Connection
	channel   channel
	logger    *zap.Logger
	queueName string
}

func NewQueueService(rabbitmqURL, queueName string, logger *zap.Logger) (*QueueService, error) {
	conn, err := amqp.Dial(rabbitmqURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	q, err := newQueueService(conn, ch, queueName, logger)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, err
	}
	return q, nil
}

func newQueueService(conn *amqp.Connection, ch channel, queueName string, logger *zap.Logger) (*QueueService, error) {
	if queueName == "" {
		queueName = DefaultQueueName
	}

	err := ch.ExchangeDeclare(
		queueName, // name
		"fanout",  // kind
		true,      // durable
		false,     // auto-delete
		false,     // internal
		false,     // no-wait
		nil,       // arguments
	)
	if err != nil {
		return nil, fmt.Errorf("failed to declare exchange: %w", err)
	}

	// Declare queue
	_, err = ch.QueueDeclare(
		queueName, // name
		true,      // durable
		false,     // delete when unused
		false,     // exclusive
		false,     // no-wait
		nil,       // arguments
	)
	if err != nil {
		return nil, fmt.Errorf("failed to declare queue: %w", err)
	}

	if err := ch.QueueBind(queueName, "", queueName, false, nil); err != nil {
		return nil, fmt.Errorf("failed to bind queue: %w", err)
	}

	return &QueueService{
		conn:      conn,
		channel:   ch,
		logger:    logger,
		queueName: queueName,
	}, nil
}

// Close closes the queue connection
func (q *QueueService) Close() error {
	if q.channel != nil {
		q.channel.Close()
	}
	if q.conn != nil {
		q.conn.Close()
	}
	return nil
}
