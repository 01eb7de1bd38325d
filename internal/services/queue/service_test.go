package queue

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/phambaophuc/product-studio/internal/models"
	"github.com/streadway/amqp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m, goleak.IgnoreTopFunction("go.opencensus.io/stats/view.(*worker).start"))
}

type binding struct {
	queue, key, exchange string
}

type consumeCall struct {
	queue     string
	exclusive bool
}

type publishCall struct {
	exchange, key string
	msg           amqp.Publishing
}

type fakeChannel struct {
	mu         sync.Mutex
	exchanges  map[string]string
	queues     map[string]bool
	bindings   []binding
	consumes   []consumeCall
	published  []publishCall
	deliveries chan amqp.Delivery
	tails      int
}

func newFakeChannel() *fakeChannel {
	return &fakeChannel{
		exchanges:  make(map[string]string),
		queues:     make(map[string]bool),
		deliveries: make(chan amqp.Delivery),
	}
}

func (f *fakeChannel) ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.exchanges[name] = kind
	return nil
}

func (f *fakeChannel) QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if name == "" {
		f.tails++
		name = "amq.gen-tail"
	}
	f.queues[name] = durable
	return amqp.Queue{Name: name}, nil
}

func (f *fakeChannel) QueueBind(name, key, exchange string, noWait bool, args amqp.Table) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.bindings = append(f.bindings, binding{queue: name, key: key, exchange: exchange})
	return nil
}

func (f *fakeChannel) QueueInspect(name string) (amqp.Queue, error) {
	return amqp.Queue{Name: name, Messages: 4, Consumers: 1}, nil
}

func (f *fakeChannel) Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.consumes = append(f.consumes, consumeCall{queue: queue, exclusive: exclusive})
	return f.deliveries, nil
}

func (f *fakeChannel) Publish(exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.published = append(f.published, publishCall{exchange: exchange, key: key, msg: msg})
	return nil
}

func (f *fakeChannel) Close() error { return nil }

// acker reports the outcome of every delivery on outcomes.
type acker struct {
	outcomes chan string
}

func (a acker) Ack(tag uint64, multiple bool) error {
	a.outcomes <- "ack"
	return nil
}

func (a acker) Nack(tag uint64, multiple, requeue bool) error {
	if requeue {
		a.outcomes <- "requeue"
	} else {
		a.outcomes <- "drop"
	}
	return nil
}

func (a acker) Reject(tag uint64, requeue bool) error {
	return a.Nack(tag, false, requeue)
}

func newTestService(t *testing.T) (*QueueService, *fakeChannel) {
	t.Helper()
	ch := newFakeChannel()
	q, err := newQueueService(nil, ch, "", zap.NewNop())
	require.NoError(t, err)
	return q, ch
}

func delivery(outcomes chan string, body string) amqp.Delivery {
	return amqp.Delivery{Acknowledger: acker{outcomes: outcomes}, Body: []byte(body)}
}

func TestNewQueueServiceDeclaresFanout(t *testing.T) {
	_, ch := newTestService(t)

	assert.Equal(t, map[string]string{DefaultQueueName: "fanout"}, ch.exchanges)
	assert.Equal(t, map[string]bool{DefaultQueueName: true}, ch.queues)
	assert.Equal(t, []binding{{queue: DefaultQueueName, key: "", exchange: DefaultQueueName}}, ch.bindings)
}

func TestPublishEventGoesToExchange(t *testing.T) {
	q, ch := newTestService(t)

	event := models.Event{
		Type:  models.EventRunStarted,
		RunID: "run-1",
		Total: 2,
		Time:  time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC),
	}
	require.NoError(t, q.PublishEvent("session-1", event))

	require.Len(t, ch.published, 1)
	pub := ch.published[0]
	assert.Equal(t, DefaultQueueName, pub.exchange)
	assert.Empty(t, pub.key)
	assert.Equal(t, "run_started", pub.msg.Type)
	assert.Equal(t, "run-1", pub.msg.CorrelationId)
	assert.Equal(t, amqp.Persistent, pub.msg.DeliveryMode)
	assert.Equal(t, event.Time, pub.msg.Timestamp)

	msg, err := decodeMessage(pub.msg.Body)
	require.NoError(t, err)
	assert.Equal(t, "session-1", msg.SessionID)
	assert.Equal(t, event, msg.Event)
}

func TestStartTailUsesPrivateQueue(t *testing.T) {
	q, ch := newTestService(t)
	ctx, cancel := context.WithCancel(context.Background())

	received := make(chan RunEventMessage, 1)
	done, err := q.StartTail(ctx, "tail-1", func(_ context.Context, msg RunEventMessage) error {
		received <- msg
		return nil
	})
	require.NoError(t, err)

	assert.Equal(t, 1, ch.tails)
	assert.False(t, ch.queues["amq.gen-tail"])
	assert.Contains(t, ch.bindings, binding{queue: "amq.gen-tail", key: "", exchange: DefaultQueueName})
	assert.Equal(t, []consumeCall{{queue: "amq.gen-tail", exclusive: true}}, ch.consumes)

	outcomes := make(chan string, 1)
	ch.deliveries <- delivery(outcomes, `{"session_id":"s1","event":{"type":"run_completed","run_id":"r1"}}`)
	msg := <-received
	assert.Equal(t, "s1", msg.SessionID)
	assert.Equal(t, models.EventRunCompleted, msg.Event.Type)
	assert.Equal(t, "ack", <-outcomes)

	cancel()
	<-done
}

func TestStartConsumerSharesDurableQueue(t *testing.T) {
	q, ch := newTestService(t)
	ctx, cancel := context.WithCancel(context.Background())

	failing := errors.New("stdout closed")
	done, err := q.StartConsumer(ctx, "drain-1", func(context.Context, RunEventMessage) error {
		return failing
	})
	require.NoError(t, err)

	assert.Zero(t, ch.tails)
	assert.Equal(t, []consumeCall{{queue: DefaultQueueName, exclusive: false}}, ch.consumes)

	outcomes := make(chan string, 1)
	ch.deliveries <- delivery(outcomes, "{")
	assert.Equal(t, "drop", <-outcomes)

	ch.deliveries <- delivery(outcomes, `{"session_id":"s1","event":{"type":"reset"}}`)
	assert.Equal(t, "requeue", <-outcomes)

	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("consumer did not stop")
	}
}

func TestGetQueueStats(t *testing.T) {
	q, _ := newTestService(t)

	stats, err := q.GetQueueStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, DefaultQueueName, stats["name"])
	assert.Equal(t, 4, stats["messages"])
	assert.Equal(t, "unhealthy: connection closed", q.HealthCheck())
}
