package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// AMQPQueue publishes run ids to a durable RabbitMQ queue.
type AMQPQueue struct {
	conn           *amqp.Connection
	mu             sync.Mutex
	ch             *amqp.Channel
	name           string
	publishTimeout time.Duration
}

func NewAMQPQueue(dsn, name string, publishTimeout time.Duration) (*AMQPQueue, error) {
	conn, err := amqp.Dial(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	if _, err := ch.QueueDeclare(name, true, false, false, false, nil); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to declare queue %s: %w", name, err)
	}

	return &AMQPQueue{
		conn:           conn,
		ch:             ch,
		name:           name,
		publishTimeout: publishTimeout,
	}, nil
}

func (q *AMQPQueue) Available() bool {
	return !q.conn.IsClosed() && !q.ch.IsClosed()
}

func (q *AMQPQueue) Enqueue(ctx context.Context, runID string) error {
	if !q.Available() {
		return ErrClosed
	}

	body, err := json.Marshal(message{RunID: runID})
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, q.publishTimeout)
	defer cancel()

	q.mu.Lock()
	defer q.mu.Unlock()

	if err := q.ch.PublishWithContext(ctx, "", q.name, true, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Body:         body,
	}); err != nil {
		return fmt.Errorf("failed to publish run %s: %w", runID, err)
	}
	return nil
}

// Consume delivers queued runs to handler one at a time until ctx is done.
// Runs whose handler fails are dropped, not requeued; the failure is
// recorded on the run itself.
func (q *AMQPQueue) Consume(ctx context.Context, handler Handler) error {
	ch, err := q.conn.Channel()
	if err != nil {
		return fmt.Errorf("failed to open consumer channel: %w", err)
	}
	defer ch.Close()

	if err := ch.Qos(1, 0, false); err != nil {
		return fmt.Errorf("failed to set qos: %w", err)
	}

	deliveries, err := ch.Consume(q.name, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("failed to consume %s: %w", q.name, err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-deliveries:
			if !ok {
				return ErrClosed
			}

			var msg message
			if err := json.Unmarshal(d.Body, &msg); err != nil || msg.RunID == "" {
				slog.Error("Discarding malformed queue message", "error", err)
				d.Nack(false, false)
				continue
			}

			if err := handler(ctx, msg.RunID); err != nil {
				slog.Error("Attendance calculation run failed", "run_id", msg.RunID, "error", err)
				d.Nack(false, false)
				continue
			}
			d.Ack(false)
		}
	}
}

func (q *AMQPQueue) Close() error {
	if err := q.ch.Close(); err != nil && !q.conn.IsClosed() {
		slog.Warn("Failed to close amqp channel", "error", err)
	}
	return q.conn.Close()
}
