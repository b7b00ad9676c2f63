package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/rl1809/storefront/internal/core/domain"
)

const orderPlacedType = "order.placed"

// RabbitMQ publishes order events to a durable queue on the default
// exchange. A channel is not safe for concurrent publishing, so publishes
// are serialized.
type RabbitMQ struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	queue   string
	logger  *slog.Logger
	mu      sync.Mutex
}

func NewRabbitMQ(url, queue string, logger *slog.Logger) (*RabbitMQ, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	r := &RabbitMQ{
		conn:    conn,
		channel: channel,
		queue:   queue,
		logger:  logger,
	}
	if err := r.declareQueue(); err != nil {
		r.Close()
		return nil, err
	}

	logger.Info("connected to rabbitmq", "queue", queue)
	return r, nil
}

func (r *RabbitMQ) declareQueue() error {
	_, err := r.channel.QueueDeclare(
		r.queue, // queue name
		true,    // durable
		false,   // auto-delete
		false,   // exclusive
		false,   // no-wait
		nil,     // arguments
	)
	if err != nil {
		return fmt.Errorf("failed to declare queue: %w", err)
	}
	return nil
}

func buildPublishing(event domain.OrderPlacedEvent) (amqp.Publishing, error) {
	body, err := json.Marshal(event)
	if err != nil {
		return amqp.Publishing{}, fmt.Errorf("failed to encode event: %w", err)
	}

	return amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    strconv.FormatInt(event.OrderID, 10),
		Type:         orderPlacedType,
		Timestamp:    event.PlacedAt,
		Body:         body,
	}, nil
}

// PublishOrderPlaced sends the event to the configured queue.
func (r *RabbitMQ) PublishOrderPlaced(ctx context.Context, event domain.OrderPlacedEvent) error {
	msg, err := buildPublishing(event)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	err = r.channel.PublishWithContext(ctx,
		"",      // exchange
		r.queue, // routing key (queue name)
		false,   // mandatory
		false,   // immediate
		msg,
	)
	if err != nil {
		return fmt.Errorf("failed to publish message: %w", err)
	}

	r.logger.Debug("order event published", "order_id", event.OrderID, "queue", r.queue)
	return nil
}

// Close closes the channel and the connection.
func (r *RabbitMQ) Close() {
	if r.channel != nil {
		r.channel.Close()
	}
	if r.conn != nil {
		r.conn.Close()
	}
}

// LogPublisher stands in for RabbitMQ when no broker is configured.
type LogPublisher struct {
	Logger *slog.Logger
}

func (p LogPublisher) PublishOrderPlaced(ctx context.Context, event domain.OrderPlacedEvent) error {
	p.Logger.Info("order placed event",
		"order_id", event.OrderID,
		"total", event.Total.String(),
		"lines", len(event.Lines),
		"placed_at", event.PlacedAt.Format(time.RFC3339Nano),
	)
	return nil
}
