package kitchen

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"deskgoo-pos/internal/logger"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

const publishTimeout = 5 * time.Second

// Publisher is the part of *amqp.Channel the notifier uses.
type Publisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// AMQPNotifier publishes tickets as JSON to a topic exchange.
type AMQPNotifier struct {
	ch       Publisher
	exchange string
}

func NewAMQPNotifier(ch Publisher, exchange string) *AMQPNotifier {
	return &AMQPNotifier{ch: ch, exchange: exchange}
}

func (n *AMQPNotifier) Notify(ctx context.Context, t Ticket) error {
	body, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("marshal kitchen ticket: %w", err)
	}

	pubCtx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	err = n.ch.PublishWithContext(pubCtx,
		n.exchange,
		t.RoutingKey(),
		false,
		false,
		amqp.Publishing{
			DeliveryMode: amqp.Persistent,
			ContentType:  "application/json",
			MessageId:    uuid.NewString(),
			Timestamp:    t.Timestamp,
			Headers: amqp.Table{
				"idempotency_key": t.IdempotencyKey(),
				"ticket_number":   t.TicketNumber,
			},
			Body: body,
		})
	if err != nil {
		logger.FromCtx(ctx).Error("failed to publish kitchen ticket",
			zap.String("layer", "kitchen"),
			zap.Int64("order_id", t.OrderID),
			zap.String("reason", string(t.Reason)),
			zap.Error(err),
		)
		return fmt.Errorf("publish kitchen ticket: %w", err)
	}

	logger.FromCtx(ctx).Debug("kitchen ticket published",
		zap.String("layer", "kitchen"),
		zap.String("exchange", n.exchange),
		zap.String("routing_key", t.RoutingKey()),
	)
	return nil
}

// Connection owns the broker connection and channel behind an AMQPNotifier.
type Connection struct {
	conn *amqp.Connection
	ch   *amqp.Channel
}

// Dial connects to the broker and declares the durable topic exchange
// tickets are published to.
func Dial(url, exchange string) (*Connection, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial amqp: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open amqp channel: %w", err)
	}

	err = ch.ExchangeDeclare(
		exchange,
		"topic",
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("declare exchange %s: %w", exchange, err)
	}

	return &Connection{conn: conn, ch: ch}, nil
}

func (c *Connection) Channel() *amqp.Channel {
	return c.ch
}

func (c *Connection) Close() error {
	if c.ch != nil {
		c.ch.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}
