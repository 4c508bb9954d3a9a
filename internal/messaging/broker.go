package messaging

import (
	"context"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Broker wraps one RabbitMQ connection and channel. The exchange, queue and
// binding all share the queue name, matching what the producer declares.
type Broker struct {
	conn  *amqp.Connection
	ch    *amqp.Channel
	queue string
}

func Dial(url, queue string) (*Broker, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial broker: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	if err := ch.Qos(1, 0, false); err != nil {
		conn.Close()
		return nil, fmt.Errorf("set qos: %w", err)
	}

	if err := ch.ExchangeDeclare(queue, "direct", true, false, false, false, nil); err != nil {
		conn.Close()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}
	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		conn.Close()
		return nil, fmt.Errorf("declare queue: %w", err)
	}
	if err := ch.QueueBind(queue, queue, queue, false, nil); err != nil {
		conn.Close()
		return nil, fmt.Errorf("bind queue: %w", err)
	}

	return &Broker{conn: conn, ch: ch, queue: queue}, nil
}

// Consume opens the delivery stream. Deliveries must be acked manually.
func (b *Broker) Consume(ctx context.Context) (<-chan amqp.Delivery, error) {
	deliveries, err := b.ch.ConsumeWithContext(ctx, b.queue, "", false, false, false, false, nil)
	if err != nil {
		return nil, fmt.Errorf("consume %q: %w", b.queue, err)
	}
	return deliveries, nil
}

// Publish places one persistent message on the queue's exchange.
func (b *Broker) Publish(ctx context.Context, body []byte) error {
	err := b.ch.PublishWithContext(ctx, b.queue, b.queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("publish to %q: %w", b.queue, err)
	}
	return nil
}

func (b *Broker) Close() error {
	if err := b.ch.Close(); err != nil {
		b.conn.Close()
		return err
	}
	return b.conn.Close()
}
