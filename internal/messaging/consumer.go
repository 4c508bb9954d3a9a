package messaging

import (
	"context"
	"log/slog"

	amqp "github.com/rabbitmq/amqp091-go"

	"wordvault-go/internal/metrics"
)

// Consumer dequeues envelopes, resolves a handler through the registry and
// invokes it. Processing is at-most-once: every delivery is acknowledged
// exactly once whether the handler succeeds, fails, or does not exist, so
// the broker never redelivers. A failed handler is logged and its message
// dropped.
type Consumer struct {
	registry *Registry
	logger   *slog.Logger
}

func NewConsumer(registry *Registry, logger *slog.Logger) *Consumer {
	return &Consumer{registry: registry, logger: logger}
}

// Run processes deliveries until ctx is cancelled or the stream closes. The
// delivery being handled when ctx is cancelled runs to completion.
func (c *Consumer) Run(ctx context.Context, deliveries <-chan amqp.Delivery) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-deliveries:
			if !ok {
				return nil
			}
			c.Handle(ctx, d)
		}
	}
}

// Handle processes a single delivery. The ack happens on every exit path.
func (c *Consumer) Handle(ctx context.Context, d amqp.Delivery) {
	defer func() {
		if err := d.Ack(false); err != nil {
			c.logger.Error("acknowledging message", "error", err)
		}
	}()

	env, err := DecodeEnvelope(d.Body)
	if err != nil {
		metrics.MessagesDropped.Inc()
		c.logger.Warn("dropping malformed message", "error", err)
		return
	}

	handler, ok := c.registry.Resolve(env.Purpose)
	if !ok {
		metrics.MessagesDropped.Inc()
		c.logger.Warn("no handler registered, dropping message", "purpose", env.Purpose)
		return
	}

	if err := handler(ctx, env); err != nil {
		metrics.HandlerFailures.Inc()
		c.logger.Error("handler failed", "purpose", env.Purpose, "error", err)
		return
	}

	metrics.MessagesConsumed.WithLabelValues(string(env.Purpose)).Inc()
	c.logger.Info("message processed", "purpose", env.Purpose)
}
