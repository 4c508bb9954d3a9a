package messaging

import (
	"context"
	"log/slog"

	"wordvault-go/internal/metrics"
	"wordvault-go/internal/user"
	"wordvault-go/internal/word"
)

// Publisher serializes domain events into envelopes and places them on the
// broker, one envelope per write intent.
type Publisher struct {
	broker *Broker
	logger *slog.Logger
}

func NewPublisher(broker *Broker, logger *slog.Logger) *Publisher {
	return &Publisher{broker: broker, logger: logger}
}

func (p *Publisher) publish(ctx context.Context, purpose Purpose, key string, payload any) error {
	body, err := EncodeEnvelope(purpose, key, payload)
	if err != nil {
		return err
	}
	if err := p.broker.Publish(ctx, body); err != nil {
		return err
	}
	metrics.PublishedTotal.WithLabelValues(string(purpose)).Inc()
	p.logger.Info("event published", "purpose", purpose)
	return nil
}

func (p *Publisher) PublishUser(ctx context.Context, u user.User) error {
	return p.publish(ctx, PurposeAddUser, "user", u)
}

func (p *Publisher) PublishProfile(ctx context.Context, prof user.Profile) error {
	return p.publish(ctx, PurposeAddProfile, "profile", prof)
}

func (p *Publisher) PublishLocation(ctx context.Context, l user.Location) error {
	return p.publish(ctx, PurposeAddLocation, "location", l)
}

func (p *Publisher) PublishWord(ctx context.Context, w word.Word) error {
	return p.publish(ctx, PurposeAddWord, "word", w)
}

func (p *Publisher) PublishPayment(ctx context.Context, pay user.Payment) error {
	return p.publish(ctx, PurposeCreatePayment, "payment", pay)
}
