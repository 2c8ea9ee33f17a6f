package rabbit

import (
	"context"
	"encoding/json"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"

	"qr-psp-gateway/config"
	"qr-psp-gateway/internal/core/domain"
)

// channelPublisher is the slice of amqp.Channel the publisher needs.
type channelPublisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// Publisher implements ports.WebhookPublisher over the webhook exchange.
// Messages are persistent so they survive a broker restart.
type Publisher struct {
	channel    channelPublisher
	exchange   string
	routingKey string
	log        zerolog.Logger
}

// NewPublisher creates a publisher bound to the configured exchange.
func NewPublisher(channel channelPublisher, cfg config.WebhookConfig, log zerolog.Logger) *Publisher {
	return &Publisher{
		channel:    channel,
		exchange:   cfg.Exchange,
		routingKey: cfg.RoutingKey,
		log:        log,
	}
}

// Publish enqueues one webhook message.
func (p *Publisher) Publish(ctx context.Context, msg domain.WebhookMessage) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal webhook message: %w", err)
	}

	err = p.channel.PublishWithContext(ctx,
		p.exchange,
		p.routingKey,
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("publish webhook message: %w", err)
	}

	p.log.Debug().
		Str("target_url", msg.TargetURL).
		Str("qr_tx_id", msg.Payload.QRTransactionID).
		Msg("webhook message published")
	return nil
}
