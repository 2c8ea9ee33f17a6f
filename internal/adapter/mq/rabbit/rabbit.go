// Package rabbit wires the webhook notification pipeline to RabbitMQ:
// a durable topic exchange, the delivery queue and its dead-letter twin.
package rabbit

import (
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"

	"qr-psp-gateway/config"
)

// Conn owns the AMQP connection and channel plus the declared topology.
type Conn struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	cfg     config.WebhookConfig
	log     zerolog.Logger
}

// Connect dials the broker and declares the webhook topology. Failed
// deliveries are dead-lettered to the DLQ through the default exchange;
// the broker, not the consumer, owns redelivery policy.
func Connect(url string, cfg config.WebhookConfig, log zerolog.Logger) (*Conn, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	if err := declareTopology(channel, cfg); err != nil {
		channel.Close()
		conn.Close()
		return nil, err
	}

	log.Info().
		Str("exchange", cfg.Exchange).
		Str("queue", cfg.Queue).
		Str("dlq", cfg.DLQ).
		Str("routing_key", cfg.RoutingKey).
		Msg("RabbitMQ webhook topology declared")

	return &Conn{conn: conn, channel: channel, cfg: cfg, log: log}, nil
}

func declareTopology(ch *amqp.Channel, cfg config.WebhookConfig) error {
	err := ch.ExchangeDeclare(
		cfg.Exchange, // name
		"topic",      // type
		true,         // durable
		false,        // auto-deleted
		false,        // internal
		false,        // no-wait
		nil,          // arguments
	)
	if err != nil {
		return fmt.Errorf("failed to declare exchange: %w", err)
	}

	if _, err := ch.QueueDeclare(
		cfg.DLQ, // name
		true,    // durable
		false,   // delete when unused
		false,   // exclusive
		false,   // no-wait
		nil,     // arguments
	); err != nil {
		return fmt.Errorf("failed to declare dead-letter queue: %w", err)
	}

	queue, err := ch.QueueDeclare(
		cfg.Queue, // name
		true,      // durable
		false,     // delete when unused
		false,     // exclusive
		false,     // no-wait
		amqp.Table{
			"x-dead-letter-exchange":    "",
			"x-dead-letter-routing-key": cfg.DLQ,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to declare queue: %w", err)
	}

	if err := ch.QueueBind(
		queue.Name,     // queue name
		cfg.RoutingKey, // routing key
		cfg.Exchange,   // exchange
		false,
		nil,
	); err != nil {
		return fmt.Errorf("failed to bind queue: %w", err)
	}
	return nil
}

// Channel exposes the underlying channel for publishing and consuming.
func (c *Conn) Channel() *amqp.Channel { return c.channel }

// Close closes the channel and connection.
func (c *Conn) Close() error {
	if c.channel != nil {
		if err := c.channel.Close(); err != nil {
			c.log.Warn().Err(err).Msg("error closing RabbitMQ channel")
		}
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}
