package rabbit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"

	"qr-psp-gateway/config"
	"qr-psp-gateway/internal/core/domain"
)

// HTTPClient interface for testability.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Consumer drains the webhook queue and delivers each payload to the
// merchant endpoint. A failed delivery is nacked without requeue so the
// dead-letter exchange owns redelivery.
type Consumer struct {
	channel    *amqp.Channel
	queue      string
	httpClient HTTPClient
	log        zerolog.Logger
}

// NewConsumer creates the delivery consumer for the webhook queue.
func NewConsumer(conn *Conn, cfg config.WebhookConfig, log zerolog.Logger) *Consumer {
	return &Consumer{
		channel:    conn.Channel(),
		queue:      cfg.Queue,
		httpClient: &http.Client{Timeout: cfg.HTTPTimeout},
		log:        log,
	}
}

// Start consumes until the context is cancelled.
func (c *Consumer) Start(ctx context.Context) error {
	msgs, err := c.channel.Consume(
		c.queue, // queue
		"",      // consumer tag (auto-generated)
		false,   // auto-ack (we ack manually)
		false,   // exclusive
		false,   // no-local
		false,   // no-wait
		nil,     // args
	)
	if err != nil {
		return fmt.Errorf("failed to register consumer: %w", err)
	}

	c.log.Info().Str("queue", c.queue).Msg("webhook consumer started")

	for {
		select {
		case <-ctx.Done():
			c.log.Info().Msg("webhook consumer stopping")
			return nil
		case msg, ok := <-msgs:
			if !ok {
				return fmt.Errorf("message channel closed")
			}
			c.handle(ctx, msg)
		}
	}
}

func (c *Consumer) handle(ctx context.Context, msg amqp.Delivery) {
	if err := c.deliver(ctx, msg.Body); err != nil {
		c.log.Error().Err(err).Msg("webhook delivery failed")
		if nerr := msg.Nack(false, false); nerr != nil {
			c.log.Error().Err(nerr).Msg("webhook nack failed")
		}
		return
	}
	if aerr := msg.Ack(false); aerr != nil {
		c.log.Error().Err(aerr).Msg("webhook ack failed")
	}
}

// deliver posts the payload to the merchant with the registered API-key
// header. Only a 2xx response counts as delivered.
func (c *Consumer) deliver(ctx context.Context, raw []byte) error {
	var msg domain.WebhookMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		return fmt.Errorf("unmarshal webhook message: %w", err)
	}

	body, err := json.Marshal(msg.Payload)
	if err != nil {
		return fmt.Errorf("marshal webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, msg.TargetURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if msg.APIKeyName != "" {
		req.Header.Set(msg.APIKeyName, msg.APIKeyValue)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("post webhook: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("merchant returned status %d", resp.StatusCode)
	}

	c.log.Info().
		Str("target_url", msg.TargetURL).
		Str("qr_tx_id", msg.Payload.QRTransactionID).
		Int("status", resp.StatusCode).
		Msg("webhook delivered")
	return nil
}
