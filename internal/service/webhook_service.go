package service

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"qr-psp-gateway/internal/core/domain"
	"qr-psp-gateway/internal/core/ports"
)

// webhookNotifier turns eligible ledger writes into queue messages. It is
// strictly fire-and-forget: any failure here ends in the log and the
// triggering transaction call proceeds untouched.
type webhookNotifier struct {
	webhooks  ports.MerchantWebhookRepository
	cache     ports.WebhookCache
	publisher ports.WebhookPublisher
	cacheTTL  time.Duration
	log       zerolog.Logger
}

// NewWebhookNotifier creates the notifier that sits behind every ledger write.
func NewWebhookNotifier(
	webhooks ports.MerchantWebhookRepository,
	cache ports.WebhookCache,
	publisher ports.WebhookPublisher,
	cacheTTL time.Duration,
	log zerolog.Logger,
) ports.WebhookNotifier {
	return &webhookNotifier{
		webhooks:  webhooks,
		cache:     cache,
		publisher: publisher,
		cacheTTL:  cacheTTL,
		log:       log,
	}
}

func (s *webhookNotifier) Notify(ctx context.Context, op *domain.Operation) {
	if !domain.DirectionNotifies(op.Direction) {
		return
	}
	if !domain.IsWebhookEligible(op.Status) {
		return
	}

	// The merchant's appId is the serviceName carried in the QR payload.
	appID := op.QR.ServiceName
	if appID == "" {
		s.log.Debug().Str("tx_id", op.TransactionID).Msg("webhook: no service name, skipping")
		return
	}

	wh := s.lookup(ctx, appID)
	if wh == nil {
		return
	}

	msg := domain.WebhookMessage{
		TargetURL:   wh.TargetURL,
		APIKeyName:  wh.APIKeyName,
		APIKeyValue: wh.APIKeyValue,
		Payload: domain.WebhookPayload{
			Status:          op.Status.Code(),
			QRTransactionID: op.QR.QRTransactionID,
		},
	}
	if err := s.publisher.Publish(ctx, msg); err != nil {
		s.log.Error().Err(err).
			Str("app_id", appID).
			Str("tx_id", op.TransactionID).
			Msg("webhook: publish failed")
		return
	}

	s.log.Info().
		Str("app_id", appID).
		Str("qr_tx_id", op.QR.QRTransactionID).
		Int("status", op.Status.Code()).
		Msg("webhook: notification enqueued")
}

// lookup resolves the active registration for appID, cache first. Cache
// trouble degrades to a repo read, never to a dropped notification.
func (s *webhookNotifier) lookup(ctx context.Context, appID string) *domain.MerchantWebhook {
	if s.cache != nil {
		if wh, err := s.cache.Get(ctx, appID); err == nil && wh != nil {
			return wh
		}
	}

	wh, err := s.webhooks.GetActiveByAppID(ctx, appID)
	if err != nil {
		if errors.Is(err, ports.ErrNotFound) {
			s.log.Debug().Str("app_id", appID).Msg("webhook: no active registration")
		} else {
			s.log.Error().Err(err).Str("app_id", appID).Msg("webhook: registration lookup failed")
		}
		return nil
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, appID, wh, s.cacheTTL); err != nil {
			s.log.Warn().Err(err).Str("app_id", appID).Msg("webhook: cache write failed")
		}
	}
	return wh
}
