package service

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"qr-psp-gateway/internal/core/domain"
	"qr-psp-gateway/internal/core/ports"
	"qr-psp-gateway/pkg/apperror"
)

// webhookAdminService manages merchant webhook registrations. Changes
// become visible to the notifier once the cache entry for the appId
// expires; there is no explicit invalidation.
type webhookAdminService struct {
	webhooks ports.MerchantWebhookRepository
	log      zerolog.Logger
}

// NewWebhookAdminService creates the admin-facing registration service.
func NewWebhookAdminService(webhooks ports.MerchantWebhookRepository, log zerolog.Logger) ports.WebhookAdminService {
	return &webhookAdminService{webhooks: webhooks, log: log}
}

func validateWebhook(wh *domain.MerchantWebhook) error {
	switch {
	case wh.AppID == "":
		return apperror.BadRequest("appId is required")
	case wh.TargetURL == "":
		return apperror.BadRequest("targetUrl is required")
	case wh.APIKeyName == "":
		return apperror.BadRequest("apiKeyName is required")
	case wh.APIKeyValue == "":
		return apperror.BadRequest("apiKeyValue is required")
	}
	return nil
}

func (s *webhookAdminService) Register(ctx context.Context, wh *domain.MerchantWebhook) error {
	if err := validateWebhook(wh); err != nil {
		return err
	}

	now := time.Now().UTC()
	wh.CreatedAt = now
	wh.UpdatedAt = now

	if err := s.webhooks.Create(ctx, wh); err != nil {
		if errors.Is(err, ports.ErrDuplicate) {
			return apperror.Unprocessable("appId already registered")
		}
		return apperror.SystemError(err)
	}

	s.log.Info().
		Str("app_id", wh.AppID).
		Str("target_url", wh.TargetURL).
		Msg("merchant webhook registered")
	return nil
}

func (s *webhookAdminService) Update(ctx context.Context, wh *domain.MerchantWebhook) error {
	if wh.ID <= 0 {
		return apperror.BadRequest("id is required")
	}
	// appId is immutable; only the delivery fields get validated here.
	switch {
	case wh.TargetURL == "":
		return apperror.BadRequest("targetUrl is required")
	case wh.APIKeyName == "":
		return apperror.BadRequest("apiKeyName is required")
	case wh.APIKeyValue == "":
		return apperror.BadRequest("apiKeyValue is required")
	}

	wh.UpdatedAt = time.Now().UTC()

	if err := s.webhooks.Update(ctx, wh); err != nil {
		if errors.Is(err, ports.ErrNotFound) {
			return apperror.NotFound("webhook registration not found")
		}
		return apperror.SystemError(err)
	}

	s.log.Info().
		Int64("id", wh.ID).
		Bool("is_active", wh.IsActive).
		Msg("merchant webhook updated")
	return nil
}

func (s *webhookAdminService) List(ctx context.Context) ([]domain.MerchantWebhook, error) {
	hooks, err := s.webhooks.List(ctx)
	if err != nil {
		return nil, apperror.SystemError(err)
	}
	return hooks, nil
}
