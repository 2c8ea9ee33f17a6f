package ports

import (
	"context"
	"errors"
	"time"

	"qr-psp-gateway/internal/core/domain"
)

// ErrDuplicate is returned by repositories when a write violates one of
// the uniqueness constraints (pspTransactionId, transactionId, receiptId,
// appId). Races between concurrent creates resolve here, not via locks.
var ErrDuplicate = errors.New("unique constraint violated")

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("not found")

// OperationRepository is the persisted ledger of lifecycle steps.
type OperationRepository interface {
	Create(ctx context.Context, op *domain.Operation) error
	GetByPspTransactionID(ctx context.Context, pspTxID string) (*domain.Operation, error)
	GetByTransactionID(ctx context.Context, txID string) (*domain.Operation, error)
	// Update rewrites the mutable fields of an existing operation.
	Update(ctx context.Context, op *domain.Operation) error
	// UpdateStatus persists a status change and lastStatusUpdateAt.
	UpdateStatus(ctx context.Context, txID string, status domain.Status, at time.Time) error
}

// MerchantWebhookRepository stores merchant notification registrations.
// AppID lookups are case-insensitive.
type MerchantWebhookRepository interface {
	GetActiveByAppID(ctx context.Context, appID string) (*domain.MerchantWebhook, error)
	Create(ctx context.Context, wh *domain.MerchantWebhook) error
	Update(ctx context.Context, wh *domain.MerchantWebhook) error
	List(ctx context.Context) ([]domain.MerchantWebhook, error)
}

// WebhookCache fronts MerchantWebhookRepository lookups on the hot path.
// A cache miss or error is never fatal; callers fall through to the repo.
type WebhookCache interface {
	Get(ctx context.Context, appID string) (*domain.MerchantWebhook, error)
	Set(ctx context.Context, appID string, wh *domain.MerchantWebhook, ttl time.Duration) error
}
