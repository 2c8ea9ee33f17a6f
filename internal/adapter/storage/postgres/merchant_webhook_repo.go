package postgres

import (
	"context"
	"errors"
	"fmt"

	"qr-psp-gateway/internal/core/domain"
	"qr-psp-gateway/internal/core/ports"

	"github.com/jackc/pgx/v5"
)

// MerchantWebhookRepo implements ports.MerchantWebhookRepository.
type MerchantWebhookRepo struct {
	pool Pool
}

// NewMerchantWebhookRepo creates a new MerchantWebhookRepo.
func NewMerchantWebhookRepo(pool Pool) *MerchantWebhookRepo {
	return &MerchantWebhookRepo{pool: pool}
}

const webhookColumns = `id, merchant_name, app_id, target_url, api_key_name, api_key_value, is_active, created_at, updated_at`

// GetActiveByAppID fetches the active registration for an application id.
// Matching is case-insensitive.
func (r *MerchantWebhookRepo) GetActiveByAppID(ctx context.Context, appID string) (*domain.MerchantWebhook, error) {
	query := fmt.Sprintf(`SELECT %s FROM merchant_webhooks WHERE lower(app_id) = lower($1) AND is_active`, webhookColumns)
	return r.scanWebhook(r.pool.QueryRow(ctx, query, appID))
}

// Create inserts a new registration.
func (r *MerchantWebhookRepo) Create(ctx context.Context, wh *domain.MerchantWebhook) error {
	query := `INSERT INTO merchant_webhooks (merchant_name, app_id, target_url, api_key_name, api_key_value, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id`

	err := r.pool.QueryRow(ctx, query,
		wh.MerchantName, wh.AppID, wh.TargetURL, wh.APIKeyName, wh.APIKeyValue,
		wh.IsActive, wh.CreatedAt, wh.UpdatedAt,
	).Scan(&wh.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return ports.ErrDuplicate
		}
		return fmt.Errorf("insert merchant webhook: %w", err)
	}
	return nil
}

// Update rewrites an existing registration.
func (r *MerchantWebhookRepo) Update(ctx context.Context, wh *domain.MerchantWebhook) error {
	query := `UPDATE merchant_webhooks SET merchant_name = $1, target_url = $2, api_key_name = $3,
		api_key_value = $4, is_active = $5, updated_at = $6
		WHERE id = $7`

	tag, err := r.pool.Exec(ctx, query,
		wh.MerchantName, wh.TargetURL, wh.APIKeyName, wh.APIKeyValue, wh.IsActive, wh.UpdatedAt, wh.ID,
	)
	if err != nil {
		return fmt.Errorf("update merchant webhook: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ports.ErrNotFound
	}
	return nil
}

// List returns all registrations, newest first.
func (r *MerchantWebhookRepo) List(ctx context.Context) ([]domain.MerchantWebhook, error) {
	query := fmt.Sprintf(`SELECT %s FROM merchant_webhooks ORDER BY created_at DESC`, webhookColumns)

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list merchant webhooks: %w", err)
	}
	defer rows.Close()

	var hooks []domain.MerchantWebhook
	for rows.Next() {
		var wh domain.MerchantWebhook
		if err := rows.Scan(
			&wh.ID, &wh.MerchantName, &wh.AppID, &wh.TargetURL,
			&wh.APIKeyName, &wh.APIKeyValue, &wh.IsActive, &wh.CreatedAt, &wh.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan merchant webhook row: %w", err)
		}
		hooks = append(hooks, wh)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate merchant webhook rows: %w", err)
	}
	return hooks, nil
}

func (r *MerchantWebhookRepo) scanWebhook(row pgx.Row) (*domain.MerchantWebhook, error) {
	wh := &domain.MerchantWebhook{}
	err := row.Scan(
		&wh.ID, &wh.MerchantName, &wh.AppID, &wh.TargetURL,
		&wh.APIKeyName, &wh.APIKeyValue, &wh.IsActive, &wh.CreatedAt, &wh.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ports.ErrNotFound
		}
		return nil, fmt.Errorf("scan merchant webhook: %w", err)
	}
	return wh, nil
}
