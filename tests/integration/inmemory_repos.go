package integration

import (
	"context"
	"strings"
	"sync"
	"time"

	"qr-psp-gateway/internal/core/domain"
	"qr-psp-gateway/internal/core/ports"
)

// --- In-Memory Operation Repo ---

// inMemoryOperationRepo mirrors the Postgres ledger semantics: unique
// pspTransactionId, transactionId and receiptId, enforced atomically so
// concurrent creates race safely.
type inMemoryOperationRepo struct {
	mu     sync.RWMutex
	byPsp  map[string]*domain.Operation
	nextID int64
}

func newInMemoryOperationRepo() *inMemoryOperationRepo {
	return &inMemoryOperationRepo{byPsp: make(map[string]*domain.Operation)}
}

func (r *inMemoryOperationRepo) Create(_ context.Context, op *domain.Operation) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byPsp[op.PspTransactionID]; exists {
		return ports.ErrDuplicate
	}
	for _, existing := range r.byPsp {
		if op.TransactionID != "" && existing.TransactionID == op.TransactionID {
			return ports.ErrDuplicate
		}
		if op.ReceiptID != "" && existing.ReceiptID == op.ReceiptID {
			return ports.ErrDuplicate
		}
	}

	r.nextID++
	op.ID = r.nextID
	stored := *op
	r.byPsp[op.PspTransactionID] = &stored
	return nil
}

func (r *inMemoryOperationRepo) GetByPspTransactionID(_ context.Context, pspTxID string) (*domain.Operation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	op, ok := r.byPsp[pspTxID]
	if !ok {
		return nil, ports.ErrNotFound
	}
	cp := *op
	return &cp, nil
}

func (r *inMemoryOperationRepo) GetByTransactionID(_ context.Context, txID string) (*domain.Operation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, op := range r.byPsp {
		if op.TransactionID == txID {
			cp := *op
			return &cp, nil
		}
	}
	return nil, ports.ErrNotFound
}

func (r *inMemoryOperationRepo) Update(_ context.Context, op *domain.Operation) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byPsp[op.PspTransactionID]; !ok {
		return ports.ErrNotFound
	}
	stored := *op
	r.byPsp[op.PspTransactionID] = &stored
	return nil
}

func (r *inMemoryOperationRepo) UpdateStatus(_ context.Context, txID string, status domain.Status, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, op := range r.byPsp {
		if op.TransactionID == txID {
			op.SetStatus(status)
			op.LastStatusUpdateAt = &at
			return nil
		}
	}
	return ports.ErrNotFound
}

// --- In-Memory Merchant Webhook Repo ---

type inMemoryWebhookRepo struct {
	mu     sync.RWMutex
	hooks  map[string]*domain.MerchantWebhook // keyed lowercase appId
	nextID int64
}

func newInMemoryWebhookRepo() *inMemoryWebhookRepo {
	return &inMemoryWebhookRepo{hooks: make(map[string]*domain.MerchantWebhook)}
}

func (r *inMemoryWebhookRepo) GetActiveByAppID(_ context.Context, appID string) (*domain.MerchantWebhook, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	wh, ok := r.hooks[strings.ToLower(appID)]
	if !ok || !wh.IsActive {
		return nil, ports.ErrNotFound
	}
	cp := *wh
	return &cp, nil
}

func (r *inMemoryWebhookRepo) Create(_ context.Context, wh *domain.MerchantWebhook) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := strings.ToLower(wh.AppID)
	if _, exists := r.hooks[key]; exists {
		return ports.ErrDuplicate
	}
	r.nextID++
	wh.ID = r.nextID
	stored := *wh
	r.hooks[key] = &stored
	return nil
}

func (r *inMemoryWebhookRepo) Update(_ context.Context, wh *domain.MerchantWebhook) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.hooks {
		if existing.ID == wh.ID {
			existing.MerchantName = wh.MerchantName
			existing.TargetURL = wh.TargetURL
			existing.APIKeyName = wh.APIKeyName
			existing.APIKeyValue = wh.APIKeyValue
			existing.IsActive = wh.IsActive
			existing.UpdatedAt = wh.UpdatedAt
			return nil
		}
	}
	return ports.ErrNotFound
}

func (r *inMemoryWebhookRepo) List(_ context.Context) ([]domain.MerchantWebhook, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.MerchantWebhook, 0, len(r.hooks))
	for _, wh := range r.hooks {
		out = append(out, *wh)
	}
	return out, nil
}

// --- Capturing publisher ---

type capturePublisher struct {
	mu   sync.Mutex
	msgs []domain.WebhookMessage
}

func (p *capturePublisher) Publish(_ context.Context, msg domain.WebhookMessage) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.msgs = append(p.msgs, msg)
	return nil
}

func (p *capturePublisher) messages() []domain.WebhookMessage {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]domain.WebhookMessage(nil), p.msgs...)
}
