package ports

import (
	"context"
	"crypto/rsa"

	"qr-psp-gateway/internal/core/domain"
)

// KeyStore exposes the RSA key material loaded at startup. Loading happens
// once; a failure there is fatal, never a per-request error.
type KeyStore interface {
	PSPPrivateKey() *rsa.PrivateKey
	CounterpartyPublicKey() *rsa.PublicKey
	// Enabled reports whether signature enforcement is switched on.
	Enabled() bool
}

// VerifyStatus classifies the outcome of a signature verification.
type VerifyStatus int

const (
	VerifyOK VerifyStatus = iota
	VerifyMissingSignature
	VerifyNoData
	VerifyMismatch
	VerifyCryptoError
)

// VerifyResult is the typed outcome of Verify. Routine mismatches are a
// result, not an error.
type VerifyResult struct {
	Status VerifyStatus
	Reason string
}

// OK reports whether verification succeeded.
func (r VerifyResult) OK() bool { return r.Status == VerifyOK }

// SignatureService signs outbound payloads and verifies inbound ones.
// The canonical input is the request body when present, otherwise the
// UTF-8 bytes of the full request URI.
type SignatureService interface {
	Sign(body []byte, uri string) (string, error)
	Verify(body []byte, uri, signature string) VerifyResult
}

// RequestMeta carries the audit attributes of an inbound request.
type RequestMeta struct {
	Actor     string
	IPAddress string
	UserAgent string
}

// CheckRequest is the shared shape of a lifecycle check call.
type CheckRequest struct {
	QR     domain.QRPayload
	Amount int64
}

// CheckResult is what a fulfillment path resolves for a check.
type CheckResult struct {
	BeneficiaryName string                 `json:"beneficiaryName"`
	TransactionType domain.TransactionType `json:"transactionType"`
}

// CreateRequest is the shared shape of a lifecycle create call.
type CreateRequest struct {
	QR               domain.QRPayload
	PspTransactionID string
	TransactionID    string
	ReceiptID        string
	Amount           int64
	CustomerType     domain.CustomerType
	TransactionType  domain.TransactionType
}

// TransactionResult is the response shape shared by create and execute.
type TransactionResult struct {
	TransactionID   string                 `json:"transactionId"`
	Status          domain.Status          `json:"status"`
	TransactionType domain.TransactionType `json:"transactionType"`
	Amount          int64                  `json:"amount"`
	BeneficiaryName string                 `json:"beneficiaryName"`
	CustomerType    string                 `json:"customerType"`
	ReceiptID       string                 `json:"receiptId"`
	CreatedDate     string                 `json:"createdDate"`
	ExecutedDate    string                 `json:"executedDate"`
}

// FulfillmentGateway is one side a transaction can settle against: the
// internal bank path or the external Operator network. The Router picks
// one per transaction.
type FulfillmentGateway interface {
	Check(ctx context.Context, req CheckRequest) (*CheckResult, error)
	Create(ctx context.Context, req CreateRequest) (*TransactionResult, error)
	Execute(ctx context.Context, transactionID string) (*TransactionResult, error)
	Update(ctx context.Context, transactionID string, status domain.Status, updateDate string) error
	// Name identifies the path in logs.
	Name() string
}

// Router chooses the fulfillment path for a QR payload's provider.
type Router interface {
	Route(merchantProvider string) FulfillmentGateway
}

// TransactionService is the lifecycle engine for inbound (direction IN)
// operations arriving from the Operator.
type TransactionService interface {
	Check(ctx context.Context, req CheckRequest, meta RequestMeta) (*CheckResult, error)
	Create(ctx context.Context, req CreateRequest, meta RequestMeta) (*TransactionResult, error)
	Execute(ctx context.Context, transactionID string, meta RequestMeta) (*TransactionResult, error)
	Update(ctx context.Context, transactionID string, status domain.Status, updateDate string, meta RequestMeta) error
}

// QRCheckResult is the client-facing outcome of decoding and registering
// a scanned QR code.
type QRCheckResult struct {
	CheckSessionID  string           `json:"checkSessionId"`
	BeneficiaryName string           `json:"beneficiaryName"`
	QR              domain.QRPayload `json:"qr"`
	Amount          int64            `json:"amount,omitempty"`
}

// PaymentResult is the client-facing outcome of a completed payment.
type PaymentResult struct {
	ReceiptID     string        `json:"receiptId"`
	TransactionID string        `json:"transactionId"`
	Amount        int64         `json:"amount"`
	Status        domain.Status `json:"status"`
	CreatedDate   string        `json:"createdDate"`
}

// ClientService drives payments our own customers initiate from a QR scan.
type ClientService interface {
	CheckQR(ctx context.Context, qrURI string, meta RequestMeta) (*QRCheckResult, error)
	Pay(ctx context.Context, checkSessionID string, amount int64, meta RequestMeta) (*PaymentResult, error)
}

// WebhookPublisher hands a message to the durable queue.
type WebhookPublisher interface {
	Publish(ctx context.Context, msg domain.WebhookMessage) error
}

// WebhookNotifier evaluates eligibility after a ledger write and enqueues
// a notification. It must never block or fail the triggering call; all
// failures end in the log.
type WebhookNotifier interface {
	Notify(ctx context.Context, op *domain.Operation)
}

// WebhookAdminService manages merchant webhook registrations.
type WebhookAdminService interface {
	Register(ctx context.Context, wh *domain.MerchantWebhook) error
	Update(ctx context.Context, wh *domain.MerchantWebhook) error
	List(ctx context.Context) ([]domain.MerchantWebhook, error)
}
