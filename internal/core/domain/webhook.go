package domain

import "time"

// MerchantWebhook maps a merchant application id to its notification target.
// Registrations are managed by the admin API and read-only for the
// transaction path. AppID matching is case-insensitive.
type MerchantWebhook struct {
	ID           int64     `json:"id"`
	MerchantName string    `json:"merchantName"`
	AppID        string    `json:"appId"`
	TargetURL    string    `json:"targetUrl"`
	APIKeyName   string    `json:"apiKeyName"`
	APIKeyValue  string    `json:"apiKeyValue"`
	IsActive     bool      `json:"isActive"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// WebhookPayload is the minimal body delivered to a merchant endpoint.
type WebhookPayload struct {
	Status          int    `json:"status"`
	QRTransactionID string `json:"qrTransactionId"`
}

// WebhookMessage is what goes onto the durable queue: everything the
// delivery consumer needs without touching storage again.
type WebhookMessage struct {
	TargetURL   string         `json:"targetUrl"`
	APIKeyName  string         `json:"apiKeyName"`
	APIKeyValue string         `json:"apiKeyValue"`
	Payload     WebhookPayload `json:"payload"`
}

// IsWebhookEligible reports whether a ledger write with the given status
// should notify the merchant. IN_PROCESS never does.
func IsWebhookEligible(s Status) bool {
	return s == StatusCreated || s.IsFinal()
}

// DirectionNotifies reports whether operations moving in the given
// direction trigger notifications at all. OUT-direction operations are
// the gateway's own outbound payments and never notify.
func DirectionNotifies(d TransferDirection) bool {
	return d == DirectionIn || d == DirectionOwn
}
