package dto

import (
	"qr-psp-gateway/internal/core/domain"
)

// ExtraPair is one extra-data key/value on the wire.
type ExtraPair struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// QRFields is the ELQR field set every signed lifecycle request carries.
// Field-level business validation (currency, merchant code, amount bounds)
// belongs to the lifecycle engine, which answers with the protocol's
// numeric codes; binding here only rejects structurally broken JSON.
type QRFields struct {
	QRType                   string      `json:"qrType"`
	MerchantProvider         string      `json:"merchantProvider"`
	MerchantID               string      `json:"merchantId"`
	ServiceID                string      `json:"serviceId"`
	ServiceName              string      `json:"serviceName"`
	BeneficiaryAccountNumber string      `json:"beneficiaryAccountNumber"`
	MerchantCode             int         `json:"merchantCode"`
	CurrencyCode             string      `json:"currencyCode"`
	QRTransactionID          string      `json:"qrTransactionId"`
	QRComment                string      `json:"qrComment"`
	QRLinkHash               string      `json:"qrLinkHash"`
	Extra                    []ExtraPair `json:"extra"`
}

// ToDomain converts the wire fields into the core QR payload.
func (q QRFields) ToDomain() domain.QRPayload {
	var extra []domain.KeyValue
	for _, kv := range q.Extra {
		extra = append(extra, domain.KeyValue{Key: kv.Key, Value: kv.Value})
	}
	return domain.QRPayload{
		QRType:                   q.QRType,
		MerchantProvider:         q.MerchantProvider,
		MerchantID:               q.MerchantID,
		ServiceID:                q.ServiceID,
		ServiceName:              q.ServiceName,
		BeneficiaryAccountNumber: q.BeneficiaryAccountNumber,
		MerchantCode:             q.MerchantCode,
		CurrencyCode:             q.CurrencyCode,
		QRTransactionID:          q.QRTransactionID,
		QRComment:                q.QRComment,
		QRLinkHash:               q.QRLinkHash,
		Extra:                    extra,
	}
}

// TxCheckRequest is the body of POST /in/qr/{version}/tx/check.
type TxCheckRequest struct {
	QRFields
	Amount int64 `json:"amount"`
}

// TxCreateRequest is the body of POST /in/qr/{version}/tx/create.
type TxCreateRequest struct {
	QRFields
	PspTransactionID string `json:"pspTransactionId"`
	TransactionID    string `json:"transactionId"`
	ReceiptID        string `json:"receiptId"`
	Amount           int64  `json:"amount"`
	CustomerType     string `json:"customerType"`
	TransactionType  int    `json:"transactionType"`
}

// TxUpdateRequest is the body of POST /in/qr/{version}/tx/update/{txId}.
type TxUpdateRequest struct {
	Status     int    `json:"status"`
	UpdateDate string `json:"updateDate"`
}

// ClientCheckRequest registers a scanned QR code.
type ClientCheckRequest struct {
	QRURI string `json:"qrUri" binding:"required,max=512"`
}

// ClientPayRequest settles a previously checked QR session.
type ClientPayRequest struct {
	CheckSessionID string `json:"checkSessionId" binding:"required,safe_id"`
	Amount         int64  `json:"amount" binding:"gte=0"`
}

// WebhookRegisterRequest creates a merchant webhook registration.
type WebhookRegisterRequest struct {
	MerchantName string `json:"merchantName" binding:"required,max=200"`
	AppID        string `json:"appId" binding:"required,max=100"`
	TargetURL    string `json:"targetUrl" binding:"required,safe_url"`
	APIKeyName   string `json:"apiKeyName" binding:"required,max=64"`
	APIKeyValue  string `json:"apiKeyValue" binding:"required,max=256"`
}

// WebhookUpdateRequest replaces an existing registration. The full field
// set is required; isActive false deactivates delivery for the appId.
type WebhookUpdateRequest struct {
	MerchantName string `json:"merchantName" binding:"required,max=200"`
	TargetURL    string `json:"targetUrl" binding:"required,safe_url"`
	APIKeyName   string `json:"apiKeyName" binding:"required,max=64"`
	APIKeyValue  string `json:"apiKeyValue" binding:"required,max=256"`
	IsActive     bool   `json:"isActive"`
}

// WebhookResponse is the admin view of a registration. The API-key value
// never leaves the server.
type WebhookResponse struct {
	ID           int64  `json:"id"`
	MerchantName string `json:"merchantName"`
	AppID        string `json:"appId"`
	TargetURL    string `json:"targetUrl"`
	APIKeyName   string `json:"apiKeyName"`
	IsActive     bool   `json:"isActive"`
	CreatedAt    string `json:"createdAt"`
	UpdatedAt    string `json:"updatedAt"`
}

// ToWebhookResponse converts a stored registration to its admin view.
func ToWebhookResponse(wh domain.MerchantWebhook) WebhookResponse {
	return WebhookResponse{
		ID:           wh.ID,
		MerchantName: wh.MerchantName,
		AppID:        wh.AppID,
		TargetURL:    wh.TargetURL,
		APIKeyName:   wh.APIKeyName,
		IsActive:     wh.IsActive,
		CreatedAt:    wh.CreatedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
		UpdatedAt:    wh.UpdatedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
	}
}
