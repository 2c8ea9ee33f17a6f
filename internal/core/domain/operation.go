package domain

import (
	"fmt"
	"time"
)

// Amount bounds in minor currency units, shared by check and create.
const (
	MinAmount = 100
	MaxAmount = 1_000_000
)

// CurrencyKGS is the only currency code the gateway accepts.
const CurrencyKGS = "417"

// MaxExtraData caps the key/value pairs an operation may carry.
const MaxExtraData = 5

// KeyValue is one extra-data pair attached to an operation, ordered by index.
type KeyValue struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// QRPayload is the field set decoded from a scanned QR code (ELQR data).
// Every request shape that carries QR fields embeds this one struct.
type QRPayload struct {
	QRType                   string     `json:"qrType"`
	MerchantProvider         string     `json:"merchantProvider"`
	MerchantID               string     `json:"merchantId"`
	ServiceID                string     `json:"serviceId"`
	ServiceName              string     `json:"serviceName"`
	BeneficiaryAccountNumber string     `json:"beneficiaryAccountNumber"`
	MerchantCode             int        `json:"merchantCode"`
	CurrencyCode             string     `json:"currencyCode"`
	QRTransactionID          string     `json:"qrTransactionId,omitempty"`
	QRComment                string     `json:"qrComment,omitempty"`
	QRLinkHash               string     `json:"qrLinkHash"`
	Extra                    []KeyValue `json:"extra,omitempty"`
}

// Operation is the persisted record of one lifecycle step for one QR
// transaction. PspTransactionID is assigned internally and never changes;
// TransactionID and ReceiptID are counterparty-assigned and unique when set.
type Operation struct {
	ID               int64
	PspTransactionID string
	OperationType    OperationType
	Direction        TransferDirection
	TransactionID    string
	ReceiptID        string

	QR QRPayload

	CustomerType    CustomerType
	Amount          int64
	TransactionType TransactionType
	Status          Status
	BeneficiaryName string

	ErrorMessage string
	RetryCount   int
	MaxRetries   int
	IsFinal      bool

	CreatedAt          time.Time
	UpdatedAt          time.Time
	ExecutedAt         *time.Time
	LastStatusUpdateAt *time.Time

	CreatedBy string
	UpdatedBy string
	IPAddress string
	UserAgent string
}

// SetStatus applies a status and keeps the finality flag in sync.
func (o *Operation) SetStatus(s Status) {
	o.Status = s
	o.IsFinal = s.IsFinal()
}

// Validate checks the invariants a payment operation must satisfy before
// it is written to the ledger. CHECK sessions for static QR codes are
// exempt: they hold Amount 0 until the customer supplies one at pay time.
func (o *Operation) Validate() error {
	if o.PspTransactionID == "" {
		return fmt.Errorf("pspTransactionId is required")
	}
	if o.Amount <= 0 {
		return fmt.Errorf("amount must be positive, got %d", o.Amount)
	}
	if o.QR.CurrencyCode != CurrencyKGS {
		return fmt.Errorf("unsupported currency code: %q", o.QR.CurrencyCode)
	}
	if o.QR.MerchantCode < 0 || o.QR.MerchantCode > 9999 {
		return fmt.Errorf("merchant code out of range: %d", o.QR.MerchantCode)
	}
	if len(o.QR.Extra) > MaxExtraData {
		return fmt.Errorf("at most %d extra data pairs allowed, got %d", MaxExtraData, len(o.QR.Extra))
	}
	for _, kv := range o.QR.Extra {
		if len(kv.Key) > 64 || len(kv.Value) > 256 {
			return fmt.Errorf("extra data pair %q exceeds size limits", kv.Key)
		}
	}
	if o.IsFinal != o.Status.IsFinal() {
		return fmt.Errorf("isFinal flag out of sync with status %s", o.Status)
	}
	return nil
}
