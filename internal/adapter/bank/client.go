// Package bank implements the fulfillment gateway backed by the internal
// bank core. It speaks the core's own API, not the Operator protocol.
package bank

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"qr-psp-gateway/config"
	"qr-psp-gateway/internal/core/domain"
	"qr-psp-gateway/internal/core/ports"
	"qr-psp-gateway/pkg/apperror"
)

// Client settles transactions against the bank core: an account check
// first, then create and execute on the core ledger.
type Client struct {
	http    *http.Client
	baseURL string
	log     zerolog.Logger
}

// NewClient builds the bank core client.
func NewClient(cfg config.BankConfig, log zerolog.Logger) *Client {
	return &Client{
		http:    &http.Client{Timeout: 30 * time.Second},
		baseURL: cfg.BaseURL,
		log:     log,
	}
}

func (c *Client) Name() string { return "bank" }

type accountCheckRequest struct {
	MerchantID               string `json:"merchantId"`
	BeneficiaryAccountNumber string `json:"beneficiaryAccountNumber"`
	MerchantCode             int    `json:"merchantCode"`
	Amount                   int64  `json:"amount"`
}

type accountCheckResponse struct {
	AccountValid    bool   `json:"accountValid"`
	BeneficiaryName string `json:"beneficiaryName"`
	TransactionType int    `json:"transactionType"`
}

type coreCreateRequest struct {
	domain.QRPayload
	Amount          int64  `json:"amount"`
	CustomerType    string `json:"customerType"`
	TransactionType int    `json:"transactionType"`
	ReceiptID       string `json:"receiptId"`
}

type coreTransactionResponse struct {
	TransactionID   string `json:"transactionId"`
	ReceiptID       string `json:"receiptId"`
	Status          int    `json:"status"`
	BeneficiaryName string `json:"beneficiaryName"`
	Amount          int64  `json:"amount"`
	CreatedDate     string `json:"createdDate"`
	ExecutedDate    string `json:"executedDate"`
}

type coreStatusRequest struct {
	Status     int    `json:"status"`
	UpdateDate string `json:"updateDate"`
}

func (c *Client) Check(ctx context.Context, req ports.CheckRequest) (*ports.CheckResult, error) {
	body := accountCheckRequest{
		MerchantID:               req.QR.MerchantID,
		BeneficiaryAccountNumber: req.QR.BeneficiaryAccountNumber,
		MerchantCode:             req.QR.MerchantCode,
		Amount:                   req.Amount,
	}
	var res accountCheckResponse
	if err := c.post(ctx, c.baseURL+"/api/v1/accounts/check", body, &res); err != nil {
		return nil, err
	}
	if !res.AccountValid {
		return nil, apperror.RecipientDataIncorrect("beneficiary account rejected by bank core")
	}

	txType, err := domain.TransactionTypeFromCode(res.TransactionType)
	if err != nil {
		txType = domain.TransactionC2B
	}
	return &ports.CheckResult{
		BeneficiaryName: res.BeneficiaryName,
		TransactionType: txType,
	}, nil
}

func (c *Client) Create(ctx context.Context, req ports.CreateRequest) (*ports.TransactionResult, error) {
	body := coreCreateRequest{
		QRPayload:       req.QR,
		Amount:          req.Amount,
		CustomerType:    req.CustomerType.Code(),
		TransactionType: req.TransactionType.Code(),
		ReceiptID:       req.ReceiptID,
	}
	var res coreTransactionResponse
	if err := c.post(ctx, c.baseURL+"/api/v1/transactions", body, &res); err != nil {
		return nil, err
	}
	return c.toResult(&res, req.TransactionType)
}

func (c *Client) Execute(ctx context.Context, transactionID string) (*ports.TransactionResult, error) {
	if transactionID == "" {
		return nil, apperror.BadRequest("transaction ID not specified")
	}
	var res coreTransactionResponse
	url := fmt.Sprintf("%s/api/v1/transactions/%s/execute", c.baseURL, transactionID)
	if err := c.post(ctx, url, nil, &res); err != nil {
		return nil, err
	}
	return c.toResult(&res, 0)
}

func (c *Client) Update(ctx context.Context, transactionID string, status domain.Status, updateDate string) error {
	if transactionID == "" {
		return apperror.BadRequest("transaction ID not specified")
	}
	url := fmt.Sprintf("%s/api/v1/transactions/%s/status", c.baseURL, transactionID)
	return c.post(ctx, url, coreStatusRequest{Status: status.Code(), UpdateDate: updateDate}, nil)
}

func (c *Client) toResult(res *coreTransactionResponse, fallbackType domain.TransactionType) (*ports.TransactionResult, error) {
	status, err := domain.StatusFromCode(res.Status)
	if err != nil {
		return nil, apperror.SystemError(fmt.Errorf("bank core returned unknown status %d", res.Status))
	}
	return &ports.TransactionResult{
		TransactionID:   res.TransactionID,
		Status:          status,
		TransactionType: fallbackType,
		Amount:          res.Amount,
		BeneficiaryName: res.BeneficiaryName,
		ReceiptID:       res.ReceiptID,
		CreatedDate:     res.CreatedDate,
		ExecutedDate:    res.ExecutedDate,
	}, nil
}

func (c *Client) post(ctx context.Context, url string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return apperror.SystemError(err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, reader)
	if err != nil {
		return apperror.SystemError(err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return apperror.ClassifyTransport(err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return apperror.NetworkFailure(err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.log.Error().
			Int("status", resp.StatusCode).
			Str("url", url).
			Bytes("body", raw).
			Msg("bank core: error response")
		switch resp.StatusCode {
		case http.StatusBadRequest:
			return apperror.BadRequest("bank core rejected the request")
		case http.StatusNotFound:
			return apperror.NotFound("bank core transaction not found")
		case http.StatusUnprocessableEntity:
			return apperror.Unprocessable("bank core cannot process the transaction")
		case http.StatusServiceUnavailable:
			return apperror.SupplierUnavailable("bank core unavailable")
		default:
			return apperror.SystemError(fmt.Errorf("bank core returned status %d", resp.StatusCode))
		}
	}

	if out == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return apperror.SystemError(fmt.Errorf("decode bank core response: %w", err))
	}
	return nil
}
