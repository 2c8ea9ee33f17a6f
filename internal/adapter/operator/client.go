// Package operator implements the fulfillment gateway backed by the
// external Operator network.
package operator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"

	"github.com/rs/zerolog"

	"qr-psp-gateway/config"
	"qr-psp-gateway/internal/core/domain"
	"qr-psp-gateway/internal/core/ports"
	"qr-psp-gateway/pkg/apperror"
)

const basePath = "/psp/api/v1/payment/qr"

// Client posts signed lifecycle requests to the Operator. Every request
// carries the static identity headers plus H-HASH over the canonical input
// (the JSON body, or the full URL when there is none).
type Client struct {
	http   *http.Client
	cfg    config.OperatorConfig
	signer ports.SignatureService
	log    zerolog.Logger
}

// NewClient builds the Operator client with the protocol's connect and
// response deadlines baked into the transport.
func NewClient(cfg config.OperatorConfig, signer ports.SignatureService, log zerolog.Logger) *Client {
	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout: cfg.ConnectTimeout,
		}).DialContext,
		TLSHandshakeTimeout:   cfg.ConnectTimeout,
		ResponseHeaderTimeout: cfg.ReadTimeout,
	}
	return &Client{
		http: &http.Client{
			Transport: transport,
			Timeout:   cfg.ResponseTimeout,
		},
		cfg:    cfg,
		signer: signer,
		log:    log,
	}
}

func (c *Client) Name() string { return "operator" }

func (c *Client) url(op string) string {
	return fmt.Sprintf("%s%s/%s/tx/%s", c.cfg.BaseURL, basePath, c.cfg.Version, op)
}

// checkRequest is the operator wire shape of a check call: the flattened
// QR field set plus the amount.
type checkRequest struct {
	domain.QRPayload
	Amount int64 `json:"amount"`
}

type createRequest struct {
	domain.QRPayload
	PspTransactionID string                 `json:"pspTransactionId"`
	ReceiptID        string                 `json:"receiptId"`
	Amount           int64                  `json:"amount"`
	CustomerType     string                 `json:"customerType"`
	TransactionType  domain.TransactionType `json:"transactionType"`
}

type updateRequest struct {
	Status     domain.Status `json:"status"`
	UpdateDate string        `json:"updateDate"`
}

func (c *Client) Check(ctx context.Context, req ports.CheckRequest) (*ports.CheckResult, error) {
	var out ports.CheckResult
	if err := c.post(ctx, c.url("check"), checkRequest{QRPayload: req.QR, Amount: req.Amount}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Create(ctx context.Context, req ports.CreateRequest) (*ports.TransactionResult, error) {
	body := createRequest{
		QRPayload:        req.QR,
		PspTransactionID: req.PspTransactionID,
		ReceiptID:        req.ReceiptID,
		Amount:           req.Amount,
		CustomerType:     req.CustomerType.Code(),
		TransactionType:  req.TransactionType,
	}
	var out ports.TransactionResult
	if err := c.post(ctx, c.url("create"), body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Execute(ctx context.Context, transactionID string) (*ports.TransactionResult, error) {
	if transactionID == "" {
		return nil, apperror.BadRequest("transaction ID not specified")
	}
	var out ports.TransactionResult
	if err := c.post(ctx, c.url("execute/"+transactionID), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Update(ctx context.Context, transactionID string, status domain.Status, updateDate string) error {
	if transactionID == "" {
		return apperror.BadRequest("transaction ID not specified")
	}
	return c.post(ctx, c.url("update/"+transactionID), updateRequest{Status: status, UpdateDate: updateDate}, nil)
}

// post signs and sends one request. A nil body signs the full URL instead.
func (c *Client) post(ctx context.Context, url string, body, out any) error {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return apperror.SystemError(err)
		}
	}

	hash, err := c.signer.Sign(payload, url)
	if err != nil {
		return apperror.SystemError(fmt.Errorf("sign operator request: %w", err))
	}

	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, reader)
	if err != nil {
		return apperror.SystemError(err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("H-HASH", hash)
	req.Header.Set("H-PSP-TOKEN", c.cfg.PSPToken)
	req.Header.Set("H-PSP-ID", c.cfg.PSPID)
	req.Header.Set("H-SIGNING-VERSION", c.cfg.SigningVersion)

	resp, err := c.http.Do(req)
	if err != nil {
		return translateTransportError(err)
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
			Msg("operator: error response")
		return translateStatus(resp.StatusCode)
	}

	if out == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return apperror.SystemError(fmt.Errorf("decode operator response: %w", err))
	}
	return nil
}
