package operator

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qr-psp-gateway/config"
	"qr-psp-gateway/internal/core/domain"
	"qr-psp-gateway/internal/core/ports"
	"qr-psp-gateway/pkg/apperror"
)

// stubSigner records what it was asked to sign.
type stubSigner struct {
	lastBody []byte
	lastURI  string
}

func (s *stubSigner) Sign(body []byte, uri string) (string, error) {
	s.lastBody = body
	s.lastURI = uri
	return "stub-hash", nil
}

func (s *stubSigner) Verify(_ []byte, _, _ string) ports.VerifyResult {
	return ports.VerifyResult{Status: ports.VerifyOK}
}

func testConfig(baseURL string) config.OperatorConfig {
	return config.OperatorConfig{
		BaseURL:         baseURL,
		Version:         "v1",
		SigningVersion:  "1",
		PSPToken:        "tok-123",
		PSPID:           "psp-42",
		ConnectTimeout:  5 * time.Second,
		ReadTimeout:     5 * time.Second,
		WriteTimeout:    5 * time.Second,
		ResponseTimeout: 5 * time.Second,
	}
}

func sampleQR() domain.QRPayload {
	return domain.QRPayload{
		QRType:           "dynamicQr",
		MerchantProvider: "mbank",
		MerchantID:       "m-100",
		ServiceName:      "CoffeeHub",
		MerchantCode:     5411,
		CurrencyCode:     "417",
		QRTransactionID:  "qr-tx-1",
		QRLinkHash:       "a1b2",
	}
}

func appErrCode(t *testing.T, err error) int {
	t.Helper()
	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	return appErr.Code
}

func TestCheckSendsSignedRequest(t *testing.T) {
	var gotPath, gotHash, gotToken, gotID, gotVersion string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotHash = r.Header.Get("H-HASH")
		gotToken = r.Header.Get("H-PSP-TOKEN")
		gotID = r.Header.Get("H-PSP-ID")
		gotVersion = r.Header.Get("H-SIGNING-VERSION")
		json.NewEncoder(w).Encode(ports.CheckResult{BeneficiaryName: "c***e A***o", TransactionType: domain.TransactionC2B})
	}))
	defer srv.Close()

	signer := &stubSigner{}
	c := NewClient(testConfig(srv.URL), signer, zerolog.Nop())

	res, err := c.Check(context.Background(), ports.CheckRequest{QR: sampleQR(), Amount: 5000})
	require.NoError(t, err)

	assert.Equal(t, "c***e A***o", res.BeneficiaryName)
	assert.Equal(t, "/psp/api/v1/payment/qr/v1/tx/check", gotPath)
	assert.Equal(t, "stub-hash", gotHash)
	assert.Equal(t, "tok-123", gotToken)
	assert.Equal(t, "psp-42", gotID)
	assert.Equal(t, "1", gotVersion)
	// Body, not URL, is the signed input when one exists.
	assert.NotEmpty(t, signer.lastBody)
}

func TestExecuteSignsFullURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/psp/api/v1/payment/qr/v1/tx/execute/tx-9", r.URL.Path)
		json.NewEncoder(w).Encode(ports.TransactionResult{TransactionID: "tx-9", Status: domain.StatusSuccess})
	}))
	defer srv.Close()

	signer := &stubSigner{}
	c := NewClient(testConfig(srv.URL), signer, zerolog.Nop())

	res, err := c.Execute(context.Background(), "tx-9")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusSuccess, res.Status)

	assert.Empty(t, signer.lastBody)
	assert.Equal(t, srv.URL+"/psp/api/v1/payment/qr/v1/tx/execute/tx-9", signer.lastURI)
}

func TestExecuteRequiresTransactionID(t *testing.T) {
	c := NewClient(testConfig("http://unused"), &stubSigner{}, zerolog.Nop())
	_, err := c.Execute(context.Background(), "")
	assert.Equal(t, apperror.CodeBadRequest, appErrCode(t, err))
}

func TestUpdateAcceptsEmptyResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/psp/api/v1/payment/qr/v1/tx/update/tx-9", r.URL.Path)
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.EqualValues(t, 40, body["status"])
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewClient(testConfig(srv.URL), &stubSigner{}, zerolog.Nop())
	err := c.Update(context.Background(), "tx-9", domain.StatusCanceled, "2026-08-30T10:00:00Z")
	assert.NoError(t, err)
}

func TestOperatorStatusCodesPassThrough(t *testing.T) {
	cases := map[int]int{
		400: apperror.CodeBadRequest,
		404: apperror.CodeNotFound,
		422: apperror.CodeUnprocessable,
		452: apperror.CodeRecipientDataIncorrect,
		453: apperror.CodeAccessDenied,
		454: apperror.CodeIncorrectRequestData,
		455: apperror.CodeMinAmountInvalid,
		456: apperror.CodeMaxAmountInvalid,
		500: apperror.CodeSystemError,
		523: apperror.CodeSupplierUnavailable,
		524: apperror.CodeExternalServerUnavailable,
	}
	for status, want := range cases {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(status)
		}))
		c := NewClient(testConfig(srv.URL), &stubSigner{}, zerolog.Nop())
		_, err := c.Check(context.Background(), ports.CheckRequest{QR: sampleQR(), Amount: 5000})
		assert.Equal(t, want, appErrCode(t, err), "operator status %d", status)
		srv.Close()
	}
}

func TestUnknownStatusBecomesSystemError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	defer srv.Close()

	c := NewClient(testConfig(srv.URL), &stubSigner{}, zerolog.Nop())
	_, err := c.Check(context.Background(), ports.CheckRequest{QR: sampleQR(), Amount: 5000})
	assert.Equal(t, apperror.CodeSystemError, appErrCode(t, err))
}

func TestSlowOperatorMapsToTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	cfg := testConfig(srv.URL)
	cfg.ResponseTimeout = 50 * time.Millisecond
	c := NewClient(cfg, &stubSigner{}, zerolog.Nop())

	_, err := c.Check(context.Background(), ports.CheckRequest{QR: sampleQR(), Amount: 5000})
	assert.Equal(t, apperror.CodeTimeout, appErrCode(t, err))
}

func TestUnreachableOperatorMapsToConnectionFailure(t *testing.T) {
	// Reserved port with nothing listening.
	c := NewClient(testConfig("http://127.0.0.1:1"), &stubSigner{}, zerolog.Nop())

	_, err := c.Check(context.Background(), ports.CheckRequest{QR: sampleQR(), Amount: 5000})
	assert.Equal(t, apperror.CodeConnectionFailure, appErrCode(t, err))
}
