package integration

import (
	"bytes"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qr-psp-gateway/config"
	httpHandler "qr-psp-gateway/internal/adapter/http/handler"
	"qr-psp-gateway/internal/adapter/operator"
	redisStorage "qr-psp-gateway/internal/adapter/storage/redis"
	"qr-psp-gateway/internal/core/domain"
	"qr-psp-gateway/internal/core/ports"
	"qr-psp-gateway/internal/service"
)

// testApp wires the real HTTP layer, signature middleware, services and
// redis-backed webhook cache against in-memory repos, a miniredis
// instance, an in-process operator stub, and a capturing publisher.
type testApp struct {
	server   *httptest.Server
	operator *httptest.Server
	sig      ports.SignatureService
	ops      *inMemoryOperationRepo
	webhooks *inMemoryWebhookRepo
	pub      *capturePublisher
}

func writeKeyPair(t *testing.T) (privPath, pubPath string) {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	dir := t.TempDir()

	privDER, err := x509.MarshalPKCS8PrivateKey(key)
	require.NoError(t, err)
	privPath = filepath.Join(dir, "psp_private.pem")
	require.NoError(t, os.WriteFile(privPath, pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: privDER}), 0o600))

	pubDER, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	require.NoError(t, err)
	pubPath = filepath.Join(dir, "operator_public.pem")
	require.NoError(t, os.WriteFile(pubPath, pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pubDER}), 0o600))

	return privPath, pubPath
}

// operatorStub mimics the Operator's four lifecycle endpoints.
func operatorStub() *httptest.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/psp/api/v1/payment/qr/v1/tx/check", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"beneficiaryName":"Coffee Hub LLC","transactionType":20}`)
	})
	mux.HandleFunc("/psp/api/v1/payment/qr/v1/tx/create", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			PspTransactionID string `json:"pspTransactionId"`
			ReceiptID        string `json:"receiptId"`
			Amount           int64  `json:"amount"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"transactionId":   "op-" + req.PspTransactionID,
			"status":          10,
			"transactionType": 20,
			"amount":          req.Amount,
			"beneficiaryName": "Coffee Hub LLC",
			"customerType":    "1",
			"receiptId":       req.ReceiptID,
		})
	})
	mux.HandleFunc("/psp/api/v1/payment/qr/v1/tx/execute/", func(w http.ResponseWriter, r *http.Request) {
		txID := strings.TrimPrefix(r.URL.Path, "/psp/api/v1/payment/qr/v1/tx/execute/")
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"transactionId": txID,
			"status":        50,
		})
	})
	mux.HandleFunc("/psp/api/v1/payment/qr/v1/tx/update/", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return httptest.NewServer(mux)
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	gin.SetMode(gin.TestMode)
	log := zerolog.Nop()

	// Same keypair plays both roles, so our own signatures verify.
	privPath, pubPath := writeKeyPair(t)
	keys, err := service.NewFileKeyStore(privPath, pubPath, true)
	require.NoError(t, err)
	sigSvc := service.NewRSASignatureService(keys, log)

	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	opStub := operatorStub()
	t.Cleanup(opStub.Close)

	operatorClient := operator.NewClient(config.OperatorConfig{
		BaseURL:         opStub.URL,
		Version:         "v1",
		SigningVersion:  "1",
		PSPToken:        "test-token",
		PSPID:           "psp-test",
		ConnectTimeout:  2 * time.Second,
		ReadTimeout:     5 * time.Second,
		ResponseTimeout: 10 * time.Second,
	}, sigSvc, log)

	ops := newInMemoryOperationRepo()
	webhooks := newInMemoryWebhookRepo()
	pub := &capturePublisher{}

	// Seed a registration so lifecycle writes notify.
	require.NoError(t, webhooks.Create(t.Context(), &domain.MerchantWebhook{
		MerchantName: "Coffee Hub LLC",
		AppID:        "CoffeeHub",
		TargetURL:    "https://coffeehub.example/hooks/psp",
		APIKeyName:   "X-Api-Key",
		APIKeyValue:  "s3cret",
		IsActive:     true,
	}))

	cache := redisStorage.NewWebhookCache(rdb)
	notifier := service.NewWebhookNotifier(webhooks, cache, pub, time.Minute, log)

	// Everything routes to the operator stub; no request carries the own
	// provider in these tests.
	router := service.NewProviderRouter("demirbank", operatorClient, operatorClient, log)

	txSvc := service.NewTransactionService(ops, router, notifier, log)
	clientSvc := service.NewClientService(ops, router, notifier, "demirbank", log)
	adminSvc := service.NewWebhookAdminService(webhooks, log)

	engine := httpHandler.SetupRouter(httpHandler.RouterDeps{
		TransactionSvc: txSvc,
		ClientSvc:      clientSvc,
		WebhookAdmin:   adminSvc,
		SigSvc:         sigSvc,
		AdminCfg:       config.AdminConfig{JWTSecret: "test-secret", Issuer: "qr-psp-gateway"},
		Logger:         log,
	})

	srv := httptest.NewServer(engine)
	t.Cleanup(srv.Close)

	return &testApp{
		server:   srv,
		operator: opStub,
		sig:      sigSvc,
		ops:      ops,
		webhooks: webhooks,
		pub:      pub,
	}
}

// signedPost signs body (or, when body is empty, the full request URL)
// the way the counterparty would and posts it.
func (app *testApp) signedPost(t *testing.T, path string, body []byte) *http.Response {
	t.Helper()

	hash, err := app.sig.Sign(body, app.server.URL+path)
	require.NoError(t, err)

	var reader io.Reader
	if len(body) > 0 {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequest(http.MethodPost, app.server.URL+path, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("H-HASH", hash)
	req.Header.Set("H-PSP-ID", "operator-west")
	req.Header.Set("H-SIGNING-VERSION", "1")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, out interface{}) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
}

func createBody(pspTxID string) []byte {
	return []byte(fmt.Sprintf(`{
		"merchantProvider": "operator-west",
		"serviceName": "CoffeeHub",
		"merchantCode": 5411,
		"currencyCode": "417",
		"qrTransactionId": "qr-tx-1",
		"qrLinkHash": "a1b2",
		"pspTransactionId": %q,
		"transactionId": "tx-%s",
		"receiptId": "rcpt-%s",
		"amount": 5000,
		"customerType": "1",
		"transactionType": 20
	}`, pspTxID, pspTxID, pspTxID))
}

func TestInboundLifecycleEndToEnd(t *testing.T) {
	app := newTestApp(t)

	// check
	resp := app.signedPost(t, "/in/qr/v1/tx/check", []byte(`{
		"merchantProvider": "operator-west",
		"currencyCode": "417",
		"merchantCode": 5411,
		"amount": 5000
	}`))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var check ports.CheckResult
	decodeBody(t, resp, &check)
	assert.Equal(t, "Coffee Hub LLC", check.BeneficiaryName)

	// create
	resp = app.signedPost(t, "/in/qr/v1/tx/create", createBody("psp-100"))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var created ports.TransactionResult
	decodeBody(t, resp, &created)
	assert.Equal(t, "tx-psp-100", created.TransactionID)
	assert.Equal(t, domain.StatusCreated, created.Status)

	// execute (body-less, signed over the full URL)
	resp = app.signedPost(t, "/in/qr/v1/tx/execute/tx-psp-100", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var executed ports.TransactionResult
	decodeBody(t, resp, &executed)
	assert.Equal(t, domain.StatusSuccess, executed.Status)

	// ledger is final now
	op, err := app.ops.GetByTransactionID(t.Context(), "tx-psp-100")
	require.NoError(t, err)
	assert.True(t, op.IsFinal)
	assert.NotNil(t, op.ExecutedAt)

	// the create and the final transition each notified the merchant
	msgs := app.pub.messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, domain.StatusCreated.Code(), msgs[0].Payload.Status)
	assert.Equal(t, domain.StatusSuccess.Code(), msgs[1].Payload.Status)
	assert.Equal(t, "https://coffeehub.example/hooks/psp", msgs[0].TargetURL)

	// a final status is never overwritten
	resp = app.signedPost(t, "/in/qr/v1/tx/update/tx-psp-100", []byte(`{"status":40,"updateDate":"2026-08-31T10:00:00Z"}`))
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	resp.Body.Close()
}

func TestInboundTamperedBodyIsRejected(t *testing.T) {
	app := newTestApp(t)

	body := createBody("psp-200")
	hash, err := app.sig.Sign(body, "")
	require.NoError(t, err)

	tampered := bytes.Replace(body, []byte(`"amount": 5000`), []byte(`"amount": 9000`), 1)
	req, err := http.NewRequest(http.MethodPost, app.server.URL+"/in/qr/v1/tx/create", bytes.NewReader(tampered))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("H-HASH", hash)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	_, err = app.ops.GetByPspTransactionID(t.Context(), "psp-200")
	assert.ErrorIs(t, err, ports.ErrNotFound)
}

func TestInboundUpdateMarksCanceled(t *testing.T) {
	app := newTestApp(t)

	resp := app.signedPost(t, "/in/qr/v1/tx/create", createBody("psp-300"))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = app.signedPost(t, "/in/qr/v1/tx/update/tx-psp-300", []byte(`{"status":40,"updateDate":"2026-08-31T10:00:00Z"}`))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	raw, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Empty(t, raw)

	op, err := app.ops.GetByTransactionID(t.Context(), "tx-psp-300")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCanceled, op.Status)
	assert.True(t, op.IsFinal)
	assert.NotNil(t, op.LastStatusUpdateAt)
}

func tlvField(tag, value string) string {
	return fmt.Sprintf("%s%02d%s", tag, len(value), value)
}

func dynamicQRURI() string {
	payload := tlvField("00", "01") +
		tlvField("01", "12") +
		tlvField("32",
			tlvField("00", "operator-west")+
				tlvField("01", "m-100")+
				tlvField("02", "svc-1")+
				tlvField("03", "1180000123456789")) +
		tlvField("33",
			tlvField("00", "CoffeeHub")+
				tlvField("01", "qr-tx-1")) +
		tlvField("52", "5411") +
		tlvField("53", "417") +
		tlvField("54", "5000") +
		tlvField("63", "a1b2")
	return "https://pay.example/qr#" + payload
}

func TestClientScanAndPay(t *testing.T) {
	app := newTestApp(t)

	// scan
	body, _ := json.Marshal(map[string]string{"qrUri": dynamicQRURI()})
	resp, err := http.Post(app.server.URL+"/client/qr/v1/tx/check", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var check ports.QRCheckResult
	decodeBody(t, resp, &check)
	require.NotEmpty(t, check.CheckSessionID)
	assert.EqualValues(t, 5000, check.Amount)

	// pay
	body, _ = json.Marshal(map[string]interface{}{"checkSessionId": check.CheckSessionID, "amount": 5000})
	resp, err = http.Post(app.server.URL+"/client/qr/v1/tx/pay", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var paid ports.PaymentResult
	decodeBody(t, resp, &paid)
	assert.Equal(t, domain.StatusSuccess, paid.Status)
	assert.NotEmpty(t, paid.ReceiptID)

	// the session is consumed
	body, _ = json.Marshal(map[string]interface{}{"checkSessionId": check.CheckSessionID, "amount": 5000})
	resp, err = http.Post(app.server.URL+"/client/qr/v1/tx/pay", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	resp.Body.Close()
}

func adminBearer(t *testing.T) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "ops-admin",
		"iss": "qr-psp-gateway",
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return "Bearer " + signed
}

func TestAdminRegistrationFeedsNotifier(t *testing.T) {
	app := newTestApp(t)

	// register a hook for a new merchant app
	body := []byte(`{
		"merchantName": "Tea House",
		"appId": "TeaHouse",
		"targetUrl": "https://teahouse.example/hook",
		"apiKeyName": "X-Api-Key",
		"apiKeyValue": "tea-key"
	}`)
	req, err := http.NewRequest(http.MethodPost, app.server.URL+"/admin/webhooks", bytes.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", adminBearer(t))
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	// an inbound create for that app notifies its target
	create := bytes.Replace(createBody("psp-400"), []byte(`"serviceName": "CoffeeHub"`), []byte(`"serviceName": "TeaHouse"`), 1)
	resp = app.signedPost(t, "/in/qr/v1/tx/create", create)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	msgs := app.pub.messages()
	require.NotEmpty(t, msgs)
	assert.Equal(t, "https://teahouse.example/hook", msgs[len(msgs)-1].TargetURL)
	assert.Equal(t, "tea-key", msgs[len(msgs)-1].APIKeyValue)
}
