package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qr-psp-gateway/internal/core/domain"
	"qr-psp-gateway/internal/core/ports"
	"qr-psp-gateway/pkg/apperror"
)

func tlvField(tag, value string) string {
	return fmt.Sprintf("%s%02d%s", tag, len(value), value)
}

// sampleQRURI builds a dynamic QR for the given provider with amount 5000.
func sampleQRURI(provider string) string {
	payload := tlvField("00", "01") +
		tlvField("01", "12") +
		tlvField("32",
			tlvField("00", provider)+
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

// sampleStaticQRURI carries no amount, the customer supplies it at pay time.
func sampleStaticQRURI(provider string) string {
	payload := tlvField("00", "01") +
		tlvField("01", "11") +
		tlvField("32",
			tlvField("00", provider)+
				tlvField("01", "m-100")+
				tlvField("02", "svc-1")+
				tlvField("03", "1180000123456789")) +
		tlvField("33",
			tlvField("00", "CoffeeHub")+
				tlvField("01", "qr-tx-1")) +
		tlvField("52", "5411") +
		tlvField("53", "417") +
		tlvField("63", "a1b2")
	return "https://pay.example/qr#" + payload
}

func newTestClientService(repo *fakeOperationRepo, gw *fakeGateway, notifier *recordingNotifier) ports.ClientService {
	return NewClientService(repo, staticRouter{gw}, notifier, "demirbank", zerolog.Nop())
}

func TestClientCheckCreatesSession(t *testing.T) {
	repo := newFakeOperationRepo()
	gw := &fakeGateway{
		name:     "operator",
		checkRes: &ports.CheckResult{BeneficiaryName: "c***e A***o", TransactionType: domain.TransactionC2B},
	}
	svc := newTestClientService(repo, gw, &recordingNotifier{})

	res, err := svc.CheckQR(context.Background(), sampleQRURI("mbank"), ports.RequestMeta{Actor: "client-7"})
	require.NoError(t, err)

	assert.NotEmpty(t, res.CheckSessionID)
	assert.Equal(t, "c***e A***o", res.BeneficiaryName)
	assert.EqualValues(t, 5000, res.Amount)
	assert.Equal(t, "mbank", res.QR.MerchantProvider)
	assert.Equal(t, []string{"check"}, gw.calls)

	stored, err := repo.GetByPspTransactionID(context.Background(), res.CheckSessionID)
	require.NoError(t, err)
	assert.Equal(t, domain.OperationCheck, stored.OperationType)
	assert.Equal(t, domain.DirectionOut, stored.Direction)
	assert.Equal(t, "client-7", stored.CreatedBy)
}

func TestClientCheckOwnProviderDirection(t *testing.T) {
	repo := newFakeOperationRepo()
	gw := &fakeGateway{name: "bank", checkRes: &ports.CheckResult{BeneficiaryName: "J*** D**"}}
	svc := newTestClientService(repo, gw, &recordingNotifier{})

	res, err := svc.CheckQR(context.Background(), sampleQRURI("demirbank"), ports.RequestMeta{})
	require.NoError(t, err)

	stored, err := repo.GetByPspTransactionID(context.Background(), res.CheckSessionID)
	require.NoError(t, err)
	assert.Equal(t, domain.DirectionOwn, stored.Direction)
}

func TestClientCheckMalformedQR(t *testing.T) {
	svc := newTestClientService(newFakeOperationRepo(), &fakeGateway{}, &recordingNotifier{})

	_, err := svc.CheckQR(context.Background(), "https://pay.example/qr#garbage", ports.RequestMeta{})
	assert.Equal(t, apperror.CodeBadRequest, appCode(t, err))
}

func TestClientCheckStaticQRSkipsFulfillment(t *testing.T) {
	repo := newFakeOperationRepo()
	gw := &fakeGateway{}
	svc := newTestClientService(repo, gw, &recordingNotifier{})

	res, err := svc.CheckQR(context.Background(), sampleStaticQRURI("mbank"), ports.RequestMeta{})
	require.NoError(t, err)
	assert.Zero(t, res.Amount)
	assert.Empty(t, gw.calls)

	// The session row holds Amount 0; the bounds apply when it is paid.
	stored, err := repo.GetByPspTransactionID(context.Background(), res.CheckSessionID)
	require.NoError(t, err)
	assert.Zero(t, stored.Amount)
	assert.Equal(t, domain.OperationCheck, stored.OperationType)
}

func TestClientPaySettlesAndNotifies(t *testing.T) {
	repo := newFakeOperationRepo()
	notifier := &recordingNotifier{}
	gw := &fakeGateway{
		name:       "operator",
		checkRes:   &ports.CheckResult{BeneficiaryName: "c***e A***o"},
		createRes:  &ports.TransactionResult{TransactionID: "op-tx-9", ReceiptID: "rcpt-9", Status: domain.StatusCreated},
		executeRes: &ports.TransactionResult{ReceiptID: "rcpt-9", Status: domain.StatusSuccess, BeneficiaryName: "c***e A***o"},
	}
	svc := newTestClientService(repo, gw, notifier)

	check, err := svc.CheckQR(context.Background(), sampleQRURI("mbank"), ports.RequestMeta{})
	require.NoError(t, err)

	pay, err := svc.Pay(context.Background(), check.CheckSessionID, 0, ports.RequestMeta{Actor: "client-7"})
	require.NoError(t, err)

	assert.Equal(t, "op-tx-9", pay.TransactionID)
	assert.Equal(t, domain.StatusSuccess, pay.Status)
	assert.EqualValues(t, 5000, pay.Amount)
	assert.Equal(t, []string{"check", "create", "execute"}, gw.calls)

	stored, err := repo.GetByPspTransactionID(context.Background(), check.CheckSessionID)
	require.NoError(t, err)
	assert.True(t, stored.IsFinal)
	require.NotNil(t, stored.ExecutedAt)

	require.Len(t, notifier.ops, 1)
	assert.Equal(t, domain.StatusSuccess, notifier.ops[0].Status)
}

func TestClientPayUnknownSession(t *testing.T) {
	svc := newTestClientService(newFakeOperationRepo(), &fakeGateway{}, &recordingNotifier{})

	_, err := svc.Pay(context.Background(), "missing", 5000, ports.RequestMeta{})
	assert.Equal(t, apperror.CodeNotFound, appCode(t, err))
}

func TestClientPayConsumedSession(t *testing.T) {
	repo := newFakeOperationRepo()
	gw := &fakeGateway{
		checkRes:   &ports.CheckResult{},
		createRes:  &ports.TransactionResult{TransactionID: "op-tx-9", Status: domain.StatusCreated},
		executeRes: &ports.TransactionResult{Status: domain.StatusSuccess},
	}
	svc := newTestClientService(repo, gw, &recordingNotifier{})

	check, err := svc.CheckQR(context.Background(), sampleQRURI("mbank"), ports.RequestMeta{})
	require.NoError(t, err)

	_, err = svc.Pay(context.Background(), check.CheckSessionID, 0, ports.RequestMeta{})
	require.NoError(t, err)

	_, err = svc.Pay(context.Background(), check.CheckSessionID, 0, ports.RequestMeta{})
	assert.Equal(t, apperror.CodeUnprocessable, appCode(t, err))
}

func TestClientPayStaticQRAmountBounds(t *testing.T) {
	repo := newFakeOperationRepo()
	gw := &fakeGateway{}
	svc := newTestClientService(repo, gw, &recordingNotifier{})

	check, err := svc.CheckQR(context.Background(), sampleStaticQRURI("mbank"), ports.RequestMeta{})
	require.NoError(t, err)

	_, err = svc.Pay(context.Background(), check.CheckSessionID, 99, ports.RequestMeta{})
	assert.Equal(t, apperror.CodeMinAmountInvalid, appCode(t, err))

	_, err = svc.Pay(context.Background(), check.CheckSessionID, 2_000_000, ports.RequestMeta{})
	assert.Equal(t, apperror.CodeMaxAmountInvalid, appCode(t, err))
}

func TestClientPayExecuteFailureRecordsError(t *testing.T) {
	repo := newFakeOperationRepo()
	gw := &fakeGateway{
		checkRes:  &ports.CheckResult{},
		createRes: &ports.TransactionResult{TransactionID: "op-tx-9", Status: domain.StatusCreated},
	}
	svc := newTestClientService(repo, gw, &recordingNotifier{})

	check, err := svc.CheckQR(context.Background(), sampleQRURI("mbank"), ports.RequestMeta{})
	require.NoError(t, err)

	gw.executeErr = apperror.Timeout(fmt.Errorf("context deadline exceeded"))
	_, err = svc.Pay(context.Background(), check.CheckSessionID, 0, ports.RequestMeta{})
	assert.Equal(t, apperror.CodeTimeout, appCode(t, err))

	stored, err := repo.GetByPspTransactionID(context.Background(), check.CheckSessionID)
	require.NoError(t, err)
	assert.NotEmpty(t, stored.ErrorMessage)
}
