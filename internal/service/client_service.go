package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"qr-psp-gateway/internal/core/domain"
	"qr-psp-gateway/internal/core/ports"
	"qr-psp-gateway/pkg/apperror"
	"qr-psp-gateway/pkg/elqr"
)

// clientService drives payments our own customers start by scanning a QR
// code. A scan creates a check session in the ledger; the payment call
// consumes that session and runs create+execute on the routed path.
type clientService struct {
	ops         ports.OperationRepository
	router      ports.Router
	notifier    ports.WebhookNotifier
	ownProvider string
	log         zerolog.Logger
}

// NewClientService creates the customer-facing payment service.
func NewClientService(ops ports.OperationRepository, router ports.Router, notifier ports.WebhookNotifier, ownProvider string, log zerolog.Logger) ports.ClientService {
	return &clientService{
		ops:         ops,
		router:      router,
		notifier:    notifier,
		ownProvider: ownProvider,
		log:         log,
	}
}

func (s *clientService) direction(merchantProvider string) domain.TransferDirection {
	if merchantProvider == s.ownProvider {
		return domain.DirectionOwn
	}
	return domain.DirectionOut
}

func (s *clientService) CheckQR(ctx context.Context, qrURI string, meta ports.RequestMeta) (*ports.QRCheckResult, error) {
	decoded, err := elqr.DecodeURI(qrURI)
	if err != nil {
		return nil, apperror.BadRequest("malformed QR payload: " + err.Error())
	}

	var beneficiary string
	if decoded.Amount > 0 {
		// Dynamic QR carries the amount, so the fulfillment side can
		// resolve the beneficiary up front.
		gw := s.router.Route(decoded.MerchantProvider)
		res, err := gw.Check(ctx, ports.CheckRequest{QR: decoded.QRPayload, Amount: decoded.Amount})
		if err != nil {
			return nil, err
		}
		beneficiary = res.BeneficiaryName
	}

	// A static-QR session carries Amount 0 until the customer supplies
	// one at pay time; the amount bounds are enforced in Pay, not here.
	now := time.Now().UTC()
	op := &domain.Operation{
		PspTransactionID: uuid.NewString(),
		OperationType:    domain.OperationCheck,
		Direction:        s.direction(decoded.MerchantProvider),
		QR:               decoded.QRPayload,
		CustomerType:     domain.CustomerIndividual,
		Amount:           decoded.Amount,
		TransactionType:  domain.TransactionC2B,
		BeneficiaryName:  beneficiary,
		CreatedAt:        now,
		UpdatedAt:        now,
		CreatedBy:        meta.Actor,
		IPAddress:        meta.IPAddress,
		UserAgent:        meta.UserAgent,
	}
	op.SetStatus(domain.StatusCreated)

	if err := s.ops.Create(ctx, op); err != nil {
		s.log.Error().Err(err).Msg("client check: session write failed")
		return nil, apperror.SystemError(err)
	}

	s.log.Info().
		Str("session_id", op.PspTransactionID).
		Str("provider", decoded.MerchantProvider).
		Msg("client check: session created")

	return &ports.QRCheckResult{
		CheckSessionID:  op.PspTransactionID,
		BeneficiaryName: beneficiary,
		QR:              decoded.QRPayload,
		Amount:          decoded.Amount,
	}, nil
}

func (s *clientService) Pay(ctx context.Context, checkSessionID string, amount int64, meta ports.RequestMeta) (*ports.PaymentResult, error) {
	if checkSessionID == "" {
		return nil, apperror.BadRequest("check session ID is required")
	}

	op, err := s.ops.GetByPspTransactionID(ctx, checkSessionID)
	if err != nil {
		if errors.Is(err, ports.ErrNotFound) {
			return nil, apperror.NotFound("check session not found: " + checkSessionID)
		}
		return nil, apperror.SystemError(err)
	}
	if op.OperationType != domain.OperationCheck || op.IsFinal {
		return nil, apperror.Unprocessable("check session already consumed")
	}

	// Dynamic QR fixes the amount at scan time; static QR takes it here.
	if op.Amount > 0 {
		amount = op.Amount
	}
	if err := validateBusinessRules(amount, op.QR); err != nil {
		return nil, err
	}

	gw := s.router.Route(op.QR.MerchantProvider)

	createRes, err := gw.Create(ctx, ports.CreateRequest{
		QR:               op.QR,
		PspTransactionID: op.PspTransactionID,
		ReceiptID:        uuid.NewString(),
		Amount:           amount,
		CustomerType:     op.CustomerType,
		TransactionType:  op.TransactionType,
	})
	if err != nil {
		return nil, err
	}

	execRes, err := gw.Execute(ctx, createRes.TransactionID)
	if err != nil {
		// Keep the created transaction around for reconciliation.
		op.TransactionID = createRes.TransactionID
		op.ReceiptID = createRes.ReceiptID
		op.Amount = amount
		op.OperationType = domain.OperationCreate
		op.ErrorMessage = err.Error()
		op.UpdatedAt = time.Now().UTC()
		if uerr := s.ops.Update(ctx, op); uerr != nil {
			s.log.Error().Err(uerr).Str("session_id", checkSessionID).Msg("client pay: ledger write failed after execute error")
		}
		return nil, err
	}

	now := time.Now().UTC()
	op.TransactionID = execRes.TransactionID
	op.ReceiptID = execRes.ReceiptID
	op.Amount = amount
	op.OperationType = domain.OperationExecute
	op.BeneficiaryName = execRes.BeneficiaryName
	op.ExecutedAt = &now
	op.UpdatedAt = now
	op.UpdatedBy = meta.Actor
	op.SetStatus(execRes.Status)

	if err := s.ops.Update(ctx, op); err != nil {
		s.log.Error().Err(err).Str("session_id", checkSessionID).Msg("client pay: ledger write failed")
		return nil, apperror.SystemError(err)
	}

	s.notifier.Notify(ctx, op)
	s.log.Info().
		Str("tx_id", op.TransactionID).
		Stringer("status", op.Status).
		Str("path", gw.Name()).
		Msg("client pay: payment settled")

	return &ports.PaymentResult{
		ReceiptID:     op.ReceiptID,
		TransactionID: op.TransactionID,
		Amount:        op.Amount,
		Status:        op.Status,
		CreatedDate:   op.CreatedAt.Format(time.RFC3339),
	}, nil
}
