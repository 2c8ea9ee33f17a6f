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
)

// transactionService is the lifecycle engine for operations the Operator
// network pushes at us. Every state change lands in the ledger before the
// response goes out; webhook delivery hangs off the ledger write and can
// never fail the call.
type transactionService struct {
	ops      ports.OperationRepository
	router   ports.Router
	notifier ports.WebhookNotifier
	log      zerolog.Logger
}

// NewTransactionService creates the inbound lifecycle engine.
func NewTransactionService(ops ports.OperationRepository, router ports.Router, notifier ports.WebhookNotifier, log zerolog.Logger) ports.TransactionService {
	return &transactionService{ops: ops, router: router, notifier: notifier, log: log}
}

// validateBusinessRules applies the shared check/create rules: amount
// bounds, merchant code range and the fixed currency.
func validateBusinessRules(amount int64, qr domain.QRPayload) error {
	if amount < domain.MinAmount {
		return apperror.MinAmountInvalid("minimum amount is 100")
	}
	if amount > domain.MaxAmount {
		return apperror.MaxAmountInvalid("maximum amount is 1000000")
	}
	if qr.MerchantCode < 0 || qr.MerchantCode > 9999 {
		return apperror.IncorrectRequestData("merchant code must be between 0 and 9999")
	}
	if qr.CurrencyCode != domain.CurrencyKGS {
		return apperror.IncorrectRequestData("only KGS currency (417) is supported")
	}
	return nil
}

func (s *transactionService) Check(ctx context.Context, req ports.CheckRequest, meta ports.RequestMeta) (*ports.CheckResult, error) {
	if err := validateBusinessRules(req.Amount, req.QR); err != nil {
		return nil, err
	}

	gw := s.router.Route(req.QR.MerchantProvider)
	res, err := gw.Check(ctx, req)
	if err != nil {
		s.log.Warn().Err(err).Str("provider", req.QR.MerchantProvider).Msg("check: fulfillment lookup failed")
		return nil, err
	}

	s.log.Info().
		Str("merchant_id", req.QR.MerchantID).
		Str("path", gw.Name()).
		Msg("check: completed")
	return res, nil
}

func (s *transactionService) Create(ctx context.Context, req ports.CreateRequest, meta ports.RequestMeta) (*ports.TransactionResult, error) {
	if err := validateBusinessRules(req.Amount, req.QR); err != nil {
		return nil, err
	}
	if req.PspTransactionID == "" {
		return nil, apperror.IncorrectRequestData("PSP transaction ID is required")
	}
	if req.ReceiptID == "" {
		return nil, apperror.IncorrectRequestData("receipt ID is required")
	}
	if req.TransactionID == "" {
		req.TransactionID = uuid.NewString()
	}

	gw := s.router.Route(req.QR.MerchantProvider)
	res, err := gw.Create(ctx, req)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	op := &domain.Operation{
		PspTransactionID: req.PspTransactionID,
		OperationType:    domain.OperationCreate,
		Direction:        domain.DirectionIn,
		TransactionID:    req.TransactionID,
		ReceiptID:        req.ReceiptID,
		QR:               req.QR,
		CustomerType:     req.CustomerType,
		Amount:           req.Amount,
		TransactionType:  req.TransactionType,
		BeneficiaryName:  res.BeneficiaryName,
		CreatedAt:        now,
		UpdatedAt:        now,
		CreatedBy:        meta.Actor,
		IPAddress:        meta.IPAddress,
		UserAgent:        meta.UserAgent,
	}
	op.SetStatus(domain.StatusCreated)

	if err := op.Validate(); err != nil {
		return nil, apperror.Unprocessable(err.Error())
	}
	if err := s.ops.Create(ctx, op); err != nil {
		if errors.Is(err, ports.ErrDuplicate) {
			return nil, apperror.Unprocessable("transaction identifiers already used")
		}
		s.log.Error().Err(err).Str("tx_id", req.TransactionID).Msg("create: ledger write failed")
		return nil, apperror.SystemError(err)
	}

	s.notifier.Notify(ctx, op)
	s.log.Info().
		Str("tx_id", op.TransactionID).
		Str("psp_tx_id", op.PspTransactionID).
		Str("path", gw.Name()).
		Msg("create: transaction created")

	return &ports.TransactionResult{
		TransactionID:   op.TransactionID,
		Status:          op.Status,
		TransactionType: op.TransactionType,
		Amount:          op.Amount,
		BeneficiaryName: op.BeneficiaryName,
		CustomerType:    string(op.CustomerType),
		ReceiptID:       op.ReceiptID,
		CreatedDate:     now.Format(time.RFC3339),
		ExecutedDate:    "",
	}, nil
}

func (s *transactionService) Execute(ctx context.Context, transactionID string, meta ports.RequestMeta) (*ports.TransactionResult, error) {
	if transactionID == "" {
		return nil, apperror.BadRequest("transaction ID is required")
	}

	op, err := s.ops.GetByTransactionID(ctx, transactionID)
	if err != nil {
		if errors.Is(err, ports.ErrNotFound) {
			return nil, apperror.NotFound("transaction not found: " + transactionID)
		}
		return nil, apperror.SystemError(err)
	}
	if op.IsFinal {
		return nil, apperror.Unprocessable("transaction is already in a final status")
	}

	gw := s.router.Route(op.QR.MerchantProvider)
	res, err := gw.Execute(ctx, transactionID)
	if err != nil {
		// The ledger keeps its previous state when the fulfillment side fails.
		s.log.Warn().Err(err).Str("tx_id", transactionID).Msg("execute: fulfillment failed")
		return nil, err
	}

	now := time.Now().UTC()
	op.SetStatus(res.Status)
	op.OperationType = domain.OperationExecute
	op.ExecutedAt = &now
	op.UpdatedAt = now
	op.UpdatedBy = meta.Actor

	if err := s.ops.Update(ctx, op); err != nil {
		s.log.Error().Err(err).Str("tx_id", transactionID).Msg("execute: ledger write failed")
		return nil, apperror.SystemError(err)
	}

	s.notifier.Notify(ctx, op)
	s.log.Info().
		Str("tx_id", transactionID).
		Stringer("status", op.Status).
		Msg("execute: transaction executed")

	return &ports.TransactionResult{
		TransactionID:   op.TransactionID,
		Status:          op.Status,
		TransactionType: op.TransactionType,
		Amount:          op.Amount,
		BeneficiaryName: op.BeneficiaryName,
		CustomerType:    string(op.CustomerType),
		ReceiptID:       op.ReceiptID,
		CreatedDate:     op.CreatedAt.Format(time.RFC3339),
		ExecutedDate:    now.Format(time.RFC3339),
	}, nil
}

func (s *transactionService) Update(ctx context.Context, transactionID string, status domain.Status, updateDate string, meta ports.RequestMeta) error {
	if transactionID == "" {
		return apperror.BadRequest("transaction ID is required")
	}
	if updateDate == "" {
		return apperror.IncorrectRequestData("update date is required")
	}
	if !status.IsFinal() {
		return apperror.IncorrectRequestData("update status must be a final status")
	}

	op, err := s.ops.GetByTransactionID(ctx, transactionID)
	if err != nil {
		if errors.Is(err, ports.ErrNotFound) {
			return apperror.NotFound("transaction not found: " + transactionID)
		}
		return apperror.SystemError(err)
	}
	if op.IsFinal {
		return apperror.Unprocessable("transaction is already in a final status")
	}

	now := time.Now().UTC()
	op.SetStatus(status)
	op.LastStatusUpdateAt = &now
	op.UpdatedAt = now
	op.UpdatedBy = meta.Actor

	if err := s.ops.Update(ctx, op); err != nil {
		s.log.Error().Err(err).Str("tx_id", transactionID).Msg("update: ledger write failed")
		return apperror.SystemError(err)
	}

	s.notifier.Notify(ctx, op)
	s.log.Info().
		Str("tx_id", transactionID).
		Stringer("status", status).
		Str("update_date", updateDate).
		Msg("update: status persisted")
	return nil
}
