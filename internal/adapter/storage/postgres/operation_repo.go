package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"qr-psp-gateway/internal/core/domain"
	"qr-psp-gateway/internal/core/ports"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// OperationRepo implements ports.OperationRepository on the operations
// table. Uniqueness of psp_transaction_id, transaction_id and receipt_id
// is enforced by partial unique indexes; violations surface as
// ports.ErrDuplicate.
type OperationRepo struct {
	pool Pool
}

// NewOperationRepo creates a new OperationRepo.
func NewOperationRepo(pool Pool) *OperationRepo {
	return &OperationRepo{pool: pool}
}

const operationColumns = `id, psp_transaction_id, operation_type, transfer_direction, transaction_id, receipt_id,
	qr_type, merchant_provider, merchant_id, service_id, service_name, beneficiary_account_number,
	merchant_code, currency_code, qr_transaction_id, qr_comment, qr_link_hash, extra_data,
	customer_type, amount, transaction_type, status, beneficiary_name, error_message,
	retry_count, max_retries, is_final, created_at, updated_at, executed_at, last_status_update_at,
	created_by, updated_by, ip_address, user_agent`

// Create inserts a new operation row.
func (r *OperationRepo) Create(ctx context.Context, op *domain.Operation) error {
	extra, err := marshalExtra(op.QR.Extra)
	if err != nil {
		return err
	}

	query := `INSERT INTO operations (psp_transaction_id, operation_type, transfer_direction, transaction_id, receipt_id,
		qr_type, merchant_provider, merchant_id, service_id, service_name, beneficiary_account_number,
		merchant_code, currency_code, qr_transaction_id, qr_comment, qr_link_hash, extra_data,
		customer_type, amount, transaction_type, status, beneficiary_name, error_message,
		retry_count, max_retries, is_final, created_at, updated_at, executed_at, last_status_update_at,
		created_by, updated_by, ip_address, user_agent)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17,
			$18, $19, $20, $21, $22, $23, $24, $25, $26, $27, $28, $29, $30, $31, $32, $33, $34)
		RETURNING id`

	err = r.pool.QueryRow(ctx, query,
		op.PspTransactionID, op.OperationType.Code(), string(op.Direction), op.TransactionID, op.ReceiptID,
		op.QR.QRType, op.QR.MerchantProvider, op.QR.MerchantID, op.QR.ServiceID, op.QR.ServiceName,
		op.QR.BeneficiaryAccountNumber, op.QR.MerchantCode, op.QR.CurrencyCode, op.QR.QRTransactionID,
		op.QR.QRComment, op.QR.QRLinkHash, extra,
		op.CustomerType.Code(), op.Amount, op.TransactionType.Code(), op.Status.Code(), op.BeneficiaryName,
		op.ErrorMessage, op.RetryCount, op.MaxRetries, op.IsFinal,
		op.CreatedAt, op.UpdatedAt, op.ExecutedAt, op.LastStatusUpdateAt,
		op.CreatedBy, op.UpdatedBy, op.IPAddress, op.UserAgent,
	).Scan(&op.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return ports.ErrDuplicate
		}
		return fmt.Errorf("insert operation: %w", err)
	}
	return nil
}

// GetByPspTransactionID fetches an operation by its internal identifier.
func (r *OperationRepo) GetByPspTransactionID(ctx context.Context, pspTxID string) (*domain.Operation, error) {
	query := fmt.Sprintf(`SELECT %s FROM operations WHERE psp_transaction_id = $1`, operationColumns)
	return r.scanOperation(r.pool.QueryRow(ctx, query, pspTxID))
}

// GetByTransactionID fetches an operation by the counterparty identifier.
func (r *OperationRepo) GetByTransactionID(ctx context.Context, txID string) (*domain.Operation, error) {
	query := fmt.Sprintf(`SELECT %s FROM operations WHERE transaction_id = $1`, operationColumns)
	return r.scanOperation(r.pool.QueryRow(ctx, query, txID))
}

// Update rewrites the mutable fields of an existing operation.
func (r *OperationRepo) Update(ctx context.Context, op *domain.Operation) error {
	query := `UPDATE operations SET operation_type = $1, transaction_id = $2, receipt_id = $3, amount = $4,
		status = $5, beneficiary_name = $6, error_message = $7, retry_count = $8, is_final = $9,
		updated_at = $10, executed_at = $11, last_status_update_at = $12, updated_by = $13
		WHERE psp_transaction_id = $14`

	tag, err := r.pool.Exec(ctx, query,
		op.OperationType.Code(), op.TransactionID, op.ReceiptID, op.Amount,
		op.Status.Code(), op.BeneficiaryName, op.ErrorMessage, op.RetryCount, op.IsFinal,
		op.UpdatedAt, op.ExecutedAt, op.LastStatusUpdateAt, op.UpdatedBy,
		op.PspTransactionID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ports.ErrDuplicate
		}
		return fmt.Errorf("update operation: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ports.ErrNotFound
	}
	return nil
}

// UpdateStatus persists a status change and the update timestamp.
func (r *OperationRepo) UpdateStatus(ctx context.Context, txID string, status domain.Status, at time.Time) error {
	query := `UPDATE operations SET status = $1, is_final = $2, updated_at = $3, last_status_update_at = $3
		WHERE transaction_id = $4`

	tag, err := r.pool.Exec(ctx, query, status.Code(), status.IsFinal(), at, txID)
	if err != nil {
		return fmt.Errorf("update operation status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ports.ErrNotFound
	}
	return nil
}

func (r *OperationRepo) scanOperation(row pgx.Row) (*domain.Operation, error) {
	op := &domain.Operation{}
	var (
		opType, txType, status int
		direction, custType    string
		extra                  []byte
	)
	err := row.Scan(
		&op.ID, &op.PspTransactionID, &opType, &direction, &op.TransactionID, &op.ReceiptID,
		&op.QR.QRType, &op.QR.MerchantProvider, &op.QR.MerchantID, &op.QR.ServiceID, &op.QR.ServiceName,
		&op.QR.BeneficiaryAccountNumber, &op.QR.MerchantCode, &op.QR.CurrencyCode, &op.QR.QRTransactionID,
		&op.QR.QRComment, &op.QR.QRLinkHash, &extra,
		&custType, &op.Amount, &txType, &status, &op.BeneficiaryName, &op.ErrorMessage,
		&op.RetryCount, &op.MaxRetries, &op.IsFinal, &op.CreatedAt, &op.UpdatedAt,
		&op.ExecutedAt, &op.LastStatusUpdateAt,
		&op.CreatedBy, &op.UpdatedBy, &op.IPAddress, &op.UserAgent,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ports.ErrNotFound
		}
		return nil, fmt.Errorf("scan operation: %w", err)
	}

	if op.OperationType, err = domain.OperationTypeFromCode(opType); err != nil {
		return nil, fmt.Errorf("operation %d: %w", op.ID, err)
	}
	if op.Status, err = domain.StatusFromCode(status); err != nil {
		return nil, fmt.Errorf("operation %d: %w", op.ID, err)
	}
	if op.TransactionType, err = domain.TransactionTypeFromCode(txType); err != nil {
		return nil, fmt.Errorf("operation %d: %w", op.ID, err)
	}
	if op.CustomerType, err = domain.CustomerTypeFromCode(custType); err != nil {
		return nil, fmt.Errorf("operation %d: %w", op.ID, err)
	}
	op.Direction = domain.TransferDirection(direction)

	if len(extra) > 0 {
		if err := json.Unmarshal(extra, &op.QR.Extra); err != nil {
			return nil, fmt.Errorf("operation %d extra data: %w", op.ID, err)
		}
	}
	return op, nil
}

func marshalExtra(extra []domain.KeyValue) ([]byte, error) {
	if len(extra) == 0 {
		return nil, nil
	}
	raw, err := json.Marshal(extra)
	if err != nil {
		return nil, fmt.Errorf("marshal extra data: %w", err)
	}
	return raw, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
