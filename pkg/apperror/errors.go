package apperror

import (
	"fmt"
	"net/http"
)

// AppError is a structured error carrying the externally visible numeric
// code of the counterparty protocol. Code doubles as the HTTP status for
// the standard range; the 452-456 and 523-524 codes are written verbatim.
type AppError struct {
	Code       int    `json:"code"`
	Message    string `json:"message"`
	Details    string `json:"details,omitempty"`
	HTTPStatus int    `json:"-"`
	Err        error  `json:"-"` // wrapped cause, never exposed to the client
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%d] %s: %v", e.Code, e.Message, e.Err)
	}
	if e.Details != "" {
		return fmt.Sprintf("[%d] %s: %s", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("[%d] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Retriable reports whether the caller may usefully retry. Only
// transport/availability errors qualify; the gateway itself never retries.
func (e *AppError) Retriable() bool {
	switch e.Code {
	case CodeTimeout, CodeConnectionFailure, CodeNetworkFailure,
		CodeSupplierUnavailable, CodeExternalServerUnavailable:
		return true
	}
	return false
}

// New creates an AppError whose HTTP status equals its numeric code.
func New(code int, message, details string) *AppError {
	return &AppError{Code: code, Message: message, Details: details, HTTPStatus: code}
}

// Wrap attaches an internal cause to a new AppError.
func Wrap(code int, message string, err error) *AppError {
	return &AppError{Code: code, Message: message, HTTPStatus: code, Err: err}
}

// Numeric codes of the counterparty error taxonomy.
const (
	CodeBadRequest                = http.StatusBadRequest
	CodeSignatureInvalid          = http.StatusForbidden
	CodeNotFound                  = http.StatusNotFound
	CodeUnprocessable             = http.StatusUnprocessableEntity
	CodeRecipientDataIncorrect    = 452
	CodeAccessDenied              = 453
	CodeIncorrectRequestData      = 454
	CodeMinAmountInvalid          = 455
	CodeMaxAmountInvalid          = 456
	CodeSystemError               = http.StatusInternalServerError
	CodeNetworkFailure            = http.StatusBadGateway
	CodeConnectionFailure         = http.StatusServiceUnavailable
	CodeTimeout                   = http.StatusGatewayTimeout
	CodeSupplierUnavailable       = 523
	CodeExternalServerUnavailable = 524
)

func BadRequest(details string) *AppError {
	return New(CodeBadRequest, "The request is invalid or malformed. The server cannot process it", details)
}

func SignatureInvalid(details string) *AppError {
	return New(CodeSignatureInvalid, "Signature verification failed", details)
}

func NotFound(details string) *AppError {
	return New(CodeNotFound, "The requested resource does not exist", details)
}

func Unprocessable(details string) *AppError {
	return New(CodeUnprocessable, "The request is well-formed but contains invalid data that cannot be processed", details)
}

func RecipientDataIncorrect(details string) *AppError {
	return New(CodeRecipientDataIncorrect, "The recipient's data is incorrect", details)
}

func AccessDenied(details string) *AppError {
	return New(CodeAccessDenied, "Access to the system is denied", details)
}

func IncorrectRequestData(details string) *AppError {
	return New(CodeIncorrectRequestData, "Incorrect data in the request", details)
}

func MinAmountInvalid(details string) *AppError {
	return New(CodeMinAmountInvalid, "Min amount not valid", details)
}

func MaxAmountInvalid(details string) *AppError {
	return New(CodeMaxAmountInvalid, "Max amount not valid", details)
}

func SystemError(err error) *AppError {
	return Wrap(CodeSystemError, "System error", err)
}

func NetworkFailure(err error) *AppError {
	return Wrap(CodeNetworkFailure, "Network error while calling external service", err)
}

func TLSFailure(err error) *AppError {
	return Wrap(CodeNetworkFailure, "TLS error while connecting to external service", err)
}

func ConnectionFailure(err error) *AppError {
	return Wrap(CodeConnectionFailure, "Failed to connect to external service", err)
}

func Timeout(err error) *AppError {
	return Wrap(CodeTimeout, "Request to external service timed out", err)
}

func SupplierUnavailable(details string) *AppError {
	return New(CodeSupplierUnavailable, "Supplier not available", details)
}

func ExternalServerUnavailable(details string) *AppError {
	return New(CodeExternalServerUnavailable, "External server is not available", details)
}
