package operator

import (
	"fmt"

	"qr-psp-gateway/pkg/apperror"
)

// translateStatus maps an Operator HTTP status onto the shared error
// taxonomy. Unknown statuses degrade to a system error.
func translateStatus(status int) *apperror.AppError {
	switch status {
	case 400:
		return apperror.BadRequest("")
	case 404:
		return apperror.NotFound("")
	case 422:
		return apperror.Unprocessable("")
	case 452:
		return apperror.RecipientDataIncorrect("")
	case 453:
		return apperror.AccessDenied("")
	case 454:
		return apperror.IncorrectRequestData("")
	case 455:
		return apperror.MinAmountInvalid("")
	case 456:
		return apperror.MaxAmountInvalid("")
	case 500:
		return apperror.SystemError(fmt.Errorf("operator system error"))
	case 523:
		return apperror.SupplierUnavailable("")
	case 524:
		return apperror.ExternalServerUnavailable("")
	default:
		return apperror.SystemError(fmt.Errorf("unexpected status from operator: %d", status))
	}
}

// translateTransportError classifies a failed round trip using the shared
// taxonomy mapping.
func translateTransportError(err error) *apperror.AppError {
	return apperror.ClassifyTransport(err)
}
