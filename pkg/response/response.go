package response

import (
	"errors"
	"net/http"
	"time"

	"qr-psp-gateway/pkg/apperror"

	"github.com/gin-gonic/gin"
)

// ErrorResponse is the uniform failure envelope. The HTTP status of the
// reply mirrors Code.
type ErrorResponse struct {
	Code      int    `json:"code"`
	Message   string `json:"message"`
	Details   string `json:"details,omitempty"`
	Timestamp string `json:"timestamp"`
	Path      string `json:"path"`
}

// OK sends a 200 response with the given body.
func OK(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, data)
}

// Created sends a 201 response with the given body.
func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, data)
}

// NoContent acknowledges with 200 and an empty body.
func NoContent(c *gin.Context) {
	c.Status(http.StatusOK)
}

// Error writes the failure envelope for err. Unknown errors degrade to a
// generic system error without leaking the cause.
func Error(c *gin.Context, err error) {
	var appErr *apperror.AppError
	if !errors.As(err, &appErr) {
		appErr = apperror.SystemError(err)
	}
	c.JSON(appErr.HTTPStatus, ErrorResponse{
		Code:      appErr.Code,
		Message:   appErr.Message,
		Details:   appErr.Details,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Path:      c.Request.URL.Path,
	})
}
