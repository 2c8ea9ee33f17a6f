package handler

import (
	"qr-psp-gateway/internal/adapter/http/dto"
	"qr-psp-gateway/internal/adapter/http/middleware"
	"qr-psp-gateway/internal/core/domain"
	"qr-psp-gateway/internal/core/ports"
	"qr-psp-gateway/pkg/apperror"
	"qr-psp-gateway/pkg/response"

	"github.com/gin-gonic/gin"
)

// TransactionHandler serves the signed lifecycle endpoints the Operator
// calls. Signature verification happens in middleware before any of
// these run.
type TransactionHandler struct {
	svc ports.TransactionService
}

// NewTransactionHandler creates a new TransactionHandler.
func NewTransactionHandler(svc ports.TransactionService) *TransactionHandler {
	return &TransactionHandler{svc: svc}
}

func requestMeta(c *gin.Context) ports.RequestMeta {
	actor := c.GetString(middleware.CtxActor)
	if actor == "" {
		actor = "operator"
	}
	return ports.RequestMeta{
		Actor:     actor,
		IPAddress: c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	}
}

// Check handles POST /in/qr/{version}/tx/check.
func (h *TransactionHandler) Check(c *gin.Context) {
	var req dto.TxCheckRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.BadRequest(err.Error()))
		return
	}

	result, err := h.svc.Check(c.Request.Context(), ports.CheckRequest{
		QR:     req.ToDomain(),
		Amount: req.Amount,
	}, requestMeta(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, result)
}

// Create handles POST /in/qr/{version}/tx/create.
func (h *TransactionHandler) Create(c *gin.Context) {
	var req dto.TxCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.BadRequest(err.Error()))
		return
	}

	customerType := domain.CustomerIndividual
	if req.CustomerType != "" {
		ct, err := domain.CustomerTypeFromCode(req.CustomerType)
		if err != nil {
			response.Error(c, apperror.IncorrectRequestData(err.Error()))
			return
		}
		customerType = ct
	}

	transactionType := domain.TransactionC2B
	if req.TransactionType != 0 {
		tt, err := domain.TransactionTypeFromCode(req.TransactionType)
		if err != nil {
			response.Error(c, apperror.IncorrectRequestData(err.Error()))
			return
		}
		transactionType = tt
	}

	result, err := h.svc.Create(c.Request.Context(), ports.CreateRequest{
		QR:               req.ToDomain(),
		PspTransactionID: req.PspTransactionID,
		TransactionID:    req.TransactionID,
		ReceiptID:        req.ReceiptID,
		Amount:           req.Amount,
		CustomerType:     customerType,
		TransactionType:  transactionType,
	}, requestMeta(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, result)
}

// Execute handles POST /in/qr/{version}/tx/execute/{transactionId}.
func (h *TransactionHandler) Execute(c *gin.Context) {
	txID := c.Param("transactionId")
	if txID == "" {
		response.Error(c, apperror.IncorrectRequestData("transactionId is required"))
		return
	}

	result, err := h.svc.Execute(c.Request.Context(), txID, requestMeta(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, result)
}

// Update handles POST /in/qr/{version}/tx/update/{transactionId}.
// A successful update answers 200 with an empty body.
func (h *TransactionHandler) Update(c *gin.Context) {
	txID := c.Param("transactionId")
	if txID == "" {
		response.Error(c, apperror.IncorrectRequestData("transactionId is required"))
		return
	}

	var req dto.TxUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.BadRequest(err.Error()))
		return
	}

	status, err := domain.StatusFromCode(req.Status)
	if err != nil {
		response.Error(c, apperror.IncorrectRequestData(err.Error()))
		return
	}

	if err := h.svc.Update(c.Request.Context(), txID, status, req.UpdateDate, requestMeta(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
