package handler

import (
	"qr-psp-gateway/internal/adapter/http/dto"
	"qr-psp-gateway/internal/core/ports"
	"qr-psp-gateway/pkg/apperror"
	"qr-psp-gateway/pkg/response"

	"github.com/gin-gonic/gin"
)

// ClientHandler serves the endpoints our own customers' apps call to pay
// by scanned QR code.
type ClientHandler struct {
	svc ports.ClientService
}

// NewClientHandler creates a new ClientHandler.
func NewClientHandler(svc ports.ClientService) *ClientHandler {
	return &ClientHandler{svc: svc}
}

func clientMeta(c *gin.Context) ports.RequestMeta {
	actor := c.GetHeader("X-Client-Id")
	if actor == "" {
		actor = "client"
	}
	return ports.RequestMeta{
		Actor:     actor,
		IPAddress: c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	}
}

// Check handles POST /client/qr/{version}/tx/check.
func (h *ClientHandler) Check(c *gin.Context) {
	var req dto.ClientCheckRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.BadRequest(err.Error()))
		return
	}

	result, err := h.svc.CheckQR(c.Request.Context(), req.QRURI, clientMeta(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, result)
}

// Pay handles POST /client/qr/{version}/tx/pay.
func (h *ClientHandler) Pay(c *gin.Context) {
	var req dto.ClientPayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.BadRequest(err.Error()))
		return
	}

	result, err := h.svc.Pay(c.Request.Context(), req.CheckSessionID, req.Amount, clientMeta(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, result)
}
