package handler

import (
	"strconv"

	"qr-psp-gateway/internal/adapter/http/dto"
	"qr-psp-gateway/internal/core/domain"
	"qr-psp-gateway/internal/core/ports"
	"qr-psp-gateway/pkg/apperror"
	"qr-psp-gateway/pkg/response"

	"github.com/gin-gonic/gin"
)

// WebhookAdminHandler manages merchant webhook registrations. Routes are
// JWT-guarded; only operations staff reach these.
type WebhookAdminHandler struct {
	svc ports.WebhookAdminService
}

// NewWebhookAdminHandler creates a new WebhookAdminHandler.
func NewWebhookAdminHandler(svc ports.WebhookAdminService) *WebhookAdminHandler {
	return &WebhookAdminHandler{svc: svc}
}

// Register handles POST /admin/webhooks.
func (h *WebhookAdminHandler) Register(c *gin.Context) {
	var req dto.WebhookRegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.BadRequest(err.Error()))
		return
	}

	wh := domain.MerchantWebhook{
		MerchantName: req.MerchantName,
		AppID:        req.AppID,
		TargetURL:    req.TargetURL,
		APIKeyName:   req.APIKeyName,
		APIKeyValue:  req.APIKeyValue,
		IsActive:     true,
	}
	if err := h.svc.Register(c.Request.Context(), &wh); err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, dto.ToWebhookResponse(wh))
}

// Update handles PUT /admin/webhooks/{id}.
func (h *WebhookAdminHandler) Update(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.Error(c, apperror.BadRequest("id must be numeric"))
		return
	}

	var req dto.WebhookUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.BadRequest(err.Error()))
		return
	}

	wh := domain.MerchantWebhook{
		ID:           id,
		MerchantName: req.MerchantName,
		TargetURL:    req.TargetURL,
		APIKeyName:   req.APIKeyName,
		APIKeyValue:  req.APIKeyValue,
		IsActive:     req.IsActive,
	}
	if err := h.svc.Update(c.Request.Context(), &wh); err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dto.ToWebhookResponse(wh))
}

// List handles GET /admin/webhooks.
func (h *WebhookAdminHandler) List(c *gin.Context) {
	hooks, err := h.svc.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}

	out := make([]dto.WebhookResponse, 0, len(hooks))
	for _, wh := range hooks {
		out = append(out, dto.ToWebhookResponse(wh))
	}
	response.OK(c, out)
}
