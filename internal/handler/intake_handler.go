package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/bitfantasy/fixdesk/internal/repository"
	"github.com/bitfantasy/fixdesk/internal/service"
	"github.com/bitfantasy/fixdesk/internal/shared/qrtoken"
)

// IntakeHandler 扫码公开报修处理器
type IntakeHandler struct {
	svc      *service.IntakeService
	assetSvc *service.AssetService
}

// NewIntakeHandler 创建报修处理器
func NewIntakeHandler(svc *service.IntakeService, assetSvc *service.AssetService) *IntakeHandler {
	return &IntakeHandler{svc: svc, assetSvc: assetSvc}
}

// ResolveAsset 扫码后查看资产公开信息
// GET /api/v1/public/assets/:token
func (h *IntakeHandler) ResolveAsset(c *gin.Context) {
	token := c.Param("token")
	if !qrtoken.IsValid(token) {
		BadRequest(c, "invalid qr token")
		return
	}

	asset, err := h.assetSvc.ResolveByToken(c.Request.Context(), token)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			NotFound(c, "asset not found")
			return
		}
		InternalError(c, "failed to resolve asset")
		return
	}
	Success(c, asset)
}

// CreateRequest 扫码提交报修
// POST /api/v1/public/intake/:token/request
func (h *IntakeHandler) CreateRequest(c *gin.Context) {
	token := c.Param("token")
	if !qrtoken.IsValid(token) {
		BadRequest(c, "invalid qr token")
		return
	}

	var input service.IntakeInput
	if err := c.ShouldBindJSON(&input); err != nil {
		BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	result, err := h.svc.Create(c.Request.Context(), token, c.ClientIP(), &input)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrRateLimited):
			TooManyRequests(c, "too many requests, try again later")
		case errors.Is(err, repository.ErrNotFound):
			NotFound(c, "asset not found")
		case errors.Is(err, service.ErrInvalidType):
			BadRequest(c, err.Error())
		default:
			InternalError(c, "failed to create service request")
		}
		return
	}
	Created(c, result)
}

// Status 查询当前限流状态
// GET /api/v1/public/intake/:token/status
func (h *IntakeHandler) Status(c *gin.Context) {
	token := c.Param("token")
	if !qrtoken.IsValid(token) {
		BadRequest(c, "invalid qr token")
		return
	}

	res, err := h.svc.Status(c.Request.Context(), token, c.ClientIP())
	if err != nil {
		InternalError(c, "failed to check rate limit")
		return
	}
	Success(c, gin.H{
		"allowed":          res.Allowed,
		"remaining":        res.Remaining,
		"reset_in_seconds": int(res.ResetIn.Seconds()),
	})
}
