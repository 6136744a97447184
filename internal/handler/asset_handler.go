package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/bitfantasy/fixdesk/internal/repository"
	"github.com/bitfantasy/fixdesk/internal/service"
)

// AssetHandler 资产处理器
type AssetHandler struct {
	svc *service.AssetService
}

// NewAssetHandler 创建资产处理器
func NewAssetHandler(svc *service.AssetService) *AssetHandler {
	return &AssetHandler{svc: svc}
}

// Create 创建资产
// POST /api/v1/assets
func (h *AssetHandler) Create(c *gin.Context) {
	var input service.CreateAssetInput
	if err := c.ShouldBindJSON(&input); err != nil {
		BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	asset, err := h.svc.Create(c.Request.Context(), &input)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			NotFound(c, "company not found")
		case errors.Is(err, service.ErrQRTokenConflict):
			Conflict(c, "failed to allocate a unique qr token")
		default:
			InternalError(c, "failed to create asset")
		}
		return
	}
	Created(c, asset)
}

// Get 资产详情
// GET /api/v1/assets/:id
func (h *AssetHandler) Get(c *gin.Context) {
	asset, err := h.svc.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			NotFound(c, "asset not found")
			return
		}
		InternalError(c, "failed to get asset")
		return
	}
	Success(c, asset)
}

// GetQR 资产二维码信息
// GET /api/v1/assets/:id/qr
func (h *AssetHandler) GetQR(c *gin.Context) {
	info, err := h.svc.GetQRInfo(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			NotFound(c, "asset not found")
			return
		}
		InternalError(c, "failed to get qr info")
		return
	}
	Success(c, info)
}
