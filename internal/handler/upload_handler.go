package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/bitfantasy/fixdesk/internal/service"
)

// maxUploadSize 上传大小上限
const maxUploadSize = 50 << 20 // 50MB

// UploadHandler 媒体上传处理器
type UploadHandler struct {
	svc *service.UploadService
}

// NewUploadHandler 创建上传处理器
func NewUploadHandler(svc *service.UploadService) *UploadHandler {
	return &UploadHandler{svc: svc}
}

// Upload 上传媒体文件
// POST /api/v1/uploads (multipart, field "file")
func (h *UploadHandler) Upload(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		BadRequest(c, "file is required")
		return
	}
	if fileHeader.Size > maxUploadSize {
		BadRequest(c, "file too large")
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		InternalError(c, "failed to read file")
		return
	}
	defer file.Close()

	contentType := fileHeader.Header.Get("Content-Type")
	result, err := h.svc.Upload(c.Request.Context(), fileHeader.Filename, contentType, fileHeader.Size, file)
	if err != nil {
		if errors.Is(err, service.ErrUploadsDisabled) {
			Error(c, 50300, "object storage not configured")
			return
		}
		InternalError(c, "failed to upload file")
		return
	}
	Created(c, result)
}
