package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/bitfantasy/fixdesk/internal/repository"
	"github.com/bitfantasy/fixdesk/internal/service"
)

// TechnicianHandler 技师处理器
type TechnicianHandler struct {
	svc *service.TechnicianService
}

// NewTechnicianHandler 创建技师处理器
func NewTechnicianHandler(svc *service.TechnicianService) *TechnicianHandler {
	return &TechnicianHandler{svc: svc}
}

// Create 创建技师
// POST /api/v1/technicians
func (h *TechnicianHandler) Create(c *gin.Context) {
	var input service.CreateTechnicianInput
	if err := c.ShouldBindJSON(&input); err != nil {
		BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	tech, err := h.svc.Create(c.Request.Context(), &input)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			NotFound(c, "company not found")
			return
		}
		InternalError(c, "failed to create technician")
		return
	}
	Created(c, tech)
}

// List 技师列表
// GET /api/v1/technicians?company_id=…
func (h *TechnicianHandler) List(c *gin.Context) {
	techs, err := h.svc.List(c.Request.Context(), c.Query("company_id"))
	if err != nil {
		InternalError(c, "failed to list technicians")
		return
	}
	Success(c, techs)
}

// Get 技师详情
// GET /api/v1/technicians/:id
func (h *TechnicianHandler) Get(c *gin.Context) {
	tech, err := h.svc.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			NotFound(c, "technician not found")
			return
		}
		InternalError(c, "failed to get technician")
		return
	}
	Success(c, tech)
}
