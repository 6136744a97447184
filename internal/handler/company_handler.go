package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/bitfantasy/fixdesk/internal/repository"
	"github.com/bitfantasy/fixdesk/internal/service"
)

// CompanyHandler 公司处理器
type CompanyHandler struct {
	svc *service.CompanyService
}

// NewCompanyHandler 创建公司处理器
func NewCompanyHandler(svc *service.CompanyService) *CompanyHandler {
	return &CompanyHandler{svc: svc}
}

// Create 创建公司
// POST /api/v1/companies
func (h *CompanyHandler) Create(c *gin.Context) {
	var input service.CreateCompanyInput
	if err := c.ShouldBindJSON(&input); err != nil {
		BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	company, err := h.svc.Create(c.Request.Context(), &input)
	if err != nil {
		InternalError(c, "failed to create company")
		return
	}
	Created(c, company)
}

// Get 公司详情
// GET /api/v1/companies/:id
func (h *CompanyHandler) Get(c *gin.Context) {
	company, err := h.svc.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			NotFound(c, "company not found")
			return
		}
		InternalError(c, "failed to get company")
		return
	}
	Success(c, company)
}

// List 公司列表
// GET /api/v1/companies
func (h *CompanyHandler) List(c *gin.Context) {
	companies, err := h.svc.List(c.Request.Context())
	if err != nil {
		InternalError(c, "failed to list companies")
		return
	}
	Success(c, companies)
}
