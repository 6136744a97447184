package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/bitfantasy/fixdesk/internal/model/entity"
	"github.com/bitfantasy/fixdesk/internal/repository"
	"github.com/bitfantasy/fixdesk/internal/service"
)

// ServiceRequestHandler 工单处理器
type ServiceRequestHandler struct {
	svc *service.ServiceRequestService
}

// NewServiceRequestHandler 创建工单处理器
func NewServiceRequestHandler(svc *service.ServiceRequestService) *ServiceRequestHandler {
	return &ServiceRequestHandler{svc: svc}
}

const dateLayout = "2006-01-02"

// parseListInput 解析列表查询参数
func parseListInput(c *gin.Context) (*service.ListInput, error) {
	input := &service.ListInput{
		CompanyID:    c.Query("company_id"),
		TechnicianID: c.Query("technician_id"),
		Cursor:       c.Query("cursor"),
	}

	// status 支持重复参数和逗号分隔
	for _, raw := range c.QueryArray("status") {
		for _, s := range strings.Split(raw, ",") {
			s = strings.TrimSpace(s)
			if s != "" {
				input.Statuses = append(input.Statuses, entity.RequestStatus(s))
			}
		}
	}

	if v := c.Query("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 1 || limit > 100 {
			return nil, fmt.Errorf("limit must be an integer between 1 and 100")
		}
		input.Limit = limit
	}
	if v := c.Query("from"); v != "" {
		from, err := time.Parse(dateLayout, v)
		if err != nil {
			return nil, fmt.Errorf("invalid from date %q", v)
		}
		input.From = &from
	}
	if v := c.Query("to"); v != "" {
		to, err := time.Parse(dateLayout, v)
		if err != nil {
			return nil, fmt.Errorf("invalid to date %q", v)
		}
		input.To = &to
	}
	return input, nil
}

// List 工单列表
// GET /api/v1/service-requests
func (h *ServiceRequestHandler) List(c *gin.Context) {
	input, err := parseListInput(c)
	if err != nil {
		BadRequest(c, err.Error())
		return
	}

	result, err := h.svc.List(c.Request.Context(), input)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCursor) || errors.Is(err, service.ErrInvalidStatus) {
			BadRequest(c, err.Error())
			return
		}
		InternalError(c, "failed to list service requests")
		return
	}
	Success(c, result)
}

// Export 导出工单列表
// GET /api/v1/service-requests/export
func (h *ServiceRequestHandler) Export(c *gin.Context) {
	input, err := parseListInput(c)
	if err != nil {
		BadRequest(c, err.Error())
		return
	}

	f, err := h.svc.ExportExcel(c.Request.Context(), input)
	if err != nil {
		if errors.Is(err, service.ErrInvalidStatus) {
			BadRequest(c, err.Error())
			return
		}
		InternalError(c, "failed to export service requests")
		return
	}

	filename := fmt.Sprintf("service-requests-%s.xlsx", time.Now().Format("20060102-150405"))
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	if err := f.Write(c.Writer); err != nil {
		c.Status(http.StatusInternalServerError)
	}
}

// Get 工单详情
// GET /api/v1/service-requests/:id
func (h *ServiceRequestHandler) Get(c *gin.Context) {
	req, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			NotFound(c, "service request not found")
			return
		}
		InternalError(c, "failed to get service request")
		return
	}
	Success(c, req)
}

// Create 后台手工建单
// POST /api/v1/service-requests
func (h *ServiceRequestHandler) Create(c *gin.Context) {
	var input service.CreateRequestInput
	if err := c.ShouldBindJSON(&input); err != nil {
		BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	req, err := h.svc.Create(c.Request.Context(), &input)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			NotFound(c, "asset not found")
		case errors.Is(err, service.ErrInvalidType):
			BadRequest(c, err.Error())
		default:
			InternalError(c, "failed to create service request")
		}
		return
	}
	Created(c, req)
}

// Update 部分更新工单
// PATCH /api/v1/service-requests/:id
func (h *ServiceRequestHandler) Update(c *gin.Context) {
	var input service.UpdateRequestInput
	if err := c.ShouldBindJSON(&input); err != nil {
		BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	req, err := h.svc.Update(c.Request.Context(), c.Param("id"), &input)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			NotFound(c, "service request or technician not found")
		case errors.Is(err, service.ErrInvalidStatus):
			BadRequest(c, err.Error())
		default:
			InternalError(c, "failed to update service request")
		}
		return
	}
	Success(c, req)
}

type updateStatusRequest struct {
	Status entity.RequestStatus `json:"status" binding:"required"`
}

// UpdateStatus 更新工单状态
// PUT /api/v1/service-requests/:id/status
func (h *ServiceRequestHandler) UpdateStatus(c *gin.Context) {
	var body updateStatusRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	req, err := h.svc.UpdateStatus(c.Request.Context(), c.Param("id"), body.Status)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			NotFound(c, "service request not found")
		case errors.Is(err, service.ErrInvalidStatus):
			BadRequest(c, err.Error())
		default:
			InternalError(c, "failed to update status")
		}
		return
	}
	Success(c, req)
}

type assignTechnicianRequest struct {
	TechnicianID string `json:"technician_id" binding:"required"`
}

// AssignTechnician 指派技师
// PUT /api/v1/service-requests/:id/technician
func (h *ServiceRequestHandler) AssignTechnician(c *gin.Context) {
	var body assignTechnicianRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	req, err := h.svc.AssignTechnician(c.Request.Context(), c.Param("id"), body.TechnicianID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			NotFound(c, "service request or technician not found")
			return
		}
		InternalError(c, "failed to assign technician")
		return
	}
	Success(c, req)
}

type updateNotesRequest struct {
	TechnicianNotes string `json:"technician_notes"`
}

// UpdateNotes 更新技师备注
// PUT /api/v1/service-requests/:id/notes
func (h *ServiceRequestHandler) UpdateNotes(c *gin.Context) {
	var body updateNotesRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	req, err := h.svc.UpdateNotes(c.Request.Context(), c.Param("id"), body.TechnicianNotes)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			NotFound(c, "service request not found")
			return
		}
		InternalError(c, "failed to update notes")
		return
	}
	Success(c, req)
}

type addMediaRequest struct {
	Items entity.MediaList `json:"items" binding:"required"`
}

// AddClientMedia 追加客户媒体
// POST /api/v1/service-requests/:id/media/client
func (h *ServiceRequestHandler) AddClientMedia(c *gin.Context) {
	h.addMedia(c, false)
}

// AddTechnicianMedia 追加技师媒体
// POST /api/v1/service-requests/:id/media/technician
func (h *ServiceRequestHandler) AddTechnicianMedia(c *gin.Context) {
	h.addMedia(c, true)
}

func (h *ServiceRequestHandler) addMedia(c *gin.Context, technician bool) {
	var body addMediaRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		BadRequest(c, "invalid request body: "+err.Error())
		return
	}
	if len(body.Items) == 0 {
		BadRequest(c, "items must not be empty")
		return
	}
	for _, item := range body.Items {
		if item.URL == "" {
			BadRequest(c, "media url must not be empty")
			return
		}
		switch item.Kind {
		case entity.MediaKindImage, entity.MediaKindVideo, entity.MediaKindDocument:
		default:
			BadRequest(c, fmt.Sprintf("unknown media kind %q", item.Kind))
			return
		}
	}

	var (
		req *entity.ServiceRequest
		err error
	)
	if technician {
		req, err = h.svc.AddTechnicianMedia(c.Request.Context(), c.Param("id"), body.Items)
	} else {
		req, err = h.svc.AddClientMedia(c.Request.Context(), c.Param("id"), body.Items)
	}
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			NotFound(c, "service request not found")
			return
		}
		InternalError(c, "failed to add media")
		return
	}
	Success(c, req)
}
