package handler

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/bitfantasy/fixdesk/internal/event"
	"github.com/bitfantasy/fixdesk/internal/realtime"
	"github.com/bitfantasy/fixdesk/internal/service"
)

// Handlers 处理器集合
type Handlers struct {
	Company        *CompanyHandler
	Asset          *AssetHandler
	Technician     *TechnicianHandler
	ServiceRequest *ServiceRequestHandler
	Intake         *IntakeHandler
	Upload         *UploadHandler
	SSE            *SSEHandler
	WS             *WSHandler
}

// NewHandlers 创建处理器集合
func NewHandlers(svc *service.Services, bus *event.Bus, hub *realtime.Hub, logger *zap.Logger) *Handlers {
	return &Handlers{
		Company:        NewCompanyHandler(svc.Company),
		Asset:          NewAssetHandler(svc.Asset),
		Technician:     NewTechnicianHandler(svc.Technician),
		ServiceRequest: NewServiceRequestHandler(svc.ServiceRequest),
		Intake:         NewIntakeHandler(svc.Intake, svc.Asset),
		Upload:         NewUploadHandler(svc.Upload),
		SSE:            NewSSEHandler(bus, logger),
		WS:             NewWSHandler(hub),
	}
}

// Response 通用响应结构
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// Success 成功响应
func Success(c *gin.Context, data interface{}) {
	c.JSON(200, Response{
		Code:    0,
		Message: "success",
		Data:    data,
	})
}

// Created 创建成功响应
func Created(c *gin.Context, data interface{}) {
	c.JSON(201, Response{
		Code:    0,
		Message: "success",
		Data:    data,
	})
}

// Error 错误响应
func Error(c *gin.Context, code int, message string) {
	statusCode := code / 100
	if statusCode < 100 || statusCode > 599 {
		statusCode = 500
	}
	c.JSON(statusCode, Response{
		Code:    code,
		Message: message,
	})
}

// BadRequest 参数错误响应
func BadRequest(c *gin.Context, message string) {
	Error(c, 40000, message)
}

// NotFound 资源不存在响应
func NotFound(c *gin.Context, message string) {
	Error(c, 40400, message)
}

// Conflict 资源冲突响应
func Conflict(c *gin.Context, message string) {
	Error(c, 40900, message)
}

// TooManyRequests 限流响应
func TooManyRequests(c *gin.Context, message string) {
	Error(c, 42900, message)
}

// InternalError 服务器错误响应
func InternalError(c *gin.Context, message string) {
	Error(c, 50000, message)
}
