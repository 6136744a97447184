package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/bitfantasy/fixdesk/internal/event"
	"github.com/bitfantasy/fixdesk/internal/model/entity"
	"github.com/bitfantasy/fixdesk/internal/repository"
	"github.com/bitfantasy/fixdesk/internal/shared/ratelimit"
)

// IntakeService 扫码公开报修入口
type IntakeService struct {
	assetRepo *repository.AssetRepository
	clientSvc *ClientService
	srRepo    *repository.ServiceRequestRepository
	limiter   *ratelimit.Limiter
	bus       *event.Bus
	logger    *zap.Logger
}

// NewIntakeService 创建报修入口服务
func NewIntakeService(assetRepo *repository.AssetRepository, clientSvc *ClientService, srRepo *repository.ServiceRequestRepository, limiter *ratelimit.Limiter, bus *event.Bus, logger *zap.Logger) *IntakeService {
	return &IntakeService{
		assetRepo: assetRepo,
		clientSvc: clientSvc,
		srRepo:    srRepo,
		limiter:   limiter,
		bus:       bus,
		logger:    logger,
	}
}

// IntakeInput 扫码报修提交参数
type IntakeInput struct {
	Name        string             `json:"name" binding:"required"`
	Email       string             `json:"email"`
	Phone       string             `json:"phone"`
	Type        entity.RequestType `json:"type" binding:"required"`
	Description string             `json:"description" binding:"required"`
	Media       entity.MediaList   `json:"media"`
}

// IntakeResult 报修受理结果
type IntakeResult struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
}

func limiterKey(token, ip string) string {
	return fmt.Sprintf("intake:%s:%s", token, ip)
}

// Create 受理扫码报修。同一令牌同一IP在窗口内限次。
func (s *IntakeService) Create(ctx context.Context, token, ip string, input *IntakeInput) (*IntakeResult, error) {
	res, err := s.limiter.Allow(ctx, limiterKey(token, ip))
	if err != nil {
		return nil, fmt.Errorf("rate limit check: %w", err)
	}
	if !res.Allowed {
		return nil, ErrRateLimited
	}

	asset, err := s.assetRepo.FindByQRToken(ctx, token)
	if err != nil {
		return nil, err
	}

	if input.Type != entity.TypeMaintenance && input.Type != entity.TypeMalfunction {
		return nil, fmt.Errorf("%w: %q", ErrInvalidType, input.Type)
	}

	client, err := s.clientSvc.FindOrCreate(ctx, asset.CompanyID, input.Name, input.Email, input.Phone)
	if err != nil {
		return nil, err
	}

	media := input.Media
	if media == nil {
		media = entity.MediaList{}
	}
	req := &entity.ServiceRequest{
		ID:              uuid.New().String(),
		CompanyID:       asset.CompanyID,
		AssetID:         asset.ID,
		ClientID:        &client.ID,
		Channel:         entity.ChannelQR,
		Type:            input.Type,
		Status:          entity.StatusPending,
		Description:     input.Description,
		ClientMedia:     media,
		TechnicianMedia: entity.MediaList{},
	}
	if err := s.srRepo.Create(ctx, req); err != nil {
		return nil, fmt.Errorf("create service request: %w", err)
	}

	s.logger.Info("service request created via qr intake",
		zap.String("request_id", req.ID),
		zap.String("asset_id", asset.ID),
		zap.String("company_id", asset.CompanyID))

	s.bus.Publish(event.Event{
		Kind:      event.KindCreated,
		CompanyID: asset.CompanyID,
		Payload:   newRequestCard(req),
	})

	return &IntakeResult{ID: req.ID, CreatedAt: req.CreatedAt}, nil
}

// Status 查询当前限流状态，不消耗配额
func (s *IntakeService) Status(ctx context.Context, token, ip string) (*ratelimit.Result, error) {
	return s.limiter.Status(ctx, limiterKey(token, ip))
}
