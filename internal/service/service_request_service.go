package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/bitfantasy/fixdesk/internal/event"
	"github.com/bitfantasy/fixdesk/internal/model/entity"
	"github.com/bitfantasy/fixdesk/internal/repository"
	"github.com/bitfantasy/fixdesk/internal/shared/cursor"
)

const (
	defaultListLimit = 20
	maxListLimit     = 100

	descriptionPreviewLen = 100
)

// ServiceRequestService 工单服务
type ServiceRequestService struct {
	repo      *repository.ServiceRequestRepository
	techRepo  *repository.TechnicianRepository
	assetRepo *repository.AssetRepository
	bus       *event.Bus
	mail      *MailService
	logger    *zap.Logger
}

// NewServiceRequestService 创建工单服务
func NewServiceRequestService(repo *repository.ServiceRequestRepository, techRepo *repository.TechnicianRepository, assetRepo *repository.AssetRepository, bus *event.Bus, mail *MailService, logger *zap.Logger) *ServiceRequestService {
	return &ServiceRequestService{
		repo:      repo,
		techRepo:  techRepo,
		assetRepo: assetRepo,
		bus:       bus,
		mail:      mail,
		logger:    logger,
	}
}

// ListInput 工单列表查询参数
type ListInput struct {
	CompanyID    string
	Statuses     []entity.RequestStatus
	TechnicianID string
	From         *time.Time
	To           *time.Time
	Cursor       string
	Limit        int
}

// PersonSummary 列表中的人员摘要
type PersonSummary struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// AssetSummary 列表中的资产摘要
type AssetSummary struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Location string `json:"location"`
}

// RequestCard 工单列表卡片
type RequestCard struct {
	ID                 string                `json:"id"`
	CompanyID          string                `json:"company_id"`
	Status             entity.RequestStatus  `json:"status"`
	Type               entity.RequestType    `json:"type"`
	Channel            entity.RequestChannel `json:"channel"`
	DescriptionPreview string                `json:"description_preview"`
	Asset              *AssetSummary         `json:"asset"`
	Client             *PersonSummary        `json:"client"`
	Technician         *PersonSummary        `json:"technician"`
	ScheduledDate      *time.Time            `json:"scheduled_date"`
	ClientMedia        entity.MediaList      `json:"client_media"`
	TechnicianMedia    entity.MediaList      `json:"technician_media"`
	CreatedAt          time.Time             `json:"created_at"`
	UpdatedAt          time.Time             `json:"updated_at"`
}

// ListResult 工单分页结果
type ListResult struct {
	Items      []RequestCard `json:"items"`
	NextCursor *string       `json:"next_cursor"`
	HasMore    bool          `json:"has_more"`
	Count      int           `json:"count"`
}

// newRequestCard 构建列表卡片
func newRequestCard(req *entity.ServiceRequest) RequestCard {
	card := RequestCard{
		ID:                 req.ID,
		CompanyID:          req.CompanyID,
		Status:             req.Status,
		Type:               req.Type,
		Channel:            req.Channel,
		DescriptionPreview: previewOf(req.Description),
		ScheduledDate:      req.ScheduledDate,
		ClientMedia:        req.ClientMedia,
		TechnicianMedia:    req.TechnicianMedia,
		CreatedAt:          req.CreatedAt,
		UpdatedAt:          req.UpdatedAt,
	}
	if req.Asset != nil {
		card.Asset = &AssetSummary{ID: req.Asset.ID, Name: req.Asset.Name, Location: req.Asset.Location}
	}
	if req.Client != nil {
		card.Client = &PersonSummary{ID: req.Client.ID, Name: req.Client.Name}
	}
	if req.Technician != nil {
		card.Technician = &PersonSummary{ID: req.Technician.ID, Name: req.Technician.Name}
	}
	return card
}

// previewOf 描述摘要，按字符截断
func previewOf(description string) string {
	runes := []rune(description)
	if len(runes) <= descriptionPreviewLen {
		return description
	}
	return string(runes[:descriptionPreviewLen])
}

// clampLimit 进程内调用的兜底裁剪。HTTP入口在 handler 层校验范围，
// 越界的 limit 在那里直接拒绝。
func clampLimit(limit int) int {
	if limit <= 0 {
		return defaultListLimit
	}
	if limit > maxListLimit {
		return maxListLimit
	}
	return limit
}

// List 游标分页查询工单。非法游标返回 ErrInvalidCursor，不会退回第一页。
func (s *ServiceRequestService) List(ctx context.Context, input *ListInput) (*ListResult, error) {
	limit := clampLimit(input.Limit)

	var cur *cursor.Cursor
	if input.Cursor != "" {
		c, err := cursor.Decode(input.Cursor)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidCursor, err)
		}
		cur = &c
	}

	for _, st := range input.Statuses {
		if !entity.IsValidStatus(st) {
			return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, st)
		}
	}

	rows, err := s.repo.List(ctx, repository.ListQuery{
		CompanyID:    input.CompanyID,
		Statuses:     input.Statuses,
		TechnicianID: input.TechnicianID,
		From:         input.From,
		To:           input.To,
		Cursor:       cur,
		Limit:        limit,
	})
	if err != nil {
		return nil, fmt.Errorf("list service requests: %w", err)
	}

	hasMore := len(rows) > limit
	if hasMore {
		rows = rows[:limit]
	}

	items := make([]RequestCard, 0, len(rows))
	for i := range rows {
		items = append(items, newRequestCard(&rows[i]))
	}

	result := &ListResult{
		Items:   items,
		HasMore: hasMore,
		Count:   len(items),
	}
	if hasMore {
		last := rows[len(rows)-1]
		next := cursor.Encode(last.CreatedAt, last.ID)
		result.NextCursor = &next
	}
	return result, nil
}

// Get 获取工单详情
func (s *ServiceRequestService) Get(ctx context.Context, id string) (*entity.ServiceRequest, error) {
	return s.repo.FindByID(ctx, id)
}

// CreateRequestInput 后台手工建单参数
type CreateRequestInput struct {
	AssetID     string             `json:"asset_id" binding:"required"`
	ClientID    *string            `json:"client_id"`
	Type        entity.RequestType `json:"type" binding:"required"`
	Description string             `json:"description" binding:"required"`
	Media       entity.MediaList   `json:"media"`
}

// Create 后台手工建单
func (s *ServiceRequestService) Create(ctx context.Context, input *CreateRequestInput) (*entity.ServiceRequest, error) {
	asset, err := s.assetRepo.FindByID(ctx, input.AssetID)
	if err != nil {
		return nil, fmt.Errorf("asset not found: %w", err)
	}
	if input.Type != entity.TypeMaintenance && input.Type != entity.TypeMalfunction {
		return nil, fmt.Errorf("%w: %q", ErrInvalidType, input.Type)
	}

	media := input.Media
	if media == nil {
		media = entity.MediaList{}
	}
	req := &entity.ServiceRequest{
		ID:              uuid.New().String(),
		CompanyID:       asset.CompanyID,
		AssetID:         asset.ID,
		ClientID:        input.ClientID,
		Channel:         entity.ChannelManual,
		Type:            input.Type,
		Status:          entity.StatusPending,
		Description:     input.Description,
		ClientMedia:     media,
		TechnicianMedia: entity.MediaList{},
	}
	if err := s.repo.Create(ctx, req); err != nil {
		return nil, fmt.Errorf("create service request: %w", err)
	}

	s.publish(event.KindCreated, req)
	return req, nil
}

// AssignTechnician 指派技师。仅当工单处于 PENDING 时自动推进到 ASSIGNED。
func (s *ServiceRequestService) AssignTechnician(ctx context.Context, id, technicianID string) (*entity.ServiceRequest, error) {
	req, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	tech, err := s.techRepo.FindByID(ctx, technicianID)
	if err != nil {
		return nil, err
	}

	req.TechnicianID = &tech.ID
	req.Technician = tech
	if req.Status == entity.StatusPending {
		req.Status = entity.StatusAssigned
	}
	if err := s.repo.Save(ctx, req); err != nil {
		return nil, fmt.Errorf("save service request: %w", err)
	}

	s.publish(event.KindTechnicianAssigned, req)
	return req, nil
}

// UpdateStatus 更新工单状态。允许任意合法状态间的覆盖写，
// 越过正常流转表的写入记录告警。
func (s *ServiceRequestService) UpdateStatus(ctx context.Context, id string, status entity.RequestStatus) (*entity.ServiceRequest, error) {
	if !entity.IsValidStatus(status) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}

	req, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if !entity.IsNormalTransition(req.Status, status) {
		s.logger.Warn("irregular status transition",
			zap.String("request_id", id),
			zap.String("from", string(req.Status)),
			zap.String("to", string(status)))
	}

	req.Status = status
	if err := s.repo.Save(ctx, req); err != nil {
		return nil, fmt.Errorf("save service request: %w", err)
	}

	s.publish(event.KindStatusUpdated, req)
	return req, nil
}

// UpdateNotes 更新技师备注
func (s *ServiceRequestService) UpdateNotes(ctx context.Context, id, notes string) (*entity.ServiceRequest, error) {
	req, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	req.TechnicianNotes = notes
	if err := s.repo.Save(ctx, req); err != nil {
		return nil, fmt.Errorf("save service request: %w", err)
	}

	s.publish(event.KindNotesUpdated, req)
	return req, nil
}

// UpdateRequestInput 工单部分更新参数，nil 字段不修改
type UpdateRequestInput struct {
	TechnicianID    *string               `json:"technician_id"`
	Status          *entity.RequestStatus `json:"status"`
	TechnicianNotes *string               `json:"technician_notes"`
	ScheduledDate   *time.Time            `json:"scheduled_date"`
	Description     *string               `json:"description"`
}

// Update 部分更新工单。字段按 技师、状态、备注、预约时间、描述 的顺序
// 依次生效，整体只保存一次、只发布一条 updated 事件。
func (s *ServiceRequestService) Update(ctx context.Context, id string, input *UpdateRequestInput) (*entity.ServiceRequest, error) {
	req, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.TechnicianID != nil {
		tech, err := s.techRepo.FindByID(ctx, *input.TechnicianID)
		if err != nil {
			return nil, err
		}
		req.TechnicianID = &tech.ID
		req.Technician = tech
		if req.Status == entity.StatusPending {
			req.Status = entity.StatusAssigned
		}
	}
	if input.Status != nil {
		if !entity.IsValidStatus(*input.Status) {
			return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, *input.Status)
		}
		if !entity.IsNormalTransition(req.Status, *input.Status) {
			s.logger.Warn("irregular status transition",
				zap.String("request_id", id),
				zap.String("from", string(req.Status)),
				zap.String("to", string(*input.Status)))
		}
		req.Status = *input.Status
	}
	if input.TechnicianNotes != nil {
		req.TechnicianNotes = *input.TechnicianNotes
	}
	if input.ScheduledDate != nil {
		req.ScheduledDate = input.ScheduledDate
	}
	if input.Description != nil {
		req.Description = *input.Description
	}

	if err := s.repo.Save(ctx, req); err != nil {
		return nil, fmt.Errorf("save service request: %w", err)
	}

	s.publish(event.KindUpdated, req)
	s.notifyClient(req)
	return req, nil
}

// AddClientMedia 追加客户上传的媒体
func (s *ServiceRequestService) AddClientMedia(ctx context.Context, id string, items entity.MediaList) (*entity.ServiceRequest, error) {
	return s.addMedia(ctx, id, items, false)
}

// AddTechnicianMedia 追加技师上传的媒体
func (s *ServiceRequestService) AddTechnicianMedia(ctx context.Context, id string, items entity.MediaList) (*entity.ServiceRequest, error) {
	return s.addMedia(ctx, id, items, true)
}

func (s *ServiceRequestService) addMedia(ctx context.Context, id string, items entity.MediaList, technician bool) (*entity.ServiceRequest, error) {
	req, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	target := "client"
	if technician {
		req.TechnicianMedia = append(req.TechnicianMedia, items...)
		target = "technician"
	} else {
		req.ClientMedia = append(req.ClientMedia, items...)
	}
	if err := s.repo.Save(ctx, req); err != nil {
		return nil, fmt.Errorf("save service request: %w", err)
	}

	// 事件只携带新增的媒体
	s.bus.Publish(event.Event{
		Kind:      event.KindMediaAdded,
		CompanyID: req.CompanyID,
		Payload: map[string]interface{}{
			"request_id": req.ID,
			"target":     target,
			"items":      items,
		},
	})
	return req, nil
}

// publish 持久化成功后发布变更事件
func (s *ServiceRequestService) publish(kind string, req *entity.ServiceRequest) {
	s.bus.Publish(event.Event{
		Kind:      kind,
		CompanyID: req.CompanyID,
		Payload:   newRequestCard(req),
	})
}

// notifyClient 向客户发送更新通知邮件，失败只记录日志
func (s *ServiceRequestService) notifyClient(req *entity.ServiceRequest) {
	if req.Client == nil || req.Client.Email == "" {
		return
	}
	to := req.Client.Email
	name := req.Client.Name
	id := req.ID
	status := string(req.Status)
	go func() {
		if err := s.mail.SendRequestUpdated(to, name, id, status); err != nil {
			s.logger.Warn("failed to send update notice",
				zap.String("request_id", id), zap.Error(err))
		}
	}()
}

var exportHeaders = []string{
	"ID", "状态", "类型", "渠道", "资产", "位置", "客户", "技师",
	"预约时间", "描述", "技师备注", "创建时间", "更新时间",
}

// ExportExcel 导出符合条件的工单为xlsx
func (s *ServiceRequestService) ExportExcel(ctx context.Context, input *ListInput) (*excelize.File, error) {
	for _, st := range input.Statuses {
		if !entity.IsValidStatus(st) {
			return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, st)
		}
	}

	f := excelize.NewFile()
	sheet := "ServiceRequests"
	f.SetSheetName("Sheet1", sheet)

	boldStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 11},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#D9E1F2"}},
		Border: []excelize.Border{
			{Type: "bottom", Color: "000000", Style: 1},
		},
	})
	for i, h := range exportHeaders {
		col, _ := excelize.ColumnNumberToName(i + 1)
		cell := col + "1"
		f.SetCellValue(sheet, cell, h)
		f.SetCellStyle(sheet, cell, cell, boldStyle)
	}

	// 分批拉取全部匹配行
	row := 2
	var cur *cursor.Cursor
	for {
		rows, err := s.repo.List(ctx, repository.ListQuery{
			CompanyID:    input.CompanyID,
			Statuses:     input.Statuses,
			TechnicianID: input.TechnicianID,
			From:         input.From,
			To:           input.To,
			Cursor:       cur,
			Limit:        maxListLimit,
		})
		if err != nil {
			return nil, fmt.Errorf("list service requests: %w", err)
		}
		hasMore := len(rows) > maxListLimit
		if hasMore {
			rows = rows[:maxListLimit]
		}

		for i := range rows {
			writeExportRow(f, sheet, row, &rows[i])
			row++
		}

		if !hasMore {
			break
		}
		// 进程内翻页直接用原始时间，不走编解码，避免毫秒截断
		last := rows[len(rows)-1]
		cur = &cursor.Cursor{CreatedAt: last.CreatedAt, ID: last.ID}
	}

	return f, nil
}

func writeExportRow(f *excelize.File, sheet string, row int, req *entity.ServiceRequest) {
	assetName, location := "", ""
	if req.Asset != nil {
		assetName = req.Asset.Name
		location = req.Asset.Location
	}
	clientName := ""
	if req.Client != nil {
		clientName = req.Client.Name
	}
	techName := ""
	if req.Technician != nil {
		techName = req.Technician.Name
	}
	scheduled := ""
	if req.ScheduledDate != nil {
		scheduled = req.ScheduledDate.Format("2006-01-02 15:04")
	}

	values := []interface{}{
		req.ID, string(req.Status), string(req.Type), string(req.Channel),
		assetName, location, clientName, techName, scheduled,
		req.Description, req.TechnicianNotes,
		req.CreatedAt.Format("2006-01-02 15:04:05"),
		req.UpdatedAt.Format("2006-01-02 15:04:05"),
	}
	for i, v := range values {
		col, _ := excelize.ColumnNumberToName(i + 1)
		f.SetCellValue(sheet, col+fmt.Sprintf("%d", row), v)
	}
}
