package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/bitfantasy/fixdesk/internal/model/entity"
	"github.com/bitfantasy/fixdesk/internal/shared/cursor"
)

// ListQuery 工单列表查询条件
type ListQuery struct {
	CompanyID    string
	Statuses     []entity.RequestStatus
	TechnicianID string
	// From 创建时间下界（含）
	From *time.Time
	// To 创建时间上界所在日期，查询时取该日期+24h 为开区间上界
	To *time.Time
	// Cursor 为空表示第一页
	Cursor *cursor.Cursor
	// Limit 调用方应预先裁剪到合法范围
	Limit int
}

// ServiceRequestRepository 工单仓库
type ServiceRequestRepository struct {
	db *gorm.DB
}

// NewServiceRequestRepository 创建工单仓库
func NewServiceRequestRepository(db *gorm.DB) *ServiceRequestRepository {
	return &ServiceRequestRepository{db: db}
}

// FindByID 根据ID查找工单
func (r *ServiceRequestRepository) FindByID(ctx context.Context, id string) (*entity.ServiceRequest, error) {
	var req entity.ServiceRequest
	err := r.db.WithContext(ctx).
		Preload("Asset").
		Preload("Asset.Company").
		Preload("Client").
		Preload("Technician").
		Where("id = ?", id).
		First(&req).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &req, nil
}

// Create 创建工单
func (r *ServiceRequestRepository) Create(ctx context.Context, req *entity.ServiceRequest) error {
	return r.db.WithContext(ctx).Create(req).Error
}

// Save 保存工单全部字段
func (r *ServiceRequestRepository) Save(ctx context.Context, req *entity.ServiceRequest) error {
	return r.db.WithContext(ctx).Save(req).Error
}

// List 按创建时间倒序返回最多 limit+1 条记录。
// 排序键为 (created_at DESC, id DESC)，游标谓词与排序键一致，
// 多取的一条用于上层判断是否还有下一页。
func (r *ServiceRequestRepository) List(ctx context.Context, q ListQuery) ([]entity.ServiceRequest, error) {
	query := r.db.WithContext(ctx).
		Preload("Asset").
		Preload("Asset.Company").
		Preload("Client").
		Preload("Technician")

	if q.CompanyID != "" {
		query = query.Where("company_id = ?", q.CompanyID)
	}
	if len(q.Statuses) > 0 {
		query = query.Where("status IN ?", q.Statuses)
	}
	if q.TechnicianID != "" {
		query = query.Where("technician_id = ?", q.TechnicianID)
	}
	if q.From != nil {
		query = query.Where("created_at >= ?", *q.From)
	}
	if q.To != nil {
		query = query.Where("created_at < ?", q.To.Add(24*time.Hour))
	}
	if q.Cursor != nil {
		query = query.Where(
			"created_at < ? OR (created_at = ? AND id < ?)",
			q.Cursor.CreatedAt, q.Cursor.CreatedAt, q.Cursor.ID,
		)
	}

	var requests []entity.ServiceRequest
	err := query.
		Order("created_at DESC, id DESC").
		Limit(q.Limit + 1).
		Find(&requests).Error
	return requests, err
}
