package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/bitfantasy/fixdesk/internal/model/entity"
)

// TechnicianRepository 技师仓库
type TechnicianRepository struct {
	db *gorm.DB
}

// NewTechnicianRepository 创建技师仓库
func NewTechnicianRepository(db *gorm.DB) *TechnicianRepository {
	return &TechnicianRepository{db: db}
}

// FindByID 根据ID查找技师
func (r *TechnicianRepository) FindByID(ctx context.Context, id string) (*entity.Technician, error) {
	var tech entity.Technician
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&tech).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &tech, nil
}

// Create 创建技师
func (r *TechnicianRepository) Create(ctx context.Context, tech *entity.Technician) error {
	return r.db.WithContext(ctx).Create(tech).Error
}

// List 获取技师列表，companyID 非空时按公司过滤
func (r *TechnicianRepository) List(ctx context.Context, companyID string) ([]entity.Technician, error) {
	var techs []entity.Technician
	query := r.db.WithContext(ctx)
	if companyID != "" {
		query = query.Where("company_id = ?", companyID)
	}
	err := query.Order("created_at DESC").Find(&techs).Error
	return techs, err
}
