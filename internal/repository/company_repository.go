package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/bitfantasy/fixdesk/internal/model/entity"
)

// CompanyRepository 公司仓库
type CompanyRepository struct {
	db *gorm.DB
}

// NewCompanyRepository 创建公司仓库
func NewCompanyRepository(db *gorm.DB) *CompanyRepository {
	return &CompanyRepository{db: db}
}

// FindByID 根据ID查找公司
func (r *CompanyRepository) FindByID(ctx context.Context, id string) (*entity.Company, error) {
	var company entity.Company
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&company).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &company, nil
}

// Create 创建公司
func (r *CompanyRepository) Create(ctx context.Context, company *entity.Company) error {
	return r.db.WithContext(ctx).Create(company).Error
}

// List 获取公司列表
func (r *CompanyRepository) List(ctx context.Context) ([]entity.Company, error) {
	var companies []entity.Company
	err := r.db.WithContext(ctx).Order("created_at DESC").Find(&companies).Error
	return companies, err
}
