package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/bitfantasy/fixdesk/internal/model/entity"
	"github.com/bitfantasy/fixdesk/internal/repository"
)

// CompanyService 公司服务
type CompanyService struct {
	repo *repository.CompanyRepository
}

// NewCompanyService 创建公司服务
func NewCompanyService(repo *repository.CompanyRepository) *CompanyService {
	return &CompanyService{repo: repo}
}

// CreateCompanyInput 创建公司参数
type CreateCompanyInput struct {
	Name string `json:"name" binding:"required"`
}

// Create 创建公司
func (s *CompanyService) Create(ctx context.Context, input *CreateCompanyInput) (*entity.Company, error) {
	company := &entity.Company{
		ID:        uuid.New().String(),
		Name:      input.Name,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	if err := s.repo.Create(ctx, company); err != nil {
		return nil, fmt.Errorf("create company: %w", err)
	}
	return company, nil
}

// GetByID 获取公司详情
func (s *CompanyService) GetByID(ctx context.Context, id string) (*entity.Company, error) {
	return s.repo.FindByID(ctx, id)
}

// List 获取公司列表
func (s *CompanyService) List(ctx context.Context) ([]entity.Company, error) {
	return s.repo.List(ctx)
}
