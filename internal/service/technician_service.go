package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/bitfantasy/fixdesk/internal/model/entity"
	"github.com/bitfantasy/fixdesk/internal/repository"
)

// TechnicianService 技师服务
type TechnicianService struct {
	repo        *repository.TechnicianRepository
	companyRepo *repository.CompanyRepository
}

// NewTechnicianService 创建技师服务
func NewTechnicianService(repo *repository.TechnicianRepository, companyRepo *repository.CompanyRepository) *TechnicianService {
	return &TechnicianService{repo: repo, companyRepo: companyRepo}
}

// CreateTechnicianInput 创建技师参数
type CreateTechnicianInput struct {
	CompanyID string `json:"company_id" binding:"required"`
	Name      string `json:"name" binding:"required"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	Specialty string `json:"specialty"`
}

// Create 创建技师
func (s *TechnicianService) Create(ctx context.Context, input *CreateTechnicianInput) (*entity.Technician, error) {
	if _, err := s.companyRepo.FindByID(ctx, input.CompanyID); err != nil {
		return nil, fmt.Errorf("company not found: %w", err)
	}

	tech := &entity.Technician{
		ID:        uuid.New().String(),
		CompanyID: input.CompanyID,
		Name:      input.Name,
		Email:     input.Email,
		Phone:     input.Phone,
		Specialty: input.Specialty,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	if err := s.repo.Create(ctx, tech); err != nil {
		return nil, fmt.Errorf("create technician: %w", err)
	}
	return tech, nil
}

// GetByID 获取技师详情
func (s *TechnicianService) GetByID(ctx context.Context, id string) (*entity.Technician, error) {
	return s.repo.FindByID(ctx, id)
}

// List 获取技师列表
func (s *TechnicianService) List(ctx context.Context, companyID string) ([]entity.Technician, error) {
	return s.repo.List(ctx, companyID)
}
