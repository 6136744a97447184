package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/bitfantasy/fixdesk/internal/model/entity"
	"github.com/bitfantasy/fixdesk/internal/repository"
)

// ClientService 客户服务
type ClientService struct {
	repo *repository.ClientRepository
}

// NewClientService 创建客户服务
func NewClientService(repo *repository.ClientRepository) *ClientService {
	return &ClientService{repo: repo}
}

// FindOrCreate 在公司内查找已有客户，先按邮箱再按手机号去重，都未命中则创建
func (s *ClientService) FindOrCreate(ctx context.Context, companyID, name, email, phone string) (*entity.Client, error) {
	if email != "" {
		client, err := s.repo.FindByEmail(ctx, companyID, email)
		if err == nil {
			return client, nil
		}
		if !errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("find client by email: %w", err)
		}
	}
	if phone != "" {
		client, err := s.repo.FindByPhone(ctx, companyID, phone)
		if err == nil {
			return client, nil
		}
		if !errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("find client by phone: %w", err)
		}
	}

	client := &entity.Client{
		ID:        uuid.New().String(),
		CompanyID: companyID,
		Name:      name,
		Email:     email,
		Phone:     phone,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	if err := s.repo.Create(ctx, client); err != nil {
		return nil, fmt.Errorf("create client: %w", err)
	}
	return client, nil
}

// GetByID 获取客户详情
func (s *ClientService) GetByID(ctx context.Context, id string) (*entity.Client, error) {
	return s.repo.FindByID(ctx, id)
}
