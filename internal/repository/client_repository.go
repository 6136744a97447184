package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/bitfantasy/fixdesk/internal/model/entity"
)

// ClientRepository 客户仓库
type ClientRepository struct {
	db *gorm.DB
}

// NewClientRepository 创建客户仓库
func NewClientRepository(db *gorm.DB) *ClientRepository {
	return &ClientRepository{db: db}
}

// FindByID 根据ID查找客户
func (r *ClientRepository) FindByID(ctx context.Context, id string) (*entity.Client, error) {
	var client entity.Client
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&client).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &client, nil
}

// FindByEmail 在公司内按邮箱查找客户
func (r *ClientRepository) FindByEmail(ctx context.Context, companyID, email string) (*entity.Client, error) {
	var client entity.Client
	err := r.db.WithContext(ctx).
		Where("company_id = ? AND email = ?", companyID, email).
		First(&client).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &client, nil
}

// FindByPhone 在公司内按手机号查找客户
func (r *ClientRepository) FindByPhone(ctx context.Context, companyID, phone string) (*entity.Client, error) {
	var client entity.Client
	err := r.db.WithContext(ctx).
		Where("company_id = ? AND phone = ?", companyID, phone).
		First(&client).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &client, nil
}

// Create 创建客户
func (r *ClientRepository) Create(ctx context.Context, client *entity.Client) error {
	return r.db.WithContext(ctx).Create(client).Error
}
