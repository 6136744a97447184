package repository

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/bitfantasy/fixdesk/internal/model/entity"
)

// AssetRepository 资产仓库
type AssetRepository struct {
	db *gorm.DB
}

// NewAssetRepository 创建资产仓库
func NewAssetRepository(db *gorm.DB) *AssetRepository {
	return &AssetRepository{db: db}
}

// FindByID 根据ID查找资产
func (r *AssetRepository) FindByID(ctx context.Context, id string) (*entity.Asset, error) {
	var asset entity.Asset
	err := r.db.WithContext(ctx).
		Preload("Company").
		Where("id = ?", id).
		First(&asset).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &asset, nil
}

// FindByQRToken 根据二维码令牌查找资产
func (r *AssetRepository) FindByQRToken(ctx context.Context, token string) (*entity.Asset, error) {
	var asset entity.Asset
	err := r.db.WithContext(ctx).
		Preload("Company").
		Where("qr_token = ?", token).
		First(&asset).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &asset, nil
}

// Create 创建资产
func (r *AssetRepository) Create(ctx context.Context, asset *entity.Asset) error {
	return r.db.WithContext(ctx).Create(asset).Error
}

// ListByCompany 获取公司资产列表
func (r *AssetRepository) ListByCompany(ctx context.Context, companyID string) ([]entity.Asset, error) {
	var assets []entity.Asset
	err := r.db.WithContext(ctx).
		Where("company_id = ?", companyID).
		Order("created_at DESC").
		Find(&assets).Error
	return assets, err
}

// IsUniqueViolation 判断是否为唯一约束冲突
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	// postgres 23505
	return strings.Contains(err.Error(), "duplicate key value") ||
		strings.Contains(err.Error(), "SQLSTATE 23505")
}
