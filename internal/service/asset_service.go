package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/bitfantasy/fixdesk/internal/model/entity"
	"github.com/bitfantasy/fixdesk/internal/repository"
	"github.com/bitfantasy/fixdesk/internal/shared/qrtoken"
)

// qrTokenMaxRetries 令牌唯一冲突时的最大重试次数
const qrTokenMaxRetries = 5

// AssetService 资产服务
type AssetService struct {
	repo          *repository.AssetRepository
	companyRepo   *repository.CompanyRepository
	publicBaseURL string
}

// NewAssetService 创建资产服务
func NewAssetService(repo *repository.AssetRepository, companyRepo *repository.CompanyRepository, publicBaseURL string) *AssetService {
	return &AssetService{repo: repo, companyRepo: companyRepo, publicBaseURL: publicBaseURL}
}

// CreateAssetInput 创建资产参数
type CreateAssetInput struct {
	CompanyID   string `json:"company_id" binding:"required"`
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
	Location    string `json:"location"`
}

// Create 创建资产并分配二维码令牌，令牌冲突时重新生成
func (s *AssetService) Create(ctx context.Context, input *CreateAssetInput) (*entity.Asset, error) {
	if _, err := s.companyRepo.FindByID(ctx, input.CompanyID); err != nil {
		return nil, fmt.Errorf("company not found: %w", err)
	}

	for attempt := 0; attempt < qrTokenMaxRetries; attempt++ {
		token, err := qrtoken.Generate()
		if err != nil {
			return nil, fmt.Errorf("generate qr token: %w", err)
		}

		asset := &entity.Asset{
			ID:          uuid.New().String(),
			CompanyID:   input.CompanyID,
			Name:        input.Name,
			Description: input.Description,
			Location:    input.Location,
			QRToken:     token,
			CreatedAt:   time.Now(),
			UpdatedAt:   time.Now(),
		}
		err = s.repo.Create(ctx, asset)
		if err == nil {
			return asset, nil
		}
		if !repository.IsUniqueViolation(err) {
			return nil, fmt.Errorf("create asset: %w", err)
		}
	}
	return nil, ErrQRTokenConflict
}

// GetByID 获取资产详情
func (s *AssetService) GetByID(ctx context.Context, id string) (*entity.Asset, error) {
	return s.repo.FindByID(ctx, id)
}

// PublicAsset 扫码后展示给客户的资产信息
type PublicAsset struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Location    string `json:"location"`
	CompanyName string `json:"company_name"`
}

// ResolveByToken 根据二维码令牌返回公开资产信息
func (s *AssetService) ResolveByToken(ctx context.Context, token string) (*PublicAsset, error) {
	asset, err := s.repo.FindByQRToken(ctx, token)
	if err != nil {
		return nil, err
	}

	pub := &PublicAsset{
		Name:        asset.Name,
		Description: asset.Description,
		Location:    asset.Location,
	}
	if asset.Company != nil {
		pub.CompanyName = asset.Company.Name
	}
	return pub, nil
}

// QRInfo 资产二维码信息
type QRInfo struct {
	QRToken   string `json:"qr_token"`
	IntakeURL string `json:"intake_url"`
}

// GetQRInfo 返回资产二维码令牌及对应的报修页地址
func (s *AssetService) GetQRInfo(ctx context.Context, id string) (*QRInfo, error) {
	asset, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return &QRInfo{
		QRToken:   asset.QRToken,
		IntakeURL: fmt.Sprintf("%s/intake/%s", s.publicBaseURL, asset.QRToken),
	}, nil
}
