package service

import (
	"errors"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/bitfantasy/fixdesk/internal/config"
	"github.com/bitfantasy/fixdesk/internal/event"
	"github.com/bitfantasy/fixdesk/internal/repository"
	"github.com/bitfantasy/fixdesk/internal/shared/ratelimit"
)

// 错误定义
var (
	ErrInvalidCursor   = errors.New("invalid cursor")
	ErrInvalidStatus   = errors.New("invalid status")
	ErrInvalidType     = errors.New("invalid request type")
	ErrRateLimited     = errors.New("rate limit exceeded")
	ErrQRTokenConflict = errors.New("failed to allocate unique qr token")
)

// Services 服务集合
type Services struct {
	Company        *CompanyService
	Asset          *AssetService
	Client         *ClientService
	Technician     *TechnicianService
	ServiceRequest *ServiceRequestService
	Intake         *IntakeService
	Mail           *MailService
	Upload         *UploadService
}

// NewServices 创建服务集合
func NewServices(repos *repository.Repositories, rdb *redis.Client, bus *event.Bus, cfg *config.Config, logger *zap.Logger) *Services {
	// 初始化MinIO客户端
	var minioClient *minio.Client
	if cfg.MinIO.Endpoint != "" {
		var err error
		minioClient, err = minio.New(cfg.MinIO.Endpoint, &minio.Options{
			Creds:  credentials.NewStaticV4(cfg.MinIO.AccessKey, cfg.MinIO.SecretKey, ""),
			Secure: cfg.MinIO.UseSSL,
		})
		if err != nil {
			logger.Warn("failed to init minio client, uploads disabled", zap.Error(err))
			minioClient = nil
		}
	}

	mailSvc := NewMailService(cfg.SMTP, logger)
	clientSvc := NewClientService(repos.Client)
	limiter := ratelimit.NewLimiter(rdb, cfg.Intake.RateLimit, cfg.Intake.RateLimitWindow)

	srSvc := NewServiceRequestService(repos.ServiceRequest, repos.Technician, repos.Asset, bus, mailSvc, logger)

	return &Services{
		Company:        NewCompanyService(repos.Company),
		Asset:          NewAssetService(repos.Asset, repos.Company, cfg.Server.PublicBaseURL),
		Client:         clientSvc,
		Technician:     NewTechnicianService(repos.Technician, repos.Company),
		ServiceRequest: srSvc,
		Intake:         NewIntakeService(repos.Asset, clientSvc, repos.ServiceRequest, limiter, bus, logger),
		Mail:           mailSvc,
		Upload:         NewUploadService(minioClient, cfg.MinIO.Bucket, cfg.MinIO.PublicURL),
	}
}
