package repository

import (
	"errors"

	"gorm.io/gorm"
)

// 错误定义
var (
	ErrNotFound = errors.New("record not found")
)

// Repositories 仓库集合
type Repositories struct {
	Company        *CompanyRepository
	Asset          *AssetRepository
	Client         *ClientRepository
	Technician     *TechnicianRepository
	ServiceRequest *ServiceRequestRepository
}

// NewRepositories 创建仓库集合
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		Company:        NewCompanyRepository(db),
		Asset:          NewAssetRepository(db),
		Client:         NewClientRepository(db),
		Technician:     NewTechnicianRepository(db),
		ServiceRequest: NewServiceRequestRepository(db),
	}
}
