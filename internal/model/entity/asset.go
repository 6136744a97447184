package entity

import "time"

// Asset 资产设备，贴有二维码供客户扫码报修
type Asset struct {
	ID          string    `gorm:"primaryKey;size:36" json:"id"`
	CompanyID   string    `gorm:"size:36;not null;index" json:"company_id"`
	Name        string    `gorm:"size:255;not null" json:"name"`
	Description string    `gorm:"type:text" json:"description"`
	Location    string    `gorm:"size:255" json:"location"`
	QRToken     string    `gorm:"column:qr_token;size:24;not null;uniqueIndex" json:"qr_token"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	Company *Company `gorm:"foreignKey:CompanyID" json:"company,omitempty"`
}

func (Asset) TableName() string {
	return "assets"
}
