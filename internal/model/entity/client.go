package entity

import "time"

// Client 报修客户，扫码提交时按邮箱/手机号去重
type Client struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	CompanyID string    `gorm:"size:36;not null;index" json:"company_id"`
	Name      string    `gorm:"size:255;not null" json:"name"`
	Email     string    `gorm:"size:255" json:"email"`
	Phone     string    `gorm:"size:64" json:"phone"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Client) TableName() string {
	return "clients"
}
