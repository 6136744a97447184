package entity

import "time"

// Technician 维修技师
type Technician struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	CompanyID string    `gorm:"size:36;not null;index" json:"company_id"`
	Name      string    `gorm:"size:255;not null" json:"name"`
	Email     string    `gorm:"size:255" json:"email"`
	Phone     string    `gorm:"size:64" json:"phone"`
	Specialty string    `gorm:"size:255" json:"specialty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Technician) TableName() string {
	return "technicians"
}
