package entity

import "time"

// RequestChannel 工单来源渠道
type RequestChannel string

const (
	ChannelQR     RequestChannel = "QR"
	ChannelManual RequestChannel = "MANUAL"
)

// RequestType 工单类型
type RequestType string

const (
	TypeMaintenance RequestType = "MAINTENANCE"
	TypeMalfunction RequestType = "MALFUNCTION"
)

// RequestStatus 工单状态
type RequestStatus string

const (
	StatusPending    RequestStatus = "PENDING"
	StatusAssigned   RequestStatus = "ASSIGNED"
	StatusScheduled  RequestStatus = "SCHEDULED"
	StatusInProgress RequestStatus = "IN_PROGRESS"
	StatusResolved   RequestStatus = "RESOLVED"
	StatusClosed     RequestStatus = "CLOSED"
)

// ValidStatuses 所有合法状态
var ValidStatuses = []RequestStatus{
	StatusPending,
	StatusAssigned,
	StatusScheduled,
	StatusInProgress,
	StatusResolved,
	StatusClosed,
}

// IsValidStatus 校验状态取值
func IsValidStatus(s RequestStatus) bool {
	for _, v := range ValidStatuses {
		if v == s {
			return true
		}
	}
	return false
}

// statusTransitions 正常流转表。写入并不强制按表执行，
// 越过流转表的写入只记录告警日志。
var statusTransitions = map[RequestStatus][]RequestStatus{
	StatusPending:    {StatusAssigned},
	StatusAssigned:   {StatusScheduled, StatusInProgress},
	StatusScheduled:  {StatusInProgress},
	StatusInProgress: {StatusResolved},
	StatusResolved:   {StatusClosed},
	StatusClosed:     {},
}

// IsNormalTransition 判断状态变更是否符合正常流转，相同状态视为正常
func IsNormalTransition(from, to RequestStatus) bool {
	if from == to {
		return true
	}
	for _, next := range statusTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// ServiceRequest 维修工单
type ServiceRequest struct {
	ID              string         `gorm:"primaryKey;size:36" json:"id"`
	CompanyID       string         `gorm:"size:36;not null;index:idx_service_requests_company_created,priority:1" json:"company_id"`
	AssetID         string         `gorm:"size:36;not null;index" json:"asset_id"`
	ClientID        *string        `gorm:"size:36;index" json:"client_id"`
	TechnicianID    *string        `gorm:"size:36;index" json:"technician_id"`
	Channel         RequestChannel `gorm:"size:16;not null" json:"channel"`
	Type            RequestType    `gorm:"size:16;not null" json:"type"`
	Status          RequestStatus  `gorm:"size:16;not null;default:PENDING;index" json:"status"`
	Description     string         `gorm:"type:text" json:"description"`
	TechnicianNotes string         `gorm:"type:text" json:"technician_notes"`
	ScheduledDate   *time.Time     `json:"scheduled_date"`
	ClientMedia     MediaList      `gorm:"type:jsonb;default:'[]'" json:"client_media"`
	TechnicianMedia MediaList      `gorm:"type:jsonb;default:'[]'" json:"technician_media"`
	CreatedAt       time.Time      `gorm:"index:idx_service_requests_company_created,priority:2" json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`

	Asset      *Asset      `gorm:"foreignKey:AssetID" json:"asset,omitempty"`
	Client     *Client     `gorm:"foreignKey:ClientID;constraint:OnDelete:SET NULL" json:"client,omitempty"`
	Technician *Technician `gorm:"foreignKey:TechnicianID;constraint:OnDelete:SET NULL" json:"technician,omitempty"`
}

func (ServiceRequest) TableName() string {
	return "service_requests"
}
