package entity

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// MediaKind 媒体文件类型
type MediaKind string

const (
	MediaKindImage    MediaKind = "image"
	MediaKindVideo    MediaKind = "video"
	MediaKindDocument MediaKind = "document"
)

// MediaItem 单个媒体附件
type MediaItem struct {
	URL  string    `json:"url"`
	Kind MediaKind `json:"kind"`
}

// MediaList 媒体附件列表，存储为 JSONB
type MediaList []MediaItem

// Value 实现 driver.Valuer 接口
func (m MediaList) Value() (driver.Value, error) {
	if m == nil {
		return "[]", nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan 实现 sql.Scanner 接口
func (m *MediaList) Scan(value interface{}) error {
	if value == nil {
		*m = MediaList{}
		return nil
	}
	var b []byte
	switch v := value.(type) {
	case []byte:
		b = v
	case string:
		b = []byte(v)
	default:
		return fmt.Errorf("unsupported type for MediaList: %T", value)
	}
	return json.Unmarshal(b, m)
}
