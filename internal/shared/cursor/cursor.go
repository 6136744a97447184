// Package cursor 实现列表分页游标的编解码。
// 游标明文为 "<UTC毫秒时间戳>:<记录ID>"，整体做标准 base64 编码。
package cursor

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrInvalid 游标格式非法
var ErrInvalid = errors.New("invalid cursor")

// timeLayout 毫秒精度，低于毫秒的部分在编码时截断
const timeLayout = "2006-01-02T15:04:05.000Z"

// Cursor 指向上一页最后一条记录的位置
type Cursor struct {
	CreatedAt time.Time
	ID        string
}

// Encode 生成游标字符串
func Encode(createdAt time.Time, id string) string {
	raw := createdAt.UTC().Format(timeLayout) + ":" + id
	return base64.StdEncoding.EncodeToString([]byte(raw))
}

// Decode 解析游标字符串。时间戳本身包含冒号，而记录ID是UUID
// 不含冒号，因此以最后一个冒号为分隔符。
func Decode(s string) (Cursor, error) {
	raw, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return Cursor{}, fmt.Errorf("%w: %v", ErrInvalid, err)
	}

	idx := strings.LastIndex(string(raw), ":")
	if idx < 0 {
		return Cursor{}, fmt.Errorf("%w: missing separator", ErrInvalid)
	}

	tsPart := string(raw[:idx])
	idPart := string(raw[idx+1:])
	if tsPart == "" || idPart == "" {
		return Cursor{}, fmt.Errorf("%w: empty field", ErrInvalid)
	}

	ts, err := time.Parse(timeLayout, tsPart)
	if err != nil {
		return Cursor{}, fmt.Errorf("%w: bad timestamp %q", ErrInvalid, tsPart)
	}

	return Cursor{CreatedAt: ts, ID: idPart}, nil
}
