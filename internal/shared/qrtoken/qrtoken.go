// Package qrtoken 生成资产二维码对应的URL安全令牌。
package qrtoken

import (
	"crypto/rand"
	"fmt"
	"regexp"
)

// Length 令牌固定长度
const Length = 24

const alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789_-"

var tokenPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{24}$`)

// Generate 生成一个24位随机令牌
func Generate() (string, error) {
	buf := make([]byte, Length)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}
	for i, b := range buf {
		buf[i] = alphabet[int(b)%len(alphabet)]
	}
	return string(buf), nil
}

// IsValid 校验令牌格式
func IsValid(token string) bool {
	return tokenPattern.MatchString(token)
}
