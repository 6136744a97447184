package service

import (
	"fmt"

	"go.uber.org/zap"
	"gopkg.in/gomail.v2"

	"github.com/bitfantasy/fixdesk/internal/config"
)

// MailService 邮件通知服务。未配置 SMTP 时进入禁用模式，只记录日志。
type MailService struct {
	dialer *gomail.Dialer
	from   string
	logger *zap.Logger
}

// NewMailService 创建邮件服务
func NewMailService(cfg config.SMTPConfig, logger *zap.Logger) *MailService {
	svc := &MailService{from: cfg.From, logger: logger}
	if cfg.Host == "" {
		logger.Info("smtp host not configured, mail notifications disabled")
		return svc
	}
	svc.dialer = gomail.NewDialer(cfg.Host, cfg.Port, cfg.User, cfg.Password)
	return svc
}

// Enabled 邮件服务是否可用
func (s *MailService) Enabled() bool {
	return s.dialer != nil
}

// SendRequestUpdated 发送工单更新通知
func (s *MailService) SendRequestUpdated(to, clientName, requestID, status string) error {
	if !s.Enabled() {
		s.logger.Debug("mail disabled, skipping request update notice",
			zap.String("request_id", requestID))
		return nil
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", to)
	m.SetHeader("Subject", fmt.Sprintf("Your service request %s was updated", shortID(requestID)))
	m.SetBody("text/html", fmt.Sprintf(
		"<p>Hi %s,</p><p>Your service request <b>%s</b> has been updated. Current status: <b>%s</b>.</p>",
		clientName, shortID(requestID), status,
	))

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("send mail: %w", err)
	}
	return nil
}

// shortID 邮件中展示的短编号
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
