package email

import (
	"time"

	"bankbang/internal/config"
)

// SMTPConfig содержит конфигурацию SMTP сервера
type SMTPConfig struct {
	Host      string
	Port      int
	Username  string
	Password  string
	FromEmail string
	FromName  string
	UseSSL    bool
	Timeout   time.Duration
}

func SMTPConfigFrom(cfg *config.Config) *SMTPConfig {
	return &SMTPConfig{
		Host:      cfg.Email.SMTPHost,
		Port:      cfg.Email.SMTPPort,
		Username:  cfg.Email.SMTPUsername,
		Password:  cfg.Email.SMTPPassword,
		FromEmail: cfg.Email.FromEmail,
		FromName:  cfg.Email.FromName,
		UseSSL:    cfg.Email.UseSSL,
		Timeout:   30 * time.Second,
	}
}

// NewProvider picks the provider named in email.provider.
func NewProvider(cfg *config.Config) (Provider, error) {
	renderer, err := NewDefaultTemplateManager()
	if err != nil {
		return nil, err
	}
	if cfg.Email.Provider == "smtp" {
		p := NewSMTPProvider(SMTPConfigFrom(cfg), renderer)
		if err := p.Validate(); err != nil {
			return nil, err
		}
		return p, nil
	}
	return NewLogProvider(cfg.Email.FromEmail, renderer), nil
}
