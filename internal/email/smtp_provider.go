package email

import (
	"crypto/tls"
	"fmt"
	"time"

	"gopkg.in/gomail.v2"
)

// SMTPProvider реализует Provider для SMTP
type SMTPProvider struct {
	config   *SMTPConfig
	dialer   *gomail.Dialer
	renderer TemplateRenderer
}

// NewSMTPProvider создает новый SMTP провайдер
func NewSMTPProvider(config *SMTPConfig, renderer TemplateRenderer) *SMTPProvider {
	d := gomail.NewDialer(config.Host, config.Port, config.Username, config.Password)
	d.SSL = config.UseSSL
	d.TLSConfig = &tls.Config{ServerName: config.Host}

	return &SMTPProvider{
		config:   config,
		dialer:   d,
		renderer: renderer,
	}
}

// Send отправляет email сообщение
func (p *SMTPProvider) Send(email *Email) error {
	if err := p.Validate(); err != nil {
		return err
	}
	if len(email.To) == 0 {
		return fmt.Errorf("no recipients specified")
	}

	if err := p.dialer.DialAndSend(p.buildMessage(email)); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}

func (p *SMTPProvider) SendOTP(to, code, purpose string, ttl time.Duration) error {
	subject, data := otpMessage(code, purpose, ttl)
	return p.sendTemplate(&Email{To: []string{to}, Subject: subject, Kind: TemplateOTP, Purpose: purpose}, data)
}

func (p *SMTPProvider) SendWelcome(to, name string) error {
	return p.sendTemplate(&Email{To: []string{to}, Subject: "欢迎加入银行帮", Kind: TemplateWelcome}, TemplateData{"Name": name})
}

func (p *SMTPProvider) sendTemplate(email *Email, data TemplateData) error {
	if p.renderer == nil {
		return fmt.Errorf("template renderer is not configured")
	}

	htmlBody, err := p.renderer.Render(email.Kind, data)
	if err != nil {
		return fmt.Errorf("failed to render template: %w", err)
	}
	email.HTMLBody = htmlBody

	return p.Send(email)
}

// Validate проверяет конфигурацию SMTP
func (p *SMTPProvider) Validate() error {
	if p.config.Host == "" {
		return fmt.Errorf("SMTP host is required")
	}

	if p.config.Port <= 0 || p.config.Port > 65535 {
		return fmt.Errorf("invalid SMTP port: %d", p.config.Port)
	}

	if p.config.FromEmail == "" {
		return fmt.Errorf("sender address is required")
	}

	return nil
}

// Close закрывает соединение (gomail открывает соединение на каждую отправку)
func (p *SMTPProvider) Close() error {
	return nil
}

func (p *SMTPProvider) buildMessage(email *Email) *gomail.Message {
	m := gomail.NewMessage(gomail.SetCharset("UTF-8"))

	from := email.From
	if from == "" {
		from = m.FormatAddress(p.config.FromEmail, p.config.FromName)
	}
	m.SetHeader("From", from)
	m.SetHeader("To", email.To...)
	m.SetHeader("Subject", email.Subject)

	switch {
	case email.HTMLBody != "" && email.Body != "":
		m.SetBody("text/plain", email.Body)
		m.AddAlternative("text/html", email.HTMLBody)
	case email.HTMLBody != "":
		m.SetBody("text/html", email.HTMLBody)
	default:
		m.SetBody("text/plain", email.Body)
	}

	if email.Kind != "" {
		m.SetHeader(headerKind, email.Kind)
	}
	if email.Purpose != "" {
		m.SetHeader(headerPurpose, email.Purpose)
	}

	return m
}
