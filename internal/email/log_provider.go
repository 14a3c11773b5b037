package email

import (
	"sync"
	"time"

	"bankbang/internal/logger"
)

// LogProvider writes messages to the log instead of sending them. Used in development
// and tests; the last messages are kept for inspection.
type LogProvider struct {
	from     string
	renderer TemplateRenderer

	mu   sync.Mutex
	sent []Email
}

func NewLogProvider(from string, renderer TemplateRenderer) *LogProvider {
	return &LogProvider{from: from, renderer: renderer}
}

func (p *LogProvider) Send(email *Email) error {
	if email.From == "" {
		email.From = p.from
	}
	logger.Info("Email (log provider)", "to", email.To, "subject", email.Subject, "kind", email.Kind)

	p.mu.Lock()
	p.sent = append(p.sent, *email)
	if len(p.sent) > 100 {
		p.sent = p.sent[len(p.sent)-100:]
	}
	p.mu.Unlock()
	return nil
}

func (p *LogProvider) SendOTP(to, code, purpose string, ttl time.Duration) error {
	subject, data := otpMessage(code, purpose, ttl)
	// the code itself is logged so local sign-up works without SMTP
	logger.Debug("OTP issued", "to", to, "purpose", purpose, "code", code)
	return p.sendTemplate(&Email{To: []string{to}, Subject: subject, Kind: TemplateOTP, Purpose: purpose}, data)
}

func (p *LogProvider) SendWelcome(to, name string) error {
	return p.sendTemplate(&Email{To: []string{to}, Subject: "欢迎加入银行帮", Kind: TemplateWelcome}, TemplateData{"Name": name})
}

func (p *LogProvider) sendTemplate(email *Email, data TemplateData) error {
	if p.renderer != nil {
		body, err := p.renderer.Render(email.Kind, data)
		if err != nil {
			return err
		}
		email.HTMLBody = body
	}
	return p.Send(email)
}

func (p *LogProvider) Validate() error { return nil }
func (p *LogProvider) Close() error    { return nil }

// Sent returns a copy of the recorded messages.
func (p *LogProvider) Sent() []Email {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Email, len(p.sent))
	copy(out, p.sent)
	return out
}
