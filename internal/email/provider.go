package email

import "time"

// Provider определяет интерфейс для отправки email
type Provider interface {
	// Send отправляет простое email сообщение
	Send(email *Email) error

	// SendOTP sends a one-time code. purpose is signup, login or reset_password.
	SendOTP(to, code, purpose string, ttl time.Duration) error

	// SendWelcome greets a newly verified user.
	SendWelcome(to, name string) error

	// Validate проверяет конфигурацию провайдера
	Validate() error

	// Close закрывает соединение с провайдером
	Close() error
}

// TemplateRenderer определяет интерфейс для рендеринга шаблонов
type TemplateRenderer interface {
	Render(templateName string, data TemplateData) (string, error)
	AddTemplate(name string, template string) error
}

var otpSubjects = map[string]string{
	"signup":         "【银行帮】注册验证码",
	"login":          "【银行帮】登录验证码",
	"reset_password": "【银行帮】重置密码验证码",
}

var otpActions = map[string]string{
	"signup":         "注册账号",
	"login":          "登录",
	"reset_password": "重置密码",
}

func otpMessage(code, purpose string, ttl time.Duration) (string, TemplateData) {
	subject, ok := otpSubjects[purpose]
	if !ok {
		subject = "【银行帮】验证码"
	}
	return subject, TemplateData{
		"Code":    code,
		"Action":  otpActions[purpose],
		"Minutes": int(ttl.Minutes()),
	}
}
