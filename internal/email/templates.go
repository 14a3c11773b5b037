package email

import (
	"fmt"
	"html/template"
	"strings"
	"sync"
)

const (
	TemplateOTP     = "otp"
	TemplateWelcome = "welcome"
)

var builtinTemplates = map[string]string{
	TemplateOTP: `<div style="font-family:sans-serif;max-width:480px;margin:0 auto">
<h2>银行帮</h2>
<p>您正在{{if .Action}}{{.Action}}{{else}}进行身份验证{{end}}，验证码为：</p>
<p style="font-size:28px;font-weight:bold;letter-spacing:6px">{{.Code}}</p>
<p>验证码 {{.Minutes}} 分钟内有效，请勿泄露给他人。如非本人操作，请忽略本邮件。</p>
</div>`,
	TemplateWelcome: `<div style="font-family:sans-serif;max-width:480px;margin:0 auto">
<h2>欢迎加入银行帮{{if .Name}}，{{.Name}}{{end}}！</h2>
<p>在这里你可以浏览金融行业校招、实习和社招岗位，阅读前辈的面经与笔经，获取内推机会。</p>
<p>祝求职顺利！</p>
</div>`,
}

// TemplateManager реализует TemplateRenderer для управления шаблонами email
type TemplateManager struct {
	templates map[string]*template.Template
	mutex     sync.RWMutex
}

// NewTemplateManager создает новый менеджер шаблонов
func NewTemplateManager() *TemplateManager {
	return &TemplateManager{
		templates: make(map[string]*template.Template),
	}
}

// NewDefaultTemplateManager loads the built-in templates.
func NewDefaultTemplateManager() (*TemplateManager, error) {
	tm := NewTemplateManager()
	for name, body := range builtinTemplates {
		if err := tm.AddTemplate(name, body); err != nil {
			return nil, err
		}
	}
	return tm, nil
}

// Render рендерит шаблон с данными
func (tm *TemplateManager) Render(templateName string, data TemplateData) (string, error) {
	tm.mutex.RLock()
	tpl, exists := tm.templates[templateName]
	tm.mutex.RUnlock()

	if !exists {
		return "", fmt.Errorf("template not found: %s", templateName)
	}

	var buf strings.Builder
	if err := tpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute template: %w", err)
	}

	return buf.String(), nil
}

// AddTemplate добавляет шаблон в менеджер
func (tm *TemplateManager) AddTemplate(name string, templateStr string) error {
	tpl, err := template.New(name).Parse(templateStr)
	if err != nil {
		return fmt.Errorf("failed to parse template: %w", err)
	}

	tm.mutex.Lock()
	tm.templates[name] = tpl
	tm.mutex.Unlock()

	return nil
}
