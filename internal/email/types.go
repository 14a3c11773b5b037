package email

// Email - исходящее письмо
type Email struct {
	From     string
	To       []string
	Subject  string
	Body     string
	HTMLBody string
	// Kind - имя шаблона (otp, welcome); уходит в заголовок X-Bankbang-Kind
	Kind string
	// Purpose заполняется только для писем с кодом
	Purpose string
}

const (
	headerKind    = "X-Bankbang-Kind"
	headerPurpose = "X-Bankbang-Purpose"
)

// TemplateData - данные для шаблонов писем
type TemplateData map[string]interface{}
