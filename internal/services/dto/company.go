package dto

type RehostResult struct {
	CompanyID string `json:"company_id"`
	LogoURL   string `json:"logo_url"`
	LogoKey   string `json:"logo_key"`
	Skipped   bool   `json:"skipped"`
}

// BatchResult - итог пакетной операции CLI
type BatchResult struct {
	Processed int      `json:"processed"`
	Succeeded int      `json:"succeeded"`
	Skipped   int      `json:"skipped"`
	Failed    int      `json:"failed"`
	Errors    []string `json:"errors,omitempty"`
}
