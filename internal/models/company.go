package models

type Company struct {
	BaseModel
	Name          string   `gorm:"uniqueIndex;not null" json:"name"`
	ShortName     string   `json:"short_name"`
	Industry      Industry `gorm:"type:varchar(20);default:'other'" json:"industry"`
	Website       string   `json:"website"`
	LogoSourceURL string   `json:"-"`
	LogoURL       string   `json:"logo_url"`
	LogoKey       string   `json:"-"`
	FaviconURL    string   `json:"favicon_url"`
}
