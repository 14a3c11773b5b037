package models

import (
	"time"
)

type JobListing struct {
	BaseModel
	CompanyID   *string     `gorm:"type:varchar(36);index" json:"company_id"`
	CompanyName string      `gorm:"not null;index" json:"company_name"`
	Title       string      `gorm:"not null" json:"title"`
	City        string      `gorm:"index" json:"city"`
	Category    JobCategory `gorm:"type:varchar(20);not null;default:'campus';index" json:"category"`
	Education   string      `json:"education"`
	Major       string      `json:"major"`
	Description string      `gorm:"type:text" json:"description"`
	ApplyURL    string      `json:"apply_url"`
	Source      string      `gorm:"type:varchar(50)" json:"source"`
	SourceID    *string     `gorm:"uniqueIndex" json:"-"` // nil for manually created listings
	Tags        StringArray `json:"tags"`
	Deadline    *time.Time  `gorm:"index" json:"deadline"`
	PublishedAt time.Time   `json:"published_at"`
	Status      JobStatus   `gorm:"type:varchar(20);not null;default:'open';index" json:"status"`
	ViewCount   int64       `gorm:"not null;default:0" json:"view_count"`

	Company *Company `gorm:"foreignKey:CompanyID" json:"company,omitempty"`
}

func (JobListing) TableName() string {
	return "job_listings"
}
