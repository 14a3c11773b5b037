package models

import "time"

type Referral struct {
	BaseModel
	Source       string         `gorm:"type:varchar(50)" json:"source"`
	SourceURL    string         `gorm:"uniqueIndex;not null" json:"source_url"`
	Title        string         `gorm:"not null" json:"title"`
	Content      string         `gorm:"type:text" json:"content"`
	CompanyName  string         `gorm:"index" json:"company_name"`
	City         string         `json:"city"`
	AuthorName   string         `json:"author_name"`
	Contact      string         `json:"contact"`
	PostedAt     *time.Time     `gorm:"index" json:"posted_at"`
	ExpiresAt    *time.Time     `json:"expires_at"`
	Status       ReferralStatus `gorm:"type:varchar(20);not null;default:'active';index" json:"status"`
	LikeCount    int64          `gorm:"not null;default:0" json:"like_count"`
	CollectCount int64          `gorm:"not null;default:0" json:"collect_count"`
}
