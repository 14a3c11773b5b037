package models

import (
	"time"
)

type Experience struct {
	BaseModel
	AuthorID     string             `gorm:"type:varchar(36);not null;index" json:"author_id"`
	Title        string             `gorm:"not null" json:"title"`
	Content      string             `gorm:"type:text;not null" json:"content"`
	Summary      string             `gorm:"type:varchar(300)" json:"summary"`
	CompanyName  string             `gorm:"index" json:"company_name"`
	Position     string             `json:"position"`
	Category     ExperienceCategory `gorm:"type:varchar(20);not null;index" json:"category"`
	Tags         StringArray        `json:"tags"`
	CoverURL     string             `json:"cover_url"`
	Status       ExperienceStatus   `gorm:"type:varchar(20);not null;default:'draft';index" json:"status"`
	IsOfficial   bool               `gorm:"default:false" json:"is_official"`
	ViewCount    int64              `gorm:"not null;default:0" json:"view_count"`
	LikeCount    int64              `gorm:"not null;default:0" json:"like_count"`
	CollectCount int64              `gorm:"not null;default:0" json:"collect_count"`
	PublishedAt  *time.Time         `json:"published_at"`

	Author *User `gorm:"foreignKey:AuthorID" json:"author,omitempty"`
}
