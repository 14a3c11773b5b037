package models

import (
	"time"

	"gorm.io/datatypes"
)

type Upload struct {
	BaseModel
	UserID       string         `gorm:"type:varchar(36);not null;index" json:"user_id"`
	Key          string         `gorm:"column:object_key;uniqueIndex;not null" json:"key"`
	Purpose      UploadPurpose  `gorm:"type:varchar(30);not null" json:"purpose"`
	ContentType  string         `json:"content_type"`
	Size         int64          `json:"size"`
	OriginalName string         `json:"original_name"`
	PublicURL    string         `json:"public_url"`
	Status       UploadStatus   `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	ConfirmedAt  *time.Time     `json:"confirmed_at"`
	Metadata     datatypes.JSON `json:"metadata,omitempty"` // e.g. client filename, storage provider
}
