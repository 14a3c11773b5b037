package dto

import (
	"time"

	"bankbang/internal/models"
)

// PresignRequest - запрос на прямую загрузку в хранилище
type PresignRequest struct {
	Purpose     models.UploadPurpose `json:"purpose" binding:"required" validate:"is-upload-purpose"`
	ContentType string               `json:"content_type" binding:"required"`
	Size        int64                `json:"size" binding:"required,gt=0"`
	Filename    string               `json:"filename" binding:"max=255"`
}

type PresignResponse struct {
	UploadID  string            `json:"upload_id"`
	Key       string            `json:"key"`
	Method    string            `json:"method"`
	UploadURL string            `json:"upload_url"`
	Headers   map[string]string `json:"headers"`
	PublicURL string            `json:"public_url"`
	ExpiresAt time.Time         `json:"expires_at"`
}

type CleanupResult struct {
	Deleted int `json:"deleted"`
	Failed  int `json:"failed"`
}
