package services

import (
	"context"
	"time"

	"bankbang/internal/repositories"

	"gorm.io/gorm"
)

type CleanupStats struct {
	Verifications int64 `json:"verifications"`
	RefreshTokens int64 `json:"refresh_tokens"`
	Uploads       int   `json:"uploads"`
}

// MaintenanceService - периодическая очистка просроченных данных
type MaintenanceService interface {
	Cleanup(ctx context.Context, db *gorm.DB, now time.Time) (*CleanupStats, error)
}

type maintenanceService struct {
	verificationRepo repositories.VerificationRepository
	refreshTokenRepo repositories.RefreshTokenRepository
	uploadService    UploadService
	pendingTTL       time.Duration
}

func NewMaintenanceService(
	verificationRepo repositories.VerificationRepository,
	refreshTokenRepo repositories.RefreshTokenRepository,
	uploadService UploadService,
	pendingTTL time.Duration,
) MaintenanceService {
	if pendingTTL <= 0 {
		pendingTTL = 24 * time.Hour
	}
	return &maintenanceService{
		verificationRepo: verificationRepo,
		refreshTokenRepo: refreshTokenRepo,
		uploadService:    uploadService,
		pendingTTL:       pendingTTL,
	}
}

func (s *maintenanceService) Cleanup(ctx context.Context, db *gorm.DB, now time.Time) (*CleanupStats, error) {
	stats := &CleanupStats{}
	var err error

	if stats.Verifications, err = s.verificationRepo.DeleteExpired(db.WithContext(ctx), now); err != nil {
		return stats, err
	}
	if stats.RefreshTokens, err = s.refreshTokenRepo.DeleteExpired(db.WithContext(ctx), now); err != nil {
		return stats, err
	}
	uploads, err := s.uploadService.CleanupPending(ctx, db, now.Add(-s.pendingTTL))
	if err != nil {
		return stats, err
	}
	stats.Uploads = uploads.Deleted
	return stats, nil
}
