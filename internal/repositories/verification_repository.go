package repositories

import (
	"errors"
	"time"

	"bankbang/internal/models"

	"gorm.io/gorm"
)

var ErrVerificationNotFound = errors.New("verification not found")

type VerificationRepository interface {
	Create(db *gorm.DB, v *models.Verification) error
	// FindLatestActive возвращает последний неиспользованный код для email+purpose, даже истекший.
	FindLatestActive(db *gorm.DB, email string, purpose models.OTPPurpose) (*models.Verification, error)
	// InvalidateActive помечает все неиспользованные коды email+purpose использованными.
	InvalidateActive(db *gorm.DB, email string, purpose models.OTPPurpose, now time.Time) error
	// TryAttempt атомарно занимает попытку; false, если лимит исчерпан.
	TryAttempt(db *gorm.DB, id string, maxAttempts int) (bool, error)
	// Consume возвращает ErrVerificationNotFound, если код уже использован параллельно.
	Consume(db *gorm.DB, id string, now time.Time) error
	DeleteExpired(db *gorm.DB, now time.Time) (int64, error)
}

type verificationRepository struct{}

func NewVerificationRepository() VerificationRepository {
	return &verificationRepository{}
}

func (r *verificationRepository) Create(db *gorm.DB, v *models.Verification) error {
	return db.Create(v).Error
}

func (r *verificationRepository) FindLatestActive(db *gorm.DB, email string, purpose models.OTPPurpose) (*models.Verification, error) {
	var v models.Verification
	err := db.Where("email = ? AND purpose = ? AND consumed_at IS NULL", email, purpose).
		Order("created_at DESC").
		First(&v).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrVerificationNotFound
		}
		return nil, err
	}
	return &v, nil
}

func (r *verificationRepository) InvalidateActive(db *gorm.DB, email string, purpose models.OTPPurpose, now time.Time) error {
	return db.Model(&models.Verification{}).
		Where("email = ? AND purpose = ? AND consumed_at IS NULL", email, purpose).
		Update("consumed_at", now).Error
}

func (r *verificationRepository) TryAttempt(db *gorm.DB, id string, maxAttempts int) (bool, error) {
	result := db.Model(&models.Verification{}).
		Where("id = ? AND attempts < ?", id, maxAttempts).
		UpdateColumn("attempts", gorm.Expr("attempts + 1"))
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *verificationRepository) Consume(db *gorm.DB, id string, now time.Time) error {
	result := db.Model(&models.Verification{}).
		Where("id = ? AND consumed_at IS NULL", id).
		Update("consumed_at", now)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrVerificationNotFound
	}
	return nil
}

// DeleteExpired удаляет истекшие коды и использованные старше суток
func (r *verificationRepository) DeleteExpired(db *gorm.DB, now time.Time) (int64, error) {
	result := db.Where("expires_at < ? OR (consumed_at IS NOT NULL AND consumed_at < ?)", now, now.Add(-24*time.Hour)).
		Delete(&models.Verification{})
	return result.RowsAffected, result.Error
}
