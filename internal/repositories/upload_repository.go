package repositories

import (
	"errors"
	"time"

	"bankbang/internal/models"

	"gorm.io/gorm"
)

var ErrUploadNotFound = errors.New("upload not found")

type UploadRepository interface {
	Create(db *gorm.DB, upload *models.Upload) error
	FindByID(db *gorm.DB, id string) (*models.Upload, error)
	FindByKey(db *gorm.DB, key string) (*models.Upload, error)
	Update(db *gorm.DB, upload *models.Upload) error
	Delete(db *gorm.DB, id string) error
	FindStalePending(db *gorm.DB, olderThan time.Time, limit int) ([]models.Upload, error)
}

type uploadRepository struct{}

func NewUploadRepository() UploadRepository {
	return &uploadRepository{}
}

func (r *uploadRepository) Create(db *gorm.DB, upload *models.Upload) error {
	return db.Create(upload).Error
}

func (r *uploadRepository) FindByID(db *gorm.DB, id string) (*models.Upload, error) {
	var upload models.Upload
	if err := db.First(&upload, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUploadNotFound
		}
		return nil, err
	}
	return &upload, nil
}

func (r *uploadRepository) FindByKey(db *gorm.DB, key string) (*models.Upload, error) {
	var upload models.Upload
	if err := db.Where("object_key = ?", key).First(&upload).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUploadNotFound
		}
		return nil, err
	}
	return &upload, nil
}

func (r *uploadRepository) Update(db *gorm.DB, upload *models.Upload) error {
	return db.Save(upload).Error
}

func (r *uploadRepository) Delete(db *gorm.DB, id string) error {
	return db.Delete(&models.Upload{}, "id = ?", id).Error
}

func (r *uploadRepository) FindStalePending(db *gorm.DB, olderThan time.Time, limit int) ([]models.Upload, error) {
	var uploads []models.Upload
	err := db.Where("status = ? AND created_at < ?", models.UploadStatusPending, olderThan).
		Order("created_at ASC").
		Limit(limit).
		Find(&uploads).Error
	return uploads, err
}
