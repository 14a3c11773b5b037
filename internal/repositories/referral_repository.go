package repositories

import (
	"errors"
	"time"

	"bankbang/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var ErrReferralNotFound = errors.New("referral not found")

type ReferralFilter struct {
	Keyword  string
	City     string
	Company  string
	Status   models.ReferralStatus
	Page     int
	PageSize int
}

type ReferralRepository interface {
	FindByID(db *gorm.DB, id string) (*models.Referral, error)
	List(db *gorm.DB, filter ReferralFilter) ([]models.Referral, int64, error)
	Search(db *gorm.DB, keyword string, limit int) ([]models.Referral, int64, error)
	// Upsert вставляет или обновляет по source_url. Счетчики и статус не перезаписываются.
	Upsert(db *gorm.DB, referral *models.Referral) (created bool, err error)
	ExpireOld(db *gorm.DB, now, postedBefore time.Time) (int64, error)
	AdjustCounter(db *gorm.DB, id, column string, delta int) (int64, error)
	// ResetCounters обнуляет like_count и collect_count во всех строках.
	ResetCounters(db *gorm.DB) error
	SetCounter(db *gorm.DB, id, column string, value int64) error
	Exists(db *gorm.DB, id string) (bool, error)
	FindByIDs(db *gorm.DB, ids []string) ([]models.Referral, error)
}

type referralRepository struct{}

func NewReferralRepository() ReferralRepository {
	return &referralRepository{}
}

func (r *referralRepository) FindByID(db *gorm.DB, id string) (*models.Referral, error) {
	var referral models.Referral
	if err := db.First(&referral, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrReferralNotFound
		}
		return nil, err
	}
	return &referral, nil
}

func (r *referralRepository) List(db *gorm.DB, filter ReferralFilter) ([]models.Referral, int64, error) {
	var items []models.Referral
	var total int64

	q := db.Model(&models.Referral{})
	q = likeAny(q, filter.Keyword, "title", "content", "company_name")
	if filter.City != "" {
		q = likeAny(q, filter.City, "city")
	}
	if filter.Company != "" {
		q = q.Where("company_name = ?", filter.Company)
	}
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}

	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := paginate(q, filter.Page, filter.PageSize).
		Order("CASE WHEN posted_at IS NULL THEN 1 ELSE 0 END").
		Order("posted_at DESC").
		Order("created_at DESC").
		Find(&items).Error
	return items, total, err
}

func (r *referralRepository) Search(db *gorm.DB, keyword string, limit int) ([]models.Referral, int64, error) {
	var items []models.Referral
	var total int64

	q := likeAny(db.Model(&models.Referral{}).Where("status = ?", models.ReferralStatusActive),
		keyword, "title", "content", "company_name")
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := q.Order("created_at DESC").Limit(limit).Find(&items).Error
	return items, total, err
}

func (r *referralRepository) Upsert(db *gorm.DB, referral *models.Referral) (bool, error) {
	var existing models.Referral
	err := db.Where("source_url = ?", referral.SourceURL).First(&existing).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		if referral.Status == "" {
			referral.Status = models.ReferralStatusActive
		}
		createErr := db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "source_url"}},
			DoNothing: true,
		}).Create(referral).Error
		return createErr == nil, createErr
	case err != nil:
		return false, err
	}

	referral.ID = existing.ID
	err = db.Model(&existing).Updates(map[string]interface{}{
		"source":       referral.Source,
		"title":        referral.Title,
		"content":      referral.Content,
		"company_name": referral.CompanyName,
		"city":         referral.City,
		"author_name":  referral.AuthorName,
		"contact":      referral.Contact,
		"posted_at":    referral.PostedAt,
		"expires_at":   referral.ExpiresAt,
	}).Error
	return false, err
}

// ExpireOld закрывает рефералы с истекшим expires_at, а без expires_at - опубликованные
// (или сохраненные) раньше postedBefore.
func (r *referralRepository) ExpireOld(db *gorm.DB, now, postedBefore time.Time) (int64, error) {
	result := db.Model(&models.Referral{}).
		Where("status = ?", models.ReferralStatusActive).
		Where(db.Session(&gorm.Session{NewDB: true}).
			Where("expires_at IS NOT NULL AND expires_at < ?", now).
			Or("expires_at IS NULL AND COALESCE(posted_at, created_at) < ?", postedBefore)).
		Update("status", models.ReferralStatusExpired)
	return result.RowsAffected, result.Error
}

func (r *referralRepository) AdjustCounter(db *gorm.DB, id, column string, delta int) (int64, error) {
	return adjustCounter(db, &models.Referral{}, id, column, delta)
}

func (r *referralRepository) Exists(db *gorm.DB, id string) (bool, error) {
	var count int64
	err := db.Model(&models.Referral{}).Where("id = ?", id).Count(&count).Error
	return count > 0, err
}

func (r *referralRepository) FindByIDs(db *gorm.DB, ids []string) ([]models.Referral, error) {
	var items []models.Referral
	if len(ids) == 0 {
		return items, nil
	}
	err := db.Where("id IN ?", ids).Find(&items).Error
	return items, err
}

func (r *referralRepository) ResetCounters(db *gorm.DB) error {
	return resetCounters(db, &models.Referral{})
}

func (r *referralRepository) SetCounter(db *gorm.DB, id, column string, value int64) error {
	return setCounter(db, &models.Referral{}, id, column, value)
}
