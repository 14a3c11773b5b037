package repositories

import (
	"errors"
	"time"

	"bankbang/internal/models"

	"gorm.io/gorm"
)

var ErrJobNotFound = errors.New("job listing not found")

type JobFilter struct {
	Keyword  string
	City     string
	Category models.JobCategory
	Company  string
	Status   models.JobStatus // пусто - любой
	Tag      string
	Sort     string // latest, deadline, popular
	Page     int
	PageSize int
}

type CompanyJobCount struct {
	CompanyName string `json:"company_name"`
	JobCount    int64  `json:"job_count"`
}

type JobRepository interface {
	Create(db *gorm.DB, job *models.JobListing) error
	FindByID(db *gorm.DB, id string) (*models.JobListing, error)
	FindBySourceID(db *gorm.DB, sourceID string) (*models.JobListing, error)
	Update(db *gorm.DB, job *models.JobListing) error
	Delete(db *gorm.DB, id string) error
	List(db *gorm.DB, filter JobFilter) ([]models.JobListing, int64, error)
	Search(db *gorm.DB, keyword string, limit int) ([]models.JobListing, int64, error)
	IncrementViews(db *gorm.DB, id string) error
	HotCompanies(db *gorm.DB, limit int) ([]CompanyJobCount, error)
	CloseExpired(db *gorm.DB, now time.Time) (int64, error)
	Exists(db *gorm.DB, id string) (bool, error)
	FindByIDs(db *gorm.DB, ids []string) ([]models.JobListing, error)
}

type jobRepository struct{}

func NewJobRepository() JobRepository {
	return &jobRepository{}
}

func (r *jobRepository) Create(db *gorm.DB, job *models.JobListing) error {
	return db.Create(job).Error
}

func (r *jobRepository) FindByID(db *gorm.DB, id string) (*models.JobListing, error) {
	var job models.JobListing
	if err := db.Preload("Company").First(&job, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrJobNotFound
		}
		return nil, err
	}
	return &job, nil
}

func (r *jobRepository) FindBySourceID(db *gorm.DB, sourceID string) (*models.JobListing, error) {
	var job models.JobListing
	if err := db.Where("source_id = ?", sourceID).First(&job).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrJobNotFound
		}
		return nil, err
	}
	return &job, nil
}

func (r *jobRepository) Update(db *gorm.DB, job *models.JobListing) error {
	return db.Omit("Company").Save(job).Error
}

func (r *jobRepository) Delete(db *gorm.DB, id string) error {
	result := db.Delete(&models.JobListing{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrJobNotFound
	}
	return nil
}

func (r *jobRepository) List(db *gorm.DB, filter JobFilter) ([]models.JobListing, int64, error) {
	var jobs []models.JobListing
	var total int64

	q := db.Model(&models.JobListing{})
	q = likeAny(q, filter.Keyword, "title", "company_name", "description")
	if filter.City != "" {
		q = likeAny(q, filter.City, "city")
	}
	if filter.Category != "" {
		q = q.Where("category = ?", filter.Category)
	}
	if filter.Company != "" {
		q = q.Where("company_name = ?", filter.Company)
	}
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	q = hasTag(q, "tags", filter.Tag)

	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	switch filter.Sort {
	case "deadline":
		// NULL дедлайны в конце на обоих диалектах
		q = q.Order("CASE WHEN deadline IS NULL THEN 1 ELSE 0 END").Order("deadline ASC")
	case "popular":
		q = q.Order("view_count DESC")
	default:
		q = q.Order("published_at DESC")
	}

	err := paginate(q, filter.Page, filter.PageSize).Order("id").Find(&jobs).Error
	return jobs, total, err
}

func (r *jobRepository) Search(db *gorm.DB, keyword string, limit int) ([]models.JobListing, int64, error) {
	var jobs []models.JobListing
	var total int64

	q := likeAny(db.Model(&models.JobListing{}).Where("status = ?", models.JobStatusOpen),
		keyword, "title", "company_name", "city", "description")
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := q.Order("published_at DESC").Limit(limit).Find(&jobs).Error
	return jobs, total, err
}

func (r *jobRepository) IncrementViews(db *gorm.DB, id string) error {
	return db.Model(&models.JobListing{}).Where("id = ?", id).
		UpdateColumn("view_count", gorm.Expr("view_count + 1")).Error
}

func (r *jobRepository) HotCompanies(db *gorm.DB, limit int) ([]CompanyJobCount, error) {
	var rows []CompanyJobCount
	err := db.Model(&models.JobListing{}).
		Select("company_name, COUNT(*) AS job_count").
		Where("status = ?", models.JobStatusOpen).
		Group("company_name").
		Order("job_count DESC").
		Order("company_name ASC").
		Limit(limit).
		Scan(&rows).Error
	return rows, err
}

func (r *jobRepository) CloseExpired(db *gorm.DB, now time.Time) (int64, error) {
	result := db.Model(&models.JobListing{}).
		Where("status = ? AND deadline IS NOT NULL AND deadline < ?", models.JobStatusOpen, now).
		Update("status", models.JobStatusClosed)
	return result.RowsAffected, result.Error
}

func (r *jobRepository) Exists(db *gorm.DB, id string) (bool, error) {
	var count int64
	err := db.Model(&models.JobListing{}).Where("id = ?", id).Count(&count).Error
	return count > 0, err
}

func (r *jobRepository) FindByIDs(db *gorm.DB, ids []string) ([]models.JobListing, error) {
	var jobs []models.JobListing
	if len(ids) == 0 {
		return jobs, nil
	}
	err := db.Where("id IN ?", ids).Find(&jobs).Error
	return jobs, err
}
