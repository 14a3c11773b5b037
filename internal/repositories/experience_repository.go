package repositories

import (
	"errors"

	"bankbang/internal/models"

	"gorm.io/gorm"
)

var ErrExperienceNotFound = errors.New("experience not found")

type ExperienceFilter struct {
	Keyword  string
	Category models.ExperienceCategory
	Company  string
	Tag      string
	AuthorID string
	// Statuses ограничивает видимость; пусто - любой статус.
	Statuses []models.ExperienceStatus
	Official *bool
	Sort     string // latest, popular
	Page     int
	PageSize int
}

type ExperienceRepository interface {
	Create(db *gorm.DB, exp *models.Experience) error
	FindByID(db *gorm.DB, id string) (*models.Experience, error)
	Update(db *gorm.DB, exp *models.Experience) error
	Delete(db *gorm.DB, id string) error
	List(db *gorm.DB, filter ExperienceFilter) ([]models.Experience, int64, error)
	Search(db *gorm.DB, keyword string, limit int) ([]models.Experience, int64, error)
	IncrementViews(db *gorm.DB, id string) error
	// AdjustCounter прибавляет delta к like_count или collect_count, не уходя ниже нуля.
	AdjustCounter(db *gorm.DB, id, column string, delta int) (int64, error)
	// ResetCounters обнуляет like_count и collect_count во всех строках.
	ResetCounters(db *gorm.DB) error
	SetCounter(db *gorm.DB, id, column string, value int64) error
	Exists(db *gorm.DB, id string) (bool, error)
	FindByIDs(db *gorm.DB, ids []string) ([]models.Experience, error)
}

type experienceRepository struct{}

func NewExperienceRepository() ExperienceRepository {
	return &experienceRepository{}
}

func (r *experienceRepository) Create(db *gorm.DB, exp *models.Experience) error {
	return db.Create(exp).Error
}

func (r *experienceRepository) FindByID(db *gorm.DB, id string) (*models.Experience, error) {
	var exp models.Experience
	if err := db.Preload("Author").First(&exp, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrExperienceNotFound
		}
		return nil, err
	}
	return &exp, nil
}

func (r *experienceRepository) Update(db *gorm.DB, exp *models.Experience) error {
	return db.Omit("Author").Save(exp).Error
}

func (r *experienceRepository) Delete(db *gorm.DB, id string) error {
	result := db.Delete(&models.Experience{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrExperienceNotFound
	}
	return nil
}

func (r *experienceRepository) List(db *gorm.DB, filter ExperienceFilter) ([]models.Experience, int64, error) {
	var items []models.Experience
	var total int64

	q := db.Model(&models.Experience{})
	q = likeAny(q, filter.Keyword, "title", "summary", "content", "company_name")
	if filter.Category != "" {
		q = q.Where("category = ?", filter.Category)
	}
	if filter.Company != "" {
		q = q.Where("company_name = ?", filter.Company)
	}
	if filter.AuthorID != "" {
		q = q.Where("author_id = ?", filter.AuthorID)
	}
	if len(filter.Statuses) > 0 {
		q = q.Where("status IN ?", filter.Statuses)
	}
	if filter.Official != nil {
		q = q.Where("is_official = ?", *filter.Official)
	}
	q = hasTag(q, "tags", filter.Tag)

	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	switch filter.Sort {
	case "popular":
		q = q.Order("like_count + collect_count DESC").Order("created_at DESC")
	default:
		q = q.Order("created_at DESC")
	}

	err := paginate(q, filter.Page, filter.PageSize).Preload("Author").Find(&items).Error
	return items, total, err
}

func (r *experienceRepository) Search(db *gorm.DB, keyword string, limit int) ([]models.Experience, int64, error) {
	var items []models.Experience
	var total int64

	q := likeAny(db.Model(&models.Experience{}).Where("status = ?", models.ExperienceStatusPublished),
		keyword, "title", "summary", "content", "company_name")
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := q.Order("created_at DESC").Limit(limit).Find(&items).Error
	return items, total, err
}

func (r *experienceRepository) IncrementViews(db *gorm.DB, id string) error {
	return db.Model(&models.Experience{}).Where("id = ?", id).
		UpdateColumn("view_count", gorm.Expr("view_count + 1")).Error
}

func (r *experienceRepository) AdjustCounter(db *gorm.DB, id, column string, delta int) (int64, error) {
	return adjustCounter(db, &models.Experience{}, id, column, delta)
}

func (r *experienceRepository) Exists(db *gorm.DB, id string) (bool, error) {
	var count int64
	err := db.Model(&models.Experience{}).Where("id = ?", id).Count(&count).Error
	return count > 0, err
}

func (r *experienceRepository) FindByIDs(db *gorm.DB, ids []string) ([]models.Experience, error) {
	var items []models.Experience
	if len(ids) == 0 {
		return items, nil
	}
	err := db.Where("id IN ?", ids).Find(&items).Error
	return items, err
}

var errUnknownCounter = errors.New("unknown counter column")

// adjustCounter общий для experiences и referrals. Возвращает значение после обновления.
func adjustCounter(db *gorm.DB, model interface{}, id, column string, delta int) (int64, error) {
	if column != "like_count" && column != "collect_count" {
		return 0, errUnknownCounter
	}

	expr := gorm.Expr(column+" + ?", delta)
	if delta < 0 {
		expr = gorm.Expr("CASE WHEN "+column+" + ? < 0 THEN 0 ELSE "+column+" + ? END", delta, delta)
	}
	if err := db.Model(model).Where("id = ?", id).UpdateColumn(column, expr).Error; err != nil {
		return 0, err
	}

	var value int64
	err := db.Model(model).Where("id = ?", id).Select(column).Scan(&value).Error
	return value, err
}

func (r *experienceRepository) ResetCounters(db *gorm.DB) error {
	return resetCounters(db, &models.Experience{})
}

func (r *experienceRepository) SetCounter(db *gorm.DB, id, column string, value int64) error {
	return setCounter(db, &models.Experience{}, id, column, value)
}

func resetCounters(db *gorm.DB, model interface{}) error {
	return db.Session(&gorm.Session{AllowGlobalUpdate: true}).Model(model).
		UpdateColumns(map[string]interface{}{"like_count": 0, "collect_count": 0}).Error
}

func setCounter(db *gorm.DB, model interface{}, id, column string, value int64) error {
	if column != "like_count" && column != "collect_count" {
		return errUnknownCounter
	}
	return db.Model(model).Where("id = ?", id).UpdateColumn(column, value).Error
}
