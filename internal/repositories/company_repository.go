package repositories

import (
	"errors"
	"strings"

	"bankbang/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var ErrCompanyNotFound = errors.New("company not found")

type CompanyRepository interface {
	FindByID(db *gorm.DB, id string) (*models.Company, error)
	FindByName(db *gorm.DB, name string) (*models.Company, error)
	// FirstOrCreateByName безопасен при параллельной вставке того же имени.
	FirstOrCreateByName(db *gorm.DB, name string) (*models.Company, error)
	List(db *gorm.DB, query string, page, pageSize int) ([]models.Company, int64, error)
	// ListForRehost возвращает компании с источником логотипа или сайтом, но без перезалитого логотипа.
	ListForRehost(db *gorm.DB, limit int) ([]models.Company, error)
	// ListMissingFavicon возвращает компании с сайтом и без favicon_url.
	ListMissingFavicon(db *gorm.DB, limit int) ([]models.Company, error)
	Update(db *gorm.DB, company *models.Company) error
}

type companyRepository struct{}

func NewCompanyRepository() CompanyRepository {
	return &companyRepository{}
}

func (r *companyRepository) FindByID(db *gorm.DB, id string) (*models.Company, error) {
	var company models.Company
	if err := db.First(&company, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCompanyNotFound
		}
		return nil, err
	}
	return &company, nil
}

func (r *companyRepository) FindByName(db *gorm.DB, name string) (*models.Company, error) {
	var company models.Company
	if err := db.Where("name = ?", strings.TrimSpace(name)).First(&company).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCompanyNotFound
		}
		return nil, err
	}
	return &company, nil
}

func (r *companyRepository) FirstOrCreateByName(db *gorm.DB, name string) (*models.Company, error) {
	name = strings.TrimSpace(name)
	company := &models.Company{Name: name, Industry: models.IndustryOther}
	err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoNothing: true,
	}).Create(company).Error
	if err != nil {
		return nil, err
	}
	// При ON CONFLICT DO NOTHING наш ID не используется, перечитываем сохраненную строку
	return r.FindByName(db, name)
}

func (r *companyRepository) List(db *gorm.DB, query string, page, pageSize int) ([]models.Company, int64, error) {
	var companies []models.Company
	var total int64

	q := likeAny(db.Model(&models.Company{}), query, "name", "short_name")
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := paginate(q, page, pageSize).Order("name ASC").Find(&companies).Error
	return companies, total, err
}

func (r *companyRepository) ListForRehost(db *gorm.DB, limit int) ([]models.Company, error) {
	var companies []models.Company
	err := db.Where("(logo_source_url <> '' OR favicon_url <> '') AND (logo_key IS NULL OR logo_key = '')").
		Order("name ASC").
		Limit(limit).
		Find(&companies).Error
	return companies, err
}

func (r *companyRepository) ListMissingFavicon(db *gorm.DB, limit int) ([]models.Company, error) {
	var companies []models.Company
	err := db.Where("website <> '' AND (favicon_url IS NULL OR favicon_url = '')").
		Order("name ASC").
		Limit(limit).
		Find(&companies).Error
	return companies, err
}

func (r *companyRepository) Update(db *gorm.DB, company *models.Company) error {
	return db.Save(company).Error
}
