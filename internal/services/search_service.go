package services

import (
	"context"
	"strings"

	"bankbang/internal/models"
	"bankbang/internal/repositories"
	"bankbang/internal/services/dto"
	"bankbang/pkg/apperrors"

	"gorm.io/gorm"
)

const (
	defaultSearchLimit = 5
	maxSearchLimit     = 20
)

type SearchService interface {
	// Search ищет по вакансиям, опытам и рефералам; types пустой - все разделы
	Search(ctx context.Context, db *gorm.DB, query string, types []models.TargetType, limit int) (*dto.SearchResponse, error)
}

type searchService struct {
	jobRepo        repositories.JobRepository
	experienceRepo repositories.ExperienceRepository
	referralRepo   repositories.ReferralRepository
}

func NewSearchService(
	jobRepo repositories.JobRepository,
	experienceRepo repositories.ExperienceRepository,
	referralRepo repositories.ReferralRepository,
) SearchService {
	return &searchService{
		jobRepo:        jobRepo,
		experienceRepo: experienceRepo,
		referralRepo:   referralRepo,
	}
}

// ParseSearchTypes reads "job,experience" style lists; unknown names are an error.
func ParseSearchTypes(raw string) ([]models.TargetType, error) {
	var out []models.TargetType
	seen := map[models.TargetType]bool{}
	for _, part := range strings.Split(raw, ",") {
		t := models.TargetType(strings.TrimSpace(strings.ToLower(part)))
		if t == "" || seen[t] {
			continue
		}
		if !t.Valid() {
			return nil, apperrors.ErrInvalidTargetType
		}
		seen[t] = true
		out = append(out, t)
	}
	return out, nil
}

func (s *searchService) Search(ctx context.Context, db *gorm.DB, query string, types []models.TargetType, limit int) (*dto.SearchResponse, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, apperrors.ErrEmptySearchQuery
	}
	if limit <= 0 {
		limit = defaultSearchLimit
	}
	if limit > maxSearchLimit {
		limit = maxSearchLimit
	}

	want := map[models.TargetType]bool{}
	for _, t := range types {
		want[t] = true
	}
	all := len(want) == 0

	db = db.WithContext(ctx)
	resp := &dto.SearchResponse{Query: query}

	if all || want[models.TargetTypeJob] {
		items, total, err := s.jobRepo.Search(db, query, limit)
		if err != nil {
			return nil, apperrors.InternalError(err)
		}
		resp.Jobs = &dto.SearchSection{Items: items, Total: total}
	}
	if all || want[models.TargetTypeExperience] {
		items, total, err := s.experienceRepo.Search(db, query, limit)
		if err != nil {
			return nil, apperrors.InternalError(err)
		}
		for i := range items {
			items[i].Author = publicAuthor(items[i].Author)
		}
		resp.Experiences = &dto.SearchSection{Items: items, Total: total}
	}
	if all || want[models.TargetTypeReferral] {
		items, total, err := s.referralRepo.Search(db, query, limit)
		if err != nil {
			return nil, apperrors.InternalError(err)
		}
		resp.Referrals = &dto.SearchSection{Items: items, Total: total}
	}
	return resp, nil
}
