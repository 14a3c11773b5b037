package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"bankbang/internal/logger"
	"bankbang/internal/models"
	"bankbang/internal/repositories"
	"bankbang/internal/scraper"
	"bankbang/internal/services/dto"
	"bankbang/pkg/apperrors"

	"gorm.io/gorm"
)

type ReferralService interface {
	List(ctx context.Context, db *gorm.DB, query *dto.ListReferralsQuery, page, pageSize int) (*dto.PaginatedResponse, error)
	Get(ctx context.Context, db *gorm.DB, id, viewerID string) (*dto.ReferralDetailResponse, error)
	UpsertScraped(ctx context.Context, db *gorm.DB, referral *models.Referral) (created bool, err error)
	// ExpireOld помечает истекшие и слишком старые посты
	ExpireOld(ctx context.Context, db *gorm.DB, now time.Time) (int64, error)
	// ScrapePage разбирает страницу форума и сохраняет найденные посты
	ScrapePage(ctx context.Context, db *gorm.DB, pageURL, source string) (*dto.ScrapeReport, error)
}

// ReferralScraper is implemented by *scraper.Fetcher.
type ReferralScraper interface {
	ScrapeReferralList(ctx context.Context, pageURL, source string, sel scraper.Selectors) ([]models.Referral, error)
}

type referralService struct {
	referralRepo    repositories.ReferralRepository
	interactionRepo repositories.InteractionRepository
	scraper         ReferralScraper
	selectors       scraper.Selectors
	ttl             time.Duration
}

func NewReferralService(
	referralRepo repositories.ReferralRepository,
	interactionRepo repositories.InteractionRepository,
	referralScraper ReferralScraper,
	selectors scraper.Selectors,
	ttlDays int,
) ReferralService {
	if ttlDays <= 0 {
		ttlDays = 60
	}
	return &referralService{
		referralRepo:    referralRepo,
		interactionRepo: interactionRepo,
		scraper:         referralScraper,
		selectors:       selectors,
		ttl:             time.Duration(ttlDays) * 24 * time.Hour,
	}
}

func (s *referralService) List(ctx context.Context, db *gorm.DB, query *dto.ListReferralsQuery, page, pageSize int) (*dto.PaginatedResponse, error) {
	filter := repositories.ReferralFilter{
		Keyword:  query.Keyword,
		City:     strings.TrimSpace(query.City),
		Company:  strings.TrimSpace(query.Company),
		Page:     page,
		PageSize: pageSize,
	}
	switch query.Status {
	case "":
		filter.Status = models.ReferralStatusActive
	case "all":
	default:
		filter.Status = models.ReferralStatus(query.Status)
	}

	items, total, err := s.referralRepo.List(db.WithContext(ctx), filter)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}
	return dto.NewPaginatedResponse(items, total, page, pageSize), nil
}

func (s *referralService) Get(ctx context.Context, db *gorm.DB, id, viewerID string) (*dto.ReferralDetailResponse, error) {
	db = db.WithContext(ctx)
	referral, err := s.referralRepo.FindByID(db, id)
	if err != nil {
		if errors.Is(err, repositories.ErrReferralNotFound) {
			return nil, apperrors.ErrReferralNotFound
		}
		return nil, apperrors.InternalError(err)
	}

	viewer, err := loadViewerState(db, s.interactionRepo, viewerID, models.TargetTypeReferral, id)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}
	return &dto.ReferralDetailResponse{Referral: referral, Viewer: viewer}, nil
}

func (s *referralService) UpsertScraped(ctx context.Context, db *gorm.DB, referral *models.Referral) (bool, error) {
	if referral.SourceURL == "" || strings.TrimSpace(referral.Title) == "" {
		return false, apperrors.NewBadRequestError("Referral needs a source URL and a title")
	}
	return s.referralRepo.Upsert(db.WithContext(ctx), referral)
}

func (s *referralService) ExpireOld(ctx context.Context, db *gorm.DB, now time.Time) (int64, error) {
	n, err := s.referralRepo.ExpireOld(db.WithContext(ctx), now, now.Add(-s.ttl))
	if err != nil {
		return 0, err
	}
	if n > 0 {
		logger.CtxInfo(ctx, "Expired referrals", "count", n)
	}
	return n, nil
}

func (s *referralService) ScrapePage(ctx context.Context, db *gorm.DB, pageURL, source string) (*dto.ScrapeReport, error) {
	if s.scraper == nil {
		return nil, apperrors.ErrInvalidOperation("referral", "Scraper is not configured")
	}
	items, err := s.scraper.ScrapeReferralList(ctx, pageURL, source, s.selectors)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeExternalServiceError, "referral",
			"Failed to fetch referral page", 502)
	}

	report := &dto.ScrapeReport{Found: len(items)}
	for i := range items {
		created, err := s.UpsertScraped(ctx, db, &items[i])
		if err != nil {
			logger.CtxWarn(ctx, "Skipping scraped referral", "url", items[i].SourceURL, "error", err)
			continue
		}
		if created {
			report.Inserted++
		} else {
			report.Updated++
		}
	}

	logger.CtxInfo(ctx, "Referral page scraped",
		"url", pageURL,
		"found", report.Found,
		"inserted", report.Inserted,
		"updated", report.Updated,
	)
	return report, nil
}
