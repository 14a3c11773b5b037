package services

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"bankbang/internal/imageprocessor"
	"bankbang/internal/logger"
	"bankbang/internal/models"
	"bankbang/internal/repositories"
	"bankbang/internal/scraper"
	"bankbang/internal/services/dto"
	"bankbang/internal/storage"
	"bankbang/pkg/apperrors"

	backoff "github.com/cenkalti/backoff/v4"
	"gorm.io/gorm"
)

type CompanyService interface {
	List(ctx context.Context, db *gorm.DB, query string, page, pageSize int) (*dto.PaginatedResponse, error)
	Get(ctx context.Context, db *gorm.DB, id string) (*models.Company, error)
	EnsureByName(ctx context.Context, db *gorm.DB, name string) (*models.Company, error)
	// RehostLogo скачивает логотип, приводит к 128x128 PNG и кладет в хранилище
	RehostLogo(ctx context.Context, db *gorm.DB, companyID string) (*dto.RehostResult, error)
	RehostAll(ctx context.Context, db *gorm.DB, limit int) (*dto.BatchResult, error)
	ScrapeFavicons(ctx context.Context, db *gorm.DB, limit int) (*dto.BatchResult, error)
}

// AssetFetcher is implemented by *scraper.Fetcher.
type AssetFetcher interface {
	Get(ctx context.Context, rawURL string) (*scraper.Response, error)
	DiscoverFavicon(ctx context.Context, website string) (string, error)
}

type companyService struct {
	companyRepo repositories.CompanyRepository
	storage     storage.Storage
	fetcher     AssetFetcher
	processor   *imageprocessor.Processor
}

func NewCompanyService(
	companyRepo repositories.CompanyRepository,
	storage storage.Storage,
	fetcher AssetFetcher,
	processor *imageprocessor.Processor,
) CompanyService {
	return &companyService{
		companyRepo: companyRepo,
		storage:     storage,
		fetcher:     fetcher,
		processor:   processor,
	}
}

func (s *companyService) List(ctx context.Context, db *gorm.DB, query string, page, pageSize int) (*dto.PaginatedResponse, error) {
	items, total, err := s.companyRepo.List(db.WithContext(ctx), strings.TrimSpace(query), page, pageSize)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}
	return dto.NewPaginatedResponse(items, total, page, pageSize), nil
}

func (s *companyService) Get(ctx context.Context, db *gorm.DB, id string) (*models.Company, error) {
	company, err := s.companyRepo.FindByID(db.WithContext(ctx), id)
	if err != nil {
		return nil, s.mapError(err)
	}
	return company, nil
}

func (s *companyService) EnsureByName(ctx context.Context, db *gorm.DB, name string) (*models.Company, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperrors.NewBadRequestError("Company name is required")
	}
	return s.companyRepo.FirstOrCreateByName(db.WithContext(ctx), name)
}

// LogoKey is stable per source URL, so a re-run with the same source is a no-op.
func LogoKey(sourceURL string) string {
	sum := sha256.Sum256([]byte(sourceURL))
	return "logos/" + hex.EncodeToString(sum[:]) + ".png"
}

func (s *companyService) RehostLogo(ctx context.Context, db *gorm.DB, companyID string) (*dto.RehostResult, error) {
	db = db.WithContext(ctx)
	company, err := s.companyRepo.FindByID(db, companyID)
	if err != nil {
		return nil, s.mapError(err)
	}

	source := company.LogoSourceURL
	if source == "" {
		source = company.FaviconURL
	}
	if source == "" {
		return nil, apperrors.ErrInvalidOperation("company", "Company has no logo source")
	}

	key := LogoKey(source)
	result := &dto.RehostResult{CompanyID: company.ID, LogoKey: key, LogoURL: company.LogoURL}
	if company.LogoKey == key {
		result.Skipped = true
		return result, nil
	}

	if s.fetcher == nil {
		return nil, apperrors.ErrInvalidOperation("company", "Fetcher is not configured")
	}
	resp, err := s.fetcher.Get(ctx, source)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeExternalServiceError, "company", "Failed to download logo", 502)
	}
	normalized, err := s.processor.NormalizeLogo(resp.Body, imageprocessor.SizeLogo)
	if err != nil {
		return nil, apperrors.ErrInvalidOperation("company", "Logo is not a supported image").WithError(err)
	}

	save := func() error {
		return s.storage.Save(ctx, key, bytes.NewReader(normalized), "image/png")
	}
	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 3), ctx)
	if err := backoff.Retry(save, policy); err != nil {
		return nil, apperrors.InternalError(fmt.Errorf("store logo: %w", err))
	}

	url, err := s.storage.GetURL(ctx, key)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}
	company.LogoKey = key
	company.LogoURL = url
	if err := s.companyRepo.Update(db, company); err != nil {
		return nil, apperrors.InternalError(err)
	}

	logger.CtxInfo(ctx, "Company logo rehosted", "company_id", company.ID, "key", key)
	result.LogoURL = url
	return result, nil
}

func (s *companyService) RehostAll(ctx context.Context, db *gorm.DB, limit int) (*dto.BatchResult, error) {
	companies, err := s.companyRepo.ListForRehost(db.WithContext(ctx), limit)
	if err != nil {
		return nil, err
	}

	out := &dto.BatchResult{}
	for _, c := range companies {
		if ctx.Err() != nil {
			return out, ctx.Err()
		}
		out.Processed++
		res, err := s.RehostLogo(ctx, db, c.ID)
		switch {
		case err != nil:
			out.Failed++
			out.Errors = append(out.Errors, fmt.Sprintf("%s: %v", c.Name, err))
			logger.CtxWarn(ctx, "Logo rehost failed", "company", c.Name, "error", err)
		case res.Skipped:
			out.Skipped++
		default:
			out.Succeeded++
		}
	}
	return out, nil
}

func (s *companyService) ScrapeFavicons(ctx context.Context, db *gorm.DB, limit int) (*dto.BatchResult, error) {
	if s.fetcher == nil {
		return nil, apperrors.ErrInvalidOperation("company", "Fetcher is not configured")
	}
	db = db.WithContext(ctx)
	companies, err := s.companyRepo.ListMissingFavicon(db, limit)
	if err != nil {
		return nil, err
	}

	out := &dto.BatchResult{}
	for i := range companies {
		if ctx.Err() != nil {
			return out, ctx.Err()
		}
		c := &companies[i]
		out.Processed++

		fetchCtx, cancel := context.WithTimeout(ctx, time.Minute)
		icon, err := s.fetcher.DiscoverFavicon(fetchCtx, c.Website)
		cancel()
		if err != nil {
			out.Failed++
			out.Errors = append(out.Errors, fmt.Sprintf("%s: %v", c.Name, err))
			continue
		}

		c.FaviconURL = icon
		if err := s.companyRepo.Update(db, c); err != nil {
			return out, err
		}
		out.Succeeded++
	}
	logger.CtxInfo(ctx, "Favicon scrape finished", "processed", out.Processed, "ok", out.Succeeded, "failed", out.Failed)
	return out, nil
}

func (s *companyService) mapError(err error) error {
	if errors.Is(err, repositories.ErrCompanyNotFound) {
		return apperrors.ErrCompanyNotFound
	}
	return asAppError(err)
}
