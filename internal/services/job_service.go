package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"bankbang/internal/logger"
	"bankbang/internal/models"
	"bankbang/internal/repositories"
	"bankbang/internal/services/dto"
	"bankbang/pkg/apperrors"

	"gorm.io/gorm"
)

type JobService interface {
	ListJobs(ctx context.Context, db *gorm.DB, query *dto.ListJobsQuery, page, pageSize int) (*dto.PaginatedResponse, error)
	GetJob(ctx context.Context, db *gorm.DB, id, viewerID string) (*dto.JobDetailResponse, error)
	CreateJob(ctx context.Context, db *gorm.DB, req *dto.CreateJobRequest) (*models.JobListing, error)
	UpdateJob(ctx context.Context, db *gorm.DB, id string, req *dto.UpdateJobRequest) (*models.JobListing, error)
	DeleteJob(ctx context.Context, db *gorm.DB, id string) error
	// UpsertBySource обновляет вакансию с тем же source_id или создает новую
	UpsertBySource(ctx context.Context, db *gorm.DB, job *models.JobListing) (created bool, err error)
	HotCompanies(ctx context.Context, db *gorm.DB, limit int) ([]dto.HotCompanyResponse, error)
	CloseExpired(ctx context.Context, db *gorm.DB, now time.Time) (int64, error)
}

type jobService struct {
	jobRepo         repositories.JobRepository
	companyRepo     repositories.CompanyRepository
	interactionRepo repositories.InteractionRepository
}

func NewJobService(
	jobRepo repositories.JobRepository,
	companyRepo repositories.CompanyRepository,
	interactionRepo repositories.InteractionRepository,
) JobService {
	return &jobService{
		jobRepo:         jobRepo,
		companyRepo:     companyRepo,
		interactionRepo: interactionRepo,
	}
}

func (s *jobService) ListJobs(ctx context.Context, db *gorm.DB, query *dto.ListJobsQuery, page, pageSize int) (*dto.PaginatedResponse, error) {
	filter := repositories.JobFilter{
		Keyword:  query.Keyword,
		City:     strings.TrimSpace(query.City),
		Category: query.Category,
		Company:  strings.TrimSpace(query.Company),
		Tag:      strings.TrimSpace(query.Tag),
		Sort:     query.Sort,
		Page:     page,
		PageSize: pageSize,
	}
	switch query.Status {
	case "":
		filter.Status = models.JobStatusOpen
	case "all":
	default:
		filter.Status = models.JobStatus(query.Status)
	}

	jobs, total, err := s.jobRepo.List(db.WithContext(ctx), filter)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}
	return dto.NewPaginatedResponse(jobs, total, page, pageSize), nil
}

func (s *jobService) GetJob(ctx context.Context, db *gorm.DB, id, viewerID string) (*dto.JobDetailResponse, error) {
	db = db.WithContext(ctx)
	job, err := s.jobRepo.FindByID(db, id)
	if err != nil {
		return nil, s.mapError(err)
	}

	if err := s.jobRepo.IncrementViews(db, id); err != nil {
		logger.CtxWarn(ctx, "Failed to increment job views", "job_id", id, "error", err)
	} else {
		job.ViewCount++
	}

	viewer, err := loadViewerState(db, s.interactionRepo, viewerID, models.TargetTypeJob, id)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}
	return &dto.JobDetailResponse{Job: job, Viewer: viewer}, nil
}

func (s *jobService) CreateJob(ctx context.Context, db *gorm.DB, req *dto.CreateJobRequest) (*models.JobListing, error) {
	now := time.Now()
	job := &models.JobListing{
		CompanyName: strings.TrimSpace(req.CompanyName),
		Title:       strings.TrimSpace(req.Title),
		City:        strings.TrimSpace(req.City),
		Category:    req.Category,
		Education:   strings.TrimSpace(req.Education),
		Major:       strings.TrimSpace(req.Major),
		Description: req.Description,
		ApplyURL:    strings.TrimSpace(req.ApplyURL),
		Source:      "manual",
		Tags:        cleanTags(req.Tags),
		Deadline:    req.Deadline,
		PublishedAt: now,
		Status:      models.JobStatusOpen,
	}
	if job.Deadline != nil && job.Deadline.Before(now) {
		job.Status = models.JobStatusClosed
	}

	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		company, err := s.companyRepo.FirstOrCreateByName(tx, job.CompanyName)
		if err != nil {
			return err
		}
		job.CompanyID = &company.ID
		return s.jobRepo.Create(tx, job)
	})
	if err != nil {
		return nil, apperrors.InternalError(err)
	}

	logger.CtxInfo(ctx, "Job created", "job_id", job.ID, "company", job.CompanyName)
	return job, nil
}

func (s *jobService) UpdateJob(ctx context.Context, db *gorm.DB, id string, req *dto.UpdateJobRequest) (*models.JobListing, error) {
	var job *models.JobListing
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		job, err = s.jobRepo.FindByID(tx, id)
		if err != nil {
			return err
		}

		if req.CompanyName != nil {
			name := strings.TrimSpace(*req.CompanyName)
			if name != "" && name != job.CompanyName {
				company, err := s.companyRepo.FirstOrCreateByName(tx, name)
				if err != nil {
					return err
				}
				job.CompanyName = name
				job.CompanyID = &company.ID
				job.Company = company
			}
		}
		if req.Title != nil && strings.TrimSpace(*req.Title) != "" {
			job.Title = strings.TrimSpace(*req.Title)
		}
		if req.City != nil {
			job.City = strings.TrimSpace(*req.City)
		}
		if req.Category != nil {
			job.Category = *req.Category
		}
		if req.Education != nil {
			job.Education = strings.TrimSpace(*req.Education)
		}
		if req.Major != nil {
			job.Major = strings.TrimSpace(*req.Major)
		}
		if req.Description != nil {
			job.Description = *req.Description
		}
		if req.ApplyURL != nil {
			job.ApplyURL = strings.TrimSpace(*req.ApplyURL)
		}
		if req.Tags != nil {
			job.Tags = cleanTags(req.Tags)
		}
		if req.Deadline != nil {
			job.Deadline = req.Deadline
		}
		if req.Status != nil {
			job.Status = *req.Status
		}

		return s.jobRepo.Update(tx, job)
	})
	if err != nil {
		return nil, s.mapError(err)
	}
	return job, nil
}

func (s *jobService) DeleteJob(ctx context.Context, db *gorm.DB, id string) error {
	if err := s.jobRepo.Delete(db.WithContext(ctx), id); err != nil {
		return s.mapError(err)
	}
	logger.CtxInfo(ctx, "Job deleted", "job_id", id)
	return nil
}

func (s *jobService) UpsertBySource(ctx context.Context, db *gorm.DB, job *models.JobListing) (bool, error) {
	db = db.WithContext(ctx)
	if job.SourceID == nil || *job.SourceID == "" {
		job.SourceID = nil
		return true, s.jobRepo.Create(db, job)
	}

	existing, err := s.jobRepo.FindBySourceID(db, *job.SourceID)
	if errors.Is(err, repositories.ErrJobNotFound) {
		return true, s.jobRepo.Create(db, job)
	}
	if err != nil {
		return false, err
	}

	// Счетчики и дата публикации принадлежат существующей записи
	job.ID = existing.ID
	job.CreatedAt = existing.CreatedAt
	job.PublishedAt = existing.PublishedAt
	job.ViewCount = existing.ViewCount
	if len(job.Tags) == 0 {
		job.Tags = existing.Tags
	}
	return false, s.jobRepo.Update(db, job)
}

func (s *jobService) HotCompanies(ctx context.Context, db *gorm.DB, limit int) ([]dto.HotCompanyResponse, error) {
	if limit <= 0 || limit > 50 {
		limit = 10
	}
	rows, err := s.jobRepo.HotCompanies(db.WithContext(ctx), limit)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}
	out := make([]dto.HotCompanyResponse, 0, len(rows))
	for _, r := range rows {
		out = append(out, dto.HotCompanyResponse{CompanyName: r.CompanyName, JobCount: r.JobCount})
	}
	return out, nil
}

func (s *jobService) CloseExpired(ctx context.Context, db *gorm.DB, now time.Time) (int64, error) {
	n, err := s.jobRepo.CloseExpired(db.WithContext(ctx), now)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		logger.CtxInfo(ctx, "Closed expired jobs", "count", n)
	}
	return n, nil
}

func (s *jobService) mapError(err error) error {
	if errors.Is(err, repositories.ErrJobNotFound) {
		return apperrors.ErrJobNotFound
	}
	return asAppError(err)
}
