package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"bankbang/internal/auth"
	"bankbang/internal/logger"
	"bankbang/internal/models"
	"bankbang/internal/repositories"
	"bankbang/internal/services/dto"
	"bankbang/pkg/apperrors"

	"gorm.io/gorm"
)

type ExperienceService interface {
	List(ctx context.Context, db *gorm.DB, query *dto.ListExperiencesQuery, page, pageSize int) (*dto.PaginatedResponse, error)
	Get(ctx context.Context, db *gorm.DB, id, viewerID string, viewerRole models.UserRole) (*dto.ExperienceDetailResponse, error)
	Create(ctx context.Context, db *gorm.DB, authorID string, authorRole models.UserRole, req *dto.CreateExperienceRequest) (*models.Experience, error)
	Update(ctx context.Context, db *gorm.DB, id, userID string, role models.UserRole, req *dto.UpdateExperienceRequest) (*models.Experience, error)
	Delete(ctx context.Context, db *gorm.DB, id, userID string, role models.UserRole) error
	// Publish доступен автору черновика и редакторам
	Publish(ctx context.Context, db *gorm.DB, id, userID string, role models.UserRole) (*models.Experience, error)
	Hide(ctx context.Context, db *gorm.DB, id string, role models.UserRole) (*models.Experience, error)
	ListMine(ctx context.Context, db *gorm.DB, authorID string, page, pageSize int) (*dto.PaginatedResponse, error)
}

type experienceService struct {
	experienceRepo  repositories.ExperienceRepository
	interactionRepo repositories.InteractionRepository
}

func NewExperienceService(
	experienceRepo repositories.ExperienceRepository,
	interactionRepo repositories.InteractionRepository,
) ExperienceService {
	return &experienceService{
		experienceRepo:  experienceRepo,
		interactionRepo: interactionRepo,
	}
}

func (s *experienceService) List(ctx context.Context, db *gorm.DB, query *dto.ListExperiencesQuery, page, pageSize int) (*dto.PaginatedResponse, error) {
	items, total, err := s.experienceRepo.List(db.WithContext(ctx), repositories.ExperienceFilter{
		Keyword:  query.Keyword,
		Category: query.Category,
		Company:  strings.TrimSpace(query.Company),
		Tag:      strings.TrimSpace(query.Tag),
		AuthorID: query.AuthorID,
		Statuses: []models.ExperienceStatus{models.ExperienceStatusPublished},
		Official: query.Official,
		Sort:     query.Sort,
		Page:     page,
		PageSize: pageSize,
	})
	if err != nil {
		return nil, apperrors.InternalError(err)
	}
	for i := range items {
		items[i].Author = publicAuthor(items[i].Author)
	}
	return dto.NewPaginatedResponse(items, total, page, pageSize), nil
}

func (s *experienceService) Get(ctx context.Context, db *gorm.DB, id, viewerID string, viewerRole models.UserRole) (*dto.ExperienceDetailResponse, error) {
	db = db.WithContext(ctx)
	exp, err := s.experienceRepo.FindByID(db, id)
	if err != nil {
		return nil, s.mapError(err)
	}

	isAuthor := viewerID != "" && viewerID == exp.AuthorID
	if exp.Status != models.ExperienceStatusPublished && !isAuthor && !canModerate(viewerRole) {
		// Черновики чужих авторов не существуют для остальных
		return nil, apperrors.ErrExperienceNotFound
	}

	if !isAuthor {
		if err := s.experienceRepo.IncrementViews(db, id); err != nil {
			logger.CtxWarn(ctx, "Failed to increment experience views", "experience_id", id, "error", err)
		} else {
			exp.ViewCount++
		}
	}

	viewer, err := loadViewerState(db, s.interactionRepo, viewerID, models.TargetTypeExperience, id)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}
	exp.Author = publicAuthor(exp.Author)
	return &dto.ExperienceDetailResponse{Experience: exp, Viewer: viewer}, nil
}

func (s *experienceService) Create(ctx context.Context, db *gorm.DB, authorID string, authorRole models.UserRole, req *dto.CreateExperienceRequest) (*models.Experience, error) {
	exp := &models.Experience{
		AuthorID:    authorID,
		Title:       strings.TrimSpace(req.Title),
		Content:     req.Content,
		Summary:     strings.TrimSpace(req.Summary),
		CompanyName: strings.TrimSpace(req.CompanyName),
		Position:    strings.TrimSpace(req.Position),
		Category:    req.Category,
		Tags:        cleanTags(req.Tags),
		CoverURL:    strings.TrimSpace(req.CoverURL),
		Status:      models.ExperienceStatusDraft,
		// Официальная метка только от редакции
		IsOfficial: req.IsOfficial && auth.HasPermission(string(authorRole), auth.PermOfficialContent),
	}
	if exp.Summary == "" {
		exp.Summary = deriveSummary(exp.Content)
	}
	if req.Publish {
		now := time.Now()
		exp.Status = models.ExperienceStatusPublished
		exp.PublishedAt = &now
	}

	if err := s.experienceRepo.Create(db.WithContext(ctx), exp); err != nil {
		return nil, apperrors.InternalError(err)
	}

	logger.CtxInfo(ctx, "Experience created", "experience_id", exp.ID, "status", exp.Status)
	return exp, nil
}

func (s *experienceService) Update(ctx context.Context, db *gorm.DB, id, userID string, role models.UserRole, req *dto.UpdateExperienceRequest) (*models.Experience, error) {
	db = db.WithContext(ctx)
	exp, err := s.loadForWrite(db, id, userID, role)
	if err != nil {
		return nil, err
	}

	if req.Title != nil {
		exp.Title = strings.TrimSpace(*req.Title)
	}
	contentChanged := false
	if req.Content != nil {
		exp.Content = *req.Content
		contentChanged = true
	}
	if req.Summary != nil {
		exp.Summary = strings.TrimSpace(*req.Summary)
	}
	if (contentChanged && req.Summary == nil) || exp.Summary == "" {
		exp.Summary = deriveSummary(exp.Content)
	}
	if req.CompanyName != nil {
		exp.CompanyName = strings.TrimSpace(*req.CompanyName)
	}
	if req.Position != nil {
		exp.Position = strings.TrimSpace(*req.Position)
	}
	if req.Category != nil {
		if !req.Category.Valid() {
			return nil, apperrors.NewBadRequestError("Unknown experience category")
		}
		exp.Category = *req.Category
	}
	if req.Tags != nil {
		exp.Tags = cleanTags(req.Tags)
	}
	if req.CoverURL != nil {
		exp.CoverURL = strings.TrimSpace(*req.CoverURL)
	}
	if req.IsOfficial != nil && auth.HasPermission(string(role), auth.PermOfficialContent) {
		exp.IsOfficial = *req.IsOfficial
	}

	if err := s.experienceRepo.Update(db, exp); err != nil {
		return nil, apperrors.InternalError(err)
	}
	exp.Author = publicAuthor(exp.Author)
	return exp, nil
}

func (s *experienceService) Delete(ctx context.Context, db *gorm.DB, id, userID string, role models.UserRole) error {
	if _, err := s.loadForWrite(db.WithContext(ctx), id, userID, role); err != nil {
		return err
	}

	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.interactionRepo.DeleteForTarget(tx, models.TargetTypeExperience, id); err != nil {
			return err
		}
		return s.experienceRepo.Delete(tx, id)
	})
	if err != nil {
		return s.mapError(err)
	}

	logger.CtxInfo(ctx, "Experience deleted", "experience_id", id)
	return nil
}

func (s *experienceService) Publish(ctx context.Context, db *gorm.DB, id, userID string, role models.UserRole) (*models.Experience, error) {
	db = db.WithContext(ctx)
	exp, err := s.experienceRepo.FindByID(db, id)
	if err != nil {
		return nil, s.mapError(err)
	}

	switch {
	case canModerate(role):
	case exp.AuthorID == userID && exp.Status == models.ExperienceStatusDraft:
		// скрытые модератором автор сам не возвращает
	default:
		return nil, apperrors.ErrInsufficientPermissions
	}

	if exp.Status != models.ExperienceStatusPublished {
		exp.Status = models.ExperienceStatusPublished
		if exp.PublishedAt == nil {
			now := time.Now()
			exp.PublishedAt = &now
		}
		if err := s.experienceRepo.Update(db, exp); err != nil {
			return nil, apperrors.InternalError(err)
		}
	}
	exp.Author = publicAuthor(exp.Author)
	return exp, nil
}

func (s *experienceService) Hide(ctx context.Context, db *gorm.DB, id string, role models.UserRole) (*models.Experience, error) {
	if !canModerate(role) {
		return nil, apperrors.ErrInsufficientPermissions
	}
	db = db.WithContext(ctx)
	exp, err := s.experienceRepo.FindByID(db, id)
	if err != nil {
		return nil, s.mapError(err)
	}
	if exp.Status != models.ExperienceStatusHidden {
		exp.Status = models.ExperienceStatusHidden
		if err := s.experienceRepo.Update(db, exp); err != nil {
			return nil, apperrors.InternalError(err)
		}
		logger.CtxInfo(ctx, "Experience hidden", "experience_id", id)
	}
	exp.Author = publicAuthor(exp.Author)
	return exp, nil
}

func (s *experienceService) ListMine(ctx context.Context, db *gorm.DB, authorID string, page, pageSize int) (*dto.PaginatedResponse, error) {
	items, total, err := s.experienceRepo.List(db.WithContext(ctx), repositories.ExperienceFilter{
		AuthorID: authorID,
		Page:     page,
		PageSize: pageSize,
	})
	if err != nil {
		return nil, apperrors.InternalError(err)
	}
	for i := range items {
		items[i].Author = publicAuthor(items[i].Author)
	}
	return dto.NewPaginatedResponse(items, total, page, pageSize), nil
}

// loadForWrite возвращает запись, если пользователь автор или модератор
func (s *experienceService) loadForWrite(db *gorm.DB, id, userID string, role models.UserRole) (*models.Experience, error) {
	exp, err := s.experienceRepo.FindByID(db, id)
	if err != nil {
		return nil, s.mapError(err)
	}
	if exp.AuthorID != userID && !canModerate(role) {
		return nil, apperrors.ErrInsufficientPermissions
	}
	return exp, nil
}

func (s *experienceService) mapError(err error) error {
	if errors.Is(err, repositories.ErrExperienceNotFound) {
		return apperrors.ErrExperienceNotFound
	}
	return asAppError(err)
}
