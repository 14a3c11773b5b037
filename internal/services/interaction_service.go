package services

import (
	"context"
	"errors"
	"strconv"

	"bankbang/internal/metrics"
	"bankbang/internal/models"
	"bankbang/internal/repositories"
	"bankbang/internal/services/dto"
	"bankbang/pkg/apperrors"

	"gorm.io/gorm"
)

type InteractionService interface {
	ToggleLike(ctx context.Context, db *gorm.DB, userID string, targetType models.TargetType, targetID string) (*dto.ToggleResponse, error)
	ToggleCollect(ctx context.Context, db *gorm.DB, userID string, targetType models.TargetType, targetID string) (*dto.ToggleResponse, error)
	State(ctx context.Context, db *gorm.DB, userID string, targetType models.TargetType, targetID string) (*dto.InteractionStateResponse, error)
	ListCollections(ctx context.Context, db *gorm.DB, userID string, targetType models.TargetType, page, pageSize int) (*dto.PaginatedResponse, error)
	// RecountAll пересчитывает счетчики опытов и рефералов по строкам лайков/коллекций
	RecountAll(ctx context.Context, db *gorm.DB) (*dto.RecountResult, error)
}

// counterRepository is the part of the experience/referral repositories toggles need.
type counterRepository interface {
	Exists(db *gorm.DB, id string) (bool, error)
	AdjustCounter(db *gorm.DB, id, column string, delta int) (int64, error)
	ResetCounters(db *gorm.DB) error
	SetCounter(db *gorm.DB, id, column string, value int64) error
}

type interactionService struct {
	interactionRepo repositories.InteractionRepository
	jobRepo         repositories.JobRepository
	experienceRepo  repositories.ExperienceRepository
	referralRepo    repositories.ReferralRepository
}

func NewInteractionService(
	interactionRepo repositories.InteractionRepository,
	jobRepo repositories.JobRepository,
	experienceRepo repositories.ExperienceRepository,
	referralRepo repositories.ReferralRepository,
) InteractionService {
	return &interactionService{
		interactionRepo: interactionRepo,
		jobRepo:         jobRepo,
		experienceRepo:  experienceRepo,
		referralRepo:    referralRepo,
	}
}

func (s *interactionService) ToggleLike(ctx context.Context, db *gorm.DB, userID string, targetType models.TargetType, targetID string) (*dto.ToggleResponse, error) {
	return s.toggle(ctx, db, repositories.KindLike, userID, targetType, targetID)
}

func (s *interactionService) ToggleCollect(ctx context.Context, db *gorm.DB, userID string, targetType models.TargetType, targetID string) (*dto.ToggleResponse, error) {
	return s.toggle(ctx, db, repositories.KindCollect, userID, targetType, targetID)
}

// counters returns nil for jobs: they keep only the rows.
func (s *interactionService) counters(targetType models.TargetType) counterRepository {
	switch targetType {
	case models.TargetTypeExperience:
		return s.experienceRepo
	case models.TargetTypeReferral:
		return s.referralRepo
	}
	return nil
}

func (s *interactionService) targetExists(db *gorm.DB, targetType models.TargetType, targetID string) (bool, error) {
	if c := s.counters(targetType); c != nil {
		return c.Exists(db, targetID)
	}
	return s.jobRepo.Exists(db, targetID)
}

func (s *interactionService) toggle(ctx context.Context, db *gorm.DB, kind repositories.InteractionKind, userID string, targetType models.TargetType, targetID string) (*dto.ToggleResponse, error) {
	if !targetType.Valid() {
		return nil, apperrors.ErrInvalidTargetType
	}

	resp := &dto.ToggleResponse{}
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		exists, err := s.targetExists(tx, targetType, targetID)
		if err != nil {
			return err
		}
		if !exists {
			return apperrors.ErrTargetNotFound
		}

		delta := -1
		err = s.interactionRepo.Delete(tx, kind, userID, targetType, targetID)
		switch {
		case errors.Is(err, repositories.ErrInteractionNotFound):
			if err := s.interactionRepo.Create(tx, kind, userID, targetType, targetID); err != nil {
				if errors.Is(err, gorm.ErrDuplicatedKey) {
					return apperrors.ErrConflict(err, "interaction", "Concurrent update, please retry")
				}
				return err
			}
			delta = 1
			resp.Active = true
		case err != nil:
			return err
		}

		if c := s.counters(targetType); c != nil {
			resp.Count, err = c.AdjustCounter(tx, targetID, kind.CounterColumn(), delta)
			return err
		}
		resp.Count, err = s.interactionRepo.CountForTarget(tx, kind, targetType, targetID)
		return err
	})
	if err != nil {
		return nil, asAppError(err)
	}

	metrics.InteractionsTotal.WithLabelValues(string(kind), string(targetType), strconv.FormatBool(resp.Active)).Inc()
	return resp, nil
}

func (s *interactionService) State(ctx context.Context, db *gorm.DB, userID string, targetType models.TargetType, targetID string) (*dto.InteractionStateResponse, error) {
	if !targetType.Valid() {
		return nil, apperrors.ErrInvalidTargetType
	}
	db = db.WithContext(ctx)

	exists, err := s.targetExists(db, targetType, targetID)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}
	if !exists {
		return nil, apperrors.ErrTargetNotFound
	}

	out := &dto.InteractionStateResponse{}
	viewer, err := loadViewerState(db, s.interactionRepo, userID, targetType, targetID)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}
	if viewer != nil {
		out.Liked, out.Collected = viewer.Liked, viewer.Collected
	}
	if out.LikeCount, err = s.interactionRepo.CountForTarget(db, repositories.KindLike, targetType, targetID); err != nil {
		return nil, apperrors.InternalError(err)
	}
	if out.CollectCount, err = s.interactionRepo.CountForTarget(db, repositories.KindCollect, targetType, targetID); err != nil {
		return nil, apperrors.InternalError(err)
	}
	return out, nil
}

func (s *interactionService) ListCollections(ctx context.Context, db *gorm.DB, userID string, targetType models.TargetType, page, pageSize int) (*dto.PaginatedResponse, error) {
	if targetType != "" && !targetType.Valid() {
		return nil, apperrors.ErrInvalidTargetType
	}
	db = db.WithContext(ctx)

	rows, total, err := s.interactionRepo.ListCollected(db, userID, targetType, page, pageSize)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}

	idsByType := map[models.TargetType][]string{}
	for _, r := range rows {
		idsByType[r.TargetType] = append(idsByType[r.TargetType], r.TargetID)
	}
	targets, err := s.loadTargets(db, idsByType)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}

	items := make([]dto.CollectionItem, 0, len(rows))
	for _, r := range rows {
		item := dto.CollectionItem{
			TargetType:  r.TargetType,
			TargetID:    r.TargetID,
			CollectedAt: r.CreatedAt,
		}
		if t, ok := targets[string(r.TargetType)+":"+r.TargetID]; ok {
			item.Target = t
		}
		items = append(items, item)
	}
	return dto.NewPaginatedResponse(items, total, page, pageSize), nil
}

func (s *interactionService) loadTargets(db *gorm.DB, idsByType map[models.TargetType][]string) (map[string]interface{}, error) {
	out := map[string]interface{}{}
	if ids := idsByType[models.TargetTypeJob]; len(ids) > 0 {
		jobs, err := s.jobRepo.FindByIDs(db, ids)
		if err != nil {
			return nil, err
		}
		for i := range jobs {
			out["job:"+jobs[i].ID] = &jobs[i]
		}
	}
	if ids := idsByType[models.TargetTypeExperience]; len(ids) > 0 {
		exps, err := s.experienceRepo.FindByIDs(db, ids)
		if err != nil {
			return nil, err
		}
		for i := range exps {
			exps[i].Author = publicAuthor(exps[i].Author)
			out["experience:"+exps[i].ID] = &exps[i]
		}
	}
	if ids := idsByType[models.TargetTypeReferral]; len(ids) > 0 {
		refs, err := s.referralRepo.FindByIDs(db, ids)
		if err != nil {
			return nil, err
		}
		for i := range refs {
			out["referral:"+refs[i].ID] = &refs[i]
		}
	}
	return out, nil
}

func (s *interactionService) RecountAll(ctx context.Context, db *gorm.DB) (*dto.RecountResult, error) {
	result := &dto.RecountResult{}
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, targetType := range []models.TargetType{models.TargetTypeExperience, models.TargetTypeReferral} {
			repo := s.counters(targetType)
			if err := repo.ResetCounters(tx); err != nil {
				return err
			}
			touched := map[string]bool{}
			for _, kind := range []repositories.InteractionKind{repositories.KindLike, repositories.KindCollect} {
				counts, err := s.interactionRepo.CountsByTarget(tx, kind, targetType)
				if err != nil {
					return err
				}
				for _, c := range counts {
					if err := repo.SetCounter(tx, c.TargetID, kind.CounterColumn(), c.Count); err != nil {
						return err
					}
					touched[c.TargetID] = true
				}
			}
			if targetType == models.TargetTypeExperience {
				result.Experiences = len(touched)
			} else {
				result.Referrals = len(touched)
			}
		}
		return nil
	})
	if err != nil {
		return nil, apperrors.InternalError(err)
	}
	return result, nil
}
