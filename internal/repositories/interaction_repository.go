package repositories

import (
	"errors"

	"bankbang/internal/models"

	"gorm.io/gorm"
)

var ErrInteractionNotFound = errors.New("interaction not found")

// InteractionKind выбирает таблицу likes или collects
type InteractionKind string

const (
	KindLike    InteractionKind = "like"
	KindCollect InteractionKind = "collect"
)

// CounterColumn - денормализованный счетчик в experiences и referrals
func (k InteractionKind) CounterColumn() string {
	if k == KindLike {
		return "like_count"
	}
	return "collect_count"
}

type TargetCount struct {
	TargetID string
	Count    int64
}

type InteractionRepository interface {
	Find(db *gorm.DB, kind InteractionKind, userID string, targetType models.TargetType, targetID string) (bool, error)
	Create(db *gorm.DB, kind InteractionKind, userID string, targetType models.TargetType, targetID string) error
	// Delete возвращает ErrInteractionNotFound, если строки не было.
	Delete(db *gorm.DB, kind InteractionKind, userID string, targetType models.TargetType, targetID string) error
	CountForTarget(db *gorm.DB, kind InteractionKind, targetType models.TargetType, targetID string) (int64, error)
	CountsByTarget(db *gorm.DB, kind InteractionKind, targetType models.TargetType) ([]TargetCount, error)
	// ListCollected возвращает ID собранных пользователем объектов, новые первыми.
	ListCollected(db *gorm.DB, userID string, targetType models.TargetType, page, pageSize int) ([]models.Collect, int64, error)
	// ActiveTargets возвращает, с какими из targetIDs пользователь уже взаимодействовал.
	ActiveTargets(db *gorm.DB, kind InteractionKind, userID string, targetType models.TargetType, targetIDs []string) (map[string]bool, error)
	// DeleteForTarget удаляет лайки и закладки удаленного объекта.
	DeleteForTarget(db *gorm.DB, targetType models.TargetType, targetID string) error
}

type interactionRepository struct{}

func NewInteractionRepository() InteractionRepository {
	return &interactionRepository{}
}

func modelFor(kind InteractionKind) interface{} {
	if kind == KindLike {
		return &models.Like{}
	}
	return &models.Collect{}
}

func (r *interactionRepository) Find(db *gorm.DB, kind InteractionKind, userID string, targetType models.TargetType, targetID string) (bool, error) {
	var count int64
	err := db.Model(modelFor(kind)).
		Where("user_id = ? AND target_type = ? AND target_id = ?", userID, targetType, targetID).
		Count(&count).Error
	return count > 0, err
}

func (r *interactionRepository) Create(db *gorm.DB, kind InteractionKind, userID string, targetType models.TargetType, targetID string) error {
	if kind == KindLike {
		return db.Create(&models.Like{UserID: userID, TargetType: targetType, TargetID: targetID}).Error
	}
	return db.Create(&models.Collect{UserID: userID, TargetType: targetType, TargetID: targetID}).Error
}

func (r *interactionRepository) Delete(db *gorm.DB, kind InteractionKind, userID string, targetType models.TargetType, targetID string) error {
	result := db.Where("user_id = ? AND target_type = ? AND target_id = ?", userID, targetType, targetID).
		Delete(modelFor(kind))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrInteractionNotFound
	}
	return nil
}

func (r *interactionRepository) CountForTarget(db *gorm.DB, kind InteractionKind, targetType models.TargetType, targetID string) (int64, error) {
	var count int64
	err := db.Model(modelFor(kind)).
		Where("target_type = ? AND target_id = ?", targetType, targetID).
		Count(&count).Error
	return count, err
}

func (r *interactionRepository) CountsByTarget(db *gorm.DB, kind InteractionKind, targetType models.TargetType) ([]TargetCount, error) {
	var rows []TargetCount
	err := db.Model(modelFor(kind)).
		Select("target_id, COUNT(*) AS count").
		Where("target_type = ?", targetType).
		Group("target_id").
		Scan(&rows).Error
	return rows, err
}

func (r *interactionRepository) ListCollected(db *gorm.DB, userID string, targetType models.TargetType, page, pageSize int) ([]models.Collect, int64, error) {
	var rows []models.Collect
	var total int64

	q := db.Model(&models.Collect{}).Where("user_id = ?", userID)
	if targetType != "" {
		q = q.Where("target_type = ?", targetType)
	}
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := paginate(q, page, pageSize).Order("created_at DESC").Order("id").Find(&rows).Error
	return rows, total, err
}

func (r *interactionRepository) ActiveTargets(db *gorm.DB, kind InteractionKind, userID string, targetType models.TargetType, targetIDs []string) (map[string]bool, error) {
	result := make(map[string]bool, len(targetIDs))
	if userID == "" || len(targetIDs) == 0 {
		return result, nil
	}
	var ids []string
	err := db.Model(modelFor(kind)).
		Where("user_id = ? AND target_type = ? AND target_id IN ?", userID, targetType, targetIDs).
		Pluck("target_id", &ids).Error
	if err != nil {
		return nil, err
	}
	for _, id := range ids {
		result[id] = true
	}
	return result, nil
}

func (r *interactionRepository) DeleteForTarget(db *gorm.DB, targetType models.TargetType, targetID string) error {
	for _, kind := range []InteractionKind{KindLike, KindCollect} {
		if err := db.Where("target_type = ? AND target_id = ?", targetType, targetID).
			Delete(modelFor(kind)).Error; err != nil {
			return err
		}
	}
	return nil
}
