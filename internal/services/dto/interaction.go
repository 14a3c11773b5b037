package dto

import (
	"time"

	"bankbang/internal/models"
)

type ToggleResponse struct {
	Active bool  `json:"active"`
	Count  int64 `json:"count"`
}

type InteractionStateResponse struct {
	Liked        bool  `json:"liked"`
	Collected    bool  `json:"collected"`
	LikeCount    int64 `json:"like_count"`
	CollectCount int64 `json:"collect_count"`
}

type ListCollectionsQuery struct {
	Type models.TargetType `form:"type" validate:"is-target-type"` // пусто: все типы
}

// CollectionItem - элемент «Мои коллекции»; Target отсутствует, если объект удалён
type CollectionItem struct {
	TargetType  models.TargetType `json:"target_type"`
	TargetID    string            `json:"target_id"`
	CollectedAt time.Time         `json:"collected_at"`
	Target      interface{}       `json:"target,omitempty"`
}

type RecountResult struct {
	Experiences int `json:"experiences"`
	Referrals   int `json:"referrals"`
}
