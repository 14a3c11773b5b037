package services

import (
	"strings"
	"unicode/utf8"

	"bankbang/internal/auth"
	"bankbang/internal/models"
	"bankbang/internal/repositories"
	"bankbang/internal/services/dto"

	"gorm.io/gorm"
)

const summaryLength = 120

// loadViewerState returns nil for anonymous viewers.
func loadViewerState(db *gorm.DB, repo repositories.InteractionRepository, userID string, targetType models.TargetType, targetID string) (*dto.ViewerState, error) {
	if userID == "" {
		return nil, nil
	}
	liked, err := repo.Find(db, repositories.KindLike, userID, targetType, targetID)
	if err != nil {
		return nil, err
	}
	collected, err := repo.Find(db, repositories.KindCollect, userID, targetType, targetID)
	if err != nil {
		return nil, err
	}
	return &dto.ViewerState{Liked: liked, Collected: collected}, nil
}

// cleanTags trims, drops empties and duplicates.
func cleanTags(tags []string) models.StringArray {
	out := models.StringArray{}
	seen := map[string]bool{}
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}

// deriveSummary collapses whitespace and keeps the first summaryLength runes.
func deriveSummary(content string) string {
	s := strings.Join(strings.Fields(content), " ")
	if utf8.RuneCountInString(s) <= summaryLength {
		return s
	}
	return string([]rune(s)[:summaryLength])
}

func canModerate(role models.UserRole) bool {
	return auth.HasPermission(string(role), auth.PermContentModerate)
}

// publicAuthor strips everything but the display fields before an author is serialised.
func publicAuthor(u *models.User) *models.User {
	if u == nil {
		return nil
	}
	return &models.User{
		BaseModel: models.BaseModel{ID: u.ID},
		Name:      u.Name,
		AvatarURL: u.AvatarURL,
		Role:      u.Role,
	}
}
