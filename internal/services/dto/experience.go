package dto

import "bankbang/internal/models"

type ListExperiencesQuery struct {
	Keyword  string                    `form:"q"`
	Category models.ExperienceCategory `form:"category" validate:"is-experience-category"`
	Company  string                    `form:"company"`
	Tag      string                    `form:"tag"`
	AuthorID string                    `form:"author_id"`
	Official *bool                     `form:"official"`
	Sort     string                    `form:"sort" binding:"omitempty,oneof=latest popular"`
}

type CreateExperienceRequest struct {
	Title       string                    `json:"title" binding:"required,max=200"`
	Content     string                    `json:"content" binding:"required"`
	Summary     string                    `json:"summary" binding:"max=300"`
	CompanyName string                    `json:"company_name" binding:"max=100"`
	Position    string                    `json:"position" binding:"max=100"`
	Category    models.ExperienceCategory `json:"category" binding:"required" validate:"is-experience-category"`
	Tags        []string                  `json:"tags" binding:"max=10,dive,max=20"`
	CoverURL    string                    `json:"cover_url" binding:"omitempty,url"`
	IsOfficial  bool                      `json:"is_official"`
	// Publish=false сохраняет черновик
	Publish bool `json:"publish"`
}

type UpdateExperienceRequest struct {
	Title       *string                    `json:"title" binding:"omitempty,min=1,max=200"`
	Content     *string                    `json:"content" binding:"omitempty,min=1"`
	Summary     *string                    `json:"summary" binding:"omitempty,max=300"`
	CompanyName *string                    `json:"company_name" binding:"omitempty,max=100"`
	Position    *string                    `json:"position" binding:"omitempty,max=100"`
	Category    *models.ExperienceCategory `json:"category"`
	Tags        []string                   `json:"tags" binding:"omitempty,max=10,dive,max=20"`
	CoverURL    *string                    `json:"cover_url" binding:"omitempty,url"`
	IsOfficial  *bool                      `json:"is_official"`
}

type ExperienceDetailResponse struct {
	Experience *models.Experience `json:"experience"`
	Viewer     *ViewerState       `json:"viewer,omitempty"`
}
