package dto

import (
	"time"

	"bankbang/internal/models"
)

// ListJobsQuery - фильтры списка вакансий (page/page_size разбираются отдельно)
type ListJobsQuery struct {
	Keyword  string             `form:"q"`
	City     string             `form:"city"`
	Category models.JobCategory `form:"category" validate:"is-job-category"`
	Company  string             `form:"company"`
	Status   string             `form:"status" binding:"omitempty,oneof=open closed all"`
	Tag      string             `form:"tag"`
	Sort     string             `form:"sort" binding:"omitempty,oneof=latest deadline popular"`
}

type CreateJobRequest struct {
	CompanyName string             `json:"company_name" binding:"required,max=100"`
	Title       string             `json:"title" binding:"required,max=200"`
	City        string             `json:"city" binding:"max=100"`
	Category    models.JobCategory `json:"category" binding:"required" validate:"is-job-category"`
	Education   string             `json:"education"`
	Major       string             `json:"major"`
	Description string             `json:"description"`
	ApplyURL    string             `json:"apply_url" binding:"omitempty,url"`
	Tags        []string           `json:"tags" binding:"max=10,dive,max=20"`
	Deadline    *time.Time         `json:"deadline"`
}

type UpdateJobRequest struct {
	CompanyName *string             `json:"company_name" binding:"omitempty,max=100"`
	Title       *string             `json:"title" binding:"omitempty,max=200"`
	City        *string             `json:"city" binding:"omitempty,max=100"`
	Category    *models.JobCategory `json:"category"`
	Education   *string             `json:"education"`
	Major       *string             `json:"major"`
	Description *string             `json:"description"`
	ApplyURL    *string             `json:"apply_url" binding:"omitempty,url"`
	Tags        []string            `json:"tags" binding:"omitempty,max=10,dive,max=20"`
	Deadline    *time.Time          `json:"deadline"`
	Status      *models.JobStatus   `json:"status" binding:"omitempty,oneof=open closed"`
}

type JobDetailResponse struct {
	Job    *models.JobListing `json:"job"`
	Viewer *ViewerState       `json:"viewer,omitempty"`
}

type HotCompanyResponse struct {
	CompanyName string `json:"company_name"`
	JobCount    int64  `json:"job_count"`
}
