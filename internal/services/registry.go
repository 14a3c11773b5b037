package services

import (
	"bankbang/internal/email"
)

// ServiceContainer содержит все сервисы приложения.
type ServiceContainer struct {
	AuthService        AuthService
	JobService         JobService
	ExperienceService  ExperienceService
	ReferralService    ReferralService
	InteractionService InteractionService
	SearchService      SearchService
	UploadService      UploadService
	CompanyService     CompanyService
	MaintenanceService MaintenanceService
	EmailProvider      email.Provider
}
