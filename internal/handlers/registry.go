package handlers

// AppHandlers содержит все хэндлеры приложения.
type AppHandlers struct {
	AuthHandler        *AuthHandler
	JobHandler         *JobHandler
	ExperienceHandler  *ExperienceHandler
	ReferralHandler    *ReferralHandler
	InteractionHandler *InteractionHandler
	SearchHandler      *SearchHandler
	UploadHandler      *UploadHandler
	CompanyHandler     *CompanyHandler
	HealthHandler      *HealthHandler
}
