package dto

import "bankbang/internal/models"

type ListReferralsQuery struct {
	Keyword string `form:"q"`
	City    string `form:"city"`
	Company string `form:"company"`
	// all включает истёкшие
	Status string `form:"status" binding:"omitempty,oneof=active expired all"`
}

type ReferralDetailResponse struct {
	Referral *models.Referral `json:"referral"`
	Viewer   *ViewerState     `json:"viewer,omitempty"`
}

// ScrapeReport - итог разбора одной страницы форума
type ScrapeReport struct {
	Found    int `json:"found"`
	Inserted int `json:"inserted"`
	Updated  int `json:"updated"`
}
