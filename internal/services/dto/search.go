package dto

type SearchQuery struct {
	Q     string `form:"q"`
	Types string `form:"types"` // job,experience,referral
	Limit int    `form:"limit" binding:"omitempty,min=1"`
}

type SearchSection struct {
	Items interface{} `json:"items"`
	Total int64       `json:"total"`
}

type SearchResponse struct {
	Query       string         `json:"query"`
	Jobs        *SearchSection `json:"jobs,omitempty"`
	Experiences *SearchSection `json:"experiences,omitempty"`
	Referrals   *SearchSection `json:"referrals,omitempty"`
}
