package dto

type StatsResponse struct {
	TotalUsers      int            `json:"totalUsers"`
	TotalMessages   int            `json:"totalMessages"`
	MessagesByModel map[string]int `json:"messagesByModel"`
}

type DailyLimitsResponse struct {
	DailyLimits map[string]int `json:"dailyLimits"`
}

type UpdateDailyLimitsRequest struct {
	DailyLimits map[string]int `json:"dailyLimits" validate:"required"`
}

type SystemPromptResponse struct {
	Prompt string `json:"prompt"`
}

type UpdateSystemPromptRequest struct {
	Prompt string `json:"prompt" validate:"required"`
}
