package dto

import (
	"time"

	"app/internal/model"
)

type UpdateProfileRequest struct {
	Username string `json:"username" validate:"required,min=1,max=64"`
}

type UsageResponse struct {
	Model      string    `json:"model"`
	DailyCount int       `json:"dailyCount"`
	LastReset  time.Time `json:"lastReset"`
}

type UserResponse struct {
	ID        string          `json:"id"`
	Email     string          `json:"email"`
	Username  string          `json:"username"`
	Role      string          `json:"role"`
	Usage     []UsageResponse `json:"usage,omitempty"`
	CreatedAt time.Time       `json:"createdAt"`
}

func NewUserResponse(u *model.User) UserResponse {
	resp := UserResponse{
		ID:        u.ID,
		Email:     u.Email,
		Username:  u.Username,
		Role:      u.Role,
		CreatedAt: u.CreatedAt,
	}
	for _, e := range u.Usage {
		resp.Usage = append(resp.Usage, UsageResponse{
			Model:      e.Model,
			DailyCount: e.DailyCount,
			LastReset:  e.LastReset,
		})
	}
	return resp
}

func NewUserListResponse(users []model.User) []UserResponse {
	out := make([]UserResponse, 0, len(users))
	for i := range users {
		out = append(out, NewUserResponse(&users[i]))
	}
	return out
}
