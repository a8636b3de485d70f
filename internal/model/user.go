package model

import "time"

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// Model tags the backend can dispatch to.
const (
	ModelChatGPT = "chatgpt"
	ModelLlama   = "llama"
	ModelGemini  = "gemini"
)

// KnownModels lists every dispatchable model tag.
func KnownModels() []string {
	return []string{ModelChatGPT, ModelLlama, ModelGemini}
}

// IsKnownModel reports whether tag is a dispatchable model tag.
func IsKnownModel(tag string) bool {
	switch tag {
	case ModelChatGPT, ModelLlama, ModelGemini:
		return true
	}
	return false
}

// User represents a user in the system. AuthID is the subject identifier
// issued by the external identity provider and never changes.
type User struct {
	ID        string       `db:"id" json:"id"`
	AuthID    string       `db:"auth_id" json:"auth_id"`
	Email     string       `db:"email" json:"email"`
	Username  string       `db:"username" json:"username"`
	Role      string       `db:"role" json:"role"`
	Usage     []UsageEntry `json:"usage"`
	CreatedAt time.Time    `db:"created_at" json:"created_at"`
}

// IsAdmin reports whether the user holds the admin role.
func (u *User) IsAdmin() bool { return u.Role == RoleAdmin }

// UsageEntry tracks one user's daily message count for a single model.
// DailyCount resets to zero when LastReset falls on an earlier calendar
// day than the current request.
type UsageEntry struct {
	Model      string    `db:"model" json:"model"`
	DailyCount int       `db:"daily_count" json:"daily_count"`
	LastReset  time.Time `db:"last_reset" json:"last_reset"`
}
