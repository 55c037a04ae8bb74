package repository

import (
	"context"
	"time"

	"Tunedrop/model"

	"gorm.io/gorm"
)

// NotificationRepository 站内通知数据访问接口
type NotificationRepository interface {
	Create(ctx context.Context, n *model.Notification) error
	ListByUser(ctx context.Context, userID int64, unreadOnly bool, limit int) ([]*model.Notification, error)
	MarkRead(ctx context.Context, userID int64, id string) error
}

type gormNotificationRepository struct {
	db *gorm.DB
}

// NewGormNotificationRepository 创建通知仓库
func NewGormNotificationRepository(db *gorm.DB) NotificationRepository {
	return &gormNotificationRepository{db: db}
}

func (r *gormNotificationRepository) Create(ctx context.Context, n *model.Notification) error {
	return r.db.WithContext(ctx).Create(n).Error
}

func (r *gormNotificationRepository) ListByUser(ctx context.Context, userID int64, unreadOnly bool, limit int) ([]*model.Notification, error) {
	query := r.db.WithContext(ctx).Where("user_id = ?", userID)
	if unreadOnly {
		query = query.Where("is_read = ?", false)
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	var list []*model.Notification
	err := query.Order("created_at DESC").Limit(limit).Find(&list).Error
	return list, err
}

func (r *gormNotificationRepository) MarkRead(ctx context.Context, userID int64, id string) error {
	res := r.db.WithContext(ctx).Model(&model.Notification{}).
		Where("id = ? AND user_id = ?", id, userID).
		Updates(map[string]interface{}{
			"is_read": true,
			"read_at": time.Now(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
