package repository

import (
	"context"
	"errors"
	"time"

	"Tunedrop/model"

	"gorm.io/gorm"
)

// SubscriptionRepository 订阅记录读取接口
type SubscriptionRepository interface {
	// Create 记录一条已确认付款的订阅
	Create(ctx context.Context, sub *model.Subscription) error
	// Latest 返回用户最近到期的一条订阅，不存在返回 nil, nil
	Latest(ctx context.Context, userID int64) (*model.Subscription, error)
	// CountActive 统计在 at 时刻有效的订阅数
	CountActive(ctx context.Context, userID int64, at time.Time) (int64, error)
}

type gormSubscriptionRepository struct {
	db *gorm.DB
}

// NewGormSubscriptionRepository 创建订阅仓库
func NewGormSubscriptionRepository(db *gorm.DB) SubscriptionRepository {
	return &gormSubscriptionRepository{db: db}
}

func (r *gormSubscriptionRepository) Create(ctx context.Context, sub *model.Subscription) error {
	return r.db.WithContext(ctx).Create(sub).Error
}

func (r *gormSubscriptionRepository) Latest(ctx context.Context, userID int64) (*model.Subscription, error) {
	var sub model.Subscription
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("expires_at DESC").
		First(&sub).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &sub, nil
}

func (r *gormSubscriptionRepository) CountActive(ctx context.Context, userID int64, at time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Subscription{}).
		Where("user_id = ? AND status = ? AND expires_at > ?", userID, model.SubscriptionActive, at).
		Count(&count).Error
	return count, err
}
