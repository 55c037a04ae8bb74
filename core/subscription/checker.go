// Package subscription 回答“用户现在是否有有效订阅”。
package subscription

import (
	"context"
	"errors"
	"fmt"
	"time"

	"Tunedrop/model"
	"Tunedrop/repository"
)

// ErrExpiryInPast 到期时间早于当前时间
var ErrExpiryInPast = errors.New("expiresAt must be in the future")

// Checker 每次调用都直接查库，不做缓存
type Checker struct {
	repo repository.SubscriptionRepository
	now  func() time.Time
}

// NewChecker 创建订阅检查器
func NewChecker(repo repository.SubscriptionRepository) *Checker {
	return &Checker{repo: repo, now: time.Now}
}

// HasActiveSubscription 状态为 active 且未过期
func (c *Checker) HasActiveSubscription(ctx context.Context, userID int64) (bool, error) {
	n, err := c.repo.CountActive(ctx, userID, c.now())
	if err != nil {
		return false, fmt.Errorf("failed to check subscription for user %d: %w", userID, err)
	}
	return n > 0, nil
}

// Grant 付款确认后写入一条有效订阅
func (c *Checker) Grant(ctx context.Context, userID int64, planName string, expiresAt time.Time) (*model.Subscription, error) {
	now := c.now()
	if !expiresAt.After(now) {
		return nil, ErrExpiryInPast
	}
	sub := &model.Subscription{
		UserID:    userID,
		PlanName:  planName,
		Status:    model.SubscriptionActive,
		StartsAt:  now,
		ExpiresAt: expiresAt,
	}
	if err := c.repo.Create(ctx, sub); err != nil {
		return nil, fmt.Errorf("failed to save subscription for user %d: %w", userID, err)
	}
	return sub, nil
}
