package model

import "time"

// 用户角色
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// User represents an account in the system.
type User struct {
	ID           int64     `json:"id" gorm:"primaryKey;autoIncrement"`
	AccountID    string    `json:"accountId" gorm:"size:32;uniqueIndex"`
	Username     string    `json:"username" gorm:"size:100;uniqueIndex;not null"`
	Email        string    `json:"email" gorm:"size:255;uniqueIndex;not null"`
	PasswordHash string    `json:"-" gorm:"size:255;not null"` // Not exposed in API responses
	Role         string    `json:"role" gorm:"size:16;default:'user'"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// TableName 指定表名
func (User) TableName() string {
	return "users"
}

// IsAdmin 是否管理员
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// SubscriptionStatus 订阅状态
type SubscriptionStatus string

const (
	SubscriptionActive    SubscriptionStatus = "active"
	SubscriptionCancelled SubscriptionStatus = "cancelled"
	SubscriptionExpired   SubscriptionStatus = "expired"
)

// Subscription 订阅记录，付款确认后由计费回调或管理员写入
type Subscription struct {
	ID        int64              `json:"id" gorm:"primaryKey;autoIncrement"`
	UserID    int64              `json:"userId" gorm:"index;not null"`
	PlanName  string             `json:"planName" gorm:"size:64"`
	Status    SubscriptionStatus `json:"status" gorm:"size:16;index"`
	StartsAt  time.Time          `json:"startsAt"`
	ExpiresAt time.Time          `json:"expiresAt" gorm:"index"`
	CreatedAt time.Time          `json:"createdAt"`
	UpdatedAt time.Time          `json:"updatedAt"`
}

// TableName 指定表名
func (Subscription) TableName() string {
	return "subscriptions"
}

// ActiveAt 在给定时间点是否有效
func (s *Subscription) ActiveAt(t time.Time) bool {
	return s.Status == SubscriptionActive && s.ExpiresAt.After(t)
}
