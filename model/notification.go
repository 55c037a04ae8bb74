package model

import (
	"time"

	"github.com/google/uuid"
)

// 通知级别
const (
	SeverityInfo    = "info"
	SeveritySuccess = "success"
	SeverityWarning = "warning"
	SeverityError   = "error"
)

// Notification 发给用户的站内通知
type Notification struct {
	ID        string     `json:"id" gorm:"primaryKey;size:36"`
	UserID    int64      `json:"userId" gorm:"index;not null"`
	Title     string     `json:"title" gorm:"size:255;not null"`
	Message   string     `json:"message" gorm:"type:text"`
	Severity  string     `json:"severity" gorm:"size:16"`
	ReleaseID string     `json:"releaseId,omitempty" gorm:"size:32;index"`
	IsRead    bool       `json:"isRead"`
	ReadAt    *time.Time `json:"readAt,omitempty"`
	CreatedAt time.Time  `json:"createdAt" gorm:"index"`
}

// TableName 指定表名
func (Notification) TableName() string {
	return "notifications"
}

// NewNotification 创建新通知
func NewNotification(userID int64, title, message, severity, releaseID string) *Notification {
	return &Notification{
		ID:        uuid.New().String(),
		UserID:    userID,
		Title:     title,
		Message:   message,
		Severity:  severity,
		ReleaseID: releaseID,
		CreatedAt: time.Now(),
	}
}

// IDCounter 发号器计数行，每个前缀一行
type IDCounter struct {
	Prefix    string    `gorm:"primaryKey;size:16"`
	Value     int64     `gorm:"not null;default:0"`
	UpdatedAt time.Time
}

// TableName 指定表名
func (IDCounter) TableName() string {
	return "id_counters"
}

// 唯一编码类型
const (
	CodeTypeUPC  = "UPC"
	CodeTypeISRC = "ISRC"
)

// CodeAssignment 管理员分配的 UPC/ISRC，全库唯一
type CodeAssignment struct {
	ID         int64     `json:"id" gorm:"primaryKey;autoIncrement"`
	CodeType   string    `json:"codeType" gorm:"size:8;uniqueIndex:idx_code_type_value;not null"`
	Code       string    `json:"code" gorm:"size:32;uniqueIndex:idx_code_type_value;not null"`
	ReleaseID  string    `json:"releaseId" gorm:"size:32;index;not null"`
	TrackID    string    `json:"trackId,omitempty" gorm:"size:36"`
	AssignedBy int64     `json:"assignedBy"`
	CreatedAt  time.Time `json:"createdAt"`
}

// TableName 指定表名
func (CodeAssignment) TableName() string {
	return "code_assignments"
}
