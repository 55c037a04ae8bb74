package model

import (
	"database/sql/driver"
	"time"
)

// ReleaseStatus 发行状态
type ReleaseStatus string

const (
	StatusDraft         ReleaseStatus = "DRAFT"
	StatusSubmitted     ReleaseStatus = "SUBMITTED"
	StatusUnderReview   ReleaseStatus = "UNDER_REVIEW"
	StatusProcessing    ReleaseStatus = "PROCESSING"
	StatusPublished     ReleaseStatus = "PUBLISHED"
	StatusLive          ReleaseStatus = "LIVE"
	StatusRejected      ReleaseStatus = "REJECTED"
	StatusTakeDown      ReleaseStatus = "TAKE_DOWN"
	StatusTakenDown     ReleaseStatus = "TAKEN_DOWN"
	StatusUpdateRequest ReleaseStatus = "UPDATE_REQUEST"
)

// AllStatuses 全部合法状态
var AllStatuses = []ReleaseStatus{
	StatusDraft,
	StatusSubmitted,
	StatusUnderReview,
	StatusProcessing,
	StatusPublished,
	StatusLive,
	StatusRejected,
	StatusTakeDown,
	StatusTakenDown,
	StatusUpdateRequest,
}

// IsValid 判断状态是否在枚举集合中
func (s ReleaseStatus) IsValid() bool {
	for _, status := range AllStatuses {
		if s == status {
			return true
		}
	}
	return false
}

// WizardStep 三步向导的当前位置，仅用于前端提示
type WizardStep string

const (
	StepOne       WizardStep = "STEP_1"
	StepTwo       WizardStep = "STEP_2"
	StepThree     WizardStep = "STEP_3"
	StepCompleted WizardStep = "COMPLETED"
)

// TotalSteps 每个发行固定三步
const TotalSteps = 3

// StepMeta 每一步的完成标记
type StepMeta struct {
	IsCompleted bool       `json:"isCompleted"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
}

// AdminReview 管理员审核记录
type AdminReview struct {
	ReviewedBy      *int64     `json:"reviewedBy,omitempty"`
	ReviewedAt      *time.Time `json:"reviewedAt,omitempty"`
	AdminNotes      string     `json:"adminNotes,omitempty"`
	RejectionReason string     `json:"rejectionReason,omitempty"`
}

func (a *AdminReview) Scan(value interface{}) error { return scanJSON(value, a) }
func (a AdminReview) Value() (driver.Value, error) { return jsonValue(a) }

// UpdateRequest 已上线发行申请重新编辑
type UpdateRequest struct {
	RequestedAt      *time.Time    `json:"requestedAt,omitempty"`
	RequestReason    string        `json:"requestReason,omitempty"`
	RequestedChanges string        `json:"requestedChanges,omitempty"`
	PreviousStatus   ReleaseStatus `json:"previousStatus,omitempty"`
}

func (u *UpdateRequest) Scan(value interface{}) error { return scanJSON(value, u) }
func (u UpdateRequest) Value() (driver.Value, error) { return jsonValue(u) }

// TakeDown 下架申请与处理记录
type TakeDown struct {
	RequestedAt *time.Time `json:"requestedAt,omitempty"`
	Reason      string     `json:"reason,omitempty"`
	ProcessedAt *time.Time `json:"processedAt,omitempty"`
	ProcessedBy *int64     `json:"processedBy,omitempty"`
}

func (t *TakeDown) Scan(value interface{}) error { return scanJSON(value, t) }
func (t TakeDown) Value() (driver.Value, error) { return jsonValue(t) }

// FootprintEntry 管理员录入的音频指纹比对结果
type FootprintEntry struct {
	EntryID       string    `json:"entryId"`
	TrackID       string    `json:"trackId"`
	MatchStatus   string    `json:"matchStatus"` // clean, matched, partial
	MatchedTitle  string    `json:"matchedTitle,omitempty"`
	MatchedArtist string    `json:"matchedArtist,omitempty"`
	Confidence    float64   `json:"confidence,omitempty"`
	Notes         string    `json:"notes,omitempty"`
	CheckedBy     int64     `json:"checkedBy"`
	CheckedAt     time.Time `json:"checkedAt"`
}

// FootprintList 按 trackId 覆盖写入的指纹列表
type FootprintList []FootprintEntry

func (f *FootprintList) Scan(value interface{}) error { return scanJSON(value, f) }
func (f FootprintList) Value() (driver.Value, error) {
	if f == nil {
		return jsonValue([]FootprintEntry{})
	}
	return jsonValue(f)
}

// ReleaseCore 两种发行共有的生命周期字段
type ReleaseCore struct {
	ID                uint64        `json:"-" gorm:"primaryKey;autoIncrement"`
	ReleaseID         string        `json:"releaseId" gorm:"size:32;uniqueIndex;not null"`
	UserID            int64         `json:"userId" gorm:"index;not null"`
	ReleaseStatus     ReleaseStatus `json:"releaseStatus" gorm:"size:20;index;not null"`
	CurrentStep       WizardStep    `json:"currentStep" gorm:"size:16"`
	CompletedSteps    int           `json:"completedSteps"`
	TotalSteps        int           `json:"totalSteps"`
	AdminReview       AdminReview   `json:"adminReview" gorm:"type:json"`
	SubmittedAt       *time.Time    `json:"submittedAt"`
	PublishedAt       *time.Time    `json:"publishedAt"`
	LiveAt            *time.Time    `json:"liveAt"`
	UpdateRequest     UpdateRequest `json:"updateRequest" gorm:"type:json"`
	TakeDown          TakeDown      `json:"takeDown" gorm:"type:json"`
	AudioFootprinting FootprintList `json:"audioFootprinting" gorm:"type:json"`
	IsActive          bool          `json:"isActive" gorm:"index"`
	CreatedAt         time.Time     `json:"createdAt"`
	UpdatedAt         time.Time     `json:"updatedAt"`
}

// Core 返回共有字段
func (c *ReleaseCore) Core() *ReleaseCore { return c }

// Release 两种发行文档的公共视图
type Release interface {
	Core() *ReleaseCore
	// Steps 按顺序返回三步的完成标记
	Steps() [TotalSteps]*StepMeta
	// TypeName 返回 trackType / releaseType
	TypeName() string
	TrackIDs() []string
}

// CoverArt 封面图片描述，只保存 URL 和元数据
type CoverArt struct {
	ImageURL string `json:"imageUrl"`
	FileName string `json:"fileName,omitempty"`
	FileSize int64  `json:"fileSize,omitempty"`
	Format   string `json:"format,omitempty"`
	Width    int    `json:"width,omitempty"`
	Height   int    `json:"height,omitempty"`
}

// AudioFile 音频文件描述
type AudioFile struct {
	Format   string  `json:"format"`
	URL      string  `json:"url"`
	FileSize int64   `json:"fileSize,omitempty"`
	Duration float64 `json:"duration,omitempty"`
}

// TimeWindow 试听/彩铃片段（秒）
type TimeWindow struct {
	Start int `json:"start"`
	End   int `json:"end"`
}
