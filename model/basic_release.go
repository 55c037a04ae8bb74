package model

import (
	"database/sql/driver"
	"time"
)

// TrackType 基础发行的曲目类型
type TrackType string

const (
	TrackTypeSingle TrackType = "single"
	TrackTypeAlbum  TrackType = "album"
)

// BasicReleaseInfo 基础发行信息
type BasicReleaseInfo struct {
	ReleaseName   string `json:"releaseName"`
	Genre         string `json:"genre"`
	SubGenre      string `json:"subGenre,omitempty"`
	Language      string `json:"language,omitempty"`
	PrimaryArtist string `json:"primaryArtist,omitempty"`
	LabelName     string `json:"labelName,omitempty"`
	Description   string `json:"description,omitempty"`
}

// BasicStep1 封面 + 发行信息
type BasicStep1 struct {
	StepMeta
	CoverArt    CoverArt         `json:"coverArt"`
	ReleaseInfo BasicReleaseInfo `json:"releaseInfo"`
}

func (s *BasicStep1) Scan(value interface{}) error { return scanJSON(value, s) }
func (s BasicStep1) Value() (driver.Value, error) { return jsonValue(s) }

// BasicTrack 基础发行中的一首曲目
type BasicTrack struct {
	TrackID          string      `json:"trackId"`
	TrackName        string      `json:"trackName"`
	Genres           []string    `json:"genres"`
	Language         string      `json:"language,omitempty"`
	Singers          []string    `json:"singers,omitempty"`
	Composers        []string    `json:"composers,omitempty"`
	Lyricists        []string    `json:"lyricists,omitempty"`
	Producers        []string    `json:"producers,omitempty"`
	AudioFiles       []AudioFile `json:"audioFiles"`
	PreviewWindow    *TimeWindow `json:"previewWindow,omitempty"`
	CallerTuneWindow *TimeWindow `json:"callerTuneWindow,omitempty"`
}

// BasicStep2 曲目列表
type BasicStep2 struct {
	StepMeta
	Tracks []BasicTrack `json:"tracks"`
}

func (s *BasicStep2) Scan(value interface{}) error { return scanJSON(value, s) }
func (s BasicStep2) Value() (driver.Value, error) { return jsonValue(s) }

// BasicStep3 发行日期与版权设置
type BasicStep3 struct {
	StepMeta
	ReleaseDate        *time.Time `json:"releaseDate,omitempty"`
	TerritorialRights  *bool      `json:"territorialRights,omitempty"`
	PartnerSelection   *bool      `json:"partnerSelection,omitempty"`
	Partners           []string   `json:"partners,omitempty"`
	CopyrightOwnership *bool      `json:"copyrightOwnership,omitempty"`
	CopyrightHolder    string     `json:"copyrightHolder,omitempty"`
}

func (s *BasicStep3) Scan(value interface{}) error { return scanJSON(value, s) }
func (s BasicStep3) Value() (driver.Value, error) { return jsonValue(s) }

// BasicRelease 基础发行（single / album）
type BasicRelease struct {
	ReleaseCore
	TrackType TrackType  `json:"trackType" gorm:"size:16;not null"`
	Step1     BasicStep1 `json:"step1" gorm:"type:json"`
	Step2     BasicStep2 `json:"step2" gorm:"type:json"`
	Step3     BasicStep3 `json:"step3" gorm:"type:json"`
}

// TableName 指定表名
func (BasicRelease) TableName() string {
	return "basic_releases"
}

// Steps 返回三步完成标记
func (r *BasicRelease) Steps() [TotalSteps]*StepMeta {
	return [TotalSteps]*StepMeta{&r.Step1.StepMeta, &r.Step2.StepMeta, &r.Step3.StepMeta}
}

// TypeName 返回曲目类型
func (r *BasicRelease) TypeName() string { return string(r.TrackType) }

// TrackIDs 返回曲目 ID 列表
func (r *BasicRelease) TrackIDs() []string {
	ids := make([]string, 0, len(r.Step2.Tracks))
	for _, t := range r.Step2.Tracks {
		ids = append(ids, t.TrackID)
	}
	return ids
}
