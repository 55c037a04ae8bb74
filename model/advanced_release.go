package model

import (
	"database/sql/driver"
	"time"
)

// AdvancedReleaseType 高级发行类型
type AdvancedReleaseType string

const (
	ReleaseTypeSingle   AdvancedReleaseType = "single"
	ReleaseTypeAlbum    AdvancedReleaseType = "album"
	ReleaseTypeEP       AdvancedReleaseType = "ep"
	ReleaseTypeRingtone AdvancedReleaseType = "ringtone_release"
)

// SingleTrackOnly 单曲和彩铃只允许一首曲目
func (t AdvancedReleaseType) SingleTrackOnly() bool {
	return t == ReleaseTypeSingle || t == ReleaseTypeRingtone
}

// AdvancedReleaseInfo 高级发行信息
type AdvancedReleaseInfo struct {
	ReleaseName      string   `json:"releaseName"`
	ReleaseVersion   string   `json:"releaseVersion,omitempty"`
	PrimaryArtists   []string `json:"primaryArtists"`
	FeaturingArtists []string `json:"featuringArtists,omitempty"`
	PrimaryGenre     string   `json:"primaryGenre"`
	SecondaryGenre   string   `json:"secondaryGenre,omitempty"`
	Language         string   `json:"language,omitempty"`
	LabelID          string   `json:"labelId"`
	CLine            string   `json:"cLine,omitempty"`
	PLine            string   `json:"pLine,omitempty"`
	UPC              string   `json:"upc,omitempty"`
	NeedsUPC         bool     `json:"needsUPC"`
}

// AdvancedStep1 封面 + 发行信息
type AdvancedStep1 struct {
	StepMeta
	CoverArt    CoverArt            `json:"coverArt"`
	ReleaseInfo AdvancedReleaseInfo `json:"releaseInfo"`
}

func (s *AdvancedStep1) Scan(value interface{}) error { return scanJSON(value, s) }
func (s AdvancedStep1) Value() (driver.Value, error) { return jsonValue(s) }

// AdvancedTrack 高级发行曲目，ISRC 区分用户填写和管理员分配
type AdvancedTrack struct {
	TrackID           string      `json:"trackId"`
	TrackName         string      `json:"trackName"`
	PrimaryArtists    []string    `json:"primaryArtists"`
	FeaturingArtists  []string    `json:"featuringArtists,omitempty"`
	Genres            []string    `json:"genres"`
	Language          string      `json:"language,omitempty"`
	Composers         []string    `json:"composers,omitempty"`
	Lyricists         []string    `json:"lyricists,omitempty"`
	Producers         []string    `json:"producers,omitempty"`
	ExplicitContent   bool        `json:"explicitContent"`
	Lyrics            string      `json:"lyrics,omitempty"`
	ISRC              string      `json:"isrc,omitempty"`
	NeedsISRC         bool        `json:"needsISRC"`
	AdminProvidedISRC string      `json:"adminProvidedISRC,omitempty"`
	AudioFiles        []AudioFile `json:"audioFiles,omitempty"`
	PreviewWindow     *TimeWindow `json:"previewWindow,omitempty"`
	CallerTuneWindow  *TimeWindow `json:"callerTuneWindow,omitempty"`
}

// AdvancedStep2 曲目列表
type AdvancedStep2 struct {
	StepMeta
	Tracks []AdvancedTrack `json:"tracks"`
}

func (s *AdvancedStep2) Scan(value interface{}) error { return scanJSON(value, s) }
func (s AdvancedStep2) Value() (driver.Value, error) { return jsonValue(s) }

// TerritorialRights 发行地区设置
type TerritorialRights struct {
	Mode        string   `json:"mode"` // worldwide, selected
	Territories []string `json:"territories,omitempty"`
}

// AdvancedStep3 分发渠道与版权设置
type AdvancedStep3 struct {
	StepMeta
	TerritorialRights    *TerritorialRights `json:"territorialRights,omitempty"`
	DistributionPartners []string           `json:"distributionPartners"`
	ReleaseDate          *time.Time         `json:"releaseDate,omitempty"`
	PreOrder             bool               `json:"preOrder"`
	PriceTier            string             `json:"priceTier,omitempty"`
}

func (s *AdvancedStep3) Scan(value interface{}) error { return scanJSON(value, s) }
func (s AdvancedStep3) Value() (driver.Value, error) { return jsonValue(s) }

// AdvancedRelease 高级发行（single / album / ep / ringtone）
type AdvancedRelease struct {
	ReleaseCore
	ReleaseType      AdvancedReleaseType `json:"releaseType" gorm:"size:24;not null"`
	Step1            AdvancedStep1       `json:"step1" gorm:"type:json"`
	Step2            AdvancedStep2       `json:"step2" gorm:"type:json"`
	Step3            AdvancedStep3       `json:"step3" gorm:"type:json"`
	AdminProvidedUPC string              `json:"adminProvidedUPC,omitempty" gorm:"size:20"`
}

// TableName 指定表名
func (AdvancedRelease) TableName() string {
	return "advanced_releases"
}

// Steps 返回三步完成标记
func (r *AdvancedRelease) Steps() [TotalSteps]*StepMeta {
	return [TotalSteps]*StepMeta{&r.Step1.StepMeta, &r.Step2.StepMeta, &r.Step3.StepMeta}
}

// TypeName 返回发行类型
func (r *AdvancedRelease) TypeName() string { return string(r.ReleaseType) }

// TrackByID 按 trackId 查找曲目
func (r *AdvancedRelease) TrackByID(trackID string) *AdvancedTrack {
	for i := range r.Step2.Tracks {
		if r.Step2.Tracks[i].TrackID == trackID {
			return &r.Step2.Tracks[i]
		}
	}
	return nil
}

// TrackIDs 返回曲目 ID 列表
func (r *AdvancedRelease) TrackIDs() []string {
	ids := make([]string, 0, len(r.Step2.Tracks))
	for _, t := range r.Step2.Tracks {
		ids = append(ids, t.TrackID)
	}
	return ids
}
