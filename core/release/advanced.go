package release

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"Tunedrop/model"
)

// AdvancedKind 高级发行：不检查订阅，处理下架时置 isActive=false
func AdvancedKind() *Kind[*model.AdvancedRelease] {
	return &Kind[*model.AdvancedRelease]{
		Name:  "advanced",
		Label: "Advanced release",
		New: func(releaseType string) (*model.AdvancedRelease, error) {
			switch t := model.AdvancedReleaseType(releaseType); t {
			case model.ReleaseTypeSingle, model.ReleaseTypeAlbum, model.ReleaseTypeEP, model.ReleaseTypeRingtone:
				return &model.AdvancedRelease{ReleaseType: t}, nil
			default:
				return nil, validationError("releaseType must be one of single, album, ep, ringtone_release")
			}
		},
		Checks: [model.TotalSteps]StepCheck[*model.AdvancedRelease]{
			checkAdvancedStep1,
			checkAdvancedStep2,
			checkAdvancedStep3,
		},
		StepTitles: [model.TotalSteps]string{
			"Cover art & release details",
			"Tracks & credits",
			"Distribution & rights",
		},
		RequiresSubscription: false,
		DeactivateOnTakeDown: true,
	}
}

func checkAdvancedStep1(r *model.AdvancedRelease) error {
	info := r.Step1.ReleaseInfo
	switch {
	case blank(r.Step1.CoverArt.ImageURL):
		return errors.New("cover art image is required")
	case blank(info.ReleaseName):
		return errors.New("release name is required")
	case r.ReleaseType == "":
		return errors.New("release type is required")
	case len(cleanStrings(info.PrimaryArtists)) == 0:
		return errors.New("at least one primary artist is required")
	case blank(info.PrimaryGenre):
		return errors.New("primary genre is required")
	case blank(info.LabelID):
		return errors.New("label is required")
	}
	return nil
}

func checkAdvancedStep2(r *model.AdvancedRelease) error {
	if len(r.Step2.Tracks) == 0 {
		return errors.New("at least one track is required")
	}
	if r.ReleaseType.SingleTrackOnly() && len(r.Step2.Tracks) > 1 {
		return fmt.Errorf("%s releases can only have one track", r.ReleaseType)
	}
	for i, t := range r.Step2.Tracks {
		switch {
		case blank(t.TrackName):
			return fmt.Errorf("track %d: name is required", i+1)
		case len(cleanStrings(t.PrimaryArtists)) == 0:
			return fmt.Errorf("track %d: at least one primary artist is required", i+1)
		case len(cleanStrings(t.Genres)) == 0:
			return fmt.Errorf("track %d: at least one genre is required", i+1)
		}
	}
	return nil
}

func checkAdvancedStep3(r *model.AdvancedRelease) error {
	s := r.Step3
	switch {
	case s.TerritorialRights == nil || s.TerritorialRights.Mode == "":
		return errors.New("territorial rights must be set")
	case s.TerritorialRights.Mode == territorySelected && len(s.TerritorialRights.Territories) == 0:
		return errors.New("at least one territory must be selected")
	case len(cleanStrings(s.DistributionPartners)) == 0:
		return errors.New("at least one distribution partner is required")
	}
	return nil
}

const (
	territoryWorldwide = "worldwide"
	territorySelected  = "selected"
)

var (
	upcPattern  = regexp.MustCompile(`^\d{12,13}$`)
	isrcPattern = regexp.MustCompile(`^[A-Z]{2}[A-Z0-9]{3}\d{7}$`)
)

// NormalizeUPC 去掉空白，格式不对返回 ValidationError
func NormalizeUPC(raw string) (string, error) {
	code := strings.ReplaceAll(strings.TrimSpace(raw), " ", "")
	if !upcPattern.MatchString(code) {
		return "", validationError("UPC must be 12 or 13 digits")
	}
	return code, nil
}

// NormalizeISRC 转大写并去掉连字符，格式不对返回 ValidationError
func NormalizeISRC(raw string) (string, error) {
	code := strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(raw), "-", ""))
	if !isrcPattern.MatchString(code) {
		return "", validationError("ISRC must look like CC-XXX-YY-NNNNN")
	}
	return code, nil
}

// AdvancedReleaseInfoPatch 高级发行信息的部分更新
type AdvancedReleaseInfoPatch struct {
	ReleaseName      *string   `json:"releaseName"`
	ReleaseVersion   *string   `json:"releaseVersion"`
	PrimaryArtists   *[]string `json:"primaryArtists"`
	FeaturingArtists *[]string `json:"featuringArtists"`
	PrimaryGenre     *string   `json:"primaryGenre"`
	SecondaryGenre   *string   `json:"secondaryGenre"`
	Language         *string   `json:"language"`
	LabelID          *string   `json:"labelId"`
	CLine            *string   `json:"cLine"`
	PLine            *string   `json:"pLine"`
	UPC              *string   `json:"upc"`
	NeedsUPC         *bool     `json:"needsUPC"`
}

// AdvancedStep1Patch 第一步：封面 + 发行信息
type AdvancedStep1Patch struct {
	CoverArt    *CoverArtPatch            `json:"coverArt"`
	ReleaseInfo *AdvancedReleaseInfoPatch `json:"releaseInfo"`
}

func (p *AdvancedStep1Patch) Step() int { return 1 }

func (p *AdvancedStep1Patch) Validate() error {
	if p.CoverArt == nil && p.ReleaseInfo == nil {
		return validationError("coverArt or releaseInfo is required")
	}
	if err := p.CoverArt.validate(); err != nil {
		return err
	}
	if info := p.ReleaseInfo; info != nil && info.UPC != nil && !blank(*info.UPC) {
		if _, err := NormalizeUPC(*info.UPC); err != nil {
			return err
		}
	}
	return nil
}

func (p *AdvancedStep1Patch) Apply(r *model.AdvancedRelease) error {
	info := p.ReleaseInfo
	upc := ""
	if info != nil && info.UPC != nil && !blank(*info.UPC) {
		code, err := NormalizeUPC(*info.UPC)
		if err != nil {
			return err
		}
		upc = code
	}

	p.CoverArt.apply(&r.Step1.CoverArt)
	if info == nil {
		return nil
	}
	dst := &r.Step1.ReleaseInfo
	setString(&dst.ReleaseName, info.ReleaseName)
	setString(&dst.ReleaseVersion, info.ReleaseVersion)
	setStrings(&dst.PrimaryArtists, info.PrimaryArtists)
	setStrings(&dst.FeaturingArtists, info.FeaturingArtists)
	setString(&dst.PrimaryGenre, info.PrimaryGenre)
	setString(&dst.SecondaryGenre, info.SecondaryGenre)
	setString(&dst.Language, info.Language)
	setString(&dst.LabelID, info.LabelID)
	setString(&dst.CLine, info.CLine)
	setString(&dst.PLine, info.PLine)
	if info.UPC != nil {
		dst.UPC = upc
	}
	setBool(&dst.NeedsUPC, info.NeedsUPC)
	return nil
}

// AdvancedStep2Patch 第二步：曲目列表整体替换
type AdvancedStep2Patch struct {
	Tracks []model.AdvancedTrack `json:"tracks"`
}

func (p *AdvancedStep2Patch) Step() int { return 2 }

func (p *AdvancedStep2Patch) Validate() error {
	if p.Tracks == nil {
		return validationError("tracks is required")
	}
	ids := make([]string, 0, len(p.Tracks))
	for i, t := range p.Tracks {
		prefix := fmt.Sprintf("tracks[%d]", i)
		if !blank(t.ISRC) {
			if _, err := NormalizeISRC(t.ISRC); err != nil {
				return err
			}
		}
		if err := validateAudioFiles(prefix, t.AudioFiles); err != nil {
			return err
		}
		if err := validateWindow(prefix+".previewWindow", t.PreviewWindow); err != nil {
			return err
		}
		if err := validateWindow(prefix+".callerTuneWindow", t.CallerTuneWindow); err != nil {
			return err
		}
		ids = append(ids, t.TrackID)
	}
	return checkUniqueTrackIDs(ids)
}

func (p *AdvancedStep2Patch) Apply(r *model.AdvancedRelease) error {
	if r.ReleaseType.SingleTrackOnly() && len(p.Tracks) > 1 {
		return preconditionFailed("%s releases can only have one track, got %d", r.ReleaseType, len(p.Tracks))
	}

	tracks := make([]model.AdvancedTrack, len(p.Tracks))
	for i, t := range p.Tracks {
		t.TrackID = ensureTrackID(t.TrackID)
		t.Genres = cleanStrings(t.Genres)
		t.PrimaryArtists = cleanStrings(t.PrimaryArtists)
		t.ISRC = strings.TrimSpace(t.ISRC)
		if t.ISRC != "" {
			code, err := NormalizeISRC(t.ISRC)
			if err != nil {
				return err
			}
			t.ISRC = code
		}
		// 管理员分配的 ISRC 只能由管理员改
		t.AdminProvidedISRC = ""
		if old := r.TrackByID(t.TrackID); old != nil {
			t.AdminProvidedISRC = old.AdminProvidedISRC
		}
		tracks[i] = t
	}
	r.Step2.Tracks = tracks
	return nil
}

// AdvancedStep3Patch 第三步：分发渠道与版权
type AdvancedStep3Patch struct {
	TerritorialRights    *model.TerritorialRights `json:"territorialRights"`
	DistributionPartners *[]string                `json:"distributionPartners"`
	ReleaseDate          *time.Time               `json:"releaseDate"`
	PreOrder             *bool                    `json:"preOrder"`
	PriceTier            *string                  `json:"priceTier"`
}

func (p *AdvancedStep3Patch) Step() int { return 3 }

func (p *AdvancedStep3Patch) Validate() error {
	if tr := p.TerritorialRights; tr != nil {
		if tr.Mode != territoryWorldwide && tr.Mode != territorySelected {
			return validationError("territorialRights.mode must be worldwide or selected")
		}
	}
	if p.ReleaseDate != nil && p.ReleaseDate.IsZero() {
		return validationError("releaseDate is invalid")
	}
	return nil
}

func (p *AdvancedStep3Patch) Apply(r *model.AdvancedRelease) error {
	s := &r.Step3
	if tr := p.TerritorialRights; tr != nil {
		rights := model.TerritorialRights{Mode: tr.Mode}
		if tr.Mode == territorySelected {
			rights.Territories = cleanStrings(tr.Territories)
		}
		s.TerritorialRights = &rights
	}
	setStrings(&s.DistributionPartners, p.DistributionPartners)
	if p.ReleaseDate != nil {
		d := *p.ReleaseDate
		s.ReleaseDate = &d
	}
	setBool(&s.PreOrder, p.PreOrder)
	setString(&s.PriceTier, p.PriceTier)
	return nil
}

// AdvancedEdit 管理员直接修改的内容，也用于代建
type AdvancedEdit struct {
	Step1 *AdvancedStep1Patch `json:"step1"`
	Step2 *AdvancedStep2Patch `json:"step2"`
	Step3 *AdvancedStep3Patch `json:"step3"`
}

func (e *AdvancedEdit) Validate() error {
	if e.Step1 == nil && e.Step2 == nil && e.Step3 == nil {
		return validationError("at least one of step1, step2, step3 is required")
	}
	if e.Step1 != nil {
		if err := e.Step1.CoverArt.validate(); err != nil {
			return err
		}
		if info := e.Step1.ReleaseInfo; info != nil && info.UPC != nil && !blank(*info.UPC) {
			if _, err := NormalizeUPC(*info.UPC); err != nil {
				return err
			}
		}
	}
	if e.Step2 != nil {
		if err := e.Step2.Validate(); err != nil {
			return err
		}
	}
	if e.Step3 != nil {
		return e.Step3.Validate()
	}
	return nil
}

func (e *AdvancedEdit) Apply(r *model.AdvancedRelease) error {
	// 先做会失败的一步，保证出错时不改动 r
	if e.Step2 != nil {
		if err := e.Step2.Apply(r); err != nil {
			return err
		}
	}
	if e.Step1 != nil {
		if err := e.Step1.Apply(r); err != nil {
			return err
		}
	}
	if e.Step3 != nil {
		return e.Step3.Apply(r)
	}
	return nil
}
