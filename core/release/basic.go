package release

import (
	"errors"
	"fmt"
	"time"

	"Tunedrop/model"
)

// BasicKind 基础发行：需要有效订阅，处理下架时保持 isActive
func BasicKind() *Kind[*model.BasicRelease] {
	return &Kind[*model.BasicRelease]{
		Name:  "basic",
		Label: "Release",
		New: func(releaseType string) (*model.BasicRelease, error) {
			switch t := model.TrackType(releaseType); t {
			case model.TrackTypeSingle, model.TrackTypeAlbum:
				return &model.BasicRelease{TrackType: t}, nil
			default:
				return nil, validationError("trackType must be one of single, album")
			}
		},
		Checks: [model.TotalSteps]StepCheck[*model.BasicRelease]{
			checkBasicStep1,
			checkBasicStep2,
			checkBasicStep3,
		},
		StepTitles: [model.TotalSteps]string{
			"Cover art & release info",
			"Tracks",
			"Release date & rights",
		},
		RequiresSubscription: true,
		DeactivateOnTakeDown: false,
	}
}

func checkBasicStep1(r *model.BasicRelease) error {
	switch {
	case blank(r.Step1.CoverArt.ImageURL):
		return errors.New("cover art image is required")
	case blank(r.Step1.ReleaseInfo.ReleaseName):
		return errors.New("release name is required")
	case blank(r.Step1.ReleaseInfo.Genre):
		return errors.New("genre is required")
	}
	return nil
}

func checkBasicStep2(r *model.BasicRelease) error {
	if len(r.Step2.Tracks) == 0 {
		return errors.New("at least one track is required")
	}
	for i, t := range r.Step2.Tracks {
		switch {
		case blank(t.TrackName):
			return fmt.Errorf("track %d: name is required", i+1)
		case len(cleanStrings(t.Genres)) == 0:
			return fmt.Errorf("track %d: at least one genre is required", i+1)
		case len(t.AudioFiles) == 0:
			return fmt.Errorf("track %d: at least one audio file is required", i+1)
		}
	}
	return nil
}

func checkBasicStep3(r *model.BasicRelease) error {
	s := r.Step3
	switch {
	case s.ReleaseDate == nil:
		return errors.New("release date is required")
	case s.TerritorialRights == nil:
		return errors.New("territorial rights must be set")
	case s.PartnerSelection == nil:
		return errors.New("partner selection must be set")
	case s.CopyrightOwnership == nil:
		return errors.New("copyright ownership must be set")
	}
	return nil
}

// BasicReleaseInfoPatch 发行信息的部分更新
type BasicReleaseInfoPatch struct {
	ReleaseName   *string `json:"releaseName"`
	Genre         *string `json:"genre"`
	SubGenre      *string `json:"subGenre"`
	Language      *string `json:"language"`
	PrimaryArtist *string `json:"primaryArtist"`
	LabelName     *string `json:"labelName"`
	Description   *string `json:"description"`
}

// BasicStep1Patch 第一步：封面 + 发行信息
type BasicStep1Patch struct {
	CoverArt    *CoverArtPatch         `json:"coverArt"`
	ReleaseInfo *BasicReleaseInfoPatch `json:"releaseInfo"`
}

func (p *BasicStep1Patch) Step() int { return 1 }

func (p *BasicStep1Patch) Validate() error {
	if p.CoverArt == nil && p.ReleaseInfo == nil {
		return validationError("coverArt or releaseInfo is required")
	}
	return p.CoverArt.validate()
}

func (p *BasicStep1Patch) Apply(r *model.BasicRelease) error {
	p.CoverArt.apply(&r.Step1.CoverArt)
	if info := p.ReleaseInfo; info != nil {
		dst := &r.Step1.ReleaseInfo
		setString(&dst.ReleaseName, info.ReleaseName)
		setString(&dst.Genre, info.Genre)
		setString(&dst.SubGenre, info.SubGenre)
		setString(&dst.Language, info.Language)
		setString(&dst.PrimaryArtist, info.PrimaryArtist)
		setString(&dst.LabelName, info.LabelName)
		setString(&dst.Description, info.Description)
	}
	return nil
}

// BasicStep2Patch 第二步：曲目列表整体替换
type BasicStep2Patch struct {
	Tracks []model.BasicTrack `json:"tracks"`
}

func (p *BasicStep2Patch) Step() int { return 2 }

func (p *BasicStep2Patch) Validate() error {
	if p.Tracks == nil {
		return validationError("tracks is required")
	}
	ids := make([]string, 0, len(p.Tracks))
	for i, t := range p.Tracks {
		prefix := fmt.Sprintf("tracks[%d]", i)
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

func (p *BasicStep2Patch) Apply(r *model.BasicRelease) error {
	tracks := make([]model.BasicTrack, len(p.Tracks))
	for i, t := range p.Tracks {
		t.TrackID = ensureTrackID(t.TrackID)
		t.Genres = cleanStrings(t.Genres)
		tracks[i] = t
	}
	r.Step2.Tracks = tracks
	return nil
}

// BasicStep3Patch 第三步：发行日期与版权
type BasicStep3Patch struct {
	ReleaseDate        *time.Time `json:"releaseDate"`
	TerritorialRights  *bool      `json:"territorialRights"`
	PartnerSelection   *bool      `json:"partnerSelection"`
	Partners           *[]string  `json:"partners"`
	CopyrightOwnership *bool      `json:"copyrightOwnership"`
	CopyrightHolder    *string    `json:"copyrightHolder"`
}

func (p *BasicStep3Patch) Step() int { return 3 }

func (p *BasicStep3Patch) Validate() error {
	if p.ReleaseDate != nil && p.ReleaseDate.IsZero() {
		return validationError("releaseDate is invalid")
	}
	return nil
}

func (p *BasicStep3Patch) Apply(r *model.BasicRelease) error {
	s := &r.Step3
	if p.ReleaseDate != nil {
		d := *p.ReleaseDate
		s.ReleaseDate = &d
	}
	s.TerritorialRights = copyBool(s.TerritorialRights, p.TerritorialRights)
	s.PartnerSelection = copyBool(s.PartnerSelection, p.PartnerSelection)
	s.CopyrightOwnership = copyBool(s.CopyrightOwnership, p.CopyrightOwnership)
	setStrings(&s.Partners, p.Partners)
	setString(&s.CopyrightHolder, p.CopyrightHolder)
	return nil
}

func copyBool(cur, patch *bool) *bool {
	if patch == nil {
		return cur
	}
	v := *patch
	return &v
}

// BasicEdit 管理员直接修改的内容，也用于代建
type BasicEdit struct {
	Step1 *BasicStep1Patch `json:"step1"`
	Step2 *BasicStep2Patch `json:"step2"`
	Step3 *BasicStep3Patch `json:"step3"`
}

func (e *BasicEdit) Validate() error {
	if e.Step1 == nil && e.Step2 == nil && e.Step3 == nil {
		return validationError("at least one of step1, step2, step3 is required")
	}
	if e.Step1 != nil {
		if err := e.Step1.CoverArt.validate(); err != nil {
			return err
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

func (e *BasicEdit) Apply(r *model.BasicRelease) error {
	if e.Step1 != nil {
		if err := e.Step1.Apply(r); err != nil {
			return err
		}
	}
	if e.Step2 != nil {
		if err := e.Step2.Apply(r); err != nil {
			return err
		}
	}
	if e.Step3 != nil {
		return e.Step3.Apply(r)
	}
	return nil
}
