package release

import (
	"context"
	"testing"

	"Tunedrop/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSingleTrackEnforcement(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	view, err := f.advanced.Create(ctx, ownerID, "single")
	require.NoError(t, err)
	id := view.Release.ReleaseID
	_, err = f.advanced.UpdateStep(ctx, ownerID, id, advancedStep1(false))
	require.NoError(t, err)

	_, err = f.advanced.UpdateStep(ctx, ownerID, id, &AdvancedStep2Patch{
		Tracks: []model.AdvancedTrack{advancedTrack("a", "One"), advancedTrack("b", "Two")},
	})
	assert.True(t, IsKind(err, PreconditionFailed))

	stored, err := f.advDB.GetByReleaseID(ctx, id)
	require.NoError(t, err)
	assert.Empty(t, stored.Step2.Tracks)

	// album 不限制曲目数
	view, err = f.advanced.Create(ctx, ownerID, "album")
	require.NoError(t, err)
	album := view.Release.ReleaseID
	assert.Regexp(t, `^ARA-\d+$`, album)
	_, err = f.advanced.UpdateStep(ctx, ownerID, album, advancedStep1(false))
	require.NoError(t, err)
	view, err = f.advanced.UpdateStep(ctx, ownerID, album, &AdvancedStep2Patch{
		Tracks: []model.AdvancedTrack{advancedTrack("a", "One"), advancedTrack("b", "Two")},
	})
	require.NoError(t, err)
	assert.Len(t, view.Release.Step2.Tracks, 2)
	assert.True(t, view.Release.Step2.IsCompleted)
}

func TestAdvancedStepValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	view, err := f.advanced.Create(ctx, ownerID, "ep")
	require.NoError(t, err)
	id := view.Release.ReleaseID

	_, err = f.advanced.UpdateStep(ctx, ownerID, id, &AdvancedStep1Patch{
		ReleaseInfo: &AdvancedReleaseInfoPatch{UPC: strPtr("123")},
	})
	assert.True(t, IsKind(err, ValidationError))

	_, err = f.advanced.UpdateStep(ctx, ownerID, id, &AdvancedStep1Patch{
		CoverArt: &CoverArtPatch{ImageURL: strPtr("ftp://nope")},
	})
	assert.True(t, IsKind(err, ValidationError))

	_, err = f.advanced.UpdateStep(ctx, ownerID, id, advancedStep1(true))
	require.NoError(t, err)

	_, err = f.advanced.UpdateStep(ctx, ownerID, id, &AdvancedStep2Patch{
		Tracks: []model.AdvancedTrack{advancedTrack("x", "A"), advancedTrack("x", "B")},
	})
	assert.True(t, IsKind(err, ValidationError))

	_, err = f.advanced.UpdateStep(ctx, ownerID, id, &AdvancedStep2Patch{
		Tracks: []model.AdvancedTrack{advancedTrack("x", "A")},
	})
	require.NoError(t, err)

	_, err = f.advanced.UpdateStep(ctx, ownerID, id, &AdvancedStep3Patch{
		TerritorialRights: &model.TerritorialRights{Mode: "mars"},
	})
	assert.True(t, IsKind(err, ValidationError))

	// selected 但没有地区，保存但不完成
	view, err = f.advanced.UpdateStep(ctx, ownerID, id, &AdvancedStep3Patch{
		TerritorialRights:    &model.TerritorialRights{Mode: "selected"},
		DistributionPartners: strsPtr("spotify"),
	})
	require.NoError(t, err)
	assert.False(t, view.Release.Step3.IsCompleted)

	view, err = f.advanced.UpdateStep(ctx, ownerID, id, &AdvancedStep3Patch{
		TerritorialRights: &model.TerritorialRights{Mode: "selected", Territories: []string{"US", "CA"}},
	})
	require.NoError(t, err)
	assert.True(t, view.Release.Step3.IsCompleted)
	assert.True(t, view.IsReadyForSubmission)
}

func TestProvideUPC(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	plain := f.readyAdvanced(t, "single", false)
	_, err := f.advanced.ProvideUPC(ctx, admin, plain, "012345678905")
	assert.True(t, IsKind(err, PreconditionFailed))

	wanted := f.readyAdvanced(t, "single", true)
	_, err = f.advanced.ProvideUPC(ctx, admin, wanted, "12ab")
	assert.True(t, IsKind(err, ValidationError))

	_, err = f.advanced.ProvideUPC(ctx, Actor{UserID: ownerID, Role: model.RoleUser}, wanted, "012345678905")
	assert.True(t, IsKind(err, Forbidden))

	view, err := f.advanced.ProvideUPC(ctx, admin, wanted, " 012345678905 ")
	require.NoError(t, err)
	assert.Equal(t, "012345678905", view.Release.AdminProvidedUPC)
	require.NotNil(t, view.Release.AdminReview.ReviewedBy)

	// 同一发行重复分配同一编码是幂等的
	_, err = f.advanced.ProvideUPC(ctx, admin, wanted, "012345678905")
	require.NoError(t, err)

	another := f.readyAdvanced(t, "album", true)
	_, err = f.advanced.ProvideUPC(ctx, admin, another, "012345678905")
	assert.True(t, IsKind(err, Conflict))

	// 换号后旧号被释放，可以给别的发行
	_, err = f.advanced.ProvideUPC(ctx, admin, wanted, "0123456789012")
	require.NoError(t, err)
	view, err = f.advanced.ProvideUPC(ctx, admin, another, "012345678905")
	require.NoError(t, err)
	assert.Equal(t, "012345678905", view.Release.AdminProvidedUPC)
}

func TestProvideISRC(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.readyAdvanced(t, "single", false)

	_, err := f.advanced.ProvideISRC(ctx, admin, id, "missing", "USRC17607839")
	assert.True(t, IsKind(err, NotFound))

	view, err := f.advanced.ProvideISRC(ctx, admin, id, "t-1", "us-rc1-76-07839")
	require.NoError(t, err)
	assert.Equal(t, "USRC17607839", view.Release.Step2.Tracks[0].AdminProvidedISRC)

	other := f.readyAdvanced(t, "single", false)
	_, err = f.advanced.ProvideISRC(ctx, admin, other, "t-1", "USRC17607839")
	assert.True(t, IsKind(err, Conflict))

	// 用户重写曲目时保留管理员分配的 ISRC
	_, err = f.advanced.RequestUpdate(ctx, ownerID, id, "x", "y")
	assert.True(t, IsKind(err, InvalidState))
	view, err = f.advanced.UpdateStep(ctx, ownerID, id, &AdvancedStep2Patch{
		Tracks: []model.AdvancedTrack{advancedTrack("t-1", "Tide (Remaster)")},
	})
	require.NoError(t, err)
	assert.Equal(t, "USRC17607839", view.Release.Step2.Tracks[0].AdminProvidedISRC)
	assert.Equal(t, "Tide (Remaster)", view.Release.Step2.Tracks[0].TrackName)
}

func TestProvideISRCRequiresRequest(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	view, err := f.advanced.Create(ctx, ownerID, "single")
	require.NoError(t, err)
	id := view.Release.ReleaseID
	_, err = f.advanced.UpdateStep(ctx, ownerID, id, advancedStep1(false))
	require.NoError(t, err)
	track := advancedTrack("t-9", "Quiet")
	track.NeedsISRC = false
	_, err = f.advanced.UpdateStep(ctx, ownerID, id, &AdvancedStep2Patch{Tracks: []model.AdvancedTrack{track}})
	require.NoError(t, err)

	_, err = f.advanced.ProvideISRC(ctx, admin, id, "t-9", "USRC17607839")
	assert.True(t, IsKind(err, PreconditionFailed))
}

func TestUserCodesAreUniqueAcrossReleases(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	const upc = "123456789012"

	first := f.readyAdvanced(t, "single", false)
	_, err := f.advanced.UpdateStep(ctx, ownerID, first, &AdvancedStep1Patch{
		ReleaseInfo: &AdvancedReleaseInfoPatch{UPC: strPtr(upc)},
	})
	require.NoError(t, err)

	second := f.readyAdvanced(t, "album", false)
	_, err = f.advanced.UpdateStep(ctx, otherID, second, &AdvancedStep1Patch{
		ReleaseInfo: &AdvancedReleaseInfoPatch{UPC: strPtr(upc)},
	})
	assert.True(t, IsKind(err, NotFound))
	_, err = f.advanced.UpdateStep(ctx, ownerID, second, &AdvancedStep1Patch{
		ReleaseInfo: &AdvancedReleaseInfoPatch{UPC: strPtr(upc)},
	})
	assert.True(t, IsKind(err, Conflict))
	view, err := f.advanced.AdminGet(ctx, admin, second)
	require.NoError(t, err)
	assert.Empty(t, view.Release.Step1.ReleaseInfo.UPC)

	// 管理员也不能把用户已填写的 UPC 分给别的发行
	wanted := f.readyAdvanced(t, "single", true)
	_, err = f.advanced.ProvideUPC(ctx, admin, wanted, upc)
	assert.True(t, IsKind(err, Conflict))

	_, err = f.advanced.CreateForUser(ctx, admin, ownerID, "single", &AdvancedEdit{
		Step1: &AdvancedStep1Patch{ReleaseInfo: &AdvancedReleaseInfoPatch{ReleaseName: strPtr("Copy"), UPC: strPtr(upc)}},
	})
	assert.True(t, IsKind(err, Conflict))

	// 清空后编码可以被别的发行使用
	_, err = f.advanced.UpdateStep(ctx, ownerID, first, &AdvancedStep1Patch{
		ReleaseInfo: &AdvancedReleaseInfoPatch{UPC: strPtr("")},
	})
	require.NoError(t, err)
	_, err = f.advanced.ProvideUPC(ctx, admin, wanted, upc)
	require.NoError(t, err)

	// 用户填写的 ISRC 同样全库唯一
	track := advancedTrack("t-1", "Tide")
	track.ISRC = "GB-AAA-25-00001"
	_, err = f.advanced.UpdateStep(ctx, ownerID, first, &AdvancedStep2Patch{Tracks: []model.AdvancedTrack{track}})
	require.NoError(t, err)
	_, err = f.advanced.UpdateStep(ctx, ownerID, second, &AdvancedStep2Patch{Tracks: []model.AdvancedTrack{track}})
	assert.True(t, IsKind(err, Conflict))
	_, err = f.advanced.ProvideISRC(ctx, admin, second, "t-1", "GBAAA2500001")
	assert.True(t, IsKind(err, Conflict))

	// 同一发行的两首曲目也不能共用
	a, b := advancedTrack("t-1", "One"), advancedTrack("t-2", "Two")
	a.ISRC, b.ISRC = "GBAAA2500002", "GBAAA2500002"
	_, err = f.advanced.UpdateStep(ctx, ownerID, second, &AdvancedStep2Patch{Tracks: []model.AdvancedTrack{a, b}})
	assert.True(t, IsKind(err, Conflict))
}

func TestDroppedTrackReleasesISRC(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	const isrc = "USABC2600001"

	id := f.readyAdvanced(t, "single", false)
	_, err := f.advanced.ProvideISRC(ctx, admin, id, "t-1", isrc)
	require.NoError(t, err)

	other := f.readyAdvanced(t, "single", false)
	_, err = f.advanced.ProvideISRC(ctx, admin, other, "t-1", isrc)
	require.True(t, IsKind(err, Conflict))

	// 用户重写曲目，t-1 不在了
	_, err = f.advanced.UpdateStep(ctx, ownerID, id, &AdvancedStep2Patch{
		Tracks: []model.AdvancedTrack{advancedTrack("t-2", "Undertow")},
	})
	require.NoError(t, err)

	view, err := f.advanced.ProvideISRC(ctx, admin, other, "t-1", isrc)
	require.NoError(t, err)
	assert.Equal(t, isrc, view.Release.Step2.Tracks[0].AdminProvidedISRC)

	// 管理员修改时删掉曲目同样释放
	_, err = f.advanced.EditRelease(ctx, admin, other, &AdvancedEdit{
		Step2: &AdvancedStep2Patch{Tracks: []model.AdvancedTrack{advancedTrack("t-3", "Reprise")}},
	})
	require.NoError(t, err)

	third := f.readyAdvanced(t, "single", false)
	_, err = f.advanced.ProvideISRC(ctx, admin, third, "t-1", isrc)
	require.NoError(t, err)
}

func TestDeletePermanentlyReleasesCodes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first := f.readyAdvanced(t, "single", true)
	_, err := f.advanced.ProvideUPC(ctx, admin, first, "012345678905")
	require.NoError(t, err)

	require.NoError(t, f.advanced.DeletePermanently(ctx, admin, first))
	_, err = f.advanced.AdminGet(ctx, admin, first)
	assert.True(t, IsKind(err, NotFound))

	err = f.advanced.DeletePermanently(ctx, admin, first)
	assert.True(t, IsKind(err, NotFound))

	second := f.readyAdvanced(t, "single", true)
	_, err = f.advanced.ProvideUPC(ctx, admin, second, "012345678905")
	require.NoError(t, err)
}

func TestAudioFootprintingUpsert(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.readyAdvanced(t, "single", false)

	_, err := f.advanced.SaveAudioFootprinting(ctx, admin, id, model.FootprintEntry{TrackID: "t-1", MatchStatus: "unknown"})
	assert.True(t, IsKind(err, ValidationError))

	_, err = f.advanced.SaveAudioFootprinting(ctx, admin, id, model.FootprintEntry{TrackID: "t-1", MatchStatus: "clean", Confidence: 101})
	assert.True(t, IsKind(err, ValidationError))

	_, err = f.advanced.SaveAudioFootprinting(ctx, admin, id, model.FootprintEntry{TrackID: "nope", MatchStatus: "clean"})
	assert.True(t, IsKind(err, NotFound))

	view, err := f.advanced.SaveAudioFootprinting(ctx, admin, id, model.FootprintEntry{
		TrackID:     "t-1",
		MatchStatus: "matched",
		Confidence:  87.5,
	})
	require.NoError(t, err)
	require.Len(t, view.Release.AudioFootprinting, 1)
	firstEntry := view.Release.AudioFootprinting[0].EntryID
	assert.NotEmpty(t, firstEntry)
	assert.Equal(t, adminID, view.Release.AudioFootprinting[0].CheckedBy)

	view, err = f.advanced.SaveAudioFootprinting(ctx, admin, id, model.FootprintEntry{
		TrackID:     "t-1",
		MatchStatus: "clean",
	})
	require.NoError(t, err)
	require.Len(t, view.Release.AudioFootprinting, 1)
	assert.Equal(t, "clean", view.Release.AudioFootprinting[0].MatchStatus)
	assert.NotEqual(t, firstEntry, view.Release.AudioFootprinting[0].EntryID)

	stored, err := f.advDB.GetByReleaseID(ctx, id)
	require.NoError(t, err)
	require.Len(t, stored.AudioFootprinting, 1)
}

func TestCreateForUser(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.basic.CreateForUser(ctx, Actor{UserID: ownerID, Role: model.RoleUser}, otherID, "single", nil)
	assert.True(t, IsKind(err, Forbidden))

	// 代建不检查订阅，也不要求内容完整
	view, err := f.basic.CreateForUser(ctx, admin, otherID, "album", &BasicEdit{Step1: basicStep1()})
	require.NoError(t, err)
	r := view.Release
	assert.Equal(t, otherID, r.UserID)
	assert.Equal(t, model.StatusSubmitted, r.ReleaseStatus)
	assert.Equal(t, 3, r.CompletedSteps)
	assert.Equal(t, model.StepCompleted, r.CurrentStep)
	assert.NotNil(t, r.SubmittedAt)
	assert.Equal(t, "Night Drive", r.Step1.ReleaseInfo.ReleaseName)
	assert.Equal(t, 0, f.subs.calls)

	page, err := f.basic.List(ctx, otherID, ListOptions{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), page.Total)

	// 直接进入审核流程
	_, err = f.basic.ApproveForReview(ctx, admin, r.ReleaseID, "")
	require.NoError(t, err)
}

func TestEditReleaseIgnoresStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.liveBasic(t)

	view, err := f.basic.EditRelease(ctx, admin, id, &BasicEdit{
		Step1: &BasicStep1Patch{ReleaseInfo: &BasicReleaseInfoPatch{ReleaseName: strPtr("Night Drive (Deluxe)")}},
	})
	require.NoError(t, err)
	assert.Equal(t, model.StatusLive, view.Release.ReleaseStatus)
	assert.Equal(t, "Night Drive (Deluxe)", view.Release.Step1.ReleaseInfo.ReleaseName)

	_, err = f.basic.EditRelease(ctx, admin, id, &BasicEdit{})
	assert.True(t, IsKind(err, ValidationError))
}

func TestAdvancedEditIsAtomic(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.readyAdvanced(t, "single", false)

	_, err := f.advanced.EditRelease(ctx, admin, id, &AdvancedEdit{
		Step1: &AdvancedStep1Patch{ReleaseInfo: &AdvancedReleaseInfoPatch{ReleaseName: strPtr("Changed")}},
		Step2: &AdvancedStep2Patch{Tracks: []model.AdvancedTrack{advancedTrack("a", "A"), advancedTrack("b", "B")}},
	})
	assert.True(t, IsKind(err, PreconditionFailed))

	stored, err := f.advDB.GetByReleaseID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Tides", stored.Step1.ReleaseInfo.ReleaseName)
	assert.Len(t, stored.Step2.Tracks, 1)
}

func TestEditApplyStopsAtFailingStep(t *testing.T) {
	r := &model.AdvancedRelease{ReleaseType: model.ReleaseTypeAlbum}
	r.Step1.ReleaseInfo.ReleaseName = "Tides"

	// 跳过 Validate 直接合并，坏编码仍然要报错
	err := (&AdvancedEdit{
		Step1: &AdvancedStep1Patch{ReleaseInfo: &AdvancedReleaseInfoPatch{ReleaseName: strPtr("Changed"), UPC: strPtr("12ab")}},
	}).Apply(r)
	assert.True(t, IsKind(err, ValidationError))
	assert.Equal(t, "Tides", r.Step1.ReleaseInfo.ReleaseName)
	assert.Empty(t, r.Step1.ReleaseInfo.UPC)

	bad := advancedTrack("t-1", "Tide")
	bad.ISRC = "not-an-isrc"
	err = (&AdvancedEdit{Step2: &AdvancedStep2Patch{Tracks: []model.AdvancedTrack{bad}}}).Apply(r)
	assert.True(t, IsKind(err, ValidationError))
	assert.Empty(t, r.Step2.Tracks)

	err = (&AdvancedEdit{
		Step1: &AdvancedStep1Patch{ReleaseInfo: &AdvancedReleaseInfoPatch{UPC: strPtr(" 0123 4567 8905 ")}},
	}).Apply(r)
	require.NoError(t, err)
	assert.Equal(t, "012345678905", r.Step1.ReleaseInfo.UPC)
}

func TestAdminGetSeesOtherUsersAndInactive(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.readyBasic(t)
	require.NoError(t, f.basic.Delete(ctx, ownerID, id))

	view, err := f.basic.AdminGet(ctx, admin, id)
	require.NoError(t, err)
	assert.Equal(t, ownerID, view.Release.UserID)
	assert.False(t, view.Release.IsActive)

	_, err = f.basic.AdminGet(ctx, Actor{UserID: otherID}, id)
	assert.True(t, IsKind(err, Forbidden))
}

func TestNotificationsGoToOwner(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.readyBasic(t)
	_, err := f.basic.Submit(ctx, ownerID, id)
	require.NoError(t, err)
	_, err = f.basic.Reject(ctx, admin, id, "missing artwork credit", "")
	require.NoError(t, err)

	f.sink.mu.Lock()
	defer f.sink.mu.Unlock()
	require.Len(t, f.sink.events, 2)
	last := f.sink.events[1]
	assert.Equal(t, ownerID, last.UserID)
	assert.Equal(t, id, last.ReleaseID)
	assert.Equal(t, model.SeverityError, last.Severity)
	assert.Contains(t, last.Message, "missing artwork credit")
}
