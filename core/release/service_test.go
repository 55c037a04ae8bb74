package release

import (
	"context"
	"testing"

	"Tunedrop/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBasicReleaseHappyPath(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	view, err := f.basic.Create(ctx, ownerID, "single")
	require.NoError(t, err)
	id := view.Release.ReleaseID
	assert.Regexp(t, `^BRS-\d+$`, id)
	assert.Equal(t, model.StatusDraft, view.Release.ReleaseStatus)
	assert.Equal(t, model.StepOne, view.Release.CurrentStep)
	assert.Equal(t, 0, view.CompletionPercentage)
	require.NotNil(t, view.NextStep)
	assert.Equal(t, 1, view.NextStep.StepNumber)

	view, err = f.basic.UpdateStep(ctx, ownerID, id, basicStep1())
	require.NoError(t, err)
	assert.True(t, view.Release.Step1.IsCompleted)
	assert.NotNil(t, view.Release.Step1.CompletedAt)
	assert.Equal(t, model.StepTwo, view.Release.CurrentStep)
	assert.Equal(t, 33, view.CompletionPercentage)

	view, err = f.basic.UpdateStep(ctx, ownerID, id, basicStep2("intro"))
	require.NoError(t, err)
	assert.True(t, view.Release.Step2.IsCompleted)
	assert.NotEmpty(t, view.Release.Step2.Tracks[0].TrackID)
	assert.Equal(t, 67, view.CompletionPercentage)

	view, err = f.basic.UpdateStep(ctx, ownerID, id, basicStep3())
	require.NoError(t, err)
	assert.True(t, view.Release.Step3.IsCompleted)
	assert.True(t, view.IsReadyForSubmission)
	assert.Equal(t, 100, view.CompletionPercentage)
	assert.Equal(t, model.StepCompleted, view.Release.CurrentStep)
	assert.Equal(t, 3, view.Release.CompletedSteps)

	view, err = f.basic.Submit(ctx, ownerID, id)
	require.NoError(t, err)
	assert.Equal(t, model.StatusSubmitted, view.Release.ReleaseStatus)
	assert.NotNil(t, view.Release.SubmittedAt)
	assert.Nil(t, view.NextStep)

	stored, err := f.basicDB.GetByReleaseID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, model.StatusSubmitted, stored.ReleaseStatus)
	assert.Equal(t, "Night Drive", stored.Step1.ReleaseInfo.ReleaseName)
	assert.Contains(t, f.sink.titles(), "Release submitted")
}

func TestAdminPipelineSetsTimestamps(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.readyBasic(t)
	_, err := f.basic.Submit(ctx, ownerID, id)
	require.NoError(t, err)

	view, err := f.basic.ApproveForReview(ctx, admin, id, "looks fine")
	require.NoError(t, err)
	assert.Equal(t, model.StatusUnderReview, view.Release.ReleaseStatus)
	require.NotNil(t, view.Release.AdminReview.ReviewedBy)
	assert.Equal(t, adminID, *view.Release.AdminReview.ReviewedBy)
	assert.Equal(t, "looks fine", view.Release.AdminReview.AdminNotes)

	view, err = f.basic.StartProcessing(ctx, admin, id, "")
	require.NoError(t, err)
	assert.Equal(t, model.StatusProcessing, view.Release.ReleaseStatus)

	view, err = f.basic.Publish(ctx, admin, id)
	require.NoError(t, err)
	assert.Equal(t, model.StatusPublished, view.Release.ReleaseStatus)
	assert.NotNil(t, view.Release.PublishedAt)
	assert.Nil(t, view.Release.LiveAt)

	view, err = f.basic.GoLive(ctx, admin, id)
	require.NoError(t, err)
	assert.Equal(t, model.StatusLive, view.Release.ReleaseStatus)
	assert.NotNil(t, view.Release.LiveAt)

	// 已经 LIVE，不能再发布
	_, err = f.basic.Publish(ctx, admin, id)
	assert.True(t, IsKind(err, InvalidState))
}

func TestAdminOperationsRequireAdminRole(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.readyBasic(t)
	_, err := f.basic.Submit(ctx, ownerID, id)
	require.NoError(t, err)

	_, err = f.basic.ApproveForReview(ctx, Actor{UserID: ownerID, Role: model.RoleUser}, id, "")
	assert.True(t, IsKind(err, Forbidden))

	stored, err := f.basicDB.GetByReleaseID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, model.StatusSubmitted, stored.ReleaseStatus)
}

func TestStepGating(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	view, err := f.basic.Create(ctx, ownerID, "album")
	require.NoError(t, err)
	id := view.Release.ReleaseID

	_, err = f.basic.UpdateStep(ctx, ownerID, id, basicStep2("a"))
	assert.True(t, IsKind(err, PreconditionFailed))

	_, err = f.basic.UpdateStep(ctx, ownerID, id, basicStep3())
	assert.True(t, IsKind(err, PreconditionFailed))

	stored, err := f.basicDB.GetByReleaseID(ctx, id)
	require.NoError(t, err)
	assert.Empty(t, stored.Step2.Tracks)
	assert.False(t, stored.Step2.IsCompleted)
	assert.Equal(t, 0, stored.CompletedSteps)
}

func TestIncompleteStepIsSavedAsDraft(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	view, err := f.basic.Create(ctx, ownerID, "single")
	require.NoError(t, err)
	id := view.Release.ReleaseID

	view, err = f.basic.UpdateStep(ctx, ownerID, id, &BasicStep1Patch{
		ReleaseInfo: &BasicReleaseInfoPatch{ReleaseName: strPtr("Half done")},
	})
	require.NoError(t, err)
	assert.False(t, view.Release.Step1.IsCompleted)
	assert.Equal(t, "Half done", view.Release.Step1.ReleaseInfo.ReleaseName)

	// 只补封面和流派，名称保留
	view, err = f.basic.UpdateStep(ctx, ownerID, id, &BasicStep1Patch{
		CoverArt:    &CoverArtPatch{ImageURL: strPtr("https://cdn.example.com/c.png")},
		ReleaseInfo: &BasicReleaseInfoPatch{Genre: strPtr("Jazz")},
	})
	require.NoError(t, err)
	assert.True(t, view.Release.Step1.IsCompleted)
	assert.Equal(t, "Half done", view.Release.Step1.ReleaseInfo.ReleaseName)
}

func TestCompletionIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	view, err := f.basic.Create(ctx, ownerID, "single")
	require.NoError(t, err)
	id := view.Release.ReleaseID

	first, err := f.basic.UpdateStep(ctx, ownerID, id, basicStep1())
	require.NoError(t, err)
	second, err := f.basic.UpdateStep(ctx, ownerID, id, basicStep1())
	require.NoError(t, err)

	assert.Equal(t, 1, second.Release.CompletedSteps)
	assert.True(t, first.Release.Step1.CompletedAt.Equal(*second.Release.Step1.CompletedAt))
}

func TestCompletedStepCannotBeBroken(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.readyBasic(t)

	_, err := f.basic.UpdateStep(ctx, ownerID, id, &BasicStep1Patch{
		ReleaseInfo: &BasicReleaseInfoPatch{Genre: strPtr("")},
	})
	assert.True(t, IsKind(err, PreconditionFailed))

	stored, err := f.basicDB.GetByReleaseID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Electronic", stored.Step1.ReleaseInfo.Genre)
	assert.Equal(t, 3, stored.CompletedSteps)
}

func TestSubmitGate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	view, err := f.basic.Create(ctx, ownerID, "single")
	require.NoError(t, err)
	id := view.Release.ReleaseID
	_, err = f.basic.UpdateStep(ctx, ownerID, id, basicStep1())
	require.NoError(t, err)

	_, err = f.basic.Submit(ctx, ownerID, id)
	assert.True(t, IsKind(err, PreconditionFailed))

	ready := f.readyBasic(t)
	_, err = f.basic.Submit(ctx, ownerID, ready)
	require.NoError(t, err)
	_, err = f.basic.Submit(ctx, ownerID, ready)
	assert.True(t, IsKind(err, InvalidState))
}

func TestBasicSubscriptionRequired(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.basic.Create(ctx, otherID, "single")
	assert.True(t, IsKind(err, Forbidden))

	id := f.readyBasic(t)
	f.subs.set(ownerID, false)
	_, err = f.basic.Submit(ctx, ownerID, id)
	assert.True(t, IsKind(err, Forbidden))

	// 续费后立即生效，不缓存
	f.subs.set(ownerID, true)
	view, err := f.basic.Submit(ctx, ownerID, id)
	require.NoError(t, err)
	assert.Equal(t, model.StatusSubmitted, view.Release.ReleaseStatus)
}

func TestAdvancedDoesNotCheckSubscription(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	view, err := f.advanced.Create(ctx, otherID, "ep")
	require.NoError(t, err)
	assert.Regexp(t, `^ARE-\d+$`, view.Release.ReleaseID)
	assert.Equal(t, 0, f.subs.calls)
}

func TestOwnerScoping(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.readyBasic(t)

	_, err := f.basic.Get(ctx, otherID, id, false)
	assert.True(t, IsKind(err, NotFound))

	_, err = f.basic.UpdateStep(ctx, otherID, id, basicStep1())
	assert.True(t, IsKind(err, NotFound))

	_, err = f.basic.Get(ctx, ownerID, "BRS-999999", false)
	assert.True(t, IsKind(err, NotFound))
}

func TestInvalidReleaseType(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.basic.Create(ctx, ownerID, "ep")
	assert.True(t, IsKind(err, ValidationError))

	_, err = f.advanced.Create(ctx, ownerID, "mixtape")
	assert.True(t, IsKind(err, ValidationError))
}

func TestSoftDelete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.readyBasic(t)

	require.NoError(t, f.basic.Delete(ctx, ownerID, id))

	_, err := f.basic.Get(ctx, ownerID, id, false)
	assert.True(t, IsKind(err, NotFound))

	view, err := f.basic.Get(ctx, ownerID, id, true)
	require.NoError(t, err)
	assert.False(t, view.Release.IsActive)

	page, err := f.basic.List(ctx, ownerID, ListOptions{})
	require.NoError(t, err)
	assert.Equal(t, int64(0), page.Total)

	page, err = f.basic.List(ctx, ownerID, ListOptions{IncludeInactive: true})
	require.NoError(t, err)
	assert.Equal(t, int64(1), page.Total)

	// 软删除后 owner 不能再改
	_, err = f.basic.UpdateStep(ctx, ownerID, id, basicStep1())
	assert.True(t, IsKind(err, NotFound))
}

func TestLiveReleaseCannotBeDeleted(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.liveBasic(t)

	err := f.basic.Delete(ctx, ownerID, id)
	assert.True(t, IsKind(err, InvalidState))

	stored, err := f.basicDB.GetByReleaseID(ctx, id)
	require.NoError(t, err)
	assert.True(t, stored.IsActive)
}

func TestTakedownScenario(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.liveBasic(t)

	_, err := f.basic.RequestTakedown(ctx, ownerID, id, "")
	assert.True(t, IsKind(err, ValidationError))

	view, err := f.basic.RequestTakedown(ctx, ownerID, id, "duplicate")
	require.NoError(t, err)
	assert.Equal(t, model.StatusTakeDown, view.Release.ReleaseStatus)
	assert.Equal(t, "duplicate", view.Release.TakeDown.Reason)
	assert.NotNil(t, view.Release.TakeDown.RequestedAt)

	view, err = f.basic.ProcessTakeDown(ctx, admin, id, "")
	require.NoError(t, err)
	assert.Equal(t, model.StatusTakenDown, view.Release.ReleaseStatus)
	assert.NotNil(t, view.Release.TakeDown.ProcessedAt)
	require.NotNil(t, view.Release.TakeDown.ProcessedBy)
	assert.Equal(t, adminID, *view.Release.TakeDown.ProcessedBy)
	assert.True(t, view.Release.IsActive)

	view, err = f.basic.RevertTakeDown(ctx, admin, id)
	require.NoError(t, err)
	assert.Equal(t, model.StatusLive, view.Release.ReleaseStatus)
	assert.Equal(t, model.TakeDown{}, view.Release.TakeDown)
}

func TestRejectTakeDownReturnsToLive(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.liveBasic(t)

	_, err := f.basic.RequestTakedown(ctx, ownerID, id, "changed my mind")
	require.NoError(t, err)

	view, err := f.basic.RejectTakeDown(ctx, admin, id)
	require.NoError(t, err)
	assert.Equal(t, model.StatusLive, view.Release.ReleaseStatus)
	assert.Nil(t, view.Release.TakeDown.RequestedAt)
	assert.Empty(t, view.Release.TakeDown.Reason)

	// 撤销下架只能从 TAKEN_DOWN 开始
	_, err = f.basic.RevertTakeDown(ctx, admin, id)
	assert.True(t, IsKind(err, InvalidState))
}

func TestAdvancedTakedownDeactivates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.liveAdvanced(t)

	// 管理员可以直接下架 LIVE 发行
	view, err := f.advanced.ProcessTakeDown(ctx, admin, id, "rights dispute")
	require.NoError(t, err)
	assert.Equal(t, model.StatusTakenDown, view.Release.ReleaseStatus)
	assert.False(t, view.Release.IsActive)
	assert.Equal(t, "rights dispute", view.Release.TakeDown.Reason)

	_, err = f.advanced.Get(ctx, ownerID, id, false)
	assert.True(t, IsKind(err, NotFound))

	view, err = f.advanced.RevertTakeDown(ctx, admin, id)
	require.NoError(t, err)
	assert.Equal(t, model.StatusLive, view.Release.ReleaseStatus)
	assert.True(t, view.Release.IsActive)
}

func TestRejectAndResubmit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.readyBasic(t)
	_, err := f.basic.Submit(ctx, ownerID, id)
	require.NoError(t, err)

	_, err = f.basic.UpdateStep(ctx, ownerID, id, basicStep2("new"))
	assert.True(t, IsKind(err, InvalidState))

	_, err = f.basic.Reject(ctx, admin, id, "", "")
	assert.True(t, IsKind(err, ValidationError))

	view, err := f.basic.Reject(ctx, admin, id, "bad audio", "")
	require.NoError(t, err)
	assert.Equal(t, model.StatusRejected, view.Release.ReleaseStatus)
	assert.Equal(t, "bad audio", view.Release.AdminReview.RejectionReason)
	assert.NotNil(t, view.Release.AdminReview.ReviewedAt)

	view, err = f.basic.UpdateStep(ctx, ownerID, id, basicStep2("fixed-mix"))
	require.NoError(t, err)
	assert.Equal(t, "fixed-mix", view.Release.Step2.Tracks[0].TrackName)

	view, err = f.basic.Submit(ctx, ownerID, id)
	require.NoError(t, err)
	assert.Equal(t, model.StatusSubmitted, view.Release.ReleaseStatus)
}

func TestRejectOnlyFromReviewStates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.readyBasic(t)

	_, err := f.basic.Reject(ctx, admin, id, "nope", "")
	assert.True(t, IsKind(err, InvalidState))
}

func TestUpdateRequestApproved(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.liveBasic(t)

	_, err := f.basic.RequestUpdate(ctx, ownerID, id, "typo", "")
	assert.True(t, IsKind(err, ValidationError))

	view, err := f.basic.RequestUpdate(ctx, ownerID, id, "typo", "fix track title")
	require.NoError(t, err)
	assert.Equal(t, model.StatusUpdateRequest, view.Release.ReleaseStatus)
	assert.Equal(t, model.StatusLive, view.Release.UpdateRequest.PreviousStatus)

	view, err = f.basic.ApproveEditRequest(ctx, admin, id)
	require.NoError(t, err)
	assert.Equal(t, model.StatusDraft, view.Release.ReleaseStatus)
	assert.Equal(t, model.UpdateRequest{}, view.Release.UpdateRequest)

	// 重新进入 DRAFT 后可以编辑
	_, err = f.basic.UpdateStep(ctx, ownerID, id, basicStep2("retitled"))
	require.NoError(t, err)
}

func TestUpdateRequestRejectedRestoresPreviousStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.readyBasic(t)
	_, err := f.basic.Submit(ctx, ownerID, id)
	require.NoError(t, err)
	_, err = f.basic.ApproveForReview(ctx, admin, id, "")
	require.NoError(t, err)
	_, err = f.basic.StartProcessing(ctx, admin, id, "")
	require.NoError(t, err)
	_, err = f.basic.Publish(ctx, admin, id)
	require.NoError(t, err)

	_, err = f.basic.RequestUpdate(ctx, ownerID, id, "cover", "new cover art")
	require.NoError(t, err)

	view, err := f.basic.RejectEditRequest(ctx, admin, id, "too late")
	require.NoError(t, err)
	assert.Equal(t, model.StatusPublished, view.Release.ReleaseStatus)
	assert.Empty(t, view.Release.UpdateRequest.RequestReason)
}

func TestRequestUpdateNeedsPublishedOrLive(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.readyBasic(t)

	_, err := f.basic.RequestUpdate(ctx, ownerID, id, "why", "what")
	assert.True(t, IsKind(err, InvalidState))
	_, err = f.basic.RequestTakedown(ctx, ownerID, id, "why")
	assert.True(t, IsKind(err, InvalidState))
}

func TestListFiltersByOwnerAndStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	submitted := f.readyBasic(t)
	_, err := f.basic.Submit(ctx, ownerID, submitted)
	require.NoError(t, err)
	f.readyBasic(t)

	page, err := f.basic.List(ctx, ownerID, ListOptions{})
	require.NoError(t, err)
	assert.Equal(t, int64(2), page.Total)

	page, err = f.basic.List(ctx, ownerID, ListOptions{Status: model.StatusSubmitted})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, submitted, page.Items[0].Release.ReleaseID)

	page, err = f.basic.List(ctx, otherID, ListOptions{})
	require.NoError(t, err)
	assert.Empty(t, page.Items)

	_, err = f.basic.List(ctx, ownerID, ListOptions{Status: "BOGUS"})
	assert.True(t, IsKind(err, ValidationError))

	page, err = f.basic.AdminList(ctx, admin, AdminListOptions{Status: model.StatusSubmitted})
	require.NoError(t, err)
	assert.Equal(t, int64(1), page.Total)
}

func TestReleaseIDsAreUniqueAndSequential(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	a, err := f.basic.Create(ctx, ownerID, "single")
	require.NoError(t, err)
	b, err := f.basic.Create(ctx, ownerID, "single")
	require.NoError(t, err)
	c, err := f.basic.Create(ctx, ownerID, "album")
	require.NoError(t, err)

	assert.Equal(t, "BRS-1", a.Release.ReleaseID)
	assert.Equal(t, "BRS-2", b.Release.ReleaseID)
	assert.Equal(t, "BRA-1", c.Release.ReleaseID)
}
