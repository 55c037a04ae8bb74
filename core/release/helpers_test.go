package release

import (
	"context"
	"sync"
	"testing"
	"time"

	"Tunedrop/core/idgen"
	"Tunedrop/core/notify"
	"Tunedrop/db/dbtest"
	"Tunedrop/model"
	"Tunedrop/repository"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const (
	ownerID int64 = 7
	otherID int64 = 8
	adminID int64 = 1
)

var admin = Actor{UserID: adminID, Role: model.RoleAdmin}

// fakeSubscriptions 按用户返回订阅状态
type fakeSubscriptions struct {
	mu     sync.Mutex
	active map[int64]bool
	calls  int
}

func (f *fakeSubscriptions) HasActiveSubscription(_ context.Context, userID int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.active[userID], nil
}

func (f *fakeSubscriptions) set(userID int64, active bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.active[userID] = active
}

// recordingSink 记录发出的通知
type recordingSink struct {
	mu     sync.Mutex
	events []sentEvent
}

type sentEvent struct {
	UserID int64
	notify.Event
}

func (r *recordingSink) Notify(_ context.Context, userID int64, event notify.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, sentEvent{UserID: userID, Event: event})
}

func (r *recordingSink) titles() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Title)
	}
	return out
}

type fixture struct {
	db       *gorm.DB
	subs     *fakeSubscriptions
	sink     *recordingSink
	basic    *Service[*model.BasicRelease]
	advanced *AdvancedService
	basicDB  repository.ReleaseRepository[*model.BasicRelease]
	advDB    repository.ReleaseRepository[*model.AdvancedRelease]
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gdb := dbtest.New(t)

	subs := &fakeSubscriptions{active: map[int64]bool{ownerID: true}}
	sink := &recordingSink{}
	ids := idgen.New(repository.NewGormCounterRepository(gdb))

	basicRepo := repository.NewBasicReleaseRepository(gdb)
	advRepo := repository.NewAdvancedReleaseRepository(gdb)

	clock := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	now := func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}

	basic := NewService(BasicKind(), basicRepo, ids, subs, sink)
	basic.SetClock(now)
	adv := NewService(AdvancedKind(), advRepo, ids, subs, sink)
	adv.SetClock(now)

	return &fixture{
		db:       gdb,
		subs:     subs,
		sink:     sink,
		basic:    basic,
		advanced: NewAdvancedService(adv, repository.NewGormCodeRepository(gdb)),
		basicDB:  basicRepo,
		advDB:    advRepo,
	}
}

func strPtr(s string) *string { return &s }
func boolPtr(b bool) *bool    { return &b }

func strsPtr(s ...string) *[]string { return &s }

func timePtr(t time.Time) *time.Time { return &t }

func basicStep1() *BasicStep1Patch {
	return &BasicStep1Patch{
		CoverArt: &CoverArtPatch{ImageURL: strPtr("https://cdn.example.com/cover.jpg")},
		ReleaseInfo: &BasicReleaseInfoPatch{
			ReleaseName: strPtr("Night Drive"),
			Genre:       strPtr("Electronic"),
		},
	}
}

func basicTrack(name string) model.BasicTrack {
	return model.BasicTrack{
		TrackName:  name,
		Genres:     []string{"Electronic"},
		AudioFiles: []model.AudioFile{{Format: "wav", URL: "https://cdn.example.com/" + name + ".wav"}},
	}
}

func basicStep2(names ...string) *BasicStep2Patch {
	tracks := make([]model.BasicTrack, 0, len(names))
	for _, n := range names {
		tracks = append(tracks, basicTrack(n))
	}
	return &BasicStep2Patch{Tracks: tracks}
}

func basicStep3() *BasicStep3Patch {
	return &BasicStep3Patch{
		ReleaseDate:        timePtr(time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)),
		TerritorialRights:  boolPtr(true),
		PartnerSelection:   boolPtr(true),
		Partners:           strsPtr("spotify", "apple"),
		CopyrightOwnership: boolPtr(true),
	}
}

func advancedStep1(needsUPC bool) *AdvancedStep1Patch {
	return &AdvancedStep1Patch{
		CoverArt: &CoverArtPatch{ImageURL: strPtr("https://cdn.example.com/adv.jpg")},
		ReleaseInfo: &AdvancedReleaseInfoPatch{
			ReleaseName:    strPtr("Tides"),
			PrimaryArtists: strsPtr("Mara"),
			PrimaryGenre:   strPtr("Pop"),
			LabelID:        strPtr("LBL-1"),
			NeedsUPC:       boolPtr(needsUPC),
		},
	}
}

func advancedTrack(id, name string) model.AdvancedTrack {
	return model.AdvancedTrack{
		TrackID:        id,
		TrackName:      name,
		PrimaryArtists: []string{"Mara"},
		Genres:         []string{"Pop"},
		NeedsISRC:      true,
	}
}

func advancedStep3() *AdvancedStep3Patch {
	return &AdvancedStep3Patch{
		TerritorialRights:    &model.TerritorialRights{Mode: "worldwide"},
		DistributionPartners: strsPtr("spotify"),
	}
}

// readyBasic 建一个三步都完成的基础单曲
func (f *fixture) readyBasic(t *testing.T) string {
	t.Helper()
	ctx := context.Background()

	view, err := f.basic.Create(ctx, ownerID, "single")
	require.NoError(t, err)
	id := view.Release.ReleaseID

	_, err = f.basic.UpdateStep(ctx, ownerID, id, basicStep1())
	require.NoError(t, err)
	_, err = f.basic.UpdateStep(ctx, ownerID, id, basicStep2("intro"))
	require.NoError(t, err)
	_, err = f.basic.UpdateStep(ctx, ownerID, id, basicStep3())
	require.NoError(t, err)
	return id
}

// liveBasic 走完提交和审核流程，返回 LIVE 的基础发行
func (f *fixture) liveBasic(t *testing.T) string {
	t.Helper()
	ctx := context.Background()

	id := f.readyBasic(t)
	_, err := f.basic.Submit(ctx, ownerID, id)
	require.NoError(t, err)
	drive(t, f.basic, id)
	return id
}

func (f *fixture) readyAdvanced(t *testing.T, releaseType string, needsUPC bool) string {
	t.Helper()
	ctx := context.Background()

	view, err := f.advanced.Create(ctx, ownerID, releaseType)
	require.NoError(t, err)
	id := view.Release.ReleaseID

	_, err = f.advanced.UpdateStep(ctx, ownerID, id, advancedStep1(needsUPC))
	require.NoError(t, err)
	_, err = f.advanced.UpdateStep(ctx, ownerID, id, &AdvancedStep2Patch{
		Tracks: []model.AdvancedTrack{advancedTrack("t-1", "Tide")},
	})
	require.NoError(t, err)
	_, err = f.advanced.UpdateStep(ctx, ownerID, id, advancedStep3())
	require.NoError(t, err)
	return id
}

func (f *fixture) liveAdvanced(t *testing.T) string {
	t.Helper()
	ctx := context.Background()

	id := f.readyAdvanced(t, "single", false)
	_, err := f.advanced.Submit(ctx, ownerID, id)
	require.NoError(t, err)
	drive(t, f.advanced.Service, id)
	return id
}

// drive SUBMITTED -> LIVE
func drive[R model.Release](t *testing.T, svc *Service[R], id string) {
	t.Helper()
	ctx := context.Background()

	_, err := svc.ApproveForReview(ctx, admin, id, "")
	require.NoError(t, err)
	_, err = svc.StartProcessing(ctx, admin, id, "")
	require.NoError(t, err)
	_, err = svc.Publish(ctx, admin, id)
	require.NoError(t, err)
	_, err = svc.GoLive(ctx, admin, id)
	require.NoError(t, err)
}
