package release

import (
	"context"
	"errors"
	"fmt"
	"time"

	"Tunedrop/logger"
	"Tunedrop/model"
	"Tunedrop/repository"

	"github.com/google/uuid"
)

// Actor 发起操作的用户
type Actor struct {
	UserID int64
	Role   string
}

// IsAdmin 是否管理员
func (a Actor) IsAdmin() bool {
	return a.Role == model.RoleAdmin
}

func requireAdmin(actor Actor) error {
	if !actor.IsAdmin() {
		return forbidden("admin role required")
	}
	return nil
}

// AdminListOptions 管理员列表查询参数
type AdminListOptions struct {
	UserID          *int64
	Status          model.ReleaseStatus
	IncludeInactive bool
	Limit           int
	Offset          int
}

// 足迹比对结果
var footprintStatuses = map[string]bool{
	"clean":   true,
	"matched": true,
	"partial": true,
}

// AdminList 列出所有用户的发行
func (s *Service[R]) AdminList(ctx context.Context, actor Actor, opts AdminListOptions) (*Page[R], error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	return s.list(ctx, repository.ReleaseFilter{
		UserID:          opts.UserID,
		Status:          opts.Status,
		IncludeInactive: opts.IncludeInactive,
		Limit:           opts.Limit,
		Offset:          opts.Offset,
	})
}

// AdminGet 读取任意发行（包括已软删除的）
func (s *Service[R]) AdminGet(ctx context.Context, actor Actor, releaseID string) (*View[R], error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	r, err := s.loadAny(ctx, releaseID)
	if err != nil {
		return nil, err
	}
	return newView(s.kind, r), nil
}

// ApproveForReview SUBMITTED -> UNDER_REVIEW
func (s *Service[R]) ApproveForReview(ctx context.Context, actor Actor, releaseID, notes string) (*View[R], error) {
	r, err := s.adminTransition(ctx, actor, releaseID, ActionApproveForReview, func(r R, now time.Time) error {
		stampReview(r.Core(), actor.UserID, now, notes)
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.notifyOwner(ctx, r.Core(), s.kind.Label+" under review",
		fmt.Sprintf("%s is now being reviewed by our team.", releaseID), model.SeverityInfo)
	return newView(s.kind, r), nil
}

// StartProcessing UNDER_REVIEW -> PROCESSING
func (s *Service[R]) StartProcessing(ctx context.Context, actor Actor, releaseID, notes string) (*View[R], error) {
	r, err := s.adminTransition(ctx, actor, releaseID, ActionStartProcessing, func(r R, now time.Time) error {
		stampReview(r.Core(), actor.UserID, now, notes)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return newView(s.kind, r), nil
}

// Publish PROCESSING -> PUBLISHED
func (s *Service[R]) Publish(ctx context.Context, actor Actor, releaseID string) (*View[R], error) {
	r, err := s.adminTransition(ctx, actor, releaseID, ActionPublish, func(r R, now time.Time) error {
		r.Core().PublishedAt = &now
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.notifyOwner(ctx, r.Core(), s.kind.Label+" published",
		fmt.Sprintf("%s has been published to stores.", releaseID), model.SeveritySuccess)
	return newView(s.kind, r), nil
}

// GoLive PUBLISHED -> LIVE
func (s *Service[R]) GoLive(ctx context.Context, actor Actor, releaseID string) (*View[R], error) {
	r, err := s.adminTransition(ctx, actor, releaseID, ActionGoLive, func(r R, now time.Time) error {
		r.Core().LiveAt = &now
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.notifyOwner(ctx, r.Core(), s.kind.Label+" is live",
		fmt.Sprintf("%s is now live.", releaseID), model.SeveritySuccess)
	return newView(s.kind, r), nil
}

// Reject SUBMITTED/UNDER_REVIEW/PROCESSING -> REJECTED
func (s *Service[R]) Reject(ctx context.Context, actor Actor, releaseID, reason, notes string) (*View[R], error) {
	if blank(reason) {
		return nil, validationError("rejection reason is required")
	}
	r, err := s.adminTransition(ctx, actor, releaseID, ActionReject, func(r R, now time.Time) error {
		core := r.Core()
		stampReview(core, actor.UserID, now, notes)
		core.AdminReview.RejectionReason = reason
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.notifyOwner(ctx, r.Core(), s.kind.Label+" rejected",
		fmt.Sprintf("%s was rejected: %s", releaseID, reason), model.SeverityError)
	return newView(s.kind, r), nil
}

// ProcessTakeDown TAKE_DOWN/LIVE -> TAKEN_DOWN
func (s *Service[R]) ProcessTakeDown(ctx context.Context, actor Actor, releaseID, reason string) (*View[R], error) {
	r, err := s.adminTransition(ctx, actor, releaseID, ActionProcessTakeDown, func(r R, now time.Time) error {
		core := r.Core()
		// 管理员直接下架 LIVE 发行时没有用户申请记录
		if core.TakeDown.RequestedAt == nil {
			core.TakeDown.RequestedAt = &now
		}
		if blank(core.TakeDown.Reason) {
			core.TakeDown.Reason = reason
		}
		adminID := actor.UserID
		core.TakeDown.ProcessedAt = &now
		core.TakeDown.ProcessedBy = &adminID
		if s.kind.DeactivateOnTakeDown {
			core.IsActive = false
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.notifyOwner(ctx, r.Core(), s.kind.Label+" taken down",
		fmt.Sprintf("%s has been taken down from stores.", releaseID), model.SeverityWarning)
	return newView(s.kind, r), nil
}

// RejectTakeDown TAKE_DOWN -> LIVE
func (s *Service[R]) RejectTakeDown(ctx context.Context, actor Actor, releaseID string) (*View[R], error) {
	r, err := s.adminTransition(ctx, actor, releaseID, ActionRejectTakeDown, func(r R, now time.Time) error {
		r.Core().TakeDown = model.TakeDown{}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.notifyOwner(ctx, r.Core(), "Takedown request declined",
		fmt.Sprintf("The takedown request for %s was declined; the release stays live.", releaseID), model.SeverityInfo)
	return newView(s.kind, r), nil
}

// RevertTakeDown TAKEN_DOWN -> LIVE
func (s *Service[R]) RevertTakeDown(ctx context.Context, actor Actor, releaseID string) (*View[R], error) {
	r, err := s.adminTransition(ctx, actor, releaseID, ActionRevertTakeDown, func(r R, now time.Time) error {
		core := r.Core()
		core.TakeDown = model.TakeDown{}
		if s.kind.DeactivateOnTakeDown {
			core.IsActive = true
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.notifyOwner(ctx, r.Core(), s.kind.Label+" restored",
		fmt.Sprintf("%s is live again.", releaseID), model.SeveritySuccess)
	return newView(s.kind, r), nil
}

// ApproveEditRequest UPDATE_REQUEST -> DRAFT
func (s *Service[R]) ApproveEditRequest(ctx context.Context, actor Actor, releaseID string) (*View[R], error) {
	r, err := s.adminTransition(ctx, actor, releaseID, ActionApproveEditRequest, func(r R, now time.Time) error {
		core := r.Core()
		core.UpdateRequest = model.UpdateRequest{}
		stampReview(core, actor.UserID, now, "")
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.notifyOwner(ctx, r.Core(), "Edit request approved",
		fmt.Sprintf("%s is back in draft and can be edited.", releaseID), model.SeveritySuccess)
	return newView(s.kind, r), nil
}

// RejectEditRequest UPDATE_REQUEST -> 申请前的状态（LIVE 或 PUBLISHED）
func (s *Service[R]) RejectEditRequest(ctx context.Context, actor Actor, releaseID, reason string) (*View[R], error) {
	r, err := s.adminTransition(ctx, actor, releaseID, ActionRejectEditRequest, func(r R, now time.Time) error {
		core := r.Core()
		back := core.UpdateRequest.PreviousStatus
		if back != model.StatusPublished {
			back = model.StatusLive
		}
		core.ReleaseStatus = back
		core.UpdateRequest = model.UpdateRequest{}
		stampReview(core, actor.UserID, now, reason)
		return nil
	})
	if err != nil {
		return nil, err
	}
	message := fmt.Sprintf("The edit request for %s was declined.", releaseID)
	if !blank(reason) {
		message += " " + reason
	}
	s.notifyOwner(ctx, r.Core(), "Edit request declined", message, model.SeverityWarning)
	return newView(s.kind, r), nil
}

// EditRelease 管理员直接改写步骤内容，不受状态和步骤顺序限制，不改变完成标记
func (s *Service[R]) EditRelease(ctx context.Context, actor Actor, releaseID string, edit Patch[R]) (*View[R], error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	if err := edit.Validate(); err != nil {
		return nil, err
	}

	r, err := s.loadActive(ctx, releaseID)
	if err != nil {
		return nil, err
	}
	core := r.Core()
	if err := edit.Apply(r); err != nil {
		return nil, s.reject(core, err)
	}
	stampReview(core, actor.UserID, s.now(), "")

	if err := s.saveWithCodes(ctx, actor, r); err != nil {
		return nil, err
	}
	logger.Info("管理员修改发行",
		logger.String("releaseId", releaseID),
		logger.Int64("admin", actor.UserID))
	return newView(s.kind, r), nil
}

// SaveAudioFootprinting 写入一条指纹比对结果，同一曲目只保留最新一条
func (s *Service[R]) SaveAudioFootprinting(ctx context.Context, actor Actor, releaseID string, entry model.FootprintEntry) (*View[R], error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	if blank(entry.TrackID) {
		return nil, validationError("trackId is required")
	}
	if !footprintStatuses[entry.MatchStatus] {
		return nil, validationError("matchStatus must be one of clean, matched, partial")
	}
	if entry.Confidence < 0 || entry.Confidence > 100 {
		return nil, validationError("confidence must be between 0 and 100")
	}

	r, err := s.loadAny(ctx, releaseID)
	if err != nil {
		return nil, err
	}
	if !hasTrack(r, entry.TrackID) {
		return nil, notFound("track %s not found in release %s", entry.TrackID, releaseID)
	}

	core := r.Core()
	entry.EntryID = uuid.New().String()
	entry.CheckedBy = actor.UserID
	entry.CheckedAt = s.now()

	list := make(model.FootprintList, 0, len(core.AudioFootprinting)+1)
	for _, e := range core.AudioFootprinting {
		if e.TrackID != entry.TrackID {
			list = append(list, e)
		}
	}
	core.AudioFootprinting = append(list, entry)

	if err := s.persist(ctx, r); err != nil {
		return nil, err
	}
	logger.Info("音频指纹结果已保存",
		logger.String("releaseId", releaseID),
		logger.String("trackId", entry.TrackID),
		logger.String("matchStatus", entry.MatchStatus))
	return newView(s.kind, r), nil
}

// CreateForUser 管理员代用户建发行并直接进入 SUBMITTED，不校验步骤完成条件
func (s *Service[R]) CreateForUser(ctx context.Context, actor Actor, userID int64, releaseType string, content Patch[R]) (*View[R], error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	if userID <= 0 {
		return nil, validationError("userId is required")
	}
	if _, err := s.kind.New(releaseType); err != nil {
		return nil, err
	}
	if content != nil {
		if err := content.Validate(); err != nil {
			return nil, err
		}
	}

	// 编号冲突重试时先撤销上一次的编码登记
	undo := func() {}
	r, err := s.insert(ctx, userID, releaseType, func(r R) error {
		undo()
		undo = func() {}
		if content != nil {
			if err := content.Apply(r); err != nil {
				return err
			}
		}
		if s.codes != nil {
			u, err := s.codes.reserve(ctx, actor, r)
			if err != nil {
				return err
			}
			undo = u
		}
		for n := 1; n <= model.TotalSteps; n++ {
			if reason := s.kind.check(r, n); reason != nil {
				logger.Warn("代建发行未满足步骤条件",
					logger.String("releaseId", r.Core().ReleaseID),
					logger.Int("step", n),
					logger.ErrorField(reason))
			}
		}
		now := s.now()
		completeAll(r, now)
		core := r.Core()
		core.ReleaseStatus = model.StatusSubmitted
		core.SubmittedAt = &now
		stampReview(core, actor.UserID, now, "")
		return nil
	})
	if err != nil {
		undo()
		return nil, err
	}

	core := r.Core()
	s.logTransition(core, ActionSubmit, model.StatusDraft, actor.UserID)
	s.notifyOwner(ctx, core, s.kind.Label+" created for you",
		fmt.Sprintf("Our team created %s on your behalf and submitted it for review.", core.ReleaseID), model.SeverityInfo)
	return newView(s.kind, r), nil
}

// DeletePermanently 物理删除
func (s *Service[R]) DeletePermanently(ctx context.Context, actor Actor, releaseID string) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, releaseID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return notFound("release %s not found", releaseID)
		}
		return fmt.Errorf("failed to delete release %s: %w", releaseID, err)
	}
	logger.Info("发行已永久删除",
		logger.String("releaseId", releaseID),
		logger.Int64("admin", actor.UserID))
	return nil
}

// adminTransition 读取 -> 校验状态 -> 修改 -> 保存
func (s *Service[R]) adminTransition(ctx context.Context, actor Actor, releaseID string, action Action, mutate func(r R, now time.Time) error) (R, error) {
	var zero R
	if err := requireAdmin(actor); err != nil {
		return zero, err
	}

	r, err := s.loadAny(ctx, releaseID)
	if err != nil {
		return zero, err
	}
	core := r.Core()
	from := core.ReleaseStatus
	to, err := checkTransition(core, action)
	if err != nil {
		return zero, s.reject(core, err)
	}

	if mutate != nil {
		if err := mutate(r, s.now()); err != nil {
			return zero, s.reject(core, err)
		}
	}
	if to != "" {
		core.ReleaseStatus = to
	}

	if err := s.persist(ctx, r); err != nil {
		return zero, err
	}
	s.logTransition(core, action, from, actor.UserID)
	return r, nil
}

// loadAny 管理员读取，不区分归属和软删除
func (s *Service[R]) loadAny(ctx context.Context, releaseID string) (R, error) {
	r, err := s.repo.GetByReleaseID(ctx, releaseID)
	if err != nil {
		var zero R
		if errors.Is(err, repository.ErrNotFound) {
			return zero, notFound("release %s not found", releaseID)
		}
		return zero, fmt.Errorf("failed to load release %s: %w", releaseID, err)
	}
	return r, nil
}

// loadActive 管理员读取未删除的发行
func (s *Service[R]) loadActive(ctx context.Context, releaseID string) (R, error) {
	r, err := s.loadAny(ctx, releaseID)
	if err != nil {
		return r, err
	}
	if !r.Core().IsActive {
		var zero R
		return zero, notFound("release %s not found", releaseID)
	}
	return r, nil
}

func stampReview(core *model.ReleaseCore, adminID int64, now time.Time, notes string) {
	at := now
	core.AdminReview.ReviewedBy = &adminID
	core.AdminReview.ReviewedAt = &at
	if !blank(notes) {
		core.AdminReview.AdminNotes = notes
	}
}

func hasTrack(r model.Release, trackID string) bool {
	for _, id := range r.TrackIDs() {
		if id == trackID {
			return true
		}
	}
	return false
}
