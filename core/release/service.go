// Package release 发行生命周期：三步向导、提交、管理员审核与下架流程。
// 基础发行和高级发行共用同一套状态机，差异由 Kind 配置。
package release

import (
	"context"
	"errors"
	"fmt"
	"time"

	"Tunedrop/core/notify"
	"Tunedrop/logger"
	"Tunedrop/model"
	"Tunedrop/repository"
)

// createMaxAttempts 发行编号撞到唯一索引时的最大尝试次数
const createMaxAttempts = 3

// IDGenerator 生成发行编号
type IDGenerator interface {
	ReleaseID(ctx context.Context, kind, releaseType string) (string, error)
}

// SubscriptionChecker 查询用户当前是否有有效订阅
type SubscriptionChecker interface {
	HasActiveSubscription(ctx context.Context, userID int64) (bool, error)
}

// Service 一种发行的生命周期服务
type Service[R model.Release] struct {
	kind     *Kind[R]
	repo     repository.ReleaseRepository[R]
	ids      IDGenerator
	subs     SubscriptionChecker
	notifier notify.Sink
	// codes 为 nil 时发行内容不含唯一编码
	codes codeKeeper[R]
	now   func() time.Time
}

// NewService 创建服务，notifier 为 nil 时不发通知
func NewService[R model.Release](kind *Kind[R], repo repository.ReleaseRepository[R], ids IDGenerator, subs SubscriptionChecker, notifier notify.Sink) *Service[R] {
	if notifier == nil {
		notifier = notify.Noop{}
	}
	return &Service[R]{
		kind:     kind,
		repo:     repo,
		ids:      ids,
		subs:     subs,
		notifier: notifier,
		now:      time.Now,
	}
}

// Kind 返回发行种类配置
func (s *Service[R]) Kind() *Kind[R] {
	return s.kind
}

// SetClock 替换时间来源
func (s *Service[R]) SetClock(now func() time.Time) {
	s.now = now
}

// ListOptions 用户列表查询参数
type ListOptions struct {
	Status          model.ReleaseStatus
	IncludeInactive bool
	Limit           int
	Offset          int
}

// Page 分页结果
type Page[R model.Release] struct {
	Items []*View[R] `json:"items"`
	Total int64      `json:"total"`
}

// Create 新建 DRAFT 发行
func (s *Service[R]) Create(ctx context.Context, userID int64, releaseType string) (*View[R], error) {
	if _, err := s.kind.New(releaseType); err != nil {
		return nil, err
	}
	if err := s.requireSubscription(ctx, userID); err != nil {
		return nil, err
	}

	r, err := s.insert(ctx, userID, releaseType, nil)
	if err != nil {
		return nil, err
	}

	logger.Info("发行已创建",
		logger.String("kind", s.kind.Name),
		logger.String("releaseId", r.Core().ReleaseID),
		logger.String("type", releaseType),
		logger.Int64("userId", userID))
	return newView(s.kind, r), nil
}

// insert 生成编号并插入，编号冲突时重新生成
func (s *Service[R]) insert(ctx context.Context, userID int64, releaseType string, prepare func(r R) error) (R, error) {
	var zero R
	for attempt := 1; attempt <= createMaxAttempts; attempt++ {
		r, err := s.kind.New(releaseType)
		if err != nil {
			return zero, err
		}
		id, err := s.ids.ReleaseID(ctx, s.kind.Name, releaseType)
		if err != nil {
			return zero, err
		}
		initCore(r.Core(), id, userID)
		recount(r)
		if prepare != nil {
			if err := prepare(r); err != nil {
				return zero, err
			}
		}

		err = s.repo.Create(ctx, r)
		if err == nil {
			return r, nil
		}
		if !errors.Is(err, repository.ErrDuplicate) {
			return zero, fmt.Errorf("failed to create release: %w", err)
		}
		logger.Warn("发行编号冲突，重新生成",
			logger.String("releaseId", id),
			logger.Int("attempt", attempt))
	}
	return zero, conflict("could not allocate a unique release id after %d attempts", createMaxAttempts)
}

// Get 读取自己的发行
func (s *Service[R]) Get(ctx context.Context, userID int64, releaseID string, includeInactive bool) (*View[R], error) {
	r, err := s.load(ctx, releaseID, userID, includeInactive)
	if err != nil {
		return nil, err
	}
	return newView(s.kind, r), nil
}

// List 列出自己的发行
func (s *Service[R]) List(ctx context.Context, userID int64, opts ListOptions) (*Page[R], error) {
	return s.list(ctx, repository.ReleaseFilter{
		UserID:          &userID,
		Status:          opts.Status,
		IncludeInactive: opts.IncludeInactive,
		Limit:           opts.Limit,
		Offset:          opts.Offset,
	})
}

func (s *Service[R]) list(ctx context.Context, filter repository.ReleaseFilter) (*Page[R], error) {
	if filter.Status != "" && !filter.Status.IsValid() {
		return nil, validationError("unknown status %q", filter.Status)
	}
	releases, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list releases: %w", err)
	}
	items := make([]*View[R], 0, len(releases))
	for _, r := range releases {
		items = append(items, newView(s.kind, r))
	}
	return &Page[R]{Items: items, Total: total}, nil
}

// UpdateStep 合并某一步的内容，满足完成条件时标记完成
func (s *Service[R]) UpdateStep(ctx context.Context, userID int64, releaseID string, patch StepPatch[R]) (*View[R], error) {
	n := patch.Step()
	if n < 1 || n > model.TotalSteps {
		return nil, validationError("step must be between 1 and %d", model.TotalSteps)
	}
	if err := patch.Validate(); err != nil {
		return nil, err
	}

	r, err := s.load(ctx, releaseID, userID, false)
	if err != nil {
		return nil, err
	}
	core := r.Core()
	if !IsEditable(core.ReleaseStatus) {
		return nil, s.reject(core, invalidState("release %s cannot be edited in status %s", releaseID, core.ReleaseStatus))
	}
	if !priorStepsCompleted(r, n) {
		return nil, s.reject(core, preconditionFailed("step %d must be completed before step %d", n-1, n))
	}

	wasCompleted := r.Steps()[n-1].IsCompleted
	if err := patch.Apply(r); err != nil {
		return nil, s.reject(core, err)
	}

	if reason := s.kind.check(r, n); reason != nil {
		// 已完成的步骤不能退回未完成
		if wasCompleted {
			return nil, s.reject(core, preconditionFailed("step %d: %s", n, reason))
		}
	} else if err := CompleteStep(r, n, s.now()); err != nil {
		return nil, s.reject(core, err)
	}

	if err := s.saveWithCodes(ctx, Actor{UserID: userID, Role: model.RoleUser}, r); err != nil {
		return nil, err
	}

	logger.Info("发行步骤已更新",
		logger.String("releaseId", releaseID),
		logger.String("type", r.TypeName()),
		logger.Int("step", n),
		logger.Bool("completed", r.Steps()[n-1].IsCompleted),
		logger.Int("completedSteps", core.CompletedSteps))
	return newView(s.kind, r), nil
}

// Submit 提交审核
func (s *Service[R]) Submit(ctx context.Context, userID int64, releaseID string) (*View[R], error) {
	r, err := s.load(ctx, releaseID, userID, false)
	if err != nil {
		return nil, err
	}
	core := r.Core()

	if !IsReadyForSubmission(r) {
		return nil, s.reject(core, preconditionFailed("all %d steps must be completed before submission (%d completed)",
			model.TotalSteps, core.CompletedSteps))
	}
	to, err := checkTransition(core, ActionSubmit)
	if err != nil {
		return nil, s.reject(core, err)
	}
	if err := s.requireSubscription(ctx, userID); err != nil {
		return nil, s.reject(core, err)
	}

	from := core.ReleaseStatus
	now := s.now()
	core.ReleaseStatus = to
	core.SubmittedAt = &now

	if err := s.persist(ctx, r); err != nil {
		return nil, err
	}
	s.logTransition(core, ActionSubmit, from, userID)
	s.notifyOwner(ctx, core, s.kind.Label+" submitted",
		fmt.Sprintf("%s has been submitted for review.", core.ReleaseID), model.SeverityInfo)
	return newView(s.kind, r), nil
}

// Delete 软删除，已上线的发行只能走下架流程
func (s *Service[R]) Delete(ctx context.Context, userID int64, releaseID string) error {
	r, err := s.load(ctx, releaseID, userID, false)
	if err != nil {
		return err
	}
	core := r.Core()
	if core.ReleaseStatus == model.StatusLive {
		return s.reject(core, invalidState("release %s is live; request a takedown instead of deleting it", releaseID))
	}

	core.IsActive = false
	if err := s.persist(ctx, r); err != nil {
		return err
	}
	logger.Info("发行已删除（软删除）",
		logger.String("releaseId", releaseID),
		logger.Int64("userId", userID))
	return nil
}

// RequestUpdate 已发布/上线的发行申请重新编辑
func (s *Service[R]) RequestUpdate(ctx context.Context, userID int64, releaseID, reason, changes string) (*View[R], error) {
	if blank(reason) || blank(changes) {
		return nil, validationError("reason and requestedChanges are required")
	}

	r, err := s.load(ctx, releaseID, userID, false)
	if err != nil {
		return nil, err
	}
	core := r.Core()
	to, err := checkTransition(core, ActionRequestUpdate)
	if err != nil {
		return nil, s.reject(core, err)
	}

	from := core.ReleaseStatus
	now := s.now()
	core.UpdateRequest = model.UpdateRequest{
		RequestedAt:      &now,
		RequestReason:    reason,
		RequestedChanges: changes,
		PreviousStatus:   from,
	}
	core.ReleaseStatus = to

	if err := s.persist(ctx, r); err != nil {
		return nil, err
	}
	s.logTransition(core, ActionRequestUpdate, from, userID)
	return newView(s.kind, r), nil
}

// RequestTakedown 申请下架
func (s *Service[R]) RequestTakedown(ctx context.Context, userID int64, releaseID, reason string) (*View[R], error) {
	if blank(reason) {
		return nil, validationError("reason is required")
	}

	r, err := s.load(ctx, releaseID, userID, false)
	if err != nil {
		return nil, err
	}
	core := r.Core()
	to, err := checkTransition(core, ActionRequestTakedown)
	if err != nil {
		return nil, s.reject(core, err)
	}

	from := core.ReleaseStatus
	now := s.now()
	core.TakeDown = model.TakeDown{RequestedAt: &now, Reason: reason}
	core.ReleaseStatus = to

	if err := s.persist(ctx, r); err != nil {
		return nil, err
	}
	s.logTransition(core, ActionRequestTakedown, from, userID)
	return newView(s.kind, r), nil
}

// load 按 (releaseId, userId) 读取
func (s *Service[R]) load(ctx context.Context, releaseID string, userID int64, includeInactive bool) (R, error) {
	r, err := s.repo.GetOwned(ctx, releaseID, userID, includeInactive)
	if err != nil {
		var zero R
		if errors.Is(err, repository.ErrNotFound) {
			return zero, notFound("release %s not found", releaseID)
		}
		return zero, fmt.Errorf("failed to load release %s: %w", releaseID, err)
	}
	return r, nil
}

func (s *Service[R]) requireSubscription(ctx context.Context, userID int64) error {
	if !s.kind.RequiresSubscription || s.subs == nil {
		return nil
	}
	ok, err := s.subs.HasActiveSubscription(ctx, userID)
	if err != nil {
		return err
	}
	if !ok {
		return forbidden("an active subscription is required")
	}
	return nil
}

func (s *Service[R]) persist(ctx context.Context, r R) error {
	if err := s.repo.Save(ctx, r); err != nil {
		logger.Error("保存发行失败",
			logger.String("releaseId", r.Core().ReleaseID),
			logger.ErrorField(err))
		return fmt.Errorf("failed to save release %s: %w", r.Core().ReleaseID, err)
	}
	return nil
}

// saveWithCodes 先登记内容里的编码再保存；保存失败撤销新登记，成功后释放不再引用的旧编码
func (s *Service[R]) saveWithCodes(ctx context.Context, actor Actor, r R) error {
	if s.codes == nil {
		return s.persist(ctx, r)
	}
	undo, err := s.codes.reserve(ctx, actor, r)
	if err != nil {
		return err
	}
	if err := s.persist(ctx, r); err != nil {
		undo()
		return err
	}
	s.codes.prune(ctx, r)
	return nil
}

// reject 记录被拒绝的操作并原样返回错误
func (s *Service[R]) reject(core *model.ReleaseCore, err error) error {
	logger.Warn("发行操作被拒绝",
		logger.String("releaseId", core.ReleaseID),
		logger.String("status", string(core.ReleaseStatus)),
		logger.String("kind", string(KindOf(err))),
		logger.ErrorField(err))
	return err
}

func (s *Service[R]) logTransition(core *model.ReleaseCore, action Action, from model.ReleaseStatus, actor int64) {
	logger.Info("发行状态变更",
		logger.String("releaseId", core.ReleaseID),
		logger.String("action", string(action)),
		logger.String("from", string(from)),
		logger.String("to", string(core.ReleaseStatus)),
		logger.Int64("actor", actor))
}

func (s *Service[R]) notifyOwner(ctx context.Context, core *model.ReleaseCore, title, message, severity string) {
	s.notifier.Notify(ctx, core.UserID, notify.Event{
		Title:     title,
		Message:   message,
		Severity:  severity,
		ReleaseID: core.ReleaseID,
	})
}
