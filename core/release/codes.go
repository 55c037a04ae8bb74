package release

import (
	"context"
	"errors"
	"fmt"

	"Tunedrop/logger"
	"Tunedrop/model"
	"Tunedrop/repository"
)

// codeKeeper 维护发行内容里引用的唯一编码
type codeKeeper[R model.Release] interface {
	// reserve 登记 r 当前引用的全部编码，冲突时返回 Conflict 且不留下新登记；成功时返回撤销本次新登记的函数
	reserve(ctx context.Context, actor Actor, r R) (undo func(), err error)
	// prune 保存成功后释放 r 已不再引用的编码
	prune(ctx context.Context, r R)
}

// AdvancedService 高级发行服务，额外支持管理员分配 UPC/ISRC
type AdvancedService struct {
	*Service[*model.AdvancedRelease]
	codes repository.CodeRepository
}

// NewAdvancedService 创建高级发行服务，同时接管该服务的编码登记
func NewAdvancedService(svc *Service[*model.AdvancedRelease], codes repository.CodeRepository) *AdvancedService {
	a := &AdvancedService{Service: svc, codes: codes}
	svc.codes = a
	return a
}

// ProvideUPC 用户申请了 UPC 时由管理员分配，写入 adminProvidedUPC
func (s *AdvancedService) ProvideUPC(ctx context.Context, actor Actor, releaseID, raw string) (*View[*model.AdvancedRelease], error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	code, err := NormalizeUPC(raw)
	if err != nil {
		return nil, err
	}

	r, err := s.loadActive(ctx, releaseID)
	if err != nil {
		return nil, err
	}
	if !r.Step1.ReleaseInfo.NeedsUPC {
		return nil, s.reject(&r.ReleaseCore, preconditionFailed("release %s did not request a UPC", releaseID))
	}

	r.AdminProvidedUPC = code
	stampReview(&r.ReleaseCore, actor.UserID, s.now(), "")
	if err := s.saveWithCodes(ctx, actor, r); err != nil {
		return nil, err
	}

	logger.Info("UPC 已分配",
		logger.String("releaseId", releaseID),
		logger.String("upc", code),
		logger.Int64("admin", actor.UserID))
	return newView(s.kind, r), nil
}

// ProvideISRC 曲目申请了 ISRC 时由管理员分配，写入该曲目的 adminProvidedISRC
func (s *AdvancedService) ProvideISRC(ctx context.Context, actor Actor, releaseID, trackID, raw string) (*View[*model.AdvancedRelease], error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	if blank(trackID) {
		return nil, validationError("trackId is required")
	}
	code, err := NormalizeISRC(raw)
	if err != nil {
		return nil, err
	}

	r, err := s.loadActive(ctx, releaseID)
	if err != nil {
		return nil, err
	}
	track := r.TrackByID(trackID)
	if track == nil {
		return nil, notFound("track %s not found in release %s", trackID, releaseID)
	}
	if !track.NeedsISRC {
		return nil, s.reject(&r.ReleaseCore, preconditionFailed("track %s did not request an ISRC", trackID))
	}

	track.AdminProvidedISRC = code
	stampReview(&r.ReleaseCore, actor.UserID, s.now(), "")
	if err := s.saveWithCodes(ctx, actor, r); err != nil {
		return nil, err
	}

	logger.Info("ISRC 已分配",
		logger.String("releaseId", releaseID),
		logger.String("trackId", trackID),
		logger.String("isrc", code),
		logger.Int64("admin", actor.UserID))
	return newView(s.kind, r), nil
}

// DeletePermanently 物理删除并释放占用的编码
func (s *AdvancedService) DeletePermanently(ctx context.Context, actor Actor, releaseID string) error {
	if err := s.Service.DeletePermanently(ctx, actor, releaseID); err != nil {
		return err
	}
	if err := s.codes.DeleteByRelease(ctx, releaseID); err != nil {
		logger.Warn("释放发行编码失败", logger.String("releaseId", releaseID), logger.ErrorField(err))
	}
	return nil
}

// codeRef 发行内容里的一处编码引用
type codeRef struct {
	codeType string
	code     string
	trackID  string
}

// codeRefs 列出发行引用的 UPC（用户填写 + 管理员分配）和各曲目的 ISRC
func codeRefs(r *model.AdvancedRelease) ([]codeRef, error) {
	var refs []codeRef
	seen := make(map[string]string)
	add := func(codeType, code, trackID string) error {
		if code == "" {
			return nil
		}
		key := codeType + ":" + code
		if owner, ok := seen[key]; ok {
			if owner != trackID {
				return conflict("%s %s is used by more than one track", codeType, code)
			}
			return nil
		}
		seen[key] = trackID
		refs = append(refs, codeRef{codeType: codeType, code: code, trackID: trackID})
		return nil
	}

	info := r.Step1.ReleaseInfo
	if err := add(model.CodeTypeUPC, info.UPC, ""); err != nil {
		return nil, err
	}
	if err := add(model.CodeTypeUPC, r.AdminProvidedUPC, ""); err != nil {
		return nil, err
	}
	for _, t := range r.Step2.Tracks {
		if err := add(model.CodeTypeISRC, t.ISRC, t.TrackID); err != nil {
			return nil, err
		}
		if err := add(model.CodeTypeISRC, t.AdminProvidedISRC, t.TrackID); err != nil {
			return nil, err
		}
	}
	return refs, nil
}

func (s *AdvancedService) reserve(ctx context.Context, actor Actor, r *model.AdvancedRelease) (func(), error) {
	refs, err := codeRefs(r)
	if err != nil {
		return nil, err
	}

	var created []codeRef
	undo := func() {
		for _, ref := range created {
			s.unassign(ctx, ref.codeType, ref.code)
		}
	}
	for _, ref := range refs {
		ok, err := s.codes.Reserve(ctx, &model.CodeAssignment{
			CodeType:   ref.codeType,
			Code:       ref.code,
			ReleaseID:  r.ReleaseID,
			TrackID:    ref.trackID,
			AssignedBy: actor.UserID,
		})
		if err != nil {
			undo()
			if errors.Is(err, repository.ErrDuplicate) {
				return nil, s.reject(&r.ReleaseCore, conflict("%s %s is already assigned to another release", ref.codeType, ref.code))
			}
			return nil, fmt.Errorf("failed to reserve %s %s: %w", ref.codeType, ref.code, err)
		}
		if ok {
			created = append(created, ref)
		}
	}
	return undo, nil
}

func (s *AdvancedService) prune(ctx context.Context, r *model.AdvancedRelease) {
	refs, err := codeRefs(r)
	if err != nil {
		// reserve 已经校验过，不会走到这里
		logger.Warn("无法整理发行编码", logger.String("releaseId", r.ReleaseID), logger.ErrorField(err))
		return
	}
	keep := map[string][]string{model.CodeTypeUPC: nil, model.CodeTypeISRC: nil}
	for _, ref := range refs {
		keep[ref.codeType] = append(keep[ref.codeType], ref.code)
	}
	for codeType, codes := range keep {
		if err := s.codes.Prune(ctx, codeType, r.ReleaseID, codes); err != nil {
			logger.Warn("释放旧编码失败",
				logger.String("releaseId", r.ReleaseID),
				logger.String("codeType", codeType),
				logger.ErrorField(err))
		}
	}
}

func (s *AdvancedService) unassign(ctx context.Context, codeType, code string) {
	if err := s.codes.Unassign(ctx, codeType, code); err != nil {
		logger.Warn("回滚编码占用失败",
			logger.String("codeType", codeType),
			logger.String("code", code),
			logger.ErrorField(err))
	}
}
