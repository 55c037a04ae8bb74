package repository

import (
	"context"
	"errors"

	"Tunedrop/model"

	"gorm.io/gorm"
)

// CodeRepository UPC/ISRC 占用登记，用户填写的和管理员分配的编码共用同一张表，保证全库唯一
type CodeRepository interface {
	// Reserve 登记编码。已被同一发行占用时更新曲目并返回 false，被其他发行占用时返回 ErrDuplicate
	Reserve(ctx context.Context, assignment *model.CodeAssignment) (created bool, err error)
	// Prune 释放该发行占用、但不在 keep 里的编码
	Prune(ctx context.Context, codeType, releaseID string, keep []string) error
	// Unassign 释放单个编码
	Unassign(ctx context.Context, codeType, code string) error
	// DeleteByRelease 发行被永久删除时释放它占用的全部编码
	DeleteByRelease(ctx context.Context, releaseID string) error
}

type gormCodeRepository struct {
	db *gorm.DB
}

// NewGormCodeRepository 创建编码仓库
func NewGormCodeRepository(db *gorm.DB) CodeRepository {
	return &gormCodeRepository{db: db}
}

func (r *gormCodeRepository) Reserve(ctx context.Context, assignment *model.CodeAssignment) (bool, error) {
	created := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var held model.CodeAssignment
		err := tx.Where("code_type = ? AND code = ?", assignment.CodeType, assignment.Code).First(&held).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			if err := tx.Create(assignment).Error; err != nil {
				return err
			}
			created = true
			return nil
		case err != nil:
			return err
		case held.ReleaseID != assignment.ReleaseID:
			return ErrDuplicate
		case held.TrackID != assignment.TrackID:
			return tx.Model(&held).Update("track_id", assignment.TrackID).Error
		}
		return nil
	})
	return created, translateError(err)
}

func (r *gormCodeRepository) Prune(ctx context.Context, codeType, releaseID string, keep []string) error {
	q := r.db.WithContext(ctx).Where("code_type = ? AND release_id = ?", codeType, releaseID)
	if len(keep) > 0 {
		q = q.Where("code NOT IN ?", keep)
	}
	return q.Delete(&model.CodeAssignment{}).Error
}

func (r *gormCodeRepository) Unassign(ctx context.Context, codeType, code string) error {
	return r.db.WithContext(ctx).
		Where("code_type = ? AND code = ?", codeType, code).
		Delete(&model.CodeAssignment{}).Error
}

func (r *gormCodeRepository) DeleteByRelease(ctx context.Context, releaseID string) error {
	return r.db.WithContext(ctx).
		Where("release_id = ?", releaseID).
		Delete(&model.CodeAssignment{}).Error
}
