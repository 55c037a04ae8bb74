package repository

import (
	"context"

	"Tunedrop/model"

	"gorm.io/gorm"
)

// ReleaseFilter 发行列表查询条件
type ReleaseFilter struct {
	UserID          *int64
	Status          model.ReleaseStatus
	IncludeInactive bool
	Limit           int
	Offset          int
}

// ReleaseRepository 发行文档数据访问接口，基础发行和高级发行共用
type ReleaseRepository[R model.Release] interface {
	// Create 插入新发行，release_id 冲突时返回 ErrDuplicate
	Create(ctx context.Context, release R) error
	// GetByReleaseID 按发行 ID 读取，不区分是否已软删除（管理员使用）
	GetByReleaseID(ctx context.Context, releaseID string) (R, error)
	// GetOwned 读取属于 userID 的发行
	GetOwned(ctx context.Context, releaseID string, userID int64, includeInactive bool) (R, error)
	List(ctx context.Context, filter ReleaseFilter) ([]R, int64, error)
	// Save 整体写回（last writer wins）
	Save(ctx context.Context, release R) error
	// Delete 物理删除
	Delete(ctx context.Context, releaseID string) error
}

// gormReleaseRepository GORM 实现
type gormReleaseRepository[R model.Release] struct {
	db         *gorm.DB
	newRelease func() R
}

// NewGormReleaseRepository 创建发行仓库，newRelease 返回空文档指针
func NewGormReleaseRepository[R model.Release](db *gorm.DB, newRelease func() R) ReleaseRepository[R] {
	return &gormReleaseRepository[R]{db: db, newRelease: newRelease}
}

// NewBasicReleaseRepository 基础发行仓库
func NewBasicReleaseRepository(db *gorm.DB) ReleaseRepository[*model.BasicRelease] {
	return NewGormReleaseRepository(db, func() *model.BasicRelease { return &model.BasicRelease{} })
}

// NewAdvancedReleaseRepository 高级发行仓库
func NewAdvancedReleaseRepository(db *gorm.DB) ReleaseRepository[*model.AdvancedRelease] {
	return NewGormReleaseRepository(db, func() *model.AdvancedRelease { return &model.AdvancedRelease{} })
}

func (r *gormReleaseRepository[R]) Create(ctx context.Context, release R) error {
	return translateError(r.db.WithContext(ctx).Create(release).Error)
}

func (r *gormReleaseRepository[R]) GetByReleaseID(ctx context.Context, releaseID string) (R, error) {
	release := r.newRelease()
	err := r.db.WithContext(ctx).
		Where("release_id = ?", releaseID).
		First(release).Error
	if err != nil {
		var zero R
		return zero, translateError(err)
	}
	return release, nil
}

func (r *gormReleaseRepository[R]) GetOwned(ctx context.Context, releaseID string, userID int64, includeInactive bool) (R, error) {
	release := r.newRelease()
	query := r.db.WithContext(ctx).Where("release_id = ? AND user_id = ?", releaseID, userID)
	if !includeInactive {
		query = query.Where("is_active = ?", true)
	}
	if err := query.First(release).Error; err != nil {
		var zero R
		return zero, translateError(err)
	}
	return release, nil
}

func (r *gormReleaseRepository[R]) List(ctx context.Context, filter ReleaseFilter) ([]R, int64, error) {
	query := r.db.WithContext(ctx).Model(r.newRelease())
	if filter.UserID != nil {
		query = query.Where("user_id = ?", *filter.UserID)
	}
	if filter.Status != "" {
		query = query.Where("release_status = ?", filter.Status)
	}
	if !filter.IncludeInactive {
		query = query.Where("is_active = ?", true)
	}

	query = query.Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if filter.Limit > 0 {
		query = query.Limit(filter.Limit).Offset(filter.Offset)
	}

	var releases []R
	if err := query.Order("created_at DESC").Order("id DESC").Find(&releases).Error; err != nil {
		return nil, 0, err
	}
	return releases, total, nil
}

func (r *gormReleaseRepository[R]) Save(ctx context.Context, release R) error {
	return translateError(r.db.WithContext(ctx).Save(release).Error)
}

func (r *gormReleaseRepository[R]) Delete(ctx context.Context, releaseID string) error {
	res := r.db.WithContext(ctx).
		Where("release_id = ?", releaseID).
		Delete(r.newRelease())
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
