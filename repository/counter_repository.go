package repository

import (
	"context"
	"errors"
	"fmt"

	"Tunedrop/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CounterRepository 基于数据库行的自增计数器
type CounterRepository interface {
	// Next 原子地加一并返回新值
	Next(ctx context.Context, prefix string) (int64, error)
	// Current 返回当前值，不存在时为 0
	Current(ctx context.Context, prefix string) (int64, error)
	// Raise 只在 value 更大时更新计数（高水位）
	Raise(ctx context.Context, prefix string, value int64) error
}

type gormCounterRepository struct {
	db *gorm.DB
}

// NewGormCounterRepository 创建计数器仓库
func NewGormCounterRepository(db *gorm.DB) CounterRepository {
	return &gormCounterRepository{db: db}
}

func (r *gormCounterRepository) ensure(tx *gorm.DB, prefix string) error {
	return tx.Clauses(clause.OnConflict{DoNothing: true}).
		Create(&model.IDCounter{Prefix: prefix}).Error
}

func (r *gormCounterRepository) Next(ctx context.Context, prefix string) (int64, error) {
	var counter model.IDCounter
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := r.ensure(tx, prefix); err != nil {
			return err
		}
		// UPDATE 持有行锁直到事务提交，并发发号在这里串行
		if err := tx.Model(&model.IDCounter{}).
			Where("prefix = ?", prefix).
			UpdateColumn("value", gorm.Expr("value + ?", 1)).Error; err != nil {
			return err
		}
		return tx.Where("prefix = ?", prefix).First(&counter).Error
	})
	if err != nil {
		return 0, fmt.Errorf("failed to increment counter %s: %w", prefix, err)
	}
	return counter.Value, nil
}

func (r *gormCounterRepository) Current(ctx context.Context, prefix string) (int64, error) {
	var counter model.IDCounter
	err := r.db.WithContext(ctx).Where("prefix = ?", prefix).First(&counter).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, nil
		}
		return 0, err
	}
	return counter.Value, nil
}

func (r *gormCounterRepository) Raise(ctx context.Context, prefix string, value int64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := r.ensure(tx, prefix); err != nil {
			return err
		}
		return tx.Model(&model.IDCounter{}).
			Where("prefix = ? AND value < ?", prefix, value).
			UpdateColumn("value", value).Error
	})
}
