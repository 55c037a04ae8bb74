package cache

import (
	"context"
	"fmt"

	"Tunedrop/logger"

	"github.com/go-redis/redis/v8"
)

const sequenceKey = "idgen:%s" // String: INCR 计数

// HighWaterStore 持久化的计数高水位，redis 数据丢失后用来续号
type HighWaterStore interface {
	Current(ctx context.Context, prefix string) (int64, error)
	Raise(ctx context.Context, prefix string, value int64) error
}

// SequenceCounter 基于 redis INCR 的发号计数器
type SequenceCounter struct {
	client *redis.Client
	store  HighWaterStore
}

// NewSequenceCounter 创建计数器，store 可以为 nil
func NewSequenceCounter(client *redis.Client, store HighWaterStore) *SequenceCounter {
	return &SequenceCounter{client: client, store: store}
}

// Next 原子加一
func (c *SequenceCounter) Next(ctx context.Context, prefix string) (int64, error) {
	if c.client == nil {
		return 0, fmt.Errorf("Redis client not initialized")
	}

	key := fmt.Sprintf(sequenceKey, prefix)
	n, err := c.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to incr %s: %w", key, err)
	}

	if c.store == nil {
		return n, nil
	}

	// 键是新建的：从数据库高水位续号
	if n == 1 {
		floor, err := c.store.Current(ctx, prefix)
		if err != nil {
			return 0, fmt.Errorf("failed to read counter floor for %s: %w", prefix, err)
		}
		if floor > 0 {
			if n, err = c.client.IncrBy(ctx, key, floor).Result(); err != nil {
				return 0, fmt.Errorf("failed to seed %s: %w", key, err)
			}
			logger.Info("发号计数已从数据库续号",
				logger.String("prefix", prefix),
				logger.Int64("floor", floor))
		}
	}

	if err := c.store.Raise(ctx, prefix, n); err != nil {
		logger.Warn("更新计数高水位失败", logger.String("prefix", prefix), logger.ErrorField(err))
	}
	return n, nil
}
