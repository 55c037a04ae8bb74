// Package idgen 生成带前缀的可读编号，例如 BRS-1024。
package idgen

import (
	"context"
	"fmt"
	"strconv"
	"strings"
)

// Counter 按前缀原子自增的计数后端（redis 或数据库）
type Counter interface {
	Next(ctx context.Context, prefix string) (int64, error)
}

// 发行种类
const (
	KindBasic    = "basic"
	KindAdvanced = "advanced"
)

// PrefixAccount 用户账号编号前缀
const PrefixAccount = "ACC"

// releasePrefixes 种类 × 类型 -> 前缀
var releasePrefixes = map[string]map[string]string{
	KindBasic: {
		"single": "BRS",
		"album":  "BRA",
	},
	KindAdvanced: {
		"single":           "ARS",
		"album":            "ARA",
		"ep":               "ARE",
		"ringtone_release": "ARR",
	},
}

// ReleasePrefix 返回发行编号前缀
func ReleasePrefix(kind, releaseType string) (string, error) {
	types, ok := releasePrefixes[kind]
	if !ok {
		return "", fmt.Errorf("unknown release kind %q", kind)
	}
	prefix, ok := types[releaseType]
	if !ok {
		return "", fmt.Errorf("unknown %s release type %q", kind, releaseType)
	}
	return prefix, nil
}

// Generator 编号生成器
type Generator struct {
	counter Counter
}

// New 创建生成器
func New(counter Counter) *Generator {
	return &Generator{counter: counter}
}

// Next 生成 <PREFIX>-<seq>
func (g *Generator) Next(ctx context.Context, prefix string) (string, error) {
	seq, err := g.counter.Next(ctx, prefix)
	if err != nil {
		return "", fmt.Errorf("generate id for %s: %w", prefix, err)
	}
	return Format(prefix, seq), nil
}

// ReleaseID 生成发行编号
func (g *Generator) ReleaseID(ctx context.Context, kind, releaseType string) (string, error) {
	prefix, err := ReleasePrefix(kind, releaseType)
	if err != nil {
		return "", err
	}
	return g.Next(ctx, prefix)
}

// Format 拼接编号
func Format(prefix string, seq int64) string {
	return prefix + "-" + strconv.FormatInt(seq, 10)
}

// Parse 拆分编号，格式不对返回错误；HTTP 层用它提前拒绝非法的路径参数
func Parse(id string) (string, int64, error) {
	idx := strings.LastIndex(id, "-")
	if idx <= 0 || idx == len(id)-1 {
		return "", 0, fmt.Errorf("malformed id %q", id)
	}
	seq, err := strconv.ParseInt(id[idx+1:], 10, 64)
	if err != nil || seq <= 0 {
		return "", 0, fmt.Errorf("malformed id %q", id)
	}
	return id[:idx], seq, nil
}
