package release

import (
	"Tunedrop/model"
)

// StepCheck 步骤完成条件，不满足时返回具体原因
type StepCheck[R model.Release] func(r R) error

// Kind 一种发行（基础/高级）的配置：怎么新建、每一步的完成条件、差异化行为
type Kind[R model.Release] struct {
	// Name basic / advanced，同时用于编号前缀和路由
	Name string
	// Label 用于通知文案
	Label string
	// New 按类型创建空文档，类型非法返回 ValidationError
	New func(releaseType string) (R, error)
	// Checks 第 1~3 步的完成条件
	Checks [model.TotalSteps]StepCheck[R]
	// StepTitles 下一步提示的标题
	StepTitles [model.TotalSteps]string
	// RequiresSubscription 创建和提交时要求有效订阅
	RequiresSubscription bool
	// DeactivateOnTakeDown 处理下架时同时置 isActive=false，撤销下架时恢复
	DeactivateOnTakeDown bool
}

// check 运行第 n 步的完成条件
func (k *Kind[R]) check(r R, n int) error {
	if fn := k.Checks[n-1]; fn != nil {
		return fn(r)
	}
	return nil
}

// Patch 对发行内容的一次修改
type Patch[R model.Release] interface {
	// Validate 只检查载荷本身（格式、范围），不看发行状态
	Validate() error
	// Apply 合并到发行上；返回错误时不能改动 r
	Apply(r R) error
}

// StepPatch 用户按步骤提交的修改
type StepPatch[R model.Release] interface {
	Patch[R]
	// Step 返回 1~3
	Step() int
}
