package release

import (
	"time"

	"Tunedrop/model"
)

// stepNames 与 Steps() 下标对应
var stepNames = [model.TotalSteps]model.WizardStep{model.StepOne, model.StepTwo, model.StepThree}

// initCore 新建 DRAFT 发行
func initCore(core *model.ReleaseCore, releaseID string, userID int64) {
	core.ID = 0
	core.ReleaseID = releaseID
	core.UserID = userID
	core.ReleaseStatus = model.StatusDraft
	core.CurrentStep = model.StepOne
	core.CompletedSteps = 0
	core.TotalSteps = model.TotalSteps
	core.IsActive = true
}

// priorStepsCompleted 第 n 步之前的步骤是否都已完成（n 从 1 开始）
func priorStepsCompleted(r model.Release, n int) bool {
	steps := r.Steps()
	for i := 0; i < n-1; i++ {
		if !steps[i].IsCompleted {
			return false
		}
	}
	return true
}

// CompleteStep 标记第 n 步完成。前置步骤未完成时不改动任何字段；已完成时什么都不做
func CompleteStep(r model.Release, n int, now time.Time) error {
	if n < 1 || n > model.TotalSteps {
		return validationError("step must be between 1 and %d", model.TotalSteps)
	}
	if !priorStepsCompleted(r, n) {
		return preconditionFailed("step %d must be completed before step %d", n-1, n)
	}

	step := r.Steps()[n-1]
	if step.IsCompleted {
		return nil
	}
	at := now
	step.IsCompleted = true
	step.CompletedAt = &at

	recount(r)
	return nil
}

// recount 根据各步完成标记重算 completedSteps 和 currentStep
func recount(r model.Release) {
	core := r.Core()
	completed := 0
	next := model.StepCompleted
	for i, step := range r.Steps() {
		if step.IsCompleted {
			completed++
			continue
		}
		if next == model.StepCompleted {
			next = stepNames[i]
		}
	}
	core.CompletedSteps = completed
	core.TotalSteps = model.TotalSteps
	core.CurrentStep = next
}

// completeAll 管理员代建时直接标记全部完成
func completeAll(r model.Release, now time.Time) {
	for _, step := range r.Steps() {
		if !step.IsCompleted {
			at := now
			step.IsCompleted = true
			step.CompletedAt = &at
		}
	}
	recount(r)
}

// IsReadyForSubmission 三步都已完成
func IsReadyForSubmission(r model.Release) bool {
	for _, step := range r.Steps() {
		if !step.IsCompleted {
			return false
		}
	}
	return true
}

// CompletionPercentage 完成百分比（四舍五入）
func CompletionPercentage(r model.Release) int {
	core := r.Core()
	total := core.TotalSteps
	if total <= 0 {
		total = model.TotalSteps
	}
	return (core.CompletedSteps*100 + total/2) / total
}
