package release

import (
	"time"

	"Tunedrop/model"
)

// NextStep 前端向导的下一步提示
type NextStep struct {
	Step        model.WizardStep `json:"step"`
	StepNumber  int              `json:"stepNumber,omitempty"`
	Title       string           `json:"title"`
	Description string           `json:"description"`
}

// StepSummary 单步概要
type StepSummary struct {
	Title       string     `json:"title"`
	IsCompleted bool       `json:"isCompleted"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
}

// View 发行文档加上派生字段
type View[R model.Release] struct {
	Release              R                      `json:"release"`
	CompletionPercentage int                    `json:"completionPercentage"`
	IsReadyForSubmission bool                   `json:"isReadyForSubmission"`
	NextStep             *NextStep              `json:"nextStep"`
	StepsSummary         map[string]StepSummary `json:"stepsSummary"`
	AllowedActions       []Action               `json:"allowedActions"`
}

// newView 计算派生字段
func newView[R model.Release](kind *Kind[R], r R) *View[R] {
	core := r.Core()
	ready := IsReadyForSubmission(r)

	summary := make(map[string]StepSummary, model.TotalSteps)
	for i, step := range r.Steps() {
		summary[stepKey(i+1)] = StepSummary{
			Title:       kind.StepTitles[i],
			IsCompleted: step.IsCompleted,
			CompletedAt: step.CompletedAt,
		}
	}

	actions := AllowedActions(core.ReleaseStatus)
	if actions == nil {
		actions = []Action{}
	}

	return &View[R]{
		Release:              r,
		CompletionPercentage: CompletionPercentage(r),
		IsReadyForSubmission: ready,
		NextStep:             nextStep(kind, r, ready),
		StepsSummary:         summary,
		AllowedActions:       actions,
	}
}

func nextStep[R model.Release](kind *Kind[R], r R, ready bool) *NextStep {
	status := r.Core().ReleaseStatus
	if !IsEditable(status) {
		return nil
	}
	if ready {
		return &NextStep{
			Step:        model.StepCompleted,
			Title:       "Submit for review",
			Description: "All steps are complete. Submit the release for admin review.",
		}
	}
	for i, step := range r.Steps() {
		if step.IsCompleted {
			continue
		}
		return &NextStep{
			Step:        stepNames[i],
			StepNumber:  i + 1,
			Title:       kind.StepTitles[i],
			Description: "Complete " + kind.StepTitles[i] + " to continue.",
		}
	}
	return nil
}

func stepKey(n int) string {
	return "step" + string(rune('0'+n))
}
