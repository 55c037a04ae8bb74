package release

import (
	"Tunedrop/model"
)

// Action 触发状态变化的操作
type Action string

const (
	ActionSubmit             Action = "submit"
	ActionApproveForReview   Action = "approveForReview"
	ActionStartProcessing    Action = "startProcessing"
	ActionPublish            Action = "publish"
	ActionGoLive             Action = "goLive"
	ActionReject             Action = "reject"
	ActionRequestUpdate      Action = "requestUpdate"
	ActionApproveEditRequest Action = "approveEditRequest"
	ActionRejectEditRequest  Action = "rejectEditRequest"
	ActionRequestTakedown    Action = "requestTakedown"
	ActionProcessTakeDown    Action = "processTakeDown"
	ActionRejectTakeDown     Action = "rejectTakeDown"
	ActionRevertTakeDown     Action = "revertTakeDown"
)

type rule struct {
	from []model.ReleaseStatus
	// 为空表示目标状态由调用方决定（rejectEditRequest 回到申请前状态）
	to model.ReleaseStatus
}

// transitions 状态机：操作 -> 允许的起始状态与目标状态
var transitions = map[Action]rule{
	ActionSubmit:             {from: []model.ReleaseStatus{model.StatusDraft, model.StatusRejected}, to: model.StatusSubmitted},
	ActionApproveForReview:   {from: []model.ReleaseStatus{model.StatusSubmitted}, to: model.StatusUnderReview},
	ActionStartProcessing:    {from: []model.ReleaseStatus{model.StatusUnderReview}, to: model.StatusProcessing},
	ActionPublish:            {from: []model.ReleaseStatus{model.StatusProcessing}, to: model.StatusPublished},
	ActionGoLive:             {from: []model.ReleaseStatus{model.StatusPublished}, to: model.StatusLive},
	ActionReject:             {from: []model.ReleaseStatus{model.StatusSubmitted, model.StatusUnderReview, model.StatusProcessing}, to: model.StatusRejected},
	ActionRequestUpdate:      {from: []model.ReleaseStatus{model.StatusLive, model.StatusPublished}, to: model.StatusUpdateRequest},
	ActionApproveEditRequest: {from: []model.ReleaseStatus{model.StatusUpdateRequest}, to: model.StatusDraft},
	ActionRejectEditRequest:  {from: []model.ReleaseStatus{model.StatusUpdateRequest}},
	ActionRequestTakedown:    {from: []model.ReleaseStatus{model.StatusLive, model.StatusPublished}, to: model.StatusTakeDown},
	ActionProcessTakeDown:    {from: []model.ReleaseStatus{model.StatusTakeDown, model.StatusLive}, to: model.StatusTakenDown},
	ActionRejectTakeDown:     {from: []model.ReleaseStatus{model.StatusTakeDown}, to: model.StatusLive},
	ActionRevertTakeDown:     {from: []model.ReleaseStatus{model.StatusTakenDown}, to: model.StatusLive},
}

// editableStatuses 用户可以修改步骤内容的状态
var editableStatuses = []model.ReleaseStatus{model.StatusDraft, model.StatusRejected}

func contains(list []model.ReleaseStatus, s model.ReleaseStatus) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}

// CanApply 判断操作在当前状态下是否合法
func CanApply(action Action, status model.ReleaseStatus) bool {
	r, ok := transitions[action]
	return ok && contains(r.from, status)
}

// AllowedActions 返回当前状态下可执行的操作
func AllowedActions(status model.ReleaseStatus) []Action {
	var actions []Action
	for _, action := range actionOrder {
		if CanApply(action, status) {
			actions = append(actions, action)
		}
	}
	return actions
}

// actionOrder 固定输出顺序
var actionOrder = []Action{
	ActionSubmit,
	ActionApproveForReview,
	ActionStartProcessing,
	ActionPublish,
	ActionGoLive,
	ActionReject,
	ActionRequestUpdate,
	ActionApproveEditRequest,
	ActionRejectEditRequest,
	ActionRequestTakedown,
	ActionProcessTakeDown,
	ActionRejectTakeDown,
	ActionRevertTakeDown,
}

// IsEditable 是否允许用户修改步骤
func IsEditable(status model.ReleaseStatus) bool {
	return contains(editableStatuses, status)
}

// checkTransition 返回目标状态，不合法时返回 InvalidState
func checkTransition(core *model.ReleaseCore, action Action) (model.ReleaseStatus, error) {
	if !CanApply(action, core.ReleaseStatus) {
		return "", invalidState("cannot %s release %s in status %s", action, core.ReleaseID, core.ReleaseStatus)
	}
	return transitions[action].to, nil
}
