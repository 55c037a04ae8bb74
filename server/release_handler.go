package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"Tunedrop/core/release"
	"Tunedrop/model"

	"github.com/gorilla/mux"
)

// ReleaseHandler 一种发行的用户和管理员接口
type ReleaseHandler[R model.Release] struct {
	svc *release.Service[R]
	// newStep 返回第 n 步的空补丁，用于解析请求体
	newStep func(n int) release.StepPatch[R]
	newEdit func() release.Patch[R]
	// purge 永久删除，高级发行还要释放编码
	purge func(ctx context.Context, actor release.Actor, releaseID string) error
}

// NewBasicReleaseHandler 基础发行
func NewBasicReleaseHandler(svc *release.Service[*model.BasicRelease]) *ReleaseHandler[*model.BasicRelease] {
	return &ReleaseHandler[*model.BasicRelease]{
		svc: svc,
		newStep: func(n int) release.StepPatch[*model.BasicRelease] {
			switch n {
			case 1:
				return &release.BasicStep1Patch{}
			case 2:
				return &release.BasicStep2Patch{}
			case 3:
				return &release.BasicStep3Patch{}
			}
			return nil
		},
		newEdit: func() release.Patch[*model.BasicRelease] { return &release.BasicEdit{} },
		purge:   svc.DeletePermanently,
	}
}

// NewAdvancedReleaseHandler 高级发行
func NewAdvancedReleaseHandler(svc *release.AdvancedService) *ReleaseHandler[*model.AdvancedRelease] {
	return &ReleaseHandler[*model.AdvancedRelease]{
		svc: svc.Service,
		newStep: func(n int) release.StepPatch[*model.AdvancedRelease] {
			switch n {
			case 1:
				return &release.AdvancedStep1Patch{}
			case 2:
				return &release.AdvancedStep2Patch{}
			case 3:
				return &release.AdvancedStep3Patch{}
			}
			return nil
		},
		newEdit: func() release.Patch[*model.AdvancedRelease] { return &release.AdvancedEdit{} },
		purge:   svc.DeletePermanently,
	}
}

// createRequest 基础发行用 trackType，高级发行用 releaseType
type createRequest struct {
	ReleaseType string `json:"releaseType"`
	TrackType   string `json:"trackType"`
}

func (c createRequest) typeName() string {
	if c.ReleaseType != "" {
		return c.ReleaseType
	}
	return c.TrackType
}

type updateRequestBody struct {
	Reason           string `json:"reason"`
	RequestedChanges string `json:"requestedChanges"`
}

type reasonBody struct {
	Reason string `json:"reason"`
	Notes  string `json:"notes"`
}

type adminCreateRequest struct {
	createRequest
	UserID  int64           `json:"userId"`
	Content json.RawMessage `json:"content"`
}

// ========== 用户接口 ==========

// Create POST /api/{kind}-releases
func (h *ReleaseHandler[R]) Create(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w, err.Error())
		return
	}
	var req createRequest
	if err := decodeJSON(r, &req, false); err != nil {
		writeError(w, r, err)
		return
	}
	view, err := h.svc.Create(r.Context(), userID, req.typeName())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, view)
}

// List GET /api/{kind}-releases
func (h *ReleaseHandler[R]) List(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w, err.Error())
		return
	}
	limit, offset, err := pagination(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	page, err := h.svc.List(r.Context(), userID, release.ListOptions{
		Status:          model.ReleaseStatus(r.URL.Query().Get("status")),
		IncludeInactive: queryBool(r, "includeInactive"),
		Limit:           limit,
		Offset:          offset,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// Get GET /api/{kind}-releases/{releaseId}
func (h *ReleaseHandler[R]) Get(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w, err.Error())
		return
	}
	view, err := h.svc.Get(r.Context(), userID, mux.Vars(r)["releaseId"], queryBool(r, "includeInactive"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// UpdateStep PUT /api/{kind}-releases/{releaseId}/step{n}
func (h *ReleaseHandler[R]) UpdateStep(n int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := GetUserIDFromContext(r.Context())
		if err != nil {
			writeUnauthorized(w, err.Error())
			return
		}
		patch := h.newStep(n)
		if err := decodeJSON(r, patch, false); err != nil {
			writeError(w, r, err)
			return
		}
		view, err := h.svc.UpdateStep(r.Context(), userID, mux.Vars(r)["releaseId"], patch)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, view)
	}
}

// Submit POST /api/{kind}-releases/{releaseId}/submit
func (h *ReleaseHandler[R]) Submit(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w, err.Error())
		return
	}
	view, err := h.svc.Submit(r.Context(), userID, mux.Vars(r)["releaseId"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// Delete DELETE /api/{kind}-releases/{releaseId}
func (h *ReleaseHandler[R]) Delete(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w, err.Error())
		return
	}
	releaseID := mux.Vars(r)["releaseId"]
	if err := h.svc.Delete(r.Context(), userID, releaseID); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"releaseId": releaseID, "message": "release deleted"})
}

// RequestUpdate POST /api/{kind}-releases/{releaseId}/update-request
func (h *ReleaseHandler[R]) RequestUpdate(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w, err.Error())
		return
	}
	var req updateRequestBody
	if err := decodeJSON(r, &req, false); err != nil {
		writeError(w, r, err)
		return
	}
	view, err := h.svc.RequestUpdate(r.Context(), userID, mux.Vars(r)["releaseId"], req.Reason, req.RequestedChanges)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// RequestTakedown POST /api/{kind}-releases/{releaseId}/takedown
func (h *ReleaseHandler[R]) RequestTakedown(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w, err.Error())
		return
	}
	var req reasonBody
	if err := decodeJSON(r, &req, false); err != nil {
		writeError(w, r, err)
		return
	}
	view, err := h.svc.RequestTakedown(r.Context(), userID, mux.Vars(r)["releaseId"], req.Reason)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// ========== 管理员接口 ==========

// AdminList GET /api/admin/{kind}-releases
func (h *ReleaseHandler[R]) AdminList(w http.ResponseWriter, r *http.Request) {
	limit, offset, err := pagination(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	opts := release.AdminListOptions{
		Status:          model.ReleaseStatus(r.URL.Query().Get("status")),
		IncludeInactive: queryBool(r, "includeInactive"),
		Limit:           limit,
		Offset:          offset,
	}
	if raw := r.URL.Query().Get("userId"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			writeError(w, r, release.NewError(release.ValidationError, "userId must be an integer"))
			return
		}
		opts.UserID = &id
	}

	page, err := h.svc.AdminList(r.Context(), actorFrom(r.Context()), opts)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// AdminGet GET /api/admin/{kind}-releases/{releaseId}
func (h *ReleaseHandler[R]) AdminGet(w http.ResponseWriter, r *http.Request) {
	view, err := h.svc.AdminGet(r.Context(), actorFrom(r.Context()), mux.Vars(r)["releaseId"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// AdminCreate POST /api/admin/{kind}-releases 代用户建发行
func (h *ReleaseHandler[R]) AdminCreate(w http.ResponseWriter, r *http.Request) {
	var req adminCreateRequest
	if err := decodeJSON(r, &req, false); err != nil {
		writeError(w, r, err)
		return
	}

	var content release.Patch[R]
	if len(req.Content) > 0 && string(req.Content) != "null" {
		content = h.newEdit()
		if err := json.Unmarshal(req.Content, content); err != nil {
			writeError(w, r, release.NewError(release.ValidationError, "invalid content: %v", err))
			return
		}
	}

	view, err := h.svc.CreateForUser(r.Context(), actorFrom(r.Context()), req.UserID, req.typeName(), content)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, view)
}

// AdminEdit PUT /api/admin/{kind}-releases/{releaseId}
func (h *ReleaseHandler[R]) AdminEdit(w http.ResponseWriter, r *http.Request) {
	edit := h.newEdit()
	if err := decodeJSON(r, edit, false); err != nil {
		writeError(w, r, err)
		return
	}
	view, err := h.svc.EditRelease(r.Context(), actorFrom(r.Context()), mux.Vars(r)["releaseId"], edit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// AdminDelete DELETE /api/admin/{kind}-releases/{releaseId}
func (h *ReleaseHandler[R]) AdminDelete(w http.ResponseWriter, r *http.Request) {
	releaseID := mux.Vars(r)["releaseId"]
	if err := h.purge(r.Context(), actorFrom(r.Context()), releaseID); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"releaseId": releaseID, "message": "release permanently deleted"})
}

// AdminAction POST /api/admin/{kind}-releases/{releaseId}/{action}
func (h *ReleaseHandler[R]) AdminAction(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	releaseID, action := vars["releaseId"], vars["action"]
	ctx, actor := r.Context(), actorFrom(r.Context())

	if action == "footprinting" {
		var entry model.FootprintEntry
		if err := decodeJSON(r, &entry, false); err != nil {
			writeError(w, r, err)
			return
		}
		view, err := h.svc.SaveAudioFootprinting(ctx, actor, releaseID, entry)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, view)
		return
	}

	var body reasonBody
	if err := decodeJSON(r, &body, true); err != nil {
		writeError(w, r, err)
		return
	}

	var (
		view *release.View[R]
		err  error
	)
	switch action {
	case "approve-review":
		view, err = h.svc.ApproveForReview(ctx, actor, releaseID, body.Notes)
	case "start-processing":
		view, err = h.svc.StartProcessing(ctx, actor, releaseID, body.Notes)
	case "publish":
		view, err = h.svc.Publish(ctx, actor, releaseID)
	case "go-live":
		view, err = h.svc.GoLive(ctx, actor, releaseID)
	case "reject":
		view, err = h.svc.Reject(ctx, actor, releaseID, body.Reason, body.Notes)
	case "process-takedown":
		view, err = h.svc.ProcessTakeDown(ctx, actor, releaseID, body.Reason)
	case "reject-takedown":
		view, err = h.svc.RejectTakeDown(ctx, actor, releaseID)
	case "revert-takedown":
		view, err = h.svc.RevertTakeDown(ctx, actor, releaseID)
	case "approve-edit-request":
		view, err = h.svc.ApproveEditRequest(ctx, actor, releaseID)
	case "reject-edit-request":
		view, err = h.svc.RejectEditRequest(ctx, actor, releaseID, body.Reason)
	default:
		err = release.NewError(release.NotFound, "unknown action %q", action)
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// register 挂载 /api/{name}-releases 和 /api/admin/{name}-releases
func (h *ReleaseHandler[R]) register(router *mux.Router, name string, authed func(http.HandlerFunc) http.HandlerFunc) {
	base := "/api/" + name + "-releases"
	byID := func(next http.HandlerFunc) http.HandlerFunc { return authed(validReleaseID(next)) }
	router.HandleFunc(base, authed(h.Create)).Methods(http.MethodPost)
	router.HandleFunc(base, authed(h.List)).Methods(http.MethodGet)
	router.HandleFunc(base+"/{releaseId}", byID(h.Get)).Methods(http.MethodGet)
	router.HandleFunc(base+"/{releaseId}", byID(h.Delete)).Methods(http.MethodDelete)
	for n := 1; n <= model.TotalSteps; n++ {
		router.HandleFunc(base+"/{releaseId}/step"+strconv.Itoa(n), byID(h.UpdateStep(n))).Methods(http.MethodPut)
	}
	router.HandleFunc(base+"/{releaseId}/submit", byID(h.Submit)).Methods(http.MethodPost)
	router.HandleFunc(base+"/{releaseId}/update-request", byID(h.RequestUpdate)).Methods(http.MethodPost)
	router.HandleFunc(base+"/{releaseId}/takedown", byID(h.RequestTakedown)).Methods(http.MethodPost)

	admin := "/api/admin/" + name + "-releases"
	adminOnly := func(next http.HandlerFunc) http.HandlerFunc { return authed(AdminOnly(next)) }
	adminByID := func(next http.HandlerFunc) http.HandlerFunc { return adminOnly(validReleaseID(next)) }
	router.HandleFunc(admin, adminOnly(h.AdminList)).Methods(http.MethodGet)
	router.HandleFunc(admin, adminOnly(h.AdminCreate)).Methods(http.MethodPost)
	router.HandleFunc(admin+"/{releaseId}", adminByID(h.AdminGet)).Methods(http.MethodGet)
	router.HandleFunc(admin+"/{releaseId}", adminByID(h.AdminEdit)).Methods(http.MethodPut)
	router.HandleFunc(admin+"/{releaseId}", adminByID(h.AdminDelete)).Methods(http.MethodDelete)
	router.HandleFunc(admin+"/{releaseId}/{action}", adminByID(h.AdminAction)).Methods(http.MethodPost)
}

func pagination(r *http.Request) (int, int, error) {
	limit, err := queryInt(r, "limit")
	if err != nil {
		return 0, 0, err
	}
	offset, err := queryInt(r, "offset")
	if err != nil {
		return 0, 0, err
	}
	return limit, offset, nil
}
