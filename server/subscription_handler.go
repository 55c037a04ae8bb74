package server

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"Tunedrop/core/release"
	"Tunedrop/core/subscription"
	"Tunedrop/logger"

	"github.com/gorilla/mux"
)

// SubscriptionHandler 订阅查询和管理员开通
type SubscriptionHandler struct {
	checker *subscription.Checker
}

// NewSubscriptionHandler 创建订阅处理器
func NewSubscriptionHandler(checker *subscription.Checker) *SubscriptionHandler {
	return &SubscriptionHandler{checker: checker}
}

type grantRequest struct {
	PlanName  string    `json:"planName"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Status GET /api/subscription
func (h *SubscriptionHandler) Status(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w, err.Error())
		return
	}
	active, err := h.checker.HasActiveSubscription(r.Context(), userID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"active": active})
}

// Grant POST /api/admin/users/{userId}/subscription
func (h *SubscriptionHandler) Grant(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.ParseInt(mux.Vars(r)["userId"], 10, 64)
	if err != nil || userID <= 0 {
		writeError(w, r, release.NewError(release.ValidationError, "userId must be a positive integer"))
		return
	}
	var req grantRequest
	if err := decodeJSON(r, &req, false); err != nil {
		writeError(w, r, err)
		return
	}
	if req.PlanName == "" {
		writeError(w, r, release.NewError(release.ValidationError, "planName is required"))
		return
	}

	sub, err := h.checker.Grant(r.Context(), userID, req.PlanName, req.ExpiresAt)
	if err != nil {
		if errors.Is(err, subscription.ErrExpiryInPast) {
			err = release.NewError(release.ValidationError, "%v", err)
		}
		writeError(w, r, err)
		return
	}

	logger.Info("订阅已开通",
		logger.Int64("user", userID),
		logger.String("plan", req.PlanName),
		logger.Int64("admin", actorFrom(r.Context()).UserID))
	writeJSON(w, http.StatusCreated, sub)
}
