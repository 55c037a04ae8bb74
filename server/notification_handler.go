package server

import (
	"errors"
	"net/http"

	"Tunedrop/core/notify"
	"Tunedrop/core/release"
	"Tunedrop/logger"
	"Tunedrop/repository"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
)

// NotificationHandler 站内通知
type NotificationHandler struct {
	svc      *notify.Service
	hub      *notify.Hub
	upgrader websocket.Upgrader
}

// NewNotificationHandler 创建通知处理器，hub 为 nil 时不提供 WebSocket
func NewNotificationHandler(svc *notify.Service, hub *notify.Hub) *NotificationHandler {
	return &NotificationHandler{
		svc: svc,
		hub: hub,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// List GET /api/notifications?unread=true&limit=
func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w, err.Error())
		return
	}
	limit, err := queryInt(r, "limit")
	if err != nil {
		writeError(w, r, err)
		return
	}
	list, err := h.svc.List(r.Context(), userID, queryBool(r, "unread"), limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"items": list})
}

// MarkRead POST /api/notifications/{id}/read
func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w, err.Error())
		return
	}
	id := mux.Vars(r)["id"]
	if err := h.svc.MarkRead(r.Context(), userID, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			err = release.NewError(release.NotFound, "notification %s not found", id)
		}
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"id": id, "message": "marked as read"})
}

// WebSocket GET /ws/notifications?token=
func (h *NotificationHandler) WebSocket(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w, err.Error())
		return
	}
	if h.hub == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorBody{Error: "Unavailable", Message: "live notifications are disabled"})
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Error("WebSocket 升级失败", logger.ErrorField(err))
		return
	}

	client := notify.NewClient(h.hub, conn, userID)
	h.hub.Register(client)

	go client.WritePump()
	go client.ReadPump()

	logger.Info("通知连接建立", logger.Int64("userId", userID))
}
