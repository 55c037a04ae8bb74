package server

import (
	"net/http"

	"Tunedrop/core/release"

	"github.com/gorilla/mux"
)

// CodeHandler 管理员分配 UPC / ISRC
type CodeHandler struct {
	svc *release.AdvancedService
}

// NewCodeHandler 创建编码分配处理器
func NewCodeHandler(svc *release.AdvancedService) *CodeHandler {
	return &CodeHandler{svc: svc}
}

type upcRequest struct {
	UPC string `json:"upc"`
}

type isrcRequest struct {
	TrackID string `json:"trackId"`
	ISRC    string `json:"isrc"`
}

// ProvideUPC POST /api/admin/advanced-releases/{releaseId}/upc
func (h *CodeHandler) ProvideUPC(w http.ResponseWriter, r *http.Request) {
	var req upcRequest
	if err := decodeJSON(r, &req, false); err != nil {
		writeError(w, r, err)
		return
	}
	view, err := h.svc.ProvideUPC(r.Context(), actorFrom(r.Context()), mux.Vars(r)["releaseId"], req.UPC)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// ProvideISRC POST /api/admin/advanced-releases/{releaseId}/isrc
func (h *CodeHandler) ProvideISRC(w http.ResponseWriter, r *http.Request) {
	var req isrcRequest
	if err := decodeJSON(r, &req, false); err != nil {
		writeError(w, r, err)
		return
	}
	view, err := h.svc.ProvideISRC(r.Context(), actorFrom(r.Context()), mux.Vars(r)["releaseId"], req.TrackID, req.ISRC)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}
