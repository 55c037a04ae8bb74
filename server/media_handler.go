package server

import (
	"context"
	"errors"
	"net/http"

	"Tunedrop/core/release"
	"Tunedrop/storage"
)

// UploadSigner 签发直传地址
type UploadSigner interface {
	UploadURL(ctx context.Context, userID int64, kind, fileName string) (*storage.Upload, error)
}

// MediaHandler 封面和音频上传
type MediaHandler struct {
	signer UploadSigner
}

// NewMediaHandler 创建媒体处理器
func NewMediaHandler(signer UploadSigner) *MediaHandler {
	return &MediaHandler{signer: signer}
}

type uploadURLRequest struct {
	Kind     string `json:"kind"`
	FileName string `json:"fileName"`
}

// UploadURL POST /api/media/upload-url
func (h *MediaHandler) UploadURL(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w, err.Error())
		return
	}
	var req uploadURLRequest
	if err := decodeJSON(r, &req, false); err != nil {
		writeError(w, r, err)
		return
	}
	if req.FileName == "" {
		writeError(w, r, release.NewError(release.ValidationError, "fileName is required"))
		return
	}

	up, err := h.signer.UploadURL(r.Context(), userID, req.Kind, req.FileName)
	if err != nil {
		if errors.Is(err, storage.ErrUnsupportedMedia) {
			err = release.NewError(release.ValidationError, "%v", err)
		}
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, up)
}
