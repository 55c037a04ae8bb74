package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"Tunedrop/core/release"
	"Tunedrop/logger"
)

// errorBody 统一的错误响应
type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Warn("写入响应失败", logger.ErrorField(err))
	}
}

// statusFor 业务错误分类 -> HTTP 状态码
func statusFor(kind release.ErrorKind) int {
	switch kind {
	case release.NotFound:
		return http.StatusNotFound
	case release.InvalidState, release.Conflict:
		return http.StatusConflict
	case release.PreconditionFailed:
		return http.StatusPreconditionFailed
	case release.Forbidden:
		return http.StatusForbidden
	case release.ValidationError:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// writeError 业务错误按分类返回，其他错误记日志并返回 500
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	kind := release.KindOf(err)
	if kind == "" {
		logger.Error("请求处理失败",
			logger.String("method", r.Method),
			logger.String("path", r.URL.Path),
			logger.ErrorField(err))
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "InternalError", Message: "internal server error"})
		return
	}
	writeJSON(w, statusFor(kind), errorBody{Error: string(kind), Message: err.Error()})
}

func writeUnauthorized(w http.ResponseWriter, message string) {
	writeJSON(w, http.StatusUnauthorized, errorBody{Error: "Unauthorized", Message: message})
}

// decodeJSON 解析请求体，格式错误时返回 ValidationError。allowEmpty 为 true 时空请求体不算错
func decodeJSON(r *http.Request, v interface{}, allowEmpty bool) error {
	err := json.NewDecoder(r.Body).Decode(v)
	if err == nil {
		return nil
	}
	if errors.Is(err, io.EOF) && allowEmpty {
		return nil
	}
	return release.NewError(release.ValidationError, "invalid request body: %v", err)
}

func queryInt(r *http.Request, key string) (int, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, release.NewError(release.ValidationError, "%s must be a non-negative integer", key)
	}
	return n, nil
}

func queryBool(r *http.Request, key string) bool {
	b, _ := strconv.ParseBool(r.URL.Query().Get(key))
	return b
}
