package server

import (
	"errors"
	"net/http"
	"net/mail"
	"strings"

	"Tunedrop/core/auth"
	"Tunedrop/core/idgen"
	"Tunedrop/core/release"
	"Tunedrop/logger"
	"Tunedrop/model"
	"Tunedrop/repository"
)

// minPasswordLength 注册时的最短密码
const minPasswordLength = 8

// AuthHandler 注册和登录
type AuthHandler struct {
	users  repository.UserRepository
	issuer *auth.TokenIssuer
	ids    *idgen.Generator
}

// NewAuthHandler 创建认证处理器
func NewAuthHandler(users repository.UserRepository, issuer *auth.TokenIssuer, ids *idgen.Generator) *AuthHandler {
	return &AuthHandler{users: users, issuer: issuer, ids: ids}
}

// RegisterRequest represents the registration request body
type RegisterRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Email    string `json:"email"`
}

// LoginRequest represents the login request body
type LoginRequest struct {
	Username string `json:"username"` // 可以是用户名或邮箱
	Password string `json:"password"`
}

type authResponse struct {
	Token string      `json:"token"`
	User  *model.User `json:"user"`
}

// Register 创建普通用户并分配账号编号
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := decodeJSON(r, &req, false); err != nil {
		writeError(w, r, err)
		return
	}
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(req.Email)

	if req.Username == "" || req.Email == "" || req.Password == "" {
		writeError(w, r, release.NewError(release.ValidationError, "username, password and email are required"))
		return
	}
	if _, err := mail.ParseAddress(req.Email); err != nil {
		writeError(w, r, release.NewError(release.ValidationError, "email is invalid"))
		return
	}
	if len(req.Password) < minPasswordLength {
		writeError(w, r, release.NewError(release.ValidationError, "password must be at least %d characters", minPasswordLength))
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}
	accountID, err := h.ids.Next(r.Context(), idgen.PrefixAccount)
	if err != nil {
		writeError(w, r, err)
		return
	}

	user := &model.User{
		AccountID:    accountID,
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: hash,
		Role:         model.RoleUser,
	}
	if _, err := h.users.CreateUser(r.Context(), user); err != nil {
		if errors.Is(err, repository.ErrDuplicateUser) {
			logger.Warn("[Register] 用户名或邮箱已存在",
				logger.String("username", req.Username),
				logger.String("email", req.Email))
			writeError(w, r, release.NewError(release.Conflict, "username or email already exists"))
			return
		}
		writeError(w, r, err)
		return
	}

	token, err := h.issuer.GenerateToken(user.ID, user.Username, user.Role)
	if err != nil {
		writeError(w, r, err)
		return
	}

	logger.Info("[Register] 注册成功",
		logger.String("username", user.Username),
		logger.String("accountId", user.AccountID))
	writeJSON(w, http.StatusCreated, authResponse{Token: token, User: user})
}

// Login 用户名或邮箱登录
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := decodeJSON(r, &req, false); err != nil {
		writeError(w, r, err)
		return
	}
	if req.Username == "" || req.Password == "" {
		writeError(w, r, release.NewError(release.ValidationError, "username/email and password are required"))
		return
	}

	var (
		user *model.User
		err  error
	)
	if strings.Contains(req.Username, "@") {
		user, err = h.users.GetUserByEmail(r.Context(), req.Username)
	} else {
		user, err = h.users.GetUserByUsername(r.Context(), req.Username)
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	if user == nil || !auth.CheckPasswordHash(req.Password, user.PasswordHash) {
		logger.Warn("[Login] 用户名或密码错误", logger.String("username", req.Username))
		writeUnauthorized(w, "invalid username/email or password")
		return
	}

	token, err := h.issuer.GenerateToken(user.ID, user.Username, user.Role)
	if err != nil {
		writeError(w, r, err)
		return
	}

	logger.Info("[Login] 登录成功", logger.String("username", user.Username))
	writeJSON(w, http.StatusOK, authResponse{Token: token, User: user})
}

// Me 当前登录用户
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w, err.Error())
		return
	}
	user, err := h.users.GetUserByID(r.Context(), userID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if user == nil {
		writeError(w, r, release.NewError(release.NotFound, "user %d not found", userID))
		return
	}
	writeJSON(w, http.StatusOK, user)
}
