package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Sudeep845/Raktsewa-sub000/config"
	"github.com/Sudeep845/Raktsewa-sub000/internal/dto"
	"github.com/Sudeep845/Raktsewa-sub000/internal/service"
	"github.com/Sudeep845/Raktsewa-sub000/pkg/response"
)

// AuthHandler 认证模块 HTTP 处理器
type AuthHandler struct {
	authSvc service.AuthService
	cookie  config.CookieConfig
}

// NewAuthHandler 创建 AuthHandler
func NewAuthHandler(authSvc service.AuthService, cookie config.CookieConfig) *AuthHandler {
	return &AuthHandler{authSvc: authSvc, cookie: cookie}
}

// Register 献血者 / 医院注册
// POST /api/v1/auth/register
func (h *AuthHandler) Register(c *gin.Context) {
	var req dto.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	result, err := h.authSvc.Register(c.Request.Context(), &req)
	if err != nil {
		h.handleAuthError(c, err)
		return
	}

	msg := "注册成功"
	if result.RequiresApproval {
		msg = "注册成功，请等待管理员审核"
	}
	response.Created(c, msg, result)
}

// Login 用户登录（用户名或邮箱）
// POST /api/v1/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	result, err := h.authSvc.Login(c.Request.Context(), &req)
	if err != nil {
		h.handleAuthError(c, err)
		return
	}

	h.setCookie(c, result.Token, result.ExpiresIn)
	response.OKWithMessage(c, "登录成功", result)
}

// Logout 登出：删除服务端会话并清除 Cookie
// POST /api/v1/auth/logout
func (h *AuthHandler) Logout(c *gin.Context) {
	sess, ok := MustGetSession(c)
	if !ok {
		return
	}

	if err := h.authSvc.Logout(c.Request.Context(), sess.ID); err != nil {
		h.handleAuthError(c, err)
		return
	}

	h.setCookie(c, "", -1)
	response.OKWithMessage(c, "已退出登录", nil)
}

// Me 当前会话信息
// GET /api/v1/auth/me
func (h *AuthHandler) Me(c *gin.Context) {
	sess, ok := MustGetSession(c)
	if !ok {
		return
	}

	response.OK(c, dto.SessionUserInfo{
		UserID:       sess.UserID,
		Username:     sess.Username,
		FullName:     sess.FullName,
		Role:         sess.Role,
		HospitalID:   sess.HospitalID,
		HospitalName: sess.HospitalName,
	})
}

// ChangePassword 修改密码
// PUT /api/v1/auth/password
func (h *AuthHandler) ChangePassword(c *gin.Context) {
	var req dto.ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	if err := h.authSvc.ChangePassword(c.Request.Context(), userID, &req); err != nil {
		h.handleAuthError(c, err)
		return
	}

	response.OKWithMessage(c, "密码已修改", nil)
}

func (h *AuthHandler) setCookie(c *gin.Context, token string, maxAge int) {
	c.SetSameSite(sameSite(h.cookie.SameSite))
	c.SetCookie(h.cookie.Name, token, maxAge, "/", h.cookie.Domain, h.cookie.Secure, true)
}

func sameSite(s string) http.SameSite {
	switch strings.ToLower(s) {
	case "strict":
		return http.SameSiteStrictMode
	case "none":
		return http.SameSiteNoneMode
	default:
		return http.SameSiteLaxMode
	}
}

func (h *AuthHandler) handleAuthError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidCredentials):
		response.Unauthorized(c, 11001, "用户名或密码错误")
	case errors.Is(err, service.ErrAccountDisabled):
		response.Forbidden(c, 11002, "账号已停用")
	case errors.Is(err, service.ErrHospitalNotApproved):
		response.Forbidden(c, 11003, "医院尚未通过审核")
	case errors.Is(err, service.ErrWrongOldPassword):
		response.BadRequest(c, 11004, "原密码错误")
	case errors.Is(err, service.ErrSamePassword):
		response.BadRequest(c, 11005, "新密码不能与原密码相同")
	case errors.Is(err, service.ErrUsernameExists):
		response.Conflict(c, 11010, "用户名已被使用")
	case errors.Is(err, service.ErrEmailExists):
		response.Conflict(c, 11011, "邮箱已被注册")
	case errors.Is(err, service.ErrLicenseExists):
		response.Conflict(c, 11012, "执业许可证号已被注册")
	default:
		respondError(c, err)
	}
}
