package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/Sudeep845/Raktsewa-sub000/internal/service"
	"github.com/Sudeep845/Raktsewa-sub000/internal/session"
	"github.com/Sudeep845/Raktsewa-sub000/pkg/response"
)

// SessionKey 会话中间件写入 gin.Context 的键
const SessionKey = "session"

// MustGetSession 从 Gin 上下文中安全提取会话。
// 会话中间件未注入时写入 401 响应并返回 false，调用方应直接 return。
func MustGetSession(c *gin.Context) (*session.Session, bool) {
	v, exists := c.Get(SessionKey)
	if !exists {
		response.Unauthorized(c, 10002, "未认证")
		return nil, false
	}
	s, ok := v.(*session.Session)
	if !ok || s == nil || s.UserID == "" {
		response.Unauthorized(c, 10002, "未认证")
		return nil, false
	}
	return s, true
}

// MustGetUserID 从 Gin 上下文中安全提取 user_id
func MustGetUserID(c *gin.Context) (string, bool) {
	s, ok := MustGetSession(c)
	if !ok {
		return "", false
	}
	return s.UserID, true
}

// MustGetCaller 将会话转换为 Service 层的调用者
func MustGetCaller(c *gin.Context) (service.Caller, bool) {
	s, ok := MustGetSession(c)
	if !ok {
		return service.Caller{}, false
	}
	return service.Caller{UserID: s.UserID, Role: s.Role, HospitalID: s.HospitalID}, true
}
