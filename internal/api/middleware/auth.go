package middleware

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Sudeep845/Raktsewa-sub000/internal/api/handler"
	"github.com/Sudeep845/Raktsewa-sub000/internal/session"
	"github.com/Sudeep845/Raktsewa-sub000/pkg/jwt"
	"github.com/Sudeep845/Raktsewa-sub000/pkg/response"
)

// SessionAuth 会话认证中间件
// 令牌取自 Authorization: Bearer <token>，缺省时取 Cookie；
// 令牌校验通过后仍需服务端会话存在（登出即失效）
func SessionAuth(jwtMgr *jwt.Manager, store session.Store, cookieName string, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			token, _ = c.Cookie(cookieName)
		}
		if token == "" {
			response.Unauthorized(c, 10002, "未登录")
			c.Abort()
			return
		}

		claims, err := jwtMgr.ParseToken(token)
		if err != nil {
			response.Unauthorized(c, 10002, "会话无效或已过期")
			c.Abort()
			return
		}

		sess, err := store.Get(c.Request.Context(), claims.SessionID())
		if err != nil {
			if errors.Is(err, session.ErrNotFound) {
				response.Unauthorized(c, 10002, "会话无效或已过期")
			} else {
				logger.Error("读取会话失败", zap.String("session_id", claims.SessionID()), zap.Error(err))
				response.ServiceUnavailable(c)
			}
			c.Abort()
			return
		}

		c.Set(handler.SessionKey, sess)
		c.Request = c.Request.WithContext(session.WithSession(c.Request.Context(), sess))

		c.Next()
	}
}

func bearerToken(c *gin.Context) string {
	parts := strings.SplitN(c.GetHeader("Authorization"), " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// RoleAuth 角色权限中间件
// 检查当前会话是否具有指定角色之一
func RoleAuth(allowedRoles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		v, exists := c.Get(handler.SessionKey)
		sess, ok := v.(*session.Session)
		if !exists || !ok {
			response.Unauthorized(c, 10002, "未认证")
			c.Abort()
			return
		}

		for _, r := range allowedRoles {
			if sess.Role == r {
				c.Next()
				return
			}
		}

		response.Forbidden(c, 10003, "无权限访问")
		c.Abort()
	}
}
