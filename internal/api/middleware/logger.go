package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Sudeep845/Raktsewa-sub000/internal/api/handler"
	"github.com/Sudeep845/Raktsewa-sub000/internal/session"
)

// 探活与指标抓取频繁，成功时不记录
var quietPaths = map[string]bool{"/health": true, "/metrics": true}

// Logger 访问日志：5xx 记 Error，4xx 记 Warn，其余 Info
// 已登录请求附带 user_id 与 role，便于按账号追查
func Logger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		path := c.Request.URL.Path
		if status < 400 && quietPaths[path] {
			return
		}

		fields := make([]zap.Field, 0, 10)
		fields = append(fields,
			zap.String("request_id", GetRequestID(c)),
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.String("route", c.FullPath()),
			zap.Int("status", status),
			zap.Duration("latency", time.Since(start)),
			zap.String("ip", c.ClientIP()),
		)
		if q := c.Request.URL.RawQuery; q != "" {
			fields = append(fields, zap.String("query", q))
		}
		if v, ok := c.Get(handler.SessionKey); ok {
			if s, ok := v.(*session.Session); ok {
				fields = append(fields, zap.String("user_id", s.UserID), zap.String("role", s.Role))
			}
		}
		if errs := c.Errors.ByType(gin.ErrorTypePrivate); len(errs) > 0 {
			fields = append(fields, zap.String("errors", errs.String()))
		}

		switch {
		case status >= 500:
			logger.Error("请求处理失败", fields...)
		case status >= 400:
			logger.Warn("客户端错误", fields...)
		default:
			logger.Info("请求完成", fields...)
		}
	}
}
