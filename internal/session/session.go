// Package session 服务端会话：令牌 jti → 会话记录。
// 登出即删除记录，令牌虽未过期也随之失效。
package session

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound 会话不存在或已过期
var ErrNotFound = errors.New("会话不存在或已过期")

// Session 会话记录
type Session struct {
	ID           string    `json:"id"`
	UserID       string    `json:"user_id"`
	Username     string    `json:"username"`
	FullName     string    `json:"full_name"`
	Role         string    `json:"role"`
	HospitalID   string    `json:"hospital_id,omitempty"`
	HospitalName string    `json:"hospital_name,omitempty"`
	RememberMe   bool      `json:"remember_me"`
	CreatedAt    time.Time `json:"created_at"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// Store 会话存储接口
type Store interface {
	Save(ctx context.Context, s *Session) error
	Get(ctx context.Context, id string) (*Session, error)
	Delete(ctx context.Context, id string) error
	// DeleteByUser 删除用户的全部会话（停用账号、暂停医院时使用）
	DeleteByUser(ctx context.Context, userID string) error
}

// ttl 距过期剩余时长
func (s *Session) ttl(now time.Time) time.Duration {
	return s.ExpiresAt.Sub(now)
}

// ── 请求上下文 ──

type ctxKey struct{}

// WithSession 将会话注入 context
func WithSession(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, ctxKey{}, s)
}

// FromContext 从 context 取出会话
func FromContext(ctx context.Context) (*Session, bool) {
	s, ok := ctx.Value(ctxKey{}).(*Session)
	return s, ok && s != nil
}
