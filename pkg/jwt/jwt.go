package jwt

import (
	"errors"
	"time"

	jwtv5 "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/Sudeep845/Raktsewa-sub000/config"
)

const issuer = "raktsewa"

var (
	ErrTokenExpired = errors.New("会话已过期")
	ErrTokenInvalid = errors.New("会话令牌无效")
)

// Claims 会话令牌声明
// ID(jti) 即服务端会话记录的键，令牌本身不承载可变状态
type Claims struct {
	UserID     string `json:"user_id"`
	Role       string `json:"role"`
	HospitalID string `json:"hospital_id,omitempty"`
	RememberMe bool   `json:"remember_me,omitempty"`
	jwtv5.RegisteredClaims
}

// SessionID 返回会话 ID（jti）
func (c *Claims) SessionID() string { return c.ID }

// Manager 会话令牌签发与校验
type Manager struct {
	secret        []byte
	sessionTTL    time.Duration
	rememberMeTTL time.Duration
	now           func() time.Time
}

// NewManager 创建令牌管理器
func NewManager(cfg *config.AuthConfig) *Manager {
	remember := cfg.RememberMeTTL
	if remember <= 0 {
		remember = cfg.SessionTTL
	}
	return &Manager{
		secret:        []byte(cfg.SessionSecret),
		sessionTTL:    cfg.SessionTTL,
		rememberMeTTL: remember,
		now:           time.Now,
	}
}

// TTL 返回会话有效期
func (m *Manager) TTL(rememberMe bool) time.Duration {
	if rememberMe {
		return m.rememberMeTTL
	}
	return m.sessionTTL
}

// GenerateSessionToken 生成会话令牌，返回签名串与声明
func (m *Manager) GenerateSessionToken(userID, role, hospitalID string, rememberMe bool) (string, *Claims, error) {
	now := m.now()
	claims := &Claims{
		UserID:     userID,
		Role:       role,
		HospitalID: hospitalID,
		RememberMe: rememberMe,
		RegisteredClaims: jwtv5.RegisteredClaims{
			ID:        uuid.New().String(),
			Subject:   userID,
			IssuedAt:  jwtv5.NewNumericDate(now),
			ExpiresAt: jwtv5.NewNumericDate(now.Add(m.TTL(rememberMe))),
			Issuer:    issuer,
		},
	}

	token := jwtv5.NewWithClaims(jwtv5.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", nil, err
	}
	return signed, claims, nil
}

// ParseToken 解析并验证令牌
func (m *Manager) ParseToken(tokenString string) (*Claims, error) {
	token, err := jwtv5.ParseWithClaims(tokenString, &Claims{}, func(t *jwtv5.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwtv5.SigningMethodHMAC); !ok {
			return nil, ErrTokenInvalid
		}
		return m.secret, nil
	}, jwtv5.WithIssuer(issuer))

	if err != nil {
		if errors.Is(err, jwtv5.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.ID == "" {
		return nil, ErrTokenInvalid
	}

	return claims, nil
}
