package session

import (
	"context"
	"errors"
	"time"

	"github.com/Sudeep845/Raktsewa-sub000/pkg/redis"
)

const (
	keyPrefix     = "session:"
	userKeyPrefix = "session:user:"
)

// RedisStore 基于 Redis 的会话存储，键为 session:<id>，TTL 与会话有效期一致。
// session:user:<user_id> 集合记录用户名下的会话 ID，用于批量下线。
type RedisStore struct {
	client *redis.Client
	now    func() time.Time
}

// NewRedisStore 创建 Redis 会话存储
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client, now: time.Now}
}

func (s *RedisStore) Save(ctx context.Context, sess *Session) error {
	ttl := sess.ttl(s.now())
	if ttl <= 0 {
		return errors.New("会话已过期")
	}
	if err := s.client.SetJSON(ctx, keyPrefix+sess.ID, sess, ttl); err != nil {
		return err
	}
	return s.client.AddToSet(ctx, userKeyPrefix+sess.UserID, sess.ID, ttl)
}

func (s *RedisStore) Get(ctx context.Context, id string) (*Session, error) {
	var sess Session
	found, err := s.client.GetJSON(ctx, keyPrefix+id, &sess)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrNotFound
	}
	return &sess, nil
}

func (s *RedisStore) Delete(ctx context.Context, id string) error {
	return s.client.Delete(ctx, keyPrefix+id)
}

func (s *RedisStore) DeleteByUser(ctx context.Context, userID string) error {
	ids, err := s.client.SetMembers(ctx, userKeyPrefix+userID)
	if err != nil {
		return err
	}
	keys := make([]string, 0, len(ids)+1)
	for _, id := range ids {
		keys = append(keys, keyPrefix+id)
	}
	keys = append(keys, userKeyPrefix+userID)
	return s.client.Delete(ctx, keys...)
}
