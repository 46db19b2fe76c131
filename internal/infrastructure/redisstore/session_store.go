package redisstore

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/oksasatya/go-book-tracker/internal/domain/entity"
	"github.com/oksasatya/go-book-tracker/internal/domain/repository"
)

// SessionStore keeps each user's active session as a Redis hash.
type SessionStore struct {
	rdb *redis.Client
}

func NewSessionStore(rdb *redis.Client) *SessionStore {
	return &SessionStore{rdb: rdb}
}

func sessionKey(userID string) string { return "user:session:" + userID }

func (s *SessionStore) Save(ctx context.Context, sess entity.Session, ttl time.Duration) error {
	key := sessionKey(sess.UserID)
	_, err := s.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Del(ctx, key)
		p.HSet(ctx, key, map[string]any{
			"user_id":    sess.UserID,
			"username":   sess.Username,
			"email":      sess.Email,
			"sid":        sess.SID,
			"created_at": sess.CreatedAt.UTC().Format(time.RFC3339),
		})
		p.Expire(ctx, key, ttl)
		return nil
	})
	return err
}

func (s *SessionStore) Get(ctx context.Context, userID string) (*entity.Session, error) {
	data, err := s.rdb.HGetAll(ctx, sessionKey(userID)).Result()
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, repository.ErrNotFound
	}
	created, _ := time.Parse(time.RFC3339, data["created_at"])
	return &entity.Session{
		UserID:    data["user_id"],
		Username:  data["username"],
		Email:     data["email"],
		SID:       data["sid"],
		CreatedAt: created,
	}, nil
}

func (s *SessionStore) Delete(ctx context.Context, userID string) error {
	return s.rdb.Del(ctx, sessionKey(userID)).Err()
}
