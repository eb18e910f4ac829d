package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/qs3c/rfq_alchemy/internal/model"
)

const (
	sessionKeyPrefix = "rfq:session:"
	sessionIndexKey  = "rfq:sessions"
	claimKeyPrefix   = "rfq:claim:"
	claimSetPrefix   = "rfq:claims:"
	maxUpdateRetries = 32
)

// RedisStore 会话以 JSON 快照存在 redis 里，供独立 worker 进程共享
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
	now    func() time.Time
}

func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RedisStore{client: client, ttl: ttl, now: time.Now}
}

func sessionKey(id string) string {
	return sessionKeyPrefix + id
}

func (r *RedisStore) Create(ctx context.Context, kind string, opts CreateOptions) (*model.Session, error) {
	s := newSession(kind, opts, r.now())
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal session: %w", err)
	}

	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, sessionKey(s.ID), data, r.ttl)
		pipe.SAdd(ctx, sessionIndexKey, s.ID)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}
	return s, nil
}

func (r *RedisStore) Get(ctx context.Context, id string) (*model.Session, error) {
	return r.load(ctx, r.client, id)
}

type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func (r *RedisStore) load(ctx context.Context, c getter, id string) (*model.Session, error) {
	data, err := c.Get(ctx, sessionKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	var s model.Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to decode session %s: %w", id, err)
	}
	return &s, nil
}

// Update 用 WATCH 做乐观并发控制，冲突时重试
func (r *RedisStore) Update(ctx context.Context, id string, fn func(*model.Session) error) (*model.Session, error) {
	key := sessionKey(id)
	var updated *model.Session

	txf := func(tx *redis.Tx) error {
		s, err := r.load(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := fn(s); err != nil {
			return err
		}
		s.ID = id
		s.UpdatedAt = r.now()
		data, err := json.Marshal(s)
		if err != nil {
			return fmt.Errorf("failed to marshal session: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, r.ttl)
			return nil
		})
		if err == nil {
			updated = s
		}
		return err
	}

	for i := 0; i < maxUpdateRetries; i++ {
		err := r.client.Watch(ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return updated, nil
	}
	return nil, fmt.Errorf("session %s: too many concurrent updates", id)
}

func (r *RedisStore) SetResult(ctx context.Context, id string, result *model.AnalysisResult) error {
	_, err := r.Update(ctx, id, func(s *model.Session) error {
		s.Result = result
		return nil
	})
	return err
}

func (r *RedisStore) AppendMessages(ctx context.Context, id string, msgs ...model.ChatMessage) ([]model.ChatMessage, error) {
	var out []model.ChatMessage
	_, err := r.Update(ctx, id, func(s *model.Session) error {
		out = appendMessages(s, msgs, r.now())
		return nil
	})
	return out, err
}

func (r *RedisStore) Delete(ctx context.Context, id string) error {
	n, err := r.client.Del(ctx, sessionKey(id)).Result()
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	r.client.SRem(ctx, sessionIndexKey, id)
	if err := r.Release(ctx, id); err != nil {
		log.Printf("Failed to release claims of session %s: %v", id, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// List 顺便清理索引里已过期的 ID
func (r *RedisStore) List(ctx context.Context, kind string) ([]*model.Session, error) {
	ids, err := r.client.SMembers(ctx, sessionIndexKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}

	out := make([]*model.Session, 0, len(ids))
	for _, id := range ids {
		s, err := r.Get(ctx, id)
		if errors.Is(err, ErrNotFound) {
			r.client.SRem(ctx, sessionIndexKey, id)
			continue
		}
		if err != nil {
			return nil, err
		}
		if kind != "" && s.Kind != kind {
			continue
		}
		out = append(out, s)
	}
	sortNewestFirst(out)
	return out, nil
}

// Claim 每个文档一个 SETNX 键；失败时回滚本次新占用的键
func (r *RedisStore) Claim(ctx context.Context, sessionID string, docIDs []string) error {
	var acquired []string
	rollback := func() {
		for _, id := range acquired {
			r.client.Del(ctx, claimKeyPrefix+id)
		}
	}

	for _, id := range docIDs {
		key := claimKeyPrefix + id
		ok, err := r.client.SetNX(ctx, key, sessionID, r.ttl).Result()
		if err != nil {
			rollback()
			return fmt.Errorf("failed to claim document %s: %w", id, err)
		}
		if ok {
			acquired = append(acquired, id)
			continue
		}
		owner, err := r.client.Get(ctx, key).Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			rollback()
			return fmt.Errorf("failed to read claim of %s: %w", id, err)
		}
		if owner != sessionID {
			rollback()
			return ErrDocumentBusy
		}
	}

	if len(docIDs) > 0 {
		set := claimSetPrefix + sessionID
		members := make([]interface{}, len(docIDs))
		for i, id := range docIDs {
			members[i] = id
		}
		if _, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.SAdd(ctx, set, members...)
			pipe.Expire(ctx, set, r.ttl)
			return nil
		}); err != nil {
			return fmt.Errorf("failed to record claims: %w", err)
		}
	}
	return nil
}

func (r *RedisStore) Release(ctx context.Context, sessionID string) error {
	set := claimSetPrefix + sessionID
	docIDs, err := r.client.SMembers(ctx, set).Result()
	if err != nil {
		return fmt.Errorf("failed to read claims: %w", err)
	}
	for _, id := range docIDs {
		key := claimKeyPrefix + id
		owner, err := r.client.Get(ctx, key).Result()
		if err == nil && owner == sessionID {
			r.client.Del(ctx, key)
		}
	}
	return r.client.Del(ctx, set).Err()
}

// EvictIdle redis 依赖键的 TTL，这里只清理索引
func (r *RedisStore) EvictIdle(ctx context.Context, maxIdle time.Duration) (int, error) {
	ids, err := r.client.SMembers(ctx, sessionIndexKey).Result()
	if err != nil {
		return 0, err
	}
	n := 0
	for _, id := range ids {
		exists, err := r.client.Exists(ctx, sessionKey(id)).Result()
		if err != nil {
			return n, err
		}
		if exists == 0 {
			r.client.SRem(ctx, sessionIndexKey, id)
			n++
		}
	}
	return n, nil
}
