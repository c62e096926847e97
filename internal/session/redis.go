package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"metals-dashboard/internal/config"
)

// RedisStore shares sessions across dashboard replicas.
type RedisStore struct {
	client redis.Cmdable
	prefix string
	ttl    time.Duration
	now    func() time.Time
}

// NewRedisClient dials the configured Redis instance.
func NewRedisClient(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})
}

// NewRedisStore wraps an existing client.
func NewRedisStore(client redis.Cmdable, prefix string, ttl time.Duration) *RedisStore {
	if prefix == "" {
		prefix = "metalsdash"
	}
	return &RedisStore{client: client, prefix: prefix, ttl: ttl, now: time.Now}
}

func (r *RedisStore) key(id string) string {
	return fmt.Sprintf("%s:session:%s", r.prefix, id)
}

// Load implements Store.
func (r *RedisStore) Load(ctx context.Context, id string) (*Session, error) {
	raw, err := r.client.Get(ctx, r.key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return New(id), nil
	}
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}

	var s Session
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("decode session %s: %w", id, err)
	}
	if s.Page == "" {
		s.Page = PageMain
	}
	return &s, nil
}

// Save implements Store.
func (r *RedisStore) Save(ctx context.Context, s *Session) error {
	s.UpdatedAt = r.now().UTC()
	payload, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := r.client.Set(ctx, r.key(s.ID), payload, r.ttl).Err(); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// Delete implements Store.
func (r *RedisStore) Delete(ctx context.Context, id string) error {
	n, err := r.client.Del(ctx, r.key(id)).Result()
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

var _ Store = (*RedisStore)(nil)
